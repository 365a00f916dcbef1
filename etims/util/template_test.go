package util

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMergeTemplate(t *testing.T) {
	tmpl, err := ParseTemplate("t", `<p>{{ hyphens .Sig }}</p><img src="{{ safeURL .QR }}"><b>{{ .Name }}</b>`)
	require.NoError(t, err)

	out, err := MergeTemplate(tmpl, map[string]string{
		"Sig":  "ABCDEFGH",
		"QR":   "data:image/png;base64,AAAA",
		"Name": "<script>",
	})
	require.NoError(t, err)

	assert.Equal(t, `<p>ABCD-EFGH</p><img src="data:image/png;base64,AAAA"><b>&lt;script&gt;</b>`, string(out))
}
