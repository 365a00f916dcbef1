package itemcode

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaults(t *testing.T) {
	tbl := Defaults()

	code, ok := tbl.Lookup("ULX")
	require.True(t, ok)
	assert.Equal(t, "KE2UCT0066469", code)

	code, ok = tbl.Lookup("DX")
	require.True(t, ok)
	assert.Equal(t, "KE2UCT0066470", code)

	_, ok = tbl.Lookup("XYZ")
	assert.False(t, ok)

	_, ok = tbl.Lookup("ulx")
	assert.False(t, ok)

	assert.Equal(t, []string{"DX", "ULX"}, tbl.Products())
}

func TestDecode(t *testing.T) {
	tbl, err := Decode(strings.NewReader("ULX: KE1\nV-POWER: KE3\n"))
	require.NoError(t, err)
	assert.Equal(t, Table{"ULX": "KE1", "V-POWER": "KE3"}, tbl)

	_, err = Decode(strings.NewReader("ULX: ''\n"))
	assert.Error(t, err)

	_, err = Decode(strings.NewReader(""))
	assert.Error(t, err)

	_, err = Decode(strings.NewReader("- a\n- b\n"))
	assert.Error(t, err)
}

func TestLoad(t *testing.T) {
	tbl, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, Defaults(), tbl)

	path := filepath.Join(t.TempDir(), "items.yaml")
	require.NoError(t, os.WriteFile(path, []byte("DX: KE9\n"), 0o600))

	tbl, err = Load(path)
	require.NoError(t, err)
	assert.Equal(t, Table{"DX": "KE9"}, tbl)

	_, err = Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}
