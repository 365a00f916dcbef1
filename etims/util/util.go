package util

import (
	"os"
	"strconv"
	"strings"

	"github.com/sirupsen/logrus"
)

var logger = logrus.WithField("component", "etims.util")

func DebugEnabled() bool {
	return etb("ETIMS_DEBUG")
}

// HttpTraceEnabled turns on request/response body logging for the fiscalisation client.
func HttpTraceEnabled() bool {
	return etb("ETIMS_HTTP_TRACE")
}

func etb(envName string) bool {
	v, ok := os.LookupEnv(envName)
	if !ok {
		return false
	}

	bv, err := strconv.ParseBool(v)
	if err != nil {
		logger.Warnf("ignoring %s=%q: not a boolean", envName, v)
	}

	return err == nil && bv
}

// FormatWithHyphens strips existing hyphens and regroups s in chunks of 4 runes,
// the way fiscal blobs are printed on receipts.
func FormatWithHyphens(s string) string {
	s = strings.ReplaceAll(s, "-", "")
	if s == "" {
		return ""
	}

	var b strings.Builder
	b.Grow(len(s) + len(s)/4)
	n := 0
	for _, r := range s {
		if n > 0 && n%4 == 0 {
			b.WriteByte('-')
		}
		b.WriteRune(r)
		n++
	}
	return b.String()
}
