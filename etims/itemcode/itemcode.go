// Package itemcode maps pump product names onto the item codes registered with the tax authority.
package itemcode

import (
	"io"
	"os"
	"sort"
	"strings"

	"github.com/go-faster/errors"
	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"
)

var logger = logrus.WithField("component", "etims.itemcode")

// Table is a product name to item code mapping. Lookups are exact, case-sensitive matches on the
// product name as it appears in the export.
type Table map[string]string

// Defaults is the built-in product table.
func Defaults() Table {
	return Table{
		"ULX": "KE2UCT0066469",
		"DX":  "KE2UCT0066470",
	}
}

// Lookup returns the item code for product.
func (t Table) Lookup(product string) (string, bool) {
	code, ok := t[product]
	return code, ok
}

// Products returns the mapped product names, sorted.
func (t Table) Products() []string {
	out := make([]string, 0, len(t))
	for k := range t {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// Decode reads a yaml mapping such as
//
//	ULX: KE2UCT0066469
//	DX: KE2UCT0066470
func Decode(r io.Reader) (Table, error) {
	var raw map[string]string
	if err := yaml.NewDecoder(r).Decode(&raw); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, errors.New("item code table is empty")
		}
		return nil, errors.Wrap(err, "decode item code table")
	}

	t := make(Table, len(raw))
	for product, code := range raw {
		product, code = strings.TrimSpace(product), strings.TrimSpace(code)
		if product == "" || code == "" {
			return nil, errors.Errorf("invalid item code entry %q: %q", product, code)
		}
		t[product] = code
	}
	if len(t) == 0 {
		return nil, errors.New("item code table is empty")
	}
	return t, nil
}

// Load reads the table at path. An empty path yields Defaults.
func Load(path string) (Table, error) {
	if path == "" {
		return Defaults(), nil
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, "open item code table")
	}
	defer func() { _ = f.Close() }()

	t, err := Decode(f)
	if err != nil {
		return nil, errors.Wrapf(err, "load %s", path)
	}

	logger.WithField("path", path).Debugf("Loaded %d item codes", len(t))
	return t, nil
}
