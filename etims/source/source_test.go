package source

import (
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/alapierre/go-etims-receipts/etims"
	"github.com/go-faster/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sample = `<?xml version="1.0" encoding="UTF-8"?>
<data>
  <line>
    <Transaction_id>T1</Transaction_id>
    <Product_name>ULX</Product_name>
    <Pump>1</Pump>
    <Nozzle>2</Nozzle>
    <Base_price>100.00</Base_price>
    <Total_price>250.00</Total_price>
    <Receipt_date>23-07-2025</Receipt_date>
    <Receipt_time>13:49:37</Receipt_time>
    <VAT_Amount>34.48</VAT_Amount>
    <Pre-VAT_Amount>215.52</Pre-VAT_Amount>
  </line>
  <line>
    <Product_name> DX </Product_name>
    <Pump>3</Pump>
    <Nozzle>1</Nozzle>
    <Total_price>500</Total_price>
    <Receipt_date>23-07-2025</Receipt_date>
    <Receipt_time>14:00:00</Receipt_time>
  </line>
  <line>
    <Transaction_id>T3</Transaction_id>
    <Base_price>abc</Base_price>
    <Total_price>n/a</Total_price>
    <Receipt_date>23-07-2025</Receipt_date>
    <Receipt_time>14:00:00</Receipt_time>
  </line>
</data>`

func TestParse_IteratesInDocumentOrder(t *testing.T) {
	doc, err := Parse(strings.NewReader(sample))
	require.NoError(t, err)
	assert.Equal(t, 3, doc.Len())

	first, err := doc.Next()
	require.NoError(t, err)
	assert.Equal(t, 1, first.Index)
	assert.Equal(t, "T1", first.TransactionID)
	assert.False(t, first.IDSynthesized)
	assert.Equal(t, "ULX", first.Product)
	assert.Equal(t, "100", first.BasePrice.String())
	assert.Equal(t, "250", first.TotalPrice.String())
	assert.Equal(t, "2.50", first.Quantity().StringFixed(2))
	require.True(t, first.VATAmount.Valid)
	assert.Equal(t, "34.48", first.VATAmount.Decimal.String())
	require.True(t, first.PreVATAmount.Valid)
	assert.Equal(t, "215.52", first.PreVATAmount.Decimal.String())

	second, err := doc.Next()
	require.NoError(t, err)
	assert.Equal(t, "item-2", second.TransactionID)
	assert.True(t, second.IDSynthesized)
	assert.Equal(t, "DX", second.Product)
	assert.True(t, second.BasePrice.IsZero())
	assert.Equal(t, "0.00", second.Quantity().StringFixed(2))
	assert.False(t, second.VATAmount.Valid)

	_, err = doc.Next()
	var malformed *etims.MalformedLineError
	require.ErrorAs(t, err, &malformed)
	assert.Equal(t, 3, malformed.Index)
	assert.Equal(t, "T3", malformed.TransactionID)
	assert.Equal(t, "Total_price,Base_price", malformed.Field)

	_, err = doc.Next()
	assert.ErrorIs(t, err, io.EOF)
}

func TestParse_SynthesizedIDsAvoidRealIDs(t *testing.T) {
	const doc = `<data>
  <line><Transaction_id>item-2</Transaction_id><Base_price>1</Base_price><Total_price>1</Total_price><Receipt_date>01-01-2025</Receipt_date><Receipt_time>10:00:00</Receipt_time></line>
  <line><Base_price>1</Base_price><Total_price>2</Total_price><Receipt_date>01-01-2025</Receipt_date><Receipt_time>10:00:00</Receipt_time></line>
  <line><Base_price>1</Base_price><Total_price>3</Total_price><Receipt_date>01-01-2025</Receipt_date><Receipt_time>10:00:00</Receipt_time></line>
  <line><Transaction_id>item-3</Transaction_id><Base_price>1</Base_price><Total_price>4</Total_price><Receipt_date>01-01-2025</Receipt_date><Receipt_time>10:00:00</Receipt_time></line>
  <line><Transaction_id>item-2-2</Transaction_id><Base_price>1</Base_price><Total_price>5</Total_price><Receipt_date>01-01-2025</Receipt_date><Receipt_time>10:00:00</Receipt_time></line>
</data>`

	d, err := Parse(strings.NewReader(doc))
	require.NoError(t, err)

	seen := map[string]bool{}
	var ids []string
	for {
		line, err := d.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		require.NoError(t, err)
		assert.False(t, seen[line.TransactionID], "id %s reused", line.TransactionID)
		seen[line.TransactionID] = true
		ids = append(ids, line.TransactionID)
	}

	assert.Equal(t, []string{"item-2", "item-2-3", "item-3-2", "item-3", "item-2-2"}, ids)
}

func TestExtractLine_Malformed(t *testing.T) {
	tests := []struct {
		name  string
		body  string
		field string
	}{
		{"total unparsable", `<Base_price>1</Base_price><Total_price>x</Total_price>`, FieldTotalPrice},
		{"total missing", `<Base_price>1</Base_price>`, FieldTotalPrice},
		{"base unparsable", `<Base_price>1,5</Base_price><Total_price>3</Total_price>`, FieldBasePrice},
		{"negative total", `<Base_price>1</Base_price><Total_price>-3</Total_price>`, FieldTotalPrice},
		{"vat unparsable", `<Base_price>1</Base_price><Total_price>3</Total_price><VAT_Amount>?</VAT_Amount>`, FieldVATAmount},
		{"bad date", `<Base_price>1</Base_price><Total_price>3</Total_price><Receipt_date>2025-07-23</Receipt_date>`, FieldReceiptDate},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			body := tt.body
			if !strings.Contains(body, "Receipt_date") {
				body += `<Receipt_date>01-01-2025</Receipt_date>`
			}
			body += `<Receipt_time>10:00:00</Receipt_time>`

			doc, err := Parse(strings.NewReader("<data><line>" + body + "</line></data>"))
			require.NoError(t, err)

			_, err = doc.Next()
			var malformed *etims.MalformedLineError
			require.ErrorAs(t, err, &malformed)
			assert.Equal(t, tt.field, malformed.Field)
			assert.Equal(t, "item-1", malformed.TransactionID)
		})
	}
}

func TestParse_DocumentLevelFailures(t *testing.T) {
	_, err := Parse(strings.NewReader(`<data><<line/></data>`))
	assert.ErrorIs(t, err, etims.ErrDocumentUnreadable)

	_, err = Parse(strings.NewReader(`<data><record/></data>`))
	assert.ErrorIs(t, err, etims.ErrNoRecords)

	_, err = Parse(strings.NewReader(``))
	assert.True(t, etims.IsDocumentLevel(err))
}

func TestOpen_MissingFile(t *testing.T) {
	_, err := Open(filepath.Join(t.TempDir(), "nope.xml"))
	assert.True(t, errors.Is(err, etims.ErrDocumentUnreadable))
}

func TestFileOpener(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data.xml")
	require.NoError(t, os.WriteFile(path, []byte(sample), 0o600))

	src, err := FileOpener{Path: path}.Open()
	require.NoError(t, err)

	line, err := src.Next()
	require.NoError(t, err)
	assert.Equal(t, "T1", line.TransactionID)
}
