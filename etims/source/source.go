// Package source reads pump sale exports (XML) and turns each <line> record into a model.RawLine.
//
// The expected document shape is:
//
//	<data>
//	  <line>
//	    <Transaction_id>T1</Transaction_id>
//	    <Product_name>ULX</Product_name>
//	    <Pump>1</Pump>
//	    <Nozzle>2</Nozzle>
//	    <Base_price>100.00</Base_price>
//	    <Total_price>250.00</Total_price>
//	    <Receipt_date>23-07-2025</Receipt_date>
//	    <Receipt_time>13:49:37</Receipt_time>
//	    <VAT_Amount>34.48</VAT_Amount>
//	    <Pre-VAT_Amount>215.52</Pre-VAT_Amount>
//	  </line>
//	</data>
package source

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/alapierre/go-etims-receipts/etims"
	"github.com/alapierre/go-etims-receipts/etims/model"
	"github.com/beevik/etree"
	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

var logger = logrus.WithField("component", "etims.source")

const (
	LineTag = "line"

	FieldTransactionID = "Transaction_id"
	FieldProduct       = "Product_name"
	FieldPump          = "Pump"
	FieldNozzle        = "Nozzle"
	FieldBasePrice     = "Base_price"
	FieldTotalPrice    = "Total_price"
	FieldReceiptDate   = "Receipt_date"
	FieldReceiptTime   = "Receipt_time"
	FieldVATAmount     = "VAT_Amount"
	FieldPreVATAmount  = "Pre-VAT_Amount"
)

// LineSource is an iterator over the records of one document.
// Next returns io.EOF after the last record. A *etims.MalformedLineError concerns only the
// current record; iteration may continue after it.
type LineSource interface {
	Next() (*model.RawLine, error)
}

// Opener produces a fresh LineSource for every batch run.
type Opener interface {
	Open() (LineSource, error)
}

// FileOpener opens and parses the document at Path on every call.
type FileOpener struct {
	Path string
}

func (o FileOpener) Open() (LineSource, error) {
	return Open(o.Path)
}

// BytesOpener parses an in-memory document on every call.
type BytesOpener []byte

func (o BytesOpener) Open() (LineSource, error) {
	return Parse(bytes.NewReader(o))
}

// Document holds the parsed line records of a single export.
type Document struct {
	lines []*etree.Element
	idx   int

	// ids holds every Transaction_id of the document plus the ids synthesized so far.
	ids map[string]struct{}
}

// Open reads and parses the XML export at path.
func Open(path string) (*Document, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrapf(etims.ErrDocumentUnreadable, "open %q: %v", path, err)
	}
	defer func() { _ = f.Close() }()

	logger.WithField("path", path).Debug("Reading source document")
	return Parse(f)
}

// Parse reads an XML export from r.
func Parse(r io.Reader) (*Document, error) {
	doc := etree.NewDocument()
	if _, err := doc.ReadFrom(r); err != nil {
		return nil, errors.Wrapf(etims.ErrDocumentUnreadable, "parse xml: %v", err)
	}

	root := doc.Root()
	if root == nil {
		return nil, errors.Wrap(etims.ErrNoRecords, "document has no root element")
	}

	lines := root.SelectElements(LineTag)
	if len(lines) == 0 {
		return nil, errors.Wrapf(etims.ErrNoRecords, "no <%s> elements below <%s>", LineTag, root.Tag)
	}

	ids := make(map[string]struct{}, len(lines))
	for _, el := range lines {
		if id := text(el, FieldTransactionID); id != "" {
			ids[id] = struct{}{}
		}
	}

	logger.WithField("lines", len(lines)).Debug("Source document parsed")
	return &Document{lines: lines, ids: ids}, nil
}

// Len returns the number of line records in the document.
func (d *Document) Len() int {
	return len(d.lines)
}

func (d *Document) Next() (*model.RawLine, error) {
	if d.idx >= len(d.lines) {
		return nil, io.EOF
	}
	el := d.lines[d.idx]
	d.idx++

	return extractLine(el, d.idx, d.synthesizeID)
}

// synthesizeID returns SynthesizeID(index), suffixed when a real or earlier synthesized id already uses it.
func (d *Document) synthesizeID(index int) string {
	base := SynthesizeID(index)
	id := base
	for n := 2; ; n++ {
		if _, taken := d.ids[id]; !taken {
			break
		}
		id = fmt.Sprintf("%s-%d", base, n)
	}
	if d.ids == nil {
		d.ids = map[string]struct{}{}
	}
	d.ids[id] = struct{}{}
	return id
}

// ExtractLine converts one <line> element into a RawLine. index is the 1-based document position,
// used to synthesize an id when Transaction_id is missing. Ids synthesized here are not checked
// against the rest of the document; Document.Next does that.
func ExtractLine(el *etree.Element, index int) (*model.RawLine, error) {
	return extractLine(el, index, SynthesizeID)
}

func extractLine(el *etree.Element, index int, synthesize func(int) string) (*model.RawLine, error) {
	line := &model.RawLine{
		Index:         index,
		TransactionID: text(el, FieldTransactionID),
		Product:       text(el, FieldProduct),
		Pump:          text(el, FieldPump),
		Nozzle:        text(el, FieldNozzle),
		ReceiptDate:   text(el, FieldReceiptDate),
		ReceiptTime:   text(el, FieldReceiptTime),
	}

	if line.TransactionID == "" {
		line.TransactionID = synthesize(index)
		line.IDSynthesized = true
		logger.WithField("line", index).Warnf("Missing %s, using %s", FieldTransactionID, line.TransactionID)
	}

	malformed := func(field string, err error) error {
		return &etims.MalformedLineError{Index: index, TransactionID: line.TransactionID, Field: field, Err: err}
	}

	total, totalErr := amount(el, FieldTotalPrice)
	base, baseErr := amount(el, FieldBasePrice)

	switch {
	case totalErr != nil && baseErr != nil:
		return nil, malformed(FieldTotalPrice+","+FieldBasePrice, errors.Errorf("%v; %v", totalErr, baseErr))
	case totalErr != nil:
		return nil, malformed(FieldTotalPrice, totalErr)
	case baseErr != nil && !errors.Is(baseErr, errMissing):
		return nil, malformed(FieldBasePrice, baseErr)
	}

	line.TotalPrice = total.Decimal
	// a missing base price leaves quantity undefined, which derives to zero
	line.BasePrice = base.Decimal

	if line.TotalPrice.IsNegative() {
		return nil, malformed(FieldTotalPrice, errors.Errorf("negative amount %s", line.TotalPrice))
	}
	if line.BasePrice.IsNegative() {
		return nil, malformed(FieldBasePrice, errors.Errorf("negative amount %s", line.BasePrice))
	}

	var err error
	if line.VATAmount, err = amount(el, FieldVATAmount); err != nil && !errors.Is(err, errMissing) {
		return nil, malformed(FieldVATAmount, err)
	}
	if line.PreVATAmount, err = amount(el, FieldPreVATAmount); err != nil && !errors.Is(err, errMissing) {
		return nil, malformed(FieldPreVATAmount, err)
	}

	if _, err := time.Parse(model.DateLayout, line.ReceiptDate); err != nil {
		return nil, malformed(FieldReceiptDate, errors.Errorf("expected DD-MM-YYYY, got %q", line.ReceiptDate))
	}
	if _, err := time.Parse(model.TimeLayout, line.ReceiptTime); err != nil {
		return nil, malformed(FieldReceiptTime, errors.Errorf("expected HH:MM:SS, got %q", line.ReceiptTime))
	}

	return line, nil
}

// SynthesizeID builds the placeholder id for a record without Transaction_id.
func SynthesizeID(index int) string {
	return fmt.Sprintf("item-%d", index)
}

var errMissing = errors.New("missing value")

func text(el *etree.Element, tag string) string {
	child := el.SelectElement(tag)
	if child == nil {
		return ""
	}
	return strings.TrimSpace(child.Text())
}

// amount parses a locale-agnostic decimal ("1234.50"). Absent or blank elements yield errMissing.
func amount(el *etree.Element, tag string) (decimal.NullDecimal, error) {
	raw := text(el, tag)
	if raw == "" {
		return decimal.NullDecimal{}, errMissing
	}

	d, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.NullDecimal{}, errors.Errorf("not a number: %q", raw)
	}
	return decimal.NewNullDecimal(d), nil
}
