package fiscal

import (
	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	"github.com/shopspring/decimal"
)

// invoiceRequest is the body posted to the invoices endpoint.
type invoiceRequest struct {
	TraderInvoiceNo string
	TotalAmount     decimal.Decimal
	PaymentType     string
	SalesTypeCode   string
	ReceiptTypeCode string
	SalesStatusCode string
	SalesDate       string // YYYYMMDDHHMMSS
	Currency        string
	ExchangeRate    float64
	SalesItems      []salesItem
	CustomerPin     string
	CustomerName    string
}

type salesItem struct {
	ItemCode       string
	Qty            decimal.Decimal
	Pkg            int
	UnitPrice      decimal.Decimal
	Amount         decimal.Decimal
	DiscountAmount decimal.Decimal
}

func (r *invoiceRequest) Encode(e *jx.Encoder) {
	e.ObjStart()
	e.FieldStart("traderInvoiceNo")
	e.Str(r.TraderInvoiceNo)
	e.FieldStart("totalAmount")
	encodeAmount(e, r.TotalAmount)
	e.FieldStart("paymentType")
	e.Str(r.PaymentType)
	e.FieldStart("salesTypeCode")
	e.Str(r.SalesTypeCode)
	e.FieldStart("receiptTypeCode")
	e.Str(r.ReceiptTypeCode)
	e.FieldStart("salesStatusCode")
	e.Str(r.SalesStatusCode)
	e.FieldStart("salesDate")
	e.Str(r.SalesDate)
	e.FieldStart("currency")
	e.Str(r.Currency)
	e.FieldStart("exchangeRate")
	e.Float64(r.ExchangeRate)
	e.FieldStart("salesItems")
	e.ArrStart()
	for i := range r.SalesItems {
		r.SalesItems[i].Encode(e)
	}
	e.ArrEnd()
	e.FieldStart("customerPin")
	e.Str(r.CustomerPin)
	e.FieldStart("customerName")
	e.Str(r.CustomerName)
	e.ObjEnd()
}

func (s *salesItem) Encode(e *jx.Encoder) {
	e.ObjStart()
	e.FieldStart("itemCode")
	e.Str(s.ItemCode)
	e.FieldStart("qty")
	encodeAmount(e, s.Qty)
	e.FieldStart("pkg")
	e.Int(s.Pkg)
	e.FieldStart("unitPrice")
	encodeAmount(e, s.UnitPrice)
	e.FieldStart("amount")
	encodeAmount(e, s.Amount)
	e.FieldStart("discountAmount")
	encodeAmount(e, s.DiscountAmount)
	e.ObjEnd()
}

func encodeAmount(e *jx.Encoder, d decimal.Decimal) {
	e.Float64(d.InexactFloat64())
}

// invoiceResponse is the envelope returned by the invoices endpoint.
type invoiceResponse struct {
	StatusCode string
	Message    string
	Data       *invoiceData
}

type invoiceData struct {
	SCUReceiptNo           string
	TotalTaxAmount         decimal.Decimal
	TotalTaxableAmount     decimal.Decimal
	Signature              string
	InternalData           string
	InvoiceVerificationURL string
	SCDCID                 string
}

func (r *invoiceResponse) Decode(d *jx.Decoder) error {
	return d.Obj(func(d *jx.Decoder, key string) error {
		var err error
		switch key {
		case "statusCode":
			r.StatusCode, err = decodeText(d)
		case "message":
			r.Message, err = decodeText(d)
		case "data":
			if d.Next() == jx.Null {
				return d.Null()
			}
			r.Data = &invoiceData{}
			err = r.Data.Decode(d)
		default:
			return d.Skip()
		}
		if err != nil {
			return errors.Wrapf(err, "decode field %q", key)
		}
		return nil
	})
}

func (v *invoiceData) Decode(d *jx.Decoder) error {
	return d.Obj(func(d *jx.Decoder, key string) error {
		var err error
		switch key {
		case "scuReceiptNo":
			v.SCUReceiptNo, err = decodeText(d)
		case "totalTaxAmount":
			v.TotalTaxAmount, err = decodeAmount(d)
		case "totalTaxableAmount":
			v.TotalTaxableAmount, err = decodeAmount(d)
		case "signature":
			v.Signature, err = decodeText(d)
		case "internalData":
			v.InternalData, err = decodeText(d)
		case "invoiceVerificationUrl":
			v.InvoiceVerificationURL, err = decodeText(d)
		case "scdcId":
			v.SCDCID, err = decodeText(d)
		default:
			return d.Skip()
		}
		if err != nil {
			return errors.Wrapf(err, "decode field %q", key)
		}
		return nil
	})
}

// decodeText accepts strings, numbers (receipt numbers come either way) and null.
func decodeText(d *jx.Decoder) (string, error) {
	switch d.Next() {
	case jx.String:
		return d.Str()
	case jx.Number:
		n, err := d.Num()
		if err != nil {
			return "", err
		}
		return n.String(), nil
	case jx.Null:
		return "", d.Null()
	default:
		return "", errors.Errorf("unexpected %s", d.Next())
	}
}

func decodeAmount(d *jx.Decoder) (decimal.Decimal, error) {
	s, err := decodeText(d)
	if err != nil || s == "" {
		return decimal.Zero, err
	}
	v, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, errors.Errorf("not a number: %q", s)
	}
	return v, nil
}

func encodeInvoiceRequest(r *invoiceRequest) []byte {
	e := jx.GetEncoder()
	defer jx.PutEncoder(e)

	r.Encode(e)
	out := make([]byte, len(e.Bytes()))
	copy(out, e.Bytes())
	return out
}

func decodeInvoiceResponse(b []byte) (*invoiceResponse, error) {
	var r invoiceResponse
	if err := r.Decode(jx.DecodeBytes(b)); err != nil {
		return nil, errors.Wrap(err, "decode invoice response")
	}
	return &r, nil
}
