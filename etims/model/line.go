package model

import (
	"time"

	"github.com/shopspring/decimal"
)

const (
	DateLayout = "02-01-2006" // DD-MM-YYYY as exported by the pump controller
	TimeLayout = "15:04:05"
)

// RawLine is a single sale record read from the pump export.
//
// RawLine is immutable once returned by the source.
type RawLine struct {
	// Index is the 1-based position of the record in the document.
	Index int

	TransactionID string
	// IDSynthesized is set when the record had no Transaction_id and one was generated.
	IDSynthesized bool

	Product string
	Pump    string
	Nozzle  string

	BasePrice  decimal.Decimal
	TotalPrice decimal.Decimal

	ReceiptDate string
	ReceiptTime string

	PreVATAmount decimal.NullDecimal
	VATAmount    decimal.NullDecimal
}

// Quantity is TotalPrice / BasePrice rounded to 2 places, or zero when BasePrice is zero.
func (l *RawLine) Quantity() decimal.Decimal {
	return Quantity(l.TotalPrice, l.BasePrice)
}

// ExactQuantity is TotalPrice / BasePrice without display rounding, or zero when BasePrice is zero.
func (l *RawLine) ExactQuantity() decimal.Decimal {
	if l.BasePrice.IsZero() {
		return decimal.Zero
	}
	return l.TotalPrice.Div(l.BasePrice)
}

// SaleTime combines ReceiptDate and ReceiptTime.
func (l *RawLine) SaleTime() (time.Time, error) {
	return time.Parse(DateLayout+" "+TimeLayout, l.ReceiptDate+" "+l.ReceiptTime)
}

// Quantity divides total by unit price, guarding against a zero unit price.
func Quantity(total, unit decimal.Decimal) decimal.Decimal {
	if unit.IsZero() {
		return decimal.Zero
	}
	return total.DivRound(unit, 2)
}
