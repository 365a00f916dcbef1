package model

import "github.com/shopspring/decimal"

// FiscalResult is the outcome of fiscalising one line, regardless of the variant that produced it.
type FiscalResult struct {
	ReceiptNumber string
	VAT           decimal.Decimal
	SubTotal      decimal.Decimal

	// InternalData and Signature are opaque blobs issued by the fiscal device.
	InternalData string
	Signature    string

	// VerificationURL is the reference a third party scans to confirm the receipt.
	VerificationURL string

	// SCUID identifies the control unit that issued the receipt number.
	SCUID string
}

// Receipt is the assembled, externally visible record. Amounts are fixed 2-decimal strings.
type Receipt struct {
	ID            string `json:"id"`
	ReceiptNumber string `json:"receiptNumber"`
	Date          string `json:"date"`
	Time          string `json:"time"`
	Product       string `json:"product"`
	Pump          string `json:"pump"`
	Nozzle        string `json:"nozzle"`
	UnitPrice     string `json:"unitPrice"`
	TotalPrice    string `json:"totalPrice"`
	VAT           string `json:"vat"`
	SubTotal      string `json:"subTotal"`
	Quantity      string `json:"quantity"`

	// QRCode is an inline data URI (image/png).
	QRCode string `json:"qrCode"`

	Signature       string `json:"signature"`
	InternalData    string `json:"internalData"`
	VerificationURL string `json:"verificationUrl"`
	SCUID           string `json:"scdcId"`
}
