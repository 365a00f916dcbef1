// Package receipt assembles the externally visible receipt record.
package receipt

import (
	"github.com/alapierre/go-etims-receipts/etims/model"
	"github.com/shopspring/decimal"
)

const places = 2

// Assemble merges an extracted line, its fiscal result and the rendered QR image.
// It is pure; nil arguments are programmer errors and panic.
func Assemble(line *model.RawLine, fiscal *model.FiscalResult, qrImage string) model.Receipt {
	if line == nil || fiscal == nil {
		panic("receipt: nil line or fiscal result")
	}

	return model.Receipt{
		ID:              line.TransactionID,
		ReceiptNumber:   fiscal.ReceiptNumber,
		Date:            line.ReceiptDate,
		Time:            line.ReceiptTime,
		Product:         line.Product,
		Pump:            line.Pump,
		Nozzle:          line.Nozzle,
		UnitPrice:       money(line.BasePrice),
		TotalPrice:      money(line.TotalPrice),
		VAT:             money(fiscal.VAT),
		SubTotal:        money(fiscal.SubTotal),
		Quantity:        money(line.Quantity()),
		QRCode:          qrImage,
		Signature:       fiscal.Signature,
		InternalData:    fiscal.InternalData,
		VerificationURL: fiscal.VerificationURL,
		SCUID:           fiscal.SCUID,
	}
}

func money(d decimal.Decimal) string {
	return d.StringFixed(places)
}
