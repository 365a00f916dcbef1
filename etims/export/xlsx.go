// Package export writes committed receipts to a spreadsheet.
package export

import (
	"io"
	"strconv"

	"github.com/alapierre/go-etims-receipts/etims/model"
	"github.com/go-faster/errors"
	"github.com/sirupsen/logrus"
	"github.com/xuri/excelize/v2"
)

var logger = logrus.WithField("component", "etims.export")

const SheetName = "Receipts"

var header = []any{
	"Transaction ID", "Receipt No", "Date", "Time", "Product", "Pump", "Nozzle",
	"Quantity", "Unit Price", "Total", "Sub Total", "VAT", "SCU ID", "Internal Data", "Signature", "Verification URL",
}

// WriteXLSX writes one header row and one row per receipt, in the given order.
func WriteXLSX(w io.Writer, receipts []model.Receipt) error {
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	if err := f.SetSheetName(f.GetSheetName(0), SheetName); err != nil {
		return errors.Wrap(err, "rename sheet")
	}

	if err := f.SetSheetRow(SheetName, "A1", &header); err != nil {
		return errors.Wrap(err, "write header")
	}
	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return errors.Wrap(err, "create header style")
	}
	last, err := excelize.CoordinatesToCellName(len(header), 1)
	if err != nil {
		return err
	}
	if err := f.SetCellStyle(SheetName, "A1", last, bold); err != nil {
		return errors.Wrap(err, "style header")
	}

	for i, r := range receipts {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		row := []any{
			r.ID, r.ReceiptNumber, r.Date, r.Time, r.Product, r.Pump, r.Nozzle,
			number(r.Quantity), number(r.UnitPrice), number(r.TotalPrice), number(r.SubTotal), number(r.VAT),
			r.SCUID, r.InternalData, r.Signature, r.VerificationURL,
		}
		if err := f.SetSheetRow(SheetName, cell, &row); err != nil {
			return errors.Wrapf(err, "write row for %s", r.ID)
		}
	}

	if err := f.SetColWidth(SheetName, "A", "G", 14); err != nil {
		return err
	}

	if err := f.Write(w); err != nil {
		return errors.Wrap(err, "write xlsx")
	}
	logger.Debugf("Exported %d receipts", len(receipts))
	return nil
}

// number keeps amounts numeric in the sheet; anything unparsable is written as text.
func number(s string) any {
	if v, err := strconv.ParseFloat(s, 64); err == nil {
		return v
	}
	return s
}
