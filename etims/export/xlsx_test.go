package export

import (
	"bytes"
	"testing"

	"github.com/alapierre/go-etims-receipts/etims/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func TestWriteXLSX(t *testing.T) {
	receipts := []model.Receipt{
		{ID: "T2", ReceiptNumber: "10001", Product: "DX", Quantity: "1.00", TotalPrice: "180.00", VAT: "24.83", SubTotal: "155.17"},
		{ID: "T1", ReceiptNumber: "10000", Product: "ULX", Quantity: "2.50", TotalPrice: "250.00", VAT: "34.48", SubTotal: "181.04"},
	}

	var buf bytes.Buffer
	require.NoError(t, WriteXLSX(&buf, receipts))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer func() { _ = f.Close() }()

	assert.Equal(t, []string{SheetName}, f.GetSheetList())

	rows, err := f.GetRows(SheetName)
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, "Transaction ID", rows[0][0])
	assert.Equal(t, "T2", rows[1][0])
	assert.Equal(t, "T1", rows[2][0])
	assert.Equal(t, "10000", rows[2][1])

	v, err := f.GetCellValue(SheetName, "J3")
	require.NoError(t, err)
	assert.Equal(t, "250", v)
}

func TestWriteXLSX_Empty(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteXLSX(&buf, nil))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer func() { _ = f.Close() }()

	rows, err := f.GetRows(SheetName)
	require.NoError(t, err)
	assert.Len(t, rows, 1)
}
