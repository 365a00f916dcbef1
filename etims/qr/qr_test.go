package qr

import (
	"testing"
	"time"

	"github.com/alapierre/go-etims-receipts/etims"
	"github.com/alapierre/go-etims-receipts/etims/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocalVerificationLink(t *testing.T) {
	issued := time.Date(2025, 7, 23, 13, 49, 37, 0, time.UTC)

	link, err := LocalVerificationLink(etims.Sandbox, "p000000000z", "10000", issued)
	require.NoError(t, err)
	assert.Equal(t, "https://etims-sbx.kra.go.ke/common/link/etims/receipt/indexEtimsReceiptData?Data=P000000000Z1000023072025", link)

	link, err = LocalVerificationLink(etims.Prod, "P000000000Z", "42", issued)
	require.NoError(t, err)
	assert.Equal(t, "https://etims.kra.go.ke/common/link/etims/receipt/indexEtimsReceiptData?Data=P000000000Z4223072025", link)
}

func TestLocalVerificationLink_Invalid(t *testing.T) {
	issued := time.Now()

	_, err := LocalVerificationLink(etims.Sandbox, "12345", "1", issued)
	assert.Error(t, err)

	_, err = LocalVerificationLink(etims.Sandbox, "P000000000Z", " ", issued)
	assert.Error(t, err)
}

func TestPayload(t *testing.T) {
	assert.Equal(t, "", Payload(nil))
	assert.Equal(t, "https://x/y", Payload(&model.FiscalResult{VerificationURL: " https://x/y "}))
}
