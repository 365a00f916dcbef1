package etims

import (
	"context"
	"testing"

	"github.com/go-faster/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want Outcome
	}{
		{"nil", nil, OutcomeCommitted},
		{"malformed", &MalformedLineError{Index: 1, Field: "Total_price", Err: errors.New("bad")}, OutcomeMalformed},
		{"unmapped", &UnmappedProductError{Product: "XYZ"}, OutcomeUnmapped},
		{"rejected wrapped", errors.Wrap(&FiscalisationRejectedError{StatusCode: 500}, "send"), OutcomeRejected},
		{"qr", &QrGenerationError{PayloadLength: 5000, Err: errors.New("too long")}, OutcomeQrFailed},
		{"duplicate", errors.Wrap(ErrDuplicateTransaction, "T1"), OutcomeDuplicate},
		{"other", errors.New("boom"), OutcomeError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Classify(tt.err))
		})
	}
}

func TestIsDocumentLevel(t *testing.T) {
	assert.True(t, IsDocumentLevel(errors.Wrap(ErrDocumentUnreadable, "parse")))
	assert.True(t, IsDocumentLevel(ErrNoRecords))
	assert.False(t, IsDocumentLevel(&MalformedLineError{}))
	assert.False(t, IsDocumentLevel(nil))
}

func TestFiscalisationRejectedError_Unwrap(t *testing.T) {
	cause := errors.New("status 502")
	err := error(&FiscalisationRejectedError{StatusCode: 502, Err: cause})

	assert.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "unknown API error")
}

func TestBatchIDContext(t *testing.T) {
	ctx := ContextWithBatchID(context.Background(), "b-1")

	id, ok := BatchIDFromContext(ctx)
	require.True(t, ok)
	assert.Equal(t, "b-1", id)

	entry := LoggerFromContext(ctx, nil)
	assert.Equal(t, "b-1", entry.Data["batch_id"])
}

func TestEnvironment_UnmarshalText(t *testing.T) {
	var e Environment

	require.NoError(t, e.UnmarshalText([]byte(" PROD ")))
	assert.Equal(t, Prod, e)
	assert.Equal(t, "https://etims.kra.go.ke", e.VerifyURL())

	require.NoError(t, e.UnmarshalText([]byte("sandbox")))
	assert.Equal(t, Sandbox, e)
	assert.Equal(t, "https://sandbox.deitax.deitiestech.com/api/v1/invoices", e.InvoicesEndpoint())

	assert.Error(t, e.UnmarshalText([]byte("staging")))
}
