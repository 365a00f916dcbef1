package etims

import (
	"context"
	"fmt"

	"github.com/go-faster/errors"
	"github.com/sirupsen/logrus"
)

var logger = logrus.WithField("component", "etims")

type batchIDKey struct{}

// ContextWithBatchID attaches the id of the running batch to ctx.
func ContextWithBatchID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, batchIDKey{}, id)
}

func BatchIDFromContext(ctx context.Context) (string, bool) {
	v, ok := ctx.Value(batchIDKey{}).(string)
	return v, ok
}

// LoggerFromContext returns the component logger enriched with the batch id, when present.
func LoggerFromContext(ctx context.Context, base *logrus.Entry) *logrus.Entry {
	if base == nil {
		base = logger
	}
	if id, ok := BatchIDFromContext(ctx); ok {
		return base.WithField("batch_id", id)
	}
	return base
}

var (
	// ErrDocumentUnreadable marks a source document that could not be read or parsed.
	ErrDocumentUnreadable = errors.New("source document unreadable")
	// ErrNoRecords marks a document without a root element or without any line records.
	ErrNoRecords = errors.New("source document has no line records")
	// ErrDuplicateTransaction marks a line whose transaction id was already seen in the batch.
	ErrDuplicateTransaction = errors.New("duplicate transaction id")
	// ErrBatchRunning is returned when a batch is triggered while another one is in progress.
	ErrBatchRunning = errors.New("batch already running")
)

// MalformedLineError is returned for a record that cannot be turned into a RawLine.
type MalformedLineError struct {
	Index         int
	TransactionID string
	Field         string
	Err           error
}

func (e *MalformedLineError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("malformed line %d (%s): %v", e.Index, e.TransactionID, e.Err)
	}
	return fmt.Sprintf("malformed line %d (%s): field %s: %v", e.Index, e.TransactionID, e.Field, e.Err)
}

func (e *MalformedLineError) Unwrap() error {
	return e.Err
}

// UnmappedProductError is returned by the remote fiscaliser when a product has no item code.
type UnmappedProductError struct {
	Product string
}

func (e *UnmappedProductError) Error() string {
	return fmt.Sprintf("no item code mapping found for product %q", e.Product)
}

// FiscalisationRejectedError is returned when the fiscalisation API answers with a non-success
// HTTP status or a business status other than success.
type FiscalisationRejectedError struct {
	StatusCode     int
	BusinessStatus string
	Message        string
	Body           []byte
	Err            error
}

func (e *FiscalisationRejectedError) Error() string {
	msg := e.Message
	if msg == "" {
		msg = "unknown API error"
	}
	if e.Err != nil {
		return fmt.Sprintf("fiscalisation rejected (http %d, status %q): %s: %v", e.StatusCode, e.BusinessStatus, msg, e.Err)
	}
	return fmt.Sprintf("fiscalisation rejected (http %d, status %q): %s", e.StatusCode, e.BusinessStatus, msg)
}

func (e *FiscalisationRejectedError) Unwrap() error {
	return e.Err
}

// QrGenerationError is returned when a verification payload cannot be encoded.
type QrGenerationError struct {
	PayloadLength int
	Err           error
}

func (e *QrGenerationError) Error() string {
	return fmt.Sprintf("qr generation failed for payload of %d bytes: %v", e.PayloadLength, e.Err)
}

func (e *QrGenerationError) Unwrap() error {
	return e.Err
}

// Outcome classifies how a single line ended in a batch run.
type Outcome string

const (
	OutcomeCommitted Outcome = "committed"
	OutcomeMalformed Outcome = "malformed"
	OutcomeUnmapped  Outcome = "unmapped_product"
	OutcomeRejected  Outcome = "rejected"
	OutcomeQrFailed  Outcome = "qr_failed"
	OutcomeDuplicate Outcome = "duplicate"
	OutcomeError     Outcome = "error"
)

// Classify maps a per-line error onto its Outcome.
func Classify(err error) Outcome {
	if err == nil {
		return OutcomeCommitted
	}

	var (
		malformed *MalformedLineError
		unmapped  *UnmappedProductError
		rejected  *FiscalisationRejectedError
		qrErr     *QrGenerationError
	)

	switch {
	case errors.As(err, &malformed):
		return OutcomeMalformed
	case errors.As(err, &unmapped):
		return OutcomeUnmapped
	case errors.As(err, &rejected):
		return OutcomeRejected
	case errors.As(err, &qrErr):
		return OutcomeQrFailed
	case errors.Is(err, ErrDuplicateTransaction):
		return OutcomeDuplicate
	default:
		return OutcomeError
	}
}

// IsDocumentLevel reports whether err aborts a whole batch.
func IsDocumentLevel(err error) bool {
	return errors.Is(err, ErrDocumentUnreadable) || errors.Is(err, ErrNoRecords)
}
