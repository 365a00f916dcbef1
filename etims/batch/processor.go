// Package batch runs the receipt pipeline over a whole source document and commits the result
// to the store in one step.
package batch

import (
	"context"
	"io"
	"sync"
	"sync/atomic"
	"time"

	"github.com/alapierre/go-etims-receipts/etims"
	"github.com/alapierre/go-etims-receipts/etims/fiscal"
	"github.com/alapierre/go-etims-receipts/etims/metrics"
	"github.com/alapierre/go-etims-receipts/etims/model"
	"github.com/alapierre/go-etims-receipts/etims/qr"
	"github.com/alapierre/go-etims-receipts/etims/receipt"
	"github.com/alapierre/go-etims-receipts/etims/source"
	"github.com/alapierre/go-etims-receipts/etims/store"
	"github.com/go-faster/errors"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

var logger = logrus.WithField("component", "etims.batch")

// QrEncoder renders a verification payload into an inline image.
type QrEncoder interface {
	DataURI(payload string) (string, error)
}

// LineFailure describes a line that was excluded from the committed set.
type LineFailure struct {
	Index         int
	TransactionID string
	Outcome       etims.Outcome
	Err           error
}

type Result struct {
	BatchID   string
	Started   time.Time
	Finished  time.Time
	Total     int
	Committed int
	Failures  []LineFailure
	// Err is set when the whole run failed.
	Err error
}

// Processor runs one batch at a time. Lines are processed sequentially in document order.
type Processor struct {
	fiscaliser fiscal.Fiscaliser
	qr         QrEncoder
	store      *store.Store
	metrics    *metrics.Recorder

	mu    sync.Mutex
	state atomic.Int32
	last  atomic.Pointer[Result]
}

// NewProcessor wires the pipeline. m may be nil.
func NewProcessor(f fiscal.Fiscaliser, q QrEncoder, st *store.Store, m *metrics.Recorder) *Processor {
	return &Processor{fiscaliser: f, qr: q, store: st, metrics: m}
}

func (p *Processor) State() State {
	return State(p.state.Load())
}

// LastResult returns the result of the most recent finished run, or nil.
func (p *Processor) LastResult() *Result {
	return p.last.Load()
}

// Run processes the document produced by opener. A document-level failure (unreadable,
// no records, cancelled context) leaves the store untouched and returns an error; per-line
// failures are reported in Result.Failures.
func (p *Processor) Run(ctx context.Context, opener source.Opener) (*Result, error) {
	if !p.mu.TryLock() {
		return nil, etims.ErrBatchRunning
	}
	defer p.mu.Unlock()

	res := &Result{BatchID: uuid.NewString(), Started: time.Now()}
	ctx = etims.ContextWithBatchID(ctx, res.BatchID)
	log := etims.LoggerFromContext(ctx, logger)

	log.WithField("mode", p.fiscaliser.Mode()).Info("Starting batch")

	p.setState(Loading)
	src, err := opener.Open()
	if err != nil {
		if errors.Is(err, etims.ErrNoRecords) {
			p.setState(Extracting)
		}
		return p.fail(log, res, err)
	}

	p.setState(Extracting)
	if counted, ok := src.(interface{ Len() int }); ok && counted.Len() == 0 {
		return p.fail(log, res, etims.ErrNoRecords)
	}

	p.setState(Processing)
	receipts, err := p.process(ctx, log, src, res)
	if err != nil {
		return p.fail(log, res, err)
	}

	p.setState(Committing)
	res.Committed = p.store.Replace(receipts)
	res.Finished = time.Now()

	p.metrics.StoreSize(res.Committed)
	p.metrics.BatchRun(metrics.ResultSuccess)
	p.last.Store(res)
	p.setState(Idle)

	log.WithFields(logrus.Fields{
		"total":     res.Total,
		"committed": res.Committed,
		"failed":    len(res.Failures),
		"took":      res.Finished.Sub(res.Started),
	}).Info("Batch committed")

	return res, nil
}

func (p *Processor) process(ctx context.Context, log *logrus.Entry, src source.LineSource, res *Result) ([]model.Receipt, error) {
	var receipts []model.Receipt
	seen := map[string]struct{}{}

	for {
		if err := ctx.Err(); err != nil {
			return nil, errors.Wrap(err, "batch cancelled")
		}

		line, err := src.Next()
		if errors.Is(err, io.EOF) {
			return receipts, nil
		}
		res.Total++

		if err != nil {
			if etims.IsDocumentLevel(err) {
				return nil, err
			}
			p.lineFailed(log, res, res.Total, "", err)
			continue
		}

		r, err := p.processLine(ctx, line, seen)
		if err != nil {
			p.lineFailed(log, res, line.Index, line.TransactionID, err)
			continue
		}

		receipts = append(receipts, r)
		p.metrics.Line(string(etims.OutcomeCommitted))
		log.WithFields(logrus.Fields{
			"line":           line.Index,
			"transaction_id": line.TransactionID,
			"receipt_number": r.ReceiptNumber,
		}).Debug("Line processed")
	}
}

// processLine runs duplicate check, fiscalisation, QR rendering and assembly for one line.
// The first occurrence of an id claims it, whatever its outcome.
func (p *Processor) processLine(ctx context.Context, line *model.RawLine, seen map[string]struct{}) (model.Receipt, error) {
	if _, dup := seen[line.TransactionID]; dup {
		return model.Receipt{}, errors.Wrapf(etims.ErrDuplicateTransaction, "%s", line.TransactionID)
	}
	seen[line.TransactionID] = struct{}{}

	start := time.Now()
	fr, err := p.fiscaliser.Fiscalise(ctx, line)
	p.metrics.FiscalRequest(string(p.fiscaliser.Mode()), time.Since(start))
	if err != nil {
		return model.Receipt{}, err
	}

	img, err := p.qr.DataURI(qr.Payload(fr))
	if err != nil {
		return model.Receipt{}, err
	}

	return receipt.Assemble(line, fr, img), nil
}

func (p *Processor) lineFailed(log *logrus.Entry, res *Result, index int, id string, err error) {
	var malformed *etims.MalformedLineError
	if errors.As(err, &malformed) {
		index, id = malformed.Index, malformed.TransactionID
	}

	outcome := etims.Classify(err)
	res.Failures = append(res.Failures, LineFailure{Index: index, TransactionID: id, Outcome: outcome, Err: err})
	p.metrics.Line(string(outcome))

	log.WithFields(logrus.Fields{
		"line":           index,
		"transaction_id": id,
		"outcome":        outcome,
	}).WithError(err).Warn("Line skipped")
}

func (p *Processor) fail(log *logrus.Entry, res *Result, err error) (*Result, error) {
	log.WithField("state", p.State()).WithError(err).Error("Batch failed, store left unchanged")

	res.Finished = time.Now()
	res.Err = err
	p.metrics.BatchRun(metrics.ResultFailed)
	p.last.Store(res)
	p.setState(Failed)
	return res, err
}

func (p *Processor) setState(s State) {
	p.state.Store(int32(s))
}
