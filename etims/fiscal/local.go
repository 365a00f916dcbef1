package fiscal

import (
	"context"
	"crypto"
	"crypto/sha256"
	"encoding/base32"
	"strconv"
	"strings"
	"time"

	"github.com/alapierre/go-etims-receipts/etims"
	"github.com/alapierre/go-etims-receipts/etims/keys"
	"github.com/alapierre/go-etims-receipts/etims/model"
	"github.com/alapierre/go-etims-receipts/etims/qr"
	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

var b32 = base32.StdEncoding.WithPadding(base32.NoPadding)

type LocalOptions struct {
	Seed        int64
	TraderPIN   string
	SCUID       string
	Environment etims.Environment
	// Signer is optional. Only RSA keys are accepted.
	Signer crypto.Signer
}

// LocalFiscaliser issues sequential receipt numbers and takes the tax split from the export.
type LocalFiscaliser struct {
	counter *Counter
	pin     string
	scuID   string
	env     etims.Environment
	signer  crypto.Signer
}

func NewLocal(opts LocalOptions) (*LocalFiscaliser, error) {
	if _, err := qr.LocalVerificationLink(opts.Environment, opts.TraderPIN, "0", time.Time{}); err != nil {
		return nil, errors.Wrap(err, "local fiscaliser")
	}
	if opts.Signer != nil {
		if _, err := keys.SignDigest(opts.Signer, make([]byte, sha256.Size)); err != nil {
			return nil, errors.Wrap(err, "local signing key")
		}
	}
	return &LocalFiscaliser{
		counter: NewCounter(opts.Seed),
		pin:     strings.ToUpper(strings.TrimSpace(opts.TraderPIN)),
		scuID:   opts.SCUID,
		env:     opts.Environment,
		signer:  opts.Signer,
	}, nil
}

func (f *LocalFiscaliser) Mode() Mode {
	return ModeLocal
}

// Counter exposes the receipt number sequence.
func (f *LocalFiscaliser) Counter() *Counter {
	return f.counter
}

// Fiscalise never rejects a line; errors are limited to a cancelled context or an unusable
// sale date, both of which leave the counter untouched.
func (f *LocalFiscaliser) Fiscalise(ctx context.Context, line *model.RawLine) (*model.FiscalResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	issued, err := line.SaleTime()
	if err != nil {
		return nil, &etims.MalformedLineError{Index: line.Index, TransactionID: line.TransactionID, Field: "Receipt_date", Err: err}
	}

	receiptNo := strconv.FormatInt(f.counter.Next(), 10)

	vat := decimal.Zero
	if line.VATAmount.Valid {
		vat = line.VATAmount.Decimal
	}
	preVAT := line.TotalPrice
	if line.PreVATAmount.Valid {
		preVAT = line.PreVATAmount.Decimal
	}

	link, err := qr.LocalVerificationLink(f.env, f.pin, receiptNo, issued)
	if err != nil {
		return nil, errors.Wrap(err, "build verification link")
	}

	digest := sha256.Sum256([]byte(strings.Join([]string{
		f.pin, receiptNo, line.ReceiptDate, line.ReceiptTime, line.TotalPrice.StringFixed(2),
	}, "|")))

	signature := b32.EncodeToString(digest[20:])
	if f.signer != nil {
		sig, err := keys.SignDigest(f.signer, digest[:])
		if err != nil {
			return nil, err
		}
		signature = b32.EncodeToString(sig)
	}

	return &model.FiscalResult{
		ReceiptNumber:   receiptNo,
		VAT:             vat,
		SubTotal:        preVAT.Sub(vat),
		InternalData:    b32.EncodeToString(digest[:20]),
		Signature:       signature,
		VerificationURL: link,
		SCUID:           f.scuID,
	}, nil
}
