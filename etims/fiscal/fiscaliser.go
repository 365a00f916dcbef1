// Package fiscal turns extracted sale lines into fiscal results, either by calling the remote
// fiscalisation API or by issuing receipt numbers locally.
package fiscal

import (
	"context"
	"crypto"
	"net/http"

	"github.com/alapierre/go-etims-receipts/etims/config"
	"github.com/alapierre/go-etims-receipts/etims/itemcode"
	"github.com/alapierre/go-etims-receipts/etims/keys"
	"github.com/alapierre/go-etims-receipts/etims/model"
	"github.com/go-faster/errors"
	"github.com/sirupsen/logrus"
)

var logger = logrus.WithField("component", "etims.fiscal")

type Mode string

const (
	ModeLocal  Mode = config.ModeLocal
	ModeRemote Mode = config.ModeRemote
)

// Fiscaliser fiscalises a single line. One variant serves a whole batch.
type Fiscaliser interface {
	Fiscalise(ctx context.Context, line *model.RawLine) (*model.FiscalResult, error)
	Mode() Mode
}

// Deps are optional collaborators for New. Zero values are replaced with defaults.
type Deps struct {
	HTTPClient *http.Client
	Items      itemcode.Table
	Signer     crypto.Signer
}

// New builds the variant selected by cfg.Fiscal.Mode.
func New(cfg *config.Config, deps Deps) (Fiscaliser, error) {
	switch Mode(cfg.Fiscal.Mode) {
	case ModeLocal:
		signer := deps.Signer
		if signer == nil && cfg.Local.SigningKeyFile != "" {
			s, err := keys.LoadSignerFromFile(cfg.Local.SigningKeyFile, []byte(cfg.Local.SigningKeyPassword))
			if err != nil {
				return nil, errors.Wrap(err, "load local signing key")
			}
			signer = s
		}
		return NewLocal(LocalOptions{
			Seed:        cfg.Local.Seed,
			TraderPIN:   cfg.Local.TraderPIN,
			SCUID:       cfg.Local.SCUID,
			Environment: cfg.Fiscal.Environment,
			Signer:      signer,
		})

	case ModeRemote:
		items := deps.Items
		if items == nil {
			t, err := itemcode.Load(cfg.Fiscal.ItemCodesFile)
			if err != nil {
				return nil, err
			}
			items = t
		}
		httpClient := deps.HTTPClient
		if httpClient == nil {
			httpClient = &http.Client{Timeout: cfg.Fiscal.Timeout}
		}
		return NewRemote(RemoteOptions{
			Endpoint:      cfg.Fiscal.InvoicesEndpoint(),
			AuthToken:     cfg.Fiscal.AuthToken,
			HTTPClient:    httpClient,
			Items:         items,
			SuccessCodes:  cfg.Fiscal.SuccessCodes,
			InvoicePrefix: cfg.Fiscal.InvoicePrefix,
			Currency:      cfg.Fiscal.Currency,
			RateLimit:     cfg.Fiscal.RateLimit,
			RateBurst:     cfg.Fiscal.RateBurst,
		})
	}
	return nil, errors.Errorf("unknown fiscal mode %q", cfg.Fiscal.Mode)
}
