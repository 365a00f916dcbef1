package cmd

import (
	"context"

	"github.com/alapierre/go-etims-receipts/etims/batch"
	"github.com/alapierre/go-etims-receipts/etims/config"
	"github.com/alapierre/go-etims-receipts/etims/fiscal"
	"github.com/alapierre/go-etims-receipts/etims/metrics"
	"github.com/alapierre/go-etims-receipts/etims/source"
	"github.com/alapierre/go-etims-receipts/etims/store"
	"github.com/alapierre/go-etims-receipts/png"
	"github.com/go-faster/errors"
)

// pipeline is the wired batch processor plus the collaborators the commands read from.
type pipeline struct {
	store     *store.Store
	metrics   *metrics.Recorder
	processor *batch.Processor
	opener    source.Opener
}

func newPipeline(c *config.Config) (*pipeline, error) {
	f, err := fiscal.New(c, fiscal.Deps{})
	if err != nil {
		return nil, errors.Wrap(err, "create fiscaliser")
	}

	level, err := png.ParseLevel(c.QR.Level)
	if err != nil {
		return nil, err
	}

	p := &pipeline{
		store:   store.New(),
		metrics: metrics.New(),
		opener:  source.FileOpener{Path: c.Source.Path},
	}
	p.processor = batch.NewProcessor(f, png.NewGenerator(c.QR.Size, level), p.store, p.metrics)
	return p, nil
}

func (p *pipeline) run(ctx context.Context) (*batch.Result, error) {
	return p.processor.Run(ctx, p.opener)
}
