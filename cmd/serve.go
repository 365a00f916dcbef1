package cmd

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/alapierre/go-etims-receipts/etims"
	"github.com/alapierre/go-etims-receipts/etims/pdf"
	"github.com/alapierre/go-etims-receipts/etims/web"
	"github.com/gin-gonic/gin"
	"github.com/go-faster/errors"
	"github.com/spf13/cobra"
)

const shutdownTimeout = 10 * time.Second

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Process the source document and serve the receipts over HTTP",
	Long: `serve runs the batch once at start-up and then serves the committed receipts.
Send SIGHUP to re-run the batch against the current source document; a failed
run keeps the previously committed receipts available.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		return serve(ctx)
	},
}

func serve(ctx context.Context) error {
	p, err := newPipeline(cfg)
	if err != nil {
		return err
	}

	if _, err := p.run(ctx); err != nil {
		logger.WithError(err).Error("Initial batch failed, serving an empty receipt list")
	}

	renderer := pdf.NewChromedpRenderer(pdf.Config{RemoteURL: cfg.PDF.RemoteURL, Timeout: cfg.PDF.Timeout})
	defer func() { _ = renderer.Close() }()

	if cfg.App.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	srv, err := web.NewServer(web.Options{
		Store:    p.store,
		Status:   p.processor,
		Renderer: renderer,
		Metrics:  p.metrics,
		Trader:   web.Trader{Name: cfg.Trader.Name, PIN: cfg.Local.TraderPIN},
	})
	if err != nil {
		return err
	}

	httpServer := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.App.Port),
		Handler:           srv.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	hup := make(chan os.Signal, 1)
	signal.Notify(hup, syscall.SIGHUP)
	defer signal.Stop(hup)
	go rerunOnHangup(ctx, p, hup)

	errCh := make(chan error, 1)
	go func() {
		logger.Infof("Listening on %s", httpServer.Addr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return errors.Wrap(err, "http server")
	case <-ctx.Done():
	}

	logger.Info("Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return httpServer.Shutdown(shutdownCtx)
}

// rerunOnHangup re-runs the batch for every value received on hup until ctx is done.
func rerunOnHangup(ctx context.Context, p *pipeline, hup <-chan os.Signal) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-hup:
			logger.Info("SIGHUP received, re-running batch")
			if _, err := p.run(ctx); err != nil {
				if errors.Is(err, etims.ErrBatchRunning) {
					logger.Warn("Batch already running, ignoring SIGHUP")
					continue
				}
				logger.WithError(err).Error("Batch re-run failed, keeping previous receipts")
			}
		}
	}
}

func init() {
	rootCmd.AddCommand(serveCmd)
}
