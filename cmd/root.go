// Package cmd holds the etims-receipts command line.
package cmd

import (
	"fmt"
	"os"

	"github.com/alapierre/go-etims-receipts/etims/config"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var logger = logrus.WithField("component", "etims.cmd")

var (
	cfgFile    string
	sourcePath string
	verbose    bool

	cfg *config.Config
)

var rootCmd = &cobra.Command{
	Use:   "etims-receipts",
	Short: "Fiscalise fuel pump sales and serve printable eTIMS receipts",
	Long: `etims-receipts reads a pump controller XML export, fiscalises every sale either
against the eTIMS invoice API or with a local receipt counter, and serves the
resulting receipts (with verification QR codes) for viewing, printing and PDF export.

Configuration is read from --config, ./etims.yaml or ETIMS_* environment variables.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		c, err := config.Load(cfgFile)
		if err != nil {
			return err
		}
		if sourcePath != "" {
			c.Source.Path = sourcePath
		}

		c.Log.ConfigureLogging()
		if verbose {
			logrus.SetLevel(logrus.DebugLevel)
		}

		cfg = c
		logger.WithFields(logrus.Fields{
			"mode":        cfg.Fiscal.Mode,
			"environment": cfg.Fiscal.Environment,
			"source":      cfg.Source.Path,
		}).Debug("Configuration loaded")
		return nil
	},
}

// Execute runs the root command and exits non-zero on error.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "config file (default ./etims.yaml when present)")
	rootCmd.PersistentFlags().StringVarP(&sourcePath, "source", "s", "", "pump export XML, overrides source.path")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "debug logging")
}
