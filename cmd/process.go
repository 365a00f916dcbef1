package cmd

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/alapierre/go-etims-receipts/etims/batch"
	"github.com/alapierre/go-etims-receipts/etims/export"
	"github.com/go-faster/errors"
	"github.com/spf13/cobra"
)

var xlsxOut string

var processCmd = &cobra.Command{
	Use:   "process",
	Short: "Run the receipt batch once and print a summary",
	Long: `process fiscalises every line of the source document once, prints how many
receipts were committed and which lines were skipped, and optionally writes the
committed receipts to an XLSX file. A document that cannot be read or holds no
records makes the command fail.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		p, err := newPipeline(cfg)
		if err != nil {
			return err
		}

		res, err := p.run(cmd.Context())
		if err != nil {
			return errors.Wrapf(err, "process %s", cfg.Source.Path)
		}
		printSummary(cmd.OutOrStdout(), res)

		if xlsxOut != "" {
			if err := writeXLSX(xlsxOut, p); err != nil {
				return err
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Exported to %s\n", xlsxOut)
		}
		return nil
	},
}

func writeXLSX(path string, p *pipeline) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return errors.Wrap(err, "create xlsx file")
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}()
	return export.WriteXLSX(f, p.store.List())
}

func printSummary(w io.Writer, res *batch.Result) {
	_, _ = fmt.Fprintf(w, "Batch %s: %d lines, %d committed, %d failed (%s)\n",
		res.BatchID, res.Total, res.Committed, len(res.Failures), res.Finished.Sub(res.Started).Round(time.Millisecond))
	for _, f := range res.Failures {
		_, _ = fmt.Fprintf(w, "  line %d %s: %s: %v\n", f.Index, f.TransactionID, f.Outcome, f.Err)
	}
}

func init() {
	processCmd.Flags().StringVar(&xlsxOut, "xlsx", "", "write committed receipts to this XLSX file")
	rootCmd.AddCommand(processCmd)
}
