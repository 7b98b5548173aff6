package main

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/ccxiaoji/ledgerio/internal/export"
	"github.com/ccxiaoji/ledgerio/internal/importer"
)

func newExportCmd(a *app) *cobra.Command {
	var (
		outDir   string
		withCSV  bool
		fromDate string
		toDate   string
	)

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export all data as per-module JSON documents",
		RunE: func(cmd *cobra.Command, args []string) error {
			rng, err := parseDateRange(fromDate, toDate)
			if err != nil {
				return err
			}
			if outDir == "" {
				outDir = a.cfg.Export.Dir
			}
			if err := os.MkdirAll(outDir, 0o755); err != nil {
				return err
			}

			exp := export.NewExporter(a.store, a.cfg.User.ID, a.log)
			files, err := exp.ExportAll(cmd.Context(), rng)
			if err != nil {
				return err
			}
			for name, data := range files {
				if err := os.WriteFile(filepath.Join(outDir, name), data, 0o644); err != nil {
					return err
				}
			}

			if withCSV || a.cfg.Export.IncludeCsv {
				doc, err := exp.LedgerDocument(cmd.Context(), rng)
				if err != nil {
					return err
				}
				ledgerCSV, err := os.Create(filepath.Join(outDir, "ledger.csv"))
				if err != nil {
					return err
				}
				defer ledgerCSV.Close()
				if err := export.WriteLedgerCSV(ledgerCSV, doc); err != nil {
					return err
				}
				txCSV, err := os.Create(filepath.Join(outDir, "transactions.csv"))
				if err != nil {
					return err
				}
				defer txCSV.Close()
				if err := export.WriteTransactionsCSV(txCSV, doc); err != nil {
					return err
				}
			}

			fmt.Printf("已导出 %d 个文件到 %s\n", len(files), outDir)
			return nil
		},
	}

	cmd.Flags().StringVarP(&outDir, "out", "o", "", "output directory")
	cmd.Flags().BoolVar(&withCSV, "csv", false, "also write CSV files")
	cmd.Flags().StringVar(&fromDate, "from", "", "only transactions on/after this date (YYYY-MM-DD)")
	cmd.Flags().StringVar(&toDate, "to", "", "only transactions on/before this date (YYYY-MM-DD)")
	return cmd
}

func parseDateRange(from, to string) (*importer.DateRange, error) {
	if from == "" && to == "" {
		return nil, nil
	}
	rng := &importer.DateRange{}
	if from != "" {
		t, err := time.Parse("2006-01-02", from)
		if err != nil {
			return nil, fmt.Errorf("invalid --from date: %w", err)
		}
		rng.Start = t
	}
	if to != "" {
		t, err := time.Parse("2006-01-02", to)
		if err != nil {
			return nil, fmt.Errorf("invalid --to date: %w", err)
		}
		rng.End = t.Add(24*time.Hour - time.Second)
	} else {
		rng.End = time.Now().UTC()
	}
	return rng, nil
}
