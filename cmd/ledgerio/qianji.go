package main

import (
	"fmt"
	"os"
	"os/signal"

	"github.com/spf13/cobra"

	"github.com/ccxiaoji/ledgerio/internal/importer/qianji"
)

func newQianjiCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "qianji <file.csv>",
		Short: "Import a Qianji bill export",
		Long: `Import a bill CSV exported from the Qianji app. Accounts and categories
referenced by the bills are created automatically; records carrying a Qianji
id are skipped when imported a second time.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
			defer stop()

			imp := qianji.NewImporter(a.store, a.cfg.User.ID, a.log)
			res, err := imp.ImportFile(ctx, args[0])
			if err != nil {
				return err
			}
			printResult(res)
			if !res.Success {
				return fmt.Errorf("导入未完成")
			}
			return nil
		},
	}
}
