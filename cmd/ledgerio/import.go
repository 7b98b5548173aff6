package main

import (
	"fmt"
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/ccxiaoji/ledgerio/internal/importer"
	"github.com/ccxiaoji/ledgerio/internal/progress"
)

func newImportCmd(a *app) *cobra.Command {
	var (
		strategy     string
		batchSize    int
		allowPartial bool
		skipInvalid  bool
		dryRun       bool
		only         []string
	)

	cmd := &cobra.Command{
		Use:   "import <file.csv>",
		Short: "Import a ledger CSV file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := buildImportConfig(a, strategy, batchSize, allowPartial, skipInvalid, only)
			if err != nil {
				return err
			}

			orch := importer.NewOrchestrator(a.store, a.cfg.User.ID, a.log)
			if dryRun {
				p, err := orch.Preview(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				printPreview(p)
				return nil
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
			defer stop()

			tracker := progress.NewTracker()
			orch.WithTracker(tracker)
			done := make(chan struct{})
			go func() {
				defer close(done)
				for pct := range tracker.Subscribe() {
					fmt.Printf("\r导入中... %d%%", pct)
				}
				fmt.Println()
			}()

			res, err := orch.ImportFile(ctx, args[0], cfg)
			<-done
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

	cmd.Flags().StringVar(&strategy, "strategy", "", "conflict strategy: SKIP, RENAME, MERGE, OVERWRITE")
	cmd.Flags().IntVar(&batchSize, "batch-size", 0, "rows per commit")
	cmd.Flags().BoolVar(&allowPartial, "allow-partial", true, "keep going after failed batches")
	cmd.Flags().BoolVar(&skipInvalid, "skip-invalid", true, "skip rows that fail validation")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "preview without writing")
	cmd.Flags().StringSliceVar(&only, "only", nil, "limit to entity types (account,category,transaction,budget,savings)")
	return cmd
}

func newPreviewCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "preview <file.csv>",
		Short: "Show what an import would touch, without writing",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			orch := importer.NewOrchestrator(a.store, a.cfg.User.ID, a.log)
			p, err := orch.Preview(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			printPreview(p)
			return nil
		},
	}
}

func buildImportConfig(a *app, strategy string, batchSize int, allowPartial, skipInvalid bool, only []string) (importer.Config, error) {
	cfg := importer.DefaultConfig()
	cfg.AllowPartialImport = allowPartial
	cfg.SkipInvalidRows = skipInvalid

	if strategy == "" {
		strategy = a.cfg.Import.Strategy
	}
	s, err := importer.ParseStrategy(strategy)
	if err != nil {
		return importer.Config{}, err
	}
	cfg.Strategy = s

	if batchSize > 0 {
		cfg.BatchSize = batchSize
	} else if a.cfg.Import.BatchSize > 0 {
		cfg.BatchSize = a.cfg.Import.BatchSize
	}

	if len(only) > 0 {
		cfg.IncludeAccounts = false
		cfg.IncludeCategories = false
		cfg.IncludeTransactions = false
		cfg.IncludeBudgets = false
		cfg.IncludeSavings = false
		for _, t := range only {
			switch strings.ToLower(strings.TrimSpace(t)) {
			case "account", "accounts":
				cfg.IncludeAccounts = true
			case "category", "categories":
				cfg.IncludeCategories = true
			case "transaction", "transactions":
				cfg.IncludeTransactions = true
			case "budget", "budgets":
				cfg.IncludeBudgets = true
			case "savings":
				cfg.IncludeSavings = true
			default:
				return importer.Config{}, fmt.Errorf("unknown entity type %q", t)
			}
		}
	}
	return cfg, nil
}

func printPreview(p *importer.Preview) {
	fmt.Printf("文件: %s (%d 字节, 版本 %s)\n", p.FileName, p.FileSize, p.Version)
	fmt.Printf("共 %d 行:\n", p.TotalRows)
	for _, t := range []importer.EntityType{
		importer.EntityAccount, importer.EntityCategory, importer.EntityTransaction,
		importer.EntityBudget, importer.EntitySavings,
	} {
		if n, ok := p.TypeCounts[t]; ok {
			fmt.Printf("  %-12s %d\n", t, n)
		}
	}
	if p.DateRange != nil {
		fmt.Printf("交易时间范围: %s ~ %s\n",
			p.DateRange.Start.Format("2006-01-02"), p.DateRange.End.Format("2006-01-02"))
	}
	for _, w := range p.Warnings {
		fmt.Printf("警告: %s\n", w)
	}
	for _, e := range p.Errors {
		fmt.Printf("错误: %s\n", e.Error())
	}
}

func printResult(res *importer.Result) {
	status := "成功"
	if res.Cancelled {
		status = "已取消"
	} else if !res.Success {
		status = "失败"
	}
	fmt.Printf("导入%s: 共 %d 行, 成功 %d, 跳过 %d, 失败 %d (耗时 %s)\n",
		status, res.TotalRows, res.SuccessCount, res.SkippedCount, res.FailedCount,
		res.Duration.Round(time.Millisecond))
	s := res.Summary
	if s.AccountsImported+s.CategoriesImported+s.TransactionsImported+s.BudgetsImported+s.SavingsImported > 0 {
		fmt.Printf("  账户 %d, 分类 %d, 交易 %d, 预算 %d, 储蓄目标 %d\n",
			s.AccountsImported, s.CategoriesImported, s.TransactionsImported,
			s.BudgetsImported, s.SavingsImported)
	}
	for _, e := range res.Errors {
		fmt.Printf("  %s\n", e.Error())
	}
}
