package main

import (
	"fmt"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/ccxiaoji/ledgerio/internal/backup"
	"github.com/ccxiaoji/ledgerio/internal/importer"
)

func newBackupCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "backup",
		Short: "Create, verify and restore backup archives",
	}
	cmd.AddCommand(newBackupCreateCmd(a), newBackupVerifyCmd(a), newBackupRestoreCmd(a))
	return cmd
}

func newBackupCreateCmd(a *app) *cobra.Command {
	var (
		outPath  string
		withCSV  bool
		fromDate string
		toDate   string
	)

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a backup archive",
		RunE: func(cmd *cobra.Command, args []string) error {
			rng, err := parseDateRange(fromDate, toDate)
			if err != nil {
				return err
			}
			if outPath == "" {
				name := fmt.Sprintf("ledgerio-backup-%s.zip", time.Now().Format("20060102-150405"))
				outPath = filepath.Join(a.cfg.Export.Dir, name)
			}

			mgr := backup.NewManager(a.store, a.cfg.User.ID, appVersion, a.log)
			meta, err := mgr.CreateBackup(cmd.Context(), outPath, rng, withCSV || a.cfg.Export.IncludeCsv)
			if err != nil {
				return err
			}
			fmt.Printf("备份已创建: %s\n", outPath)
			printMetadata(meta)
			return nil
		},
	}

	cmd.Flags().StringVarP(&outPath, "out", "o", "", "archive path")
	cmd.Flags().BoolVar(&withCSV, "csv", false, "include a human-readable transaction table")
	cmd.Flags().StringVar(&fromDate, "from", "", "only transactions on/after this date (YYYY-MM-DD)")
	cmd.Flags().StringVar(&toDate, "to", "", "only transactions on/before this date (YYYY-MM-DD)")
	return cmd
}

func newBackupVerifyCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "verify <archive.zip>",
		Short: "Check an archive's integrity without restoring it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			mgr := backup.NewManager(a.store, a.cfg.User.ID, appVersion, a.log)
			meta, err := mgr.Verify(args[0])
			if err != nil {
				return err
			}
			fmt.Println("校验通过")
			printMetadata(meta)
			return nil
		},
	}
}

func newBackupRestoreCmd(a *app) *cobra.Command {
	var strategy string

	cmd := &cobra.Command{
		Use:   "restore <archive.zip>",
		Short: "Restore an archive through the import pipeline",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := buildImportConfig(a, strategy, 0, true, true, nil)
			if err != nil {
				return err
			}
			mgr := backup.NewManager(a.store, a.cfg.User.ID, appVersion, a.log)
			res, err := mgr.RestoreBackup(cmd.Context(), args[0], cfg)
			if err != nil {
				return err
			}
			printResult(res)
			if !res.Success {
				return fmt.Errorf("恢复未完成")
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&strategy, "strategy", string(importer.StrategySkip), "conflict strategy: SKIP, RENAME, MERGE, OVERWRITE")
	return cmd
}

func printMetadata(meta *backup.Metadata) {
	fmt.Printf("  版本: %s  导出时间: %s\n", meta.FileVersion, meta.ExportTime.Local().Format("2006-01-02 15:04:05"))
	fmt.Printf("  设备: %s (应用 %s)\n", meta.DeviceInfo, meta.AppVersion)
	s := meta.Statistics
	fmt.Printf("  交易 %d, 待办 %d, 习惯记录 %d, 排班 %d, 计划 %d\n",
		s.TransactionCount, s.TodoCount, s.HabitRecordCount, s.ScheduleCount, s.PlanCount)
	if meta.DataRange != nil {
		fmt.Printf("  数据范围: %s ~ %s\n",
			meta.DataRange.Start.Format("2006-01-02"), meta.DataRange.End.Format("2006-01-02"))
	}
	fmt.Printf("  校验和: %s:%s\n", meta.Checksum.Algorithm, meta.Checksum.Value)
}
