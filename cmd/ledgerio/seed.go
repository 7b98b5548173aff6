package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ccxiaoji/ledgerio/internal/testdata"
)

func newSeedCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "seed",
		Short: "Populate the database with sample data",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := testdata.Seed(cmd.Context(), a.store, a.cfg.User.ID); err != nil {
				return err
			}
			fmt.Println("示例数据已生成")
			return nil
		},
	}
}
