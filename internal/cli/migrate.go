package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

// NewMigrateCommand 执行数据库迁移
func NewMigrateCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "执行数据库迁移（postgres 用 SQL 迁移，sqlite 用 AutoMigrate）",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			e, err := rootOpts.open(true)
			if err != nil {
				return err
			}
			defer e.close()
			fmt.Fprintf(cmd.OutOrStdout(), "迁移完成 (%s)\n", e.cfg.Database.Driver)
			return nil
		},
	}
}
