package cli

import (
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
)

// NewSlotsCommand 打印未来若干天的餐次
func NewSlotsCommand(rootOpts *RootOptions) *cobra.Command {
	var days int
	var from string

	cmd := &cobra.Command{
		Use:   "slots",
		Short: "列出餐次及截止时间（组织时区）",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if days < 1 || days > 31 {
				return fmt.Errorf("--days 必须在 1-31 之间")
			}
			cfg, logger, err := rootOpts.loadConfig()
			if err != nil {
				return err
			}
			defer logger.Sync()
			cal, err := calendarFromConfig(cfg)
			if err != nil {
				return err
			}

			start := time.Now()
			if from != "" {
				if start, err = cal.ParseDate(from); err != nil {
					return fmt.Errorf("--from 格式应为 YYYY-MM-DD: %w", err)
				}
			}

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\t餐次\t开餐\t截止")
			for _, s := range cal.Generate(start, days) {
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n",
					s.ID(), s.Meal.Label(),
					s.StartsAt.Format("2006-01-02 15:04"),
					s.CutoffAt.Format("2006-01-02 15:04"),
				)
			}
			return tw.Flush()
		},
	}

	cmd.Flags().IntVar(&days, "days", 7, "天数（1-31）")
	cmd.Flags().StringVar(&from, "from", "", "起始日期 YYYY-MM-DD（默认今天）")
	return cmd
}
