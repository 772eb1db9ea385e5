package cli

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"eating-management/backend/config"
	"eating-management/backend/internal/mealslot"
	"eating-management/backend/internal/service"
)

type reportExportOptions struct {
	Year   int
	Month  int
	UserID string
	Out    string
}

// NewReportCommand 报表
func NewReportCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "report",
		Short: "月度报表",
	}
	cmd.AddCommand(newReportExportCommand(rootOpts))
	return cmd
}

func newReportExportCommand(rootOpts *RootOptions) *cobra.Command {
	now := time.Now()
	opts := &reportExportOptions{Year: now.Year(), Month: int(now.Month())}

	cmd := &cobra.Command{
		Use:   "export",
		Short: "导出月度结算表 (.xlsx)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			e, err := rootOpts.open(false)
			if err != nil {
				return err
			}
			defer e.close()

			agg := service.NewAggregatorService(e.repo(), e.cal, &e.cfg.Report, e.logger)
			table, err := agg.ExportReport(cmd.Context(), opts.Year, opts.Month, opts.UserID)
			if err != nil {
				return fmt.Errorf("统计失败: %w", err)
			}
			buf, filename, err := service.NewExportService(e.logger).RenderReport(table)
			if err != nil {
				return err
			}

			out := opts.Out
			if out == "" {
				out = filename
			}
			if err := os.WriteFile(out, buf.Bytes(), 0o644); err != nil {
				return fmt.Errorf("写入文件失败: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "已导出 %s（%d 人，合计 %d %s）\n", out, len(table.Rows), table.TotalAmount, table.Currency)
			return nil
		},
	}

	cmd.Flags().IntVar(&opts.Year, "year", opts.Year, "年份")
	cmd.Flags().IntVar(&opts.Month, "month", opts.Month, "月份 1-12")
	cmd.Flags().StringVar(&opts.UserID, "user-id", "", "只导出该用户")
	cmd.Flags().StringVarP(&opts.Out, "out", "o", "", "输出文件（默认 用餐结算表_YYYY-MM.xlsx）")
	return cmd
}

func calendarFromConfig(cfg *config.Config) (*mealslot.Calendar, error) {
	cal, err := mealslot.NewCalendarFromConfig(&cfg.Meal)
	if err != nil {
		return nil, fmt.Errorf("用餐日历配置无效: %w", err)
	}
	return cal, nil
}
