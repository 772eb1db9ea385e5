package service

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"

	"eating-management/backend/internal/dto"
)

// ── 导出模块业务错误 ──

var (
	ErrExportGenerateFail = errors.New("生成 Excel 文件失败")
)

// XLSXContentType Excel 下载的 Content-Type
const XLSXContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// ExportService 报表渲染接口
//
// 设计说明：
//   - 统计口径由 AggregatorService.ExportReport 产出，与文件格式无关
//   - 这里只负责把 ReportTable 渲染为 Excel (.xlsx)
//   - 导出以 bytes.Buffer 返回，由 Handler 层设置 HTTP 响应头后写入 Response
type ExportService interface {
	RenderReport(table *dto.ReportTable) (*bytes.Buffer, string, error)
}

type exportService struct {
	logger *zap.Logger
}

// NewExportService 创建 ExportService 实例
func NewExportService(logger *zap.Logger) ExportService {
	return &exportService{logger: logger}
}

// ═══════════════════════════════════════════════════════════
// RenderReport — 月度结算表渲染为 Excel
// ═══════════════════════════════════════════════════════════
//
// 输出格式：
//   - Sheet "2024-06"
//   - 第 1 行标题，第 2 行表头：序号 | 姓名 | 电话 | 邮箱 | 用餐次数 | 取消次数 | 应付金额
//   - 末行合计
//
// 返回值：buf（Excel 内容）, filename（建议文件名）, error

func (s *exportService) RenderReport(table *dto.ReportTable) (*bytes.Buffer, string, error) {
	f := excelize.NewFile()
	defer f.Close()

	sheetName := table.Period
	idx, err := f.NewSheet(sheetName)
	if err != nil {
		s.logger.Error("创建 Sheet 失败", zap.String("sheet", sheetName), zap.Error(err))
		return nil, "", ErrExportGenerateFail
	}
	f.SetActiveSheet(idx)
	// 删除默认 Sheet1
	f.DeleteSheet("Sheet1")

	headers := []string{"序号", "姓名", "电话", "邮箱", "用餐次数", "取消次数", "应付金额"}
	widths := []float64{6, 22, 14, 28, 10, 10, 16}
	for i, w := range widths {
		col := colName(i)
		f.SetColWidth(sheetName, col, col, w)
	}

	headerStyle, _ := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Size: 11},
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"#4472C4"}, Pattern: 1},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
	})
	moneyStyle, _ := f.NewStyle(&excelize.Style{NumFmt: 3}) // #,##0

	// 标题行
	f.SetCellValue(sheetName, "A1", fmt.Sprintf("%s 用餐结算表（单价 %d %s）", table.Period, table.UnitPrice, table.Currency))
	f.MergeCell(sheetName, "A1", cell(colName(len(headers)-1), 1))
	f.SetCellStyle(sheetName, "A1", "A1", headerStyle)

	// 表头
	for i, h := range headers {
		f.SetCellValue(sheetName, cell(colName(i), 2), h)
	}
	f.SetCellStyle(sheetName, "A2", cell(colName(len(headers)-1), 2), headerStyle)

	// 数据行
	row := 3
	for i, r := range table.Rows {
		f.SetCellValue(sheetName, cell("A", row), i+1)
		f.SetCellValue(sheetName, cell("B", row), r.Name)
		f.SetCellValue(sheetName, cell("C", row), r.Phone)
		f.SetCellValue(sheetName, cell("D", row), r.Email)
		f.SetCellValue(sheetName, cell("E", row), r.AttendedCount)
		f.SetCellValue(sheetName, cell("F", row), r.CancelledCount)
		f.SetCellValue(sheetName, cell("G", row), r.AmountDue)
		f.SetCellStyle(sheetName, cell("G", row), cell("G", row), moneyStyle)
		row++
	}

	// 合计行
	f.SetCellValue(sheetName, cell("B", row), "合计")
	f.SetCellValue(sheetName, cell("G", row), table.TotalAmount)
	f.SetCellStyle(sheetName, cell("G", row), cell("G", row), moneyStyle)

	buf := new(bytes.Buffer)
	if err := f.Write(buf); err != nil {
		s.logger.Error("写入 Excel 失败", zap.Error(err))
		return nil, "", ErrExportGenerateFail
	}

	filename := fmt.Sprintf("用餐结算表_%s.xlsx", table.Period)
	return buf, filename, nil
}

// ── 辅助函数 ──

func colName(idx int) string {
	name, _ := excelize.ColumnNumberToName(idx + 1)
	return name
}

func cell(col string, row int) string {
	return fmt.Sprintf("%s%d", col, row)
}
