package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-pdf/fpdf"
	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"

	"github.com/reinieltalplacido/classalign/internal/model"
	"github.com/reinieltalplacido/classalign/internal/repository"
	"github.com/reinieltalplacido/classalign/internal/timegrid"
)

// ── 导出模块业务错误 ──

var (
	ErrExportNoClasses    = errors.New("课表为空，无可导出内容")
	ErrExportGenerateFail = errors.New("生成导出文件失败")
)

// ExportService 导出业务接口
// 导出以 bytes.Buffer 返回，由 Handler 层设置 HTTP 响应头后写入 Response
type ExportService interface {
	ExportExcel(ctx context.Context, userID string) (*bytes.Buffer, string, error)
	ExportPDF(ctx context.Context, userID string) (*bytes.Buffer, string, error)
	ExportICS(ctx context.Context, userID string) (*bytes.Buffer, string, error)
}

type exportService struct {
	repo   *repository.Repository
	loc    *time.Location
	now    func() time.Time
	logger *zap.Logger
}

// NewExportService 创建 ExportService 实例
func NewExportService(repo *repository.Repository, loc *time.Location, logger *zap.Logger) ExportService {
	return &exportService{repo: repo, loc: loc, now: time.Now, logger: logger}
}

func (s *exportService) loadClasses(ctx context.Context, userID string) ([]model.Class, error) {
	classes, err := s.repo.Class.ListByUser(ctx, userID)
	if err != nil {
		s.logger.Error("查询课程列表失败", zap.String("user_id", userID), zap.Error(err))
		return nil, err
	}
	if len(classes) == 0 {
		return nil, ErrExportNoClasses
	}
	return classes, nil
}

func (s *exportService) filename(ext string) string {
	return fmt.Sprintf("classalign_%s.%s", s.now().In(s.loc).Format("20060102"), ext)
}

// ═══════════════════════════════════════════════════════════
// ExportExcel 周视图 + 课程明细两个 Sheet
// ═══════════════════════════════════════════════════════════

func (s *exportService) ExportExcel(ctx context.Context, userID string) (*bytes.Buffer, string, error) {
	classes, err := s.loadClasses(ctx, userID)
	if err != nil {
		return nil, "", err
	}
	grid := timegrid.Build(classes)

	f := excelize.NewFile()
	defer f.Close()

	const gridSheet = "Weekly"
	const listSheet = "Classes"
	idx, _ := f.NewSheet(gridSheet)
	f.SetActiveSheet(idx)
	f.DeleteSheet("Sheet1")
	f.NewSheet(listSheet)

	headerStyle, _ := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Size: 11, Color: "#FFFFFF"},
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"#4472C4"}, Pattern: 1},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
	})
	cellStyle, _ := f.NewStyle(&excelize.Style{
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center", WrapText: true},
		Border: []excelize.Border{
			{Type: "left", Color: "#D9D9D9", Style: 1},
			{Type: "right", Color: "#D9D9D9", Style: 1},
			{Type: "top", Color: "#D9D9D9", Style: 1},
			{Type: "bottom", Color: "#D9D9D9", Style: 1},
		},
	})

	// 周视图：列为 时间 + 周一至周五，行为网格行
	f.SetColWidth(gridSheet, "A", "A", 12)
	f.SetColWidth(gridSheet, "B", colName(len(timegrid.Weekdays)), 22)
	f.SetCellValue(gridSheet, "A1", "Time")
	for d, day := range timegrid.Weekdays {
		f.SetCellValue(gridSheet, cell(colName(d+1), 1), day)
	}
	f.SetCellStyle(gridSheet, "A1", cell(colName(len(timegrid.Weekdays)), 1), headerStyle)

	rows := grid.Rows()
	for r, row := range grid.Cells() {
		excelRow := r + 2
		f.SetCellValue(gridSheet, cell("A", excelRow), rows[r])
		for d, c := range row {
			if c != nil {
				f.SetCellValue(gridSheet, cell(colName(d+1), excelRow), cellText(c, "\n"))
			}
		}
		f.SetRowHeight(gridSheet, excelRow, 32)
	}
	if len(rows) > 0 {
		f.SetCellStyle(gridSheet, "A2", cell(colName(len(timegrid.Weekdays)), len(rows)+1), cellStyle)
	}

	// 明细：全部课程，包括未出现在周视图中的
	headers := []string{"Subject", "Day", "Time", "Room", "Professor", "On grid"}
	for i, h := range headers {
		f.SetCellValue(listSheet, cell(colName(i), 1), h)
	}
	f.SetCellStyle(listSheet, "A1", cell(colName(len(headers)-1), 1), headerStyle)
	f.SetColWidth(listSheet, "A", "A", 28)
	f.SetColWidth(listSheet, "B", "E", 16)

	hidden := hiddenIndex(grid)
	for i, c := range classes {
		row := i + 2
		onGrid := "yes"
		if reason, ok := hidden[i]; ok {
			onGrid = string(reason)
		}
		values := []string{c.Subject, c.Day, c.Time, c.Room, c.Professor, onGrid}
		for j, v := range values {
			f.SetCellValue(listSheet, cell(colName(j), row), v)
		}
	}

	buf := new(bytes.Buffer)
	if err := f.Write(buf); err != nil {
		s.logger.Error("写入 Excel 失败", zap.Error(err))
		return nil, "", ErrExportGenerateFail
	}
	return buf, s.filename("xlsx"), nil
}

// ═══════════════════════════════════════════════════════════
// ExportPDF A4 横向周视图
// ═══════════════════════════════════════════════════════════

func (s *exportService) ExportPDF(ctx context.Context, userID string) (*bytes.Buffer, string, error) {
	classes, err := s.loadClasses(ctx, userID)
	if err != nil {
		return nil, "", err
	}
	grid := timegrid.Build(classes)

	pdf := fpdf.New("L", "mm", "A4", "")
	pdf.SetTitle("ClassAlign Weekly Schedule", true)
	pdf.SetMargins(10, 10, 10)
	pdf.SetAutoPageBreak(true, 10)
	pdf.AddPage()
	tr := pdf.UnicodeTranslatorFromDescriptor("")

	pageW, _ := pdf.GetPageSize()
	const timeColW = 24.0
	dayColW := (pageW - 20 - timeColW) / float64(len(timegrid.Weekdays))
	const rowH = 12.0

	pdf.SetFont("Helvetica", "B", 16)
	pdf.CellFormat(0, 10, "Weekly Schedule", "", 1, "L", false, 0, "")
	pdf.SetFont("Helvetica", "", 9)
	pdf.CellFormat(0, 6, "Generated "+s.now().In(s.loc).Format("2006-01-02 15:04 MST"), "", 1, "L", false, 0, "")
	pdf.Ln(2)

	// 表头
	pdf.SetFont("Helvetica", "B", 10)
	pdf.SetFillColor(68, 114, 196)
	pdf.SetTextColor(255, 255, 255)
	pdf.CellFormat(timeColW, 8, "Time", "1", 0, "C", true, 0, "")
	for _, day := range timegrid.Weekdays {
		pdf.CellFormat(dayColW, 8, day, "1", 0, "C", true, 0, "")
	}
	pdf.Ln(-1)

	// 网格
	pdf.SetTextColor(0, 0, 0)
	pdf.SetFillColor(232, 240, 254)
	rows := grid.Rows()
	for r, row := range grid.Cells() {
		pdf.SetFont("Helvetica", "B", 9)
		pdf.CellFormat(timeColW, rowH, rows[r], "1", 0, "C", false, 0, "")
		pdf.SetFont("Helvetica", "", 8)
		for _, c := range row {
			text, fill := "", false
			if c != nil {
				text, fill = fitText(pdf, tr, cellText(c, " / "), dayColW-2), true
			}
			pdf.CellFormat(dayColW, rowH, text, "1", 0, "C", fill, 0, "")
		}
		pdf.Ln(-1)
	}

	// 未出现在周视图中的课程
	if hidden := grid.Hidden(); len(hidden) > 0 {
		pdf.Ln(4)
		pdf.SetFont("Helvetica", "B", 10)
		pdf.CellFormat(0, 6, "Not shown on the grid", "", 1, "L", false, 0, "")
		pdf.SetFont("Helvetica", "", 9)
		for _, h := range hidden {
			line := fmt.Sprintf("%s  (%s, %s) - %s", h.Item.Subject, h.Item.Day, h.Item.Time, h.Reason)
			pdf.CellFormat(0, 5, tr(line), "", 1, "L", false, 0, "")
		}
	}

	buf := new(bytes.Buffer)
	if err := pdf.Output(buf); err != nil {
		s.logger.Error("生成 PDF 失败", zap.Error(err))
		return nil, "", ErrExportGenerateFail
	}
	return buf, s.filename("pdf"), nil
}

// ═══════════════════════════════════════════════════════════
// ExportICS 每门课程一个按周重复的事件
// ═══════════════════════════════════════════════════════════

func (s *exportService) ExportICS(ctx context.Context, userID string) (*bytes.Buffer, string, error) {
	classes, err := s.loadClasses(ctx, userID)
	if err != nil {
		return nil, "", err
	}

	cal, skipped := BuildICS(classes, s.now(), s.loc)
	if skipped > 0 {
		s.logger.Info("部分课程时间格式不规范，未写入日历",
			zap.String("user_id", userID),
			zap.Int("skipped", skipped),
		)
	}

	buf := bytes.NewBufferString(cal.Serialize())
	return buf, s.filename("ics"), nil
}

// ── 辅助函数 ──

func colName(idx int) string {
	name, _ := excelize.ColumnNumberToName(idx + 1)
	return name
}

func cell(col string, row int) string {
	return fmt.Sprintf("%s%d", col, row)
}

// cellText 单元格内容：课程名，附带教室
func cellText(c *model.Class, sep string) string {
	if c.Room == "" {
		return c.Subject
	}
	return c.Subject + sep + c.Room
}

// fitText 按列宽截断 UTF-8 文本，返回经 tr 转换后的字体编码文本。
// 截断必须在转换前按 rune 进行，转换后的单字节编码无法再按 rune 切分。
func fitText(pdf *fpdf.Fpdf, tr func(string) string, text string, width float64) string {
	if pdf.GetStringWidth(tr(text)) <= width {
		return tr(text)
	}
	r := []rune(text)
	for len(r) > 0 && pdf.GetStringWidth(tr(string(r)+"...")) > width {
		r = r[:len(r)-1]
	}
	return tr(strings.TrimSpace(string(r)) + "...")
}

func hiddenIndex(grid *timegrid.Grid[model.Class]) map[int]timegrid.HiddenReason {
	out := make(map[int]timegrid.HiddenReason, len(grid.Hidden()))
	for _, h := range grid.Hidden() {
		out[h.Index] = h.Reason
	}
	return out
}
