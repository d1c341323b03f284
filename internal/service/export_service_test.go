package service

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
	"time"
	_ "time/tzdata"

	"github.com/go-pdf/fpdf"
	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"

	"github.com/reinieltalplacido/classalign/internal/model"
)

var fixedNow = time.Date(2026, 1, 7, 10, 0, 0, 0, time.UTC) // 周三

func setupTestExportService() (*exportService, *mockClassRepo) {
	repo, _, classes := newTestRepo()
	svc := NewExportService(repo, time.UTC, zap.NewNop()).(*exportService)
	svc.now = func() time.Time { return fixedNow }
	return svc, classes
}

func seedExportClasses(repo *mockClassRepo) {
	repo.seed("u1",
		[3]string{"Math", "Monday", "09:00 - 10:30"},
		[3]string{"History", "Wednesday", "13:00 - 14:00"},
		[3]string{"Art", "Friday", "after lunch"},
	)
	repo.classes[0].Room = "B-201"
	repo.classes[0].Professor = "Dr. Cruz"
}

func TestExportExcel(t *testing.T) {
	svc, repo := setupTestExportService()
	seedExportClasses(repo)

	buf, filename, err := svc.ExportExcel(context.Background(), "u1")
	if err != nil {
		t.Fatalf("ExportExcel 应成功: %v", err)
	}
	if !bytes.HasPrefix(buf.Bytes(), []byte("PK")) {
		t.Error("xlsx 应为 zip 格式")
	}
	if filename != "classalign_20260107.xlsx" {
		t.Errorf("文件名不符: %s", filename)
	}

	f, err := excelize.OpenReader(bytes.NewReader(buf.Bytes()))
	if err != nil {
		t.Fatalf("无法读取生成的 xlsx: %v", err)
	}
	defer f.Close()

	checks := map[string]string{
		"A1": "Time",
		"B1": "Monday",
		"A2": "7:00 AM",
		"B4": "Math\nB-201", // 第 3 个网格行 = 9:00 AM
		"D8": "History",     // 1:00 PM
	}
	for cellName, want := range checks {
		got, _ := f.GetCellValue("Weekly", cellName)
		if got != want {
			t.Errorf("Weekly!%s 期望 %q，实际 %q", cellName, want, got)
		}
	}

	// 明细 Sheet 包含未出现在网格中的课程
	got, _ := f.GetCellValue("Classes", "F4")
	if got != "malformed_time" {
		t.Errorf("Classes!F4 期望 malformed_time，实际 %q", got)
	}
}

func TestExportPDF(t *testing.T) {
	svc, repo := setupTestExportService()
	seedExportClasses(repo)

	buf, filename, err := svc.ExportPDF(context.Background(), "u1")
	if err != nil {
		t.Fatalf("ExportPDF 应成功: %v", err)
	}
	if !bytes.HasPrefix(buf.Bytes(), []byte("%PDF")) {
		t.Error("输出应为 PDF")
	}
	if !strings.HasSuffix(filename, ".pdf") {
		t.Errorf("文件名不符: %s", filename)
	}
}

func TestExportICS(t *testing.T) {
	svc, repo := setupTestExportService()
	seedExportClasses(repo)

	buf, _, err := svc.ExportICS(context.Background(), "u1")
	if err != nil {
		t.Fatalf("ExportICS 应成功: %v", err)
	}
	out := buf.String()
	for _, want := range []string{"BEGIN:VCALENDAR", "RRULE:FREQ=WEEKLY", "SUMMARY:Math", "SUMMARY:History", "DTSTART:20260105T090000Z"} {
		if !strings.Contains(out, want) {
			t.Errorf("ICS 中应包含 %q", want)
		}
	}
	if strings.Contains(out, "SUMMARY:Art") {
		t.Error("时间格式异常的课程不应写入日历")
	}
}

func TestExportICS_LocalTimezone(t *testing.T) {
	ny, err := time.LoadLocation("America/New_York")
	if err != nil {
		t.Fatalf("加载时区失败: %v", err)
	}
	repo, _, classes := newTestRepo()
	svc := NewExportService(repo, ny, zap.NewNop()).(*exportService)
	svc.now = func() time.Time { return fixedNow }
	seedExportClasses(classes)

	buf, _, err := svc.ExportICS(context.Background(), "u1")
	if err != nil {
		t.Fatalf("ExportICS 应成功: %v", err)
	}
	out := buf.String()
	for _, want := range []string{
		"DTSTART;TZID=America/New_York:20260105T090000",
		"DTEND;TZID=America/New_York:20260105T103000",
		"BEGIN:VTIMEZONE",
		"TZID:America/New_York",
		"BEGIN:DAYLIGHT",
		"TZOFFSETTO:-0400",
		"RRULE:FREQ=YEARLY;BYMONTH=3;BYDAY=2SU",
		"BEGIN:STANDARD",
		"TZOFFSETTO:-0500",
		"RRULE:FREQ=YEARLY;BYMONTH=11;BYDAY=1SU",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("ICS 中应包含 %q", want)
		}
	}
	if strings.Contains(out, "DTSTART:20260105T") {
		t.Error("非 UTC 时区不应写 UTC 时间")
	}

	// 重新导入后墙上时间不变
	parsed, _, err := ParseICS(strings.NewReader(out), "u1", ny)
	if err != nil {
		t.Fatalf("重新解析失败: %v", err)
	}
	if len(parsed) != 2 || parsed[0].Time != "09:00 - 10:30" || parsed[0].Day != "Monday" {
		t.Errorf("往返结果不符: %+v", parsed)
	}
}

func TestZoneTransitions_FixedZone(t *testing.T) {
	if got := zoneTransitions(time.FixedZone("PHT", 8*3600), 2026); len(got) != 0 {
		t.Errorf("固定偏移时区不应有切换，实际 %d", len(got))
	}
	if got := utcOffset(-5 * 3600); got != "-0500" {
		t.Errorf("utcOffset 期望 -0500，实际 %s", got)
	}
	if got := utcOffset(5*3600 + 30*60); got != "+0530" {
		t.Errorf("utcOffset 期望 +0530，实际 %s", got)
	}
}

func TestExport_EmptySchedule(t *testing.T) {
	svc, _ := setupTestExportService()

	if _, _, err := svc.ExportPDF(context.Background(), "u1"); !errors.Is(err, ErrExportNoClasses) {
		t.Errorf("期望 ErrExportNoClasses，实际 %v", err)
	}
}

func TestExportPDF_LongSubject(t *testing.T) {
	svc, repo := setupTestExportService()
	repo.seed("u1", [3]string{strings.Repeat("Very Long Subject Name ", 5), "Monday", "09:00 - 10:00"})
	if _, _, err := svc.ExportPDF(context.Background(), "u1"); err != nil {
		t.Fatalf("长课程名不应导致导出失败: %v", err)
	}
}

func TestFitText_KeepsAccentedCharacters(t *testing.T) {
	pdf := fpdf.New("L", "mm", "A4", "")
	pdf.AddPage()
	pdf.SetFont("Helvetica", "", 8)
	tr := pdf.UnicodeTranslatorFromDescriptor("")

	subject := "Économie Générale Avancée et Méthodes Quantitatives"
	got := fitText(pdf, tr, subject, 30)

	if strings.Contains(got, "\uFFFD") {
		t.Fatalf("截断结果含替换字符: %q", got)
	}
	if !strings.HasPrefix(got, tr("Économie")) || !strings.HasSuffix(got, "...") {
		t.Errorf("截断结果不符: %q", got)
	}
	if w := pdf.GetStringWidth(got); w > 30 {
		t.Errorf("截断后宽度 %.1f 超过列宽 30", w)
	}
	if short := fitText(pdf, tr, "Art", 30); short != tr("Art") {
		t.Errorf("短文本不应截断，实际 %q", short)
	}
}

func TestWeekStart(t *testing.T) {
	for _, in := range []time.Time{
		time.Date(2026, 1, 5, 12, 0, 0, 0, time.UTC),  // 周一
		time.Date(2026, 1, 7, 12, 0, 0, 0, time.UTC),  // 周三
		time.Date(2026, 1, 11, 23, 0, 0, 0, time.UTC), // 周日
	} {
		got := weekStart(in)
		want := time.Date(2026, 1, 5, 0, 0, 0, 0, time.UTC)
		if !got.Equal(want) {
			t.Errorf("weekStart(%v) 期望 %v，实际 %v", in, want, got)
		}
	}
}

func TestBuildICS_SkipsUnschedulable(t *testing.T) {
	classes := []model.Class{
		{ClassID: "a", Subject: "Ok", Day: "Tuesday", Time: "08:00 - 09:00"},
		{ClassID: "b", Subject: "Loose", Day: "Tuesday", Time: "8:00 - 9:00"},
		{ClassID: "c", Subject: "Weekend", Day: "Saturday", Time: "08:00 - 09:00"},
		{ClassID: "d", Subject: "Backwards", Day: "Monday", Time: "10:00 - 09:00"},
	}
	cal, skipped := BuildICS(classes, fixedNow, time.UTC)
	if skipped != 3 {
		t.Errorf("期望跳过 3 门，实际 %d", skipped)
	}
	if n := len(cal.Events()); n != 1 {
		t.Errorf("期望 1 个事件，实际 %d", n)
	}
}
