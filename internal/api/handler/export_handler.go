package handler

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/url"

	"github.com/gin-gonic/gin"

	"github.com/reinieltalplacido/classalign/internal/service"
	"github.com/reinieltalplacido/classalign/pkg/response"
)

const (
	contentTypeXLSX = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	contentTypePDF  = "application/pdf"
	contentTypeICS  = "text/calendar; charset=utf-8"
)

type exportFunc func(ctx context.Context, userID string) (*bytes.Buffer, string, error)

// ExportHandler 导出模块 HTTP 处理器
type ExportHandler struct {
	exportSvc service.ExportService
}

// NewExportHandler 创建 ExportHandler
func NewExportHandler(exportSvc service.ExportService) *ExportHandler {
	return &ExportHandler{exportSvc: exportSvc}
}

// ExportExcel 导出 Excel
// GET /api/v1/export/xlsx
func (h *ExportHandler) ExportExcel(c *gin.Context) {
	h.export(c, h.exportSvc.ExportExcel, contentTypeXLSX)
}

// ExportPDF 导出 PDF
// GET /api/v1/export/pdf
func (h *ExportHandler) ExportPDF(c *gin.Context) {
	h.export(c, h.exportSvc.ExportPDF, contentTypePDF)
}

// ExportICS 导出 iCalendar
// GET /api/v1/export/ics
func (h *ExportHandler) ExportICS(c *gin.Context) {
	h.export(c, h.exportSvc.ExportICS, contentTypeICS)
}

func (h *ExportHandler) export(c *gin.Context, fn exportFunc, contentType string) {
	userID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	buf, filename, err := fn(c.Request.Context(), userID)
	if err != nil {
		h.handleExportError(c, err)
		return
	}

	// 设置下载响应头
	encodedFilename := url.QueryEscape(filename)
	c.Header("Content-Description", "File Transfer")
	c.Header("Content-Disposition", "attachment; filename*=UTF-8''"+encodedFilename)
	c.Data(http.StatusOK, contentType, buf.Bytes())
}

func (h *ExportHandler) handleExportError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrExportNoClasses):
		response.NotFound(c, 16001, "课表为空，无可导出内容")
	default:
		response.InternalError(c)
	}
}
