package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/reinieltalplacido/classalign/internal/service"
	"github.com/reinieltalplacido/classalign/pkg/response"
)

// ImportHandler 导入模块 HTTP 处理器
type ImportHandler struct {
	importSvc service.ImportService
}

// NewImportHandler 创建 ImportHandler
func NewImportHandler(importSvc service.ImportService) *ImportHandler {
	return &ImportHandler{importSvc: importSvc}
}

// ImportICS 导入 ICS 日历，事件追加到现有课表
// POST /api/v1/import/ics  (multipart/form-data, field="file")
func (h *ImportHandler) ImportICS(c *gin.Context) {
	userID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	file, _, err := c.Request.FormFile("file")
	if err != nil {
		response.BadRequest(c, 15000, "请上传 ICS 文件")
		return
	}
	defer file.Close()

	result, err := h.importSvc.ImportICS(c.Request.Context(), userID, file)
	if err != nil {
		h.handleImportError(c, err)
		return
	}

	response.Created(c, result)
}

func (h *ImportHandler) handleImportError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrImportInvalidICS):
		response.ErrorWithDetails(c, http.StatusBadRequest, 15001, "ICS 文件格式无效", err.Error())
	default:
		response.InternalError(c)
	}
}
