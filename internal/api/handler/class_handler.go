package handler

import (
	"errors"

	"github.com/gin-gonic/gin"

	"github.com/reinieltalplacido/classalign/internal/dto"
	"github.com/reinieltalplacido/classalign/internal/service"
	"github.com/reinieltalplacido/classalign/pkg/response"
)

// ClassHandler 课程模块 HTTP 处理器
// 所有写操作都返回该用户最新的完整课程列表
type ClassHandler struct {
	classSvc service.ClassService
}

// NewClassHandler 创建 ClassHandler
func NewClassHandler(classSvc service.ClassService) *ClassHandler {
	return &ClassHandler{classSvc: classSvc}
}

// ListClasses 课程列表
// GET /api/v1/classes
func (h *ClassHandler) ListClasses(c *gin.Context) {
	userID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	classes, err := h.classSvc.List(c.Request.Context(), userID)
	if err != nil {
		h.handleClassError(c, err)
		return
	}

	response.OK(c, dto.ScheduleResponse{Classes: classes})
}

// CreateClass 新增课程
// POST /api/v1/classes
func (h *ClassHandler) CreateClass(c *gin.Context) {
	userID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	var req dto.CreateClassRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	classes, err := h.classSvc.Create(c.Request.Context(), userID, &req)
	if err != nil {
		h.handleClassError(c, err)
		return
	}

	response.Created(c, dto.ScheduleResponse{Classes: classes})
}

// UpdateClass 修改课程
// PUT /api/v1/classes/:id
func (h *ClassHandler) UpdateClass(c *gin.Context) {
	userID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	var req dto.UpdateClassRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	classes, err := h.classSvc.Update(c.Request.Context(), userID, c.Param("id"), &req)
	if err != nil {
		h.handleClassError(c, err)
		return
	}

	response.OK(c, dto.ScheduleResponse{Classes: classes})
}

// DeleteClass 删除课程
// DELETE /api/v1/classes/:id
func (h *ClassHandler) DeleteClass(c *gin.Context) {
	userID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	classes, err := h.classSvc.Delete(c.Request.Context(), userID, c.Param("id"))
	if err != nil {
		h.handleClassError(c, err)
		return
	}

	response.OK(c, dto.ScheduleResponse{Classes: classes})
}

// DeleteAllClasses 清空课表
// DELETE /api/v1/classes
func (h *ClassHandler) DeleteAllClasses(c *gin.Context) {
	userID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	result, err := h.classSvc.DeleteAll(c.Request.Context(), userID)
	if err != nil {
		h.handleClassError(c, err)
		return
	}

	response.OK(c, result)
}

// handleClassError 统一处理课程模块业务错误
func (h *ClassHandler) handleClassError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrClassNotFound):
		response.NotFound(c, 12001, "课程不存在")
	case errors.Is(err, service.ErrClassNotOwner):
		response.Forbidden(c, 12002, "无权操作该课程")
	case errors.Is(err, service.ErrInvalidDay):
		response.BadRequest(c, 12003, "星期必须为周一至周五")
	case errors.Is(err, service.ErrInvalidTime):
		response.BadRequest(c, 12004, "时间不能为空且不超过 32 个字符")
	case errors.Is(err, service.ErrInvalidSubject):
		response.BadRequest(c, 12005, "课程名不能为空且不超过 100 个字符")
	default:
		response.InternalError(c)
	}
}
