package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/blutech18/schoolmg-sub003/internal/service"
	"github.com/blutech18/schoolmg-sub003/pkg/response"
)

// ScheduleHandler 班级目录 HTTP 处理器（只读）
type ScheduleHandler struct {
	scheduleSvc service.ScheduleService
}

// NewScheduleHandler 创建 ScheduleHandler
func NewScheduleHandler(scheduleSvc service.ScheduleService) *ScheduleHandler {
	return &ScheduleHandler{scheduleSvc: scheduleSvc}
}

// List 列出班级，可按学期过滤
// GET /api/v1/schedules?term=
func (h *ScheduleHandler) List(c *gin.Context) {
	schedules, err := h.scheduleSvc.ListSchedules(c.Request.Context(), c.Query("term"))
	if err != nil {
		response.InternalError(c)
		return
	}
	response.OK(c, schedules)
}

// ListMine 列出调用者相关的班级：教师返回所授班级，学生返回已选班级
// GET /api/v1/schedules/mine
func (h *ScheduleHandler) ListMine(c *gin.Context) {
	userID, ok := MustGetUserID(c)
	if !ok {
		return
	}
	role, ok := MustGetRole(c)
	if !ok {
		return
	}
	studentID := c.GetString("student_id")

	schedules, err := h.scheduleSvc.ListMine(c.Request.Context(), userID, role, studentID)
	if err != nil {
		response.InternalError(c)
		return
	}
	response.OK(c, schedules)
}
