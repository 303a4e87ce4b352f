package dto

// ── 请假条模块 DTO ──

// LetterSubjectInput 提交请假条时的科目项
type LetterSubjectInput struct {
	ScheduleID     string `json:"schedule_id"     binding:"required,uuid"`
	SubjectCode    string `json:"subject_code"    binding:"omitempty,max=20"`
	SubjectTitle   string `json:"subject_title"   binding:"omitempty,max=200"`
	InstructorName string `json:"instructor_name" binding:"omitempty,max=100"`
}

// SubmitLetterRequest 提交请假条
type SubmitLetterRequest struct {
	Reason   string               `json:"reason"    binding:"required,min=2,max=500"`
	DateFrom string               `json:"date_from" binding:"required"` // "2026-09-01"
	DateTo   string               `json:"date_to"   binding:"required"`
	Subjects []LetterSubjectInput `json:"subjects"  binding:"required,min=1,dive"`
}

// SelfEditLetterRequest 学生自助修改（仅限完全未被处理且在时限内的请假条）
type SelfEditLetterRequest struct {
	Reason   *string              `json:"reason"    binding:"omitempty,min=2,max=500"`
	DateFrom *string              `json:"date_from"`
	DateTo   *string              `json:"date_to"`
	Subjects []LetterSubjectInput `json:"subjects"  binding:"omitempty,min=1,dive"`
}

// DecisionRequest 审批方决定
type DecisionRequest struct {
	Decision string `json:"decision" binding:"required,oneof=approved declined"`
	Comment  string `json:"comment"  binding:"omitempty,max=500"`
}

// AttachFileRequest 登记附件元数据（文件本体存门户对象存储）
type AttachFileRequest struct {
	OriginalName string `json:"original_name" binding:"required,max=255"`
	SizeBytes    int64  `json:"size_bytes"    binding:"required,min=1"`
	MimeType     string `json:"mime_type"     binding:"omitempty,max=100"`
	BlobRef      string `json:"blob_ref"      binding:"omitempty,max=500"`
}

// ApproverView 单方审批状态视图
type ApproverView struct {
	Role    string `json:"role"`
	Status  string `json:"status"`
	Comment string `json:"comment,omitempty"`
	ActedAt string `json:"acted_at,omitempty"`
}

// LetterSubjectResponse 请假条科目视图（覆盖值已做回落）
type LetterSubjectResponse struct {
	ScheduleID     string `json:"schedule_id"`
	SubjectCode    string `json:"subject_code"`
	SubjectTitle   string `json:"subject_title"`
	Section        string `json:"section,omitempty"`
	InstructorName string `json:"instructor_name"`
}

// LetterFileResponse 附件视图
type LetterFileResponse struct {
	FileID       string `json:"file_id"`
	OriginalName string `json:"original_name"`
	SizeBytes    int64  `json:"size_bytes"`
	MimeType     string `json:"mime_type,omitempty"`
}

// LetterResponse 请假条详情
type LetterResponse struct {
	ExcuseLetterID string                  `json:"excuse_letter_id"`
	StudentID      string                  `json:"student_id"`
	Reason         string                  `json:"reason"`
	DateFrom       string                  `json:"date_from"`
	DateTo         string                  `json:"date_to"`
	SubmittedAt    string                  `json:"submitted_at"`
	IsMultiSubject bool                    `json:"is_multi_subject"`
	Status         string                  `json:"status"`
	Approvers      []ApproverView          `json:"approvers"`
	Subjects       []LetterSubjectResponse `json:"subjects"`
	Files          []LetterFileResponse    `json:"files,omitempty"`
}

// PendingCountResponse 按科目统计的待审数量
type PendingCountResponse struct {
	SubjectCode string `json:"subject_code"`
	Pending     int64  `json:"pending"`
}

// [自证通过] internal/dto/excuse_letter.go
