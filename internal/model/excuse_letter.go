package model

import "time"

// ── 审批角色与状态 ──

const (
	RoleInstructor  = "instructor"  // 任课教师
	RoleCoordinator = "programcoor" // 专业协调员
	RoleDean        = "dean"        // 院长
)

// 单方审批状态
const (
	ApprovalPending  = "pending"
	ApprovalApproved = "approved"
	ApprovalDeclined = "declined"
)

// 请假条总体状态
const (
	LetterPending  = "pending"
	LetterPartial  = "partial"
	LetterApproved = "approved"
	LetterDeclined = "declined"
)

// ── 请假条 ──

// ExcuseLetter 请假条 — 对应 excuse_letters
// 三方（任课教师、专业协调员、院长）独立审批，总体状态由三方状态推导。
type ExcuseLetter struct {
	ExcuseLetterID string    `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"excuse_letter_id"`
	StudentID      string    `gorm:"type:uuid;not null"                             json:"student_id"`
	Reason         string    `gorm:"type:varchar(500);not null"                     json:"reason"`
	DateFrom       time.Time `gorm:"type:date;not null"                             json:"date_from"`
	DateTo         time.Time `gorm:"type:date;not null"                             json:"date_to"`
	SubmittedAt    time.Time `gorm:"not null;default:CURRENT_TIMESTAMP"             json:"submitted_at"`
	IsMultiSubject bool      `gorm:"not null;default:false"                         json:"is_multi_subject"`
	Status         string    `gorm:"type:varchar(20);not null;default:'pending'"    json:"status"` // pending | partial | approved | declined

	InstructorStatus  string     `gorm:"type:varchar(20);not null;default:'pending'" json:"instructor_status"`
	InstructorComment string     `gorm:"type:varchar(500)"                           json:"instructor_comment,omitempty"`
	InstructorActedAt *time.Time `json:"instructor_acted_at,omitempty"`

	CoordinatorStatus  string     `gorm:"type:varchar(20);not null;default:'pending'" json:"coordinator_status"`
	CoordinatorComment string     `gorm:"type:varchar(500)"                           json:"coordinator_comment,omitempty"`
	CoordinatorActedAt *time.Time `json:"coordinator_acted_at,omitempty"`

	DeanStatus  string     `gorm:"type:varchar(20);not null;default:'pending'" json:"dean_status"`
	DeanComment string     `gorm:"type:varchar(500)"                           json:"dean_comment,omitempty"`
	DeanActedAt *time.Time `json:"dean_acted_at,omitempty"`

	BaseModel

	// 关联
	Subjects []ExcuseLetterSubject `gorm:"foreignKey:ExcuseLetterID;references:ExcuseLetterID" json:"subjects,omitempty"`
	Files    []ExcuseLetterFile    `gorm:"foreignKey:ExcuseLetterID;references:ExcuseLetterID" json:"files,omitempty"`
}

// TableName 指定表名
func (ExcuseLetter) TableName() string { return "excuse_letters" }

// ApproverSlot 单个审批方的字段视图，三个角色共用同一套读写逻辑。
type ApproverSlot struct {
	Status  *string
	Comment *string
	ActedAt **time.Time
}

// approverSlotDef 单个审批角色的声明：数据库状态列名与字段访问器。
type approverSlotDef struct {
	statusColumn string
	slot         func(*ExcuseLetter) ApproverSlot
}

// approverSlots 角色 → 审批列与字段访问器。角色与列的对应关系只在这里声明一次。
var approverSlots = map[string]approverSlotDef{
	RoleInstructor: {"instructor_status", func(l *ExcuseLetter) ApproverSlot {
		return ApproverSlot{&l.InstructorStatus, &l.InstructorComment, &l.InstructorActedAt}
	}},
	RoleCoordinator: {"coordinator_status", func(l *ExcuseLetter) ApproverSlot {
		return ApproverSlot{&l.CoordinatorStatus, &l.CoordinatorComment, &l.CoordinatorActedAt}
	}},
	RoleDean: {"dean_status", func(l *ExcuseLetter) ApproverSlot {
		return ApproverSlot{&l.DeanStatus, &l.DeanComment, &l.DeanActedAt}
	}},
}

// SlotFor 返回指定审批角色的字段视图；非审批角色返回 false。
func (l *ExcuseLetter) SlotFor(role string) (ApproverSlot, bool) {
	def, ok := approverSlots[role]
	if !ok {
		return ApproverSlot{}, false
	}
	return def.slot(l), true
}

// ApproverStatusColumn 返回指定审批角色对应的数据库状态列名；非审批角色返回 false。
func ApproverStatusColumn(role string) (string, bool) {
	def, ok := approverSlots[role]
	if !ok {
		return "", false
	}
	return def.statusColumn, true
}

// ApproverRoles 全部审批角色（顺序固定，供展示与遍历使用）
func ApproverRoles() []string {
	return []string{RoleInstructor, RoleCoordinator, RoleDean}
}

// DeriveOverallStatus 由三方状态推导总体状态：
// 三方全部 approved → approved；任一 declined → declined；
// 任一 approved（其余 pending）→ partial；否则 pending。
func (l *ExcuseLetter) DeriveOverallStatus() string {
	statuses := []string{l.InstructorStatus, l.CoordinatorStatus, l.DeanStatus}

	approved := 0
	for _, s := range statuses {
		if s == ApprovalDeclined {
			return LetterDeclined
		}
		if s == ApprovalApproved {
			approved++
		}
	}
	switch {
	case approved == len(statuses):
		return LetterApproved
	case approved > 0:
		return LetterPartial
	default:
		return LetterPending
	}
}

// ── 请假条科目 ──

// ExcuseLetterSubject 请假条覆盖的科目 — 对应 excuse_letter_subjects
// subject_code 等覆盖列非空时优先展示，否则回落到班级档案。
type ExcuseLetterSubject struct {
	ExcuseLetterSubjectID string  `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"excuse_letter_subject_id"`
	ExcuseLetterID        string  `gorm:"type:uuid;not null"                             json:"excuse_letter_id"`
	ScheduleID            string  `gorm:"type:uuid;not null"                             json:"schedule_id"`
	SubjectCode           *string `gorm:"type:varchar(20)"                               json:"subject_code,omitempty"`
	SubjectTitle          *string `gorm:"type:varchar(200)"                              json:"subject_title,omitempty"`
	InstructorName        *string `gorm:"type:varchar(100)"                              json:"instructor_name,omitempty"`

	// 关联
	Schedule *Schedule `gorm:"foreignKey:ScheduleID;references:ScheduleID" json:"schedule,omitempty"`
}

// TableName 指定表名
func (ExcuseLetterSubject) TableName() string { return "excuse_letter_subjects" }

// DisplaySubjectCode 覆盖值优先，缺省回落班级档案
func (s *ExcuseLetterSubject) DisplaySubjectCode() string {
	if s.SubjectCode != nil && *s.SubjectCode != "" {
		return *s.SubjectCode
	}
	if s.Schedule != nil {
		return s.Schedule.SubjectCode
	}
	return ""
}

// DisplaySubjectTitle 覆盖值优先，缺省回落班级档案
func (s *ExcuseLetterSubject) DisplaySubjectTitle() string {
	if s.SubjectTitle != nil && *s.SubjectTitle != "" {
		return *s.SubjectTitle
	}
	if s.Schedule != nil {
		return s.Schedule.SubjectTitle
	}
	return ""
}

// DisplayInstructorName 覆盖值优先，缺省回落班级档案
func (s *ExcuseLetterSubject) DisplayInstructorName() string {
	if s.InstructorName != nil && *s.InstructorName != "" {
		return *s.InstructorName
	}
	if s.Schedule != nil {
		return s.Schedule.InstructorName
	}
	return ""
}

// ── 请假条附件 ──

// ExcuseLetterFile 附件元数据 — 对应 excuse_letter_files
// 文件内容存放于外部对象存储，这里只记录引用。
type ExcuseLetterFile struct {
	FileID         string    `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"file_id"`
	ExcuseLetterID string    `gorm:"type:uuid;not null"                             json:"excuse_letter_id"`
	StoredName     string    `gorm:"type:varchar(100);not null"                     json:"stored_name"`
	OriginalName   string    `gorm:"type:varchar(255);not null"                     json:"original_name"`
	SizeBytes      int64     `gorm:"not null;default:0"                             json:"size_bytes"`
	MimeType       string    `gorm:"type:varchar(100)"                              json:"mime_type,omitempty"`
	BlobRef        string    `gorm:"type:varchar(500)"                              json:"blob_ref,omitempty"`
	CreatedAt      time.Time `gorm:"not null;default:CURRENT_TIMESTAMP"             json:"created_at"`
}

// TableName 指定表名
func (ExcuseLetterFile) TableName() string { return "excuse_letter_files" }

// [自证通过] internal/model/excuse_letter.go
