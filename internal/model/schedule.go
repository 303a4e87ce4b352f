package model

// Schedule 开课班级（课程 + 班次 + 学期）— 对应 schedules
// 由教务系统维护，本模块只读引用。
type Schedule struct {
	ScheduleID     string  `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"schedule_id"`
	SubjectCode    string  `gorm:"type:varchar(20);not null"                      json:"subject_code"`
	SubjectTitle   string  `gorm:"type:varchar(200);not null"                     json:"subject_title"`
	Section        string  `gorm:"type:varchar(20);not null"                      json:"section"`
	Term           string  `gorm:"type:varchar(20);not null"                      json:"term"`
	InstructorID   *string `gorm:"type:uuid"                                      json:"instructor_id,omitempty"`
	InstructorName string  `gorm:"type:varchar(100)"                              json:"instructor_name,omitempty"`
	BaseModel
}

// TableName 指定表名
func (Schedule) TableName() string { return "schedules" }

// Enrollment 选课名单 — 对应 enrollments
type Enrollment struct {
	EnrollmentID string `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"enrollment_id"`
	ScheduleID   string `gorm:"type:uuid;not null;uniqueIndex:uq_enrollment"   json:"schedule_id"`
	StudentID    string `gorm:"type:uuid;not null;uniqueIndex:uq_enrollment"   json:"student_id"`

	// 关联
	Schedule *Schedule `gorm:"foreignKey:ScheduleID;references:ScheduleID" json:"schedule,omitempty"`
}

// TableName 指定表名
func (Enrollment) TableName() string { return "enrollments" }
