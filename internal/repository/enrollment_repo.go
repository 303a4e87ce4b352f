package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/blutech18/schoolmg-sub003/internal/model"
)

// EnrollmentRepository 选课名单数据访问接口
type EnrollmentRepository interface {
	ListStudentIDs(ctx context.Context, scheduleID string) ([]string, error)
	IsEnrolled(ctx context.Context, scheduleID, studentID string) (bool, error)
	ListByStudent(ctx context.Context, studentID string) ([]model.Enrollment, error)
}

type enrollmentRepo struct {
	db *gorm.DB
}

// NewEnrollmentRepo 创建 EnrollmentRepository 实例
func NewEnrollmentRepo(db *gorm.DB) EnrollmentRepository {
	return &enrollmentRepo{db: db}
}

// ListStudentIDs 返回班级的全部选课学生 ID
func (r *enrollmentRepo) ListStudentIDs(ctx context.Context, scheduleID string) ([]string, error) {
	var ids []string
	err := r.db.WithContext(ctx).
		Model(&model.Enrollment{}).
		Where("schedule_id = ?", scheduleID).
		Order("student_id").
		Pluck("student_id", &ids).Error
	return ids, err
}

func (r *enrollmentRepo) IsEnrolled(ctx context.Context, scheduleID, studentID string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&model.Enrollment{}).
		Where("schedule_id = ? AND student_id = ?", scheduleID, studentID).
		Count(&count).Error
	return count > 0, err
}

func (r *enrollmentRepo) ListByStudent(ctx context.Context, studentID string) ([]model.Enrollment, error) {
	var enrollments []model.Enrollment
	err := r.db.WithContext(ctx).
		Preload("Schedule").
		Where("student_id = ?", studentID).
		Find(&enrollments).Error
	return enrollments, err
}
