package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/blutech18/schoolmg-sub003/internal/model"
)

// ScheduleRepository 开课班级数据访问接口（本模块只读）
type ScheduleRepository interface {
	GetByID(ctx context.Context, id string) (*model.Schedule, error)
	List(ctx context.Context, term string) ([]model.Schedule, error)
	ListByInstructor(ctx context.Context, instructorID string) ([]model.Schedule, error)
}

type scheduleRepo struct {
	db *gorm.DB
}

// NewScheduleRepo 创建 ScheduleRepository 实例
func NewScheduleRepo(db *gorm.DB) ScheduleRepository {
	return &scheduleRepo{db: db}
}

func (r *scheduleRepo) GetByID(ctx context.Context, id string) (*model.Schedule, error) {
	var schedule model.Schedule
	err := r.db.WithContext(ctx).
		Where("schedule_id = ?", id).
		First(&schedule).Error
	if err != nil {
		return nil, err
	}
	return &schedule, nil
}

func (r *scheduleRepo) List(ctx context.Context, term string) ([]model.Schedule, error) {
	var schedules []model.Schedule
	q := r.db.WithContext(ctx).Order("subject_code, section")
	if term != "" {
		q = q.Where("term = ?", term)
	}
	err := q.Find(&schedules).Error
	return schedules, err
}

func (r *scheduleRepo) ListByInstructor(ctx context.Context, instructorID string) ([]model.Schedule, error) {
	var schedules []model.Schedule
	err := r.db.WithContext(ctx).
		Where("instructor_id = ?", instructorID).
		Order("subject_code, section").
		Find(&schedules).Error
	return schedules, err
}
