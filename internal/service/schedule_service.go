package service

import (
	"context"

	"go.uber.org/zap"

	"github.com/blutech18/schoolmg-sub003/internal/model"
	"github.com/blutech18/schoolmg-sub003/internal/repository"
)

// ScheduleService 开课班级只读查询接口
//
// 班级档案由教务系统维护，本模块只提供两类读视图：
//   - 按学期列出全部班级（审批工作台、导出页选择班级用）
//   - 按调用者身份列出"我的班级"（教师取所授班级，学生取已选班级）
type ScheduleService interface {
	ListSchedules(ctx context.Context, term string) ([]model.Schedule, error)
	ListMine(ctx context.Context, userID, role, studentID string) ([]model.Schedule, error)
}

type scheduleService struct {
	repo   *repository.Repository
	logger *zap.Logger
}

// NewScheduleService 创建 ScheduleService
func NewScheduleService(repo *repository.Repository, logger *zap.Logger) ScheduleService {
	return &scheduleService{repo: repo, logger: logger}
}

func (s *scheduleService) ListSchedules(ctx context.Context, term string) ([]model.Schedule, error) {
	schedules, err := s.repo.Schedule.List(ctx, term)
	if err != nil {
		s.logger.Error("查询班级列表失败", zap.String("term", term), zap.Error(err))
		return nil, err
	}
	return schedules, nil
}

// ListMine 按调用者身份解析"我的班级"。
// 学生走选课名单（含班级预加载），其余角色按授课教师 ID 查询。
func (s *scheduleService) ListMine(ctx context.Context, userID, role, studentID string) ([]model.Schedule, error) {
	if role == "student" {
		enrollments, err := s.repo.Enrollment.ListByStudent(ctx, studentID)
		if err != nil {
			s.logger.Error("查询选课班级失败", zap.String("student_id", studentID), zap.Error(err))
			return nil, err
		}
		schedules := make([]model.Schedule, 0, len(enrollments))
		for _, e := range enrollments {
			if e.Schedule != nil {
				schedules = append(schedules, *e.Schedule)
			}
		}
		return schedules, nil
	}

	schedules, err := s.repo.Schedule.ListByInstructor(ctx, userID)
	if err != nil {
		s.logger.Error("查询授课班级失败", zap.String("instructor_id", userID), zap.Error(err))
		return nil, err
	}
	return schedules, nil
}
