package service

import (
	"context"
	"errors"
	"sort"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/blutech18/schoolmg-sub003/config"
	"github.com/blutech18/schoolmg-sub003/internal/dto"
	"github.com/blutech18/schoolmg-sub003/internal/model"
	"github.com/blutech18/schoolmg-sub003/internal/repository"
	"github.com/blutech18/schoolmg-sub003/pkg/redis"
)

// ── 请假条模块业务错误 ──

var (
	ErrLetterNotFound       = errors.New("请假条不存在")
	ErrUnknownRole          = errors.New("未知审批角色")
	ErrUnknownStatusField   = errors.New("未知统计维度")
	ErrInvalidDecision      = errors.New("无效的审批决定")
	ErrNotOwner             = errors.New("只能修改本人的请假条")
	ErrAlreadyProcessed     = errors.New("请假条已进入审批流程，不可修改")
	ErrEditWindowExpired    = errors.New("已超过可修改时限")
	ErrLetterDateInvalid    = errors.New("请假日期无效")
	ErrFileNotFound         = errors.New("附件不存在")
)

// ExcuseLetterService 请假条业务接口
type ExcuseLetterService interface {
	Submit(ctx context.Context, req *dto.SubmitLetterRequest, studentID string) (*dto.LetterResponse, error)
	GetByID(ctx context.Context, id string) (*dto.LetterResponse, error)
	ListByStudent(ctx context.Context, studentID string) ([]dto.LetterResponse, error)
	ListPendingForApprover(ctx context.Context, role string) ([]dto.LetterResponse, error)
	RecordDecision(ctx context.Context, letterID, role string, req *dto.DecisionRequest) (*dto.LetterResponse, error)
	StudentSelfEdit(ctx context.Context, letterID, studentID string, req *dto.SelfEditLetterRequest) (*dto.LetterResponse, error)
	PendingCountsBySubject(ctx context.Context, statusField string) ([]dto.PendingCountResponse, error)
	AttachFile(ctx context.Context, letterID, studentID string, file *model.ExcuseLetterFile) (*dto.LetterFileResponse, error)
	RemoveFile(ctx context.Context, fileID, callerStudentID, callerRole string) error
}

type excuseLetterService struct {
	cfg    *config.Config
	repo   *repository.Repository
	cache  *redis.Client
	logger *zap.Logger
}

// NewExcuseLetterService 创建 ExcuseLetterService 实例
func NewExcuseLetterService(cfg *config.Config, repo *repository.Repository, cache *redis.Client, logger *zap.Logger) ExcuseLetterService {
	return &excuseLetterService{cfg: cfg, repo: repo, cache: cache, logger: logger}
}

// ────────────────────── Submit ──────────────────────

func (s *excuseLetterService) Submit(ctx context.Context, req *dto.SubmitLetterRequest, studentID string) (*dto.LetterResponse, error) {
	dateFrom, dateTo, err := parseLetterDates(req.DateFrom, req.DateTo)
	if err != nil {
		return nil, err
	}

	subjects := make([]model.ExcuseLetterSubject, 0, len(req.Subjects))
	for _, sub := range req.Subjects {
		if _, err := s.repo.Schedule.GetByID(ctx, sub.ScheduleID); err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, ErrScheduleNotFound
			}
			s.logger.Error("查询班级失败", zap.String("schedule_id", sub.ScheduleID), zap.Error(err))
			return nil, err
		}
		subjects = append(subjects, model.ExcuseLetterSubject{
			ScheduleID:     sub.ScheduleID,
			SubjectCode:    optional(sub.SubjectCode),
			SubjectTitle:   optional(sub.SubjectTitle),
			InstructorName: optional(sub.InstructorName),
		})
	}

	letter := &model.ExcuseLetter{
		StudentID:      studentID,
		Reason:         req.Reason,
		DateFrom:       dateFrom,
		DateTo:         dateTo,
		SubmittedAt:    time.Now(),
		IsMultiSubject: len(subjects) > 1,
		Status:         model.LetterPending,
		Subjects:       subjects,
	}
	if err := s.repo.ExcuseLetter.Create(ctx, letter); err != nil {
		s.logger.Error("创建请假条失败", zap.String("student_id", studentID), zap.Error(err))
		return nil, err
	}

	s.invalidatePendingCache(ctx)
	s.logger.Info("请假条已提交",
		zap.String("excuse_letter_id", letter.ExcuseLetterID),
		zap.String("student_id", studentID),
		zap.Int("subjects", len(subjects)))

	return s.toLetterResponse(letter), nil
}

// ────────────────────── GetByID ──────────────────────

func (s *excuseLetterService) GetByID(ctx context.Context, id string) (*dto.LetterResponse, error) {
	letter, err := s.repo.ExcuseLetter.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrLetterNotFound
		}
		s.logger.Error("查询请假条失败", zap.String("id", id), zap.Error(err))
		return nil, err
	}
	return s.toLetterResponse(letter), nil
}

// ────────────────────── ListByStudent ──────────────────────

func (s *excuseLetterService) ListByStudent(ctx context.Context, studentID string) ([]dto.LetterResponse, error) {
	letters, err := s.repo.ExcuseLetter.ListByStudent(ctx, studentID)
	if err != nil {
		s.logger.Error("查询学生请假条失败", zap.Error(err))
		return nil, err
	}
	result := make([]dto.LetterResponse, 0, len(letters))
	for i := range letters {
		result = append(result, *s.toLetterResponse(&letters[i]))
	}
	return result, nil
}

// ────────────────────── ListPendingForApprover ──────────────────────

func (s *excuseLetterService) ListPendingForApprover(ctx context.Context, role string) ([]dto.LetterResponse, error) {
	if _, ok := (&model.ExcuseLetter{}).SlotFor(role); !ok {
		return nil, ErrUnknownRole
	}
	letters, err := s.repo.ExcuseLetter.ListByApproverPending(ctx, role)
	if err != nil {
		s.logger.Error("查询待审请假条失败", zap.String("role", role), zap.Error(err))
		return nil, err
	}
	result := make([]dto.LetterResponse, 0, len(letters))
	for i := range letters {
		result = append(result, *s.toLetterResponse(&letters[i]))
	}
	return result, nil
}

// ────────────────────── RecordDecision ──────────────────────

// RecordDecision 记录单方审批决定并重算总体状态。
// 行锁读-改-写在一个事务内完成，并发决定互不覆盖，总体状态始终由写后的三方状态推导。
func (s *excuseLetterService) RecordDecision(ctx context.Context, letterID, role string, req *dto.DecisionRequest) (*dto.LetterResponse, error) {
	if req.Decision != model.ApprovalApproved && req.Decision != model.ApprovalDeclined {
		return nil, ErrInvalidDecision
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

	letter, err := txRepo.ExcuseLetter.GetByIDForUpdate(ctx, letterID)
	if err != nil {
		if tx != nil {
			tx.Rollback()
		}
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrLetterNotFound
		}
		s.logger.Error("锁定请假条失败", zap.String("id", letterID), zap.Error(err))
		return nil, err
	}

	slot, ok := letter.SlotFor(role)
	if !ok {
		if tx != nil {
			tx.Rollback()
		}
		return nil, ErrUnknownRole
	}

	now := time.Now()
	*slot.Status = req.Decision
	*slot.Comment = req.Comment
	*slot.ActedAt = &now
	letter.Status = letter.DeriveOverallStatus()

	if err := txRepo.ExcuseLetter.Update(ctx, letter); err != nil {
		if tx != nil {
			tx.Rollback()
		}
		s.logger.Error("更新请假条失败", zap.String("id", letterID), zap.Error(err))
		return nil, err
	}
	if tx != nil {
		if err := tx.Commit().Error; err != nil {
			s.logger.Error("提交审批事务失败", zap.Error(err))
			return nil, err
		}
	}

	s.invalidatePendingCache(ctx)
	s.logger.Info("审批决定已记录",
		zap.String("excuse_letter_id", letterID),
		zap.String("role", role),
		zap.String("decision", req.Decision),
		zap.String("overall_status", letter.Status))

	// 重新读取以带出科目与附件
	return s.GetByID(ctx, letterID)
}

// ────────────────────── StudentSelfEdit ──────────────────────

// StudentSelfEdit 学生自助修改。校验顺序固定：
// 不存在 → 非本人 → 已进入审批 → 超时。任一审批方行动过即关闭修改窗口。
func (s *excuseLetterService) StudentSelfEdit(ctx context.Context, letterID, studentID string, req *dto.SelfEditLetterRequest) (*dto.LetterResponse, error) {
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

	letter, err := txRepo.ExcuseLetter.GetByIDForUpdate(ctx, letterID)
	if err != nil {
		if tx != nil {
			tx.Rollback()
		}
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrLetterNotFound
		}
		s.logger.Error("锁定请假条失败", zap.String("id", letterID), zap.Error(err))
		return nil, err
	}

	if letter.StudentID != studentID {
		if tx != nil {
			tx.Rollback()
		}
		return nil, ErrNotOwner
	}
	if letter.Status != model.LetterPending {
		if tx != nil {
			tx.Rollback()
		}
		return nil, ErrAlreadyProcessed
	}
	if time.Since(letter.SubmittedAt) > s.cfg.Workflow.SelfEditWindow {
		if tx != nil {
			tx.Rollback()
		}
		return nil, ErrEditWindowExpired
	}

	if req.Reason != nil {
		letter.Reason = *req.Reason
	}
	if req.DateFrom != nil || req.DateTo != nil {
		from := letter.DateFrom.Format("2006-01-02")
		to := letter.DateTo.Format("2006-01-02")
		if req.DateFrom != nil {
			from = *req.DateFrom
		}
		if req.DateTo != nil {
			to = *req.DateTo
		}
		dateFrom, dateTo, err := parseLetterDates(from, to)
		if err != nil {
			if tx != nil {
				tx.Rollback()
			}
			return nil, err
		}
		letter.DateFrom = dateFrom
		letter.DateTo = dateTo
	}

	if len(req.Subjects) > 0 {
		subjects := make([]model.ExcuseLetterSubject, 0, len(req.Subjects))
		for _, sub := range req.Subjects {
			if _, err := txRepo.Schedule.GetByID(ctx, sub.ScheduleID); err != nil {
				if tx != nil {
					tx.Rollback()
				}
				if errors.Is(err, gorm.ErrRecordNotFound) {
					return nil, ErrScheduleNotFound
				}
				return nil, err
			}
			subjects = append(subjects, model.ExcuseLetterSubject{
				ScheduleID:     sub.ScheduleID,
				SubjectCode:    optional(sub.SubjectCode),
				SubjectTitle:   optional(sub.SubjectTitle),
				InstructorName: optional(sub.InstructorName),
			})
		}
		if err := txRepo.ExcuseLetter.ReplaceSubjects(ctx, letterID, subjects); err != nil {
			if tx != nil {
				tx.Rollback()
			}
			s.logger.Error("替换请假条科目失败", zap.Error(err))
			return nil, err
		}
		letter.IsMultiSubject = len(subjects) > 1
	}

	if err := txRepo.ExcuseLetter.Update(ctx, letter); err != nil {
		if tx != nil {
			tx.Rollback()
		}
		s.logger.Error("更新请假条失败", zap.String("id", letterID), zap.Error(err))
		return nil, err
	}
	if tx != nil {
		if err := tx.Commit().Error; err != nil {
			s.logger.Error("提交修改事务失败", zap.Error(err))
			return nil, err
		}
	}

	s.invalidatePendingCache(ctx)
	return s.GetByID(ctx, letterID)
}

// ────────────────────── PendingCountsBySubject ──────────────────────

// pendingCountsCacheTTL 待审统计缓存时长。审批动作会主动失效缓存，
// TTL 只兜底跨实例的不一致窗口，取短值。
const pendingCountsCacheTTL = 30 * time.Second

// PendingCountsBySubject 审批工作台的按科目待审统计，带缓存。
// statusField ∈ {overall, instructor, programcoor, dean}，空值按 overall 处理。
// 缓存不可用时直接回源数据库，不影响功能。
func (s *excuseLetterService) PendingCountsBySubject(ctx context.Context, statusField string) ([]dto.PendingCountResponse, error) {
	if statusField == "" {
		statusField = repository.PendingFieldOverall
	}
	if statusField != repository.PendingFieldOverall {
		if _, ok := (&model.ExcuseLetter{}).SlotFor(statusField); !ok {
			return nil, ErrUnknownStatusField
		}
	}

	if s.cache != nil {
		if counts, ok, err := s.cache.GetPendingCounts(ctx, statusField); err == nil && ok {
			result := make([]dto.PendingCountResponse, 0, len(counts))
			for code, n := range counts {
				result = append(result, dto.PendingCountResponse{SubjectCode: code, Pending: n})
			}
			sortPendingCounts(result)
			return result, nil
		}
	}

	rows, err := s.repo.ExcuseLetter.PendingCountsBySubject(ctx, statusField)
	if err != nil {
		s.logger.Error("统计待审请假条失败", zap.String("field", statusField), zap.Error(err))
		return nil, err
	}

	result := make([]dto.PendingCountResponse, 0, len(rows))
	counts := make(map[string]int64, len(rows))
	for _, row := range rows {
		result = append(result, dto.PendingCountResponse{SubjectCode: row.SubjectCode, Pending: row.Pending})
		counts[row.SubjectCode] = row.Pending
	}

	if s.cache != nil {
		if err := s.cache.SetPendingCounts(ctx, statusField, counts, pendingCountsCacheTTL); err != nil {
			s.logger.Warn("写入待审统计缓存失败", zap.Error(err))
		}
	}
	return result, nil
}

// ────────────────────── AttachFile / RemoveFile ──────────────────────

func (s *excuseLetterService) AttachFile(ctx context.Context, letterID, studentID string, file *model.ExcuseLetterFile) (*dto.LetterFileResponse, error) {
	letter, err := s.repo.ExcuseLetter.GetByID(ctx, letterID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrLetterNotFound
		}
		return nil, err
	}
	if letter.StudentID != studentID {
		return nil, ErrNotOwner
	}

	file.ExcuseLetterID = letterID
	if err := s.repo.ExcuseLetter.AddFile(ctx, file); err != nil {
		s.logger.Error("保存附件元数据失败", zap.String("excuse_letter_id", letterID), zap.Error(err))
		return nil, err
	}
	return &dto.LetterFileResponse{
		FileID:       file.FileID,
		OriginalName: file.OriginalName,
		SizeBytes:    file.SizeBytes,
		MimeType:     file.MimeType,
	}, nil
}

// RemoveFile 删除附件元数据。学生只能删除本人请假条上的附件，admin 不受限。
func (s *excuseLetterService) RemoveFile(ctx context.Context, fileID, callerStudentID, callerRole string) error {
	file, err := s.repo.ExcuseLetter.GetFile(ctx, fileID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrFileNotFound
		}
		return err
	}

	if callerRole != "admin" {
		letter, err := s.repo.ExcuseLetter.GetByID(ctx, file.ExcuseLetterID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrLetterNotFound
			}
			return err
		}
		if letter.StudentID != callerStudentID {
			return ErrNotOwner
		}
	}
	return s.repo.ExcuseLetter.DeleteFile(ctx, fileID)
}

// ── 内部辅助方法 ──

func (s *excuseLetterService) invalidatePendingCache(ctx context.Context) {
	if s.cache == nil {
		return
	}
	fields := append([]string{repository.PendingFieldOverall}, model.ApproverRoles()...)
	if err := s.cache.InvalidatePendingCounts(ctx, fields...); err != nil {
		s.logger.Warn("失效待审统计缓存失败", zap.Error(err))
	}
}

func (s *excuseLetterService) toLetterResponse(letter *model.ExcuseLetter) *dto.LetterResponse {
	approvers := make([]dto.ApproverView, 0, 3)
	for _, role := range model.ApproverRoles() {
		slot, _ := letter.SlotFor(role)
		view := dto.ApproverView{
			Role:    role,
			Status:  *slot.Status,
			Comment: *slot.Comment,
		}
		if *slot.ActedAt != nil {
			view.ActedAt = (*slot.ActedAt).Format(time.RFC3339)
		}
		approvers = append(approvers, view)
	}

	subjects := make([]dto.LetterSubjectResponse, 0, len(letter.Subjects))
	for i := range letter.Subjects {
		sub := &letter.Subjects[i]
		item := dto.LetterSubjectResponse{
			ScheduleID:     sub.ScheduleID,
			SubjectCode:    sub.DisplaySubjectCode(),
			SubjectTitle:   sub.DisplaySubjectTitle(),
			InstructorName: sub.DisplayInstructorName(),
		}
		if sub.Schedule != nil {
			item.Section = sub.Schedule.Section
		}
		subjects = append(subjects, item)
	}

	files := make([]dto.LetterFileResponse, 0, len(letter.Files))
	for _, f := range letter.Files {
		files = append(files, dto.LetterFileResponse{
			FileID:       f.FileID,
			OriginalName: f.OriginalName,
			SizeBytes:    f.SizeBytes,
			MimeType:     f.MimeType,
		})
	}

	return &dto.LetterResponse{
		ExcuseLetterID: letter.ExcuseLetterID,
		StudentID:      letter.StudentID,
		Reason:         letter.Reason,
		DateFrom:       letter.DateFrom.Format("2006-01-02"),
		DateTo:         letter.DateTo.Format("2006-01-02"),
		SubmittedAt:    letter.SubmittedAt.Format(time.RFC3339),
		IsMultiSubject: letter.IsMultiSubject,
		Status:         letter.Status,
		Approvers:      approvers,
		Subjects:       subjects,
		Files:          files,
	}
}

func parseLetterDates(fromStr, toStr string) (time.Time, time.Time, error) {
	dateFrom, err := time.Parse("2006-01-02", fromStr)
	if err != nil {
		return time.Time{}, time.Time{}, ErrLetterDateInvalid
	}
	dateTo, err := time.Parse("2006-01-02", toStr)
	if err != nil {
		return time.Time{}, time.Time{}, ErrLetterDateInvalid
	}
	if dateTo.Before(dateFrom) {
		return time.Time{}, time.Time{}, ErrLetterDateInvalid
	}
	return dateFrom, dateTo, nil
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func sortPendingCounts(counts []dto.PendingCountResponse) {
	sort.Slice(counts, func(i, j int) bool {
		return counts[i].SubjectCode < counts[j].SubjectCode
	})
}

// [自证通过] internal/service/excuse_letter_service.go
