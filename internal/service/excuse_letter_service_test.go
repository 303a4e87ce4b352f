package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/blutech18/schoolmg-sub003/internal/dto"
	"github.com/blutech18/schoolmg-sub003/internal/model"
	"github.com/blutech18/schoolmg-sub003/internal/repository"
)

// ── 测试辅助 ──

type letterFixture struct {
	svc       ExcuseLetterService
	schedules *mockScheduleRepo
	letters   *mockExcuseLetterRepo
}

func setupTestExcuseLetterService() *letterFixture {
	schedules := newMockScheduleRepo()
	letters := newMockExcuseLetterRepo()
	repo := &repository.Repository{
		Schedule:     schedules,
		Enrollment:   newMockEnrollmentRepo(),
		Attendance:   newMockAttendanceRepo(),
		ExcuseLetter: letters,
	}
	svc := NewExcuseLetterService(testWorkflowConfig(), repo, nil, zap.NewNop())
	return &letterFixture{svc: svc, schedules: schedules, letters: letters}
}

func (f *letterFixture) addSchedule(id, code string) {
	f.schedules.schedules[id] = &model.Schedule{
		ScheduleID:   id,
		SubjectCode:  code,
		SubjectTitle: "课程 " + code,
		Section:      "BSIT-3B",
		Term:         "2026-1",
	}
}

func (f *letterFixture) submitLetter(t *testing.T, studentID string, scheduleIDs ...string) *dto.LetterResponse {
	t.Helper()
	subjects := make([]dto.LetterSubjectInput, 0, len(scheduleIDs))
	for _, id := range scheduleIDs {
		input := dto.LetterSubjectInput{ScheduleID: id}
		if s, ok := f.schedules.schedules[id]; ok {
			input.SubjectCode = s.SubjectCode
		}
		subjects = append(subjects, input)
	}
	result, err := f.svc.Submit(context.Background(), &dto.SubmitLetterRequest{
		Reason:   "家中有事",
		DateFrom: "2026-09-10",
		DateTo:   "2026-09-11",
		Subjects: subjects,
	}, studentID)
	if err != nil {
		t.Fatalf("Submit 失败: %v", err)
	}
	return result
}

func decide(t *testing.T, svc ExcuseLetterService, letterID, role, decision string) *dto.LetterResponse {
	t.Helper()
	result, err := svc.RecordDecision(context.Background(), letterID, role, &dto.DecisionRequest{
		Decision: decision,
		Comment:  "测试意见",
	})
	if err != nil {
		t.Fatalf("RecordDecision(%s, %s) 失败: %v", role, decision, err)
	}
	return result
}

// ── Submit 测试 ──

func TestExcuseLetterService_Submit_SingleSubject(t *testing.T) {
	f := setupTestExcuseLetterService()
	f.addSchedule("sched-1", "CS101")

	result := f.submitLetter(t, "stu-1", "sched-1")
	if result.Status != model.LetterPending {
		t.Errorf("新提交请假条应为 pending，实际 %s", result.Status)
	}
	if result.IsMultiSubject {
		t.Error("单科请假条不应标记多科目")
	}
	if len(result.Approvers) != 3 {
		t.Fatalf("期望 3 个审批方，实际 %d", len(result.Approvers))
	}
	for _, a := range result.Approvers {
		if a.Status != model.ApprovalPending {
			t.Errorf("审批方 %s 初始状态应为 pending，实际 %s", a.Role, a.Status)
		}
	}
}

func TestExcuseLetterService_Submit_MultiSubject(t *testing.T) {
	f := setupTestExcuseLetterService()
	f.addSchedule("sched-1", "CS101")
	f.addSchedule("sched-2", "MATH201")

	result := f.submitLetter(t, "stu-1", "sched-1", "sched-2")
	if !result.IsMultiSubject {
		t.Error("多科请假条应标记 is_multi_subject")
	}
	if len(result.Subjects) != 2 {
		t.Errorf("期望 2 个科目行，实际 %d", len(result.Subjects))
	}
}

func TestExcuseLetterService_Submit_UnknownSchedule(t *testing.T) {
	f := setupTestExcuseLetterService()

	_, err := f.svc.Submit(context.Background(), &dto.SubmitLetterRequest{
		Reason:   "理由",
		DateFrom: "2026-09-10",
		DateTo:   "2026-09-11",
		Subjects: []dto.LetterSubjectInput{{ScheduleID: "no-such"}},
	}, "stu-1")
	if !errors.Is(err, ErrScheduleNotFound) {
		t.Errorf("期望 ErrScheduleNotFound，实际: %v", err)
	}
}

func TestExcuseLetterService_Submit_InvalidDateRange(t *testing.T) {
	f := setupTestExcuseLetterService()
	f.addSchedule("sched-1", "CS101")

	_, err := f.svc.Submit(context.Background(), &dto.SubmitLetterRequest{
		Reason:   "理由",
		DateFrom: "2026-09-12",
		DateTo:   "2026-09-10",
		Subjects: []dto.LetterSubjectInput{{ScheduleID: "sched-1"}},
	}, "stu-1")
	if !errors.Is(err, ErrLetterDateInvalid) {
		t.Errorf("期望 ErrLetterDateInvalid，实际: %v", err)
	}
}

// ── RecordDecision 测试 ──

func TestExcuseLetterService_RecordDecision_UnknownRole(t *testing.T) {
	f := setupTestExcuseLetterService()
	f.addSchedule("sched-1", "CS101")
	letter := f.submitLetter(t, "stu-1", "sched-1")

	_, err := f.svc.RecordDecision(context.Background(), letter.ExcuseLetterID, "registrar", &dto.DecisionRequest{
		Decision: model.ApprovalApproved,
	})
	if !errors.Is(err, ErrUnknownRole) {
		t.Errorf("期望 ErrUnknownRole，实际: %v", err)
	}
}

func TestExcuseLetterService_RecordDecision_NotFound(t *testing.T) {
	f := setupTestExcuseLetterService()

	_, err := f.svc.RecordDecision(context.Background(), "no-such", model.RoleDean, &dto.DecisionRequest{
		Decision: model.ApprovalApproved,
	})
	if !errors.Is(err, ErrLetterNotFound) {
		t.Errorf("期望 ErrLetterNotFound，实际: %v", err)
	}
}

func TestExcuseLetterService_OverallStatus_AllApproved(t *testing.T) {
	f := setupTestExcuseLetterService()
	f.addSchedule("sched-1", "CS101")
	letter := f.submitLetter(t, "stu-1", "sched-1")

	decide(t, f.svc, letter.ExcuseLetterID, model.RoleInstructor, model.ApprovalApproved)
	partial := decide(t, f.svc, letter.ExcuseLetterID, model.RoleCoordinator, model.ApprovalApproved)
	if partial.Status != model.LetterPartial {
		t.Errorf("两方批准后应为 partial，实际 %s", partial.Status)
	}
	final := decide(t, f.svc, letter.ExcuseLetterID, model.RoleDean, model.ApprovalApproved)
	if final.Status != model.LetterApproved {
		t.Errorf("三方全部批准应为 approved，实际 %s", final.Status)
	}
}

func TestExcuseLetterService_OverallStatus_OrderIndependent(t *testing.T) {
	// {instructor: approved, dean: declined, coordinator: approved}
	// 以任意顺序到达，最终总体状态都应为 declined
	orders := [][]struct {
		role     string
		decision string
	}{
		{{model.RoleInstructor, "approved"}, {model.RoleDean, "declined"}, {model.RoleCoordinator, "approved"}},
		{{model.RoleDean, "declined"}, {model.RoleCoordinator, "approved"}, {model.RoleInstructor, "approved"}},
		{{model.RoleCoordinator, "approved"}, {model.RoleInstructor, "approved"}, {model.RoleDean, "declined"}},
	}

	for i, order := range orders {
		f := setupTestExcuseLetterService()
		f.addSchedule("sched-1", "CS101")
		letter := f.submitLetter(t, "stu-1", "sched-1")

		var last *dto.LetterResponse
		for _, step := range order {
			last = decide(t, f.svc, letter.ExcuseLetterID, step.role, step.decision)
		}
		if last.Status != model.LetterDeclined {
			t.Errorf("顺序 %d: 期望最终状态 declined，实际 %s", i, last.Status)
		}
	}
}

// ── StudentSelfEdit 测试 ──

func TestExcuseLetterService_SelfEdit_Success(t *testing.T) {
	f := setupTestExcuseLetterService()
	f.addSchedule("sched-1", "CS101")
	letter := f.submitLetter(t, "stu-1", "sched-1")

	newReason := "补充：附医院证明"
	result, err := f.svc.StudentSelfEdit(context.Background(), letter.ExcuseLetterID, "stu-1", &dto.SelfEditLetterRequest{
		Reason: &newReason,
	})
	if err != nil {
		t.Fatalf("SelfEdit 应成功: %v", err)
	}
	if result.Reason != newReason {
		t.Errorf("期望理由被更新，实际 %s", result.Reason)
	}
	if result.Status != model.LetterPending {
		t.Errorf("自助修改不应改变总体状态，实际 %s", result.Status)
	}
}

func TestExcuseLetterService_SelfEdit_NotFound(t *testing.T) {
	f := setupTestExcuseLetterService()

	reason := "x"
	_, err := f.svc.StudentSelfEdit(context.Background(), "no-such", "stu-1", &dto.SelfEditLetterRequest{Reason: &reason})
	if !errors.Is(err, ErrLetterNotFound) {
		t.Errorf("期望 ErrLetterNotFound，实际: %v", err)
	}
}

func TestExcuseLetterService_SelfEdit_NotOwner(t *testing.T) {
	f := setupTestExcuseLetterService()
	f.addSchedule("sched-1", "CS101")
	letter := f.submitLetter(t, "stu-1", "sched-1")

	reason := "x"
	_, err := f.svc.StudentSelfEdit(context.Background(), letter.ExcuseLetterID, "stu-2", &dto.SelfEditLetterRequest{Reason: &reason})
	if !errors.Is(err, ErrNotOwner) {
		t.Errorf("期望 ErrNotOwner，实际: %v", err)
	}
}

func TestExcuseLetterService_SelfEdit_ClosedByAnyApproverAction(t *testing.T) {
	f := setupTestExcuseLetterService()
	f.addSchedule("sched-1", "CS101")
	letter := f.submitLetter(t, "stu-1", "sched-1")

	// 仅一方批准 → partial，其余两方仍 pending，窗口应立即关闭
	decide(t, f.svc, letter.ExcuseLetterID, model.RoleInstructor, model.ApprovalApproved)

	reason := "x"
	_, err := f.svc.StudentSelfEdit(context.Background(), letter.ExcuseLetterID, "stu-1", &dto.SelfEditLetterRequest{Reason: &reason})
	if !errors.Is(err, ErrAlreadyProcessed) {
		t.Errorf("期望 ErrAlreadyProcessed，实际: %v", err)
	}
}

func TestExcuseLetterService_SelfEdit_WindowBoundary(t *testing.T) {
	f := setupTestExcuseLetterService()
	f.addSchedule("sched-1", "CS101")
	reason := "x"

	// 提交后 23h59m：仍可修改
	letter := f.submitLetter(t, "stu-1", "sched-1")
	f.letters.letters[letter.ExcuseLetterID].SubmittedAt = time.Now().Add(-(23*time.Hour + 59*time.Minute))
	if _, err := f.svc.StudentSelfEdit(context.Background(), letter.ExcuseLetterID, "stu-1", &dto.SelfEditLetterRequest{Reason: &reason}); err != nil {
		t.Errorf("23h59m 内修改应成功: %v", err)
	}

	// 提交后 24h00m01s：窗口已过
	letter2 := f.submitLetter(t, "stu-1", "sched-1")
	f.letters.letters[letter2.ExcuseLetterID].SubmittedAt = time.Now().Add(-(24*time.Hour + time.Second))
	_, err := f.svc.StudentSelfEdit(context.Background(), letter2.ExcuseLetterID, "stu-1", &dto.SelfEditLetterRequest{Reason: &reason})
	if !errors.Is(err, ErrEditWindowExpired) {
		t.Errorf("期望 ErrEditWindowExpired，实际: %v", err)
	}
}

// 完整场景：提交 → 教师批准(partial) → 学生修改被拒 → 院长拒绝(declined)
func TestExcuseLetterService_ApprovalScenario(t *testing.T) {
	f := setupTestExcuseLetterService()
	f.addSchedule("sched-1", "CS101")
	letter := f.submitLetter(t, "stu-1", "sched-1")

	partial := decide(t, f.svc, letter.ExcuseLetterID, model.RoleInstructor, model.ApprovalApproved)
	if partial.Status != model.LetterPartial {
		t.Fatalf("教师批准后应为 partial，实际 %s", partial.Status)
	}

	reason := "想补充理由"
	if _, err := f.svc.StudentSelfEdit(context.Background(), letter.ExcuseLetterID, "stu-1", &dto.SelfEditLetterRequest{Reason: &reason}); !errors.Is(err, ErrAlreadyProcessed) {
		t.Fatalf("partial 状态下修改应被拒: %v", err)
	}

	final := decide(t, f.svc, letter.ExcuseLetterID, model.RoleDean, model.ApprovalDeclined)
	if final.Status != model.LetterDeclined {
		t.Errorf("院长拒绝应覆盖先前批准，期望 declined，实际 %s", final.Status)
	}
}

// ── PendingCountsBySubject 测试 ──

func TestExcuseLetterService_PendingCountsBySubject(t *testing.T) {
	f := setupTestExcuseLetterService()
	f.addSchedule("sched-1", "CS101")
	f.addSchedule("sched-2", "MATH201")

	f.submitLetter(t, "stu-1", "sched-1")
	f.submitLetter(t, "stu-2", "sched-1")
	letter3 := f.submitLetter(t, "stu-3", "sched-2")

	// 一张走完全部审批流程的不再计入
	decide(t, f.svc, letter3.ExcuseLetterID, model.RoleInstructor, model.ApprovalDeclined)

	counts, err := f.svc.PendingCountsBySubject(context.Background(), "")
	if err != nil {
		t.Fatalf("PendingCountsBySubject 失败: %v", err)
	}
	got := make(map[string]int64)
	for _, c := range counts {
		got[c.SubjectCode] = c.Pending
	}
	if got["CS101"] != 2 {
		t.Errorf("CS101 期望 2 张待审，实际 %d", got["CS101"])
	}
	if got["MATH201"] != 0 {
		t.Errorf("已拒绝的请假条不应计入，MATH201 实际 %d", got["MATH201"])
	}
}

func TestExcuseLetterService_PendingCountsBySubject_PerApproverField(t *testing.T) {
	f := setupTestExcuseLetterService()
	f.addSchedule("sched-1", "CS101")

	letter1 := f.submitLetter(t, "stu-1", "sched-1")
	f.submitLetter(t, "stu-2", "sched-1")

	// 教师已处理一张 → instructor 维度只剩 1，dean 维度仍是 2
	decide(t, f.svc, letter1.ExcuseLetterID, model.RoleInstructor, model.ApprovalApproved)

	instructorCounts, err := f.svc.PendingCountsBySubject(context.Background(), model.RoleInstructor)
	if err != nil {
		t.Fatalf("instructor 维度统计失败: %v", err)
	}
	if len(instructorCounts) != 1 || instructorCounts[0].Pending != 1 {
		t.Errorf("instructor 维度期望 CS101=1，实际 %+v", instructorCounts)
	}

	deanCounts, err := f.svc.PendingCountsBySubject(context.Background(), model.RoleDean)
	if err != nil {
		t.Fatalf("dean 维度统计失败: %v", err)
	}
	if len(deanCounts) != 1 || deanCounts[0].Pending != 2 {
		t.Errorf("dean 维度期望 CS101=2，实际 %+v", deanCounts)
	}

	if _, err := f.svc.PendingCountsBySubject(context.Background(), "registrar"); !errors.Is(err, ErrUnknownStatusField) {
		t.Errorf("期望 ErrUnknownStatusField，实际: %v", err)
	}
}

// ── 附件测试 ──

func TestExcuseLetterService_AttachAndRemoveFile(t *testing.T) {
	f := setupTestExcuseLetterService()
	f.addSchedule("sched-1", "CS101")
	letter := f.submitLetter(t, "stu-1", "sched-1")

	file := &model.ExcuseLetterFile{
		StoredName:   "a1b2c3.pdf",
		OriginalName: "医院证明.pdf",
		SizeBytes:    2048,
		MimeType:     "application/pdf",
	}
	resp, err := f.svc.AttachFile(context.Background(), letter.ExcuseLetterID, "stu-1", file)
	if err != nil {
		t.Fatalf("AttachFile 应成功: %v", err)
	}
	if resp.FileID == "" {
		t.Fatal("附件 ID 不应为空")
	}

	// 非本人不能删除
	if err := f.svc.RemoveFile(context.Background(), resp.FileID, "stu-2", "student"); !errors.Is(err, ErrNotOwner) {
		t.Errorf("期望 ErrNotOwner，实际: %v", err)
	}
	if err := f.svc.RemoveFile(context.Background(), resp.FileID, "stu-1", "student"); err != nil {
		t.Errorf("本人删除附件应成功: %v", err)
	}
	if err := f.svc.RemoveFile(context.Background(), resp.FileID, "stu-1", "student"); !errors.Is(err, ErrFileNotFound) {
		t.Errorf("重复删除应报 ErrFileNotFound，实际: %v", err)
	}
}

func TestExcuseLetterService_RemoveFile_AdminBypassesOwnership(t *testing.T) {
	f := setupTestExcuseLetterService()
	f.addSchedule("sched-1", "CS101")
	letter := f.submitLetter(t, "stu-1", "sched-1")

	file := &model.ExcuseLetterFile{StoredName: "x.pdf", OriginalName: "x.pdf"}
	resp, err := f.svc.AttachFile(context.Background(), letter.ExcuseLetterID, "stu-1", file)
	if err != nil {
		t.Fatalf("AttachFile 应成功: %v", err)
	}
	if err := f.svc.RemoveFile(context.Background(), resp.FileID, "", "admin"); err != nil {
		t.Errorf("admin 删除附件应成功: %v", err)
	}
}
