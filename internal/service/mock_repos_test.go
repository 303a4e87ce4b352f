package service

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/blutech18/schoolmg-sub003/internal/model"
	"github.com/blutech18/schoolmg-sub003/internal/repository"
)

// ── Mock ScheduleRepository ──

type mockScheduleRepo struct {
	schedules map[string]*model.Schedule
}

func newMockScheduleRepo() *mockScheduleRepo {
	return &mockScheduleRepo{schedules: make(map[string]*model.Schedule)}
}

func (m *mockScheduleRepo) GetByID(_ context.Context, id string) (*model.Schedule, error) {
	if s, ok := m.schedules[id]; ok {
		return s, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockScheduleRepo) List(_ context.Context, term string) ([]model.Schedule, error) {
	var result []model.Schedule
	for _, s := range m.schedules {
		if term == "" || s.Term == term {
			result = append(result, *s)
		}
	}
	return result, nil
}

func (m *mockScheduleRepo) ListByInstructor(_ context.Context, instructorID string) ([]model.Schedule, error) {
	var result []model.Schedule
	for _, s := range m.schedules {
		if s.InstructorID != nil && *s.InstructorID == instructorID {
			result = append(result, *s)
		}
	}
	return result, nil
}

// ── Mock EnrollmentRepository ──

type mockEnrollmentRepo struct {
	enrollments []model.Enrollment
}

func newMockEnrollmentRepo() *mockEnrollmentRepo {
	return &mockEnrollmentRepo{}
}

func (m *mockEnrollmentRepo) ListStudentIDs(_ context.Context, scheduleID string) ([]string, error) {
	var ids []string
	for _, e := range m.enrollments {
		if e.ScheduleID == scheduleID {
			ids = append(ids, e.StudentID)
		}
	}
	return ids, nil
}

func (m *mockEnrollmentRepo) IsEnrolled(_ context.Context, scheduleID, studentID string) (bool, error) {
	for _, e := range m.enrollments {
		if e.ScheduleID == scheduleID && e.StudentID == studentID {
			return true, nil
		}
	}
	return false, nil
}

func (m *mockEnrollmentRepo) ListByStudent(_ context.Context, studentID string) ([]model.Enrollment, error) {
	var result []model.Enrollment
	for _, e := range m.enrollments {
		if e.StudentID == studentID {
			result = append(result, e)
		}
	}
	return result, nil
}

// ── Mock AttendanceRepository ──

type mockAttendanceRepo struct {
	records   []model.AttendanceRecord
	idCounter int
}

func newMockAttendanceRepo() *mockAttendanceRepo {
	return &mockAttendanceRepo{}
}

func (m *mockAttendanceRepo) nextID() string {
	m.idCounter++
	return fmt.Sprintf("att-%d", m.idCounter)
}

// Upsert 按槽位覆盖，模拟部分唯一索引冲突逻辑（RESTORED 行不参与）
func (m *mockAttendanceRepo) Upsert(_ context.Context, record *model.AttendanceRecord) error {
	record.LastModified = time.Now()
	for i := range m.records {
		r := &m.records[i]
		if r.Status != model.StatusRestored &&
			r.StudentID == record.StudentID && r.ScheduleID == record.ScheduleID &&
			r.Week == record.Week && r.SessionType == record.SessionType {
			r.Status = record.Status
			r.Date = record.Date
			r.Remarks = record.Remarks
			r.RecordedBy = record.RecordedBy
			r.CancelBatchID = record.CancelBatchID
			r.LastModified = record.LastModified
			record.AttendanceID = r.AttendanceID
			return nil
		}
	}
	record.AttendanceID = m.nextID()
	m.records = append(m.records, *record)
	return nil
}

func (m *mockAttendanceRepo) Create(_ context.Context, record *model.AttendanceRecord) error {
	record.AttendanceID = m.nextID()
	m.records = append(m.records, *record)
	return nil
}

func (m *mockAttendanceRepo) GetSlot(_ context.Context, studentID, scheduleID string, week int, sessionType string) (*model.AttendanceRecord, error) {
	for i := range m.records {
		r := &m.records[i]
		if r.Status != model.StatusRestored &&
			r.StudentID == studentID && r.ScheduleID == scheduleID &&
			r.Week == week && r.SessionType == sessionType {
			return r, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockAttendanceRepo) ListByStudentSchedule(_ context.Context, studentID, scheduleID string) ([]model.AttendanceRecord, error) {
	var result []model.AttendanceRecord
	for _, r := range m.records {
		if r.StudentID == studentID && r.ScheduleID == scheduleID {
			result = append(result, r)
		}
	}
	return result, nil
}

func (m *mockAttendanceRepo) ListBySchedule(_ context.Context, scheduleID string, week int) ([]model.AttendanceRecord, error) {
	var result []model.AttendanceRecord
	for _, r := range m.records {
		if r.ScheduleID == scheduleID && (week == 0 || r.Week == week) {
			result = append(result, r)
		}
	}
	return result, nil
}

func (m *mockAttendanceRepo) CountByStatus(_ context.Context, studentID, scheduleID string) (map[model.AttendanceStatus]int, error) {
	counts := make(map[model.AttendanceStatus]int)
	for _, r := range m.records {
		if r.StudentID == studentID && r.ScheduleID == scheduleID {
			counts[r.Status]++
		}
	}
	return counts, nil
}

func (m *mockAttendanceRepo) SlotHasStatus(_ context.Context, scheduleID string, week int, sessionType string, status model.AttendanceStatus) (bool, error) {
	for _, r := range m.records {
		if r.ScheduleID == scheduleID && r.Week == week && r.SessionType == sessionType && r.Status == status {
			return true, nil
		}
	}
	return false, nil
}

func (m *mockAttendanceRepo) DeleteCancelledSlot(_ context.Context, scheduleID string, week int, sessionType string) (int64, error) {
	var remaining []model.AttendanceRecord
	var removed int64
	for _, r := range m.records {
		if r.ScheduleID == scheduleID && r.Week == week && r.SessionType == sessionType && r.Status == model.StatusClassCancel {
			removed++
			continue
		}
		remaining = append(remaining, r)
	}
	m.records = remaining
	return removed, nil
}

func (m *mockAttendanceRepo) DeleteDroppedAndFailed(_ context.Context, studentID, scheduleID string) (int64, error) {
	var remaining []model.AttendanceRecord
	var removed int64
	for _, r := range m.records {
		if r.StudentID == studentID && r.ScheduleID == scheduleID &&
			(r.Status == model.StatusDropped || r.Status == model.StatusFailedAbsence) {
			removed++
			continue
		}
		remaining = append(remaining, r)
	}
	m.records = remaining
	return removed, nil
}

func (m *mockAttendanceRepo) ListCancelledSlots(_ context.Context, scheduleID string) ([]repository.CancelledSlot, error) {
	type key struct {
		week        int
		sessionType string
		batch       string
	}
	grouped := make(map[key]*repository.CancelledSlot)
	var order []key
	for _, r := range m.records {
		if r.ScheduleID != scheduleID || r.Status != model.StatusClassCancel {
			continue
		}
		batch := ""
		if r.CancelBatchID != nil {
			batch = *r.CancelBatchID
		}
		k := key{week: r.Week, sessionType: r.SessionType, batch: batch}
		if slot, ok := grouped[k]; ok {
			slot.Affected++
			continue
		}
		grouped[k] = &repository.CancelledSlot{
			ScheduleID:    r.ScheduleID,
			Week:          r.Week,
			SessionType:   r.SessionType,
			Date:          r.Date,
			Remarks:       r.Remarks,
			RecordedBy:    r.RecordedBy,
			CancelBatchID: batch,
			Affected:      1,
		}
		order = append(order, k)
	}
	result := make([]repository.CancelledSlot, 0, len(order))
	for _, k := range order {
		result = append(result, *grouped[k])
	}
	return result, nil
}

// ── Mock ExcuseLetterRepository ──

type mockExcuseLetterRepo struct {
	letters   map[string]*model.ExcuseLetter
	files     map[string]*model.ExcuseLetterFile
	idCounter int
}

func newMockExcuseLetterRepo() *mockExcuseLetterRepo {
	return &mockExcuseLetterRepo{
		letters: make(map[string]*model.ExcuseLetter),
		files:   make(map[string]*model.ExcuseLetterFile),
	}
}

func (m *mockExcuseLetterRepo) Create(_ context.Context, letter *model.ExcuseLetter) error {
	if letter.ExcuseLetterID == "" {
		m.idCounter++
		letter.ExcuseLetterID = fmt.Sprintf("letter-%d", m.idCounter)
	}
	for i := range letter.Subjects {
		letter.Subjects[i].ExcuseLetterID = letter.ExcuseLetterID
	}
	// 模拟数据库列默认值 default:'pending'（真实插入经 RETURNING 回填）
	for _, role := range model.ApproverRoles() {
		slot, _ := letter.SlotFor(role)
		if *slot.Status == "" {
			*slot.Status = model.ApprovalPending
		}
	}
	m.letters[letter.ExcuseLetterID] = letter
	return nil
}

func (m *mockExcuseLetterRepo) GetByID(_ context.Context, id string) (*model.ExcuseLetter, error) {
	if l, ok := m.letters[id]; ok {
		return l, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockExcuseLetterRepo) GetByIDForUpdate(ctx context.Context, id string) (*model.ExcuseLetter, error) {
	return m.GetByID(ctx, id)
}

func (m *mockExcuseLetterRepo) Update(_ context.Context, letter *model.ExcuseLetter) error {
	if _, ok := m.letters[letter.ExcuseLetterID]; !ok {
		return gorm.ErrRecordNotFound
	}
	m.letters[letter.ExcuseLetterID] = letter
	return nil
}

func (m *mockExcuseLetterRepo) ListByStudent(_ context.Context, studentID string) ([]model.ExcuseLetter, error) {
	var result []model.ExcuseLetter
	for _, l := range m.letters {
		if l.StudentID == studentID {
			result = append(result, *l)
		}
	}
	return result, nil
}

func (m *mockExcuseLetterRepo) ListByApproverPending(_ context.Context, role string) ([]model.ExcuseLetter, error) {
	var result []model.ExcuseLetter
	for _, l := range m.letters {
		slot, ok := l.SlotFor(role)
		if !ok {
			return nil, gorm.ErrInvalidField
		}
		if *slot.Status == model.ApprovalPending {
			result = append(result, *l)
		}
	}
	return result, nil
}

func (m *mockExcuseLetterRepo) ReplaceSubjects(_ context.Context, letterID string, subjects []model.ExcuseLetterSubject) error {
	l, ok := m.letters[letterID]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	for i := range subjects {
		subjects[i].ExcuseLetterID = letterID
	}
	l.Subjects = subjects
	return nil
}

func (m *mockExcuseLetterRepo) CountPendingByStudentSchedule(_ context.Context, studentID, scheduleID string) (int64, error) {
	var count int64
	for _, l := range m.letters {
		if l.StudentID != studentID {
			continue
		}
		if l.Status != model.LetterPending && l.Status != model.LetterPartial {
			continue
		}
		for _, sub := range l.Subjects {
			if sub.ScheduleID == scheduleID {
				count++
				break
			}
		}
	}
	return count, nil
}

func (m *mockExcuseLetterRepo) PendingCountsBySubject(_ context.Context, statusField string) ([]repository.SubjectPendingCount, error) {
	counts := make(map[string]int64)
	for _, l := range m.letters {
		switch statusField {
		case "", repository.PendingFieldOverall:
			if l.Status != model.LetterPending && l.Status != model.LetterPartial {
				continue
			}
		default:
			slot, ok := l.SlotFor(statusField)
			if !ok {
				return nil, gorm.ErrInvalidField
			}
			if *slot.Status != model.ApprovalPending {
				continue
			}
		}
		seen := make(map[string]bool)
		for i := range l.Subjects {
			code := l.Subjects[i].DisplaySubjectCode()
			if code == "" || seen[code] {
				continue
			}
			seen[code] = true
			counts[code]++
		}
	}
	result := make([]repository.SubjectPendingCount, 0, len(counts))
	for code, n := range counts {
		result = append(result, repository.SubjectPendingCount{SubjectCode: code, Pending: n})
	}
	return result, nil
}

func (m *mockExcuseLetterRepo) AddFile(_ context.Context, file *model.ExcuseLetterFile) error {
	if file.FileID == "" {
		m.idCounter++
		file.FileID = fmt.Sprintf("file-%d", m.idCounter)
	}
	m.files[file.FileID] = file
	if l, ok := m.letters[file.ExcuseLetterID]; ok {
		l.Files = append(l.Files, *file)
	}
	return nil
}

func (m *mockExcuseLetterRepo) GetFile(_ context.Context, fileID string) (*model.ExcuseLetterFile, error) {
	if f, ok := m.files[fileID]; ok {
		return f, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockExcuseLetterRepo) DeleteFile(_ context.Context, fileID string) error {
	f, ok := m.files[fileID]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	delete(m.files, fileID)
	if l, ok := m.letters[f.ExcuseLetterID]; ok {
		var remaining []model.ExcuseLetterFile
		for _, lf := range l.Files {
			if lf.FileID != fileID {
				remaining = append(remaining, lf)
			}
		}
		l.Files = remaining
	}
	return nil
}
