package service

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/Chacatphol/FlowO/internal/model"
	"github.com/Chacatphol/FlowO/internal/repository"
	pkgerrors "github.com/Chacatphol/FlowO/pkg/errors"
)

// newMockRepository 组装全部 mock 仓储；未绑定数据库，runInTx 直接作用于该聚合
func newMockRepository() (*repository.Repository, *mockStore) {
	st := &mockStore{
		users:     newMockUserRepo(),
		subjects:  newMockSubjectRepo(),
		tasks:     newMockTaskRepo(),
		courses:   newMockCourseRepo(),
		overrides: newMockOverrideRepo(),
		notes:     newMockNotificationRepo(),
	}
	return &repository.Repository{
		User:         st.users,
		Subject:      st.subjects,
		Task:         st.tasks,
		Course:       st.courses,
		Override:     st.overrides,
		Notification: st.notes,
	}, st
}

type mockStore struct {
	users     *mockUserRepo
	subjects  *mockSubjectRepo
	tasks     *mockTaskRepo
	courses   *mockCourseRepo
	overrides *mockOverrideRepo
	notes     *mockNotificationRepo
}

var mockSeq int

func mockID(prefix string) string {
	mockSeq++
	return fmt.Sprintf("%s-%04d", prefix, mockSeq)
}

// ── Mock UserRepository ──

type mockUserRepo struct {
	users map[string]model.User
}

func newMockUserRepo() *mockUserRepo {
	return &mockUserRepo{users: make(map[string]model.User)}
}

func (m *mockUserRepo) Create(_ context.Context, user *model.User) error {
	if user.UserID == "" {
		user.UserID = mockID("user")
	}
	m.users[user.UserID] = *user
	return nil
}

func (m *mockUserRepo) GetByID(_ context.Context, id string) (*model.User, error) {
	if u, ok := m.users[id]; ok {
		return &u, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockUserRepo) GetByFirebaseUID(_ context.Context, uid string) (*model.User, error) {
	for _, u := range m.users {
		if u.FirebaseUID == uid {
			return &u, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockUserRepo) GetByShareToken(_ context.Context, token string) (*model.User, error) {
	for _, u := range m.users {
		if u.ShareEnabled && u.ShareToken != nil && *u.ShareToken == token {
			return &u, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockUserRepo) Update(_ context.Context, user *model.User) error {
	if _, ok := m.users[user.UserID]; !ok {
		return gorm.ErrRecordNotFound
	}
	m.users[user.UserID] = *user
	return nil
}

// ── Mock SubjectRepository ──

type mockSubjectRepo struct {
	subjects map[string]model.Subject
}

func newMockSubjectRepo() *mockSubjectRepo {
	return &mockSubjectRepo{subjects: make(map[string]model.Subject)}
}

func (m *mockSubjectRepo) Create(_ context.Context, subject *model.Subject) error {
	if subject.SubjectID == "" {
		subject.SubjectID = mockID("subject")
	}
	m.subjects[subject.SubjectID] = *subject
	return nil
}

func (m *mockSubjectRepo) BatchCreate(ctx context.Context, subjects []model.Subject) error {
	for i := range subjects {
		if err := m.Create(ctx, &subjects[i]); err != nil {
			return err
		}
	}
	return nil
}

func (m *mockSubjectRepo) GetByID(_ context.Context, userID, id string) (*model.Subject, error) {
	if s, ok := m.subjects[id]; ok && s.UserID == userID {
		return &s, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockSubjectRepo) ListByUser(_ context.Context, userID string) ([]model.Subject, error) {
	var result []model.Subject
	for _, s := range m.subjects {
		if s.UserID == userID {
			result = append(result, s)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Name < result[j].Name })
	return result, nil
}

func (m *mockSubjectRepo) Update(_ context.Context, subject *model.Subject) error {
	m.subjects[subject.SubjectID] = *subject
	return nil
}

func (m *mockSubjectRepo) Delete(_ context.Context, userID, id string) error {
	if s, ok := m.subjects[id]; ok && s.UserID == userID {
		delete(m.subjects, id)
	}
	return nil
}

func (m *mockSubjectRepo) DeleteByUser(_ context.Context, userID string) error {
	for id, s := range m.subjects {
		if s.UserID == userID {
			delete(m.subjects, id)
		}
	}
	return nil
}

// ── Mock TaskRepository ──

type mockTaskRepo struct {
	tasks map[string]model.Task
	now   func() time.Time
}

func newMockTaskRepo() *mockTaskRepo {
	return &mockTaskRepo{tasks: make(map[string]model.Task), now: time.Now}
}

func (m *mockTaskRepo) Create(_ context.Context, task *model.Task) error {
	if task.TaskID == "" {
		task.TaskID = mockID("task")
	}
	if task.CreatedAt.IsZero() {
		task.CreatedAt = m.now()
	}
	if task.UpdatedAt.IsZero() {
		task.UpdatedAt = task.CreatedAt
	}
	m.tasks[task.TaskID] = *task
	return nil
}

func (m *mockTaskRepo) BatchCreate(ctx context.Context, tasks []model.Task) error {
	for i := range tasks {
		if err := m.Create(ctx, &tasks[i]); err != nil {
			return err
		}
	}
	return nil
}

func (m *mockTaskRepo) GetByID(_ context.Context, userID, id string) (*model.Task, error) {
	if t, ok := m.tasks[id]; ok && t.UserID == userID {
		return &t, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockTaskRepo) List(_ context.Context, userID string, filter repository.TaskFilter) ([]model.Task, error) {
	q := strings.ToLower(strings.TrimSpace(filter.Query))
	var result []model.Task
	for _, t := range m.tasks {
		if t.UserID != userID {
			continue
		}
		if filter.SubjectID != "" && (t.SubjectID == nil || *t.SubjectID != filter.SubjectID) {
			continue
		}
		if q != "" && !strings.Contains(strings.ToLower(t.Title), q) && !strings.Contains(strings.ToLower(t.Detail), q) {
			continue
		}
		result = append(result, t)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].CreatedAt.After(result[j].CreatedAt) })
	return result, nil
}

func (m *mockTaskRepo) Update(_ context.Context, task *model.Task) error {
	m.tasks[task.TaskID] = *task
	return nil
}

func (m *mockTaskRepo) Delete(_ context.Context, userID, id string) error {
	if t, ok := m.tasks[id]; ok && t.UserID == userID {
		delete(m.tasks, id)
	}
	return nil
}

func (m *mockTaskRepo) DeleteBatch(_ context.Context, userID string, ids []string) (int64, error) {
	var n int64
	for _, id := range ids {
		if t, ok := m.tasks[id]; ok && t.UserID == userID {
			delete(m.tasks, id)
			n++
		}
	}
	return n, nil
}

func (m *mockTaskRepo) DeleteBySubject(_ context.Context, userID, subjectID string) error {
	for id, t := range m.tasks {
		if t.UserID == userID && t.SubjectID != nil && *t.SubjectID == subjectID {
			delete(m.tasks, id)
		}
	}
	return nil
}

func (m *mockTaskRepo) DeleteByUser(_ context.Context, userID string) error {
	for id, t := range m.tasks {
		if t.UserID == userID {
			delete(m.tasks, id)
		}
	}
	return nil
}

func (m *mockTaskRepo) ListReminderCandidates(_ context.Context) ([]model.Task, error) {
	var result []model.Task
	for _, t := range m.tasks {
		if t.Status != model.TaskStatusDone && t.DueAt != nil && len(t.Reminders) > 0 {
			result = append(result, t)
		}
	}
	return result, nil
}

// ── Mock CourseRepository ──

type mockCourseRepo struct {
	courses map[string]model.Course
	locked  []string
}

func newMockCourseRepo() *mockCourseRepo {
	return &mockCourseRepo{courses: make(map[string]model.Course)}
}

func (m *mockCourseRepo) Create(_ context.Context, course *model.Course) error {
	if course.CourseID == "" {
		course.CourseID = mockID("course")
	}
	m.courses[course.CourseID] = *course
	return nil
}

func (m *mockCourseRepo) BatchCreate(ctx context.Context, courses []model.Course) error {
	for i := range courses {
		if err := m.Create(ctx, &courses[i]); err != nil {
			return err
		}
	}
	return nil
}

func (m *mockCourseRepo) GetByID(_ context.Context, userID, id string) (*model.Course, error) {
	if c, ok := m.courses[id]; ok && c.UserID == userID {
		return &c, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockCourseRepo) GetByIDForUpdate(ctx context.Context, userID, id string) (*model.Course, error) {
	m.locked = append(m.locked, id)
	return m.GetByID(ctx, userID, id)
}

func (m *mockCourseRepo) ListByUser(_ context.Context, userID string) ([]model.Course, error) {
	var result []model.Course
	for _, c := range m.courses {
		if c.UserID == userID {
			result = append(result, c)
		}
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].DayOfWeek != result[j].DayOfWeek {
			return result[i].DayOfWeek < result[j].DayOfWeek
		}
		return result[i].StartTime < result[j].StartTime
	})
	return result, nil
}

func (m *mockCourseRepo) Update(_ context.Context, course *model.Course) error {
	stored, ok := m.courses[course.CourseID]
	if !ok || stored.UserID != course.UserID || stored.Version != course.Version {
		return pkgerrors.ErrOptimisticLock
	}
	course.Version++
	m.courses[course.CourseID] = *course
	return nil
}

func (m *mockCourseRepo) Delete(_ context.Context, userID, id string) error {
	if c, ok := m.courses[id]; ok && c.UserID == userID {
		delete(m.courses, id)
	}
	return nil
}

func (m *mockCourseRepo) DeleteByUser(_ context.Context, userID string) error {
	for id, c := range m.courses {
		if c.UserID == userID {
			delete(m.courses, id)
		}
	}
	return nil
}

// ── Mock OverrideRepository ──

type mockOverrideRepo struct {
	rows map[string]model.ScheduleOverride // "<course_id>_<week_start>"
}

func newMockOverrideRepo() *mockOverrideRepo {
	return &mockOverrideRepo{rows: make(map[string]model.ScheduleOverride)}
}

func overrideRowKey(courseID string, weekStart time.Time) string {
	return courseID + "_" + weekStart.Format("2006-01-02")
}

func (m *mockOverrideRepo) ListByUser(_ context.Context, userID string) ([]model.ScheduleOverride, error) {
	var result []model.ScheduleOverride
	for _, o := range m.rows {
		if o.UserID == userID {
			result = append(result, o)
		}
	}
	return result, nil
}

func (m *mockOverrideRepo) Upsert(_ context.Context, o *model.ScheduleOverride) error {
	m.rows[overrideRowKey(o.CourseID, o.WeekStart)] = *o
	return nil
}

func (m *mockOverrideRepo) BatchCreate(_ context.Context, overrides []model.ScheduleOverride) error {
	for _, o := range overrides {
		k := overrideRowKey(o.CourseID, o.WeekStart)
		if _, ok := m.rows[k]; !ok {
			m.rows[k] = o
		}
	}
	return nil
}

func (m *mockOverrideRepo) Delete(_ context.Context, userID, courseID string, weekStart time.Time) error {
	k := overrideRowKey(courseID, weekStart)
	if o, ok := m.rows[k]; ok && o.UserID == userID {
		delete(m.rows, k)
	}
	return nil
}

func (m *mockOverrideRepo) DeleteByCourse(_ context.Context, userID, courseID string) error {
	for k, o := range m.rows {
		if o.UserID == userID && o.CourseID == courseID {
			delete(m.rows, k)
		}
	}
	return nil
}

func (m *mockOverrideRepo) DeleteByUser(_ context.Context, userID string) error {
	for k, o := range m.rows {
		if o.UserID == userID {
			delete(m.rows, k)
		}
	}
	return nil
}

// ── Mock NotificationRepository ──

type mockNotificationRepo struct {
	list []model.Notification
}

func newMockNotificationRepo() *mockNotificationRepo {
	return &mockNotificationRepo{}
}

func (m *mockNotificationRepo) CreateIfAbsent(_ context.Context, n *model.Notification) (bool, error) {
	for _, existing := range m.list {
		if existing.TaskID == n.TaskID && existing.FireAt.Equal(n.FireAt) {
			return false, nil
		}
	}
	if n.NotificationID == "" {
		n.NotificationID = mockID("note")
	}
	m.list = append(m.list, *n)
	return true, nil
}

func (m *mockNotificationRepo) ListByUser(_ context.Context, userID string, unreadOnly bool, offset, limit int) ([]model.Notification, int64, error) {
	var filtered []model.Notification
	for _, n := range m.list {
		if n.UserID != userID || (unreadOnly && n.IsRead) {
			continue
		}
		filtered = append(filtered, n)
	}
	sort.Slice(filtered, func(i, j int) bool { return filtered[i].FireAt.After(filtered[j].FireAt) })

	total := int64(len(filtered))
	if offset >= len(filtered) {
		return nil, total, nil
	}
	end := offset + limit
	if end > len(filtered) {
		end = len(filtered)
	}
	return filtered[offset:end], total, nil
}

func (m *mockNotificationRepo) MarkRead(_ context.Context, userID, id string) error {
	for i := range m.list {
		if m.list[i].NotificationID == id && m.list[i].UserID == userID {
			m.list[i].IsRead = true
			return nil
		}
	}
	return gorm.ErrRecordNotFound
}

// ── Mock 外部依赖 ──

type mockPublisher struct {
	published map[string]interface{}
	removed   []string
}

func newMockPublisher() *mockPublisher {
	return &mockPublisher{published: make(map[string]interface{})}
}

func (p *mockPublisher) PublishShareSnapshot(_ context.Context, token string, snapshot interface{}) error {
	p.published[token] = snapshot
	return nil
}

func (p *mockPublisher) RemoveShareSnapshot(_ context.Context, token string) error {
	delete(p.published, token)
	p.removed = append(p.removed, token)
	return nil
}
