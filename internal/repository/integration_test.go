//go:build integration

package repository_test

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/Chacatphol/FlowO/internal/model"
	"github.com/Chacatphol/FlowO/internal/repository"
	"github.com/Chacatphol/FlowO/pkg/database"
	pkgerrors "github.com/Chacatphol/FlowO/pkg/errors"
)

// ═══════════════════════════════════════════════════════════
// Test Setup
// ═══════════════════════════════════════════════════════════

var testDB *gorm.DB

func TestMain(m *testing.M) {
	dsn := os.Getenv("TEST_DATABASE_DSN")
	if dsn == "" {
		dsn = "host=localhost port=5433 user=flowo password=flowo_password dbname=flowo_test sslmode=disable TimeZone=UTC"
	}

	var err error
	testDB, err = gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "无法连接测试数据库: %v\n", err)
		os.Exit(1)
	}

	sqlDB, err := testDB.DB()
	if err != nil {
		fmt.Fprintf(os.Stderr, "获取 sql.DB 失败: %v\n", err)
		os.Exit(1)
	}
	if err := database.RunMigrations(sqlDB, zap.NewNop()); err != nil {
		fmt.Fprintf(os.Stderr, "执行迁移失败: %v\n", err)
		os.Exit(1)
	}

	os.Exit(m.Run())
}

// setupUser 创建测试用户并返回清理函数（外键级联删除其全部数据）
func setupUser(t *testing.T) (*model.User, func()) {
	t.Helper()
	user := &model.User{
		FirebaseUID: "uid-" + uuid.NewString(),
		Email:       "test@example.com",
		Name:        "测试用户",
	}
	if err := testDB.Create(user).Error; err != nil {
		t.Fatalf("创建用户失败: %v", err)
	}
	return user, func() {
		testDB.Where("user_id = ?", user.UserID).Delete(&model.User{})
	}
}

func newCourse(userID string) *model.Course {
	return &model.Course{
		UserID:       userID,
		Name:         "Operating Systems",
		DayOfWeek:    2,
		StartTime:    "09:00",
		EndTime:      "12:00",
		ScheduleType: "odd-onsite",
	}
}

// ═══════════════════════════════════════════════════════════
// Test: Transaction
// ═══════════════════════════════════════════════════════════

func TestTransaction_Rollback(t *testing.T) {
	user, cleanup := setupUser(t)
	defer cleanup()

	repo := repository.NewRepository(testDB)
	ctx := context.Background()

	tx, err := repo.BeginTx(ctx)
	if err != nil {
		t.Fatalf("BeginTx 失败: %v", err)
	}
	txRepo := repo.WithTx(tx)

	subject := &model.Subject{UserID: user.UserID, Name: "Math"}
	if err := txRepo.Subject.Create(ctx, subject); err != nil {
		tx.Rollback()
		t.Fatalf("事务内创建 Subject 失败: %v", err)
	}

	tx.Rollback()

	if _, err := repo.Subject.GetByID(ctx, user.UserID, subject.SubjectID); err == nil {
		t.Fatal("期望回滚后查不到 Subject，但实际查到了")
	}
}

// ═══════════════════════════════════════════════════════════
// Test: Optimistic Lock
// ═══════════════════════════════════════════════════════════

func TestOptimisticLock_Course_ConflictDetected(t *testing.T) {
	user, cleanup := setupUser(t)
	defer cleanup()

	repo := repository.NewRepository(testDB)
	ctx := context.Background()

	course := newCourse(user.UserID)
	if err := repo.Course.Create(ctx, course); err != nil {
		t.Fatalf("创建 Course 失败: %v", err)
	}

	copy1, _ := repo.Course.GetByID(ctx, user.UserID, course.CourseID)
	copy2, _ := repo.Course.GetByID(ctx, user.UserID, course.CourseID)

	copy1.Room = "A101"
	if err := repo.Course.Update(ctx, copy1); err != nil {
		t.Fatalf("第一次更新应成功: %v", err)
	}
	if copy1.Version != 2 {
		t.Errorf("期望 version=2，实际 %d", copy1.Version)
	}

	copy2.Room = "B202"
	if err := repo.Course.Update(ctx, copy2); err != pkgerrors.ErrOptimisticLock {
		t.Errorf("期望 ErrOptimisticLock，得到: %v", err)
	}
}

func TestCourse_GetByIDForUpdate_Blocks(t *testing.T) {
	user, cleanup := setupUser(t)
	defer cleanup()

	repo := repository.NewRepository(testDB)
	ctx := context.Background()

	course := newCourse(user.UserID)
	if err := repo.Course.Create(ctx, course); err != nil {
		t.Fatalf("创建 Course 失败: %v", err)
	}

	tx1, err := repo.BeginTx(ctx)
	if err != nil {
		t.Fatalf("开启事务失败: %v", err)
	}
	if _, err := repo.WithTx(tx1).Course.GetByIDForUpdate(ctx, user.UserID, course.CourseID); err != nil {
		tx1.Rollback()
		t.Fatalf("第一次加锁失败: %v", err)
	}

	acquired := make(chan error, 1)
	go func() {
		tx2, err := repo.BeginTx(ctx)
		if err != nil {
			acquired <- err
			return
		}
		defer tx2.Rollback()
		_, err = repo.WithTx(tx2).Course.GetByIDForUpdate(ctx, user.UserID, course.CourseID)
		acquired <- err
	}()

	select {
	case err := <-acquired:
		tx1.Rollback()
		t.Fatalf("第一个事务未结束时不应拿到行锁, err=%v", err)
	case <-time.After(300 * time.Millisecond):
	}

	if err := tx1.Commit().Error; err != nil {
		t.Fatalf("提交失败: %v", err)
	}
	select {
	case err := <-acquired:
		if err != nil {
			t.Errorf("第二次加锁失败: %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("第一个事务提交后仍未拿到行锁")
	}
}

// ═══════════════════════════════════════════════════════════
// Test: Overrides
// ═══════════════════════════════════════════════════════════

func TestOverride_UpsertAndDelete(t *testing.T) {
	user, cleanup := setupUser(t)
	defer cleanup()

	repo := repository.NewRepository(testDB)
	ctx := context.Background()

	course := newCourse(user.UserID)
	if err := repo.Course.Create(ctx, course); err != nil {
		t.Fatalf("创建 Course 失败: %v", err)
	}

	week := time.Date(2025, 12, 8, 0, 0, 0, 0, time.UTC)
	o := &model.ScheduleOverride{CourseID: course.CourseID, WeekStart: week, UserID: user.UserID, Status: "online"}
	if err := repo.Override.Upsert(ctx, o); err != nil {
		t.Fatalf("Upsert 失败: %v", err)
	}
	o2 := &model.ScheduleOverride{CourseID: course.CourseID, WeekStart: week, UserID: user.UserID, Status: "onsite"}
	if err := repo.Override.Upsert(ctx, o2); err != nil {
		t.Fatalf("第二次 Upsert 失败: %v", err)
	}

	rows, err := repo.Override.ListByUser(ctx, user.UserID)
	if err != nil {
		t.Fatalf("ListByUser 失败: %v", err)
	}
	if len(rows) != 1 || rows[0].Status != "onsite" {
		t.Fatalf("期望 1 条 onsite 覆盖，实际 %+v", rows)
	}
	if got := rows[0].Key().WeekStart; got != "2025-12-08" {
		t.Errorf("期望 week_start=2025-12-08，实际 %s", got)
	}

	if err := repo.Override.Delete(ctx, user.UserID, course.CourseID, week); err != nil {
		t.Fatalf("Delete 失败: %v", err)
	}
	rows, _ = repo.Override.ListByUser(ctx, user.UserID)
	if len(rows) != 0 {
		t.Errorf("删除后期望 0 条覆盖，实际 %d", len(rows))
	}
}

// ═══════════════════════════════════════════════════════════
// Test: Notifications
// ═══════════════════════════════════════════════════════════

func TestNotification_CreateIfAbsent(t *testing.T) {
	user, cleanup := setupUser(t)
	defer cleanup()

	repo := repository.NewRepository(testDB)
	ctx := context.Background()

	due := time.Now().Add(time.Hour).UTC().Truncate(time.Second)
	task := &model.Task{UserID: user.UserID, Title: "Essay", DueAt: &due, Reminders: model.ReminderList{{Type: "hours", Amount: 1}}}
	if err := repo.Task.Create(ctx, task); err != nil {
		t.Fatalf("创建 Task 失败: %v", err)
	}

	fire := due.Add(-time.Hour)
	created, err := repo.Notification.CreateIfAbsent(ctx, &model.Notification{UserID: user.UserID, TaskID: task.TaskID, Title: "Essay", FireAt: fire})
	if err != nil || !created {
		t.Fatalf("首次写入应成功: created=%v err=%v", created, err)
	}
	created, err = repo.Notification.CreateIfAbsent(ctx, &model.Notification{UserID: user.UserID, TaskID: task.TaskID, Title: "Essay", FireAt: fire})
	if err != nil || created {
		t.Fatalf("重复写入应被忽略: created=%v err=%v", created, err)
	}

	list, total, err := repo.Notification.ListByUser(ctx, user.UserID, true, 0, 10)
	if err != nil || total != 1 || len(list) != 1 {
		t.Fatalf("期望 1 条未读提醒，实际 total=%d err=%v", total, err)
	}
	if err := repo.Notification.MarkRead(ctx, user.UserID, list[0].NotificationID); err != nil {
		t.Fatalf("MarkRead 失败: %v", err)
	}
	if err := repo.Notification.MarkRead(ctx, user.UserID, uuid.NewString()); err != gorm.ErrRecordNotFound {
		t.Errorf("期望 ErrRecordNotFound，实际 %v", err)
	}
}

// ═══════════════════════════════════════════════════════════
// Test: Tasks
// ═══════════════════════════════════════════════════════════

func TestTask_ListFilterAndBatchDelete(t *testing.T) {
	user, cleanup := setupUser(t)
	defer cleanup()

	repo := repository.NewRepository(testDB)
	ctx := context.Background()

	subject := &model.Subject{UserID: user.UserID, Name: "Physics"}
	if err := repo.Subject.Create(ctx, subject); err != nil {
		t.Fatalf("创建 Subject 失败: %v", err)
	}
	tasks := []model.Task{
		{UserID: user.UserID, SubjectID: &subject.SubjectID, Title: "Lab Report", Detail: "optics"},
		{UserID: user.UserID, Title: "Groceries", Detail: "milk"},
		{UserID: user.UserID, Title: "Quiz 100% review", Detail: ""},
		{UserID: user.UserID, Title: "Quiz 1000 review", Detail: ""},
	}
	if err := repo.Task.BatchCreate(ctx, tasks); err != nil {
		t.Fatalf("BatchCreate 失败: %v", err)
	}

	found, err := repo.Task.List(ctx, user.UserID, repository.TaskFilter{Query: "OPTIC"})
	if err != nil || len(found) != 1 || found[0].Title != "Lab Report" {
		t.Fatalf("关键字过滤结果不符: %+v err=%v", found, err)
	}
	found, _ = repo.Task.List(ctx, user.UserID, repository.TaskFilter{Query: "100%"})
	if len(found) != 1 || found[0].Title != "Quiz 100% review" {
		t.Fatalf("%% 应按字面匹配: %+v", found)
	}
	found, _ = repo.Task.List(ctx, user.UserID, repository.TaskFilter{Query: "quiz_1"})
	if len(found) != 0 {
		t.Fatalf("_ 应按字面匹配，实际 %d 条", len(found))
	}
	found, _ = repo.Task.List(ctx, user.UserID, repository.TaskFilter{SubjectID: subject.SubjectID})
	if len(found) != 1 {
		t.Fatalf("科目过滤期望 1 条，实际 %d", len(found))
	}

	n, err := repo.Task.DeleteBatch(ctx, user.UserID, []string{tasks[0].TaskID, tasks[1].TaskID, tasks[2].TaskID, tasks[3].TaskID})
	if err != nil || n != 4 {
		t.Errorf("期望删除 4 条，实际 %d err=%v", n, err)
	}
}
