package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/Chacatphol/FlowO/internal/dto"
	"github.com/Chacatphol/FlowO/internal/model"
)

func setupTestTaskService(t *testing.T) (TaskService, *testEnv, string) {
	env := newTestEnv(defaultNow())
	u := seedUser(t, env, "alice")
	return NewTaskService(env.repo, env.clock, env.logger), env, u.UserID
}

func seedTask(t *testing.T, env *testEnv, task model.Task) *model.Task {
	t.Helper()
	if err := env.repo.Task.Create(context.Background(), &task); err != nil {
		t.Fatalf("创建测试任务失败: %v", err)
	}
	return &task
}

// ── Create ──

func TestTaskService_Create_Defaults(t *testing.T) {
	svc, _, userID := setupTestTaskService(t)

	got, err := svc.Create(context.Background(), userID, &dto.CreateTaskRequest{Title: "Read chapter 3"})
	if err != nil {
		t.Fatalf("Create 应成功: %v", err)
	}
	if got.Status != model.TaskStatusTodo || got.TaskType != model.TaskTypeDeadline || got.Category != model.TaskCategoryStudy {
		t.Errorf("默认值错误: %+v", got)
	}
	if got.Reminders == nil || len(got.Reminders) != 0 {
		t.Errorf("reminders 应为空数组: %v", got.Reminders)
	}
}

func TestTaskService_Create_StartAfterDue(t *testing.T) {
	svc, _, userID := setupTestTaskService(t)
	now := defaultNow()

	_, err := svc.Create(context.Background(), userID, &dto.CreateTaskRequest{
		Title:   "Report",
		StartAt: datePtr(now.Add(2 * time.Hour)),
		DueAt:   datePtr(now.Add(time.Hour)),
	})
	if !errors.Is(err, ErrTaskTimeRange) {
		t.Errorf("期望 ErrTaskTimeRange，实际: %v", err)
	}
}

func TestTaskService_Create_UnknownSubject(t *testing.T) {
	svc, _, userID := setupTestTaskService(t)

	_, err := svc.Create(context.Background(), userID, &dto.CreateTaskRequest{
		Title:     "Report",
		SubjectID: strPtr("subject-of-someone-else"),
	})
	if !errors.Is(err, ErrSubjectNotFound) {
		t.Errorf("期望 ErrSubjectNotFound，实际: %v", err)
	}
}

// ── Update ──

func TestTaskService_Update_PartialAndRange(t *testing.T) {
	svc, env, userID := setupTestTaskService(t)
	ctx := context.Background()
	now := defaultNow()

	task := seedTask(t, env, model.Task{UserID: userID, Title: "Essay", DueAt: datePtr(now.Add(48 * time.Hour))})

	progress := 60
	got, err := svc.Update(ctx, userID, task.TaskID, &dto.UpdateTaskRequest{
		Progress: &progress,
		Status:   strPtr(model.TaskStatusDoing),
	})
	if err != nil {
		t.Fatalf("Update 应成功: %v", err)
	}
	if got.Progress != 60 || got.Status != model.TaskStatusDoing || got.Title != "Essay" {
		t.Errorf("部分更新结果错误: %+v", got)
	}

	_, err = svc.Update(ctx, userID, task.TaskID, &dto.UpdateTaskRequest{StartAt: datePtr(now.Add(72 * time.Hour))})
	if !errors.Is(err, ErrTaskTimeRange) {
		t.Errorf("开始时间晚于已有截止时间时期望 ErrTaskTimeRange，实际: %v", err)
	}
}

func TestTaskService_Update_NotFound(t *testing.T) {
	svc, _, userID := setupTestTaskService(t)

	_, err := svc.Update(context.Background(), userID, "missing", &dto.UpdateTaskRequest{})
	if !errors.Is(err, ErrTaskNotFound) {
		t.Errorf("期望 ErrTaskNotFound，实际: %v", err)
	}
}

// ── List ──

func TestTaskService_List_Ordering(t *testing.T) {
	svc, env, userID := setupTestTaskService(t)
	now := defaultNow()

	seedTask(t, env, model.Task{UserID: userID, Title: "no-due-old", BaseModel: model.BaseModel{CreatedAt: now.Add(-3 * time.Hour)}})
	seedTask(t, env, model.Task{UserID: userID, Title: "no-due-new", BaseModel: model.BaseModel{CreatedAt: now.Add(-1 * time.Hour)}})
	seedTask(t, env, model.Task{UserID: userID, Title: "due-late", DueAt: datePtr(now.Add(72 * time.Hour))})
	seedTask(t, env, model.Task{UserID: userID, Title: "due-soon", DueAt: datePtr(now.Add(2 * time.Hour))})
	seedTask(t, env, model.Task{UserID: userID, Title: "done-recent", Status: model.TaskStatusDone,
		DueAt: datePtr(now.Add(time.Hour)), BaseModel: model.BaseModel{UpdatedAt: now.Add(-10 * time.Minute)}})

	list, err := svc.List(context.Background(), userID, &dto.TaskListRequest{})
	if err != nil {
		t.Fatalf("List 应成功: %v", err)
	}
	want := []string{"due-soon", "due-late", "no-due-new", "no-due-old", "done-recent"}
	if len(list) != len(want) {
		t.Fatalf("期望 %d 条，实际 %d 条", len(want), len(list))
	}
	for i, title := range want {
		if list[i].Title != title {
			t.Errorf("第 %d 条期望 %s，实际 %s", i, title, list[i].Title)
		}
	}
}

func TestTaskService_List_Archived(t *testing.T) {
	svc, env, userID := setupTestTaskService(t)
	now := defaultNow()

	seedTask(t, env, model.Task{UserID: userID, Title: "active"})
	seedTask(t, env, model.Task{UserID: userID, Title: "done-recent", Status: model.TaskStatusDone, BaseModel: model.BaseModel{UpdatedAt: now.Add(-59 * time.Minute)}})
	seedTask(t, env, model.Task{UserID: userID, Title: "archived-old", Status: model.TaskStatusDone, BaseModel: model.BaseModel{UpdatedAt: now.Add(-5 * time.Hour)}})
	seedTask(t, env, model.Task{UserID: userID, Title: "archived-new", Status: model.TaskStatusDone, BaseModel: model.BaseModel{UpdatedAt: now.Add(-2 * time.Hour)}})

	active, _ := svc.List(context.Background(), userID, &dto.TaskListRequest{})
	if len(active) != 2 {
		t.Errorf("未归档任务应为 2 条（含 1 小时内完成的），实际 %d", len(active))
	}

	archived, err := svc.List(context.Background(), userID, &dto.TaskListRequest{Archived: true})
	if err != nil {
		t.Fatalf("List 应成功: %v", err)
	}
	if len(archived) != 2 || archived[0].Title != "archived-new" {
		t.Errorf("归档列表应按更新时间倒序: %+v", archived)
	}
	if !archived[0].Archived {
		t.Error("归档任务 archived 应为 true")
	}
}

func TestTaskService_List_FilterByQueryAndSubject(t *testing.T) {
	svc, env, userID := setupTestTaskService(t)
	ctx := context.Background()

	subject := &model.Subject{UserID: userID, Name: "Math"}
	env.repo.Subject.Create(ctx, subject)
	seedTask(t, env, model.Task{UserID: userID, Title: "Calculus homework", SubjectID: &subject.SubjectID})
	seedTask(t, env, model.Task{UserID: userID, Title: "Buy groceries", Detail: "milk, HOMEWORK folder"})

	byQuery, _ := svc.List(ctx, userID, &dto.TaskListRequest{Query: "homework"})
	if len(byQuery) != 2 {
		t.Errorf("关键字应不区分大小写匹配标题与详情，实际 %d 条", len(byQuery))
	}

	bySubject, _ := svc.List(ctx, userID, &dto.TaskListRequest{SubjectID: subject.SubjectID})
	if len(bySubject) != 1 || bySubject[0].Title != "Calculus homework" {
		t.Errorf("按科目过滤错误: %+v", bySubject)
	}
}

// ── Delete ──

func TestTaskService_BatchDelete_OnlyOwnTasks(t *testing.T) {
	svc, env, userID := setupTestTaskService(t)
	bob := seedUser(t, env, "bob")

	a := seedTask(t, env, model.Task{UserID: userID, Title: "a"})
	b := seedTask(t, env, model.Task{UserID: userID, Title: "b"})
	other := seedTask(t, env, model.Task{UserID: bob.UserID, Title: "bob's"})

	n, err := svc.BatchDelete(context.Background(), userID, []string{a.TaskID, b.TaskID, other.TaskID})
	if err != nil {
		t.Fatalf("BatchDelete 应成功: %v", err)
	}
	if n != 2 {
		t.Errorf("期望删除 2 条，实际 %d", n)
	}
	if _, ok := env.store.tasks.tasks[other.TaskID]; !ok {
		t.Error("不应删除他人任务")
	}
}

func TestTaskService_Delete_NotFound(t *testing.T) {
	svc, _, userID := setupTestTaskService(t)

	if err := svc.Delete(context.Background(), userID, "missing"); !errors.Is(err, ErrTaskNotFound) {
		t.Errorf("期望 ErrTaskNotFound，实际: %v", err)
	}
}
