package service

import (
	"context"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/Chacatphol/FlowO/config"
	"github.com/Chacatphol/FlowO/internal/model"
	"github.com/Chacatphol/FlowO/internal/repository"
	"github.com/Chacatphol/FlowO/internal/schedule"
)

// ── 测试辅助 ──
//
// 参考周为 2025-12-01 开始的一周（单周）：
//   2025-12-01 ~ 12-07 单周，12-08 ~ 12-14 双周，11-24 ~ 11-30 双周。

var bangkok = time.FixedZone("ICT", 7*3600)

type testEnv struct {
	repo      *repository.Repository
	store     *mockStore
	clock     Clock
	publisher *mockPublisher
	share     ShareService
	schedule  ScheduleService
	logger    *zap.Logger
}

// newTestEnv now 为测试时钟的当前时刻
func newTestEnv(now time.Time) *testEnv {
	repo, store := newMockRepository()
	clk := Clock{Location: bangkok, Now: func() time.Time { return now }}
	store.tasks.now = clk.Now

	cfg := &config.Config{Server: config.ServerConfig{BaseURL: "https://flowo.test/"}}
	resolver := schedule.NewResolver(schedule.DefaultReferenceDate)
	publisher := newMockPublisher()
	logger := zap.NewNop()

	share := NewShareService(cfg, repo, resolver, clk, publisher, logger)
	sched := NewScheduleService(repo, resolver, clk, share, logger)

	return &testEnv{
		repo:      repo,
		store:     store,
		clock:     clk,
		publisher: publisher,
		share:     share,
		schedule:  sched,
		logger:    logger,
	}
}

func defaultNow() time.Time {
	return time.Date(2025, time.December, 3, 10, 0, 0, 0, bangkok)
}

func seedUser(t *testing.T, env *testEnv, name string) *model.User {
	t.Helper()
	u := &model.User{FirebaseUID: "fb-" + name, Email: name + "@example.com", Name: name}
	if err := env.repo.User.Create(context.Background(), u); err != nil {
		t.Fatalf("创建测试用户失败: %v", err)
	}
	return u
}

func seedCourse(t *testing.T, env *testEnv, userID, name string, day int, start, end string, mode schedule.Mode) *model.Course {
	t.Helper()
	c := &model.Course{
		UserID:       userID,
		Name:         name,
		DayOfWeek:    day,
		StartTime:    start,
		EndTime:      end,
		ScheduleType: string(mode),
		Room:         "R-" + name,
	}
	c.Version = 1
	if err := env.repo.Course.Create(context.Background(), c); err != nil {
		t.Fatalf("创建测试课程失败: %v", err)
	}
	return c
}

func datePtr(t time.Time) *time.Time { return &t }

func strPtr(s string) *string { return &s }
