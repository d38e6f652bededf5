package job

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/Chacatphol/FlowO/internal/service"
)

const dispatchTimeout = 30 * time.Second

// ReminderJob 按 cron 表达式周期生成任务截止提醒
type ReminderJob struct {
	cron   *cron.Cron
	svc    service.ReminderService
	now    func() time.Time
	logger *zap.Logger
}

// NewReminderJob 创建提醒任务；spec 为标准 5 段 cron 表达式，按 loc 解释
func NewReminderJob(spec string, loc *time.Location, svc service.ReminderService, logger *zap.Logger) (*ReminderJob, error) {
	if loc == nil {
		loc = time.UTC
	}
	j := &ReminderJob{
		cron: cron.New(
			cron.WithLocation(loc),
			cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger)),
		),
		svc:    svc,
		now:    time.Now,
		logger: logger.With(zap.String("job", "reminder")),
	}

	if _, err := j.cron.AddFunc(spec, j.run); err != nil {
		return nil, fmt.Errorf("无效的 cron 表达式 %q: %w", spec, err)
	}
	return j, nil
}

// Start 启动调度（非阻塞）
func (j *ReminderJob) Start() {
	j.cron.Start()
	j.logger.Info("提醒任务已启动")
}

// Stop 停止调度并等待正在执行的一轮结束，ctx 到期时直接返回
func (j *ReminderJob) Stop(ctx context.Context) {
	done := j.cron.Stop()
	select {
	case <-done.Done():
		j.logger.Info("提醒任务已停止")
	case <-ctx.Done():
		j.logger.Warn("等待提醒任务结束超时")
	}
}

func (j *ReminderJob) run() {
	ctx, cancel := context.WithTimeout(context.Background(), dispatchTimeout)
	defer cancel()

	start := j.now()
	n, err := j.svc.DispatchDue(ctx, start)
	if err != nil {
		j.logger.Error("生成截止提醒失败", zap.Error(err))
		return
	}
	j.logger.Debug("提醒扫描完成",
		zap.Int("created", n),
		zap.Duration("elapsed", time.Since(start)),
	)
}
