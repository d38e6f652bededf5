package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/Chacatphol/FlowO/config"
	"github.com/Chacatphol/FlowO/internal/api/handler"
	"github.com/Chacatphol/FlowO/internal/api/middleware"
	"github.com/Chacatphol/FlowO/internal/api/router"
	"github.com/Chacatphol/FlowO/internal/job"
	"github.com/Chacatphol/FlowO/internal/repository"
	"github.com/Chacatphol/FlowO/internal/schedule"
	"github.com/Chacatphol/FlowO/internal/service"
	"github.com/Chacatphol/FlowO/pkg/database"
	"github.com/Chacatphol/FlowO/pkg/firebase"
	"github.com/Chacatphol/FlowO/pkg/jwt"
	applogger "github.com/Chacatphol/FlowO/pkg/logger"
	"github.com/Chacatphol/FlowO/pkg/redis"
)

func main() {
	configPath := flag.String("config", "", "配置文件路径，缺省时查找 ./config/config.yaml")
	flag.Parse()

	// 1. 加载配置
	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "加载配置失败: %v\n", err)
		os.Exit(1)
	}

	// 2. 初始化日志
	logger, err := applogger.NewLogger(&cfg.Log)
	if err != nil {
		fmt.Fprintf(os.Stderr, "初始化日志失败: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	logger.Info("应用启动中...",
		zap.Int("port", cfg.Server.Port),
		zap.String("log_level", cfg.Log.Level),
		zap.String("reference_date", cfg.Schedule.ReferenceDate),
	)

	// 3. 连接数据库
	db, err := database.NewDB(&cfg.Database, logger)
	if err != nil {
		logger.Fatal("数据库连接失败", zap.Error(err))
	}
	logger.Info("数据库连接成功")

	// 3.1 执行数据库迁移
	sqlDB, err := db.DB()
	if err != nil {
		logger.Fatal("获取底层 sql.DB 失败", zap.Error(err))
	}
	if err := database.RunMigrations(sqlDB, logger); err != nil {
		logger.Fatal("数据库迁移失败", zap.Error(err))
	}

	// 4. 连接 Redis（可选：连接失败时降级运行，不中断启动）
	var (
		blacklist service.TokenBlacklist
		checker   middleware.TokenChecker
		limiter   middleware.Limiter
	)
	rdb, err := redis.NewClient(&cfg.Redis, logger)
	if err != nil {
		logger.Warn("Redis 连接失败，Token 黑名单与限流将不可用", zap.Error(err))
		rdb = nil
	} else {
		blacklist, checker, limiter = rdb, rdb, rdb
	}

	// 5. 初始化 Firebase（Google 登录必需；实时数据库镜像可选）
	fb, err := firebase.NewClient(context.Background(), &cfg.Firebase, logger)
	if err != nil {
		logger.Fatal("Firebase 初始化失败", zap.Error(err))
	}
	var publisher service.SharePublisher
	if fb.MirrorEnabled() {
		publisher = fb
	}

	// 6. 课表解析器与时钟
	ref, _ := cfg.Schedule.Reference()
	loc, _ := cfg.Schedule.Location()
	resolver := schedule.NewResolver(ref)
	clk := service.NewClock(loc)

	// 7. 依赖注入: Repository → Service → Handler
	jwtMgr := jwt.NewManager(&cfg.Auth)
	repo := repository.NewRepository(db)
	svc := service.NewService(cfg, repo, resolver, clk, jwtMgr, fb, blacklist, publisher, logger)
	h := handler.NewHandler(svc, &handler.CookieConfig{
		Secure: cfg.Server.CookieSecure,
		MaxAge: int(cfg.Auth.RefreshTokenTTL.Seconds()),
	})

	// 8. 初始化路由
	engine := router.Setup(cfg, h, router.Deps{
		JWT:          jwtMgr,
		TokenChecker: checker,
		Limiter:      limiter,
		Logger:       logger,
	})

	// 9. 截止提醒定时任务
	var reminderJob *job.ReminderJob
	if cfg.Reminder.Enabled {
		reminderJob, err = job.NewReminderJob(cfg.Reminder.Cron, loc, svc.Reminder, logger)
		if err != nil {
			logger.Fatal("提醒任务初始化失败", zap.Error(err))
		}
		reminderJob.Start()
	}

	// 10. 启动 HTTP 服务器（优雅关闭）
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      engine,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("HTTP 服务器已启动", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("HTTP 服务器异常", zap.Error(err))
		}
	}()

	// 11. 监听系统信号，优雅关闭
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit

	logger.Info("收到关闭信号，开始优雅关闭...", zap.String("signal", sig.String()))

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("服务器关闭异常", zap.Error(err))
	}

	if reminderJob != nil {
		reminderJob.Stop(ctx)
	}

	// 关闭数据库连接
	if err := sqlDB.Close(); err != nil {
		logger.Error("关闭数据库连接失败", zap.Error(err))
	}

	// 关闭 Redis 连接
	if rdb != nil {
		rdb.Close()
	}

	logger.Info("服务器已关闭")
}
