package router

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/Chacatphol/FlowO/config"
	"github.com/Chacatphol/FlowO/internal/api/handler"
	"github.com/Chacatphol/FlowO/internal/api/middleware"
	"github.com/Chacatphol/FlowO/pkg/jwt"
)

// 公开分享页前缀，CORS 对任意来源开放只读
const publicSharePrefix = "/api/v1/public/"

// Deps 路由依赖；Redis 未启用时 TokenChecker / Limiter 为 nil
type Deps struct {
	JWT          *jwt.Manager
	TokenChecker middleware.TokenChecker
	Limiter      middleware.Limiter
	Logger       *zap.Logger
}

// Setup 初始化并返回 Gin 路由引擎
func Setup(cfg *config.Config, h *handler.Handler, deps Deps) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	if err := handler.RegisterValidators(); err != nil {
		deps.Logger.Error("注册自定义校验失败", zap.Error(err))
	}

	r := gin.New()

	// ── 全局中间件 ──
	r.Use(gin.Recovery())
	r.Use(middleware.RequestID())
	r.Use(middleware.Logger(deps.Logger))
	r.Use(middleware.SecurityHeaders())
	r.Use(middleware.CORS(cfg.Server.CORS.AllowOrigins, publicSharePrefix))
	r.Use(middleware.BodyLimit(cfg.Server.BodyLimitBytes, cfg.Server.UploadLimitBytes))

	// ── 健康检查 ──
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	publicLimit := middleware.RateLimit(deps.Limiter, cfg.RateLimit.PublicLimit, cfg.RateLimit.PublicWindow)

	// ── API v1 ──
	v1 := r.Group("/api/v1")
	{
		// 认证模块（无需认证）
		auth := v1.Group("/auth", publicLimit)
		{
			auth.POST("/google", h.Auth.GoogleLogin)
			auth.POST("/refresh", h.Auth.RefreshToken)
		}

		// 公开分享页
		v1.GET("/public/share/:token/week", publicLimit, h.Share.PublicWeek)

		// 需要认证的路由
		authorized := v1.Group("")
		authorized.Use(middleware.JWTAuth(deps.JWT, deps.TokenChecker, deps.Logger))
		{
			authorized.POST("/auth/logout", h.Auth.Logout)
			authorized.GET("/auth/me", h.Auth.GetCurrentUser)

			authorized.GET("/dashboard", h.Dashboard.Get)
			authorized.GET("/dashboard/calendar", h.Dashboard.Calendar)

			// 科目
			subjects := authorized.Group("/subjects")
			{
				subjects.GET("", h.Subject.List)
				subjects.POST("", h.Subject.Create)
				subjects.PUT("/:id", h.Subject.Update)
				subjects.DELETE("/:id", h.Subject.Delete)
			}

			// 任务
			tasks := authorized.Group("/tasks")
			{
				tasks.GET("", h.Task.List)
				tasks.POST("", h.Task.Create)
				tasks.POST("/batch-delete", h.Task.BatchDelete)
				tasks.GET("/:id", h.Task.Get)
				tasks.PATCH("/:id", h.Task.Update)
				tasks.DELETE("/:id", h.Task.Delete)
			}

			// 课程
			courses := authorized.Group("/courses")
			{
				courses.GET("", h.Course.List)
				courses.POST("", h.Course.Create)
				courses.GET("/:id", h.Course.Get)
				courses.PUT("/:id", h.Course.Update)
				courses.DELETE("/:id", h.Course.Delete)
			}

			// 课表视图
			sched := authorized.Group("/schedule")
			{
				sched.GET("/week", h.Schedule.GetWeek)
				sched.GET("/day", h.Schedule.GetDay)
				sched.GET("/parity", h.Schedule.GetParity)
				sched.POST("/courses/:id/toggle", h.Schedule.ToggleCourse)
			}

			// 分享
			share := authorized.Group("/share")
			{
				share.GET("", h.Share.Get)
				share.POST("", h.Share.Enable)
				share.DELETE("", h.Share.Disable)
				share.POST("/rotate", h.Share.Rotate)
			}

			// 数据备份
			data := authorized.Group("/data")
			{
				data.GET("/export", h.Data.Export)
				data.POST("/import", h.Data.Import)
				data.DELETE("", h.Data.Clear)
			}

			// 课表导入 / 导出
			authorized.POST("/timetables/import", h.Timetable.ImportICS)
			authorized.GET("/export/schedule", h.Export.ExportWeek)

			// 提醒消息
			notifications := authorized.Group("/notifications")
			{
				notifications.GET("", h.Notification.List)
				notifications.POST("/:id/read", h.Notification.MarkRead)
			}
		}
	}

	return r
}
