package app

import (
	"codequest_backend/docs"
	"codequest_backend/internal/config"
	"codequest_backend/internal/middleware"
	"codequest_backend/pkg/monitoring"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

func (a *App) registerRoutes(router *gin.Engine, c *controllers, repos *repositories, cfg *config.Config) {
	docs.SwaggerInfo.BasePath = "/api"
	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler, ginSwagger.URL("/swagger/doc.json")))

	router.GET("/metrics", monitoring.PrometheusHandler())

	// 公共路由（无需登录）
	public := router.Group("/api")
	{
		public.GET("/health", c.health.HealthCheck)
		public.POST("/auth/register", c.auth.Register)
		public.POST("/auth/login", c.auth.Login)
		public.GET("/rankings/tiers", c.ranking.GetTiers)
	}

	// 需要授权的路由
	authGroup := router.Group("/api")
	authGroup.Use(middleware.AuthMiddleware(cfg), middleware.ActivityMiddleware(repos.user))
	{
		authGroup.GET("/auth/me", c.auth.Me)

		// 用户
		authGroup.GET("/users/profile", c.user.GetProfile)
		authGroup.PUT("/users/profile", c.user.UpdateProfile)
		authGroup.PUT("/users/password", c.user.ChangePassword)
		authGroup.POST("/users/avatar", c.user.UploadAvatar)

		// 世界 / 阶段
		authGroup.GET("/worlds", c.world.ListWorlds)
		authGroup.GET("/worlds/:id", c.world.GetWorldDetail)
		authGroup.POST("/worlds/:id/unlock", c.world.UnlockWorld)
		authGroup.GET("/stages/:id/lessons", c.world.ListStageLessons)

		// 课程
		authGroup.POST("/lessons/:id/start", c.lesson.StartLesson)
		authGroup.GET("/lessons/:id/current-problem", c.lesson.GetCurrentProblem)
		authGroup.POST("/lessons/:id/submit", c.lesson.SubmitAnswer)
		authGroup.POST("/lessons/:id/abandon", c.lesson.AbandonLesson)

		// 排名
		authGroup.POST("/rankings/exp", c.ranking.AddExp)
		authGroup.GET("/rankings/league", c.ranking.GetLeagueRankings)
		authGroup.GET("/rankings/global", c.ranking.GetGlobalRankings)
		authGroup.GET("/rankings/history", c.ranking.GetHistory)

		// 仪表盘
		authGroup.GET("/dashboard", c.dashboard.GetDashboard)
	}

	// 管理员相关接口
	adminGroup := router.Group("/api/admin")
	adminGroup.Use(middleware.AuthMiddleware(cfg), middleware.RoleMiddleware("admin"))
	{
		adminGroup.POST("/rankings/close-season", c.ranking.CloseSeason)
		adminGroup.POST("/rankings/rebuild", c.ranking.RebuildGlobal)
	}
}
