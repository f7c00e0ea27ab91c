package app

import (
	"codequest_backend/internal/config"
	"codequest_backend/internal/controller"
	"codequest_backend/internal/model"
	"codequest_backend/internal/repository"
	"codequest_backend/internal/service"
	"codequest_backend/pkg/database"
	"codequest_backend/pkg/logger"
	"codequest_backend/pkg/monitoring"
	"codequest_backend/pkg/security"
	"codequest_backend/pkg/tracing"
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type App struct {
	Config   *config.Config
	Router   *gin.Engine
	DB       *gorm.DB
	Redis    *redis.Client
	services *services
}

type repositories struct {
	user     *repository.UserRepository
	world    *repository.WorldRepository
	lesson   *repository.LessonRepository
	progress *repository.ProgressRepository
	league   *repository.LeagueRepository
	ranking  *repository.RankingRepository
}

type services struct {
	auth      *service.AuthService
	storage   *service.StorageService
	user      *service.UserService
	world     *service.WorldService
	lesson    *service.LessonService
	ranking   *service.RankingService
	dashboard *service.DashboardService
}

type controllers struct {
	auth      *controller.AuthController
	user      *controller.UserController
	world     *controller.WorldController
	lesson    *controller.LessonController
	ranking   *controller.RankingController
	dashboard *controller.DashboardController
	health    *controller.HealthController
}

func (a *App) initRepositories(db *gorm.DB) *repositories {
	return &repositories{
		user:     repository.NewUserRepository(db),
		world:    repository.NewWorldRepository(db),
		lesson:   repository.NewLessonRepository(db),
		progress: repository.NewProgressRepository(db),
		league:   repository.NewLeagueRepository(db),
		ranking:  repository.NewRankingRepository(db),
	}
}

func (a *App) initServices(repos *repositories, cfg *config.Config, db *gorm.DB, rdb *redis.Client) *services {
	storage := service.NewStorageService(cfg)
	ranking := service.NewRankingService(repos.user, repos.league, repos.ranking, cfg, db, rdb, model.DefaultTierTable())

	return &services{
		auth:      service.NewAuthService(repos.user, cfg),
		storage:   storage,
		user:      service.NewUserService(repos.user, storage, ranking),
		world:     service.NewWorldService(repos.world, repos.lesson, repos.progress),
		lesson:    service.NewLessonService(repos.lesson, repos.world, repos.progress, repos.user, ranking, db),
		ranking:   ranking,
		dashboard: service.NewDashboardService(repos.user, repos.progress, repos.ranking, ranking),
	}
}

func (a *App) initControllers(s *services, db *gorm.DB) *controllers {
	return &controllers{
		auth:      controller.NewAuthController(s.auth),
		user:      controller.NewUserController(s.user),
		world:     controller.NewWorldController(s.world, s.lesson),
		lesson:    controller.NewLessonController(s.lesson),
		ranking:   controller.NewRankingController(s.ranking),
		dashboard: controller.NewDashboardController(s.dashboard),
		health:    controller.NewHealthController(db),
	}
}

func (a *App) setupMiddlewares(router *gin.Engine, cfg *config.Config) {
	router.Use(security.CORS(cfg.CORS.AllowedOrigins))
	router.Use(security.Secure())
	router.Use(security.RateLimiter(cfg.RateLimit.MaxRequests, time.Duration(cfg.RateLimit.WindowMinutes)*time.Minute))

	// 分布式追踪中间件
	if cfg.Tracing.Enabled {
		router.Use(tracing.GinMiddleware())
	}

	router.Use(monitoring.MetricsMiddleware())
}

// startBackgroundTasks 周日凌晨的联赛结算由后台轮询驱动，
// 结算本身幂等，多实例同时触发也只会处理一次。
func (a *App) startBackgroundTasks(s *services) {
	go func() {
		ticker := time.NewTicker(time.Hour)
		for range ticker.C {
			result, err := s.ranking.ProcessWeeklyPromotionDemotion()
			if err != nil {
				logger.Log.Error("weekly league settlement error", zap.Error(err))
				continue
			}
			if !result.Skipped && result.Processed > 0 {
				logger.Log.Info("weekly league settlement finished",
					zap.Int("processed", result.Processed))
			}
		}
	}()
}

func NewApp(cfg *config.Config) *App {
	logger.InitLogger(cfg)
	defer logger.Log.Sync()

	logger.Log.Info("Logger initialized successfully")

	db, err := database.InitDB(&cfg.Database, database.ShouldAutoMigrate(cfg.Server.Mode, cfg.ForceMigrate))
	if err != nil {
		logger.Log.Fatal("Failed to initialize database", zap.Error(err))
		log.Fatalf("Failed to initialize database: %v", err)
	}

	rdb, err := database.InitRedis(&cfg.Redis)
	if err != nil {
		logger.Log.Fatal("Failed to initialize redis", zap.Error(err))
		log.Fatalf("Failed to initialize redis: %v", err)
	}

	app := &App{
		Config: cfg,
		DB:     db,
		Redis:  rdb,
	}

	repos := app.initRepositories(db)
	services := app.initServices(repos, cfg, db, rdb)
	app.services = services
	controllers := app.initControllers(services, db)

	// 监控初始化
	monitoring.Init()

	router := gin.Default()
	app.Router = router

	app.setupMiddlewares(router, cfg)

	if cfg.Tracing.Enabled {
		tp, err := tracing.InitTracer("codequest-backend", cfg.Tracing.CollectorEndpoint)
		if err != nil {
			logger.Log.Fatal("Failed to initialize tracing", zap.Error(err))
		}
		defer func() {
			if err := tp.Shutdown(context.Background()); err != nil {
				logger.Log.Error("Failed to shutdown tracer provider", zap.Error(err))
			}
		}()
	}

	app.registerRoutes(router, controllers, repos, cfg)

	if cfg.Storage.Type == "local" {
		router.Static("/uploads", cfg.Storage.LocalPath)
	}

	app.startBackgroundTasks(services)

	return app
}

func (a *App) Run() {
	srv := &http.Server{
		Addr:    ":" + a.Config.Server.Port,
		Handler: a.Router,
	}

	// 启动服务器
	go func() {
		log.Printf("Server running on port %s", a.Config.Server.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("listen: %s\n", err)
		}
	}()

	// 等待中断信号优雅地关闭服务器（设置5秒的超时时间）
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal("Server forced to shutdown:", err)
	}

	log.Println("Server exiting")
}
