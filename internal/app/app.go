package app

import (
	"blackhorse_backend/internal/config"
	"blackhorse_backend/internal/controller"
	"blackhorse_backend/internal/repository"
	"blackhorse_backend/internal/service"
	"blackhorse_backend/pkg/database"
	"blackhorse_backend/pkg/logger"
	"blackhorse_backend/pkg/monitoring"
	"blackhorse_backend/pkg/security"
	"blackhorse_backend/pkg/storage"
	"blackhorse_backend/pkg/tracing"
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
)

type App struct {
	Config *config.Config
	Router *gin.Engine
	Engine storage.Engine
	Redis  *redis.Client
}

type repositories struct {
	user       *repository.UserRepository
	invitation *repository.InvitationRepository
	message    *repository.MessageRepository
	notice     *repository.NoticeRepository
	request    *repository.RequestRepository
	backup     *repository.BackupRepository
}

type services struct {
	sessions   *service.SessionRegistry
	auth       *service.AuthService
	user       *service.UserService
	friendship *service.FriendshipService
	invitation *service.InvitationService
	moderation *service.ModerationService
	notice     *service.NoticeService
	chat       *service.ChatService
	backup     *service.BackupService
	storage    *service.StorageService
}

type controllers struct {
	auth       *controller.AuthController
	user       *controller.UserController
	friendship *controller.FriendshipController
	chat       *controller.ChatController
	notice     *controller.NoticeController
	moderation *controller.ModerationController
	admin      *controller.AdminController
	health     *controller.HealthController
}

// initEngine 启动时选定一次存储引擎，之后不再切换
func initEngine(cfg *config.Config) (storage.Engine, error) {
	if cfg.Storage.Engine == "mysql" {
		return storage.NewMySQLEngine(&storage.MySQLConfig{
			Host:      cfg.Database.Host,
			Port:      cfg.Database.Port,
			User:      cfg.Database.User,
			Password:  cfg.Database.Password,
			DBName:    cfg.Database.DBName,
			Charset:   cfg.Database.Charset,
			ParseTime: cfg.Database.ParseTime,
		})
	}
	return storage.NewMemoryEngine(cfg.Storage.Path)
}

func (a *App) initRepositories(engine storage.Engine, rdb *redis.Client) *repositories {
	return &repositories{
		user:       repository.NewUserRepository(engine, rdb),
		invitation: repository.NewInvitationRepository(engine),
		message:    repository.NewMessageRepository(engine),
		notice:     repository.NewNoticeRepository(engine),
		request:    repository.NewRequestRepository(engine),
		backup:     repository.NewBackupRepository(engine),
	}
}

func (a *App) initServices(repos *repositories, cfg *config.Config) *services {
	s := &services{}

	s.sessions = service.NewSessionRegistry()
	s.storage = service.NewStorageService(cfg)
	s.auth = service.NewAuthService(repos.user, repos.invitation, s.sessions, cfg)
	s.user = service.NewUserService(repos.user, s.auth)
	s.friendship = service.NewFriendshipService(repos.user)
	s.invitation = service.NewInvitationService(repos.invitation)
	s.moderation = service.NewModerationService(repos.request, repos.user)
	s.notice = service.NewNoticeService(repos.notice)
	s.chat = service.NewChatService(repos.message, repos.user)
	s.backup = service.NewBackupService(repos.backup, s.sessions)

	return s
}

func (a *App) initControllers(s *services, engine storage.Engine) *controllers {
	return &controllers{
		auth:       controller.NewAuthController(s.auth, s.invitation),
		user:       controller.NewUserController(s.user, s.storage),
		friendship: controller.NewFriendshipController(s.friendship),
		chat:       controller.NewChatController(s.chat),
		notice:     controller.NewNoticeController(s.notice),
		moderation: controller.NewModerationController(s.moderation),
		admin:      controller.NewAdminController(s.user, s.auth, s.invitation, s.moderation, s.notice, s.backup),
		health:     controller.NewHealthController(engine),
	}
}

func (a *App) setupMiddlewares(router *gin.Engine, cfg *config.Config) {
	router.Use(func(c *gin.Context) {
		c.Set("config", cfg)
		c.Next()
	})
	router.Use(security.CORS(cfg.CORS.AllowedOrigins))
	router.Use(security.Secure())

	maxRequests := cfg.RateLimit.MaxRequests
	if maxRequests <= 0 {
		maxRequests = 6000
	}
	window := time.Duration(cfg.RateLimit.WindowMinutes) * time.Minute
	if window <= 0 {
		window = time.Minute
	}
	router.Use(security.RateLimiter(maxRequests, window))

	if cfg.Tracing.Enabled {
		router.Use(tracing.GinMiddleware())
	}

	router.Use(monitoring.MetricsMiddleware())
}

func NewApp(cfg *config.Config) *App {
	logger.InitLogger(cfg)

	logger.Log.Info("Logger initialized successfully")

	engine, err := initEngine(cfg)
	if err != nil {
		logger.Log.Fatal("Failed to initialize storage engine", zap.Error(err))
	}

	var rdb *redis.Client
	if cfg.Redis.Enabled {
		rdb, err = database.InitRedis(&cfg.Redis)
		if err != nil {
			// 缓存不可用不阻塞启动，降级为直接回源
			logger.Log.Warn("Redis unavailable, friend cache disabled", zap.Error(err))
			rdb = nil
		}
	}

	app := &App{
		Config: cfg,
		Engine: engine,
		Redis:  rdb,
	}

	repos := app.initRepositories(engine, rdb)
	services := app.initServices(repos, cfg)
	controllers := app.initControllers(services, engine)

	if err := repository.Seed(context.Background(), engine); err != nil {
		logger.Log.Fatal("Failed to seed initial data", zap.Error(err))
	}

	monitoring.Init()

	if cfg.Server.Mode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.Default()
	app.Router = router

	app.setupMiddlewares(router, cfg)

	if cfg.Tracing.Enabled {
		if _, err := tracing.InitTracer("blackhorse-directory", cfg.Tracing.CollectorEndpoint); err != nil {
			logger.Log.Fatal("Failed to initialize tracing", zap.Error(err))
		}
	}

	app.registerRoutes(router, controllers, services)

	if cfg.Photos.Type != "minio" {
		if _, err := os.Stat(cfg.Photos.LocalPath); os.IsNotExist(err) {
			os.MkdirAll(cfg.Photos.LocalPath, os.ModePerm)
		}
		router.Static("/uploads", cfg.Photos.LocalPath)
	}

	return app
}

func (a *App) Run() {
	srv := &http.Server{
		Addr:    ":" + a.Config.Server.Port,
		Handler: a.Router,
	}

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
