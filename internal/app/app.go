package app

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"video_label_backend/internal/config"
	"video_label_backend/internal/controller"
	"video_label_backend/internal/repository"
	"video_label_backend/internal/service"
	"video_label_backend/pkg/database"
	"video_label_backend/pkg/logger"
	"video_label_backend/pkg/monitoring"
	"video_label_backend/pkg/security"
	"video_label_backend/pkg/tracing"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type App struct {
	Config *config.Config
	Router *gin.Engine
	DB     *gorm.DB
	Redis  *redis.Client
}

type repositories struct {
	user        *repository.UserRepository
	video       *repository.VideoRepository
	question    *repository.QuestionRepository
	project     *repository.ProjectRepository
	role        *repository.RoleAssignmentRepository
	answer      *repository.AnswerRepository
	groundTruth *repository.GroundTruthRepository
}

type services struct {
	auth       *service.AuthService
	user       *service.UserService
	storage    *service.StorageService
	video      *service.VideoService
	schema     *service.SchemaService
	project    *service.ProjectService
	annotation *service.AnnotationService
	consensus  *service.ConsensusService
	override   *service.OverrideService
	export     *service.ExportService
}

type controllers struct {
	auth       *controller.AuthController
	user       *controller.UserController
	video      *controller.VideoController
	schema     *controller.SchemaController
	project    *controller.ProjectController
	annotation *controller.AnnotationController
	consensus  *controller.ConsensusController
	admin      *controller.AdminController
	export     *controller.ExportController
	health     *controller.HealthController
}

func (a *App) initRepositories(db *gorm.DB) *repositories {
	return &repositories{
		user:        repository.NewUserRepository(db),
		video:       repository.NewVideoRepository(db),
		question:    repository.NewQuestionRepository(db),
		project:     repository.NewProjectRepository(db),
		role:        repository.NewRoleAssignmentRepository(db),
		answer:      repository.NewAnswerRepository(db),
		groundTruth: repository.NewGroundTruthRepository(db),
	}
}

func (a *App) initServices(repos *repositories, cfg *config.Config, db *gorm.DB, rdb *redis.Client) *services {
	s := &services{}
	cache := service.NewCompletionCache(rdb)

	s.storage = service.NewStorageService(cfg)
	s.auth = service.NewAuthService(repos.user, cfg)
	s.user = service.NewUserService(repos.user)
	s.video = service.NewVideoService(repos.video, s.storage)
	s.schema = service.NewSchemaService(repos.question)
	s.project = service.NewProjectService(db, repos.project, repos.video, repos.question,
		repos.answer, repos.groundTruth, repos.role, cache)
	s.annotation = service.NewAnnotationService(db, repos.question, repos.project,
		repos.answer, repos.groundTruth, repos.role, cache)
	s.consensus = service.NewConsensusService(db, repos.question, repos.project,
		repos.answer, repos.groundTruth, repos.role, cache)
	s.override = service.NewOverrideService(db, repos.question, repos.project,
		repos.answer, repos.groundTruth, repos.role)
	s.export = service.NewExportService(db, repos.project, repos.question,
		repos.video, repos.groundTruth, cfg.Export.MaxViolationVideos)

	return s
}

func (a *App) initControllers(s *services, db *gorm.DB) *controllers {
	return &controllers{
		auth:       controller.NewAuthController(s.auth, s.user),
		user:       controller.NewUserController(s.user),
		video:      controller.NewVideoController(s.video),
		schema:     controller.NewSchemaController(s.schema),
		project:    controller.NewProjectController(s.project),
		annotation: controller.NewAnnotationController(s.annotation, s.override),
		consensus:  controller.NewConsensusController(s.consensus),
		admin:      controller.NewAdminController(s.override),
		export:     controller.NewExportController(s.export),
		health:     controller.NewHealthController(db),
	}
}

func (a *App) setupMiddlewares(router *gin.Engine, cfg *config.Config) {
	router.Use(security.CORS(cfg.CORS.AllowedOrigins))
	router.Use(security.Secure())

	maxRequests := cfg.RateLimit.MaxRequests
	if maxRequests <= 0 {
		maxRequests = 100000
	}
	window := time.Duration(cfg.RateLimit.WindowMinutes) * time.Minute
	if window <= 0 {
		window = time.Minute
	}
	router.Use(security.RateLimiter(maxRequests, window))

	// 分布式追踪中间件
	if cfg.Tracing.Enabled {
		router.Use(tracing.GinMiddleware())
	}

	router.Use(monitoring.MetricsMiddleware())
}

// registerBuiltinHooks 启动期注册组级校验钩子。问题组通过名字引用，
// 未注册的名字在组创建时即被拒绝。
func registerBuiltinHooks() {
	must := func(err error) {
		if err != nil {
			logger.Log.Fatal("注册校验钩子失败", zap.Error(err))
		}
	}

	// 任何答案为空即否决整组提交
	must(service.RegisterVerificationHook("non_empty_answers", func(answers map[string]string) error {
		for question, value := range answers {
			if strings.TrimSpace(value) == "" {
				return &service.HookViolation{Question: question, Reason: "答案为空"}
			}
		}
		return nil
	}))
}

func NewApp(cfg *config.Config) *App {
	logger.InitLogger(cfg)
	defer logger.Log.Sync()

	logger.Log.Info("Logger initialized successfully")

	db, err := database.InitDB(&cfg.Database)
	if err != nil {
		logger.Log.Fatal("Failed to initialize database", zap.Error(err))
	}

	rdb, err := database.InitRedis(&cfg.Redis)
	if err != nil {
		logger.Log.Fatal("Failed to initialize redis", zap.Error(err))
	}

	app := &App{
		Config: cfg,
		DB:     db,
		Redis:  rdb,
	}

	registerBuiltinHooks()

	repos := app.initRepositories(db)
	services := app.initServices(repos, cfg, db, rdb)
	controllers := app.initControllers(services, db)

	// 监控初始化
	monitoring.Init()

	if cfg.Server.Mode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.Default()
	app.Router = router

	app.setupMiddlewares(router, cfg)

	if cfg.Tracing.Enabled {
		if _, err := tracing.InitTracer("video-label-backend", cfg.Tracing.CollectorEndpoint); err != nil {
			logger.Log.Fatal("Failed to initialize tracing", zap.Error(err))
		}
	}

	app.registerRoutes(router, controllers, repos, cfg)

	if cfg.Storage.Type == "local" {
		router.Static("/uploads", cfg.Storage.LocalPath)
	}

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
