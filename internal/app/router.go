package app

import (
	"video_label_backend/docs"
	"video_label_backend/internal/config"
	"video_label_backend/internal/middleware"
	"video_label_backend/internal/model"

	"video_label_backend/pkg/monitoring"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

func (a *App) registerRoutes(router *gin.Engine, c *controllers, repos *repositories, cfg *config.Config) {
	docs.SwaggerInfo.BasePath = "/api"
	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler, ginSwagger.URL("/swagger/doc.json")))

	router.GET("/metrics", monitoring.PrometheusHandler())

	// 1. 公共路由(无需登录)
	a.registerPublicRoutes(router, c)

	// 2. 需要授权的路由
	authGroup := router.Group("/api")
	authGroup.Use(middleware.AuthMiddleware(cfg), middleware.ActivityMiddleware(repos.user))
	{
		a.registerLabelingRoutes(authGroup, c)
	}

	// 3. 管理员相关接口
	a.registerAdminRoutes(router, c, repos)
}

func (a *App) registerPublicRoutes(router *gin.Engine, c *controllers) {
	public := router.Group("/api")
	{
		public.GET("/health", c.health.HealthCheck)
		public.POST("/register", c.auth.Register)
		public.POST("/login", c.auth.Login)
	}
}

// registerLabelingRoutes 标注端接口：查询素材/模板/项目，提交答案与审核，
// 触发共识自动提交。项目级角色（annotator/reviewer）在 service 层校验。
func (a *App) registerLabelingRoutes(rg *gin.RouterGroup, c *controllers) {
	rg.GET("/profile", c.auth.GetProfile)
	rg.PUT("/user/profile", c.user.UpdateProfile)

	// 素材与模板（只读）
	rg.GET("/videos", c.video.ListVideos)
	rg.GET("/videos/:id", c.video.GetVideo)
	rg.GET("/questions", c.schema.ListQuestions)
	rg.GET("/questions/:id", c.schema.GetQuestion)
	rg.GET("/question-groups", c.schema.ListGroups)
	rg.GET("/question-groups/:id", c.schema.GetGroup)

	// 项目
	rg.GET("/projects", c.project.ListProjects)
	rg.GET("/projects/:id", c.project.GetProject)
	rg.GET("/projects/:id/completion", c.project.GetCompletion)

	// 标注与审核
	rg.POST("/annotations", c.annotation.SubmitGroup)
	rg.PUT("/annotations/:id/review", c.annotation.ReviewAnswer)
	rg.PUT("/ground-truth/correct", c.annotation.CorrectGroundTruth)

	// 共识自动提交
	rg.POST("/consensus/annotator", c.consensus.AutoSubmitAnnotator)
	rg.POST("/consensus/reviewer", c.consensus.AutoSubmitReviewer)
}

func (a *App) registerAdminRoutes(router *gin.Engine, c *controllers, repos *repositories) {
	admin := router.Group("/api/admin")
	admin.Use(middleware.AuthMiddleware(a.Config), middleware.ActivityMiddleware(repos.user), middleware.RoleMiddleware(model.PlatformAdmin))
	{
		// 用户管理
		admin.GET("/users", c.user.GetUsers)
		admin.GET("/users/:id", c.user.GetUser)
		admin.PUT("/users/:id/disabled", c.user.SetDisabled)

		// 素材管理
		admin.POST("/videos", c.video.Upload)
		admin.POST("/videos/:id/archive", c.video.ArchiveVideo)

		// 模板管理
		admin.POST("/questions", c.schema.CreateQuestion)
		admin.POST("/questions/:id/archive", c.schema.ArchiveQuestion)
		admin.POST("/question-groups", c.schema.CreateGroup)
		admin.POST("/question-groups/:id/archive", c.schema.ArchiveGroup)

		// 项目管理
		admin.POST("/projects", c.project.CreateProject)
		admin.POST("/projects/:id/archive", c.project.ArchiveProject)
		admin.POST("/projects/:id/videos", c.project.AssignVideo)
		admin.POST("/projects/:id/groups", c.project.AttachGroup)
		admin.PUT("/projects/:id/displays", c.project.SetDisplayOverride)
		admin.POST("/projects/:id/roles", c.project.AssignRole)
		admin.DELETE("/projects/:id/roles/:userId/:role", c.project.RemoveRole)

		// 真值修正与准确率
		admin.PUT("/ground-truth/override", c.admin.OverrideGroundTruth)
		admin.GET("/projects/:id/accuracy", c.admin.GetProjectAccuracy)

		// 导出
		admin.GET("/export", c.export.Export)
		admin.GET("/export/validate", c.export.ValidateConsistency)
	}
}
