package app

import (
	"blackhorse_backend/docs"
	"blackhorse_backend/internal/middleware"
	"blackhorse_backend/pkg/monitoring"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

func (a *App) registerRoutes(router *gin.Engine, c *controllers, s *services) {
	docs.SwaggerInfo.BasePath = "/"
	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler, ginSwagger.URL("/swagger/doc.json")))

	router.GET("/metrics", monitoring.PrometheusHandler())

	// 1. 公共路由（无需登录，封禁会员也能访问申诉入口）
	public := router.Group("/api")
	{
		public.GET("/health", c.health.HealthCheck)
		public.POST("/register", c.auth.Register)
		public.POST("/login", c.auth.Login)
		public.POST("/admin/login", c.auth.AdminLogin)
		public.POST("/invitations/validate", c.auth.ValidateInvite)
		public.POST("/password-requests", c.moderation.SubmitPasswordRequest)
		public.POST("/appeals", c.moderation.SubmitBanAppeal)
	}

	// 2. 会员路由
	authGroup := router.Group("/api")
	authGroup.Use(middleware.AuthMiddleware(s.auth), middleware.ActivityMiddleware(s.auth))
	{
		authGroup.POST("/logout", c.auth.Logout)
		authGroup.POST("/heartbeat", c.auth.Heartbeat)

		authGroup.GET("/users", c.user.Lobby)
		authGroup.GET("/users/leaderboard", c.user.Leaderboard)
		authGroup.GET("/users/me", c.user.Profile)
		authGroup.PUT("/users/me", c.user.UpdateProfile)
		authGroup.POST("/users/me/photos", c.user.UploadPhoto)

		authGroup.POST("/users/:id/like", c.friendship.Like)
		authGroup.POST("/users/:id/friend-request", c.friendship.SendRequest)
		authGroup.GET("/friends", c.friendship.Friends)
		authGroup.GET("/friend-requests", c.friendship.PendingRequests)
		authGroup.POST("/friend-requests/:id/accept", c.friendship.AcceptRequest)
		authGroup.POST("/friend-requests/:id/reject", c.friendship.RejectRequest)

		authGroup.POST("/messages", c.chat.Send)
		authGroup.GET("/messages/:id", c.chat.History)

		authGroup.GET("/notices", c.notice.List)
	}

	// 3. 后台路由
	adminGroup := router.Group("/api/admin")
	adminGroup.Use(middleware.AuthMiddleware(s.auth), middleware.AdminMiddleware())
	{
		adminGroup.GET("/users", c.admin.ListUsers)
		adminGroup.POST("/users", c.admin.CreateUser)
		adminGroup.DELETE("/users/:id", c.admin.DeleteUser)
		adminGroup.POST("/users/reset-password", c.admin.ResetPassword)
		adminGroup.POST("/users/:id/ban", c.admin.BanUser)
		adminGroup.POST("/users/:id/unban", c.admin.UnbanUser)

		adminGroup.GET("/invitations", c.admin.ListInvitations)
		adminGroup.POST("/invitations", c.admin.GenerateInvitation)
		adminGroup.DELETE("/invitations/:id", c.admin.DeleteInvitation)

		adminGroup.GET("/password-requests", c.admin.ListPasswordRequests)
		adminGroup.POST("/password-requests/:id/approve", c.admin.ApprovePasswordRequest)
		adminGroup.POST("/password-requests/:id/resolve", c.admin.ResolvePasswordRequest)
		adminGroup.DELETE("/password-requests/:id", c.admin.DeletePasswordRequest)

		adminGroup.GET("/appeals", c.admin.ListBanAppeals)
		adminGroup.POST("/appeals/:id/resolve", c.admin.ResolveBanAppeal)
		adminGroup.DELETE("/appeals/:id", c.admin.DeleteBanAppeal)

		adminGroup.POST("/notices", c.admin.CreateNotice)
		adminGroup.DELETE("/notices/:id", c.admin.DeleteNotice)

		adminGroup.GET("/export", c.admin.ExportData)
		adminGroup.POST("/import", c.admin.ImportData)
	}
}
