package routes

import (
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/joshua-takyi/homeswift/internal/container"
	"github.com/joshua-takyi/homeswift/internal/handlers"
	"github.com/joshua-takyi/homeswift/internal/middleware"
	"github.com/joshua-takyi/homeswift/internal/models"
)

// SetupRoutes configures all routes with the dependency container
func SetupRoutes(c *container.Container) *gin.Engine {
	cfg := c.Config

	r := gin.New()
	r.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.CORSOrigins,
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS", "PATCH"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization", "X-Request-ID", "X-Session-ID"},
		ExposeHeaders:    []string{"Content-Length", "X-Request-ID", "X-RateLimit-Limit", "X-RateLimit-Remaining", "X-RateLimit-Reset", "Retry-After"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	r.Use(middleware.RequestID())
	r.Use(middleware.StructuredLogger(c.Logger))
	r.Use(middleware.Metrics(c.Metrics))
	r.Use(middleware.ErrorHandler(c.Logger))
	r.Use(gin.Recovery())

	r.GET("/metrics", gin.WrapH(c.Metrics.Handler()))

	optional := middleware.OptionalAuth(c.Authenticator, c.Logger)
	required := middleware.RequireAuth(c.Authenticator)
	adminOnly := middleware.RequireRoles(models.RoleAdmin)
	limited := func(prefix string) gin.HandlerFunc {
		return middleware.RateLimiter(c.Redis, cfg.RateLimit, cfg.RateLimitWindow, prefix, c.Metrics, c.Logger)
	}

	api := r.Group("/api")
	api.GET("/health", handlers.Health(c.HealthChecks))

	authRoutes := api.Group("/auth")
	{
		authRoutes.POST("/register", limited("auth:register"), handlers.Register(c.AuthService))
		authRoutes.POST("/login", limited("auth:login"), handlers.Login(c.AuthService))
		authRoutes.POST("/logout", optional, handlers.Logout(c.AuthService))
		authRoutes.GET("/me", required, handlers.Me(c.AuthService))
		authRoutes.POST("/forgot-password", limited("auth:forgot"), handlers.ForgotPassword(c.AuthService))
		authRoutes.POST("/reset-password", limited("auth:reset"), handlers.ResetPassword(c.AuthService))
		authRoutes.GET("/verify-email", handlers.VerifyEmail(c.AuthService))
		authRoutes.POST("/refresh", handlers.Refresh(c.AuthService))
		// static segment wins over :provider
		authRoutes.GET("/oauth/callback", handlers.OAuthCallback(cfg.FrontendURL))
		authRoutes.GET("/oauth/:provider", handlers.OAuthRedirect(c.AuthService, cfg.FrontendURL))
		authRoutes.POST("/oauth/session", handlers.OAuthSession(c.AuthService))
	}

	propertyRoutes := api.Group("/properties")
	{
		propertyRoutes.GET("", optional, handlers.ListProperties(c.PropertyService))
		propertyRoutes.GET("/featured", optional, handlers.FeaturedProperties(c.PropertyService))
		propertyRoutes.GET("/:id", optional, handlers.GetProperty(c.PropertyService))
		propertyRoutes.POST("", required, handlers.CreateProperty(c.PropertyService))
		propertyRoutes.PUT("/:id", required, handlers.UpdateProperty(c.PropertyService))
		propertyRoutes.PATCH("/:id", required, handlers.UpdateProperty(c.PropertyService))
		propertyRoutes.DELETE("/:id", required, handlers.DeleteProperty(c.PropertyService))
		propertyRoutes.POST("/:id/images", required, handlers.AddPropertyImages(c.PropertyService))
		propertyRoutes.DELETE("/:id/images/:imageId", required, handlers.DeletePropertyImage(c.PropertyService))
		propertyRoutes.PATCH("/:id/images/:imageId/primary", required, handlers.SetPrimaryImage(c.PropertyService))
		propertyRoutes.GET("/:id/stats", required, handlers.PropertyStats(c.PropertyService))
	}

	searchRoutes := api.Group("/search", optional)
	{
		searchRoutes.GET("", handlers.Search(c.SearchService))
		searchRoutes.GET("/suggestions", handlers.Suggestions(c.SearchService))
	}

	userRoutes := api.Group("/users")
	{
		me := userRoutes.Group("/me", required)
		me.GET("", handlers.GetProfile(c.UserService))
		me.PUT("", handlers.UpdateProfile(c.UserService))
		me.PUT("/password", handlers.ChangePassword(c.AuthService))
		me.GET("/search-history", handlers.GetSearchHistory(c.UserService))
		me.DELETE("/search-history", handlers.ClearSearchHistory(c.UserService))
		me.GET("/saved", handlers.ListSaved(c.SavedService))
		me.POST("/saved/:propertyId", handlers.SaveProperty(c.SavedService))
		me.DELETE("/saved/:propertyId", handlers.UnsaveProperty(c.SavedService))

		userRoutes.GET("/:id/properties", optional, handlers.ListAgentProperties(c.PropertyService))
		userRoutes.GET("/:id/stats", required, handlers.AgentStats(c.PropertyService))
		userRoutes.GET("", required, adminOnly, handlers.ListUsers(c.UserService))
		userRoutes.PATCH("/:id/role", required, adminOnly, handlers.SetUserRole(c.UserService))
	}

	waitlistRoutes := api.Group("/waitlist")
	{
		waitlistRoutes.POST("", limited("waitlist"), handlers.JoinWaitlist(c.WaitlistService))
		waitlistRoutes.GET("/count", handlers.WaitlistCount(c.WaitlistService))
		waitlistRoutes.GET("", required, adminOnly, handlers.ListWaitlist(c.WaitlistService))
	}

	return r
}
