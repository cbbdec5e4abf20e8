package handler

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"invitely/rsvphub/internal/config"
	"invitely/rsvphub/internal/handler/middleware"
)

func SetupRouter(
	cfg *config.Config,
	logger *zap.Logger,
	authenticator middleware.Authenticator,
	authHandler *AuthHandler,
	rsvpHandler *RSVPHandler,
	adminHandler *AdminHandler,
) *gin.Engine {
	if cfg.Server.Mode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()

	// Global middleware
	r.Use(middleware.Recovery(logger))
	r.Use(middleware.RequestLogger(logger))
	r.Use(middleware.CORS(cfg.CORS))

	// Health check
	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	api := r.Group("/api")

	// Guest self-service
	rsvp := api.Group("/rsvp")
	{
		rsvp.POST("", rsvpHandler.Create)
		rsvp.POST("/cancel", rsvpHandler.Cancel)
		rsvp.GET("/get", rsvpHandler.Get)
		rsvp.POST("/update", rsvpHandler.Update)
		rsvp.GET("",
			middleware.JWTAuth(authenticator),
			middleware.EventScope(middleware.FromQuery("eventId")),
			rsvpHandler.List,
		)
	}

	// Dashboard sessions
	auth := api.Group("/auth")
	{
		auth.POST("/login", authHandler.Login)
		auth.POST("/logout", middleware.JWTAuth(authenticator), authHandler.Logout)
		auth.GET("/me", middleware.JWTAuth(authenticator), authHandler.Me)
	}

	// Admin routes (session + per-event scope)
	admin := api.Group("/admin")
	admin.Use(middleware.JWTAuth(authenticator))
	{
		admin.GET("/events", adminHandler.ListEvents)

		event := admin.Group("/events/:slug")
		event.Use(middleware.EventScope(middleware.FromParam("slug")))
		{
			event.GET("", adminHandler.GetEvent)
			event.PUT("/settings", adminHandler.UpdateSettings)
			event.GET("/rsvps", adminHandler.ListRSVPs)
			event.GET("/stats", adminHandler.Stats)
			event.POST("/rsvps/send", adminHandler.SendBulk)
			event.POST("/rsvps/import", adminHandler.Import)
			event.PATCH("/rsvps/:id", adminHandler.UpdateRSVP)
			event.POST("/rsvps/:id/send", adminHandler.SendEmail)
		}
	}

	return r
}
