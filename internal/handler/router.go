package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/noah-isme/sched-console/internal/middleware"
	"github.com/noah-isme/sched-console/internal/models"
)

type tokenValidator interface {
	ValidateToken(token string) (*models.JWTClaims, error)
}

// Routes groups the handlers mounted by RegisterRoutes.
type Routes struct {
	Console     *ConsoleHandler
	Collections *CollectionHandler
	Metrics     *MetricsHandler
	// Auth enables bearer-token authentication when non-nil.
	Auth tokenValidator
}

// RegisterRoutes mounts the ops endpoints at the root and the console API under prefix.
func RegisterRoutes(r *gin.Engine, prefix string, routes Routes) {
	if routes.Metrics != nil {
		r.GET("/health", routes.Metrics.Health)
		r.GET("/ready", routes.Metrics.Ready)
		r.GET("/metrics", routes.Metrics.Prometheus)
	}

	api := r.Group(prefix)
	if routes.Auth != nil {
		api.Use(middleware.JWT(routes.Auth))
	}
	api.Use(middleware.Session())
	editors := middleware.RequireRoles(middleware.EditorRoles...)

	console := api.Group("/console")
	console.GET("/state", routes.Console.State)
	console.PUT("/tab", routes.Console.SelectTab)
	console.POST("/form/open", routes.Console.OpenForm)
	console.POST("/form/cancel", routes.Console.CancelForm)
	console.GET("/drafts/:kind", routes.Console.GetDraft)
	console.PATCH("/drafts/:kind", routes.Console.EditDraft)
	console.POST("/drafts/:kind/submit", editors, routes.Console.Submit)
	console.GET("/notifications", routes.Console.Notifications)
	console.DELETE("/notifications/:severity", routes.Console.Dismiss)
	console.GET("/assignments/options", routes.Console.AssignmentOptions)

	collections := api.Group("/collections")
	collections.GET("/:kind", routes.Collections.List)
	collections.POST("/:kind/refresh", routes.Collections.Refresh)
	collections.DELETE("/:kind/:id", editors, routes.Collections.Delete)
}
