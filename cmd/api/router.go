package main

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"cardistry-catalog/internal/domains/move/render"
	"cardistry-catalog/internal/shared/middleware"
	"cardistry-catalog/pkg/container"
)

// multipart bodies beyond this spill to temp files
const maxMultipartMemory = 8 << 20

func SetupRouter(c *container.Container) *gin.Engine {
	router := gin.New()
	router.MaxMultipartMemory = maxMultipartMemory
	router.SetHTMLTemplate(render.Templates())

	// Global middlewares
	router.Use(
		middleware.Recovery(),
		middleware.RequestID(),
		middleware.Logger(),
		middleware.OptionalAuth(c.SessionService),
	)

	router.GET("/", c.MoveHandler.Page)

	v1 := router.Group("/api/v1")
	{
		v1.GET("/health", healthCheckHandler(c))

		setupAuthRoutes(v1, c)
		setupMoveRoutes(v1, c)
	}

	return router
}

// ========================================
// AUTH ROUTES
// ========================================
func setupAuthRoutes(v1 *gin.RouterGroup, c *container.Container) {
	auth := v1.Group("/auth")
	{
		auth.POST("/register", c.SessionHandler.Register)
		auth.POST("/sign-in", c.SessionHandler.SignIn)
		auth.POST("/sign-out", c.SessionHandler.SignOut)
		auth.GET("/me", c.SessionHandler.Me)
	}
}

// ========================================
// MOVE ROUTES
// ========================================
func setupMoveRoutes(v1 *gin.RouterGroup, c *container.Container) {
	moves := v1.Group("/moves")
	{
		moves.GET("", c.MoveHandler.ListMoves)
		moves.GET("/stream", c.MoveHandler.StreamMoves)
		moves.GET("/export.xlsx", c.MoveHandler.ExportMoves)
		moves.POST("", c.MoveHandler.CreateMove)
	}

	v1.GET("/uploads/:id", c.MoveHandler.GetUpload)
}

// ========================================
// HEALTH
// ========================================
func healthCheckHandler(appCtx *container.Container) gin.HandlerFunc {
	return func(c *gin.Context) {
		status := "ok"
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()

		dbStatus := gin.H{"status": "ok"}
		if err := appCtx.DB.HealthCheck(ctx); err != nil {
			dbStatus["status"] = fmt.Sprintf("error: %v", err)
			status = "degraded"
		} else if stats, err := appCtx.DB.Stats(); err == nil {
			dbStatus["pool"] = stats
		}

		cacheStatus := "ok"
		if appCtx.Redis == nil {
			cacheStatus = "in-memory"
		} else if err := appCtx.Cache.Ping(ctx); err != nil {
			cacheStatus = fmt.Sprintf("error: %v", err)
			status = "degraded"
		}

		storageStatus := "ok"
		if err := appCtx.Storage.HealthCheck(ctx); err != nil {
			storageStatus = fmt.Sprintf("error: %v", err)
			status = "degraded"
		}

		liveStats := appCtx.Live.Stats()
		if !liveStats.Running {
			status = "degraded"
		}

		code := http.StatusOK
		if status != "ok" {
			code = http.StatusServiceUnavailable
		}
		c.JSON(code, gin.H{
			"status":    status,
			"timestamp": time.Now().Format(time.RFC3339),
			"version":   appCtx.Config.App.Version,
			"services": gin.H{
				"database": dbStatus,
				"cache":    cacheStatus,
				"storage":  storageStatus,
				"feed":     liveStats,
			},
		})
	}
}
