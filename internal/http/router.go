package http

import (
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

// RouterConfig holds the router settings.
type RouterConfig struct {
	// AllowedOrigins lists the CORS origins; empty allows all origins.
	AllowedOrigins []string
}

// SetupRouter creates and configures the Gin router.
func SetupRouter(handler *Handler, cfg RouterConfig) *gin.Engine {
	router := gin.Default()

	// Setup CORS middleware.
	corsConfig := cors.DefaultConfig()
	if len(cfg.AllowedOrigins) > 0 {
		corsConfig.AllowOrigins = cfg.AllowedOrigins
	} else {
		corsConfig.AllowAllOrigins = true
	}
	router.Use(cors.New(corsConfig))

	if handler.metrics != nil {
		router.Use(handler.metrics.Middleware())
		router.GET("/metrics", handler.metrics.Handler())
	}

	// API v1 routes.
	v1 := router.Group("/v1")
	v1.GET("/variables/:name", handler.GetVariable)
	v1.GET("/dates", handler.GetDates)
	v1.GET("/files", handler.GetFiles)
	v1.GET("/series", handler.GetSeries)
	v1.GET("/depth", handler.GetDepth)
	v1.GET("/observations", handler.GetObservations)

	// Statistics on posted values.
	v1.POST("/trend", handler.PostTrend)
	v1.POST("/pdf", handler.PostPDF)

	// Figures.
	figures := v1.Group("/figures")
	figures.GET("/map", handler.GetMapFigure)
	figures.GET("/timeseries", handler.GetTimeseriesFigure)

	// Health check.
	router.GET("/health", handler.HealthCheck)

	return router
}
