package http

import (
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/licitabrasil/licita-api/internal/http/middleware"
	"github.com/licitabrasil/licita-api/internal/metrics"
)

type RouterConfig struct {
	Environment    string
	AllowedOrigins []string
}

func NewRouter(handler *Handler, parser middleware.TokenParser, m *metrics.Metrics, cfg RouterConfig) *gin.Engine {
	if cfg.Environment != "development" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(
		middleware.RequestID(),
		middleware.Recovery(handler.log),
		middleware.RequestLogger(handler.log),
		middleware.Metrics(m),
		cors.New(corsConfig(cfg.AllowedOrigins)),
	)

	router.GET("/health", handler.health)
	if m != nil {
		router.GET("/metrics", gin.WrapH(m.Handler()))
	}
	handler.Register(router, parser)
	return router
}

func corsConfig(origins []string) cors.Config {
	config := cors.DefaultConfig()
	config.AllowHeaders = []string{"Origin", "Content-Type", "Accept", "Authorization", middleware.RequestIDHeader}
	config.ExposeHeaders = []string{"Content-Length", "Content-Disposition", middleware.RequestIDHeader}
	config.AllowMethods = []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"}
	config.MaxAge = 12 * time.Hour

	allowAll := len(origins) == 0
	for _, origin := range origins {
		if origin == "*" {
			allowAll = true
		}
	}
	if allowAll {
		config.AllowAllOrigins = true
	} else {
		config.AllowOrigins = origins
		config.AllowCredentials = true
	}
	return config
}
