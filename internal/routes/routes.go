package routes

import (
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/Brownie44l1/deepeye-api/internal/config"
	"github.com/Brownie44l1/deepeye-api/internal/handlers"
	"github.com/Brownie44l1/deepeye-api/internal/logging"
)

func SetupRoutes(h *handlers.Handler, cfg config.ServerConfig, log logrus.FieldLogger, reporter logging.Reporter) *gin.Engine {
	r := gin.New()
	r.MaxMultipartMemory = cfg.MaxUploadBytes

	r.Use(logging.Middleware(log))
	r.Use(handlers.Recovery(log, reporter))
	r.Use(cors.New(corsConfig(cfg.CORSOrigins)))

	r.GET("/", h.Root)
	r.GET("/health", h.Health)
	r.POST("/predict", h.Predict)
	r.POST("/predict/ensemble", h.Ensemble)

	return r
}

func corsConfig(origins []string) cors.Config {
	c := cors.Config{
		AllowMethods:     []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", logging.RequestIDHeader},
		ExposeHeaders:    []string{logging.RequestIDHeader},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}
	for _, o := range origins {
		if o == "*" {
			c.AllowAllOrigins = true
			c.AllowCredentials = false
			return c
		}
	}
	if len(origins) == 0 {
		c.AllowOriginFunc = func(string) bool { return false }
		return c
	}
	c.AllowOrigins = origins
	return c
}
