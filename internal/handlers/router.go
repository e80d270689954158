package handlers

import (
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/threadmark/catalog-api/internal/config"
)

// Router wires every route with the shared middleware stack.
func Router(cfg *config.Config, log zerolog.Logger,
	catalogH *CatalogHandler, adminH *AdminHandler, healthH *HealthHandler) *gin.Engine {

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(RequestID())
	r.Use(RequestLogger(log))

	corsCfg := cors.Config{
		AllowMethods:     []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization", "X-Request-ID"},
		ExposeHeaders:    []string{"X-Request-ID"},
		AllowCredentials: false,
		MaxAge:           12 * time.Hour,
	}
	if len(cfg.CORSOrigins) == 1 && cfg.CORSOrigins[0] == "*" {
		corsCfg.AllowAllOrigins = true
	} else {
		corsCfg.AllowOrigins = cfg.CORSOrigins
	}
	r.Use(cors.New(corsCfg))

	limiter := NewRateLimiter(cfg.RateLimitRPS, cfg.RateLimitBurst)

	r.GET("/health", healthH.Health)

	api := r.Group("/api", limiter.Middleware())
	{
		api.GET("/products", catalogH.List)
		api.GET("/products/facets", catalogH.Facets)
		api.GET("/products/suggest", catalogH.Suggest)
		api.GET("/products/:code", catalogH.Detail)
	}

	admin := r.Group("/api/admin", RequireAdmin(cfg.JWTSecret))
	{
		admin.POST("/cache/invalidate", adminH.Invalidate)
	}

	return r
}
