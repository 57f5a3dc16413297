// Package router builds the Gin engine from the initialized application.
package router

import (
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"

	apphttp "roofquote_backend/internal/http"
	"roofquote_backend/platform/httpkit"
)

// New wires middleware, health checks, and every module's routes onto a
// fresh engine.
func New(app *apphttp.App) *gin.Engine {
	engine := gin.New()
	engine.Use(gin.Recovery())
	engine.Use(httpkit.RequestID())
	engine.Use(httpkit.RequestLogger(app.Logger))
	engine.Use(httpkit.SecurityHeaders())

	engine.Use(cors.New(corsConfig(app)))

	limiter := httpkit.NewIPRateLimiter(rate.Limit(20), 40, app.Logger)
	engine.Use(limiter.RateLimit())

	// Webhook callers that probe with GET must get a 405, not a 404.
	engine.HandleMethodNotAllowed = true
	engine.NoMethod(func(c *gin.Context) {
		httpkit.Error(c, http.StatusMethodNotAllowed, "method not allowed", nil)
	})

	engine.GET("/api/health", func(c *gin.Context) {
		status := gin.H{"status": "ok"}
		if app.Health != nil {
			if err := app.Health.Ping(c.Request.Context()); err != nil {
				c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded"})
				return
			}
		}
		c.JSON(http.StatusOK, status)
	})

	routerCtx := &apphttp.RouterContext{
		Engine:      engine,
		V1:          engine.Group("/api/v1"),
		WebhookAuth: httpkit.WebhookKeyAuth(app.Config.GetWebhookAPIKey()),
	}

	for _, module := range app.Modules {
		module.RegisterRoutes(routerCtx)
		app.Logger.Info("registered module routes", "module", module.Name())
	}

	return engine
}

func corsConfig(app *apphttp.App) cors.Config {
	cfg := cors.Config{
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization", "X-Request-Id", "X-Webhook-API-Key"},
		ExposeHeaders:    []string{"X-Request-Id"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}

	if app.Config.GetCORSAllowAll() {
		cfg.AllowAllOrigins = true
		cfg.AllowCredentials = false
		return cfg
	}

	origins := app.Config.GetCORSOrigins()
	if len(origins) == 0 {
		origins = []string{"http://localhost:3000"}
	}
	cfg.AllowOrigins = origins
	return cfg
}
