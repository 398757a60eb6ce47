package http

import (
	"net/http"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"countdowntodo-sync/internal/config"
	"countdowntodo-sync/internal/handlers"
	"countdowntodo-sync/internal/logging"
	"countdowntodo-sync/internal/metrics"
	"countdowntodo-sync/internal/middleware"
	"countdowntodo-sync/internal/repos"
	"countdowntodo-sync/internal/services"
)

type Handlers struct {
	Records     *handlers.RecordHandler
	Usage       *handlers.UsageHandler
	Mappings    *handlers.MappingHandler
	Leaderboard *handlers.LeaderboardHandler
	Admin       *handlers.AdminHandler
}

// NewHandlers builds every service over repo with the shared options.
func NewHandlers(repo *repos.Repo, logger *logging.Logger, m *metrics.Metrics, opts ...services.Option) Handlers {
	opts = append([]services.Option{services.WithLogger(logger), services.WithMetrics(m)}, opts...)
	return Handlers{
		Records:     handlers.NewRecordHandler(services.NewRecordService(repo, opts...), logger),
		Usage:       handlers.NewUsageHandler(services.NewUsageService(repo, opts...), logger),
		Mappings:    handlers.NewMappingHandler(services.NewMappingService(repo, opts...), logger),
		Leaderboard: handlers.NewLeaderboardHandler(services.NewLeaderboardService(repo, opts...), logger),
		Admin:       handlers.NewAdminHandler(services.NewAdminService(repo, opts...), logger),
	}
}

func NewRouter(cfg config.Config, logger *logging.Logger, m *metrics.Metrics, h Handlers) (*gin.Engine, error) {
	if err := handlers.RegisterValidators(); err != nil {
		return nil, err
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.RequestLogger(logger))
	if m != nil {
		r.Use(m.Middleware())
	}
	corsCfg := cors.Config{
		AllowMethods:  []string{"GET", "POST", "PUT", "OPTIONS"},
		AllowHeaders:  []string{"Authorization", "Content-Type", "X-User-ID", middleware.RequestIDHeader},
		ExposeHeaders: []string{middleware.RequestIDHeader},
	}
	origins := cfg.CORSOrigins
	if len(origins) == 0 || (len(origins) == 1 && origins[0] == "*") {
		corsCfg.AllowAllOrigins = true
	} else {
		corsCfg.AllowOrigins = origins
	}
	r.Use(cors.New(corsCfg))

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	if m != nil {
		r.GET("/metrics", m.Handler())
	}

	v1 := r.Group("/api/v1")
	v1.Use(middleware.Auth(cfg.AuthToken))
	{
		v1.POST("/todos", h.Records.PushTodo)
		v1.GET("/todos", h.Records.PullTodos)
		v1.POST("/todos/:id/delete", h.Records.DeleteTodo)

		v1.POST("/countdowns", h.Records.PushCountdown)
		v1.GET("/countdowns", h.Records.PullCountdowns)
		v1.POST("/countdowns/:id/delete", h.Records.DeleteCountdown)

		v1.POST("/usage", h.Usage.PushUsage)
		v1.GET("/usage/summary", h.Usage.Summary)

		v1.GET("/mappings", h.Mappings.List)

		v1.GET("/leaderboard", h.Leaderboard.Top)
		v1.POST("/leaderboard", h.Leaderboard.Submit)
	}

	admin := r.Group("/admin/v1")
	admin.Use(middleware.AdminAuth(cfg.AdminToken))
	{
		admin.PUT("/mappings", h.Mappings.Replace)
		admin.POST("/mappings", h.Mappings.Merge)
		admin.POST("/reset", h.Admin.Reset)
	}
	return r, nil
}
