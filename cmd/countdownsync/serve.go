package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"

	"countdowntodo-sync/internal/db"
	httpapi "countdowntodo-sync/internal/http"
	"countdowntodo-sync/internal/metrics"
	"countdowntodo-sync/internal/repos"
	"countdowntodo-sync/internal/services"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP sync server",
	Long: `Open (and migrate) the database, then serve the sync API until SIGINT or
SIGTERM. When mappings_file is set the identity table is loaded from it at
startup and reloaded whenever the file changes.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, logger, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		conn, err := db.Open(cfg.DatabaseURL)
		if err != nil {
			return err
		}
		defer conn.Close()

		m := metrics.New()
		repo := repos.New(conn)
		opts := []services.Option{services.WithMaxClockSkew(cfg.MaxClockSkew)}

		if cfg.MappingsFile != "" {
			ms := services.NewMappingService(repo, services.WithLogger(logger), services.WithMetrics(m))
			w, err := ms.Watch(cfg.MappingsFile)
			if err != nil {
				return err
			}
			defer w.Stop()
		}

		gin.SetMode(gin.ReleaseMode)
		router, err := httpapi.NewRouter(cfg, logger, m, httpapi.NewHandlers(repo, logger, m, opts...))
		if err != nil {
			return err
		}
		srv := &http.Server{Addr: ":" + cfg.Port, Handler: router, ReadHeaderTimeout: 10 * time.Second}

		errCh := make(chan error, 1)
		go func() {
			logger.Infof("server listening on :%s", cfg.Port)
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				errCh <- err
			}
			close(errCh)
		}()

		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		select {
		case err := <-errCh:
			return err
		case <-quit:
		}
		logger.Infof("shutting down")
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(ctx)
	},
}

func init() {
	serveCmd.Flags().String("port", "", "listen port (overrides CLOUD_SYNC_PORT)")
	serveCmd.Flags().String("database_url", "", "sqlite DSN")
	serveCmd.Flags().String("mappings_file", "", "yaml or toml identity mapping file to load and watch")
}
