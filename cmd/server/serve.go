package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"

	"github.com/zaqqye/exit_slip_backend/internal/config"
	"github.com/zaqqye/exit_slip_backend/internal/database"
	"github.com/zaqqye/exit_slip_backend/internal/lifecycle"
	"github.com/zaqqye/exit_slip_backend/internal/logger"
	"github.com/zaqqye/exit_slip_backend/internal/middleware"
	"github.com/zaqqye/exit_slip_backend/internal/ratelimit"
	"github.com/zaqqye/exit_slip_backend/internal/routes"
	"github.com/zaqqye/exit_slip_backend/internal/ws"
)

func newServeCommand() *cobra.Command {
	var skipMigrate bool
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(cmd.Context(), skipMigrate)
		},
	}
	cmd.Flags().BoolVar(&skipMigrate, "skip-migrate", false, "Do not run schema migration on startup")
	return cmd
}

func runServer(ctx context.Context, skipMigrate bool) error {
	if ctx == nil {
		ctx = context.Background()
	}
	cfg := config.Load()
	log := logger.Init(cfg.LogLevel, cfg.LogFormat)

	db, err := database.Connect(cfg)
	if err != nil {
		return fmt.Errorf("database connection failed: %w", err)
	}
	if !skipMigrate {
		if err := database.Migrate(db); err != nil {
			return fmt.Errorf("database migration failed: %w", err)
		}
	}

	var limiter ratelimit.Limiter
	if cfg.RedisAddr != "" {
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		defer client.Close()
		if err := client.Ping(ctx).Err(); err != nil {
			log.Warn("redis unreachable, gate rate limiting degrades open", "addr", cfg.RedisAddr, "error", err)
		}
		limiter = ratelimit.NewRedisLimiter(client)
	} else {
		log.Warn("REDIS_ADDR not set, gate rate limiting disabled")
	}

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	hub := ws.NewFeedHub(log)
	go hub.Run(ctx)

	engine := lifecycle.New(db, lifecycle.Options{
		InstitutionCode: cfg.InstitutionCode,
		ShortCodeLength: cfg.ShortCodeLength,
		StoreTimeout:    cfg.StoreTimeout,
		Notifier:        hub,
		Logger:          log,
	})

	gin.SetMode(cfg.GinMode)
	r := gin.New()
	r.Use(gin.Recovery(), middleware.RequestID(), middleware.Logger(log))
	routes.Register(r, routes.Deps{
		DB:      db,
		Cfg:     cfg,
		Engine:  engine,
		Hub:     hub,
		Limiter: limiter,
		Log:     log,
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("server starting", "addr", srv.Addr, "mode", cfg.GinMode)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server exited with error: %w", err)
		}
	case <-ctx.Done():
	}

	log.Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("server forced to shutdown", "error", err)
		return err
	}
	closeDB(log, db)
	log.Info("server exited gracefully")
	return nil
}
