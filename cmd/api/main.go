package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"voicedash/internal/assistants"
	"voicedash/internal/audit"
	"voicedash/internal/auth"
	"voicedash/internal/calls"
	"voicedash/internal/config"
	"voicedash/internal/httpapi"
	"voicedash/internal/mappings"
	"voicedash/internal/provider"
	"voicedash/internal/transcript"
	"voicedash/pkg/logger"
	"voicedash/pkg/utils"

	"github.com/gin-gonic/gin"
	_ "github.com/jackc/pgx/v5/stdlib"
)

func main() {
	// Root context that cancels on shutdown
	rootCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("config load failed", "err", err)
		os.Exit(1)
	}

	log := logger.New(cfg.App.Env)
	slog.SetDefault(log)

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	authManager, err := auth.NewManager(cfg.Auth)
	if err != nil {
		log.Error("auth init failed", "err", err)
		os.Exit(1)
	}

	db, err := utils.OpenPostgres(rootCtx, "pgx", cfg.PostgresDSN(), utils.PostgresPoolConfig{})
	if err != nil {
		log.Error("postgres init failed", "err", err)
		os.Exit(1)
	}
	defer db.Close()

	src, err := provider.NewClient(provider.ClientConfig{
		BaseURL: cfg.Provider.BaseURL,
		APIKey:  cfg.Provider.APIKey,
		Timeout: cfg.Provider.Timeout,
	})
	if err != nil {
		log.Error("provider client init failed", "err", err)
		os.Exit(1)
	}

	cacheOpts := []assistants.Option{}
	if cfg.RedisEnabled() {
		rdb, err := utils.OpenRedis(rootCtx, utils.RedisConfig{Addr: cfg.RedisAddr()})
		if err != nil {
			log.Error("redis init failed", "err", err)
			os.Exit(1)
		}
		defer rdb.Close()
		cacheOpts = append(cacheOpts, assistants.WithRedis(rdb))
	} else {
		log.Info("redis disabled, assistant cache is process-local")
	}
	cache := assistants.NewCache(src, cacheOpts...)

	norm := calls.NewNormalizer(cache, transcript.NewParser())
	callSvc, err := calls.NewService(src, cache, norm)
	if err != nil {
		log.Error("calls service init failed", "err", err)
		os.Exit(1)
	}

	mappingRepo := mappings.NewPostgresRepo(db)
	auditRepo := audit.NewPostgresRepo(db)
	if err := mappingRepo.EnsureSchema(rootCtx); err != nil {
		log.Error("mapping schema bootstrap failed", "err", err)
		os.Exit(1)
	}
	if err := auditRepo.EnsureSchema(rootCtx); err != nil {
		log.Error("audit schema bootstrap failed", "err", err)
		os.Exit(1)
	}

	h := httpapi.Handlers{
		Auth:     authManager,
		Calls:    callSvc,
		Mappings: mappings.NewService(mappingRepo),
		Audit:    audit.NewService(auditRepo),
	}

	// Gin router
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(logger.Middleware(log))

	registerRoutes(r, h, auth.RequireAccessToken(authManager))

	srv := &http.Server{
		Addr:              cfg.HTTPAddr(),
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		log.Info("api listening", "addr", srv.Addr, "env", cfg.App.Env)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("http server failed", "err", err)
			stop()
		}
	}()

	<-rootCtx.Done()
	log.Info("shutdown initiated")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 20*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("http shutdown failed", "err", err)
	}

	_ = logger.ShutdownFlush(shutdownCtx, 2*time.Second)
}
