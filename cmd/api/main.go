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

	"evolutech-console/internal/apiclient"
	"evolutech-console/internal/audit"
	"evolutech-console/internal/auth"
	"evolutech-console/internal/config"
	"evolutech-console/internal/httpapi"
	"evolutech-console/internal/metrics"
	"evolutech-console/internal/modules"
	"evolutech-console/internal/rbac"
	"evolutech-console/internal/session"
	"evolutech-console/internal/tokens"
	"evolutech-console/pkg/logger"
	"evolutech-console/pkg/utils"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

// memoryAuditCapacity bounds the in-process audit trail used without DB_HOST.
const memoryAuditCapacity = 10_000

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

	api, err := apiclient.New(cfg.API.BaseURL, cfg.API.Timeout)
	if err != nil {
		log.Error("api client init failed", "err", err)
		os.Exit(1)
	}

	aliases, err := modules.LoadAliasTable(cfg.Modules.AliasesPath)
	if err != nil {
		log.Error("module alias table load failed", "err", err, "path", cfg.Modules.AliasesPath)
		os.Exit(1)
	}

	rdb, err := utils.OpenRedis(rootCtx, cfg.Redis)
	if err != nil {
		log.Error("redis init failed", "err", err)
		os.Exit(1)
	}
	defer rdb.Close()

	checks := map[string]utils.Check{
		"redis": func(ctx context.Context) error { return utils.PingRedis(ctx, rdb) },
	}

	var auditRepo audit.Repository = audit.NewMemoryRepo(memoryAuditCapacity)
	if cfg.AuditEnabled() {
		if err := audit.RunMigrations(cfg.PostgresURL()); err != nil {
			log.Error("audit migrations failed", "err", err)
			os.Exit(1)
		}
		db, err := utils.OpenPostgres(rootCtx, cfg.DB)
		if err != nil {
			log.Error("postgres init failed", "err", err)
			os.Exit(1)
		}
		defer db.Close()
		auditRepo = audit.NewPostgresRepo(db)
		checks["postgres"] = func(ctx context.Context) error { return utils.PingPostgres(ctx, db) }
	} else {
		log.Warn("DB_HOST not set; audit events kept in memory")
	}
	auditSvc := audit.NewService(auditRepo)

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	collector := metrics.NewCollector(reg)

	h := &httpapi.Handlers{
		Backend: api,
		Auth:    authManager,
		Tokens: func(sid, key string) (tokens.Store, error) {
			ts, err := tokens.NewRedis(rdb, key, sid, authManager.TTL())
			if err != nil {
				return nil, err
			}
			return ts, nil
		},
		Aliases: aliases,
		Audit:   auditSvc,
		Observers: httpapi.Observers{
			Session: session.Observers{collector, auditSvc},
			Modules: collector,
			Guards:  rbac.DecisionObservers{collector, auditSvc},
		},
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(logger.Middleware(log))
	r.Use(collector.Middleware())
	r.Use(audit.Middleware())

	log.Info("readiness checks", "checks", utils.CheckNames(checks))
	registerRoutes(r, h, reg, checks)

	srv := &http.Server{
		Addr:              cfg.HTTPAddr(),
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		log.Info("api listening", "addr", srv.Addr, "env", cfg.App.Env, "backend", cfg.API.BaseURL)
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
}
