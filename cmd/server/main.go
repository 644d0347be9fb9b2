package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/wso2/consent-lifecycle-api/internal/router"
	"github.com/wso2/consent-lifecycle-api/internal/system/config"
	"github.com/wso2/consent-lifecycle-api/internal/system/database"
	"github.com/wso2/consent-lifecycle-api/internal/system/log"
)

// Version information (set by build script)
var (
	version   = "dev"
	buildDate = "unknown"
)

func main() {
	// Set Gin to release mode by default (can be overridden by GIN_MODE env var)
	if os.Getenv("GIN_MODE") == "" {
		gin.SetMode(gin.ReleaseMode)
	}

	// Load configuration
	// Priority: CONFIG_PATH env var > repository/conf/deployment.yaml > cmd/server/repository/conf/deployment.yaml
	configPath := os.Getenv("CONFIG_PATH")
	cfg, err := config.Load(configPath)
	if err != nil {
		logrus.WithError(err).Fatal("Failed to load configuration")
	}

	logger := log.Init(cfg.Logging)
	logger.WithFields(logrus.Fields{
		"version":    version,
		"build_date": buildDate,
		"log_level":  logger.GetLevel().String(),
	}).Info("Starting Consent Lifecycle API Server...")

	// Server-level connection used for tenant discovery and provisioning
	systemDB, err := database.Open(&cfg.Database.System, logger)
	if err != nil {
		logger.WithError(err).Fatal("Failed to initialize database")
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	services, err := registerServices(cfg, systemDB, registry, logger)
	if err != nil {
		logger.WithError(err).Fatal("Failed to initialize services")
	}

	ginRouter := router.SetupRouter(router.Dependencies{
		Config:     cfg,
		Logger:     logger,
		Resolver:   services.resolver,
		Templates:  services.templates,
		Handles:    services.handles,
		Consents:   services.consents,
		Dispatcher: services.dispatcher,
		Health:     systemDB,
		Gatherer:   registry,
	})

	server := &http.Server{
		Addr:           cfg.Server.GetServerAddress(),
		Handler:        ginRouter,
		ReadTimeout:    cfg.Server.ReadTimeout,
		WriteTimeout:   cfg.Server.WriteTimeout,
		IdleTimeout:    cfg.Server.IdleTimeout,
		MaxHeaderBytes: 1 << 20, // 1 MB
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.WithField("address", server.Addr).Info("Starting HTTP server...")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		logger.Info("Shutting down server...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()

		var errs []error
		if err := server.Shutdown(shutdownCtx); err != nil {
			errs = append(errs, err)
		}
		errs = append(errs, services.unregister(shutdownCtx))
		if err := systemDB.Close(); err != nil {
			errs = append(errs, err)
		}
		return errors.Join(errs...)
	})

	if err := g.Wait(); err != nil {
		logger.WithError(err).Error("Server stopped with errors")
		os.Exit(1)
	}

	logger.Info("Server exited gracefully")
}
