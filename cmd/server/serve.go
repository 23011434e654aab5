package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"promotion-prediction-service/internal/adapters/primary/http/handlers"
	"promotion-prediction-service/internal/adapters/primary/http/middleware"
	"promotion-prediction-service/internal/adapters/secondary/artifact"
	"promotion-prediction-service/internal/adapters/secondary/cache"
	"promotion-prediction-service/internal/adapters/secondary/postgres"
	"promotion-prediction-service/internal/adapters/secondary/prometheus"
	"promotion-prediction-service/internal/config"
	ports "promotion-prediction-service/internal/core/ports/output"
	"promotion-prediction-service/internal/core/services"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the prediction API",
	RunE: func(cmd *cobra.Command, _ []string) error {
		return runServe(cmd)
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command) error {
	cfg, err := config.LoadWithFlags(cmd.Flags())
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	initLogger(cfg)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// ============================================================================
	// Secondary Adapters
	// ============================================================================

	// Metrics (Optional - based on config)
	var (
		recorder  ports.MetricsRecorder
		collector *prometheus.Collector
	)
	if cfg.Metrics.Enabled {
		collector = prometheus.NewCollector(nil)
		recorder = collector
		log.Info("Prometheus metrics enabled")
	} else {
		log.Info("Prometheus metrics disabled")
	}

	// Prediction cache (Optional - based on config)
	var predictionCache ports.PredictionCache
	if cfg.Cache.Enabled {
		c, err := cache.NewPredictionCache(cfg.Cache.Size)
		if err != nil {
			return err
		}
		predictionCache = c
		log.WithField("size", cfg.Cache.Size).Info("prediction cache enabled")
	}

	// Prediction history (Optional - based on config)
	var repo ports.PredictionRepository
	if cfg.Database.Enabled {
		pool, err := openPool(ctx, &cfg.Database)
		if err != nil {
			log.WithError(err).Warn("prediction history unavailable (continuing without database)")
		} else {
			defer pool.Close()
			repo = postgres.NewPredictionRepository(pool)
			log.Info("database connection established")
		}
	} else {
		log.Info("prediction history disabled")
	}

	// Artifact source
	var (
		source  ports.ArtifactSource
		watcher ports.ArtifactWatcher
	)
	switch cfg.Model.Source {
	case config.SourceConfigMap:
		src, err := artifact.NewConfigMapSource(&cfg.Kubernetes, &cfg.Model)
		if err != nil {
			return fmt.Errorf("init configmap source: %w", err)
		}
		source, watcher = src, src
	default:
		src := artifact.NewFileSource(cfg.Model.Path, cfg.Model.WatchDebounce)
		source, watcher = src, src
	}

	// ============================================================================
	// Core Services
	// ============================================================================

	modelSvc := services.NewModelArtifactService(source, predictionCache, recorder)
	predictionSvc := services.NewPredictionService(modelSvc, predictionCache, repo, recorder, cfg.Predict.BatchMax)

	// The API still starts without a model; /health reports it and /predict answers 503.
	if _, err := modelSvc.Load(ctx); err != nil {
		log.WithError(err).WithField("source", source.Location()).Error("failed to load model")
	}

	if cfg.Model.Watch {
		go func() {
			if err := modelSvc.Watch(ctx, watcher); err != nil {
				log.WithError(err).Error("model watcher stopped")
			}
		}()
	}

	// ============================================================================
	// Primary Adapter (HTTP)
	// ============================================================================

	h := handlers.New(modelSvc, predictionSvc)

	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(middleware.RequestID(), middleware.Logging(), gin.Recovery())
	h.RegisterRoutes(router)
	if collector != nil {
		router.GET("/metrics", gin.WrapH(collector.Handler()))
	}

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:    addr,
		Handler: router,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Infof("starting server on %s", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	// Graceful shutdown
	select {
	case <-ctx.Done():
	case err := <-errCh:
		return fmt.Errorf("server error: %w", err)
	}
	log.Info("shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced shutdown: %w", err)
	}

	log.Info("server stopped")
	return nil
}

func openPool(ctx context.Context, cfg *config.DatabaseConfig) (*pgxpool.Pool, error) {
	poolCfg, err := pgxpool.ParseConfig(cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("parse db config: %w", err)
	}
	if cfg.MaxConns > 0 {
		poolCfg.MaxConns = int32(cfg.MaxConns)
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("create db pool: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping db: %w", err)
	}
	if err := postgres.EnsureSchema(pingCtx, pool); err != nil {
		pool.Close()
		return nil, err
	}
	return pool, nil
}
