package main

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/hoopsdata/prediction-service/internal/cache"
	"github.com/hoopsdata/prediction-service/internal/config"
	"github.com/hoopsdata/prediction-service/internal/events"
	"github.com/hoopsdata/prediction-service/internal/handlers"
	"github.com/hoopsdata/prediction-service/internal/logic"
	"github.com/hoopsdata/prediction-service/internal/ml"
	"github.com/hoopsdata/prediction-service/internal/statsclient"
	"github.com/hoopsdata/prediction-service/internal/store"
	"github.com/hoopsdata/prediction-service/internal/worker"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}

	logger, err := newLogger(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	if err := run(cfg, logger); err != nil {
		logger.Error("Service exited with error", zap.Error(err))
		logger.Sync()
		os.Exit(1)
	}
}

func newLogger(cfg *config.Config) (*zap.Logger, error) {
	level, err := zapcore.ParseLevel(cfg.LogLevel)
	if err != nil {
		return nil, err
	}
	zc := zap.NewProductionConfig()
	if cfg.IsDevelopment() {
		zc = zap.NewDevelopmentConfig()
	}
	zc.Level = zap.NewAtomicLevelAt(level)
	return zc.Build()
}

func run(cfg *config.Config, logger *zap.Logger) error {
	sugar := logger.Sugar()
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// PostgreSQL
	if cfg.MigrateOnStart {
		if err := store.Migrate(cfg.DatabaseURL); err != nil {
			return err
		}
		sugar.Info("Database migrations applied")
	}
	pgPool, err := store.Connect(ctx, cfg.DatabaseURL)
	if err != nil {
		return err
	}
	defer pgPool.Close()
	db := store.New(pgPool, logger)
	sugar.Info("Connected to PostgreSQL")

	// Redis
	redisOpts := &redis.Options{
		Addr:     cfg.RedisAddr(),
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	}
	if cfg.RedisSSL {
		redisOpts.TLSConfig = &tls.Config{MinVersion: tls.VersionTLS12}
	}
	rdb := redis.NewClient(redisOpts)
	defer rdb.Close()
	predictionCache := cache.New(rdb, cfg.CacheTTL, logger)
	if err := predictionCache.Ping(ctx); err != nil {
		// The cache is best-effort; predictions still work without it.
		sugar.Warnw("Redis unreachable at startup", "addr", cfg.RedisAddr(), "error", err)
	} else {
		sugar.Infow("Connected to Redis", "addr", cfg.RedisAddr())
	}

	// Model
	model, err := ml.LoadOrInit(cfg.ModelDir, cfg.ModelSeed)
	if err != nil {
		return err
	}
	registry := ml.NewRegistry(model)
	sugar.Infow("Model loaded", "version", registry.Version(), "dir", cfg.ModelDir)

	stats := statsclient.New(statsclient.Config{
		BaseURL:     cfg.StatsServiceURL,
		Timeout:     cfg.RequestTimeout,
		MaxAttempts: cfg.UpstreamMaxAttempts,
		RetryDelay:  cfg.UpstreamRetryDelay,
		RateLimit:   cfg.UpstreamRateLimit,
		RateBurst:   cfg.UpstreamRateBurst,
		Logger:      logger,
	})

	collector := logic.NewCollectorService(stats, db, logger)

	pool := worker.NewPool(worker.PoolConfig{
		WorkerCount:  cfg.WorkerCount,
		QueueSize:    cfg.QueueSize,
		JobTimeout:   cfg.JobTimeout,
		DefaultLimit: cfg.CollectLimit,
		Collector:    collector,
		Logger:       logger,
	})
	pool.Start(ctx)
	defer pool.Stop()

	predictions := logic.NewPredictionService(logic.PredictionConfig{
		Stats:            stats,
		Cache:            predictionCache,
		Store:            db,
		Predictor:        ml.NewPredictor(registry),
		Queue:            pool,
		CollectLimit:     cfg.CollectLimit,
		BatchConcurrency: cfg.BatchConcurrency,
		Logger:           logger,
	})

	training := logic.NewTrainingService(logic.TrainingConfig{
		Runs:     db,
		GameLogs: db,
		Registry: registry,
		ModelDir: cfg.ModelDir,
		Seed:     cfg.ModelSeed,
		Logger:   logger,
	})

	// Scheduled retraining
	if cfg.TrainingCron != "" {
		scheduler := cron.New(cron.WithLogger(cronLogger{sugar}))
		if _, err := scheduler.AddFunc(cfg.TrainingCron, func() {
			res, err := training.Train(ctx, logic.TrainOptions{})
			if err != nil {
				sugar.Warnw("Scheduled training did not complete", "error", err)
				return
			}
			sugar.Infow("Scheduled training completed", "version", res.ModelVersion, "valLoss", res.BestValLoss)
		}); err != nil {
			return fmt.Errorf("invalid TRAINING_CRON %q: %w", cfg.TrainingCron, err)
		}
		scheduler.Start()
		defer func() { <-scheduler.Stop().Done() }()
		sugar.Infow("Training scheduled", "cron", cfg.TrainingCron)
	}

	fatal := make(chan error, 2)

	// Closed once the listener has returned; stays open when events are off.
	listenerDone := make(chan struct{})
	if cfg.EventsEnabled {
		listener := events.NewListener(events.Config{
			Client:    rdb,
			Channel:   cfg.WatchlistChannel,
			Generator: predictions,
			Logger:    logger,
		})
		go func() {
			defer close(listenerDone)
			if err := listener.Run(ctx); err != nil {
				fatal <- err
			}
		}()
	}

	h := handlers.New(handlers.Config{
		Postgres:       db,
		Redis:          predictionCache,
		Queue:          pool,
		Model:          registry,
		Logger:         logger,
		AllowedOrigins: cfg.AllowedOrigins,
		Predictions:    predictions,
		Collector:      collector,
		Training:       training,
	})

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      h.Router(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 10 * time.Minute, // POST /training/train is synchronous
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		sugar.Infow("Prediction service listening", "addr", srv.Addr, "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			fatal <- err
		}
	}()

	var runErr error
	select {
	case <-ctx.Done():
		sugar.Info("Shutdown signal received")
	case runErr = <-fatal:
		sugar.Errorw("Fatal component error, shutting down", "error", runErr)
	}
	// Stops the listener and any scheduled training before the deferred teardown.
	stop()
	if cfg.EventsEnabled {
		// An in-flight event still uses the pool, Redis and Postgres.
		<-listenerDone
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		sugar.Errorw("HTTP shutdown failed", "error", err)
	}
	sugar.Info("Prediction service stopped")
	return runErr
}

// cronLogger adapts zap to cron's logger interface.
type cronLogger struct {
	l *zap.SugaredLogger
}

func (c cronLogger) Info(msg string, keysAndValues ...interface{}) {
	c.l.Debugw(msg, keysAndValues...)
}

func (c cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	c.l.Errorw(msg, append(keysAndValues, "error", err)...)
}
