package logic

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/hoopsdata/prediction-service/internal/ml"
	"github.com/hoopsdata/prediction-service/internal/models"
	"github.com/hoopsdata/prediction-service/internal/store"
)

const (
	DefaultListLimit = 50
	MaxListLimit     = 500

	defaultBatchConcurrency = 5
	defaultCollectLimit     = 10
)

var predictionOutcomes = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "prediction_requests_total",
	Help: "Prediction pipeline outcomes (cache_hit, stored, generated, no_stats, persist_error)",
}, []string{"outcome"})

type PredictionConfig struct {
	Stats            StatsClient
	Cache            PredictionCache
	Store            PredictionStore
	Predictor        *ml.Predictor
	Queue            CollectionQueue
	CollectLimit     int
	BatchConcurrency int
	Logger           *zap.Logger
}

type predictionService struct {
	stats        StatsClient
	cache        PredictionCache
	store        PredictionStore
	predictor    *ml.Predictor
	queue        CollectionQueue
	collectLimit int
	concurrency  int
	logger       *zap.SugaredLogger
}

func NewPredictionService(cfg PredictionConfig) PredictionService {
	if cfg.CollectLimit <= 0 {
		cfg.CollectLimit = defaultCollectLimit
	}
	if cfg.BatchConcurrency <= 0 {
		cfg.BatchConcurrency = defaultBatchConcurrency
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	return &predictionService{
		stats:        cfg.Stats,
		cache:        cfg.Cache,
		store:        cfg.Store,
		predictor:    cfg.Predictor,
		queue:        cfg.Queue,
		collectLimit: cfg.CollectLimit,
		concurrency:  cfg.BatchConcurrency,
		logger:       cfg.Logger.Sugar(),
	}
}

// GeneratePrediction returns the cached prediction for a player or builds a
// new one from upstream season stats. A missing upstream answer yields
// ErrNoStats and leaves the store untouched.
func (s *predictionService) GeneratePrediction(ctx context.Context, playerName string, opts GenerateOptions) (*models.PredictionRecord, error) {
	playerName = strings.TrimSpace(playerName)

	if !opts.ForceRefresh {
		if rec, ok := s.cache.Get(ctx, playerName); ok {
			predictionOutcomes.WithLabelValues("cache_hit").Inc()
			return rec, nil
		}
	}

	stats, err := s.stats.GetPlayerStats(ctx, playerName)
	if err != nil {
		predictionOutcomes.WithLabelValues("no_stats").Inc()
		return nil, fmt.Errorf("%w: %s: %v", ErrNoStats, playerName, err)
	}

	if opts.CollectTrainingData && s.queue != nil {
		if !s.queue.EnqueueCollection(playerName, s.collectLimit) {
			s.logger.Warnw("Game log collection not scheduled", "player", playerName)
		}
	}

	rec, err := s.scoreAndStore(ctx, playerName, *stats, true)
	if err != nil {
		return nil, err
	}
	predictionOutcomes.WithLabelValues("generated").Inc()
	return rec, nil
}

// RefreshPrediction drops the cached entry and generates a fresh prediction.
func (s *predictionService) RefreshPrediction(ctx context.Context, playerName string) (*models.PredictionRecord, error) {
	s.cache.Delete(ctx, playerName)
	return s.GeneratePrediction(ctx, playerName, GenerateOptions{ForceRefresh: true, CollectTrainingData: true})
}

// PredictFromStats scores caller-supplied stats without contacting upstream.
func (s *predictionService) PredictFromStats(ctx context.Context, playerName string, stats models.PlayerStats, homeGame bool) (*models.PredictionRecord, error) {
	rec, err := s.scoreAndStore(ctx, strings.TrimSpace(playerName), stats, homeGame)
	if err != nil {
		return nil, err
	}
	predictionOutcomes.WithLabelValues("generated").Inc()
	return rec, nil
}

func (s *predictionService) scoreAndStore(ctx context.Context, playerName string, stats models.PlayerStats, homeGame bool) (*models.PredictionRecord, error) {
	p := s.predictor.Predict(stats, homeGame)

	saved, err := s.store.SavePrediction(ctx, models.PredictionRecord{
		PlayerName: playerName,
		PredictedStats: models.PredictedStats{
			Points:   round(p.Points, 1),
			Assists:  round(p.Assists, 1),
			Rebounds: round(p.Rebounds, 1),
		},
		Confidence: round(p.Confidence, 2),
	})
	if err != nil {
		predictionOutcomes.WithLabelValues("persist_error").Inc()
		s.logger.Errorw("Failed to persist prediction", "player", playerName, "error", err)
		return nil, fmt.Errorf("%w: %v", ErrPersistence, err)
	}

	s.cache.Set(ctx, playerName, saved)
	s.logger.Infow("Prediction generated",
		"player", playerName,
		"pts", saved.PredictedStats.Points,
		"ast", saved.PredictedStats.Assists,
		"reb", saved.PredictedStats.Rebounds,
		"confidence", saved.Confidence,
	)
	return saved, nil
}

// GetStoredPrediction looks in the cache, then the store. A stored hit
// repopulates the cache.
func (s *predictionService) GetStoredPrediction(ctx context.Context, playerName string) (*models.PredictionRecord, error) {
	playerName = strings.TrimSpace(playerName)
	if rec, ok := s.cache.Get(ctx, playerName); ok {
		predictionOutcomes.WithLabelValues("cache_hit").Inc()
		return rec, nil
	}

	rec, err := s.store.LatestPrediction(ctx, playerName)
	if errors.Is(err, store.ErrNotFound) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, playerName)
	}
	if err != nil {
		return nil, fmt.Errorf("load prediction: %w", err)
	}

	s.cache.Set(ctx, playerName, rec)
	predictionOutcomes.WithLabelValues("stored").Inc()
	return rec, nil
}

// GetPrediction returns the stored prediction or generates one.
func (s *predictionService) GetPrediction(ctx context.Context, playerName string) (*models.PredictionRecord, error) {
	rec, err := s.GetStoredPrediction(ctx, playerName)
	if err == nil || !errors.Is(err, ErrNotFound) {
		return rec, err
	}
	return s.GeneratePrediction(ctx, playerName, GenerateOptions{CollectTrainingData: true})
}

func (s *predictionService) ListPredictions(ctx context.Context, limit int) ([]models.PredictionRecord, error) {
	if limit <= 0 {
		limit = DefaultListLimit
	}
	if limit > MaxListLimit {
		limit = MaxListLimit
	}
	return s.store.ListPredictions(ctx, limit)
}

// PredictBatch fans requests out with bounded concurrency. Results come back
// in completion order; failed entries are logged and left out.
func (s *predictionService) PredictBatch(ctx context.Context, reqs []models.PredictionRequest) []models.PredictionRecord {
	results := make(chan *models.PredictionRecord, len(reqs))

	var g errgroup.Group
	g.SetLimit(s.concurrency)
	for _, req := range reqs {
		req := req
		g.Go(func() error {
			var (
				rec *models.PredictionRecord
				err error
			)
			if req.CurrentStats != nil {
				rec, err = s.PredictFromStats(ctx, req.PlayerName, req.CurrentStats.ToPlayerStats(), req.IsHomeGame())
			} else {
				rec, err = s.GeneratePrediction(ctx, req.PlayerName, GenerateOptions{CollectTrainingData: true})
			}
			if err != nil {
				s.logger.Warnw("Batch prediction failed", "player", req.PlayerName, "error", err)
				return nil
			}
			results <- rec
			return nil
		})
	}
	_ = g.Wait()
	close(results)

	out := make([]models.PredictionRecord, 0, len(reqs))
	for rec := range results {
		out = append(out, *rec)
	}
	return out
}

func (s *predictionService) InvalidateCache(ctx context.Context) int {
	return s.cache.InvalidateAll(ctx)
}

func round(v float64, places int) float64 {
	p := math.Pow(10, float64(places))
	return math.Round(v*p) / p
}
