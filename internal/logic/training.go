package logic

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.uber.org/zap"

	"github.com/hoopsdata/prediction-service/internal/ml"
	"github.com/hoopsdata/prediction-service/internal/models"
)

const (
	// readyGameCount is the number of stored games at which the data set is
	// reported ready for training.
	readyGameCount = 100
	recentRunCount = 5
)

var (
	trainingRuns = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "prediction_training_runs_total",
		Help: "Training runs by final status",
	}, []string{"status"})

	modelValLoss = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "prediction_model_validation_loss",
		Help: "Validation loss of the serving model",
	})
)

type TrainOptions struct {
	Epochs       int
	BatchSize    int
	LearningRate float64
}

type TrainingConfig struct {
	Runs     TrainingStore
	GameLogs GameLogStore
	Registry *ml.Registry
	ModelDir string
	Seed     int64
	Logger   *zap.Logger
}

type trainingService struct {
	runs     TrainingStore
	gameLogs GameLogStore
	registry *ml.Registry
	modelDir string
	seed     int64
	running  atomic.Bool
	logger   *zap.SugaredLogger
	now      func() time.Time
}

func NewTrainingService(cfg TrainingConfig) TrainingService {
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	return &trainingService{
		runs:     cfg.Runs,
		gameLogs: cfg.GameLogs,
		registry: cfg.Registry,
		modelDir: cfg.ModelDir,
		seed:     cfg.Seed,
		logger:   cfg.Logger.Sugar(),
		now:      time.Now,
	}
}

// Train fits a new model on all stored game logs. Every validation
// improvement is checkpointed and swapped in as the serving model. Only one
// run may be active at a time.
func (s *trainingService) Train(ctx context.Context, opts TrainOptions) (*models.TrainingResult, error) {
	if !s.running.CompareAndSwap(false, true) {
		return nil, ErrTrainingInProgress
	}
	defer s.running.Store(false)

	logs, err := s.gameLogs.AllGameLogs(ctx)
	if err != nil {
		return nil, fmt.Errorf("load game logs: %w", err)
	}
	samples := ml.BuildSamples(logs)
	if len(samples) < ml.MinSamples {
		return nil, fmt.Errorf("%w: %d samples from %d games, need at least %d",
			ErrInsufficientData, len(samples), len(logs), ml.MinSamples)
	}

	trainer := ml.NewTrainer(ml.TrainConfig{
		Epochs:       opts.Epochs,
		BatchSize:    opts.BatchSize,
		LearningRate: opts.LearningRate,
		Seed:         s.seed,
	})
	cfg := trainer.Config()

	run := models.TrainingRun{
		ModelVersion:    ml.NewVersion(s.now()),
		TrainingSamples: len(samples),
		Epochs:          cfg.Epochs,
		Status:          models.TrainingStatusTraining,
		StartedAt:       s.now().UTC(),
	}
	run.ID, err = s.runs.CreateTrainingRun(ctx, run)
	if err != nil {
		return nil, fmt.Errorf("record training run: %w", err)
	}

	s.logger.Infow("Training started",
		"runID", run.ID,
		"version", run.ModelVersion,
		"samples", len(samples),
		"epochs", cfg.Epochs,
		"batchSize", cfg.BatchSize,
		"learningRate", cfg.LearningRate,
	)

	res, trainErr := trainer.Train(ctx, s.registry.Current(), samples, func(epoch int, valLoss float64, n *ml.Network) error {
		m := &ml.Model{Version: run.ModelVersion, Network: n}
		if err := ml.SaveCheckpoint(s.modelDir, m); err != nil {
			return err
		}
		s.registry.Swap(m)
		modelValLoss.Set(valLoss)
		s.logger.Infow("Model improved", "epoch", epoch, "valLoss", valLoss, "version", m.Version)
		return nil
	})

	completed := s.now().UTC()
	run.CompletedAt = &completed
	// The run row is finalized even when the caller has gone away.
	finalizeCtx := context.WithoutCancel(ctx)

	if trainErr != nil {
		run.Status = models.TrainingStatusFailed
		run.Notes = trainErr.Error()
		trainingRuns.WithLabelValues(string(run.Status)).Inc()
		if err := s.runs.FinishTrainingRun(finalizeCtx, run); err != nil {
			s.logger.Errorw("Failed to finalize training run", "runID", run.ID, "error", err)
		}
		s.logger.Errorw("Training failed", "runID", run.ID, "error", trainErr)
		return nil, fmt.Errorf("training run %d: %w", run.ID, trainErr)
	}

	run.Status = models.TrainingStatusCompleted
	run.TrainingLoss = &res.FinalTrainLoss
	run.ValidationLoss = &res.BestValLoss
	run.Notes = fmt.Sprintf("best validation loss %.4f", res.BestValLoss)
	trainingRuns.WithLabelValues(string(run.Status)).Inc()
	if err := s.runs.FinishTrainingRun(finalizeCtx, run); err != nil {
		s.logger.Errorw("Failed to finalize training run", "runID", run.ID, "error", err)
	}

	history := make([]models.EpochLoss, len(res.History))
	for i, h := range res.History {
		history[i] = models.EpochLoss{Epoch: h.Epoch, TrainLoss: h.TrainLoss, ValLoss: h.ValLoss}
	}

	s.logger.Infow("Training completed",
		"runID", run.ID,
		"version", run.ModelVersion,
		"trainLoss", res.FinalTrainLoss,
		"bestValLoss", res.BestValLoss,
	)

	return &models.TrainingResult{
		Status:          string(run.Status),
		RunID:           run.ID,
		ModelVersion:    run.ModelVersion,
		TrainingSamples: run.TrainingSamples,
		Epochs:          run.Epochs,
		FinalTrainLoss:  res.FinalTrainLoss,
		BestValLoss:     res.BestValLoss,
		History:         history,
	}, nil
}

// Status reports collected data, the serving model version and recent runs.
func (s *trainingService) Status(ctx context.Context) (*models.TrainingStatusResponse, error) {
	stats, err := s.gameLogs.GameLogStats(ctx)
	if err != nil {
		return nil, fmt.Errorf("game log stats: %w", err)
	}
	stats.DatabaseStatus = "needs_more_data"
	if stats.TotalGames >= readyGameCount {
		stats.DatabaseStatus = "ready"
	}

	runs, err := s.runs.RecentTrainingRuns(ctx, recentRunCount)
	if err != nil {
		return nil, fmt.Errorf("recent training runs: %w", err)
	}

	return &models.TrainingStatusResponse{
		DataStats:    stats,
		ModelVersion: s.registry.Version(),
		RecentRuns:   runs,
	}, nil
}
