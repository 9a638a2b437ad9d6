package logic

import (
	"context"

	"github.com/hoopsdata/prediction-service/internal/models"
)

// StatsClient fetches player data from the upstream stats service.
type StatsClient interface {
	GetPlayerStats(ctx context.Context, playerName string) (*models.PlayerStats, error)
	GetPlayerGameLog(ctx context.Context, playerName string, limit int) ([]models.GameLogEntry, error)
}

// PredictionCache is the best-effort prediction cache. It never fails.
type PredictionCache interface {
	Get(ctx context.Context, playerName string) (*models.PredictionRecord, bool)
	Set(ctx context.Context, playerName string, rec *models.PredictionRecord)
	Delete(ctx context.Context, playerName string)
	InvalidateAll(ctx context.Context) int
}

// PredictionStore persists prediction records.
type PredictionStore interface {
	SavePrediction(ctx context.Context, rec models.PredictionRecord) (*models.PredictionRecord, error)
	LatestPrediction(ctx context.Context, playerName string) (*models.PredictionRecord, error)
	ListPredictions(ctx context.Context, limit int) ([]models.PredictionRecord, error)
}

// GameLogStore persists historical games.
type GameLogStore interface {
	InsertGameLog(ctx context.Context, e models.GameLogEntry) (bool, error)
	AllGameLogs(ctx context.Context) ([]models.GameLogEntry, error)
	GameLogStats(ctx context.Context) (models.TrainingDataStats, error)
}

// TrainingStore persists training run metadata.
type TrainingStore interface {
	CreateTrainingRun(ctx context.Context, run models.TrainingRun) (int64, error)
	FinishTrainingRun(ctx context.Context, run models.TrainingRun) error
	RecentTrainingRuns(ctx context.Context, limit int) ([]models.TrainingRun, error)
}

// CollectionQueue schedules background game-log collection. Enqueue must not
// block.
type CollectionQueue interface {
	EnqueueCollection(playerName string, limit int) bool
}

// GenerateOptions control GeneratePrediction.
type GenerateOptions struct {
	// ForceRefresh skips the cache lookup.
	ForceRefresh bool
	// CollectTrainingData schedules a game-log collection after a
	// successful stats fetch.
	CollectTrainingData bool
}

type PredictionService interface {
	GeneratePrediction(ctx context.Context, playerName string, opts GenerateOptions) (*models.PredictionRecord, error)
	RefreshPrediction(ctx context.Context, playerName string) (*models.PredictionRecord, error)
	PredictFromStats(ctx context.Context, playerName string, stats models.PlayerStats, homeGame bool) (*models.PredictionRecord, error)
	GetStoredPrediction(ctx context.Context, playerName string) (*models.PredictionRecord, error)
	GetPrediction(ctx context.Context, playerName string) (*models.PredictionRecord, error)
	ListPredictions(ctx context.Context, limit int) ([]models.PredictionRecord, error)
	PredictBatch(ctx context.Context, reqs []models.PredictionRequest) []models.PredictionRecord
	InvalidateCache(ctx context.Context) int
}

type CollectorService interface {
	CollectGameLogs(ctx context.Context, playerName string, limit int) (int, error)
}

type TrainingService interface {
	Train(ctx context.Context, opts TrainOptions) (*models.TrainingResult, error)
	Status(ctx context.Context) (*models.TrainingStatusResponse, error)
}
