package handlers

import (
	"context"

	"github.com/hoopsdata/prediction-service/internal/logic"
	"github.com/hoopsdata/prediction-service/internal/models"
)

// MockPredictionService
type MockPredictionService struct {
	GeneratePredictionFunc  func(ctx context.Context, name string, opts logic.GenerateOptions) (*models.PredictionRecord, error)
	RefreshPredictionFunc   func(ctx context.Context, name string) (*models.PredictionRecord, error)
	PredictFromStatsFunc    func(ctx context.Context, name string, stats models.PlayerStats, home bool) (*models.PredictionRecord, error)
	GetStoredPredictionFunc func(ctx context.Context, name string) (*models.PredictionRecord, error)
	GetPredictionFunc       func(ctx context.Context, name string) (*models.PredictionRecord, error)
	ListPredictionsFunc     func(ctx context.Context, limit int) ([]models.PredictionRecord, error)
	PredictBatchFunc        func(ctx context.Context, reqs []models.PredictionRequest) []models.PredictionRecord
	InvalidateCacheFunc     func(ctx context.Context) int
}

func (m *MockPredictionService) GeneratePrediction(ctx context.Context, name string, opts logic.GenerateOptions) (*models.PredictionRecord, error) {
	if m.GeneratePredictionFunc != nil {
		return m.GeneratePredictionFunc(ctx, name, opts)
	}
	return &models.PredictionRecord{PlayerName: name}, nil
}

func (m *MockPredictionService) RefreshPrediction(ctx context.Context, name string) (*models.PredictionRecord, error) {
	if m.RefreshPredictionFunc != nil {
		return m.RefreshPredictionFunc(ctx, name)
	}
	return &models.PredictionRecord{PlayerName: name}, nil
}

func (m *MockPredictionService) PredictFromStats(ctx context.Context, name string, stats models.PlayerStats, home bool) (*models.PredictionRecord, error) {
	if m.PredictFromStatsFunc != nil {
		return m.PredictFromStatsFunc(ctx, name, stats, home)
	}
	return &models.PredictionRecord{PlayerName: name}, nil
}

func (m *MockPredictionService) GetStoredPrediction(ctx context.Context, name string) (*models.PredictionRecord, error) {
	if m.GetStoredPredictionFunc != nil {
		return m.GetStoredPredictionFunc(ctx, name)
	}
	return nil, logic.ErrNotFound
}

func (m *MockPredictionService) GetPrediction(ctx context.Context, name string) (*models.PredictionRecord, error) {
	if m.GetPredictionFunc != nil {
		return m.GetPredictionFunc(ctx, name)
	}
	return &models.PredictionRecord{PlayerName: name}, nil
}

func (m *MockPredictionService) ListPredictions(ctx context.Context, limit int) ([]models.PredictionRecord, error) {
	if m.ListPredictionsFunc != nil {
		return m.ListPredictionsFunc(ctx, limit)
	}
	return nil, nil
}

func (m *MockPredictionService) PredictBatch(ctx context.Context, reqs []models.PredictionRequest) []models.PredictionRecord {
	if m.PredictBatchFunc != nil {
		return m.PredictBatchFunc(ctx, reqs)
	}
	return nil
}

func (m *MockPredictionService) InvalidateCache(ctx context.Context) int {
	if m.InvalidateCacheFunc != nil {
		return m.InvalidateCacheFunc(ctx)
	}
	return 0
}

// MockCollectorService
type MockCollectorService struct {
	CollectGameLogsFunc func(ctx context.Context, name string, limit int) (int, error)
}

func (m *MockCollectorService) CollectGameLogs(ctx context.Context, name string, limit int) (int, error) {
	if m.CollectGameLogsFunc != nil {
		return m.CollectGameLogsFunc(ctx, name, limit)
	}
	return 0, nil
}

// MockTrainingService
type MockTrainingService struct {
	TrainFunc  func(ctx context.Context, opts logic.TrainOptions) (*models.TrainingResult, error)
	StatusFunc func(ctx context.Context) (*models.TrainingStatusResponse, error)
}

func (m *MockTrainingService) Train(ctx context.Context, opts logic.TrainOptions) (*models.TrainingResult, error) {
	if m.TrainFunc != nil {
		return m.TrainFunc(ctx, opts)
	}
	return &models.TrainingResult{Status: "completed"}, nil
}

func (m *MockTrainingService) Status(ctx context.Context) (*models.TrainingStatusResponse, error) {
	if m.StatusFunc != nil {
		return m.StatusFunc(ctx)
	}
	return &models.TrainingStatusResponse{}, nil
}

type MockPinger struct {
	Err error
}

func (m *MockPinger) Ping(ctx context.Context) error { return m.Err }

type MockQueue struct{ Depth int }

func (m *MockQueue) QueueDepth() int { return m.Depth }

type MockModel struct{ V string }

func (m *MockModel) Version() string { return m.V }
