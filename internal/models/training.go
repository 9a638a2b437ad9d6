package models

import "time"

type TrainingStatus string

const (
	TrainingStatusTraining  TrainingStatus = "training"
	TrainingStatusCompleted TrainingStatus = "completed"
	TrainingStatusFailed    TrainingStatus = "failed"
)

// TrainingRun is the metadata row of one training invocation. It is created
// in the training state and finalized exactly once.
type TrainingRun struct {
	ID              int64          `json:"id"`
	ModelVersion    string         `json:"model_version"`
	TrainingSamples int            `json:"training_samples"`
	Epochs          int            `json:"epochs"`
	TrainingLoss    *float64       `json:"training_loss"`
	ValidationLoss  *float64       `json:"validation_loss"`
	Status          TrainingStatus `json:"status"`
	StartedAt       time.Time      `json:"started_at"`
	CompletedAt     *time.Time     `json:"completed_at"`
	Notes           string         `json:"notes"`
}

// TrainingDataStats summarizes the collected game logs.
type TrainingDataStats struct {
	TotalGames     int64      `json:"total_games"`
	UniquePlayers  int64      `json:"unique_players"`
	LatestGameDate *time.Time `json:"latest_game_date"`
	DatabaseStatus string     `json:"database_status"`
}

// EpochLoss is one entry of the training history.
type EpochLoss struct {
	Epoch     int     `json:"epoch"`
	TrainLoss float64 `json:"train_loss"`
	ValLoss   float64 `json:"val_loss"`
}

type TrainingResult struct {
	Status          string      `json:"status"`
	RunID           int64       `json:"run_id"`
	ModelVersion    string      `json:"model_version"`
	TrainingSamples int         `json:"training_samples"`
	Epochs          int         `json:"epochs"`
	FinalTrainLoss  float64     `json:"final_train_loss"`
	BestValLoss     float64     `json:"best_val_loss"`
	History         []EpochLoss `json:"history"`
}

type TrainingStatusResponse struct {
	DataStats    TrainingDataStats `json:"data_stats"`
	ModelVersion string            `json:"model_version"`
	RecentRuns   []TrainingRun     `json:"recent_runs"`
}
