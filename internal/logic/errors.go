package logic

import "errors"

var (
	// ErrNotFound means no prediction exists and none could be generated.
	ErrNotFound = errors.New("prediction not found")
	// ErrNoStats means the upstream service had no stats for the player.
	ErrNoStats = errors.New("no stats available for player")
	// ErrPersistence wraps store failures on the write path.
	ErrPersistence = errors.New("failed to persist prediction")

	ErrInsufficientData   = errors.New("insufficient training data")
	ErrTrainingInProgress = errors.New("training already in progress")
)
