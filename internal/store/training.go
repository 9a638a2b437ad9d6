package store

import (
	"context"
	"fmt"

	"github.com/Masterminds/squirrel"

	"github.com/hoopsdata/prediction-service/internal/models"
)

// CreateTrainingRun records the start of a run in the training state.
func (s *Store) CreateTrainingRun(ctx context.Context, run models.TrainingRun) (int64, error) {
	query, args, err := psql.Insert("training_metadata").SetMap(map[string]interface{}{
		"model_version":    run.ModelVersion,
		"training_samples": run.TrainingSamples,
		"epochs":           run.Epochs,
		"status":           string(models.TrainingStatusTraining),
		"started_at":       run.StartedAt,
		"notes":            run.Notes,
	}).Suffix("RETURNING id").ToSql()
	if err != nil {
		return 0, err
	}

	var id int64
	if err := s.pool.QueryRow(ctx, query, args...).Scan(&id); err != nil {
		return 0, fmt.Errorf("create training run: %w", err)
	}
	return id, nil
}

// FinishTrainingRun finalizes a run. Only runs still in the training state
// are updated, so a run is finalized at most once.
func (s *Store) FinishTrainingRun(ctx context.Context, run models.TrainingRun) error {
	query, args, err := psql.Update("training_metadata").SetMap(map[string]interface{}{
		"status":          string(run.Status),
		"epochs":          run.Epochs,
		"training_loss":   run.TrainingLoss,
		"validation_loss": run.ValidationLoss,
		"completed_at":    run.CompletedAt,
		"notes":           run.Notes,
	}).Where(squirrel.Eq{
		"id":     run.ID,
		"status": string(models.TrainingStatusTraining),
	}).ToSql()
	if err != nil {
		return err
	}

	tag, err := s.pool.Exec(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("finish training run: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("finish training run %d: %w", run.ID, ErrNotFound)
	}
	return nil
}

// RecentTrainingRuns returns the latest runs, newest first.
func (s *Store) RecentTrainingRuns(ctx context.Context, limit int) ([]models.TrainingRun, error) {
	query, args, err := psql.Select(
		"id", "model_version", "training_samples", "epochs",
		"training_loss", "validation_loss", "status",
		"started_at", "completed_at", "notes",
	).From("training_metadata").
		OrderBy("started_at DESC", "id DESC").
		Limit(uint64(limit)).
		ToSql()
	if err != nil {
		return nil, err
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("recent training runs: %w", err)
	}
	defer rows.Close()

	runs := make([]models.TrainingRun, 0, limit)
	for rows.Next() {
		var (
			r      models.TrainingRun
			status string
		)
		if err := rows.Scan(
			&r.ID, &r.ModelVersion, &r.TrainingSamples, &r.Epochs,
			&r.TrainingLoss, &r.ValidationLoss, &status,
			&r.StartedAt, &r.CompletedAt, &r.Notes,
		); err != nil {
			return nil, fmt.Errorf("scan training run: %w", err)
		}
		r.Status = models.TrainingStatus(status)
		runs = append(runs, r)
	}
	return runs, rows.Err()
}
