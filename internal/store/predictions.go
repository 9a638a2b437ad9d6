package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/hoopsdata/prediction-service/internal/models"
)

var predictionColumns = []string{
	"id", "player_name", "predicted_points", "predicted_assists",
	"predicted_rebounds", "confidence", "created_at",
}

// SavePrediction inserts a new immutable record and returns it with the
// store-assigned id and creation time.
func (s *Store) SavePrediction(ctx context.Context, rec models.PredictionRecord) (*models.PredictionRecord, error) {
	query, args, err := psql.Insert("player_predictions").SetMap(map[string]interface{}{
		"player_name":        rec.PlayerName,
		"predicted_points":   rec.PredictedStats.Points,
		"predicted_assists":  rec.PredictedStats.Assists,
		"predicted_rebounds": rec.PredictedStats.Rebounds,
		"confidence":         rec.Confidence,
	}).Suffix("RETURNING id, created_at").ToSql()
	if err != nil {
		return nil, err
	}

	if err := s.pool.QueryRow(ctx, query, args...).Scan(&rec.ID, &rec.CreatedAt); err != nil {
		return nil, fmt.Errorf("insert prediction: %w", err)
	}
	return &rec, nil
}

// LatestPrediction returns the most recent record for a player, matching the
// name case-insensitively.
func (s *Store) LatestPrediction(ctx context.Context, playerName string) (*models.PredictionRecord, error) {
	query, args, err := psql.Select(predictionColumns...).
		From("player_predictions").
		Where("LOWER(player_name) = LOWER(?)", playerName).
		OrderBy("created_at DESC", "id DESC").
		Limit(1).
		ToSql()
	if err != nil {
		return nil, err
	}

	rec, err := scanPrediction(s.pool.QueryRow(ctx, query, args...))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("latest prediction: %w", err)
	}
	return rec, nil
}

// ListPredictions returns up to limit records, newest first.
func (s *Store) ListPredictions(ctx context.Context, limit int) ([]models.PredictionRecord, error) {
	query, args, err := psql.Select(predictionColumns...).
		From("player_predictions").
		OrderBy("created_at DESC", "id DESC").
		Limit(uint64(limit)).
		ToSql()
	if err != nil {
		return nil, err
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list predictions: %w", err)
	}
	defer rows.Close()

	out := make([]models.PredictionRecord, 0, limit)
	for rows.Next() {
		rec, err := scanPrediction(rows)
		if err != nil {
			return nil, fmt.Errorf("scan prediction: %w", err)
		}
		out = append(out, *rec)
	}
	return out, rows.Err()
}

func scanPrediction(row pgx.Row) (*models.PredictionRecord, error) {
	var rec models.PredictionRecord
	err := row.Scan(
		&rec.ID,
		&rec.PlayerName,
		&rec.PredictedStats.Points,
		&rec.PredictedStats.Assists,
		&rec.PredictedStats.Rebounds,
		&rec.Confidence,
		&rec.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &rec, nil
}
