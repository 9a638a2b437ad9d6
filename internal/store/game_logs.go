package store

import (
	"context"
	"fmt"
	"time"

	"github.com/hoopsdata/prediction-service/internal/models"
)

// InsertGameLog stores an entry unless one already exists for the same
// player and date. Player names compare case-insensitively. It reports
// whether a new row was written.
func (s *Store) InsertGameLog(ctx context.Context, e models.GameLogEntry) (bool, error) {
	query, args, err := psql.Insert("game_logs").SetMap(map[string]interface{}{
		"player_name": e.PlayerName,
		"game_date":   e.GameDate,
		"opponent":    e.Opponent,
		"points":      e.Points,
		"assists":     e.Assists,
		"rebounds":    e.Rebounds,
		"minutes":     e.Minutes,
		"fgm":         e.FGM,
		"fga":         e.FGA,
		"ftm":         e.FTM,
		"fta":         e.FTA,
		"steals":      e.Steals,
		"blocks":      e.Blocks,
		"turnovers":   e.Turnovers,
		"is_home":     e.IsHome,
	}).Suffix("ON CONFLICT (LOWER(player_name), game_date) DO NOTHING").ToSql()
	if err != nil {
		return false, err
	}

	tag, err := s.pool.Exec(ctx, query, args...)
	if err != nil {
		return false, fmt.Errorf("insert game log: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

// AllGameLogs returns every stored entry ordered by player, then date.
func (s *Store) AllGameLogs(ctx context.Context) ([]models.GameLogEntry, error) {
	query, args, err := psql.Select(
		"id", "player_name", "game_date", "opponent",
		"points", "assists", "rebounds", "minutes",
		"fgm", "fga", "ftm", "fta",
		"steals", "blocks", "turnovers", "is_home", "created_at",
	).From("game_logs").OrderBy("LOWER(player_name)", "game_date").ToSql()
	if err != nil {
		return nil, err
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("load game logs: %w", err)
	}
	defer rows.Close()

	var out []models.GameLogEntry
	for rows.Next() {
		var e models.GameLogEntry
		if err := rows.Scan(
			&e.ID, &e.PlayerName, &e.GameDate, &e.Opponent,
			&e.Points, &e.Assists, &e.Rebounds, &e.Minutes,
			&e.FGM, &e.FGA, &e.FTM, &e.FTA,
			&e.Steals, &e.Blocks, &e.Turnovers, &e.IsHome, &e.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan game log: %w", err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// GameLogStats summarizes the collected data. An empty table yields zero
// counts and a nil latest date.
func (s *Store) GameLogStats(ctx context.Context) (models.TrainingDataStats, error) {
	query, args, err := psql.Select(
		"COUNT(*)",
		"COUNT(DISTINCT LOWER(player_name))",
		"MAX(game_date)",
	).From("game_logs").ToSql()
	if err != nil {
		return models.TrainingDataStats{}, err
	}

	var (
		stats  models.TrainingDataStats
		latest *time.Time
	)
	if err := s.pool.QueryRow(ctx, query, args...).Scan(&stats.TotalGames, &stats.UniquePlayers, &latest); err != nil {
		return models.TrainingDataStats{}, fmt.Errorf("game log stats: %w", err)
	}
	stats.LatestGameDate = latest
	return stats, nil
}
