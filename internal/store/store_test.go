package store

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/hoopsdata/prediction-service/internal/models"
)

func newMockStore(t *testing.T) (*Store, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(mock.Close)
	return New(mock, zap.NewNop()), mock
}

func TestSavePrediction(t *testing.T) {
	s, mock := newMockStore(t)
	created := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

	// SetMap orders columns alphabetically.
	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO player_predictions (confidence,player_name,predicted_assists,predicted_points,predicted_rebounds)")).
		WithArgs(0.88, "LeBron James", 7.4, 26.1, 8.2).
		WillReturnRows(pgxmock.NewRows([]string{"id", "created_at"}).AddRow(int64(42), created))

	rec, err := s.SavePrediction(context.Background(), models.PredictionRecord{
		PlayerName:     "LeBron James",
		PredictedStats: models.PredictedStats{Points: 26.1, Assists: 7.4, Rebounds: 8.2},
		Confidence:     0.88,
	})
	require.NoError(t, err)
	assert.Equal(t, int64(42), rec.ID)
	assert.Equal(t, created, rec.CreatedAt)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSavePrediction_Error(t *testing.T) {
	s, mock := newMockStore(t)
	mock.ExpectQuery("INSERT INTO player_predictions").
		WithArgs(pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnError(errors.New("connection reset"))

	_, err := s.SavePrediction(context.Background(), models.PredictionRecord{PlayerName: "X"})
	assert.Error(t, err)
}

func TestLatestPrediction(t *testing.T) {
	s, mock := newMockStore(t)
	created := time.Date(2024, 3, 2, 9, 30, 0, 0, time.UTC)

	mock.ExpectQuery(regexp.QuoteMeta("WHERE LOWER(player_name) = LOWER($1) ORDER BY created_at DESC, id DESC LIMIT 1")).
		WithArgs("lebron james").
		WillReturnRows(pgxmock.NewRows(predictionColumns).
			AddRow(int64(9), "LeBron James", 26.1, 7.4, 8.2, 0.88, created))

	rec, err := s.LatestPrediction(context.Background(), "lebron james")
	require.NoError(t, err)
	assert.Equal(t, "LeBron James", rec.PlayerName)
	assert.Equal(t, 7.4, rec.PredictedStats.Assists)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLatestPrediction_NotFound(t *testing.T) {
	s, mock := newMockStore(t)
	mock.ExpectQuery("FROM player_predictions").
		WithArgs("Nobody").
		WillReturnError(pgx.ErrNoRows)

	_, err := s.LatestPrediction(context.Background(), "Nobody")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestListPredictions(t *testing.T) {
	s, mock := newMockStore(t)
	now := time.Now().UTC()

	mock.ExpectQuery(regexp.QuoteMeta("ORDER BY created_at DESC, id DESC LIMIT 2")).
		WillReturnRows(pgxmock.NewRows(predictionColumns).
			AddRow(int64(2), "B", 20.0, 5.0, 6.0, 0.9, now).
			AddRow(int64(1), "A", 10.0, 2.0, 3.0, 0.7, now.Add(-time.Minute)))

	recs, err := s.ListPredictions(context.Background(), 2)
	require.NoError(t, err)
	require.Len(t, recs, 2)
	assert.Equal(t, "B", recs[0].PlayerName)
	assert.Equal(t, "A", recs[1].PlayerName)
}

func TestInsertGameLog_ConflictSkipped(t *testing.T) {
	s, mock := newMockStore(t)
	entry := models.GameLogEntry{
		PlayerName: "LeBron James",
		GameDate:   time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC),
		Opponent:   "GSW",
		Points:     31,
		IsHome:     true,
	}

	// assists, blocks, fga, fgm, fta, ftm, game_date, is_home, minutes,
	// opponent, player_name, points, rebounds, steals, turnovers
	argsFor := func(name string) []interface{} {
		return []interface{}{
			0.0, 0.0, 0.0, 0.0, 0.0, 0.0,
			entry.GameDate, true, 0.0, "GSW", name,
			31.0, 0.0, 0.0, 0.0,
		}
	}
	mock.ExpectExec(regexp.QuoteMeta("ON CONFLICT (LOWER(player_name), game_date) DO NOTHING")).
		WithArgs(argsFor("LeBron James")...).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectExec(regexp.QuoteMeta("ON CONFLICT (LOWER(player_name), game_date) DO NOTHING")).
		WithArgs(argsFor("lebron james")...).
		WillReturnResult(pgxmock.NewResult("INSERT", 0))

	inserted, err := s.InsertGameLog(context.Background(), entry)
	require.NoError(t, err)
	assert.True(t, inserted)

	// Same game under a different casing of the name is a duplicate.
	again := entry
	again.PlayerName = "lebron james"
	inserted, err = s.InsertGameLog(context.Background(), again)
	require.NoError(t, err)
	assert.False(t, inserted)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAllGameLogs(t *testing.T) {
	s, mock := newMockStore(t)
	d1 := time.Date(2024, 1, 10, 0, 0, 0, 0, time.UTC)
	cols := []string{"id", "player_name", "game_date", "opponent", "points", "assists", "rebounds", "minutes",
		"fgm", "fga", "ftm", "fta", "steals", "blocks", "turnovers", "is_home", "created_at"}

	mock.ExpectQuery(regexp.QuoteMeta("FROM game_logs ORDER BY LOWER(player_name), game_date")).
		WillReturnRows(pgxmock.NewRows(cols).
			AddRow(int64(1), "A", d1, "BOS", 20.0, 5.0, 6.0, 34.0, 8.0, 15.0, 3.0, 4.0, 1.0, 0.0, 2.0, true, d1))

	logs, err := s.AllGameLogs(context.Background())
	require.NoError(t, err)
	require.Len(t, logs, 1)
	assert.Equal(t, "BOS", logs[0].Opponent)
	assert.Equal(t, 15.0, logs[0].FGA)
}

func TestGameLogStats(t *testing.T) {
	s, mock := newMockStore(t)
	latest := time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*), COUNT(DISTINCT LOWER(player_name)), MAX(game_date) FROM game_logs")).
		WillReturnRows(pgxmock.NewRows([]string{"count", "players", "latest"}).
			AddRow(int64(120), int64(4), &latest))

	stats, err := s.GameLogStats(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(120), stats.TotalGames)
	assert.Equal(t, int64(4), stats.UniquePlayers)
	require.NotNil(t, stats.LatestGameDate)
	assert.Equal(t, latest, *stats.LatestGameDate)
}

func TestTrainingRunLifecycle(t *testing.T) {
	s, mock := newMockStore(t)
	ctx := context.Background()
	started := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)

	// epochs, model_version, notes, started_at, status, training_samples
	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO training_metadata")).
		WithArgs(50, "v_20240301_000000", pgxmock.AnyArg(), started, "training", 400).
		WillReturnRows(pgxmock.NewRows([]string{"id"}).AddRow(int64(5)))

	id, err := s.CreateTrainingRun(ctx, models.TrainingRun{
		ModelVersion:    "v_20240301_000000",
		TrainingSamples: 400,
		Epochs:          50,
		StartedAt:       started,
	})
	require.NoError(t, err)
	assert.Equal(t, int64(5), id)

	loss := 0.012
	done := started.Add(time.Minute)
	// completed_at, epochs, notes, status, training_loss, validation_loss, then id and status.
	finishArgs := []interface{}{
		pgxmock.AnyArg(), 50, pgxmock.AnyArg(), "completed", pgxmock.AnyArg(), pgxmock.AnyArg(),
		int64(5), "training",
	}
	mock.ExpectExec(regexp.QuoteMeta("UPDATE training_metadata SET")).
		WithArgs(finishArgs...).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	mock.ExpectExec(regexp.QuoteMeta("WHERE id = $7 AND status = $8")).
		WithArgs(finishArgs...).
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	run := models.TrainingRun{
		ID:             id,
		Epochs:         50,
		TrainingLoss:   &loss,
		ValidationLoss: &loss,
		Status:         models.TrainingStatusCompleted,
		CompletedAt:    &done,
	}
	require.NoError(t, s.FinishTrainingRun(ctx, run))

	// A second finalization touches no row.
	err = s.FinishTrainingRun(ctx, run)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRecentTrainingRuns(t *testing.T) {
	s, mock := newMockStore(t)
	started := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	done := started.Add(time.Minute)
	loss := 0.02

	mock.ExpectQuery(regexp.QuoteMeta("FROM training_metadata ORDER BY started_at DESC, id DESC LIMIT 5")).
		WillReturnRows(pgxmock.NewRows([]string{"id", "model_version", "training_samples", "epochs",
			"training_loss", "validation_loss", "status", "started_at", "completed_at", "notes"}).
			AddRow(int64(1), "v_20240301_000000", 300, 50, &loss, &loss, "completed", started, &done, ""))

	runs, err := s.RecentTrainingRuns(context.Background(), 5)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, models.TrainingStatusCompleted, runs[0].Status)
	require.NotNil(t, runs[0].TrainingLoss)
	assert.Equal(t, 0.02, *runs[0].TrainingLoss)
}
