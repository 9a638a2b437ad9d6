package logic

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/hoopsdata/prediction-service/internal/models"
	"github.com/hoopsdata/prediction-service/internal/statsclient"
	"github.com/hoopsdata/prediction-service/internal/store"
)

// MockStatsClient serves canned stats per lowercase player name.
type MockStatsClient struct {
	Stats        map[string]models.PlayerStats
	Games        map[string][]models.GameLogEntry
	GameLogErr   error
	statsCalls   atomic.Int32
	gameLogCalls atomic.Int32
}

func (m *MockStatsClient) GetPlayerStats(ctx context.Context, playerName string) (*models.PlayerStats, error) {
	m.statsCalls.Add(1)
	s, ok := m.Stats[strings.ToLower(playerName)]
	if !ok {
		return nil, fmt.Errorf("%w: stats: empty response", statsclient.ErrUnavailable)
	}
	return &s, nil
}

func (m *MockStatsClient) GetPlayerGameLog(ctx context.Context, playerName string, limit int) ([]models.GameLogEntry, error) {
	m.gameLogCalls.Add(1)
	if m.GameLogErr != nil {
		return nil, m.GameLogErr
	}
	games, ok := m.Games[strings.ToLower(playerName)]
	if !ok {
		return nil, fmt.Errorf("%w: games: empty response", statsclient.ErrUnavailable)
	}
	if len(games) > limit {
		games = games[:limit]
	}
	return games, nil
}

// MockStore is an in-memory store for predictions, game logs and runs.
type MockStore struct {
	mu          sync.Mutex
	predictions []models.PredictionRecord
	games       map[string]models.GameLogEntry
	runs        []models.TrainingRun

	SaveErr     error
	InsertErr   error
	latestCalls int
	saves       int
}

func NewMockStore() *MockStore {
	return &MockStore{games: make(map[string]models.GameLogEntry)}
}

func (m *MockStore) SavePrediction(ctx context.Context, rec models.PredictionRecord) (*models.PredictionRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.SaveErr != nil {
		return nil, m.SaveErr
	}
	m.saves++
	rec.ID = int64(len(m.predictions) + 1)
	rec.CreatedAt = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC).Add(time.Duration(rec.ID) * time.Second)
	m.predictions = append(m.predictions, rec)
	return &rec, nil
}

func (m *MockStore) LatestPrediction(ctx context.Context, playerName string) (*models.PredictionRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.latestCalls++
	for i := len(m.predictions) - 1; i >= 0; i-- {
		if strings.EqualFold(m.predictions[i].PlayerName, playerName) {
			rec := m.predictions[i]
			return &rec, nil
		}
	}
	return nil, store.ErrNotFound
}

func (m *MockStore) ListPredictions(ctx context.Context, limit int) ([]models.PredictionRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.PredictionRecord
	for i := len(m.predictions) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, m.predictions[i])
	}
	return out, nil
}

func (m *MockStore) Saves() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.saves
}

func (m *MockStore) InsertGameLog(ctx context.Context, e models.GameLogEntry) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.InsertErr != nil {
		return false, m.InsertErr
	}
	key := e.PlayerName + "|" + e.GameDate.Format("2006-01-02")
	if _, ok := m.games[key]; ok {
		return false, nil
	}
	m.games[key] = e
	return true, nil
}

func (m *MockStore) AllGameLogs(ctx context.Context) ([]models.GameLogEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]models.GameLogEntry, 0, len(m.games))
	for _, g := range m.games {
		out = append(out, g)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].PlayerName != out[j].PlayerName {
			return out[i].PlayerName < out[j].PlayerName
		}
		return out[i].GameDate.Before(out[j].GameDate)
	})
	return out, nil
}

func (m *MockStore) GameLogStats(ctx context.Context) (models.TrainingDataStats, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	players := map[string]bool{}
	var latest *time.Time
	for _, g := range m.games {
		players[g.PlayerName] = true
		if latest == nil || g.GameDate.After(*latest) {
			d := g.GameDate
			latest = &d
		}
	}
	return models.TrainingDataStats{
		TotalGames:     int64(len(m.games)),
		UniquePlayers:  int64(len(players)),
		LatestGameDate: latest,
	}, nil
}

func (m *MockStore) CreateTrainingRun(ctx context.Context, run models.TrainingRun) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	run.ID = int64(len(m.runs) + 1)
	m.runs = append(m.runs, run)
	return run.ID, nil
}

func (m *MockStore) FinishTrainingRun(ctx context.Context, run models.TrainingRun) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.runs {
		if m.runs[i].ID == run.ID && m.runs[i].Status == models.TrainingStatusTraining {
			m.runs[i] = run
			return nil
		}
	}
	return store.ErrNotFound
}

func (m *MockStore) RecentTrainingRuns(ctx context.Context, limit int) ([]models.TrainingRun, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.TrainingRun
	for i := len(m.runs) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, m.runs[i])
	}
	return out, nil
}

func (m *MockStore) Runs() []models.TrainingRun {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]models.TrainingRun(nil), m.runs...)
}

// MockQueue records scheduled collections.
type MockQueue struct {
	mu      sync.Mutex
	players []string
	Full    bool
}

func (m *MockQueue) EnqueueCollection(playerName string, limit int) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Full {
		return false
	}
	m.players = append(m.players, playerName)
	return true
}

func (m *MockQueue) Players() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.players...)
}
