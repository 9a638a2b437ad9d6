package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"go.uber.org/zap"

	"github.com/hoopsdata/prediction-service/internal/logic"
	"github.com/hoopsdata/prediction-service/internal/models"
)

type testDeps struct {
	predictions *MockPredictionService
	collector   *MockCollectorService
	training    *MockTrainingService
	pg          *MockPinger
	redis       *MockPinger
}

func newTestHandler() (*Handler, *testDeps) {
	d := &testDeps{
		predictions: &MockPredictionService{},
		collector:   &MockCollectorService{},
		training:    &MockTrainingService{},
		pg:          &MockPinger{},
		redis:       &MockPinger{},
	}
	h := New(Config{
		Postgres:       d.pg,
		Redis:          d.redis,
		Queue:          &MockQueue{Depth: 3},
		Model:          &MockModel{V: "v_20240301_120000"},
		Logger:         zap.NewNop(),
		AllowedOrigins: []string{"http://localhost:3000"},
		Predictions:    d.predictions,
		Collector:      d.collector,
		Training:       d.training,
	})
	return h, d
}

func do(t *testing.T, h *Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var r *http.Request
	if body != "" {
		r = httptest.NewRequest(method, path, strings.NewReader(body))
		r.Header.Set("Content-Type", "application/json")
	} else {
		r = httptest.NewRequest(method, path, nil)
	}
	w := httptest.NewRecorder()
	h.Router().ServeHTTP(w, r)
	return w
}

func TestHealth(t *testing.T) {
	h, _ := newTestHandler()
	w := do(t, h, "GET", "/health", "")

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	var body map[string]string
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatal(err)
	}
	if body["status"] != "UP" || body["service"] != "prediction-service" || body["version"] != "1.0.0" {
		t.Errorf("unexpected health body: %v", body)
	}
}

func TestReady(t *testing.T) {
	tests := []struct {
		name           string
		pgErr          error
		redisErr       error
		expectedStatus int
	}{
		{"all healthy", nil, nil, http.StatusOK},
		{"postgres down", errors.New("refused"), nil, http.StatusServiceUnavailable},
		{"redis down", nil, errors.New("refused"), http.StatusServiceUnavailable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h, d := newTestHandler()
			d.pg.Err = tt.pgErr
			d.redis.Err = tt.redisErr

			w := do(t, h, "GET", "/ready", "")
			if w.Code != tt.expectedStatus {
				t.Errorf("expected status %d, got %d", tt.expectedStatus, w.Code)
			}
			if !strings.Contains(w.Body.String(), `"queueDepth":3`) {
				t.Errorf("expected queue depth in body, got %s", w.Body.String())
			}
			if !strings.Contains(w.Body.String(), `"modelVersion":"v_20240301_120000"`) {
				t.Errorf("expected model version in body, got %s", w.Body.String())
			}
		})
	}
}

func TestPredict(t *testing.T) {
	tests := []struct {
		name           string
		body           string
		mockSetup      func(*MockPredictionService)
		expectedStatus int
		expectedBody   string
	}{
		{
			name: "upstream stats",
			body: `{"playerName":"LeBron James"}`,
			mockSetup: func(m *MockPredictionService) {
				m.GeneratePredictionFunc = func(ctx context.Context, name string, opts logic.GenerateOptions) (*models.PredictionRecord, error) {
					if !opts.CollectTrainingData || opts.ForceRefresh {
						return nil, fmt.Errorf("unexpected options %+v", opts)
					}
					return &models.PredictionRecord{ID: 7, PlayerName: name, PredictedStats: models.PredictedStats{Points: 25.1}}, nil
				}
			},
			expectedStatus: http.StatusOK,
			expectedBody:   `"pts":25.1`,
		},
		{
			name: "supplied stats away game",
			body: `{"playerName":"Bench Guy","currentStats":{"ppg":8,"apg":1,"rpg":3,"gamesPlayed":12},"homeGame":false}`,
			mockSetup: func(m *MockPredictionService) {
				m.PredictFromStatsFunc = func(ctx context.Context, name string, stats models.PlayerStats, home bool) (*models.PredictionRecord, error) {
					if home || stats.FGPct != models.DefaultFGPct || stats.GamesPlayed != 12 {
						return nil, fmt.Errorf("unexpected input %+v home=%v", stats, home)
					}
					return &models.PredictionRecord{ID: 8, PlayerName: name}, nil
				}
			},
			expectedStatus: http.StatusOK,
			expectedBody:   `"id":8`,
		},
		{
			name:           "missing player name",
			body:           `{"currentStats":{"ppg":8,"apg":1,"rpg":3,"gamesPlayed":12}}`,
			expectedStatus: http.StatusBadRequest,
			expectedBody:   `PlayerName`,
		},
		{
			name:           "blank player name",
			body:           `{"playerName":"   "}`,
			expectedStatus: http.StatusBadRequest,
			expectedBody:   `PlayerName`,
		},
		{
			name:           "incomplete stats",
			body:           `{"playerName":"X","currentStats":{"ppg":8}}`,
			expectedStatus: http.StatusBadRequest,
		},
		{
			name:           "malformed json",
			body:           `{"playerName":`,
			expectedStatus: http.StatusBadRequest,
		},
		{
			name: "no stats upstream",
			body: `{"playerName":"Nobody"}`,
			mockSetup: func(m *MockPredictionService) {
				m.GeneratePredictionFunc = func(ctx context.Context, name string, opts logic.GenerateOptions) (*models.PredictionRecord, error) {
					return nil, logic.ErrNoStats
				}
			},
			expectedStatus: http.StatusNotFound,
		},
		{
			name: "persistence failure hides details",
			body: `{"playerName":"LeBron James"}`,
			mockSetup: func(m *MockPredictionService) {
				m.GeneratePredictionFunc = func(ctx context.Context, name string, opts logic.GenerateOptions) (*models.PredictionRecord, error) {
					return nil, fmt.Errorf("%w: connection reset", logic.ErrPersistence)
				}
			},
			expectedStatus: http.StatusInternalServerError,
			expectedBody:   `"error":"Failed to generate prediction"`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h, d := newTestHandler()
			if tt.mockSetup != nil {
				tt.mockSetup(d.predictions)
			}

			w := do(t, h, "POST", "/predict", tt.body)

			if w.Code != tt.expectedStatus {
				t.Errorf("expected status %d, got %d: %s", tt.expectedStatus, w.Code, w.Body.String())
			}
			if tt.expectedBody != "" && !strings.Contains(w.Body.String(), tt.expectedBody) {
				t.Errorf("expected body to contain %q, got %q", tt.expectedBody, w.Body.String())
			}
		})
	}
}

func TestPredict_BodyTooLarge(t *testing.T) {
	h, _ := newTestHandler()
	body := `{"playerName":"` + strings.Repeat("a", MaxBodySize) + `"}`

	w := do(t, h, "POST", "/predict", body)
	if w.Code != http.StatusRequestEntityTooLarge {
		t.Errorf("expected 413, got %d", w.Code)
	}
}

func TestPredictBatch(t *testing.T) {
	h, d := newTestHandler()
	d.predictions.PredictBatchFunc = func(ctx context.Context, reqs []models.PredictionRequest) []models.PredictionRecord {
		var out []models.PredictionRecord
		for _, r := range reqs {
			if r.PlayerName != "Unknown" {
				out = append(out, models.PredictionRecord{PlayerName: r.PlayerName})
			}
		}
		return out
	}

	w := do(t, h, "POST", "/predict/batch", `{"predictions":[{"playerName":"A"},{"playerName":"Unknown"},{"playerName":"B"}]}`)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	var recs []models.PredictionRecord
	if err := json.Unmarshal(w.Body.Bytes(), &recs); err != nil {
		t.Fatalf("expected a JSON list, got %s: %v", w.Body.String(), err)
	}
	if len(recs) != 2 {
		t.Errorf("expected 2 predictions, got %+v", recs)
	}

	w = do(t, h, "POST", "/predict/batch", `{"predictions":[{"playerName":"A"},{"playerName":" "}]}`)
	if w.Code != http.StatusBadRequest {
		t.Errorf("blank name in batch: expected 400, got %d", w.Code)
	}

	w = do(t, h, "POST", "/predict/batch", `{"predictions":[]}`)
	if w.Code != http.StatusBadRequest {
		t.Errorf("empty batch: expected 400, got %d", w.Code)
	}
}

func TestPredictBatch_AllFailedIsEmptyList(t *testing.T) {
	h, _ := newTestHandler()
	w := do(t, h, "POST", "/predict/batch", `{"predictions":[{"playerName":"Unknown"}]}`)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if body := strings.TrimSpace(w.Body.String()); body != "[]" {
		t.Errorf("expected empty array, got %s", body)
	}
}

func TestGetPrediction(t *testing.T) {
	h, d := newTestHandler()
	d.predictions.GetPredictionFunc = func(ctx context.Context, name string) (*models.PredictionRecord, error) {
		if name == "LeBron James" {
			return &models.PredictionRecord{ID: 1, PlayerName: name}, nil
		}
		return nil, logic.ErrNoStats
	}

	w := do(t, h, "GET", "/predictions/LeBron%20James", "")
	if w.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), `"player_name":"LeBron James"`) {
		t.Errorf("unexpected body %s", w.Body.String())
	}

	w = do(t, h, "GET", "/predictions/Nobody", "")
	if w.Code != http.StatusNotFound {
		t.Errorf("expected 404, got %d", w.Code)
	}
}

func TestRefreshPrediction(t *testing.T) {
	h, d := newTestHandler()
	calls := 0
	d.predictions.RefreshPredictionFunc = func(ctx context.Context, name string) (*models.PredictionRecord, error) {
		calls++
		return nil, logic.ErrNoStats
	}

	w := do(t, h, "POST", "/predictions/Nobody/refresh", "")
	if w.Code != http.StatusNotFound {
		t.Errorf("expected 404, got %d", w.Code)
	}
	if calls != 1 {
		t.Errorf("expected one refresh call, got %d", calls)
	}
}

func TestListPredictions(t *testing.T) {
	tests := []struct {
		name           string
		query          string
		expectedLimit  int
		expectedStatus int
	}{
		{"default limit", "", logic.DefaultListLimit, http.StatusOK},
		{"explicit limit", "?limit=5", 5, http.StatusOK},
		{"bad limit", "?limit=abc", 0, http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h, d := newTestHandler()
			gotLimit := 0
			d.predictions.ListPredictionsFunc = func(ctx context.Context, limit int) ([]models.PredictionRecord, error) {
				gotLimit = limit
				return []models.PredictionRecord{{ID: 2}, {ID: 1}}, nil
			}

			w := do(t, h, "GET", "/predictions"+tt.query, "")
			if w.Code != tt.expectedStatus {
				t.Fatalf("expected status %d, got %d", tt.expectedStatus, w.Code)
			}
			if tt.expectedStatus == http.StatusOK {
				if gotLimit != tt.expectedLimit {
					t.Errorf("expected limit %d, got %d", tt.expectedLimit, gotLimit)
				}
				if !strings.Contains(w.Body.String(), `"count":2`) {
					t.Errorf("unexpected body %s", w.Body.String())
				}
			}
		})
	}
}

func TestInvalidateCache(t *testing.T) {
	h, d := newTestHandler()
	d.predictions.InvalidateCacheFunc = func(ctx context.Context) int { return 4 }

	w := do(t, h, "DELETE", "/cache/invalidate", "")
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	var resp models.CacheInvalidateResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if resp.Cleared != 4 || resp.Message == "" {
		t.Errorf("unexpected response %+v", resp)
	}
}

func TestCollectTrainingData(t *testing.T) {
	h, d := newTestHandler()
	gotLimit := 0
	d.collector.CollectGameLogsFunc = func(ctx context.Context, name string, limit int) (int, error) {
		gotLimit = limit
		if name == "Broken" {
			return 0, errors.New("db down")
		}
		return 6, nil
	}

	w := do(t, h, "POST", "/training/collect/LeBron%20James?limit=20", "")
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if gotLimit != 20 {
		t.Errorf("expected limit 20, got %d", gotLimit)
	}
	if !strings.Contains(w.Body.String(), `"games_stored":6`) || !strings.Contains(w.Body.String(), `"player_name":"LeBron James"`) {
		t.Errorf("unexpected body %s", w.Body.String())
	}

	w = do(t, h, "POST", "/training/collect/Broken", "")
	if w.Code != http.StatusInternalServerError {
		t.Errorf("expected 500, got %d", w.Code)
	}
	if strings.Contains(w.Body.String(), "db down") {
		t.Errorf("internal error leaked: %s", w.Body.String())
	}
}

func TestTrainModel(t *testing.T) {
	tests := []struct {
		name           string
		query          string
		trainErr       error
		expectedStatus int
	}{
		{"defaults", "", nil, http.StatusOK},
		{"custom", "?epochs=5&batch_size=16&learning_rate=0.01", nil, http.StatusOK},
		{"bad epochs", "?epochs=zero", nil, http.StatusBadRequest},
		{"out of range rate", "?learning_rate=2", nil, http.StatusBadRequest},
		{"insufficient data", "", logic.ErrInsufficientData, http.StatusBadRequest},
		{"already running", "", logic.ErrTrainingInProgress, http.StatusConflict},
		{"failure", "", errors.New("disk full"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h, d := newTestHandler()
			var got logic.TrainOptions
			d.training.TrainFunc = func(ctx context.Context, opts logic.TrainOptions) (*models.TrainingResult, error) {
				got = opts
				if tt.trainErr != nil {
					return nil, tt.trainErr
				}
				return &models.TrainingResult{Status: "completed", Epochs: opts.Epochs}, nil
			}

			w := do(t, h, "POST", "/training/train"+tt.query, "")
			if w.Code != tt.expectedStatus {
				t.Fatalf("expected status %d, got %d: %s", tt.expectedStatus, w.Code, w.Body.String())
			}
			if tt.name == "defaults" && (got.Epochs != 50 || got.BatchSize != 32 || got.LearningRate != 0.001) {
				t.Errorf("unexpected default options %+v", got)
			}
			if tt.name == "custom" && (got.Epochs != 5 || got.BatchSize != 16 || got.LearningRate != 0.01) {
				t.Errorf("unexpected options %+v", got)
			}
		})
	}
}

func TestTrainingStatus(t *testing.T) {
	h, d := newTestHandler()
	d.training.StatusFunc = func(ctx context.Context) (*models.TrainingStatusResponse, error) {
		return &models.TrainingStatusResponse{
			DataStats:    models.TrainingDataStats{TotalGames: 120, DatabaseStatus: "ready"},
			ModelVersion: "v_1",
		}, nil
	}

	w := do(t, h, "GET", "/training/status", "")
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), `"database_status":"ready"`) {
		t.Errorf("unexpected body %s", w.Body.String())
	}
}

func TestRoot(t *testing.T) {
	h, _ := newTestHandler()
	w := do(t, h, "GET", "/", "")
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), "POST /predict/batch") {
		t.Errorf("unexpected root response %d %s", w.Code, w.Body.String())
	}
}
