package models

// PredictionRequest is the body of POST /predict. When CurrentStats is
// omitted the season stats are fetched from the stats service.
type PredictionRequest struct {
	PlayerName   string      `json:"playerName" validate:"required,notblank,max=255"`
	CurrentStats *StatsInput `json:"currentStats"`
	HomeGame     *bool       `json:"homeGame"`
}

// IsHomeGame defaults to a home game, matching the upstream API contract.
func (r PredictionRequest) IsHomeGame() bool {
	return r.HomeGame == nil || *r.HomeGame
}

type BatchPredictionRequest struct {
	Predictions []PredictionRequest `json:"predictions" validate:"required,min=1,max=100,dive"`
}

type CollectResponse struct {
	PlayerName  string `json:"player_name"`
	GamesStored int    `json:"games_stored"`
}

type CacheInvalidateResponse struct {
	Message string `json:"message"`
	Cleared int    `json:"cleared"`
}
