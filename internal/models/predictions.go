package models

import "time"

// PredictedStats holds the forecast box-score line for the next game.
type PredictedStats struct {
	Points   float64 `json:"pts"`
	Assists  float64 `json:"ast"`
	Rebounds float64 `json:"reb"`
}

// PredictionRecord is an immutable stored prediction. The current prediction
// for a player is the most recently created record with that name.
type PredictionRecord struct {
	ID             int64          `json:"id"`
	PlayerName     string         `json:"player_name"`
	PredictedStats PredictedStats `json:"predicted_stats"`
	Confidence     float64        `json:"confidence"`
	CreatedAt      time.Time      `json:"created_at"`
}

// PredictionList is the response of GET /predictions.
type PredictionList struct {
	Count       int                `json:"count"`
	Predictions []PredictionRecord `json:"predictions"`
}
