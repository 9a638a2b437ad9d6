// Package ml turns player statistics into predicted box-score lines.
package ml

import "github.com/hoopsdata/prediction-service/internal/models"

// FeatureCount is the width of the model input.
const FeatureCount = 10

// Feature scaling constants.
const (
	ppgScale       = 30.0
	apgScale       = 10.0
	rpgScale       = 12.0
	seasonGames    = 82.0
	minutesScale   = 48.0
	stealsScale    = 3.0
	blocksScale    = 3.0
	turnoversScale = 5.0
)

// Index of games played in the feature vector; confidence is derived from it.
const gamesPlayedFeature = 5

// FeatureVector is the normalized model input. Its order is fixed:
// ppg, apg, rpg, fgPct, ftPct, gamesPlayed, minutes, steals, blocks,
// turnovers.
type FeatureVector [FeatureCount]float64

// ToFeatureVector normalizes stats into model input.
func ToFeatureVector(s models.PlayerStats) FeatureVector {
	return FeatureVector{
		s.PPG / ppgScale,
		s.APG / apgScale,
		s.RPG / rpgScale,
		s.FGPct,
		s.FTPct,
		float64(s.GamesPlayed) / seasonGames,
		s.MinutesPerGame / minutesScale,
		s.StealsPerGame / stealsScale,
		s.BlocksPerGame / blocksScale,
		s.TurnoversPerGame / turnoversScale,
	}
}
