package models

// Defaults applied when the upstream provider or a request omits a field.
const (
	DefaultFGPct            = 0.45
	DefaultFTPct            = 0.75
	DefaultMinutesPerGame   = 30.0
	DefaultStealsPerGame    = 1.0
	DefaultBlocksPerGame    = 0.5
	DefaultTurnoversPerGame = 2.0
)

// PlayerStats holds the per-game averages used as model input.
type PlayerStats struct {
	PPG              float64 `json:"ppg"`
	APG              float64 `json:"apg"`
	RPG              float64 `json:"rpg"`
	FGPct            float64 `json:"fgPct"`
	FTPct            float64 `json:"ftPct"`
	GamesPlayed      int     `json:"gamesPlayed"`
	MinutesPerGame   float64 `json:"minutesPerGame"`
	StealsPerGame    float64 `json:"stealsPerGame"`
	BlocksPerGame    float64 `json:"blocksPerGame"`
	TurnoversPerGame float64 `json:"turnoversPerGame"`
}

// StatsInput is the currentStats object of a prediction request. Required
// fields are pointers so that an explicit zero is distinguishable from a
// missing value.
type StatsInput struct {
	PPG              *float64 `json:"ppg" validate:"required,gte=0"`
	APG              *float64 `json:"apg" validate:"required,gte=0"`
	RPG              *float64 `json:"rpg" validate:"required,gte=0"`
	FGPct            *float64 `json:"fgPct" validate:"omitempty,gte=0,lte=1"`
	FTPct            *float64 `json:"ftPct" validate:"omitempty,gte=0,lte=1"`
	GamesPlayed      *int     `json:"gamesPlayed" validate:"required,gte=0"`
	MinutesPerGame   *float64 `json:"minutesPerGame" validate:"omitempty,gte=0,lte=48"`
	StealsPerGame    *float64 `json:"stealsPerGame" validate:"omitempty,gte=0"`
	BlocksPerGame    *float64 `json:"blocksPerGame" validate:"omitempty,gte=0"`
	TurnoversPerGame *float64 `json:"turnoversPerGame" validate:"omitempty,gte=0"`
}

// ToPlayerStats fills omitted optional fields with their defaults.
func (in StatsInput) ToPlayerStats() PlayerStats {
	return PlayerStats{
		PPG:              floatOr(in.PPG, 0),
		APG:              floatOr(in.APG, 0),
		RPG:              floatOr(in.RPG, 0),
		FGPct:            floatOr(in.FGPct, DefaultFGPct),
		FTPct:            floatOr(in.FTPct, DefaultFTPct),
		GamesPlayed:      intOr(in.GamesPlayed, 0),
		MinutesPerGame:   floatOr(in.MinutesPerGame, DefaultMinutesPerGame),
		StealsPerGame:    floatOr(in.StealsPerGame, DefaultStealsPerGame),
		BlocksPerGame:    floatOr(in.BlocksPerGame, DefaultBlocksPerGame),
		TurnoversPerGame: floatOr(in.TurnoversPerGame, DefaultTurnoversPerGame),
	}
}

// UpstreamStats is the season summary returned by the stats service
// (GET /api/players/stats). Only ppg, apg, rpg and gamesPlayed are sent today;
// the remaining fields are read when present.
type UpstreamStats struct {
	Season           string   `json:"season"`
	GamesPlayed      *int     `json:"gamesPlayed"`
	PPG              *float64 `json:"ppg"`
	APG              *float64 `json:"apg"`
	RPG              *float64 `json:"rpg"`
	TOPG             *float64 `json:"topg"`
	FGPct            *float64 `json:"fgPct"`
	FTPct            *float64 `json:"ftPct"`
	MinutesPerGame   *float64 `json:"minutesPerGame"`
	StealsPerGame    *float64 `json:"stealsPerGame"`
	BlocksPerGame    *float64 `json:"blocksPerGame"`
	TurnoversPerGame *float64 `json:"turnoversPerGame"`
}

// UnmarshalJSON accepts numbers encoded as JSON strings.
func (u *UpstreamStats) UnmarshalJSON(data []byte) error {
	type alias UpstreamStats
	return flexUnmarshal(data, (*alias)(u))
}

// ToPlayerStats converts the upstream summary into model input.
func (u UpstreamStats) ToPlayerStats() PlayerStats {
	turnovers := u.TurnoversPerGame
	if turnovers == nil {
		turnovers = u.TOPG
	}
	return PlayerStats{
		PPG:              floatOr(u.PPG, 0),
		APG:              floatOr(u.APG, 0),
		RPG:              floatOr(u.RPG, 0),
		FGPct:            floatOr(u.FGPct, DefaultFGPct),
		FTPct:            floatOr(u.FTPct, DefaultFTPct),
		GamesPlayed:      intOr(u.GamesPlayed, 0),
		MinutesPerGame:   floatOr(u.MinutesPerGame, DefaultMinutesPerGame),
		StealsPerGame:    floatOr(u.StealsPerGame, DefaultStealsPerGame),
		BlocksPerGame:    floatOr(u.BlocksPerGame, DefaultBlocksPerGame),
		TurnoversPerGame: floatOr(turnovers, DefaultTurnoversPerGame),
	}
}

func floatOr(v *float64, fallback float64) float64 {
	if v == nil {
		return fallback
	}
	return *v
}

func intOr(v *int, fallback int) int {
	if v == nil {
		return fallback
	}
	return *v
}
