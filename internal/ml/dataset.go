package ml

import (
	"sort"
	"strings"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"

	"github.com/hoopsdata/prediction-service/internal/models"
)

// Sample is one training pair: averages of all prior games of a player and
// the normalized line of the game that followed.
type Sample struct {
	Features FeatureVector
	Target   [3]float64
}

// BuildSamples groups logs by player, orders them by date and emits one
// sample for every game after a player's first. Player names group
// case-insensitively. Shooting percentages come from made/attempted totals,
// falling back to league defaults.
func BuildSamples(logs []models.GameLogEntry) []Sample {
	byPlayer := make(map[string][]models.GameLogEntry)
	var players []string
	for _, g := range logs {
		key := strings.ToLower(strings.TrimSpace(g.PlayerName))
		if _, ok := byPlayer[key]; !ok {
			players = append(players, key)
		}
		byPlayer[key] = append(byPlayer[key], g)
	}
	sort.Strings(players)

	var samples []Sample
	for _, p := range players {
		games := byPlayer[p]
		sort.SliceStable(games, func(i, j int) bool { return games[i].GameDate.Before(games[j].GameDate) })
		for i := 1; i < len(games); i++ {
			samples = append(samples, Sample{
				Features: priorAverages(games[:i]),
				Target: [3]float64{
					games[i].Points / pointsScale,
					games[i].Assists / assistsScale,
					games[i].Rebounds / reboundsScale,
				},
			})
		}
	}
	return samples
}

func priorAverages(prev []models.GameLogEntry) FeatureVector {
	n := len(prev)
	col := func(f func(models.GameLogEntry) float64) []float64 {
		out := make([]float64, n)
		for i, g := range prev {
			out[i] = f(g)
		}
		return out
	}
	sum := func(xs []float64) float64 {
		var s float64
		for _, x := range xs {
			s += x
		}
		return s
	}

	fgPct, ftPct := models.DefaultFGPct, models.DefaultFTPct
	if fga := sum(col(func(g models.GameLogEntry) float64 { return g.FGA })); fga > 0 {
		fgPct = sum(col(func(g models.GameLogEntry) float64 { return g.FGM })) / fga
	}
	if fta := sum(col(func(g models.GameLogEntry) float64 { return g.FTA })); fta > 0 {
		ftPct = sum(col(func(g models.GameLogEntry) float64 { return g.FTM })) / fta
	}

	return ToFeatureVector(models.PlayerStats{
		PPG:              stat.Mean(col(func(g models.GameLogEntry) float64 { return g.Points }), nil),
		APG:              stat.Mean(col(func(g models.GameLogEntry) float64 { return g.Assists }), nil),
		RPG:              stat.Mean(col(func(g models.GameLogEntry) float64 { return g.Rebounds }), nil),
		FGPct:            fgPct,
		FTPct:            ftPct,
		GamesPlayed:      n,
		MinutesPerGame:   stat.Mean(col(func(g models.GameLogEntry) float64 { return g.Minutes }), nil),
		StealsPerGame:    stat.Mean(col(func(g models.GameLogEntry) float64 { return g.Steals }), nil),
		BlocksPerGame:    stat.Mean(col(func(g models.GameLogEntry) float64 { return g.Blocks }), nil),
		TurnoversPerGame: stat.Mean(col(func(g models.GameLogEntry) float64 { return g.Turnovers }), nil),
	})
}

// toMatrices packs samples into an input matrix and a target matrix.
func toMatrices(samples []Sample) (*mat.Dense, *mat.Dense) {
	x := mat.NewDense(len(samples), FeatureCount, nil)
	y := mat.NewDense(len(samples), 3, nil)
	for i, s := range samples {
		x.SetRow(i, s.Features[:])
		y.SetRow(i, s.Target[:])
	}
	return x, y
}
