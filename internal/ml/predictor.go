package ml

import (
	"math"

	"github.com/hoopsdata/prediction-service/internal/models"
)

// Output denormalization and venue factors.
const (
	pointsScale   = 30.0
	assistsScale  = 10.0
	reboundsScale = 12.0

	homeFactor = 1.05
	awayFactor = 0.95

	minConfidence = 0.70
	maxConfidence = 0.95
)

// Prediction is a scored box-score line.
type Prediction struct {
	Points     float64
	Assists    float64
	Rebounds   float64
	Confidence float64
}

// Predictor scores feature vectors with the registry's current model.
type Predictor struct {
	registry *Registry
}

func NewPredictor(r *Registry) *Predictor {
	return &Predictor{registry: r}
}

func (p *Predictor) Predict(stats models.PlayerStats, homeGame bool) Prediction {
	return p.Score(ToFeatureVector(stats), homeGame)
}

// Score applies the current model. Negative raw outputs are floored at zero.
func (p *Predictor) Score(x FeatureVector, homeGame bool) Prediction {
	raw := p.registry.Current().Forward(x)

	factor := awayFactor
	if homeGame {
		factor = homeFactor
	}
	return Prediction{
		Points:     math.Max(0, raw[0]) * pointsScale * factor,
		Assists:    math.Max(0, raw[1]) * assistsScale * factor,
		Rebounds:   math.Max(0, raw[2]) * reboundsScale * factor,
		Confidence: Confidence(x),
	}
}

// Confidence grows with the games played encoded in x, from 0.70 at zero
// games to a cap of 0.95.
func Confidence(x FeatureVector) float64 {
	c := minConfidence + x[gamesPlayedFeature]*0.25
	return math.Max(minConfidence, math.Min(maxConfidence, c))
}
