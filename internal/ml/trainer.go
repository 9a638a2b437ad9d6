package ml

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/rand"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
)

// MinSamples is the smallest dataset the trainer accepts.
const MinSamples = 50

var ErrTooFewSamples = errors.New("not enough training samples")

type TrainConfig struct {
	Epochs          int
	BatchSize       int
	LearningRate    float64
	ValidationSplit float64
	Seed            int64
}

func (c *TrainConfig) setDefaults() {
	if c.Epochs <= 0 {
		c.Epochs = 50
	}
	if c.BatchSize <= 0 {
		c.BatchSize = 32
	}
	if c.LearningRate <= 0 {
		c.LearningRate = 0.001
	}
	if c.ValidationSplit <= 0 || c.ValidationSplit >= 1 {
		c.ValidationSplit = 0.2
	}
}

type EpochResult struct {
	Epoch     int
	TrainLoss float64
	ValLoss   float64
}

type TrainResult struct {
	History        []EpochResult
	FinalTrainLoss float64
	BestValLoss    float64
	Best           *Network
}

// ImproveFunc receives a frozen copy of the network each time validation
// loss reaches a new best.
type ImproveFunc func(epoch int, valLoss float64, n *Network) error

// Trainer fits a network with mini-batch Adam on mean squared error.
type Trainer struct {
	cfg TrainConfig
}

func NewTrainer(cfg TrainConfig) *Trainer {
	cfg.setDefaults()
	return &Trainer{cfg: cfg}
}

func (t *Trainer) Config() TrainConfig { return t.cfg }

// Train fits a clone of base; base itself is never modified. Samples are
// shuffled and split into training and validation sets.
func (t *Trainer) Train(ctx context.Context, base *Network, samples []Sample, onImprove ImproveFunc) (*TrainResult, error) {
	if len(samples) < MinSamples {
		return nil, fmt.Errorf("%w: have %d, need %d", ErrTooFewSamples, len(samples), MinSamples)
	}

	rng := rand.New(rand.NewSource(t.cfg.Seed))
	shuffled := append([]Sample(nil), samples...)
	rng.Shuffle(len(shuffled), func(i, j int) { shuffled[i], shuffled[j] = shuffled[j], shuffled[i] })

	valCount := int(float64(len(shuffled)) * t.cfg.ValidationSplit)
	if valCount < 1 {
		valCount = 1
	}
	train, val := shuffled[valCount:], shuffled[:valCount]
	valX, valY := toMatrices(val)

	net := base.Clone()
	opt := newAdam(net, t.cfg.LearningRate)
	res := &TrainResult{BestValLoss: math.Inf(1)}

	for epoch := 1; epoch <= t.cfg.Epochs; epoch++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		rng.Shuffle(len(train), func(i, j int) { train[i], train[j] = train[j], train[i] })

		var losses, weights []float64
		for start := 0; start < len(train); start += t.cfg.BatchSize {
			end := min(start+t.cfg.BatchSize, len(train))
			x, y := toMatrices(train[start:end])
			fc := net.forwardBatch(x, rng)
			loss, grads := net.gradients(fc, y)
			opt.step(net, grads)
			losses = append(losses, loss)
			weights = append(weights, float64(end-start))
		}

		trainLoss := stat.Mean(losses, weights)
		valLoss := net.Loss(valX, valY)
		res.History = append(res.History, EpochResult{Epoch: epoch, TrainLoss: trainLoss, ValLoss: valLoss})
		res.FinalTrainLoss = trainLoss

		if valLoss < res.BestValLoss {
			res.BestValLoss = valLoss
			res.Best = net.Clone()
			if onImprove != nil {
				if err := onImprove(epoch, valLoss, res.Best); err != nil {
					return nil, err
				}
			}
		}
	}
	return res, nil
}

// adam holds first and second moment estimates per parameter.
type adam struct {
	lr, beta1, beta2, eps float64
	t                     int
	m, v                  []layer
}

func newAdam(n *Network, lr float64) *adam {
	a := &adam{lr: lr, beta1: 0.9, beta2: 0.999, eps: 1e-8}
	for _, l := range n.layers {
		wr, wc := l.W.Dims()
		_, bc := l.B.Dims()
		a.m = append(a.m, layer{W: mat.NewDense(wr, wc, nil), B: mat.NewDense(1, bc, nil)})
		a.v = append(a.v, layer{W: mat.NewDense(wr, wc, nil), B: mat.NewDense(1, bc, nil)})
	}
	return a
}

func (a *adam) step(n *Network, grads []layer) {
	a.t++
	c1 := 1 - math.Pow(a.beta1, float64(a.t))
	c2 := 1 - math.Pow(a.beta2, float64(a.t))
	for i := range n.layers {
		a.update(n.layers[i].W, grads[i].W, a.m[i].W, a.v[i].W, c1, c2)
		a.update(n.layers[i].B, grads[i].B, a.m[i].B, a.v[i].B, c1, c2)
	}
}

func (a *adam) update(p, g, m, v *mat.Dense, c1, c2 float64) {
	r, c := p.Dims()
	for i := 0; i < r; i++ {
		for j := 0; j < c; j++ {
			gij := g.At(i, j)
			mij := a.beta1*m.At(i, j) + (1-a.beta1)*gij
			vij := a.beta2*v.At(i, j) + (1-a.beta2)*gij*gij
			m.Set(i, j, mij)
			v.Set(i, j, vij)
			p.Set(i, j, p.At(i, j)-a.lr*(mij/c1)/(math.Sqrt(vij/c2)+a.eps))
		}
	}
}
