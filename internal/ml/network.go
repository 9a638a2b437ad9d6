package ml

import (
	"fmt"
	"math"
	"math/rand"

	"gonum.org/v1/gonum/mat"
)

// Layer sizes of the performance network.
var layerSizes = []int{FeatureCount, 64, 32, 3}

// DropoutRate applies to both hidden layers while training.
const DropoutRate = 0.3

type layer struct {
	W *mat.Dense // in × out
	B *mat.Dense // 1 × out
}

// Network is a feed-forward regressor: two ReLU hidden layers and a linear
// output. A Network reachable from a Registry is never mutated.
type Network struct {
	layers []layer
}

// NewNetwork builds a network with He-initialized weights drawn from seed.
// The same seed always yields the same weights.
func NewNetwork(seed int64) *Network {
	rng := rand.New(rand.NewSource(seed))
	n := &Network{}
	for i := 0; i < len(layerSizes)-1; i++ {
		in, out := layerSizes[i], layerSizes[i+1]
		std := math.Sqrt(2.0 / float64(in))
		w := make([]float64, in*out)
		for j := range w {
			w[j] = rng.NormFloat64() * std
		}
		n.layers = append(n.layers, layer{
			W: mat.NewDense(in, out, w),
			B: mat.NewDense(1, out, nil),
		})
	}
	return n
}

// Clone returns a deep copy that can be trained without touching n.
func (n *Network) Clone() *Network {
	c := &Network{layers: make([]layer, len(n.layers))}
	for i, l := range n.layers {
		c.layers[i] = layer{W: mat.DenseCopyOf(l.W), B: mat.DenseCopyOf(l.B)}
	}
	return c
}

// Forward evaluates the network on one input in inference mode.
func (n *Network) Forward(x FeatureVector) [3]float64 {
	in := mat.NewDense(1, FeatureCount, x[:])
	out := n.forwardBatch(in, nil).out
	return [3]float64{out.At(0, 0), out.At(0, 1), out.At(0, 2)}
}

// forwardCache keeps the intermediate activations needed for backprop.
type forwardCache struct {
	inputs []*mat.Dense // input of each layer
	pre    []*mat.Dense // pre-activation of each hidden layer
	masks  []*mat.Dense // scaled dropout masks, nil in inference
	out    *mat.Dense
}

// forwardBatch runs X (n × FeatureCount) through the network. A non-nil rng
// enables dropout.
func (n *Network) forwardBatch(x *mat.Dense, rng *rand.Rand) forwardCache {
	var fc forwardCache
	a := x
	last := len(n.layers) - 1
	for i, l := range n.layers {
		fc.inputs = append(fc.inputs, a)
		rows, _ := a.Dims()
		_, cols := l.W.Dims()

		z := mat.NewDense(rows, cols, nil)
		z.Mul(a, l.W)
		z.Apply(func(_, j int, v float64) float64 { return v + l.B.At(0, j) }, z)
		if i == last {
			fc.out = z
			break
		}
		fc.pre = append(fc.pre, z)

		act := mat.NewDense(rows, cols, nil)
		act.Apply(func(_, _ int, v float64) float64 { return math.Max(0, v) }, z)

		var mask *mat.Dense
		if rng != nil {
			keep := 1 - DropoutRate
			mask = mat.NewDense(rows, cols, nil)
			mask.Apply(func(_, _ int, _ float64) float64 {
				if rng.Float64() < DropoutRate {
					return 0
				}
				return 1 / keep
			}, mask)
			act.MulElem(act, mask)
		}
		fc.masks = append(fc.masks, mask)
		a = act
	}
	return fc
}

// gradients computes the MSE loss of a batch and its parameter gradients.
func (n *Network) gradients(fc forwardCache, target *mat.Dense) (float64, []layer) {
	rows, cols := fc.out.Dims()
	count := float64(rows * cols)

	delta := mat.NewDense(rows, cols, nil)
	delta.Sub(fc.out, target)
	loss := mat.Norm(delta, 2)
	loss = loss * loss / count
	delta.Scale(2/count, delta)

	grads := make([]layer, len(n.layers))
	for i := len(n.layers) - 1; i >= 0; i-- {
		in := fc.inputs[i]
		_, inCols := in.Dims()
		_, outCols := delta.Dims()

		gw := mat.NewDense(inCols, outCols, nil)
		gw.Mul(in.T(), delta)
		gb := mat.NewDense(1, outCols, nil)
		for j := 0; j < outCols; j++ {
			gb.Set(0, j, mat.Sum(delta.ColView(j)))
		}
		grads[i] = layer{W: gw, B: gb}

		if i == 0 {
			break
		}
		prev := mat.NewDense(rows, inCols, nil)
		prev.Mul(delta, n.layers[i].W.T())
		pre := fc.pre[i-1]
		mask := fc.masks[i-1]
		prev.Apply(func(r, c int, v float64) float64 {
			if pre.At(r, c) <= 0 {
				return 0
			}
			if mask != nil {
				return v * mask.At(r, c)
			}
			return v
		}, prev)
		delta = prev
	}
	return loss, grads
}

// Loss is the mean squared error of the network over a dataset in inference
// mode.
func (n *Network) Loss(x, y *mat.Dense) float64 {
	fc := n.forwardBatch(x, nil)
	rows, cols := y.Dims()
	diff := mat.NewDense(rows, cols, nil)
	diff.Sub(fc.out, y)
	norm := mat.Norm(diff, 2)
	return norm * norm / float64(rows*cols)
}

// LayerWeights is the serialized form of one layer.
type LayerWeights struct {
	Rows    int       `json:"rows"`
	Cols    int       `json:"cols"`
	Weights []float64 `json:"weights"`
	Bias    []float64 `json:"bias"`
}

func (n *Network) export() []LayerWeights {
	out := make([]LayerWeights, len(n.layers))
	for i, l := range n.layers {
		r, c := l.W.Dims()
		out[i] = LayerWeights{
			Rows:    r,
			Cols:    c,
			Weights: append([]float64(nil), mat.DenseCopyOf(l.W).RawMatrix().Data...),
			Bias:    append([]float64(nil), mat.DenseCopyOf(l.B).RawMatrix().Data...),
		}
	}
	return out
}

func networkFromWeights(lw []LayerWeights) (*Network, error) {
	if len(lw) != len(layerSizes)-1 {
		return nil, fmt.Errorf("expected %d layers, got %d", len(layerSizes)-1, len(lw))
	}
	n := &Network{}
	for i, l := range lw {
		if l.Rows != layerSizes[i] || l.Cols != layerSizes[i+1] {
			return nil, fmt.Errorf("layer %d: shape %dx%d, want %dx%d", i, l.Rows, l.Cols, layerSizes[i], layerSizes[i+1])
		}
		if len(l.Weights) != l.Rows*l.Cols || len(l.Bias) != l.Cols {
			return nil, fmt.Errorf("layer %d: weight count mismatch", i)
		}
		n.layers = append(n.layers, layer{
			W: mat.NewDense(l.Rows, l.Cols, append([]float64(nil), l.Weights...)),
			B: mat.NewDense(1, l.Cols, append([]float64(nil), l.Bias...)),
		})
	}
	return n, nil
}
