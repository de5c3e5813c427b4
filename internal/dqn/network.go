// Package dqn implements a deep Q-network learner for the flappy environment:
// a small multilayer perceptron on gonum matrices, the Adam optimizer, an
// epsilon-greedy agent with a target network and the training loop.
package dqn

import (
	"errors"
	"fmt"
	"math"
	"math/rand"

	"gonum.org/v1/gonum/mat"

	"github.com/vovakirdan/flappy-rl/internal/games/flappy"
)

// ErrShapeMismatch is returned when two networks or a batch do not agree on
// layer sizes.
var ErrShapeMismatch = errors.New("dqn: shape mismatch")

// layer is a fully connected layer. Weights are out x in, the bias is a
// 1 x out row so batches broadcast over it.
type layer struct {
	w *mat.Dense
	b *mat.Dense
}

// Network is a multilayer perceptron with ReLU hidden activations and a
// linear output layer.
type Network struct {
	sizes  []int
	layers []layer
}

// forwardCache keeps the per-layer values backprop needs.
type forwardCache struct {
	inputs []*mat.Dense // Activation fed into each layer
	pre    []*mat.Dense // Pre-activation output of each layer
}

// NewNetwork creates a network with the given layer sizes, input first.
// Weights use He-uniform initialization drawn from rng; biases start at zero.
func NewNetwork(sizes []int, rng *rand.Rand) (*Network, error) {
	if len(sizes) < 2 {
		return nil, fmt.Errorf("%w: need at least input and output sizes", ErrShapeMismatch)
	}
	for _, s := range sizes {
		if s <= 0 {
			return nil, fmt.Errorf("%w: layer size %d", ErrShapeMismatch, s)
		}
	}

	n := &Network{sizes: append([]int(nil), sizes...)}
	for i := 0; i < len(sizes)-1; i++ {
		in, out := sizes[i], sizes[i+1]
		limit := math.Sqrt(6 / float64(in))

		data := make([]float64, out*in)
		for j := range data {
			data[j] = (rng.Float64()*2 - 1) * limit
		}
		n.layers = append(n.layers, layer{
			w: mat.NewDense(out, in, data),
			b: mat.NewDense(1, out, nil),
		})
	}
	return n, nil
}

// NewQNetwork creates the observation -> hidden -> hidden -> action values
// network used by the agent.
func NewQNetwork(hidden int, rng *rand.Rand) (*Network, error) {
	return NewNetwork([]int{flappy.ObservationSize, hidden, hidden, flappy.NumActions}, rng)
}

// Sizes returns the layer sizes, input first.
func (n *Network) Sizes() []int {
	return append([]int(nil), n.sizes...)
}

// Forward evaluates the network on a single input vector.
func (n *Network) Forward(x []float64) []float64 {
	in := mat.NewDense(1, len(x), append([]float64(nil), x...))
	out, _ := n.forward(in)
	return mat.Row(nil, 0, out)
}

// ForwardBatch evaluates the network on every row of x.
func (n *Network) ForwardBatch(x *mat.Dense) *mat.Dense {
	out, _ := n.forward(x)
	return out
}

func (n *Network) forward(x *mat.Dense) (*mat.Dense, forwardCache) {
	cache := forwardCache{
		inputs: make([]*mat.Dense, len(n.layers)),
		pre:    make([]*mat.Dense, len(n.layers)),
	}

	a := x
	for i, l := range n.layers {
		cache.inputs[i] = a

		z := &mat.Dense{}
		z.Mul(a, l.w.T())
		z.Apply(func(_, c int, v float64) float64 {
			return v + l.b.At(0, c)
		}, z)
		cache.pre[i] = z

		if i == len(n.layers)-1 {
			a = z
			break
		}
		act := &mat.Dense{}
		act.Apply(func(_, _ int, v float64) float64 {
			return math.Max(0, v)
		}, z)
		a = act
	}
	return a, cache
}

// backward propagates dOut, the loss gradient with respect to the network
// output, and returns gradients in params order.
func (n *Network) backward(cache forwardCache, dOut *mat.Dense) []*mat.Dense {
	grads := make([]*mat.Dense, 2*len(n.layers))

	delta := dOut
	for i := len(n.layers) - 1; i >= 0; i-- {
		gw := &mat.Dense{}
		gw.Mul(delta.T(), cache.inputs[i])

		_, cols := delta.Dims()
		gb := mat.NewDense(1, cols, nil)
		for c := 0; c < cols; c++ {
			gb.Set(0, c, mat.Sum(delta.ColView(c)))
		}
		grads[2*i], grads[2*i+1] = gw, gb

		if i == 0 {
			break
		}
		prev := cache.pre[i-1]
		da := &mat.Dense{}
		da.Mul(delta, n.layers[i].w)
		da.Apply(func(r, c int, v float64) float64 {
			if prev.At(r, c) <= 0 {
				return 0
			}
			return v
		}, da)
		delta = da
	}
	return grads
}

// params returns the trainable matrices: weights and bias of each layer.
func (n *Network) params() []*mat.Dense {
	ps := make([]*mat.Dense, 0, 2*len(n.layers))
	for _, l := range n.layers {
		ps = append(ps, l.w, l.b)
	}
	return ps
}

// CopyFrom overwrites every parameter with an exact copy of src's.
func (n *Network) CopyFrom(src *Network) error {
	if !sameSizes(n.sizes, src.sizes) {
		return fmt.Errorf("%w: %v vs %v", ErrShapeMismatch, n.sizes, src.sizes)
	}
	for i := range n.layers {
		n.layers[i].w.Copy(src.layers[i].w)
		n.layers[i].b.Copy(src.layers[i].b)
	}
	return nil
}

// Clone returns an independent copy of the network.
func (n *Network) Clone() *Network {
	c := &Network{sizes: append([]int(nil), n.sizes...)}
	for _, l := range n.layers {
		c.layers = append(c.layers, layer{
			w: mat.DenseCopyOf(l.w),
			b: mat.DenseCopyOf(l.b),
		})
	}
	return c
}

func sameSizes(a, b []int) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
