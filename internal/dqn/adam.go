package dqn

import (
	"math"

	"gonum.org/v1/gonum/mat"
)

// Adam is the Adam optimizer with bias-corrected moment estimates.
// Moments are allocated lazily on the first Update.
type Adam struct {
	LearningRate float64
	Beta1        float64
	Beta2        float64
	Epsilon      float64

	t    int
	m, v []*mat.Dense
}

// NewAdam returns an optimizer with the usual defaults for the moment decay
// rates.
func NewAdam(learningRate float64) *Adam {
	return &Adam{
		LearningRate: learningRate,
		Beta1:        0.9,
		Beta2:        0.999,
		Epsilon:      1e-8,
	}
}

// Update applies one optimization step to params in place. grads must be in
// the same order and shape as params.
func (a *Adam) Update(params, grads []*mat.Dense) {
	if a.m == nil {
		a.m = make([]*mat.Dense, len(params))
		a.v = make([]*mat.Dense, len(params))
		for i, p := range params {
			r, c := p.Dims()
			a.m[i] = mat.NewDense(r, c, nil)
			a.v[i] = mat.NewDense(r, c, nil)
		}
	}

	a.t++
	c1 := 1 - math.Pow(a.Beta1, float64(a.t))
	c2 := 1 - math.Pow(a.Beta2, float64(a.t))

	for i, p := range params {
		g := grads[i]
		m, v := a.m[i], a.v[i]

		gs := &mat.Dense{}
		gs.Scale(1-a.Beta1, g)
		m.Scale(a.Beta1, m)
		m.Add(m, gs)

		sq := &mat.Dense{}
		sq.MulElem(g, g)
		sq.Scale(1-a.Beta2, sq)
		v.Scale(a.Beta2, v)
		v.Add(v, sq)

		p.Apply(func(r, c int, w float64) float64 {
			mh := m.At(r, c) / c1
			vh := v.At(r, c) / c2
			return w - a.LearningRate*mh/(math.Sqrt(vh)+a.Epsilon)
		}, p)
	}
}

// Steps returns the number of updates applied so far.
func (a *Adam) Steps() int {
	return a.t
}
