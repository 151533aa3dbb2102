package fusion

import (
	"fmt"

	"gonum.org/v1/gonum/mat"
)

const (
	DefaultProcessNoise     = 1e-11
	DefaultMeasurementNoise = 1e-5
)

// Filter is a 2-state linear filter over (lat, lon).
type Filter interface {
	// Update runs one predict/correct step with measurement z.
	Update(z [2]float64) error
	Estimate() [2]float64
	Covariance() [2][2]float64
}

// Kalman is a linear Kalman filter with identity transition and observation
// matrices and no control input.
type Kalman struct {
	a *mat.Dense
	h *mat.Dense
	q *mat.Dense
	r *mat.Dense
	x *mat.VecDense
	p *mat.Dense
}

// NewKalman creates a filter at (0,0) with unit covariance. q and r scale the
// identity process and measurement noise covariances.
func NewKalman(q, r float64) *Kalman {
	return &Kalman{
		a: identity(1),
		h: identity(1),
		q: identity(q),
		r: identity(r),
		x: mat.NewVecDense(2, nil),
		p: identity(1),
	}
}

func identity(scale float64) *mat.Dense {
	return mat.NewDense(2, 2, []float64{scale, 0, 0, scale})
}

func (k *Kalman) Update(z [2]float64) error {
	// predict
	var x mat.VecDense
	x.MulVec(k.a, k.x)
	var p mat.Dense
	p.Product(k.a, k.p, k.a.T())
	p.Add(&p, k.q)

	// correct
	var s mat.Dense
	s.Product(k.h, &p, k.h.T())
	s.Add(&s, k.r)
	var sInv mat.Dense
	if err := sInv.Inverse(&s); err != nil {
		return fmt.Errorf("innovation covariance: %w", err)
	}
	var gain mat.Dense
	gain.Product(&p, k.h.T(), &sInv)

	var y mat.VecDense
	y.MulVec(k.h, &x)
	y.SubVec(mat.NewVecDense(2, []float64{z[0], z[1]}), &y)
	var dx mat.VecDense
	dx.MulVec(&gain, &y)
	x.AddVec(&x, &dx)

	var kh mat.Dense
	kh.Mul(&gain, k.h)
	var ikh mat.Dense
	ikh.Sub(identity(1), &kh)
	var pNext mat.Dense
	pNext.Mul(&ikh, &p)

	k.x = &x
	k.p = &pNext
	return nil
}

func (k *Kalman) Estimate() [2]float64 {
	return [2]float64{k.x.AtVec(0), k.x.AtVec(1)}
}

func (k *Kalman) Covariance() [2][2]float64 {
	return [2][2]float64{
		{k.p.At(0, 0), k.p.At(0, 1)},
		{k.p.At(1, 0), k.p.At(1, 1)},
	}
}
