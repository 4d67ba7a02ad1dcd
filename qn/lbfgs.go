package qn

import (
	"gonum.org/v1/gonum/floats"
)

// lbfgs keeps the last m correction pairs and applies the two-loop
// recursion to approximate the inverse Hessian.
type lbfgs struct {
	n     int // number of variables
	m     int // memory size
	s     [][]float64
	y     [][]float64
	rho   []float64
	alpha []float64
	ds    []float64 // scratch pair, swapped in on accept
	dy    []float64
	k     int
	size  int
}

func newLBFGS(n, m int) *lbfgs {
	l := &lbfgs{
		n:     n,
		m:     m,
		s:     make([][]float64, m),
		y:     make([][]float64, m),
		rho:   make([]float64, m),
		alpha: make([]float64, m),
		ds:    make([]float64, n),
		dy:    make([]float64, n),
	}
	for i := 0; i < m; i++ {
		l.s[i] = make([]float64, n)
		l.y[i] = make([]float64, n)
	}
	return l
}

// update stores s = x_{k+1}-x_k and y = g_{k+1}-g_k. Pairs with
// non-positive curvature are skipped.
func (l *lbfgs) update(xNext, xCurr, gNext, gCurr []float64) {
	floats.SubTo(l.ds, xNext, xCurr)
	floats.SubTo(l.dy, gNext, gCurr)
	sy := floats.Dot(l.ds, l.dy)
	if sy <= 0 {
		return
	}
	idx := l.k % l.m
	l.s[idx], l.ds = l.ds, l.s[idx]
	l.y[idx], l.dy = l.dy, l.y[idx]
	l.rho[idx] = 1.0 / sy
	l.k++
	if l.size < l.m {
		l.size++
	}
}

// direction writes -H·g into dir.
func (l *lbfgs) direction(dir, g []float64) {
	copy(dir, g)

	if l.size > 0 {
		// First loop, newest to oldest.
		for i := l.size - 1; i >= 0; i-- {
			idx := (l.k - l.size + i) % l.m
			l.alpha[i] = l.rho[idx] * floats.Dot(l.s[idx], dir)
			floats.AddScaled(dir, -l.alpha[i], l.y[idx])
		}

		// Scale by H_0 = (s_k^T y_k) / (y_k^T y_k)
		latest := (l.k - 1) % l.m
		if yy := floats.Dot(l.y[latest], l.y[latest]); yy > 0 {
			floats.Scale(floats.Dot(l.s[latest], l.y[latest])/yy, dir)
		}

		// Second loop, oldest to newest.
		for i := 0; i < l.size; i++ {
			idx := (l.k - l.size + i) % l.m
			beta := l.rho[idx] * floats.Dot(l.y[idx], dir)
			floats.AddScaled(dir, l.alpha[i]-beta, l.s[idx])
		}
	}

	floats.Scale(-1, dir)
}
