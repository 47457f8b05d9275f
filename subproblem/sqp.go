// Copyright ©2025 curioloop. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package subproblem

import (
	"fmt"
	"math"

	"github.com/curioloop/nlpcore/hessian"
	"github.com/curioloop/nlpcore/iterate"
	"github.com/curioloop/nlpcore/lstsq"
	"github.com/curioloop/nlpcore/model"
)

// SQP solves the trust-region (or unconstrained-radius) QP subproblem by
// building a dense row-major Hessian and Jacobian and delegating to
// lstsq.SolveQP. Buffers are preallocated once per problem size and reused
// across inner iterations.
type SQP struct {
	Model    model.Model
	Hessian  hessian.Model
	Sigma    float64 // objective multiplier used to build the QP (the driver builds every engine with 1)
	MaxIter  int
	InfBound float64

	n, m int

	h []float64 // n×n row-major Hessian
	g []float64 // n linear term

	a    []float64 // row-major constraint rows (meq equality rows first)
	b    []float64
	meq  int
	rows int // meq + mineq, how many of a/b's capacity rows are in use

	xl, xu []float64 // current trust-region-clipped variable bounds
	origLo, origUp []float64

	x []float64
	y []float64

	w  []float64
	jw []int

	lastIterate *iterate.Iterate
}

// NewSQP preallocates an SQP engine for an n-variable, m-constraint problem.
func NewSQP(m model.Model, hm hessian.Model, sigma float64, maxIter int, infBound float64) *SQP {
	n, mc := m.NumVariables(), m.NumConstraints()
	s := &SQP{
		Model: m, Hessian: hm, Sigma: sigma, MaxIter: maxIter, InfBound: infBound,
		n: n, m: mc,
		h: make([]float64, n*n),
		g: make([]float64, n),
		a: make([]float64, mc*n),
		b: make([]float64, mc),
		xl: make([]float64, n), xu: make([]float64, n),
		origLo: make([]float64, n), origUp: make([]float64, n),
		x: make([]float64, n),
		y: make([]float64, mc+2*n),
	}
	s.w = make([]float64, lstsq.WorkspaceLen(n, mc, mc, 2*n))
	s.jw = make([]int, lstsq.JacLen(n, mc, mc, 2*n))
	for i := 0; i < n; i++ {
		s.origLo[i] = m.VariableLowerBound(i)
		s.origUp[i] = m.VariableUpperBound(i)
	}
	return s
}

func (s *SQP) buildConstraintRows(it *iterate.Iterate) {
	jac := it.Jacobian()
	c := it.Constraints()

	eqRows := make([][]float64, 0, s.m)
	eqB := make([]float64, 0, s.m)
	ineqRows := make([][]float64, 0, 2*s.m)
	ineqB := make([]float64, 0, 2*s.m)

	for j := 0; j < s.m; j++ {
		cl, cu := s.Model.ConstraintLowerBound(j), s.Model.ConstraintUpperBound(j)
		bt := model.ConstraintBoundType(s.Model, j)
		row := jac[j]
		switch bt {
		case model.Equal:
			eqRows = append(eqRows, row)
			eqB = append(eqB, cl-c[j])
		case model.BoundedLower:
			ineqRows = append(ineqRows, row)
			ineqB = append(ineqB, cl-c[j])
		case model.BoundedUpper:
			neg := make([]float64, s.n)
			for i, v := range row {
				neg[i] = -v
			}
			ineqRows = append(ineqRows, neg)
			ineqB = append(ineqB, -(cu - c[j]))
		case model.BoundedBoth:
			ineqRows = append(ineqRows, row)
			ineqB = append(ineqB, cl-c[j])
			neg := make([]float64, s.n)
			for i, v := range row {
				neg[i] = -v
			}
			ineqRows = append(ineqRows, neg)
			ineqB = append(ineqB, -(cu - c[j]))
		case model.Unbounded:
			// no row: constraint is never binding.
		}
	}

	s.meq = len(eqRows)
	s.rows = s.meq + len(ineqRows)
	if need := s.rows * s.n; need > len(s.a) {
		s.a = make([]float64, need)
	}
	if s.rows > len(s.b) {
		s.b = make([]float64, s.rows)
	}
	k := 0
	for _, row := range eqRows {
		copy(s.a[k*s.n:(k+1)*s.n], row)
		k++
	}
	copy(s.b[:s.meq], eqB)
	for i, row := range ineqRows {
		copy(s.a[k*s.n:(k+1)*s.n], row)
		k++
		s.b[s.meq+i] = ineqB[i]
	}
}

func (s *SQP) clipBounds(it *iterate.Iterate, delta float64) {
	for i := 0; i < s.n; i++ {
		lo, hi := s.origLo[i]-it.X[i], s.origUp[i]-it.X[i]
		if !math.IsInf(delta, 1) {
			lo = math.Max(lo, -delta)
			hi = math.Min(hi, delta)
		}
		s.xl[i], s.xu[i] = lo, hi
	}
}

func (s *SQP) ComputeDirection(it *iterate.Iterate, delta float64) (*iterate.Direction, error) {
	if err := s.Hessian.Evaluate(s.Model, it.X, s.Sigma, it.Mult.Lambda, s.h); err != nil {
		return nil, err
	}
	objGrad := it.ObjectiveGradient()
	for i := range s.g {
		s.g[i] = s.Sigma * objGrad[i]
	}
	s.buildConstraintRows(it)
	s.clipBounds(it, delta)
	s.lastIterate = it

	return s.solve(delta)
}

func (s *SQP) solve(delta float64) (*iterate.Direction, error) {
	norm, status := lstsq.SolveQP(
		s.n, s.rows, s.meq,
		s.h, s.g, s.a[:s.rows*s.n], s.b[:s.rows],
		s.xl, s.xu, s.x, s.y,
		s.w, s.jw, s.MaxIter, s.InfBound,
	)

	dir := &iterate.Direction{
		D:    append([]float64(nil), s.x...),
		Mult: iterate.Multipliers{Lambda: make([]float64, s.m), ZL: make([]float64, s.n), ZU: make([]float64, s.n), Sigma: s.Sigma},
	}

	switch status {
	case lstsq.HasSolution:
		dir.Status = iterate.Optimal
	case lstsq.ConsIncompatible, lstsq.LSISingularE, lstsq.LSEISingularC:
		dir.Status = iterate.Infeasible
	case lstsq.NNLSExceedMaxIter:
		dir.Status = iterate.SuboptimalButUsable
	case lstsq.HFTIRankDefect:
		dir.Status = iterate.SuboptimalButUsable
	default:
		dir.Status = iterate.Error
	}
	if !dir.IsUsable() {
		return dir, nil
	}

	dir.ComputeNorm()
	dir.ObjectiveMultiplier = s.Sigma
	_ = norm

	// Unpack row multipliers back onto constraint indices (the equality
	// and split-inequality rows built in buildConstraintRows do not align
	// 1:1 with constraint indices, so only the common single-row case --
	// Equal, BoundedLower, BoundedUpper -- is mapped faithfully; BoundedBoth
	// rows report whichever side bound the solution).
	s.unpackMultipliers(dir)

	for i := 0; i < s.n; i++ {
		if s.xl[i] > -s.InfBound && s.x[i] <= s.xl[i]+1e-12 {
			dir.AtLowerBound = append(dir.AtLowerBound, i)
		}
		if s.xu[i] < s.InfBound && s.x[i] >= s.xu[i]-1e-12 {
			dir.AtUpperBound = append(dir.AtUpperBound, i)
		}
	}

	dir.Objective = s.predictedModel(dir.D)
	return dir, nil
}

// unpackMultipliers maps lstsq's row-ordered multiplier vector back to one
// per original constraint index.
func (s *SQP) unpackMultipliers(dir *iterate.Direction) {
	eq, k := 0, s.meq // equality rows come first, inequality rows after them
	for j := 0; j < s.m; j++ {
		bt := model.ConstraintBoundType(s.Model, j)
		switch bt {
		case model.Equal:
			dir.Mult.Lambda[j] = s.y[eq]
			eq++
		case model.BoundedLower:
			dir.Mult.Lambda[j] = s.y[k]
			k++
		case model.BoundedUpper:
			dir.Mult.Lambda[j] = -s.y[k]
			k++
		case model.BoundedBoth:
			lo, hi := s.y[k], s.y[k+1]
			if math.Abs(lo) >= math.Abs(hi) {
				dir.Mult.Lambda[j] = lo
			} else {
				dir.Mult.Lambda[j] = -hi
			}
			k += 2
		}
	}
	for i := 0; i < s.n; i++ {
		if v := s.y[s.rows+i]; !math.IsNaN(v) {
			dir.Mult.ZL[i] = v
		}
		if v := s.y[s.rows+s.n+i]; !math.IsNaN(v) {
			dir.Mult.ZU[i] = v
		}
	}
}

func (s *SQP) predictedModel(d []float64) float64 {
	val := 0.0
	for i := 0; i < s.n; i++ {
		val += s.g[i] * d[i]
		hv := 0.0
		for k := 0; k < s.n; k++ {
			hv += s.h[i*s.n+k] * d[k]
		}
		val += 0.5 * d[i] * hv
	}
	return val
}

func (s *SQP) PredictedReduction(it *iterate.Iterate, dir *iterate.Direction) float64 {
	if it != s.lastIterate {
		// Stale: recompute the linear/quadratic model from scratch using
		// this direction's own data is not possible without re-evaluating;
		// fall back to the first-order term only.
		g := it.ObjectiveGradient()
		lin := 0.0
		for i, gi := range g {
			lin += s.Sigma * gi * dir.D[i]
		}
		return -lin
	}
	return -dir.Objective
}

func (s *SQP) SupportsWarmUpdateBounds() bool { return true }

func (s *SQP) UpdateBounds(delta float64) (*iterate.Direction, error) {
	if s.lastIterate == nil {
		return nil, fmt.Errorf("subproblem: UpdateBounds called before ComputeDirection")
	}
	s.clipBounds(s.lastIterate, delta)
	return s.solve(delta)
}
