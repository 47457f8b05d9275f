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

// Sl1QP is the ℓ1-penalty elastic QP engine: one (p_j, n_j) ≥ 0 pair per
// constraint is appended
// to the step variables so the QP is always feasible, each penalized
// linearly at weight Rho in the objective — the linearized analogue of
// reform.ElasticRelaxation applied directly inside the QP rather than at
// the model level, which is the shape the original solver's own augmented
// QP relaxation uses (generalized here from one scalar slack to a pair per
// constraint).
type Sl1QP struct {
	Model    model.Model
	Hessian  hessian.Model
	Sigma    float64
	Rho      float64
	MaxIter  int
	InfBound float64

	n, m int
	nd   int // n + 2*m, total QP variables including elastic pair per constraint

	h []float64
	g []float64

	a   []float64
	b   []float64
	meq int
	rows int

	xl, xu []float64
	origLo, origUp []float64

	x []float64
	y []float64

	w  []float64
	jw []int

	lastIterate *iterate.Iterate
}

func NewSl1QP(m model.Model, hm hessian.Model, sigma, rho float64, maxIter int, infBound float64) *Sl1QP {
	n, mc := m.NumVariables(), m.NumConstraints()
	nd := n + 2*mc
	s := &Sl1QP{
		Model: m, Hessian: hm, Sigma: sigma, Rho: rho, MaxIter: maxIter, InfBound: infBound,
		n: n, m: mc, nd: nd,
		h: make([]float64, nd*nd),
		g: make([]float64, nd),
		a: make([]float64, mc*nd),
		b: make([]float64, mc),
		xl: make([]float64, nd), xu: make([]float64, nd),
		origLo: make([]float64, n), origUp: make([]float64, n),
		x: make([]float64, nd),
		y: make([]float64, mc+2*nd),
	}
	s.w = make([]float64, lstsq.WorkspaceLen(nd, mc, mc, 2*nd))
	s.jw = make([]int, lstsq.JacLen(nd, mc, mc, 2*nd))
	for i := 0; i < n; i++ {
		s.origLo[i] = m.VariableLowerBound(i)
		s.origUp[i] = m.VariableUpperBound(i)
	}
	return s
}

// p/nIdx return the elastic-pair column indices for constraint j within the
// nd-wide QP variable vector: original n columns, then one (p_j,n_j) pair
// per constraint in index order.
func (s *Sl1QP) pIdx(j int) int { return s.n + 2*j }
func (s *Sl1QP) nIdx(j int) int { return s.n + 2*j + 1 }

func (s *Sl1QP) ComputeDirection(it *iterate.Iterate, delta float64) (*iterate.Direction, error) {
	for i := range s.h {
		s.h[i] = 0
	}
	hdense := make([]float64, s.n*s.n)
	if err := s.Hessian.Evaluate(s.Model, it.X, s.Sigma, it.Mult.Lambda, hdense); err != nil {
		return nil, err
	}
	for i := 0; i < s.n; i++ {
		copy(s.h[i*s.nd:i*s.nd+s.n], hdense[i*s.n:(i+1)*s.n])
	}

	for i := range s.g {
		s.g[i] = 0
	}
	objGrad := it.ObjectiveGradient()
	for i := 0; i < s.n; i++ {
		s.g[i] = s.Sigma * objGrad[i]
	}
	for j := 0; j < s.m; j++ {
		s.g[s.pIdx(j)] = s.Rho
		s.g[s.nIdx(j)] = s.Rho
	}

	jac := it.Jacobian()
	c := it.Constraints()
	for i := range s.a[:s.m*s.nd] {
		s.a[i] = 0
	}
	for j := 0; j < s.m; j++ {
		row := s.a[j*s.nd : (j+1)*s.nd]
		copy(row[:s.n], jac[j])
		row[s.pIdx(j)] = -1
		row[s.nIdx(j)] = 1
	}
	s.meq = 0
	s.rows = s.m
	for j := 0; j < s.m; j++ {
		cl, cu := s.Model.ConstraintLowerBound(j), s.Model.ConstraintUpperBound(j)
		_ = cu
		// Each row reads Jⱼd - p_j + n_j against c_L - c(x): an equality row
		// for Equal constraints, a ≥ row for every other kind. c_U does not
		// enter the QP, so no row models the upper side of a BoundedUpper or
		// BoundedBoth constraint.
		s.b[j] = cl - c[j]
	}
	bt := make([]model.BoundType, s.m)
	for j := range bt {
		bt[j] = model.ConstraintBoundType(s.Model, j)
	}
	// Equality constraints keep an exact equality row (elastics absorb
	// numerical infeasibility only); reorder so equality rows come first.
	eqIdx, ineqIdx := make([]int, 0, s.m), make([]int, 0, s.m)
	for j, t := range bt {
		if t == model.Equal {
			eqIdx = append(eqIdx, j)
		} else {
			ineqIdx = append(ineqIdx, j)
		}
	}
	order := append(eqIdx, ineqIdx...)
	aCopy := append([]float64(nil), s.a[:s.m*s.nd]...)
	bCopy := append([]float64(nil), s.b[:s.m]...)
	for k, j := range order {
		copy(s.a[k*s.nd:(k+1)*s.nd], aCopy[j*s.nd:(j+1)*s.nd])
		s.b[k] = bCopy[j]
	}
	s.meq = len(eqIdx)

	for i := 0; i < s.n; i++ {
		lo, hi := s.origLo[i]-it.X[i], s.origUp[i]-it.X[i]
		if !math.IsInf(delta, 1) {
			lo = math.Max(lo, -delta)
			hi = math.Min(hi, delta)
		}
		s.xl[i], s.xu[i] = lo, hi
	}
	for j := 0; j < s.m; j++ {
		s.xl[s.pIdx(j)], s.xu[s.pIdx(j)] = 0, s.InfBound
		s.xl[s.nIdx(j)], s.xu[s.nIdx(j)] = 0, s.InfBound
	}

	s.lastIterate = it
	return s.solve()
}

func (s *Sl1QP) solve() (*iterate.Direction, error) {
	_, status := lstsq.SolveQP(
		s.nd, s.rows, s.meq,
		s.h, s.g, s.a[:s.rows*s.nd], s.b[:s.rows],
		s.xl, s.xu, s.x, s.y,
		s.w, s.jw, s.MaxIter, s.InfBound,
	)

	dir := &iterate.Direction{
		D:    append([]float64(nil), s.x[:s.n]...),
		Mult: iterate.Multipliers{Lambda: make([]float64, s.m), ZL: make([]float64, s.n), ZU: make([]float64, s.n), Sigma: s.Sigma},
	}
	switch status {
	case lstsq.HasSolution:
		dir.Status = iterate.Optimal
	case lstsq.NNLSExceedMaxIter, lstsq.HFTIRankDefect:
		dir.Status = iterate.SuboptimalButUsable
	case lstsq.ConsIncompatible, lstsq.LSISingularE, lstsq.LSEISingularC:
		dir.Status = iterate.Infeasible
	default:
		dir.Status = iterate.Error
	}
	if !dir.IsUsable() {
		return dir, nil
	}

	dir.ComputeNorm()
	dir.ObjectiveMultiplier = s.Sigma

	partition := make(iterate.ConstraintPartition, s.m)
	for j := 0; j < s.m; j++ {
		p, n := s.x[s.pIdx(j)], s.x[s.nIdx(j)]
		switch {
		case p > 1e-10:
			partition[j] = iterate.InfeasibleAbove
		case n > 1e-10:
			partition[j] = iterate.InfeasibleBelow
		default:
			partition[j] = iterate.Feasible
		}
	}
	dir.Partition = partition

	for i := 0; i < s.n; i++ {
		if s.xl[i] > -s.InfBound && s.x[i] <= s.xl[i]+1e-12 {
			dir.AtLowerBound = append(dir.AtLowerBound, i)
		}
		if s.xu[i] < s.InfBound && s.x[i] >= s.xu[i]-1e-12 {
			dir.AtUpperBound = append(dir.AtUpperBound, i)
		}
	}

	val := 0.0
	for i := 0; i < s.n; i++ {
		val += s.g[i] * s.x[i]
		hv := 0.0
		for k := 0; k < s.n; k++ {
			hv += s.h[i*s.nd+k] * s.x[k]
		}
		val += 0.5 * s.x[i] * hv
	}
	dir.Objective = val
	return dir, nil
}

func (s *Sl1QP) PredictedReduction(it *iterate.Iterate, dir *iterate.Direction) float64 {
	return -dir.Objective
}

func (s *Sl1QP) SupportsWarmUpdateBounds() bool { return false }

// UpdateBounds is unsupported: the elastic QP's bound rows are rebuilt from
// the full iterate every time, so there is no cheaper warm path.
func (s *Sl1QP) UpdateBounds(delta float64) (*iterate.Direction, error) {
	if s.lastIterate == nil {
		return nil, fmt.Errorf("subproblem: UpdateBounds called before ComputeDirection")
	}
	return s.ComputeDirection(s.lastIterate, delta)
}
