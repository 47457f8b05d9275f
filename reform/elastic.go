// Copyright ©2025 curioloop. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package reform

import (
	"math"

	"github.com/curioloop/nlpcore/iterate"
	"github.com/curioloop/nlpcore/model"
)

// Elastics records, for every relaxed constraint, the synthetic variable
// indices (≥ n) added to absorb its violation: Positive[j] absorbs
// violation above c_U_j, Negative[j] absorbs violation below c_L_j.
// Both maps are nil until a relaxation is
// built around a set of constraint indices.
type Elastics struct {
	Positive map[int]int
	Negative map[int]int
}

// NumSynthetic reports how many synthetic variables the elastics introduce.
func (e Elastics) NumSynthetic() int { return len(e.Positive) + len(e.Negative) }

// Side reports which bound constraint j's elastic pair indicates is
// violated at primal vector x: p_j > 0
// means upper-infeasible, n_j > 0 means lower-infeasible.
func (e Elastics) Side(j int, x []float64) (side iterate.ConstraintSide, violation float64) {
	if p, ok := e.Positive[j]; ok && x[p] > 0 {
		return iterate.InfeasibleAbove, x[p]
	}
	if n, ok := e.Negative[j]; ok && x[n] > 0 {
		return iterate.InfeasibleBelow, x[n]
	}
	return iterate.Feasible, 0
}

// NewElastics builds an Elastics mapping a positive and negative synthetic
// variable onto each constraint index in relaxed, starting the synthetic
// indices at n (Inner.NumVariables()).
func NewElastics(n int, relaxed []int) Elastics {
	e := Elastics{Positive: make(map[int]int, len(relaxed)), Negative: make(map[int]int, len(relaxed))}
	next := n
	for _, j := range relaxed {
		e.Positive[j] = next
		next++
		e.Negative[j] = next
		next++
	}
	return e
}

// ElasticRelaxation presents Inner's problem augmented with a pair of
// nonnegative synthetic variables (p_j, n_j) per relaxed constraint so that
//
//	c_L_j ≤ c_j(x) - p_j + n_j ≤ c_U_j,   p_j, n_j ≥ 0
//
// is always satisfiable, and penalizes Σ(p_j+n_j) linearly in the objective
// with coefficient Rho. The penalty is added directly to the
// objective value/gradient rather than folded into the σ-weighted
// Lagrangian term, since it is a fixed-weight constraint-violation cost
// independent of which optimality/feasibility phase is active.
type ElasticRelaxation struct {
	Inner    model.Model
	Elastics Elastics
	Rho      float64
}

// NewElasticRelaxation builds the relaxation around Inner, relaxing every
// constraint index in relaxed with penalty weight rho.
func NewElasticRelaxation(inner model.Model, relaxed []int, rho float64) *ElasticRelaxation {
	return &ElasticRelaxation{
		Inner:    inner,
		Elastics: NewElastics(inner.NumVariables(), relaxed),
		Rho:      rho,
	}
}

func (r *ElasticRelaxation) n() int { return r.Inner.NumVariables() }

func (r *ElasticRelaxation) NumVariables() int {
	return r.n() + r.Elastics.NumSynthetic()
}
func (r *ElasticRelaxation) NumConstraints() int    { return r.Inner.NumConstraints() }
func (r *ElasticRelaxation) ObjectiveSign() float64 { return r.Inner.ObjectiveSign() }

func (r *ElasticRelaxation) VariableLowerBound(i int) float64 {
	if i < r.n() {
		return r.Inner.VariableLowerBound(i)
	}
	return 0
}

func (r *ElasticRelaxation) VariableUpperBound(i int) float64 {
	if i < r.n() {
		return r.Inner.VariableUpperBound(i)
	}
	return math.Inf(1)
}

func (r *ElasticRelaxation) ConstraintLowerBound(j int) float64 { return r.Inner.ConstraintLowerBound(j) }
func (r *ElasticRelaxation) ConstraintUpperBound(j int) float64 { return r.Inner.ConstraintUpperBound(j) }

func (r *ElasticRelaxation) EvaluateObjective(x []float64) float64 {
	f := r.Inner.EvaluateObjective(x[:r.n()])
	for _, idx := range r.Elastics.Positive {
		f += r.Rho * x[idx]
	}
	for _, idx := range r.Elastics.Negative {
		f += r.Rho * x[idx]
	}
	return f
}

func (r *ElasticRelaxation) EvaluateObjectiveGradient(x []float64) model.SparseVector {
	n := r.n()
	g := make(model.DenseVector, r.NumVariables())
	r.Inner.EvaluateObjectiveGradient(x[:n]).ForEach(func(i int, v float64) { g[i] = v })
	for _, idx := range r.Elastics.Positive {
		g[idx] = r.Rho
	}
	for _, idx := range r.Elastics.Negative {
		g[idx] = r.Rho
	}
	return g
}

func (r *ElasticRelaxation) EvaluateConstraints(x []float64, c []float64) {
	r.Inner.EvaluateConstraints(x[:r.n()], c)
	for j, idx := range r.Elastics.Positive {
		c[j] -= x[idx]
	}
	for j, idx := range r.Elastics.Negative {
		c[j] += x[idx]
	}
}

func (r *ElasticRelaxation) EvaluateConstraintJacobian(x []float64) []model.SparseVector {
	n := r.n()
	rows := r.Inner.EvaluateConstraintJacobian(x[:n])
	total := r.NumVariables()
	out := make([]model.SparseVector, len(rows))
	for j, row := range rows {
		dv := make(model.DenseVector, total)
		row.ForEach(func(i int, v float64) { dv[i] = v })
		if idx, ok := r.Elastics.Positive[j]; ok {
			dv[idx] = -1
		}
		if idx, ok := r.Elastics.Negative[j]; ok {
			dv[idx] = 1
		}
		out[j] = dv
	}
	return out
}

func (r *ElasticRelaxation) EvaluateLagrangianHessian(x []float64, sigma float64, lambda []float64) []model.HessianEntry {
	// Elastic variables are linear in both objective and constraints, so
	// their Hessian blocks are zero and only Inner contributes entries.
	return r.Inner.EvaluateLagrangianHessian(x[:r.n()], sigma, lambda)
}

func (r *ElasticRelaxation) InitialPrimalPoint() []float64 {
	n := r.n()
	inner := r.Inner.InitialPrimalPoint()
	x := make([]float64, r.NumVariables())
	copy(x, inner[:n])
	return x
}

func (r *ElasticRelaxation) InitialDualPoint() (lambda, zL, zU []float64) {
	lambda, innerZL, innerZU := r.Inner.InitialDualPoint()
	total := r.NumVariables()
	zL = make([]float64, total)
	zU = make([]float64, total)
	copy(zL, innerZL)
	copy(zU, innerZU)
	for i := r.n(); i < total; i++ {
		zL[i] = 1 // elastic vars start at their active lower bound (0)
	}
	return lambda, zL, zU
}
