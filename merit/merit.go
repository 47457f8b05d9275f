// Copyright ©2025 curioloop. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package merit implements the acceptance strategies: the exact ℓ1 penalty
// merit function and the pluggable Fletcher–Leyffer filter.
// Both sit between a mechanism (trust-region or line-search) and a
// subproblem.Engine: the mechanism assembles a trial iterate, the strategy
// says whether it is good enough to become the new current_iterate.
package merit

import (
	"gonum.org/v1/gonum/floats"

	"github.com/curioloop/nlpcore/iterate"
)

// Strategy is the capability trait mechanism.TrustRegion and
// mechanism.LineSearch test candidate steps against (one more
// small interface rather than a shared base type).
type Strategy interface {
	// Accept reports whether the trial iterate (reached from cur by a step
	// of primal norm s along dir, whose subproblem predicted a reduction of
	// pred) should replace cur as the new current_iterate.
	Accept(cur, trial *iterate.Iterate, dir *iterate.Direction, s, pred float64) bool
}

// AcceptanceRule selects which of L1's two acceptance tests to use.
type AcceptanceRule int

const (
	// Alternative is `ared ≥ Eta·s·(feasibility_measure_k − subproblem_objective)`,
	// the default rule, with Eta = 1e-8.
	Alternative AcceptanceRule = iota
	// ByrdNocedal is `ared ≥ Eta·pred` with Eta ∈ (0, ½).
	ByrdNocedal
)

// L1 is the exact ℓ1 penalty merit function:
//
//	M(x, σ) = σ·f(x) + ‖violation(c(x))‖_1
type L1 struct {
	Rule AcceptanceRule
	Eta  float64
}

// DefaultL1 returns the default ℓ1 merit strategy: the Alternative
// acceptance rule with η = 1e-8.
func DefaultL1() L1 { return L1{Rule: Alternative, Eta: 1e-8} }

// Value evaluates M(x, σ) at it's current point.
func (L1) Value(it *iterate.Iterate) float64 {
	return it.Mult.Sigma*it.Objective() + it.ConstraintViolation()
}

// Accept implements Strategy. dir.Objective is the subproblem's own model
// value m_k(d) (already σ-weighted by the engine that produced dir); pred is
// ignored by the Alternative rule and required by ByrdNocedal. s=0 accepts
// unconditionally (the terminal case is handled by the driver).
func (l L1) Accept(cur, trial *iterate.Iterate, dir *iterate.Direction, s, pred float64) bool {
	if s == 0 {
		return true
	}

	sigma := cur.Mult.Sigma
	mBefore := sigma*cur.Objective() + cur.ConstraintViolation()
	mAfter := sigma*trial.Objective() + trial.ConstraintViolation()
	ared := mBefore - mAfter

	if l.Rule == ByrdNocedal {
		return ared >= l.Eta*pred
	}

	feasibility := cur.ConstraintViolation()
	return ared >= l.Eta*s*(feasibility-dir.Objective)
}

// PredictedReduction computes pred = σ·(f(x_k) − m_k(d)) + (‖v(c(x_k))‖_1 −
// ‖v(c(x_k) + ∇c(x_k)d)‖_1) for direction dir taken from cur.
// subObjective is m_k(d), the subproblem engine's own local model value.
func PredictedReduction(cur *iterate.Iterate, dir *iterate.Direction, subObjective float64) float64 {
	sigma := cur.Mult.Sigma
	linearizedViol := linearizedViolation(cur, dir.D)
	return sigma*(cur.Objective()-subObjective) + (cur.ConstraintViolation() - linearizedViol)
}

// linearizedViolation evaluates ‖v(c(x_k) + J(x_k)·d)‖_1 without evaluating
// the model at the trial point.
func linearizedViolation(cur *iterate.Iterate, d []float64) float64 {
	c := cur.Constraints()
	jac := cur.Jacobian()
	total := 0.0
	for j, row := range jac {
		lin := c[j] + floats.Dot(row, d)
		cl, cu := cur.Model.ConstraintLowerBound(j), cur.Model.ConstraintUpperBound(j)
		if lin < cl {
			total += cl - lin
		} else if lin > cu {
			total += lin - cu
		}
	}
	return total
}
