// Copyright ©2025 curioloop. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package iterate

import "math"

// Status classifies the outcome of computing a Direction.
type Status int

const (
	Optimal Status = iota
	SuboptimalButUsable
	UnboundedSubproblem
	Infeasible
	Error
)

func (s Status) String() string {
	switch s {
	case Optimal:
		return "Optimal"
	case SuboptimalButUsable:
		return "SuboptimalButUsable"
	case UnboundedSubproblem:
		return "UnboundedSubproblem"
	case Infeasible:
		return "Infeasible"
	case Error:
		return "Error"
	default:
		return "Unknown"
	}
}

// ConstraintSide classifies a constraint as feasible or which side it
// violates, used by elastic-variable active-set recovery.
type ConstraintSide int

const (
	Feasible ConstraintSide = iota
	InfeasibleAbove
	InfeasibleBelow
)

// ConstraintPartition classifies every constraint by ConstraintSide.
type ConstraintPartition []ConstraintSide

// Direction is the primal step proposed by a subproblem engine, together
// with the dual estimates and bookkeeping the mechanism/relax layers need to
// assemble and test a trial iterate.
type Direction struct {
	D        []float64 // ℝⁿ primal step
	Mult     Multipliers

	AtLowerBound []int // ordered indices of variables pinned at their lower bound
	AtUpperBound []int // ordered indices of variables pinned at their upper bound

	Partition ConstraintPartition // optional; nil when no relaxation is active

	Norm                float64 // ‖d‖_∞
	Objective           float64 // predicted model value f(x)+∇f(x)ᵀd+½dᵀHd at the step
	ObjectiveMultiplier float64 // σ used to build this direction

	Status Status
}

// ComputeNorm sets Norm to the ∞-norm of D.
func (d *Direction) ComputeNorm() {
	d.Norm = infNorm(d.D)
}

// IsUsable reports whether the direction carries a valid step that the
// mechanism may assemble a trial iterate from.
func (d *Direction) IsUsable() bool {
	return d.Status == Optimal || d.Status == SuboptimalButUsable
}

// ClearBoundaryActiveSet handles the case where variable i's step hit
// the trust-region radius rather than its own model bound, the "active"
// bound was the trust region, not x's own bound — remove it from the
// active set and zero its bound multiplier so downstream code does not
// mistake the trust region for an active model constraint.
//
// lower/upper are the variable's own bounds; delta is the trust-region
// radius in force (math.Inf(1) for a line-search mechanism, which makes
// this a no-op since d_i can never equal ±∞).
func (d *Direction) ClearBoundaryActiveSet(x, lower, upper []float64, delta, epsAct float64) {
	if math.IsInf(delta, 1) {
		return
	}
	keepLower := d.AtLowerBound[:0]
	for _, i := range d.AtLowerBound {
		atTR := d.D[i] <= -delta+1e-300
		ownBoundActive := math.Abs(x[i]+d.D[i]-lower[i]) <= epsAct
		if atTR && !ownBoundActive {
			if i < len(d.Mult.ZL) {
				d.Mult.ZL[i] = 0
			}
			continue
		}
		keepLower = append(keepLower, i)
	}
	d.AtLowerBound = keepLower

	keepUpper := d.AtUpperBound[:0]
	for _, i := range d.AtUpperBound {
		atTR := d.D[i] >= delta-1e-300
		ownBoundActive := math.Abs(upper[i]-(x[i]+d.D[i])) <= epsAct
		if atTR && !ownBoundActive {
			if i < len(d.Mult.ZU) {
				d.Mult.ZU[i] = 0
			}
			continue
		}
		keepUpper = append(keepUpper, i)
	}
	d.AtUpperBound = keepUpper
}
