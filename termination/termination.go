// Copyright ©2025 curioloop. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package termination implements the KKT-residual status assignment:
// stationarity, feasibility and complementarity against a
// tolerance, producing a Status the driver maps to its exit code.
package termination

import (
	"gonum.org/v1/gonum/floats"

	"github.com/curioloop/nlpcore/iterate"
)

// Status is the terminal classification assigned to an iterate.
type Status int

const (
	NotOptimal Status = iota
	FeasibleKKT
	FritzJohn
	FeasibleSmallStep
	InfeasibleSmallStep
	InfeasibleStationary
	Unbounded
)

func (s Status) String() string {
	switch s {
	case FeasibleKKT:
		return "FeasibleKKT"
	case FritzJohn:
		return "FritzJohn"
	case FeasibleSmallStep:
		return "FeasibleSmallStep"
	case InfeasibleSmallStep:
		return "InfeasibleSmallStep"
	case InfeasibleStationary:
		return "InfeasibleStationary"
	case Unbounded:
		return "Unbounded"
	default:
		return "NotOptimal"
	}
}

// Residuals bundles the three scalar KKT measures.
type Residuals struct {
	Stationarity    float64
	Feasibility     float64
	Complementarity float64
}

// Tolerances bundles the scalars Evaluate needs beyond the iterate itself.
type Tolerances struct {
	EpsTol                    float64
	SMax                      float64 // stationarity scaling cap
	UnboundedObjectiveThreshold float64
}

// DefaultTolerances returns the default tolerances for a given ε_tol
// (there is no single natural default for it; s_max defaults to 100).
func DefaultTolerances(epsTol float64) Tolerances {
	return Tolerances{EpsTol: epsTol, SMax: 100, UnboundedObjectiveThreshold: -1e20}
}

// Compute evaluates the three KKT residuals at it.
func Compute(it *iterate.Iterate, sMax float64) Residuals {
	return Residuals{
		Stationarity:    it.StationarityError(sMax),
		Feasibility:     it.ConstraintViolation(),
		Complementarity: it.ComplementarityError(),
	}
}

// maxOf returns the largest of the three residuals; Evaluate compares it
// against a single tolerance.
func (r Residuals) maxOf() float64 {
	return floats.Max([]float64{r.Stationarity, r.Feasibility, r.Complementarity})
}

// Evaluate assigns a Status from the three KKT residuals. smallStep
// reports whether the mechanism stopped with mechanism.SmallStep (trust
// radius below DeltaMin, or line-search step below AlphaMin);
// feasibilityPhase reports whether the relaxation strategy is currently in
// its feasibility-restoration phase.
func Evaluate(it *iterate.Iterate, tol Tolerances, smallStep, feasibilityPhase bool) (Status, Residuals) {
	res := Compute(it, tol.SMax)

	if it.Objective() < tol.UnboundedObjectiveThreshold {
		return Unbounded, res
	}

	if res.maxOf() <= tol.EpsTol {
		if it.Mult.Sigma > 0 {
			return FeasibleKKT, res
		}
		return FritzJohn, res
	}

	if smallStep {
		if res.Feasibility <= tol.EpsTol*float64(len(it.X)) {
			return FeasibleSmallStep, res
		}
		if feasibilityPhase {
			return InfeasibleSmallStep, res
		}
		return InfeasibleStationary, res
	}

	return NotOptimal, res
}
