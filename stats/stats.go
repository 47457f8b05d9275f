// Copyright ©2025 curioloop. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package stats holds the solver's run diagnostics as an explicit value
// threaded through driver/mechanism calls rather than a package
// global, so concurrent solves never share counters.
package stats

// Stats accumulates run diagnostics: outer/inner iteration counts, how
// much work each layer did, and how the run split between the optimality
// and feasibility phases.
type Stats struct {
	OuterIterations int
	InnerIterations int

	ObjectiveEvaluations   int
	ConstraintEvaluations  int
	HessianEvaluations     int
	SubproblemsSolved      int
	RegularizationBumps    int
	LastDeltaW             float64 // most recent δw the convexified Hessian's regularization loop settled on, 0 if none was ever needed

	OptimalityPhaseIterations  int
	FeasibilityPhaseIterations int

	TrustRegionShrinks int
	TrustRegionGrows   int
	LineSearchBacktracks int

	MeritRejections  int
	FilterRejections int
}

// RecordOuterIteration increments the outer-iteration counter and the
// phase-specific counter for whichever relaxation phase was active.
func (s *Stats) RecordOuterIteration(feasibilityPhase bool) {
	s.OuterIterations++
	if feasibilityPhase {
		s.FeasibilityPhaseIterations++
	} else {
		s.OptimalityPhaseIterations++
	}
}

// RecordInnerIteration increments the inner-iteration counter, called once
// per mechanism loop pass (one subproblem solve plus one acceptance test).
func (s *Stats) RecordInnerIteration() {
	s.InnerIterations++
}
