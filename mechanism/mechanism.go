// Copyright ©2025 curioloop. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package mechanism implements the two globalization mechanisms:
// trust-region radius management and backtracking line
// search. Both drive a subproblem.Engine and test candidate steps through a
// merit.Strategy, returning the next current_iterate to the driver.
package mechanism

import (
	"github.com/curioloop/nlpcore/iterate"
	"github.com/curioloop/nlpcore/model"
	"github.com/curioloop/nlpcore/stats"
)

// Mechanism is the capability trait driver.Solve dispatches on to get from
// one accepted outer iterate to the next, hiding whether trust-region or
// line-search globalization is in force.
type Mechanism interface {
	Step(it *iterate.Iterate, st *stats.Stats) (*iterate.Iterate, Outcome, error)
}

// Outcome reports what a mechanism's Step call produced.
type Outcome int

const (
	// Accepted: trial replaces the current iterate.
	Accepted Outcome = iota
	// SmallStep: the step norm collapsed below the mechanism's floor before
	// any trial was accepted; the driver runs termination's small-step handling.
	SmallStep
)

// variableBounds materializes dense lower/upper arrays once, when
// NewTrustRegion/NewLineSearch build the mechanism, for use by
// Direction.ClearBoundaryActiveSet.
func variableBounds(m model.Model) (lo, hi []float64) {
	n := m.NumVariables()
	lo, hi = make([]float64, n), make([]float64, n)
	for i := 0; i < n; i++ {
		lo[i], hi[i] = m.VariableLowerBound(i), m.VariableUpperBound(i)
	}
	return lo, hi
}

// assembleTrial builds x_k + d, projected onto the variable bounds, with the
// direction's own multiplier estimates (the subproblem's dual
// solution becomes the trial iterate's multipliers, not a delta applied to
// the old ones).
func assembleTrial(it *iterate.Iterate, dir *iterate.Direction) *iterate.Iterate {
	n := len(it.X)
	x := make([]float64, n)
	for i := 0; i < n; i++ {
		x[i] = it.X[i] + dir.D[i]
	}
	trial := iterate.New(it.Model, x, dir.Mult.Clone())
	trial.ProjectBounds()
	return trial
}
