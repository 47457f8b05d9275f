// Copyright ©2025 curioloop. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package mechanism

import (
	"fmt"
	"math"

	"github.com/curioloop/nlpcore/iterate"
	"github.com/curioloop/nlpcore/merit"
	"github.com/curioloop/nlpcore/model"
	"github.com/curioloop/nlpcore/stats"
	"github.com/curioloop/nlpcore/subproblem"
)

// LineSearchParams bundles the line-search mechanism's scalar state/parameters.
type LineSearchParams struct {
	Rho              float64 // backtracking ratio, default 0.5
	AlphaMin         float64
	SecondOrderCorrection bool
}

// DefaultLineSearchParams returns the default backtracking ratio.
func DefaultLineSearchParams() LineSearchParams {
	return LineSearchParams{Rho: 0.5, AlphaMin: 1e-10, SecondOrderCorrection: true}
}

// StepLengthTooSmall is returned when backtracking exhausts AlphaMin without
// an accepted trial.
type StepLengthTooSmall struct {
	Alpha float64
}

func (e *StepLengthTooSmall) Error() string {
	return fmt.Sprintf("mechanism: line search: step length %.3e below minimum", e.Alpha)
}

// LineSearch is the backtracking line-search mechanism: the subproblem direction is
// computed once per outer iteration at an unbounded trust radius, and the
// mechanism backtracks the step multiplier α instead of re-solving the
// subproblem at a new radius.
type LineSearch struct {
	Engine subproblem.Engine
	Model  model.Model
	Merit  merit.Strategy
	Params LineSearchParams

	lo, hi []float64
}

// NewLineSearch constructs a LineSearch mechanism.
func NewLineSearch(engine subproblem.Engine, m model.Model, strategy merit.Strategy, params LineSearchParams) *LineSearch {
	lo, hi := variableBounds(m)
	return &LineSearch{Engine: engine, Model: m, Merit: strategy, Params: params, lo: lo, hi: hi}
}

// Step runs one direction computation at α = 1 (an unconstrained
// radius), then backtracking α ← ρ·α until the merit test accepts or
// AlphaMin is breached, at which point an optional second-order correction
// is attempted before giving up.
func (ls *LineSearch) Step(it *iterate.Iterate, st *stats.Stats) (*iterate.Iterate, Outcome, error) {
	st.RecordInnerIteration()
	dir, err := ls.Engine.ComputeDirection(it, math.Inf(1))
	if err != nil {
		return it, SmallStep, err
	}
	st.SubproblemsSolved++

	switch dir.Status {
	case iterate.UnboundedSubproblem, iterate.Error:
		return it, SmallStep, fmt.Errorf("mechanism: line search: subproblem status %v", dir.Status)
	}
	if !dir.IsUsable() {
		return it, SmallStep, fmt.Errorf("mechanism: line search: subproblem status %v", dir.Status)
	}

	alpha := 1.0
	lastTried := alpha
	pred := merit.PredictedReduction(it, dir, dir.Objective)

	for alpha >= ls.Params.AlphaMin {
		trial := ls.assembleAt(it, dir, alpha)
		s := alpha * dir.Norm
		if ls.Merit.Accept(it, trial, dir, s, alpha*pred) {
			trial.Mult.Normalize()
			return trial, Accepted, nil
		}
		st.MeritRejections++
		st.LineSearchBacktracks++
		lastTried = alpha
		alpha *= ls.Params.Rho
	}

	if ls.Params.SecondOrderCorrection {
		if trial, ok := ls.secondOrderCorrection(it, dir, lastTried); ok {
			trial.Mult.Normalize()
			return trial, Accepted, nil
		}
	}

	return it, SmallStep, &StepLengthTooSmall{Alpha: alpha}
}

func (ls *LineSearch) assembleAt(it *iterate.Iterate, dir *iterate.Direction, alpha float64) *iterate.Iterate {
	n := len(it.X)
	x := make([]float64, n)
	for i := 0; i < n; i++ {
		x[i] = it.X[i] + alpha*dir.D[i]
	}
	trial := iterate.New(it.Model, x, dir.Mult.Clone())
	trial.ProjectBounds()
	return trial
}

// secondOrderCorrection implements the optional correction: at the
// last rejected trial point x+αd (α the last step length the backtracking
// loop actually tried, not AlphaMin), re-derive the step using c(x+αd) in
// place of the linearization, then test the corrected step once.
func (ls *LineSearch) secondOrderCorrection(it *iterate.Iterate, dir *iterate.Direction, alpha float64) (*iterate.Iterate, bool) {
	rejected := ls.assembleAt(it, dir, alpha)

	correctionTarget := iterate.New(it.Model, rejected.X, it.Mult.Clone())
	corrDir, err := ls.Engine.ComputeDirection(correctionTarget, math.Inf(1))
	if err != nil || !corrDir.IsUsable() {
		return nil, false
	}

	n := len(it.X)
	x := make([]float64, n)
	for i := 0; i < n; i++ {
		x[i] = rejected.X[i] + corrDir.D[i]
	}
	trial := iterate.New(it.Model, x, corrDir.Mult.Clone())
	trial.ProjectBounds()

	pred := merit.PredictedReduction(it, dir, dir.Objective)
	if !ls.Merit.Accept(it, trial, dir, dir.Norm*alpha, pred) {
		return nil, false
	}
	return trial, true
}
