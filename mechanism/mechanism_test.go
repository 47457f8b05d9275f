// Copyright ©2025 curioloop. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package mechanism

import (
	"fmt"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/curioloop/nlpcore/iterate"
	"github.com/curioloop/nlpcore/model"
	"github.com/curioloop/nlpcore/stats"
)

type boxModel struct{ n int }

func (m boxModel) NumVariables() int      { return m.n }
func (boxModel) NumConstraints() int      { return 0 }
func (boxModel) ObjectiveSign() float64   { return 1 }
func (boxModel) VariableLowerBound(int) float64   { return math.Inf(-1) }
func (boxModel) VariableUpperBound(int) float64   { return math.Inf(1) }
func (boxModel) ConstraintLowerBound(int) float64 { return math.Inf(-1) }
func (boxModel) ConstraintUpperBound(int) float64 { return math.Inf(1) }
func (boxModel) EvaluateObjective(x []float64) float64 {
	s := 0.0
	for _, xi := range x {
		s += 0.5 * xi * xi
	}
	return s
}
func (boxModel) EvaluateObjectiveGradient(x []float64) model.SparseVector { return model.DenseVector(x) }
func (boxModel) EvaluateConstraints([]float64, []float64)                {}
func (boxModel) EvaluateConstraintJacobian([]float64) []model.SparseVector { return nil }
func (boxModel) EvaluateLagrangianHessian(x []float64, sigma float64, lambda []float64) []model.HessianEntry {
	return nil
}
func (m boxModel) InitialPrimalPoint() []float64                        { return make([]float64, m.n) }
func (boxModel) InitialDualPoint() (lambda, zL, zU []float64)          { return nil, nil, nil }

func newTestIterate(m model.Model, x []float64) *iterate.Iterate {
	return iterate.New(m, x, iterate.Multipliers{Sigma: 1})
}

// scriptedEngine returns one queued direction/error per ComputeDirection
// call, for deterministic mechanism-loop tests.
type scriptedEngine struct {
	responses []engineResponse
	i         int
	supportsWarm bool
}

type engineResponse struct {
	dir *iterate.Direction
	err error
}

func (e *scriptedEngine) next() (*iterate.Direction, error) {
	if e.i >= len(e.responses) {
		return nil, fmt.Errorf("scriptedEngine: out of responses")
	}
	r := e.responses[e.i]
	e.i++
	return r.dir, r.err
}

func (e *scriptedEngine) ComputeDirection(it *iterate.Iterate, delta float64) (*iterate.Direction, error) {
	return e.next()
}
func (e *scriptedEngine) PredictedReduction(it *iterate.Iterate, dir *iterate.Direction) float64 {
	return -dir.Objective
}
func (e *scriptedEngine) SupportsWarmUpdateBounds() bool { return e.supportsWarm }
func (e *scriptedEngine) UpdateBounds(delta float64) (*iterate.Direction, error) {
	return e.next()
}

type alwaysAccept struct{}

func (alwaysAccept) Accept(cur, trial *iterate.Iterate, dir *iterate.Direction, s, pred float64) bool {
	return true
}

type alwaysReject struct{}

func (alwaysReject) Accept(cur, trial *iterate.Iterate, dir *iterate.Direction, s, pred float64) bool {
	return false
}

func optimalDirection(d []float64) *iterate.Direction {
	dir := &iterate.Direction{D: d, Status: iterate.Optimal, Mult: iterate.Multipliers{Sigma: 1}}
	dir.ComputeNorm()
	return dir
}

func TestTrustRegion_AcceptsImmediately(t *testing.T) {
	m := boxModel{n: 2}
	engine := &scriptedEngine{responses: []engineResponse{{dir: optimalDirection([]float64{-0.1, -0.1})}}}
	tr := NewTrustRegion(engine, m, alwaysAccept{}, DefaultTrustRegionParams())
	it := newTestIterate(m, []float64{1, 1})

	trial, outcome, err := tr.Step(it, &stats.Stats{})
	require.NoError(t, err)
	assert.Equal(t, Accepted, outcome)
	assert.InDelta(t, 0.9, trial.X[0], 1e-12)
}

func TestTrustRegion_UnboundedSubproblemShrinksAggressively(t *testing.T) {
	m := boxModel{n: 2}
	unbounded := &iterate.Direction{Status: iterate.UnboundedSubproblem}
	engine := &scriptedEngine{responses: []engineResponse{
		{dir: unbounded},
		{dir: optimalDirection([]float64{-0.1, -0.1})},
	}}
	params := DefaultTrustRegionParams()
	tr := NewTrustRegion(engine, m, alwaysAccept{}, params)
	it := newTestIterate(m, []float64{1, 1})

	trial, outcome, err := tr.Step(it, &stats.Stats{})
	require.NoError(t, err)
	assert.Equal(t, Accepted, outcome)
	assert.Equal(t, 2, engine.i, "expected one aggressive-shrink retry before acceptance")
	assert.Equal(t, params.DeltaReset, tr.Delta)
	assert.NotNil(t, trial)
}

func TestTrustRegion_SmallStepWhenAlwaysRejected(t *testing.T) {
	m := boxModel{n: 2}
	responses := make([]engineResponse, 0, 64)
	for i := 0; i < 64; i++ {
		responses = append(responses, engineResponse{dir: optimalDirection([]float64{-0.1, -0.1})})
	}
	engine := &scriptedEngine{responses: responses}
	params := DefaultTrustRegionParams()
	params.DeltaMin = 0.5 // reached after one shrink from DeltaInit=1
	tr := NewTrustRegion(engine, m, alwaysReject{}, params)
	it := newTestIterate(m, []float64{1, 1})

	trial, outcome, err := tr.Step(it, &stats.Stats{})
	require.NoError(t, err)
	assert.Equal(t, SmallStep, outcome)
	assert.Same(t, it, trial)
}

func TestLineSearch_BacktracksThenAccepts(t *testing.T) {
	m := boxModel{n: 2}
	dir := optimalDirection([]float64{-2, -2}) // overshoots; accept only once scaled down
	engine := &scriptedEngine{responses: []engineResponse{{dir: dir}}}

	// accept only once the trial's first coordinate is within [0.9,1): i.e.
	// alpha small enough that 1 + alpha*(-2) stays close to 1.
	accept := acceptFunc(func(cur, trial *iterate.Iterate, d *iterate.Direction, s, pred float64) bool {
		return trial.X[0] > 0.9
	})
	ls := NewLineSearch(engine, m, accept, DefaultLineSearchParams())
	it := newTestIterate(m, []float64{1, 1})

	trial, outcome, err := ls.Step(it, &stats.Stats{})
	require.NoError(t, err)
	assert.Equal(t, Accepted, outcome)
	assert.Greater(t, trial.X[0], 0.9)
}

type acceptFunc func(cur, trial *iterate.Iterate, dir *iterate.Direction, s, pred float64) bool

func (f acceptFunc) Accept(cur, trial *iterate.Iterate, dir *iterate.Direction, s, pred float64) bool {
	return f(cur, trial, dir, s, pred)
}

// recordingEngine returns dir on its first ComputeDirection call (the
// unconstrained-radius step) and, on every later call (the second-order
// correction's re-derived direction), records the primal point it was
// asked to linearize at.
type recordingEngine struct {
	dir         *iterate.Direction
	calls       int
	correctionX []float64
}

func (e *recordingEngine) ComputeDirection(it *iterate.Iterate, delta float64) (*iterate.Direction, error) {
	e.calls++
	if e.calls == 1 {
		return e.dir, nil
	}
	e.correctionX = append([]float64(nil), it.X...)
	return optimalDirection([]float64{0}), nil
}
func (e *recordingEngine) PredictedReduction(it *iterate.Iterate, dir *iterate.Direction) float64 {
	return -dir.Objective
}
func (e *recordingEngine) SupportsWarmUpdateBounds() bool { return false }
func (e *recordingEngine) UpdateBounds(delta float64) (*iterate.Direction, error) {
	return nil, fmt.Errorf("recordingEngine: warm update not supported")
}

func TestLineSearch_SecondOrderCorrectionUsesLastTriedAlpha(t *testing.T) {
	m := boxModel{n: 1}
	dir := optimalDirection([]float64{-1})
	engine := &recordingEngine{dir: dir}

	params := DefaultLineSearchParams()
	params.AlphaMin = 0.1 // Rho=0.5: backtrack tries 1, 0.5, 0.25, 0.125, then 0.0625 < AlphaMin

	reject := acceptFunc(func(cur, trial *iterate.Iterate, d *iterate.Direction, s, pred float64) bool {
		return false
	})
	ls := NewLineSearch(engine, m, reject, params)
	it := newTestIterate(m, []float64{1})

	_, outcome, err := ls.Step(it, &stats.Stats{})
	require.Error(t, err) // the correction's own merit test rejects too, since reject always fails
	assert.Equal(t, SmallStep, outcome)

	require.Len(t, engine.correctionX, 1)
	// x + alpha*d at the last alpha the backtracking loop actually tried
	// (0.125), not at AlphaMin (0.1).
	assert.InDelta(t, 1+0.125*-1, engine.correctionX[0], 1e-12)
}
