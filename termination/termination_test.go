// Copyright ©2025 curioloop. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package termination

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/curioloop/nlpcore/iterate"
	"github.com/curioloop/nlpcore/model"
)

// unconstrainedModel is minimize ½‖x‖² over ℝⁿ, used to exercise the
// stationarity/feasibility/complementarity residuals at a known optimum.
type unconstrainedModel struct{ n int }

func (m unconstrainedModel) NumVariables() int      { return m.n }
func (unconstrainedModel) NumConstraints() int      { return 0 }
func (unconstrainedModel) ObjectiveSign() float64   { return 1 }
func (unconstrainedModel) VariableLowerBound(int) float64   { return math.Inf(-1) }
func (unconstrainedModel) VariableUpperBound(int) float64   { return math.Inf(1) }
func (unconstrainedModel) ConstraintLowerBound(int) float64 { return math.Inf(-1) }
func (unconstrainedModel) ConstraintUpperBound(int) float64 { return math.Inf(1) }

func (unconstrainedModel) EvaluateObjective(x []float64) float64 {
	s := 0.0
	for _, xi := range x {
		s += 0.5 * xi * xi
	}
	return s
}

func (unconstrainedModel) EvaluateObjectiveGradient(x []float64) model.SparseVector {
	return model.DenseVector(x)
}

func (unconstrainedModel) EvaluateConstraints([]float64, []float64) {}

func (unconstrainedModel) EvaluateConstraintJacobian([]float64) []model.SparseVector { return nil }

func (unconstrainedModel) EvaluateLagrangianHessian(x []float64, sigma float64, lambda []float64) []model.HessianEntry {
	entries := make([]model.HessianEntry, len(x))
	for i := range x {
		entries[i] = model.HessianEntry{Row: i, Col: i, Value: sigma}
	}
	return entries
}

func (m unconstrainedModel) InitialPrimalPoint() []float64 { return make([]float64, m.n) }
func (unconstrainedModel) InitialDualPoint() (lambda, zL, zU []float64) { return nil, nil, nil }

func TestEvaluate_FeasibleKKTAtOptimum(t *testing.T) {
	m := unconstrainedModel{n: 2}
	it := iterate.New(m, []float64{0, 0}, iterate.Multipliers{Sigma: 1})
	status, res := Evaluate(it, DefaultTolerances(1e-6), false, false)
	assert.Equal(t, FeasibleKKT, status)
	assert.InDelta(t, 0, res.Stationarity, 1e-12)
}

func TestEvaluate_NotOptimalAwayFromStationaryPoint(t *testing.T) {
	m := unconstrainedModel{n: 2}
	it := iterate.New(m, []float64{1, 1}, iterate.Multipliers{Sigma: 1})
	status, _ := Evaluate(it, DefaultTolerances(1e-6), false, false)
	assert.Equal(t, NotOptimal, status)
}

func TestEvaluate_FritzJohnWhenSigmaZero(t *testing.T) {
	m := unconstrainedModel{n: 2}
	it := iterate.New(m, []float64{0, 0}, iterate.Multipliers{Sigma: 0})
	status, _ := Evaluate(it, DefaultTolerances(1e-6), false, false)
	assert.Equal(t, FritzJohn, status)
}

func TestEvaluate_Unbounded(t *testing.T) {
	m := unconstrainedModel{n: 1}
	it := iterate.New(m, []float64{1}, iterate.Multipliers{Sigma: 1})
	tol := DefaultTolerances(1e-6)
	tol.UnboundedObjectiveThreshold = 1.0 // above it.Objective()=0.5, so 0.5 < 1.0 triggers Unbounded
	status, _ := Evaluate(it, tol, false, false)
	assert.Equal(t, Unbounded, status)
}

func TestEvaluate_SmallStepFeasible(t *testing.T) {
	m := unconstrainedModel{n: 2}
	it := iterate.New(m, []float64{1, 1}, iterate.Multipliers{Sigma: 1})
	status, _ := Evaluate(it, DefaultTolerances(1e-6), true, false)
	assert.Equal(t, FeasibleSmallStep, status)
}
