// Copyright ©2025 curioloop. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package subproblem

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/curioloop/nlpcore/hessian"
	"github.com/curioloop/nlpcore/iterate"
	"github.com/curioloop/nlpcore/model"
)

// equalityPair is min ½(x1²+x2²) s.t. x1+x2=1, unbounded variables.
type equalityPair struct{}

func (equalityPair) NumVariables() int      { return 2 }
func (equalityPair) NumConstraints() int    { return 1 }
func (equalityPair) ObjectiveSign() float64 { return 1 }
func (equalityPair) VariableLowerBound(int) float64   { return math.Inf(-1) }
func (equalityPair) VariableUpperBound(int) float64   { return math.Inf(1) }
func (equalityPair) ConstraintLowerBound(int) float64 { return 1 }
func (equalityPair) ConstraintUpperBound(int) float64 { return 1 }
func (equalityPair) EvaluateObjective(x []float64) float64 {
	return 0.5 * (x[0]*x[0] + x[1]*x[1])
}
func (equalityPair) EvaluateObjectiveGradient(x []float64) model.SparseVector {
	return model.DenseVector{x[0], x[1]}
}
func (equalityPair) EvaluateConstraints(x []float64, c []float64) { c[0] = x[0] + x[1] }
func (equalityPair) EvaluateConstraintJacobian([]float64) []model.SparseVector {
	return []model.SparseVector{model.DenseVector{1, 1}}
}
func (equalityPair) EvaluateLagrangianHessian(x []float64, sigma float64, lambda []float64) []model.HessianEntry {
	return []model.HessianEntry{
		{Row: 0, Col: 0, Value: sigma},
		{Row: 1, Col: 1, Value: sigma},
	}
}
func (equalityPair) InitialPrimalPoint() []float64                  { return []float64{0, 0} }
func (equalityPair) InitialDualPoint() (lambda, zL, zU []float64) { return nil, nil, nil }

func TestSQP_ComputeDirection_EqualityConstrainedStep(t *testing.T) {
	m := equalityPair{}
	s := NewSQP(m, hessian.Exact{}, 1, 50, 1e20)
	it := iterate.New(m, []float64{0, 0}, iterate.Multipliers{Lambda: []float64{0}, Sigma: 1})

	dir, err := s.ComputeDirection(it, math.Inf(1))
	require.NoError(t, err)
	require.True(t, dir.IsUsable())

	// Same problem data as lstsq.SolveQP's equality-constrained quadratic
	// case: the closest point on x1+x2=1 to the origin is (0.5, 0.5).
	assert.InDelta(t, 0.5, dir.D[0], 1e-8)
	assert.InDelta(t, 0.5, dir.D[1], 1e-8)
}

func TestSQP_UpdateBounds_RequiresPriorComputeDirection(t *testing.T) {
	m := equalityPair{}
	s := NewSQP(m, hessian.Exact{}, 1, 50, 1e20)

	_, err := s.UpdateBounds(1.0)
	assert.Error(t, err)
}

func TestSQP_PredictedReduction_MatchesNegativeModelValueForSameIterate(t *testing.T) {
	m := equalityPair{}
	s := NewSQP(m, hessian.Exact{}, 1, 50, 1e20)
	it := iterate.New(m, []float64{0, 0}, iterate.Multipliers{Lambda: []float64{0}, Sigma: 1})

	dir, err := s.ComputeDirection(it, math.Inf(1))
	require.NoError(t, err)

	// Predicted reduction is -model value at the step, and since g=0 at the
	// origin, the model value is purely the quadratic term ½‖d‖² = ½(0.5).
	assert.InDelta(t, -0.25, s.PredictedReduction(it, dir), 1e-8)
}
