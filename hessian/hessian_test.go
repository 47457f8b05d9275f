// Copyright ©2025 curioloop. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package hessian

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/curioloop/nlpcore/kkt"
	"github.com/curioloop/nlpcore/model"
)

// indefinite2D is min ½(-x1²+x2²), unconstrained: its Lagrangian Hessian is
// diag(-σ, σ), indefinite for any σ>0.
type indefinite2D struct{}

func (indefinite2D) NumVariables() int      { return 2 }
func (indefinite2D) NumConstraints() int    { return 0 }
func (indefinite2D) ObjectiveSign() float64 { return 1 }
func (indefinite2D) VariableLowerBound(int) float64   { return math.Inf(-1) }
func (indefinite2D) VariableUpperBound(int) float64   { return math.Inf(1) }
func (indefinite2D) ConstraintLowerBound(int) float64 { return math.Inf(-1) }
func (indefinite2D) ConstraintUpperBound(int) float64 { return math.Inf(1) }
func (indefinite2D) EvaluateObjective(x []float64) float64 {
	return 0.5 * (-x[0]*x[0] + x[1]*x[1])
}
func (indefinite2D) EvaluateObjectiveGradient(x []float64) model.SparseVector {
	return model.DenseVector([]float64{-x[0], x[1]})
}
func (indefinite2D) EvaluateConstraints([]float64, []float64)                {}
func (indefinite2D) EvaluateConstraintJacobian([]float64) []model.SparseVector { return nil }
func (indefinite2D) EvaluateLagrangianHessian(x []float64, sigma float64, lambda []float64) []model.HessianEntry {
	return []model.HessianEntry{
		{Row: 0, Col: 0, Value: -sigma},
		{Row: 1, Col: 1, Value: sigma},
	}
}
func (indefinite2D) InitialPrimalPoint() []float64                  { return []float64{0, 0} }
func (indefinite2D) InitialDualPoint() (lambda, zL, zU []float64) { return nil, nil, nil }

func TestExact_MirrorsOffDiagonalEntries(t *testing.T) {
	m := indefinite2D{}
	dense := make([]float64, 4)

	require.NoError(t, Exact{}.Evaluate(m, []float64{1, 1}, 1, nil, dense))

	assert.Equal(t, -1.0, dense[0])
	assert.Equal(t, 0.0, dense[1])
	assert.Equal(t, 0.0, dense[2])
	assert.Equal(t, 1.0, dense[3])
}

func TestConvexified_RegularizesOnlyOriginalBlockUntilPositiveDefinite(t *testing.T) {
	m := indefinite2D{}
	dense := make([]float64, 4)
	c := NewConvexified(1)

	require.NoError(t, c.Evaluate(m, []float64{1, 1}, 1, nil, dense))

	// x1's diagonal (index 0) is indefinite (-1) and inside the
	// original-variable block, so the loop grows δw from DeltaW0=1e-4 by
	// KappaWPlus=8 until -1+δw is positive (1e-4·8⁵ ≈ 3.2768); x2's (index 3)
	// is untouched since it sits outside NumOriginalVars.
	assert.Greater(t, c.DeltaWLast, 0.0)
	assert.InDelta(t, -1+c.DeltaWLast, dense[0], 1e-12)
	assert.Greater(t, dense[0], 0.0)
	assert.InDelta(t, 1, dense[3], 1e-12)
}

func TestConvexified_ZeroOrOutOfRangeLimitAppliesToWholeMatrix(t *testing.T) {
	m := indefinite2D{}
	dense := make([]float64, 4)
	c := NewConvexified(0)

	require.NoError(t, c.Evaluate(m, []float64{1, 1}, 1, nil, dense))

	// Both diagonal entries fall inside the whole-matrix block; x2's own
	// entry (1) is already positive, but the block-wide Cholesky test still
	// requires x1's (-1) to clear zero, so both pick up the same δw.
	assert.Greater(t, c.DeltaWLast, 0.0)
	assert.InDelta(t, -1+c.DeltaWLast, dense[0], 1e-12)
	assert.InDelta(t, 1+c.DeltaWLast, dense[3], 1e-12)
}

func TestConvexified_WarmStartsFromShrunkPriorDeltaW(t *testing.T) {
	m := indefinite2D{}
	c := NewConvexified(1)

	dense := make([]float64, 4)
	require.NoError(t, c.Evaluate(m, []float64{1, 1}, 1, nil, dense))
	first := c.DeltaWLast
	require.Greater(t, first, 0.0)

	// A second Evaluate call on the same instance starts its trial from
	// max(DeltaWMin, first*KappaWMinus) rather than from zero, then keeps
	// growing it geometrically until the block clears zero again.
	require.NoError(t, c.Evaluate(m, []float64{1, 1}, 1, nil, dense))
	assert.Greater(t, c.DeltaWLast, 0.0)
	assert.InDelta(t, -1+c.DeltaWLast, dense[0], 1e-12)
}

func TestConvexified_UnstableWhenBlockNeverClearsZero(t *testing.T) {
	m := indefinite2D{}
	dense := make([]float64, 4)
	c := NewConvexified(1)
	c.Reg.DeltaWMax = 1e-10 // forces the loop to give up almost immediately

	err := c.Evaluate(m, []float64{1, 1}, 1, nil, dense)
	require.Error(t, err)
	var unstable *kkt.UnstableRegularizationError
	require.ErrorAs(t, err, &unstable)
}
