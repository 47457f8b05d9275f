// Copyright ©2025 curioloop. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package iterate

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/curioloop/nlpcore/model"
)

// boundedPair is min ½(x1²+x2²) s.t. x1+x2 in [1,3], 0<=x1<=10, 0<=x2<=10.
type boundedPair struct {
	evalCount int
}

func (*boundedPair) NumVariables() int      { return 2 }
func (*boundedPair) NumConstraints() int    { return 1 }
func (*boundedPair) ObjectiveSign() float64 { return 1 }
func (*boundedPair) VariableLowerBound(int) float64   { return 0 }
func (*boundedPair) VariableUpperBound(int) float64   { return 10 }
func (*boundedPair) ConstraintLowerBound(int) float64 { return 1 }
func (*boundedPair) ConstraintUpperBound(int) float64 { return 3 }

func (b *boundedPair) EvaluateObjective(x []float64) float64 {
	b.evalCount++
	return 0.5 * (x[0]*x[0] + x[1]*x[1])
}
func (*boundedPair) EvaluateObjectiveGradient(x []float64) model.SparseVector {
	return model.DenseVector([]float64{x[0], x[1]})
}
func (*boundedPair) EvaluateConstraints(x []float64, c []float64) { c[0] = x[0] + x[1] }
func (*boundedPair) EvaluateConstraintJacobian([]float64) []model.SparseVector {
	return []model.SparseVector{model.DenseVector([]float64{1, 1})}
}
func (*boundedPair) EvaluateLagrangianHessian([]float64, float64, []float64) []model.HessianEntry {
	return nil
}
func (*boundedPair) InitialPrimalPoint() []float64                  { return []float64{0, 0} }
func (*boundedPair) InitialDualPoint() (lambda, zL, zU []float64) { return nil, nil, nil }

func TestObjective_MemoizesUntilReset(t *testing.T) {
	m := &boundedPair{}
	it := New(m, []float64{1, 1}, Multipliers{Sigma: 1})

	assert.InDelta(t, 1, it.Objective(), 1e-12)
	assert.InDelta(t, 1, it.Objective(), 1e-12)
	assert.Equal(t, 1, m.evalCount, "second call should hit the cache")

	it.Reset([]float64{2, 2})
	assert.InDelta(t, 4, it.Objective(), 1e-12)
	assert.Equal(t, 2, m.evalCount)
}

func TestClone_SharesNoBackingArraysWithOriginal(t *testing.T) {
	m := &boundedPair{}
	it := New(m, []float64{1, 1}, Multipliers{Lambda: []float64{0.5}, Sigma: 1})

	clone := it.Clone()
	clone.X[0] = 99
	clone.Mult.Lambda[0] = 99

	assert.InDelta(t, 1, it.X[0], 1e-12)
	assert.InDelta(t, 0.5, it.Mult.Lambda[0], 1e-12)
}

func TestLagrangianGradient_SubtractsWeightedJacobianRows(t *testing.T) {
	m := &boundedPair{}
	it := New(m, []float64{2, 2}, Multipliers{Lambda: []float64{3}, Sigma: 1})

	g := it.LagrangianGradient()
	// ∇f = (2,2); Jᵀλ = (3,3); ∇L = σ∇f - Jᵀλ = (-1,-1).
	assert.InDelta(t, -1, g[0], 1e-12)
	assert.InDelta(t, -1, g[1], 1e-12)
}

func TestConstraintViolation_ZeroWhenInsideBothBounds(t *testing.T) {
	m := &boundedPair{}
	it := New(m, []float64{1, 1}, Multipliers{Sigma: 1}) // c=2, in [1,3]
	assert.Equal(t, 0.0, it.ConstraintViolation())
}

func TestConstraintViolation_SumsExceedanceAboveUpperBound(t *testing.T) {
	m := &boundedPair{}
	it := New(m, []float64{5, 5}, Multipliers{Sigma: 1}) // c=10, exceeds cu=3 by 7
	assert.InDelta(t, 7, it.ConstraintViolation(), 1e-12)
}

func TestComplementarityError_MaxOverActiveBounds(t *testing.T) {
	m := &boundedPair{}
	it := New(m, []float64{0, 10}, Multipliers{ZL: []float64{2, 0}, ZU: []float64{0, 5}, Sigma: 1})
	// x1 at its lower bound 0 with z_L=2: |2*(0-0)|=0.
	// x2 at its upper bound 10 with z_U=5: |5*(10-10)|=0.
	assert.Equal(t, 0.0, it.ComplementarityError())

	it2 := New(m, []float64{0.1, 9.9}, Multipliers{ZL: []float64{2, 0}, ZU: []float64{0, 5}, Sigma: 1})
	// x1 drifted off its bound: |2*(0.1-0)|=0.2; x2: |5*(10-9.9)|=0.5.
	assert.InDelta(t, 0.5, it2.ComplementarityError(), 1e-12)
}

func TestProjectBounds_ClampsAndInvalidatesCache(t *testing.T) {
	m := &boundedPair{}
	it := New(m, []float64{-1, 20}, Multipliers{Sigma: 1})

	it.ProjectBounds()

	assert.InDelta(t, 0, it.X[0], 1e-12)
	assert.InDelta(t, 10, it.X[1], 1e-12)
	assert.False(t, it.cache.objective.computed)
}

func TestMultipliers_NormalizeRescalesBySigma(t *testing.T) {
	m := Multipliers{Lambda: []float64{4}, ZL: []float64{2}, ZU: []float64{6}, Sigma: 2}
	m.Normalize()

	assert.InDelta(t, 2, m.Lambda[0], 1e-12)
	assert.InDelta(t, 1, m.ZL[0], 1e-12)
	assert.InDelta(t, 3, m.ZU[0], 1e-12)
	assert.Equal(t, 1.0, m.Sigma)
}

func TestMultipliers_NormalizeIsNoOpAtZeroOrOne(t *testing.T) {
	m := Multipliers{Lambda: []float64{4}, Sigma: 0}
	m.Normalize()
	assert.InDelta(t, 4, m.Lambda[0], 1e-12)
	assert.Equal(t, 0.0, m.Sigma)
}

func TestDirection_IsUsable(t *testing.T) {
	assert.True(t, (&Direction{Status: Optimal}).IsUsable())
	assert.True(t, (&Direction{Status: SuboptimalButUsable}).IsUsable())
	assert.False(t, (&Direction{Status: Infeasible}).IsUsable())
	assert.False(t, (&Direction{Status: Error}).IsUsable())
}

func TestClearBoundaryActiveSet_DropsTrustRegionBoundaryNotOwnBound(t *testing.T) {
	x := []float64{5}
	lower := []float64{0}
	upper := []float64{10}
	delta := 1.0

	// d hits the trust-region radius exactly (-delta) while x's own lower
	// bound (0) is nowhere near x+d=4.
	d := &Direction{D: []float64{-1}, Mult: Multipliers{ZL: []float64{7}}, AtLowerBound: []int{0}}
	d.ClearBoundaryActiveSet(x, lower, upper, delta, 1e-8)

	require.Empty(t, d.AtLowerBound)
	assert.Equal(t, 0.0, d.Mult.ZL[0])
}

func TestClearBoundaryActiveSet_KeepsGenuineOwnBoundActive(t *testing.T) {
	x := []float64{1}
	lower := []float64{0}
	upper := []float64{10}
	delta := 5.0

	// d does not reach the trust-region radius, and x+d lands exactly on
	// its own lower bound, so the active-set entry must survive.
	d := &Direction{D: []float64{-1}, Mult: Multipliers{ZL: []float64{7}}, AtLowerBound: []int{0}}
	d.ClearBoundaryActiveSet(x, lower, upper, delta, 1e-8)

	require.Equal(t, []int{0}, d.AtLowerBound)
	assert.InDelta(t, 7, d.Mult.ZL[0], 1e-12)
}

func TestClearBoundaryActiveSet_InfiniteRadiusIsNoOp(t *testing.T) {
	d := &Direction{D: []float64{-100}, Mult: Multipliers{ZL: []float64{7}}, AtLowerBound: []int{0}}
	d.ClearBoundaryActiveSet([]float64{5}, []float64{0}, []float64{10}, math.Inf(1), 1e-8)

	require.Equal(t, []int{0}, d.AtLowerBound)
	assert.InDelta(t, 7, d.Mult.ZL[0], 1e-12)
}
