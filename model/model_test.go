// Copyright ©2025 curioloop. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package model

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClassifyBound(t *testing.T) {
	inf := math.Inf(1)
	ninf := math.Inf(-1)

	assert.Equal(t, Unbounded, ClassifyBound(ninf, inf))
	assert.Equal(t, BoundedLower, ClassifyBound(0, inf))
	assert.Equal(t, BoundedUpper, ClassifyBound(ninf, 10))
	assert.Equal(t, BoundedBoth, ClassifyBound(0, 10))
	assert.Equal(t, Equal, ClassifyBound(5, 5))
}

func TestVariableAndConstraintBoundType(t *testing.T) {
	m := fixedBoundsModel{}
	assert.Equal(t, BoundedBoth, VariableBoundType(m, 0))
	assert.Equal(t, Equal, ConstraintBoundType(m, 0))
}

func TestDenseVector_ForEachSkipsZeros(t *testing.T) {
	v := DenseVector{0, 2, 0, 4}
	assert.Equal(t, 4, v.Len())

	var seen []int
	v.ForEach(func(i int, val float64) { seen = append(seen, i) })
	assert.Equal(t, []int{1, 3}, seen)
}

// fixedBoundsModel is a minimal Model implementation exercising only the
// bound accessors; the other methods are unused by these tests.
type fixedBoundsModel struct{}

func (fixedBoundsModel) NumVariables() int      { return 1 }
func (fixedBoundsModel) NumConstraints() int    { return 1 }
func (fixedBoundsModel) ObjectiveSign() float64 { return 1 }
func (fixedBoundsModel) VariableLowerBound(int) float64   { return 0 }
func (fixedBoundsModel) VariableUpperBound(int) float64   { return 10 }
func (fixedBoundsModel) ConstraintLowerBound(int) float64 { return 3 }
func (fixedBoundsModel) ConstraintUpperBound(int) float64 { return 3 }
func (fixedBoundsModel) EvaluateObjective([]float64) float64 { return 0 }
func (fixedBoundsModel) EvaluateObjectiveGradient([]float64) SparseVector {
	return DenseVector{0}
}
func (fixedBoundsModel) EvaluateConstraints([]float64, []float64)              {}
func (fixedBoundsModel) EvaluateConstraintJacobian([]float64) []SparseVector { return nil }
func (fixedBoundsModel) EvaluateLagrangianHessian([]float64, float64, []float64) []HessianEntry {
	return nil
}
func (fixedBoundsModel) InitialPrimalPoint() []float64                  { return []float64{0} }
func (fixedBoundsModel) InitialDualPoint() (lambda, zL, zU []float64) { return nil, nil, nil }
