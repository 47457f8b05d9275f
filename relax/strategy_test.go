// Copyright ©2025 curioloop. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package relax

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/curioloop/nlpcore/iterate"
	"github.com/curioloop/nlpcore/model"
	"github.com/curioloop/nlpcore/subproblem"
)

// pairModel is min x1+x2 s.t. x1+x2 in [1,3], unbounded variables.
type pairModel struct{}

func (pairModel) NumVariables() int      { return 2 }
func (pairModel) NumConstraints() int    { return 1 }
func (pairModel) ObjectiveSign() float64 { return 1 }
func (pairModel) VariableLowerBound(int) float64   { return math.Inf(-1) }
func (pairModel) VariableUpperBound(int) float64   { return math.Inf(1) }
func (pairModel) ConstraintLowerBound(int) float64 { return 1 }
func (pairModel) ConstraintUpperBound(int) float64 { return 3 }
func (pairModel) EvaluateObjective(x []float64) float64 { return x[0] + x[1] }
func (pairModel) EvaluateObjectiveGradient([]float64) model.SparseVector {
	return model.DenseVector{1, 1}
}
func (pairModel) EvaluateConstraints(x []float64, c []float64) { c[0] = x[0] + x[1] }
func (pairModel) EvaluateConstraintJacobian([]float64) []model.SparseVector {
	return []model.SparseVector{model.DenseVector{1, 1}}
}
func (pairModel) EvaluateLagrangianHessian([]float64, float64, []float64) []model.HessianEntry {
	return nil
}
func (pairModel) InitialPrimalPoint() []float64                  { return []float64{0, 0} }
func (pairModel) InitialDualPoint() (lambda, zL, zU []float64) { return nil, nil, nil }

// stubEngine returns a fixed Direction regardless of the iterate passed in,
// sized to whatever model the iterate was built against.
type stubEngine struct {
	dir *iterate.Direction
}

func (s *stubEngine) ComputeDirection(it *iterate.Iterate, delta float64) (*iterate.Direction, error) {
	return s.dir, nil
}
func (s *stubEngine) PredictedReduction(*iterate.Iterate, *iterate.Direction) float64 { return 0 }
func (s *stubEngine) SupportsWarmUpdateBounds() bool                                 { return true }
func (s *stubEngine) UpdateBounds(delta float64) (*iterate.Direction, error) {
	return s.dir, nil
}

func newTestStrategy(dir *iterate.Direction) *Strategy {
	return NewStrategy(pairModel{}, func(model.Model) subproblem.Engine {
		return &stubEngine{dir: dir}
	}, 100)
}

func TestNewStrategy_StartsInOptimalityPhase(t *testing.T) {
	s := newTestStrategy(nil)
	assert.Equal(t, Optimality, s.Phase())
	assert.Equal(t, "Optimality", s.Phase().String())
}

func TestPhaseTransitions_AreIdempotent(t *testing.T) {
	s := newTestStrategy(nil)

	s.EnterFeasibilityPhase()
	assert.Equal(t, Feasibility, s.Phase())
	s.EnterFeasibilityPhase() // no-op
	assert.Equal(t, Feasibility, s.Phase())

	s.ReturnToOptimality()
	assert.Equal(t, Optimality, s.Phase())
	s.ReturnToOptimality() // no-op
	assert.Equal(t, Optimality, s.Phase())
}

func TestComputeDirection_RestrictsToOriginalDimensionAndClassifiesElastic(t *testing.T) {
	dir := &iterate.Direction{
		D:      []float64{0, 0, 2}, // p_0 = 2
		Status: iterate.Optimal,
		Mult: iterate.Multipliers{
			Lambda: []float64{0},
			ZL:     []float64{0, 0, 0},
			ZU:     []float64{0, 0, 0},
			Sigma:  1,
		},
		AtLowerBound: []int{2}, // synthetic var pinned at its own lower bound
	}
	s := newTestStrategy(dir)

	it := iterate.New(pairModel{}, []float64{2, 3}, iterate.Multipliers{Lambda: []float64{0}, Sigma: 1})
	out, err := s.ComputeDirection(it, math.Inf(1))
	require.NoError(t, err)

	require.Len(t, out.D, 2)
	assert.Empty(t, out.AtLowerBound, "synthetic-variable bound should not leak into the restricted direction")
	require.Len(t, out.Partition, 1)
	assert.Equal(t, iterate.InfeasibleAbove, out.Partition[0])
}

func TestComputeDirection_FeasibilityPhasePassesThroughEnginePartition(t *testing.T) {
	dir := &iterate.Direction{
		D:         []float64{1, 1},
		Status:    iterate.Optimal,
		Mult:      iterate.Multipliers{ZL: []float64{0, 0}, ZU: []float64{0, 0}, Sigma: 1},
		Partition: iterate.ConstraintPartition{iterate.InfeasibleBelow},
	}
	s := newTestStrategy(dir)
	s.EnterFeasibilityPhase()

	it := iterate.New(pairModel{}, []float64{0, 0}, iterate.Multipliers{Sigma: 1})
	out, err := s.ComputeDirection(it, math.Inf(1))
	require.NoError(t, err)

	require.Len(t, out.Partition, 1)
	assert.Equal(t, iterate.InfeasibleBelow, out.Partition[0])
}
