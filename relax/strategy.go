// Copyright ©2025 curioloop. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package relax implements the constraint-relaxation strategy: it owns a
// subproblem.Engine and switches between an elastic-relaxed optimality
// phase and a violation-only feasibility phase, recovering the original
// n-dimensional direction and the elastic active-set partition from
// whichever reform.Model variant is currently active.
package relax

import (
	"github.com/curioloop/nlpcore/iterate"
	"github.com/curioloop/nlpcore/model"
	"github.com/curioloop/nlpcore/reform"
	"github.com/curioloop/nlpcore/subproblem"
)

// Phase is the relaxation strategy's operating mode.
type Phase int

const (
	Optimality Phase = iota
	Feasibility
)

func (p Phase) String() string {
	if p == Feasibility {
		return "Feasibility"
	}
	return "Optimality"
}

// EngineFactory builds a fresh subproblem.Engine bound to m. Strategy calls
// it once at construction and again on every phase switch.
type EngineFactory func(m model.Model) subproblem.Engine

// Strategy is the relax package's orchestrator.
type Strategy struct {
	Model     model.Model
	NewEngine EngineFactory
	Rho       float64
	Relaxed   []int // constraint indices carrying an elastic pair; defaults to all

	phase       Phase
	engine      subproblem.Engine
	elasticModel *reform.ElasticRelaxation
	n           int
}

// NewStrategy creates a Strategy in the optimality phase, relaxing every
// constraint with penalty weight rho.
func NewStrategy(m model.Model, factory EngineFactory, rho float64) *Strategy {
	relaxed := make([]int, m.NumConstraints())
	for j := range relaxed {
		relaxed[j] = j
	}
	s := &Strategy{Model: m, NewEngine: factory, Rho: rho, Relaxed: relaxed, n: m.NumVariables()}
	s.elasticModel = reform.NewElasticRelaxation(m, relaxed, rho)
	s.phase = Optimality
	s.engine = factory(s.elasticModel)
	return s
}

// Phase reports the current operating mode.
func (s *Strategy) Phase() Phase { return s.phase }

// EnterFeasibilityPhase switches to the violation-only objective.
// A no-op if already in that phase.
func (s *Strategy) EnterFeasibilityPhase() {
	if s.phase == Feasibility {
		return
	}
	s.phase = Feasibility
	s.engine = s.NewEngine(reform.FeasibilityRestoration{Inner: s.Model})
}

// ReturnToOptimality switches back to the elastic-relaxed objective. A
// no-op if already in that phase.
func (s *Strategy) ReturnToOptimality() {
	if s.phase == Optimality {
		return
	}
	s.phase = Optimality
	s.engine = s.NewEngine(s.elasticModel)
}

// augmentedIterate builds a fresh iterate.Iterate over the currently active
// reform.Model, padding X with zeros for any synthetic elastic coordinates
// the active model adds beyond the original n (elastics are QP-local: they
// never carry state across outer iterations, unlike x itself).
func (s *Strategy) augmentedIterate(it *iterate.Iterate, activeModel model.Model) *iterate.Iterate {
	total := activeModel.NumVariables()
	x := make([]float64, total)
	copy(x, it.X[:s.n])

	mult := it.Mult.Clone()
	if len(mult.ZL) < total {
		mult.ZL = append(mult.ZL, make([]float64, total-len(mult.ZL))...)
	}
	if len(mult.ZU) < total {
		mult.ZU = append(mult.ZU, make([]float64, total-len(mult.ZU))...)
	}
	if s.phase == Feasibility {
		mult.Sigma = 1
		mult.Lambda = make([]float64, len(mult.Lambda))
	}
	return iterate.New(activeModel, x, mult)
}

// ComputeDirection asks the active engine for a direction, then restricts
// it back to the original n primal coordinates and classifies every
// relaxed constraint's active elastic side.
func (s *Strategy) ComputeDirection(it *iterate.Iterate, delta float64) (*iterate.Direction, error) {
	var activeModel model.Model
	if s.phase == Feasibility {
		activeModel = reform.FeasibilityRestoration{Inner: s.Model}
	} else {
		activeModel = s.elasticModel
	}
	augIt := s.augmentedIterate(it, activeModel)

	dir, err := s.engine.ComputeDirection(augIt, delta)
	return s.restrict(dir, err)
}

// restrict truncates an engine direction sized to the active reform.Model
// back to the original n primal coordinates, shared by ComputeDirection and
// UpdateBounds so a warm bound-only re-solve never leaks augmented-dimension
// data to the mechanism layer.
func (s *Strategy) restrict(dir *iterate.Direction, err error) (*iterate.Direction, error) {
	if err != nil || dir == nil || !dir.IsUsable() {
		return dir, err
	}

	out := &iterate.Direction{
		D:      append([]float64(nil), dir.D[:s.n]...),
		Status: dir.Status,
		Mult: iterate.Multipliers{
			Lambda: append([]float64(nil), dir.Mult.Lambda...),
			ZL:     append([]float64(nil), dir.Mult.ZL[:s.n]...),
			ZU:     append([]float64(nil), dir.Mult.ZU[:s.n]...),
			Sigma:  dir.Mult.Sigma,
		},
		Objective:           dir.Objective,
		ObjectiveMultiplier: dir.Mult.Sigma,
	}
	out.ComputeNorm()

	for _, i := range dir.AtLowerBound {
		if i < s.n {
			out.AtLowerBound = append(out.AtLowerBound, i)
		}
	}
	for _, i := range dir.AtUpperBound {
		if i < s.n {
			out.AtUpperBound = append(out.AtUpperBound, i)
		}
	}

	if s.phase == Optimality {
		full := make([]float64, s.elasticModel.NumVariables())
		copy(full, dir.D)
		partition := make(iterate.ConstraintPartition, s.Model.NumConstraints())
		for j := 0; j < len(partition); j++ {
			side, _ := s.elasticModel.Elastics.Side(j, full)
			partition[j] = side
		}
		out.Partition = partition
	} else if dir.Partition != nil {
		out.Partition = dir.Partition
	}

	return out, nil
}

func (s *Strategy) PredictedReduction(it *iterate.Iterate, dir *iterate.Direction) float64 {
	return s.engine.PredictedReduction(it, dir)
}

func (s *Strategy) SupportsWarmUpdateBounds() bool { return s.engine.SupportsWarmUpdateBounds() }

func (s *Strategy) UpdateBounds(delta float64) (*iterate.Direction, error) {
	dir, err := s.engine.UpdateBounds(delta)
	return s.restrict(dir, err)
}
