// Copyright ©2025 curioloop. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package iterate

import (
	"math"

	"github.com/curioloop/nlpcore/model"
)

// cache holds the memoized evaluations of one Iterate. Each quantity has its
// own computed flag so that, e.g., requesting the Lagrangian gradient forces
// the objective/constraint gradients to be evaluated but does not force a
// re-evaluation of the constraint values already computed for the violation
// residual.
type cache struct {
	objective struct {
		computed bool
		value    float64
	}
	constraints struct {
		computed bool
		value    []float64
	}
	objectiveGrad struct {
		computed bool
		value    []float64
	}
	jacobian struct {
		computed bool
		value    [][]float64 // dense row per constraint, n columns
	}
	lagrangianGrad struct {
		computed bool
		value    []float64
	}
}

// Iterate is a primal point x together with its Multipliers and the
// memoized derivative/residual cache. Assigning a new
// X (via Reset) invalidates every cached quantity; Iterate guarantees
// evaluate-on-demand with memoization until then.
type Iterate struct {
	Model model.Model
	X     []float64
	Mult  Multipliers

	cache cache
}

// New creates an Iterate at x with the given multipliers. x is copied.
func New(m model.Model, x []float64, mult Multipliers) *Iterate {
	it := &Iterate{Model: m, X: append([]float64(nil), x...), Mult: mult}
	return it
}

// Reset replaces X (copying it) and invalidates every memoized quantity.
func (it *Iterate) Reset(x []float64) {
	if cap(it.X) >= len(x) {
		it.X = it.X[:len(x)]
		copy(it.X, x)
	} else {
		it.X = append([]float64(nil), x...)
	}
	it.cache = cache{}
}

// Clone returns an independent copy that shares no backing arrays with it —
// used to materialize a trial iterate that must never alias current_iterate
// (a trial iterate must never alias the current one).
func (it *Iterate) Clone() *Iterate {
	return New(it.Model, it.X, it.Mult.Clone())
}

func (it *Iterate) Objective() float64 {
	if !it.cache.objective.computed {
		it.cache.objective.value = it.Model.EvaluateObjective(it.X)
		it.cache.objective.computed = true
	}
	return it.cache.objective.value
}

func (it *Iterate) Constraints() []float64 {
	if !it.cache.constraints.computed {
		m := it.Model.NumConstraints()
		v := make([]float64, m)
		it.Model.EvaluateConstraints(it.X, v)
		it.cache.constraints.value = v
		it.cache.constraints.computed = true
	}
	return it.cache.constraints.value
}

func (it *Iterate) ObjectiveGradient() []float64 {
	if !it.cache.objectiveGrad.computed {
		n := it.Model.NumVariables()
		g := make([]float64, n)
		it.Model.EvaluateObjectiveGradient(it.X).ForEach(func(i int, v float64) { g[i] = v })
		it.cache.objectiveGrad.value = g
		it.cache.objectiveGrad.computed = true
	}
	return it.cache.objectiveGrad.value
}

// Jacobian returns the dense constraint Jacobian, one row per constraint.
func (it *Iterate) Jacobian() [][]float64 {
	if !it.cache.jacobian.computed {
		n := it.Model.NumVariables()
		rows := it.Model.EvaluateConstraintJacobian(it.X)
		dense := make([][]float64, len(rows))
		for j, row := range rows {
			r := make([]float64, n)
			row.ForEach(func(i int, v float64) { r[i] = v })
			dense[j] = r
		}
		it.cache.jacobian.value = dense
		it.cache.jacobian.computed = true
	}
	return it.cache.jacobian.value
}

// LagrangianGradient returns ∇L(x,σ,λ) = σ∇f(x) - Jᵀλ.
func (it *Iterate) LagrangianGradient() []float64 {
	if !it.cache.lagrangianGrad.computed {
		n := it.Model.NumVariables()
		g := make([]float64, n)
		objGrad := it.ObjectiveGradient()
		for i := range g {
			g[i] = it.Mult.Sigma * objGrad[i]
		}
		jac := it.Jacobian()
		lambda := it.Mult.Lambda
		for j, row := range jac {
			if j >= len(lambda) {
				break
			}
			lj := lambda[j]
			if lj == 0 {
				continue
			}
			for i, v := range row {
				g[i] -= lj * v
			}
		}
		it.cache.lagrangianGrad.value = g
		it.cache.lagrangianGrad.computed = true
	}
	return it.cache.lagrangianGrad.value
}

// ConstraintViolation is ‖violation(c(x))‖ (1-norm over bound-exceedance).
func (it *Iterate) ConstraintViolation() float64 {
	c := it.Constraints()
	total := 0.0
	for j, v := range c {
		cl, cu := it.Model.ConstraintLowerBound(j), it.Model.ConstraintUpperBound(j)
		if v < cl {
			total += cl - v
		} else if v > cu {
			total += v - cu
		}
	}
	return total
}

// StationarityError is ‖∇L‖_∞ scaled by
// max(1, ‖λ‖_∞, (‖z_L‖_∞ + ‖z_U‖_∞) / max(s_max, 1)) per the KKT
// stationarity residual.
func (it *Iterate) StationarityError(sMax float64) float64 {
	g := it.LagrangianGradient()
	gNorm := infNorm(g)
	scale := math.Max(1, infNorm(it.Mult.Lambda))
	scale = math.Max(scale, (infNorm(it.Mult.ZL)+infNorm(it.Mult.ZU))/math.Max(sMax, 1))
	return gNorm / scale
}

// ComplementarityError is the max over bound-active coordinates of
// |z*(x-bound)|.
func (it *Iterate) ComplementarityError() float64 {
	maxC := 0.0
	n := it.Model.NumVariables()
	for i := 0; i < n; i++ {
		lo, hi := it.Model.VariableLowerBound(i), it.Model.VariableUpperBound(i)
		if !math.IsInf(lo, -1) && i < len(it.Mult.ZL) {
			maxC = math.Max(maxC, math.Abs(it.Mult.ZL[i]*(it.X[i]-lo)))
		}
		if !math.IsInf(hi, 1) && i < len(it.Mult.ZU) {
			maxC = math.Max(maxC, math.Abs(it.Mult.ZU[i]*(hi-it.X[i])))
		}
	}
	return maxC
}

// KKTResidual is the max of stationarity, feasibility and complementarity
// errors.
func (it *Iterate) KKTResidual(sMax float64) float64 {
	return math.Max(it.StationarityError(sMax), math.Max(it.ConstraintViolation(), it.ComplementarityError()))
}

// ProjectBounds clamps X into [x_L, x_U] componentwise, restoring exact
// bound feasibility after numerical drift.
func (it *Iterate) ProjectBounds() {
	n := it.Model.NumVariables()
	for i := 0; i < n; i++ {
		lo, hi := it.Model.VariableLowerBound(i), it.Model.VariableUpperBound(i)
		if it.X[i] < lo {
			it.X[i] = lo
		} else if it.X[i] > hi {
			it.X[i] = hi
		}
	}
	it.cache = cache{}
}

func infNorm(v []float64) float64 {
	m := 0.0
	for _, x := range v {
		if a := math.Abs(x); a > m {
			m = a
		}
	}
	return m
}
