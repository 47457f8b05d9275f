// Copyright ©2025 curioloop. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package reform

import "github.com/curioloop/nlpcore/model"

// FeasibilityRestoration presents Inner's constraints unchanged but replaces
// the objective with one half the sum of squared bound violations, so the
// feasibility phase's objective becomes constraint violation only.
// relax.Strategy swaps the active model to a FeasibilityRestoration value
// when it enters the feasibility phase and swaps back on return to
// optimality; it always drives the swapped-in model with Multipliers.Sigma
// = 1 since here the "objective" being minimized is the violation itself,
// not a σ-weighted blend with the original f.
//
// The Hessian is the Gauss–Newton approximation JᵀJ restricted to violated
// rows, dropping the second-order curvature of c itself — the standard
// simplification for a restoration-phase model, and always positive
// semidefinite so hessian.Convexified rarely needs to act on it.
type FeasibilityRestoration struct {
	Inner model.Model
}

func (r FeasibilityRestoration) NumVariables() int      { return r.Inner.NumVariables() }
func (r FeasibilityRestoration) NumConstraints() int    { return r.Inner.NumConstraints() }
func (r FeasibilityRestoration) ObjectiveSign() float64 { return 1 }

func (r FeasibilityRestoration) VariableLowerBound(i int) float64 { return r.Inner.VariableLowerBound(i) }
func (r FeasibilityRestoration) VariableUpperBound(i int) float64 { return r.Inner.VariableUpperBound(i) }
func (r FeasibilityRestoration) ConstraintLowerBound(j int) float64 {
	return r.Inner.ConstraintLowerBound(j)
}
func (r FeasibilityRestoration) ConstraintUpperBound(j int) float64 {
	return r.Inner.ConstraintUpperBound(j)
}

// violation returns, for every constraint, the signed bound exceedance:
// positive above c_U, negative below c_L, zero if feasible.
func (r FeasibilityRestoration) violation(c []float64) []float64 {
	m := r.Inner.NumConstraints()
	v := make([]float64, m)
	for j := 0; j < m; j++ {
		cl, cu := r.Inner.ConstraintLowerBound(j), r.Inner.ConstraintUpperBound(j)
		switch {
		case c[j] < cl:
			v[j] = c[j] - cl
		case c[j] > cu:
			v[j] = c[j] - cu
		}
	}
	return v
}

func (r FeasibilityRestoration) EvaluateObjective(x []float64) float64 {
	m := r.Inner.NumConstraints()
	c := make([]float64, m)
	r.Inner.EvaluateConstraints(x, c)
	v := r.violation(c)
	sum := 0.0
	for _, vj := range v {
		sum += vj * vj
	}
	return 0.5 * sum
}

func (r FeasibilityRestoration) EvaluateObjectiveGradient(x []float64) model.SparseVector {
	m := r.Inner.NumConstraints()
	n := r.Inner.NumVariables()
	c := make([]float64, m)
	r.Inner.EvaluateConstraints(x, c)
	v := r.violation(c)
	rows := r.Inner.EvaluateConstraintJacobian(x)

	g := make(model.DenseVector, n)
	for j, vj := range v {
		if vj == 0 || j >= len(rows) {
			continue
		}
		rows[j].ForEach(func(i int, a float64) { g[i] += vj * a })
	}
	return g
}

func (r FeasibilityRestoration) EvaluateConstraints(x []float64, c []float64) {
	r.Inner.EvaluateConstraints(x, c)
}

func (r FeasibilityRestoration) EvaluateConstraintJacobian(x []float64) []model.SparseVector {
	return r.Inner.EvaluateConstraintJacobian(x)
}

func (r FeasibilityRestoration) EvaluateLagrangianHessian(x []float64, sigma float64, lambda []float64) []model.HessianEntry {
	n := r.Inner.NumVariables()
	m := r.Inner.NumConstraints()
	c := make([]float64, m)
	r.Inner.EvaluateConstraints(x, c)
	v := r.violation(c)
	rows := r.Inner.EvaluateConstraintJacobian(x)

	dense := make([]float64, n*n)
	grads := make([][]float64, m)
	for j, vj := range v {
		if vj == 0 || j >= len(rows) {
			continue
		}
		row := make([]float64, n)
		rows[j].ForEach(func(i int, a float64) { row[i] = a })
		grads[j] = row
	}
	for _, row := range grads {
		if row == nil {
			continue
		}
		for i := 0; i < n; i++ {
			if row[i] == 0 {
				continue
			}
			for k := i; k < n; k++ {
				dense[i*n+k] += sigma * row[i] * row[k]
			}
		}
	}

	entries := make([]model.HessianEntry, 0, n)
	for i := 0; i < n; i++ {
		for k := i; k < n; k++ {
			if dense[i*n+k] != 0 {
				entries = append(entries, model.HessianEntry{Row: i, Col: k, Value: dense[i*n+k]})
			}
		}
	}
	return entries
}

func (r FeasibilityRestoration) InitialPrimalPoint() []float64 { return r.Inner.InitialPrimalPoint() }

func (r FeasibilityRestoration) InitialDualPoint() (lambda, zL, zU []float64) {
	m := r.Inner.NumConstraints()
	_, zL, zU = r.Inner.InitialDualPoint()
	return make([]float64, m), zL, zU
}
