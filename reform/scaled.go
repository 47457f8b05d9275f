// Copyright ©2025 curioloop. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package reform

import "github.com/curioloop/nlpcore/model"

// Scaled presents Inner's problem with a fixed positive objective scale and
// per-constraint scale factors applied, in the style of a gradient-based
// NLP scaling: variables and bounds are left untouched, only f and c (and
// their derivatives) are rescaled. ConScale entries default to 1 when
// shorter than NumConstraints().
//
// Because scaling is linear, the Lagrangian Hessian of the scaled problem
// at (sigma, lambda) equals Inner's own Hessian evaluated at
// (ObjScale*sigma, ConScale⊙lambda) — no separate curvature term is needed.
type Scaled struct {
	Inner    model.Model
	ObjScale float64
	ConScale []float64
}

func (s Scaled) conScale(j int) float64 {
	if j < len(s.ConScale) && s.ConScale[j] != 0 {
		return s.ConScale[j]
	}
	return 1
}

func (s Scaled) NumVariables() int      { return s.Inner.NumVariables() }
func (s Scaled) NumConstraints() int    { return s.Inner.NumConstraints() }
func (s Scaled) ObjectiveSign() float64 { return s.Inner.ObjectiveSign() }

func (s Scaled) VariableLowerBound(i int) float64 { return s.Inner.VariableLowerBound(i) }
func (s Scaled) VariableUpperBound(i int) float64 { return s.Inner.VariableUpperBound(i) }

func (s Scaled) ConstraintLowerBound(j int) float64 {
	return s.scaleBound(s.Inner.ConstraintLowerBound(j), s.conScale(j))
}

func (s Scaled) ConstraintUpperBound(j int) float64 {
	return s.scaleBound(s.Inner.ConstraintUpperBound(j), s.conScale(j))
}

func (s Scaled) scaleBound(b, scale float64) float64 {
	if b == 0 {
		return 0
	}
	return b * scale
}

func (s Scaled) EvaluateObjective(x []float64) float64 {
	return s.ObjScale * s.Inner.EvaluateObjective(x)
}

func (s Scaled) EvaluateObjectiveGradient(x []float64) model.SparseVector {
	g := s.Inner.EvaluateObjectiveGradient(x)
	n := s.Inner.NumVariables()
	out := make(model.DenseVector, n)
	g.ForEach(func(i int, v float64) { out[i] = v * s.ObjScale })
	return out
}

func (s Scaled) EvaluateConstraints(x []float64, c []float64) {
	s.Inner.EvaluateConstraints(x, c)
	for j := range c {
		c[j] *= s.conScale(j)
	}
}

func (s Scaled) EvaluateConstraintJacobian(x []float64) []model.SparseVector {
	rows := s.Inner.EvaluateConstraintJacobian(x)
	n := s.Inner.NumVariables()
	out := make([]model.SparseVector, len(rows))
	for j, row := range rows {
		scale := s.conScale(j)
		dv := make(model.DenseVector, n)
		row.ForEach(func(i int, v float64) { dv[i] = v * scale })
		out[j] = dv
	}
	return out
}

func (s Scaled) EvaluateLagrangianHessian(x []float64, sigma float64, lambda []float64) []model.HessianEntry {
	scaledLambda := make([]float64, len(lambda))
	for j, lj := range lambda {
		scaledLambda[j] = lj * s.conScale(j)
	}
	return s.Inner.EvaluateLagrangianHessian(x, sigma*s.ObjScale, scaledLambda)
}

func (s Scaled) InitialPrimalPoint() []float64 { return s.Inner.InitialPrimalPoint() }

func (s Scaled) InitialDualPoint() (lambda, zL, zU []float64) {
	lambda, zL, zU = s.Inner.InitialDualPoint()
	scaled := make([]float64, len(lambda))
	for j, lj := range lambda {
		scaled[j] = lj * s.conScale(j)
	}
	return scaled, zL, zU
}
