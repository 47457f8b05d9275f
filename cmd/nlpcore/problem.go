// Copyright ©2025 curioloop. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package main

import (
	"encoding/json"
	"fmt"
	"math"
	"os"

	"gonum.org/v1/gonum/floats"

	"github.com/curioloop/nlpcore/model"
)

// problemFile is the on-disk shape of a demo quadratic program:
//
//	minimize   ½xᵀQx + qᵀx
//	subject to c_L ≤ Ax ≤ c_U,  x_L ≤ x ≤ x_U
//
// Q and A are dense; this loader exists to exercise the CLI end-to-end on
// small hand-written problems, not to be a general modeling front-end.
type problemFile struct {
	VariableLower   []float64   `json:"variable_lower"`
	VariableUpper   []float64   `json:"variable_upper"`
	ConstraintLower []float64   `json:"constraint_lower"`
	ConstraintUpper []float64   `json:"constraint_upper"`
	Q               [][]float64 `json:"q"`
	Linear          []float64   `json:"linear"`
	A               [][]float64 `json:"a"`
	X0              []float64   `json:"x0"`
}

func loadProblem(path string) (model.Model, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading problem file: %w", err)
	}
	var pf problemFile
	if err := json.Unmarshal(data, &pf); err != nil {
		return nil, fmt.Errorf("parsing problem file: %w", err)
	}

	n := len(pf.VariableLower)
	if len(pf.VariableUpper) != n || len(pf.Linear) != n {
		return nil, fmt.Errorf("problem file: variable_lower/variable_upper/linear must all have length %d", n)
	}
	if len(pf.Q) != 0 && len(pf.Q) != n {
		return nil, fmt.Errorf("problem file: q must be %d×%d", n, n)
	}
	mc := len(pf.ConstraintLower)
	if len(pf.ConstraintUpper) != mc || len(pf.A) != mc {
		return nil, fmt.Errorf("problem file: constraint_lower/constraint_upper/a must all have length %d", mc)
	}

	x0 := pf.X0
	if x0 == nil {
		x0 = make([]float64, n)
	}

	return quadraticProgram{
		n: n, m: mc,
		vl: pf.VariableLower, vu: pf.VariableUpper,
		cl: pf.ConstraintLower, cu: pf.ConstraintUpper,
		q: pf.Q, linear: pf.Linear, a: pf.A, x0: x0,
	}, nil
}

type quadraticProgram struct {
	n, m       int
	vl, vu     []float64
	cl, cu     []float64
	q          [][]float64
	linear     []float64
	a          [][]float64
	x0         []float64
}

func (p quadraticProgram) NumVariables() int      { return p.n }
func (p quadraticProgram) NumConstraints() int    { return p.m }
func (quadraticProgram) ObjectiveSign() float64   { return 1 }
func (p quadraticProgram) VariableLowerBound(i int) float64   { return boundOrInf(p.vl[i], -1) }
func (p quadraticProgram) VariableUpperBound(i int) float64   { return boundOrInf(p.vu[i], 1) }
func (p quadraticProgram) ConstraintLowerBound(j int) float64 { return boundOrInf(p.cl[j], -1) }
func (p quadraticProgram) ConstraintUpperBound(j int) float64 { return boundOrInf(p.cu[j], 1) }

// boundOrInf treats a JSON null (decoded as 0 by the omitted-slot convention)
// as indistinguishable from a real 0, so this loader instead recognizes
// ±1e30 as the modeler's spelling of infinity, matching common NLP file
// formats.
func boundOrInf(v float64, sign float64) float64 {
	if math.Abs(v) >= 1e30 {
		return math.Inf(int(sign))
	}
	return v
}

func (p quadraticProgram) EvaluateObjective(x []float64) float64 {
	obj := floats.Dot(p.linear, x)
	if p.q != nil {
		qx := make([]float64, p.n)
		for i, row := range p.q {
			qx[i] = floats.Dot(row, x)
		}
		obj += 0.5 * floats.Dot(x, qx)
	}
	return obj
}

func (p quadraticProgram) EvaluateObjectiveGradient(x []float64) model.SparseVector {
	g := append([]float64(nil), p.linear...)
	if p.q != nil {
		for i, row := range p.q {
			g[i] += floats.Dot(row, x)
		}
	}
	return model.DenseVector(g)
}

func (p quadraticProgram) EvaluateConstraints(x []float64, c []float64) {
	for j, row := range p.a {
		c[j] = floats.Dot(row, x)
	}
}

func (p quadraticProgram) EvaluateConstraintJacobian([]float64) []model.SparseVector {
	rows := make([]model.SparseVector, p.m)
	for j, row := range p.a {
		rows[j] = model.DenseVector(row)
	}
	return rows
}

func (p quadraticProgram) EvaluateLagrangianHessian(x []float64, sigma float64, lambda []float64) []model.HessianEntry {
	if p.q == nil {
		return nil
	}
	entries := make([]model.HessianEntry, 0, p.n*p.n)
	for i := 0; i < p.n; i++ {
		for j := i; j < p.n; j++ {
			if v := p.q[i][j]; v != 0 {
				entries = append(entries, model.HessianEntry{Row: i, Col: j, Value: sigma * v})
			}
		}
	}
	return entries
}

func (p quadraticProgram) InitialPrimalPoint() []float64 { return append([]float64(nil), p.x0...) }
func (quadraticProgram) InitialDualPoint() (lambda, zL, zU []float64) { return nil, nil, nil }
