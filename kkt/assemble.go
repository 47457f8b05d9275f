// Copyright ©2025 curioloop. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package kkt

import (
	"github.com/curioloop/nlpcore/model"
	"github.com/curioloop/nlpcore/sparse"
)

// Assembler builds the augmented system
//
//	⎡ H   Jᵀ ⎤
//	⎣ J   0  ⎦
//
// (upper-triangular storage; the -δc·I block lives only in the reserved
// diagonal slots Factorize writes to) from a Hessian entry list and a dense
// Jacobian, resetting and reusing its COO builder across calls; each Build
// compresses it into a new CSC.
type Assembler struct {
	N, M int
	coo  *sparse.COO
	csc  *sparse.CSC
}

// NewAssembler prepares an assembler for an n-variable, m-constraint
// problem, reserving capHint entries of slack in the COO builder.
func NewAssembler(n, m, capHint int) *Assembler {
	return &Assembler{N: n, M: m, coo: sparse.NewCOO(n+m, capHint)}
}

// Build assembles H (upper-triangular Hessian entries) and J (dense
// constraint Jacobian, one row per constraint) into the augmented system
// and returns the compressed matrix. Sizes for use with Factorize are
// {N: a.N, M: a.M}.
func (a *Assembler) Build(hess []model.HessianEntry, jac [][]float64) *sparse.CSC {
	a.coo.Reset()
	for _, e := range hess {
		a.coo.Insert(e.Row, e.Col, e.Value)
	}
	for j, row := range jac {
		for i, v := range row {
			if v == 0 {
				continue
			}
			a.coo.Insert(i, a.N+j, v)
		}
	}
	a.csc = sparse.Compress(a.coo)
	return a.csc
}

// Sizes reports the {N, M} pair Factorize needs for this assembler.
func (a *Assembler) Sizes() Sizes { return Sizes{N: a.N, M: a.M} }
