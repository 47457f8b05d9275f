// Copyright ©2025 curioloop. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package kkt

import (
	"fmt"

	"gonum.org/v1/gonum/mat"

	"github.com/curioloop/nlpcore/sparse"
)

// DenseGonumSolver is the default LinearSolver: it densifies the sparse
// augmented system and factors it with gonum's symmetric eigendecomposition
// to read off the inertia directly from the sign of the eigenvalues, then
// solves by spectral substitution. This trades the sparsity a production
// MA57/MUMPS backend would exploit for a small, dependency-light default
// that is exact about inertia — which is what the correction loop in
// Factorize needs above all.
type DenseGonumSolver struct {
	n     int
	dense *mat.SymDense
	eigen mat.EigenSym
	tol   float64

	rank    int
	negEv   int
	singular bool
}

// NewDenseGonumSolver creates a solver with the given zero-pivot tolerance.
func NewDenseGonumSolver(tol float64) *DenseGonumSolver {
	if tol <= 0 {
		tol = 1e-12
	}
	return &DenseGonumSolver{tol: tol}
}

func (s *DenseGonumSolver) DoSymbolicFactorization(m *sparse.CSC) error {
	s.n = m.N
	s.dense = mat.NewSymDense(s.n, nil)
	return nil
}

func (s *DenseGonumSolver) DoNumericalFactorization(m *sparse.CSC) error {
	if s.dense == nil || s.dense.SymmetricDim() != m.N {
		if err := s.DoSymbolicFactorization(m); err != nil {
			return err
		}
	}
	for i := 0; i < s.n; i++ {
		for j := i; j < s.n; j++ {
			s.dense.SetSym(i, j, 0)
		}
	}
	m.ForEach(func(row, col int, value float64) {
		s.dense.SetSym(row, col, s.dense.At(row, col)+value)
	})

	if !s.eigen.Factorize(s.dense, true) {
		return fmt.Errorf("kkt: dense eigendecomposition failed to converge")
	}

	vals := s.eigen.Values(nil)
	s.rank, s.negEv, s.singular = 0, 0, false
	for _, v := range vals {
		switch {
		case v > s.tol:
			s.rank++
		case v < -s.tol:
			s.rank++
			s.negEv++
		default:
			s.singular = true
		}
	}
	return nil
}

// Solve overwrites rhs with V·diag(1/λᵢ)·Vᵀ·rhs — the spectral solution of
// the last factorized system.
func (s *DenseGonumSolver) Solve(rhs []float64) error {
	if len(rhs) != s.n {
		return fmt.Errorf("kkt: rhs length %d does not match factorized size %d", len(rhs), s.n)
	}
	vals := s.eigen.Values(nil)
	var vecs mat.Dense
	s.eigen.VectorsTo(&vecs)

	y := make([]float64, s.n)
	for j := 0; j < s.n; j++ {
		dot := 0.0
		for i := 0; i < s.n; i++ {
			dot += vecs.At(i, j) * rhs[i]
		}
		if lambda := vals[j]; lambda > s.tol || lambda < -s.tol {
			y[j] = dot / lambda
		}
	}
	for i := 0; i < s.n; i++ {
		sum := 0.0
		for j := 0; j < s.n; j++ {
			sum += vecs.At(i, j) * y[j]
		}
		rhs[i] = sum
	}
	return nil
}

func (s *DenseGonumSolver) Rank() int                       { return s.rank }
func (s *DenseGonumSolver) NumberOfNegativeEigenvalues() int { return s.negEv }
func (s *DenseGonumSolver) MatrixIsSingular() bool          { return s.singular }
