// Copyright ©2025 curioloop. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package kkt assembles and factorizes the primal-dual augmented system:
//
//	⎡ H + δw·I      Jᵀ    ⎤ ⎡d⎤   ⎡-∇f + Jᵀλ⎤
//	⎣ J          -δc·I    ⎦ ⎣Δλ⎦ = ⎣  -c(x)   ⎦
//
// and drives the inertia-correction loop: a KKT matrix of size n+m must
// have exactly n positive, m negative and 0 zero eigenvalues at a solution
// of the equality-constrained QP; when the observed inertia is wrong the
// loop perturbs the primal (δw) and/or dual (δc) regularization and
// refactorizes, per Nocedal & Wright §19.3 / IPOPT's filter-line-search
// inertia correction.
package kkt

import (
	"fmt"
	"math"

	"github.com/curioloop/nlpcore/sparse"
)

// LinearSolver factorizes and solves a symmetric indefinite augmented
// system built from a sparse.CSC matrix, reporting enough of its inertia
// for the correction loop in Factorize to drive regularization.
type LinearSolver interface {
	// DoSymbolicFactorization analyzes the sparsity pattern once; cheap to
	// call again if the pattern is unchanged.
	DoSymbolicFactorization(m *sparse.CSC) error
	// DoNumericalFactorization factorizes the current values of m.
	DoNumericalFactorization(m *sparse.CSC) error
	// Solve overwrites rhs with the solution of the last factorized system.
	Solve(rhs []float64) error
	// Rank reports the numerical rank found by the last factorization.
	Rank() int
	// NumberOfNegativeEigenvalues reports the count of negative eigenvalues
	// found by the last factorization.
	NumberOfNegativeEigenvalues() int
	// MatrixIsSingular reports whether the last factorization detected
	// (near-)singularity.
	MatrixIsSingular() bool
}

// Sizes bundles the dimensions of an assembled augmented system.
type Sizes struct {
	N int // number of primal variables
	M int // number of constraints (rows of J)
}

// RegularizationParams carries the warm-started regularization state
// across outer iterations (δw is never reset to zero between
// successive iterations so the correction loop does not have to rediscover
// the same perturbation every time).
type RegularizationParams struct {
	DeltaWLast float64 // δw used by the most recent successful factorization, 0 if none yet
	DeltaWMin  float64
	DeltaWMax  float64
	DeltaW0    float64 // initial trial value when DeltaWLast == 0
	KappaWPlus float64 // growth factor for repeated increase
	KappaWMinus float64 // shrink factor applied to the next iteration's starting guess
	DeltaC      float64 // fixed dual regularization magnitude for rank-deficient J
	KappaC      float64
}

// DefaultRegularizationParams mirrors the IPOPT defaults cited by the
// original Uno solver's inertia-correction routine.
func DefaultRegularizationParams() RegularizationParams {
	return RegularizationParams{
		DeltaWMin:   1e-20,
		DeltaWMax:   1e40,
		DeltaW0:     1e-4,
		KappaWPlus:  8,
		KappaWMinus: 1.0 / 3,
		DeltaC:      1e-8,
		KappaC:      0.25,
	}
}

// UnstableRegularizationError is returned by Factorize when even the
// largest permitted δw fails to produce the correct inertia — the KKT
// system is judged unsolvable at this iterate.
type UnstableRegularizationError struct {
	DeltaW float64
}

func (e *UnstableRegularizationError) Error() string {
	return fmt.Sprintf("kkt: inertia correction failed to stabilize, last δw=%g", e.DeltaW)
}

// Factorize runs the inertia-controlled factorization loop
// against matrix m (an n+m augmented system whose top-left n×n block
// reserves a regularization slot on every diagonal entry and whose
// bottom-right m×m block reserves one on every constraint row). It mutates
// reg.DeltaWLast on success (warm start for the next outer iteration) and
// returns the solver ready for Solve.
func Factorize(solver LinearSolver, m *sparse.CSC, sizes Sizes, reg *RegularizationParams) error {
	if err := solver.DoSymbolicFactorization(m); err != nil {
		return err
	}

	deltaW := 0.0
	if reg.DeltaWLast > 0 {
		deltaW = math.Max(reg.DeltaWMin, reg.DeltaWLast*reg.KappaWMinus)
	}
	deltaC := 0.0
	prevW, prevC := 0.0, 0.0

	for {
		stepW, stepC := deltaW-prevW, deltaC-prevC
		m.SetRegularization(0, sizes.N, func(int) float64 { return stepW })
		m.SetRegularization(sizes.N, sizes.N+sizes.M, func(int) float64 { return -stepC })
		prevW, prevC = deltaW, deltaC

		if err := solver.DoNumericalFactorization(m); err != nil {
			return err
		}

		rank := solver.Rank()
		negEv := solver.NumberOfNegativeEigenvalues()
		singular := solver.MatrixIsSingular() || rank < sizes.N+sizes.M

		if !singular && negEv == sizes.M {
			reg.DeltaWLast = deltaW
			return nil
		}

		if singular && deltaC == 0 && sizes.M > 0 {
			// Constraint Jacobian is rank-deficient: introduce dual
			// regularization before touching δw.
			deltaC = reg.DeltaC
			continue
		}

		if deltaW == 0 {
			deltaW = reg.DeltaW0
		} else {
			deltaW *= reg.KappaWPlus
		}

		if deltaW > reg.DeltaWMax {
			return &UnstableRegularizationError{DeltaW: deltaW}
		}
	}
}
