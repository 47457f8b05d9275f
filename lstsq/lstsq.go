// Copyright ©2025 curioloop. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package lstsq implements the Lawson-Hanson family of constrained
// linear-least-squares kernels used to solve the bound/equality/inequality
// quadratic subproblem: Householder QR (h1/h2), Givens
// rotations (g1/g2), NNLS (active-set non-negative least squares), LDP
// (least-distance programming), LSEI/LSI (least squares with linear
// equality and inequality constraints) and HFTI (rank-deficient
// triangulation). These routines are domain kernels, not tied to any one
// outer algorithm; subproblem.SQP and subproblem.Sl1QP both reduce their QP
// to an LSEI call.
package lstsq

const (
	zero = 0.0
	one  = 1.0
	two  = 2.0
	eps  = float64(7)/3 - float64(4)/3 - 1.
)

// Status reports the outcome of a lstsq kernel call.
type Status int

const (
	OK Status = iota
	// HasSolution problem solved successfully.
	HasSolution
	// BadArgument input dimensions are unacceptable.
	BadArgument
	// NNLSExceedMaxIter more than max iterations while solving NNLS.
	NNLSExceedMaxIter
	// ConsIncompatible inequality constraints are incompatible (infeasible).
	ConsIncompatible
	// LSISingularE matrix E is not of full rank in LSI.
	LSISingularE
	// LSEISingularC matrix C is not of full rank in LSEI.
	LSEISingularC
	// HFTIRankDefect rank-deficient equality constraint in HFTI.
	HFTIRankDefect
)

func (s Status) String() string {
	switch s {
	case OK:
		return "OK"
	case HasSolution:
		return "HasSolution"
	case BadArgument:
		return "BadArgument"
	case NNLSExceedMaxIter:
		return "NNLSExceedMaxIter"
	case ConsIncompatible:
		return "ConsIncompatible"
	case LSISingularE:
		return "LSISingularE"
	case LSEISingularC:
		return "LSEISingularC"
	case HFTIRankDefect:
		return "HFTIRankDefect"
	default:
		return "Unknown"
	}
}
