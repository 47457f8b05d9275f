// Copyright ©2025 curioloop. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package hessian supplies two Lagrangian-Hessian models: an exact model
// that simply evaluates model.Model's analytic
// Hessian, and a convexified model that runs its own inertia-correction loop
// against the variables' own block (never the dual block), so a subproblem
// engine can always hand lstsq.SolveQP a positive-definite H regardless of
// what the model reports.
package hessian

import (
	"math"

	"github.com/curioloop/nlpcore/kkt"
	"github.com/curioloop/nlpcore/lstsq"
	"github.com/curioloop/nlpcore/model"
)

// Model produces the n×n dense Lagrangian Hessian (row-major) used by a
// subproblem engine's QP.
type Model interface {
	// Evaluate fills dense (row-major, n×n, pre-zeroed by the caller's
	// choice) with the Hessian of the Lagrangian at x, scaled by sigma and
	// weighted by lambda — see model.Model.EvaluateLagrangianHessian.
	Evaluate(m model.Model, x []float64, sigma float64, lambda []float64, dense []float64) error
}

// Exact evaluates model.Model's analytic second derivatives unmodified.
type Exact struct{}

func (Exact) Evaluate(m model.Model, x []float64, sigma float64, lambda []float64, dense []float64) error {
	n := m.NumVariables()
	for i := range dense[:n*n] {
		dense[i] = 0
	}
	var evalErr error
	err := model.SafeEvaluate("EvaluateLagrangianHessian", x, func() {
		entries := m.EvaluateLagrangianHessian(x, sigma, lambda)
		for _, e := range entries {
			dense[e.Row*n+e.Col] += e.Value
			if e.Row != e.Col {
				dense[e.Col*n+e.Row] += e.Value
			}
		}
	})
	if err != nil {
		evalErr = err
	}
	return evalErr
}

// Convexified evaluates the same analytic Hessian as Exact, then regularizes
// the leading NumOriginalVars×NumOriginalVars block (never any
// elastic-variable block appended by package relax, whose own diagonal is
// supplied separately by the caller) with an inertia-correction loop shaped
// after kkt.Factorize's: starting from a shrunk remnant of the last
// perturbation that worked (or Reg.DeltaW0 if none has yet), it Cholesky-
// factors the block and, on failure, grows the diagonal bump geometrically
// by Reg.KappaWPlus until the block is positive definite or Reg.DeltaWMax is
// exceeded, at which point it reports kkt.UnstableRegularizationError. The
// accepted δw is kept as DeltaWLast so later Evaluate calls on the same
// Convexified warm-start from it, mirroring how kkt.RegularizationParams
// carries δw across outer iterations.
type Convexified struct {
	Exact
	NumOriginalVars int
	Reg             kkt.RegularizationParams

	DeltaWLast float64

	block []float64
	ld    []float64
}

// NewConvexified returns a Convexified with IPOPT-default regularization
// parameters, ready to regularize the leading numOriginalVars variables.
func NewConvexified(numOriginalVars int) *Convexified {
	return &Convexified{NumOriginalVars: numOriginalVars, Reg: kkt.DefaultRegularizationParams()}
}

func (c *Convexified) Evaluate(m model.Model, x []float64, sigma float64, lambda []float64, dense []float64) error {
	n := m.NumVariables()
	if err := c.Exact.Evaluate(m, x, sigma, lambda, dense); err != nil {
		return err
	}

	limit := c.NumOriginalVars
	if limit <= 0 || limit > n {
		limit = n
	}
	if limit == 0 {
		return nil
	}

	reg := c.Reg
	if reg.DeltaW0 == 0 {
		reg = kkt.DefaultRegularizationParams()
	}

	if cap(c.block) < limit*limit {
		c.block = make([]float64, limit*limit)
		c.ld = make([]float64, limit*limit)
	}
	block, ld := c.block[:limit*limit], c.ld[:limit*limit]

	deltaW := 0.0
	if c.DeltaWLast > 0 {
		deltaW = math.Max(reg.DeltaWMin, c.DeltaWLast*reg.KappaWMinus)
	}

	for {
		for i := 0; i < limit; i++ {
			copy(block[i*limit:(i+1)*limit], dense[i*n:i*n+limit])
			block[i*limit+i] += deltaW
		}

		if lstsq.Cholesky(limit, block, ld) {
			break
		}

		if deltaW == 0 {
			deltaW = reg.DeltaW0
		} else {
			deltaW *= reg.KappaWPlus
		}
		if deltaW > reg.DeltaWMax {
			return &kkt.UnstableRegularizationError{DeltaW: deltaW}
		}
	}

	c.DeltaWLast = deltaW
	for i := 0; i < limit; i++ {
		dense[i*n+i] += deltaW
	}
	return nil
}
