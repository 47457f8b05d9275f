// Copyright ©2025 curioloop. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package subproblem implements the four subproblem engines: QP-based
// SQP (via lstsq), LP-based SLP
// (via HiGHS), the ℓ1-penalty elastic QP Sl1QP, and the primal-dual
// interior-point Barrier engine. Every engine produces an iterate.Direction
// from an iterate.Iterate; none of them knows about trust regions, line
// search, merit functions or elastic-variable bookkeeping — those are the
// mechanism/merit/relax layers' concerns, and an engine stays stateless
// about whichever relaxation wraps it.
package subproblem

import "github.com/curioloop/nlpcore/iterate"

// Engine is the small capability trait shared between subproblem variants
// instead of deep inheritance.
type Engine interface {
	// ComputeDirection evaluates the model at it.X and solves the local
	// approximation, constrained to ‖d‖_∞ ≤ delta (math.Inf(1) for a
	// line-search mechanism, which makes the trust-region bound inactive).
	ComputeDirection(it *iterate.Iterate, delta float64) (*iterate.Direction, error)

	// PredictedReduction returns σ·(f(x_k) - m_k(d)) for the subproblem's
	// own model m_k, used by the merit strategy.
	PredictedReduction(it *iterate.Iterate, dir *iterate.Direction) float64

	// SupportsWarmUpdateBounds reports whether UpdateBounds can be used
	// instead of a fresh ComputeDirection for a subsequent inner iteration
	// at the same iterate with only the trust-region radius changed.
	// SQP/SLP support it, Barrier does not.
	SupportsWarmUpdateBounds() bool

	// UpdateBounds re-solves the last ComputeDirection's local model with a
	// new radius, reusing cached derivatives. Only valid immediately after
	// a ComputeDirection call on the same iterate when
	// SupportsWarmUpdateBounds is true.
	UpdateBounds(delta float64) (*iterate.Direction, error)
}
