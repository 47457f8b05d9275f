// Copyright ©2025 curioloop. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package driver composes reform, relax, mechanism, merit and termination
// into the top-level solve loop:
// driver asks the mechanism for the next iterate, the mechanism asks the
// relaxation strategy for a feasible direction, the strategy asks the
// subproblem engine, the engine builds and solves the KKT system, and the
// result bubbles back up through acceptance testing to a new current
// iterate — until termination.Evaluate calls the run.
package driver

import (
	"log/slog"
	"time"
)

// MechanismKind selects the globalization mechanism.
type MechanismKind int

const (
	TrustRegionMechanism MechanismKind = iota
	LineSearchMechanism
)

// StrategyKind selects the acceptance strategy.
type StrategyKind int

const (
	MeritStrategy StrategyKind = iota
	FilterStrategy
)

// RelaxationKind selects the constraint-relaxation reformulation.
type RelaxationKind int

const (
	L1RelaxationKind RelaxationKind = iota
	FeasibilityRestorationKind
)

// SubproblemKind selects the inner subproblem engine.
type SubproblemKind int

const (
	QPSubproblem SubproblemKind = iota
	LPSubproblem
	Sl1QPSubproblem
	BarrierSubproblem
)

// HessianKind selects how the Lagrangian Hessian is prepared.
type HessianKind int

const (
	ExactHessian HessianKind = iota
	ConvexifiedHessian
)

// Options configures a Solve call. Options.withDefaults replaces zero
// numeric limits and tolerances and a nil Logger with DefaultOptions'
// values; the enum fields are used as given, so a zero Hessian field selects
// ExactHessian rather than DefaultOptions' ConvexifiedHessian. Zero
// TrustRegion/LineSearch fields keep the mechanism's own defaults.
type Options struct {
	Mechanism   MechanismKind
	Strategy    StrategyKind
	Relaxation  RelaxationKind
	Subproblem  SubproblemKind
	Hessian     HessianKind

	Rho      float64 // elastic/ℓ1 penalty weight
	InfBound float64
	MaxIter  int // per-subproblem-solve iteration cap (lstsq engines)

	EpsTol float64 // KKT residual tolerance

	MaxOuterIterations int
	WallClockLimit     time.Duration

	TrustRegion TrustRegionOverrides
	LineSearch  LineSearchOverrides

	Logger *slog.Logger
}

// TrustRegionOverrides lets a preset tune the trust-region mechanism's
// parameters; zero
// fields fall back to mechanism.DefaultTrustRegionParams.
type TrustRegionOverrides struct {
	DeltaInit, GammaInc, GammaDec, GammaAgg, EpsAct, DeltaMin, DeltaReset float64
}

// LineSearchOverrides lets a preset tune the line-search mechanism's parameters.
type LineSearchOverrides struct {
	Rho, AlphaMin float64
}

// DefaultOptions returns the standard defaults: trust-region mechanism,
// ℓ1 merit strategy, ℓ1-relaxation, QP subproblem, convexified Hessian.
func DefaultOptions() Options {
	return Options{
		Mechanism:  TrustRegionMechanism,
		Strategy:   MeritStrategy,
		Relaxation: L1RelaxationKind,
		Subproblem: QPSubproblem,
		Hessian:    ConvexifiedHessian,

		Rho:      10,
		InfBound: 1e20,
		MaxIter:  100,

		EpsTol: 1e-6,

		MaxOuterIterations: 500,
		WallClockLimit:     30 * time.Second,

		Logger: slog.Default(),
	}
}

func (o Options) withDefaults() Options {
	d := DefaultOptions()
	if o.Rho == 0 {
		o.Rho = d.Rho
	}
	if o.InfBound == 0 {
		o.InfBound = d.InfBound
	}
	if o.MaxIter == 0 {
		o.MaxIter = d.MaxIter
	}
	if o.EpsTol == 0 {
		o.EpsTol = d.EpsTol
	}
	if o.MaxOuterIterations == 0 {
		o.MaxOuterIterations = d.MaxOuterIterations
	}
	if o.WallClockLimit == 0 {
		o.WallClockLimit = d.WallClockLimit
	}
	if o.Logger == nil {
		o.Logger = d.Logger
	}
	return o
}
