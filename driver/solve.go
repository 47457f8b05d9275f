// Copyright ©2025 curioloop. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package driver

import (
	"fmt"
	"time"

	"github.com/curioloop/nlpcore/hessian"
	"github.com/curioloop/nlpcore/iterate"
	"github.com/curioloop/nlpcore/kkt"
	"github.com/curioloop/nlpcore/mechanism"
	"github.com/curioloop/nlpcore/merit"
	"github.com/curioloop/nlpcore/model"
	"github.com/curioloop/nlpcore/relax"
	"github.com/curioloop/nlpcore/stats"
	"github.com/curioloop/nlpcore/subproblem"
	"github.com/curioloop/nlpcore/termination"
)

// committer is implemented by subproblem.Barrier: its interior-point slack
// state only becomes current once the mechanism has accepted the direction
// it was computed from (package subproblem's own doc comment on Commit).
type committer interface {
	Commit(it *iterate.Iterate)
}

// Solve runs the outer loop against m until termination.Evaluate
// reports a terminal Status, the outer/wall-clock budget is exhausted, or a
// fatal error escapes the inner loop.
func Solve(m model.Model, opts Options) *Result {
	opts = opts.withDefaults()
	logger := opts.Logger
	st := stats.Stats{}

	n := m.NumVariables()
	mc := m.NumConstraints()
	x0 := m.InitialPrimalPoint()
	lambda0, zl0, zu0 := m.InitialDualPoint()
	if lambda0 == nil {
		lambda0 = make([]float64, mc)
	}
	if zl0 == nil {
		zl0 = make([]float64, n)
	}
	if zu0 == nil {
		zu0 = make([]float64, n)
	}
	it := iterate.New(m, x0, iterate.Multipliers{Lambda: lambda0, ZL: zl0, ZU: zu0, Sigma: 1})

	var engine subproblem.Engine
	var strategy *relax.Strategy
	if opts.Subproblem == BarrierSubproblem {
		hm := trackHessianModel(buildHessianModel(opts.Hessian, n), &st)
		solver := kkt.NewDenseGonumSolver(1e-10)
		engine = subproblem.NewBarrier(m, hm, solver, 0.1, opts.MaxIter, opts.InfBound, opts.EpsTol)
	} else {
		strategy = relax.NewStrategy(m, buildEngineFactory(opts, n, &st), opts.Rho)
		if opts.Relaxation == FeasibilityRestorationKind {
			strategy.EnterFeasibilityPhase()
		}
		engine = strategy
	}

	meritStrategy := buildMeritStrategy(opts)
	mech := buildMechanism(engine, m, meritStrategy, opts)

	tol := termination.DefaultTolerances(opts.EpsTol)
	deadline := time.Now().Add(opts.WallClockLimit)

	logger.Info("nlpcore: solve starting", "variables", n, "constraints", mc,
		"mechanism", opts.Mechanism, "subproblem", opts.Subproblem)

	for outer := 0; outer < opts.MaxOuterIterations; outer++ {
		if time.Now().After(deadline) {
			status, res := termination.Evaluate(it, tol, false, phaseIsFeasibility(strategy))
			logger.Warn("nlpcore: wall-clock limit exceeded", "outer", st.OuterIterations)
			return resultFrom(it, status, res, st, TimeLimitExceeded,
				fmt.Errorf("driver: exceeded wall-clock limit %s", opts.WallClockLimit))
		}

		trial, outcome, err := mech.Step(it, &st)
		if err != nil {
			kind := classifyError(err)
			status, res := termination.Evaluate(it, tol, false, phaseIsFeasibility(strategy))
			logger.Error("nlpcore: solve failed", "kind", kind.String(), "err", err)
			return resultFrom(it, status, res, st, kind, err)
		}

		feasPhase := phaseIsFeasibility(strategy)

		if outcome == mechanism.SmallStep {
			status, res := termination.Evaluate(it, tol, true, feasPhase)
			st.RecordOuterIteration(feasPhase)
			switch status {
			case termination.InfeasibleStationary:
				if strategy != nil {
					strategy.EnterFeasibilityPhase()
					logger.Info("nlpcore: entering feasibility phase", "outer", st.OuterIterations)
					continue
				}
				fallthrough
			default:
				logger.Info("nlpcore: small-step termination", "status", status.String())
				return resultFrom(it, status, res, st, NoError, nil)
			}
		}

		it = trial
		if c, ok := engine.(committer); ok {
			c.Commit(it)
		}
		feasPhase = phaseIsFeasibility(strategy)
		st.RecordOuterIteration(feasPhase)

		status, res := termination.Evaluate(it, tol, false, feasPhase)
		switch status {
		case termination.FeasibleKKT, termination.FritzJohn, termination.Unbounded:
			logger.Info("nlpcore: converged", "status", status.String(), "outer", st.OuterIterations)
			return resultFrom(it, status, res, st, NoError, nil)
		}

		if strategy != nil && feasPhase && res.Feasibility <= opts.EpsTol {
			strategy.ReturnToOptimality()
		}
	}

	status, res := termination.Evaluate(it, tol, false, phaseIsFeasibility(strategy))
	logger.Warn("nlpcore: outer iteration limit exceeded", "limit", opts.MaxOuterIterations)
	return resultFrom(it, status, res, st, IterationLimitExceeded,
		fmt.Errorf("driver: exceeded %d outer iterations", opts.MaxOuterIterations))
}

func phaseIsFeasibility(s *relax.Strategy) bool {
	return s != nil && s.Phase() == relax.Feasibility
}

func classifyError(err error) ErrorKind {
	switch err.(type) {
	case *kkt.UnstableRegularizationError:
		return UnstableRegularization
	case *mechanism.StepLengthTooSmall:
		return StepLengthTooSmall
	case *model.EvaluationError:
		return EvaluationFailure
	default:
		return EvaluationFailure
	}
}

// buildHessianModel constructs a fresh hessian.Model for a subproblem
// engine's lifetime. ConvexifiedHessian returns a *hessian.Convexified,
// whose DeltaWLast is carried across every Evaluate call made against it —
// the engine must reuse the same instance for the warm start to matter, not
// call buildHessianModel again on every ComputeDirection.
func buildHessianModel(kind HessianKind, originalN int) hessian.Model {
	if kind == ExactHessian {
		return hessian.Exact{}
	}
	return hessian.NewConvexified(originalN)
}

// buildEngineFactory returns the relax.EngineFactory the strategy calls at
// construction and on every phase switch; each call sizes a fresh engine
// off whichever reform.Model (elastic-relaxed or feasibility-restoration)
// is currently active.
func buildEngineFactory(opts Options, originalN int, st *stats.Stats) relax.EngineFactory {
	return func(m model.Model) subproblem.Engine {
		hm := trackHessianModel(buildHessianModel(opts.Hessian, originalN), st)
		switch opts.Subproblem {
		case LPSubproblem:
			return subproblem.NewSLP(m, 1, opts.InfBound)
		case Sl1QPSubproblem:
			return subproblem.NewSl1QP(m, hm, 1, opts.Rho, opts.MaxIter, opts.InfBound)
		default:
			return subproblem.NewSQP(m, hm, 1, opts.MaxIter, opts.InfBound)
		}
	}
}

// hessianTracker wraps an hessian.Model so every time a *hessian.Convexified
// underneath it settles on a larger δw than it last reported, the run's
// stats.Stats records one more regularization bump and the new δw — the
// "δ_w > 0 reported" observability the inertia-correction termination
// scenario calls for. Any other hessian.Model kind (Exact, or a future one
// that never regularizes) passes through untouched. Every Evaluate call, of
// any kind, is counted in stats.Stats.HessianEvaluations.
type hessianTracker struct {
	hessian.Model
	st       *stats.Stats
	lastSeen float64
}

func trackHessianModel(hm hessian.Model, st *stats.Stats) hessian.Model {
	return &hessianTracker{Model: hm, st: st}
}

func (t *hessianTracker) Evaluate(m model.Model, x []float64, sigma float64, lambda []float64, dense []float64) error {
	err := t.Model.Evaluate(m, x, sigma, lambda, dense)
	t.st.HessianEvaluations++
	if c, ok := t.Model.(*hessian.Convexified); ok && c.DeltaWLast > t.lastSeen {
		t.st.RegularizationBumps++
		t.st.LastDeltaW = c.DeltaWLast
		t.lastSeen = c.DeltaWLast
	}
	return err
}

func buildMeritStrategy(opts Options) merit.Strategy {
	if opts.Strategy == FilterStrategy {
		return merit.NewFilter()
	}
	return merit.DefaultL1()
}

func buildMechanism(engine subproblem.Engine, m model.Model, strategy merit.Strategy, opts Options) mechanism.Mechanism {
	if opts.Mechanism == LineSearchMechanism {
		params := mechanism.DefaultLineSearchParams()
		if opts.LineSearch.Rho != 0 {
			params.Rho = opts.LineSearch.Rho
		}
		if opts.LineSearch.AlphaMin != 0 {
			params.AlphaMin = opts.LineSearch.AlphaMin
		}
		return mechanism.NewLineSearch(engine, m, strategy, params)
	}

	params := mechanism.DefaultTrustRegionParams()
	ov := opts.TrustRegion
	if ov.DeltaInit != 0 {
		params.DeltaInit = ov.DeltaInit
	}
	if ov.GammaInc != 0 {
		params.GammaInc = ov.GammaInc
	}
	if ov.GammaDec != 0 {
		params.GammaDec = ov.GammaDec
	}
	if ov.GammaAgg != 0 {
		params.GammaAgg = ov.GammaAgg
	}
	if ov.EpsAct != 0 {
		params.EpsAct = ov.EpsAct
	}
	if ov.DeltaMin != 0 {
		params.DeltaMin = ov.DeltaMin
	}
	if ov.DeltaReset != 0 {
		params.DeltaReset = ov.DeltaReset
	}
	return mechanism.NewTrustRegion(engine, m, strategy, params)
}
