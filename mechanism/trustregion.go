// Copyright ©2025 curioloop. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package mechanism

import (
	"math"

	"github.com/curioloop/nlpcore/iterate"
	"github.com/curioloop/nlpcore/merit"
	"github.com/curioloop/nlpcore/model"
	"github.com/curioloop/nlpcore/stats"
	"github.com/curioloop/nlpcore/subproblem"
)

// TrustRegionParams bundles the trust-region mechanism's scalar state/parameters.
type TrustRegionParams struct {
	DeltaInit  float64
	GammaInc   float64 // > 1
	GammaDec   float64 // > 1
	GammaAgg   float64 // >= GammaDec
	EpsAct     float64
	DeltaMin   float64
	DeltaReset float64

	MaxInnerIterations int // safety cap; Delta shrinks monotonically on rejection so DeltaMin is reached first in practice
}

// DefaultTrustRegionParams returns reasonable defaults in the absence of a
// config preset.
func DefaultTrustRegionParams() TrustRegionParams {
	return TrustRegionParams{
		DeltaInit: 1, GammaInc: 2, GammaDec: 2, GammaAgg: 4,
		EpsAct: 1e-8, DeltaMin: 1e-10, DeltaReset: 1,
		MaxInnerIterations: 50,
	}
}

// TrustRegion is the trust-region globalization mechanism.
type TrustRegion struct {
	Engine subproblem.Engine
	Model  model.Model
	Merit  merit.Strategy
	Params TrustRegionParams

	Delta float64

	lo, hi []float64
}

// NewTrustRegion constructs a TrustRegion at Delta = params.DeltaInit.
func NewTrustRegion(engine subproblem.Engine, m model.Model, strategy merit.Strategy, params TrustRegionParams) *TrustRegion {
	lo, hi := variableBounds(m)
	return &TrustRegion{Engine: engine, Model: m, Merit: strategy, Params: params, Delta: params.DeltaInit, lo: lo, hi: hi}
}

// Step runs the trust-region inner loop to completion: either a trial iterate is
// accepted, or the radius collapses below DeltaMin and SmallStep is
// reported so the driver can run termination's small-step handling.
func (tr *TrustRegion) Step(it *iterate.Iterate, st *stats.Stats) (*iterate.Iterate, Outcome, error) {
	warm := false
	for iter := 0; iter < tr.Params.MaxInnerIterations; iter++ {
		st.RecordInnerIteration()

		var dir *iterate.Direction
		var err error
		if warm && tr.Engine.SupportsWarmUpdateBounds() {
			dir, err = tr.Engine.UpdateBounds(tr.Delta)
		} else {
			dir, err = tr.Engine.ComputeDirection(it, tr.Delta)
			warm = tr.Engine.SupportsWarmUpdateBounds()
		}
		if err != nil {
			tr.Delta /= tr.Params.GammaDec
			warm = false
			if tr.Delta < tr.Params.DeltaMin {
				return it, SmallStep, nil
			}
			continue
		}
		st.SubproblemsSolved++

		switch dir.Status {
		case iterate.UnboundedSubproblem:
			tr.Delta /= tr.Params.GammaAgg
			warm = false
			if tr.Delta < tr.Params.DeltaMin {
				return it, SmallStep, nil
			}
			continue
		case iterate.Error:
			tr.Delta /= tr.Params.GammaDec
			warm = false
			if tr.Delta < tr.Params.DeltaMin {
				return it, SmallStep, nil
			}
			continue
		}
		if !dir.IsUsable() {
			tr.Delta /= tr.Params.GammaDec
			warm = false
			if tr.Delta < tr.Params.DeltaMin {
				return it, SmallStep, nil
			}
			continue
		}

		dir.ClearBoundaryActiveSet(it.X, tr.lo, tr.hi, tr.Delta, tr.Params.EpsAct)
		trial := assembleTrial(it, dir)

		pred := merit.PredictedReduction(it, dir, dir.Objective)
		s := dir.Norm
		if tr.Merit.Accept(it, trial, dir, s, pred) {
			if dir.Norm >= tr.Delta-tr.Params.EpsAct {
				tr.Delta *= tr.Params.GammaInc
			}
			tr.Delta = math.Max(tr.Delta, tr.Params.DeltaReset)
			trial.Mult.Normalize()
			return trial, Accepted, nil
		}

		st.MeritRejections++
		if tr.Delta < tr.Params.DeltaMin {
			return it, SmallStep, nil
		}
		tr.Delta = math.Min(tr.Delta, dir.Norm) / tr.Params.GammaDec
		st.TrustRegionShrinks++
		warm = tr.Engine.SupportsWarmUpdateBounds()
	}
	return it, SmallStep, nil
}
