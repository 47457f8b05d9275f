// Copyright ©2025 curioloop. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package subproblem

import (
	"math"

	"github.com/curioloop/nlpcore/hessian"
	"github.com/curioloop/nlpcore/iterate"
	"github.com/curioloop/nlpcore/kkt"
	"github.com/curioloop/nlpcore/model"
)

// Barrier is the primal-dual interior-point engine. General
// range constraints c_L ≤ c(x) ≤ c_U are reduced to the equality form
// c_j(x) - s_j = 0 with a slack s_j carrying whatever bound(s) c_j had (a
// constraint already at Equal keeps no slack: its row is enforced directly
// and it contributes no barrier term). The barrier's own log-barrier state
// (slack values, their bound multipliers, μ) is internal and persists
// across ComputeDirection calls on the same Barrier value; Commit must be
// called by the caller once a direction is accepted so that state reflects
// only accepted iterates: trial iterates never alias current iterates,
// so an unaccepted call must not corrupt it.
type Barrier struct {
	Model   model.Model
	Hessian hessian.Model
	Solver  kkt.LinearSolver
	Reg     kkt.RegularizationParams

	MaxIter  int
	InfBound float64
	EpsTol   float64

	TauMin     float64
	KappaSigma float64
	SMax       float64
	KappaMu    float64
	ThetaMu    float64
	KappaEps   float64

	Mu float64

	n, m       int
	slackIdx   []int // per constraint j: n+k, or -1 for an Equal row
	slackLo    []float64
	slackHi    []float64
	numSlack   int
	nd         int

	s    []float64 // committed slack values
	zSL  []float64
	zSU  []float64

	assembler *kkt.Assembler

	pending struct {
		valid bool
		s     []float64
		zSL   []float64
		zSU   []float64
		mu    float64
	}
}

// DefaultBarrierParams returns the standard barrier parameters.
func DefaultBarrierParams() (tauMin, kappaSigma, sMax, kappaMu, thetaMu, kappaEps float64) {
	return 0.99, 1e10, 100, 0.2, 1.5, 10
}

// NewBarrier constructs a Barrier engine and its internal slack state at x0.
func NewBarrier(m model.Model, hm hessian.Model, solver kkt.LinearSolver, mu0 float64, maxIter int, infBound, epsTol float64) *Barrier {
	n, mc := m.NumVariables(), m.NumConstraints()
	b := &Barrier{
		Model: m, Hessian: hm, Solver: solver, Reg: kkt.DefaultRegularizationParams(),
		MaxIter: maxIter, InfBound: infBound, EpsTol: epsTol, Mu: mu0,
		n: n, m: mc,
		slackIdx: make([]int, mc),
	}
	b.TauMin, b.KappaSigma, b.SMax, b.KappaMu, b.ThetaMu, b.KappaEps = DefaultBarrierParams()

	k := 0
	for j := 0; j < mc; j++ {
		if model.ConstraintBoundType(m, j) == model.Equal {
			b.slackIdx[j] = -1
			continue
		}
		b.slackIdx[j] = n + k
		b.slackLo = append(b.slackLo, m.ConstraintLowerBound(j))
		b.slackHi = append(b.slackHi, m.ConstraintUpperBound(j))
		k++
	}
	b.numSlack = k
	b.nd = n + k
	b.assembler = kkt.NewAssembler(b.nd, mc, b.nd*4)

	x0 := m.InitialPrimalPoint()
	c0 := make([]float64, mc)
	m.EvaluateConstraints(x0, c0)
	b.s = make([]float64, k)
	b.zSL = make([]float64, k)
	b.zSU = make([]float64, k)
	si := 0
	for j := 0; j < mc; j++ {
		if b.slackIdx[j] < 0 {
			continue
		}
		lo, hi := b.slackLo[si], b.slackHi[si]
		v := c0[j]
		if !math.IsInf(lo, -1) {
			v = math.Max(v, lo+1e-2)
		}
		if !math.IsInf(hi, 1) {
			v = math.Min(v, hi-1e-2)
		}
		b.s[si] = v
		b.zSL[si], b.zSU[si] = 1, 1
		si++
	}
	return b
}

func (b *Barrier) sigmaLower(v, lo, z float64) float64 {
	if math.IsInf(lo, -1) {
		return 0
	}
	return z / (v - lo)
}

func (b *Barrier) sigmaUpper(v, hi, z float64) float64 {
	if math.IsInf(hi, 1) {
		return 0
	}
	return z / (hi - v)
}

func (b *Barrier) ComputeDirection(it *iterate.Iterate, delta float64) (*iterate.Direction, error) {
	n, mc, nd := b.n, b.m, b.nd
	x := it.X
	sigma := it.Mult.Sigma
	if sigma == 0 {
		sigma = 1
	}

	hdense := make([]float64, n*n)
	if err := b.Hessian.Evaluate(b.Model, x, sigma, it.Mult.Lambda, hdense); err != nil {
		return nil, err
	}
	entries := make([]model.HessianEntry, 0, n*n/4+nd)
	for i := 0; i < n; i++ {
		for k := i; k < n; k++ {
			if hdense[i*n+k] != 0 {
				entries = append(entries, model.HessianEntry{Row: i, Col: k, Value: hdense[i*n+k]})
			}
		}
	}

	objGrad := it.ObjectiveGradient()
	phiGrad := make([]float64, nd)
	sigmaL := make([]float64, nd)
	sigmaU := make([]float64, nd)
	for i := 0; i < n; i++ {
		lo, hi := b.Model.VariableLowerBound(i), b.Model.VariableUpperBound(i)
		zl, zu := 0.0, 0.0
		if i < len(it.Mult.ZL) {
			zl = it.Mult.ZL[i]
		}
		if i < len(it.Mult.ZU) {
			zu = it.Mult.ZU[i]
		}
		sigmaL[i] = b.sigmaLower(x[i], lo, zl)
		sigmaU[i] = b.sigmaUpper(x[i], hi, zu)
		phiGrad[i] = sigma*objGrad[i] - b.Mu*ratioOrZero(1, x[i]-lo) + b.Mu*ratioOrZero(1, hi-x[i])
	}
	si := 0
	for j := 0; j < mc; j++ {
		if b.slackIdx[j] < 0 {
			continue
		}
		sk := n + si
		lo, hi := b.slackLo[si], b.slackHi[si]
		sigmaL[sk] = b.sigmaLower(b.s[si], lo, b.zSL[si])
		sigmaU[sk] = b.sigmaUpper(b.s[si], hi, b.zSU[si])
		phiGrad[sk] = -b.Mu*ratioOrZero(1, b.s[si]-lo) + b.Mu*ratioOrZero(1, hi-b.s[si])
		si++
	}
	for i := 0; i < nd; i++ {
		if v := sigmaL[i] + sigmaU[i]; v != 0 {
			entries = append(entries, model.HessianEntry{Row: i, Col: i, Value: v})
		}
	}

	jacRows := it.Jacobian()
	jac := make([][]float64, mc)
	cRes := make([]float64, mc)
	c := it.Constraints()
	si = 0
	for j := 0; j < mc; j++ {
		row := make([]float64, nd)
		copy(row[:n], jacRows[j])
		if b.slackIdx[j] < 0 {
			cRes[j] = c[j] - b.Model.ConstraintLowerBound(j)
		} else {
			row[n+si] = -1
			cRes[j] = c[j] - b.s[si]
			si++
		}
		jac[j] = row
	}

	m := b.assembler.Build(entries, jac)
	if err := kkt.Factorize(b.Solver, m, b.assembler.Sizes(), &b.Reg); err != nil {
		return nil, err
	}

	rhs := make([]float64, nd+mc)
	lambda := it.Mult.Lambda
	for i := 0; i < n; i++ {
		jtl := 0.0
		for j := 0; j < mc; j++ {
			if j < len(lambda) {
				jtl += jac[j][i] * lambda[j]
			}
		}
		rhs[i] = -phiGrad[i] + jtl
	}
	for k := 0; k < b.numSlack; k++ {
		i := n + k
		jtl := 0.0
		for j := 0; j < mc; j++ {
			if b.slackIdx[j] == i && j < len(lambda) {
				jtl += jac[j][i] * lambda[j]
			}
		}
		rhs[i] = -phiGrad[i] + jtl
	}
	for j := 0; j < mc; j++ {
		rhs[nd+j] = -cRes[j]
	}
	if err := b.Solver.Solve(rhs); err != nil {
		return nil, err
	}
	dx := rhs[:nd]

	alphaP := b.fractionToBoundary(x, dx[:n], true)
	for k := 0; k < b.numSlack; k++ {
		alphaP = math.Min(alphaP, b.fractionToBoundaryOne(b.s[k], dx[n+k], b.slackLo[k], b.slackHi[k]))
	}

	alphaD := 1.0
	for i := 0; i < n; i++ {
		lo, hi := b.Model.VariableLowerBound(i), b.Model.VariableUpperBound(i)
		if !math.IsInf(lo, -1) && i < len(it.Mult.ZL) {
			alphaD = math.Min(alphaD, ratioStep(it.Mult.ZL[i], zDeltaLower(sigmaL[i], dx[i]), b.TauMin))
		}
		if !math.IsInf(hi, 1) && i < len(it.Mult.ZU) {
			alphaD = math.Min(alphaD, ratioStep(it.Mult.ZU[i], zDeltaUpper(sigmaU[i], dx[i]), b.TauMin))
		}
	}

	newX := make([]float64, n)
	for i := 0; i < n; i++ {
		newX[i] = alphaP * dx[i]
	}
	// Solve overwrote rhs in place with the full (Δx;Δλ) solution of the
	// augmented system; the trailing mc entries are Δλ.
	dLambda := rhs[nd : nd+mc]
	newLambda := make([]float64, mc)
	for j := 0; j < mc && j < len(lambda); j++ {
		newLambda[j] = lambda[j] + alphaD*dLambda[j]
	}

	newZL := append([]float64(nil), it.Mult.ZL...)
	newZU := append([]float64(nil), it.Mult.ZU...)
	for i := 0; i < n && i < len(newZL); i++ {
		newZL[i] = clampDual(newZL[i]+alphaD*zDeltaLower(sigmaL[i], dx[i]), b.Mu, b.KappaSigma)
		newZU[i] = clampDual(newZU[i]+alphaD*zDeltaUpper(sigmaU[i], dx[i]), b.Mu, b.KappaSigma)
	}

	b.pending.valid = true
	b.pending.s = make([]float64, b.numSlack)
	b.pending.zSL = make([]float64, b.numSlack)
	b.pending.zSU = make([]float64, b.numSlack)
	for k := 0; k < b.numSlack; k++ {
		b.pending.s[k] = b.s[k] + alphaP*dx[n+k]
		b.pending.zSL[k] = clampDual(b.zSL[k]+alphaD*zDeltaLower(sigmaL[n+k], dx[n+k]), b.Mu, b.KappaSigma)
		b.pending.zSU[k] = clampDual(b.zSU[k]+alphaD*zDeltaUpper(sigmaU[n+k], dx[n+k]), b.Mu, b.KappaSigma)
	}
	b.pending.mu = b.Mu

	dir := &iterate.Direction{
		D:                   newX,
		Mult:                iterate.Multipliers{Lambda: newLambda, ZL: newZL, ZU: newZU, Sigma: sigma},
		Status:              iterate.Optimal,
		ObjectiveMultiplier: sigma,
	}
	if alphaP < 1e-10 || alphaD < 1e-10 {
		dir.Status = iterate.Error
	}
	dir.ComputeNorm()
	return dir, nil
}

// Commit applies the pending slack/dual state computed by the most recent
// ComputeDirection call and, if the scaled KKT error has fallen to κ_ε·μ,
// shrinks μ once the scaled KKT error falls below it. Call this only after the mechanism has
// accepted the corresponding direction.
func (b *Barrier) Commit(it *iterate.Iterate) {
	if !b.pending.valid {
		return
	}
	copy(b.s, b.pending.s)
	copy(b.zSL, b.pending.zSL)
	copy(b.zSU, b.pending.zSU)

	scaledErr := b.scaledKKTError(it)
	if scaledErr <= b.KappaEps*b.Mu {
		next := math.Min(b.KappaMu*b.Mu, math.Pow(b.Mu, b.ThetaMu))
		b.Mu = math.Max(b.EpsTol/10, next)
	}
	b.pending.valid = false
}

func (b *Barrier) scaledKKTError(it *iterate.Iterate) float64 {
	sd := math.Max(1, (infNormOf(it.Mult.Lambda)+infNormOf(it.Mult.ZL)+infNormOf(it.Mult.ZU))/math.Max(1, b.SMax))
	stat := infNormOf(it.LagrangianGradient()) / sd
	feas := it.ConstraintViolation()
	comp := it.ComplementarityError()
	return math.Max(stat, math.Max(feas, comp))
}

func infNormOf(v []float64) float64 {
	m := 0.0
	for _, x := range v {
		if a := math.Abs(x); a > m {
			m = a
		}
	}
	return m
}

func ratioOrZero(num, den float64) float64 {
	if den == 0 || math.IsInf(den, 0) {
		return 0
	}
	return num / den
}

func zDeltaLower(sigmaL, dx float64) float64 { return -sigmaL * dx }
func zDeltaUpper(sigmaU, dx float64) float64 { return sigmaU * dx }

func ratioStep(z, dz, tauMin float64) float64 {
	if dz >= 0 {
		return 1
	}
	tau := math.Max(tauMin, 1-tauMin)
	limit := -tau * z / dz
	return math.Min(1, limit)
}

func clampDual(z, mu, kappaSigma float64) float64 {
	if z < mu/kappaSigma {
		return mu / kappaSigma
	}
	if z > kappaSigma*mu {
		return kappaSigma * mu
	}
	return z
}

func (b *Barrier) fractionToBoundary(x, dx []float64, primal bool) float64 {
	alpha := 1.0
	for i := range dx {
		lo, hi := b.Model.VariableLowerBound(i), b.Model.VariableUpperBound(i)
		alpha = math.Min(alpha, b.fractionToBoundaryOne(x[i], dx[i], lo, hi))
	}
	return alpha
}

func (b *Barrier) fractionToBoundaryOne(v, dv, lo, hi float64) float64 {
	tau := math.Max(b.TauMin, 1-b.TauMin)
	alpha := 1.0
	if dv < 0 && !math.IsInf(lo, -1) {
		limit := -tau * (v - lo) / dv
		alpha = math.Min(alpha, limit)
	}
	if dv > 0 && !math.IsInf(hi, 1) {
		limit := tau * (hi - v) / dv
		alpha = math.Min(alpha, limit)
	}
	if alpha < 0 {
		alpha = 0
	}
	return math.Min(alpha, 1)
}

func (b *Barrier) PredictedReduction(it *iterate.Iterate, dir *iterate.Direction) float64 {
	sigma := dir.ObjectiveMultiplier
	g := it.ObjectiveGradient()
	lin := 0.0
	for i, gi := range g {
		lin += sigma * gi * dir.D[i]
	}
	return -lin
}

// SupportsWarmUpdateBounds is false: the barrier subproblem is regenerated
// from scratch every inner iteration.
func (b *Barrier) SupportsWarmUpdateBounds() bool { return false }

func (b *Barrier) UpdateBounds(delta float64) (*iterate.Direction, error) {
	return nil, kktUpdateBoundsUnsupported{}
}

type kktUpdateBoundsUnsupported struct{}

func (kktUpdateBoundsUnsupported) Error() string {
	return "subproblem: Barrier does not support UpdateBounds, call ComputeDirection"
}
