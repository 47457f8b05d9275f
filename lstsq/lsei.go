// Copyright ©2025 curioloop. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package lstsq

import (
	"math"
)

// LSEI solves the linearly equality- and inequality-constrained
// least-squares problem min ‖Ex-f‖₂ subject to Cx=d and Gx≥h, where E is
// m×n with no rank assumption, C is mc×n with rank(C)=mc<n, and G is mg×n.
//
// # Eliminating the equality constraints
//
// The equality rows are triangularized by an orthogonal transform K built
// from Householder reflections applied column by column to C (and carried
// through to E and G at the same time), splitting the columns into a
// leading mc-wide block C1 that becomes lower triangular and a trailing
// (n-mc)-wide block that lands entirely in C's null space. Writing x=Ky
// with y=[y1;y2] partitioned the same way, C1*y1=d is a triangular solve
// for y1, and y2 is whatever minimizes ‖E2*y2-(f-E1*y1)‖₂ subject to
// G2*y2≥h-G1*y1 — an LSI problem in the (n-mc)-dimensional null space,
// where E1/G1 and E2/G2 are C's transform applied to E and G, split the
// same way. Once y1 and y2 are known the original solution and the
// equality/inequality multipliers fall out of the same transform run in
// reverse.
//
// This is the generic bound/linear-equality/linear-inequality solve behind
// the SQP and ℓ1-penalty quadratic subproblems: after linearizing a
// model's constraints and factoring the (possibly regularized) Hessian
// into E, the step direction is exactly the LSEI solution.
//
// # References
//
//	C.L. Lawson, R.J. Hanson, 'Solving least squares problems' Prentice Hall, 1974. (revised 1995 edition)
//	Chapters 20, Algorithm 20.24.
//	Chapters 23, Section 6.
func LSEI(
	// dim(c) :   formal (lc,n),    actual (mc,n)
	// dim(d) :   formal (lc  ),    actual (mc  )
	c []float64, d []float64,
	// dim(e) :   formal (le,n),    actual (me,n)
	// dim(f) :   formal (le  ),    actual (me  )
	e []float64, f []float64,
	// dim(g) :   formal (lg,n),    actual (mg,n)
	// dim(h) :   formal (lg  ),    actual (mg  )
	g []float64, h []float64,
	lc, mc, le, me, lg, mg, n int,
	// dim(x) :   formal (n   ),    actual (n   )
	x []float64,
	// dim(w) :   2×mc+me+(me+mg)×(n-mc)  for LSEI
	//             + (n-mc+1)×(mg+2)+2×mg  for LSI / HFTI
	w []float64,
	// dim(jw):   max(mg, min(me, n-mc))
	jw []int,
	maxIterLs int,
) (norm float64, mode Status) {

	if n < 1 || mc > n {
		return math.NaN(), BadArgument
	}

	if n > len(x) || mc > len(x) ||
		mc < 0 || mc > len(c) || mc > len(d) ||
		me < 0 || me > len(e) || me > len(f) ||
		mg < 0 || mg > len(g) || mg > len(h) {
		panic("bound check error")
	}

	nullDim := n - mc
	// [mc] Lagrange multipliers of the eliminated equality constraints
	off := mc
	// [(nullDim+1)×(mg+2)+2×mg] scratch handed down to LSI
	lsiScratch := w[off : off+(nullDim+1)*(mg+2)+2*mg]
	off += len(lsiScratch)
	// [mc] Householder pivots produced while triangularizing c
	pivot := w[off : off+mc]
	off += len(pivot)
	// [me × nullDim] the null-space block of the transformed e
	eNull := w[off : off+me*nullDim]
	off += len(eNull)
	// [me] the transformed residual f - e1*y1
	fNull := w[off : off+me]
	off += len(fNull)
	// [mg × nullDim] the null-space block of the transformed g
	gNull := w[off : off+mg*nullDim]

	if mc > len(pivot) || me > len(fNull) {
		panic("bound check error")
	}

	// Triangularize c and carry the same Householder reflections through
	// e and g, one column of c at a time.
	for i := 0; i < mc; i++ {
		next := min(i+1, lc-1)
		pivot[i] = h1(i, i+1, n, c[i:], lc)
		h2(i, i+1, n, c[i:], lc, pivot[i], c[next:], lc, 1, mc-i-1) // reduces c to [c1 0]
		h2(i, i+1, n, c[i:], lc, pivot[i], e, le, 1, me)            // splits e into [e1 e2]
		h2(i, i+1, n, c[i:], lc, pivot[i], g, lg, 1, mg)            // splits g into [g1 g2]
	}

	// Back-substitute for y1 through the now-triangular c1*y1 = d.
	for i := 0; i < mc; i++ {
		diag := c[i+lc*i]
		if math.Abs(diag) < eps {
			return math.NaN(), LSEISingularC // c does not have full row rank
		}
		x[i] = (d[i] - ddot(i, c[i:], lc, x, 1)) / diag
	}

	// The leading mg entries of the LSI scratch come back holding the
	// inequality multipliers.
	dzero(lsiScratch[:mg])

	if mc < n { // the null space is non-trivial
		for i := 0; i < me; i++ { // f - e1*y1
			fNull[i] = f[i] - ddot(mc, e[i:], le, x, 1)
		}

		if nullDim > 0 {
			if me > len(eNull) || mg > len(gNull) {
				panic("bound check error")
			}
			for i := 0; i < me; i++ { // extract e2
				dcopy(nullDim, e[i+le*mc:], le, eNull[i:], me)
			}
			for i := 0; i < mg; i++ { // extract g2
				dcopy(nullDim, g[i+lg*mc:], lg, gNull[i:], mg)
			}
		}

		if mg > 0 {
			for i := 0; i < mg; i++ { // h - g1*y1
				h[i] -= ddot(mc, g[i:], lg, x, 1)
			}
			// y2 minimizes ‖e2*y2-(f-e1*y1)‖₂ subject to g2*y2≥h-g1*y1.
			norm, mode = LSI(eNull, fNull, gNull, h, me, me, mg, mg, nullDim, x[mc:n], lsiScratch, jw, maxIterLs)
			if mc == 0 {
				// the multipliers are returned in w[:mg]
				return
			}
			if mode != HasSolution {
				return math.NaN(), mode
			}
			t := dnrm2(mc, x, 1)
			norm = math.Sqrt(norm*norm + t*t)
		} else {
			// no inequalities: y2 minimizes the unconstrained
			// ‖e2*y2-(f-e1*y1)‖₂ via a rank-revealing factorization.
			ldw, tol := max(le, n), sqrtEps
			var resid [1]float64
			rank := HFTI(eNull, me, me, nullDim, fNull, ldw, 1, tol, resid[:], w, w[nullDim:], jw)
			norm = resid[0]
			dcopy(nullDim, fNull, 1, x[mc:n], 1)
			if rank != nullDim {
				return norm, HFTIRankDefect
			}
		}
	}
	for i := 0; i < me; i++ { // e^T(e*x - f), reusing f as scratch
		f[i] = ddot(n, e[i:], le, x, 1) - f[i]
	}
	for i := 0; i < mc; i++ { // e^T(e*x-f) - g^T*lambda, reusing d as scratch
		d[i] = ddot(me, e[i*le:], 1, f, 1) -
			ddot(mg, g[i*lg:], 1, lsiScratch[:mg], 1)
	}
	for i := mc - 1; i >= 0; i-- { // x = K*[y1 y2]^T, undoing the Householder transform
		h2(i, i+1, n, c[i:], lc, pivot[i], x, 1, 1, 1)
	}
	for i := mc - 1; i >= 0; i-- { // the equality multipliers solve (C^T)*mu = e^T(e*x-f) - g^T*lambda
		next := min(i+1, lc-1)
		w[i] = (d[i] - ddot(mc-i-1, c[next+lc*i:], 1, w[next:], 1)) / c[i+lc*i]
	}
	// equality multipliers come back in w[0:mc], inequality ones in w[mc:mc+mg]
	mode = HasSolution
	return
}

// LSI solves the linearly inequality-constrained least-squares problem
// min ‖Ex-f‖₂ subject to Gx≥h, where E is m×n with rank(E)=n and G is
// mg×n.
//
// QR-factoring E as E=Q*[R;0]*K^T (K here is the identity, since LSI is
// only ever called on a matrix that's already been reduced to full column
// rank) and substituting x=K^T*y turns the problem into the least-distance
// program min‖z‖₂ subject to (G*K*R⁻¹)*z ≥ h-(G*K*R⁻¹)*f1, with
// z=R*y-f1, which LDP solves directly.
//
// # References
//
//	C.L. Lawson, R.J. Hanson, 'Solving least squares problems' Prentice Hall, 1974. (revised 1995 edition)
//	Chapters 23, Section 5.
func LSI(
	// dim(e) :   formal (le,n),    actual (me,n)
	// dim(f) :   formal (le  ),    actual (me  )
	e []float64, f []float64,
	// dim(g) :   formal (lg,n),    actual (mg,n)
	// dim(h) :   formal (lg  ),    actual (mg  )
	g []float64, h []float64,
	le, me, lg, mg, n int,
	// dim(x) :   n
	x []float64,
	// dim(w) :   (n+1)×(mg+2) + 2×mg
	w []float64,
	//  dim(jw):  lg
	jw []int,
	maxIterLs int) (xnorm float64, mode Status) {

	if n < 1 {
		return 0, BadArgument
	}

	// QR-factor e in place and apply the same reflections to f.
	for i := 0; i < n; i++ {
		next := min(i+1, n-1)
		tau := h1(i, i+1, me, e[i*le:], 1)
		h2(i, i+1, me, e[i*le:], 1, tau, e[next*le:], 1, le, n-i-1) // reduces e to R (triangular)
		h2(i, i+1, me, e[i*le:], 1, tau, f, 1, 1, 1)                // splits f into [f1 f2]
	}

	// Fold the same transform into g and h to arrive at an LDP instance.
	for i := 0; i < mg; i++ {
		for j := 0; j < n; j++ {
			diag := e[j+le*j]
			if math.Abs(diag) < eps || math.IsNaN(diag) {
				return math.NaN(), LSISingularE // e does not have full column rank
			}
			// g*K*R⁻¹, with K the identity here
			g[i+lg*j] = (g[i+lg*j] - ddot(j, g[i:], lg, e[j*le:], 1)) / diag
		}
		h[i] -= ddot(n, g[i:], lg, f, 1) // h - (g*K*R⁻¹)*f1
	}

	// Hand the least-distance instance to LDP and undo the substitution.
	if xnorm, mode = LDP(mg, n, g, lg, h, x, w, jw, maxIterLs); mode == HasSolution {
		daxpy(n, one, f, 1, x, 1) // z + f1
		for i := n - 1; i >= 0; i-- {
			next := min(i+1, n-1) // back-substitute R*y = z + f1
			x[i] = (x[i] - ddot(n-i-1, e[i+le*next:], le, x[next:], 1)) / e[i+le*i]
		}
		tail := min(n, me-1)
		resid := dnrm2(me-n, f[tail:], 1)     // ‖f2‖₂
		xnorm = math.Sqrt(xnorm*xnorm + resid*resid)
	}
	return
}

var sqrtEps = math.Sqrt(eps)
