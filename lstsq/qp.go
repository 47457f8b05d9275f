// Copyright ©2025 curioloop. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package lstsq

import "math"

// Cholesky computes the 𝐋𝐃𝐋ᵀ factorization of the symmetric n×n matrix h
// (row-major, only the lower triangle read) into ld (row-major): ld[i*n+i]
// holds dᵢ and ld[i*n+j] for j<i holds Lᵢⱼ (L has an implicit unit
// diagonal). Reports ok=false the first time a pivot dⱼ is non-positive —
// callers pass an already-regularized Hessian (package hessian) so this
// should not happen in the subproblem's normal operating range.
func Cholesky(n int, h []float64, ld []float64) (ok bool) {
	ok = true
	for j := 0; j < n; j++ {
		s := h[j*n+j]
		for k := 0; k < j; k++ {
			s -= ld[j*n+k] * ld[j*n+k] * ld[k*n+k]
		}
		if s <= 0 {
			ld[j*n+j] = eps
			ok = false
			s = eps
		} else {
			ld[j*n+j] = s
		}
		for i := j + 1; i < n; i++ {
			s := h[i*n+j]
			for k := 0; k < j; k++ {
				s -= ld[i*n+k] * ld[j*n+k] * ld[k*n+k]
			}
			ld[i*n+j] = s / ld[j*n+j]
		}
	}
	return ok || n == 0
}

// SolveQP solves the SQP/Sl1QP quadratic subproblem:
//
//	minimize   ½ dᵀHd + gᵀd
//	subject to Aⱼd - bⱼ = 0         (j = 0 ··· meq-1)
//	           Aⱼd - bⱼ ≥ 0         (j = meq ··· m-1)
//	           xl ≤ d ≤ xu
//
// H must already be positive (semi)definite — package hessian guarantees
// this by regularizing through package kkt before the subproblem engine
// calls SolveQP. H and A are row-major (H is n×n symmetric, A is m×n with
// row j the linearization of constraint j). xl/xu carry ±infBnd for an
// absent bound. x receives the step, y the multipliers: y[:m] for the rows
// of A, y[m:m+n] for the lower bounds, y[m+n:m+2n] for the upper bounds
// (NaN where the corresponding bound is absent; every entry is NaN when no
// solution was found).
//
// This is a direct generalization of the classic active-set QP kernel: instead of
// reusing an incrementally BFGS-updated LDLᵀ factor, SolveQP factors H
// fresh every call via Cholesky, then reduces to the same LSEI call — the
// Hessian model here is exact or convexified (package hessian), never a
// secant approximation, so there is no factor to carry between calls.
func SolveQP(
	n, m, meq int,
	h []float64, g []float64,
	a []float64, b []float64,
	xl, xu []float64,
	x, y []float64,
	w []float64, jw []int,
	maxIter int, infBnd float64,
) (float64, Status) {

	mineq := m - meq
	bndRows := 0
	for i := 0; i < n; i++ {
		if xl[i] > -infBnd {
			bndRows++
		}
		if xu[i] < infBnd {
			bndRows++
		}
	}
	m1 := mineq + bndRows // total inequality rows fed to LSEI (general + bounds)

	e0, f0 := 0, n*n             // 𝐄 : n×n column-major, 𝐟 : n
	c0, d0 := f0+n, f0+n+meq*n   // 𝐂 : meq×n column-major, 𝐝 : meq
	g0, h0 := d0+meq, d0+meq+m1*n // 𝐆 : m1×n column-major, 𝐡 : m1
	w0 := h0 + m1

	ld := w[w0 : w0+n*n]
	if !Cholesky(n, h, ld) {
		return math.NaN(), ConsIncompatible
	}

	// 𝐄 = 𝐃¹ᐟ²𝐋ᵀ stored column-major with leading dimension n: E[i+n*j] = (row i, col j).
	e := w[e0:f0]
	for j := 0; j < n; j++ {
		dj := math.Sqrt(ld[j*n+j])
		e[j+n*j] = dj
		for i := j + 1; i < n; i++ {
			e[j+n*i] = ld[i*n+j] * dj // row j, col i of 𝐄 = Lᵢⱼ scaled by √d_j
		}
	}

	// 𝐟 = -𝐃⁻¹ᐟ²𝐋⁻¹𝐠 : forward-solve 𝐋𝐲 = 𝐠 (unit lower triangular), then scale.
	f := w[f0:c0]
	copy(f, g[:n])
	for i := 0; i < n; i++ {
		s := f[i]
		for k := 0; k < i; k++ {
			s -= ld[i*n+k] * f[k]
		}
		f[i] = s
	}
	for i := 0; i < n; i++ {
		f[i] = -f[i] / math.Sqrt(ld[i*n+i])
	}

	// 𝐂, 𝐝 from the equality rows of A, b (column-major, leading dim meq).
	if meq > 0 {
		c := w[c0:d0]
		for i := 0; i < meq; i++ {
			for j := 0; j < n; j++ {
				c[i+meq*j] = a[i*n+j]
			}
		}
		copy(w[d0:g0][:meq], b[:meq])
	}

	// 𝐆, 𝐡 from the inequality rows of A, b, followed by the active bound rows.
	g1 := w[g0:h0]
	hh := w[h0:w0]
	for i := 0; i < mineq; i++ {
		for j := 0; j < n; j++ {
			g1[i+m1*j] = a[(meq+i)*n+j]
		}
		hh[i] = b[meq+i]
	}
	bnd := mineq
	boundRow := make([]int, 0, bndRows) // which variable each trailing row bounds, and sign
	boundSign := make([]float64, 0, bndRows)
	for i := 0; i < n; i++ {
		if xl[i] > -infBnd {
			for j := 0; j < n; j++ {
				g1[bnd+m1*j] = 0
			}
			g1[bnd+m1*i] = 1
			hh[bnd] = xl[i]
			boundRow = append(boundRow, i)
			boundSign = append(boundSign, 1)
			bnd++
		}
	}
	for i := 0; i < n; i++ {
		if xu[i] < infBnd {
			for j := 0; j < n; j++ {
				g1[bnd+m1*j] = 0
			}
			g1[bnd+m1*i] = -1
			hh[bnd] = -xu[i]
			boundRow = append(boundRow, i)
			boundSign = append(boundSign, -1)
			bnd++
		}
	}

	norm, mode := LSEI(
		w[c0:d0], w[d0:g0],
		w[e0:f0], w[f0:c0],
		w[g0:h0], w[h0:w0],
		max(1, meq), meq, n, n, m1, m1, n,
		x, w[w0:], jw, maxIter,
	)

	for i := range y[:m+2*n] {
		y[i] = math.NaN()
	}
	if mode == HasSolution {
		copy(y[:m], w[w0:w0+m])
		for k, i := range boundRow {
			mult := w[w0+m+k]
			if boundSign[k] > 0 {
				y[m+i] = mult
			} else {
				y[m+n+i] = mult
			}
		}
		for i := 0; i < n; i++ {
			if xl[i] > -infBnd && x[i] < xl[i] {
				x[i] = xl[i]
			}
			if xu[i] < infBnd && x[i] > xu[i] {
				x[i] = xu[i]
			}
		}
	}
	return norm, mode
}

// WorkspaceLen returns the minimum length of the w workspace SolveQP needs
// for the given problem size (general constraint rows m, equality rows
// meq, variables n, and the number of finite variable bounds bndRows).
func WorkspaceLen(n, m, meq, bndRows int) int {
	mineq := m - meq
	m1 := mineq + bndRows
	base := n*n + n + meq*n + m1*n + m1 // E,f,C,d,G,h
	lseiW := 2*meq + n + (n+m1)*(n-meq) + (n-meq+1)*(m1+2) + 2*m1
	ldSpace := n * n
	return base + lseiW + ldSpace + 64
}

// JacLen returns the minimum length of the jw index workspace.
func JacLen(n, m, meq, bndRows int) int {
	return max(m-meq+bndRows, min(n, n-meq)) + 8
}
