// Copyright ©2025 curioloop. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package lstsq

import (
	"math"
)

// NNLS solves the non-negative least-squares problem min ‖Ax-b‖₂ s.t. x≥0 by
// Lawson and Hanson's active-set method (Lawson & Hanson, "Solving Least
// Squares Problems", Prentice Hall 1974, revised 1995 edition, chapter 23,
// algorithm NNLS).
//
// Every variable starts out held at zero, in the "bound" set. The algorithm
// repeatedly picks the bound variable whose relaxation would decrease the
// residual the most (the one with the largest component of the negative
// gradient Aᵀ(b-Ax)), moves it into the "free" set, and re-solves the
// resulting equality-constrained least-squares problem over the free set
// using a running QR factorization built from Householder reflections. If
// that re-solve drives any free variable negative, the method backs off
// along the line from the old solution to the new one until the first
// variable would hit zero, drops that variable back into the bound set, and
// tries again. The process terminates when every bound variable's gradient
// component is non-positive — the Karush-Kuhn-Tucker condition for this
// problem.
//
// a is m×n, column-major, with leading dimension lda; on return it holds
// the matrix with the accumulated Householder reflections applied (QA, not
// A). b is similarly overwritten with Qb. x receives the solution, dual
// receives the final gradient (zero on the free set by construction). work
// and perm are scratch space of length ≥m and ≥n respectively. maxIter≤0
// selects the default budget of 3n iterations.
func NNLS(
	m, n int,
	a []float64, lda int,
	b []float64,
	x []float64,
	dual []float64,
	work []float64, perm []int,
	maxIter int) (float64, Status) {

	const factor = 0.01

	if m <= 0 || n <= 0 || lda < m ||
		len(a) < lda*n || len(b) < m || len(x) < n || len(dual) < n || len(work) < m || len(perm) < n {
		return math.NaN(), BadArgument
	}

	if maxIter <= 0 {
		maxIter = 3 * n
	}

	// perm is partitioned as [free set | bound set]; numFree columns at the
	// front are currently unconstrained, the remainder from boundStart on
	// are held at zero.
	numFree := 0
	boundStart := 0

	perm = perm[:n]
	for i := range perm {
		perm[i] = i
	}

	dzero(x[:n])

	iter := 0
	finish := func() (resNorm float64, mode Status) {
		if numFree < m {
			resNorm = dnrm2(m-numFree, b[numFree:], 1)
		} else {
			dzero(dual[:n])
		}
		if iter > maxIter {
			mode = NNLSExceedMaxIter
		} else {
			mode = HasSolution
		}
		return
	}

	for {
		if boundStart >= n || numFree >= m {
			// Every variable has been freed, or the free set has already
			// triangularized all m rows — nothing left to improve.
			return finish()
		}

		// Only the bound-set entries of the gradient matter: the free-set
		// ones are exactly zero by construction of the running QR solve.
		for _, col := range perm[boundStart:] {
			dual[col] = ddot(m-numFree, a[numFree+lda*col:], 1, b[numFree:], 1)
		}

		for {
			bestDual, bestPos := zero, 0
			for i, col := range perm[boundStart:] {
				if dual[col] > bestDual {
					bestDual, bestPos = dual[col], boundStart+i
				}
			}

			if bestDual <= zero {
				// No bound variable would reduce the residual by freeing
				// it: the KKT conditions already hold.
				return finish()
			}

			pos := bestPos
			sel := perm[pos]
			colVec := a[lda*sel : lda*sel+m : lda*sel+m]

			// Tentatively fold column sel into the running QR factorization
			// and see whether its pivot stays well clear of the columns
			// already accepted, and whether the resulting coefficient for
			// x[sel] would actually be positive.
			savedPivot := colVec[numFree]
			tau := h1(numFree, numFree+1, m, colVec, 1)

			accept := false
			tailNorm := dnrm2(numFree, colVec, 1)
			if math.Abs(colVec[numFree])*factor >= tailNorm*eps {
				copy(work[:m], b[:m])
				h2(numFree, numFree+1, m, colVec, 1, tau, work, 1, 1, 1)
				trialVal := work[numFree] / colVec[numFree]
				accept = trialVal > zero
			}

			if !accept {
				// Column sel is too close to linearly dependent on the
				// already-free columns, or freeing it would make x[sel]
				// negative. Undo the trial reflection and never consider
				// sel's gradient again this pass.
				colVec[numFree] = savedPivot
				dual[sel] = zero
				continue
			}

			copy(b[:m], work[:m])

			// Move sel from the bound set to the free set.
			perm[pos] = perm[boundStart]
			perm[boundStart] = sel
			boundStart++
			numFree++

			// Carry the same reflection through every column still in the
			// bound set so the factorization stays consistent.
			if boundStart < n {
				for _, other := range perm[boundStart:] {
					h2(numFree-1, numFree, m, colVec, 1, tau, a[other*lda:], 1, lda, 1)
				}
			}
			if numFree < m {
				dzero(colVec[numFree:m])
			}
			dual[sel] = zero
			break
		}

		// Freeing a variable can drive previously-free variables negative;
		// re-solve the free-set equality problem and push any offenders
		// back to the bound set until the free-set solution is feasible.
		for {
			// Back-substitute through the upper-triangular factor to get
			// the unconstrained least-squares solution over the free set.
			for row, prevCol := numFree-1, -1; row >= 0; row-- {
				if prevCol >= 0 {
					daxpy(row+1, -work[row+1], a[prevCol*lda:], 1, work, 1)
				}
				prevCol = perm[row]
				work[row] /= a[row+prevCol*lda]
			}

			if iter++; iter > maxIter {
				return finish()
			}

			// Find how far the line from x to the new free-set solution
			// can travel before the first negative coordinate reaches
			// zero.
			ratio, dropPos := two, -1
			for row, colIdx := range perm[:numFree] {
				if work[row] <= zero {
					trial := -x[colIdx] / (work[row] - x[colIdx])
					if ratio > trial {
						ratio, dropPos = trial, row
					}
				}
			}

			if dropPos < 0 {
				// The free-set solution is already feasible: accept it
				// and return to the outer loop to look for more variables
				// worth freeing.
				for row, colIdx := range perm[:numFree] {
					x[colIdx] = work[row]
				}
				break
			}

			for row, colIdx := range perm[:numFree] {
				x[colIdx] += ratio * (work[row] - x[colIdx])
			}

			// dropPos's coordinate just hit zero; move it back to the
			// bound set and restore the QR factor's triangular shape with
			// Givens rotations over the rows that shift up.
			leaving := perm[dropPos]
			for {
				x[leaving] = zero
				if dropPos++; dropPos < numFree {
					for k := dropPos; k < numFree; k++ {
						rowCol := perm[k]
						rowVec := a[rowCol*lda:]
						perm[k-1] = rowCol
						var cosine, sine float64
						cosine, sine, rowVec[k-1] = g1(rowVec[k-1], rowVec[k])
						rowVec[k] = zero
						for col := 0; col < n; col++ {
							if col != rowCol {
								otherVec := a[col*lda : col*lda+k+1 : col*lda+k+1]
								otherVec[k-1], otherVec[k] = g2(cosine, sine, otherVec[k-1], otherVec[k])
							}
						}
						b[k-1], b[k] = g2(cosine, sine, b[k-1], b[k])
					}
				}

				numFree--
				boundStart--
				perm[boundStart] = leaving
				break
			}

			copy(work[:m], b[:m])
		}
	}
}
