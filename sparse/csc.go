// Copyright ©2025 curioloop. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package sparse

import "sort"

// CSC is a column-compressed symmetric matrix, upper-triangular (row ≤ col
// within each column). Every column's diagonal entry is reserved as the
// first slot of that column so SetRegularization can add to
// it without reshuffling any other index.
type CSC struct {
	N        int
	ColStart []int     // N+1, column j's entries are data[ColStart[j]:ColStart[j+1]]
	RowIdx   []int     // row index per entry
	Value    []float64 // value per entry

	// diagSlot[j] is the index into RowIdx/Value of column j's reserved
	// diagonal entry, or -1 if column j has no diagonal entry reserved.
	diagSlot []int

	capacity int // number of stored entries, fixed at Compress time
}

// Compress finalizes a COO builder into a CSC matrix, coalescing duplicate
// (row,col) entries by summation and reserving a diagonal slot at the start
// of every column (present or not, so a later set_regularization can always
// introduce a nonzero diagonal without growing the matrix).
func Compress(c *COO) *CSC {
	n := c.N
	type colEntries struct {
		rows []int
		vals map[int]float64
	}
	cols := make([]colEntries, n)
	for j := range cols {
		cols[j].vals = make(map[int]float64)
	}
	for _, e := range c.entries {
		if _, ok := cols[e.Col].vals[e.Row]; !ok {
			cols[e.Col].rows = append(cols[e.Col].rows, e.Row)
		}
		cols[e.Col].vals[e.Row] += e.Value
	}

	out := &CSC{N: n, ColStart: make([]int, n+1), diagSlot: make([]int, n)}
	total := 0
	for j := 0; j < n; j++ {
		hasDiag := false
		for _, r := range cols[j].rows {
			if r == j {
				hasDiag = true
				break
			}
		}
		size := len(cols[j].rows)
		if !hasDiag {
			size++
		}
		total += size
	}
	out.RowIdx = make([]int, 0, total)
	out.Value = make([]float64, 0, total)

	for j := 0; j < n; j++ {
		out.ColStart[j] = len(out.RowIdx)
		rows := cols[j].rows
		sort.Ints(rows)

		hasDiag := len(rows) > 0 && rows[len(rows)-1] == j
		// Reserve the diagonal slot first regardless of whether it was
		// inserted.
		out.diagSlot[j] = len(out.RowIdx)
		if hasDiag {
			out.RowIdx = append(out.RowIdx, j)
			out.Value = append(out.Value, cols[j].vals[j])
		} else {
			out.RowIdx = append(out.RowIdx, j)
			out.Value = append(out.Value, 0)
		}
		for _, r := range rows {
			if r == j {
				continue
			}
			out.RowIdx = append(out.RowIdx, r)
			out.Value = append(out.Value, cols[j].vals[r])
		}
	}
	out.ColStart[n] = len(out.RowIdx)
	out.capacity = len(out.RowIdx)
	return out
}

// SetRegularization adds diagFn(j) to the diagonal entry of every column j
// in [lo, hi), on top of whatever value the column's own assembly produced;
// the diagonal slot was reserved at Compress time precisely so this never
// needs to touch any other entry.
func (m *CSC) SetRegularization(lo, hi int, diagFn func(j int) float64) {
	for j := lo; j < hi && j < m.N; j++ {
		m.Value[m.diagSlot[j]] += diagFn(j)
	}
}

// Diagonal returns the current value of column j's diagonal slot.
func (m *CSC) Diagonal(j int) float64 {
	return m.Value[m.diagSlot[j]]
}

// ForEach visits every stored (row, col, value) triple in column-major
// order.
func (m *CSC) ForEach(f func(row, col int, value float64)) {
	for j := 0; j < m.N; j++ {
		for k := m.ColStart[j]; k < m.ColStart[j+1]; k++ {
			f(m.RowIdx[k], j, m.Value[k])
		}
	}
}

// Reset zeroes every stored value while preserving the sparsity pattern and
// capacity (reset() followed by identical re-inserts yields a
// matrix indistinguishable from a fresh one of the same pattern).
func (m *CSC) Reset() {
	for i := range m.Value {
		m.Value[i] = 0
	}
}

// NNZ returns the number of stored entries (including reserved diagonal
// slots), i.e. the declared capacity.
func (m *CSC) NNZ() int { return m.capacity }
