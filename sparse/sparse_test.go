// Copyright ©2025 curioloop. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package sparse

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInsert_PanicsOnLowerTriangularEntry(t *testing.T) {
	c := NewCOO(3, 4)
	assert.Panics(t, func() { c.Insert(2, 1, 1) })
}

func TestInsert_PanicsOutOfRange(t *testing.T) {
	c := NewCOO(3, 4)
	assert.Panics(t, func() { c.Insert(0, 3, 1) })
	assert.Panics(t, func() { c.Insert(-1, 0, 1) })
}

func TestReset_ClearsEntriesButKeepsCapacity(t *testing.T) {
	c := NewCOO(2, 8)
	c.Insert(0, 0, 1)
	c.Insert(0, 1, 2)
	require.Equal(t, 2, c.Len())

	c.Reset()
	assert.Equal(t, 0, c.Len())
	assert.Equal(t, 8, cap(c.entries))
}

func TestCompress_SumsDuplicateEntries(t *testing.T) {
	c := NewCOO(2, 4)
	c.Insert(0, 0, 1)
	c.Insert(0, 0, 2)
	m := Compress(c)

	assert.InDelta(t, 3, m.Diagonal(0), 1e-12)
}

func TestCompress_ReservesDiagonalSlotEvenWhenAbsent(t *testing.T) {
	c := NewCOO(2, 4)
	c.Insert(0, 1, 5) // column 1 gets an off-diagonal entry only
	m := Compress(c)

	assert.Equal(t, 0.0, m.Diagonal(0))
	assert.Equal(t, 0.0, m.Diagonal(1))
	assert.Equal(t, 3, m.NNZ()) // diag(0) + diag(1) + the (0,1) off-diagonal
}

func TestCompress_OrdersRowsWithinColumn(t *testing.T) {
	c := NewCOO(4, 8)
	c.Insert(3, 3, 9)
	c.Insert(0, 3, 1)
	c.Insert(1, 3, 2)
	m := Compress(c)

	var rows []int
	m.ForEach(func(row, col int, value float64) {
		if col == 3 {
			rows = append(rows, row)
		}
	})
	assert.Equal(t, []int{3, 0, 1}, rows) // diagonal slot first, then ascending rows
}

func TestSetRegularization_IsAdditiveAcrossCalls(t *testing.T) {
	c := NewCOO(2, 4)
	c.Insert(0, 0, 1)
	m := Compress(c)

	m.SetRegularization(0, 2, func(j int) float64 { return 10 })
	m.SetRegularization(0, 2, func(j int) float64 { return 1 })

	assert.InDelta(t, 1+10+1, m.Diagonal(0), 1e-12)
	assert.InDelta(t, 0+10+1, m.Diagonal(1), 1e-12)
}

func TestSetRegularization_DoesNotTouchOffDiagonalEntries(t *testing.T) {
	c := NewCOO(2, 4)
	c.Insert(0, 1, 7)
	m := Compress(c)

	m.SetRegularization(0, 2, func(j int) float64 { return 5 })

	var off float64
	m.ForEach(func(row, col int, value float64) {
		if row != col {
			off = value
		}
	})
	assert.InDelta(t, 7, off, 1e-12)
}

func TestReset_ZeroesValuesButKeepsPattern(t *testing.T) {
	c := NewCOO(2, 4)
	c.Insert(0, 0, 3)
	c.Insert(0, 1, 4)
	m := Compress(c)
	nnzBefore := m.NNZ()

	m.Reset()

	assert.Equal(t, nnzBefore, m.NNZ())
	m.ForEach(func(row, col int, value float64) {
		assert.Equal(t, 0.0, value)
	})
}
