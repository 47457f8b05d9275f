// Copyright ©2025 curioloop. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package sparse implements the symmetric sparse matrix containers used
// to assemble the augmented system: a COO builder used while assembling it, and
// a CSC representation with reserved diagonal regularization slots used by
// the factorization wrapper in package kkt.
package sparse

// Entry is one upper-triangular nonzero (row ≤ col) of a symmetric matrix.
type Entry struct {
	Row, Col int
	Value    float64
}

// COO is a coordinate-form symmetric matrix builder: entries are appended in
// any order with Insert, then handed to Compress to produce a CSC matrix.
// Every entry must satisfy row ≤ col (upper-triangular storage).
type COO struct {
	N       int
	entries []Entry
}

// NewCOO creates a builder for an n×n symmetric matrix, reserving capacity
// for at least capHint entries.
func NewCOO(n, capHint int) *COO {
	return &COO{N: n, entries: make([]Entry, 0, capHint)}
}

// Insert appends one upper-triangular nonzero. Insert does not deduplicate;
// repeated (row,col) pairs accumulate as independent entries that Compress
// will sum together, mirroring how assemblers append Hessian and Jacobian
// contributions independently.
func (c *COO) Insert(row, col int, value float64) {
	if row > col {
		panic("sparse: COO.Insert requires row <= col (upper-triangular storage)")
	}
	if row < 0 || col >= c.N {
		panic("sparse: COO.Insert index out of range")
	}
	c.entries = append(c.entries, Entry{row, col, value})
}

// Reset clears the entry list while preserving the underlying capacity, so
// the next assembly pass reuses the same backing array (no
// allocation in hot loops).
func (c *COO) Reset() {
	c.entries = c.entries[:0]
}

// Len returns the number of entries inserted since the last Reset.
func (c *COO) Len() int { return len(c.entries) }
