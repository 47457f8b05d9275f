// Copyright ©2025 curioloop. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package merit

import "github.com/curioloop/nlpcore/iterate"

// FilterEntry is one (feasibility, objective) pair the filter has accepted.
type FilterEntry struct {
	Feasibility float64
	Objective   float64
}

// Filter is the Fletcher–Leyffer dominance filter, a pluggable alternative
// to L1: a
// trial point is accepted whenever no entry already in the filter dominates
// it in both feasibility and objective, with margins Beta/Gamma so that
// acceptance requires genuine progress rather than a tie.
type Filter struct {
	Beta  float64 // slope of the feasibility envelope, in (0,1)
	Gamma float64 // sufficient-decrease margin, in (0,1)

	entries []FilterEntry
}

// NewFilter returns a Filter with the conventional Fletcher–Leyffer margins.
func NewFilter() *Filter {
	return &Filter{Beta: 1 - 1e-4, Gamma: 1e-5}
}

// Acceptable reports whether (h, f) is not dominated by any current entry:
// for every entry (h_j, f_j), h must be small enough relative to h_j or f
// must be small enough relative to f_j.
func (flt *Filter) Acceptable(h, f float64) bool {
	for _, e := range flt.entries {
		if h > flt.Beta*e.Feasibility && f > e.Objective-flt.Gamma*e.Feasibility {
			return false
		}
	}
	return true
}

// add appends (h, f) to the filter, pruning every entry it now dominates.
func (flt *Filter) add(h, f float64) {
	kept := flt.entries[:0]
	for _, e := range flt.entries {
		if e.Feasibility < h || e.Objective < f {
			kept = append(kept, e)
		}
	}
	flt.entries = append(kept, FilterEntry{Feasibility: h, Objective: f})
}

// Accept implements Strategy. s=0 accepts unconditionally, matching L1's
// terminal-step rule.
func (flt *Filter) Accept(cur, trial *iterate.Iterate, dir *iterate.Direction, s, pred float64) bool {
	if s == 0 {
		return true
	}

	h, f := trial.ConstraintViolation(), trial.Objective()
	if !flt.Acceptable(h, f) {
		return false
	}

	hCur, fCur := cur.ConstraintViolation(), cur.Objective()
	if !flt.Acceptable(hCur, fCur) {
		flt.add(hCur, fCur)
	}
	flt.add(h, f)
	return true
}
