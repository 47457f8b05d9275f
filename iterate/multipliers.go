// Copyright ©2025 curioloop. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package iterate holds the mutable optimization state shared by every
// layer of the engine: the current point and its cached derivatives
// (Iterate), and the per-inner-iteration step proposal (Direction).
package iterate

// Multipliers bundles the dual variables of an Iterate: the constraint
// multipliers λ, the bound multipliers z_L/z_U, and the objective
// multiplier σ (1 in normal mode, 0 in Fritz-John/feasibility mode).
type Multipliers struct {
	Lambda []float64 // ℝᵐ
	ZL     []float64 // ℝⁿ, lower-bound multipliers
	ZU     []float64 // ℝⁿ, upper-bound multipliers
	Sigma  float64
}

// Clone returns a deep copy, safe to mutate independently of m.
func (m Multipliers) Clone() Multipliers {
	return Multipliers{
		Lambda: append([]float64(nil), m.Lambda...),
		ZL:     append([]float64(nil), m.ZL...),
		ZU:     append([]float64(nil), m.ZU...),
		Sigma:  m.Sigma,
	}
}

// Normalize divides λ, z_L, z_U by σ so the returned multipliers are
// scale-invariant (post-acceptance normalization). A no-op when
// σ is already 0 or 1.
func (m *Multipliers) Normalize() {
	if m.Sigma == 0 || m.Sigma == 1 {
		return
	}
	inv := 1 / m.Sigma
	scale(m.Lambda, inv)
	scale(m.ZL, inv)
	scale(m.ZU, inv)
	m.Sigma = 1
}

func scale(v []float64, s float64) {
	for i := range v {
		v[i] *= s
	}
}
