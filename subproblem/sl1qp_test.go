// Copyright ©2025 curioloop. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package subproblem

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/curioloop/nlpcore/hessian"
	"github.com/curioloop/nlpcore/iterate"
)

func TestSl1QP_ComputeDirection_FeasibleConstraintLeavesElasticsAtZero(t *testing.T) {
	m := equalityPair{}
	// A large penalty weight means the QP prefers paying the exact
	// equality-constrained quadratic step over using any elastic slack.
	s := NewSl1QP(m, hessian.Exact{}, 1, 100, 50, 1e20)
	it := iterate.New(m, []float64{0, 0}, iterate.Multipliers{Lambda: []float64{0}, Sigma: 1})

	dir, err := s.ComputeDirection(it, math.Inf(1))
	require.NoError(t, err)
	require.True(t, dir.IsUsable())

	assert.InDelta(t, 0.5, dir.D[0], 1e-6)
	assert.InDelta(t, 0.5, dir.D[1], 1e-6)
	require.Len(t, dir.Partition, 1)
	assert.Equal(t, iterate.Feasible, dir.Partition[0])
}

func TestSl1QP_DoesNotSupportWarmUpdateBounds(t *testing.T) {
	s := NewSl1QP(equalityPair{}, hessian.Exact{}, 1, 100, 50, 1e20)
	assert.False(t, s.SupportsWarmUpdateBounds())
}

func TestSl1QP_UpdateBounds_RequiresPriorComputeDirection(t *testing.T) {
	s := NewSl1QP(equalityPair{}, hessian.Exact{}, 1, 100, 50, 1e20)

	_, err := s.UpdateBounds(1.0)
	assert.Error(t, err)
}
