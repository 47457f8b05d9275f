// Copyright ©2025 curioloop. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package subproblem

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBoundOrInf_ClampsValuesAtOrBeyondInfBound(t *testing.T) {
	assert.True(t, math.IsInf(boundOrInf(-1e20, -1, 1e19), -1))
	assert.True(t, math.IsInf(boundOrInf(1e20, 1, 1e19), 1))
	assert.InDelta(t, 5, boundOrInf(5, -1, 1e19), 1e-12)
	assert.InDelta(t, 5, boundOrInf(5, 1, 1e19), 1e-12)
}

func TestSLP_UpdateBounds_RequiresPriorComputeDirection(t *testing.T) {
	s := NewSLP(equalityPair{}, 1, 1e20)

	_, err := s.UpdateBounds(1.0)
	assert.Error(t, err)
}
