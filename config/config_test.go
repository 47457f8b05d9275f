// Copyright ©2025 curioloop. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/curioloop/nlpcore/driver"
)

func TestLoad_YAML(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "preset.yaml")
	yaml := `
mechanism: line-search
strategy: filter
subproblem: barrier
rho: 5
eps_tol: 1e-8
max_outer_iterations: 200
line_search:
  rho: 0.25
`
	require.NoError(t, os.WriteFile(path, []byte(yaml), 0o644))

	opts, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, driver.LineSearchMechanism, opts.Mechanism)
	assert.Equal(t, driver.FilterStrategy, opts.Strategy)
	assert.Equal(t, driver.BarrierSubproblem, opts.Subproblem)
	assert.Equal(t, 5.0, opts.Rho)
	assert.Equal(t, 1e-8, opts.EpsTol)
	assert.Equal(t, 200, opts.MaxOuterIterations)
	assert.Equal(t, 0.25, opts.LineSearch.Rho)
}

func TestLoad_UnknownEnumValueFails(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "preset.yaml")
	require.NoError(t, os.WriteFile(path, []byte("mechanism: quantum-annealing\n"), 0o644))

	_, err := Load(path)
	assert.Error(t, err)
}

func TestLoad_MissingFileFails(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}
