// Copyright ©2025 curioloop. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package config loads a solver preset (mechanism/strategy/relaxation/
// subproblem choice plus numerical tolerances) from a YAML/JSON/TOML file
// into a driver.Options, the way a deployment pins the solver's behavior
// without a recompile.
package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"

	"github.com/curioloop/nlpcore/driver"
)

// Preset is the on-disk shape of a solver configuration. Fields left empty
// or zero fall back to driver.DefaultOptions' choices.
type Preset struct {
	Mechanism  string `mapstructure:"mechanism"`
	Strategy   string `mapstructure:"strategy"`
	Relaxation string `mapstructure:"relaxation"`
	Subproblem string `mapstructure:"subproblem"`
	Hessian    string `mapstructure:"hessian"`

	Rho      float64 `mapstructure:"rho"`
	InfBound float64 `mapstructure:"inf_bound"`
	MaxIter  int     `mapstructure:"max_iter"`
	EpsTol   float64 `mapstructure:"eps_tol"`

	MaxOuterIterations int     `mapstructure:"max_outer_iterations"`
	WallClockSeconds    float64 `mapstructure:"wall_clock_seconds"`

	TrustRegion struct {
		DeltaInit, GammaInc, GammaDec, GammaAgg, EpsAct, DeltaMin, DeltaReset float64
	} `mapstructure:"trust_region"`
	LineSearch struct {
		Rho, AlphaMin float64
	} `mapstructure:"line_search"`
}

// Load reads path (any format viper supports by extension: yaml, json,
// toml) and returns the driver.Options it describes.
func Load(path string) (driver.Options, error) {
	v := viper.New()
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return driver.Options{}, fmt.Errorf("config: reading %s: %w", path, err)
	}

	var p Preset
	if err := v.Unmarshal(&p); err != nil {
		return driver.Options{}, fmt.Errorf("config: decoding %s: %w", path, err)
	}
	return p.ToOptions()
}

// ToOptions converts a decoded Preset into driver.Options, validating every
// named enum choice.
func (p Preset) ToOptions() (driver.Options, error) {
	opts := driver.DefaultOptions()

	if p.Mechanism != "" {
		kind, err := parseMechanism(p.Mechanism)
		if err != nil {
			return driver.Options{}, err
		}
		opts.Mechanism = kind
	}
	if p.Strategy != "" {
		kind, err := parseStrategy(p.Strategy)
		if err != nil {
			return driver.Options{}, err
		}
		opts.Strategy = kind
	}
	if p.Relaxation != "" {
		kind, err := parseRelaxation(p.Relaxation)
		if err != nil {
			return driver.Options{}, err
		}
		opts.Relaxation = kind
	}
	if p.Subproblem != "" {
		kind, err := parseSubproblem(p.Subproblem)
		if err != nil {
			return driver.Options{}, err
		}
		opts.Subproblem = kind
	}
	if p.Hessian != "" {
		kind, err := parseHessian(p.Hessian)
		if err != nil {
			return driver.Options{}, err
		}
		opts.Hessian = kind
	}

	if p.Rho != 0 {
		opts.Rho = p.Rho
	}
	if p.InfBound != 0 {
		opts.InfBound = p.InfBound
	}
	if p.MaxIter != 0 {
		opts.MaxIter = p.MaxIter
	}
	if p.EpsTol != 0 {
		opts.EpsTol = p.EpsTol
	}
	if p.MaxOuterIterations != 0 {
		opts.MaxOuterIterations = p.MaxOuterIterations
	}
	if p.WallClockSeconds != 0 {
		opts.WallClockLimit = time.Duration(p.WallClockSeconds * float64(time.Second))
	}

	opts.TrustRegion = driver.TrustRegionOverrides(p.TrustRegion)
	opts.LineSearch = driver.LineSearchOverrides(p.LineSearch)

	return opts, nil
}

func parseMechanism(s string) (driver.MechanismKind, error) {
	switch s {
	case "trust-region", "TR":
		return driver.TrustRegionMechanism, nil
	case "line-search", "LS":
		return driver.LineSearchMechanism, nil
	default:
		return 0, fmt.Errorf("config: unknown mechanism %q", s)
	}
}

func parseStrategy(s string) (driver.StrategyKind, error) {
	switch s {
	case "merit":
		return driver.MeritStrategy, nil
	case "filter":
		return driver.FilterStrategy, nil
	default:
		return 0, fmt.Errorf("config: unknown strategy %q", s)
	}
}

func parseRelaxation(s string) (driver.RelaxationKind, error) {
	switch s {
	case "l1-relaxation":
		return driver.L1RelaxationKind, nil
	case "feasibility-restoration":
		return driver.FeasibilityRestorationKind, nil
	default:
		return 0, fmt.Errorf("config: unknown relaxation %q", s)
	}
}

func parseSubproblem(s string) (driver.SubproblemKind, error) {
	switch s {
	case "QP":
		return driver.QPSubproblem, nil
	case "LP":
		return driver.LPSubproblem, nil
	case "Sl1QP":
		return driver.Sl1QPSubproblem, nil
	case "barrier":
		return driver.BarrierSubproblem, nil
	default:
		return 0, fmt.Errorf("config: unknown subproblem %q", s)
	}
}

func parseHessian(s string) (driver.HessianKind, error) {
	switch s {
	case "exact":
		return driver.ExactHessian, nil
	case "convexified":
		return driver.ConvexifiedHessian, nil
	default:
		return 0, fmt.Errorf("config: unknown hessian %q", s)
	}
}
