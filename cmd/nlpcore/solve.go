// Copyright ©2025 curioloop. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/curioloop/nlpcore/config"
	"github.com/curioloop/nlpcore/driver"
)

var (
	mechanismFlag  string
	strategyFlag   string
	relaxationFlag string
	subproblemFlag string
	presetFlag     string
)

var solveCmd = &cobra.Command{
	Use:   "solve [problem-file]",
	Short: "Solve a constrained nonlinear program",
	Args:  cobra.ExactArgs(1),
	RunE:  runSolve,
}

func init() {
	solveCmd.Flags().StringVar(&mechanismFlag, "mechanism", "", "Globalization mechanism: TR, LS")
	solveCmd.Flags().StringVar(&strategyFlag, "strategy", "", "Acceptance strategy: merit, filter")
	solveCmd.Flags().StringVar(&relaxationFlag, "relaxation", "", "Constraint relaxation: l1-relaxation, feasibility-restoration")
	solveCmd.Flags().StringVar(&subproblemFlag, "subproblem", "", "Subproblem engine: QP, LP, Sl1QP, barrier")
	solveCmd.Flags().StringVar(&presetFlag, "preset", "", "Path to a config.Preset file (overridden by the flags above)")
	rootCmd.AddCommand(solveCmd)
}

func runSolve(cmd *cobra.Command, args []string) error {
	opts, err := resolveOptions()
	if err != nil {
		return err
	}
	opts.Logger = logger

	m, err := loadProblem(args[0])
	if err != nil {
		return err
	}

	start := time.Now()
	res := driver.Solve(m, opts)
	elapsed := time.Since(start)

	fmt.Printf("status:            %s\n", res.Status)
	fmt.Printf("wall-clock:        %s\n", elapsed)
	fmt.Printf("outer iterations:  %d\n", res.Stats.OuterIterations)
	fmt.Printf("inner iterations:  %d\n", res.Stats.InnerIterations)
	fmt.Printf("hessian evals:     %d\n", res.Stats.HessianEvaluations)
	fmt.Printf("subproblems solved: %d\n", res.Stats.SubproblemsSolved)
	fmt.Printf("stationarity:      %.3e\n", res.Residuals.Stationarity)
	fmt.Printf("feasibility:       %.3e\n", res.Residuals.Feasibility)
	fmt.Printf("complementarity:   %.3e\n", res.Residuals.Complementarity)
	fmt.Printf("x: %v\n", res.X)
	fmt.Printf("lambda: %v\n", res.Lambda)

	if res.ErrorKind != driver.NoError && res.ErrorKind != driver.IterationLimitExceeded && res.ErrorKind != driver.TimeLimitExceeded {
		fmt.Fprintf(os.Stderr, "fatal: %s: %v\n", res.ErrorKind, res.Err)
		os.Exit(1)
	}
	return nil
}

func resolveOptions() (driver.Options, error) {
	opts := driver.DefaultOptions()
	if presetFlag != "" {
		loaded, err := config.Load(presetFlag)
		if err != nil {
			return driver.Options{}, err
		}
		opts = loaded
	}

	preset := config.Preset{
		Mechanism:  mechanismFlagName(mechanismFlag),
		Strategy:   strategyFlagName(strategyFlag),
		Relaxation: relaxationFlag,
		Subproblem: subproblemFlag,
	}
	overridden, err := preset.ToOptions()
	if err != nil {
		return driver.Options{}, err
	}
	return mergeFlagOverrides(opts, overridden), nil
}

// mechanismFlagName/strategyFlagName translate the CLI's short spellings
// into config.Preset's long spellings.
func mechanismFlagName(s string) string {
	switch s {
	case "TR":
		return "trust-region"
	case "LS":
		return "line-search"
	default:
		return s
	}
}

func strategyFlagName(s string) string { return s }

// mergeFlagOverrides applies only the enum fields the user actually set on
// the command line (config.Preset.ToOptions already defaulted everything
// else back to base's values, so a copy suffices for the untouched fields).
func mergeFlagOverrides(base, flags driver.Options) driver.Options {
	if mechanismFlag != "" {
		base.Mechanism = flags.Mechanism
	}
	if strategyFlag != "" {
		base.Strategy = flags.Strategy
	}
	if relaxationFlag != "" {
		base.Relaxation = flags.Relaxation
	}
	if subproblemFlag != "" {
		base.Subproblem = flags.Subproblem
	}
	return base
}
