// Copyright ©2025 curioloop. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package driver

import (
	"github.com/curioloop/nlpcore/iterate"
	"github.com/curioloop/nlpcore/stats"
	"github.com/curioloop/nlpcore/termination"
)

// ErrorKind classifies a fatal failure that escaped the inner loop as a
// distinct error kind rather than a generic error.
type ErrorKind int

const (
	NoError ErrorKind = iota
	UnstableRegularization
	StepLengthTooSmall
	EvaluationFailure
	IterationLimitExceeded
	TimeLimitExceeded
)

func (k ErrorKind) String() string {
	switch k {
	case UnstableRegularization:
		return "UnstableRegularization"
	case StepLengthTooSmall:
		return "StepLengthTooSmall"
	case EvaluationFailure:
		return "EvaluationFailure"
	case IterationLimitExceeded:
		return "IterationLimitExceeded"
	case TimeLimitExceeded:
		return "TimeLimitExceeded"
	default:
		return "NoError"
	}
}

// Result is what Solve returns: the last-known iterate (feasible or not),
// its termination classification, and the run's diagnostics.
type Result struct {
	X      []float64
	Lambda []float64
	ZL     []float64
	ZU     []float64

	Status    termination.Status
	Residuals termination.Residuals

	ErrorKind ErrorKind
	Err       error

	Stats stats.Stats
}

func resultFrom(it *iterate.Iterate, status termination.Status, res termination.Residuals, st stats.Stats, kind ErrorKind, err error) *Result {
	return &Result{
		X: append([]float64(nil), it.X...), Lambda: append([]float64(nil), it.Mult.Lambda...),
		ZL: append([]float64(nil), it.Mult.ZL...), ZU: append([]float64(nil), it.Mult.ZU...),
		Status: status, Residuals: res, ErrorKind: kind, Err: err, Stats: st,
	}
}
