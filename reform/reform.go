// Copyright ©2025 curioloop. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package reform wraps a user model.Model and presents the derived problems
// the driver needs: the original problem under a fixed objective
// and constraint scaling (Scaled), a feasibility-restoration problem whose
// objective is constraint violation (FeasibilityRestoration), and an
// elastic-variable relaxation that makes every linearized subproblem
// feasible (ElasticRelaxation). Every type here implements
// model.Model so the subproblem/relax/mechanism layers never need to know
// which reformulation is currently active.
package reform
