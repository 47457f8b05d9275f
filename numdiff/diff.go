// Package numdiff cross-checks an analytic gradient or constraint Jacobian
// against a numerical one, the way a careful model implementation is
// validated before it's trusted to drive an optimizer: a wrong analytic
// derivative otherwise only shows up as a silently wrong optimum, not as an
// error.
package numdiff

import (
	"errors"
	"math"
)

// cubeEps is the cube root of machine epsilon, the step-size scale that
// minimizes the combined truncation/rounding error of a second-order
// central difference (see https://en.wikipedia.org/wiki/Finite_difference).
var cubeEps = math.Pow(math.Nextafter(1, 2)-1, 1.0/3)

// CentralDiff estimates the Jacobian of an M-valued function of an N-vector
// by central differences: for each coordinate i it evaluates Object at
// x0±step·eᵢ and reports (f(x+step·eᵢ)-f(x-step·eᵢ))/(2·step). The Jacobian
// is stored column-major, df[i+j*N] holding ∂(Object output j)/∂x0[i].
type CentralDiff struct {
	N, M   int
	Object func(x, y []float64)

	f1, f2 []float64
}

// Diff fills jac (length N*M) with the central-difference Jacobian of
// Object at x0. x0 is perturbed and restored in place; its contents are
// unchanged once Diff returns.
func (c *CentralDiff) Diff(x0, jac []float64) error {
	switch {
	case c.N <= 0 || c.M <= 0:
		return errors.New("numdiff: non-positive dimensions")
	case c.Object == nil:
		return errors.New("numdiff: object function is required")
	case len(x0) != c.N:
		return errors.New("numdiff: x0 has the wrong length")
	case len(jac) != c.N*c.M:
		return errors.New("numdiff: jac has the wrong length")
	}

	if len(c.f1) != c.M {
		c.f1 = make([]float64, c.M)
		c.f2 = make([]float64, c.M)
	}

	for i, xi := range x0 {
		step := math.Copysign(cubeEps, xi) * math.Max(1.0, math.Abs(xi))

		x0[i] = xi + step
		c.Object(x0, c.f1)
		x0[i] = xi - step
		c.Object(x0, c.f2)
		x0[i] = xi

		d := 1.0 / (2 * step)
		for j := 0; j < c.M; j++ {
			jac[i+j*c.N] = (c.f1[j] - c.f2[j]) * d
		}
	}
	return nil
}
