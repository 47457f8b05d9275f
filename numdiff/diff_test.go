package numdiff

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCentralDiff_MatchesAnalyticGradientOfQuadratic(t *testing.T) {
	// f(x) = x1^2 + 3*x1*x2 - x2^2, grad = (2x1+3x2, 3x1-2x2).
	c := CentralDiff{N: 2, M: 1, Object: func(x, y []float64) {
		y[0] = x[0]*x[0] + 3*x[0]*x[1] - x[1]*x[1]
	}}
	x0 := []float64{1.3, -2.1}
	grad := make([]float64, 2)

	require.NoError(t, c.Diff(x0, grad))
	assert.InDelta(t, 2*x0[0]+3*x0[1], grad[0], 1e-5)
	assert.InDelta(t, 3*x0[0]-2*x0[1], grad[1], 1e-5)
	assert.Equal(t, []float64{1.3, -2.1}, x0, "x0 must be restored after perturbation")
}

func TestCentralDiff_MatchesAnalyticJacobianOfVectorFunction(t *testing.T) {
	// f1 = x1*x2, f2 = x1^2 - x2; jac is column-major, jac[i+j*N] holding
	// d(output j)/d(x i). df1/dx1=x2, df1/dx2=x1, df2/dx1=2*x1, df2/dx2=-1.
	c := CentralDiff{N: 2, M: 2, Object: func(x, y []float64) {
		y[0] = x[0] * x[1]
		y[1] = x[0]*x[0] - x[1]
	}}
	x0 := []float64{2.0, 3.0}
	jac := make([]float64, 4)

	require.NoError(t, c.Diff(x0, jac))
	assert.InDelta(t, x0[1], jac[0], 1e-5)
	assert.InDelta(t, x0[0], jac[1], 1e-5)
	assert.InDelta(t, 2*x0[0], jac[2], 1e-5)
	assert.InDelta(t, -1.0, jac[3], 1e-5)
}

func TestCentralDiff_RejectsNonPositiveDimensions(t *testing.T) {
	c := CentralDiff{N: 0, M: 1, Object: func([]float64, []float64) {}}
	assert.Error(t, c.Diff(nil, make([]float64, 1)))
}

func TestCentralDiff_RejectsMissingObjectFunction(t *testing.T) {
	c := CentralDiff{N: 1, M: 1}
	assert.Error(t, c.Diff([]float64{0}, make([]float64, 1)))
}

func TestCentralDiff_RejectsMismatchedX0Length(t *testing.T) {
	c := CentralDiff{N: 2, M: 1, Object: func([]float64, []float64) {}}
	assert.Error(t, c.Diff([]float64{0}, make([]float64, 2)))
}

func TestCentralDiff_RejectsMismatchedJacobianLength(t *testing.T) {
	c := CentralDiff{N: 2, M: 1, Object: func([]float64, []float64) {}}
	assert.Error(t, c.Diff([]float64{0, 0}, make([]float64, 1)))
}
