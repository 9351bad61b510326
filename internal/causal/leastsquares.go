package causal

import (
	"math"

	"github.com/causalstack/causal-sentinel/internal/utils"
)

// lsFit is the outcome of an ordinary least squares solve.
type lsFit struct {
	coef []float64
	// stdErr holds per-coefficient standard errors; nil when the fit had no
	// degrees of freedom or the design matrix was rank deficient.
	stdErr []float64
}

// rankTolerance bounds how small a diagonal entry of R may get before the
// design matrix is treated as rank deficient (collinear confounders).
const rankTolerance = 1e-10

// solveLeastSquares fits y ~ X via a Householder QR decomposition. QR is
// used instead of the normal equations so collinear confounders degrade
// gracefully instead of amplifying rounding error.
func solveLeastSquares(x [][]float64, y []float64) (lsFit, error) {
	n := len(x)
	if n == 0 {
		return lsFit{}, &utils.EstimationDegenerateError{Reason: "empty design matrix"}
	}
	p := len(x[0])
	if n < p {
		return lsFit{}, &utils.EstimationDegenerateError{Reason: "fewer observations than coefficients"}
	}

	// Work on copies: the solve transforms both in place.
	a := make([][]float64, n)
	for i := range x {
		a[i] = append([]float64(nil), x[i]...)
	}
	b := append([]float64(nil), y...)

	// Householder QR: after the loop, the upper triangle of a holds R and b
	// holds Q'y.
	for k := 0; k < p; k++ {
		norm := 0.0
		for i := k; i < n; i++ {
			norm = math.Hypot(norm, a[i][k])
		}
		if norm == 0 {
			continue
		}
		// Give norm the sign of the pivot so the u0 = 1 + |x0|/norm update
		// below never cancels.
		if a[k][k] < 0 {
			norm = -norm
		}
		for i := k; i < n; i++ {
			a[i][k] /= norm
		}
		a[k][k] += 1

		for j := k + 1; j < p; j++ {
			s := 0.0
			for i := k; i < n; i++ {
				s += a[i][k] * a[i][j]
			}
			s = -s / a[k][k]
			for i := k; i < n; i++ {
				a[i][j] += s * a[i][k]
			}
		}
		s := 0.0
		for i := k; i < n; i++ {
			s += a[i][k] * b[i]
		}
		s = -s / a[k][k]
		for i := k; i < n; i++ {
			b[i] += s * a[i][k]
		}
		// The reflector maps the pivot column onto -norm*e1, so that is the
		// R diagonal entry back substitution must use.
		a[k][k] = -norm
	}

	for k := 0; k < p; k++ {
		if math.Abs(a[k][k]) < rankTolerance {
			return lsFit{}, &utils.EstimationDegenerateError{Reason: "rank-deficient design matrix"}
		}
	}

	// Back substitution: R coef = Q'y.
	coef := make([]float64, p)
	for k := p - 1; k >= 0; k-- {
		s := b[k]
		for j := k + 1; j < p; j++ {
			s -= a[k][j] * coef[j]
		}
		coef[k] = s / a[k][k]
	}

	fit := lsFit{coef: coef}

	dof := n - p
	if dof <= 0 {
		return fit, nil
	}

	// Residual variance from the tail of Q'y.
	rss := 0.0
	for i := p; i < n; i++ {
		rss += b[i] * b[i]
	}
	s2 := rss / float64(dof)

	// (X'X)^-1 = Rinv Rinv', so the diagonal entries needed for standard
	// errors are row norms of Rinv.
	rinv := invertUpper(a, p)
	stdErr := make([]float64, p)
	for k := 0; k < p; k++ {
		d := 0.0
		for j := k; j < p; j++ {
			d += rinv[k][j] * rinv[k][j]
		}
		stdErr[k] = math.Sqrt(s2 * d)
	}
	fit.stdErr = stdErr

	return fit, nil
}

// invertUpper inverts the p-by-p upper triangle of a.
func invertUpper(a [][]float64, p int) [][]float64 {
	inv := make([][]float64, p)
	for i := range inv {
		inv[i] = make([]float64, p)
	}
	for k := p - 1; k >= 0; k-- {
		inv[k][k] = 1 / a[k][k]
		for j := k + 1; j < p; j++ {
			s := 0.0
			for i := k + 1; i <= j; i++ {
				s += a[k][i] * inv[i][j]
			}
			inv[k][j] = -s / a[k][k]
		}
	}
	return inv
}

// meanStd returns the mean and sample standard deviation of values.
func meanStd(values []float64) (mean, std float64) {
	if len(values) == 0 {
		return 0, 0
	}
	for _, v := range values {
		mean += v
	}
	mean /= float64(len(values))
	if len(values) < 2 {
		return mean, 0
	}
	variance := 0.0
	for _, v := range values {
		diff := v - mean
		variance += diff * diff
	}
	variance /= float64(len(values) - 1)
	return mean, math.Sqrt(variance)
}
