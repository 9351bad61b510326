package causal

import (
	"errors"
	"math"
	"testing"

	"github.com/causalstack/causal-sentinel/internal/utils"
)

func TestSolveLeastSquaresExactLine(t *testing.T) {
	// y = 2 + 3x, noise free.
	var x [][]float64
	var y []float64
	for i := 0; i < 6; i++ {
		xi := float64(i)
		x = append(x, []float64{1, xi})
		y = append(y, 2+3*xi)
	}

	fit, err := solveLeastSquares(x, y)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if math.Abs(fit.coef[0]-2) > 1e-9 || math.Abs(fit.coef[1]-3) > 1e-9 {
		t.Fatalf("unexpected coefficients: %v", fit.coef)
	}
	if fit.stdErr == nil {
		t.Fatalf("expected standard errors")
	}
	if fit.stdErr[1] > 1e-6 {
		t.Fatalf("noise-free fit should carry near-zero error, got %f", fit.stdErr[1])
	}
}

func TestSolveLeastSquaresNoisyLine(t *testing.T) {
	// y = 10 - 2x with alternating +-1 residuals.
	var x [][]float64
	var y []float64
	for i := 0; i < 10; i++ {
		xi := float64(i)
		x = append(x, []float64{1, xi})
		y = append(y, 10-2*xi+float64(i%2)*2-1)
	}

	fit, err := solveLeastSquares(x, y)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if math.Abs(fit.coef[1]-(-2)) > 0.2 {
		t.Fatalf("slope drifted: %f", fit.coef[1])
	}
	if fit.stdErr[1] <= 0 {
		t.Fatalf("expected positive slope error, got %f", fit.stdErr[1])
	}
}

func TestSolveLeastSquaresStepContrastSign(t *testing.T) {
	// Intercept plus treatment dummy: the slope must equal the group mean
	// difference, negative for a drop.
	control := []float64{100, 101, 99, 100, 100.5, 99.5, 101, 100}
	var x [][]float64
	var y []float64
	for _, v := range control {
		x = append(x, []float64{1, 0})
		y = append(y, v)
	}
	for i := 0; i < 4; i++ {
		x = append(x, []float64{1, 1})
		y = append(y, 70)
	}

	fit, err := solveLeastSquares(x, y)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if fit.coef[1] >= 0 {
		t.Fatalf("expected negative contrast for a drop, got %f", fit.coef[1])
	}
	if math.Abs(fit.coef[1]-(-30.125)) > 1e-9 {
		t.Fatalf("expected contrast -30.125, got %f", fit.coef[1])
	}
	if math.Abs(fit.coef[0]-100.125) > 1e-9 {
		t.Fatalf("expected control mean intercept, got %f", fit.coef[0])
	}
}

func TestSolveLeastSquaresRankDeficient(t *testing.T) {
	// Second column duplicates the intercept.
	x := [][]float64{{1, 1}, {1, 1}, {1, 1}, {1, 1}}
	y := []float64{1, 2, 3, 4}

	_, err := solveLeastSquares(x, y)
	var degenerate *utils.EstimationDegenerateError
	if !errors.As(err, &degenerate) {
		t.Fatalf("expected degenerate estimation error, got %v", err)
	}
}

func TestSolveLeastSquaresUnderdetermined(t *testing.T) {
	x := [][]float64{{1, 2, 3}}
	y := []float64{1}

	_, err := solveLeastSquares(x, y)
	var degenerate *utils.EstimationDegenerateError
	if !errors.As(err, &degenerate) {
		t.Fatalf("expected degenerate estimation error, got %v", err)
	}
}

func TestMeanStd(t *testing.T) {
	mean, std := meanStd([]float64{2, 4, 4, 4, 5, 5, 7, 9})
	if math.Abs(mean-5) > 1e-9 {
		t.Fatalf("unexpected mean %f", mean)
	}
	if math.Abs(std-math.Sqrt(32.0/7.0)) > 1e-9 {
		t.Fatalf("unexpected std %f", std)
	}
}
