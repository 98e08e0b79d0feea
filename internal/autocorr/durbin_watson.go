// Package autocorr tests regression residuals for first-order autocorrelation.
package autocorr

import (
	"errors"
	"fmt"
	"math"
)

// MinResiduals is the smallest sample DurbinWatson accepts.
const MinResiduals = 3

var (
	// ErrInsufficientData is returned for fewer than MinResiduals residuals.
	ErrInsufficientData = errors.New("autocorr: insufficient data")

	// ErrDegenerateResiduals is returned when every residual is zero.
	ErrDegenerateResiduals = errors.New("autocorr: residuals are all zero")

	// ErrNonFiniteResidual is returned when a residual is NaN or infinite.
	ErrNonFiniteResidual = errors.New("autocorr: residual is not finite")
)

// Verdict is the outcome of the bounds test.
type Verdict string

const (
	VerdictPositive     Verdict = "positive_autocorrelation"
	VerdictNegative     Verdict = "negative_autocorrelation"
	VerdictInconclusive Verdict = "inconclusive"
	VerdictNone         Verdict = "no_autocorrelation"
)

// Bounds holds the lower (dL) and upper (dU) critical values for a sample size.
type Bounds struct {
	Lower float64 `json:"lower"`
	Upper float64 `json:"upper"`
}

// band is one row of the critical value table: it applies to n <= maxN.
type band struct {
	maxN   int
	bounds Bounds
}

var bands = []band{
	{15, Bounds{0.95, 1.54}},
	{20, Bounds{1.00, 1.68}},
	{25, Bounds{1.05, 1.66}},
	{30, Bounds{1.08, 1.65}},
}

var defaultBounds = Bounds{1.10, 1.64}

// CriticalBounds returns the table bounds for a sample of n residuals.
func CriticalBounds(n int) Bounds {
	for _, b := range bands {
		if n <= b.maxN {
			return b.bounds
		}
	}
	return defaultBounds
}

// Result is a computed Durbin–Watson test.
type Result struct {
	Statistic float64 `json:"statistic"`
	N         int     `json:"n"`
	Bounds    Bounds  `json:"bounds"`
	Verdict   Verdict `json:"verdict"`
}

// DurbinWatson computes d = sum((e[t]-e[t-1])^2) / sum(e[t]^2) and classifies it
// against the bounds for len(residuals). Residuals are scaled by their largest
// magnitude first; d is scale invariant and the squares can then neither overflow
// nor underflow.
func DurbinWatson(residuals []float64) (Result, error) {
	n := len(residuals)
	if n < MinResiduals {
		return Result{N: n}, fmt.Errorf("%w: %d residuals, need %d", ErrInsufficientData, n, MinResiduals)
	}

	var scale float64
	for t, e := range residuals {
		if math.IsNaN(e) || math.IsInf(e, 0) {
			return Result{N: n}, fmt.Errorf("%w: residual %d is %v", ErrNonFiniteResidual, t, e)
		}
		scale = max(scale, math.Abs(e))
	}
	if scale == 0 {
		return Result{N: n}, ErrDegenerateResiduals
	}

	var num, den float64
	for t, e := range residuals {
		e /= scale
		den += e * e
		if t > 0 {
			diff := e - residuals[t-1]/scale
			num += diff * diff
		}
	}

	d := num / den
	b := CriticalBounds(n)
	return Result{Statistic: d, N: n, Bounds: b, Verdict: Classify(d, b)}, nil
}

// Classify applies the bounds test to statistic d.
func Classify(d float64, b Bounds) Verdict {
	switch {
	case d < b.Lower:
		return VerdictPositive
	case d > 4-b.Lower:
		return VerdictNegative
	case d >= b.Lower && d <= b.Upper:
		return VerdictInconclusive
	case d > b.Upper && d < 4-b.Upper:
		return VerdictNone
	default:
		return VerdictInconclusive
	}
}
