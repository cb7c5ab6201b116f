package gmid

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/interp"
)

// minSplinePoints is the fewest knots a not-a-knot cubic accepts.
const minSplinePoints = 4

// fitSpline fits a not-a-knot cubic spline of ys against strictly increasing xs.
func fitSpline(xs, ys []float64) (interp.FittablePredictor, error) {
	if len(xs) != len(ys) {
		return nil, fmt.Errorf("spline: %d knots, %d values", len(xs), len(ys))
	}
	if len(xs) < minSplinePoints {
		return nil, fmt.Errorf("spline: need at least %d knots, got %d", minSplinePoints, len(xs))
	}
	for i := 1; i < len(xs); i++ {
		if !(xs[i] > xs[i-1]) {
			return nil, fmt.Errorf("spline: %w: knot %d (%g) does not exceed knot %d (%g)", ErrNotMonotonic, i, xs[i], i-1, xs[i-1])
		}
	}
	for i, y := range ys {
		if math.IsNaN(y) || math.IsInf(y, 0) {
			return nil, fmt.Errorf("spline: non-finite value %g at knot %d", y, i)
		}
	}
	s := &interp.NotAKnotCubic{}
	if err := s.Fit(xs, ys); err != nil {
		return nil, fmt.Errorf("spline: %w", err)
	}
	return s, nil
}

// latticeWithin returns the points min + i*step of the fixed lattice
// [min, max) that also lie inside the data span [lo, hi]. Clipping keeps
// the lattice aligned across corners without extrapolating any spline.
func latticeWithin(min, max, step, lo, hi float64) []float64 {
	var out []float64
	for _, x := range arange(min, max, step) {
		if x >= lo && x <= hi {
			out = append(out, x)
		}
	}
	return out
}

// predictAll evaluates p at every grid point.
func predictAll(p interp.Predictor, grid []float64) []float64 {
	out := make([]float64, len(grid))
	for i, x := range grid {
		out[i] = p.Predict(x)
	}
	return out
}
