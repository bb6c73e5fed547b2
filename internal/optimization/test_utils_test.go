package optimization

import (
	"math"
	"testing"
)

// testObjectiveFunc is a simple quadratic objective function for testing
func testObjectiveFunc(x []float64) (float64, error) {
	sum := 0.0
	for _, v := range x {
		sum += v * v
	}
	return sum, nil
}

// testSinusoidFunc is Σ cos(x_i); its minimum on [-π, π] is -len(x) at ±π.
func testSinusoidFunc(x []float64) (float64, error) {
	sum := 0.0
	for _, v := range x {
		sum += math.Cos(v)
	}
	return sum, nil
}

// uniformBounds returns n copies of [lo, hi].
func uniformBounds(n int, lo, hi float64) [][2]float64 {
	b := make([][2]float64, n)
	for i := range b {
		b[i] = [2]float64{lo, hi}
	}
	return b
}

// assertFloat64SlicesEqual checks if two float64 slices are approximately equal
func assertFloat64SlicesEqual(t *testing.T, got, want []float64, tol float64) {
	t.Helper()

	if len(got) != len(want) {
		t.Fatalf("length mismatch: got %d, want %d", len(got), len(want))
	}

	for i := range got {
		if math.Abs(got[i]-want[i]) > tol {
			t.Fatalf("at index %d: got %v, want %v (tolerance %v)", i, got[i], want[i], tol)
		}
	}
}

// assertWithinBounds checks that every coordinate of x respects bounds
func assertWithinBounds(t *testing.T, x []float64, bounds [][2]float64) {
	t.Helper()

	for i := range x {
		if x[i] < bounds[i][0] || x[i] > bounds[i][1] {
			t.Fatalf("coordinate %d = %v outside [%v, %v]", i, x[i], bounds[i][0], bounds[i][1])
		}
	}
}
