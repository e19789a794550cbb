package network

import (
	"fmt"

	"porenet/pkg/domain"
)

// Mean assigns every edge the arithmetic mean of its two end nodes.
var Mean domain.Interpolator = domain.InterpolatorFunc(func(n domain.Network, v []float64) ([]float64, error) {
	return interpolate(n, v, func(a, b float64) float64 { return (a + b) / 2 })
})

// Harmonic assigns every edge the harmonic mean of its two end nodes. A
// zero end value yields zero.
var Harmonic domain.Interpolator = domain.InterpolatorFunc(func(n domain.Network, v []float64) ([]float64, error) {
	return interpolate(n, v, func(a, b float64) float64 {
		if a == 0 || b == 0 {
			return 0
		}
		return 2 / (1/a + 1/b)
	})
})

// Interpolator returns the interpolator registered under name.
func Interpolator(name string) (domain.Interpolator, error) {
	switch name {
	case "", "mean":
		return Mean, nil
	case "harmonic":
		return Harmonic, nil
	default:
		return nil, domain.ErrInvalidArgument{Argument: "interpolation", Reason: fmt.Sprintf("unknown mode %q", name)}
	}
}

func interpolate(n domain.Network, nodeValues []float64, combine func(a, b float64) float64) ([]float64, error) {
	if len(nodeValues) != n.NodeCount() {
		return nil, domain.ErrDimensionMismatch{Object: n.Name(), Key: "interpolation input", Want: n.NodeCount(), Got: len(nodeValues)}
	}
	conns := n.Conns()
	out := make([]float64, len(conns))
	for i, c := range conns {
		out[i] = combine(nodeValues[c[0]], nodeValues[c[1]])
	}
	return out, nil
}
