// Package conductance combines node-half and edge-body transport
// conductances into one effective conductance per edge, treating the three
// segments as resistors in series.
package conductance

import (
	"math"

	"porenet/internal/core"
)

// Floor replaces non-positive diameters and lengths before division.
const Floor = 1e-12

// Shape converts the cross-section and length of a segment into its
// geometric conductance factor. The phase coefficient multiplies the result.
type Shape func(area, length float64) float64

// Linear is the shape of a prismatic conductor obeying a linear flux law
// (Ohm, Fick): area / length.
func Linear(area, length float64) float64 { return area / length }

// Poiseuille is the shape of laminar flow through a cylinder:
// area² / (8π length).
func Poiseuille(area, length float64) float64 { return area * area / (8 * math.Pi * length) }

// Geometry is the network geometry the series pattern reads. Node arrays
// have one value per node, edge arrays one value per edge.
type Geometry struct {
	Conns        [][2]int
	NodeArea     []float64
	NodeDiameter []float64
	EdgeArea     []float64
	EdgeLength   []float64
}

func (g Geometry) validate(nodes int) error {
	edges := len(g.Conns)
	checks := []struct {
		name string
		got  int
		want int
	}{
		{"node area", len(g.NodeArea), nodes},
		{"node diameter", len(g.NodeDiameter), nodes},
		{"edge area", len(g.EdgeArea), edges},
		{"edge length", len(g.EdgeLength), edges},
	}
	for _, c := range checks {
		if c.got != c.want {
			return core.ErrDimensionMismatch{Object: "network", Key: c.name, Want: c.want, Got: c.got}
		}
	}
	for _, c := range g.Conns {
		if c[0] < 0 || c[0] >= nodes || c[1] < 0 || c[1] >= nodes {
			return core.ErrInvalidArgument{Argument: "conns", Reason: "edge endpoint outside node range"}
		}
	}
	return nil
}

// NodeHalf returns the conductance of the half of a node adjoining an edge.
// The diameter is clamped to Floor and a result that is not strictly
// positive becomes +Inf, so that half adds no resistance.
func NodeHalf(sigma, area, diameter float64, shape Shape) float64 {
	if diameter <= 0 {
		diameter = Floor
	}
	g := sigma * shape(area, 0.5*diameter)
	if !(g > 0) {
		return math.Inf(1)
	}
	return g
}

// EdgeBody returns the conductance of an edge body with its length clamped
// to Floor.
func EdgeBody(sigma, area, length float64, shape Shape) float64 {
	if length <= 0 {
		length = Floor
	}
	return sigma * shape(area, length)
}

// SeriesResistors combines three conductances: (1/ge + 1/g1 + 1/g2)^-1.
// An infinite term contributes no resistance.
func SeriesResistors(gEdge, g1, g2 float64) float64 {
	return 1 / (1/gEdge + 1/g1 + 1/g2)
}

// Compute evaluates the series pattern for every edge. sigma holds the phase
// coefficient already interpolated onto edges.
func Compute(geo Geometry, nodes int, sigma []float64, shape Shape) ([]float64, error) {
	if err := geo.validate(nodes); err != nil {
		return nil, err
	}
	if len(sigma) != len(geo.Conns) {
		return nil, core.ErrDimensionMismatch{Object: "network", Key: "edge coefficient", Want: len(geo.Conns), Got: len(sigma)}
	}
	out := make([]float64, len(geo.Conns))
	for e, c := range geo.Conns {
		g1 := NodeHalf(sigma[e], geo.NodeArea[c[0]], geo.NodeDiameter[c[0]], shape)
		g2 := NodeHalf(sigma[e], geo.NodeArea[c[1]], geo.NodeDiameter[c[1]], shape)
		gt := EdgeBody(sigma[e], geo.EdgeArea[e], geo.EdgeLength[e], shape)
		out[e] = SeriesResistors(gt, g1, g2)
	}
	return out, nil
}
