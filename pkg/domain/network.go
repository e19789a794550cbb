package domain

// Network is the read-only view of a pore network consumed by the engine.
// Implementations own topology and geometry; the engine never mutates them.
type Network interface {
	Name() string
	NodeCount() int
	EdgeCount() int
	// Conns returns the edge-to-node incidence, one [2]int per edge.
	Conns() [][2]int
	// Get returns a copy of a named geometric property array.
	Get(key Key) ([]float64, error)
}

// Count returns the element count of the network for the given domain.
func Count(n Network, d Domain) int {
	switch d {
	case DomainNode:
		return n.NodeCount()
	case DomainEdge:
		return n.EdgeCount()
	default:
		return 0
	}
}

// Interpolator maps node-domain values onto edges, one value per edge.
type Interpolator interface {
	Interpolate(n Network, nodeValues []float64) ([]float64, error)
}

// InterpolatorFunc adapts a function to the Interpolator interface.
type InterpolatorFunc func(n Network, nodeValues []float64) ([]float64, error)

// Interpolate implements Interpolator.
func (f InterpolatorFunc) Interpolate(n Network, nodeValues []float64) ([]float64, error) {
	return f(n, nodeValues)
}
