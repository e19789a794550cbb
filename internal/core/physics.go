package core

import (
	"context"
	"sort"
)

// Physics supplies values for a subset of one phase's nodes and edges.
// Stored arrays have one value per owned element, in ascending element
// order.
type Physics struct {
	*object
	phase *Phase
	nodes []int
	edges []int
}

func newPhysics(p *Project, phase *Phase, name string, nodes, edges []int) *Physics {
	ph := &Physics{
		phase: phase,
		nodes: sortedUnique(nodes),
		edges: sortedUnique(edges),
	}
	ph.object = newObject(p, name, KindPhysics, func(d Domain) int { return len(ph.indices(d)) })
	return ph
}

// Phase returns the phase the region is attached to.
func (p *Physics) Phase() *Phase { return p.phase }

// Nodes returns the owned node indices.
func (p *Physics) Nodes() []int { return append([]int(nil), p.nodes...) }

// Edges returns the owned edge indices.
func (p *Physics) Edges() []int { return append([]int(nil), p.edges...) }

func (p *Physics) indices(d Domain) []int {
	if d == DomainEdge {
		return p.edges
	}
	return p.nodes
}

// Get returns the subset values of key; see GetContext.
func (p *Physics) Get(key Key) ([]float64, error) {
	return p.GetContext(context.Background(), key)
}

// GetContext returns the stored values of key, running the region's own
// model for key when the value is not yet stored.
func (p *Physics) GetContext(ctx context.Context, key Key) ([]float64, error) {
	if p.store.Has(key) {
		return p.store.Get(key)
	}
	if ok, err := p.regenerateKey(ctx, p, key); ok {
		if err != nil {
			return nil, err
		}
		return p.store.Get(key)
	}
	return nil, ErrNotFound{Object: p.name, Key: key.String()}
}

// Set stores subset values. A key the phase stores itself, or that a
// sibling region with overlapping elements already defines, is rejected.
func (p *Physics) Set(key Key, values []float64) error {
	if err := p.checkOwnership(key); err != nil {
		return err
	}
	return p.store.Set(key, values)
}

// Fill stores a constant value for every owned element of key's domain.
func (p *Physics) Fill(key Key, value float64) error {
	if err := p.checkOwnership(key); err != nil {
		return err
	}
	return p.store.Fill(key, value)
}

func (p *Physics) write(key Key, values []float64) error { return p.Set(key, values) }

func (p *Physics) ownerPhase() *Phase { return p.phase }

func (p *Physics) ownerPhysics() *Physics { return p }

// AddModel registers rule as the source of key for this region.
func (p *Physics) AddModel(key Key, rule string, args Args) error {
	if err := p.checkOwnership(key); err != nil {
		return err
	}
	entry, err := p.bind(key, rule, args)
	if err != nil {
		return err
	}
	p.models.Add(entry)
	return nil
}

// Regenerate runs the region's models in order.
func (p *Physics) Regenerate(ctx context.Context, opts RegenerateOptions) error {
	return p.regenerate(ctx, p, opts)
}

func (p *Physics) defines(key Key) bool {
	return p.store.Has(key) || p.models.Has(key)
}

func (p *Physics) checkOwnership(key Key) error {
	if p.phase.store.Has(key) || p.phase.models.Has(key) {
		return ErrOwnershipConflict{Object: p.name, Key: key.String(), Owner: p.phase.name}
	}
	for _, sib := range p.phase.physics {
		if sib == p || !sib.defines(key) {
			continue
		}
		if overlaps(sib.indices(key.Domain), p.indices(key.Domain)) {
			return ErrOwnershipConflict{Object: p.name, Key: key.String(), Owner: sib.name}
		}
	}
	return nil
}

// restrict picks the owned elements out of a full-length array.
func (p *Physics) restrict(d Domain, values []float64) ([]float64, error) {
	if want := p.phase.Count(d); len(values) != want {
		return nil, ErrDimensionMismatch{Object: p.name, Key: string(d), Want: want, Got: len(values)}
	}
	idx := p.indices(d)
	out := make([]float64, len(idx))
	for i, j := range idx {
		out[i] = values[j]
	}
	return out, nil
}

func overlaps(a, b []int) bool {
	i, j := 0, 0
	for i < len(a) && j < len(b) {
		switch {
		case a[i] == b[j]:
			return true
		case a[i] < b[j]:
			i++
		default:
			j++
		}
	}
	return false
}

func sortedUnique(in []int) []int {
	out := append([]int(nil), in...)
	sort.Ints(out)
	n := 0
	for i, v := range out {
		if i > 0 && v == out[n-1] {
			continue
		}
		out[n] = v
		n++
	}
	return out[:n]
}
