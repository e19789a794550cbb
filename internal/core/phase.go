package core

import (
	"context"
	"errors"
	"math"

	"porenet/pkg/domain"
)

// Standard conditions seeded on every new phase.
const (
	DefaultTemperature = 298.0
	DefaultPressure    = 101325.0
)

// Phase represents a fluid, gas or mixture occupying the whole network.
// A phase may be composed of component phases and may delegate properties
// to physics regions attached to subsets of its elements.
type Phase struct {
	*object
	net        domain.Network
	components []*Phase
	physics    []*Physics
	warned     map[Key]bool
}

func newPhase(p *Project, name string) (*Phase, error) {
	net := p.net
	ph := &Phase{
		object: newObject(p, name, KindPhase, func(d Domain) int { return domain.Count(net, d) }),
		net:    net,
		warned: make(map[Key]bool),
	}
	for _, d := range domain.Domains {
		all := make([]bool, domain.Count(net, d))
		for i := range all {
			all[i] = true
		}
		if err := ph.store.SetLabel(domain.AllKey(d), all); err != nil {
			return nil, err
		}
	}
	if err := ph.store.Fill(domain.KeyTemperature, DefaultTemperature); err != nil {
		return nil, err
	}
	if err := ph.store.Fill(domain.KeyPressure, DefaultPressure); err != nil {
		return nil, err
	}
	return ph, nil
}

// Network returns the network the phase is defined on.
func (p *Phase) Network() domain.Network { return p.net }

// Components returns the pure-component phases of a mixture.
func (p *Phase) Components() []*Phase {
	return append([]*Phase(nil), p.components...)
}

// Physics returns the attached physics regions in attachment order.
func (p *Phase) Physics() []*Physics {
	return append([]*Physics(nil), p.physics...)
}

// Label returns a copy of an element mask such as node.all or the
// membership mask of an attached physics region.
func (p *Phase) Label(key Key) ([]bool, error) { return p.store.Label(key) }

// Get returns the values of key; see GetContext.
func (p *Phase) Get(key Key) ([]float64, error) {
	return p.GetContext(context.Background(), key)
}

// GetContext returns the values of key. The local store is consulted first,
// then the phase's own model for key, then the attached physics regions.
// Values assembled from physics regions are never written back.
func (p *Phase) GetContext(ctx context.Context, key Key) ([]float64, error) {
	if p.store.Has(key) {
		return p.store.Get(key)
	}
	if ok, err := p.regenerateKey(ctx, p, key); ok {
		if err != nil {
			return nil, err
		}
		return p.store.Get(key)
	}
	p.project.logger.Debug("property not on phase, interleaving from physics", "phase", p.name, "key", key.String())
	values, covered, err := Interleave(ctx, p.Count(key.Domain), key, p.physics)
	if err != nil {
		return nil, err
	}
	if covered == nil {
		return nil, ErrNotFound{Object: p.name, Key: key.String()}
	}
	if !p.warned[key] && len(Indices(covered)) < len(covered) {
		p.warned[key] = true
		p.project.logger.Warn("property only partially defined by physics", "phase", p.name, "key", key.String(),
			"covered", len(Indices(covered)), "total", len(covered))
	}
	return values, nil
}

// Set stores values on the phase. Keys already supplied by an attached
// physics region are rejected and the store is left untouched.
func (p *Phase) Set(key Key, values []float64) error {
	if owner, ok := p.definedByPhysics(key); ok {
		return ErrOwnershipConflict{Object: p.name, Key: key.String(), Owner: owner.name}
	}
	return p.store.Set(key, values)
}

// Fill stores a constant value for every element of key's domain.
func (p *Phase) Fill(key Key, value float64) error {
	if owner, ok := p.definedByPhysics(key); ok {
		return ErrOwnershipConflict{Object: p.name, Key: key.String(), Owner: owner.name}
	}
	return p.store.Fill(key, value)
}

// Delete removes a locally stored value.
func (p *Phase) Delete(key Key) bool { return p.store.Delete(key) }

func (p *Phase) write(key Key, values []float64) error { return p.Set(key, values) }

func (p *Phase) ownerPhase() *Phase { return p }

func (p *Phase) ownerPhysics() *Physics { return nil }

// AddModel registers rule as the source of key. Re-registering a key
// replaces the entry in place.
func (p *Phase) AddModel(key Key, rule string, args Args) error {
	if owner, ok := p.definedByPhysics(key); ok {
		return ErrOwnershipConflict{Object: p.name, Key: key.String(), Owner: owner.name}
	}
	entry, err := p.bind(key, rule, args)
	if err != nil {
		return err
	}
	p.models.Add(entry)
	return nil
}

// Regenerate refreshes every component phase, then the phase's own models.
func (p *Phase) Regenerate(ctx context.Context, opts RegenerateOptions) error {
	for _, comp := range p.components {
		if err := comp.Regenerate(ctx, opts); err != nil {
			return err
		}
	}
	return p.regenerate(ctx, p, opts)
}

// Interpolate maps node values of this phase onto edges.
func (p *Phase) Interpolate(nodeValues []float64) ([]float64, error) {
	return p.project.interp.Interpolate(p.net, nodeValues)
}

// MoleFraction returns the mole fraction of comp in this mixture. A value
// stored on the mixture as node.mole_fraction.<component> wins over the
// component's own node.mole_fraction.
func (p *Phase) MoleFraction(ctx context.Context, comp *Phase) ([]float64, error) {
	v, err := p.GetContext(ctx, domain.KeyMoleFraction.Child(comp.name))
	if err == nil {
		return v, nil
	}
	var nf ErrNotFound
	if !errors.As(err, &nf) {
		return nil, err
	}
	return comp.GetContext(ctx, domain.KeyMoleFraction)
}

func (p *Phase) definedByPhysics(key Key) (*Physics, bool) {
	for _, phys := range p.physics {
		if phys.defines(key) && phys.Count(key.Domain) > 0 {
			return phys, true
		}
	}
	return nil, false
}

func (p *Phase) hasComponent(target *Phase) bool {
	for _, c := range p.components {
		if c == target || c.hasComponent(target) {
			return true
		}
	}
	return false
}

func nanFilled(n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = math.NaN()
	}
	return out
}
