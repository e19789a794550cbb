package core

import (
	"context"

	"porenet/pkg/domain"
)

// ModelContext is handed to a rule body. It exposes the owning object, its
// bound arguments and the project collaborators without giving the rule a
// way to write anything but its own target.
type ModelContext struct {
	ctx   context.Context
	owner modelOwner
	entry ModelEntry
}

// Context returns the regeneration context.
func (m *ModelContext) Context() context.Context { return m.ctx }

// Target returns the object the model is registered on.
func (m *ModelContext) Target() Object { return m.owner }

// TargetKey returns the key the rule's result is written to.
func (m *ModelContext) TargetKey() Key { return m.entry.Key }

// Count returns the length the result must have.
func (m *ModelContext) Count() int { return m.owner.Count(m.entry.Key.Domain) }

// Args returns the bound arguments.
func (m *ModelContext) Args() Args { return m.entry.Args }

// Phase returns the owning phase: the target itself, or the phase a physics
// region is attached to.
func (m *ModelContext) Phase() *Phase { return m.owner.ownerPhase() }

// Physics returns the physics region owning the model, or nil for phases.
func (m *ModelContext) Physics() *Physics { return m.owner.ownerPhysics() }

// Network returns the project network.
func (m *ModelContext) Network() domain.Network { return m.owner.base().project.net }

// Key returns a key argument.
func (m *ModelContext) Key(name string) (Key, error) {
	k, ok := m.entry.Args.Key(name)
	if !ok {
		return Key{}, ErrInvalidArgument{Argument: name, Reason: "no key bound for rule " + m.entry.Rule}
	}
	return k, nil
}

// Float returns a float argument.
func (m *ModelContext) Float(name string) (float64, error) {
	f, ok := m.entry.Args.Float(name)
	if !ok {
		return 0, ErrInvalidArgument{Argument: name, Reason: "no number bound for rule " + m.entry.Rule}
	}
	return f, nil
}

// Input reads the key argument name from the owning object.
func (m *ModelContext) Input(name string) ([]float64, error) {
	k, err := m.Key(name)
	if err != nil {
		return nil, err
	}
	return m.owner.GetContext(m.ctx, k)
}

// PhaseInput reads the key argument name from the owning phase, resolving
// through its physics regions when needed.
func (m *ModelContext) PhaseInput(name string) ([]float64, error) {
	k, err := m.Key(name)
	if err != nil {
		return nil, err
	}
	return m.Phase().GetContext(m.ctx, k)
}

// Geometry reads the key argument name from the network.
func (m *ModelContext) Geometry(name string) ([]float64, error) {
	k, err := m.Key(name)
	if err != nil {
		return nil, err
	}
	return m.Network().Get(k)
}

// Object resolves an object argument to a phase of the project.
func (m *ModelContext) Object(name string) (*Phase, error) {
	ref, ok := m.entry.Args.String(name)
	if !ok {
		return nil, ErrInvalidArgument{Argument: name, Reason: "no object bound for rule " + m.entry.Rule}
	}
	return m.owner.base().project.Phase(ref)
}

// Interpolate maps node values onto edges with the project interpolator.
func (m *ModelContext) Interpolate(nodeValues []float64) ([]float64, error) {
	p := m.owner.base().project
	return p.interp.Interpolate(p.net, nodeValues)
}

// Restrict reduces a full-length array of domain d to the elements owned by
// the model's physics region. For phases it returns values unchanged.
func (m *ModelContext) Restrict(d Domain, values []float64) ([]float64, error) {
	phys := m.Physics()
	if phys == nil {
		return values, nil
	}
	return phys.restrict(d, values)
}
