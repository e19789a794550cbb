package core

import "porenet/pkg/domain"

// Rule ids of the state-propagation models injected into components.
const (
	RuleMixtureTemperature = "mixture.temperature"
	RuleMixturePressure    = "mixture.pressure"
)

// AddComponent makes component part of mixture. The component receives
// temperature and pressure models that copy the mixture's values on every
// regeneration, placed at the front of its model order. A component already
// listed by any mixture is rejected with ErrDuplicateMembership.
func (p *Project) AddComponent(mixture, component string) error {
	mix, err := p.Phase(mixture)
	if err != nil {
		return err
	}
	comp, err := p.Phase(component)
	if err != nil {
		return err
	}
	if mix == comp || comp.hasComponent(mix) {
		return ErrInvalidArgument{Argument: "component", Reason: component + " would make " + mixture + " contain itself"}
	}
	// The injected state models follow exactly one mixture, so a component
	// belongs to at most one.
	if owners := p.Mixtures(component); len(owners) > 0 {
		return ErrDuplicateMembership{Parent: owners[0].name, Member: component}
	}
	for _, inject := range []struct {
		key  Key
		rule string
	}{
		{domain.KeyTemperature, RuleMixtureTemperature},
		{domain.KeyPressure, RuleMixturePressure},
	} {
		entry, err := comp.bind(inject.key, inject.rule, Args{"mixture": mix.name})
		if err != nil {
			return err
		}
		entry.Always = true
		comp.models.Add(entry)
	}
	if err := comp.ReorderModels(map[Key]int{domain.KeyTemperature: 0, domain.KeyPressure: 1}); err != nil {
		return err
	}
	mix.components = append(mix.components, comp)
	p.logger.Info("component added", "mixture", mixture, "component", component)
	return nil
}

// RemoveComponent detaches component from mixture and drops the state
// models that referenced the mixture. Stored values on the component are
// kept.
func (p *Project) RemoveComponent(mixture, component string) error {
	mix, err := p.Phase(mixture)
	if err != nil {
		return err
	}
	idx := -1
	for i, c := range mix.components {
		if c.name == component {
			idx = i
			break
		}
	}
	if idx < 0 {
		return ErrNotFound{Object: mixture, Key: "component " + component}
	}
	comp := mix.components[idx]
	mix.components = append(mix.components[:idx], mix.components[idx+1:]...)
	for _, key := range []Key{domain.KeyTemperature, domain.KeyPressure} {
		entry, ok := comp.models.Lookup(key)
		if !ok {
			continue
		}
		if ref, _ := entry.Args.String("mixture"); ref == mix.name {
			comp.models.Remove(key)
		}
	}
	p.logger.Info("component removed", "mixture", mixture, "component", component)
	return nil
}

// copyFromMixture returns a rule body copying the keyed argument from the
// referenced mixture onto the component.
func copyFromMixture(param string) RuleFunc {
	return func(mc *ModelContext) ([]float64, error) {
		mix, err := mc.Object("mixture")
		if err != nil {
			return nil, err
		}
		key, err := mc.Key(param)
		if err != nil {
			return nil, err
		}
		return mix.GetContext(mc.Context(), key)
	}
}

// Mixtures returns the phases that list comp as a direct component.
func (p *Project) Mixtures(comp string) []*Phase {
	var out []*Phase
	for _, ph := range p.phases {
		for _, c := range ph.components {
			if c.name == comp {
				out = append(out, ph)
				break
			}
		}
	}
	return out
}
