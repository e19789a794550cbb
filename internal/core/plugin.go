package core

import "sort"

// Plugin describes a rule pack that contributes model rules to a project.
type Plugin interface {
	Name() string
	Version() string
	Register(registry *PluginRegistry) error
}

// PluginRegistry accumulates plugin contributions during registration.
type PluginRegistry struct {
	rules []RuleDefinition
}

// NewPluginRegistry constructs a plugin registry.
func NewPluginRegistry() *PluginRegistry {
	return &PluginRegistry{}
}

// RegisterRule adds a model rule contributed by the plugin.
func (r *PluginRegistry) RegisterRule(rule RuleDefinition) {
	if rule.ID == "" || rule.Eval == nil {
		return
	}
	r.rules = append(r.rules, rule)
}

// Rules returns a copy of registered rules.
func (r *PluginRegistry) Rules() []RuleDefinition {
	out := make([]RuleDefinition, len(r.rules))
	copy(out, r.rules)
	return out
}

// PluginMetadata describes an installed plugin.
type PluginMetadata struct {
	Name    string
	Version string
	Rules   []string
}

func pluginMetadata(p Plugin, rules []RuleDefinition) PluginMetadata {
	ids := make([]string, 0, len(rules))
	for _, r := range rules {
		ids = append(ids, r.ID)
	}
	sort.Strings(ids)
	return PluginMetadata{Name: p.Name(), Version: p.Version(), Rules: ids}
}
