package core

import (
	"fmt"
	"sort"

	"porenet/pkg/domain"
)

// ParamKind is the type of a bound model argument.
type ParamKind int

// Supported argument kinds.
const (
	ParamKey ParamKind = iota
	ParamString
	ParamFloat
	// ParamObject holds the name of another project object. It is a
	// non-owning reference resolved through the project at evaluation time.
	ParamObject
)

func (k ParamKind) String() string {
	switch k {
	case ParamKey:
		return "key"
	case ParamString:
		return "string"
	case ParamFloat:
		return "float"
	case ParamObject:
		return "object"
	default:
		return "unknown"
	}
}

// ParamSpec declares one argument accepted by a rule.
type ParamSpec struct {
	Name     string
	Kind     ParamKind
	Default  any
	Required bool
}

// RuleFunc computes the values of a model target.
type RuleFunc func(mc *ModelContext) ([]float64, error)

// RuleDefinition binds a rule identifier to its parameter schema and body.
type RuleDefinition struct {
	ID          string
	Description string
	Params      []ParamSpec
	Eval        RuleFunc
}

// Args are the validated, normalised arguments bound to a model entry.
// Key arguments hold domain.Key, object arguments the object name, floats
// float64.
type Args map[string]any

func (a Args) clone() Args {
	out := make(Args, len(a))
	for k, v := range a {
		out[k] = v
	}
	return out
}

// Key returns a key argument.
func (a Args) Key(name string) (Key, bool) {
	k, ok := a[name].(Key)
	return k, ok
}

// Float returns a float argument.
func (a Args) Float(name string) (float64, bool) {
	f, ok := a[name].(float64)
	return f, ok
}

// String returns a string or object argument.
func (a Args) String(name string) (string, bool) {
	s, ok := a[name].(string)
	return s, ok
}

// Bind checks args against the schema and returns a normalised copy with
// defaults applied.
func (d RuleDefinition) Bind(args Args) (Args, error) {
	specs := make(map[string]ParamSpec, len(d.Params))
	for _, p := range d.Params {
		specs[p.Name] = p
	}
	for name := range args {
		if _, ok := specs[name]; !ok {
			return nil, ErrInvalidArgument{Argument: name, Reason: fmt.Sprintf("not accepted by rule %s", d.ID)}
		}
	}
	out := make(Args, len(d.Params))
	for _, p := range d.Params {
		raw, ok := args[p.Name]
		if !ok || raw == nil {
			raw = p.Default
		}
		if raw == nil {
			if p.Required {
				return nil, ErrInvalidArgument{Argument: p.Name, Reason: fmt.Sprintf("required by rule %s", d.ID)}
			}
			continue
		}
		v, err := normalise(p, raw)
		if err != nil {
			return nil, err
		}
		out[p.Name] = v
	}
	return out, nil
}

// InputKeys returns the key arguments of a bound entry, sorted.
func (d RuleDefinition) InputKeys(args Args) []Key {
	var out []Key
	for _, p := range d.Params {
		if p.Kind != ParamKey {
			continue
		}
		if k, ok := args.Key(p.Name); ok {
			out = append(out, k)
		}
	}
	sortKeys(out)
	return out
}

type named interface{ Name() string }

func normalise(p ParamSpec, raw any) (any, error) {
	bad := func() error {
		return ErrInvalidArgument{Argument: p.Name, Reason: fmt.Sprintf("expected %s, got %T", p.Kind, raw)}
	}
	switch p.Kind {
	case ParamKey:
		switch v := raw.(type) {
		case Key:
			if !v.Domain.Valid() || v.Name == "" {
				return nil, ErrInvalidArgument{Argument: p.Name, Reason: "malformed key " + v.String()}
			}
			return v, nil
		case string:
			return domain.ParseKey(v)
		}
	case ParamString:
		if v, ok := raw.(string); ok {
			return v, nil
		}
	case ParamFloat:
		switch v := raw.(type) {
		case float64:
			return v, nil
		case float32:
			return float64(v), nil
		case int:
			return float64(v), nil
		case int64:
			return float64(v), nil
		}
	case ParamObject:
		switch v := raw.(type) {
		case string:
			if v == "" {
				return nil, bad()
			}
			return v, nil
		case named:
			return v.Name(), nil
		}
	}
	return nil, bad()
}

// RuleCatalog holds the rule definitions available to a project.
type RuleCatalog struct {
	rules map[string]RuleDefinition
}

// NewRuleCatalog constructs an empty catalog.
func NewRuleCatalog() *RuleCatalog {
	return &RuleCatalog{rules: make(map[string]RuleDefinition)}
}

// Register adds a rule definition; ids must be unique.
func (c *RuleCatalog) Register(def RuleDefinition) error {
	if def.ID == "" || def.Eval == nil {
		return ErrInvalidArgument{Argument: "rule", Reason: "definition requires an id and a body"}
	}
	if _, exists := c.rules[def.ID]; exists {
		return ErrDuplicateMembership{Parent: "rule catalog", Member: def.ID}
	}
	c.rules[def.ID] = def
	return nil
}

// Lookup returns the definition registered under id.
func (c *RuleCatalog) Lookup(id string) (RuleDefinition, error) {
	def, ok := c.rules[id]
	if !ok {
		return RuleDefinition{}, ErrNotFound{Object: "rule catalog", Key: "rule " + id}
	}
	return def, nil
}

// IDs returns the registered rule ids in sorted order.
func (c *RuleCatalog) IDs() []string {
	out := make([]string, 0, len(c.rules))
	for id := range c.rules {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}
