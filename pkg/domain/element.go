// Package domain defines the shared value types, contracts and error kinds
// used by the porenet property engine and its infrastructure adapters.
package domain

import (
	"fmt"
	"strings"
)

// Domain identifies which element set of a network a property lives on.
type Domain string

// Supported element domains.
const (
	// DomainNode covers the pores of a network.
	DomainNode Domain = "node"
	// DomainEdge covers the throats connecting two pores.
	DomainEdge Domain = "edge"
)

// Domains lists the supported domains in canonical order.
var Domains = []Domain{DomainNode, DomainEdge}

// Valid reports whether d is a supported domain.
func (d Domain) Valid() bool {
	return d == DomainNode || d == DomainEdge
}

// Key addresses one per-element property array on an object.
type Key struct {
	Domain Domain
	Name   string
}

// NodeKey is shorthand for a node-domain key.
func NodeKey(name string) Key { return Key{Domain: DomainNode, Name: name} }

// EdgeKey is shorthand for an edge-domain key.
func EdgeKey(name string) Key { return Key{Domain: DomainEdge, Name: name} }

// String renders the key as "<domain>.<name>".
func (k Key) String() string {
	return string(k.Domain) + "." + k.Name
}

// IsZero reports whether the key is unset.
func (k Key) IsZero() bool { return k.Domain == "" && k.Name == "" }

// Child derives a key in the same domain with a dotted suffix, e.g.
// node.mole_fraction -> node.mole_fraction.oxygen.
func (k Key) Child(suffix string) Key {
	return Key{Domain: k.Domain, Name: k.Name + "." + suffix}
}

// legacy prefixes accepted for compatibility with pore/throat naming.
var domainAliases = map[string]Domain{
	"node":   DomainNode,
	"pore":   DomainNode,
	"edge":   DomainEdge,
	"throat": DomainEdge,
}

// ParseKey parses "<domain>.<name>". The pore and throat prefixes are
// accepted as aliases for node and edge.
func ParseKey(raw string) (Key, error) {
	prefix, name, ok := strings.Cut(strings.TrimSpace(raw), ".")
	if !ok || name == "" {
		return Key{}, ErrInvalidArgument{Argument: "key", Reason: fmt.Sprintf("%q is not of the form <domain>.<name>", raw)}
	}
	d, ok := domainAliases[strings.ToLower(prefix)]
	if !ok {
		return Key{}, ErrInvalidArgument{Argument: "key", Reason: fmt.Sprintf("unknown domain %q in %q", prefix, raw)}
	}
	return Key{Domain: d, Name: name}, nil
}

// MustParseKey is ParseKey for static keys; it panics on malformed input.
func MustParseKey(raw string) Key {
	k, err := ParseKey(raw)
	if err != nil {
		panic(err)
	}
	return k
}

// Well-known property keys shared across rule packs.
var (
	KeyNodeAll         = NodeKey("all")
	KeyEdgeAll         = EdgeKey("all")
	KeyTemperature     = NodeKey("temperature")
	KeyPressure        = NodeKey("pressure")
	KeyMoleFraction    = NodeKey("mole_fraction")
	KeyMolecularWeight = NodeKey("molecular_weight")
	KeyDiffusionVolume = NodeKey("molar_diffusion_volume")
)

// AllKey returns the existence label key for the domain.
func AllKey(d Domain) Key { return Key{Domain: d, Name: "all"} }
