// Package network provides an in-memory pore network: node and edge counts,
// edge connectivity and named geometry arrays.
package network

import (
	"fmt"
	"sort"

	"porenet/pkg/domain"
)

// Network is a mutable pore network. Phases only read it through
// domain.Network.
type Network struct {
	name     string
	nodes    int
	conns    [][2]int
	geometry map[domain.Key][]float64
}

var _ domain.Network = (*Network)(nil)

// New builds a network with nodes pores joined by conns throats. Every
// connection must reference existing nodes.
func New(name string, nodes int, conns [][2]int) (*Network, error) {
	if nodes < 0 {
		return nil, domain.ErrInvalidArgument{Argument: "nodes", Reason: "count cannot be negative"}
	}
	for i, c := range conns {
		if c[0] < 0 || c[0] >= nodes || c[1] < 0 || c[1] >= nodes {
			return nil, domain.ErrInvalidArgument{Argument: "conns", Reason: fmt.Sprintf("edge %d references node outside [0,%d)", i, nodes)}
		}
	}
	return &Network{
		name:     name,
		nodes:    nodes,
		conns:    append([][2]int(nil), conns...),
		geometry: make(map[domain.Key][]float64),
	}, nil
}

// Name implements domain.Network.
func (n *Network) Name() string { return n.name }

// NodeCount implements domain.Network.
func (n *Network) NodeCount() int { return n.nodes }

// EdgeCount implements domain.Network.
func (n *Network) EdgeCount() int { return len(n.conns) }

// Conns implements domain.Network.
func (n *Network) Conns() [][2]int { return append([][2]int(nil), n.conns...) }

// Get implements domain.Network.
func (n *Network) Get(key domain.Key) ([]float64, error) {
	v, ok := n.geometry[key]
	if !ok {
		return nil, domain.ErrNotFound{Object: n.name, Key: key.String()}
	}
	return append([]float64(nil), v...), nil
}

// Set stores a geometry array; its length must match the domain count.
func (n *Network) Set(key domain.Key, values []float64) error {
	if !key.Domain.Valid() || key.Name == "" {
		return domain.ErrInvalidArgument{Argument: "key", Reason: "malformed key " + key.String()}
	}
	if want := domain.Count(n, key.Domain); len(values) != want {
		return domain.ErrDimensionMismatch{Object: n.name, Key: key.String(), Want: want, Got: len(values)}
	}
	n.geometry[key] = append([]float64(nil), values...)
	return nil
}

// Keys returns the geometry keys in sorted order.
func (n *Network) Keys() []domain.Key {
	out := make([]domain.Key, 0, len(n.geometry))
	for k := range n.geometry {
		out = append(out, k)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].String() < out[j].String() })
	return out
}
