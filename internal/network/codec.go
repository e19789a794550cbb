package network

import (
	"fmt"
	"io"

	"gopkg.in/yaml.v3"

	"porenet/pkg/domain"
)

// Document is the serialised form of a network. JSON documents are valid
// YAML, so Decode reads both.
type Document struct {
	Name     string               `yaml:"name" json:"name"`
	Nodes    int                  `yaml:"nodes" json:"nodes"`
	Conns    [][2]int             `yaml:"conns" json:"conns"`
	Geometry map[string][]float64 `yaml:"geometry,omitempty" json:"geometry,omitempty"`
}

// Decode reads a network document. Geometry keys accept the pore and
// throat prefixes as well as node and edge.
func Decode(r io.Reader) (*Network, error) {
	var doc Document
	if err := yaml.NewDecoder(r).Decode(&doc); err != nil {
		return nil, fmt.Errorf("decode network: %w", err)
	}
	return doc.Build()
}

// Build constructs the network described by the document.
func (d Document) Build() (*Network, error) {
	net, err := New(d.Name, d.Nodes, d.Conns)
	if err != nil {
		return nil, err
	}
	for raw, values := range d.Geometry {
		key, err := domain.ParseKey(raw)
		if err != nil {
			return nil, err
		}
		if err := net.Set(key, values); err != nil {
			return nil, err
		}
	}
	return net, nil
}

// Encode writes the network as YAML.
func Encode(w io.Writer, n *Network) error {
	doc := Document{Name: n.name, Nodes: n.nodes, Conns: n.Conns(), Geometry: make(map[string][]float64, len(n.geometry))}
	for k, v := range n.geometry {
		doc.Geometry[k.String()] = append([]float64(nil), v...)
	}
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(doc); err != nil {
		return fmt.Errorf("encode network %s: %w", n.name, err)
	}
	return enc.Close()
}
