package main

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"gopkg.in/yaml.v3"

	"porenet/internal/core"
	"porenet/internal/network"
	"porenet/pkg/domain"
)

// projectDocument describes a project to build and regenerate. Network
// paths are resolved relative to the document.
type projectDocument struct {
	Name    string            `yaml:"name"`
	Network string            `yaml:"network"`
	Phases  []phaseDocument   `yaml:"phases"`
	Physics []physicsDocument `yaml:"physics"`
}

type modelDocument struct {
	Key  string         `yaml:"key"`
	Rule string         `yaml:"rule"`
	Args map[string]any `yaml:"args"`
}

type phaseDocument struct {
	Name       string          `yaml:"name"`
	Components []string        `yaml:"components"`
	Values     map[string]any  `yaml:"values"`
	Models     []modelDocument `yaml:"models"`
}

type physicsDocument struct {
	Name   string          `yaml:"name"`
	Phase  string          `yaml:"phase"`
	All    bool            `yaml:"all"`
	Nodes  []int           `yaml:"nodes"`
	Edges  []int           `yaml:"edges"`
	Values map[string]any  `yaml:"values"`
	Models []modelDocument `yaml:"models"`
}

func readProjectDocument(path string) (projectDocument, *network.Network, error) {
	// #nosec G304 -- path is an operator-supplied CLI argument.
	data, err := os.ReadFile(path)
	if err != nil {
		return projectDocument{}, nil, fmt.Errorf("read project: %w", err)
	}
	var doc projectDocument
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return projectDocument{}, nil, fmt.Errorf("parse project: %w", err)
	}
	if doc.Name == "" {
		return projectDocument{}, nil, fmt.Errorf("project document %s has no name", path)
	}
	netPath := doc.Network
	if !filepath.IsAbs(netPath) {
		netPath = filepath.Join(filepath.Dir(path), netPath)
	}
	net, err := readNetwork(netPath)
	if err != nil {
		return projectDocument{}, nil, err
	}
	return doc, net, nil
}

func readNetwork(path string) (*network.Network, error) {
	// #nosec G304 -- path is an operator-supplied CLI argument.
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open network: %w", err)
	}
	defer func() { _ = f.Close() }()
	return network.Decode(f)
}

// build creates the phases, mixtures, physics regions, stored values and
// models of doc in that order, so models may reference any object.
func (doc projectDocument) build(net *network.Network, plugins []core.Plugin, opts ...core.ProjectOption) (*core.Project, error) {
	p, err := core.NewProject(doc.Name, net, opts...)
	if err != nil {
		return nil, err
	}
	for _, plugin := range plugins {
		if _, err := p.InstallPlugin(plugin); err != nil {
			return nil, fmt.Errorf("install %s: %w", plugin.Name(), err)
		}
	}
	for _, ph := range doc.Phases {
		if _, err := p.AddPhase(ph.Name); err != nil {
			return nil, err
		}
	}
	for _, ph := range doc.Phases {
		for _, comp := range ph.Components {
			if err := p.AddComponent(ph.Name, comp); err != nil {
				return nil, err
			}
		}
	}
	for _, ph := range doc.Physics {
		nodes, edges := ph.Nodes, ph.Edges
		if ph.All {
			nodes, edges = span(net.NodeCount()), span(net.EdgeCount())
		}
		if _, err := p.AttachPhysics(ph.Phase, ph.Name, nodes, edges); err != nil {
			return nil, err
		}
	}
	for _, ph := range doc.Phases {
		target, err := p.Phase(ph.Name)
		if err != nil {
			return nil, err
		}
		if err := apply(target, ph.Values, ph.Models, target.AddModel); err != nil {
			return nil, err
		}
	}
	for _, ph := range doc.Physics {
		target, err := p.Physics(ph.Name)
		if err != nil {
			return nil, err
		}
		if err := apply(target, ph.Values, ph.Models, target.AddModel); err != nil {
			return nil, err
		}
	}
	return p, nil
}

func span(n int) []int {
	out := make([]int, n)
	for i := range out {
		out[i] = i
	}
	return out
}

type addModelFunc func(key core.Key, rule string, args core.Args) error

func apply(obj core.Object, values map[string]any, models []modelDocument, addModel addModelFunc) error {
	names := make([]string, 0, len(values))
	for name := range values {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		key, err := domain.ParseKey(name)
		if err != nil {
			return err
		}
		arr, err := expand(values[name], obj.Count(key.Domain))
		if err != nil {
			return fmt.Errorf("%s %s: %w", obj.Name(), name, err)
		}
		if err := obj.Set(key, arr); err != nil {
			return err
		}
	}
	for _, m := range models {
		key, err := domain.ParseKey(m.Key)
		if err != nil {
			return err
		}
		if err := addModel(key, m.Rule, core.Args(m.Args)); err != nil {
			return fmt.Errorf("%s model %s: %w", obj.Name(), m.Key, err)
		}
	}
	return nil
}

// expand turns a scalar into a filled array and a list into an array.
func expand(raw any, n int) ([]float64, error) {
	if list, ok := raw.([]any); ok {
		out := make([]float64, len(list))
		for i, v := range list {
			f, err := number(v)
			if err != nil {
				return nil, err
			}
			out[i] = f
		}
		return out, nil
	}
	f, err := number(raw)
	if err != nil {
		return nil, err
	}
	out := make([]float64, n)
	for i := range out {
		out[i] = f
	}
	return out, nil
}

func number(v any) (float64, error) {
	switch n := v.(type) {
	case int:
		return float64(n), nil
	case float64:
		return n, nil
	default:
		return 0, fmt.Errorf("expected a number, got %T", v)
	}
}
