package core

import (
	"context"

	"porenet/pkg/domain"
)

// PhysicsHealth lists elements claimed by more than one physics region
// (overlapping) and by none (undefined).
type PhysicsHealth struct {
	OverlappingNodes []int `json:"overlapping_pores" yaml:"overlapping_pores"`
	UndefinedNodes   []int `json:"undefined_pores" yaml:"undefined_pores"`
	OverlappingEdges []int `json:"overlapping_throats" yaml:"overlapping_throats"`
	UndefinedEdges   []int `json:"undefined_throats" yaml:"undefined_throats"`
}

// Healthy reports whether every element is claimed exactly once.
func (h PhysicsHealth) Healthy() bool {
	return len(h.OverlappingNodes) == 0 && len(h.UndefinedNodes) == 0 &&
		len(h.OverlappingEdges) == 0 && len(h.UndefinedEdges) == 0
}

// CheckPhysicsHealth counts how many attached regions claim each node and
// edge, using the membership labels recorded at attachment.
func (p *Phase) CheckPhysicsHealth() PhysicsHealth {
	counts := map[Domain][]int{
		DomainNode: make([]int, p.Count(DomainNode)),
		DomainEdge: make([]int, p.Count(DomainEdge)),
	}
	for _, phys := range p.physics {
		for _, d := range domain.Domains {
			mask, err := p.store.Label(Key{Domain: d, Name: phys.name})
			if err != nil {
				continue
			}
			for i, ok := range mask {
				if ok {
					counts[d][i]++
				}
			}
		}
	}
	var h PhysicsHealth
	h.OverlappingNodes, h.UndefinedNodes = classify(counts[DomainNode])
	h.OverlappingEdges, h.UndefinedEdges = classify(counts[DomainEdge])
	return h
}

func classify(counts []int) (overlapping, undefined []int) {
	overlapping, undefined = []int{}, []int{}
	for i, c := range counts {
		switch {
		case c > 1:
			overlapping = append(overlapping, i)
		case c == 0:
			undefined = append(undefined, i)
		}
	}
	return overlapping, undefined
}

// CheckMixtureHealth sums the component mole fractions at every node. A
// consistent mixture sums to one everywhere; components without a mole
// fraction are skipped rather than reported as errors.
func (p *Phase) CheckMixtureHealth() []float64 {
	sum := make([]float64, p.Count(DomainNode))
	ctx := context.Background()
	for _, comp := range p.components {
		frac, err := p.MoleFraction(ctx, comp)
		if err != nil || len(frac) != len(sum) {
			p.project.logger.Debug("mole fraction unavailable", "mixture", p.name, "component", comp.name, "error", err)
			continue
		}
		for i, y := range frac {
			sum[i] += y
		}
	}
	return sum
}
