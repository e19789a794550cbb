package core

import "porenet/pkg/domain"

type (
	Domain                 = domain.Domain
	Key                    = domain.Key
	ObjectKind             = domain.ObjectKind
	Snapshot               = domain.Snapshot
	ObjectSnapshot         = domain.ObjectSnapshot
	SnapshotStore          = domain.SnapshotStore
	ErrNotFound            = domain.ErrNotFound
	ErrDimensionMismatch   = domain.ErrDimensionMismatch
	ErrOwnershipConflict   = domain.ErrOwnershipConflict
	ErrMissingInput        = domain.ErrMissingInput
	ErrDuplicateMembership = domain.ErrDuplicateMembership
	ErrInvalidArgument     = domain.ErrInvalidArgument
)

const (
	DomainNode = domain.DomainNode
	DomainEdge = domain.DomainEdge
)

const (
	KindPhase   = domain.KindPhase
	KindPhysics = domain.KindPhysics
)

// NodeKey builds a node-domain property key.
func NodeKey(name string) Key { return domain.NodeKey(name) }

// EdgeKey builds an edge-domain property key.
func EdgeKey(name string) Key { return domain.EdgeKey(name) }

// ParseKey parses a rendered key, accepting the pore and throat aliases.
func ParseKey(raw string) (Key, error) { return domain.ParseKey(raw) }

// Well-known keys re-exported for rule packs.
var (
	KeyTemperature     = domain.KeyTemperature
	KeyPressure        = domain.KeyPressure
	KeyMoleFraction    = domain.KeyMoleFraction
	KeyMolecularWeight = domain.KeyMolecularWeight
	KeyDiffusionVolume = domain.KeyDiffusionVolume
)
