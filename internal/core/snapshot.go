package core

import (
	"context"
	"fmt"

	"porenet/pkg/domain"
)

// Snapshot captures the stored values of every phase and physics region.
// Values resolved through physics or models that have not run are not
// included.
func (p *Project) Snapshot() Snapshot {
	snap := Snapshot{Project: p.name, Network: p.net.Name(), TakenAt: p.clock.Now()}
	for _, ph := range p.phases {
		snap.Objects = append(snap.Objects, captureObject(ph.object, ""))
	}
	for _, phys := range p.physics {
		snap.Objects = append(snap.Objects, captureObject(phys.object, phys.phase.name))
	}
	return snap.Sorted()
}

func captureObject(o *object, parent string) ObjectSnapshot {
	out := ObjectSnapshot{ID: o.id, Name: o.name, Kind: o.kind, Parent: parent, Values: make(map[string][]float64)}
	for _, key := range o.store.Keys() {
		v, err := o.store.Get(key)
		if err != nil {
			continue
		}
		out.Values[key.String()] = v
	}
	return out
}

// Restore replaces the stored values of the named objects with the
// snapshot's. Every object in the snapshot must exist with a matching kind,
// every array must fit and no key may end up owned by both a phase and one
// of its physics regions. Nothing is written unless the whole snapshot
// validates.
func (p *Project) Restore(snap Snapshot) error {
	type pending struct {
		obj    *object
		values map[Key][]float64
	}
	var plan []pending
	restored := make(map[*object]map[Key][]float64)
	var phases []*Phase
	var regions []*Physics
	for _, rec := range snap.Objects {
		target, ok := p.names[rec.Name]
		if !ok {
			return ErrNotFound{Object: p.name, Key: string(rec.Kind) + " " + rec.Name}
		}
		var obj *object
		switch t := target.(type) {
		case *Phase:
			obj = t.object
			phases = append(phases, t)
		case *Physics:
			obj = t.object
			regions = append(regions, t)
		}
		if obj.kind != rec.Kind {
			return ErrInvalidArgument{Argument: "snapshot", Reason: fmt.Sprintf("%s is a %s, not a %s", rec.Name, obj.kind, rec.Kind)}
		}
		values := make(map[Key][]float64, len(rec.Values))
		for raw, v := range rec.Values {
			key, err := domain.ParseKey(raw)
			if err != nil {
				return err
			}
			if want := obj.Count(key.Domain); len(v) != want {
				return ErrDimensionMismatch{Object: rec.Name, Key: raw, Want: want, Got: len(v)}
			}
			values[key] = v
		}
		plan = append(plan, pending{obj: obj, values: values})
		restored[obj] = values
	}

	// Ownership is judged on the stores as they will be after the restore.
	storedAfter := func(o *object, key Key) bool {
		if values, ok := restored[o]; ok {
			_, has := values[key]
			return has
		}
		return o.store.Has(key)
	}
	definesAfter := func(o *object, key Key) bool {
		return storedAfter(o, key) || o.models.Has(key)
	}
	for _, ph := range phases {
		for key := range restored[ph.object] {
			for _, phys := range ph.physics {
				if phys.Count(key.Domain) > 0 && definesAfter(phys.object, key) {
					return ErrOwnershipConflict{Object: ph.name, Key: key.String(), Owner: phys.name}
				}
			}
		}
	}
	for _, phys := range regions {
		for key := range restored[phys.object] {
			if definesAfter(phys.phase.object, key) {
				return ErrOwnershipConflict{Object: phys.name, Key: key.String(), Owner: phys.phase.name}
			}
			for _, sib := range phys.phase.physics {
				if sib == phys || !definesAfter(sib.object, key) {
					continue
				}
				if overlaps(sib.indices(key.Domain), phys.indices(key.Domain)) {
					return ErrOwnershipConflict{Object: phys.name, Key: key.String(), Owner: sib.name}
				}
			}
		}
	}

	for _, step := range plan {
		for _, key := range step.obj.store.Keys() {
			step.obj.store.Delete(key)
		}
		for key, v := range step.values {
			if err := step.obj.store.Set(key, v); err != nil {
				return err
			}
		}
	}
	p.logger.Info("snapshot restored", "project", p.name, "objects", len(plan))
	return nil
}

// Save writes a snapshot of the project to store.
func (p *Project) Save(ctx context.Context, store SnapshotStore) error {
	if err := store.Save(ctx, p.Snapshot()); err != nil {
		return fmt.Errorf("save project %s: %w", p.name, err)
	}
	return nil
}

// Load restores the latest snapshot of the project from store.
func (p *Project) Load(ctx context.Context, store SnapshotStore) error {
	snap, err := store.Load(ctx, p.name)
	if err != nil {
		return err
	}
	return p.Restore(snap)
}
