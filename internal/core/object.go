package core

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// Object is the common surface of phases and physics regions.
type Object interface {
	ID() string
	Name() string
	Kind() ObjectKind
	Count(d Domain) int
	Get(key Key) ([]float64, error)
	GetContext(ctx context.Context, key Key) ([]float64, error)
	Set(key Key, values []float64) error
	Models() []ModelEntry
}

// modelOwner is implemented by objects that run model entries.
type modelOwner interface {
	Object
	base() *object
	write(key Key, values []float64) error
	ownerPhase() *Phase
	ownerPhysics() *Physics
}

// object carries the state shared by phases and physics regions.
type object struct {
	id      string
	name    string
	kind    ObjectKind
	store   *PropertyStore
	models  *ModelRegistry
	project *Project
	active  map[Key]bool
}

func newObject(p *Project, name string, kind ObjectKind, count ElementCounter) *object {
	return &object{
		id:      p.newID(),
		name:    name,
		kind:    kind,
		store:   NewPropertyStore(name, count),
		models:  NewModelRegistry(),
		project: p,
		active:  make(map[Key]bool),
	}
}

// ID returns the object's unique identifier.
func (o *object) ID() string { return o.id }

// Name returns the object's project-unique name.
func (o *object) Name() string { return o.name }

// Kind reports whether the object is a phase or a physics region.
func (o *object) Kind() ObjectKind { return o.kind }

// Count returns the element count of the object for d.
func (o *object) Count(d Domain) int { return o.store.Count(d) }

// Models returns the object's model entries in regeneration order.
func (o *object) Models() []ModelEntry { return o.models.Entries() }

// Keys returns the locally stored property keys.
func (o *object) Keys() []Key { return o.store.Keys() }

// Has reports whether key is stored locally.
func (o *object) Has(key Key) bool { return o.store.Has(key) }

// RemoveModel deletes the entry targeting key.
func (o *object) RemoveModel(key Key) bool { return o.models.Remove(key) }

// ReorderModels moves the named entries to the front of the regeneration order.
func (o *object) ReorderModels(positions map[Key]int) error {
	err := o.models.Reorder(positions)
	var nf ErrNotFound
	if errors.As(err, &nf) {
		nf.Object = o.name
		return nf
	}
	return err
}

func (o *object) base() *object { return o }

func (o *object) bind(key Key, rule string, args Args) (ModelEntry, error) {
	if !key.Domain.Valid() || key.Name == "" {
		return ModelEntry{}, ErrInvalidArgument{Argument: "key", Reason: "malformed key " + key.String()}
	}
	def, err := o.project.catalog.Lookup(rule)
	if err != nil {
		return ModelEntry{}, err
	}
	bound, err := def.Bind(args)
	if err != nil {
		return ModelEntry{}, err
	}
	return ModelEntry{Key: key, Rule: rule, Args: bound}, nil
}

// regenerate walks the entries in order, aborting on the first failure.
func (o *object) regenerate(ctx context.Context, self modelOwner, opts RegenerateOptions) error {
	for _, entry := range o.models.Entries() {
		if !entry.Always {
			if !opts.selects(entry.Key) {
				continue
			}
			if opts.Mode == RegenNormal && o.store.Current(entry.Key) {
				continue
			}
		}
		if err := o.evaluate(ctx, self, entry); err != nil {
			o.project.logger.Error("regeneration aborted", "object", o.name, "target", entry.Key.String(), "error", err)
			return err
		}
	}
	return nil
}

// regenerateKey runs the entry for key when its output is missing.
func (o *object) regenerateKey(ctx context.Context, self modelOwner, key Key) (bool, error) {
	entry, ok := o.models.Lookup(key)
	if !ok {
		return false, nil
	}
	if o.store.Current(key) {
		return true, nil
	}
	return true, o.evaluate(ctx, self, entry)
}

func (o *object) evaluate(ctx context.Context, self modelOwner, entry ModelEntry) (err error) {
	target := entry.Key.String()
	if o.active[entry.Key] {
		return ErrMissingInput{Object: o.name, Target: target, Input: target}
	}
	def, err := o.project.catalog.Lookup(entry.Rule)
	if err != nil {
		return err
	}
	o.active[entry.Key] = true
	defer delete(o.active, entry.Key)

	p := o.project
	op := o.name + "/" + target
	start := time.Now()
	ctx, span := p.tracer.Start(ctx, op)
	defer func() {
		span.End(err)
		p.metrics.Observe(ctx, op, err == nil, time.Since(start))
	}()

	values, err := def.Eval(&ModelContext{ctx: ctx, owner: self, entry: entry})
	if err != nil {
		return missingInput(o.name, target, err)
	}
	if err = self.write(entry.Key, values); err != nil {
		return err
	}
	p.logger.Debug("model evaluated", "object", o.name, "target", target, "rule", entry.Rule)
	return nil
}

// missingInput reports an absent input of a rule as ErrMissingInput. A
// failure raised by a nested model keeps its own report and is wrapped with
// the outer target, so the message reads from the outermost model down.
func missingInput(object, target string, err error) error {
	var missing ErrMissingInput
	if !errors.As(err, &missing) {
		var nf ErrNotFound
		if errors.As(err, &nf) {
			return ErrMissingInput{Object: object, Target: target, Input: nf.Key}
		}
	}
	return fmt.Errorf("regenerate %s on %s: %w", target, object, err)
}
