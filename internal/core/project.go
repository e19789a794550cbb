package core

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"

	"porenet/internal/network"
	"porenet/pkg/domain"
)

// Project owns one network reference together with every phase and physics
// region defined on it. Objects are addressed by project-unique names;
// references between objects are names resolved through the project.
type Project struct {
	id      string
	name    string
	net     domain.Network
	catalog *RuleCatalog
	plugins map[string]PluginMetadata
	phases  []*Phase
	physics []*Physics
	names   map[string]Object

	logger  Logger
	metrics MetricsRecorder
	tracer  Tracer
	clock   Clock
	interp  domain.Interpolator
}

// ProjectOption customises a project at construction.
type ProjectOption func(*Project)

// WithLogger routes engine logs to logger.
func WithLogger(logger Logger) ProjectOption {
	return func(p *Project) {
		if logger != nil {
			p.logger = logger
		}
	}
}

// WithMetricsRecorder observes every model evaluation.
func WithMetricsRecorder(recorder MetricsRecorder) ProjectOption {
	return func(p *Project) {
		if recorder != nil {
			p.metrics = recorder
		}
	}
}

// WithTracer wraps every model evaluation in a span.
func WithTracer(tracer Tracer) ProjectOption {
	return func(p *Project) {
		if tracer != nil {
			p.tracer = tracer
		}
	}
}

// WithClock overrides the clock used to stamp snapshots.
func WithClock(clock Clock) ProjectOption {
	return func(p *Project) {
		if clock != nil {
			p.clock = clock
		}
	}
}

// WithInterpolator sets the node-to-edge interpolation; the default is
// the arithmetic mean of the two end nodes.
func WithInterpolator(interp domain.Interpolator) ProjectOption {
	return func(p *Project) {
		if interp != nil {
			p.interp = interp
		}
	}
}

// NewProject constructs a project over net with the builtin rules installed.
func NewProject(name string, net domain.Network, opts ...ProjectOption) (*Project, error) {
	if net == nil {
		return nil, ErrInvalidArgument{Argument: "network", Reason: "project requires a network"}
	}
	p := &Project{
		id:      uuid.NewString(),
		name:    name,
		net:     net,
		catalog: NewRuleCatalog(),
		plugins: make(map[string]PluginMetadata),
		names:   make(map[string]Object),
		logger:  noopLogger{},
		metrics: noopMetrics{},
		tracer:  noopTracer{},
		clock:   ClockFunc(func() time.Time { return time.Now().UTC() }),
		interp:  network.Mean,
	}
	for _, opt := range opts {
		opt(p)
	}
	if _, err := p.InstallPlugin(BuiltinPlugin{}); err != nil {
		return nil, err
	}
	return p, nil
}

func (p *Project) newID() string { return uuid.NewString() }

// ID returns the project identifier.
func (p *Project) ID() string { return p.id }

// Name returns the project name.
func (p *Project) Name() string { return p.name }

// Network returns the shared network.
func (p *Project) Network() domain.Network { return p.net }

// InstallPlugin registers a plugin, wiring its rules into the catalog. No
// rule is installed when any of the plugin's rule ids is already taken.
func (p *Project) InstallPlugin(plugin Plugin) (PluginMetadata, error) {
	if plugin == nil {
		return PluginMetadata{}, fmt.Errorf("plugin cannot be nil")
	}
	if _, ok := p.plugins[plugin.Name()]; ok {
		return PluginMetadata{}, ErrDuplicateMembership{Parent: p.name, Member: "plugin " + plugin.Name()}
	}

	registry := NewPluginRegistry()
	if err := plugin.Register(registry); err != nil {
		return PluginMetadata{}, fmt.Errorf("register plugin %s: %w", plugin.Name(), err)
	}
	rules := registry.Rules()
	seen := make(map[string]bool, len(rules))
	for _, rule := range rules {
		if _, err := p.catalog.Lookup(rule.ID); err == nil || seen[rule.ID] {
			return PluginMetadata{}, ErrDuplicateMembership{Parent: "rule catalog", Member: rule.ID}
		}
		seen[rule.ID] = true
	}
	for _, rule := range rules {
		if err := p.catalog.Register(rule); err != nil {
			return PluginMetadata{}, err
		}
	}

	meta := pluginMetadata(plugin, rules)
	p.plugins[plugin.Name()] = meta
	p.logger.Info("plugin installed", "plugin", meta.Name, "version", meta.Version, "rules", len(meta.Rules))
	return meta, nil
}

// RegisteredPlugins returns metadata describing installed plugins, by name.
func (p *Project) RegisteredPlugins() []PluginMetadata {
	out := make([]PluginMetadata, 0, len(p.plugins))
	for _, meta := range p.plugins {
		out = append(out, meta)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// RuleIDs lists every rule available to models of this project.
func (p *Project) RuleIDs() []string { return p.catalog.IDs() }

// Rule returns the definition registered under id.
func (p *Project) Rule(id string) (RuleDefinition, error) { return p.catalog.Lookup(id) }

func (p *Project) claim(name string) error {
	if name == "" || name == "all" {
		return ErrInvalidArgument{Argument: "name", Reason: fmt.Sprintf("%q is not a usable object name", name)}
	}
	if _, taken := p.names[name]; taken {
		return ErrDuplicateMembership{Parent: p.name, Member: name}
	}
	return nil
}

// AddPhase creates a phase seeded with standard temperature and pressure.
func (p *Project) AddPhase(name string) (*Phase, error) {
	if err := p.claim(name); err != nil {
		return nil, err
	}
	ph, err := newPhase(p, name)
	if err != nil {
		return nil, err
	}
	p.phases = append(p.phases, ph)
	p.names[name] = ph
	p.logger.Info("phase added", "project", p.name, "phase", name)
	return ph, nil
}

// Phase returns the named phase.
func (p *Project) Phase(name string) (*Phase, error) {
	if ph, ok := p.names[name].(*Phase); ok {
		return ph, nil
	}
	return nil, ErrNotFound{Object: p.name, Key: "phase " + name}
}

// Phases returns every phase in creation order.
func (p *Project) Phases() []*Phase { return append([]*Phase(nil), p.phases...) }

// AttachPhysics creates a physics region on the named phase owning the
// given node and edge indices.
func (p *Project) AttachPhysics(phase, name string, nodes, edges []int) (*Physics, error) {
	ph, err := p.Phase(phase)
	if err != nil {
		return nil, err
	}
	if err := p.claim(name); err != nil {
		return nil, err
	}
	nodeMask, err := Mask(ph.Count(DomainNode), nodes)
	if err != nil {
		return nil, err
	}
	edgeMask, err := Mask(ph.Count(DomainEdge), edges)
	if err != nil {
		return nil, err
	}
	phys := newPhysics(p, ph, name, nodes, edges)
	if err := ph.store.SetLabel(NodeLabel(name), nodeMask); err != nil {
		return nil, err
	}
	if err := ph.store.SetLabel(EdgeLabel(name), edgeMask); err != nil {
		ph.store.DeleteLabel(NodeLabel(name))
		return nil, err
	}
	ph.physics = append(ph.physics, phys)
	p.physics = append(p.physics, phys)
	p.names[name] = phys
	p.logger.Info("physics attached", "phase", phase, "physics", name, "nodes", len(phys.nodes), "edges", len(phys.edges))
	return phys, nil
}

// DetachPhysics removes the named region from its phase and the project.
func (p *Project) DetachPhysics(name string) error {
	phys, err := p.Physics(name)
	if err != nil {
		return err
	}
	ph := phys.phase
	ph.physics = removePhysics(ph.physics, phys)
	p.physics = removePhysics(p.physics, phys)
	ph.store.DeleteLabel(NodeLabel(name))
	ph.store.DeleteLabel(EdgeLabel(name))
	delete(p.names, name)
	p.logger.Info("physics detached", "phase", ph.name, "physics", name)
	return nil
}

// Physics returns the named physics region.
func (p *Project) Physics(name string) (*Physics, error) {
	if phys, ok := p.names[name].(*Physics); ok {
		return phys, nil
	}
	return nil, ErrNotFound{Object: p.name, Key: "physics " + name}
}

// AllPhysics returns every physics region in attachment order.
func (p *Project) AllPhysics() []*Physics { return append([]*Physics(nil), p.physics...) }

// NodeLabel is the phase label marking the nodes owned by a physics region.
func NodeLabel(physics string) Key { return domain.NodeKey(physics) }

// EdgeLabel is the phase label marking the edges owned by a physics region.
func EdgeLabel(physics string) Key { return domain.EdgeKey(physics) }

func removePhysics(list []*Physics, target *Physics) []*Physics {
	out := list[:0]
	for _, phys := range list {
		if phys != target {
			out = append(out, phys)
		}
	}
	return out
}

// Regenerate walks every top-level phase (components are reached through
// their mixtures), then every physics region, aborting on the first error.
func (p *Project) Regenerate(ctx context.Context, opts RegenerateOptions) error {
	start := p.clock.Now()
	for _, ph := range p.phases {
		if len(p.Mixtures(ph.name)) > 0 {
			continue
		}
		if err := ph.Regenerate(ctx, opts); err != nil {
			return err
		}
	}
	for _, phys := range p.physics {
		if err := phys.Regenerate(ctx, opts); err != nil {
			return err
		}
	}
	p.logger.Debug("project regenerated", "project", p.name, "elapsed", p.clock.Now().Sub(start))
	return nil
}

// Dependent identifies a model entry that reads a property.
type Dependent struct {
	Object string
	Key    Key
	Rule   string
}

// Dependents lists the models that read key, directly or through other
// models, ordered by object then key.
func (p *Project) Dependents(key Key) []Dependent {
	type ref struct {
		obj   Object
		entry ModelEntry
	}
	var all []ref
	for _, ph := range p.phases {
		for _, e := range ph.models.Entries() {
			all = append(all, ref{ph, e})
		}
	}
	for _, phys := range p.physics {
		for _, e := range phys.models.Entries() {
			all = append(all, ref{phys, e})
		}
	}

	frontier := map[Key]bool{key: true}
	found := make(map[string]Dependent)
	for changed := true; changed; {
		changed = false
		for _, r := range all {
			id := r.obj.Name() + "/" + r.entry.Key.String()
			if _, seen := found[id]; seen {
				continue
			}
			def, err := p.catalog.Lookup(r.entry.Rule)
			if err != nil {
				continue
			}
			for _, in := range def.InputKeys(r.entry.Args) {
				if frontier[in] {
					found[id] = Dependent{Object: r.obj.Name(), Key: r.entry.Key, Rule: r.entry.Rule}
					frontier[r.entry.Key] = true
					changed = true
					break
				}
			}
		}
	}

	out := make([]Dependent, 0, len(found))
	for _, d := range found {
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Object != out[j].Object {
			return out[i].Object < out[j].Object
		}
		return out[i].Key.String() < out[j].Key.String()
	})
	return out
}
