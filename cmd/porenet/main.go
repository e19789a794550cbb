// Command porenet builds pore-network projects from YAML documents,
// regenerates their properties and manages stored and archived snapshots.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"math"
	"os"
	"sort"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"porenet/internal/archive"
	"porenet/internal/blob"
	"porenet/internal/config"
	"porenet/internal/core"
	"porenet/internal/network"
	"porenet/pkg/domain"
	"porenet/plugins/conductance"
	"porenet/plugins/mixture"
)

var exitFunc = os.Exit

const usage = `usage: porenet [-config path] [-trace path] <command> [arguments]

commands:
  rules                   list installed plugins and their rules
  inspect <network>       summarise a network document
  run <project>           build, regenerate and store a project document
  snapshots               list projects with a stored snapshot
  show <project>          print the stored snapshot of a project
  archive <project>       export the stored snapshot to blob storage
  archives <project>      list the archives of a project
  import <project> <id>   restore an archive into snapshot storage
`

// main runs the command-line interface and exits with its status code.
func main() {
	code := cli(os.Args[1:], os.Stdout, os.Stderr)
	exitFunc(code)
}

func plugins() []core.Plugin {
	return []core.Plugin{conductance.New(), mixture.New()}
}

type env struct {
	cfg    *config.Config
	logger *core.SlogLogger
	stdout io.Writer
	// trace, when set, receives one JSON line per model evaluation of run.
	trace string
}

func cli(args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("porenet", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.Usage = func() { _, _ = fmt.Fprint(stderr, usage) }
	var configPath, tracePath string
	fs.StringVar(&configPath, "config", "", "path to porenet.yaml (default: $PORENET_CONFIG or ./porenet.yaml)")
	fs.StringVar(&tracePath, "trace", "", "write model evaluations of run as JSON lines to this file")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	rest := fs.Args()
	if len(rest) == 0 {
		fs.Usage()
		return 2
	}

	cfg, err := loadConfig(configPath)
	if err != nil {
		_, _ = fmt.Fprintf(stderr, "config: %v\n", err)
		return 1
	}
	e := env{cfg: cfg, logger: core.NewHandlerLogger(stderr, cfg.Log.Format, cfg.Log.Level), stdout: stdout, trace: tracePath}
	ctx := context.Background()

	cmd, params := rest[0], rest[1:]
	want := map[string]int{"rules": 0, "inspect": 1, "run": 1, "snapshots": 0, "show": 1, "archive": 1, "archives": 1, "import": 2}
	n, known := want[cmd]
	if !known {
		_, _ = fmt.Fprintf(stderr, "unknown command %q\n", cmd)
		fs.Usage()
		return 2
	}
	if len(params) != n {
		_, _ = fmt.Fprintf(stderr, "%s expects %d argument(s)\n", cmd, n)
		return 2
	}

	switch cmd {
	case "rules":
		err = e.rules()
	case "inspect":
		err = e.inspect(params[0])
	case "run":
		err = e.run(ctx, params[0])
	case "snapshots":
		err = e.snapshots(ctx)
	case "show":
		err = e.show(ctx, params[0])
	case "archive":
		err = e.archive(ctx, params[0])
	case "archives":
		err = e.archives(ctx, params[0])
	case "import":
		err = e.importArchive(ctx, params[0], params[1])
	}
	if err != nil {
		_, _ = fmt.Fprintf(stderr, "%s: %v\n", cmd, err)
		return 1
	}
	return 0
}

func loadConfig(path string) (*config.Config, error) {
	if path == "" {
		cfg, _, err := config.Load()
		return cfg, err
	}
	cfg, _, err := config.LoadFromPath(path)
	if err != nil {
		return nil, err
	}
	cfg.ApplyEnv(os.LookupEnv)
	return cfg, cfg.Validate()
}

func (e env) rules() error {
	net, err := network.New("empty", 0, nil)
	if err != nil {
		return err
	}
	p, err := core.NewProject("catalog", net)
	if err != nil {
		return err
	}
	for _, plugin := range plugins() {
		if _, err := p.InstallPlugin(plugin); err != nil {
			return err
		}
	}
	w := tabwriter.NewWriter(e.stdout, 0, 4, 2, ' ', 0)
	for _, meta := range p.RegisteredPlugins() {
		_, _ = fmt.Fprintf(w, "%s\t%s\t\n", meta.Name, meta.Version)
		for _, id := range meta.Rules {
			def, err := p.Rule(id)
			if err != nil {
				return err
			}
			_, _ = fmt.Fprintf(w, "  %s\t%s\t\n", id, def.Description)
		}
	}
	return w.Flush()
}

func (e env) inspect(path string) error {
	net, err := readNetwork(path)
	if err != nil {
		return err
	}
	_, _ = fmt.Fprintf(e.stdout, "network %s: %d nodes, %d edges\n", net.Name(), net.NodeCount(), net.EdgeCount())
	for _, key := range net.Keys() {
		_, _ = fmt.Fprintf(e.stdout, "  %s\n", key)
	}
	return nil
}

func (e env) snapshotStore() (domain.SnapshotStore, error) {
	return core.OpenSnapshotStore(e.cfg.Storage)
}

func closeStore(store domain.SnapshotStore) {
	if c, ok := store.(io.Closer); ok {
		_ = c.Close()
	}
}

func (e env) run(ctx context.Context, path string) error {
	doc, net, err := readProjectDocument(path)
	if err != nil {
		return err
	}
	interp, err := network.Interpolator(e.cfg.Interpolation)
	if err != nil {
		return err
	}
	reg := prometheus.NewRegistry()
	prom, err := core.NewPrometheusMetricsRecorder(reg)
	if err != nil {
		return err
	}
	evals := core.NewExpvarMetricsRecorder("")
	opts := []core.ProjectOption{
		core.WithLogger(e.logger),
		core.WithMetricsRecorder(core.MultiMetricsRecorder{prom, evals}),
		core.WithInterpolator(interp),
	}
	if e.trace != "" {
		f, err := os.Create(e.trace)
		if err != nil {
			return fmt.Errorf("open trace: %w", err)
		}
		defer func() { _ = f.Close() }()
		opts = append(opts, core.WithTracer(core.NewJSONTracer(f)))
	}
	p, err := doc.build(net, plugins(), opts...)
	if err != nil {
		return err
	}
	if err := p.Regenerate(ctx, core.RegenerateOptions{}); err != nil {
		return err
	}
	for _, ph := range p.Phases() {
		if len(ph.Physics()) > 0 {
			if h := ph.CheckPhysicsHealth(); !h.Healthy() {
				_, _ = fmt.Fprintf(e.stdout, "phase %s: overlapping nodes %v, undefined nodes %v, overlapping edges %v, undefined edges %v\n",
					ph.Name(), h.OverlappingNodes, h.UndefinedNodes, h.OverlappingEdges, h.UndefinedEdges)
			}
		}
		if len(ph.Components()) > 0 {
			if off := offUnity(ph.CheckMixtureHealth()); off > 0 {
				_, _ = fmt.Fprintf(e.stdout, "mixture %s: mole fractions do not sum to 1 at %d node(s)\n", ph.Name(), off)
			}
		}
	}
	store, err := e.snapshotStore()
	if err != nil {
		return err
	}
	defer closeStore(store)
	if err := p.Save(ctx, store); err != nil {
		return err
	}
	ok, failed, err := countRegenerations(reg)
	if err != nil {
		return err
	}
	_, _ = fmt.Fprintf(e.stdout, "project %s regenerated: %d model evaluations (%d failed), snapshot stored\n", p.Name(), ok+failed, failed)
	for _, st := range evals.Snapshot().Objects() {
		_, _ = fmt.Fprintf(e.stdout, "  %s: %d evaluations (%d failed), %.3fms\n", st.Object, st.Succeeded+st.Failed, st.Failed, st.TotalMS)
	}
	return nil
}

func offUnity(sums []float64) int {
	n := 0
	for _, s := range sums {
		if math.IsNaN(s) || math.Abs(s-1) > 1e-9 {
			n++
		}
	}
	return n
}

func countRegenerations(reg *prometheus.Registry) (ok, failed int, err error) {
	families, err := reg.Gather()
	if err != nil {
		return 0, 0, err
	}
	for _, mf := range families {
		if mf.GetName() != "porenet_regenerations_total" {
			continue
		}
		for _, m := range mf.GetMetric() {
			count := int(m.GetCounter().GetValue())
			status := ""
			for _, lp := range m.GetLabel() {
				if lp.GetName() == "status" {
					status = lp.GetValue()
				}
			}
			if status == "success" {
				ok += count
			} else {
				failed += count
			}
		}
	}
	return ok, failed, nil
}

func (e env) snapshots(ctx context.Context) error {
	store, err := e.snapshotStore()
	if err != nil {
		return err
	}
	defer closeStore(store)
	projects, err := store.List(ctx)
	if err != nil {
		return err
	}
	for _, name := range projects {
		_, _ = fmt.Fprintln(e.stdout, name)
	}
	return nil
}

func (e env) show(ctx context.Context, project string) error {
	store, err := e.snapshotStore()
	if err != nil {
		return err
	}
	defer closeStore(store)
	snap, err := store.Load(ctx, project)
	if err != nil {
		return err
	}
	_, _ = fmt.Fprintf(e.stdout, "project %s on network %s taken %s\n", snap.Project, snap.Network, snap.TakenAt.Format(time.RFC3339))
	for _, obj := range snap.Objects {
		label := string(obj.Kind) + " " + obj.Name
		if obj.Parent != "" {
			label += " (on " + obj.Parent + ")"
		}
		_, _ = fmt.Fprintln(e.stdout, label)
		keys := make([]string, 0, len(obj.Values))
		for k := range obj.Values {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			_, _ = fmt.Fprintf(e.stdout, "  %s %s\n", k, summarize(obj.Values[k]))
		}
	}
	return nil
}

func summarize(values []float64) string {
	if len(values) == 0 {
		return "[]"
	}
	lo, hi := math.Inf(1), math.Inf(-1)
	nan := 0
	for _, v := range values {
		if math.IsNaN(v) {
			nan++
			continue
		}
		lo, hi = math.Min(lo, v), math.Max(hi, v)
	}
	parts := []string{fmt.Sprintf("n=%d", len(values))}
	if nan < len(values) {
		parts = append(parts, fmt.Sprintf("min=%g", lo), fmt.Sprintf("max=%g", hi))
	}
	if nan > 0 {
		parts = append(parts, fmt.Sprintf("nan=%d", nan))
	}
	return strings.Join(parts, " ")
}

func (e env) archiver(ctx context.Context) (*archive.Archiver, error) {
	store, err := blob.Open(ctx, e.cfg.Blob)
	if err != nil {
		return nil, err
	}
	return archive.New(store), nil
}

func (e env) archive(ctx context.Context, project string) error {
	store, err := e.snapshotStore()
	if err != nil {
		return err
	}
	defer closeStore(store)
	snap, err := store.Load(ctx, project)
	if err != nil {
		return err
	}
	a, err := e.archiver(ctx)
	if err != nil {
		return err
	}
	m, err := a.Export(ctx, snap)
	if err != nil {
		return err
	}
	e.logger.Info("snapshot archived", "project", project, "archive", m.ID, "objects", len(m.Objects))
	_, _ = fmt.Fprintln(e.stdout, m.ID)
	return nil
}

func (e env) archives(ctx context.Context, project string) error {
	a, err := e.archiver(ctx)
	if err != nil {
		return err
	}
	list, err := a.List(ctx, project)
	if err != nil {
		return err
	}
	for _, m := range list {
		_, _ = fmt.Fprintf(e.stdout, "%s\t%s\t%d objects\n", m.ID, m.ArchivedAt.Format(time.RFC3339), len(m.Objects))
	}
	return nil
}

func (e env) importArchive(ctx context.Context, project, id string) error {
	a, err := e.archiver(ctx)
	if err != nil {
		return err
	}
	snap, err := a.Import(ctx, project, id)
	if err != nil {
		var nf domain.ErrNotFound
		if errors.As(err, &nf) {
			return fmt.Errorf("no archive %s for project %s", id, project)
		}
		return err
	}
	store, err := e.snapshotStore()
	if err != nil {
		return err
	}
	defer closeStore(store)
	if err := store.Save(ctx, snap); err != nil {
		return err
	}
	_, _ = fmt.Fprintf(e.stdout, "restored %s from archive %s\n", project, id)
	return nil
}
