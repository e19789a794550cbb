package conductance

import (
	"porenet/internal/core"
)

// Rule identifiers contributed by the plugin.
const (
	RuleSeriesResistors = "conductance.series_resistors"
	RuleElectrical      = "conductance.electrical"
	RuleDiffusive       = "conductance.diffusive"
	RuleHydraulic       = "conductance.hydraulic"
)

// Plugin contributes edge conductance rules built on the series pattern.
type Plugin struct{}

// New constructs a conductance plugin instance.
func New() Plugin { return Plugin{} }

// Name returns the plugin identifier.
func (Plugin) Name() string { return "conductance" }

// Version returns the plugin semantic version.
func (Plugin) Version() string { return "1.0.0" }

func geometryParams() []core.ParamSpec {
	return []core.ParamSpec{
		{Name: "node_area", Kind: core.ParamKey, Default: core.NodeKey("area")},
		{Name: "node_diameter", Kind: core.ParamKey, Default: core.NodeKey("diameter")},
		{Name: "edge_area", Kind: core.ParamKey, Default: core.EdgeKey("area")},
		{Name: "edge_length", Kind: core.ParamKey, Default: core.EdgeKey("length")},
	}
}

// Register wires the conductance rules.
func (Plugin) Register(registry *core.PluginRegistry) error {
	registry.RegisterRule(core.RuleDefinition{
		ID:          RuleSeriesResistors,
		Description: "series combination of node halves and edge body for any node coefficient",
		Params:      append([]core.ParamSpec{{Name: "conductivity", Kind: core.ParamKey, Required: true}}, geometryParams()...),
		Eval:        series(phaseCoefficient("conductivity"), Linear),
	})
	registry.RegisterRule(core.RuleDefinition{
		ID:          RuleElectrical,
		Description: "electrical conductance from node electrical conductivity",
		Params:      append([]core.ParamSpec{{Name: "conductivity", Kind: core.ParamKey, Default: core.NodeKey("electrical_conductivity")}}, geometryParams()...),
		Eval:        series(phaseCoefficient("conductivity"), Linear),
	})
	registry.RegisterRule(core.RuleDefinition{
		ID:          RuleDiffusive,
		Description: "diffusive conductance from molar density times diffusivity",
		Params: append([]core.ParamSpec{
			{Name: "molar_density", Kind: core.ParamKey, Default: core.NodeKey("molar_density")},
			{Name: "diffusivity", Kind: core.ParamKey, Default: core.NodeKey("diffusivity")},
		}, geometryParams()...),
		Eval: series(diffusiveCoefficient, Linear),
	})
	registry.RegisterRule(core.RuleDefinition{
		ID:          RuleHydraulic,
		Description: "Hagen-Poiseuille conductance from node viscosity",
		Params:      append([]core.ParamSpec{{Name: "viscosity", Kind: core.ParamKey, Default: core.NodeKey("viscosity")}}, geometryParams()...),
		Eval:        series(fluidity, Poiseuille),
	})
	return nil
}

type coefficient func(mc *core.ModelContext) ([]float64, error)

func phaseCoefficient(param string) coefficient {
	return func(mc *core.ModelContext) ([]float64, error) {
		return mc.PhaseInput(param)
	}
}

func diffusiveCoefficient(mc *core.ModelContext) ([]float64, error) {
	c, err := mc.PhaseInput("molar_density")
	if err != nil {
		return nil, err
	}
	d, err := mc.PhaseInput("diffusivity")
	if err != nil {
		return nil, err
	}
	if len(c) != len(d) {
		return nil, core.ErrDimensionMismatch{Object: mc.Phase().Name(), Key: "diffusivity", Want: len(c), Got: len(d)}
	}
	out := make([]float64, len(c))
	for i := range c {
		out[i] = c[i] * d[i]
	}
	return out, nil
}

// fluidity is the reciprocal viscosity.
func fluidity(mc *core.ModelContext) ([]float64, error) {
	mu, err := mc.PhaseInput("viscosity")
	if err != nil {
		return nil, err
	}
	out := make([]float64, len(mu))
	for i, v := range mu {
		out[i] = 1 / v
	}
	return out, nil
}

func series(coef coefficient, shape Shape) core.RuleFunc {
	return func(mc *core.ModelContext) ([]float64, error) {
		if target := mc.TargetKey(); target.Domain != core.DomainEdge {
			return nil, core.ErrInvalidArgument{Argument: "target", Reason: "conductance is an edge property, got " + target.String()}
		}
		nodeCoef, err := coef(mc)
		if err != nil {
			return nil, err
		}
		sigma, err := mc.Interpolate(nodeCoef)
		if err != nil {
			return nil, err
		}
		geo, err := readGeometry(mc)
		if err != nil {
			return nil, err
		}
		g, err := Compute(geo, mc.Network().NodeCount(), sigma, shape)
		if err != nil {
			return nil, err
		}
		return mc.Restrict(core.DomainEdge, g)
	}
}

func readGeometry(mc *core.ModelContext) (Geometry, error) {
	geo := Geometry{Conns: mc.Network().Conns()}
	fields := []struct {
		param string
		dst   *[]float64
	}{
		{"node_area", &geo.NodeArea},
		{"node_diameter", &geo.NodeDiameter},
		{"edge_area", &geo.EdgeArea},
		{"edge_length", &geo.EdgeLength},
	}
	for _, f := range fields {
		v, err := mc.Geometry(f.param)
		if err != nil {
			return Geometry{}, err
		}
		*f.dst = v
	}
	return geo, nil
}
