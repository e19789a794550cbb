// Package mixture provides mixing rules that build mixture properties from
// the pure-component phases of a mixture.
package mixture

import (
	"fmt"
	"math"

	"porenet/internal/core"
)

// Rule identifiers contributed by the plugin.
const (
	RuleMoleWeightedAverage = "mixture.mole_weighted_average"
	RuleFullerDiffusivity   = "mixture.fuller_diffusivity"
	RuleWilkeFuller         = "mixture.wilke_fuller_diffusivity"
	RuleSalinity            = "mixture.salinity"
)

// PairPrefix names the binary diffusivity a component stores for each
// partner: node.D_in_<partner>.
const PairPrefix = "D_in_"

// PairKey returns the key holding the binary diffusivity of a component in
// partner.
func PairKey(partner string) core.Key { return core.NodeKey(PairPrefix + partner) }

// Plugin contributes the mixing rules.
type Plugin struct{}

// New constructs a mixture plugin instance.
func New() Plugin { return Plugin{} }

// Name returns the plugin identifier.
func (Plugin) Name() string { return "mixture" }

// Version returns the plugin semantic version.
func (Plugin) Version() string { return "1.0.0" }

func fullerParams() []core.ParamSpec {
	return []core.ParamSpec{
		{Name: "molecular_weight", Kind: core.ParamKey, Default: core.KeyMolecularWeight},
		{Name: "molar_diffusion_volume", Kind: core.ParamKey, Default: core.KeyDiffusionVolume},
		{Name: "temperature", Kind: core.ParamKey, Default: core.KeyTemperature},
		{Name: "pressure", Kind: core.ParamKey, Default: core.KeyPressure},
	}
}

// Register wires the mixing rules.
func (Plugin) Register(registry *core.PluginRegistry) error {
	registry.RegisterRule(core.RuleDefinition{
		ID:          RuleMoleWeightedAverage,
		Description: "mole-fraction weighted sum of a component property",
		Params:      []core.ParamSpec{{Name: "prop", Kind: core.ParamKey, Required: true}},
		Eval:        moleWeightedAverage,
	})
	registry.RegisterRule(core.RuleDefinition{
		ID:          RuleFullerDiffusivity,
		Description: "Fuller binary diffusivity of a two-component mixture",
		Params:      fullerParams(),
		Eval:        binaryDiffusivity,
	})
	registry.RegisterRule(core.RuleDefinition{
		ID:          RuleWilkeFuller,
		Description: "effective diffusivity of a component in a multicomponent mixture (Fuller pairs, Wilke correction)",
		Params:      append([]core.ParamSpec{{Name: "mixture", Kind: core.ParamObject, Required: true}}, fullerParams()...),
		Eval:        wilkeFuller,
	})
	registry.RegisterRule(core.RuleDefinition{
		ID:          RuleSalinity,
		Description: "salinity in g/kg from temperature and concentration",
		Params: []core.ParamSpec{
			{Name: "temperature", Kind: core.ParamKey, Default: core.KeyTemperature},
			{Name: "concentration", Kind: core.ParamKey, Default: core.NodeKey("concentration")},
		},
		Eval: salinity,
	})
	return nil
}

func moleWeightedAverage(mc *core.ModelContext) ([]float64, error) {
	prop, err := mc.Key("prop")
	if err != nil {
		return nil, err
	}
	if prop.Domain != core.DomainNode {
		return nil, core.ErrInvalidArgument{Argument: "prop", Reason: "mole fractions are node properties, got " + prop.String()}
	}
	mix := mc.Phase()
	comps := mix.Components()
	if len(comps) == 0 {
		return nil, core.ErrInvalidArgument{Argument: "target", Reason: mix.Name() + " has no components"}
	}
	out := make([]float64, mc.Count())
	for _, comp := range comps {
		frac, err := mix.MoleFraction(mc.Context(), comp)
		if err != nil {
			return nil, err
		}
		vals, err := comp.GetContext(mc.Context(), prop)
		if err != nil {
			return nil, err
		}
		if len(frac) != len(out) || len(vals) != len(out) {
			return nil, core.ErrDimensionMismatch{Object: comp.Name(), Key: prop.String(), Want: len(out), Got: len(vals)}
		}
		for i := range out {
			out[i] += frac[i] * vals[i]
		}
	}
	return out, nil
}

// Pair is a transient two-member sub-mixture: the state of the mixture and
// the molecular properties of species A and B.
type Pair struct {
	Temperature []float64
	Pressure    []float64
	WeightA     []float64
	WeightB     []float64
	VolumeA     []float64
	VolumeB     []float64
}

// Fuller returns the binary diffusivity in m²/s. Molecular weights are in
// kg/mol, pressure in Pa and diffusion volumes in the Fuller units.
func Fuller(p Pair) ([]float64, error) {
	n := len(p.Temperature)
	for _, arr := range []struct {
		name   string
		values []float64
	}{
		{"pressure", p.Pressure}, {"weight A", p.WeightA}, {"weight B", p.WeightB},
		{"volume A", p.VolumeA}, {"volume B", p.VolumeB},
	} {
		if len(arr.values) != n {
			return nil, core.ErrDimensionMismatch{Object: "pair", Key: arr.name, Want: n, Got: len(arr.values)}
		}
	}
	out := make([]float64, n)
	for i := range out {
		mab := 1e3 * 2 / (1/p.WeightA[i] + 1/p.WeightB[i])
		bar := p.Pressure[i] * 1e-5
		vol := math.Cbrt(p.VolumeA[i]) + math.Cbrt(p.VolumeB[i])
		out[i] = 0.00143 * math.Pow(p.Temperature[i], 1.75) / (bar * math.Sqrt(mab) * vol * vol) * 1e-4
	}
	return out, nil
}

// state reads the mixture temperature and pressure.
func state(mc *core.ModelContext, mix *core.Phase) (temperature, pressure []float64, err error) {
	tk, err := mc.Key("temperature")
	if err != nil {
		return nil, nil, err
	}
	pk, err := mc.Key("pressure")
	if err != nil {
		return nil, nil, err
	}
	if temperature, err = mix.GetContext(mc.Context(), tk); err != nil {
		return nil, nil, err
	}
	if pressure, err = mix.GetContext(mc.Context(), pk); err != nil {
		return nil, nil, err
	}
	return temperature, pressure, nil
}

type species struct {
	phase  *core.Phase
	weight []float64
	volume []float64
}

func readSpecies(mc *core.ModelContext, comp *core.Phase) (species, error) {
	wk, err := mc.Key("molecular_weight")
	if err != nil {
		return species{}, err
	}
	vk, err := mc.Key("molar_diffusion_volume")
	if err != nil {
		return species{}, err
	}
	w, err := comp.GetContext(mc.Context(), wk)
	if err != nil {
		return species{}, err
	}
	v, err := comp.GetContext(mc.Context(), vk)
	if err != nil {
		return species{}, err
	}
	return species{phase: comp, weight: w, volume: v}, nil
}

func pairOf(t, p []float64, a, b species) Pair {
	return Pair{Temperature: t, Pressure: p, WeightA: a.weight, WeightB: b.weight, VolumeA: a.volume, VolumeB: b.volume}
}

func binaryDiffusivity(mc *core.ModelContext) ([]float64, error) {
	mix := mc.Phase()
	comps := mix.Components()
	if len(comps) != 2 {
		return nil, core.ErrInvalidArgument{Argument: "target", Reason: fmt.Sprintf("%s needs exactly two components, has %d", mix.Name(), len(comps))}
	}
	t, p, err := state(mc, mix)
	if err != nil {
		return nil, err
	}
	a, err := readSpecies(mc, comps[0])
	if err != nil {
		return nil, err
	}
	b, err := readSpecies(mc, comps[1])
	if err != nil {
		return nil, err
	}
	return Fuller(pairOf(t, p, a, b))
}

// wilkeFuller runs on a component. It computes the Fuller diffusivity of
// every unordered pair of the mixture, stores each on both members under
// PairKey, then reduces the pairs of the target component with the Wilke
// correction: D = (1 - yA) / Σ_{B≠A} yB / D_AB.
func wilkeFuller(mc *core.ModelContext) ([]float64, error) {
	mix, err := mc.Object("mixture")
	if err != nil {
		return nil, err
	}
	comps := mix.Components()
	if len(comps) < 2 {
		return nil, core.ErrInvalidArgument{Argument: "mixture", Reason: fmt.Sprintf("%s needs at least two components, has %d", mix.Name(), len(comps))}
	}
	self := -1
	for i, c := range comps {
		if c.Name() == mc.Target().Name() {
			self = i
		}
	}
	if self < 0 {
		return nil, core.ErrInvalidArgument{Argument: "mixture", Reason: mc.Target().Name() + " is not a component of " + mix.Name()}
	}
	t, p, err := state(mc, mix)
	if err != nil {
		return nil, err
	}
	specs := make([]species, len(comps))
	for i, c := range comps {
		if specs[i], err = readSpecies(mc, c); err != nil {
			return nil, err
		}
	}
	pairs := make(map[[2]int][]float64)
	for i := range specs {
		for j := i + 1; j < len(specs); j++ {
			d, err := Fuller(pairOf(t, p, specs[i], specs[j]))
			if err != nil {
				return nil, err
			}
			if err := specs[i].phase.Set(PairKey(specs[j].phase.Name()), d); err != nil {
				return nil, err
			}
			if err := specs[j].phase.Set(PairKey(specs[i].phase.Name()), d); err != nil {
				return nil, err
			}
			pairs[[2]int{i, j}] = d
			pairs[[2]int{j, i}] = d
		}
	}

	ya, err := mix.MoleFraction(mc.Context(), comps[self])
	if err != nil {
		return nil, err
	}
	denom := make([]float64, len(ya))
	for j, c := range comps {
		if j == self {
			continue
		}
		yb, err := mix.MoleFraction(mc.Context(), c)
		if err != nil {
			return nil, err
		}
		d := pairs[[2]int{self, j}]
		if len(yb) != len(denom) || len(d) != len(denom) {
			return nil, core.ErrDimensionMismatch{Object: c.Name(), Key: core.KeyMoleFraction.String(), Want: len(denom), Got: len(yb)}
		}
		for i := range denom {
			denom[i] += yb[i] / d[i]
		}
	}
	out := make([]float64, len(ya))
	for i := range out {
		out[i] = (1 - ya[i]) / denom[i]
	}
	return out, nil
}

// Salinity correlation constants, valid up to 160 g/kg NaCl.
const (
	salA = 8.73220929e+00
	salB = 6.00389629e+01
	salC = -1.19083743e-01
	salD = -1.77796042e+00
	salE = 3.26987130e-04
	salF = -1.09636011e-01
	salG = -1.83933426e-07
)

// Salinity returns g salt per kg solution for temperature T in K and
// concentration C in mol/m³.
func Salinity(t, c float64) float64 {
	return salA + salB*c + salC*t + salD*c*c + salE*t*t + salF*c*c*c + salG*t*t*t
}

func salinity(mc *core.ModelContext) ([]float64, error) {
	t, err := mc.Input("temperature")
	if err != nil {
		return nil, err
	}
	c, err := mc.Input("concentration")
	if err != nil {
		return nil, err
	}
	if len(t) != len(c) {
		return nil, core.ErrDimensionMismatch{Object: mc.Target().Name(), Key: "concentration", Want: len(t), Got: len(c)}
	}
	out := make([]float64, len(t))
	for i := range out {
		out[i] = Salinity(t[i], c[i])
	}
	return out, nil
}
