package core

import "porenet/pkg/domain"

// BuiltinPlugin contributes the rules every project needs: state
// propagation into mixture components and two generic helpers.
type BuiltinPlugin struct{}

// Name implements Plugin.
func (BuiltinPlugin) Name() string { return "builtin" }

// Version implements Plugin.
func (BuiltinPlugin) Version() string { return "1.0.0" }

// Register implements Plugin.
func (BuiltinPlugin) Register(r *PluginRegistry) error {
	r.RegisterRule(RuleDefinition{
		ID:          RuleMixtureTemperature,
		Description: "copies the temperature of the referenced mixture",
		Params: []ParamSpec{
			{Name: "mixture", Kind: ParamObject, Required: true},
			{Name: "temperature", Kind: ParamKey, Default: domain.KeyTemperature},
		},
		Eval: copyFromMixture("temperature"),
	})
	r.RegisterRule(RuleDefinition{
		ID:          RuleMixturePressure,
		Description: "copies the pressure of the referenced mixture",
		Params: []ParamSpec{
			{Name: "mixture", Kind: ParamObject, Required: true},
			{Name: "pressure", Kind: ParamKey, Default: domain.KeyPressure},
		},
		Eval: copyFromMixture("pressure"),
	})
	r.RegisterRule(RuleDefinition{
		ID:          "generic.constant",
		Description: "fills the target with a constant",
		Params:      []ParamSpec{{Name: "value", Kind: ParamFloat, Required: true}},
		Eval: func(mc *ModelContext) ([]float64, error) {
			v, err := mc.Float("value")
			if err != nil {
				return nil, err
			}
			out := make([]float64, mc.Count())
			for i := range out {
				out[i] = v
			}
			return out, nil
		},
	})
	r.RegisterRule(RuleDefinition{
		ID:          "generic.scale",
		Description: "multiplies another property of the same object by a factor",
		Params: []ParamSpec{
			{Name: "prop", Kind: ParamKey, Required: true},
			{Name: "factor", Kind: ParamFloat, Default: 1.0},
		},
		Eval: func(mc *ModelContext) ([]float64, error) {
			in, err := mc.Input("prop")
			if err != nil {
				return nil, err
			}
			f, err := mc.Float("factor")
			if err != nil {
				return nil, err
			}
			out := make([]float64, len(in))
			for i, v := range in {
				out[i] = v * f
			}
			return out, nil
		},
	})
	return nil
}
