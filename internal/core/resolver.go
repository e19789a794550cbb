package core

import "context"

// Interleave assembles one full-length array for key from the physics
// regions that define it. Each region's subset values are copied into the
// positions it owns; positions no region covers hold NaN. Where regions
// overlap, the later region wins.
//
// covered is nil when no region defines key. Coverage is not validated;
// see Phase.CheckPhysicsHealth for the explicit audit.
func Interleave(ctx context.Context, count int, key Key, sources []*Physics) (values []float64, covered []bool, err error) {
	for _, phys := range sources {
		if !phys.defines(key) {
			continue
		}
		sub, err := phys.GetContext(ctx, key)
		if err != nil {
			return nil, nil, err
		}
		if values == nil {
			values = nanFilled(count)
			covered = make([]bool, count)
		}
		for i, j := range phys.indices(key.Domain) {
			if j >= count {
				return nil, nil, ErrDimensionMismatch{Object: phys.name, Key: key.String(), Want: count, Got: j + 1}
			}
			values[j] = sub[i]
			covered[j] = true
		}
	}
	return values, covered, nil
}
