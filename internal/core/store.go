package core

import "sort"

// ElementCounter reports how many elements an object holds per domain.
type ElementCounter func(d Domain) int

// PropertyStore maps (domain, name) keys to per-element arrays for one
// object. Every write is validated against the owner's element count.
type PropertyStore struct {
	owner  string
	count  ElementCounter
	values map[Key][]float64
	labels map[Key][]bool
}

// NewPropertyStore constructs an empty store for the named owner.
func NewPropertyStore(owner string, count ElementCounter) *PropertyStore {
	return &PropertyStore{
		owner:  owner,
		count:  count,
		values: make(map[Key][]float64),
		labels: make(map[Key][]bool),
	}
}

// Count returns the element count for d.
func (s *PropertyStore) Count(d Domain) int { return s.count(d) }

// Has reports whether a value array is stored under key.
func (s *PropertyStore) Has(key Key) bool {
	_, ok := s.values[key]
	return ok
}

// Current reports whether key is stored with a length matching the
// current element count.
func (s *PropertyStore) Current(key Key) bool {
	v, ok := s.values[key]
	return ok && len(v) == s.count(key.Domain)
}

// Get returns a copy of the array stored under key.
func (s *PropertyStore) Get(key Key) ([]float64, error) {
	v, ok := s.values[key]
	if !ok {
		return nil, ErrNotFound{Object: s.owner, Key: key.String()}
	}
	return append([]float64(nil), v...), nil
}

// Set stores a copy of values under key.
func (s *PropertyStore) Set(key Key, values []float64) error {
	if err := s.validate(key, len(values)); err != nil {
		return err
	}
	s.values[key] = append([]float64(nil), values...)
	return nil
}

// Fill stores a constant array under key.
func (s *PropertyStore) Fill(key Key, value float64) error {
	if !key.Domain.Valid() {
		return ErrInvalidArgument{Argument: "key", Reason: key.String() + " has no valid domain"}
	}
	n := s.count(key.Domain)
	v := make([]float64, n)
	for i := range v {
		v[i] = value
	}
	s.values[key] = v
	return nil
}

// Delete removes key, reporting whether it was present.
func (s *PropertyStore) Delete(key Key) bool {
	_, ok := s.values[key]
	delete(s.values, key)
	return ok
}

// Keys returns the stored value keys sorted by their rendered form.
func (s *PropertyStore) Keys() []Key {
	out := make([]Key, 0, len(s.values))
	for k := range s.values {
		out = append(out, k)
	}
	sortKeys(out)
	return out
}

// SetLabel stores a boolean mask under key.
func (s *PropertyStore) SetLabel(key Key, mask []bool) error {
	if err := s.validate(key, len(mask)); err != nil {
		return err
	}
	s.labels[key] = append([]bool(nil), mask...)
	return nil
}

// Label returns a copy of the mask stored under key.
func (s *PropertyStore) Label(key Key) ([]bool, error) {
	m, ok := s.labels[key]
	if !ok {
		return nil, ErrNotFound{Object: s.owner, Key: key.String()}
	}
	return append([]bool(nil), m...), nil
}

// DeleteLabel removes a mask.
func (s *PropertyStore) DeleteLabel(key Key) {
	delete(s.labels, key)
}

// Labels returns the stored label keys sorted by their rendered form.
func (s *PropertyStore) Labels() []Key {
	out := make([]Key, 0, len(s.labels))
	for k := range s.labels {
		out = append(out, k)
	}
	sortKeys(out)
	return out
}

func (s *PropertyStore) validate(key Key, n int) error {
	if !key.Domain.Valid() || key.Name == "" {
		return ErrInvalidArgument{Argument: "key", Reason: "malformed key " + key.String()}
	}
	if want := s.count(key.Domain); n != want {
		return ErrDimensionMismatch{Object: s.owner, Key: key.String(), Want: want, Got: n}
	}
	return nil
}

func sortKeys(keys []Key) {
	sort.Slice(keys, func(i, j int) bool { return keys[i].String() < keys[j].String() })
}

// Indices returns the positions where mask is true.
func Indices(mask []bool) []int {
	var out []int
	for i, ok := range mask {
		if ok {
			out = append(out, i)
		}
	}
	return out
}

// Mask builds a boolean mask of length n from indices; out-of-range indices
// are reported as an error.
func Mask(n int, indices []int) ([]bool, error) {
	m := make([]bool, n)
	for _, i := range indices {
		if i < 0 || i >= n {
			return nil, ErrInvalidArgument{Argument: "index", Reason: "element index out of range"}
		}
		m[i] = true
	}
	return m, nil
}
