// Package param provides the ordered string parameter sets attached to
// planner configurations, and the extraction of the reserved lifecycle keys
// that must never reach an algorithm's generic parameter mechanism.
package param

import (
	"errors"
	"fmt"
)

// Reserved lifecycle keys consumed by the allocator before the remaining
// parameters are handed to the planner.
const (
	KeyMultiQuery = "multi_query_planning_enabled"
	KeyLoadData   = "load_planner_data"
	KeyStoreData  = "store_planner_data"
	KeyDataPath   = "planner_data_path"
)

// ErrConfigParse is returned when a reserved key holds an unparseable value.
// The failure aborts only the allocation that consumed the key.
var ErrConfigParse = errors.New("invalid planner configuration value")

// Set is an ordered mapping of string keys to string values representing one
// named planner configuration. The zero value is an empty set.
type Set struct {
	keys   []string
	values map[string]string
}

// NewSet creates an empty Set.
func NewSet() *Set {
	return &Set{values: make(map[string]string)}
}

// FromMap builds a Set from a plain map. Iteration order of the input map is
// not preserved; use Put for order-sensitive construction.
func FromMap(m map[string]string) *Set {
	s := NewSet()
	for k, v := range m {
		s.Put(k, v)
	}
	return s
}

// Put sets key to value, appending the key to the order if new.
func (s *Set) Put(key, value string) {
	if s.values == nil {
		s.values = make(map[string]string)
	}
	if _, exists := s.values[key]; !exists {
		s.keys = append(s.keys, key)
	}
	s.values[key] = value
}

// Get returns the value for key and whether it is present.
func (s *Set) Get(key string) (string, bool) {
	v, ok := s.values[key]
	return v, ok
}

// Has reports whether key is present.
func (s *Set) Has(key string) bool {
	_, ok := s.values[key]
	return ok
}

// Delete removes key from the set. Removing an absent key is a no-op.
func (s *Set) Delete(key string) {
	if _, ok := s.values[key]; !ok {
		return
	}
	delete(s.values, key)
	for i, k := range s.keys {
		if k == key {
			s.keys = append(s.keys[:i], s.keys[i+1:]...)
			break
		}
	}
}

// Keys returns the keys in insertion order.
func (s *Set) Keys() []string {
	out := make([]string, len(s.keys))
	copy(out, s.keys)
	return out
}

// Len returns the number of entries.
func (s *Set) Len() int {
	return len(s.keys)
}

// Clone returns a deep copy of the set, preserving key order.
func (s *Set) Clone() *Set {
	c := &Set{
		keys:   make([]string, len(s.keys)),
		values: make(map[string]string, len(s.values)),
	}
	copy(c.keys, s.keys)
	for k, v := range s.values {
		c.values[k] = v
	}
	return c
}

// Reserved holds the lifecycle flags extracted from a configuration.
type Reserved struct {
	// MultiQuery requests a long-lived instance shared across solves.
	MultiQuery bool
	// LoadData requests seeding the instance from a stored graph.
	LoadData bool
	// StoreData requests persisting the graph at shutdown.
	StoreData bool
	// DataPath is the storage location for the graph.
	DataPath string
}

// ExtractReserved removes the reserved lifecycle keys from cfg and returns
// the parsed flags together with the remaining parameters. The input set is
// not modified.
//
// Precondition: cfg must not be nil.
// Postcondition: The returned Set contains no reserved keys. A boolean key
// whose value is not one of "true", "false", "1", "0" yields an error
// wrapping ErrConfigParse naming the key; the returned Set is nil.
func ExtractReserved(cfg *Set) (Reserved, *Set, error) {
	rest := cfg.Clone()
	var res Reserved
	var err error

	if res.MultiQuery, err = takeBool(rest, KeyMultiQuery); err != nil {
		return Reserved{}, nil, err
	}
	if res.LoadData, err = takeBool(rest, KeyLoadData); err != nil {
		return Reserved{}, nil, err
	}
	if res.StoreData, err = takeBool(rest, KeyStoreData); err != nil {
		return Reserved{}, nil, err
	}
	if v, ok := rest.Get(KeyDataPath); ok {
		res.DataPath = v
		rest.Delete(KeyDataPath)
	}

	return res, rest, nil
}

// takeBool removes key from s and parses it leniently. Absent keys are false.
func takeBool(s *Set, key string) (bool, error) {
	v, ok := s.Get(key)
	if !ok {
		return false, nil
	}
	s.Delete(key)
	switch v {
	case "true", "1":
		return true, nil
	case "false", "0":
		return false, nil
	}
	return false, fmt.Errorf("%w: key %q has value %q, want true/false/1/0", ErrConfigParse, key, v)
}
