package engine

import "context"

// DataMode selects how an engine contributes page data.
type DataMode int

const (
	// DataModeNone contributes nothing.
	DataModeNone DataMode = iota
	// DataModeAll contributes the instance's data object.
	DataModeAll
	// DataModeKeys contributes only the named top-level keys.
	DataModeKeys
)

func (m DataMode) String() string {
	switch m {
	case DataModeAll:
		return "all"
	case DataModeKeys:
		return "keys"
	default:
		return "none"
	}
}

// DataPolicy is the getData setting of a definition. The zero value
// contributes no data.
type DataPolicy struct {
	mode DataMode
	keys []string
}

// NoData contributes nothing and never asks for an instance.
func NoData() DataPolicy {
	return DataPolicy{}
}

// AllData contributes the full data object of the instance.
func AllData() DataPolicy {
	return DataPolicy{mode: DataModeAll}
}

// DataKeys contributes only the listed keys. An empty list still requires an
// instance.
func DataKeys(keys ...string) DataPolicy {
	return DataPolicy{mode: DataModeKeys, keys: append([]string{}, keys...)}
}

// Mode returns the policy mode.
func (p DataPolicy) Mode() DataMode {
	return p.mode
}

// Keys returns a copy of the key list for DataModeKeys.
func (p DataPolicy) Keys() []string {
	if p.mode != DataModeKeys {
		return nil
	}
	return append([]string{}, p.keys...)
}

// RequiresInstance reports whether the policy reads from an engine instance.
func (p DataPolicy) RequiresInstance() bool {
	return p.mode != DataModeNone
}

func (p DataPolicy) clone() DataPolicy {
	if p.keys != nil {
		p.keys = append([]string{}, p.keys...)
	}
	return p
}

// DataFunc lazily produces a data object. Instance properties holding a
// DataFunc are invoked when read.
type DataFunc func(ctx context.Context) (map[string]any, error)

// Instance is an engine-specific value that may expose page data.
type Instance interface {
	Lookup(name string) (any, bool)
}

// DataKeyProvider is implemented by instances that name the properties
// holding their data, replacing the "data" property convention.
type DataKeyProvider interface {
	DataKeys() []string
}

// DataKeyProperty is the reserved InstanceMap entry read by DataKeys.
const DataKeyProperty = "eleventyDataKey"

// DefaultDataProperty is the conventional property holding instance data.
const DefaultDataProperty = "data"

// InstanceMap is a map-backed Instance.
type InstanceMap map[string]any

// Lookup implements Instance.
func (m InstanceMap) Lookup(name string) (any, bool) {
	value, ok := m[name]
	return value, ok
}

// DataKeys implements DataKeyProvider using the eleventyDataKey entry, which
// may hold a []string or a []any of strings.
func (m InstanceMap) DataKeys() []string {
	raw, ok := m[DataKeyProperty]
	if !ok {
		return nil
	}
	switch keys := raw.(type) {
	case []string:
		return append([]string{}, keys...)
	case []any:
		out := make([]string, 0, len(keys))
		for _, key := range keys {
			if s, ok := key.(string); ok {
				out = append(out, s)
			}
		}
		return out
	default:
		return nil
	}
}
