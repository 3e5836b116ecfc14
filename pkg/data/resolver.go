// Package data gathers the data an extension contributes to a page from its
// engine instance.
package data

import (
	"context"
	"fmt"

	"github.com/goliatone/go-extmap/pkg/engine"
)

// Resolver applies a definition's getData policy.
type Resolver struct{}

// NewResolver returns a Resolver.
func NewResolver() *Resolver {
	return &Resolver{}
}

// GetData returns the data def contributes for inputPath. The result is never
// nil; NoData policies return an empty map without consulting the instance.
func (r *Resolver) GetData(ctx context.Context, def *engine.Definition, inputPath string) (map[string]any, error) {
	out := make(map[string]any)
	if def == nil {
		return out, nil
	}

	policy := def.GetData
	if !policy.RequiresInstance() {
		return out, nil
	}
	if def.GetInstanceFromInputPath == nil {
		return nil, &engine.MisconfiguredExtensionError{
			Extension: def.Extension,
			Reason:    fmt.Sprintf("getData is %s but getInstanceFromInputPath is missing", policy.Mode()),
		}
	}

	inst, err := def.GetInstanceFromInputPath(ctx, inputPath)
	if err != nil {
		return nil, fmt.Errorf("data: instance for %s: %w", inputPath, err)
	}
	if inst == nil {
		return out, nil
	}

	if provider, ok := inst.(engine.DataKeyProvider); ok {
		if keys := provider.DataKeys(); len(keys) > 0 {
			return mergeProperties(ctx, inst, inputPath, keys, out)
		}
	}

	switch policy.Mode() {
	case engine.DataModeAll:
		return mergeProperties(ctx, inst, inputPath, []string{engine.DefaultDataProperty}, out)
	case engine.DataModeKeys:
		for _, key := range policy.Keys() {
			value, ok, err := property(ctx, inst, key)
			if err != nil {
				return nil, fmt.Errorf("data: property %q of %s: %w", key, inputPath, err)
			}
			if ok {
				out[key] = value
			}
		}
	}
	return out, nil
}

// mergeProperties merges the objects found at each named property; later
// properties win on conflicting keys.
func mergeProperties(ctx context.Context, inst engine.Instance, inputPath string, names []string, out map[string]any) (map[string]any, error) {
	for _, name := range names {
		value, ok, err := property(ctx, inst, name)
		if err != nil {
			return nil, fmt.Errorf("data: property %q of %s: %w", name, inputPath, err)
		}
		if !ok || value == nil {
			continue
		}
		obj, isObject := asObject(value)
		if !isObject {
			return nil, &engine.InvalidDataError{InputPath: inputPath, Property: name, Got: value}
		}
		for key, v := range obj {
			out[key] = v
		}
	}
	return out, nil
}

func property(ctx context.Context, inst engine.Instance, name string) (any, bool, error) {
	value, ok := inst.Lookup(name)
	if !ok {
		return nil, false, nil
	}
	switch fn := value.(type) {
	case engine.DataFunc:
		resolved, err := fn(ctx)
		return resolved, true, err
	case func(context.Context) (map[string]any, error):
		resolved, err := fn(ctx)
		return resolved, true, err
	}
	return value, true, nil
}

func asObject(value any) (map[string]any, bool) {
	switch v := value.(type) {
	case map[string]any:
		return v, true
	case engine.InstanceMap:
		return map[string]any(v), true
	default:
		return nil, false
	}
}
