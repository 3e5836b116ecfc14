package njk

import (
	"context"
	"fmt"

	"github.com/flosch/pongo2/v6"

	"github.com/goliatone/go-extmap/pkg/engine"
)

// pageContext copies page data into a pongo2.Context. Lazy data
// (engine.DataFunc) is resolved with ctx and instance maps are exposed as
// plain maps so templates can range over them. Other values, structs
// included, are handed to pongo2 as-is.
func pageContext(ctx context.Context, data map[string]any) (pongo2.Context, error) {
	out := make(pongo2.Context, len(data))
	for key, value := range data {
		resolved, err := resolveValue(ctx, value)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", key, err)
		}
		out[key] = resolved
	}
	return out, nil
}

func resolveValue(ctx context.Context, value any) (any, error) {
	switch v := value.(type) {
	case engine.DataFunc:
		if v == nil {
			return nil, nil
		}
		produced, err := v(ctx)
		if err != nil {
			return nil, err
		}
		return resolveMap(ctx, produced)
	case engine.InstanceMap:
		return resolveMap(ctx, v)
	case map[string]any:
		return resolveMap(ctx, v)
	case []any:
		out := make([]any, len(v))
		for idx, item := range v {
			resolved, err := resolveValue(ctx, item)
			if err != nil {
				return nil, err
			}
			out[idx] = resolved
		}
		return out, nil
	default:
		return value, nil
	}
}

func resolveMap(ctx context.Context, in map[string]any) (map[string]any, error) {
	out := make(map[string]any, len(in))
	for key, value := range in {
		resolved, err := resolveValue(ctx, value)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", key, err)
		}
		out[key] = resolved
	}
	return out, nil
}
