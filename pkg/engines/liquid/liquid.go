// Package liquid provides the built-in Liquid template language backed by
// github.com/osteele/liquid.
package liquid

import (
	"context"
	"fmt"
	"strings"

	"github.com/osteele/liquid"

	"github.com/goliatone/go-extmap/pkg/engine"
)

// Extension is the extension the engine registers under by default.
const Extension = "liquid"

// Option configures the Liquid definition.
type Option func(*config)

type config struct {
	extension string
	filters   map[string]any
	globals   map[string]any
}

// WithExtension registers the engine under a different extension.
func WithExtension(ext string) Option {
	return func(cfg *config) {
		if trimmed := engine.NormalizeExtension(ext); trimmed != "" {
			cfg.extension = trimmed
		}
	}
}

// WithFilters registers Liquid filters. Values must be functions accepted by
// liquid.Engine.RegisterFilter.
func WithFilters(filters map[string]any) Option {
	return func(cfg *config) {
		for name, fn := range filters {
			if cfg.filters == nil {
				cfg.filters = make(map[string]any, len(filters))
			}
			cfg.filters[strings.TrimSpace(name)] = fn
		}
	}
}

// WithGlobalData seeds bindings visible to every template. Page data wins on
// conflicting keys.
func WithGlobalData(data map[string]any) Option {
	return func(cfg *config) {
		for key, value := range data {
			if cfg.globals == nil {
				cfg.globals = make(map[string]any, len(data))
			}
			cfg.globals[strings.TrimSpace(key)] = value
		}
	}
}

// Definition returns the built-in Liquid definition.
func Definition(options ...Option) engine.Definition {
	cfg := &config{extension: Extension}
	for _, opt := range options {
		if opt != nil {
			opt(cfg)
		}
	}

	e := &Engine{globals: cfg.globals}
	return engine.Definition{
		Extension: cfg.extension,
		Key:       Extension,
		Init: func(context.Context) error {
			e.init(cfg.filters)
			return nil
		},
		Compile: e.Compile,
	}
}

// Engine compiles Liquid source.
type Engine struct {
	engine  *liquid.Engine
	globals map[string]any
}

func (e *Engine) init(filters map[string]any) {
	e.engine = liquid.NewEngine()
	for name, fn := range filters {
		if name == "" || fn == nil {
			continue
		}
		e.engine.RegisterFilter(name, fn)
	}
}

// Compile parses source into a render function.
func (e *Engine) Compile(_ context.Context, source, inputPath string) (engine.RenderFunc, error) {
	if e.engine == nil {
		return nil, fmt.Errorf("liquid: engine not initialized")
	}
	tpl, err := e.engine.ParseString(source)
	if err != nil {
		return nil, fmt.Errorf("liquid: parse %s: %w", inputPath, err)
	}

	return func(_ context.Context, call *engine.Call) (engine.Output, error) {
		bindings := make(liquid.Bindings, len(e.globals)+len(call.Data))
		for key, value := range e.globals {
			bindings[key] = value
		}
		for key, value := range call.Data {
			bindings[key] = value
		}
		out, err := tpl.RenderString(bindings)
		if err != nil {
			return engine.Output{}, fmt.Errorf("liquid: render %s: %w", call.InputPath, err)
		}
		return engine.Rendered(out), nil
	}, nil
}
