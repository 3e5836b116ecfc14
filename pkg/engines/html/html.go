// Package html provides the built-in HTML template language: the source is
// emitted as-is after an optional pass through another template language.
package html

import (
	"context"

	"github.com/goliatone/go-extmap/pkg/engine"
	"github.com/goliatone/go-extmap/pkg/engines"
)

// Extension is the extension the engine registers under by default.
const Extension = "html"

// Option configures the HTML definition.
type Option func(*config)

type config struct {
	extension    string
	preprocessor engines.Preprocessor
	preExtension string
}

// WithExtension registers the engine under a different extension.
func WithExtension(ext string) Option {
	return func(cfg *config) {
		if trimmed := engine.NormalizeExtension(ext); trimmed != "" {
			cfg.extension = trimmed
		}
	}
}

// WithPreprocessor runs source through the active definition of extension.
func WithPreprocessor(p engines.Preprocessor, extension string) Option {
	return func(cfg *config) {
		cfg.preprocessor = p
		cfg.preExtension = engine.NormalizeExtension(extension)
	}
}

// Definition returns the built-in HTML definition.
func Definition(options ...Option) engine.Definition {
	cfg := &config{extension: Extension}
	for _, opt := range options {
		if opt != nil {
			opt(cfg)
		}
	}

	return engine.Definition{
		Extension: cfg.extension,
		Key:       Extension,
		Compile: func(_ context.Context, source, _ string) (engine.RenderFunc, error) {
			if cfg.preprocessor == nil || cfg.preExtension == "" {
				return engine.Static(source), nil
			}
			return func(ctx context.Context, call *engine.Call) (engine.Output, error) {
				out, ok, err := engines.Preprocess(ctx, cfg.preprocessor, cfg.preExtension, call, source)
				if err != nil || !ok {
					return engine.Omitted(), err
				}
				return engine.Rendered(out), nil
			}, nil
		},
	}
}
