// Package markdown provides the built-in Markdown template language. Source is
// optionally run through another template language first (Liquid by default
// when a preprocessor is wired), then converted with gomarkdown and
// optionally sanitised with bluemonday.
package markdown

import (
	"context"

	"github.com/gomarkdown/markdown"
	"github.com/gomarkdown/markdown/html"
	"github.com/gomarkdown/markdown/parser"
	"github.com/microcosm-cc/bluemonday"

	"github.com/goliatone/go-extmap/pkg/engine"
	"github.com/goliatone/go-extmap/pkg/engines"
)

// Extension is the extension the engine registers under by default.
const Extension = "md"

// Option configures the Markdown definition.
type Option func(*config)

type config struct {
	extension     string
	preprocessor  engines.Preprocessor
	preExtension  string
	sanitizer     *bluemonday.Policy
	parserExt     parser.Extensions
	rendererFlags html.Flags
}

// WithExtension registers the engine under a different extension.
func WithExtension(ext string) Option {
	return func(cfg *config) {
		if trimmed := engine.NormalizeExtension(ext); trimmed != "" {
			cfg.extension = trimmed
		}
	}
}

// WithPreprocessor runs source through the active definition of extension
// before the Markdown pass. An empty extension disables preprocessing.
func WithPreprocessor(p engines.Preprocessor, extension string) Option {
	return func(cfg *config) {
		cfg.preprocessor = p
		cfg.preExtension = engine.NormalizeExtension(extension)
	}
}

// WithSanitize sanitises the generated HTML with bluemonday's UGC policy.
func WithSanitize() Option {
	return func(cfg *config) {
		cfg.sanitizer = bluemonday.UGCPolicy()
	}
}

// WithSanitizer sanitises the generated HTML with a custom policy.
func WithSanitizer(policy *bluemonday.Policy) Option {
	return func(cfg *config) {
		cfg.sanitizer = policy
	}
}

// WithParserExtensions replaces the gomarkdown parser extensions.
func WithParserExtensions(ext parser.Extensions) Option {
	return func(cfg *config) {
		cfg.parserExt = ext
	}
}

// WithRendererFlags replaces the gomarkdown HTML renderer flags.
func WithRendererFlags(flags html.Flags) Option {
	return func(cfg *config) {
		cfg.rendererFlags = flags
	}
}

// Definition returns the built-in Markdown definition.
func Definition(options ...Option) engine.Definition {
	cfg := &config{
		extension:     Extension,
		parserExt:     parser.CommonExtensions | parser.AutoHeadingIDs,
		rendererFlags: html.CommonFlags,
	}
	for _, opt := range options {
		if opt != nil {
			opt(cfg)
		}
	}

	return engine.Definition{
		Extension: cfg.extension,
		Key:       Extension,
		Compile:   cfg.compile,
	}
}

func (cfg *config) compile(_ context.Context, source, _ string) (engine.RenderFunc, error) {
	if cfg.preprocessor == nil || cfg.preExtension == "" {
		rendered := cfg.toHTML(source)
		return engine.Static(rendered), nil
	}

	return func(ctx context.Context, call *engine.Call) (engine.Output, error) {
		pre, ok, err := engines.Preprocess(ctx, cfg.preprocessor, cfg.preExtension, call, source)
		if err != nil {
			return engine.Output{}, err
		}
		if !ok {
			return engine.Omitted(), nil
		}
		return engine.Rendered(cfg.toHTML(pre)), nil
	}, nil
}

func (cfg *config) toHTML(source string) string {
	// gomarkdown parsers hold per-document state.
	p := parser.NewWithExtensions(cfg.parserExt)
	renderer := html.NewRenderer(html.RendererOptions{Flags: cfg.rendererFlags})
	out := markdown.ToHTML([]byte(source), p, renderer)
	if cfg.sanitizer != nil {
		out = cfg.sanitizer.SanitizeBytes(out)
	}
	return string(out)
}
