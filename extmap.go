// Package extmap wires the extension registry, the built-in template
// languages, and the render dispatcher into a ready-to-use environment.
package extmap

import (
	"context"
	"fmt"
	"io/fs"

	"github.com/goliatone/go-extmap/pkg/config"
	"github.com/goliatone/go-extmap/pkg/dispatch"
	"github.com/goliatone/go-extmap/pkg/engine"
	"github.com/goliatone/go-extmap/pkg/engines/html"
	"github.com/goliatone/go-extmap/pkg/engines/liquid"
	"github.com/goliatone/go-extmap/pkg/engines/markdown"
	"github.com/goliatone/go-extmap/pkg/engines/njk"
	"github.com/goliatone/go-extmap/pkg/page"
	"github.com/goliatone/go-extmap/pkg/registry"
)

// Option customises environment construction.
type Option func(*options)

type options struct {
	definitions []engine.Definition
	skipBuiltin bool
	config      *config.Config
	global      map[string]any
	observer    dispatch.Observer
	liquid      []liquid.Option
	njk         []njk.Option
	markdown    []markdown.Option
}

// WithDefinitions registers extension definitions after the built-ins and
// any configuration entries, so they override both.
func WithDefinitions(defs ...engine.Definition) Option {
	return func(o *options) {
		o.definitions = append(o.definitions, defs...)
	}
}

// WithConfig applies a site configuration: its extension entries, global
// data, and built-in engine settings.
func WithConfig(cfg *config.Config) Option {
	return func(o *options) {
		o.config = cfg
	}
}

// WithGlobalData seeds data visible to every page. Keys set here win over the
// configuration's data block.
func WithGlobalData(data map[string]any) Option {
	return func(o *options) {
		if o.global == nil {
			o.global = make(map[string]any, len(data))
		}
		for key, value := range data {
			o.global[key] = value
		}
	}
}

// WithObserver forwards render state transitions to observer.
func WithObserver(observer dispatch.Observer) Option {
	return func(o *options) {
		o.observer = observer
	}
}

// WithoutBuiltins skips registering the built-in template languages.
func WithoutBuiltins() Option {
	return func(o *options) {
		o.skipBuiltin = true
	}
}

// WithLiquidOptions configures the built-in Liquid engine.
func WithLiquidOptions(opts ...liquid.Option) Option {
	return func(o *options) {
		o.liquid = append(o.liquid, opts...)
	}
}

// WithNjkOptions configures the built-in njk engine.
func WithNjkOptions(opts ...njk.Option) Option {
	return func(o *options) {
		o.njk = append(o.njk, opts...)
	}
}

// WithMarkdownOptions configures the built-in Markdown engine.
func WithMarkdownOptions(opts ...markdown.Option) Option {
	return func(o *options) {
		o.markdown = append(o.markdown, opts...)
	}
}

// Environment is an initialised registry plus the dispatcher rendering
// through it.
type Environment struct {
	Registry   *registry.Registry
	Dispatcher *dispatch.Dispatcher

	global map[string]any
}

// New registers the built-in languages, configured extensions, and supplied
// definitions, in that order, then initialises the registry.
func New(ctx context.Context, opts ...Option) (*Environment, error) {
	o := &options{}
	for _, opt := range opts {
		if opt != nil {
			opt(o)
		}
	}
	cfg := o.config
	if cfg == nil {
		cfg = config.Default()
	}

	reg := registry.New()
	var dispatchOpts []dispatch.Option
	if o.observer != nil {
		dispatchOpts = append(dispatchOpts, dispatch.WithObserver(o.observer))
	}
	d := dispatch.New(reg, dispatchOpts...)

	var defs []engine.Definition
	if !o.skipBuiltin {
		defs = append(defs, builtins(d, cfg, o)...)
	}
	defs = append(defs, cfg.Definitions()...)
	defs = append(defs, o.definitions...)

	for _, def := range defs {
		if err := reg.Add(def); err != nil {
			return nil, fmt.Errorf("extmap: %w", err)
		}
	}
	if err := reg.Init(ctx); err != nil {
		return nil, fmt.Errorf("extmap: %w", err)
	}

	global := make(map[string]any, len(cfg.Data)+len(o.global))
	for key, value := range cfg.Data {
		global[key] = value
	}
	for key, value := range o.global {
		global[key] = value
	}

	return &Environment{
		Registry:   reg,
		Dispatcher: d,
		global:     global,
	}, nil
}

func builtins(d *dispatch.Dispatcher, cfg *config.Config, o *options) []engine.Definition {
	var njkOpts []njk.Option
	if cfg.Njk.BaseDir != "" {
		njkOpts = append(njkOpts, njk.WithBaseDir(cfg.Njk.BaseDir))
	}
	njkOpts = append(njkOpts, o.njk...)

	mdOpts := []markdown.Option{markdown.WithPreprocessor(d, cfg.MarkdownTemplateEngine())}
	if cfg.Markdown.Sanitize {
		mdOpts = append(mdOpts, markdown.WithSanitize())
	}
	mdOpts = append(mdOpts, o.markdown...)

	return []engine.Definition{
		liquid.Definition(o.liquid...),
		njk.Definition(njkOpts...),
		markdown.Definition(mdOpts...),
		html.Definition(html.WithPreprocessor(d, cfg.HTMLTemplateEngine())),
	}
}

// GlobalData returns a copy of the environment's global data.
func (e *Environment) GlobalData() map[string]any {
	out := make(map[string]any, len(e.global))
	for key, value := range e.global {
		out[key] = value
	}
	return out
}

// Template parses raw as the content of inputPath.
func (e *Environment) Template(inputPath string, raw []byte) (*page.Template, error) {
	return page.New(e.Dispatcher, inputPath, raw, page.WithGlobalData(e.global))
}

// ReadTemplate loads path from fsys.
func (e *Environment) ReadTemplate(fsys fs.FS, path string) (*page.Template, error) {
	return page.Read(e.Dispatcher, fsys, path, page.WithGlobalData(e.global))
}

// Render gathers the page data for inputPath and renders raw with it.
func (e *Environment) Render(ctx context.Context, inputPath string, raw []byte) (engine.Output, error) {
	tmpl, err := e.Template(inputPath, raw)
	if err != nil {
		return engine.Output{}, err
	}
	data, err := tmpl.GetData(ctx)
	if err != nil {
		return engine.Output{}, err
	}
	return tmpl.Render(ctx, data)
}

// Builder returns a page builder over the environment.
func (e *Environment) Builder(opts ...page.BuilderOption) *page.Builder {
	opts = append([]page.BuilderOption{page.WithBuildGlobalData(e.global)}, opts...)
	return page.NewBuilder(e.Dispatcher, opts...)
}
