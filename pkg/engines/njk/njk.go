// Package njk provides the built-in Nunjucks-style template language backed
// by a pongo2 template set.
package njk

import (
	"bytes"
	"context"
	"fmt"
	"io/fs"
	"strings"
	"sync"

	"github.com/flosch/pongo2/v6"

	"github.com/goliatone/go-extmap/pkg/engine"
)

// Extension is the extension the engine registers under by default.
const Extension = "njk"

// Option configures the njk definition before construction.
type Option func(*config)

type config struct {
	extension  string
	baseDir    string
	templates  fs.FS
	templateFn map[string]any
	filters    map[string]pongo2.FilterFunction
	globalData map[string]any
}

// WithExtension registers the engine under a different extension.
func WithExtension(ext string) Option {
	return func(cfg *config) {
		if trimmed := engine.NormalizeExtension(ext); trimmed != "" {
			cfg.extension = trimmed
		}
	}
}

// WithBaseDir lets templates include or extend files from a directory on
// disk.
func WithBaseDir(dir string) Option {
	return func(cfg *config) {
		cfg.baseDir = strings.TrimSpace(dir)
	}
}

// WithFS lets templates include or extend files from an fs.FS.
func WithFS(files fs.FS) Option {
	return func(cfg *config) {
		cfg.templates = files
	}
}

// WithTemplateFunc exposes functions to templates as callable globals.
func WithTemplateFunc(funcs map[string]any) Option {
	return func(cfg *config) {
		for name, fn := range funcs {
			name = strings.TrimSpace(name)
			if name == "" || fn == nil {
				continue
			}
			if cfg.templateFn == nil {
				cfg.templateFn = make(map[string]any, len(funcs))
			}
			cfg.templateFn[name] = fn
		}
	}
}

// WithFilters registers pongo2 filters. pongo2 keeps filters in a process
// wide table, so a name that is already registered keeps its first
// implementation.
func WithFilters(filters map[string]pongo2.FilterFunction) Option {
	return func(cfg *config) {
		for name, fn := range filters {
			name = strings.TrimSpace(name)
			if name == "" || fn == nil {
				continue
			}
			if cfg.filters == nil {
				cfg.filters = make(map[string]pongo2.FilterFunction, len(filters))
			}
			cfg.filters[name] = fn
		}
	}
}

// WithGlobalData seeds values available to every template. Page data wins
// on conflicting keys.
func WithGlobalData(data map[string]any) Option {
	return func(cfg *config) {
		for key, value := range data {
			if cfg.globalData == nil {
				cfg.globalData = make(map[string]any, len(data))
			}
			cfg.globalData[strings.TrimSpace(key)] = value
		}
	}
}

// Definition returns the built-in njk definition. The pongo2 template set is
// built by the definition's Init hook.
func Definition(options ...Option) engine.Definition {
	cfg := &config{extension: Extension}
	for _, opt := range options {
		if opt != nil {
			opt(cfg)
		}
	}

	e := &Engine{}
	return engine.Definition{
		Extension: cfg.extension,
		Key:       Extension,
		Init: func(ctx context.Context) error {
			return e.init(ctx, cfg)
		},
		Compile: e.Compile,
	}
}

// Engine compiles njk source with pongo2.
type Engine struct {
	mu          sync.RWMutex
	templateSet *pongo2.TemplateSet
}

func (e *Engine) init(ctx context.Context, cfg *config) error {
	var loaders []pongo2.TemplateLoader
	if cfg.baseDir != "" {
		loader, err := pongo2.NewLocalFileSystemLoader(cfg.baseDir)
		if err != nil {
			return fmt.Errorf("njk: base dir loader: %w", err)
		}
		loaders = append(loaders, loader)
	}
	if cfg.templates != nil {
		loaders = append(loaders, pongo2.NewFSLoader(cfg.templates))
	}
	if len(loaders) == 0 {
		// pongo2 requires at least one loader even for string templates.
		loader, err := pongo2.NewLocalFileSystemLoader("")
		if err != nil {
			return fmt.Errorf("njk: default loader: %w", err)
		}
		loaders = append(loaders, loader)
	}

	for name, fn := range cfg.filters {
		if pongo2.FilterExists(name) {
			continue
		}
		if err := pongo2.RegisterFilter(name, fn); err != nil {
			return fmt.Errorf("njk: filter %q: %w", name, err)
		}
	}

	globals, err := pageContext(ctx, cfg.globalData)
	if err != nil {
		return fmt.Errorf("njk: global data: %w", err)
	}
	for name, fn := range cfg.templateFn {
		globals[name] = fn
	}

	set := pongo2.NewSet("extmap-njk", loaders...)
	set.Globals = globals

	e.mu.Lock()
	e.templateSet = set
	e.mu.Unlock()
	return nil
}

// Compile parses source into a render function.
func (e *Engine) Compile(_ context.Context, source, inputPath string) (engine.RenderFunc, error) {
	e.mu.RLock()
	set := e.templateSet
	e.mu.RUnlock()
	if set == nil {
		return nil, fmt.Errorf("njk: engine not initialized")
	}

	tmpl, err := set.FromString(source)
	if err != nil {
		return nil, fmt.Errorf("njk: parse %s: %w", inputPath, err)
	}

	return func(ctx context.Context, call *engine.Call) (engine.Output, error) {
		pageCtx, err := pageContext(ctx, call.Data)
		if err != nil {
			return engine.Output{}, fmt.Errorf("njk: data for %s: %w", call.InputPath, err)
		}

		var buf bytes.Buffer
		if err := tmpl.ExecuteWriter(pageCtx, &buf); err != nil {
			return engine.Output{}, fmt.Errorf("njk: render %s: %w", call.InputPath, err)
		}
		return engine.Rendered(buf.String()), nil
	}, nil
}
