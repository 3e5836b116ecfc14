package page

import (
	"context"
	"fmt"
	"io/fs"

	"github.com/goliatone/go-extmap/pkg/engine"
)

// Renderer is the consumer contract of the render pipeline.
// *dispatch.Dispatcher satisfies it.
type Renderer interface {
	GetData(ctx context.Context, inputPath string) (map[string]any, error)
	Render(ctx context.Context, inputPath, source string, data map[string]any) (engine.Output, error)
}

// Option customises a Template.
type Option func(*Template)

// WithGlobalData seeds the lowest-priority layer of the page data.
func WithGlobalData(data map[string]any) Option {
	return func(t *Template) {
		t.global = data
	}
}

// Template is a single input file split into front matter and body.
type Template struct {
	InputPath   string
	FrontMatter map[string]any
	Body        string

	renderer Renderer
	global   map[string]any
}

// New parses raw as the content of inputPath.
func New(renderer Renderer, inputPath string, raw []byte, options ...Option) (*Template, error) {
	if renderer == nil {
		return nil, fmt.Errorf("page: renderer is required")
	}
	matter, body, err := ParseFrontMatter(raw)
	if err != nil {
		return nil, fmt.Errorf("page: %s: %w", inputPath, err)
	}

	t := &Template{
		InputPath:   inputPath,
		FrontMatter: matter,
		Body:        body,
		renderer:    renderer,
	}
	for _, opt := range options {
		if opt != nil {
			opt(t)
		}
	}
	return t, nil
}

// Read loads path from fsys and parses it.
func Read(renderer Renderer, fsys fs.FS, path string, options ...Option) (*Template, error) {
	raw, err := fs.ReadFile(fsys, path)
	if err != nil {
		return nil, fmt.Errorf("page: read %s: %w", path, err)
	}
	return New(renderer, path, raw, options...)
}

// GetData assembles the page data: global data, then the extension's data
// contribution, then front matter. Later layers win; nested maps are merged.
func (t *Template) GetData(ctx context.Context) (map[string]any, error) {
	contribution, err := t.renderer.GetData(ctx, t.InputPath)
	if err != nil {
		return nil, err
	}

	data := make(map[string]any)
	mergeDeep(data, t.global)
	mergeDeep(data, contribution)
	mergeDeep(data, t.FrontMatter)
	return data, nil
}

// Render renders the body with data. An omitted output means the file should
// not be written.
func (t *Template) Render(ctx context.Context, data map[string]any) (engine.Output, error) {
	return t.renderer.Render(ctx, t.InputPath, t.Body, data)
}

func mergeDeep(dst, src map[string]any) {
	for key, value := range src {
		srcMap, srcIsMap := value.(map[string]any)
		dstMap, dstIsMap := dst[key].(map[string]any)
		if srcIsMap && dstIsMap {
			merged := make(map[string]any, len(dstMap)+len(srcMap))
			mergeDeep(merged, dstMap)
			mergeDeep(merged, srcMap)
			dst[key] = merged
			continue
		}
		if srcIsMap {
			copied := make(map[string]any, len(srcMap))
			mergeDeep(copied, srcMap)
			dst[key] = copied
			continue
		}
		dst[key] = value
	}
}
