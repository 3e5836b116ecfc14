package engine

import (
	"context"
	"strings"
)

// CompileFunc turns raw source text into a render function. Returning a nil
// RenderFunc (with a nil error) means the file has nothing to render.
type CompileFunc func(ctx context.Context, source, inputPath string) (RenderFunc, error)

// RenderFunc renders a compiled template. The Call carries the page data and
// the default renderer handle.
type RenderFunc func(ctx context.Context, call *Call) (Output, error)

// InstanceFunc returns the engine instance backing an input path.
type InstanceFunc func(ctx context.Context, inputPath string) (Instance, error)

// CompileOptions configure how the compile cache treats an extension.
type CompileOptions struct {
	// Cache disables memoisation of compiled render functions when set to
	// false. A nil value keeps caching enabled.
	Cache *bool
	// CacheKey overrides the key compiled functions are stored under. The
	// input path is used when nil.
	CacheKey func(source, inputPath string) string
}

// CacheEnabled reports whether compiled functions may be reused.
func (o CompileOptions) CacheEnabled() bool {
	return o.Cache == nil || *o.Cache
}

// Key returns the cache key for the supplied source and input path.
func (o CompileOptions) Key(source, inputPath string) string {
	if o.CacheKey != nil {
		return o.CacheKey(source, inputPath)
	}
	return inputPath
}

// Bool returns a pointer to v, handy for CompileOptions.Cache literals.
func Bool(v bool) *bool {
	return &v
}

// Definition binds a file extension to its compile and data behaviour.
// Definitions are copied when registered; the registry links each one to the
// definition it superseded.
type Definition struct {
	Extension      string
	Key            string
	CompileOptions CompileOptions
	GetData        DataPolicy

	GetInstanceFromInputPath InstanceFunc
	Compile                  CompileFunc

	// Init runs once while the owning registry initialises.
	Init func(ctx context.Context) error

	// OutputFileExtension is the extension written by builders. Defaults to
	// "html".
	OutputFileExtension string

	id       uint64
	previous *Definition
}

// Bind returns a copy of d normalised for registration, carrying the supplied
// identity and superseded definition. The registry is the only caller; the
// link cannot be changed afterwards.
func (d Definition) Bind(id uint64, previous *Definition) *Definition {
	d.Extension = NormalizeExtension(d.Extension)
	d.Key = NormalizeExtension(d.Key)
	if d.Key == "" {
		d.Key = d.Extension
	}
	if d.OutputFileExtension == "" {
		d.OutputFileExtension = "html"
	}
	d.GetData = d.GetData.clone()
	d.id = id
	d.previous = previous
	return &d
}

// ID identifies a bound definition. Unbound definitions report zero.
func (d *Definition) ID() uint64 {
	if d == nil {
		return 0
	}
	return d.id
}

// Previous returns the definition this one overrode, or nil.
func (d *Definition) Previous() *Definition {
	if d == nil {
		return nil
	}
	return d.previous
}

// Root walks the override chain back to the first definition registered for
// the extension.
func (d *Definition) Root() *Definition {
	current := d
	for current != nil && current.previous != nil {
		current = current.previous
	}
	return current
}

// Depth reports how many overrides sit beneath d.
func (d *Definition) Depth() int {
	depth := 0
	for current := d.Previous(); current != nil; current = current.Previous() {
		depth++
	}
	return depth
}

// NormalizeExtension lower-cases an extension and strips surrounding
// whitespace and a leading dot.
func NormalizeExtension(ext string) string {
	trimmed := strings.TrimSpace(ext)
	trimmed = strings.TrimPrefix(trimmed, ".")
	return strings.ToLower(trimmed)
}
