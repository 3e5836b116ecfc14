// Package dispatch resolves, compiles, and renders files through the
// extension registry, binding the default renderer handle into every call.
package dispatch

import (
	"context"
	"errors"
	"slices"

	"github.com/goliatone/go-extmap/pkg/cache"
	"github.com/goliatone/go-extmap/pkg/data"
	"github.com/goliatone/go-extmap/pkg/engine"
	"github.com/goliatone/go-extmap/pkg/registry"
)

// Option customises the dispatcher.
type Option func(*Dispatcher)

// WithCache injects a compile cache, letting several dispatchers share one.
func WithCache(c *cache.Cache) Option {
	return func(d *Dispatcher) {
		d.cache = c
	}
}

// WithResolver injects a data resolver.
func WithResolver(r *data.Resolver) Option {
	return func(d *Dispatcher) {
		d.resolver = r
	}
}

// WithObserver registers a hook receiving render state transitions.
func WithObserver(observer Observer) Option {
	return func(d *Dispatcher) {
		d.observer = observer
	}
}

// Dispatcher renders files using the definitions held by a registry.
type Dispatcher struct {
	registry *registry.Registry
	cache    *cache.Cache
	resolver *data.Resolver
	observer Observer
}

// New constructs a Dispatcher over reg. Missing collaborators are created
// with their defaults.
func New(reg *registry.Registry, options ...Option) *Dispatcher {
	d := &Dispatcher{registry: reg}
	for _, opt := range options {
		if opt == nil {
			continue
		}
		opt(d)
	}
	if d.registry == nil {
		d.registry = registry.New()
	}
	if d.cache == nil {
		d.cache = cache.New()
	}
	if d.resolver == nil {
		d.resolver = data.NewResolver()
	}
	return d
}

// Registry returns the registry the dispatcher reads from.
func (d *Dispatcher) Registry() *registry.Registry {
	return d.registry
}

// Cache returns the compile cache.
func (d *Dispatcher) Cache() *cache.Cache {
	return d.cache
}

// Definition returns the active definition for inputPath.
func (d *Dispatcher) Definition(inputPath string) (*engine.Definition, error) {
	return d.registry.ResolvePath(inputPath)
}

// GetData returns the data contribution of the extension handling inputPath.
func (d *Dispatcher) GetData(ctx context.Context, inputPath string) (map[string]any, error) {
	def, err := d.registry.ResolvePath(inputPath)
	if err != nil {
		return nil, err
	}
	return d.resolver.GetData(ctx, def, inputPath)
}

// Render compiles source with the definition matching inputPath and renders
// it with data. An omitted Output is a valid result, not an error.
func (d *Dispatcher) Render(ctx context.Context, inputPath, source string, data map[string]any) (engine.Output, error) {
	d.emit(Event{InputPath: inputPath, State: StateUnresolved})

	def, err := d.registry.ResolvePath(inputPath)
	if err != nil {
		return d.fail(Event{InputPath: inputPath}, err)
	}
	return d.RenderDefinition(ctx, def, inputPath, source, data)
}

// RenderExtension renders source with the active definition for extension,
// regardless of the extension of inputPath. Preprocessing engines use it to
// run their source through another template language.
func (d *Dispatcher) RenderExtension(ctx context.Context, extension, inputPath, source string, data map[string]any) (engine.Output, error) {
	d.emit(Event{InputPath: inputPath, Extension: extension, State: StateUnresolved})

	def, err := d.registry.Resolve(extension)
	if err != nil {
		var unknown *engine.UnknownExtensionError
		if errors.As(err, &unknown) && unknown.InputPath == "" {
			unknown.InputPath = inputPath
		}
		return d.fail(Event{InputPath: inputPath, Extension: extension}, err)
	}
	return d.RenderDefinition(ctx, def, inputPath, source, data)
}

// RenderDefinition compiles and renders source with def.
func (d *Dispatcher) RenderDefinition(ctx context.Context, def *engine.Definition, inputPath, source string, data map[string]any) (engine.Output, error) {
	return d.render(ctx, def, inputPath, source, data, 0, nil)
}

// render carries the IDs of the definitions already rendering this request
// so default renderers cannot delegate in a cycle.
func (d *Dispatcher) render(ctx context.Context, def *engine.Definition, inputPath, source string, data map[string]any, depth int, seen []uint64) (engine.Output, error) {
	ev := Event{InputPath: inputPath, Depth: depth}
	if def == nil {
		return d.fail(ev, &engine.UnknownExtensionError{InputPath: inputPath, Reason: "definition is nil"})
	}
	ev.Extension = def.Extension
	d.emit(withState(ev, StateDefinitionResolved))

	compile, owner := d.effectiveCompile(def)
	if compile == nil {
		return d.fail(ev, &engine.UnknownExtensionError{
			Extension: def.Extension,
			InputPath: inputPath,
			Reason:    "no compile function and no default renderer",
		})
	}

	seen = append(seen[:len(seen):len(seen)], def.ID())
	if owner != def {
		seen = append(seen, owner.ID())
	}

	d.emit(withState(ev, StateCompiling))
	fn, err := d.cache.Get(ctx, def, compile, source, inputPath)
	if err != nil {
		return d.fail(ev, err)
	}
	if fn == nil {
		d.emit(withState(ev, StateOmitted))
		return engine.Omitted(), nil
	}
	d.emit(withState(ev, StateCompiled))

	defaults := func(ctx context.Context, data map[string]any) (engine.Output, error) {
		prev := d.registry.Default(owner)
		if prev == nil {
			return engine.Output{}, &engine.UnknownExtensionError{
				Extension: owner.Extension,
				InputPath: inputPath,
				Reason:    "no default renderer to delegate to",
			}
		}
		if slices.Contains(seen, prev.ID()) {
			return engine.Output{}, &engine.UnknownExtensionError{
				Extension: owner.Extension,
				InputPath: inputPath,
				Reason:    "default renderer cycle",
			}
		}
		return d.render(ctx, prev, inputPath, source, data, depth+1, seen)
	}

	d.emit(withState(ev, StateRendering))
	out, err := fn(ctx, engine.NewCall(inputPath, data, defaults))
	if err != nil {
		return d.fail(ev, err)
	}
	if !out.Present() {
		d.emit(withState(ev, StateOmitted))
		return engine.Omitted(), nil
	}
	d.emit(withState(ev, StateRendered))
	return out, nil
}

// effectiveCompile walks the default chain until a compile function is found
// and returns it with the definition that owns it.
func (d *Dispatcher) effectiveCompile(def *engine.Definition) (engine.CompileFunc, *engine.Definition) {
	seen := make(map[uint64]struct{})
	for current := def; current != nil; current = d.registry.Default(current) {
		if _, loop := seen[current.ID()]; loop {
			return nil, nil
		}
		seen[current.ID()] = struct{}{}
		if current.Compile != nil {
			return current.Compile, current
		}
	}
	return nil, nil
}

func (d *Dispatcher) emit(ev Event) {
	if d.observer != nil {
		d.observer(ev)
	}
}

func (d *Dispatcher) fail(ev Event, err error) (engine.Output, error) {
	ev.State = StateFailed
	ev.Err = err
	d.emit(ev)
	return engine.Output{}, err
}

func withState(ev Event, state State) Event {
	ev.State = state
	return ev
}
