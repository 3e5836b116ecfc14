package registry

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/goliatone/go-extmap/pkg/engine"
)

var (
	// ErrNotInitialized is returned by lookups made before Init completes.
	ErrNotInitialized = errors.New("registry: not initialized")
	// ErrInitialized is returned by Add once the registry is frozen.
	ErrInitialized = errors.New("registry: already initialized")
)

// Registry stores template-language definitions by extension. Registering an
// extension twice overrides it; the new definition keeps a link to the one it
// replaced so render functions can delegate back to it.
type Registry struct {
	// initMu serialises Init so hooks run at most once.
	initMu      sync.Mutex
	mu          sync.RWMutex
	active      map[string]*engine.Definition
	all         []*engine.Definition
	seq         uint64
	initialized bool
}

// New creates an empty registry.
func New() *Registry {
	return &Registry{
		active: make(map[string]*engine.Definition),
	}
}

// Add registers def, overriding any active definition for the same
// extension. Compile functions are not validated here; a definition without
// one falls back to its default renderer at compile time.
func (r *Registry) Add(def engine.Definition) error {
	ext := engine.NormalizeExtension(def.Extension)
	if ext == "" {
		return fmt.Errorf("registry: extension is required")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.initialized {
		return fmt.Errorf("registry: add %q: %w", ext, ErrInitialized)
	}

	r.seq++
	bound := def.Bind(r.seq, r.active[ext])
	r.active[ext] = bound
	r.all = append(r.all, bound)
	return nil
}

// MustAdd panics on registration failure. Useful for init-time wiring.
func (r *Registry) MustAdd(def engine.Definition) {
	if err := r.Add(def); err != nil {
		panic(err)
	}
}

// Init runs every registered definition's Init hook in registration order and
// freezes the registry. Calling Init again is a no-op; concurrent callers wait
// for the first one. A failing hook leaves the registry open so Init can be
// retried.
func (r *Registry) Init(ctx context.Context) error {
	r.initMu.Lock()
	defer r.initMu.Unlock()

	r.mu.RLock()
	if r.initialized {
		r.mu.RUnlock()
		return nil
	}
	defs := append([]*engine.Definition(nil), r.all...)
	r.mu.RUnlock()

	// Hooks run unlocked so they may inspect the registry.
	for _, def := range defs {
		if def.Init == nil {
			continue
		}
		if err := def.Init(ctx); err != nil {
			return fmt.Errorf("registry: init %q: %w", def.Extension, err)
		}
	}

	r.mu.Lock()
	r.initialized = true
	r.mu.Unlock()
	return nil
}

// Initialized reports whether Init has completed.
func (r *Registry) Initialized() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.initialized
}

// Resolve returns the active definition for an extension.
func (r *Registry) Resolve(extension string) (*engine.Definition, error) {
	ext := engine.NormalizeExtension(extension)

	r.mu.RLock()
	defer r.mu.RUnlock()

	if !r.initialized {
		return nil, ErrNotInitialized
	}
	def, ok := r.active[ext]
	if !ok {
		return nil, &engine.UnknownExtensionError{Extension: ext}
	}
	return def, nil
}

// ResolvePath returns the definition for a file path. Multi-part extensions
// such as "11ty.js" are matched before their shorter suffixes.
func (r *Registry) ResolvePath(path string) (*engine.Definition, error) {
	base := strings.ToLower(filepath.Base(path))

	r.mu.RLock()
	defer r.mu.RUnlock()

	if !r.initialized {
		return nil, ErrNotInitialized
	}
	for idx := strings.Index(base, "."); idx >= 0; {
		candidate := base[idx+1:]
		if def, ok := r.active[candidate]; ok {
			return def, nil
		}
		next := strings.Index(candidate, ".")
		if next < 0 {
			break
		}
		idx += next + 1
	}
	return nil, &engine.UnknownExtensionError{
		Extension: engine.NormalizeExtension(filepath.Ext(base)),
		InputPath: path,
	}
}

// Default returns the definition def delegates to: the definition it
// superseded, or else the original definition registered under def.Key.
// Nil means there is nothing to delegate to.
func (r *Registry) Default(def *engine.Definition) *engine.Definition {
	if def == nil {
		return nil
	}
	if prev := def.Previous(); prev != nil {
		return prev
	}
	if def.Key == def.Extension {
		return nil
	}

	r.mu.RLock()
	keyed, ok := r.active[def.Key]
	r.mu.RUnlock()
	if !ok {
		return nil
	}
	root := keyed.Root()
	if root == def {
		return nil
	}
	return root
}

// Chain returns the active definition for an extension followed by every
// definition it overrode, most recent first.
func (r *Registry) Chain(extension string) []*engine.Definition {
	ext := engine.NormalizeExtension(extension)

	r.mu.RLock()
	def := r.active[ext]
	r.mu.RUnlock()

	var chain []*engine.Definition
	for current := def; current != nil; current = current.Previous() {
		chain = append(chain, current)
	}
	return chain
}

// List returns the sorted registered extensions.
func (r *Registry) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.active))
	for name := range r.active {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Has reports whether an extension is registered.
func (r *Registry) Has(extension string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	_, ok := r.active[engine.NormalizeExtension(extension)]
	return ok
}
