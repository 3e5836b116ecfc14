// Package cache memoises compiled render functions per definition and input
// path.
package cache

import (
	"context"
	"errors"
	"strconv"
	"sync"

	"golang.org/x/sync/singleflight"

	"github.com/goliatone/go-extmap/pkg/engine"
)

// Cache stores compiled render functions. Concurrent requests for the same
// key share a single in-flight compile.
type Cache struct {
	mu      sync.RWMutex
	entries map[string]engine.RenderFunc
	group   singleflight.Group
}

// New creates an empty cache.
func New() *Cache {
	return &Cache{
		entries: make(map[string]engine.RenderFunc),
	}
}

// Get returns the render function for inputPath compiled by compile on behalf
// of def. When def disables caching every call compiles again. A nil render
// function is a valid result and is returned as-is.
func (c *Cache) Get(ctx context.Context, def *engine.Definition, compile engine.CompileFunc, source, inputPath string) (engine.RenderFunc, error) {
	if def == nil {
		return nil, &engine.UnknownExtensionError{InputPath: inputPath, Reason: "definition is nil"}
	}
	if compile == nil {
		return nil, &engine.UnknownExtensionError{Extension: def.Extension, InputPath: inputPath, Reason: "no compile function"}
	}

	enabled := def.CompileOptions.CacheEnabled()
	key := cacheKey(def, source, inputPath)

	if enabled {
		if fn, ok := c.lookup(key); ok {
			return fn, nil
		}
	}

	value, err, _ := c.group.Do(key, func() (any, error) {
		if enabled {
			if fn, ok := c.lookup(key); ok {
				return fn, nil
			}
		}

		fn, err := compile(ctx, source, inputPath)
		if err != nil {
			return nil, wrapCompileError(def, inputPath, err)
		}

		if enabled {
			c.mu.Lock()
			c.entries[key] = fn
			c.mu.Unlock()
		}
		return fn, nil
	})
	if err != nil {
		return nil, err
	}

	fn, _ := value.(engine.RenderFunc)
	return fn, nil
}

// Len reports the number of memoised entries.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// Reset drops every memoised entry.
func (c *Cache) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string]engine.RenderFunc)
}

func (c *Cache) lookup(key string) (engine.RenderFunc, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	fn, ok := c.entries[key]
	return fn, ok
}

func cacheKey(def *engine.Definition, source, inputPath string) string {
	return strconv.FormatUint(def.ID(), 10) + "\x00" + def.CompileOptions.Key(source, inputPath)
}

func wrapCompileError(def *engine.Definition, inputPath string, err error) error {
	var compileErr *engine.CompileError
	if errors.As(err, &compileErr) {
		return err
	}
	return &engine.CompileError{
		Extension: def.Extension,
		InputPath: inputPath,
		Err:       err,
	}
}
