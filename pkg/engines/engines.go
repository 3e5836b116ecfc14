// Package engines holds what the built-in template languages share: the
// preprocessing seam that lets one language run its source through another
// before its own pass.
package engines

import (
	"context"

	"github.com/goliatone/go-extmap/pkg/engine"
)

// Preprocessor renders source through the active definition of another
// extension. *dispatch.Dispatcher satisfies it.
type Preprocessor interface {
	RenderExtension(ctx context.Context, extension, inputPath, source string, data map[string]any) (engine.Output, error)
}

// Preprocess runs source through extension when p is set, returning source
// untouched otherwise. The boolean is false when the preprocessor omitted the
// output.
func Preprocess(ctx context.Context, p Preprocessor, extension string, call *engine.Call, source string) (string, bool, error) {
	if p == nil || extension == "" {
		return source, true, nil
	}
	out, err := p.RenderExtension(ctx, extension, call.InputPath, source, call.Data)
	if err != nil {
		return "", false, err
	}
	content, ok := out.Value()
	return content, ok, nil
}
