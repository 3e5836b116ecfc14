package engine

import "context"

// Output is the optional result of a render step. The zero value is an
// omission: the file produces no output.
type Output struct {
	content string
	present bool
}

// Rendered wraps rendered content.
func Rendered(content string) Output {
	return Output{content: content, present: true}
}

// Omitted reports that a file opted out of rendering.
func Omitted() Output {
	return Output{}
}

// Present reports whether the output carries content.
func (o Output) Present() bool {
	return o.present
}

// String returns the rendered content, or "" for omitted output.
func (o Output) String() string {
	return o.content
}

// Value returns the content and whether it is present.
func (o Output) Value() (string, bool) {
	return o.content, o.present
}

// DefaultRenderFunc renders through the definition an override superseded.
// A nil data map reuses the data of the enclosing call.
type DefaultRenderFunc func(ctx context.Context, data map[string]any) (Output, error)

// Call is handed to every RenderFunc invocation.
type Call struct {
	InputPath string
	Data      map[string]any

	defaults DefaultRenderFunc
}

// NewCall builds the execution context for a render function.
func NewCall(inputPath string, data map[string]any, defaults DefaultRenderFunc) *Call {
	return &Call{
		InputPath: inputPath,
		Data:      data,
		defaults:  defaults,
	}
}

// DefaultRenderer compiles and renders the current file with the definition
// that was active before the current override.
func (c *Call) DefaultRenderer(ctx context.Context, data map[string]any) (Output, error) {
	if c == nil || c.defaults == nil {
		return Output{}, &UnknownExtensionError{Reason: "no default renderer bound"}
	}
	if data == nil {
		data = c.Data
	}
	return c.defaults(ctx, data)
}

// Static returns a RenderFunc that always produces content, ignoring data.
func Static(content string) RenderFunc {
	return func(context.Context, *Call) (Output, error) {
		return Rendered(content), nil
	}
}
