package html

import (
	"context"
	"testing"

	"github.com/goliatone/go-extmap/pkg/engine"
)

type upper struct{ calls int }

func (u *upper) RenderExtension(_ context.Context, _ string, _ string, source string, _ map[string]any) (engine.Output, error) {
	u.calls++
	return engine.Rendered("<" + source + ">"), nil
}

func TestDefinition_Passthrough(t *testing.T) {
	def := Definition()
	fn, err := def.Compile(context.Background(), "<p>hi</p>", "index.html")
	if err != nil {
		t.Fatalf("compile: %v", err)
	}
	out, err := fn(context.Background(), engine.NewCall("index.html", nil, nil))
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	if out.String() != "<p>hi</p>" {
		t.Fatalf("unexpected output %q", out.String())
	}
}

func TestDefinition_Preprocessed(t *testing.T) {
	pre := &upper{}
	def := Definition(WithPreprocessor(pre, "liquid"))
	fn, err := def.Compile(context.Background(), "hi", "index.html")
	if err != nil {
		t.Fatalf("compile: %v", err)
	}
	out, err := fn(context.Background(), engine.NewCall("index.html", nil, nil))
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	if out.String() != "<hi>" || pre.calls != 1 {
		t.Fatalf("unexpected output %q after %d calls", out.String(), pre.calls)
	}
}
