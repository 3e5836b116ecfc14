package extmap

import (
	"context"
	"errors"
	"os"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/gomarkdown/markdown"
	"github.com/google/go-cmp/cmp"

	"github.com/goliatone/go-extmap/pkg/config"
	"github.com/goliatone/go-extmap/pkg/dispatch"
	"github.com/goliatone/go-extmap/pkg/engine"
	"github.com/goliatone/go-extmap/pkg/testsupport"
)

var stubs = os.DirFS("testdata")

func newEnv(t *testing.T, opts ...Option) *Environment {
	t.Helper()
	env, err := New(context.Background(), opts...)
	if err != nil {
		t.Fatalf("new environment: %v", err)
	}
	return env
}

func noCache() engine.CompileOptions {
	return engine.CompileOptions{Cache: engine.Bool(false)}
}

func passthrough(_ context.Context, source, _ string) (engine.RenderFunc, error) {
	return engine.Static(source), nil
}

func renderStub(t *testing.T, env *Environment, path string) (engine.Output, map[string]any) {
	t.Helper()
	ctx := context.Background()

	tmpl, err := env.ReadTemplate(stubs, path)
	if err != nil {
		t.Fatalf("read %s: %v", path, err)
	}
	data, err := tmpl.GetData(ctx)
	if err != nil {
		t.Fatalf("get data %s: %v", path, err)
	}
	out, err := tmpl.Render(ctx, data)
	if err != nil {
		t.Fatalf("render %s: %v", path, err)
	}
	return out, data
}

func TestNew_RegistersBuiltins(t *testing.T) {
	env := newEnv(t)

	want := []string{"html", "liquid", "md", "njk"}
	if diff := cmp.Diff(want, env.Registry.List()); diff != "" {
		t.Fatalf("builtin extensions mismatch (-want +got):\n%s", diff)
	}
}

func TestNew_WithoutBuiltins(t *testing.T) {
	env := newEnv(t, WithoutBuiltins())

	if got := env.Registry.List(); len(got) != 0 {
		t.Fatalf("expected empty registry, got %v", got)
	}
	_, err := env.Dispatcher.Render(context.Background(), "default.liquid", "hi", nil)
	if !errors.Is(err, engine.ErrUnknownExtension) {
		t.Fatalf("expected unknown extension error, got %v", err)
	}
}

func TestCustomExtension_Plaintext(t *testing.T) {
	env := newEnv(t, WithDefinitions(engine.Definition{
		Extension:      "txt",
		CompileOptions: noCache(),
		Compile:        passthrough,
	}))

	out, _ := renderStub(t, env, "stubs/custom-extension.txt")
	if got, ok := out.Value(); !ok || got != "Sample content" {
		t.Fatalf("expected sample content, got %q (present=%v)", got, ok)
	}
}

func TestCustomExtension_DataWithoutInstanceFails(t *testing.T) {
	policies := map[string]engine.DataPolicy{
		"all":        engine.AllData(),
		"empty keys": engine.DataKeys(),
	}
	for name, policy := range policies {
		t.Run(name, func(t *testing.T) {
			env := newEnv(t, WithDefinitions(engine.Definition{
				Extension: "txt",
				GetData:   policy,
				Compile:   passthrough,
			}))

			tmpl, err := env.ReadTemplate(stubs, "stubs/custom-extension.txt")
			if err != nil {
				t.Fatalf("read: %v", err)
			}
			_, err = tmpl.GetData(context.Background())
			if !errors.Is(err, engine.ErrMisconfiguredExtension) {
				t.Fatalf("expected misconfigured extension error, got %v", err)
			}
		})
	}
}

func TestCustomExtension_DataFromInstance(t *testing.T) {
	env := newEnv(t, WithDefinitions(engine.Definition{
		Extension: "txt",
		GetData:   engine.AllData(),
		GetInstanceFromInputPath: func(context.Context, string) (engine.Instance, error) {
			return engine.InstanceMap{
				"data": map[string]any{"myData": "myDataValue"},
			}, nil
		},
		Compile: passthrough,
	}))

	out, data := renderStub(t, env, "stubs/custom-extension.txt")
	if data["myData"] != "myDataValue" {
		t.Fatalf("expected instance data, got %v", data)
	}
	if out.String() != "Sample content" {
		t.Fatalf("unexpected output %q", out.String())
	}
}

func TestCustomExtension_DataKeyOverride(t *testing.T) {
	env := newEnv(t, WithDefinitions(engine.Definition{
		Extension: "txt",
		GetData:   engine.AllData(),
		GetInstanceFromInputPath: func(context.Context, string) (engine.Instance, error) {
			return engine.InstanceMap{
				"eleventyDataKey": []string{"otherProp"},
				"otherProp":       map[string]any{"topLevelData": true},
				"data":            map[string]any{"myData": "myDataValue"},
			}, nil
		},
		Compile: passthrough,
	}))

	_, data := renderStub(t, env, "stubs/custom-extension.txt")
	if data["topLevelData"] != true {
		t.Fatalf("expected data from otherProp, got %v", data)
	}
	if _, ok := data["myData"]; ok {
		t.Fatalf("data property should be ignored when eleventyDataKey is set: %v", data)
	}
}

func TestCustomExtension_FrontMatter(t *testing.T) {
	env := newEnv(t, WithDefinitions(engine.Definition{
		Extension: "txt",
		Compile:   passthrough,
	}))

	out, data := renderStub(t, env, "stubs/default-frontmatter.txt")
	if data["frontmatter"] != 1 {
		t.Fatalf("expected front matter data, got %v", data)
	}
	if out.String() != "hi" {
		t.Fatalf("expected body only, got %q", out.String())
	}
}

func TestCustomExtension_NilRenderOmits(t *testing.T) {
	env := newEnv(t, WithDefinitions(engine.Definition{
		Extension: "txt",
		Compile: func(context.Context, string, string) (engine.RenderFunc, error) {
			return nil, nil
		},
	}))

	out, _ := renderStub(t, env, "stubs/custom-extension.txt")
	if out.Present() {
		t.Fatalf("expected omitted output, got %q", out.String())
	}
}

func TestOverride_MetadataOnlyLiquid(t *testing.T) {
	env := newEnv(t, WithDefinitions(engine.Definition{
		Extension:      "liquid",
		CompileOptions: noCache(),
	}))

	out, _ := renderStub(t, env, "stubs/default.liquid")
	if out.String() != "hi" {
		t.Fatalf("expected builtin liquid output, got %q", out.String())
	}
}

func TestOverride_LiquidDefaultRenderer(t *testing.T) {
	env := newEnv(t, WithDefinitions(engine.Definition{
		Extension: "liquid",
		Compile: func(context.Context, string, string) (engine.RenderFunc, error) {
			return func(ctx context.Context, call *engine.Call) (engine.Output, error) {
				return call.DefaultRenderer(ctx, nil)
			}, nil
		},
	}))

	out, _ := renderStub(t, env, "stubs/default.liquid")
	if out.String() != "hi" {
		t.Fatalf("expected default renderer output, got %q", out.String())
	}
}

func TestOverride_LiquidUsedFromMarkdown(t *testing.T) {
	var compiles atomic.Int32
	env := newEnv(t, WithDefinitions(engine.Definition{
		Extension: "liquid",
		Compile: func(context.Context, string, string) (engine.RenderFunc, error) {
			compiles.Add(1)
			return func(ctx context.Context, call *engine.Call) (engine.Output, error) {
				return call.DefaultRenderer(ctx, nil)
			}, nil
		},
	}))

	out, _ := renderStub(t, env, "stubs/default.md")
	if got := strings.TrimSpace(out.String()); got != "<p>hi</p>" {
		t.Fatalf("expected markdown output, got %q", got)
	}
	if compiles.Load() != 1 {
		t.Fatalf("expected the liquid override to compile once, got %d", compiles.Load())
	}
}

func TestOverride_MarkdownWithCustomRenderer(t *testing.T) {
	env := newEnv(t, WithDefinitions(engine.Definition{
		Extension: "md",
		Compile: func(_ context.Context, source, _ string) (engine.RenderFunc, error) {
			return func(context.Context, *engine.Call) (engine.Output, error) {
				return engine.Rendered(string(markdown.ToHTML([]byte("## "+source), nil, nil))), nil
			}, nil
		},
	}))

	out, _ := renderStub(t, env, "stubs/default-no-liquid.md")
	if got := strings.TrimSpace(out.String()); got != "<h2>hi</h2>" {
		t.Fatalf("expected custom markdown output, got %q", got)
	}
}

func TestOverride_MarkdownDefaultRendererWithData(t *testing.T) {
	env := newEnv(t, WithDefinitions(engine.Definition{
		Extension: "md",
		Compile: func(context.Context, string, string) (engine.RenderFunc, error) {
			return func(ctx context.Context, call *engine.Call) (engine.Output, error) {
				return call.DefaultRenderer(ctx, call.Data)
			}, nil
		},
	}))

	out, _ := renderStub(t, env, "stubs/default.md")
	if got := strings.TrimSpace(out.String()); got != "<p>hi</p>" {
		t.Fatalf("expected default markdown output, got %q", got)
	}
}

func TestRender_MarkdownGolden(t *testing.T) {
	env := newEnv(t, WithGlobalData(map[string]any{"author": "Ada"}))

	out, data := renderStub(t, env, "stubs/post.md")
	if data["title"] != "Hello" {
		t.Fatalf("expected front matter title, got %v", data)
	}
	testsupport.AssertGolden(t, "testdata/stubs/post.golden", out.String())
}

func TestNew_FromConfig(t *testing.T) {
	cfg, err := config.Parse([]byte(`
data:
  site: Example
html:
  templateEngine: "false"
extensions:
  - extension: page
    key: liquid
    getData: [title]
    instance:
      title: From instance
      hidden: true
`))
	if err != nil {
		t.Fatalf("parse config: %v", err)
	}

	var states []dispatch.State
	env := newEnv(t, WithConfig(cfg), WithObserver(func(ev dispatch.Event) {
		states = append(states, ev.State)
	}))

	if got := env.GlobalData()["site"]; got != "Example" {
		t.Fatalf("expected config data, got %v", got)
	}

	out, err := env.Render(context.Background(), "about.page", []byte("{{ title }} / {{ site }}{{ hidden }}"))
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	if out.String() != "From instance / Example" {
		t.Fatalf("unexpected output %q", out.String())
	}
	if len(states) == 0 || states[len(states)-1] != dispatch.StateRendered {
		t.Fatalf("expected rendered terminal state, got %v", states)
	}

	html, err := env.Render(context.Background(), "index.html", []byte("{{ untouched }}"))
	if err != nil {
		t.Fatalf("render html: %v", err)
	}
	if html.String() != "{{ untouched }}" {
		t.Fatalf("expected html preprocessing disabled, got %q", html.String())
	}
}
