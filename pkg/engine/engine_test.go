package engine

import (
	"context"
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestBind_Normalizes(t *testing.T) {
	bound := Definition{Extension: " .Liquid ", GetData: DataKeys("a")}.Bind(7, nil)

	if bound.Extension != "liquid" || bound.Key != "liquid" {
		t.Fatalf("expected normalized extension and key, got %q/%q", bound.Extension, bound.Key)
	}
	if bound.ID() != 7 {
		t.Fatalf("expected id 7, got %d", bound.ID())
	}
	if bound.Previous() != nil {
		t.Fatalf("expected no previous definition")
	}
}

func TestCompileOptions(t *testing.T) {
	var opts CompileOptions
	if !opts.CacheEnabled() {
		t.Fatalf("expected cache enabled by default")
	}
	if got := opts.Key("src", "a.txt"); got != "a.txt" {
		t.Fatalf("expected input path key, got %q", got)
	}

	opts = CompileOptions{
		Cache:    Bool(false),
		CacheKey: func(source, inputPath string) string { return inputPath + "#" + source },
	}
	if opts.CacheEnabled() {
		t.Fatalf("expected cache disabled")
	}
	if got := opts.Key("src", "a.txt"); got != "a.txt#src" {
		t.Fatalf("expected custom key, got %q", got)
	}
}

func TestDataPolicy(t *testing.T) {
	if NoData().RequiresInstance() {
		t.Fatalf("NoData should not require an instance")
	}
	if !AllData().RequiresInstance() {
		t.Fatalf("AllData should require an instance")
	}
	empty := DataKeys()
	if !empty.RequiresInstance() || empty.Mode() != DataModeKeys {
		t.Fatalf("empty key list should still be keys mode")
	}

	keys := []string{"a", "b"}
	policy := DataKeys(keys...)
	keys[0] = "mutated"
	if diff := cmp.Diff([]string{"a", "b"}, policy.Keys()); diff != "" {
		t.Fatalf("keys mismatch (-want +got):\n%s", diff)
	}
}

func TestInstanceMap_DataKeys(t *testing.T) {
	cases := []struct {
		name     string
		instance InstanceMap
		expect   []string
	}{
		{name: "absent", instance: InstanceMap{}, expect: nil},
		{name: "strings", instance: InstanceMap{DataKeyProperty: []string{"a", "b"}}, expect: []string{"a", "b"}},
		{name: "any slice", instance: InstanceMap{DataKeyProperty: []any{"a", 3, "c"}}, expect: []string{"a", "c"}},
		{name: "wrong type", instance: InstanceMap{DataKeyProperty: "a"}, expect: nil},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if diff := cmp.Diff(tc.expect, tc.instance.DataKeys()); diff != "" {
				t.Fatalf("data keys mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestOutput(t *testing.T) {
	if Omitted().Present() {
		t.Fatalf("omitted output should not be present")
	}
	var zero Output
	if zero.Present() {
		t.Fatalf("zero output should be an omission")
	}
	content, ok := Rendered("").Value()
	if !ok || content != "" {
		t.Fatalf("empty rendered output should still be present")
	}
}

func TestCall_DefaultRendererReusesData(t *testing.T) {
	outer := map[string]any{"title": "outer"}
	var seen map[string]any
	call := NewCall("a.txt", outer, func(_ context.Context, data map[string]any) (Output, error) {
		seen = data
		return Rendered("ok"), nil
	})

	if _, err := call.DefaultRenderer(context.Background(), nil); err != nil {
		t.Fatalf("default renderer: %v", err)
	}
	if diff := cmp.Diff(outer, seen); diff != "" {
		t.Fatalf("expected outer data (-want +got):\n%s", diff)
	}

	override := map[string]any{"title": "inner"}
	if _, err := call.DefaultRenderer(context.Background(), override); err != nil {
		t.Fatalf("default renderer: %v", err)
	}
	if diff := cmp.Diff(override, seen); diff != "" {
		t.Fatalf("expected supplied data (-want +got):\n%s", diff)
	}
}

func TestCall_WithoutDefault(t *testing.T) {
	call := NewCall("a.txt", nil, nil)
	_, err := call.DefaultRenderer(context.Background(), nil)
	if !errors.Is(err, ErrUnknownExtension) {
		t.Fatalf("expected unknown extension error, got %v", err)
	}
}

func TestCompileError_Unwraps(t *testing.T) {
	cause := errors.New("syntax")
	err := error(&CompileError{Extension: "txt", InputPath: "a.txt", Err: cause})
	if !errors.Is(err, cause) {
		t.Fatalf("expected compile error to unwrap to cause")
	}
}
