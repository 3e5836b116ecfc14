// Package testsupport holds helpers shared by package tests: stub fixtures,
// golden files, and output normalisation.
package testsupport

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
)

// UpdateEnv is the environment variable that makes golden helpers rewrite
// their files instead of comparing.
const UpdateEnv = "UPDATE_GOLDENS"

// MustReadFile reads a fixture and returns its raw bytes.
func MustReadFile(t *testing.T, path string) []byte {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read fixture: %v", err)
	}
	return data
}

// MustReadString reads a fixture and returns its string content.
func MustReadString(t *testing.T, path string) string {
	t.Helper()
	return string(MustReadFile(t, path))
}

// WriteMaybeGolden updates a golden file when UPDATE_GOLDENS is set. Returns
// true if the golden was written (test should exit early).
func WriteMaybeGolden(t *testing.T, path string, data []byte) bool {
	t.Helper()
	if os.Getenv(UpdateEnv) == "" {
		return false
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir golden dir: %v", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("write golden: %v", err)
	}
	return true
}

// AssertGolden compares rendered output against the golden file at path,
// ignoring whitespace layout. Set UPDATE_GOLDENS to rewrite the file.
func AssertGolden(t *testing.T, path, got string) {
	t.Helper()
	if WriteMaybeGolden(t, path, []byte(got)) {
		return
	}
	want := MustReadString(t, path)
	if diff := cmp.Diff(CollapseWhitespace(want), CollapseWhitespace(got)); diff != "" {
		t.Fatalf("output mismatch for %s (-want +got):\n%s", path, diff)
	}
}

// CollapseWhitespace joins the whitespace-separated fields of s with single
// spaces, so markup comparisons survive renderer newline differences.
func CollapseWhitespace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
