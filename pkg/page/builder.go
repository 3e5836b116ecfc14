package page

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/natefinch/atomic"
	"golang.org/x/sync/errgroup"

	"github.com/goliatone/go-extmap/pkg/dispatch"
	"github.com/goliatone/go-extmap/pkg/engine"
)

// BuilderOption customises a Builder.
type BuilderOption func(*Builder)

// WithLogger sets the builder logger.
func WithLogger(logger *slog.Logger) BuilderOption {
	return func(b *Builder) {
		b.logger = logger
	}
}

// WithConcurrency bounds how many files render at once.
func WithConcurrency(n int) BuilderOption {
	return func(b *Builder) {
		b.concurrency = n
	}
}

// WithBuildGlobalData seeds global data for every page.
func WithBuildGlobalData(data map[string]any) BuilderOption {
	return func(b *Builder) {
		b.global = data
	}
}

// Report summarises a build. Paths are relative to the input directory.
type Report struct {
	Written []string
	Omitted []string
	Skipped []string
}

// Builder renders every file of an input tree whose extension is registered.
type Builder struct {
	dispatcher  *dispatch.Dispatcher
	logger      *slog.Logger
	concurrency int
	global      map[string]any
}

// NewBuilder constructs a Builder over d.
func NewBuilder(d *dispatch.Dispatcher, options ...BuilderOption) *Builder {
	b := &Builder{
		dispatcher:  d,
		concurrency: 8,
	}
	for _, opt := range options {
		if opt != nil {
			opt(b)
		}
	}
	if b.logger == nil {
		b.logger = slog.Default()
	}
	if b.concurrency < 1 {
		b.concurrency = 1
	}
	return b
}

// Build renders inputDir into outputDir. Files with unregistered extensions
// are skipped; the first render failure stops the build.
func (b *Builder) Build(ctx context.Context, inputDir, outputDir string) (Report, error) {
	if b.dispatcher == nil {
		return Report{}, errors.New("page: dispatcher is required")
	}

	fsys := os.DirFS(inputDir)
	outputRel := ""
	if rel, err := filepath.Rel(inputDir, outputDir); err == nil && rel != "." && !strings.HasPrefix(rel, "..") {
		outputRel = filepath.ToSlash(rel)
	}

	var files []string
	err := fs.WalkDir(fsys, ".", func(p string, entry fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if entry.IsDir() {
			// Dot directories and the output tree are never inputs.
			if p != "." && (p == outputRel || strings.HasPrefix(entry.Name(), ".")) {
				return fs.SkipDir
			}
			return nil
		}
		files = append(files, p)
		return nil
	})
	if err != nil {
		return Report{}, fmt.Errorf("page: walk %s: %w", inputDir, err)
	}

	var (
		mu     sync.Mutex
		report Report
	)
	record := func(list *[]string, p string) {
		mu.Lock()
		*list = append(*list, p)
		mu.Unlock()
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(b.concurrency)

	var resolveErr error
	for _, p := range files {
		if gctx.Err() != nil {
			break
		}
		def, err := b.dispatcher.Definition(p)
		if err != nil {
			if errors.Is(err, engine.ErrUnknownExtension) {
				b.logger.Debug("skipping file without template language", "path", p)
				record(&report.Skipped, p)
				continue
			}
			resolveErr = err
			break
		}

		g.Go(func() error {
			written, err := b.buildFile(gctx, fsys, p, def, outputDir)
			if err != nil {
				return err
			}
			if written == "" {
				b.logger.Info("render omitted", "path", p, "extension", def.Extension)
				record(&report.Omitted, p)
				return nil
			}
			b.logger.Info("wrote page", "path", p, "output", written)
			record(&report.Written, p)
			return nil
		})
	}

	// Pages already scheduled must finish before Build returns.
	if err := g.Wait(); err != nil {
		return Report{}, err
	}
	if resolveErr != nil {
		return Report{}, resolveErr
	}
	if err := ctx.Err(); err != nil {
		return Report{}, err
	}

	sort.Strings(report.Written)
	sort.Strings(report.Omitted)
	sort.Strings(report.Skipped)
	return report, nil
}

func (b *Builder) buildFile(ctx context.Context, fsys fs.FS, p string, def *engine.Definition, outputDir string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	tmpl, err := Read(b.dispatcher, fsys, p, WithGlobalData(b.global))
	if err != nil {
		return "", err
	}
	data, err := tmpl.GetData(ctx)
	if err != nil {
		return "", fmt.Errorf("page: data for %s: %w", p, err)
	}
	out, err := tmpl.Render(ctx, data)
	if err != nil {
		return "", fmt.Errorf("page: render %s: %w", p, err)
	}
	content, ok := out.Value()
	if !ok {
		return "", nil
	}

	if err := ctx.Err(); err != nil {
		return "", err
	}

	target := filepath.Join(outputDir, filepath.FromSlash(OutputPath(p, def)))
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return "", fmt.Errorf("page: mkdir for %s: %w", target, err)
	}
	if err := atomic.WriteFile(target, bytes.NewReader([]byte(content))); err != nil {
		return "", fmt.Errorf("page: write %s: %w", target, err)
	}
	return target, nil
}

// OutputPath swaps the matched extension of p for the definition's output
// extension.
func OutputPath(p string, def *engine.Definition) string {
	ext := def.OutputFileExtension
	if ext == "" {
		ext = "html"
	}
	suffix := "." + def.Extension
	if strings.HasSuffix(strings.ToLower(p), suffix) {
		return p[:len(p)-len(suffix)] + "." + ext
	}
	return strings.TrimSuffix(p, path.Ext(p)) + "." + ext
}
