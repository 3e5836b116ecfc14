package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/goliatone/go-extmap"
	"github.com/goliatone/go-extmap/pkg/config"
	"github.com/goliatone/go-extmap/pkg/dispatch"
)

type rootFlags struct {
	configPath string
	verbose    bool
}

func newRootCommand() *cobra.Command {
	flags := &rootFlags{}

	cmd := &cobra.Command{
		Use:   "extmap",
		Short: "Render files through a registry of template languages",
		Long: `extmap maps file extensions to template languages and renders files
through them. Built-in languages are liquid, njk, md and html; a site
configuration can add custom extensions or override the built-ins.

Use 'extmap <command> --help' for details about a specific command.`,
		Version:      version,
		SilenceUsage: true,
	}

	cmd.PersistentFlags().StringVarP(&flags.configPath, "config", "c", "", "Path to a YAML site configuration")
	cmd.PersistentFlags().BoolVarP(&flags.verbose, "verbose", "v", false, "Log render state transitions")

	cmd.AddCommand(
		newListCommand(flags),
		newRenderCommand(flags),
		newDataCommand(flags),
		newBuildCommand(flags),
	)
	return cmd
}

func (f *rootFlags) logger(cmd *cobra.Command) *slog.Logger {
	level := slog.LevelInfo
	if f.verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level}))
}

func (f *rootFlags) loadConfig() (*config.Config, error) {
	if f.configPath == "" {
		return config.Default(), nil
	}
	return config.Load(f.configPath)
}

// environment builds the render environment for a command.
func (f *rootFlags) environment(ctx context.Context, cmd *cobra.Command, cfg *config.Config) (*extmap.Environment, error) {
	logger := f.logger(cmd)
	opts := []extmap.Option{extmap.WithConfig(cfg)}
	if f.verbose {
		opts = append(opts, extmap.WithObserver(func(ev dispatch.Event) {
			attrs := []any{"path", ev.InputPath, "extension", ev.Extension, "depth", ev.Depth, "state", ev.State.String()}
			if ev.Err != nil {
				attrs = append(attrs, "error", ev.Err)
			}
			logger.Debug("render", attrs...)
		}))
	}
	env, err := extmap.New(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("extmap: %w", err)
	}
	return env, nil
}

func readInput(path string) ([]byte, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return raw, nil
}
