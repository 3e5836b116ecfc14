package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/natefinch/atomic"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/goliatone/go-extmap/pkg/page"
)

func newListCommand(flags *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List registered extensions and the language each resolves to",
		Long: `List every registered extension with its key, the number of
definitions in its override chain, and the extension builds write.

Examples:
  extmap list
  extmap list -c site.yaml`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := flags.loadConfig()
			if err != nil {
				return err
			}
			env, err := flags.environment(cmd.Context(), cmd, cfg)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			for _, ext := range env.Registry.List() {
				def, err := env.Registry.Resolve(ext)
				if err != nil {
					return err
				}
				chain := env.Registry.Chain(ext)
				if _, err := fmt.Fprintf(out, "%s\tkey=%s\tdefinitions=%d\toutput=.%s\n",
					ext, def.Key, len(chain), def.OutputFileExtension); err != nil {
					return err
				}
			}
			return nil
		},
	}
}

func newRenderCommand(flags *rootFlags) *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "render <file>",
		Short: "Render a single file to stdout or a target path",
		Long: `Render one file through the language registered for its extension.
Front matter, global data and the extension's data contribution are merged
before rendering. Nothing is written when the language omits the output.

Examples:
  extmap render about.md
  extmap render notes.txt -c site.yaml -o notes.html`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := flags.loadConfig()
			if err != nil {
				return err
			}
			env, err := flags.environment(cmd.Context(), cmd, cfg)
			if err != nil {
				return err
			}
			raw, err := readInput(args[0])
			if err != nil {
				return err
			}

			rendered, err := env.Render(cmd.Context(), filepath.ToSlash(args[0]), raw)
			if err != nil {
				return err
			}
			content, ok := rendered.Value()
			if !ok {
				flags.logger(cmd).Info("render omitted", "path", args[0])
				return nil
			}

			if output == "" {
				_, err := fmt.Fprint(cmd.OutOrStdout(), content)
				return err
			}
			if err := os.MkdirAll(filepath.Dir(output), 0o755); err != nil {
				return fmt.Errorf("mkdir for %s: %w", output, err)
			}
			if err := atomic.WriteFile(output, strings.NewReader(content)); err != nil {
				return fmt.Errorf("write %s: %w", output, err)
			}
			flags.logger(cmd).Info("wrote page", "path", args[0], "output", output)
			return nil
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "Output file (stdout if empty)")
	return cmd
}

func newDataCommand(flags *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "data <file>",
		Short: "Print the data a file renders with, as YAML",
		Long: `Print the merged page data for a file: global data, then the
extension's data contribution, then front matter.

Examples:
  extmap data about.md -c site.yaml`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := flags.loadConfig()
			if err != nil {
				return err
			}
			env, err := flags.environment(cmd.Context(), cmd, cfg)
			if err != nil {
				return err
			}
			raw, err := readInput(args[0])
			if err != nil {
				return err
			}

			tmpl, err := env.Template(filepath.ToSlash(args[0]), raw)
			if err != nil {
				return err
			}
			data, err := tmpl.GetData(cmd.Context())
			if err != nil {
				return err
			}

			enc := yaml.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent(2)
			if err := enc.Encode(data); err != nil {
				return fmt.Errorf("encode data: %w", err)
			}
			return enc.Close()
		},
	}
}

func newBuildCommand(flags *rootFlags) *cobra.Command {
	var (
		input       string
		output      string
		concurrency int
	)

	cmd := &cobra.Command{
		Use:   "build",
		Short: "Render every registered file of an input tree",
		Long: `Walk the input directory and render each file whose extension is
registered, writing results under the output directory. Flags override the
configuration file.

Examples:
  extmap build
  extmap build -c site.yaml --input src --output dist`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := flags.loadConfig()
			if err != nil {
				return err
			}
			if strings.TrimSpace(input) != "" {
				cfg.Input = input
			}
			if strings.TrimSpace(output) != "" {
				cfg.Output = output
			}
			if concurrency > 0 {
				cfg.Concurrency = concurrency
			}

			env, err := flags.environment(cmd.Context(), cmd, cfg)
			if err != nil {
				return err
			}

			logger := flags.logger(cmd)
			builder := env.Builder(page.WithLogger(logger), page.WithConcurrency(cfg.Concurrency))
			report, err := builder.Build(cmd.Context(), cfg.Input, cfg.Output)
			if err != nil {
				return err
			}
			logger.Info("build complete",
				"input", cfg.Input,
				"output", cfg.Output,
				"written", len(report.Written),
				"omitted", len(report.Omitted),
				"skipped", len(report.Skipped),
			)
			return nil
		},
	}

	cmd.Flags().StringVarP(&input, "input", "i", "", "Input directory")
	cmd.Flags().StringVarP(&output, "output", "o", "", "Output directory")
	cmd.Flags().IntVar(&concurrency, "concurrency", 0, "Maximum files rendered in parallel")
	return cmd
}
