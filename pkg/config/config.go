// Package config loads the declarative site configuration: global data,
// built-in engine settings, and metadata-only extension definitions.
package config

import (
	"context"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/goliatone/go-extmap/pkg/engine"
)

// Config is the YAML site configuration.
type Config struct {
	Input       string         `yaml:"input"`
	Output      string         `yaml:"output"`
	Concurrency int            `yaml:"concurrency"`
	Data        map[string]any `yaml:"data"`
	Markdown    Markdown       `yaml:"markdown"`
	HTML        HTML           `yaml:"html"`
	Njk         Njk            `yaml:"njk"`
	Extensions  []Extension    `yaml:"extensions"`
}

// Markdown configures the built-in Markdown engine.
type Markdown struct {
	Sanitize bool `yaml:"sanitize"`
	// TemplateEngine names the extension Markdown source is preprocessed
	// with. Nil keeps the default (liquid); "" or "false" disables it.
	TemplateEngine *string `yaml:"templateEngine"`
}

// HTML configures the built-in HTML engine.
type HTML struct {
	TemplateEngine *string `yaml:"templateEngine"`
}

// Njk configures the built-in njk engine.
type Njk struct {
	BaseDir string `yaml:"baseDir"`
}

// Extension is a metadata-only extension definition. Without a compile
// function it renders through its default: the definition it overrides, or
// the built-in engine named by Key.
type Extension struct {
	Extension           string         `yaml:"extension"`
	Key                 string         `yaml:"key"`
	Cache               *bool          `yaml:"cache"`
	GetData             DataSetting    `yaml:"getData"`
	OutputFileExtension string         `yaml:"outputFileExtension"`
	Instance            map[string]any `yaml:"instance"`
}

// DataSetting mirrors getData: false, true, or a list of keys.
type DataSetting struct {
	Policy engine.DataPolicy
}

// UnmarshalYAML accepts a boolean or a sequence of key names.
func (d *DataSetting) UnmarshalYAML(node *yaml.Node) error {
	switch node.Kind {
	case yaml.ScalarNode:
		var enabled bool
		if err := node.Decode(&enabled); err != nil {
			return fmt.Errorf("config: getData must be a boolean or a list of keys: %w", err)
		}
		if enabled {
			d.Policy = engine.AllData()
		} else {
			d.Policy = engine.NoData()
		}
		return nil
	case yaml.SequenceNode:
		var keys []string
		if err := node.Decode(&keys); err != nil {
			return fmt.Errorf("config: getData keys: %w", err)
		}
		d.Policy = engine.DataKeys(keys...)
		return nil
	default:
		return fmt.Errorf("config: getData must be a boolean or a list of keys (line %d)", node.Line)
	}
}

// Default returns the configuration used when no file is supplied.
func Default() *Config {
	return &Config{
		Input:       ".",
		Output:      "_site",
		Concurrency: 8,
	}
}

// Load reads and parses a YAML configuration file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}
	cfg, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("config: %s: %w", path, err)
	}
	return cfg, nil
}

// Parse decodes YAML on top of Default and validates the result.
func Parse(data []byte) (*Config, error) {
	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("config: parse: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks extension entries.
func (c *Config) Validate() error {
	for idx, ext := range c.Extensions {
		if engine.NormalizeExtension(ext.Extension) == "" {
			return fmt.Errorf("config: extensions[%d]: extension is required", idx)
		}
	}
	if c.Concurrency < 0 {
		return fmt.Errorf("config: concurrency must not be negative")
	}
	return nil
}

// MarkdownTemplateEngine returns the preprocessing extension for Markdown.
func (c *Config) MarkdownTemplateEngine() string {
	return templateEngine(c.Markdown.TemplateEngine)
}

// HTMLTemplateEngine returns the preprocessing extension for HTML.
func (c *Config) HTMLTemplateEngine() string {
	return templateEngine(c.HTML.TemplateEngine)
}

func templateEngine(value *string) string {
	if value == nil {
		return "liquid"
	}
	trimmed := strings.TrimSpace(*value)
	if strings.EqualFold(trimmed, "false") {
		return ""
	}
	return engine.NormalizeExtension(trimmed)
}

// Definitions converts the extension entries into engine definitions, in
// file order.
func (c *Config) Definitions() []engine.Definition {
	defs := make([]engine.Definition, 0, len(c.Extensions))
	for _, ext := range c.Extensions {
		def := engine.Definition{
			Extension:           ext.Extension,
			Key:                 ext.Key,
			CompileOptions:      engine.CompileOptions{Cache: ext.Cache},
			GetData:             ext.GetData.Policy,
			OutputFileExtension: ext.OutputFileExtension,
		}
		if ext.Instance != nil {
			instance := engine.InstanceMap(ext.Instance)
			def.GetInstanceFromInputPath = func(context.Context, string) (engine.Instance, error) {
				return instance, nil
			}
		}
		defs = append(defs, def)
	}
	return defs
}
