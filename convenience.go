// File: lixenwraith/runconfig/convenience.go
package runconfig

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"maps"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/google/renameio/v2"
	"gopkg.in/yaml.v3"
)

// Load resolves, loads and validates the configuration at path with the
// standard precedence: CLI > Env > File > Default.
func Load(path string, args ...string) (*Config, error) {
	return NewBuilder().
		WithFile(path).
		WithArgs(args).
		Build()
}

// MustLoad is like Load but panics on error
func MustLoad(path string, args ...string) *Config {
	cfg, err := Load(path, args...)
	if err != nil {
		panic(fmt.Sprintf("config initialization failed: %v", err))
	}
	return cfg
}

// Require checks that every path has a value from some source
func (c *Config) Require(paths ...string) error {
	var missing []string
	for _, path := range paths {
		if _, found := c.Get(path); !found {
			missing = append(missing, path)
		}
	}

	if len(missing) > 0 {
		return fmt.Errorf("missing required configuration: %s", strings.Join(missing, ", "))
	}
	return nil
}

// Debug returns a formatted string showing all configuration values and their sources
func (c *Config) Debug() string {
	c.mutex.RLock()
	defer c.mutex.RUnlock()

	var b strings.Builder
	b.WriteString("Configuration Debug Info:\n")
	b.WriteString(fmt.Sprintf("Location: %s\n", c.location.Label()))
	b.WriteString(fmt.Sprintf("Composed: %t\n", c.composed))
	b.WriteString(fmt.Sprintf("Precedence: %v\n", c.sources))
	b.WriteString("Current values:\n")

	flat := flattenMap(c.effective(), "")
	for _, path := range slices.Sorted(maps.Keys(flat)) {
		_, source, _ := c.lookup(path)
		if source == "" {
			source = SourceFile
		}
		b.WriteString(fmt.Sprintf("  %s: %s (%s)\n", path, displayValue(toJSONValue(flat[path])), source))
	}

	return b.String()
}

// Dump writes the effective configuration to w in the given format ("json", "yaml" or "toml")
func (c *Config) Dump(w io.Writer, format string) error {
	data, err := Encode(format, c.Effective())
	if err != nil {
		return err
	}
	_, err = w.Write(data)
	return err
}

// Save writes the validated configuration, without overrides or defaults, to path atomically.
// The format follows the file extension unless given explicitly.
func (c *Config) Save(path string, format ...string) error {
	f := strings.TrimPrefix(strings.ToLower(filepath.Ext(path)), ".")
	if len(format) > 0 && format[0] != "" {
		f = format[0]
	}

	data, err := Encode(f, c.Values())
	if err != nil {
		return err
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory '%s': %w", dir, err)
	}

	if err := renameio.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file '%s': %w", path, err)
	}
	return nil
}

// Clone creates a deep copy of the configuration
func (c *Config) Clone() *Config {
	c.mutex.RLock()
	defer c.mutex.RUnlock()

	return &Config{
		location: c.location,
		composed: c.composed,
		sources:  slices.Clone(c.sources),
		file:     deepCopy(c.file).(map[string]any),
		defaults: deepCopy(c.defaults).(map[string]any),
		env:      maps.Clone(c.env),
		cli:      maps.Clone(c.cli),
		metadata: maps.Clone(c.metadata),
	}
}

// Encode marshals a configuration value as "json", "yaml" or "toml".
// Patterns are written as their source text.
func Encode(format string, value any) ([]byte, error) {
	value = toJSONValue(value)
	switch strings.ToLower(format) {
	case "json", "":
		data, err := json.MarshalIndent(value, "", "  ")
		if err != nil {
			return nil, fmt.Errorf("failed to marshal config data to JSON: %w", err)
		}
		return append(data, '\n'), nil
	case "yaml", "yml":
		data, err := yaml.Marshal(value)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal config data to YAML: %w", err)
		}
		return data, nil
	case "toml":
		var buf bytes.Buffer
		if err := toml.NewEncoder(&buf).Encode(value); err != nil {
			return nil, fmt.Errorf("failed to marshal config data to TOML: %w", err)
		}
		return buf.Bytes(), nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, format)
	}
}
