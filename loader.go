// FILE: lixenwraith/runconfig/loader.go
package runconfig

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"
)

// RawLoader turns a resolved file path into a raw configuration value.
// The result is a map, a *Composed, or any other value the validator will reject.
type RawLoader interface {
	Load(path string) (any, error)
}

// LoaderFunc adapts a function to RawLoader.
type LoaderFunc func(path string) (any, error)

// Load calls f(path).
func (f LoaderFunc) Load(path string) (any, error) {
	return f(path)
}

// DecodeFunc decodes file contents into a raw configuration value.
type DecodeFunc func(path string, data []byte) (any, error)

// LoaderOptions configures the built-in file loader
type LoaderOptions struct {
	// MaxFileSize limits the bytes read from a config file (0 = unlimited)
	MaxFileSize int64

	// Format forces a decoder ("json", "yaml", "toml"); empty or "auto" detects it
	Format string
}

// FileLoader loads configuration files with decoders selected by extension.
// JSON, YAML and TOML are built in. Script extensions have no decoder until one
// is registered, typically by a host that can evaluate them.
type FileLoader struct {
	mu       sync.RWMutex
	opts     LoaderOptions
	decoders map[string]DecodeFunc
}

// NewFileLoader creates a loader with the built-in data decoders.
func NewFileLoader(opts LoaderOptions) *FileLoader {
	l := &FileLoader{
		opts:     opts,
		decoders: make(map[string]DecodeFunc),
	}
	l.Register(".json", decodeJSON)
	l.Register(".yaml", decodeYAML)
	l.Register(".yml", decodeYAML)
	l.Register(".toml", decodeTOML)
	return l
}

// Register sets the decoder for a file extension, replacing any existing one.
func (l *FileLoader) Register(ext string, fn DecodeFunc) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.decoders[strings.ToLower(ext)] = fn
}

// Load reads, decodes and unwraps the configuration file at path.
// A top-level list is treated as a list of fragments and merged.
func (l *FileLoader) Load(path string) (any, error) {
	fileInfo, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrConfigNotFound, path)
		}
		return nil, fmt.Errorf("failed to stat config file '%s': %w", path, err)
	}

	if l.opts.MaxFileSize > 0 && fileInfo.Size() > l.opts.MaxFileSize {
		return nil, fmt.Errorf("config file '%s' exceeds maximum size %d bytes", path, l.opts.MaxFileSize)
	}

	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open config file '%s': %w", path, err)
	}
	defer file.Close()

	var reader io.Reader = file
	if l.opts.MaxFileSize > 0 {
		reader = io.LimitReader(file, l.opts.MaxFileSize)
	}

	data, err := io.ReadAll(reader)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file '%s': %w", path, err)
	}

	decode, err := l.decoderFor(path, data)
	if err != nil {
		return nil, err
	}

	raw, err := decode(path, data)
	if err != nil {
		return nil, err
	}

	return composeRaw(UnwrapDefault(normalizeDecoded(raw)))
}

// decoderFor picks the decoder from the forced format, the extension, then the content.
func (l *FileLoader) decoderFor(path string, data []byte) (DecodeFunc, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	format := l.opts.Format
	if format != "" && format != "auto" {
		if fn, ok := l.decoders["."+format]; ok {
			return fn, nil
		}
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, format)
	}

	ext := strings.ToLower(filepath.Ext(path))
	if fn, ok := l.decoders[ext]; ok {
		return fn, nil
	}

	for _, script := range ScriptExtensions {
		if ext == script {
			return nil, fmt.Errorf("%w: no decoder registered for '%s' (%s)", ErrUnsupportedFormat, ext, path)
		}
	}

	// Fall back to content detection
	if detected := detectFormatFromContent(data); detected != "" {
		if fn, ok := l.decoders["."+detected]; ok {
			return fn, nil
		}
	}

	return nil, fmt.Errorf("%w: unable to determine config format for file '%s'", ErrUnsupportedFormat, path)
}

// UnwrapDefault returns the value under "default" when the object carries one,
// following the default-export convention of script configs.
func UnwrapDefault(raw any) any {
	if m, ok := asMap(raw); ok {
		if inner, exists := m["default"]; exists {
			return inner
		}
	}
	return raw
}

// composeRaw merges a list of fragments; other values pass through.
func composeRaw(raw any) (any, error) {
	list, ok := raw.([]any)
	if !ok {
		return raw, nil
	}

	fragments := make([]Fragment, 0, len(list))
	for i, item := range list {
		m, ok := asMap(item)
		if !ok {
			return nil, fmt.Errorf("fragment %d: %w (got %T)", i, ErrNotObject, item)
		}
		fragments = append(fragments, Fragment(m))
	}

	return Merge(fragments...)
}

func decodeJSON(path string, data []byte) (any, error) {
	var raw any
	decoder := json.NewDecoder(bytes.NewReader(data))
	decoder.UseNumber() // Preserve number precision
	if err := decoder.Decode(&raw); err != nil {
		return nil, fmt.Errorf("failed to parse JSON config file '%s': %w", path, err)
	}
	return raw, nil
}

func decodeYAML(path string, data []byte) (any, error) {
	var raw any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("failed to parse YAML config file '%s': %w", path, err)
	}
	return raw, nil
}

func decodeTOML(path string, data []byte) (any, error) {
	raw := make(map[string]any)
	if err := toml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("failed to parse TOML config file '%s': %w", path, err)
	}
	return raw, nil
}

// normalizeDecoded converts decoder output to map[string]any / []any trees.
func normalizeDecoded(value any) any {
	switch v := value.(type) {
	case map[string]any:
		out := make(map[string]any, len(v))
		for k, item := range v {
			out[k] = normalizeDecoded(item)
		}
		return out
	case map[any]any:
		out := make(map[string]any, len(v))
		for k, item := range v {
			out[fmt.Sprintf("%v", k)] = normalizeDecoded(item)
		}
		return out
	case []any:
		out := make([]any, len(v))
		for i, item := range v {
			out[i] = normalizeDecoded(item)
		}
		return out
	case []map[string]any:
		out := make([]any, len(v))
		for i, item := range v {
			out[i] = normalizeDecoded(item)
		}
		return out
	case json.Number:
		return toJSONValue(v)
	case int:
		return int64(v)
	default:
		return value
	}
}

// detectFormatFromContent attempts to detect format by parsing
func detectFormatFromContent(data []byte) string {
	// Try JSON first (strict format)
	var jsonTest any
	if err := json.Unmarshal(data, &jsonTest); err == nil {
		return "json"
	}

	// Try TOML before YAML, YAML accepts almost any text
	var tomlTest map[string]any
	if err := toml.Unmarshal(data, &tomlTest); err == nil {
		return "toml"
	}

	var yamlTest any
	if err := yaml.Unmarshal(data, &yamlTest); err == nil {
		if _, ok := yamlTest.(map[string]any); ok {
			return "yaml"
		}
	}

	return ""
}
