// File: lixenwraith/runconfig/builder.go
package runconfig

import (
	"fmt"
	"maps"
	"os"
	"slices"

	"github.com/rs/zerolog"
)

// Builder provides a fluent interface for assembling a configuration
type Builder struct {
	file       string
	fragments  []Fragment
	loader     RawLoader
	loaderOpts LoaderOptions
	discovery  DiscoveryOptions
	schemas    Schemas
	opts       LoadOptions
	args       []string
	overrides  map[string]any
	metadata   map[string]any
	logger     zerolog.Logger
	err        error
}

// NewBuilder creates a new configuration builder
func NewBuilder() *Builder {
	return &Builder{
		discovery: DefaultDiscoveryOptions(),
		opts:      DefaultLoadOptions(),
		overrides: make(map[string]any),
		metadata:  make(map[string]any),
		logger:    zerolog.Nop(),
	}
}

// WithFile sets the configuration file or directory path
func (b *Builder) WithFile(path string) *Builder {
	b.file = path
	return b
}

// WithFragments supplies configuration fragments directly, skipping resolution
// and loading. The fragments are composed with Merge.
func (b *Builder) WithFragments(fragments ...Fragment) *Builder {
	if len(fragments) == 0 {
		b.err = ErrNoFragments
		return b
	}
	b.fragments = fragments
	return b
}

// WithLoader sets the raw loader used for resolved files
func (b *Builder) WithLoader(loader RawLoader) *Builder {
	b.loader = loader
	return b
}

// WithLoaderOptions configures the built-in file loader
func (b *Builder) WithLoaderOptions(opts LoaderOptions) *Builder {
	b.loaderOpts = opts
	return b
}

// WithDiscoveryOptions configures how directories are searched
func (b *Builder) WithDiscoveryOptions(opts DiscoveryOptions) *Builder {
	b.discovery = opts
	return b
}

// WithSchemas replaces the schemas used for validation
func (b *Builder) WithSchemas(schemas Schemas) *Builder {
	b.schemas = schemas
	return b
}

// WithArgs sets the command-line arguments to read overrides from
func (b *Builder) WithArgs(args []string) *Builder {
	b.args = args
	return b
}

// WithOverrides sets override values, taking precedence over command-line arguments.
// Keys outside OverrideKeys are rejected at build time.
func (b *Builder) WithOverrides(overrides map[string]any) *Builder {
	maps.Copy(b.overrides, overrides)
	return b
}

// WithEnvPrefix sets the environment variable prefix
func (b *Builder) WithEnvPrefix(prefix string) *Builder {
	b.opts.EnvPrefix = prefix
	return b
}

// WithEnvTransform sets a custom environment variable transformer
func (b *Builder) WithEnvTransform(fn EnvTransformFunc) *Builder {
	b.opts.EnvTransform = fn
	return b
}

// WithSources sets the precedence order for configuration sources
func (b *Builder) WithSources(sources ...Source) *Builder {
	b.opts.Sources = sources
	return b
}

// WithMetadata attaches run metadata to the assembled configuration
func (b *Builder) WithMetadata(metadata map[string]any) *Builder {
	maps.Copy(b.metadata, metadata)
	return b
}

// WithLogger sets the logger for pipeline diagnostics
func (b *Builder) WithLogger(logger zerolog.Logger) *Builder {
	b.logger = logger
	return b
}

// Build resolves, loads, validates and assembles the configuration.
// Validation failures are returned as *ValidationError.
func (b *Builder) Build() (*Config, error) {
	if b.err != nil {
		return nil, b.err
	}

	location, raw, err := b.load()
	if err != nil {
		return nil, err
	}

	_, composed := raw.(*Composed)
	b.logger.Debug().
		Str("file", location.File).
		Str("dir", location.Dir).
		Bool("composed", composed).
		Msg("configuration loaded")

	validated, err := NewValidator(b.schemas).Validate(location.Label(), raw)
	if err != nil {
		b.logger.Debug().Err(err).Msg("configuration rejected")
		return nil, err
	}

	env := make(map[string]any)
	if slices.Contains(b.opts.Sources, SourceEnv) {
		env = coerceOverrides(loadEnv(b.opts.EnvPrefix, b.opts.EnvTransform))
	}

	cli, err := b.cliOverrides()
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		location: location,
		composed: composed,
		sources:  slices.Clone(b.opts.Sources),
		file:     deepCopy(map[string]any(validated)).(map[string]any),
		defaults: DefaultValues(),
		env:      env,
		cli:      cli,
		metadata: maps.Clone(b.metadata),
	}

	b.logger.Debug().
		Int("projects", len(cfg.Projects())).
		Int("overrides", len(env)+len(cli)).
		Msg("configuration assembled")

	return cfg, nil
}

// load produces the location and raw candidate, from fragments or from disk.
func (b *Builder) load() (Location, any, error) {
	if b.fragments != nil {
		composed, err := Merge(b.fragments...)
		if err != nil {
			return Location{}, nil, err
		}
		dir, err := os.Getwd()
		if err != nil {
			return Location{}, nil, fmt.Errorf("failed to get working directory: %w", err)
		}
		return Location{Dir: dir}, composed, nil
	}

	location, err := ResolveWithOptions(b.file, b.discovery)
	if err != nil {
		return Location{}, nil, err
	}

	if !location.HasFile() {
		b.logger.Debug().Str("dir", location.Dir).Msg("no configuration file found, using defaults")
		return location, map[string]any{}, nil
	}

	loader := b.loader
	if loader == nil {
		loader = NewFileLoader(b.loaderOpts)
	}

	raw, err := loader.Load(location.File)
	if err != nil {
		return Location{}, nil, fmt.Errorf("failed to load config file '%s': %w", location.File, err)
	}
	return location, raw, nil
}

// cliOverrides merges parsed arguments with programmatic overrides.
func (b *Builder) cliOverrides() (map[string]any, error) {
	cli := make(map[string]any)
	if !slices.Contains(b.opts.Sources, SourceCLI) {
		return cli, nil
	}

	parsed, err := parseArgs(b.args)
	if err != nil {
		return nil, err
	}
	for key, value := range parsed {
		if slices.Contains(OverrideKeys, key) {
			cli[key] = value
		}
	}
	cli = coerceOverrides(cli)

	for key, value := range b.overrides {
		if !slices.Contains(OverrideKeys, key) {
			return nil, fmt.Errorf("%w: %q is not an overridable option", ErrCLIParse, key)
		}
		cli[key] = value
	}
	return cli, nil
}

// MustBuild is like Build but panics on error
func (b *Builder) MustBuild() *Config {
	cfg, err := b.Build()
	if err != nil {
		panic(fmt.Sprintf("config build failed: %v", err))
	}
	return cfg
}

// BuildAndScan builds and decodes the effective configuration into target
func (b *Builder) BuildAndScan(target any) (*Config, error) {
	cfg, err := b.Build()
	if err != nil {
		return nil, err
	}

	if err := cfg.Scan("", target); err != nil {
		return nil, fmt.Errorf("failed to scan final config into target: %w", err)
	}
	return cfg, nil
}
