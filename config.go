// File: lixenwraith/runconfig/config.go
package runconfig

import (
	"maps"
	"sync"
)

// Source represents a configuration source, used to define lookup precedence
type Source string

const (
	// SourceDefault represents the built-in default values
	SourceDefault Source = "default"
	// SourceFile represents the validated configuration
	SourceFile Source = "file"
	// SourceEnv represents overrides read from environment variables
	SourceEnv Source = "env"
	// SourceCLI represents command-line and programmatic overrides
	SourceCLI Source = "cli"
)

// DefaultEnvPrefix is the environment variable prefix for overrides
const DefaultEnvPrefix = "RUNCONFIG_"

// LoadOptions configures how override sources are read and ranked
type LoadOptions struct {
	// Sources defines the precedence order (first = highest priority)
	// Default: [SourceCLI, SourceEnv, SourceFile, SourceDefault]
	Sources []Source

	// EnvPrefix is prepended to environment variable names
	// Default "RUNCONFIG_" transforms "repeatEach" to "RUNCONFIG_REPEAT_EACH"
	EnvPrefix string

	// EnvTransform customizes how override keys map to environment variables
	// If nil, uses default transformation (camelCase to SNAKE_CASE, uppercase)
	EnvTransform EnvTransformFunc
}

// DefaultLoadOptions returns the standard load options
func DefaultLoadOptions() LoadOptions {
	return LoadOptions{
		Sources:   []Source{SourceCLI, SourceEnv, SourceFile, SourceDefault},
		EnvPrefix: DefaultEnvPrefix,
	}
}

// Config is the validated, override-applied configuration handed to consumers.
type Config struct {
	mutex    sync.RWMutex
	location Location
	composed bool
	sources  []Source

	file     map[string]any // validated configuration, nested
	defaults map[string]any // nested
	env      map[string]any // flat dotted paths
	cli      map[string]any // flat dotted paths
	metadata map[string]any
}

// Project is one named test-execution subset of a configuration.
type Project struct {
	// Name is empty for the implicit default project.
	Name string

	// Use is the configuration use merged with the project's own use.
	Use map[string]any

	// Values holds the project's raw keys.
	Values map[string]any
}

// Location returns where the configuration was resolved from.
func (c *Config) Location() Location {
	return c.location
}

// File returns the configuration file, empty for directory-only runs.
func (c *Config) File() string {
	return c.location.File
}

// Dir returns the configuration directory.
func (c *Config) Dir() string {
	return c.location.Dir
}

// ComposedViaMerge reports whether the configuration was produced by Merge.
func (c *Config) ComposedViaMerge() bool {
	return c.composed
}

// Metadata returns a copy of the caller-attached run metadata.
func (c *Config) Metadata() map[string]any {
	c.mutex.RLock()
	defer c.mutex.RUnlock()
	return maps.Clone(c.metadata)
}

// Values returns a deep copy of the validated configuration, without overrides or defaults.
func (c *Config) Values() map[string]any {
	c.mutex.RLock()
	defer c.mutex.RUnlock()
	return deepCopy(c.file).(map[string]any)
}

// Overrides returns the flat override values that apply, environment first then CLI.
func (c *Config) Overrides() map[string]any {
	c.mutex.RLock()
	defer c.mutex.RUnlock()

	out := make(map[string]any, len(c.env)+len(c.cli))
	maps.Copy(out, c.env)
	maps.Copy(out, c.cli)
	return out
}

// Get retrieves a value by dotted path, honoring source precedence.
// The second return value reports whether any source supplied the path.
func (c *Config) Get(path string) (any, bool) {
	c.mutex.RLock()
	defer c.mutex.RUnlock()

	value, _, found := c.lookup(path)
	return value, found
}

// SourceOf reports which source supplies the value for path.
func (c *Config) SourceOf(path string) (Source, bool) {
	c.mutex.RLock()
	defer c.mutex.RUnlock()

	_, source, found := c.lookup(path)
	return source, found
}

// lookup must be called with the mutex held.
func (c *Config) lookup(path string) (any, Source, bool) {
	for _, source := range c.sources {
		switch source {
		case SourceCLI:
			if v, ok := c.cli[path]; ok {
				return v, source, true
			}
		case SourceEnv:
			if v, ok := c.env[path]; ok {
				return v, source, true
			}
		case SourceFile:
			if v, ok := navigateToPath(c.file, path); ok && path != "" {
				return v, source, true
			}
		case SourceDefault:
			if v, ok := navigateToPath(c.defaults, path); ok && path != "" {
				return v, source, true
			}
		}
	}
	return nil, "", false
}

// Effective returns the nested configuration with every source applied in
// precedence order. File objects are merged over defaults key by key;
// overrides replace whole values at their paths.
func (c *Config) Effective() map[string]any {
	c.mutex.RLock()
	defer c.mutex.RUnlock()
	return c.effective()
}

func (c *Config) effective() map[string]any {
	result := make(map[string]any)

	// Lowest priority first
	for i := len(c.sources) - 1; i >= 0; i-- {
		switch c.sources[i] {
		case SourceDefault:
			for path, v := range flattenMap(c.defaults, "") {
				setNestedValue(result, path, deepCopy(v))
			}
		case SourceFile:
			mergeNested(result, c.file)
		case SourceEnv:
			for path, v := range c.env {
				setNestedValue(result, path, v)
			}
		case SourceCLI:
			for path, v := range c.cli {
				setNestedValue(result, path, v)
			}
		}
	}

	return result
}

// Projects returns the declared projects in order, or a single implicit
// project carrying the configuration's use when none are declared.
func (c *Config) Projects() []Project {
	c.mutex.RLock()
	defer c.mutex.RUnlock()

	configUse := asObject(c.file["use"])
	list, _ := asList(c.file["projects"])
	if len(list) == 0 {
		return []Project{{
			Use:    deepCopy(shallowMerge(configUse, nil)).(map[string]any),
			Values: map[string]any{},
		}}
	}

	projects := make([]Project, 0, len(list))
	for _, item := range list {
		values := asObject(item)
		name, _ := values["name"].(string)
		projects = append(projects, Project{
			Name:   name,
			Use:    deepCopy(shallowMerge(configUse, asObject(values["use"]))).(map[string]any),
			Values: deepCopy(shallowMerge(values, nil)).(map[string]any),
		})
	}
	return projects
}

// Project returns the project with the given name.
func (c *Config) Project(name string) (Project, bool) {
	for _, p := range c.Projects() {
		if p.Name == name {
			return p, true
		}
	}
	return Project{}, false
}

// ClearDependencies removes dependencies and teardown from every project.
// Used for isolated-project runs; this is the only mutation a Config allows.
func (c *Config) ClearDependencies() {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	list, ok := asList(c.file["projects"])
	if !ok {
		return
	}
	for _, item := range list {
		if project, ok := asMap(item); ok {
			delete(project, "dependencies")
			delete(project, "teardown")
		}
	}
}
