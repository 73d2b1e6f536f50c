// FILE: lixenwraith/runconfig/discovery.go
package runconfig

import (
	"fmt"
	"os"
	"path/filepath"
)

// DefaultBaseName is the file name, without extension, probed in directories.
const DefaultBaseName = "test.config"

// ScriptExtensions are the recognized script config extensions in search-priority order.
var ScriptExtensions = []string{".ts", ".js", ".mts", ".mjs", ".cts", ".cjs"}

// DataExtensions are the data-format config extensions, probed after scripts.
var DataExtensions = []string{".json", ".yaml", ".yml", ".toml"}

// Location is the result of resolving a configuration path.
type Location struct {
	// File is the resolved configuration file, empty for directory-only runs.
	File string

	// Dir is the parent directory of File, or the directory that was searched.
	Dir string
}

// HasFile reports whether a configuration file was found.
func (l Location) HasFile() bool {
	return l.File != ""
}

// Label returns the file for use in diagnostics.
func (l Location) Label() string {
	if l.File == "" {
		return DefaultConfigFile
	}
	return l.File
}

// DiscoveryOptions configures configuration file resolution
type DiscoveryOptions struct {
	// Base name of config file (without extension)
	BaseName string

	// Extensions to try (in order)
	Extensions []string

	// Environment variable to check for an explicit path when none is given
	EnvVar string
}

// DefaultDiscoveryOptions returns the standard resolution options
func DefaultDiscoveryOptions() DiscoveryOptions {
	exts := make([]string, 0, len(ScriptExtensions)+len(DataExtensions))
	exts = append(exts, ScriptExtensions...)
	exts = append(exts, DataExtensions...)
	return DiscoveryOptions{
		BaseName:   DefaultBaseName,
		Extensions: exts,
	}
}

// baseName returns BaseName, falling back to DefaultBaseName.
func (o DiscoveryOptions) baseName() string {
	if o.BaseName == "" {
		return DefaultBaseName
	}
	return o.BaseName
}

// Resolve finds the configuration file for path using the default options.
func Resolve(path string) (Location, error) {
	return ResolveWithOptions(path, DefaultDiscoveryOptions())
}

// ResolveWithOptions finds the configuration file for path.
// An empty path means the current working directory. A directory is searched
// for BaseName+ext in extension order; an explicit file is used as is.
// A directory with no matching file resolves to a Location without a File.
func ResolveWithOptions(path string, opts DiscoveryOptions) (Location, error) {
	if path == "" && opts.EnvVar != "" {
		path = os.Getenv(opts.EnvVar)
	}

	cwd, err := os.Getwd()
	if err != nil {
		return Location{}, fmt.Errorf("failed to get working directory: %w", err)
	}

	target := cwd
	if path != "" {
		target = path
		if !filepath.IsAbs(target) {
			target = filepath.Join(cwd, target)
		}
	}
	target = filepath.Clean(target)

	info, err := os.Stat(target)
	if err != nil {
		if os.IsNotExist(err) {
			return Location{}, fmt.Errorf("%w: %s", ErrConfigNotFound, target)
		}
		return Location{}, fmt.Errorf("failed to stat config path '%s': %w", target, err)
	}

	if !info.IsDir() {
		return Location{File: target, Dir: filepath.Dir(target)}, nil
	}

	baseName := opts.baseName()
	for _, ext := range opts.Extensions {
		candidate := filepath.Join(target, baseName+ext)
		if st, err := os.Stat(candidate); err == nil && !st.IsDir() {
			return Location{File: candidate, Dir: target}, nil
		}
	}

	// No file found is not an error, tests are discovered from the directory
	return Location{Dir: target}, nil
}
