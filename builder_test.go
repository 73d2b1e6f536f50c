// FILE: lixenwraith/runconfig/builder_test.go
package runconfig

import (
	"bytes"
	"errors"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// buildFile writes a test.config.json into a temp dir and builds it
func buildFile(t *testing.T, content string) (*Config, string, error) {
	t.Helper()
	dir := t.TempDir()
	path := writeFile(t, dir, "test.config.json", content)
	cfg, err := NewBuilder().WithFile(dir).Build()
	return cfg, path, err
}

func TestBuilderScenarios(t *testing.T) {
	t.Run("InvalidBoolean", func(t *testing.T) {
		_, path, err := buildFile(t, `{"fullyParallel": "yes"}`)
		var verr *ValidationError
		require.True(t, errors.As(err, &verr))
		assert.Equal(t, path, verr.File)
		assert.Contains(t, err.Error(), "fullyParallel")
		assert.Contains(t, err.Error(), "expected boolean")
	})

	t.Run("InvalidViewport", func(t *testing.T) {
		_, _, err := buildFile(t, `{"use": {"viewport": {"width": -100, "height": 720}}}`)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "viewport")
		assert.Contains(t, err.Error(), "width")
	})

	t.Run("InvalidPreserveOutput", func(t *testing.T) {
		_, _, err := buildFile(t, `{"preserveOutput": "sometimes"}`)
		require.Error(t, err)
		for _, allowed := range []string{"always", "never", "failures-only"} {
			assert.Contains(t, err.Error(), allowed)
		}
	})

	t.Run("EmptyObject", func(t *testing.T) {
		cfg, path, err := buildFile(t, `{}`)
		require.NoError(t, err)
		assert.Equal(t, path, cfg.File())
		assert.False(t, cfg.ComposedViaMerge())

		projects := cfg.Projects()
		require.Len(t, projects, 1)
		assert.Empty(t, projects[0].Name)
		assert.Empty(t, projects[0].Use)
	})
}

func TestBuilderLocations(t *testing.T) {
	t.Run("DirectoryOnly", func(t *testing.T) {
		dir := t.TempDir()
		cfg, err := NewBuilder().WithFile(dir).Build()
		require.NoError(t, err)
		assert.Empty(t, cfg.File())
		assert.Equal(t, dir, cfg.Dir())
		assert.Equal(t, DefaultConfigFile, cfg.Location().Label())
		assert.Empty(t, cfg.Values())

		timeout, err := cfg.Int64("timeout")
		require.NoError(t, err)
		assert.Equal(t, int64(30000), timeout)
	})

	t.Run("MissingPath", func(t *testing.T) {
		_, err := NewBuilder().WithFile(filepath.Join(t.TempDir(), "missing")).Build()
		assert.ErrorIs(t, err, ErrConfigNotFound)
	})

	t.Run("LoadErrorPropagates", func(t *testing.T) {
		dir := t.TempDir()
		writeFile(t, dir, "test.config.json", `{"retries":`)
		_, err := NewBuilder().WithFile(dir).Build()
		require.Error(t, err)
		var verr *ValidationError
		assert.False(t, errors.As(err, &verr))
		assert.ErrorContains(t, err, "failed to parse JSON")
	})

	t.Run("ComposedFile", func(t *testing.T) {
		dir := t.TempDir()
		writeFile(t, dir, "test.config.yaml", `
- use:
    headless: true
- use:
    browserName: firefox
  projects:
    - name: smoke
`)
		cfg, err := NewBuilder().WithFile(dir).Build()
		require.NoError(t, err)
		assert.True(t, cfg.ComposedViaMerge())

		p, ok := cfg.Project("smoke")
		require.True(t, ok)
		assert.Equal(t, map[string]any{"headless": true, "browserName": "firefox"}, p.Use)
	})

	t.Run("ComposedFileValidated", func(t *testing.T) {
		dir := t.TempDir()
		writeFile(t, dir, "test.config.json", `[{"retries": 1}, {"retries": -1}]`)
		_, err := NewBuilder().WithFile(dir).Build()
		var verr *ValidationError
		require.True(t, errors.As(err, &verr))
		assert.Equal(t, "retries", verr.Path)
	})
}

func TestBuilderFragments(t *testing.T) {
	base := Fragment{
		"timeout": 10000,
		"use":     map[string]any{"headless": true},
		"projects": []any{
			map[string]any{"name": "setup", "testMatch": "global.setup.ts", "teardown": "cleanup"},
			map[string]any{"name": "chromium", "dependencies": []any{"setup"}, "use": map[string]any{"browserName": "chromium"}},
		},
	}
	override := Fragment{
		"projects": []any{
			map[string]any{"name": "chromium", "use": map[string]any{"viewport": map[string]any{"width": 800, "height": 600}}},
			map[string]any{"name": "cleanup"},
		},
	}

	cfg, err := NewBuilder().WithFragments(base, override).Build()
	require.NoError(t, err)
	assert.True(t, cfg.ComposedViaMerge())
	assert.Empty(t, cfg.File())

	projects := cfg.Projects()
	require.Len(t, projects, 3)
	assert.Equal(t, []string{"setup", "chromium", "cleanup"}, []string{projects[0].Name, projects[1].Name, projects[2].Name})
	assert.Equal(t, map[string]any{
		"headless":    true,
		"browserName": "chromium",
		"viewport":    map[string]any{"width": 800, "height": 600},
	}, projects[1].Use)

	t.Run("ClearDependencies", func(t *testing.T) {
		cfg.ClearDependencies()
		for _, p := range cfg.Projects() {
			assert.NotContains(t, p.Values, "dependencies")
			assert.NotContains(t, p.Values, "teardown")
		}
		// Caller fragments are untouched
		assert.Contains(t, base["projects"].([]any)[0], "teardown")
		assert.Contains(t, base["projects"].([]any)[1], "dependencies")
	})

	t.Run("NoFragments", func(t *testing.T) {
		_, err := NewBuilder().WithFragments().Build()
		assert.ErrorIs(t, err, ErrNoFragments)
	})
}

func TestBuilderOptions(t *testing.T) {
	t.Run("CustomLoader", func(t *testing.T) {
		dir := t.TempDir()
		writeFile(t, dir, "test.config.ts", "export default {}")

		cfg, err := NewBuilder().
			WithFile(dir).
			WithLoader(LoaderFunc(func(path string) (any, error) {
				return UnwrapDefault(map[string]any{"default": map[string]any{"retries": 2}}), nil
			})).
			Build()
		require.NoError(t, err)
		retries, _ := cfg.Int64("retries")
		assert.Equal(t, int64(2), retries)
		assert.Equal(t, filepath.Join(dir, "test.config.ts"), cfg.File())
	})

	t.Run("Metadata", func(t *testing.T) {
		cfg, err := NewBuilder().
			WithFragments(Fragment{}).
			WithMetadata(map[string]any{"ci": true, "build": 42}).
			Build()
		require.NoError(t, err)
		assert.Equal(t, map[string]any{"ci": true, "build": 42}, cfg.Metadata())
	})

	t.Run("Logger", func(t *testing.T) {
		var buf bytes.Buffer
		logger := zerolog.New(&buf).Level(zerolog.DebugLevel)

		_, err := NewBuilder().
			WithFragments(Fragment{"retries": 1}).
			WithLogger(logger).
			Build()
		require.NoError(t, err)
		assert.Contains(t, buf.String(), `"composed":true`)
		assert.Contains(t, buf.String(), "configuration assembled")
	})

	t.Run("MustBuildPanics", func(t *testing.T) {
		assert.Panics(t, func() {
			NewBuilder().WithFragments(Fragment{"quiet": "loud"}).MustBuild()
		})
		assert.NotPanics(t, func() {
			NewBuilder().WithFragments(Fragment{"quiet": true}).MustBuild()
		})
	})

	t.Run("BuildAndScan", func(t *testing.T) {
		var target struct {
			Timeout  int64  `json:"timeout"`
			Reporter string `json:"reporter"`
			Workers  int    `json:"workers"`
		}
		_, err := NewBuilder().
			WithFragments(Fragment{"timeout": 1234}).
			WithOverrides(map[string]any{"workers": 3}).
			BuildAndScan(&target)
		require.NoError(t, err)
		assert.Equal(t, int64(1234), target.Timeout)
		assert.Equal(t, "list", target.Reporter)
		assert.Equal(t, 3, target.Workers)
	})
}
