// FILE: lixenwraith/runconfig/convenience_test.go
package runconfig

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/BurntSushi/toml"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

const convenienceConfig = `{
  "timeout": 20000,
  "grep": "@smoke",
  "use": {"baseURL": "http://localhost:8080"},
  "projects": [
    {"name": "chromium", "use": {"browserName": "chromium"}},
    {"name": "firefox", "use": {"browserName": "firefox"}}
  ]
}`

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "test.config.json", convenienceConfig)

	cfg, err := Load(dir, "--workers=2", "--retries", "3", "--headed")
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(dir, "test.config.json"), cfg.File())
	workers, _ := cfg.Int64("workers")
	assert.Equal(t, int64(2), workers)
	retries, _ := cfg.Int64("retries")
	assert.Equal(t, int64(3), retries)
	_, found := cfg.Get("headed")
	assert.False(t, found, "unknown flags are ignored")

	t.Run("MustLoad", func(t *testing.T) {
		assert.NotPanics(t, func() { MustLoad(dir) })

		bad := t.TempDir()
		writeFile(t, bad, "test.config.json", `{"retries": "many"}`)
		assert.Panics(t, func() { MustLoad(bad) })
	})
}

func TestRequire(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "test.config.json", convenienceConfig)
	cfg := MustLoad(dir)

	assert.NoError(t, cfg.Require("timeout", "use.baseURL", "outputDir"))

	err := cfg.Require("timeout", "use.locale", "testDir")
	require.Error(t, err)
	assert.Equal(t, "missing required configuration: use.locale, testDir", err.Error())
}

func TestDebug(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "test.config.json", convenienceConfig)
	cfg := MustLoad(dir, "--workers=4")

	out := cfg.Debug()
	assert.True(t, strings.HasPrefix(out, "Configuration Debug Info:\n"))
	assert.Contains(t, out, "Location: "+filepath.Join(dir, "test.config.json"))
	assert.Contains(t, out, "  timeout: 20000 (file)\n")
	assert.Contains(t, out, "  workers: 4 (cli)\n")
	assert.Contains(t, out, "  outputDir: \"test-results\" (default)\n")
	assert.Contains(t, out, "  use.baseURL: \"http://localhost:8080\" (file)\n")

	// Paths are sorted
	assert.Less(t, strings.Index(out, "  grep:"), strings.Index(out, "  timeout:"))
}

func TestDump(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "test.config.json", convenienceConfig)
	cfg := MustLoad(dir, "--quiet")

	t.Run("JSON", func(t *testing.T) {
		var buf bytes.Buffer
		require.NoError(t, cfg.Dump(&buf, "json"))

		var decoded map[string]any
		require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded))
		assert.Equal(t, 20000.0, decoded["timeout"])
		assert.Equal(t, true, decoded["quiet"])
		assert.Equal(t, "always", decoded["preserveOutput"])
		assert.Len(t, decoded["projects"], 2)
	})

	t.Run("YAML", func(t *testing.T) {
		var buf bytes.Buffer
		require.NoError(t, cfg.Dump(&buf, "yaml"))

		var decoded map[string]any
		require.NoError(t, yaml.Unmarshal(buf.Bytes(), &decoded))
		assert.Equal(t, "@smoke", decoded["grep"])
	})

	t.Run("TOML", func(t *testing.T) {
		var buf bytes.Buffer
		require.NoError(t, cfg.Dump(&buf, "toml"))

		var decoded map[string]any
		_, err := toml.Decode(buf.String(), &decoded)
		require.NoError(t, err)
		assert.Equal(t, "http://localhost:8080", decoded["use"].(map[string]any)["baseURL"])
	})

	t.Run("Unsupported", func(t *testing.T) {
		err := cfg.Dump(&bytes.Buffer{}, "ini")
		assert.ErrorIs(t, err, ErrUnsupportedFormat)
	})
}

func TestSave(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "test.config.json", convenienceConfig)
	cfg := MustLoad(dir, "--workers=8")

	for _, name := range []string{"test.config.json", "test.config.yaml", "test.config.toml"} {
		t.Run(name, func(t *testing.T) {
			outDir := filepath.Join(t.TempDir(), "nested")
			path := filepath.Join(outDir, name)
			require.NoError(t, cfg.Save(path))

			reloaded, err := Load(path)
			require.NoError(t, err)
			assert.Equal(t, cfg.Values(), reloaded.Values())

			// Overrides are not persisted
			_, found := reloaded.Get("workers")
			assert.False(t, found)
		})
	}

	t.Run("ExplicitFormat", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "config.out")
		require.NoError(t, cfg.Save(path, "yaml"))

		data, err := os.ReadFile(path)
		require.NoError(t, err)
		assert.Contains(t, string(data), "timeout: 20000")
	})

	t.Run("UnsupportedExtension", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "config.ini")
		assert.ErrorIs(t, cfg.Save(path), ErrUnsupportedFormat)
		assert.NoFileExists(t, path)
	})
}

func TestCloneIndependence(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "test.config.json", `{"projects": [{"name": "setup", "teardown": "cleanup"}, {"name": "e2e", "dependencies": ["setup"]}]}`)
	cfg := MustLoad(dir)

	clone := cfg.Clone()
	clone.ClearDependencies()

	e2e, _ := cfg.Project("e2e")
	assert.Equal(t, []any{"setup"}, e2e.Values["dependencies"])
	cloned, _ := clone.Project("e2e")
	assert.NotContains(t, cloned.Values, "dependencies")
	setup, _ := clone.Project("setup")
	assert.NotContains(t, setup.Values, "teardown")
}

func TestEncode(t *testing.T) {
	data, err := Encode("", map[string]any{"b": 1, "a": []any{"x"}})
	require.NoError(t, err)
	assert.Equal(t, "{\n  \"a\": [\n    \"x\"\n  ],\n  \"b\": 1\n}\n", string(data))

	data, err = Encode("YML", map[string]any{"name": "smoke"})
	require.NoError(t, err)
	assert.Equal(t, "name: smoke\n", string(data))

	_, err = Encode("xml", map[string]any{})
	assert.ErrorIs(t, err, ErrUnsupportedFormat)
}
