// File: lixenwraith/runconfig/doc.go

// Package runconfig resolves, merges and validates the configuration of a test run.
//
// A run starts from a path naming a config file or a directory. Directories are
// searched for test.config with script extensions first (.ts, .js, .mts, .mjs,
// .cts, .cjs) and data extensions after (.json, .yaml, .yml, .toml). A directory
// without a config file runs on built-in defaults.
//
// Features:
//   - Location resolution with ordered extension probing
//   - Pluggable raw loading; JSON, YAML and TOML decoders built in
//   - Fragment composition with Merge: shallow merge of expect, use and build,
//     webServer concatenation, and name-keyed project overrides
//   - Schema validation that stops at the first problem and names its exact path
//   - CLI, environment and programmatic overrides with configurable precedence
//   - Typed accessors and struct decoding
//   - File watching with debounced rebuilds
//
// Quick Start:
//
//	cfg, err := runconfig.Load("./e2e")
//	if err != nil {
//	    var verr *runconfig.ValidationError
//	    if errors.As(err, &verr) {
//	        log.Fatal(verr.Message)
//	    }
//	    log.Fatal(err)
//	}
//
//	timeout, _ := cfg.Int64("timeout")
//	for _, p := range cfg.Projects() {
//	    fmt.Println(p.Name, p.Use["browserName"])
//	}
//
// Composing fragments:
//
//	composed, err := runconfig.Merge(base, runconfig.Fragment{
//	    "projects": []any{map[string]any{"name": "chromium", "use": map[string]any{"headless": false}}},
//	})
//
// Default Precedence (highest to lowest):
//  1. Command-line arguments (--workers=4)
//  2. Environment variables (RUNCONFIG_WORKERS=4 with prefix "RUNCONFIG_")
//  3. Configuration file
//  4. Default values
//
// Thread Safety:
// A built Config is safe for concurrent reads. ClearDependencies is the only
// mutation and takes the write lock.
package runconfig
