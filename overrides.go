// FILE: lixenwraith/runconfig/overrides.go
package runconfig

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"sync"
	"unicode"

	"github.com/getkin/kin-openapi/openapi3"
)

// OverrideKeys are the top-level options callers may override after validation.
var OverrideKeys = []string{
	"forbidOnly",
	"fullyParallel",
	"globalTimeout",
	"ignoreSnapshots",
	"maxFailures",
	"outputDir",
	"quiet",
	"repeatEach",
	"reporter",
	"retries",
	"timeout",
	"tsconfig",
	"updateSnapshots",
	"workers",
}

// EnvTransformFunc converts a configuration path to an environment variable name
type EnvTransformFunc func(path string) string

// defaultEnvTransform creates the default environment variable transformer.
// camelCase segments become SNAKE_CASE: "fullyParallel" -> PREFIX_FULLY_PARALLEL.
func defaultEnvTransform(prefix string) EnvTransformFunc {
	return func(path string) string {
		var b strings.Builder
		b.WriteString(prefix)
		for i, r := range path {
			switch {
			case r == '.' || r == '-':
				b.WriteByte('_')
			case unicode.IsUpper(r) && i > 0:
				b.WriteByte('_')
				b.WriteRune(r)
			default:
				b.WriteRune(unicode.ToUpper(r))
			}
		}
		return b.String()
	}
}

// loadEnv collects overrides for OverrideKeys from environment variables.
// Values are kept as strings, typed accessors convert them.
func loadEnv(prefix string, transform EnvTransformFunc) map[string]any {
	if transform == nil {
		transform = defaultEnvTransform(prefix)
	}

	found := make(map[string]any)
	for _, key := range OverrideKeys {
		if value, exists := os.LookupEnv(transform(key)); exists {
			found[key] = parseValue(value)
		}
	}
	return found
}

// parseValue attempts to parse a string into appropriate types
// Only basic parse, complex parsing is deferred to the typed accessors
func parseValue(s string) any {
	if s == "true" {
		return true
	}
	if s == "false" {
		return false
	}

	// Remove quotes if present
	if len(s) >= 2 && s[0] == '"' && s[len(s)-1] == '"' {
		return s[1 : len(s)-1]
	}

	return s
}

// coerceOverrides converts numeric strings to int64 or float64 so overrides
// carry the same shapes as decoded configuration files.
func coerceOverrides(values map[string]any) map[string]any {
	for key, value := range values {
		s, ok := value.(string)
		if !ok {
			continue
		}
		if i, err := strconv.ParseInt(s, 10, 64); err == nil {
			values[key] = i
		} else if f, err := strconv.ParseFloat(s, 64); err == nil {
			values[key] = f
		}
	}
	return values
}

// booleanOptions lists the override keys the top-level schema declares as booleans.
var booleanOptions = sync.OnceValue(func() map[string]bool {
	schema := ConfigSchema()
	options := make(map[string]bool)
	for _, key := range OverrideKeys {
		if field, ok := schema.Lookup(key); ok && field.Type.Is(openapi3.TypeBoolean) {
			options[key] = true
		}
	}
	return options
})

// takesValue reports whether next is the value of the flag key rather than a
// positional argument. Boolean options only consume an explicit true or false,
// so "--quiet tests/login.spec.ts" leaves the test filter alone.
func takesValue(key, next string) bool {
	if strings.HasPrefix(next, "--") {
		return false
	}
	if booleanOptions()[key] {
		return next == "true" || next == "false"
	}
	return true
}

// parseArgs collects overrides from a test runner command line.
// Accepts "--key=value", "--key value" and bare "--flag" (true); positional
// arguments and the "--" separator are skipped.
func parseArgs(args []string) (map[string]any, error) {
	result := make(map[string]any)
	for i := 0; i < len(args); i++ {
		key, isFlag := strings.CutPrefix(args[i], "--")
		if !isFlag || key == "" {
			continue
		}

		value := "true"
		if k, v, hasValue := strings.Cut(key, "="); hasValue {
			key, value = k, v
		} else if i+1 < len(args) && takesValue(key, args[i+1]) {
			i++
			value = args[i]
		}
		if key == "" {
			continue
		}

		for _, segment := range strings.Split(key, ".") {
			if !isValidKeySegment(segment) {
				return nil, fmt.Errorf("%w: invalid key segment %q in path %q", ErrCLIParse, segment, key)
			}
		}
		result[key] = parseValue(value)
	}
	return result, nil
}
