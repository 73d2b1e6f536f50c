package runconfig

// DefaultValues returns the built-in defaults, the lowest-precedence source.
func DefaultValues() map[string]any {
	return map[string]any{
		"forbidOnly":      false,
		"fullyParallel":   false,
		"globalTimeout":   int64(0),
		"maxFailures":     int64(0),
		"outputDir":       "test-results",
		"preserveOutput":  "always",
		"quiet":           false,
		"repeatEach":      int64(1),
		"reporter":        "list",
		"retries":         int64(0),
		"timeout":         int64(30000),
		"updateSnapshots": "missing",
		"expect": map[string]any{
			"timeout": int64(5000),
		},
	}
}
