// File: lixenwraith/runconfig/type.go
package runconfig

import (
	"fmt"
	"math"
	"runtime"
	"strconv"
	"strings"
	"time"
)

// String returns the value at path as a string. Numbers and booleans are
// formatted; objects and lists are an error.
func (c *Config) String(path string) (string, error) {
	val, err := c.scalar(path)
	if err != nil {
		return "", err
	}
	switch v := val.(type) {
	case nil:
		return "", nil
	case string:
		return v, nil
	case bool:
		return strconv.FormatBool(v), nil
	case int64:
		return strconv.FormatInt(v, 10), nil
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64), nil
	}
	return "", fmt.Errorf("option %s is %s, not a string", path, typeOf(val))
}

// Int64 returns the value at path as an integer. Fractions are truncated and
// numeric strings, as read from the environment, are parsed.
func (c *Config) Int64(path string) (int64, error) {
	val, err := c.scalar(path)
	if err != nil {
		return 0, err
	}
	switch v := val.(type) {
	case int64:
		return v, nil
	case float64:
		if v >= math.MaxInt64 || v < math.MinInt64 {
			return 0, fmt.Errorf("option %s overflows int64: %g", path, v)
		}
		return int64(v), nil
	case string:
		if i, err := strconv.ParseInt(strings.TrimSpace(v), 10, 64); err == nil {
			return i, nil
		}
		f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		if err != nil {
			return 0, fmt.Errorf("option %s: %q is not a number", path, v)
		}
		return int64(f), nil
	}
	return 0, fmt.Errorf("option %s is %s, not a number", path, typeOf(val))
}

// Float64 returns the value at path as a number.
func (c *Config) Float64(path string) (float64, error) {
	val, err := c.scalar(path)
	if err != nil {
		return 0, err
	}
	switch v := val.(type) {
	case int64:
		return float64(v), nil
	case float64:
		return v, nil
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		if err != nil {
			return 0, fmt.Errorf("option %s: %q is not a number", path, v)
		}
		return f, nil
	}
	return 0, fmt.Errorf("option %s is %s, not a number", path, typeOf(val))
}

// Bool returns the value at path as a boolean. The strings accepted by
// strconv.ParseBool are converted.
func (c *Config) Bool(path string) (bool, error) {
	val, err := c.scalar(path)
	if err != nil {
		return false, err
	}
	switch v := val.(type) {
	case bool:
		return v, nil
	case string:
		b, err := strconv.ParseBool(v)
		if err != nil {
			return false, fmt.Errorf("option %s: %q is not a boolean", path, v)
		}
		return b, nil
	}
	return false, fmt.Errorf("option %s is %s, not a boolean", path, typeOf(val))
}

// Timeout returns a millisecond option as a time.Duration.
// Zero means the timeout is disabled.
func (c *Config) Timeout(path string) (time.Duration, error) {
	ms, err := c.Float64(path)
	if err != nil {
		return 0, err
	}
	if ms < 0 {
		return 0, fmt.Errorf("option %s must not be negative: %g", path, ms)
	}
	return time.Duration(ms * float64(time.Millisecond)), nil
}

// RunTimeouts groups the run-level millisecond options.
type RunTimeouts struct {
	Test   time.Duration // timeout
	Global time.Duration // globalTimeout, zero for none
	Expect time.Duration // expect.timeout
}

// Timeouts resolves the run-level timeouts, defaults included.
func (c *Config) Timeouts() (RunTimeouts, error) {
	var t RunTimeouts
	var err error
	if t.Test, err = c.Timeout("timeout"); err != nil {
		return RunTimeouts{}, err
	}
	if t.Global, err = c.Timeout("globalTimeout"); err != nil {
		return RunTimeouts{}, err
	}
	if t.Expect, err = c.Timeout("expect.timeout"); err != nil {
		return RunTimeouts{}, err
	}
	return t, nil
}

// Workers resolves the worker count for a machine with cpus logical CPUs.
// workers may be a count or a percentage of cpus ("50%"); when unset half the
// CPUs are used. The result is at least 1. cpus <= 0 uses runtime.NumCPU.
func (c *Config) Workers(cpus int) (int, error) {
	if cpus <= 0 {
		cpus = runtime.NumCPU()
	}

	val, found := c.Get("workers")
	if !found || val == nil {
		return max(1, cpus/2), nil
	}

	if s, ok := val.(string); ok {
		if percent, isPercent := strings.CutSuffix(strings.TrimSpace(s), "%"); isPercent {
			p, err := strconv.ParseFloat(percent, 64)
			if err != nil || p < 0 {
				return 0, fmt.Errorf("option workers: %q is not a percentage", s)
			}
			return max(1, int(float64(cpus)*p/100)), nil
		}
	}

	n, err := c.Int64("workers")
	if err != nil {
		return 0, err
	}
	if n < 1 {
		return 0, fmt.Errorf("option workers must be at least 1, got %d", n)
	}
	return int(n), nil
}

// Reporter is one configured reporter with its options.
type Reporter struct {
	Name    string
	Options map[string]any
}

// Reporters returns the configured reporters. reporter is either a single
// name or a list of [name] or [name, options] entries.
func (c *Config) Reporters() ([]Reporter, error) {
	val, found := c.Get("reporter")
	if !found || val == nil {
		return nil, nil
	}

	if name, ok := val.(string); ok {
		return []Reporter{{Name: name}}, nil
	}

	entries, ok := asList(toJSONValue(val))
	if !ok {
		return nil, fmt.Errorf("option reporter is %s, not a string or list", typeOf(val))
	}
	reporters := make([]Reporter, 0, len(entries))
	for i, entry := range entries {
		tuple, _ := asList(entry)
		if len(tuple) == 0 {
			return nil, fmt.Errorf("option reporter[%d] must be [name, options?]", i)
		}
		name, ok := tuple[0].(string)
		if !ok {
			return nil, fmt.Errorf("option reporter[%d] name must be a string", i)
		}
		r := Reporter{Name: name}
		if len(tuple) > 1 {
			r.Options, _ = asMap(tuple[1])
		}
		reporters = append(reporters, r)
	}
	return reporters, nil
}

// Shard returns the 1-based shard this run executes. ok is false when the
// run is not sharded.
func (c *Config) Shard() (current, total int, ok bool) {
	val, found := c.Get("shard")
	if !found {
		return 0, 0, false
	}
	shard, isMap := asMap(toJSONValue(val))
	if !isMap {
		return 0, 0, false
	}
	cur, _ := shard["current"].(int64)
	tot, _ := shard["total"].(int64)
	if cur < 1 || tot < 1 {
		return 0, 0, false
	}
	return int(cur), int(tot), true
}

// scalar returns the JSON-shaped value at path, or an error when no source sets it.
func (c *Config) scalar(path string) (any, error) {
	val, found := c.Get(path)
	if !found {
		return nil, fmt.Errorf("path not set: %s", path)
	}
	return toJSONValue(val), nil
}
