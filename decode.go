// FILE: lixenwraith/runconfig/decode.go
package runconfig

import (
	"fmt"
	"reflect"
	"regexp"
	"strings"
	"time"

	"github.com/mitchellh/mapstructure"
)

// Scan decodes the effective configuration under basePath into target.
// The target must be a non-nil pointer to a struct or map; fields map by the
// "json" tag. An empty basePath decodes the whole configuration.
func (c *Config) Scan(basePath string, target any) error {
	rv := reflect.ValueOf(target)
	if rv.Kind() != reflect.Ptr || rv.IsNil() {
		return fmt.Errorf("target of Scan must be a non-nil pointer, got %T", target)
	}

	nested := c.Effective()
	return decodeSection(nested, basePath, target)
}

// ScanProject decodes the effective options of the named project into target.
func (c *Config) ScanProject(name string, target any) error {
	project, ok := c.Project(name)
	if !ok {
		return fmt.Errorf("project not found: %q", name)
	}
	return decodeSection(project.Use, "", target)
}

// decodeSection navigates to basePath and decodes the map found there.
func decodeSection(nested map[string]any, basePath string, target any) error {
	path := strings.TrimSuffix(basePath, ".")

	sectionData, found := navigateToPath(nested, path)
	if !found || sectionData == nil {
		sectionData = make(map[string]any) // Empty section
	}

	sectionMap, ok := sectionData.(map[string]any)
	if !ok {
		return fmt.Errorf("path %q refers to non-map value (type %T)", path, sectionData)
	}

	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           target,
		TagName:          "json",
		WeaklyTypedInput: true,
		DecodeHook:       decodeHook(),
		ZeroFields:       true,
	})
	if err != nil {
		return fmt.Errorf("decoder creation failed: %w", err)
	}

	if err := decoder.Decode(sectionMap); err != nil {
		return fmt.Errorf("decode failed for path %q: %w", path, err)
	}

	return nil
}

// decodeHook returns the composite decode hook for all type conversions
func decodeHook() mapstructure.DecodeHookFunc {
	return mapstructure.ComposeDecodeHookFunc(
		stringToRegexpHookFunc(),
		millisecondsToDurationHookFunc(),
		mapstructure.StringToTimeDurationHookFunc(),
		mapstructure.StringToSliceHookFunc(","),
	)
}

// stringToRegexpHookFunc compiles strings into *regexp.Regexp fields
func stringToRegexpHookFunc() mapstructure.DecodeHookFunc {
	return func(f reflect.Type, t reflect.Type, data any) (any, error) {
		if t != reflect.TypeOf(&regexp.Regexp{}) {
			return data, nil
		}
		switch v := data.(type) {
		case *regexp.Regexp:
			return v, nil
		case regexp.Regexp:
			return &v, nil
		case string:
			re, err := regexp.Compile(v)
			if err != nil {
				return nil, fmt.Errorf("invalid pattern %q: %w", v, err)
			}
			return re, nil
		}
		return data, nil
	}
}

// millisecondsToDurationHookFunc treats numbers as millisecond timeouts for time.Duration fields
func millisecondsToDurationHookFunc() mapstructure.DecodeHookFunc {
	return func(f reflect.Type, t reflect.Type, data any) (any, error) {
		if t != reflect.TypeOf(time.Duration(0)) {
			return data, nil
		}
		switch f.Kind() {
		case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
			return time.Duration(reflect.ValueOf(data).Int()) * time.Millisecond, nil
		case reflect.Float32, reflect.Float64:
			return time.Duration(reflect.ValueOf(data).Float() * float64(time.Millisecond)), nil
		}
		return data, nil
	}
}
