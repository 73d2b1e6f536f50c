// FILE: lixenwraith/runconfig/merge.go
package runconfig

import (
	"fmt"
	"maps"
)

// Fragment is one partial, user-authored configuration object.
type Fragment map[string]any

// Composed is a configuration produced by Merge. Loaders return it instead of
// a plain Fragment to record that the configuration was composed.
type Composed struct {
	Fragment Fragment
}

// shallowMergeKeys are merged one level deep, later fragments winning key by key.
var shallowMergeKeys = []string{"expect", "use", "build"}

// Merge folds fragments left to right into one configuration.
//
// Top-level keys of later fragments overwrite earlier ones, except:
//   - expect, use and build are merged one level deep;
//   - webServer values are normalized to lists and concatenated;
//   - projects are matched by name against the previous result; a match
//     replaces top-level project keys and merges use one level deep, an
//     unmatched project is appended.
//
// A single fragment is returned unchanged. Inputs are never modified.
func Merge(fragments ...Fragment) (*Composed, error) {
	if len(fragments) == 0 {
		return nil, ErrNoFragments
	}

	result := fragments[0]
	for i := 1; i < len(fragments); i++ {
		next, err := mergeStep(result, fragments[i])
		if err != nil {
			return nil, fmt.Errorf("merge fragment %d: %w", i, err)
		}
		result = next
	}

	return &Composed{Fragment: result}, nil
}

// mergeStep folds config into acc and returns a new fragment.
func mergeStep(acc, config Fragment) (Fragment, error) {
	prevProjects := acc["projects"]

	result := make(Fragment, len(acc)+len(config))
	maps.Copy(result, acc)
	maps.Copy(result, config)

	for _, key := range shallowMergeKeys {
		result[key] = shallowMerge(asObject(acc[key]), asObject(config[key]))
	}

	webServer := toList(acc["webServer"])
	webServer = append(webServer, toList(config["webServer"])...)
	result["webServer"] = webServer

	// A nil projects value counts as undeclared and passes through untouched
	overrides := config["projects"]
	if prevProjects == nil && overrides == nil {
		return result, nil
	}

	base, err := projectList(prevProjects)
	if err != nil {
		return nil, err
	}
	override, err := projectList(overrides)
	if err != nil {
		return nil, err
	}
	result["projects"] = mergeProjects(base, override)

	return result, nil
}

// mergeProjects applies override projects onto base by name.
func mergeProjects(base, override []any) []any {
	// Later duplicates win but keep the first-seen position
	order := make([]projectKey, 0, len(override))
	byName := make(map[projectKey]any, len(override))
	for _, project := range override {
		key := keyOf(project)
		if _, seen := byName[key]; !seen {
			order = append(order, key)
		}
		byName[key] = project
	}

	projects := make([]any, 0, len(base)+len(override))
	for _, project := range base {
		key := keyOf(project)
		match, ok := byName[key]
		if !ok {
			projects = append(projects, project)
			continue
		}
		projects = append(projects, overrideProject(project, match))
		delete(byName, key)
	}

	for _, key := range order {
		if project, ok := byName[key]; ok {
			projects = append(projects, project)
		}
	}

	return projects
}

// overrideProject replaces base keys with override keys and merges use one level deep.
func overrideProject(base, override any) any {
	baseMap, baseOK := asMap(base)
	overrideMap, overrideOK := asMap(override)
	if !overrideOK {
		return override
	}
	if !baseOK {
		baseMap = nil
	}

	merged := make(map[string]any, len(baseMap)+len(overrideMap))
	maps.Copy(merged, baseMap)
	maps.Copy(merged, overrideMap)
	merged["use"] = shallowMerge(asObject(baseMap["use"]), asObject(overrideMap["use"]))
	return merged
}

// projectKey identifies a project by name. An absent name and an explicit
// nil name are distinct keys, each equal only to itself.
type projectKey struct {
	kind string
	name string
}

func keyOf(project any) projectKey {
	m, ok := asMap(project)
	if !ok {
		return projectKey{kind: "undefined"}
	}
	raw, present := m["name"]
	if !present {
		return projectKey{kind: "undefined"}
	}
	switch name := raw.(type) {
	case nil:
		return projectKey{kind: "null"}
	case string:
		return projectKey{kind: "string", name: name}
	default:
		return projectKey{kind: fmt.Sprintf("%T", name), name: fmt.Sprintf("%v", name)}
	}
}

// projectList returns the projects value as a list; nil yields an empty list.
func projectList(value any) ([]any, error) {
	if value == nil {
		return nil, nil
	}
	list, ok := asList(value)
	if !ok {
		return nil, fmt.Errorf("projects must be an array, got %T", value)
	}
	return list, nil
}

// shallowMerge spreads base then top into a new map.
func shallowMerge(base, top map[string]any) map[string]any {
	merged := make(map[string]any, len(base)+len(top))
	maps.Copy(merged, base)
	maps.Copy(merged, top)
	return merged
}

// toList normalizes an absent value to an empty list and a scalar to a one-element list.
func toList(value any) []any {
	if value == nil {
		return []any{}
	}
	if list, ok := asList(value); ok {
		return append([]any{}, list...)
	}
	return []any{value}
}

// asObject returns value as a map, or nil when it is not one.
func asObject(value any) map[string]any {
	m, _ := asMap(value)
	return m
}

// asMap accepts both map[string]any and Fragment.
func asMap(value any) (map[string]any, bool) {
	switch v := value.(type) {
	case map[string]any:
		return v, true
	case Fragment:
		return v, true
	default:
		return nil, false
	}
}

// asList accepts []any, []map[string]any and []Fragment.
func asList(value any) ([]any, bool) {
	switch v := value.(type) {
	case []any:
		return v, true
	case []map[string]any:
		out := make([]any, len(v))
		for i, item := range v {
			out[i] = item
		}
		return out, true
	case []Fragment:
		out := make([]any, len(v))
		for i, item := range v {
			out[i] = map[string]any(item)
		}
		return out, true
	default:
		return nil, false
	}
}
