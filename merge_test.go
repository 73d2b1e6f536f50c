// FILE: lixenwraith/runconfig/merge_test.go
package runconfig

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

func TestMerge(t *testing.T) {
	t.Run("NoFragments", func(t *testing.T) {
		_, err := Merge()
		assert.ErrorIs(t, err, ErrNoFragments)
	})

	t.Run("SingleFragmentUnchanged", func(t *testing.T) {
		in := Fragment{"timeout": int64(1000), "use": map[string]any{"headless": true}}
		composed, err := Merge(in)
		require.NoError(t, err)
		assert.Equal(t, in, composed.Fragment)
		assert.NotContains(t, composed.Fragment, "webServer")
	})

	t.Run("TopLevelOverwrite", func(t *testing.T) {
		composed, err := Merge(
			Fragment{"timeout": int64(1000), "retries": int64(1)},
			Fragment{"timeout": int64(2000)},
		)
		require.NoError(t, err)
		assert.Equal(t, int64(2000), composed.Fragment["timeout"])
		assert.Equal(t, int64(1), composed.Fragment["retries"])
	})

	t.Run("ShallowMergeOverwrite", func(t *testing.T) {
		composed, err := Merge(
			Fragment{"use": map[string]any{"a": 1, "b": 1}},
			Fragment{"use": map[string]any{"b": 2}},
		)
		require.NoError(t, err)
		assert.Equal(t, map[string]any{"a": 1, "b": 2}, composed.Fragment["use"])
	})

	t.Run("ShallowMergeIsOneLevel", func(t *testing.T) {
		composed, err := Merge(
			Fragment{"expect": map[string]any{"toPass": map[string]any{"timeout": 1, "intervals": []any{1}}}},
			Fragment{"expect": map[string]any{"toPass": map[string]any{"timeout": 2}}},
		)
		require.NoError(t, err)
		assert.Equal(t, map[string]any{"toPass": map[string]any{"timeout": 2}}, composed.Fragment["expect"])
	})

	t.Run("ShallowKeysAlwaysObjects", func(t *testing.T) {
		composed, err := Merge(Fragment{"name": "a"}, Fragment{"name": "b"})
		require.NoError(t, err)
		for _, key := range []string{"expect", "use", "build"} {
			assert.Equal(t, map[string]any{}, composed.Fragment[key], key)
		}
		assert.Equal(t, []any{}, composed.Fragment["webServer"])
		assert.NotContains(t, composed.Fragment, "projects")
	})

	t.Run("WebServerConcatenation", func(t *testing.T) {
		composed, err := Merge(
			Fragment{"webServer": map[string]any{"port": 1}},
			Fragment{"webServer": []any{map[string]any{"port": 2}}},
		)
		require.NoError(t, err)
		assert.Equal(t, []any{
			map[string]any{"port": 1},
			map[string]any{"port": 2},
		}, composed.Fragment["webServer"])
	})

	t.Run("ProjectOverrideByName", func(t *testing.T) {
		composed, err := Merge(
			Fragment{"projects": []any{map[string]any{"name": "a", "use": map[string]any{"x": 1}}}},
			Fragment{"projects": []any{map[string]any{"name": "a", "use": map[string]any{"x": 2, "y": 3}}}},
		)
		require.NoError(t, err)
		assert.Equal(t, []any{
			map[string]any{"name": "a", "use": map[string]any{"x": 2, "y": 3}},
		}, composed.Fragment["projects"])
	})

	t.Run("ProjectOverrideKeepsBaseKeys", func(t *testing.T) {
		composed, err := Merge(
			Fragment{"projects": []any{map[string]any{
				"name":    "a",
				"testDir": "./a",
				"use":     map[string]any{"x": 1, "z": 1},
			}}},
			Fragment{"projects": []any{map[string]any{"name": "a", "retries": 2, "use": map[string]any{"x": 2}}}},
		)
		require.NoError(t, err)
		assert.Equal(t, []any{map[string]any{
			"name":    "a",
			"testDir": "./a",
			"retries": 2,
			"use":     map[string]any{"x": 2, "z": 1},
		}}, composed.Fragment["projects"])
	})

	t.Run("UnmatchedProjectAppended", func(t *testing.T) {
		composed, err := Merge(
			Fragment{"projects": []any{map[string]any{"name": "a"}}},
			Fragment{"projects": []any{map[string]any{"name": "b"}}},
		)
		require.NoError(t, err)
		projects := composed.Fragment["projects"].([]any)
		require.Len(t, projects, 2)
		assert.Equal(t, "a", projects[0].(map[string]any)["name"])
		assert.Equal(t, "b", projects[1].(map[string]any)["name"])
	})

	t.Run("TransitiveOverride", func(t *testing.T) {
		composed, err := Merge(
			Fragment{"projects": []any{map[string]any{"name": "a", "use": map[string]any{"x": 1}}}},
			Fragment{"projects": []any{map[string]any{"name": "a", "use": map[string]any{"y": 2}}}},
			Fragment{"projects": []any{map[string]any{"name": "a", "use": map[string]any{"z": 3}}}},
		)
		require.NoError(t, err)
		assert.Equal(t, []any{
			map[string]any{"name": "a", "use": map[string]any{"x": 1, "y": 2, "z": 3}},
		}, composed.Fragment["projects"])
	})

	t.Run("DuplicateOverrideLaterWins", func(t *testing.T) {
		composed, err := Merge(
			Fragment{"projects": []any{}},
			Fragment{"projects": []any{
				map[string]any{"name": "b", "retries": 1},
				map[string]any{"name": "c"},
				map[string]any{"name": "b", "retries": 2},
			}},
		)
		require.NoError(t, err)
		assert.Equal(t, []any{
			map[string]any{"name": "b", "retries": 2},
			map[string]any{"name": "c"},
		}, composed.Fragment["projects"])
	})

	t.Run("UnnamedProjectsShareKey", func(t *testing.T) {
		composed, err := Merge(
			Fragment{"projects": []any{map[string]any{"testDir": "a"}}},
			Fragment{"projects": []any{map[string]any{"testDir": "b"}}},
		)
		require.NoError(t, err)
		projects := composed.Fragment["projects"].([]any)
		require.Len(t, projects, 1)
		assert.Equal(t, "b", projects[0].(map[string]any)["testDir"])
	})

	t.Run("NilNameDistinctFromAbsent", func(t *testing.T) {
		composed, err := Merge(
			Fragment{"projects": []any{map[string]any{"testDir": "a"}}},
			Fragment{"projects": []any{map[string]any{"name": nil, "testDir": "b"}}},
			Fragment{"projects": []any{map[string]any{"name": nil, "testDir": "c"}}},
		)
		require.NoError(t, err)
		assert.Equal(t, []any{
			map[string]any{"testDir": "a"},
			map[string]any{"name": nil, "testDir": "c", "use": map[string]any{}},
		}, composed.Fragment["projects"])
	})

	t.Run("EmptyNameDistinctFromUnnamed", func(t *testing.T) {
		composed, err := Merge(
			Fragment{"projects": []any{map[string]any{"testDir": "a"}}},
			Fragment{"projects": []any{map[string]any{"name": "", "testDir": "b"}}},
		)
		require.NoError(t, err)
		assert.Len(t, composed.Fragment["projects"], 2)
	})

	t.Run("ProjectsFromOneSideOnly", func(t *testing.T) {
		composed, err := Merge(
			Fragment{"projects": []any{map[string]any{"name": "a"}}},
			Fragment{"timeout": 1},
		)
		require.NoError(t, err)
		assert.Equal(t, []any{map[string]any{"name": "a"}}, composed.Fragment["projects"])
	})

	t.Run("NilProjectsPassThrough", func(t *testing.T) {
		composed, err := Merge(
			Fragment{"projects": nil, "timeout": 1},
			Fragment{"retries": 2},
		)
		require.NoError(t, err)
		value, present := composed.Fragment["projects"]
		assert.True(t, present)
		assert.Nil(t, value)
	})

	t.Run("ProjectsNotArray", func(t *testing.T) {
		_, err := Merge(
			Fragment{"projects": "chromium"},
			Fragment{"timeout": 1},
		)
		assert.Error(t, err)
	})

	t.Run("InputsNotMutated", func(t *testing.T) {
		baseUse := map[string]any{"x": 1}
		base := Fragment{
			"use":       baseUse,
			"webServer": []any{map[string]any{"port": 1}},
			"projects":  []any{map[string]any{"name": "a", "use": map[string]any{"x": 1}}},
		}
		before := deepCopy(map[string]any(base))

		_, err := Merge(base, Fragment{
			"use":       map[string]any{"x": 2},
			"webServer": map[string]any{"port": 2},
			"projects":  []any{map[string]any{"name": "a", "use": map[string]any{"x": 2}}},
		})
		require.NoError(t, err)
		if diff := cmp.Diff(before, map[string]any(base)); diff != "" {
			t.Errorf("base fragment mutated (-before +after):\n%s", diff)
		}
	})
}

func fragmentGen(prefix string) *rapid.Generator[Fragment] {
	return rapid.Custom(func(t *rapid.T) Fragment {
		f := Fragment{}
		for k, v := range rapid.MapOf(rapid.StringMatching(prefix+`[a-z]{1,4}`), rapid.Int64()).Draw(t, "top") {
			f[k] = v
		}
		if rapid.Bool().Draw(t, "hasUse") {
			use := map[string]any{}
			for k, v := range rapid.MapOf(rapid.SampledFrom([]string{"a", "b", "c"}), rapid.IntRange(0, 9)).Draw(t, "use") {
				use[k] = v
			}
			f["use"] = use
		}
		if rapid.Bool().Draw(t, "hasWebServer") {
			f["webServer"] = map[string]any{"port": rapid.IntRange(1, 9).Draw(t, "port")}
		}
		if rapid.Bool().Draw(t, "hasProjects") {
			names := rapid.SliceOfDistinct(rapid.SampledFrom([]string{"a", "b", "c"}), func(s string) string { return s }).Draw(t, "names")
			projects := make([]any, 0, len(names))
			for _, name := range names {
				projects = append(projects, map[string]any{
					"name": name,
					"use":  map[string]any{prefix: rapid.IntRange(0, 9).Draw(t, "v")},
				})
			}
			f["projects"] = projects
		}
		return f
	})
}

func TestMergeProperties(t *testing.T) {
	t.Run("DisjointUnion", rapid.MakeCheck(func(t *rapid.T) {
		a := fragmentGen("k").Draw(t, "a")
		b := fragmentGen("m").Draw(t, "b")

		composed, err := Merge(a, b)
		if err != nil {
			t.Fatal(err)
		}
		for _, f := range []Fragment{a, b} {
			for k, v := range f {
				if k == "use" || k == "webServer" || k == "projects" {
					continue
				}
				if !cmp.Equal(v, composed.Fragment[k]) {
					t.Fatalf("key %q: got %v, want %v", k, composed.Fragment[k], v)
				}
			}
		}
	}))

	t.Run("FoldEquivalence", rapid.MakeCheck(func(t *rapid.T) {
		a := fragmentGen("k").Draw(t, "a")
		b := fragmentGen("m").Draw(t, "b")
		c := fragmentGen("n").Draw(t, "c")

		all, err := Merge(a, b, c)
		if err != nil {
			t.Fatal(err)
		}
		ab, err := Merge(a, b)
		if err != nil {
			t.Fatal(err)
		}
		folded, err := Merge(ab.Fragment, c)
		if err != nil {
			t.Fatal(err)
		}
		if diff := cmp.Diff(all.Fragment, folded.Fragment); diff != "" {
			t.Fatalf("multi-argument merge differs from sequential folds (-all +folded):\n%s", diff)
		}
	}))

	t.Run("WebServerLength", rapid.MakeCheck(func(t *rapid.T) {
		frags := rapid.SliceOfN(fragmentGen("k"), 2, 5).Draw(t, "fragments")

		composed, err := Merge(frags...)
		if err != nil {
			t.Fatal(err)
		}
		want := 0
		for _, f := range frags {
			want += len(toList(f["webServer"]))
		}
		if got := len(composed.Fragment["webServer"].([]any)); got != want {
			t.Fatalf("webServer length %d, want %d", got, want)
		}
	}))

	t.Run("ProjectNamesUnique", rapid.MakeCheck(func(t *rapid.T) {
		frags := rapid.SliceOfN(fragmentGen("k"), 2, 5).Draw(t, "fragments")

		composed, err := Merge(frags...)
		if err != nil {
			t.Fatal(err)
		}
		list, _ := asList(composed.Fragment["projects"])
		seen := map[string]bool{}
		for _, p := range list {
			name := p.(map[string]any)["name"].(string)
			if seen[name] {
				t.Fatalf("duplicate project %q in %v", name, list)
			}
			seen[name] = true
		}
	}))
}
