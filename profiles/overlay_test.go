package profiles

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"jibconf/merge"
	"jibconf/obj"
)

func TestOverlay_Appends(t *testing.T) {
	base := obj.Profile{
		TargetOS:      "linux",
		Dependencies:  []string{"boot_jdk", "gnumake"},
		ConfigureArgs: []string{"--a"},
		Labels:        []string{"open"},
		Environment:   map[string]string{"A": "1"},
		Artifacts: map[string]obj.Artifact{
			"jdk": {Local: "l", Remote: []string{"r1"}},
		},
	}
	over := obj.Profile{
		TargetCPU:     "x64",
		Dependencies:  []string{"gnumake"},
		ConfigureArgs: []string{"--b"},
		Labels:        []string{"debug"},
		Environment:   map[string]string{"B": "2"},
		Artifacts: map[string]obj.Artifact{
			"jdk": {Remote: []string{"r2"}, Subdir: "jdk-9"},
			"jre": {Local: "jl"},
		},
	}

	got, err := Overlay(base, over)
	require.NoError(t, err)

	want := obj.Profile{
		TargetOS:      "linux",
		TargetCPU:     "x64",
		Dependencies:  []string{"boot_jdk", "gnumake", "gnumake"},
		ConfigureArgs: []string{"--a", "--b"},
		Labels:        []string{"open", "debug"},
		Environment:   map[string]string{"A": "1", "B": "2"},
		Artifacts: map[string]obj.Artifact{
			"jdk": {Local: "l", Remote: []string{"r1", "r2"}, Subdir: "jdk-9"},
			"jre": {Local: "jl"},
		},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Overlay mismatch (-want +got):\n%s", diff)
	}
}

func TestOverlay_DoesNotMutateInputs(t *testing.T) {
	base := obj.Profile{
		ConfigureArgs: make([]string, 1, 8),
		Artifacts:     map[string]obj.Artifact{"jdk": {Local: "l", Remote: []string{"r"}}},
	}
	base.ConfigureArgs[0] = "--a"
	over := obj.Profile{ConfigureArgs: []string{"--b"}}

	got, err := Overlay(base, over)
	require.NoError(t, err)
	got.ConfigureArgs[0] = "--changed"
	a := got.Artifacts["jdk"]
	a.Remote[0] = "changed"

	assert.Equal(t, []string{"--a"}, base.ConfigureArgs)
	assert.Equal(t, []string{"r"}, base.Artifacts["jdk"].Remote)
}

func TestOverlay_EmptyIsIdentity(t *testing.T) {
	base := obj.Profile{
		TargetOS:      "windows",
		ConfigureArgs: []string{"--a"},
		Environment:   map[string]string{"K": "v"},
	}
	got, err := Overlay(base, obj.Profile{})
	require.NoError(t, err)
	assert.Equal(t, base, got)
}

func TestOverlay_ScalarConflicts(t *testing.T) {
	tests := []struct {
		name       string
		base, over obj.Profile
	}{
		{"target os", obj.Profile{TargetOS: "linux"}, obj.Profile{TargetOS: "windows"}},
		{"work dir", obj.Profile{WorkDir: "/a"}, obj.Profile{WorkDir: "/b"}},
		{"environment", obj.Profile{Environment: map[string]string{"K": "a"}}, obj.Profile{Environment: map[string]string{"K": "b"}}},
		{
			"artifact local",
			obj.Profile{Artifacts: map[string]obj.Artifact{"jdk": {Local: "a"}}},
			obj.Profile{Artifacts: map[string]obj.Artifact{"jdk": {Local: "b"}}},
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Overlay(tc.base, tc.over)
			require.ErrorIs(t, err, merge.ErrIncompatible)
		})
	}
}

func TestOverlayAll(t *testing.T) {
	base := map[string]obj.Profile{
		"a": {ConfigureArgs: []string{"--a"}},
		"b": {TargetOS: "linux"},
	}
	got, err := OverlayAll(base, map[string]obj.Profile{
		"a": {ConfigureArgs: []string{"--extra"}},
		"c": {TargetOS: "macosx"},
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"--a", "--extra"}, got["a"].ConfigureArgs)
	assert.Equal(t, "linux", got["b"].TargetOS)
	assert.Equal(t, "macosx", got["c"].TargetOS)
	assert.Equal(t, []string{"--a"}, base["a"].ConfigureArgs)

	_, err = OverlayAll(base, map[string]obj.Profile{"b": {TargetOS: "solaris"}})
	require.ErrorIs(t, err, merge.ErrIncompatible)
	assert.Contains(t, err.Error(), "b:")
}

// The typed overlay must agree with the generic tree merge wherever the
// generic merge yields a valid profile.
func TestOverlay_AgreesWithTreeMerge(t *testing.T) {
	base := obj.Profile{
		TargetOS:           "linux",
		Dependencies:       []string{"devkit"},
		DefaultMakeTargets: []string{"product-bundles"},
		Artifacts: map[string]obj.Artifact{
			"jdk": {Local: `bundles/\(jdk.*\)`, Remote: []string{"x"}},
		},
	}
	over := obj.Profile{
		TargetCPU:          "x86",
		Dependencies:       []string{"cups"},
		DefaultMakeTargets: []string{"profiles"},
		Labels:             []string{"open"},
		Artifacts: map[string]obj.Artifact{
			"jdk":  {Remote: []string{"y"}},
			"demo": {Local: "d"},
		},
		Environment: map[string]string{"JT_JAVA": "/boot"},
	}

	typed, err := Overlay(base, over)
	require.NoError(t, err)

	bt, err := ToTree(base)
	require.NoError(t, err)
	ot, err := ToTree(over)
	require.NoError(t, err)
	tree, err := merge.Trees(bt, ot)
	require.NoError(t, err)
	generic, err := FromTree(tree)
	require.NoError(t, err)

	if diff := cmp.Diff(typed, generic, cmpopts.EquateEmpty()); diff != "" {
		t.Errorf("typed vs generic overlay (-typed +generic):\n%s", diff)
	}
}

func TestFromTree_PromotesLoneStrings(t *testing.T) {
	p, err := FromTree(map[string]any{
		"labels":         "local",
		"configure_args": "--with-extra-cflags=-g",
		"artifacts": map[string]any{
			"jdk": map[string]any{"local": "l", "remote": "r"},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"local"}, p.Labels)
	assert.Equal(t, []string{"--with-extra-cflags=-g"}, p.ConfigureArgs)
	assert.Equal(t, []string{"r"}, p.Artifacts["jdk"].Remote)
}

func TestFromTree_Rejects(t *testing.T) {
	_, err := FromTree(map[string]any{"no_such_field": "x"})
	require.ErrorIs(t, err, merge.ErrIncompatible)

	// A scalar extended by the generic merge becomes a list.
	_, err = FromTree(map[string]any{"target_os": []any{"linux", "windows"}})
	require.ErrorIs(t, err, merge.ErrIncompatible)

	_, err = FromTree("linux")
	require.ErrorIs(t, err, merge.ErrIncompatible)
}
