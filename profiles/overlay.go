package profiles

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"

	"golang.org/x/exp/slices"

	"jibconf/merge"
	"jibconf/obj"
)

// Overlay applies over onto base with the append-only merge rule: sequences
// are concatenated, mappings merged per key, and a scalar field may only be
// set by one side. The inputs are not modified.
func Overlay(base, over obj.Profile) (obj.Profile, error) {
	var out obj.Profile
	var err error
	scalars := []struct {
		field    string
		dst      *string
		from, to string
	}{
		{"target_os", &out.TargetOS, base.TargetOS, over.TargetOS},
		{"target_cpu", &out.TargetCPU, base.TargetCPU, over.TargetCPU},
		{"target_platform", &out.TargetPlatform, base.TargetPlatform, over.TargetPlatform},
		{"build_os", &out.BuildOS, base.BuildOS, over.BuildOS},
		{"build_cpu", &out.BuildCPU, base.BuildCPU, over.BuildCPU},
		{"build_platform", &out.BuildPlatform, base.BuildPlatform, over.BuildPlatform},
		{"src", &out.Src, base.Src, over.Src},
		{"work_dir", &out.WorkDir, base.WorkDir, over.WorkDir},
	}
	for _, s := range scalars {
		if *s.dst, err = scalar(s.field, s.from, s.to); err != nil {
			return obj.Profile{}, err
		}
	}

	out.Dependencies = concat(base.Dependencies, over.Dependencies)
	out.ConfigureArgs = concat(base.ConfigureArgs, over.ConfigureArgs)
	out.DefaultMakeTargets = concat(base.DefaultMakeTargets, over.DefaultMakeTargets)
	out.Labels = concat(base.Labels, over.Labels)

	if out.Environment, err = overlayEnvironment(base.Environment, over.Environment); err != nil {
		return obj.Profile{}, err
	}
	if out.Artifacts, err = overlayArtifacts(base.Artifacts, over.Artifacts); err != nil {
		return obj.Profile{}, err
	}
	return out, nil
}

// OverlayAll merges a map of overlays onto a profile map. Names only present
// in overlays are added as copies.
func OverlayAll(base, overlays map[string]obj.Profile) (map[string]obj.Profile, error) {
	out := make(map[string]obj.Profile, len(base)+len(overlays))
	for name, p := range base {
		out[name] = Clone(p)
	}
	for _, name := range sortedNames(overlays) {
		p, ok := out[name]
		if !ok {
			out[name] = Clone(overlays[name])
			continue
		}
		merged, err := Overlay(p, overlays[name])
		if err != nil {
			return nil, fmt.Errorf("%s: %w", name, err)
		}
		out[name] = merged
	}
	return out, nil
}

// Clone returns a deep copy of p.
func Clone(p obj.Profile) obj.Profile {
	out := p
	out.Dependencies = slices.Clone(p.Dependencies)
	out.ConfigureArgs = slices.Clone(p.ConfigureArgs)
	out.DefaultMakeTargets = slices.Clone(p.DefaultMakeTargets)
	out.Labels = slices.Clone(p.Labels)
	if p.Environment != nil {
		out.Environment = make(map[string]string, len(p.Environment))
		for k, v := range p.Environment {
			out.Environment[k] = v
		}
	}
	if p.Artifacts != nil {
		out.Artifacts = make(map[string]obj.Artifact, len(p.Artifacts))
		for k, a := range p.Artifacts {
			a.Remote = slices.Clone(a.Remote)
			out.Artifacts[k] = a
		}
	}
	return out
}

func scalar(field, base, over string) (string, error) {
	switch {
	case over == "":
		return base, nil
	case base == "":
		return over, nil
	default:
		return "", fmt.Errorf("%w: %s is set to %q and cannot be extended with %q", merge.ErrIncompatible, field, base, over)
	}
}

func concat(a, b []string) []string {
	if len(a) == 0 && len(b) == 0 {
		return nil
	}
	out := make([]string, 0, len(a)+len(b))
	out = append(out, a...)
	return append(out, b...)
}

func overlayEnvironment(base, over map[string]string) (map[string]string, error) {
	if base == nil && over == nil {
		return nil, nil
	}
	out := make(map[string]string, len(base)+len(over))
	for k, v := range base {
		out[k] = v
	}
	for k, v := range over {
		merged, err := scalar("environment."+k, out[k], v)
		if err != nil {
			return nil, err
		}
		out[k] = merged
	}
	return out, nil
}

func overlayArtifacts(base, over map[string]obj.Artifact) (map[string]obj.Artifact, error) {
	if base == nil && over == nil {
		return nil, nil
	}
	out := make(map[string]obj.Artifact, len(base)+len(over))
	for k, a := range base {
		a.Remote = slices.Clone(a.Remote)
		out[k] = a
	}
	for _, kind := range sortedKinds(over) {
		o := over[kind]
		b, ok := out[kind]
		if !ok {
			o.Remote = slices.Clone(o.Remote)
			out[kind] = o
			continue
		}
		var a obj.Artifact
		var err error
		prefix := "artifacts." + kind + "."
		if a.Local, err = scalar(prefix+"local", b.Local, o.Local); err != nil {
			return nil, err
		}
		if a.Subdir, err = scalar(prefix+"subdir", b.Subdir, o.Subdir); err != nil {
			return nil, err
		}
		if a.Exploded, err = scalar(prefix+"exploded", b.Exploded, o.Exploded); err != nil {
			return nil, err
		}
		a.Remote = concat(b.Remote, o.Remote)
		out[kind] = a
	}
	return out, nil
}

func sortedNames(m map[string]obj.Profile) []string {
	names := make([]string, 0, len(m))
	for n := range m {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

func sortedKinds(m map[string]obj.Artifact) []string {
	kinds := make([]string, 0, len(m))
	for k := range m {
		kinds = append(kinds, k)
	}
	sort.Strings(kinds)
	return kinds
}

// ToTree converts a profile into the generic tree form used by merge.Trees.
func ToTree(p obj.Profile) (map[string]any, error) {
	b, err := json.Marshal(p)
	if err != nil {
		return nil, fmt.Errorf("profiles: encode profile: %w", err)
	}
	var tree map[string]any
	if err := json.Unmarshal(b, &tree); err != nil {
		return nil, fmt.Errorf("profiles: decode profile tree: %w", err)
	}
	return tree, nil
}

// listFields accept a lone string as shorthand for a one-element list.
var listFields = []string{"dependencies", "configure_args", "default_make_targets", "labels"}

// FromTree converts a generic tree back into a profile. Unknown keys and
// values of the wrong shape are errors.
func FromTree(tree any) (obj.Profile, error) {
	m, ok := tree.(map[string]any)
	if !ok {
		return obj.Profile{}, fmt.Errorf("profiles: %w: profile tree is %T, not a mapping", merge.ErrIncompatible, tree)
	}
	m = merge.Clone(m).(map[string]any)
	for _, f := range listFields {
		m[f] = promote(m[f])
	}
	if arts, ok := m["artifacts"].(map[string]any); ok {
		for _, a := range arts {
			if am, ok := a.(map[string]any); ok {
				am["remote"] = promote(am["remote"])
			}
		}
	}

	b, err := json.Marshal(m)
	if err != nil {
		return obj.Profile{}, fmt.Errorf("profiles: encode profile tree: %w", err)
	}
	dec := json.NewDecoder(bytes.NewReader(b))
	dec.DisallowUnknownFields()
	var p obj.Profile
	if err := dec.Decode(&p); err != nil {
		return obj.Profile{}, fmt.Errorf("profiles: %w: %v", merge.ErrIncompatible, err)
	}
	return p, nil
}

func promote(v any) any {
	if s, ok := v.(string); ok {
		return []any{s}
	}
	return v
}
