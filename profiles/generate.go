// Package profiles expands the hand-written platform seeds into the full
// profile matrix: debug, slowdebug and open variants, zero and test-only
// profiles, artifact templates and reference implementation copies.
package profiles

import (
	"errors"
	"fmt"
	"strings"

	"golang.org/x/exp/slices"

	"jibconf/common"
	"jibconf/obj"
)

// ErrUnknownProfile is returned when a profile refers to a profile name that
// has not been generated.
var ErrUnknownProfile = errors.New("unknown profile")

const (
	PrebuiltTestProfile = "run-test-prebuilt"

	defaultMakeTargetArg = "--with-default-make-target="
)

type generator struct {
	facts    obj.Facts
	common   *common.Values
	lookup   obj.Lookup
	profiles map[string]obj.Profile
}

// Generate builds every profile for the given facts. Facts must already be
// completed (see obj.Facts.Complete).
func Generate(facts obj.Facts, c *common.Values, lookup obj.Lookup) (map[string]obj.Profile, error) {
	g := &generator{facts: facts, common: c, lookup: lookup}

	steps := []struct {
		name string
		run  func() error
	}{
		{"seed", g.seed},
		{"main base", g.applyMainBase},
		{"variants", g.deriveVariants},
		{"open extras", g.applyOpenExtras},
		{"open debug", g.deriveOpenDebug},
		{"zero", g.addZero},
		{"test", g.addTestOnly},
		{"prebuilt test", g.addPrebuiltTest},
		{"artifacts", g.attachArtifacts},
		{"publication artifacts", g.applyPublicationArtifacts},
		{"reference implementation", g.deriveReference},
	}
	for _, s := range steps {
		if err := s.run(); err != nil {
			return nil, fmt.Errorf("profiles: %s: %w", s.name, err)
		}
	}

	return SynthesizeDefaultMakeTargets(CompletePlatformAttributes(g.profiles)), nil
}

func (g *generator) seed() error {
	g.profiles = seedProfiles(g.common)
	return nil
}

// overlay replaces profile name with base+over.
func (g *generator) overlay(name string, base, over obj.Profile) error {
	p, err := Overlay(base, over)
	if err != nil {
		return fmt.Errorf("%s: %w", name, err)
	}
	g.profiles[name] = p
	return nil
}

func (g *generator) get(name string) (obj.Profile, error) {
	p, ok := g.profiles[name]
	if !ok {
		return obj.Profile{}, fmt.Errorf("%w: %s", ErrUnknownProfile, name)
	}
	return p, nil
}

// applyMainBase puts the main base underneath each seed, so the seed's
// lists are appended after the base lists.
func (g *generator) applyMainBase() error {
	for _, name := range g.common.MainProfileNames {
		p, err := g.get(name)
		if err != nil {
			return err
		}
		if err := g.overlay(name, g.common.MainBase, p); err != nil {
			return err
		}
	}
	return nil
}

// deriveVariants creates the debug, slowdebug and open siblings of each main
// profile.
func (g *generator) deriveVariants() error {
	variants := []struct {
		suffix string
		base   obj.Profile
	}{
		{common.DebugSuffix, g.common.DebugBase},
		{common.SlowdebugSuffix, g.common.SlowdebugBase},
		{common.OpenSuffix, g.common.OpenBase},
	}
	for _, v := range variants {
		for _, name := range g.common.MainProfileNames {
			p, err := g.get(name)
			if err != nil {
				return err
			}
			if err := g.overlay(name+v.suffix, p, v.base); err != nil {
				return err
			}
		}
	}
	return nil
}

func (g *generator) applyOpenExtras() error {
	merged, err := OverlayAll(g.profiles, openExtras)
	if err != nil {
		return err
	}
	g.profiles = merged
	return nil
}

func (g *generator) deriveOpenDebug() error {
	for _, name := range g.common.MainProfileNames {
		openName := name + common.OpenSuffix
		p, err := g.get(openName)
		if err != nil {
			return err
		}
		if err := g.overlay(openName+common.DebugSuffix, p, g.common.DebugBase); err != nil {
			return err
		}
	}
	return nil
}

func (g *generator) addZero() error {
	merged, err := OverlayAll(g.profiles, zeroProfiles(g.common))
	if err != nil {
		return err
	}
	g.profiles = merged
	for _, name := range zeroNames {
		if err := g.overlay(name, g.common.MainBase, g.profiles[name]); err != nil {
			return err
		}
		if err := g.overlay(name+common.DebugSuffix, g.profiles[name], g.common.DebugBase); err != nil {
			return err
		}
	}
	return nil
}

// addTestOnly adds the profiles that only run tests on the build host.
func (g *generator) addTestOnly() error {
	testOnly := make(map[string]obj.Profile, 2)
	for _, name := range []string{"run-test-jprt", "run-test"} {
		testOnly[name] = obj.Profile{
			TargetOS:     g.facts.BuildOS,
			TargetCPU:    g.facts.BuildCPU,
			Dependencies: []string{"jtreg", "gnumake", "boot_jdk"},
			Labels:       []string{"test"},
			Environment:  map[string]string{"JT_JAVA": g.common.BootJDKHome},
		}
	}
	merged, err := OverlayAll(g.profiles, testOnly)
	if err != nil {
		return err
	}
	g.profiles = merged
	return nil
}

// addPrebuiltTest adds the profile that tests the bundles of another,
// already built profile.
func (g *generator) addPrebuiltTest() error {
	tested := TestedProfile(g.facts)
	p := obj.Profile{
		Src: "src.conf",
		Dependencies: []string{
			"jtreg", "gnumake", tested + ".jdk", tested + ".test", "src.full",
		},
		WorkDir: g.lookup.Get("src.full", "install_path") + "/test",
		Environment: map[string]string{
			"PRODUCT_HOME":    g.lookup.Get(tested+".jdk", "home_path"),
			"TEST_IMAGE_DIR":  g.lookup.Get(tested+".test", "home_path"),
			"TEST_OUTPUT_DIR": g.facts.SrcTopDir,
		},
		Labels: []string{"test"},
	}
	if g.facts.Profile == PrebuiltTestProfile {
		ref, ok := g.profiles[tested]
		if !ok {
			return fmt.Errorf("%w: testedProfile is not defined: %s", ErrUnknownProfile, tested)
		}
		p.TargetOS = ref.TargetOS
		p.TargetCPU = ref.TargetCPU
	}
	merged, err := OverlayAll(g.profiles, map[string]obj.Profile{PrebuiltTestProfile: p})
	if err != nil {
		return err
	}
	g.profiles = merged
	return nil
}

// TestedProfile is the profile whose bundles run-test-prebuilt tests:
// facts.TestedProfile, or <build_os>-<build_cpu>.
func TestedProfile(facts obj.Facts) string {
	if facts.TestedProfile != "" {
		return facts.TestedProfile
	}
	return facts.BuildOS + "-" + facts.BuildCPU
}

func (g *generator) attachArtifacts() error {
	for _, name := range g.common.MainProfileNames {
		bp, ok := bundlePlatforms[name]
		if !ok {
			return fmt.Errorf("%w: no bundle platform for %s", ErrUnknownProfile, name)
		}
		mainArts := obj.Profile{Artifacts: g.common.MainArtifacts(bp.platform, bp.demoExt)}
		if err := g.overlay(name, g.profiles[name], mainArts); err != nil {
			return err
		}
		debugName := name + common.DebugSuffix
		debug := obj.Profile{Artifacts: g.common.DebugArtifacts(bp.platform)}
		if err := g.overlay(debugName, g.profiles[debugName], debug); err != nil {
			return err
		}
	}
	return nil
}

// applyPublicationArtifacts merges the per-channel overrides. Kinds the
// override does not mention keep their inherited templates.
func (g *generator) applyPublicationArtifacts() error {
	merged, err := OverlayAll(g.profiles, publicationArtifacts())
	if err != nil {
		return err
	}
	g.profiles = merged
	return nil
}

// deriveReference copies the open profiles that double as reference
// implementation builds and moves their uploads from GPL to BCL.
func (g *generator) deriveReference() error {
	for _, ri := range referenceProfiles {
		src, err := g.get(ri.from)
		if err != nil {
			return err
		}
		p := Clone(src)
		for kind, a := range p.Artifacts {
			remote := a.Remote
			if len(remote) == 0 {
				remote = []string{a.Local}
			}
			a.Remote = make([]string, len(remote))
			for i, r := range remote {
				a.Remote[i] = strings.ReplaceAll(r, "/GPL/", "/BCL/")
			}
			p.Artifacts[kind] = a
		}
		g.profiles[ri.name] = p
	}
	return nil
}

// CompletePlatformAttributes returns a copy of profiles where build_os and
// build_cpu default to the target values and both platform strings are
// recomputed. Running it again changes nothing.
func CompletePlatformAttributes(profiles map[string]obj.Profile) map[string]obj.Profile {
	out := make(map[string]obj.Profile, len(profiles))
	for name, p := range profiles {
		p = Clone(p)
		if p.BuildOS == "" {
			p.BuildOS = p.TargetOS
		}
		if p.BuildCPU == "" {
			p.BuildCPU = p.TargetCPU
		}
		p.TargetPlatform = obj.Platform(p.TargetOS, p.TargetCPU)
		p.BuildPlatform = obj.Platform(p.BuildOS, p.BuildCPU)
		out[name] = p
	}
	return out
}

// SynthesizeDefaultMakeTargets returns a copy of profiles where each
// profile's default make targets are expressed as a
// --with-default-make-target configure argument. An existing argument is
// rewritten in place, otherwise one is appended. Running it again changes
// nothing.
func SynthesizeDefaultMakeTargets(profiles map[string]obj.Profile) map[string]obj.Profile {
	out := make(map[string]obj.Profile, len(profiles))
	for name, p := range profiles {
		p = Clone(p)
		if len(p.DefaultMakeTargets) > 0 {
			arg := defaultMakeTargetArg + strings.Join(p.DefaultMakeTargets, " ")
			i := slices.IndexFunc(p.ConfigureArgs, func(a string) bool {
				return strings.HasPrefix(a, defaultMakeTargetArg)
			})
			if i >= 0 {
				p.ConfigureArgs[i] = arg
			} else {
				p.ConfigureArgs = append(p.ConfigureArgs, arg)
			}
		}
		out[name] = p
	}
	return out
}
