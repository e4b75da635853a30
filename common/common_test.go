package common

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"jibconf/obj"
)

var fakeLookup = obj.LookupFunc(func(dep, attr string) string {
	return "/jib/" + dep + "/" + attr
})

func params(f obj.Facts) Params {
	return Params{
		Facts:   f.Complete(),
		Version: "9",
		Lookup:  fakeLookup,
		BuildID: func(obj.Facts) string { return "user.jdk9" },
	}
}

func TestBuild_Defaults(t *testing.T) {
	v, err := Build(params(obj.Facts{TargetOS: "linux", TargetCPU: "x64"}))
	require.NoError(t, err)

	assert.Equal(t, "jpg.infra.builddeps", v.Organization)
	assert.Equal(t, "user.jdk9", v.BuildID)
	assert.Equal(t, "0", v.BuildNumber)
	assert.Len(t, v.MainProfileNames, 7)
	assert.Equal(t, []string{"boot_jdk", "gnumake", "jtreg"}, v.MainBase.Dependencies)
	assert.Equal(t, []string{"product-bundles", "test-bundles"}, v.MainBase.DefaultMakeTargets)
	assert.Equal(t, []string{
		"--with-version-opt=user.jdk9",
		"--enable-jtreg-failure-handler",
		"--with-version-build=0",
	}, v.MainBase.ConfigureArgs)
	assert.Equal(t, []string{"--enable-debug"}, v.DebugBase.ConfigureArgs)
	assert.Equal(t, []string{"debug"}, v.DebugBase.Labels)
	assert.Equal(t, []string{"--with-debug-level=slowdebug"}, v.SlowdebugBase.ConfigureArgs)
	assert.Equal(t, []string{"--enable-openjdk-only"}, v.OpenBase.ConfigureArgs)
	assert.Equal(t, []string{"--with-target-bits=32"}, v.ConfigureArgs32Bit)
	assert.Equal(t, "8", v.BootJDKRevision)
	assert.Equal(t, "/jib/boot_jdk/home_path/jdk1.8.0", v.BootJDKHome)
}

func TestBuild_CallerBuildIdentity(t *testing.T) {
	p := params(obj.Facts{TargetOS: "linux", TargetCPU: "x64", BuildID: "ci.123", BuildNumber: "17"})
	p.BuildID = func(obj.Facts) string {
		t.Fatal("deriver must not be called when a build id is given")
		return ""
	}
	v, err := Build(p)
	require.NoError(t, err)
	assert.Equal(t, "ci.123", v.BuildID)
	assert.Equal(t, "17", v.BuildNumber)
	assert.Contains(t, v.MainBase.ConfigureArgs, "--with-version-build=17")
}

func TestBuild_MissingCollaborators(t *testing.T) {
	p := params(obj.Facts{TargetOS: "linux", TargetCPU: "x64"})
	p.BuildID = nil
	_, err := Build(p)
	require.Error(t, err)

	p = params(obj.Facts{TargetOS: "linux", TargetCPU: "x64"})
	p.Lookup = nil
	_, err = Build(p)
	require.Error(t, err)
}

func TestBuild_BootJDK(t *testing.T) {
	sparc := obj.Facts{TargetOS: "solaris", TargetCPU: "sparcv9"}
	tests := []struct {
		name     string
		facts    obj.Facts
		probe    BrandProbe
		rev      string
		subdir   string
		home     string
		probeHit bool
	}{
		{
			name:  "sparc m7",
			facts: sparc,
			probe: func() (string, error) { return " SPARC-M7\n", nil },
			rev:   "8u20", subdir: "1.8.0_20",
			home: "/jib/boot_jdk/home_path/jdk1.8.0_20", probeHit: true,
		},
		{
			name:  "sparc other brand",
			facts: sparc,
			probe: func() (string, error) { return "SPARC-T5", nil },
			rev:   "8", subdir: "1.8.0",
			home: "/jib/boot_jdk/home_path/jdk1.8.0", probeHit: true,
		},
		{
			name:  "probe failure falls back",
			facts: sparc,
			probe: func() (string, error) { return "", errors.New("kstat: not found") },
			rev:   "8", subdir: "1.8.0",
			home: "/jib/boot_jdk/home_path/jdk1.8.0", probeHit: true,
		},
		{
			name:  "x64 never probes",
			facts: obj.Facts{TargetOS: "linux", TargetCPU: "x64"},
			rev:   "8", subdir: "1.8.0",
			home: "/jib/boot_jdk/home_path/jdk1.8.0",
		},
		{
			name:  "macosx bundle home",
			facts: obj.Facts{TargetOS: "macosx", TargetCPU: "x64"},
			rev:   "8", subdir: "1.8.0",
			home: "/jib/boot_jdk/home_path/jdk1.8.0.jdk/Contents/Home",
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			called := false
			p := params(tc.facts)
			if tc.probe != nil {
				p.Probe = func() (string, error) {
					called = true
					return tc.probe()
				}
			} else {
				p.Probe = func() (string, error) {
					called = true
					return sparcM7, nil
				}
			}
			v, err := Build(p)
			require.NoError(t, err)
			assert.Equal(t, tc.rev, v.BootJDKRevision)
			assert.Equal(t, tc.subdir, v.BootJDKSubdirPart)
			assert.Equal(t, tc.home, v.BootJDKHome)
			assert.Equal(t, tc.probeHit, called)
		})
	}
}

func TestMainArtifacts(t *testing.T) {
	v, err := Build(params(obj.Facts{TargetOS: "linux", TargetCPU: "x64"}))
	require.NoError(t, err)

	arts := v.MainArtifacts("osx-x64", "tar.gz")
	require.Len(t, arts, 6)
	assert.Equal(t, obj.Artifact{
		Local: `bundles/\(jdk.*bin.tar.gz\)`,
		Remote: []string{
			"bundles/osx-x64/jdk-9_osx-x64_bin.tar.gz",
			`bundles/osx-x64/\1`,
		},
		Subdir:   "jdk-9",
		Exploded: "images/jdk",
	}, arts["jdk"])
	assert.Equal(t, obj.Artifact{
		Local: `bundles/\(jdk.*bin-tests.tar.gz\)`,
		Remote: []string{
			"bundles/osx-x64/jdk-9_osx-x64_bin-tests.tar.gz",
			`bundles/osx-x64/\1`,
		},
		Exploded: "images/test",
	}, arts["test"])
	assert.Equal(t, "jre-9", arts["jre_symbols"].Subdir)

	win := v.MainArtifacts("windows-x64", "zip")
	assert.Equal(t, obj.Artifact{
		Local: `bundles/\(jdk.*demo.zip\)`,
		Remote: []string{
			"bundles/windows-x64/jdk-9_windows-x64_demo.zip",
			`bundles/windows-x64/\1`,
		},
	}, win["demo"])
}

func TestDebugArtifacts(t *testing.T) {
	v, err := Build(params(obj.Facts{TargetOS: "linux", TargetCPU: "x64"}))
	require.NoError(t, err)

	arts := v.DebugArtifacts("linux-x86")
	require.Len(t, arts, 5)
	assert.NotContains(t, arts, "demo")
	assert.Equal(t, `bundles/\(jre.*bin-debug-symbols.tar.gz\)`, arts["jre_symbols"].Local)
	assert.Equal(t, "bundles/linux-x86/jdk-9_linux-x86_bin-tests-debug.tar.gz", arts["test"].Remote[0])

	// Every remote either names the bundle or reuses the captured name.
	for kind, a := range arts {
		assert.Contains(t, a.Local, `\(`, kind)
		assert.Contains(t, a.Remote, `bundles/linux-x86/\1`, kind)
	}
}
