package profiles

import (
	"jibconf/common"
	"jibconf/obj"
)

// seedProfiles are the hand-written platform records the main profiles are
// generated from.
func seedProfiles(c *common.Values) map[string]obj.Profile {
	return map[string]obj.Profile{
		"linux-x64": {
			TargetOS:           "linux",
			TargetCPU:          "x64",
			Dependencies:       []string{"devkit"},
			ConfigureArgs:      []string{"--with-zlib=system"},
			DefaultMakeTargets: []string{"docs-bundles"},
		},
		"linux-x86": {
			TargetOS:     "linux",
			TargetCPU:    "x86",
			BuildCPU:     "x64",
			Dependencies: []string{"devkit"},
			ConfigureArgs: concat(c.ConfigureArgs32Bit,
				[]string{"--with-jvm-variants=minimal,server", "--with-zlib=system"}),
		},
		"macosx-x64": {
			TargetOS:      "macosx",
			TargetCPU:     "x64",
			Dependencies:  []string{"devkit"},
			ConfigureArgs: []string{"--with-zlib=system"},
		},
		"solaris-x64": {
			TargetOS:      "solaris",
			TargetCPU:     "x64",
			Dependencies:  []string{"devkit", "cups"},
			ConfigureArgs: []string{"--with-zlib=system", "--enable-dtrace"},
		},
		"solaris-sparcv9": {
			TargetOS:      "solaris",
			TargetCPU:     "sparcv9",
			Dependencies:  []string{"devkit", "cups"},
			ConfigureArgs: []string{"--with-zlib=system", "--enable-dtrace"},
		},
		"windows-x64": {
			TargetOS:     "windows",
			TargetCPU:    "x64",
			Dependencies: []string{"devkit", "freetype"},
		},
		"windows-x86": {
			TargetOS:      "windows",
			TargetCPU:     "x86",
			BuildCPU:      "x64",
			Dependencies:  []string{"devkit", "freetype"},
			ConfigureArgs: concat(c.ConfigureArgs32Bit, nil),
		},
	}
}

// openExtras are applied to open profiles after derivation. The linux open
// profiles back reference builds and also produce the compact profile images.
var openExtras = map[string]obj.Profile{
	"linux-x86-open": {
		DefaultMakeTargets: []string{"profiles"},
		ConfigureArgs:      []string{"--with-jvm-variants=client,server"},
	},
}

var zeroNames = []string{"linux-x64-zero", "linux-x86-zero"}

// zeroProfiles build the zero (interpreter only) JVM variant.
func zeroProfiles(c *common.Values) map[string]obj.Profile {
	zeroArgs := []string{
		"--with-zlib=system",
		"--with-jvm-variants=zero",
		"--enable-libffi-bundling",
	}
	return map[string]obj.Profile{
		"linux-x64-zero": {
			TargetOS:      "linux",
			TargetCPU:     "x64",
			Dependencies:  []string{"devkit"},
			ConfigureArgs: concat(nil, zeroArgs),
		},
		"linux-x86-zero": {
			TargetOS:      "linux",
			TargetCPU:     "x86",
			BuildCPU:      "x64",
			Dependencies:  []string{"devkit"},
			ConfigureArgs: concat(c.ConfigureArgs32Bit, zeroArgs),
		},
	}
}

type bundlePlatform struct {
	platform string
	demoExt  string
}

// bundlePlatforms name each main profile in bundle file names. Mac bundles
// are named osx and Windows demo bundles are zip files.
var bundlePlatforms = map[string]bundlePlatform{
	"linux-x64":       {"linux-x64", "tar.gz"},
	"linux-x86":       {"linux-x86", "tar.gz"},
	"macosx-x64":      {"osx-x64", "tar.gz"},
	"solaris-x64":     {"solaris-x64", "tar.gz"},
	"solaris-sparcv9": {"solaris-sparcv9", "tar.gz"},
	"windows-x64":     {"windows-x64", "zip"},
	"windows-x86":     {"windows-x86", "zip"},
}

const gplRoot = "bundles/openjdk/GPL/"

// gpl publishes every captured bundle under a fixed GPL directory.
func gpl(dir string, locals map[string]string) map[string]obj.Artifact {
	out := make(map[string]obj.Artifact, len(locals))
	for kind, local := range locals {
		out[kind] = obj.Artifact{
			Local:  "bundles/" + local,
			Remote: []string{gplRoot + dir + "/" + common.BackRef},
		}
	}
	return out
}

// publicationArtifacts are the per-channel artifact overrides: the GPL
// publication paths of the open profiles.
func publicationArtifacts() map[string]obj.Profile {
	return map[string]obj.Profile{
		"linux-x64-open": {
			Artifacts: gpl("linux-x64", map[string]string{
				"jdk":          `\(jdk.*bin.tar.gz\)`,
				"jre":          `\(jre.*bin.tar.gz\)`,
				"test":         `\(jdk.*bin-tests.tar.gz\)`,
				"jdk_symbols":  `\(jdk.*bin-symbols.tar.gz\)`,
				"jre_symbols":  `\(jre.*bin-symbols.tar.gz\)`,
				"demo":         `\(jdk.*demo.tar.gz\)`,
				"doc_api_spec": `\(jdk.*doc-api-spec.tar.gz\)`,
			}),
		},
		"linux-x86-open": {
			Artifacts: gpl("profile/linux-x86", map[string]string{
				"jdk": `\(jdk.*bin.tar.gz\)`,
				"jre": `\(jre.*[0-9]_linux-x86_bin.tar.gz\)`,
			}),
		},
		"windows-x86-open": {
			Artifacts: gpl("windows-x86", map[string]string{
				"jdk":         `\(jdk.*bin.tar.gz\)`,
				"jre":         `\(jre.*bin.tar.gz\)`,
				"test":        `\(jdk.*bin-tests.tar.gz\)`,
				"jdk_symbols": `\(jdk.*bin-symbols.tar.gz\)`,
				"jre_symbols": `\(jre.*bin-symbols.tar.gz\)`,
				"demo":        `\(jdk.*demo.zip\)`,
			}),
		},
		"linux-x86-open-debug": {
			Artifacts: gpl("profile/linux-x86", map[string]string{
				"jdk":         `\(jdk.*bin-debug.tar.gz\)`,
				"jre":         `\(jre.*bin-debug.tar.gz\)`,
				"jdk_symbols": `\(jdk.*bin-debug-symbols.tar.gz\)`,
			}),
		},
	}
}

// referenceProfiles maps each reference implementation profile to the open
// profile it is copied from.
var referenceProfiles = []struct{ name, from string }{
	{"linux-x64-ri", "linux-x64-open"},
	{"linux-x86-ri", "linux-x86-open"},
	{"linux-x86-ri-debug", "linux-x86-open-debug"},
	{"windows-x86-ri", "windows-x86-open"},
}
