// Package common computes the values shared by the profile and dependency
// builders: build identity, the main profile names, the overlay bases, the
// artifact templates and the boot JDK location.
package common

import (
	"fmt"
	"io"
	"log/slog"
	"strings"

	"jibconf/obj"
)

const (
	Organization = "jpg.infra.builddeps"

	DebugSuffix     = "-debug"
	SlowdebugSuffix = "-slowdebug"
	OpenSuffix      = "-open"

	// Capture group markers used in artifact path patterns.
	groupOpen  = `\(`
	groupClose = `\)`
	// BackRef refers to the text captured by an artifact's local pattern.
	BackRef = `\1`

	sparcM7 = "SPARC-M7"
)

// MainProfileNames are the canonical platform profiles, in generation order.
var MainProfileNames = []string{
	"linux-x64", "linux-x86", "macosx-x64", "solaris-x64",
	"solaris-sparcv9", "windows-x64", "windows-x86",
}

// BrandProbe returns the host CPU brand string.
type BrandProbe func() (string, error)

type Params struct {
	Facts   obj.Facts
	Version string
	Lookup  obj.Lookup
	// BuildID derives a build id when Facts.BuildID is empty.
	BuildID func(obj.Facts) string
	// Probe is consulted only on sparcv9 build hosts. Nil means unknown.
	Probe  BrandProbe
	Logger *slog.Logger
}

// Values are computed once per resolution call and never mutated afterwards.
type Values struct {
	Organization string
	BuildID      string
	BuildNumber  string
	Version      string

	MainProfileNames []string

	MainBase      obj.Profile
	DebugBase     obj.Profile
	SlowdebugBase obj.Profile
	OpenBase      obj.Profile

	ConfigureArgs32Bit []string

	BootJDKRevision   string
	BootJDKSubdirPart string
	BootJDKHome       string
}

func Build(p Params) (*Values, error) {
	if p.Lookup == nil {
		return nil, fmt.Errorf("common: no dependency lookup configured")
	}
	logger := p.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	v := &Values{
		Organization:       Organization,
		Version:            p.Version,
		BuildNumber:        "0",
		MainProfileNames:   append([]string(nil), MainProfileNames...),
		ConfigureArgs32Bit: []string{"--with-target-bits=32"},
	}

	v.BuildID = p.Facts.BuildID
	if v.BuildID == "" {
		if p.BuildID == nil {
			return nil, fmt.Errorf("common: build id not given and no build id deriver configured")
		}
		v.BuildID = p.BuildID(p.Facts)
	}
	if p.Facts.BuildNumber != "" {
		v.BuildNumber = p.Facts.BuildNumber
	}

	v.MainBase = obj.Profile{
		Dependencies:       []string{"boot_jdk", "gnumake", "jtreg"},
		DefaultMakeTargets: []string{"product-bundles", "test-bundles"},
		ConfigureArgs: []string{
			"--with-version-opt=" + v.BuildID,
			"--enable-jtreg-failure-handler",
			"--with-version-build=" + v.BuildNumber,
		},
	}
	v.DebugBase = obj.Profile{
		ConfigureArgs: []string{"--enable-debug"},
		Labels:        []string{"debug"},
	}
	v.SlowdebugBase = obj.Profile{
		ConfigureArgs: []string{"--with-debug-level=slowdebug"},
		Labels:        []string{"slowdebug"},
	}
	v.OpenBase = obj.Profile{
		ConfigureArgs: []string{"--enable-openjdk-only"},
		Labels:        []string{"open"},
	}

	// JDK 8 GA does not run on SPARC M7; those hosts need a later update.
	v.BootJDKRevision, v.BootJDKSubdirPart = "8", "1.8.0"
	if p.Facts.BuildCPU == "sparcv9" && p.Probe != nil {
		brand, err := p.Probe()
		switch {
		case err != nil:
			logger.Warn("CPU brand probe failed, using default boot JDK", "error", err)
		case strings.TrimSpace(brand) == sparcM7:
			v.BootJDKRevision, v.BootJDKSubdirPart = "8u20", "1.8.0_20"
		default:
			logger.Debug("CPU brand probed", "brand", strings.TrimSpace(brand))
		}
	}

	v.BootJDKHome = p.Lookup.Get("boot_jdk", "home_path") + "/jdk" + v.BootJDKSubdirPart
	if p.Facts.BuildOS == "macosx" {
		v.BootJDKHome += ".jdk/Contents/Home"
	}
	logger.Debug("Common values computed.",
		"build_id", v.BuildID, "build_number", v.BuildNumber, "boot_jdk", v.BootJDKRevision)
	return v, nil
}

type bundleKind struct {
	name     string
	image    string // jdk or jre
	suffix   string
	subdir   bool
	exploded string
}

var mainBundles = []bundleKind{
	{"jdk", "jdk", "bin", true, "images/jdk"},
	{"jre", "jre", "bin", true, "images/jre"},
	{"test", "jdk", "bin-tests", false, "images/test"},
	{"jdk_symbols", "jdk", "bin-symbols", true, "images/jdk"},
	{"jre_symbols", "jre", "bin-symbols", true, "images/jre"},
}

var debugBundles = []bundleKind{
	{"jdk", "jdk", "bin-debug", true, "images/jdk"},
	{"jre", "jre", "bin-debug", true, "images/jre"},
	{"test", "jdk", "bin-tests-debug", false, "images/test"},
	{"jdk_symbols", "jdk", "bin-debug-symbols", true, "images/jdk"},
	{"jre_symbols", "jre", "bin-debug-symbols", true, "images/jre"},
}

// MainArtifacts returns the artifact templates of a main profile. pf is the
// platform name used in bundle names, demoExt the demo bundle extension.
func (v *Values) MainArtifacts(pf, demoExt string) map[string]obj.Artifact {
	out := v.artifacts(pf, mainBundles)
	out["demo"] = obj.Artifact{
		Local: "bundles/" + groupOpen + "jdk.*demo." + demoExt + groupClose,
		Remote: []string{
			"bundles/" + pf + "/jdk-" + v.Version + "_" + pf + "_demo." + demoExt,
			"bundles/" + pf + "/" + BackRef,
		},
	}
	return out
}

// DebugArtifacts returns the artifact templates of a debug profile.
func (v *Values) DebugArtifacts(pf string) map[string]obj.Artifact {
	return v.artifacts(pf, debugBundles)
}

func (v *Values) artifacts(pf string, kinds []bundleKind) map[string]obj.Artifact {
	out := make(map[string]obj.Artifact, len(kinds)+1)
	for _, k := range kinds {
		a := obj.Artifact{
			Local: "bundles/" + groupOpen + k.image + ".*" + k.suffix + ".tar.gz" + groupClose,
			Remote: []string{
				"bundles/" + pf + "/" + k.image + "-" + v.Version + "_" + pf + "_" + k.suffix + ".tar.gz",
				"bundles/" + pf + "/" + BackRef,
			},
			Exploded: k.exploded,
		}
		if k.subdir {
			a.Subdir = k.image + "-" + v.Version
		}
		out[k.name] = a
	}
	return out
}
