// Package deps builds the table of external build dependencies referenced by
// profile dependency lists.
package deps

import (
	"errors"
	"fmt"
	"sort"

	"jibconf/common"
	"jibconf/obj"
	"jibconf/tools"
)

// ErrLayout is returned for a descriptor that does not describe exactly one
// fetch layout, or names a file that is not an archive.
var ErrLayout = errors.New("invalid dependency layout")

const (
	moduleExt    = "tar.gz"
	legacyServer = "javare"
)

// devkitRevisions are keyed by platform string (<os>_<cpu>).
var devkitRevisions = map[string]string{
	"linux_x64":       "gcc4.9.2-OEL6.4+1.1",
	"macosx_x64":      "Xcode6.3-MacOSX10.9+1.0",
	"solaris_x64":     "SS12u4-Solaris11u1+1.0",
	"solaris_sparcv9": "SS12u4-Solaris11u1+1.0",
	"windows_x64":     "VS2013SP4+1.0",
}

// Build returns the dependency table for completed facts.
func Build(facts obj.Facts, c *common.Values, lookup obj.Lookup) (map[string]obj.Dependency, error) {
	if lookup == nil {
		return nil, fmt.Errorf("deps: no dependency lookup configured")
	}

	// Boot JDK bundles name 32-bit x86 as i586.
	bootCPU := facts.BuildCPU
	if bootCPU == "x86" {
		bootCPU = "i586"
	}
	bootPlatform := facts.BuildOS + "-" + bootCPU

	// 32-bit targets are built with the 64-bit devkit of the same OS.
	devkitPlatform := facts.TargetPlatform
	if facts.TargetCPU == "x86" {
		devkitPlatform = facts.TargetOS + "_x64"
	}

	makeHome := lookup.Get("gnumake", "install_path")
	makeModule := "gnumake-" + facts.BuildPlatform
	makeBin := makeHome + "/bin"
	if facts.BuildOS == "windows" {
		makeModule = "gnumake-" + facts.BuildOSEnvPlatform
		makeBin = makeHome + "/cygwin/bin"
	}

	table := map[string]obj.Dependency{
		"boot_jdk": {
			Server:          legacyServer,
			Module:          "jdk",
			Revision:        c.BootJDKRevision,
			ChecksumFile:    bootPlatform + "/MD5_VALUES",
			File:            bootPlatform + "/jdk-" + c.BootJDKRevision + "-" + bootPlatform + ".tar.gz",
			ConfigureArgs:   []string{"--with-boot-jdk=" + c.BootJDKHome},
			EnvironmentPath: c.BootJDKHome,
		},
		"devkit": module(c, "devkit-"+devkitPlatform, devkitRevisions[devkitPlatform]),
		"build_devkit": module(c, "devkit-"+facts.BuildPlatform,
			devkitRevisions[facts.BuildPlatform]),
		"cups": module(c, "", "1.0118+1.0"),
		"jtreg": {
			Server:          legacyServer,
			Revision:        "4.2",
			BuildNumber:     "b04",
			ChecksumFile:    "MD5_VALUES",
			File:            "jtreg_bin-4.2.zip",
			EnvironmentName: "JT_HOME",
			EnvironmentPath: lookup.Get("jtreg", "install_path") + "/jtreg/bin",
		},
		"freetype": module(c, "freetype-"+facts.TargetPlatform, "2.3.4+1.0"),
	}

	gnumake := module(c, makeModule, "4.0+1.0")
	gnumake.ConfigureArgs = []string{"MAKE=" + makeBin + "/make"}
	gnumake.EnvironmentPath = makeBin
	table["gnumake"] = gnumake

	for _, name := range sortedNames(table) {
		if err := Validate(name, table[name]); err != nil {
			return nil, err
		}
	}
	return table, nil
}

func module(c *common.Values, name, revision string) obj.Dependency {
	return obj.Dependency{
		Organization: c.Organization,
		Ext:          moduleExt,
		Module:       name,
		Revision:     revision,
	}
}

// LayoutOf reports which fetch layout a descriptor uses.
func LayoutOf(d obj.Dependency) (obj.Layout, error) {
	isModule := d.Organization != "" || d.Ext != ""
	isLegacy := d.Server != "" || d.File != "" || d.Path != "" ||
		d.ChecksumFile != "" || d.ChecksumPath != ""
	switch {
	case isModule && isLegacy:
		return "", fmt.Errorf("%w: both module and legacy fields are set", ErrLayout)
	case isModule:
		return obj.LayoutModule, nil
	case isLegacy:
		return obj.LayoutLegacy, nil
	default:
		return "", fmt.Errorf("%w: neither module nor legacy fields are set", ErrLayout)
	}
}

// Validate checks that d uses exactly one layout and that whatever it
// fetches is a known archive format.
func Validate(name string, d obj.Dependency) error {
	layout, err := LayoutOf(d)
	if err != nil {
		return fmt.Errorf("deps: %s: %w", name, err)
	}
	switch layout {
	case obj.LayoutModule:
		// Revision may be empty: build_devkit has no entry for every
		// build platform and is only fetched where it does.
		if d.Organization == "" {
			return fmt.Errorf("deps: %s: %w: module layout needs an organization", name, ErrLayout)
		}
		if _, err := tools.ArchiveType(d.Ext); err != nil {
			return fmt.Errorf("deps: %s: %w: %v", name, ErrLayout, err)
		}
	case obj.LayoutLegacy:
		target := d.File
		if target == "" {
			target = d.Path
		}
		if target == "" {
			return fmt.Errorf("deps: %s: %w: legacy layout needs a file or a path", name, ErrLayout)
		}
		if _, err := tools.ArchiveType(target); err != nil {
			return fmt.Errorf("deps: %s: %w: %v", name, ErrLayout, err)
		}
	}
	return nil
}

func sortedNames(m map[string]obj.Dependency) []string {
	names := make([]string, 0, len(m))
	for n := range m {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}
