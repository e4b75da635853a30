package obj

// Facts are the caller-supplied environment facts for one resolution call.
type Facts struct {
	Profile     string `yaml:"profile"`
	BuildID     string `yaml:"build_id"`
	BuildNumber string `yaml:"build_number"`

	TargetOS       string `yaml:"target_os"`
	TargetCPU      string `yaml:"target_cpu"`
	TargetPlatform string `yaml:"target_platform"`
	BuildOS        string `yaml:"build_os"`
	BuildCPU       string `yaml:"build_cpu"`
	BuildPlatform  string `yaml:"build_platform"`

	// The build_osenv facts describe the unix layer on Windows hosts (Cygwin).
	BuildOSEnv         string `yaml:"build_osenv"`
	BuildOSEnvCPU      string `yaml:"build_osenv_cpu"`
	BuildOSEnvPlatform string `yaml:"build_osenv_platform"`

	TestedProfile string `yaml:"tested_profile"`
	SrcTopDir     string `yaml:"src_top_dir"`
}

// Complete returns a copy of f with the build facts defaulted from the target
// facts and every platform string derived as <os>_<cpu>.
func (f Facts) Complete() Facts {
	if f.BuildOS == "" {
		f.BuildOS = f.TargetOS
	}
	if f.BuildCPU == "" {
		f.BuildCPU = f.TargetCPU
	}
	if f.BuildOSEnv == "" {
		f.BuildOSEnv = f.BuildOS
	}
	if f.BuildOSEnvCPU == "" {
		f.BuildOSEnvCPU = f.BuildCPU
	}
	if f.TargetPlatform == "" {
		f.TargetPlatform = Platform(f.TargetOS, f.TargetCPU)
	}
	if f.BuildPlatform == "" {
		f.BuildPlatform = Platform(f.BuildOS, f.BuildCPU)
	}
	if f.BuildOSEnvPlatform == "" {
		f.BuildOSEnvPlatform = Platform(f.BuildOSEnv, f.BuildOSEnvCPU)
	}
	return f
}

func Platform(os, cpu string) string {
	return os + "_" + cpu
}

// Lookup resolves dependency attributes that are computed outside the
// profile engine. Valid attributes are install_path, download_path,
// download_dir and home_path.
type Lookup interface {
	Get(dependency, attribute string) string
}

// LookupFunc adapts a plain function to Lookup.
type LookupFunc func(dependency, attribute string) string

func (f LookupFunc) Get(dependency, attribute string) string {
	return f(dependency, attribute)
}

// Profile is a named build configuration.
type Profile struct {
	TargetOS           string              `json:"target_os,omitempty" yaml:"target_os,omitempty"`
	TargetCPU          string              `json:"target_cpu,omitempty" yaml:"target_cpu,omitempty"`
	TargetPlatform     string              `json:"target_platform,omitempty" yaml:"target_platform,omitempty"`
	BuildOS            string              `json:"build_os,omitempty" yaml:"build_os,omitempty"`
	BuildCPU           string              `json:"build_cpu,omitempty" yaml:"build_cpu,omitempty"`
	BuildPlatform      string              `json:"build_platform,omitempty" yaml:"build_platform,omitempty"`
	Dependencies       []string            `json:"dependencies,omitempty" yaml:"dependencies,omitempty"`
	ConfigureArgs      []string            `json:"configure_args,omitempty" yaml:"configure_args,omitempty"`
	DefaultMakeTargets []string            `json:"default_make_targets,omitempty" yaml:"default_make_targets,omitempty"`
	Labels             []string            `json:"labels,omitempty" yaml:"labels,omitempty"`
	Artifacts          map[string]Artifact `json:"artifacts,omitempty" yaml:"artifacts,omitempty"`
	Environment        map[string]string   `json:"environment,omitempty" yaml:"environment,omitempty"`
	Src                string              `json:"src,omitempty" yaml:"src,omitempty"`
	WorkDir            string              `json:"work_dir,omitempty" yaml:"work_dir,omitempty"`
}

// Artifact describes where a build product is found locally and where it is
// published. Local holds one \( \) capture group that Remote entries may
// reference as \1.
type Artifact struct {
	Local    string   `json:"local,omitempty" yaml:"local,omitempty"`
	Remote   []string `json:"remote,omitempty" yaml:"remote,omitempty"`
	Subdir   string   `json:"subdir,omitempty" yaml:"subdir,omitempty"`
	Exploded string   `json:"exploded,omitempty" yaml:"exploded,omitempty"`
}

// Dependency is either a module-layout descriptor (Organization set) or a
// legacy server-layout descriptor (Server set).
type Dependency struct {
	Server       string `json:"server,omitempty" yaml:"server,omitempty"`
	Organization string `json:"organization,omitempty" yaml:"organization,omitempty"`
	Ext          string `json:"ext,omitempty" yaml:"ext,omitempty"`
	Module       string `json:"module,omitempty" yaml:"module,omitempty"`
	Revision     string `json:"revision,omitempty" yaml:"revision,omitempty"`

	BuildNumber  string `json:"build_number,omitempty" yaml:"build_number,omitempty"`
	ChecksumFile string `json:"checksum_file,omitempty" yaml:"checksum_file,omitempty"`
	File         string `json:"file,omitempty" yaml:"file,omitempty"`
	ChecksumPath string `json:"checksum_path,omitempty" yaml:"checksum_path,omitempty"`
	Path         string `json:"path,omitempty" yaml:"path,omitempty"`

	ConfigureArgs    []string `json:"configure_args,omitempty" yaml:"configure_args,omitempty"`
	EnvironmentName  string   `json:"environment_name,omitempty" yaml:"environment_name,omitempty"`
	EnvironmentValue string   `json:"environment_value,omitempty" yaml:"environment_value,omitempty"`
	EnvironmentPath  string   `json:"environment_path,omitempty" yaml:"environment_path,omitempty"`
}

type Layout string

const (
	LayoutModule Layout = "module"
	LayoutLegacy Layout = "legacy"
)

// Output is the record handed to the build orchestration tool.
type Output struct {
	FormatVersion             string                `json:"format_version" yaml:"format_version"`
	Organization              string                `json:"organization" yaml:"organization"`
	Product                   string                `json:"product" yaml:"product"`
	Version                   string                `json:"version" yaml:"version"`
	OutputBasedir             string                `json:"output_basedir" yaml:"output_basedir"`
	ConfigurationConfigureArg string                `json:"configuration_configure_arg" yaml:"configuration_configure_arg"`
	ConfigurationMakeArg      string                `json:"configuration_make_arg" yaml:"configuration_make_arg"`
	SrcBundleExcludes         string                `json:"src_bundle_excludes" yaml:"src_bundle_excludes"`
	ConfBundleIncludes        string                `json:"conf_bundle_includes" yaml:"conf_bundle_includes"`
	Profiles                  map[string]Profile    `json:"profiles" yaml:"profiles"`
	Dependencies              map[string]Dependency `json:"dependencies" yaml:"dependencies"`
}

type WorkspaceConfig struct {
	InstallRoot     string             `yaml:"install_root"`
	VersionNumbers  string             `yaml:"version_numbers"`
	BuildID         string             `yaml:"build_id"`
	BuildNumber     string             `yaml:"build_number"`
	TestedProfile   string             `yaml:"tested_profile"`
	SrcTopDir       string             `yaml:"src_top_dir"`
	Version         VersionOverrides   `yaml:"version"`
	ThirdParty      []ThirdPartyConfig `yaml:"third_party"`
	ProfileOverlays map[string]any     `yaml:"profile_overlays"`
}

type VersionOverrides struct {
	Major    string `yaml:"major"`
	Minor    string `yaml:"minor"`
	Security string `yaml:"security"`
	Patch    string `yaml:"patch"`
}

// Positional returns the overrides in major, minor, security, patch order.
func (v VersionOverrides) Positional() []string {
	return []string{v.Major, v.Minor, v.Security, v.Patch}
}

type ThirdPartyConfig struct {
	Name         string `yaml:"name"`
	InstallPath  string `yaml:"install_path"`
	HomePath     string `yaml:"home_path"`
	DownloadPath string `yaml:"download_path"`
	DownloadDir  string `yaml:"download_dir"`
}

var WorkspaceFile = "jibconf.yaml"
