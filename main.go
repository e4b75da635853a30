package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sort"

	"github.com/kballard/go-shellquote"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"gopkg.in/yaml.v2"

	"jibconf/lookup"
	"jibconf/obj"
	"jibconf/profiles"
	"jibconf/resolver"
	"jibconf/rt"
	"jibconf/runner"
	"jibconf/version"
)

// defaultVersionNumbers is where the version-numbers file lives in a source
// tree when the workspace does not name one.
const defaultVersionNumbers = "common/autoconf/version-numbers"

type options struct {
	facts          obj.Facts
	workspace      string
	versionNumbers string
	format         string
	validate       bool
	debug          bool
	logLevel       string
	logFormat      string
}

func main() {
	if err := newRootCmd(os.Stdout, os.Stderr).Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd(stdout, stderr io.Writer) *cobra.Command {
	opts := &options{}
	root := &cobra.Command{
		Use:           "jibconf",
		Short:         "Resolve build profiles, dependencies and artifacts for a source tree",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.SetOut(stdout)
	root.SetErr(stderr)

	flags := root.PersistentFlags()
	bindFactFlags(flags, &opts.facts)
	flags.StringVarP(&opts.workspace, "workspace", "w", "", "workspace directory (default: nearest directory holding "+obj.WorkspaceFile+")")
	flags.StringVar(&opts.versionNumbers, "version-numbers", "", "path of the version-numbers file")
	flags.StringVarP(&opts.format, "format", "f", "json", "output format: json or yaml")
	flags.BoolVar(&opts.validate, "validate", false, "validate the output record against its schema")
	flags.BoolVarP(&opts.debug, "debug", "d", false, "debug mode")
	flags.StringVar(&opts.logLevel, "log-level", "info", "log level: debug, info, warn or error")
	flags.StringVar(&opts.logFormat, "log-format", "text", "log format: text or json")

	root.AddCommand(
		newResolveCmd(opts),
		newProfilesCmd(opts),
		newVersionCmd(opts),
		newConfigureCmd(opts),
	)
	return root
}

// bindFactFlags registers one flag per input fact.
func bindFactFlags(fs *pflag.FlagSet, f *obj.Facts) {
	fs.StringVarP(&f.Profile, "profile", "p", "", "profile being resolved")
	fs.StringVar(&f.TargetOS, "target-os", "", "target OS (default: host)")
	fs.StringVar(&f.TargetCPU, "target-cpu", "", "target CPU (default: host)")
	fs.StringVar(&f.BuildOS, "build-os", "", "build OS (default: host)")
	fs.StringVar(&f.BuildCPU, "build-cpu", "", "build CPU (default: host)")
	fs.StringVar(&f.BuildOSEnv, "build-osenv", "", "unix layer of the build host, such as cygwin")
	fs.StringVar(&f.BuildOSEnvCPU, "build-osenv-cpu", "", "CPU of the build host unix layer")
	fs.StringVar(&f.BuildID, "build-id", "", "build id (default: <user>.<workspace directory>)")
	fs.StringVar(&f.BuildNumber, "build-number", "", "build number (default: 0)")
	fs.StringVar(&f.TestedProfile, "tested-profile", "", "profile tested by "+profiles.PrebuiltTestProfile)
}

// session is everything a command needs to run a resolution.
type session struct {
	facts  obj.Facts
	env    resolver.Env
	table  *lookup.Table
	logger *slog.Logger
}

func (o *options) session(stderr io.Writer) (*session, error) {
	level := o.logLevel
	if o.debug {
		level = "debug"
	}
	logger := rt.NewLogger(level, o.logFormat, stderr)

	dir := o.workspace
	if dir == "" {
		cwd, err := os.Getwd()
		if err != nil {
			return nil, err
		}
		dir, err = rt.DetectWorkspaceRoot(cwd)
		if errors.Is(err, rt.ErrNoWorkspace) {
			logger.Debug("No workspace file found, using the working directory.", "dir", cwd)
			dir = cwd
		} else if err != nil {
			return nil, err
		}
	}

	var cfg obj.WorkspaceConfig
	if _, err := os.Stat(filepath.Join(dir, obj.WorkspaceFile)); err == nil {
		if cfg, err = rt.LoadWorkspace(dir); err != nil {
			return nil, fmt.Errorf("error reading workspace file: %w", err)
		}
		logger.Debug("Workspace file loaded.", "dir", dir)
	}

	f := o.facts
	hostOS, hostCPU := rt.HostPlatform()
	if f.BuildOS == "" {
		f.BuildOS = hostOS
	}
	if f.BuildCPU == "" {
		f.BuildCPU = hostCPU
	}
	if f.TargetOS == "" {
		f.TargetOS = f.BuildOS
	}
	if f.TargetCPU == "" {
		f.TargetCPU = f.BuildCPU
	}
	if f.BuildID == "" {
		f.BuildID = cfg.BuildID
	}
	if f.BuildNumber == "" {
		f.BuildNumber = cfg.BuildNumber
	}
	if f.TestedProfile == "" {
		f.TestedProfile = cfg.TestedProfile
	}
	f.SrcTopDir = cfg.SrcTopDir
	if f.SrcTopDir == "" {
		f.SrcTopDir = dir
	}

	versionNumbers := o.versionNumbers
	if versionNumbers == "" {
		versionNumbers = cfg.VersionNumbers
	}
	if versionNumbers == "" {
		versionNumbers = filepath.Join(dir, defaultVersionNumbers)
	}
	installRoot := cfg.InstallRoot
	if installRoot == "" {
		installRoot = filepath.Join(dir, "build", "jib", "install")
	}

	table := lookup.New(installRoot, cfg.ThirdParty, logger)
	return &session{
		facts: f,
		table: table,
		env: resolver.Env{
			Versions:         version.FileResolver(versionNumbers),
			Lookup:           table,
			Probe:            runner.CPUBrand,
			BuildID:          rt.BuildIDFunc(dir),
			Logger:           logger,
			VersionOverrides: cfg.Version.Positional(),
			Overlays:         cfg.ProfileOverlays,
		},
		logger: logger,
	}, nil
}

func (o *options) resolve(cmd *cobra.Command) (obj.Output, *session, error) {
	s, err := o.session(cmd.ErrOrStderr())
	if err != nil {
		return obj.Output{}, nil, err
	}
	out, err := resolver.Resolve(s.facts, s.env)
	if err != nil {
		return obj.Output{}, nil, err
	}
	if o.validate {
		if err := resolver.ValidateOutput(out); err != nil {
			return obj.Output{}, nil, err
		}
		s.logger.Debug("Output record is valid.")
	}
	return out, s, nil
}

func (o *options) encode(w io.Writer, v any) error {
	switch o.format {
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		enc.SetEscapeHTML(false)
		return enc.Encode(v)
	case "yaml":
		b, err := yaml.Marshal(v)
		if err != nil {
			return err
		}
		_, err = w.Write(b)
		return err
	default:
		return fmt.Errorf("unknown output format %q", o.format)
	}
}

func newResolveCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "resolve",
		Short: "Print the complete configuration record",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			out, _, err := opts.resolve(cmd)
			if err != nil {
				return err
			}
			return opts.encode(cmd.OutOrStdout(), out)
		},
	}
}

func newProfilesCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "profiles",
		Short: "List the names of all generated profiles",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			out, _, err := opts.resolve(cmd)
			if err != nil {
				return err
			}
			names := make([]string, 0, len(out.Profiles))
			for name := range out.Profiles {
				names = append(names, name)
			}
			sort.Strings(names)
			for _, name := range names {
				fmt.Fprintln(cmd.OutOrStdout(), name)
			}
			return nil
		},
	}
}

func newVersionCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version string of the source tree",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := opts.session(cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			v, err := s.env.Versions.Resolve(s.env.VersionOverrides...)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), v)
			return nil
		},
	}
}

func newConfigureCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "configure <profile>",
		Short: "Print the configure command line of a profile",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			name := args[0]
			if opts.facts.Profile == "" {
				opts.facts.Profile = name
			}
			out, s, err := opts.resolve(cmd)
			if err != nil {
				return err
			}
			line, err := configureLine(out, name)
			if err != nil {
				return err
			}
			for _, dep := range out.Profiles[name].Dependencies {
				if !s.table.Installed(dep) {
					s.logger.Warn("Dependency is not installed.", "dependency", dep,
						"install_path", s.table.Get(dep, lookup.InstallPath))
				}
			}
			fmt.Fprintln(cmd.OutOrStdout(), line)
			return nil
		},
	}
}

// configureLine joins a profile's configure arguments with those of its
// dependencies, in dependency order, into a shell command.
func configureLine(out obj.Output, name string) (string, error) {
	p, ok := out.Profiles[name]
	if !ok {
		return "", fmt.Errorf("%w: %s", profiles.ErrUnknownProfile, name)
	}
	args := []string{"bash", "configure"}
	args = append(args, p.ConfigureArgs...)
	for _, dep := range p.Dependencies {
		args = append(args, out.Dependencies[dep].ConfigureArgs...)
	}
	return shellquote.Join(args...), nil
}
