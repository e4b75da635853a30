package rt

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/user"
	"path/filepath"
	"runtime"
	"strings"

	"gopkg.in/yaml.v2"

	"jibconf/obj"
	"jibconf/tools"
)

// ErrNoWorkspace is returned when no workspace file is found above the
// start directory.
var ErrNoWorkspace = errors.New("workspace file not found")

// LoadWorkspace reads the workspace file in dir. Paths starting with // are
// relative to dir.
func LoadWorkspace(dir string) (obj.WorkspaceConfig, error) {
	workspaceConfig := obj.WorkspaceConfig{}

	workspaceFile, err := os.Open(filepath.Join(dir, obj.WorkspaceFile))
	if err != nil {
		return workspaceConfig, err
	}
	defer workspaceFile.Close()

	err = yaml.NewDecoder(workspaceFile).Decode(&workspaceConfig)
	if err != nil && !errors.Is(err, io.EOF) {
		return workspaceConfig, fmt.Errorf("%s: %w", obj.WorkspaceFile, err)
	}

	for _, p := range []*string{
		&workspaceConfig.InstallRoot,
		&workspaceConfig.VersionNumbers,
		&workspaceConfig.SrcTopDir,
	} {
		*p = workspacePath(dir, *p)
	}
	for i := range workspaceConfig.ThirdParty {
		tp := &workspaceConfig.ThirdParty[i]
		tp.InstallPath = workspacePath(dir, tp.InstallPath)
		tp.HomePath = workspacePath(dir, tp.HomePath)
		tp.DownloadPath = workspacePath(dir, tp.DownloadPath)
		tp.DownloadDir = workspacePath(dir, tp.DownloadDir)
	}

	// yaml.v2 decodes nested mappings as map[any]any.
	for name, overlay := range workspaceConfig.ProfileOverlays {
		workspaceConfig.ProfileOverlays[name] = tools.NormalizeValue(overlay)
	}

	return workspaceConfig, nil
}

func workspacePath(dir, p string) string {
	if strings.HasPrefix(p, "//") {
		return filepath.Join(dir, p[2:])
	}
	return p
}

// DetectWorkspaceRoot walks up from start to the first directory holding
// the workspace file.
func DetectWorkspaceRoot(start string) (string, error) {
	dir, err := filepath.Abs(start)
	if err != nil {
		return "", err
	}

	for {
		if _, err := os.Stat(filepath.Join(dir, obj.WorkspaceFile)); err == nil {
			return dir, nil
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			return "", fmt.Errorf("%w: %s", ErrNoWorkspace, obj.WorkspaceFile)
		}
		dir = parent
	}
}

var (
	hostOS = map[string]string{
		"darwin": "macosx",
	}
	hostCPU = map[string]string{
		"amd64":   "x64",
		"386":     "x86",
		"sparc64": "sparcv9",
	}
)

// Platform maps a Go GOOS/GOARCH pair to the build system's names.
func Platform(goos, goarch string) (string, string) {
	osName, cpu := goos, goarch
	if v, ok := hostOS[goos]; ok {
		osName = v
	}
	if v, ok := hostCPU[goarch]; ok {
		cpu = v
	}
	return osName, cpu
}

// HostPlatform returns the build system's names for the running host.
func HostPlatform() (string, string) {
	return Platform(runtime.GOOS, runtime.GOARCH)
}

// BuildIDFunc returns a build id deriver yielding <user name>.<base name of
// workspaceDir>.
func BuildIDFunc(workspaceDir string) func(obj.Facts) string {
	return func(obj.Facts) string {
		name := "unknown"
		if u, err := user.Current(); err == nil && u.Username != "" {
			name = u.Username
		}
		// Windows user names carry the domain.
		if i := strings.LastIndex(name, `\`); i >= 0 {
			name = name[i+1:]
		}
		return name + "." + filepath.Base(workspaceDir)
	}
}

// NewLogger builds a text or json slog logger at the given level.
func NewLogger(levelStr, formatStr string, outW io.Writer) *slog.Logger {
	var level slog.Level
	switch levelStr {
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	handlerOpts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler

	if formatStr == "json" {
		handler = slog.NewJSONHandler(outW, handlerOpts)
	} else {
		handler = slog.NewTextHandler(outW, handlerOpts)
	}

	return slog.New(handler)
}
