// Package lookup answers dependency attribute queries (install_path,
// home_path, download_path, download_dir) from the workspace third_party
// entries, falling back to a conventional layout under the install root.
package lookup

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"jibconf/obj"
)

const (
	InstallPath  = "install_path"
	HomePath     = "home_path"
	DownloadPath = "download_path"
	DownloadDir  = "download_dir"
)

// Table is an obj.Lookup backed by workspace configuration.
type Table struct {
	root    string
	entries map[string]obj.ThirdPartyConfig
	logger  *slog.Logger
}

// New builds a Table. root is the install root used for dependencies that
// have no third_party entry, or entries that leave an attribute empty.
func New(root string, thirdParty []obj.ThirdPartyConfig, logger *slog.Logger) *Table {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	t := &Table{
		root:    root,
		entries: make(map[string]obj.ThirdPartyConfig, len(thirdParty)),
		logger:  logger,
	}
	for _, tp := range thirdParty {
		t.entries[tp.Name] = tp
	}
	return t
}

func (t *Table) findThirdPartyConfig(dependency string) (obj.ThirdPartyConfig, bool) {
	tp, ok := t.entries[dependency]
	return tp, ok
}

// Get returns the attribute value for dependency. Unknown attributes yield
// the empty string.
func (t *Table) Get(dependency, attribute string) string {
	tp, configured := t.findThirdPartyConfig(dependency)

	var value string
	switch attribute {
	case InstallPath:
		value = tp.InstallPath
		if value == "" {
			value = filepath.Join(t.root, dependency)
		}
	case HomePath:
		value = tp.HomePath
		if value == "" {
			value = t.Get(dependency, InstallPath)
		}
	case DownloadDir:
		value = tp.DownloadDir
		if value == "" {
			value = filepath.Join(t.root, "downloads")
		}
	case DownloadPath:
		value = tp.DownloadPath
		if value == "" {
			value = filepath.Join(t.Get(dependency, DownloadDir), dependency)
		}
	default:
		t.logger.Warn("Unknown dependency attribute requested.", "dependency", dependency, "attribute", attribute)
		return ""
	}

	if !configured {
		t.logger.Debug("Using conventional dependency path.",
			"dependency", dependency, "attribute", attribute, "value", value)
	}
	return value
}

// Installed reports whether the install path of dependency exists.
func (t *Table) Installed(dependency string) bool {
	_, err := os.Stat(t.Get(dependency, InstallPath))
	return err == nil
}

var _ obj.Lookup = (*Table)(nil)
