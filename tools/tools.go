package tools

import (
	"fmt"
	"strings"

	"github.com/h2non/filetype"
)

// NormalizeMap converts the map[any]any trees produced by yaml.v2 into
// map[string]any trees, recursing into nested maps and sequences.
func NormalizeMap(input map[any]any) map[string]any {
	output := make(map[string]any, len(input))
	for key, value := range input {
		strKey := fmt.Sprintf("%v", key) // Convert key to string
		output[strKey] = NormalizeValue(value)
	}
	return output
}

// NormalizeValue applies NormalizeMap to any map found inside v.
func NormalizeValue(v any) any {
	switch t := v.(type) {
	case map[any]any:
		return NormalizeMap(t)
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, e := range t {
			out[k] = NormalizeValue(e)
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i, e := range t {
			out[i] = NormalizeValue(e)
		}
		return out
	default:
		return v
	}
}

// ArchiveType returns the MIME type of the archive named by a file name, a
// path pattern or a bare extension such as "tar.gz". Only the last
// extension is considered, so "x.tar.gz" classifies as gzip.
func ArchiveType(name string) (string, error) {
	name = strings.TrimSuffix(name, `\)`)
	ext := name
	if i := strings.LastIndex(name, "."); i >= 0 {
		ext = name[i+1:]
	}
	ext = strings.ToLower(ext)
	if !filetype.IsSupported(ext) {
		return "", fmt.Errorf("unsupported archive extension %q in %q", ext, name)
	}
	kind := filetype.GetType(ext)
	if kind == filetype.Unknown || !isArchiveMIME(kind.MIME.Value) {
		return "", fmt.Errorf("%q is not an archive type (%s)", ext, kind.MIME.Value)
	}
	return kind.MIME.Value, nil
}

func isArchiveMIME(mime string) bool {
	switch mime {
	case "application/zip", "application/gzip", "application/x-tar",
		"application/x-bzip2", "application/x-xz", "application/x-7z-compressed":
		return true
	}
	return false
}
