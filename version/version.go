// Package version turns the DEFAULT_VERSION_* numbers into the dotted
// version string embedded in artifact names.
package version

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"sync"

	"golang.org/x/sync/singleflight"
)

// Keys in the version-numbers source, in positional order.
var Keys = []string{
	"DEFAULT_VERSION_MAJOR",
	"DEFAULT_VERSION_MINOR",
	"DEFAULT_VERSION_SECURITY",
	"DEFAULT_VERSION_PATCH",
}

var ErrMissingComponent = errors.New("missing version component")

// Loader reads the version-numbers key/value table.
type Loader func() (map[string]string, error)

// Resolver caches the version-numbers table after the first successful load.
// It is safe for concurrent use; concurrent first calls share one load.
type Resolver struct {
	load  Loader
	group singleflight.Group

	mu    sync.RWMutex
	table map[string]string
}

func NewResolver(load Loader) *Resolver {
	return &Resolver{load: load}
}

// FileResolver returns a Resolver reading the version-numbers file at path.
func FileResolver(path string) *Resolver {
	return NewResolver(func() (map[string]string, error) {
		return ReadFile(path)
	})
}

// Resolve returns the version string. Non-empty overrides replace the loaded
// components positionally (major, minor, security, patch).
func (r *Resolver) Resolve(overrides ...string) (string, error) {
	if len(overrides) > len(Keys) {
		return "", fmt.Errorf("version: %d overrides given, at most %d allowed", len(overrides), len(Keys))
	}
	table, err := r.numbers()
	if err != nil {
		return "", err
	}
	components := make([]string, len(Keys))
	for i, key := range Keys {
		if i < len(overrides) && overrides[i] != "" {
			components[i] = overrides[i]
			continue
		}
		v, ok := table[key]
		if !ok || v == "" {
			return "", fmt.Errorf("version: %w: %s", ErrMissingComponent, key)
		}
		components[i] = v
	}
	return Format(components)
}

func (r *Resolver) numbers() (map[string]string, error) {
	r.mu.RLock()
	table := r.table
	r.mu.RUnlock()
	if table != nil {
		return table, nil
	}

	v, err, _ := r.group.Do("version-numbers", func() (any, error) {
		r.mu.RLock()
		cached := r.table
		r.mu.RUnlock()
		if cached != nil {
			return cached, nil
		}
		if r.load == nil {
			return nil, errors.New("version: no version-numbers source configured")
		}
		loaded, err := r.load()
		if err != nil {
			return nil, fmt.Errorf("version: load version numbers: %w", err)
		}
		if loaded == nil {
			loaded = map[string]string{}
		}
		r.mu.Lock()
		r.table = loaded
		r.mu.Unlock()
		return loaded, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(map[string]string), nil
}

// Format joins numeric components with "." and drops the trailing run of
// zero components, keeping at least the first one.
//
//	9.0.0.0 -> 9
//	9.0.1.0 -> 9.0.1
func Format(components []string) (string, error) {
	if len(components) == 0 {
		return "", fmt.Errorf("version: %w: no components", ErrMissingComponent)
	}
	parts := make([]string, len(components))
	for i, c := range components {
		c = strings.TrimSpace(c)
		if _, err := strconv.Atoi(c); err != nil {
			return "", fmt.Errorf("version: %w: component %d is %q, not a number", ErrMissingComponent, i, c)
		}
		parts[i] = c
	}
	for len(parts) > 1 && parts[len(parts)-1] == "0" {
		parts = parts[:len(parts)-1]
	}
	return strings.Join(parts, "."), nil
}

// ReadFile parses a properties-style version-numbers file: KEY=VALUE or
// KEY:VALUE lines, with # and ! starting comment lines.
func ReadFile(path string) (map[string]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	table := make(map[string]string)
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") || strings.HasPrefix(line, "!") {
			continue
		}
		sep := strings.IndexAny(line, "=:")
		if sep < 0 {
			table[line] = ""
			continue
		}
		key := strings.TrimSpace(line[:sep])
		table[key] = strings.TrimSpace(line[sep+1:])
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return table, nil
}
