// Package manifest handles slotbridge.toml project configuration.
package manifest

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"

	"github.com/chazu/slotbridge/layout"
)

// FileName is the manifest's file name.
const FileName = "slotbridge.toml"

// Defaults applied by Load.
const (
	DefaultStore = "file"
	DefaultDir   = ".slotbridge"
	DefaultAddr  = ":4590"
)

// Manifest represents a slotbridge.toml project configuration.
type Manifest struct {
	Project Project      `toml:"project" json:"project"`
	Layout  LayoutConfig `toml:"layout" json:"layout"`
	Server  ServerConfig `toml:"server" json:"server"`
	Log     LogConfig    `toml:"log" json:"log"`
	Wrap    []WrapEntry  `toml:"wrap" json:"wrap,omitempty"`

	// Dir is the directory containing the slotbridge.toml file (set at load time).
	Dir string `toml:"-" json:"-"`
}

// Project contains project metadata.
type Project struct {
	Name string `toml:"name" json:"name"`
}

// LayoutConfig selects where slot plans are stored.
type LayoutConfig struct {
	Store string `toml:"store" json:"store"` // "file" or "sqlite"
	Dir   string `toml:"dir" json:"dir"`
}

// ServerConfig configures the inspection service.
type ServerConfig struct {
	Addr string `toml:"addr" json:"addr"`
}

// LogConfig configures logging.
type LogConfig struct {
	Verbosity int    `toml:"verbosity" json:"verbosity"`
	File      string `toml:"file" json:"file"`
}

// WrapEntry names a Go package whose types get slot plans.
type WrapEntry struct {
	Import  string   `toml:"import" json:"import"`
	Include []string `toml:"include" json:"include,omitempty"`
}

// Default returns the manifest used when dir has no slotbridge.toml.
func Default(dir string) (*Manifest, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("cannot resolve path %s: %w", dir, err)
	}
	m := &Manifest{Dir: abs}
	m.applyDefaults()
	return m, nil
}

// Load parses and validates a slotbridge.toml file from the given directory.
func Load(dir string) (*Manifest, error) {
	path := filepath.Join(dir, FileName)
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("cannot read %s: %w", path, err)
	}

	var m Manifest
	if err := toml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("parse error in %s: %w", path, err)
	}

	m.Dir, err = filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("cannot resolve path %s: %w", dir, err)
	}

	m.applyDefaults()
	if err := m.Validate(); err != nil {
		return nil, fmt.Errorf("invalid %s: %w", path, err)
	}
	return &m, nil
}

// FindAndLoad walks up from startDir to find a slotbridge.toml file,
// then loads and returns the manifest. Returns nil if no manifest is found.
func FindAndLoad(startDir string) (*Manifest, error) {
	dir, err := filepath.Abs(startDir)
	if err != nil {
		return nil, err
	}

	for {
		path := filepath.Join(dir, FileName)
		if _, err := os.Stat(path); err == nil {
			return Load(dir)
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			// Reached root
			return nil, nil
		}
		dir = parent
	}
}

func (m *Manifest) applyDefaults() {
	if m.Layout.Store == "" {
		m.Layout.Store = DefaultStore
	}
	if m.Layout.Dir == "" {
		m.Layout.Dir = DefaultDir
	}
	if m.Server.Addr == "" {
		m.Server.Addr = DefaultAddr
	}
}

// StoreDir returns the absolute plan store directory.
func (m *Manifest) StoreDir() string {
	if filepath.IsAbs(m.Layout.Dir) {
		return m.Layout.Dir
	}
	return filepath.Join(m.Dir, m.Layout.Dir)
}

// OpenStore opens the configured plan store.
func (m *Manifest) OpenStore() (layout.Store, error) {
	dir := m.StoreDir()
	switch m.Layout.Store {
	case "sqlite":
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("creating store dir: %w", err)
		}
		return layout.NewSQLStore(filepath.Join(dir, "plans.db"))
	default:
		return layout.NewFileStore(dir), nil
	}
}

// LogPath returns the log file path, or nil to log to stderr.
func (m *Manifest) LogPath() *string {
	if m.Log.File == "" {
		return nil
	}
	path := m.Log.File
	if !filepath.IsAbs(path) {
		path = filepath.Join(m.Dir, path)
	}
	return &path
}

// Packages returns the import paths of the [[wrap]] entries.
func (m *Manifest) Packages() []string {
	paths := make([]string, 0, len(m.Wrap))
	for _, w := range m.Wrap {
		paths = append(paths, w.Import)
	}
	return paths
}

// Include returns the type filter for an import path, or nil for all types.
func (m *Manifest) Include(importPath string) map[string]bool {
	for _, w := range m.Wrap {
		if w.Import != importPath || len(w.Include) == 0 {
			continue
		}
		include := make(map[string]bool, len(w.Include))
		for _, name := range w.Include {
			include[name] = true
		}
		return include
	}
	return nil
}
