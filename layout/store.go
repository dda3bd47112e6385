package layout

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

// ErrPlanNotFound indicates no plan has been stored for a package.
var ErrPlanNotFound = errors.New("plan not found")

// Store persists plans keyed by package import path.
type Store interface {
	Load(pkg string) (*Plan, error)
	Save(p *Plan) error
	Close() error
}

// FileStore keeps one CBOR file per package in a directory.
type FileStore struct {
	dir string
}

// NewFileStore returns a store rooted at dir. The directory is created on
// first save.
func NewFileStore(dir string) *FileStore {
	return &FileStore{dir: dir}
}

func (s *FileStore) path(pkg string) string {
	return filepath.Join(s.dir, FileName(pkg)+".slots")
}

// Load reads the plan for pkg.
func (s *FileStore) Load(pkg string) (*Plan, error) {
	data, err := os.ReadFile(s.path(pkg))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, ErrPlanNotFound
		}
		return nil, fmt.Errorf("reading plan: %w", err)
	}
	return UnmarshalPlan(data)
}

// Save writes p, replacing any previous plan for the same package.
func (s *FileStore) Save(p *Plan) error {
	data, err := MarshalPlan(p)
	if err != nil {
		return fmt.Errorf("encoding plan: %w", err)
	}
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return fmt.Errorf("creating store dir: %w", err)
	}

	path := s.path(p.Package)
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("writing %s: %w", tmp, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("replacing %s: %w", path, err)
	}
	return nil
}

// Close is a no-op.
func (s *FileStore) Close() error { return nil }

// LoadOrEmpty returns the stored plan for pkg, or nil when there is none.
func LoadOrEmpty(s Store, pkg string) (*Plan, error) {
	p, err := s.Load(pkg)
	if errors.Is(err, ErrPlanNotFound) {
		return nil, nil
	}
	return p, err
}
