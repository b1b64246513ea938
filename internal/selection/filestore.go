package selection

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"

	"gopkg.in/yaml.v3"
)

var safeName = regexp.MustCompile(`^[A-Za-z0-9._-]+$`)

// FileStore keeps snapshots as YAML files, one per name
type FileStore struct {
	dir string
}

// Compile-time interface check.
var _ SnapshotStore = (*FileStore)(nil)

// NewFileStore creates a store rooted at dir
func NewFileStore(dir string) *FileStore {
	return &FileStore{dir: dir}
}

// Save writes <dir>/<name>.yaml
func (f *FileStore) Save(_ context.Context, snap *Snapshot) error {
	path, err := f.path(snap.Name)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(f.dir, 0o755); err != nil {
		return fmt.Errorf("create snapshot dir: %w", err)
	}
	return WriteSnapshotFile(path, snap)
}

// Load reads <dir>/<name>.yaml
func (f *FileStore) Load(_ context.Context, name string) (*Snapshot, error) {
	path, err := f.path(name)
	if err != nil {
		return nil, err
	}
	return ReadSnapshotFile(path)
}

func (f *FileStore) path(name string) (string, error) {
	if !safeName.MatchString(name) {
		return "", fmt.Errorf("%w: snapshot name %q", ErrInvalidArgument, name)
	}
	return filepath.Join(f.dir, name+".yaml"), nil
}

// WriteSnapshotFile writes snap as YAML, replacing path atomically
func WriteSnapshotFile(path string, snap *Snapshot) error {
	data, err := yaml.Marshal(snap)
	if err != nil {
		return fmt.Errorf("marshal snapshot: %w", err)
	}

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write snapshot: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("write snapshot: %w", err)
	}
	return nil
}

// ReadSnapshotFile reads a YAML snapshot; the hash is checked by Restore
func ReadSnapshotFile(path string) (*Snapshot, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", ErrSnapshotNotFound, path)
	}
	if err != nil {
		return nil, fmt.Errorf("read snapshot: %w", err)
	}

	var snap Snapshot
	if err := yaml.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("parse snapshot %s: %w", path, err)
	}
	return &snap, nil
}
