package project

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/multierr"
)

// ErrNoProject is returned by Load when nothing has been saved yet.
var ErrNoProject = errors.New("no saved project")

// Store persists a single project.
type Store interface {
	Load() (*Project, error)
	Save(p *Project) error
}

// FileStore keeps the project in one JSON file.
type FileStore struct {
	Path string
}

var _ Store = (*FileStore)(nil)

// Load reads the project file; a missing file yields ErrNoProject.
func (s *FileStore) Load() (*Project, error) {
	f, err := os.Open(s.Path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, ErrNoProject
	}
	if err != nil {
		return nil, fmt.Errorf("unable to open project file: %w", err)
	}
	defer f.Close()
	return Decode(f)
}

// Save writes to a temporary file next to Path and renames it into place so a
// failed write never truncates the previous save.
func (s *FileStore) Save(p *Project) (err error) {
	dir := filepath.Dir(s.Path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("unable to create project directory: %w", err)
	}
	tmp, err := os.CreateTemp(dir, filepath.Base(s.Path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("unable to create temporary project file: %w", err)
	}
	defer func() {
		if err != nil {
			err = multierr.Append(err, os.Remove(tmp.Name()))
		}
	}()

	if err = p.Encode(tmp); err != nil {
		return multierr.Append(err, tmp.Close())
	}
	if err = tmp.Close(); err != nil {
		return fmt.Errorf("unable to write project file: %w", err)
	}
	if err = os.Rename(tmp.Name(), s.Path); err != nil {
		return fmt.Errorf("unable to replace project file: %w", err)
	}
	return nil
}
