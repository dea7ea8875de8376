package storage

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
)

var keyPattern = regexp.MustCompile(`^[a-zA-Z0-9_.\-]+$`)

// FileStore keeps one file per key under <dir>/<scope>. Writes go to a temp
// file that is renamed over the target, so a reader never sees a torn value.
type FileStore struct {
	dir string
}

// NewFileStore creates the scope directory if needed
func NewFileStore(dir, scope string) (*FileStore, error) {
	if !keyPattern.MatchString(scope) {
		return nil, fmt.Errorf("invalid storage scope %q", scope)
	}
	full := filepath.Join(dir, scope)
	if err := os.MkdirAll(full, 0o700); err != nil {
		return nil, unavailable("mkdir", full, err)
	}
	return &FileStore{dir: full}, nil
}

// Dir returns the scope directory
func (s *FileStore) Dir() string {
	return s.dir
}

func (s *FileStore) path(key string) (string, error) {
	if !keyPattern.MatchString(key) {
		return "", fmt.Errorf("invalid storage key %q", key)
	}
	return filepath.Join(s.dir, key+".json"), nil
}

func (s *FileStore) Get(key string) (string, bool, error) {
	p, err := s.path(key)
	if err != nil {
		return "", false, err
	}
	data, err := os.ReadFile(p)
	if errors.Is(err, os.ErrNotExist) {
		return "", false, nil
	}
	if err != nil {
		return "", false, unavailable("read", key, err)
	}
	return string(data), true, nil
}

func (s *FileStore) Set(key, value string) error {
	p, err := s.path(key)
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(s.dir, key+".tmp-*")
	if err != nil {
		return unavailable("write", key, err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.WriteString(value); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return unavailable("write", key, err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return unavailable("sync", key, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return unavailable("write", key, err)
	}
	if err := os.Rename(tmpName, p); err != nil {
		os.Remove(tmpName)
		return unavailable("rename", key, err)
	}
	return nil
}

func (s *FileStore) Remove(key string) error {
	p, err := s.path(key)
	if err != nil {
		return err
	}
	if err := os.Remove(p); err != nil && !errors.Is(err, os.ErrNotExist) {
		return unavailable("remove", key, err)
	}
	return nil
}
