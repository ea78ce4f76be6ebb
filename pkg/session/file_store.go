package session

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"gopkg.in/yaml.v3"
)

const (
	fileMode = 0o600
	dirMode  = 0o700
)

// FileStore keeps the session in a YAML file readable only by its owner.
// Writes go to a temporary file in the same directory which is then renamed
// over the target, so readers never observe a half-written file.
type FileStore struct {
	mu   sync.Mutex
	path string
}

func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

// Path returns the file the store reads and writes.
func (f *FileStore) Path() string { return f.path }

func (f *FileStore) Load(ctx context.Context) (Session, error) {
	m, err := f.read()
	if err != nil {
		return Session{}, err
	}
	return load(m)
}

func (f *FileStore) Get(ctx context.Context, key string) (string, error) {
	m, err := f.read()
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return "", lookupMissing(key)
		}
		return "", err
	}
	return lookup(m, key)
}

func (f *FileStore) Save(ctx context.Context, s Session) error {
	if err := s.Validate(); err != nil {
		return err
	}
	data, err := yaml.Marshal(s)
	if err != nil {
		return errors.Join(ErrWriteFailed, err)
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	dir := filepath.Dir(f.path)
	if err := os.MkdirAll(dir, dirMode); err != nil {
		return errors.Join(ErrWriteFailed, err)
	}
	tmp, err := os.CreateTemp(dir, ".session-*.yaml")
	if err != nil {
		return errors.Join(ErrWriteFailed, err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName) // no-op after a successful rename

	if err := tmp.Chmod(fileMode); err != nil {
		tmp.Close()
		return errors.Join(ErrWriteFailed, err)
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return errors.Join(ErrWriteFailed, err)
	}
	if err := tmp.Close(); err != nil {
		return errors.Join(ErrWriteFailed, err)
	}
	if err := os.Rename(tmpName, f.path); err != nil {
		return errors.Join(ErrWriteFailed, err)
	}
	return nil
}

func (f *FileStore) Clear(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if err := os.Remove(f.path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return errors.Join(ErrWriteFailed, err)
	}
	return nil
}

func (f *FileStore) read() (map[string]string, error) {
	f.mu.Lock()
	data, err := os.ReadFile(f.path)
	f.mu.Unlock()
	if errors.Is(err, fs.ErrNotExist) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, errors.Join(ErrReadFailed, err)
	}

	var s Session
	if err := yaml.Unmarshal(data, &s); err != nil {
		return nil, errors.Join(ErrCorrupted, err)
	}
	if s.IsZero() {
		return nil, ErrNotFound
	}
	return s.Entries(), nil
}

func lookupMissing(key string) error {
	_, err := lookup(nil, key)
	return err
}
