package profile

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"gopkg.in/yaml.v3"
)

// document is the on-disk layout.
type document struct {
	Profiles []Profile `yaml:"profiles"`
}

// FileStore is a MemoryStore persisted to a YAML file. Every change rewrites
// the file through a temporary file and a rename.
type FileStore struct {
	mem    *MemoryStore
	logger *slog.Logger
	path   string
	mu     sync.Mutex
}

// OpenFileStore loads path if it exists. A missing file is an empty store.
func OpenFileStore(path string, logger *slog.Logger) (*FileStore, error) {
	if logger == nil {
		logger = slog.Default()
	}
	f := &FileStore{mem: NewMemoryStore(), logger: logger, path: path}
	if err := f.load(); err != nil {
		return nil, err
	}
	return f, nil
}

// Path is the backing file.
func (f *FileStore) Path() string { return f.path }

// Get returns the named profile.
func (f *FileStore) Get(name string) (Profile, error) {
	return f.mem.Get(name)
}

// List returns all profiles ordered by name.
func (f *FileStore) List() ([]Profile, error) {
	return f.mem.List()
}

// Put stores p and saves the file.
func (f *FileStore) Put(p Profile) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.mem.Put(p); err != nil {
		return err
	}
	return f.save()
}

// Delete removes the named profile and saves the file.
func (f *FileStore) Delete(name string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.mem.Delete(name); err != nil {
		return err
	}
	return f.save()
}

func (f *FileStore) load() error {
	data, err := os.ReadFile(f.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			f.logger.Debug("no profile file yet", "path", f.path)
			return nil
		}
		return fmt.Errorf("reading profiles: %w", err)
	}
	var doc document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return fmt.Errorf("decoding profiles %s: %w", f.path, err)
	}
	f.mem.replace(doc.Profiles)
	f.logger.Debug("loaded profiles", "path", f.path, "count", len(doc.Profiles))
	return nil
}

func (f *FileStore) save() error {
	profiles, err := f.mem.List()
	if err != nil {
		return err
	}
	data, err := yaml.Marshal(document{Profiles: profiles})
	if err != nil {
		return fmt.Errorf("encoding profiles: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(f.path), 0o750); err != nil {
		return fmt.Errorf("creating profile directory: %w", err)
	}
	tempPath := f.path + ".tmp"
	file, err := os.Create(tempPath)
	if err != nil {
		return fmt.Errorf("creating temp profile file: %w", err)
	}
	defer func() {
		if removeErr := os.Remove(tempPath); removeErr != nil && !os.IsNotExist(removeErr) {
			f.logger.Debug("failed to remove temp file", "error", removeErr)
		}
	}()

	if _, err := file.Write(data); err != nil {
		_ = file.Close() //nolint:errcheck // already failing
		return fmt.Errorf("writing profiles: %w", err)
	}
	if err := file.Sync(); err != nil {
		_ = file.Close() //nolint:errcheck // already failing
		return fmt.Errorf("syncing profile file: %w", err)
	}
	if err := file.Close(); err != nil {
		return fmt.Errorf("closing profile file: %w", err)
	}
	if err := os.Rename(tempPath, f.path); err != nil {
		return fmt.Errorf("replacing profile file: %w", err)
	}
	f.logger.Debug("profiles saved", "path", f.path, "count", len(profiles))
	return nil
}
