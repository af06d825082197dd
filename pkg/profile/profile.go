// Package profile stores named viewer configurations: home base, zone and
// model preset. Callers receive a Repository rather than reaching for a
// process-wide store.
package profile

import (
	"errors"
	"sort"
	"strings"
	"sync"
	"time"
)

var (
	// ErrNotFound is returned for an unknown profile name.
	ErrNotFound = errors.New("profile not found")
	// ErrInvalidName is returned for an empty or blank name.
	ErrInvalidName = errors.New("profile name must not be empty")
)

// Profile is one saved configuration.
type Profile struct {
	UpdatedAt    time.Time `json:"updated_at" yaml:"updated_at"`
	Name         string    `json:"name" yaml:"name"`
	HomeBase     string    `json:"home_base,omitempty" yaml:"home_base,omitempty"`
	HomeZone     string    `json:"home_zone,omitempty" yaml:"home_zone,omitempty"`
	ConfigPreset string    `json:"config_preset,omitempty" yaml:"config_preset,omitempty"`
	Phases       bool      `json:"phases,omitempty" yaml:"phases,omitempty"`
}

// Repository is a keyed store of profiles.
type Repository interface {
	Get(name string) (Profile, error)
	Put(p Profile) error
	Delete(name string) error
	List() ([]Profile, error)
}

func normalizeName(name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", ErrInvalidName
	}
	return name, nil
}

// MemoryStore keeps profiles in memory. The zero value is ready to use.
type MemoryStore struct {
	profiles map[string]Profile
	now      func() time.Time
	mu       sync.RWMutex
}

// NewMemoryStore returns an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{profiles: make(map[string]Profile)}
}

// Get returns the named profile.
func (m *MemoryStore) Get(name string) (Profile, error) {
	name, err := normalizeName(name)
	if err != nil {
		return Profile{}, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	p, ok := m.profiles[name]
	if !ok {
		return Profile{}, ErrNotFound
	}
	return p, nil
}

// Put inserts or replaces p and stamps UpdatedAt.
func (m *MemoryStore) Put(p Profile) error {
	name, err := normalizeName(p.Name)
	if err != nil {
		return err
	}
	p.Name = name
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.profiles == nil {
		m.profiles = make(map[string]Profile)
	}
	now := time.Now
	if m.now != nil {
		now = m.now
	}
	p.UpdatedAt = now().UTC()
	m.profiles[name] = p
	return nil
}

// Delete removes the named profile.
func (m *MemoryStore) Delete(name string) error {
	name, err := normalizeName(name)
	if err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.profiles[name]; !ok {
		return ErrNotFound
	}
	delete(m.profiles, name)
	return nil
}

// List returns all profiles ordered by name.
func (m *MemoryStore) List() ([]Profile, error) {
	m.mu.RLock()
	out := make([]Profile, 0, len(m.profiles))
	for _, p := range m.profiles {
		out = append(out, p)
	}
	m.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

// replace swaps in a full set of profiles, keeping their timestamps.
func (m *MemoryStore) replace(profiles []Profile) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.profiles = make(map[string]Profile, len(profiles))
	for _, p := range profiles {
		if name, err := normalizeName(p.Name); err == nil {
			p.Name = name
			m.profiles[name] = p
		}
	}
}
