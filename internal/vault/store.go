package vault

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
)

var (
	ErrNotFound  = errors.New("profile not found")
	ErrDuplicate = errors.New("profile already exists")
	ErrNoName    = errors.New("profile name is required")
	ErrDecrypt   = errors.New("failed to decrypt profile store (wrong password?)")
)

type storeFile struct {
	Salt []byte `json:"salt"`
	Data []byte `json:"data"`
}

// FileStore implements Provider on top of a single encrypted file.
type FileStore struct {
	mu       sync.RWMutex
	path     string
	sealer   *sealer
	profiles map[string]Profile
}

// Open opens the store at path, creating it with a fresh salt if the file
// does not exist yet.
func Open(path string, password []byte) (*FileStore, error) {
	s := &FileStore{path: path, profiles: make(map[string]Profile)}

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		salt, err := newSalt()
		if err != nil {
			return nil, err
		}
		if s.sealer, err = newSealer(password, salt); err != nil {
			return nil, err
		}
		return s, s.save()
	}
	if err != nil {
		return nil, err
	}

	var sf storeFile
	if err := json.Unmarshal(data, &sf); err != nil {
		return nil, fmt.Errorf("corrupt profile store: %w", err)
	}
	if s.sealer, err = newSealer(password, sf.Salt); err != nil {
		return nil, err
	}
	plaintext, err := s.sealer.open(sf.Data)
	if err != nil {
		return nil, ErrDecrypt
	}
	if err := json.Unmarshal(plaintext, &s.profiles); err != nil {
		return nil, fmt.Errorf("corrupt profile data: %w", err)
	}
	return s, nil
}

// Exists reports whether a store file is present at path.
func Exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// save writes through a temp file and rename so a crash never leaves a
// truncated store behind.
func (s *FileStore) save() error {
	plaintext, err := json.Marshal(s.profiles)
	if err != nil {
		return err
	}
	sealed, err := s.sealer.seal(plaintext)
	if err != nil {
		return err
	}
	data, err := json.Marshal(storeFile{Salt: s.sealer.salt, Data: sealed})
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(s.path), 0700); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(filepath.Dir(s.path), ".routers-*.tmp")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Chmod(0600); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), s.path)
}

// List returns summaries of all profiles sorted by name.
func (s *FileStore) List() ([]Summary, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Summary, 0, len(s.profiles))
	for _, p := range s.profiles {
		out = append(out, p.Summarize())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (s *FileStore) Get(name string) (*Profile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.profiles[name]
	if !ok {
		return nil, fmt.Errorf("%q: %w", name, ErrNotFound)
	}
	return &p, nil
}

func (s *FileStore) Add(p Profile) error {
	if p.Name == "" {
		return ErrNoName
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.profiles[p.Name]; exists {
		return fmt.Errorf("%q: %w", p.Name, ErrDuplicate)
	}
	s.profiles[p.Name] = p
	return s.save()
}

// Update replaces the profile stored under name, renaming it if p.Name
// differs.
func (s *FileStore) Update(name string, p Profile) error {
	if p.Name == "" {
		return ErrNoName
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.profiles[name]; !exists {
		return fmt.Errorf("%q: %w", name, ErrNotFound)
	}
	if name != p.Name {
		if _, taken := s.profiles[p.Name]; taken {
			return fmt.Errorf("%q: %w", p.Name, ErrDuplicate)
		}
		delete(s.profiles, name)
	}
	s.profiles[p.Name] = p
	return s.save()
}

func (s *FileStore) Remove(name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.profiles[name]; !exists {
		return fmt.Errorf("%q: %w", name, ErrNotFound)
	}
	delete(s.profiles, name)
	return s.save()
}
