package connection

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/rileyhilliard/diagterm/internal/permission"
)

const (
	// StorageKey names the persisted record.
	StorageKey = "diagterm.connection"

	appDirName = "diagterm"
	recordFile = "connection.json"
)

// ErrMalformed is returned by Load when the stored record cannot be parsed.
var ErrMalformed = errors.New("stored connection record is malformed")

// Record is what survives a restart: the last endpoint and its grants.
type Record struct {
	BackendURL  string         `json:"backendUrl"`
	Permissions permission.Set `json:"permissions"`
}

// Store persists a single Record.
type Store interface {
	// Load returns (nil, nil) when nothing is stored.
	Load() (*Record, error)
	Save(Record) error
	Clear() error
}

// FileStore keeps the record as JSON in a directory.
type FileStore struct {
	dir string
}

// NewFileStore returns a store rooted at dir. An empty dir uses DefaultStateDir.
func NewFileStore(dir string) (*FileStore, error) {
	if dir == "" {
		d, err := DefaultStateDir()
		if err != nil {
			return nil, err
		}
		dir = d
	}
	return &FileStore{dir: dir}, nil
}

// DefaultStateDir is $XDG_STATE_HOME/diagterm, falling back to
// ~/.local/state/diagterm.
func DefaultStateDir() (string, error) {
	if dir := os.Getenv("XDG_STATE_HOME"); dir != "" {
		return filepath.Join(dir, appDirName), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("locate home directory: %w", err)
	}
	return filepath.Join(home, ".local", "state", appDirName), nil
}

// Path returns the file the record lives in.
func (s *FileStore) Path() string {
	return filepath.Join(s.dir, recordFile)
}

// Load reads the stored record.
func (s *FileStore) Load() (*Record, error) {
	data, err := os.ReadFile(s.Path())
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", s.Path(), err)
	}

	var rec Record
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	if rec.BackendURL == "" {
		return nil, fmt.Errorf("%w: missing backendUrl", ErrMalformed)
	}
	return &rec, nil
}

// Save writes rec, replacing any previous record atomically.
func (s *FileStore) Save(rec Record) error {
	data, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		return fmt.Errorf("encode connection record: %w", err)
	}

	if err := os.MkdirAll(s.dir, 0o700); err != nil {
		return fmt.Errorf("create state dir %s: %w", s.dir, err)
	}

	tmp, err := os.CreateTemp(s.dir, recordFile+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("write connection record: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("write connection record: %w", err)
	}
	if err := os.Rename(tmpName, s.Path()); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("replace connection record: %w", err)
	}
	return nil
}

// Clear removes the record. Clearing an empty store is not an error.
func (s *FileStore) Clear() error {
	err := os.Remove(s.Path())
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("remove %s: %w", s.Path(), err)
	}
	return nil
}

// MemoryStore is an in-process Store, used by tests and one-shot commands
// that must not touch disk.
type MemoryStore struct {
	mu  sync.Mutex
	rec *Record
	raw []byte
}

// NewMemoryStore returns an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

// Load returns the stored record. A record set through SetRaw is parsed the
// same way FileStore parses its file.
func (m *MemoryStore) Load() (*Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.raw != nil {
		var rec Record
		if err := json.Unmarshal(m.raw, &rec); err != nil || rec.BackendURL == "" {
			return nil, ErrMalformed
		}
		return &rec, nil
	}
	if m.rec == nil {
		return nil, nil
	}
	cp := *m.rec
	return &cp, nil
}

// Save stores rec.
func (m *MemoryStore) Save(rec Record) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.raw = nil
	m.rec = &rec
	return nil
}

// Clear drops the record.
func (m *MemoryStore) Clear() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.raw = nil
	m.rec = nil
	return nil
}

// SetRaw stores undecoded bytes, as if written by another program.
func (m *MemoryStore) SetRaw(b []byte) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rec = nil
	m.raw = append([]byte(nil), b...)
}
