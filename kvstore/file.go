package kvstore

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/rs/zerolog/log"
)

const stateFileName = "state.json"

var _ Backend = (*FileBackend)(nil)

// FileBackend keeps every key in a single JSON document on disk. Writes go
// through a temp file and an atomic rename.
type FileBackend struct {
	mu   sync.Mutex
	path string
}

type document struct {
	Version int                        `json:"version"`
	Values  map[string]json.RawMessage `json:"values"`
}

// NewFileBackend creates baseDir with 0700 permissions if needed
func NewFileBackend(baseDir string) (*FileBackend, error) {
	if baseDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("failed to get home directory: %w", err)
		}
		baseDir = filepath.Join(home, ".platform-console")
	}

	if err := os.MkdirAll(baseDir, 0700); err != nil {
		return nil, fmt.Errorf("failed to create state directory: %w", err)
	}

	log.Debug().Str("baseDir", baseDir).Msg("state store initialized")

	return &FileBackend{path: filepath.Join(baseDir, stateFileName)}, nil
}

// Path is the location of the state document
func (f *FileBackend) Path() string {
	return f.path
}

func (f *FileBackend) Load(key string) (json.RawMessage, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	doc, err := f.load()
	if err != nil {
		return nil, err
	}
	v, ok := doc.Values[key]
	if !ok {
		return nil, ErrKeyNotFound
	}
	return v, nil
}

func (f *FileBackend) Save(key string, value json.RawMessage) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	doc := f.loadOrEmpty()
	doc.Values[key] = value
	return f.save(doc)
}

func (f *FileBackend) Delete(key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	doc := f.loadOrEmpty()
	if _, ok := doc.Values[key]; !ok {
		return nil
	}
	delete(doc.Values, key)
	return f.save(doc)
}

func (f *FileBackend) load() (*document, error) {
	data, err := os.ReadFile(f.path)
	if err != nil {
		if os.IsNotExist(err) {
			return &document{Version: 1, Values: map[string]json.RawMessage{}}, nil
		}
		return nil, fmt.Errorf("failed to read state: %w", err)
	}

	var doc document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse state: %w", err)
	}
	if doc.Values == nil {
		doc.Values = map[string]json.RawMessage{}
	}
	return &doc, nil
}

// loadOrEmpty treats an unreadable document as empty so a corrupt file is
// replaced on the next write instead of blocking writes forever.
func (f *FileBackend) loadOrEmpty() *document {
	doc, err := f.load()
	if err != nil {
		log.Warn().Err(err).Str("path", f.path).Msg("discarding unreadable state document")
		return &document{Version: 1, Values: map[string]json.RawMessage{}}
	}
	return doc
}

func (f *FileBackend) save(doc *document) error {
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal state: %w", err)
	}

	tempPath := f.path + ".tmp"
	if err := os.WriteFile(tempPath, data, 0600); err != nil {
		return fmt.Errorf("failed to write state: %w", err)
	}

	if err := os.Rename(tempPath, f.path); err != nil {
		os.Remove(tempPath)
		return fmt.Errorf("failed to save state: %w", err)
	}
	return nil
}
