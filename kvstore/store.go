// Package kvstore is the persisted key-value store behind the console's
// convenience state: the auth token, the last known user and the last
// selected platform and account. Losing any of it must never break the
// console, so Store swallows every storage failure at its boundary.
package kvstore

import (
	"encoding/json"
	"errors"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Logical storage keys
const (
	KeyAuthToken        = "auth-token"
	KeyAuthUser         = "auth-user-snapshot"
	KeySelectedPlatform = "selected-platform-id"
	KeySelectedAccount  = "selected-account-id"
)

// ErrKeyNotFound is returned by a Backend when the key is absent
var ErrKeyNotFound = errors.New("key not found")

// Backend is the raw storage contract. Unlike Store it reports every failure.
type Backend interface {
	Load(key string) (json.RawMessage, error)
	Save(key string, value json.RawMessage) error
	Delete(key string) error
}

// Store is the fail-silent view over a Backend
type Store struct {
	backend Backend
	logger  zerolog.Logger
}

type Option func(*Store)

func WithLogger(logger zerolog.Logger) Option {
	return func(s *Store) {
		s.logger = logger
	}
}

func New(backend Backend, options ...Option) *Store {
	s := &Store{
		backend: backend,
		logger:  log.Logger,
	}
	for _, opt := range options {
		opt(s)
	}
	s.logger = s.logger.With().Str("component", "kvstore").Logger()
	return s
}

// NewMemory returns a Store backed by a fresh MemoryBackend
func NewMemory(options ...Option) *Store {
	return New(NewMemoryBackend(), options...)
}

// Get decodes the value stored under key into out. It reports false when the
// key is absent or the stored value cannot be read.
func (s *Store) Get(key string, out any) bool {
	return s.report("get", key, s.get(key, out))
}

// GetString is Get for string values. Empty strings count as absent.
func (s *Store) GetString(key string) (string, bool) {
	var v string
	if !s.Get(key, &v) || v == "" {
		return "", false
	}
	return v, true
}

// Set stores value under key. Failures are logged and dropped.
func (s *Store) Set(key string, value any) {
	s.report("set", key, s.set(key, value))
}

// Remove deletes key. Failures are logged and dropped.
func (s *Store) Remove(key string) {
	s.report("remove", key, s.backend.Delete(key))
}

func (s *Store) get(key string, out any) error {
	raw, err := s.backend.Load(key)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return errors.Join(errors.New("corrupt value"), err)
	}
	return nil
}

func (s *Store) set(key string, value any) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	return s.backend.Save(key, raw)
}

// report is the single place where storage errors stop travelling.
func (s *Store) report(op, key string, err error) bool {
	if err == nil {
		return true
	}
	if errors.Is(err, ErrKeyNotFound) {
		return false
	}
	s.logger.Warn().Err(err).Str("op", op).Str("key", key).Msg("persisted store failure ignored")
	return false
}
