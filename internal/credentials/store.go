package credentials

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/rs/zerolog"
)

// Storage persists a single credential. Implementations must treat the
// credential as a whole: Write replaces, Clear removes.
type Storage interface {
	Read(ctx context.Context) (*Credential, error)
	Write(ctx context.Context, cred *Credential) error
	Clear(ctx context.Context) error
}

// Store is the process-wide holder of the current credential. It loads lazily
// from durable storage and writes through on every change.
type Store struct {
	storage Storage
	logger  *zerolog.Logger

	mu      sync.RWMutex
	current *Credential
	loaded  bool
}

// NewStore creates a Store backed by storage. logger may be nil.
func NewStore(storage Storage, logger *zerolog.Logger) *Store {
	return &Store{
		storage: storage,
		logger:  logger,
	}
}

// Get returns a copy of the current credential, or nil when signed out.
func (s *Store) Get(ctx context.Context) (*Credential, error) {
	s.mu.RLock()
	if s.loaded {
		cred := s.current.Clone()
		s.mu.RUnlock()
		return cred, nil
	}
	s.mu.RUnlock()

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.loaded {
		return s.current.Clone(), nil
	}

	cred, err := s.storage.Read(ctx)
	if err != nil && !errors.Is(err, ErrNotFound) {
		return nil, fmt.Errorf("failed to read stored credential: %w", err)
	}
	s.current = cred
	s.loaded = true

	if s.logger != nil {
		s.logger.Debug().Bool("present", cred != nil).Msg("Loaded credential from storage")
	}
	return s.current.Clone(), nil
}

// AccessToken returns the current access token or "" when signed out or unreadable.
func (s *Store) AccessToken(ctx context.Context) string {
	cred, err := s.Get(ctx)
	if err != nil || cred == nil {
		return ""
	}
	return cred.AccessToken
}

// RefreshToken returns the current refresh token or "" when none is stored.
func (s *Store) RefreshToken(ctx context.Context) string {
	cred, err := s.Get(ctx)
	if err != nil || cred == nil {
		return ""
	}
	return cred.RefreshToken
}

// Set replaces the credential wholesale. The in-memory value is updated even
// if the durable write fails so in-flight requests keep working.
func (s *Store) Set(ctx context.Context, cred *Credential) error {
	if cred == nil {
		return s.Clear(ctx)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.current = cred.Clone()
	s.loaded = true

	if err := s.storage.Write(ctx, s.current); err != nil {
		return fmt.Errorf("failed to persist credential: %w", err)
	}
	return nil
}

// Clear drops the credential from memory and durable storage.
func (s *Store) Clear(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.current = nil
	s.loaded = true

	if err := s.storage.Clear(ctx); err != nil {
		return fmt.Errorf("failed to clear stored credential: %w", err)
	}
	return nil
}
