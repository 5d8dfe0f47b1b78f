package credentials

import (
	"context"
	"sync"
)

// MemoryStorage keeps the credential in process memory only.
type MemoryStorage struct {
	mu   sync.Mutex
	cred *Credential
}

func NewMemoryStorage(initial *Credential) *MemoryStorage {
	return &MemoryStorage{cred: initial.Clone()}
}

func (m *MemoryStorage) Read(ctx context.Context) (*Credential, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.cred == nil {
		return nil, ErrNotFound
	}
	return m.cred.Clone(), nil
}

func (m *MemoryStorage) Write(ctx context.Context, cred *Credential) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.cred = cred.Clone()
	return nil
}

func (m *MemoryStorage) Clear(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.cred = nil
	return nil
}
