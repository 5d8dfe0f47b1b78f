package credentials

import (
	"context"
	"os"
)

// EnvStorage seeds the credential from ACCESS_TOKEN / REFRESH_TOKEN and keeps
// later writes in memory only. Useful for CI and containers where the token
// is injected and nothing should touch the disk.
type EnvStorage struct {
	mem *MemoryStorage
}

// NewEnvStorage creates storage seeded from the environment.
func NewEnvStorage() *EnvStorage {
	var seed *Credential
	access := os.Getenv("ACCESS_TOKEN")
	refresh := os.Getenv("REFRESH_TOKEN")
	if access != "" || refresh != "" {
		seed = &Credential{AccessToken: access, RefreshToken: refresh}
	}
	return &EnvStorage{mem: NewMemoryStorage(seed)}
}

func (e *EnvStorage) Read(ctx context.Context) (*Credential, error) {
	return e.mem.Read(ctx)
}

func (e *EnvStorage) Write(ctx context.Context, cred *Credential) error {
	return e.mem.Write(ctx, cred)
}

func (e *EnvStorage) Clear(ctx context.Context) error {
	return e.mem.Clear(ctx)
}
