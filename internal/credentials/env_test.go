package credentials

import (
	"context"
	"testing"
)

func TestEnvStorageSeedsFromEnvironment(t *testing.T) {
	t.Setenv("ACCESS_TOKEN", "env-access")
	t.Setenv("REFRESH_TOKEN", "env-refresh")

	storage := NewEnvStorage()
	cred, err := storage.Read(context.Background())
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if cred.AccessToken != "env-access" || cred.RefreshToken != "env-refresh" {
		t.Errorf("Unexpected credential %+v", cred)
	}

	// Writes stay in memory
	if err := storage.Write(context.Background(), &Credential{AccessToken: "next"}); err != nil {
		t.Fatalf("Expected no error from Write, got %v", err)
	}
	cred, _ = storage.Read(context.Background())
	if cred.AccessToken != "next" {
		t.Errorf("Expected written token, got %s", cred.AccessToken)
	}
}

func TestEnvStorageEmpty(t *testing.T) {
	t.Setenv("ACCESS_TOKEN", "")
	t.Setenv("REFRESH_TOKEN", "")

	if _, err := NewEnvStorage().Read(context.Background()); err != ErrNotFound {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}
}
