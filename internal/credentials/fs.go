package credentials

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
)

// FileStorage persists the credential as JSON in a single file with 0600 permissions.
type FileStorage struct {
	Path string
}

func NewFileStorage(path string) *FileStorage {
	return &FileStorage{Path: path}
}

func (f *FileStorage) Read(ctx context.Context) (*Credential, error) {
	b, err := os.ReadFile(f.Path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to read credentials file: %w", err)
	}

	var cred Credential
	if err := json.Unmarshal(b, &cred); err != nil {
		return nil, fmt.Errorf("failed to parse credentials file: %w", err)
	}
	if cred.AccessToken == "" && cred.RefreshToken == "" {
		return nil, ErrNotFound
	}
	return &cred, nil
}

// Write replaces the file contents, creating the parent directory if needed.
func (f *FileStorage) Write(ctx context.Context, cred *Credential) error {
	if err := EnsureParentDir(f.Path); err != nil {
		return err
	}

	data, err := json.MarshalIndent(cred, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal credentials: %w", err)
	}

	if err := os.WriteFile(f.Path, data, 0600); err != nil {
		return fmt.Errorf("failed to write credentials file: %w", err)
	}
	return nil
}

// Clear removes the file. Clearing an absent credential is not an error.
func (f *FileStorage) Clear(ctx context.Context) error {
	if !FileExists(f.Path) {
		return nil
	}
	if err := os.Remove(f.Path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to remove credentials file: %w", err)
	}
	return nil
}
