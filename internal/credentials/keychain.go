package credentials

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os/exec"
	"strings"

	"github.com/rs/zerolog"
)

const (
	DefaultKeychainService = "course-selector-credentials"
	keychainAccount        = "course-selector"
)

// commandRunner executes an external command and returns its stdout.
type commandRunner func(ctx context.Context, name string, args ...string) ([]byte, error)

func execRunner(ctx context.Context, name string, args ...string) ([]byte, error) {
	return exec.CommandContext(ctx, name, args...).Output()
}

// KeychainStorage stores the credential as a generic password in the macOS
// keychain using the security(1) tool.
type KeychainStorage struct {
	service string
	run     commandRunner
	logger  *zerolog.Logger
}

// NewKeychainStorage creates keychain-backed storage. service may be empty.
func NewKeychainStorage(service string, logger *zerolog.Logger) *KeychainStorage {
	if service == "" {
		service = DefaultKeychainService
	}
	return &KeychainStorage{
		service: service,
		run:     execRunner,
		logger:  logger,
	}
}

func (k *KeychainStorage) Read(ctx context.Context) (*Credential, error) {
	output, err := k.run(ctx, "security", "find-generic-password", "-s", k.service, "-w")
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			// security exits non-zero when the item does not exist
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to retrieve password from Keychain: %w", err)
	}

	var cred Credential
	if err := json.Unmarshal([]byte(strings.TrimSpace(string(output))), &cred); err != nil {
		return nil, fmt.Errorf("failed to parse JSON from keychain: %w", err)
	}
	return &cred, nil
}

func (k *KeychainStorage) Write(ctx context.Context, cred *Credential) error {
	data, err := json.Marshal(cred)
	if err != nil {
		return fmt.Errorf("failed to marshal credentials: %w", err)
	}

	if _, err := k.run(ctx, "security", "add-generic-password", "-s", k.service, "-a", keychainAccount, "-w", string(data), "-U"); err != nil {
		return fmt.Errorf("failed to update keychain: %w", err)
	}
	if k.logger != nil {
		k.logger.Debug().Str("service", k.service).Msg("Stored credential in keychain")
	}
	return nil
}

func (k *KeychainStorage) Clear(ctx context.Context) error {
	if _, err := k.run(ctx, "security", "delete-generic-password", "-s", k.service); err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return nil
		}
		return fmt.Errorf("failed to delete keychain item: %w", err)
	}
	return nil
}
