package prefs

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	toml "github.com/pelletier/go-toml/v2"
)

const snapshotVersion = 1

// snapshot is the on-disk export format. Preferences are kept in wire form so
// an import reproduces exactly what the backend stored.
type snapshot struct {
	Version     int       `toml:"version"`
	ExportedAt  time.Time `toml:"exported_at"`
	Preferences Document  `toml:"preferences"`
}

// Save writes p to path as TOML, creating directories as needed.
func Save(path string, p Preferences) error {
	resolved, err := expandPath(path)
	if err != nil {
		return fmt.Errorf("resolve path: %w", err)
	}

	doc, err := Encode(p)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(resolved), 0o755); err != nil {
		return fmt.Errorf("create snapshot dir: %w", err)
	}

	bytes, err := toml.Marshal(snapshot{
		Version:     snapshotVersion,
		ExportedAt:  time.Now().UTC().Truncate(time.Second),
		Preferences: doc,
	})
	if err != nil {
		return fmt.Errorf("marshal snapshot: %w", err)
	}

	if err := os.WriteFile(resolved, bytes, 0o644); err != nil {
		return fmt.Errorf("write snapshot: %w", err)
	}
	return nil
}

// LoadSnapshot reads a file written by Save. Unlike Load on the
// synchronizer, a bad file is an error: an import must not silently replace
// the user's preferences with defaults.
func LoadSnapshot(path string) (Preferences, error) {
	resolved, err := expandPath(path)
	if err != nil {
		return Preferences{}, fmt.Errorf("resolve path: %w", err)
	}

	bytes, err := os.ReadFile(resolved)
	if err != nil {
		return Preferences{}, fmt.Errorf("read snapshot: %w", err)
	}

	var snap snapshot
	if err := toml.Unmarshal(bytes, &snap); err != nil {
		return Preferences{}, fmt.Errorf("parse snapshot: %w", err)
	}
	if snap.Version != snapshotVersion {
		return Preferences{}, fmt.Errorf("unsupported snapshot version %d", snap.Version)
	}

	return Decode(snap.Preferences)
}

func expandPath(path string) (string, error) {
	trimmed := strings.TrimSpace(path)
	if trimmed == "" {
		return "", fmt.Errorf("path is empty")
	}
	if strings.HasPrefix(trimmed, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home dir: %w", err)
		}
		trimmed = filepath.Join(home, strings.TrimPrefix(trimmed, "~"))
	}
	return filepath.Abs(trimmed)
}
