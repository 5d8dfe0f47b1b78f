package credentials

import (
	"fmt"
	"os"
	"path/filepath"
)

const (
	appDirName    = "course-selector"
	credsFileName = "auth.json"
)

// DefaultCredsPath is $XDG_CONFIG_HOME/course-selector/auth.json, falling
// back to ~/.config when XDG_CONFIG_HOME is unset.
func DefaultCredsPath() string {
	xdgConfigHome := os.Getenv("XDG_CONFIG_HOME")
	if xdgConfigHome == "" {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return ""
		}
		xdgConfigHome = filepath.Join(homeDir, ".config")
	}
	return filepath.Join(xdgConfigHome, appDirName, credsFileName)
}

// EnsureParentDir creates the directory holding path, readable by the owner only.
func EnsureParentDir(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return fmt.Errorf("failed to create directory %s: %w", dir, err)
	}
	return nil
}

// FileExists reports whether path names an existing regular file.
func FileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.Mode().IsRegular()
}
