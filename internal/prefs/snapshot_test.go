package prefs

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSnapshotSaveAndLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "prefs.toml")

	id := int64(9)
	p := Defaults()
	p.DepartmentID = &id
	p.Theme = "dark"
	p.SelectedCoursesAuto = []string{"CSE101", "CSE102"}
	p.ScheduleResult = json.RawMessage(`{"score":3}`)

	require.NoError(t, Save(path, p))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "version = 1")
	assert.Contains(t, string(data), "[preferences]")

	got, err := LoadSnapshot(path)
	require.NoError(t, err)
	assert.Equal(t, p, got)
}

func TestLoadSnapshotMissingFile(t *testing.T) {
	_, err := LoadSnapshot(filepath.Join(t.TempDir(), "absent.toml"))
	require.Error(t, err)
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestLoadSnapshotRejectsGarbage(t *testing.T) {
	path := filepath.Join(t.TempDir(), "prefs.toml")
	require.NoError(t, os.WriteFile(path, []byte("not = [valid"), 0o644))

	_, err := LoadSnapshot(path)
	require.Error(t, err)
}

func TestLoadSnapshotRejectsUnknownVersion(t *testing.T) {
	path := filepath.Join(t.TempDir(), "prefs.toml")
	require.NoError(t, os.WriteFile(path, []byte("version = 7\n\n[preferences]\ntheme = 'dark'\n"), 0o644))

	_, err := LoadSnapshot(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "version 7")
}

func TestSnapshotExpandsHome(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)

	require.NoError(t, Save("~/exports/prefs.toml", Defaults()))
	_, err := os.Stat(filepath.Join(home, "exports", "prefs.toml"))
	require.NoError(t, err)
}
