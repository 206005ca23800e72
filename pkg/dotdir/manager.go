// Package dotdir manages the .intents/ and ~/.intents directories that hold
// config.toml and the default file snapshot.
package dotdir

import (
	"fmt"
	"os"
	"path/filepath"
)

const (
	// dirName is the name of the intents directory.
	dirName = ".intents"

	// SnapshotFile is the default file snapshot name inside the directory.
	SnapshotFile = "snapshot.json"
)

type Manager struct{}

func NewManager() *Manager {
	return &Manager{}
}

// Target returns the absolute path to an .intents/ directory.
// Order of precedence is as follows:
//  1. Provided override (created if missing)
//  2. Local ./.intents/ dir
//  3. Home ~/.intents/ dir
//
// If none exists, Target returns "" and callers fall back to defaults.
func (m *Manager) Target(overrideDir string) (string, error) {
	if overrideDir != "" {
		if err := os.MkdirAll(overrideDir, 0o755); err != nil {
			return "", fmt.Errorf("creating intents directory %s: %w", overrideDir, err)
		}
		return filepath.Abs(overrideDir)
	}

	if dir, ok := m.localDir(); ok {
		return dir, nil
	}

	if dir, ok := m.homeDir(); ok {
		return dir, nil
	}

	return "", nil
}

// Ensure behaves like Target but creates ~/.intents/ when no directory
// exists yet.
func (m *Manager) Ensure(overrideDir string) (string, error) {
	dir, err := m.Target(overrideDir)
	if err != nil || dir != "" {
		return dir, err
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("getting home directory: %w", err)
	}

	dir = filepath.Join(home, dirName)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("creating intents directory %s: %w", dir, err)
	}

	return dir, nil
}

// SnapshotPath returns the default file snapshot location, creating the
// directory that holds it if needed.
func (m *Manager) SnapshotPath(overrideDir string) (string, error) {
	dir, err := m.Ensure(overrideDir)
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, SnapshotFile), nil
}

func (m *Manager) localDir() (string, bool) {
	cwd, err := os.Getwd()
	if err != nil {
		return "", false
	}
	return existingDir(filepath.Join(cwd, dirName))
}

func (m *Manager) homeDir() (string, bool) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", false
	}
	return existingDir(filepath.Join(home, dirName))
}

func existingDir(path string) (string, bool) {
	info, err := os.Stat(path)
	if err != nil || !info.IsDir() {
		return "", false
	}
	return path, true
}
