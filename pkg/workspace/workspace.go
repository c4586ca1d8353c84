// Package workspace creates and enumerates per-run workspace directories:
// {base_dir}/runs/<timestamp>-<short_id>/ with an assets/ subdirectory for
// stage artifacts. The run's run.md checkpoint is written into the same
// directory by pkg/statestore; this package writes no other files.
package workspace

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/reelforge/pipeline/internal/pipelineerrors"
)

const assetsDirName = "assets"

// Manager creates and lists per-run workspace directories under baseDir/runs.
type Manager struct {
	baseDir string
	runsDir string
}

// New constructs a Manager rooted at baseDir.
func New(baseDir string) *Manager {
	return &Manager{baseDir: baseDir, runsDir: filepath.Join(baseDir, "runs")}
}

// RunsDir returns the directory all per-run workspaces live under.
func (m *Manager) RunsDir() string { return m.runsDir }

// Create makes a new per-run workspace directory (with its assets/
// subdirectory) and returns its path. The directory name is
// <timestamp>-<short_id>, where short_id is the first 6 hex characters of
// a random UUID — enough to avoid collisions between runs started in the
// same second without leaking a full UUID into directory listings.
func (m *Manager) Create() (string, error) {
	if err := os.MkdirAll(m.runsDir, 0o755); err != nil {
		return "", pipelineerrors.NewOSIOError("mkdir runs dir", err)
	}

	ts := time.Now().UTC().Format("20060102-150405")
	shortID := uuid.New().String()[:6]
	name := fmt.Sprintf("%s-%s", ts, shortID)
	dir := filepath.Join(m.runsDir, name)

	if err := os.Mkdir(dir, 0o755); err != nil {
		return "", pipelineerrors.NewOSIOError("mkdir workspace", err)
	}
	if err := os.Mkdir(filepath.Join(dir, assetsDirName), 0o755); err != nil {
		return "", pipelineerrors.NewOSIOError("mkdir workspace assets", err)
	}

	slog.Info("created workspace", "name", name)
	return dir, nil
}

// List returns every run workspace directory under runs/, sorted
// chronologically (the directory name's timestamp prefix sorts correctly
// as a string).
func (m *Manager) List() ([]string, error) {
	entries, err := os.ReadDir(m.runsDir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, pipelineerrors.NewOSIOError("list workspaces", err)
	}

	var dirs []string
	for _, e := range entries {
		if e.IsDir() {
			dirs = append(dirs, filepath.Join(m.runsDir, e.Name()))
		}
	}
	sort.Strings(dirs)
	return dirs, nil
}

// AssetsDir returns the assets/ subdirectory of a given workspace path.
func AssetsDir(workspacePath string) string {
	return filepath.Join(workspacePath, assetsDirName)
}

// RunIDFromPath extracts the <timestamp>-<short_id> run identifier from a
// workspace path, i.e. its final path element.
func RunIDFromPath(workspacePath string) string {
	return filepath.Base(workspacePath)
}
