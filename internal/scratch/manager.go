// Package scratch owns the short-lived files the senders hand to external
// programs: PDFs waiting for a renderer and downloaded update artifacts.
//
// File names carry a random UUID, so concurrent jobs never coordinate beyond
// the filesystem's own create/delete atomicity. Removal is best-effort: the
// Document Render Sender schedules it with RemoveAfter and never learns whether
// it succeeded. Cleanup sweeps anything a crashed process left behind.
package scratch

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/mattjoyce/printmesh/internal/log"
)

// CleanupReport summarizes a cleanup run.
type CleanupReport struct {
	DeletedFiles int
}

// Manager creates and removes scratch files inside one base directory.
type Manager struct {
	baseDir string
	now     func() time.Time
	logger  *slog.Logger

	mu      sync.Mutex
	pending map[string]*time.Timer
	wg      sync.WaitGroup
}

// NewManager creates a filesystem-backed scratch manager rooted at baseDir.
func NewManager(baseDir string) (*Manager, error) {
	trimmed := strings.TrimSpace(baseDir)
	if trimmed == "" {
		return nil, fmt.Errorf("scratch base directory is empty")
	}

	return &Manager{
		baseDir: filepath.Clean(trimmed),
		now:     time.Now,
		logger:  log.WithComponent("scratch"),
		pending: make(map[string]*time.Timer),
	}, nil
}

// Dir returns the base directory.
func (m *Manager) Dir() string { return m.baseDir }

// Create writes data to a new file named <prefix>_<uuid><ext> and returns its path.
func (m *Manager) Create(ctx context.Context, prefix, ext string, data []byte) (string, error) {
	return m.CreateFromReader(ctx, prefix, ext, bytes.NewReader(data))
}

// CreateFromReader streams r into a new scratch file. A partially written
// file is removed before returning an error.
func (m *Manager) CreateFromReader(ctx context.Context, prefix, ext string, r io.Reader) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if strings.ContainsAny(prefix, `/\`) || strings.ContainsAny(ext, `/\`) {
		return "", fmt.Errorf("scratch name parts must not contain path separators")
	}

	if err := os.MkdirAll(m.baseDir, 0o755); err != nil {
		return "", fmt.Errorf("create scratch base directory: %w", err)
	}

	path := filepath.Join(m.baseDir, fmt.Sprintf("%s_%s%s", prefix, uuid.NewString(), ext))
	f, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o600)
	if err != nil {
		return "", fmt.Errorf("create scratch file: %w", err)
	}
	defer f.Close()

	if _, err := io.Copy(f, r); err != nil {
		_ = os.Remove(path)
		return "", fmt.Errorf("write scratch file: %w", err)
	}
	if err := f.Sync(); err != nil {
		_ = os.Remove(path)
		return "", fmt.Errorf("sync scratch file: %w", err)
	}
	return path, nil
}

// Remove deletes path now. Missing files are not an error.
func (m *Manager) Remove(path string) error {
	if err := m.owns(path); err != nil {
		return err
	}
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove scratch file: %w", err)
	}
	return nil
}

// RemoveAfter deletes path once delay has elapsed. Failures are logged at
// debug level and otherwise swallowed.
func (m *Manager) RemoveAfter(path string, delay time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if t, ok := m.pending[path]; ok {
		if t.Stop() {
			m.wg.Done()
		}
	}

	m.wg.Add(1)
	var timer *time.Timer
	timer = time.AfterFunc(delay, func() {
		defer m.wg.Done()
		m.mu.Lock()
		if m.pending[path] == timer {
			delete(m.pending, path)
		}
		m.mu.Unlock()

		if err := m.Remove(path); err != nil {
			m.logger.Debug("scratch cleanup failed", "path", path, "error", err)
		}
	})
	m.pending[path] = timer
}

// Flush runs every scheduled removal immediately and waits for them.
func (m *Manager) Flush() {
	m.mu.Lock()
	paths := make([]string, 0, len(m.pending))
	for path, t := range m.pending {
		if t.Stop() {
			m.wg.Done()
			paths = append(paths, path)
		}
		delete(m.pending, path)
	}
	m.mu.Unlock()

	for _, path := range paths {
		if err := m.Remove(path); err != nil {
			m.logger.Debug("scratch cleanup failed", "path", path, "error", err)
		}
	}
	m.wg.Wait()
}

// Pending reports how many removals are scheduled but not yet run.
func (m *Manager) Pending() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.pending)
}

// Cleanup removes scratch files older than olderThan based on modification time.
func (m *Manager) Cleanup(ctx context.Context, olderThan time.Duration) (CleanupReport, error) {
	if err := ctx.Err(); err != nil {
		return CleanupReport{}, err
	}
	if olderThan <= 0 {
		return CleanupReport{}, fmt.Errorf("olderThan must be positive")
	}

	entries, err := os.ReadDir(m.baseDir)
	if os.IsNotExist(err) {
		return CleanupReport{}, nil
	}
	if err != nil {
		return CleanupReport{}, fmt.Errorf("read scratch base directory: %w", err)
	}

	cutoff := m.now().Add(-olderThan)
	report := CleanupReport{}

	for _, entry := range entries {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		if entry.IsDir() {
			continue
		}

		info, err := entry.Info()
		if err != nil {
			return report, fmt.Errorf("read scratch entry info %q: %w", entry.Name(), err)
		}
		if info.ModTime().After(cutoff) {
			continue
		}

		if err := os.Remove(filepath.Join(m.baseDir, entry.Name())); err != nil && !os.IsNotExist(err) {
			return report, fmt.Errorf("remove scratch file %q: %w", entry.Name(), err)
		}
		report.DeletedFiles++
	}

	return report, nil
}

func (m *Manager) owns(path string) error {
	rel, err := filepath.Rel(m.baseDir, filepath.Clean(path))
	if err != nil || rel == "." || strings.HasPrefix(rel, "..") || strings.ContainsAny(rel, `/\`) {
		return fmt.Errorf("path %q is outside scratch directory", path)
	}
	return nil
}
