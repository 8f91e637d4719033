// Package update asks the release endpoint whether a newer agent build exists
// and, on request, downloads and launches its installer.
package update

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"path"
	"regexp"
	"strings"
	"time"

	goversion "github.com/hashicorp/go-version"
	"github.com/zeebo/blake3"

	"github.com/mattjoyce/printmesh/internal/config"
	"github.com/mattjoyce/printmesh/internal/events"
	"github.com/mattjoyce/printmesh/internal/proc"
	"github.com/mattjoyce/printmesh/internal/wire"
)

var (
	ErrChecksumMismatch = errors.New("update checksum mismatch")
	ErrNoInstaller      = errors.New("no installer command configured")
)

// Info is the release endpoint's answer.
type Info struct {
	Version      string `json:"version"`
	DownloadURL  string `json:"downloadUrl"`
	ReleaseNotes string `json:"releaseNotes"`
	// Blake3 is an optional hex digest of the artifact.
	Blake3 string `json:"blake3,omitempty"`
}

// Store persists downloaded artifacts.
type Store interface {
	CreateFromReader(ctx context.Context, prefix, ext string, r io.Reader) (string, error)
	Remove(path string) error
}

// Checker compares the running version with the latest release.
type Checker struct {
	cfg     config.UpdateConfig
	current string
	http    *http.Client
	store   Store
	runner  proc.Runner
	hub     *events.Hub
	logger  *slog.Logger
}

func NewChecker(cfg config.UpdateConfig, current string, store Store, runner proc.Runner, hub *events.Hub, logger *slog.Logger) *Checker {
	return &Checker{
		cfg:     cfg,
		current: current,
		http:    &http.Client{},
		store:   store,
		runner:  runner,
		hub:     hub,
		logger:  logger.With("component", "update"),
	}
}

// CurrentVersion returns the running agent's version.
func (c *Checker) CurrentVersion() string { return c.current }

// Check returns the latest release when it is strictly newer than the running
// version, nil when up to date.
func (c *Checker) Check(ctx context.Context) (*Info, error) {
	c.logger.Info("checking for updates", "current_version", c.current)

	ctx, cancel := context.WithTimeout(ctx, c.cfg.CheckTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.cfg.CheckURL, nil)
	if err != nil {
		return nil, fmt.Errorf("build update request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch update info: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch update info: unexpected status %d", resp.StatusCode)
	}

	var info Info
	if _, err := wire.Decode(resp.Body, &info, 1<<20); err != nil {
		return nil, fmt.Errorf("decode update info: %w", err)
	}

	if !IsNewer(info.Version, c.current) {
		c.logger.Info("agent is up to date", "latest_version", info.Version)
		return nil, nil
	}

	c.logger.Info("new version available", "new_version", info.Version)
	c.hub.Publish(events.UpdateAvailable, info)
	return &info, nil
}

// releaseVersion accepts two to four dot-separated numeric components. Prefixes,
// prereleases and build metadata are rejected.
var releaseVersion = regexp.MustCompile(`^\d+(\.\d+){1,3}$`)

// IsNewer reports whether remote is strictly greater than current. Versions
// that are not plain release numbers are never newer.
func IsNewer(remote, current string) bool {
	r, ok := parseRelease(remote)
	if !ok {
		return false
	}
	cur, ok := parseRelease(current)
	if !ok {
		return false
	}
	return r.GreaterThan(cur)
}

func parseRelease(v string) (*goversion.Version, bool) {
	v = strings.TrimSpace(v)
	if !releaseVersion.MatchString(v) {
		return nil, false
	}
	parsed, err := goversion.NewVersion(v)
	if err != nil {
		return nil, false
	}
	return parsed, true
}

// Install downloads info's artifact, verifies its digest when one was
// published and starts the installer without waiting for it.
func (c *Checker) Install(ctx context.Context, info *Info) (string, error) {
	if info == nil || info.DownloadURL == "" {
		return "", errors.New("update info has no download URL")
	}
	if len(c.cfg.Installer) == 0 {
		return "", ErrNoInstaller
	}

	logger := c.logger.With("new_version", info.Version)
	logger.Info("downloading update", "url", info.DownloadURL)

	file, err := c.download(ctx, info)
	if err != nil {
		return "", err
	}

	args := make([]string, 0, len(c.cfg.Installer)-1)
	for _, a := range c.cfg.Installer[1:] {
		args = append(args, strings.ReplaceAll(a, "{file}", file))
	}

	if _, err := c.runner.Start(c.cfg.Installer[0], args...); err != nil {
		return file, fmt.Errorf("start installer: %w", err)
	}

	logger.Info("update installation started", "file", file)
	c.hub.Publish(events.UpdateInstalling, info)
	return file, nil
}

func (c *Checker) download(ctx context.Context, info *Info) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, c.cfg.DownloadTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, info.DownloadURL, nil)
	if err != nil {
		return "", fmt.Errorf("build download request: %w", err)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("download update: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("download update: unexpected status %d", resp.StatusCode)
	}

	hasher := blake3.New()
	prefix := "printmesh_update_" + sanitizeVersion(info.Version)
	file, err := c.store.CreateFromReader(ctx, prefix, artifactExt(info.DownloadURL), io.TeeReader(resp.Body, hasher))
	if err != nil {
		return "", fmt.Errorf("save update: %w", err)
	}

	if want := strings.TrimSpace(info.Blake3); want != "" {
		got := hex.EncodeToString(hasher.Sum(nil))
		if !strings.EqualFold(got, want) {
			if err := c.store.Remove(file); err != nil {
				c.logger.Debug("failed to remove rejected update", "file", file, "error", err)
			}
			return "", fmt.Errorf("%w: expected %s, got %s", ErrChecksumMismatch, want, got)
		}
	}
	return file, nil
}

func artifactExt(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return ".bin"
	}
	ext := path.Ext(u.Path)
	if ext == "" || len(ext) > 8 {
		return ".bin"
	}
	return ext
}

func sanitizeVersion(v string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= '0' && r <= '9', r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r == '.', r == '-':
			return r
		default:
			return '_'
		}
	}, v)
}

// StartupCheck runs Check once after delay and logs the outcome.
func (c *Checker) StartupCheck(ctx context.Context, delay time.Duration) {
	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return
	case <-timer.C:
	}
	if _, err := c.Check(ctx); err != nil {
		c.logger.Warn("update check failed", "error", err)
	}
}
