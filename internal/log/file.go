package log

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"
)

const (
	filePrefix = "printmesh-"
	fileSuffix = ".log"
	dayLayout  = "20060102"

	// KeepDays is how many daily files survive a rollover.
	KeepDays = 30
)

// DailyFile appends to printmesh-YYYYMMDD.log in its directory, switching
// files when the local date changes and pruning all but the newest keep.
type DailyFile struct {
	mu   sync.Mutex
	dir  string
	keep int
	now  func() time.Time
	day  string
	f    *os.File
}

// OpenFile opens today's log file inside dir, creating dir if needed.
func OpenFile(dir string) (*DailyFile, error) {
	return openDaily(dir, KeepDays, time.Now)
}

func openDaily(dir string, keep int, now func() time.Time) (*DailyFile, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create log directory: %w", err)
	}
	d := &DailyFile{dir: dir, keep: keep, now: now}
	if err := d.rotate(now().Format(dayLayout)); err != nil {
		return nil, err
	}
	return d, nil
}

// Write implements io.Writer.
func (d *DailyFile) Write(p []byte) (int, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.f == nil {
		return 0, os.ErrClosed
	}
	if day := d.now().Format(dayLayout); day != d.day {
		if err := d.rotate(day); err != nil {
			return 0, err
		}
	}
	return d.f.Write(p)
}

// Name returns the path of the file currently written to.
func (d *DailyFile) Name() string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return filepath.Join(d.dir, filePrefix+d.day+fileSuffix)
}

// Close closes the current file.
func (d *DailyFile) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.f == nil {
		return nil
	}
	err := d.f.Close()
	d.f = nil
	return err
}

// rotate must be called with mu held, or before d is shared.
func (d *DailyFile) rotate(day string) error {
	path := filepath.Join(d.dir, filePrefix+day+fileSuffix)
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("open log file: %w", err)
	}
	if d.f != nil {
		_ = d.f.Close()
	}
	d.f = f
	d.day = day
	d.prune()
	return nil
}

// prune removes the oldest daily files beyond keep. Other files in dir are
// left alone.
func (d *DailyFile) prune() {
	entries, err := os.ReadDir(d.dir)
	if err != nil {
		return
	}
	var days []string
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasPrefix(name, filePrefix) || !strings.HasSuffix(name, fileSuffix) {
			continue
		}
		day := strings.TrimSuffix(strings.TrimPrefix(name, filePrefix), fileSuffix)
		if _, err := time.Parse(dayLayout, day); err != nil {
			continue
		}
		days = append(days, day)
	}
	if len(days) <= d.keep {
		return
	}
	sort.Strings(days)
	for _, day := range days[:len(days)-d.keep] {
		_ = os.Remove(filepath.Join(d.dir, filePrefix+day+fileSuffix))
	}
}
