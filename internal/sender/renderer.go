package sender

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/mattjoyce/printmesh/internal/config"
	"github.com/mattjoyce/printmesh/internal/proc"
)

// Stage orders renderers within the PDF fallback chain.
type Stage int

const (
	StageSilent Stage = iota + 1
	StageReader
	StageFallback
)

func (s Stage) String() string {
	switch s {
	case StageSilent:
		return "silent"
	case StageReader:
		return "reader"
	case StageFallback:
		return "fallback"
	default:
		return fmt.Sprintf("stage(%d)", int(s))
	}
}

// Renderer is one link of the fallback chain. Probe finds an executable;
// Invoke prints file on printer with it.
type Renderer struct {
	Name   string
	Stage  Stage
	Probe  func() (exe string, ok bool)
	Invoke func(ctx context.Context, exe, printer, file string) error
}

// Prober locates the first usable candidate among paths.
type Prober interface {
	Find(paths []string) (string, bool)
}

// FSProber checks absolute paths with os.Stat and bare names with
// exec.LookPath. {exe_dir} expands to the agent's executable directory.
type FSProber struct {
	ExeDir string
}

func NewFSProber() FSProber {
	dir := ""
	if exe, err := os.Executable(); err == nil {
		dir = filepath.Dir(exe)
	}
	return FSProber{ExeDir: dir}
}

func (p FSProber) Find(paths []string) (string, bool) {
	for _, candidate := range paths {
		if strings.Contains(candidate, "{exe_dir}") {
			if p.ExeDir == "" {
				continue
			}
			candidate = strings.ReplaceAll(candidate, "{exe_dir}", p.ExeDir)
		}

		if filepath.IsAbs(candidate) {
			if info, err := os.Stat(candidate); err == nil && info.Mode().IsRegular() {
				return candidate, true
			}
			continue
		}
		if found, err := exec.LookPath(candidate); err == nil {
			return found, true
		}
	}
	return "", false
}

// ChainConfig carries the timing knobs of the fallback chain.
type ChainConfig struct {
	SilentTimeout time.Duration
	SilentGrace   time.Duration
	ReaderGrace   time.Duration
	FallbackGrace time.Duration
}

// BuildChain turns the configured renderer specs into an ordered chain:
// silent viewers, then full readers, then the fallback handler.
//
// A silent viewer must exit with status 0 for the job to count as submitted.
// Full readers and the fallback count as submitted once the process was
// launched and its grace delay elapsed.
func BuildChain(pdf config.PDFConfig, prober Prober, runner proc.Runner) []Renderer {
	timing := ChainConfig{
		SilentTimeout: pdf.SilentTimeout,
		SilentGrace:   pdf.SilentGrace,
		ReaderGrace:   pdf.ReaderGrace,
		FallbackGrace: pdf.FallbackGrace,
	}

	var chain []Renderer
	for _, spec := range pdf.SilentViewers {
		chain = append(chain, newRenderer(spec, StageSilent, prober, silentInvoke(spec, runner, timing)))
	}
	for _, spec := range pdf.FullReaders {
		chain = append(chain, newRenderer(spec, StageReader, prober, readerInvoke(spec, runner, timing)))
	}
	if len(pdf.Fallback.Paths) > 0 {
		chain = append(chain, newRenderer(pdf.Fallback, StageFallback, prober, fallbackInvoke(pdf.Fallback, runner, timing)))
	}
	return chain
}

func newRenderer(spec config.RendererSpec, stage Stage, prober Prober, invoke func(context.Context, string, string, string) error) Renderer {
	paths := append([]string(nil), spec.Paths...)
	return Renderer{
		Name:   spec.Name,
		Stage:  stage,
		Probe:  func() (string, bool) { return prober.Find(paths) },
		Invoke: invoke,
	}
}

func silentInvoke(spec config.RendererSpec, runner proc.Runner, t ChainConfig) func(context.Context, string, string, string) error {
	return func(ctx context.Context, exe, printer, file string) error {
		runCtx, cancel := context.WithTimeout(ctx, t.SilentTimeout)
		defer cancel()

		if err := runner.Run(runCtx, exe, expandArgs(spec.Args, printer, file)...); err != nil {
			return fmt.Errorf("%s: %w", spec.Name, err)
		}
		return sleep(ctx, t.SilentGrace)
	}
}

func readerInvoke(spec config.RendererSpec, runner proc.Runner, t ChainConfig) func(context.Context, string, string, string) error {
	return func(ctx context.Context, exe, printer, file string) error {
		p, err := runner.Start(exe, expandArgs(spec.Args, printer, file)...)
		if err != nil {
			return fmt.Errorf("%s: %w", spec.Name, err)
		}

		grace := t.ReaderGrace
		if deadline, ok := ctx.Deadline(); ok {
			if left := time.Until(deadline); left < grace {
				grace = left
			}
		}
		// Exit status is not meaningful for readers.
		if exited, _ := p.Wait(grace); exited {
			return nil
		}
		if err := ctx.Err(); err != nil {
			_ = p.Terminate()
			return err
		}
		// Readers stay open after handing the job to the spooler.
		if err := p.Terminate(); err != nil {
			return fmt.Errorf("%s: terminate: %w", spec.Name, err)
		}
		return nil
	}
}

func fallbackInvoke(spec config.RendererSpec, runner proc.Runner, t ChainConfig) func(context.Context, string, string, string) error {
	return func(ctx context.Context, exe, printer, file string) error {
		if _, err := runner.Start(exe, expandArgs(spec.Args, printer, file)...); err != nil {
			return fmt.Errorf("%s: %w", spec.Name, err)
		}
		return sleep(ctx, t.FallbackGrace)
	}
}

func expandArgs(args []string, printer, file string) []string {
	out := make([]string, len(args))
	for i, a := range args {
		a = strings.ReplaceAll(a, "{printer}", printer)
		out[i] = strings.ReplaceAll(a, "{file}", file)
	}
	return out
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
