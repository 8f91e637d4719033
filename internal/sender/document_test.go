package sender

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mattjoyce/printmesh/internal/config"
	"github.com/mattjoyce/printmesh/internal/printjob"
	"github.com/mattjoyce/printmesh/internal/proc"
)

type fakeScratch struct {
	createErr error
	created   []string
	removed   map[string]time.Duration
}

func (s *fakeScratch) Create(_ context.Context, prefix, ext string, _ []byte) (string, error) {
	if s.createErr != nil {
		return "", s.createErr
	}
	path := filepath.Join("/scratch", prefix+"_test"+ext)
	s.created = append(s.created, path)
	return path, nil
}

func (s *fakeScratch) RemoveAfter(path string, delay time.Duration) {
	if s.removed == nil {
		s.removed = map[string]time.Duration{}
	}
	s.removed[path] = delay
}

type call struct {
	mode string
	name string
	args []string
}

type fakeRunner struct {
	mu      sync.Mutex
	calls   []call
	runErr  error
	startFn func() (proc.Process, error)
}

func (r *fakeRunner) Run(_ context.Context, name string, args ...string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, call{"run", name, args})
	return r.runErr
}

func (r *fakeRunner) Start(name string, args ...string) (proc.Process, error) {
	r.mu.Lock()
	r.calls = append(r.calls, call{"start", name, args})
	r.mu.Unlock()
	if r.startFn != nil {
		return r.startFn()
	}
	return &fakeProcess{}, nil
}

type fakeProcess struct {
	exited     bool
	waited     []time.Duration
	terminated bool
}

func (p *fakeProcess) Wait(timeout time.Duration) (bool, error) {
	p.waited = append(p.waited, timeout)
	return p.exited, nil
}

func (p *fakeProcess) Terminate() error { p.terminated = true; return nil }

// mapProber reports a path as present when it appears in the set.
type mapProber map[string]bool

func (m mapProber) Find(paths []string) (string, bool) {
	for _, p := range paths {
		if m[p] {
			return p, true
		}
	}
	return "", false
}

func testPDFConfig() config.PDFConfig {
	return config.PDFConfig{
		SilentViewers: []config.RendererSpec{{
			Name:  "SumatraPDF",
			Paths: []string{`C:\SumatraPDF.exe`},
			Args:  []string{"-print-to", "{printer}", "-silent", "{file}"},
		}},
		FullReaders: []config.RendererSpec{{
			Name:  "Adobe Acrobat",
			Paths: []string{`C:\Acrobat.exe`},
			Args:  []string{"/t", "{file}", "{printer}"},
		}},
		Fallback: config.RendererSpec{
			Name:  "shell open",
			Paths: []string{"cmd.exe"},
			Args:  []string{"/c", "start", "/min", "", "{file}"},
		},
		SilentTimeout: time.Second,
	}
}

func TestDocumentSender_SilentViewer(t *testing.T) {
	runner := &fakeRunner{}
	scratch := &fakeScratch{}
	chain := BuildChain(testPDFConfig(), mapProber{`C:\SumatraPDF.exe`: true, "cmd.exe": true}, runner)

	err := NewDocumentSender(scratch, chain, 10*time.Second).Send(context.Background(), "Office", []byte("%PDF-1.4"))
	require.NoError(t, err)

	require.Len(t, runner.calls, 1)
	assert.Equal(t, call{"run", `C:\SumatraPDF.exe`, []string{"-print-to", "Office", "-silent", "/scratch/printmesh_test.pdf"}}, runner.calls[0])
	assert.Equal(t, map[string]time.Duration{"/scratch/printmesh_test.pdf": 10 * time.Second}, scratch.removed)
}

func TestDocumentSender_SilentViewerFailureIsFinal(t *testing.T) {
	runner := &fakeRunner{runErr: errors.New("exit status 1")}
	scratch := &fakeScratch{}
	chain := BuildChain(testPDFConfig(), mapProber{`C:\SumatraPDF.exe`: true, `C:\Acrobat.exe`: true}, runner)

	err := NewDocumentSender(scratch, chain, time.Second).Send(context.Background(), "Office", []byte("%PDF"))
	require.Error(t, err)
	assert.ErrorIs(t, err, printjob.ErrDelivery)
	assert.Len(t, runner.calls, 1, "a failing renderer must not fall through")
	assert.Len(t, scratch.removed, 1, "cleanup is scheduled on failure too")
}

func TestDocumentSender_FullReaderTerminatedAfterGrace(t *testing.T) {
	p := &fakeProcess{}
	runner := &fakeRunner{startFn: func() (proc.Process, error) { return p, nil }}
	chain := BuildChain(testPDFConfig(), mapProber{`C:\Acrobat.exe`: true}, runner)

	err := NewDocumentSender(&fakeScratch{}, chain, time.Second).Send(context.Background(), "Office", []byte("%PDF"))
	require.NoError(t, err)
	require.Len(t, runner.calls, 1)
	assert.Equal(t, "start", runner.calls[0].mode)
	assert.Equal(t, []string{"/t", "/scratch/printmesh_test.pdf", "Office"}, runner.calls[0].args)
	assert.True(t, p.terminated)
}

func TestDocumentSender_FullReaderAlreadyExited(t *testing.T) {
	p := &fakeProcess{exited: true}
	runner := &fakeRunner{startFn: func() (proc.Process, error) { return p, nil }}
	chain := BuildChain(testPDFConfig(), mapProber{`C:\Acrobat.exe`: true}, runner)

	require.NoError(t, NewDocumentSender(&fakeScratch{}, chain, time.Second).Send(context.Background(), "Office", []byte("%PDF")))
	assert.False(t, p.terminated)
}

func TestDocumentSender_FullReaderWaitsWithinGrace(t *testing.T) {
	cfg := testPDFConfig()
	cfg.ReaderGrace = 5 * time.Second

	tests := []struct {
		name       string
		exited     bool
		terminated bool
	}{
		{name: "exits before grace", exited: true, terminated: false},
		{name: "still open after grace", exited: false, terminated: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := &fakeProcess{exited: tt.exited}
			runner := &fakeRunner{startFn: func() (proc.Process, error) { return p, nil }}
			chain := BuildChain(cfg, mapProber{`C:\Acrobat.exe`: true}, runner)

			require.NoError(t, NewDocumentSender(&fakeScratch{}, chain, time.Second).Send(context.Background(), "Office", []byte("%PDF")))
			assert.Equal(t, []time.Duration{5 * time.Second}, p.waited)
			assert.Equal(t, tt.terminated, p.terminated)
		})
	}
}

func TestDocumentSender_FullReaderWaitBoundedByDeadline(t *testing.T) {
	cfg := testPDFConfig()
	cfg.ReaderGrace = time.Minute
	p := &fakeProcess{exited: true}
	runner := &fakeRunner{startFn: func() (proc.Process, error) { return p, nil }}
	chain := BuildChain(cfg, mapProber{`C:\Acrobat.exe`: true}, runner)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, NewDocumentSender(&fakeScratch{}, chain, time.Second).Send(ctx, "Office", []byte("%PDF")))
	require.Len(t, p.waited, 1)
	assert.LessOrEqual(t, p.waited[0], 2*time.Second)
	assert.Positive(t, p.waited[0])
}

func TestDocumentSender_FullReaderCancelled(t *testing.T) {
	p := &fakeProcess{}
	runner := &fakeRunner{startFn: func() (proc.Process, error) { return p, nil }}
	chain := BuildChain(testPDFConfig(), mapProber{`C:\Acrobat.exe`: true}, runner)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := NewDocumentSender(&fakeScratch{}, chain, time.Second).Send(ctx, "Office", []byte("%PDF"))
	assert.ErrorIs(t, err, context.Canceled)
	assert.True(t, p.terminated)
}

func TestDocumentSender_FallbackStillSucceeds(t *testing.T) {
	runner := &fakeRunner{}
	scratch := &fakeScratch{}
	chain := BuildChain(testPDFConfig(), mapProber{"cmd.exe": true}, runner)

	s := NewDocumentSender(scratch, chain, 10*time.Second)
	r, exe, ok := s.Select()
	require.True(t, ok)
	assert.Equal(t, StageFallback, r.Stage)
	assert.Equal(t, "cmd.exe", exe)

	require.NoError(t, s.Send(context.Background(), "Office", []byte("%PDF")))
	require.Len(t, runner.calls, 1)
	assert.Equal(t, []string{"/c", "start", "/min", "", "/scratch/printmesh_test.pdf"}, runner.calls[0].args)
	assert.Contains(t, scratch.removed, "/scratch/printmesh_test.pdf")
}

func TestDocumentSender_NoRenderer(t *testing.T) {
	scratch := &fakeScratch{}
	chain := BuildChain(testPDFConfig(), mapProber{}, &fakeRunner{})

	err := NewDocumentSender(scratch, chain, time.Second).Send(context.Background(), "Office", []byte("%PDF"))
	require.Error(t, err)
	assert.ErrorIs(t, err, printjob.ErrDelivery)
	assert.ErrorIs(t, err, errNoRenderer)
	assert.Contains(t, err.Error(), "(tried SumatraPDF, Adobe Acrobat, shell open)")
	assert.Len(t, scratch.removed, 1)
}

func TestDocumentSender_ScratchFailure(t *testing.T) {
	scratch := &fakeScratch{createErr: errors.New("disk full")}
	runner := &fakeRunner{}
	chain := BuildChain(testPDFConfig(), mapProber{`C:\SumatraPDF.exe`: true}, runner)

	err := NewDocumentSender(scratch, chain, time.Second).Send(context.Background(), "Office", []byte("%PDF"))
	require.Error(t, err)
	assert.ErrorIs(t, err, printjob.ErrDelivery)
	assert.Empty(t, runner.calls)
	assert.Empty(t, scratch.removed)
}

func TestBuildChain_Order(t *testing.T) {
	chain := BuildChain(testPDFConfig(), mapProber{}, &fakeRunner{})
	require.Len(t, chain, 3)
	assert.Equal(t, []Stage{StageSilent, StageReader, StageFallback}, []Stage{chain[0].Stage, chain[1].Stage, chain[2].Stage})
	assert.Equal(t, "SumatraPDF", chain[0].Name)
}

func TestFSProber_Find(t *testing.T) {
	dir := t.TempDir()
	exe := filepath.Join(dir, "viewer")
	require.NoError(t, os.WriteFile(exe, []byte("#!/bin/sh\n"), 0o755))

	p := FSProber{ExeDir: dir}

	tests := []struct {
		name  string
		paths []string
		want  string
		ok    bool
	}{
		{name: "absolute path", paths: []string{filepath.Join(dir, "missing"), exe}, want: exe, ok: true},
		{name: "exe dir placeholder", paths: []string{filepath.Join("{exe_dir}", "viewer")}, want: exe, ok: true},
		{name: "directory is not a program", paths: []string{dir}, ok: false},
		{name: "nothing found", paths: []string{filepath.Join(dir, "nope")}, ok: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := p.Find(tt.paths)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestFSProber_EmptyExeDirSkipsPlaceholder(t *testing.T) {
	_, ok := FSProber{}.Find([]string{"{exe_dir}/viewer"})
	assert.False(t, ok)
}
