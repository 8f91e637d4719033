//go:build !windows

package sender

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"strings"
)

// cupsRawDevice submits raw jobs through CUPS: "lp -o raw" reading stdin.
type cupsRawDevice struct {
	lpPath string
}

func newSystemRawDevice() RawDevice {
	return cupsRawDevice{lpPath: "lp"}
}

func (d cupsRawDevice) Open(ctx context.Context, printer string) (RawHandle, error) {
	if strings.TrimSpace(printer) == "" {
		return nil, errors.New("printer name is empty")
	}
	path, err := exec.LookPath(d.lpPath)
	if err != nil {
		return nil, fmt.Errorf("lp not available: %w", err)
	}
	return &lpHandle{ctx: ctx, lpPath: path, printer: printer}, nil
}

// lpHandle maps the document protocol onto one lp process: StartDoc
// launches it, Write feeds stdin and EndDoc waits for it to accept the job.
type lpHandle struct {
	ctx     context.Context
	lpPath  string
	printer string

	cmd    *exec.Cmd
	stdin  io.WriteCloser
	stderr bytes.Buffer
	ended  bool
}

func (h *lpHandle) StartDoc(docName, dataType string) error {
	if h.cmd != nil {
		return errors.New("document already started")
	}
	args := []string{"-d", h.printer, "-t", docName}
	if dataType == RawDataType {
		args = append(args, "-o", "raw")
	}
	args = append(args, "--", "-")

	cmd := exec.CommandContext(h.ctx, h.lpPath, args...)
	cmd.Stderr = &h.stderr
	stdin, err := cmd.StdinPipe()
	if err != nil {
		return fmt.Errorf("create stdin pipe: %w", err)
	}
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("start lp: %w", err)
	}
	h.cmd = cmd
	h.stdin = stdin
	return nil
}

func (h *lpHandle) StartPage() error {
	if h.cmd == nil {
		return errors.New("no document started")
	}
	return nil
}

func (h *lpHandle) Write(p []byte) (int, error) {
	if h.stdin == nil {
		return 0, errors.New("no document started")
	}
	return h.stdin.Write(p)
}

func (h *lpHandle) EndPage() error { return nil }

func (h *lpHandle) EndDoc() error {
	if h.cmd == nil {
		return errors.New("no document started")
	}
	h.ended = true
	if err := h.stdin.Close(); err != nil {
		return fmt.Errorf("close lp stdin: %w", err)
	}
	if err := h.cmd.Wait(); err != nil {
		return fmt.Errorf("lp: %w: %s", err, strings.TrimSpace(h.stderr.String()))
	}
	return nil
}

// Close abandons an unfinished job by killing lp.
func (h *lpHandle) Close() error {
	if h.cmd == nil || h.ended {
		return nil
	}
	_ = h.stdin.Close()
	_ = h.cmd.Process.Kill()
	_ = h.cmd.Wait()
	return nil
}
