package sender

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/mattjoyce/printmesh/internal/log"
	"github.com/mattjoyce/printmesh/internal/printjob"
)

// ScratchStore persists payloads for external renderers.
type ScratchStore interface {
	Create(ctx context.Context, prefix, ext string, data []byte) (string, error)
	RemoveAfter(path string, delay time.Duration)
}

var errNoRenderer = errors.New("no PDF renderer available")

// DocumentSender prints PDFs through the first renderer whose probe succeeds.
type DocumentSender struct {
	scratch      ScratchStore
	chain        []Renderer
	cleanupDelay time.Duration
	logger       *slog.Logger
}

func NewDocumentSender(scratch ScratchStore, chain []Renderer, cleanupDelay time.Duration) *DocumentSender {
	return &DocumentSender{
		scratch:      scratch,
		chain:        chain,
		cleanupDelay: cleanupDelay,
		logger:       log.WithComponent("sender.document"),
	}
}

// Send writes pdf to a scratch file and invokes the first available renderer.
// The scratch file is scheduled for removal on every path once it exists.
func (s *DocumentSender) Send(ctx context.Context, printer string, pdf []byte) error {
	path, err := s.scratch.Create(ctx, "printmesh", ".pdf", pdf)
	if err != nil {
		return fmt.Errorf("%w: persist document: %w", printjob.ErrDelivery, err)
	}
	defer s.scratch.RemoveAfter(path, s.cleanupDelay)

	r, exe, ok := s.Select()
	if !ok {
		tried := strings.Join(s.rendererNames(), ", ")
		log.WithPrinter(s.logger, printer).Error("document not printed", "error", errNoRenderer, "tried", tried)
		return fmt.Errorf("%w: %w (tried %s)", printjob.ErrDelivery, errNoRenderer, tried)
	}

	logger := log.WithPrinter(s.logger, printer).With("renderer", r.Name, "stage", r.Stage.String())
	if r.Stage == StageFallback {
		logger.Warn("no PDF renderer found, opening with the OS default handler; install SumatraPDF for reliable silent printing")
	}

	if err := r.Invoke(ctx, exe, printer, path); err != nil {
		logger.Error("document render failed", "error", err)
		return fmt.Errorf("%w: %w", printjob.ErrDelivery, err)
	}

	logger.Info("document submitted to renderer", "bytes", len(pdf))
	return nil
}

func (s *DocumentSender) rendererNames() []string {
	names := make([]string, 0, len(s.chain))
	for _, r := range s.chain {
		names = append(names, r.Name)
	}
	return names
}

// Select returns the renderer that Send would use right now.
func (s *DocumentSender) Select() (Renderer, string, bool) {
	for _, r := range s.chain {
		if exe, ok := r.Probe(); ok {
			return r, exe, true
		}
	}
	return Renderer{}, "", false
}
