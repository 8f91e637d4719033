package sender

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/mattjoyce/printmesh/internal/log"
	"github.com/mattjoyce/printmesh/internal/printjob"
)

// RawDataType is the spooler data type that bypasses driver rendering.
const RawDataType = "RAW"

// RawDevice opens a named printer's raw data channel.
type RawDevice interface {
	Open(ctx context.Context, printer string) (RawHandle, error)
}

// RawHandle is an open raw channel. Close must be called on every path.
type RawHandle interface {
	StartDoc(docName, dataType string) error
	StartPage() error
	Write(p []byte) (int, error)
	EndPage() error
	EndDoc() error
	Close() error
}

// RawSender writes an opaque payload to a local printer as one RAW document.
type RawSender struct {
	device  RawDevice
	docName string
	logger  *slog.Logger
}

// NewRawSender uses the platform spooler.
func NewRawSender(docName string) *RawSender {
	return NewRawSenderWithDevice(newSystemRawDevice(), docName)
}

func NewRawSenderWithDevice(device RawDevice, docName string) *RawSender {
	return &RawSender{
		device:  device,
		docName: docName,
		logger:  log.WithComponent("sender.raw"),
	}
}

// Send runs open, start doc, start page, write, end page, end doc. The first
// failing step aborts the rest and the handle is closed on every path.
func (s *RawSender) Send(ctx context.Context, printer string, payload []byte) error {
	logger := log.WithPrinter(s.logger, printer)

	h, err := s.device.Open(ctx, printer)
	if err != nil {
		return fmt.Errorf("%w: open printer %q: %w", printjob.ErrDelivery, printer, err)
	}
	defer func() {
		if err := h.Close(); err != nil {
			logger.Warn("failed to close printer handle", "error", err)
		}
	}()

	if err := h.StartDoc(s.docName, RawDataType); err != nil {
		return fmt.Errorf("%w: start document on %q: %w", printjob.ErrDelivery, printer, err)
	}
	if err := h.StartPage(); err != nil {
		return fmt.Errorf("%w: start page on %q: %w", printjob.ErrDelivery, printer, err)
	}

	n, err := h.Write(payload)
	if err != nil {
		return fmt.Errorf("%w: write to %q: %w", printjob.ErrDelivery, printer, err)
	}
	if n != len(payload) {
		return fmt.Errorf("%w: short write to %q: %d of %d bytes", printjob.ErrDelivery, printer, n, len(payload))
	}

	if err := h.EndPage(); err != nil {
		return fmt.Errorf("%w: end page on %q: %w", printjob.ErrDelivery, printer, err)
	}
	if err := h.EndDoc(); err != nil {
		return fmt.Errorf("%w: end document on %q: %w", printjob.ErrDelivery, printer, err)
	}

	logger.Info("raw job sent", "bytes", n)
	return nil
}
