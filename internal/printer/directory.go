// Package printer enumerates the printers known to the OS print subsystem.
// The directory is advisory: dispatch never checks a printer name against it.
package printer

import (
	"context"
	"log/slog"
	"time"

	"github.com/mattjoyce/printmesh/internal/log"
	"github.com/mattjoyce/printmesh/internal/printjob"
)

const defaultListTimeout = 5 * time.Second

// Lister queries one OS print subsystem.
type Lister interface {
	Printers(ctx context.Context) ([]printjob.PrinterSummary, error)
}

// Directory wraps a Lister and turns every failure into an empty list.
type Directory struct {
	lister  Lister
	timeout time.Duration
	logger  *slog.Logger
}

// NewDirectory returns a Directory backed by the platform's print subsystem.
func NewDirectory() *Directory {
	return NewDirectoryWithLister(newSystemLister())
}

func NewDirectoryWithLister(l Lister) *Directory {
	return &Directory{
		lister:  l,
		timeout: defaultListTimeout,
		logger:  log.WithComponent("printer"),
	}
}

// List returns printer names in OS enumeration order.
func (d *Directory) List(ctx context.Context) []string {
	summaries := d.Summaries(ctx)
	names := make([]string, 0, len(summaries))
	for _, s := range summaries {
		names = append(names, s.Name)
	}
	return names
}

// Summaries returns printers with their default and network flags.
func (d *Directory) Summaries(ctx context.Context) []printjob.PrinterSummary {
	ctx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()

	printers, err := d.lister.Printers(ctx)
	if err != nil {
		d.logger.Warn("printer enumeration failed", "error", err)
		return []printjob.PrinterSummary{}
	}
	if printers == nil {
		return []printjob.PrinterSummary{}
	}
	return printers
}
