//go:build windows

package sender

import (
	"context"

	"github.com/mattjoyce/printmesh/internal/winspool"
)

type spoolerRawDevice struct{}

func newSystemRawDevice() RawDevice {
	return spoolerRawDevice{}
}

func (spoolerRawDevice) Open(ctx context.Context, printer string) (RawHandle, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	h, err := winspool.OpenPrinter(printer)
	if err != nil {
		return nil, err
	}
	return h, nil
}
