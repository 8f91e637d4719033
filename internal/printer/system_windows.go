//go:build windows

package printer

import (
	"context"

	"github.com/mattjoyce/printmesh/internal/printjob"
	"github.com/mattjoyce/printmesh/internal/winspool"
)

type spoolerLister struct{}

func newSystemLister() Lister {
	return spoolerLister{}
}

func (spoolerLister) Printers(ctx context.Context) ([]printjob.PrinterSummary, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	infos, err := winspool.EnumPrinters()
	if err != nil {
		return nil, err
	}
	def, _ := winspool.DefaultPrinter()

	printers := make([]printjob.PrinterSummary, 0, len(infos))
	for _, info := range infos {
		printers = append(printers, printjob.PrinterSummary{
			Name:             info.Name,
			IsDefault:        info.Name == def,
			IsNetworkPrinter: info.Attributes&winspool.AttributeNetwork != 0,
		})
	}
	return printers, nil
}
