//go:build windows

// Package winspool binds the parts of the Windows spooler API the agent needs:
// printer enumeration and the raw document protocol.
package winspool

import (
	"errors"
	"fmt"
	"unsafe"

	"golang.org/x/sys/windows"
)

// AttributeNetwork is PRINTER_ATTRIBUTE_NETWORK.
const AttributeNetwork = 0x00000010

const (
	enumLocal       = 0x00000002
	enumConnections = 0x00000004
)

var (
	modwinspool = windows.NewLazySystemDLL("winspool.drv")

	procEnumPrintersW      = modwinspool.NewProc("EnumPrintersW")
	procGetDefaultPrinterW = modwinspool.NewProc("GetDefaultPrinterW")
	procOpenPrinterW       = modwinspool.NewProc("OpenPrinterW")
	procClosePrinter       = modwinspool.NewProc("ClosePrinter")
	procStartDocPrinterW   = modwinspool.NewProc("StartDocPrinterW")
	procEndDocPrinter      = modwinspool.NewProc("EndDocPrinter")
	procStartPagePrinter   = modwinspool.NewProc("StartPagePrinter")
	procEndPagePrinter     = modwinspool.NewProc("EndPagePrinter")
	procWritePrinter       = modwinspool.NewProc("WritePrinter")
)

// PrinterInfo is the subset of PRINTER_INFO_4 the agent reports.
type PrinterInfo struct {
	Name       string
	Attributes uint32
}

type printerInfo4 struct {
	PrinterName *uint16
	ServerName  *uint16
	Attributes  uint32
}

type docInfo1 struct {
	DocName    *uint16
	OutputFile *uint16
	Datatype   *uint16
}

// EnumPrinters lists local and connected printers in spooler order.
func EnumPrinters() ([]PrinterInfo, error) {
	var needed, returned uint32
	flags := uintptr(enumLocal | enumConnections)

	r1, _, err := procEnumPrintersW.Call(flags, 0, 4, 0, 0,
		uintptr(unsafe.Pointer(&needed)), uintptr(unsafe.Pointer(&returned)))
	if r1 == 0 && !errors.Is(err, windows.ERROR_INSUFFICIENT_BUFFER) {
		return nil, fmt.Errorf("EnumPrintersW size probe: %w", err)
	}
	if needed == 0 {
		return nil, nil
	}

	buf := make([]byte, needed)
	r1, _, err = procEnumPrintersW.Call(flags, 0, 4,
		uintptr(unsafe.Pointer(&buf[0])), uintptr(needed),
		uintptr(unsafe.Pointer(&needed)), uintptr(unsafe.Pointer(&returned)))
	if r1 == 0 {
		return nil, fmt.Errorf("EnumPrintersW: %w", err)
	}
	if returned == 0 {
		return nil, nil
	}

	entries := unsafe.Slice((*printerInfo4)(unsafe.Pointer(&buf[0])), returned)
	out := make([]PrinterInfo, 0, returned)
	for _, e := range entries {
		out = append(out, PrinterInfo{
			Name:       windows.UTF16PtrToString(e.PrinterName),
			Attributes: e.Attributes,
		})
	}
	return out, nil
}

// DefaultPrinter returns the user's default printer, or "" when none is set.
func DefaultPrinter() (string, error) {
	var size uint32
	r1, _, err := procGetDefaultPrinterW.Call(0, uintptr(unsafe.Pointer(&size)))
	if r1 == 0 {
		if errors.Is(err, windows.ERROR_FILE_NOT_FOUND) {
			return "", nil
		}
		if !errors.Is(err, windows.ERROR_INSUFFICIENT_BUFFER) {
			return "", fmt.Errorf("GetDefaultPrinterW size probe: %w", err)
		}
	}
	if size == 0 {
		return "", nil
	}

	buf := make([]uint16, size)
	r1, _, err = procGetDefaultPrinterW.Call(uintptr(unsafe.Pointer(&buf[0])), uintptr(unsafe.Pointer(&size)))
	if r1 == 0 {
		return "", fmt.Errorf("GetDefaultPrinterW: %w", err)
	}
	return windows.UTF16ToString(buf), nil
}

// Handle is an open spooler printer handle.
type Handle windows.Handle

// OpenPrinter opens the named printer with default access.
func OpenPrinter(name string) (Handle, error) {
	pName, err := windows.UTF16PtrFromString(name)
	if err != nil {
		return 0, err
	}
	var h windows.Handle
	r1, _, err := procOpenPrinterW.Call(uintptr(unsafe.Pointer(pName)), uintptr(unsafe.Pointer(&h)), 0)
	if r1 == 0 {
		return 0, fmt.Errorf("OpenPrinterW %q: %w", name, err)
	}
	return Handle(h), nil
}

// StartDoc begins a level-1 document. dataType "RAW" bypasses the driver.
func (h Handle) StartDoc(docName, dataType string) error {
	pDoc, err := windows.UTF16PtrFromString(docName)
	if err != nil {
		return err
	}
	pType, err := windows.UTF16PtrFromString(dataType)
	if err != nil {
		return err
	}
	info := docInfo1{DocName: pDoc, Datatype: pType}
	r1, _, err := procStartDocPrinterW.Call(uintptr(h), 1, uintptr(unsafe.Pointer(&info)))
	if r1 == 0 {
		return fmt.Errorf("StartDocPrinterW: %w", err)
	}
	return nil
}

func (h Handle) StartPage() error {
	if r1, _, err := procStartPagePrinter.Call(uintptr(h)); r1 == 0 {
		return fmt.Errorf("StartPagePrinter: %w", err)
	}
	return nil
}

// Write hands p to the spooler in one WritePrinter call and returns the
// byte count the spooler reported.
func (h Handle) Write(p []byte) (int, error) {
	if len(p) == 0 {
		return 0, nil
	}
	var written uint32
	r1, _, err := procWritePrinter.Call(uintptr(h), uintptr(unsafe.Pointer(&p[0])), uintptr(len(p)),
		uintptr(unsafe.Pointer(&written)))
	if r1 == 0 {
		return int(written), fmt.Errorf("WritePrinter: %w", err)
	}
	return int(written), nil
}

func (h Handle) EndPage() error {
	if r1, _, err := procEndPagePrinter.Call(uintptr(h)); r1 == 0 {
		return fmt.Errorf("EndPagePrinter: %w", err)
	}
	return nil
}

func (h Handle) EndDoc() error {
	if r1, _, err := procEndDocPrinter.Call(uintptr(h)); r1 == 0 {
		return fmt.Errorf("EndDocPrinter: %w", err)
	}
	return nil
}

func (h Handle) Close() error {
	if r1, _, err := procClosePrinter.Call(uintptr(h)); r1 == 0 {
		return fmt.Errorf("ClosePrinter: %w", err)
	}
	return nil
}
