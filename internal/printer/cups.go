package printer

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"net/url"
	"os/exec"
	"strings"

	"github.com/mattjoyce/printmesh/internal/printjob"
)

// CommandRunner runs a program and returns its stdout.
type CommandRunner interface {
	Output(ctx context.Context, name string, args ...string) ([]byte, error)
}

// ExecRunner runs real processes.
type ExecRunner struct{}

func (ExecRunner) Output(ctx context.Context, name string, args ...string) ([]byte, error) {
	return exec.CommandContext(ctx, name, args...).Output()
}

var networkSchemes = map[string]bool{
	"ipp": true, "ipps": true, "http": true, "https": true,
	"socket": true, "lpd": true, "dnssd": true, "smb": true,
}

// CUPSLister enumerates CUPS destinations with lpstat.
type CUPSLister struct {
	run CommandRunner
}

func NewCUPSLister(run CommandRunner) *CUPSLister {
	return &CUPSLister{run: run}
}

// Printers lists destinations (lpstat -e). The default (lpstat -d) and
// device URIs (lpstat -v) are best-effort decorations.
func (l *CUPSLister) Printers(ctx context.Context) ([]printjob.PrinterSummary, error) {
	out, err := l.run.Output(ctx, "lpstat", "-e")
	if err != nil {
		return nil, fmt.Errorf("lpstat -e: %w", err)
	}
	names := parseDestinations(out)

	var def string
	if out, err := l.run.Output(ctx, "lpstat", "-d"); err == nil {
		def = parseDefault(out)
	}
	devices := map[string]string{}
	if out, err := l.run.Output(ctx, "lpstat", "-v"); err == nil {
		devices = parseDevices(out)
	}

	printers := make([]printjob.PrinterSummary, 0, len(names))
	for _, name := range names {
		printers = append(printers, printjob.PrinterSummary{
			Name:             name,
			IsDefault:        name == def,
			IsNetworkPrinter: isNetworkURI(devices[name]),
		})
	}
	return printers, nil
}

func parseDestinations(out []byte) []string {
	var names []string
	sc := bufio.NewScanner(bytes.NewReader(out))
	for sc.Scan() {
		if name := strings.TrimSpace(sc.Text()); name != "" {
			names = append(names, name)
		}
	}
	return names
}

// parseDefault reads "system default destination: NAME".
func parseDefault(out []byte) string {
	line := strings.TrimSpace(string(out))
	if i := strings.LastIndex(line, ":"); i >= 0 && strings.Contains(line, "default destination") {
		return strings.TrimSpace(line[i+1:])
	}
	return ""
}

// parseDevices reads "device for NAME: URI" lines.
func parseDevices(out []byte) map[string]string {
	devices := make(map[string]string)
	sc := bufio.NewScanner(bytes.NewReader(out))
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		rest, ok := strings.CutPrefix(line, "device for ")
		if !ok {
			continue
		}
		name, uri, ok := strings.Cut(rest, ": ")
		if !ok {
			continue
		}
		devices[name] = strings.TrimSpace(uri)
	}
	return devices
}

func isNetworkURI(uri string) bool {
	if uri == "" {
		return false
	}
	u, err := url.Parse(uri)
	if err != nil {
		return false
	}
	return networkSchemes[strings.ToLower(u.Scheme)]
}
