// Package doctor checks a printmesh configuration against the host it will
// run on: which PDF renderer would be picked, whether printers are visible,
// whether the scratch directory is usable.
package doctor

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/mattjoyce/printmesh/internal/config"
	"github.com/mattjoyce/printmesh/internal/sender"
)

// Result holds the outcome of a validation run.
type Result struct {
	Valid    bool    `json:"valid"`
	Errors   []Issue `json:"errors,omitempty"`
	Warnings []Issue `json:"warnings,omitempty"`
	Notes    []Issue `json:"notes,omitempty"`
}

// Issue describes a single validation error or warning.
type Issue struct {
	Category string `json:"category"`
	Message  string `json:"message"`
	Field    string `json:"field,omitempty"`
}

// RendererSelector reports the PDF renderer a job would use right now.
type RendererSelector interface {
	Select() (sender.Renderer, string, bool)
}

// PrinterLister lists installed printers.
type PrinterLister interface {
	List(ctx context.Context) []string
}

// Doctor validates configuration against the local host.
type Doctor struct {
	cfg       *config.Config
	renderers RendererSelector
	printers  PrinterLister
}

// New creates a Doctor. renderers and printers may be nil to skip host probes.
func New(cfg *config.Config, renderers RendererSelector, printers PrinterLister) *Doctor {
	return &Doctor{cfg: cfg, renderers: renderers, printers: printers}
}

// Validate runs all checks and returns a result.
func (d *Doctor) Validate(ctx context.Context) *Result {
	r := &Result{Valid: true}

	d.validateAPIConfig(r)
	d.validateScratchDir(r)
	d.validateTimeouts(r)
	d.validateUpdateConfig(r)
	d.checkRenderer(r)
	d.checkPrinters(ctx, r)

	r.Valid = len(r.Errors) == 0
	return r
}

func (d *Doctor) addError(r *Result, category, field, msg string) {
	r.Errors = append(r.Errors, Issue{Category: category, Field: field, Message: msg})
}

func (d *Doctor) addWarning(r *Result, category, field, msg string) {
	r.Warnings = append(r.Warnings, Issue{Category: category, Field: field, Message: msg})
}

func (d *Doctor) addNote(r *Result, category, msg string) {
	r.Notes = append(r.Notes, Issue{Category: category, Message: msg})
}

func (d *Doctor) validateAPIConfig(r *Result) {
	api := d.cfg.API
	if api.NetworkMode {
		d.addWarning(r, "api", "api.network_mode",
			fmt.Sprintf("listening on all interfaces (port %d) with CORS open to any origin", api.Port))
		return
	}
	if len(api.AllowedOrigins) == 0 {
		d.addWarning(r, "api", "api.allowed_origins", "no browser origin may call the agent")
	}
	for _, origin := range api.AllowedOrigins {
		u, err := url.Parse(origin)
		if err != nil || u.Scheme == "" || u.Host == "" {
			d.addError(r, "api", "api.allowed_origins", fmt.Sprintf("origin %q must be scheme://host[:port]", origin))
		}
	}
}

func (d *Doctor) validateScratchDir(r *Result) {
	dir := d.cfg.Printing.ScratchDir
	if err := os.MkdirAll(dir, 0o755); err != nil {
		d.addError(r, "printing", "printing.scratch_dir", fmt.Sprintf("cannot create %s: %v", dir, err))
		return
	}
	probe, err := os.CreateTemp(dir, ".doctor-*")
	if err != nil {
		d.addError(r, "printing", "printing.scratch_dir", fmt.Sprintf("%s is not writable: %v", dir, err))
		return
	}
	name := probe.Name()
	_ = probe.Close()
	_ = os.Remove(name)
}

// validateTimeouts flags PDF jobs that could outlive the HTTP write timeout.
func (d *Doctor) validateTimeouts(r *Result) {
	pdf := d.cfg.Printing.PDF
	worst := pdf.SilentTimeout + pdf.SilentGrace
	if alt := pdf.ReaderGrace + pdf.FallbackGrace; alt > worst {
		worst = alt
	}
	if wt := d.cfg.API.WriteTimeout; wt > 0 && worst >= wt {
		d.addWarning(r, "timeouts", "api.write_timeout",
			fmt.Sprintf("write timeout %s is shorter than the slowest PDF path (%s); clients may see dropped responses", wt, worst))
	}
	if d.cfg.Peers.ForwardTimeout > 0 && d.cfg.API.WriteTimeout > 0 && d.cfg.Peers.ForwardTimeout >= d.cfg.API.WriteTimeout {
		d.addWarning(r, "timeouts", "peers.forward_timeout", "forward timeout is not shorter than api.write_timeout")
	}
}

func (d *Doctor) validateUpdateConfig(r *Result) {
	u := d.cfg.Update
	parsed, err := url.Parse(u.CheckURL)
	if err != nil || (parsed.Scheme != "http" && parsed.Scheme != "https") || parsed.Host == "" {
		d.addError(r, "update", "update.check_url", fmt.Sprintf("%q is not an http(s) URL", u.CheckURL))
	}
	if len(u.Installer) == 0 {
		d.addWarning(r, "update", "update.installer", "no installer configured; updates cannot be installed")
		return
	}
	if !strings.Contains(strings.Join(u.Installer, " "), "{file}") {
		d.addWarning(r, "update", "update.installer", "installer command does not reference {file}")
	}
}

func (d *Doctor) checkRenderer(r *Result) {
	if d.renderers == nil {
		return
	}
	renderer, exe, ok := d.renderers.Select()
	switch {
	case !ok:
		d.addWarning(r, "pdf", "printing.pdf", "no PDF renderer found; PDF and image jobs will fail")
	case renderer.Stage == sender.StageFallback:
		d.addWarning(r, "pdf", "printing.pdf.fallback",
			fmt.Sprintf("only the OS default handler (%s) is available; install a silent viewer for reliable printing", filepath.Base(exe)))
	default:
		d.addNote(r, "pdf", fmt.Sprintf("PDF jobs use %s (%s) at %s", renderer.Name, renderer.Stage, exe))
	}
}

func (d *Doctor) checkPrinters(ctx context.Context, r *Result) {
	if d.printers == nil {
		return
	}
	names := d.printers.List(ctx)
	if len(names) == 0 {
		d.addWarning(r, "printers", "", "no printers are installed or the spooler is unreachable")
		return
	}
	d.addNote(r, "printers", fmt.Sprintf("%d printer(s): %s", len(names), strings.Join(names, ", ")))
}

// FormatHuman returns a human-readable validation report.
func FormatHuman(r *Result) string {
	var b strings.Builder

	switch {
	case r.Valid && len(r.Warnings) == 0:
		b.WriteString("Configuration valid.\n")
	case r.Valid:
		fmt.Fprintf(&b, "Configuration valid (%d warning(s))\n", len(r.Warnings))
	default:
		fmt.Fprintf(&b, "Configuration invalid (%d error(s), %d warning(s))\n", len(r.Errors), len(r.Warnings))
	}

	for _, e := range r.Errors {
		writeIssue(&b, "ERROR", e)
	}
	for _, w := range r.Warnings {
		writeIssue(&b, "WARN ", w)
	}
	for _, n := range r.Notes {
		writeIssue(&b, "INFO ", n)
	}

	return b.String()
}

func writeIssue(b *strings.Builder, label string, i Issue) {
	if i.Field != "" {
		fmt.Fprintf(b, "  %s [%s] %s: %s\n", label, i.Category, i.Field, i.Message)
		return
	}
	fmt.Fprintf(b, "  %s [%s] %s\n", label, i.Category, i.Message)
}

// FormatJSON returns the result as indented JSON.
func FormatJSON(r *Result) (string, error) {
	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return "", err
	}
	return string(data), nil
}
