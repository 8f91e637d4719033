package config

import (
	"net"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"time"
)

var currentGOOS = runtime.GOOS

// Config represents the complete printmesh configuration.
type Config struct {
	Service  ServiceConfig  `yaml:"service" json:"service"`
	API      APIConfig      `yaml:"api" json:"api"`
	Printing PrintingConfig `yaml:"printing" json:"printing"`
	Peers    PeersConfig    `yaml:"peers" json:"peers"`
	Update   UpdateConfig   `yaml:"update" json:"update"`
}

// ServiceConfig defines core service settings.
type ServiceConfig struct {
	Name      string `yaml:"name" json:"name"`
	LogLevel  string `yaml:"log_level" json:"log_level"`
	LogFormat string `yaml:"log_format" json:"log_format"`
	// LogDir, when set, receives a copy of every log record in daily
	// printmesh-YYYYMMDD.log files.
	LogDir string `yaml:"log_dir,omitempty" json:"log_dir,omitempty"`
	// VersionFile overrides the compiled-in version with the file's trimmed content.
	VersionFile string `yaml:"version_file,omitempty" json:"version_file,omitempty"`
}

// APIConfig defines HTTP API server settings.
type APIConfig struct {
	Port int `yaml:"port" json:"port"`
	// NetworkMode binds all interfaces and allows any CORS origin. Otherwise
	// the agent only listens on loopback.
	NetworkMode    bool          `yaml:"network_mode" json:"network_mode"`
	AllowedOrigins []string      `yaml:"allowed_origins" json:"allowed_origins"`
	ReadTimeout    time.Duration `yaml:"read_timeout" json:"read_timeout"`
	WriteTimeout   time.Duration `yaml:"write_timeout" json:"write_timeout"`
}

// ListenAddr returns the address the HTTP server binds to.
func (a APIConfig) ListenAddr() string {
	host := "127.0.0.1"
	if a.NetworkMode {
		host = "0.0.0.0"
	}
	return net.JoinHostPort(host, strconv.Itoa(a.Port))
}

// PrintingConfig groups the sender settings.
type PrintingConfig struct {
	ScratchDir       string        `yaml:"scratch_dir" json:"scratch_dir"`
	ScratchRetention time.Duration `yaml:"scratch_retention" json:"scratch_retention"`
	Socket           SocketConfig  `yaml:"socket" json:"socket"`
	Raw              RawConfig     `yaml:"raw" json:"raw"`
	Image            ImageConfig   `yaml:"image" json:"image"`
	PDF              PDFConfig     `yaml:"pdf" json:"pdf"`
}

type SocketConfig struct {
	Timeout time.Duration `yaml:"timeout" json:"timeout"`
}

type RawConfig struct {
	DocumentName string `yaml:"document_name" json:"document_name"`
}

// ImageConfig is the page geometry used when laying out bitmap jobs.
type ImageConfig struct {
	PageSize    string `yaml:"page_size" json:"page_size"`     // A4, A5, Letter, Legal
	Orientation string `yaml:"orientation" json:"orientation"` // portrait, landscape
}

// PageSizes maps the accepted page_size values (lower-cased) to the names
// understood by the PDF layout engine.
var PageSizes = map[string]string{
	"a3":     "A3",
	"a4":     "A4",
	"a5":     "A5",
	"letter": "Letter",
	"legal":  "Legal",
}

// PDFConfig describes the renderer fallback chain. Silent viewers are tried
// first, then full readers, then the fallback handler.
type PDFConfig struct {
	SilentViewers []RendererSpec `yaml:"silent_viewers" json:"silent_viewers"`
	FullReaders   []RendererSpec `yaml:"full_readers" json:"full_readers"`
	Fallback      RendererSpec   `yaml:"fallback" json:"fallback"`
	// SilentTimeout bounds the wait for a silent viewer to exit.
	SilentTimeout time.Duration `yaml:"silent_timeout" json:"silent_timeout"`
	SilentGrace   time.Duration `yaml:"silent_grace" json:"silent_grace"`
	ReaderGrace   time.Duration `yaml:"reader_grace" json:"reader_grace"`
	FallbackGrace time.Duration `yaml:"fallback_grace" json:"fallback_grace"`
	CleanupDelay  time.Duration `yaml:"cleanup_delay" json:"cleanup_delay"`
}

// RendererSpec names an external program. Paths are probed in order; a bare
// name is looked up on PATH and {exe_dir} expands to the agent's directory.
// Args may reference {printer} and {file}.
type RendererSpec struct {
	Name  string   `yaml:"name" json:"name"`
	Paths []string `yaml:"paths" json:"paths"`
	Args  []string `yaml:"args" json:"args"`
}

type PeersConfig struct {
	ForwardTimeout time.Duration `yaml:"forward_timeout" json:"forward_timeout"`
	InfoTimeout    time.Duration `yaml:"info_timeout" json:"info_timeout"`
}

type UpdateConfig struct {
	CheckURL        string        `yaml:"check_url" json:"check_url"`
	CheckTimeout    time.Duration `yaml:"check_timeout" json:"check_timeout"`
	DownloadTimeout time.Duration `yaml:"download_timeout" json:"download_timeout"`
	// Installer is the command launched for a downloaded artifact; {file}
	// expands to the artifact path.
	Installer []string `yaml:"installer" json:"installer"`
}

// Defaults returns a Config with defaults for the current platform.
func Defaults() *Config {
	return defaultsFor(currentGOOS)
}

func defaultsFor(goos string) *Config {
	return &Config{
		Service: ServiceConfig{
			Name:      "printmesh",
			LogLevel:  "info",
			LogFormat: "json",
		},
		API: APIConfig{
			Port:           5246,
			NetworkMode:    false,
			AllowedOrigins: []string{"http://localhost:3001", "https://hssoftware.nl"},
			ReadTimeout:    30 * time.Second,
			WriteTimeout:   2 * time.Minute,
		},
		Printing: PrintingConfig{
			ScratchDir:       defaultScratchDir(),
			ScratchRetention: 24 * time.Hour,
			Socket:           SocketConfig{Timeout: 5 * time.Second},
			Raw:              RawConfig{DocumentName: "printmesh document"},
			Image:            ImageConfig{PageSize: "A4", Orientation: "portrait"},
			PDF:              defaultPDFConfig(goos),
		},
		Peers: PeersConfig{
			ForwardTimeout: 30 * time.Second,
			InfoTimeout:    10 * time.Second,
		},
		Update: UpdateConfig{
			CheckURL:        "https://hssoftware.nl/api/agent/latest",
			CheckTimeout:    10 * time.Second,
			DownloadTimeout: 5 * time.Minute,
			Installer:       defaultInstaller(goos),
		},
	}
}

func defaultPDFConfig(goos string) PDFConfig {
	pdf := PDFConfig{
		SilentTimeout: 60 * time.Second,
		SilentGrace:   2 * time.Second,
		ReaderGrace:   5 * time.Second,
		FallbackGrace: 3 * time.Second,
		CleanupDelay:  10 * time.Second,
	}

	switch goos {
	case "windows":
		pdf.SilentViewers = []RendererSpec{{
			Name: "SumatraPDF",
			Paths: []string{
				`C:\Program Files\SumatraPDF\SumatraPDF.exe`,
				`C:\Program Files (x86)\SumatraPDF\SumatraPDF.exe`,
				`{exe_dir}\SumatraPDF.exe`,
			},
			Args: []string{"-print-to", "{printer}", "-silent", "{file}"},
		}}
		pdf.FullReaders = []RendererSpec{{
			Name: "Adobe Acrobat",
			Paths: []string{
				`C:\Program Files\Adobe\Acrobat DC\Acrobat\Acrobat.exe`,
				`C:\Program Files (x86)\Adobe\Acrobat Reader DC\Reader\AcroRd32.exe`,
				`C:\Program Files\Adobe\Acrobat Reader DC\Reader\AcroRd32.exe`,
			},
			Args: []string{"/t", "{file}", "{printer}"},
		}}
		pdf.Fallback = RendererSpec{
			Name:  "shell open",
			Paths: []string{"cmd.exe"},
			Args:  []string{"/c", "start", "/min", "", "{file}"},
		}
	case "darwin":
		pdf.SilentViewers = []RendererSpec{{
			Name:  "CUPS lp",
			Paths: []string{"lp", "/usr/bin/lp"},
			Args:  []string{"-d", "{printer}", "{file}"},
		}}
		pdf.Fallback = RendererSpec{
			Name:  "open",
			Paths: []string{"open", "/usr/bin/open"},
			Args:  []string{"{file}"},
		}
	default:
		pdf.SilentViewers = []RendererSpec{{
			Name:  "CUPS lp",
			Paths: []string{"lp", "/usr/bin/lp"},
			Args:  []string{"-d", "{printer}", "{file}"},
		}}
		pdf.Fallback = RendererSpec{
			Name:  "xdg-open",
			Paths: []string{"xdg-open", "/usr/bin/xdg-open"},
			Args:  []string{"{file}"},
		}
	}
	return pdf
}

func defaultInstaller(goos string) []string {
	if goos == "windows" {
		return []string{"msiexec.exe", "/i", "{file}", "/quiet", "/norestart"}
	}
	return []string{"/bin/sh", "{file}"}
}

func defaultScratchDir() string {
	return filepath.Join(os.TempDir(), "printmesh")
}
