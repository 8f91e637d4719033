package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// ConfigDirEnv names the environment variable consulted by DiscoverConfigDir.
const ConfigDirEnv = "PRINTMESH_CONFIG_DIR"

var envVarPattern = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)\}`)

// Load reads and parses configuration from a file, or from config.yaml inside
// a directory. Keys absent from the file keep their platform defaults.
func Load(configPath string) (*Config, error) {
	absPath, err := ResolveConfigFile(configPath)
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(absPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", absPath, err)
	}

	if err := verifyConfigHash(filepath.Dir(absPath), absPath); err != nil {
		return nil, err
	}

	cfg := Defaults()
	if err := yaml.Unmarshal([]byte(interpolateEnv(string(data))), cfg); err != nil {
		return nil, fmt.Errorf("failed to parse YAML in %s: %w", absPath, err)
	}

	cfg = applyConfigDefaults(cfg)

	if err := validate(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// LoadOrDefault loads configPath when set. With an empty path it tries
// DiscoverConfigDir and falls back to Defaults when nothing is found. The
// returned string is the file that was loaded, or "" for defaults.
func LoadOrDefault(configPath string) (*Config, string, error) {
	if configPath == "" {
		discovered, err := DiscoverConfigDir()
		if err != nil {
			return Defaults(), "", nil
		}
		configPath = discovered
	}

	resolved, err := ResolveConfigFile(configPath)
	if err != nil {
		return nil, "", err
	}
	cfg, err := Load(resolved)
	if err != nil {
		return nil, "", err
	}
	return cfg, resolved, nil
}

// ResolveConfigFile turns a file or directory argument into the absolute path
// of the config file.
func ResolveConfigFile(configPath string) (string, error) {
	absPath, err := filepath.Abs(configPath)
	if err != nil {
		return "", fmt.Errorf("failed to resolve config path %q: %w", configPath, err)
	}

	info, err := os.Stat(absPath)
	if err != nil {
		return "", fmt.Errorf("config file not found: %s\n"+
			"Hint: Check the path or run with --config flag", absPath)
	}

	if info.IsDir() {
		absPath = filepath.Join(absPath, "config.yaml")
		if _, err := os.Stat(absPath); err != nil {
			return "", fmt.Errorf("directory provided but config.yaml not found: %s", absPath)
		}
	}
	return absPath, nil
}

// DiscoverConfigDir finds the config directory by checking standard locations.
// Priority order: $PRINTMESH_CONFIG_DIR, ~/.config/printmesh, /etc/printmesh, ./config.yaml
func DiscoverConfigDir() (string, error) {
	if dir := os.Getenv(ConfigDirEnv); dir != "" {
		if _, err := os.Stat(dir); err == nil {
			return dir, nil
		}
	}

	if homeDir, err := os.UserHomeDir(); err == nil {
		userConfigDir := filepath.Join(homeDir, ".config", "printmesh")
		if _, err := os.Stat(filepath.Join(userConfigDir, "config.yaml")); err == nil {
			return userConfigDir, nil
		}
	}

	systemConfigDir := "/etc/printmesh"
	if _, err := os.Stat(filepath.Join(systemConfigDir, "config.yaml")); err == nil {
		return systemConfigDir, nil
	}

	localConfigPath := "./config.yaml"
	if _, err := os.Stat(localConfigPath); err == nil {
		return localConfigPath, nil
	}

	return "", fmt.Errorf("no config found (checked: $%s, ~/.config/printmesh, /etc/printmesh, ./config.yaml)", ConfigDirEnv)
}

// ResolveVersion returns the trimmed content of service.version_file, or
// fallback when no file is configured or it cannot be read.
func (c *Config) ResolveVersion(fallback string) string {
	if c.Service.VersionFile == "" {
		return fallback
	}
	data, err := os.ReadFile(c.Service.VersionFile)
	if err != nil {
		return fallback
	}
	if v := strings.TrimSpace(string(data)); v != "" {
		return v
	}
	return fallback
}

// applyConfigDefaults restores defaults for values explicitly zeroed in the file.
func applyConfigDefaults(cfg *Config) *Config {
	defaults := Defaults()

	if cfg.Service.Name == "" {
		cfg.Service.Name = defaults.Service.Name
	}
	if cfg.Service.LogLevel == "" {
		cfg.Service.LogLevel = defaults.Service.LogLevel
	}
	if cfg.Service.LogFormat == "" {
		cfg.Service.LogFormat = defaults.Service.LogFormat
	}
	cfg.Service.LogLevel = strings.ToLower(cfg.Service.LogLevel)
	cfg.Service.LogFormat = strings.ToLower(cfg.Service.LogFormat)

	if cfg.API.Port == 0 {
		cfg.API.Port = defaults.API.Port
	}
	if cfg.API.ReadTimeout == 0 {
		cfg.API.ReadTimeout = defaults.API.ReadTimeout
	}
	if cfg.API.WriteTimeout == 0 {
		cfg.API.WriteTimeout = defaults.API.WriteTimeout
	}

	p := &cfg.Printing
	if p.ScratchDir == "" {
		p.ScratchDir = defaults.Printing.ScratchDir
	}
	if p.ScratchRetention == 0 {
		p.ScratchRetention = defaults.Printing.ScratchRetention
	}
	if p.Socket.Timeout == 0 {
		p.Socket.Timeout = defaults.Printing.Socket.Timeout
	}
	if p.Raw.DocumentName == "" {
		p.Raw.DocumentName = defaults.Printing.Raw.DocumentName
	}
	if p.Image.PageSize == "" {
		p.Image.PageSize = defaults.Printing.Image.PageSize
	}
	if p.Image.Orientation == "" {
		p.Image.Orientation = defaults.Printing.Image.Orientation
	}
	if p.PDF.SilentTimeout == 0 {
		p.PDF.SilentTimeout = defaults.Printing.PDF.SilentTimeout
	}
	if p.PDF.SilentGrace == 0 {
		p.PDF.SilentGrace = defaults.Printing.PDF.SilentGrace
	}
	if p.PDF.ReaderGrace == 0 {
		p.PDF.ReaderGrace = defaults.Printing.PDF.ReaderGrace
	}
	if p.PDF.FallbackGrace == 0 {
		p.PDF.FallbackGrace = defaults.Printing.PDF.FallbackGrace
	}
	if p.PDF.CleanupDelay == 0 {
		p.PDF.CleanupDelay = defaults.Printing.PDF.CleanupDelay
	}

	if cfg.Peers.ForwardTimeout == 0 {
		cfg.Peers.ForwardTimeout = defaults.Peers.ForwardTimeout
	}
	if cfg.Peers.InfoTimeout == 0 {
		cfg.Peers.InfoTimeout = defaults.Peers.InfoTimeout
	}

	if cfg.Update.CheckTimeout == 0 {
		cfg.Update.CheckTimeout = defaults.Update.CheckTimeout
	}
	if cfg.Update.DownloadTimeout == 0 {
		cfg.Update.DownloadTimeout = defaults.Update.DownloadTimeout
	}
	if len(cfg.Update.Installer) == 0 {
		cfg.Update.Installer = defaults.Update.Installer
	}

	return cfg
}

// interpolateEnv replaces ${VAR} with environment variable values.
// Unset variables are left in place so validate can report them.
func interpolateEnv(input string) string {
	return envVarPattern.ReplaceAllStringFunc(input, func(match string) string {
		varName := envVarPattern.FindStringSubmatch(match)[1]
		if value, exists := os.LookupEnv(varName); exists {
			return value
		}
		return match
	})
}

// validate performs basic validation on the configuration.
func validate(cfg *Config) error {
	validLogLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLogLevels[cfg.Service.LogLevel] {
		return fmt.Errorf("service.log_level must be one of: debug, info, warn, error (got %q)", cfg.Service.LogLevel)
	}
	if cfg.Service.LogFormat != "json" && cfg.Service.LogFormat != "text" {
		return fmt.Errorf("service.log_format must be one of: json, text (got %q)", cfg.Service.LogFormat)
	}

	if cfg.API.Port < 1 || cfg.API.Port > 65535 {
		return fmt.Errorf("api.port must be between 1 and 65535 (got %d)", cfg.API.Port)
	}
	if cfg.API.ReadTimeout < 0 || cfg.API.WriteTimeout < 0 {
		return fmt.Errorf("api timeouts must not be negative")
	}

	p := cfg.Printing
	if p.ScratchDir == "" {
		return fmt.Errorf("printing.scratch_dir is required")
	}
	if p.Socket.Timeout <= 0 {
		return fmt.Errorf("printing.socket.timeout must be positive")
	}
	switch strings.ToLower(p.Image.Orientation) {
	case "portrait", "landscape":
	default:
		return fmt.Errorf("printing.image.orientation must be portrait or landscape (got %q)", p.Image.Orientation)
	}
	if _, ok := PageSizes[strings.ToLower(p.Image.PageSize)]; !ok {
		return fmt.Errorf("printing.image.page_size %q is not supported", p.Image.PageSize)
	}
	for _, d := range []struct {
		field string
		value time.Duration
	}{
		{"printing.pdf.silent_timeout", p.PDF.SilentTimeout},
		{"printing.pdf.silent_grace", p.PDF.SilentGrace},
		{"printing.pdf.reader_grace", p.PDF.ReaderGrace},
		{"printing.pdf.fallback_grace", p.PDF.FallbackGrace},
		{"printing.pdf.cleanup_delay", p.PDF.CleanupDelay},
	} {
		if d.value < 0 {
			return fmt.Errorf("%s must not be negative", d.field)
		}
	}
	for i, spec := range p.PDF.SilentViewers {
		if err := validateRenderer(spec); err != nil {
			return fmt.Errorf("printing.pdf.silent_viewers[%d]: %w", i, err)
		}
	}
	for i, spec := range p.PDF.FullReaders {
		if err := validateRenderer(spec); err != nil {
			return fmt.Errorf("printing.pdf.full_readers[%d]: %w", i, err)
		}
	}
	if len(p.PDF.Fallback.Paths) > 0 {
		if err := validateRenderer(p.PDF.Fallback); err != nil {
			return fmt.Errorf("printing.pdf.fallback: %w", err)
		}
	}

	if cfg.Peers.ForwardTimeout <= 0 {
		return fmt.Errorf("peers.forward_timeout must be positive")
	}
	if cfg.Peers.InfoTimeout <= 0 {
		return fmt.Errorf("peers.info_timeout must be positive")
	}

	if cfg.Update.CheckURL != "" {
		if matches := envVarPattern.FindStringSubmatch(cfg.Update.CheckURL); len(matches) > 1 {
			return fmt.Errorf("update.check_url: environment variable ${%s} is not set", matches[1])
		}
		u, err := url.Parse(cfg.Update.CheckURL)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			return fmt.Errorf("update.check_url must be an absolute http(s) URL (got %q)", cfg.Update.CheckURL)
		}
	}

	return nil
}

func validateRenderer(spec RendererSpec) error {
	if strings.TrimSpace(spec.Name) == "" {
		return fmt.Errorf("name is required")
	}
	if len(spec.Paths) == 0 {
		return fmt.Errorf("renderer %q: at least one path is required", spec.Name)
	}
	hasFile := false
	for _, arg := range spec.Args {
		if strings.Contains(arg, "{file}") {
			hasFile = true
		}
	}
	if !hasFile {
		return fmt.Errorf("renderer %q: args must reference {file}", spec.Name)
	}
	return nil
}
