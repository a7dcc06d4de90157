// Package config loads document and server configuration from YAML files
// and environment variables.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/mdpress/mdpress/internal/yamlutil"
)

// Sentinel errors for config operations.
var (
	ErrConfigNotFound = errors.New("config file not found")
	ErrConfigParse    = errors.New("failed to parse config")
	ErrFieldTooLong   = errors.New("field exceeds maximum length")
)

// Field length limits for multi-tenant safety.
const (
	MaxStyleLength       = 2048 // style name, path, or short inline CSS
	MaxPageSizeLength    = 10   // "letter", "a4", "legal"
	MaxOrientationLength = 10   // "portrait", "landscape"
)

// Config holds document generation settings for the CLI.
type Config struct {
	Style     string          `yaml:"style"`     // style name, CSS path, or inline CSS
	Page      PageConfig      `yaml:"page"`      // page geometry
	Numbering NumberingConfig `yaml:"numbering"` // page numbering
	TOC       TOCConfig       `yaml:"toc"`       // table of contents
}

// PageConfig defines page geometry settings.
type PageConfig struct {
	Size        string  `yaml:"size"`        // "letter", "a4", "legal" (default: "a4")
	Orientation string  `yaml:"orientation"` // "portrait", "landscape" (default: "portrait")
	Margin      float64 `yaml:"margin"`      // inches (default: 0.5)
}

// NumberingConfig defines page numbering settings. Values below 1 are
// treated as 1 by the engine, matching missing input.
type NumberingConfig struct {
	FirstPage  int `yaml:"firstPage"`  // 1-based index of the first numbered page
	FirstValue int `yaml:"firstValue"` // number shown on that page
}

// TOCConfig defines table of contents settings.
type TOCConfig struct {
	Enabled  bool `yaml:"enabled"`
	MinDepth int  `yaml:"minDepth"` // 1-6, default 1
	MaxDepth int  `yaml:"maxDepth"` // 1-6, default 3
}

// Validate checks field lengths to prevent abuse in multi-tenant scenarios.
func (c *Config) Validate() error {
	if err := validateFieldLength("style", c.Style, MaxStyleLength); err != nil {
		return err
	}
	if err := validateFieldLength("page.size", c.Page.Size, MaxPageSizeLength); err != nil {
		return err
	}
	return validateFieldLength("page.orientation", c.Page.Orientation, MaxOrientationLength)
}

// Load reads and validates a YAML config file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path) // #nosec G304 -- user-provided config path
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrConfigNotFound, path)
		}
		return nil, fmt.Errorf("reading config: %w", err)
	}

	var cfg Config
	if err := yamlutil.UnmarshalStrict(data, &cfg); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrConfigParse, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Server configuration defaults, matching the env variable fallbacks.
const (
	DefaultAddr            = "127.0.0.1:8000"
	DefaultTTL             = 6 * time.Hour
	DefaultCleanupInterval = 10 * time.Minute
	DefaultMaxImageBytes   = 10 << 20 // 10MB
	DefaultMaxZipBytes     = 50 << 20 // 50MB
)

// ServerConfig holds editor backend settings. Populated from the
// environment; every field has a safe default.
type ServerConfig struct {
	Addr            string        // listen address
	WorkspacesRoot  string        // session workspace root directory
	TTL             time.Duration // workspace lifetime without activity
	CleanupInterval time.Duration // expiry sweep period
	MaxImageBytes   int64         // pasted image upload cap
	MaxZipBytes     int64         // zip import cap
}

// ServerFromEnv builds a ServerConfig from MDPRESS_* environment variables.
// Missing or malformed values fall back to defaults rather than failing:
// the server should come up with a usable configuration.
func ServerFromEnv() ServerConfig {
	cfg := ServerConfig{
		Addr:            envString("MDPRESS_ADDR", DefaultAddr),
		WorkspacesRoot:  envString("MDPRESS_WORKSPACES_ROOT", "sessions"),
		TTL:             envDuration("MDPRESS_TTL_HOURS", DefaultTTL),
		CleanupInterval: envDuration("MDPRESS_CLEANUP_INTERVAL_SECONDS", DefaultCleanupInterval),
		MaxImageBytes:   envInt64("MDPRESS_MAX_IMAGE_UPLOAD_BYTES", DefaultMaxImageBytes),
		MaxZipBytes:     envInt64("MDPRESS_MAX_ZIP_UPLOAD_BYTES", DefaultMaxZipBytes),
	}
	return cfg
}

func envString(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// envDuration parses hour-valued or second-valued env variables by key
// suffix. Zero is allowed (disables TTL expiry).
func envDuration(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil || f < 0 {
		return fallback
	}
	switch {
	case len(key) > 5 && key[len(key)-5:] == "HOURS":
		return time.Duration(f * float64(time.Hour))
	default:
		return time.Duration(f * float64(time.Second))
	}
}

func envInt64(key string, fallback int64) int64 {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil || n <= 0 {
		return fallback
	}
	return n
}

func validateFieldLength(field, value string, max int) error {
	if len(value) > max {
		return fmt.Errorf("%w: %s (%d > %d)", ErrFieldTooLong, field, len(value), max)
	}
	return nil
}
