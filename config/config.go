package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// ChartConfig controls chart rasterization
type ChartConfig struct {
	// DPI is the target resolution for chart rasters.
	// Default: 150
	DPI float64 `json:"dpi" yaml:"dpi"`

	// MaxRasterExtent caps both raster axes in pixels. Requests above it are
	// served at a proportionally lower DPI.
	// Default: 4096
	MaxRasterExtent int `json:"maxRasterExtent" yaml:"maxRasterExtent"`

	// TempDir holds intermediate chart rasters. Empty means os.TempDir().
	TempDir string `json:"tempDir,omitempty" yaml:"tempDir,omitempty"`
}

// ImageConfig controls image loading
type ImageConfig struct {
	// FetchTimeoutSeconds bounds url image downloads.
	// Default: 10
	FetchTimeoutSeconds int `json:"fetchTimeoutSeconds" yaml:"fetchTimeoutSeconds"`

	// SearchDirs are tried in order when resolving template logos, relative
	// to ProjectRoot.
	// Default: ".", "templates", "assets"
	SearchDirs []string `json:"searchDirs" yaml:"searchDirs"`
}

// DatabaseConfig controls SQL dataset sources
type DatabaseConfig struct {
	MaxRetries  int `json:"maxRetries" yaml:"maxRetries"`
	RetryBaseMs int `json:"retryBaseMs" yaml:"retryBaseMs"`
	// RowLimit caps rows read from a table. 0 means no limit.
	RowLimit int `json:"rowLimit,omitempty" yaml:"rowLimit,omitempty"`
}

// Config structure
type Config struct {
	ProjectRoot  string            `json:"projectRoot" yaml:"projectRoot"`
	TemplateDir  string            `json:"templateDir" yaml:"templateDir"`
	OutputDir    string            `json:"outputDir" yaml:"outputDir"`
	LogDir       string            `json:"logDir,omitempty" yaml:"logDir,omitempty"`
	HistoryDB    string            `json:"historyDb,omitempty" yaml:"historyDb,omitempty"` // SQLite run history; empty disables it
	LogLevel     string            `json:"logLevel" yaml:"logLevel"`
	DetailedLog  bool              `json:"detailedLog" yaml:"detailedLog"`
	PreviewWidth int               `json:"previewWidth" yaml:"previewWidth"`
	Language     string            `json:"language,omitempty" yaml:"language,omitempty"` // "English" or "简体中文"
	Variables    map[string]string `json:"variables,omitempty" yaml:"variables,omitempty"` // Config-declared text variables
	Chart        ChartConfig       `json:"chart" yaml:"chart"`
	Image        ImageConfig       `json:"image" yaml:"image"`
	Database     DatabaseConfig    `json:"database" yaml:"database"`
}

// DefaultConfig returns the configuration used when no file is given
func DefaultConfig() Config {
	return Config{
		ProjectRoot:  ".",
		TemplateDir:  "templates",
		OutputDir:    "output",
		LogLevel:     "info",
		PreviewWidth: 960,
		Chart: ChartConfig{
			DPI:             150,
			MaxRasterExtent: 4096,
		},
		Image: ImageConfig{
			FetchTimeoutSeconds: 10,
			SearchDirs:          []string{".", "templates", "assets"},
		},
		Database: DatabaseConfig{
			MaxRetries:  3,
			RetryBaseMs: 200,
		},
	}
}

// Load reads a JSON or YAML (.yaml/.yml) file over the defaults, then applies
// REPORTFORGE_* environment overrides.
func Load(path string) (Config, error) {
	cfg := DefaultConfig()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return cfg, fmt.Errorf("failed to read config: %w", err)
		}
		switch strings.ToLower(filepath.Ext(path)) {
		case ".yaml", ".yml":
			err = yaml.Unmarshal(data, &cfg)
		default:
			err = json.Unmarshal(data, &cfg)
		}
		if err != nil {
			return cfg, fmt.Errorf("failed to parse config %s: %w", path, err)
		}
	}
	cfg.ApplyEnv(os.LookupEnv)
	cfg.InitializeDefaults()
	return cfg, cfg.Validate()
}

// ApplyEnv overrides fields from environment variables.
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) {
	if v, ok := lookup("REPORTFORGE_PROJECT_ROOT"); ok && v != "" {
		c.ProjectRoot = v
	}
	if v, ok := lookup("REPORTFORGE_TEMPLATE_DIR"); ok && v != "" {
		c.TemplateDir = v
	}
	if v, ok := lookup("REPORTFORGE_OUTPUT_DIR"); ok && v != "" {
		c.OutputDir = v
	}
	if v, ok := lookup("REPORTFORGE_LOG_DIR"); ok {
		c.LogDir = v
	}
	if v, ok := lookup("REPORTFORGE_LOG_LEVEL"); ok && v != "" {
		c.LogLevel = v
	}
	if v, ok := lookup("REPORTFORGE_HISTORY_DB"); ok {
		c.HistoryDB = v
	}
	if v, ok := lookup("REPORTFORGE_LANGUAGE"); ok && v != "" {
		c.Language = v
	}
	if v, ok := lookup("REPORTFORGE_CHART_DPI"); ok {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			c.Chart.DPI = f
		}
	}
	if v, ok := lookup("REPORTFORGE_MAX_RASTER_EXTENT"); ok {
		if n, err := strconv.Atoi(v); err == nil {
			c.Chart.MaxRasterExtent = n
		}
	}
}

// InitializeDefaults fills zero values left by partial config files
func (c *Config) InitializeDefaults() {
	def := DefaultConfig()
	if c.ProjectRoot == "" {
		c.ProjectRoot = def.ProjectRoot
	}
	if c.OutputDir == "" {
		c.OutputDir = def.OutputDir
	}
	if c.PreviewWidth <= 0 {
		c.PreviewWidth = def.PreviewWidth
	}
	if c.Chart.DPI == 0 {
		c.Chart.DPI = def.Chart.DPI
	}
	if c.Chart.MaxRasterExtent == 0 {
		c.Chart.MaxRasterExtent = def.Chart.MaxRasterExtent
	}
	if c.Image.FetchTimeoutSeconds == 0 {
		c.Image.FetchTimeoutSeconds = def.Image.FetchTimeoutSeconds
	}
	if len(c.Image.SearchDirs) == 0 {
		c.Image.SearchDirs = def.Image.SearchDirs
	}
	if c.Database.RetryBaseMs == 0 {
		c.Database.RetryBaseMs = def.Database.RetryBaseMs
	}
}

// Validate rejects values the pipeline cannot work with
func (c Config) Validate() error {
	if c.Chart.DPI <= 0 {
		return fmt.Errorf("chart.dpi must be positive, got %v", c.Chart.DPI)
	}
	if c.Chart.MaxRasterExtent < 16 {
		return fmt.Errorf("chart.maxRasterExtent must be at least 16, got %d", c.Chart.MaxRasterExtent)
	}
	if c.Image.FetchTimeoutSeconds < 0 {
		return fmt.Errorf("image.fetchTimeoutSeconds must not be negative")
	}
	if c.Database.RowLimit < 0 {
		return fmt.Errorf("database.rowLimit must not be negative")
	}
	if c.Database.MaxRetries < 0 {
		return fmt.Errorf("database.maxRetries must not be negative")
	}
	return nil
}

// LogoSearchDirs resolves the logo candidate directories against ProjectRoot.
func (c Config) LogoSearchDirs() []string {
	dirs := make([]string, 0, len(c.Image.SearchDirs))
	for _, d := range c.Image.SearchDirs {
		if filepath.IsAbs(d) {
			dirs = append(dirs, d)
			continue
		}
		dirs = append(dirs, filepath.Join(c.ProjectRoot, d))
	}
	return dirs
}
