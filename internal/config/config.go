// File: internal/config/config.go
package config

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/mitchellh/go-homedir"
	"github.com/spf13/viper"

	"github.com/jeanbaptistemora/fluidattacks-universe2-sub022/internal/cst"
)

// Interface defines the contract for accessing application configuration.
// This allows for dependency injection and mocking in tests.
type Interface interface {
	Logger() LoggerConfig
	Database() DatabaseConfig
	Engine() EngineConfig
	Analysis() AnalysisConfig
	Discovery() DiscoveryConfig
	Report() ReportConfig

	// Setters for values that command line flags override.
	SetEngineWorkerConcurrency(int)
	SetAnalysisMaxPaths(int)
	SetAnalysisCatalogPath(string)
	SetDiscoveryUseGit(bool)
	SetReportFormat(string)
	SetReportOutput(string)
	SetDatabaseEnabled(bool)
}

// Config holds the entire application configuration. Sections are read
// through the Interface getters.
type Config struct {
	LoggerCfg    LoggerConfig    `mapstructure:"logger" yaml:"logger"`
	DatabaseCfg  DatabaseConfig  `mapstructure:"database" yaml:"database"`
	EngineCfg    EngineConfig    `mapstructure:"engine" yaml:"engine"`
	AnalysisCfg  AnalysisConfig  `mapstructure:"analysis" yaml:"analysis"`
	DiscoveryCfg DiscoveryConfig `mapstructure:"discovery" yaml:"discovery"`
	ReportCfg    ReportConfig    `mapstructure:"report" yaml:"report"`
}

func (c *Config) Logger() LoggerConfig       { return c.LoggerCfg }
func (c *Config) Database() DatabaseConfig   { return c.DatabaseCfg }
func (c *Config) Engine() EngineConfig       { return c.EngineCfg }
func (c *Config) Analysis() AnalysisConfig   { return c.AnalysisCfg }
func (c *Config) Discovery() DiscoveryConfig { return c.DiscoveryCfg }
func (c *Config) Report() ReportConfig       { return c.ReportCfg }

func (c *Config) SetEngineWorkerConcurrency(w int) { c.EngineCfg.WorkerConcurrency = w }
func (c *Config) SetAnalysisMaxPaths(n int)        { c.AnalysisCfg.MaxPaths = n }
func (c *Config) SetAnalysisCatalogPath(p string)  { c.AnalysisCfg.CatalogPath = p }
func (c *Config) SetDiscoveryUseGit(b bool)        { c.DiscoveryCfg.UseGit = b }
func (c *Config) SetReportFormat(f string)         { c.ReportCfg.Format = f }
func (c *Config) SetReportOutput(o string)         { c.ReportCfg.Output = o }
func (c *Config) SetDatabaseEnabled(b bool)        { c.DatabaseCfg.Enabled = b }

// LoggerConfig holds all the configuration for the logger.
type LoggerConfig struct {
	Level       string      `mapstructure:"level" yaml:"level"`
	Format      string      `mapstructure:"format" yaml:"format"`
	AddSource   bool        `mapstructure:"add_source" yaml:"add_source"`
	ServiceName string      `mapstructure:"service_name" yaml:"service_name"`
	LogFile     string      `mapstructure:"log_file" yaml:"log_file"`
	MaxSize     int         `mapstructure:"max_size" yaml:"max_size"`
	MaxBackups  int         `mapstructure:"max_backups" yaml:"max_backups"`
	MaxAge      int         `mapstructure:"max_age" yaml:"max_age"`
	Compress    bool        `mapstructure:"compress" yaml:"compress"`
	Colors      ColorConfig `mapstructure:"colors" yaml:"colors"`
}

// ColorConfig defines the color codes for different log levels.
type ColorConfig struct {
	Debug  string `mapstructure:"debug" yaml:"debug"`
	Info   string `mapstructure:"info" yaml:"info"`
	Warn   string `mapstructure:"warn" yaml:"warn"`
	Error  string `mapstructure:"error" yaml:"error"`
	DPanic string `mapstructure:"dpanic" yaml:"dpanic"`
	Panic  string `mapstructure:"panic" yaml:"panic"`
	Fatal  string `mapstructure:"fatal" yaml:"fatal"`
}

// DatabaseConfig holds the database connection details. Scans are only
// persisted when Enabled is set.
type DatabaseConfig struct {
	URL     string `mapstructure:"url" yaml:"url"`
	Enabled bool   `mapstructure:"enabled" yaml:"enabled"`
}

// EngineConfig configures the per-file worker pool.
type EngineConfig struct {
	WorkerConcurrency int           `mapstructure:"worker_concurrency" yaml:"worker_concurrency"`
	FileTimeout       time.Duration `mapstructure:"file_timeout" yaml:"file_timeout"`
	// MaxFileSize is in bytes; larger files are skipped.
	MaxFileSize int64 `mapstructure:"max_file_size" yaml:"max_file_size"`
}

// AnalysisConfig tunes path collection and the catalog.
type AnalysisConfig struct {
	MaxPaths    int      `mapstructure:"max_paths" yaml:"max_paths"`
	Aggregation string   `mapstructure:"aggregation" yaml:"aggregation"`
	Languages   []string `mapstructure:"languages" yaml:"languages"`
	// CatalogPath names an extra YAML catalog merged over the built-in one.
	CatalogPath string `mapstructure:"catalog_path" yaml:"catalog_path"`
}

// DiscoveryConfig selects the files of a scan. Exclude holds gitignore
// style patterns.
type DiscoveryConfig struct {
	Exclude        []string `mapstructure:"exclude" yaml:"exclude"`
	UseGit         bool     `mapstructure:"use_git" yaml:"use_git"`
	FollowSymlinks bool     `mapstructure:"follow_symlinks" yaml:"follow_symlinks"`
}

// ReportConfig selects the report encoding and destination.
type ReportConfig struct {
	Format string `mapstructure:"format" yaml:"format"`
	// Output is a file path; empty or "-" means stdout.
	Output string `mapstructure:"output" yaml:"output"`
}

// NewDefaultConfig creates a new configuration struct populated with default values.
func NewDefaultConfig() *Config {
	v := viper.New()
	SetDefaults(v)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		// This should not happen with defaults, but good to be safe.
		panic(fmt.Sprintf("failed to unmarshal default config: %v", err))
	}
	return &cfg
}

// SetDefaults initializes default values for various configuration parameters.
func SetDefaults(v *viper.Viper) {
	// -- Logger --
	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.format", "console")
	v.SetDefault("logger.add_source", false)
	v.SetDefault("logger.service_name", "skims")
	v.SetDefault("logger.log_file", "")
	v.SetDefault("logger.max_size", 100)
	v.SetDefault("logger.max_backups", 5)
	v.SetDefault("logger.max_age", 30)
	v.SetDefault("logger.compress", true)

	// -- Database --
	v.SetDefault("database.enabled", false)

	// -- Engine --
	v.SetDefault("engine.worker_concurrency", 8)
	v.SetDefault("engine.file_timeout", "2m")
	v.SetDefault("engine.max_file_size", 2<<20)

	// -- Analysis --
	v.SetDefault("analysis.max_paths", 64)
	v.SetDefault("analysis.aggregation", "any")
	v.SetDefault("analysis.languages", []string{})
	v.SetDefault("analysis.catalog_path", "")

	// -- Discovery --
	v.SetDefault("discovery.exclude", []string{"node_modules/", "vendor/", ".git/"})
	v.SetDefault("discovery.use_git", false)
	v.SetDefault("discovery.follow_symlinks", false)

	// -- Report --
	v.SetDefault("report.format", "sarif")
	v.SetDefault("report.output", "")
}

// NewConfigFromViper creates a new configuration instance from a viper object.
func NewConfigFromViper(v *viper.Viper) (*Config, error) {
	var cfg Config

	// Bind environment variables for sensitive data
	v.BindEnv("database.url", "SKIMS_DATABASE_URL")

	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	for _, p := range []*string{&cfg.LoggerCfg.LogFile, &cfg.AnalysisCfg.CatalogPath, &cfg.ReportCfg.Output} {
		expanded, err := ExpandPath(*p)
		if err != nil {
			return nil, err
		}
		*p = expanded
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, nil
}

// ExpandPath resolves a leading ~ to the home directory.
func ExpandPath(p string) (string, error) {
	if !strings.HasPrefix(p, "~") {
		return p, nil
	}
	expanded, err := homedir.Expand(p)
	if err != nil {
		return "", fmt.Errorf("expanding %q: %w", p, err)
	}
	return filepath.Clean(expanded), nil
}

// Validate checks the configuration for required fields and sane values.
func (c *Config) Validate() error {
	if c.EngineCfg.WorkerConcurrency <= 0 {
		return fmt.Errorf("engine.worker_concurrency must be a positive integer")
	}
	if c.EngineCfg.FileTimeout <= 0 {
		return fmt.Errorf("engine.file_timeout must be a positive duration")
	}
	if c.EngineCfg.MaxFileSize < 0 {
		return fmt.Errorf("engine.max_file_size must not be negative")
	}
	if err := c.AnalysisCfg.Validate(); err != nil {
		return fmt.Errorf("analysis configuration invalid: %w", err)
	}
	if c.DatabaseCfg.Enabled && c.DatabaseCfg.URL == "" {
		return fmt.Errorf("database.url is required when database.enabled is set")
	}
	switch c.ReportCfg.Format {
	case "sarif", "json":
	default:
		return fmt.Errorf("report.format must be sarif or json, got %q", c.ReportCfg.Format)
	}
	return nil
}

// Validate checks the analysis settings.
func (a *AnalysisConfig) Validate() error {
	if a.MaxPaths < 0 {
		return fmt.Errorf("max_paths must not be negative")
	}
	switch a.Aggregation {
	case "", "any", "all":
	default:
		return fmt.Errorf("aggregation must be any or all, got %q", a.Aggregation)
	}
	for _, l := range a.Languages {
		if _, err := cst.ParseLanguage(l); err != nil {
			return fmt.Errorf("languages: %w", err)
		}
	}
	return nil
}

// EnabledLanguages returns the configured languages, or every supported one
// when none is configured.
func (a AnalysisConfig) EnabledLanguages() []cst.Language {
	if len(a.Languages) == 0 {
		return cst.Languages()
	}
	out := make([]cst.Language, 0, len(a.Languages))
	for _, l := range a.Languages {
		if lang, err := cst.ParseLanguage(l); err == nil {
			out = append(out, lang)
		}
	}
	return out
}
