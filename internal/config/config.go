// =============================================================================
// Freight Survey Ingest - Configuration Module
// =============================================================================
//
// This module loads the pipeline configuration. Settings come from a YAML
// file, are completed with defaults, can be overridden from the environment
// (prefix FREIGHT_, nested keys joined with "_", e.g. FREIGHT_STORE_DSN) and
// are validated before use.
//
// LOAD ORDER:
//   1. YAML file (optional; an empty path means "defaults only")
//   2. Defaults for every unset option
//   3. Environment overrides
//   4. Validation
//
// =============================================================================

package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/ginjaninja78/freight-survey-ingest/internal/validation"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// =============================================================================
// CONFIGURATION STRUCTURE
// =============================================================================

// Config holds the pipeline configuration.
type Config struct {
	// =========================================================================
	// DIRECTORY SETTINGS
	// =========================================================================

	// InputDir is scanned for survey exports and reference files.
	// Default: "./input"
	InputDir string `yaml:"input_dir" validate:"required"`

	// OutputDir receives the report, the error log and the summary log.
	// Default: "./output"
	OutputDir string `yaml:"output_dir" validate:"required"`

	// InputArchiveDir receives input files after a successful run when
	// ArchiveOnSuccess is set.
	// Default: "./input_archive"
	InputArchiveDir string `yaml:"input_archive_dir"`

	// ArchiveOnSuccess moves processed inputs to InputArchiveDir.
	ArchiveOnSuccess bool `yaml:"archive_on_success"`

	// =========================================================================
	// LOGGING SETTINGS
	// =========================================================================

	// LogFile is an additional log destination. Empty logs to stderr only.
	LogFile string `yaml:"log_file"`

	// LogLevel is one of "debug", "info", "warn", "error".
	// Default: "info"
	LogLevel string `yaml:"log_level" validate:"oneof=debug info warn error"`

	// =========================================================================
	// PROCESSING SETTINGS
	// =========================================================================

	// MaxConcurrency bounds the number of data files parsed and enriched
	// at the same time.
	// Default: 4
	MaxConcurrency int `yaml:"max_concurrency" validate:"min=1"`

	// ContinueOnError commits the data of valid files when other files in
	// the same run fail. When false, a failed file aborts the whole run and
	// nothing is committed.
	// Default: true
	ContinueOnError bool `yaml:"continue_on_error"`

	// DomesticCountry is the two-letter NUTS prefix treated as domestic.
	// Default: "NL"
	DomesticCountry string `yaml:"domestic_country" validate:"len=2,uppercase"`

	// RegionKeyPrefix namespaces region codes used as geographic keys.
	// Default: "NUTS3:"
	RegionKeyPrefix string `yaml:"region_key_prefix" validate:"required"`

	// CSV contains delimited-text settings.
	CSV CSVSettings `yaml:"csv"`

	// Store configures the persistence collaborator.
	Store StoreSettings `yaml:"store"`

	// Report configures the XLSX report.
	Report ReportSettings `yaml:"report"`
}

// CSVSettings contains settings for parsing delimited survey exports.
type CSVSettings struct {
	// Delimiter separates fields. CBS exports use ";".
	// Default: ";"
	Delimiter string `yaml:"delimiter" validate:"required"`
}

// StoreSettings configures the database the dataset is synced to.
type StoreSettings struct {
	// Driver is "sqlite3" or "pgx". Empty disables syncing.
	Driver string `yaml:"driver" validate:"omitempty,oneof=sqlite3 pgx"`

	// DSN is the driver-specific data source name.
	DSN string `yaml:"dsn" validate:"required_with=Driver"`

	// ChunkSize is the number of rows per bulk insert statement.
	// Default: 5000
	ChunkSize int `yaml:"chunk_size" validate:"min=1"`

	// MaxRetries bounds retries of a failed sync transaction.
	// Default: 3
	MaxRetries int `yaml:"max_retries" validate:"min=0"`
}

// ReportSettings configures the XLSX report.
type ReportSettings struct {
	// File is the report file name inside OutputDir. Empty disables the
	// report.
	File string `yaml:"file"`
}

// =============================================================================
// CONFIGURATION LOADING
// =============================================================================

// Load reads, completes and validates the configuration.
//
// PARAMETERS:
//   - configPath: Path to a YAML file. Empty loads defaults only.
//
// RETURNS:
//   - The validated configuration.
//   - An error if the file cannot be read or parsed, or validation fails.
func Load(configPath string) (*Config, error) {
	cfg := Config{ContinueOnError: true}

	if configPath != "" {
		data, err := os.ReadFile(configPath)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	}

	applyDefaults(&cfg)
	applyEnvOverrides(&cfg)

	if err := validate(&cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

// Default returns the default configuration.
func Default() *Config {
	cfg := Config{ContinueOnError: true}
	applyDefaults(&cfg)
	return &cfg
}

// applyDefaults sets default values for any unset option.
func applyDefaults(cfg *Config) {
	if cfg.InputDir == "" {
		cfg.InputDir = "./input"
	}
	if cfg.OutputDir == "" {
		cfg.OutputDir = "./output"
	}
	if cfg.InputArchiveDir == "" {
		cfg.InputArchiveDir = "./input_archive"
	}
	if cfg.LogLevel == "" {
		cfg.LogLevel = "info"
	}
	if cfg.MaxConcurrency == 0 {
		cfg.MaxConcurrency = 4
	}
	if cfg.DomesticCountry == "" {
		cfg.DomesticCountry = "NL"
	}
	if cfg.RegionKeyPrefix == "" {
		cfg.RegionKeyPrefix = "NUTS3:"
	}
	if cfg.CSV.Delimiter == "" {
		cfg.CSV.Delimiter = ";"
	}
	if cfg.Store.ChunkSize == 0 {
		cfg.Store.ChunkSize = 5000
	}
	if cfg.Store.MaxRetries == 0 {
		cfg.Store.MaxRetries = 3
	}
}

// envKeys maps configuration keys to the field they override.
func envKeys(cfg *Config) map[string]func(v *viper.Viper, key string) {
	str := func(dst *string) func(*viper.Viper, string) {
		return func(v *viper.Viper, key string) { *dst = v.GetString(key) }
	}
	num := func(dst *int) func(*viper.Viper, string) {
		return func(v *viper.Viper, key string) { *dst = v.GetInt(key) }
	}
	boolean := func(dst *bool) func(*viper.Viper, string) {
		return func(v *viper.Viper, key string) { *dst = v.GetBool(key) }
	}

	return map[string]func(v *viper.Viper, key string){
		"input_dir":          str(&cfg.InputDir),
		"output_dir":         str(&cfg.OutputDir),
		"input_archive_dir":  str(&cfg.InputArchiveDir),
		"log_file":           str(&cfg.LogFile),
		"log_level":          str(&cfg.LogLevel),
		"domestic_country":   str(&cfg.DomesticCountry),
		"region_key_prefix":  str(&cfg.RegionKeyPrefix),
		"csv.delimiter":      str(&cfg.CSV.Delimiter),
		"store.driver":       str(&cfg.Store.Driver),
		"store.dsn":          str(&cfg.Store.DSN),
		"report.file":        str(&cfg.Report.File),
		"max_concurrency":    num(&cfg.MaxConcurrency),
		"store.chunk_size":   num(&cfg.Store.ChunkSize),
		"store.max_retries":  num(&cfg.Store.MaxRetries),
		"archive_on_success": boolean(&cfg.ArchiveOnSuccess),
		"continue_on_error":  boolean(&cfg.ContinueOnError),
	}
}

// applyEnvOverrides replaces options for which a FREIGHT_* variable is set.
func applyEnvOverrides(cfg *Config) {
	v := viper.New()
	v.SetEnvPrefix("FREIGHT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	for key, set := range envKeys(cfg) {
		if v.IsSet(key) {
			set(v, key)
		}
	}
}

// validate checks struct tags and cross-field rules.
func validate(cfg *Config) error {
	if err := validation.Struct(cfg); err != nil {
		return err
	}
	if cfg.CSV.Rune() == 0 {
		return fmt.Errorf("csv.delimiter must be a single character or a named alias, got %q", cfg.CSV.Delimiter)
	}
	return nil
}

// Rune returns the delimiter as a rune, accepting the named aliases
// "tab", "pipe", "semicolon" and "comma". It returns 0 when the
// setting is not a single character.
func (c CSVSettings) Rune() rune {
	switch c.Delimiter {
	case "\\t", "tab", "TAB":
		return '\t'
	case "|", "pipe", "PIPE":
		return '|'
	case ";", "semicolon":
		return ';'
	case ",", "comma":
		return ','
	}
	r := []rune(c.Delimiter)
	if len(r) != 1 {
		return 0
	}
	return r[0]
}
