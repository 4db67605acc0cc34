package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
)

// MigrationConfig holds the full TOML-driven migration configuration.
type MigrationConfig struct {
	Source               SourceConfig      `toml:"source"`
	Target               TargetConfig      `toml:"target"`
	Schema               string            `toml:"schema"`
	OnSchemaExists       string            `toml:"on_schema_exists"` // error|recreate|reuse
	PageSize             int               `toml:"page_size"`
	SampleSize           int               `toml:"sample_size"`
	Workers              int               `toml:"workers"`
	VerifyMode           string            `toml:"verify_mode"` // count|checksum|skip
	SnakeCaseIdentifiers bool              `toml:"snake_case_identifiers"`
	TypeOverridesFile    string            `toml:"type_overrides_file"`
	TypeOverrides        map[string]string `toml:"type_overrides"`
	Tables               []string          `toml:"tables"`
	StateFile            string            `toml:"state_file"`
	Hooks                HooksConfig       `toml:"hooks"`
	Logging              LoggingConfig     `toml:"logging"`
	Output               OutputConfig      `toml:"output"`

	// configDir is the directory containing the TOML file, used to resolve relative paths.
	configDir string
}

// SourceConfig points at the SQLite database file.
type SourceConfig struct {
	Path string `toml:"path"`
}

type TargetConfig struct {
	DSN string `toml:"dsn"`
}

type HooksConfig struct {
	BeforeData []string `toml:"before_data"`
	AfterData  []string `toml:"after_data"`
	BeforeFk   []string `toml:"before_fk"`
	AfterAll   []string `toml:"after_all"`
}

type LoggingConfig struct {
	Level  string `toml:"level"`  // debug|info|warn|error
	Format string `toml:"format"` // console|json
	Output string `toml:"output"` // stderr|stdout|<file>
}

// OutputConfig names the artifacts each stage writes or reads.
type OutputConfig struct {
	PreflightReport string `toml:"preflight_report"`
	TypeMapping     string `toml:"type_mapping"`
	DDLScript       string `toml:"ddl_script"`
	StatsReport     string `toml:"stats_report"`
}

const (
	defaultPageSize   = 1000
	defaultSampleSize = 1000
)

func defaultConfig() MigrationConfig {
	return MigrationConfig{
		Schema:         "public",
		OnSchemaExists: "error",
		PageSize:       defaultPageSize,
		SampleSize:     defaultSampleSize,
		Workers:        1,
		VerifyMode:     "count",
		StateFile:      ".liteferry-state.json",
		Logging: LoggingConfig{
			Level:  "info",
			Format: "console",
			Output: "stderr",
		},
		Output: OutputConfig{
			PreflightReport: "preflight_report.json",
			TypeMapping:     "type_mapping.json",
			DDLScript:       "schema.sql",
			StatsReport:     "migration_stats.json",
		},
	}
}

// loadConfig reads a TOML config file and returns a MigrationConfig with defaults applied.
func loadConfig(path string) (*MigrationConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	cfg := defaultConfig()
	md, err := toml.Decode(string(data), &cfg)
	if err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if unknown := md.Undecoded(); len(unknown) > 0 {
		keys := make([]string, len(unknown))
		for i, k := range unknown {
			keys[i] = k.String()
		}
		return nil, fmt.Errorf("unknown config keys: %s", strings.Join(keys, ", "))
	}

	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("resolve config path: %w", err)
	}
	cfg.configDir = filepath.Dir(absPath)

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// validate checks option values. It runs again after CLI flag overrides.
func (c *MigrationConfig) validate() error {
	c.Schema = strings.TrimSpace(c.Schema)
	if c.Schema == "" {
		return fmt.Errorf("schema is required")
	}

	if c.OnSchemaExists == "" {
		c.OnSchemaExists = "error"
	}
	switch c.OnSchemaExists {
	case "error", "recreate", "reuse":
	default:
		return fmt.Errorf("on_schema_exists must be one of: error, recreate, reuse")
	}

	switch c.VerifyMode {
	case "count", "checksum", "skip":
	default:
		return fmt.Errorf("verify_mode must be one of: count, checksum, skip")
	}

	if c.PageSize <= 0 {
		return fmt.Errorf("page_size must be positive, got %d", c.PageSize)
	}
	if c.SampleSize <= 0 {
		return fmt.Errorf("sample_size must be positive, got %d", c.SampleSize)
	}
	if c.Workers <= 0 {
		c.Workers = 1
	}

	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level must be one of: debug, info, warn, error")
	}
	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("logging.format must be one of: console, json")
	}

	for key := range c.TypeOverrides {
		if _, _, ok := splitOverrideKey(key); !ok {
			return fmt.Errorf("type_overrides key %q must be \"table.column\"", key)
		}
	}

	if strings.TrimSpace(c.Source.Path) == "" {
		return fmt.Errorf("source.path is required")
	}
	return nil
}

// requireTarget is called by the commands that write to PostgreSQL.
func (c *MigrationConfig) requireTarget() error {
	if strings.TrimSpace(c.Target.DSN) == "" {
		return fmt.Errorf("target.dsn is required")
	}
	return nil
}

// resolvePath resolves a path relative to the config file directory.
func (c *MigrationConfig) resolvePath(p string) string {
	if p == "" || filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(c.configDir, p)
}

// sourcePath returns the SQLite path, resolved unless it is a file: URI.
func (c *MigrationConfig) sourcePath() string {
	if strings.HasPrefix(c.Source.Path, "file:") {
		return c.Source.Path
	}
	return c.resolvePath(c.Source.Path)
}

// tableSelected reports whether the optional tables filter admits name.
func (c *MigrationConfig) tableSelected(name string) bool {
	if len(c.Tables) == 0 {
		return true
	}
	for _, t := range c.Tables {
		if strings.EqualFold(t, name) {
			return true
		}
	}
	return false
}
