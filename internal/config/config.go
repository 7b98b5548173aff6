package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

// Config holds application configuration.
type Config struct {
	Database DatabaseConfig `mapstructure:"database"`
	Import   ImportConfig   `mapstructure:"import"`
	Export   ExportConfig   `mapstructure:"export"`
	Log      LogConfig      `mapstructure:"log"`
	User     UserConfig     `mapstructure:"user"`
}

// DatabaseConfig holds sqlite settings.
type DatabaseConfig struct {
	Path string `mapstructure:"path"`
}

// ImportConfig holds default import policy. CLI flags override these.
type ImportConfig struct {
	Strategy           string `mapstructure:"strategy"`
	BatchSize          int    `mapstructure:"batch_size"`
	AllowPartialImport bool   `mapstructure:"allow_partial_import"`
	SkipInvalidRows    bool   `mapstructure:"skip_invalid_rows"`
}

// ExportConfig holds backup output settings.
type ExportConfig struct {
	Dir        string `mapstructure:"dir"`
	IncludeCsv bool   `mapstructure:"include_csv"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level string `mapstructure:"level"`
}

// UserConfig identifies the local user all records belong to.
type UserConfig struct {
	ID string `mapstructure:"id"`
}

// Load reads configuration from file and env. Env var overrides use prefix LEDGERIO_.
func Load() (Config, error) {
	v := viper.New()

	v.SetDefault("database.path", filepath.Join(os.Getenv("HOME"), ".local", "share", "ledgerio", "ledgerio.db"))
	v.SetDefault("import.strategy", "SKIP")
	v.SetDefault("import.batch_size", 100)
	v.SetDefault("import.allow_partial_import", true)
	v.SetDefault("import.skip_invalid_rows", true)
	v.SetDefault("export.dir", filepath.Join(os.Getenv("HOME"), ".local", "share", "ledgerio", "backups"))
	v.SetDefault("export.include_csv", false)
	v.SetDefault("log.level", "info")
	v.SetDefault("user.id", "local")

	v.SetConfigType("toml")

	cfgPath := os.Getenv("LEDGERIO_CONFIG")
	if cfgPath != "" {
		v.SetConfigFile(cfgPath)
	} else {
		v.AddConfigPath(filepath.Join(os.Getenv("HOME"), ".config", "ledgerio"))
		v.SetConfigName("config")
	}

	v.SetEnvPrefix("LEDGERIO")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// read config file if present
	_ = v.ReadInConfig()

	var c Config
	if err := v.Unmarshal(&c); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}
	return c, nil
}

// Save writes the provided config to disk, creating the config directory if needed.
func Save(cfg Config) error {
	path := os.Getenv("LEDGERIO_CONFIG")
	if path == "" {
		path = filepath.Join(os.Getenv("HOME"), ".config", "ledgerio", "config.toml")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("mkdir config dir: %w", err)
	}

	v := viper.New()
	v.SetConfigType("toml")
	v.Set("database.path", cfg.Database.Path)
	v.Set("import.strategy", cfg.Import.Strategy)
	v.Set("import.batch_size", cfg.Import.BatchSize)
	v.Set("import.allow_partial_import", cfg.Import.AllowPartialImport)
	v.Set("import.skip_invalid_rows", cfg.Import.SkipInvalidRows)
	v.Set("export.dir", cfg.Export.Dir)
	v.Set("export.include_csv", cfg.Export.IncludeCsv)
	v.Set("log.level", cfg.Log.Level)
	v.Set("user.id", cfg.User.ID)

	if err := v.WriteConfigAs(path); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}
