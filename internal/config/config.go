// Package config loads preql settings from config files, .env files and the
// environment.
package config

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/joho/godotenv"
	"github.com/mitchellh/go-homedir"
	"github.com/spf13/afero"
	"github.com/spf13/viper"
)

// FileName is the config file name, without extension.
const FileName = ".preql"

// Config holds the settings of a preql invocation.
type Config struct {
	DatabaseURI    string
	Debug          bool
	Format         string
	PageSize       int
	ConnectTimeout time.Duration
}

// Load reads the configuration. Settings come, lowest priority first, from
// defaults, .preql.yaml (in ., the home directory or ~/.config/preql),
// .env, .env.local and PREQL_* environment variables. DATABASE_URL is
// honoured when no database uri is configured.
func Load(fs afero.Fs) (*Config, error) {
	v, err := newViper(fs)
	if err != nil {
		return nil, err
	}

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	if err := loadEnvFile(fs, ".env", false); err != nil {
		return nil, err
	}
	if err := loadEnvFile(fs, ".env.local", true); err != nil {
		return nil, err
	}

	cfg := &Config{
		DatabaseURI:    v.GetString("database_uri"),
		Debug:          v.GetBool("debug"),
		Format:         v.GetString("format"),
		PageSize:       v.GetInt("page_size"),
		ConnectTimeout: v.GetDuration("connect_timeout"),
	}
	if url := os.Getenv("DATABASE_URL"); url != "" && os.Getenv("PREQL_DATABASE_URI") == "" && !v.InConfig("database_uri") {
		cfg.DatabaseURI = url
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func newViper(fs afero.Fs) (*viper.Viper, error) {
	home, err := homedir.Dir()
	if err != nil {
		return nil, err
	}

	v := viper.New()
	v.SetFs(fs)
	v.SetConfigName(FileName)
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath(home)
	v.AddConfigPath(filepath.Join(home, ".config", "preql"))

	v.SetEnvPrefix("PREQL")
	v.AutomaticEnv()

	v.SetDefault("database_uri", "sqlite://:memory:")
	v.SetDefault("debug", false)
	v.SetDefault("format", "text")
	v.SetDefault("page_size", 20)
	v.SetDefault("connect_timeout", 10*time.Second)
	return v, nil
}

// loadEnvFile applies the variables of a dotenv file to the process
// environment. Without override, variables already set are kept.
func loadEnvFile(fs afero.Fs, name string, override bool) error {
	data, err := afero.ReadFile(fs, name)
	if err != nil {
		// A missing file is not an error.
		return nil
	}
	vars, err := godotenv.Parse(bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("failed to parse %s: %w", name, err)
	}
	for k, val := range vars {
		if _, set := os.LookupEnv(k); set && !override {
			continue
		}
		if err := os.Setenv(k, val); err != nil {
			return err
		}
	}
	return nil
}

// Validate checks the loaded values.
func (c *Config) Validate() error {
	switch c.Format {
	case "text", "json":
	default:
		return fmt.Errorf("invalid format %q: expected text or json", c.Format)
	}
	if c.PageSize <= 0 {
		return fmt.Errorf("invalid page_size %d: must be positive", c.PageSize)
	}
	if c.ConnectTimeout <= 0 {
		return fmt.Errorf("invalid connect_timeout %s: must be positive", c.ConnectTimeout)
	}
	return nil
}

// Save writes the database uri and format to ~/.config/preql/.preql.yaml.
func Save(fs afero.Fs, cfg *Config) error {
	v, err := newViper(fs)
	if err != nil {
		return err
	}
	v.Set("database_uri", cfg.DatabaseURI)
	v.Set("format", cfg.Format)
	v.Set("page_size", cfg.PageSize)

	home, err := homedir.Dir()
	if err != nil {
		return err
	}
	dir := filepath.Join(home, ".config", "preql")
	if err := fs.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	return v.WriteConfigAs(filepath.Join(dir, FileName+".yaml"))
}
