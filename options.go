package preql

import (
	"time"

	"github.com/spf13/afero"

	"github.com/nosyt-lien/preql/internal/telemetry"
)

// Config contains the session options.
type Config struct {
	// ConnectTimeout bounds the initial connection attempt.
	// Default: 10 seconds
	ConnectTimeout time.Duration

	// Fs is the filesystem Load and include() read from.
	// Default: the operating system filesystem
	Fs afero.Fs

	// Telemetry receives every statement sent to the database.
	// Default: a collector keeping the last 1000 events
	Telemetry *telemetry.Collector

	// Format is the output format tag of the session ("text" or "json").
	// Default: text
	Format string
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		ConnectTimeout: 10 * time.Second,
		Fs:             afero.NewOsFs(),
		Telemetry:      telemetry.NewCollector(1000),
		Format:         "text",
	}
}

// Option configures a session.
type Option func(*Config)

// WithConnectTimeout sets the connection timeout.
func WithConnectTimeout(d time.Duration) Option {
	return func(c *Config) {
		c.ConnectTimeout = d
	}
}

// WithFs sets the filesystem used for loading code.
func WithFs(fs afero.Fs) Option {
	return func(c *Config) {
		c.Fs = fs
	}
}

// WithTelemetry sets the statement collector.
func WithTelemetry(col *telemetry.Collector) Option {
	return func(c *Config) {
		c.Telemetry = col
	}
}

// WithFormat sets the output format tag.
func WithFormat(format string) Option {
	return func(c *Config) {
		c.Format = format
	}
}
