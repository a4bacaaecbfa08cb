// Package config holds the dashboard engine's runtime configuration.
package config

import (
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
)

// Config is the validated runtime configuration of the refresh engine.
// Intervals and TTLs are bounded so a typo'd flag cannot spin the poll loop
// or pin stale data forever.
type Config struct {
	// DatabasePath is the OpenCode SQLite store to read.
	DatabasePath string `validate:"required"`

	// Cwd filters sessions to one working directory; empty means all.
	Cwd string

	// IntervalMS is the poll period of the refresh loop in milliseconds.
	IntervalMS int `validate:"min=100,max=60000"`

	// SessionCacheTTL bounds how often the session list query may hit the
	// store. Zero disables caching.
	SessionCacheTTL time.Duration `validate:"min=0"`

	// UsageCacheTTL bounds the global model-usage scan, which is the most
	// expensive query and changes the least per tick.
	UsageCacheTTL time.Duration `validate:"min=0"`

	// ErrorLimit caps the recent-errors view.
	ErrorLimit int `validate:"min=1,max=1000"`
}

// Default returns the configuration used when no flags override it.
func Default() Config {
	return Config{
		DatabasePath:    DefaultDatabasePath(),
		IntervalMS:      2000,
		SessionCacheTTL: 5 * time.Second,
		UsageCacheTTL:   10 * time.Second,
		ErrorLimit:      10,
	}
}

// Interval returns the poll period as a duration.
func (c Config) Interval() time.Duration {
	return time.Duration(c.IntervalMS) * time.Millisecond
}

// Validate checks the configuration against its struct constraints.
func (c Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	return nil
}
