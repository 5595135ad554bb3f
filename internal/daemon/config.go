// Package daemon holds the service configuration, read from
// ~/.ponto/config.toml. A missing file or missing keys fall back to
// defaults, so a bare `ponto serve` always works.
package daemon

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/BurntSushi/toml"
)

// Config is the full daemon configuration.
type Config struct {
	API     APIConfig     `toml:"api"`
	Workday WorkdayConfig `toml:"workday"`
	Storage StorageConfig `toml:"storage"`
	Accrual AccrualConfig `toml:"accrual"`
}

// APIConfig configures the HTTP listener.
type APIConfig struct {
	Host    string `toml:"host"`
	Port    int    `toml:"port"`
	Metrics bool   `toml:"metrics"`
}

// WorkdayConfig carries the user's contractual parameters.
type WorkdayConfig struct {
	ContractualHours   int      `toml:"contractual_hours"`
	LegalOvertimeHours int      `toml:"legal_overtime_hours"`
	Holidays           []string `toml:"holidays"` // YYYY-MM-DD
}

// StorageConfig locates the SQLite database.
type StorageConfig struct {
	Path string `toml:"path"`
}

// AccrualConfig tunes the live accrual loop.
type AccrualConfig struct {
	TickInterval string `toml:"tick_interval"` // Go duration, e.g. "1s"
	PersistEvery int    `toml:"persist_every"` // ticks between snapshots
}

// DefaultConfig returns production defaults: an 8-hour contractual day with
// a 2-hour overtime allowance, a local-only listener, and storage under
// ~/.ponto.
func DefaultConfig() Config {
	return Config{
		API: APIConfig{
			Host:    "127.0.0.1",
			Port:    8742,
			Metrics: true,
		},
		Workday: WorkdayConfig{
			ContractualHours:   8,
			LegalOvertimeHours: 2,
		},
		Storage: StorageConfig{
			Path: filepath.Join(homeDir(), ".ponto", "ponto.db"),
		},
		Accrual: AccrualConfig{
			TickInterval: "1s",
			PersistEvery: 15,
		},
	}
}

// DefaultPath returns the conventional config file location.
func DefaultPath() string {
	return filepath.Join(homeDir(), ".ponto", "config.toml")
}

// Load reads the TOML file at path over the defaults, so absent keys keep
// their default values. A missing file is not an error.
func Load(path string) (Config, error) {
	cfg := DefaultConfig()
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return cfg, nil
	}
	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return Config{}, fmt.Errorf("parse config %s: %w", path, err)
	}
	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) validate() error {
	if c.Workday.ContractualHours <= 0 || c.Workday.ContractualHours > 24 {
		return fmt.Errorf("contractual_hours = %d, must be 1..24", c.Workday.ContractualHours)
	}
	if c.Workday.LegalOvertimeHours < 0 {
		return fmt.Errorf("legal_overtime_hours = %d, must be >= 0", c.Workday.LegalOvertimeHours)
	}
	if _, err := time.ParseDuration(c.Accrual.TickInterval); err != nil {
		return fmt.Errorf("tick_interval %q: %w", c.Accrual.TickInterval, err)
	}
	for _, h := range c.Workday.Holidays {
		if _, err := time.Parse(time.DateOnly, h); err != nil {
			return fmt.Errorf("holiday %q: %w", h, err)
		}
	}
	return nil
}

// ─── Derived Values ─────────────────────────────────────────────────────────

// ContractualSeconds converts the contractual day to seconds.
func (c WorkdayConfig) ContractualSeconds() int64 {
	return int64(c.ContractualHours) * 3600
}

// LegalExtraSeconds converts the overtime allowance to seconds.
func (c WorkdayConfig) LegalExtraSeconds() int64 {
	return int64(c.LegalOvertimeHours) * 3600
}

// HolidaySet returns the holidays as a lookup set.
func (c WorkdayConfig) HolidaySet() map[string]bool {
	set := make(map[string]bool, len(c.Holidays))
	for _, h := range c.Holidays {
		set[h] = true
	}
	return set
}

// Interval parses the accrual tick interval, falling back to one second on
// anything unparseable or non-positive.
func (c AccrualConfig) Interval() time.Duration {
	d, err := time.ParseDuration(c.TickInterval)
	if err != nil || d <= 0 {
		return time.Second
	}
	return d
}

// Addr returns the host:port listen address.
func (c APIConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

func homeDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return home
}
