package daemon

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.API.Host != "127.0.0.1" {
		t.Errorf("API.Host = %q, want %q", cfg.API.Host, "127.0.0.1")
	}
	if cfg.API.Port != 8742 {
		t.Errorf("API.Port = %d, want %d", cfg.API.Port, 8742)
	}
	if !cfg.API.Metrics {
		t.Error("API.Metrics should be true by default")
	}
	if cfg.Workday.ContractualHours != 8 {
		t.Errorf("ContractualHours = %d, want 8", cfg.Workday.ContractualHours)
	}
	if cfg.Workday.LegalOvertimeHours != 2 {
		t.Errorf("LegalOvertimeHours = %d, want 2", cfg.Workday.LegalOvertimeHours)
	}
	if cfg.Accrual.PersistEvery != 15 {
		t.Errorf("PersistEvery = %d, want 15", cfg.Accrual.PersistEvery)
	}
	if cfg.Accrual.Interval() != time.Second {
		t.Errorf("Interval = %v, want 1s", cfg.Accrual.Interval())
	}
}

func TestLoadMissingFileKeepsDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.toml"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.API.Port != 8742 {
		t.Errorf("Port = %d, want default 8742", cfg.API.Port)
	}
}

func TestLoadOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	content := `
[api]
port = 9000
metrics = false

[workday]
contractual_hours = 6
holidays = ["2026-12-25"]

[accrual]
tick_interval = "500ms"
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.API.Port != 9000 {
		t.Errorf("Port = %d, want 9000", cfg.API.Port)
	}
	if cfg.API.Metrics {
		t.Error("Metrics should be overridden to false")
	}
	if cfg.API.Host != "127.0.0.1" {
		t.Errorf("Host = %q, absent keys must keep defaults", cfg.API.Host)
	}
	if cfg.Workday.ContractualSeconds() != 6*3600 {
		t.Errorf("ContractualSeconds = %d, want %d", cfg.Workday.ContractualSeconds(), 6*3600)
	}
	if cfg.Workday.LegalOvertimeHours != 2 {
		t.Errorf("LegalOvertimeHours = %d, absent keys must keep defaults", cfg.Workday.LegalOvertimeHours)
	}
	if !cfg.Workday.HolidaySet()["2026-12-25"] {
		t.Error("holiday set should contain 2026-12-25")
	}
	if cfg.Accrual.Interval() != 500*time.Millisecond {
		t.Errorf("Interval = %v, want 500ms", cfg.Accrual.Interval())
	}
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"zero contractual hours", "[workday]\ncontractual_hours = 0\n"},
		{"bad tick interval", "[accrual]\ntick_interval = \"soon\"\n"},
		{"bad holiday", "[workday]\nholidays = [\"25/12/2026\"]\n"},
		{"malformed toml", "[api\nport=\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "config.toml")
			if err := os.WriteFile(path, []byte(tt.content), 0o644); err != nil {
				t.Fatalf("write config: %v", err)
			}
			if _, err := Load(path); err == nil {
				t.Error("Load should reject the config")
			}
		})
	}
}
