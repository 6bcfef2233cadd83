package config

import (
	"strings"
	"testing"
	"time"
)

// setRequiredEnv sets the minimum environment for Load to succeed.
func setRequiredEnv(t *testing.T) {
	t.Helper()
	t.Setenv("ENCRYPTION_KEY", "01234567890123456789012345678901")
	t.Setenv("CONNECT_SESSION_SECRET", "test-session-secret")
}

func TestLoad_Defaults(t *testing.T) {
	setRequiredEnv(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}

	if cfg.Server.Port != "8080" {
		t.Errorf("Server.Port = %q, want 8080", cfg.Server.Port)
	}
	if cfg.Database.Port != 5432 {
		t.Errorf("Database.Port = %d, want 5432", cfg.Database.Port)
	}
	if cfg.Tink.DefaultMarket != "NL" {
		t.Errorf("Tink.DefaultMarket = %q, want NL", cfg.Tink.DefaultMarket)
	}
	if cfg.Tink.DefaultLocale != "nl_NL" {
		t.Errorf("Tink.DefaultLocale = %q, want nl_NL", cfg.Tink.DefaultLocale)
	}
	if cfg.Tink.PageSize != 100 {
		t.Errorf("Tink.PageSize = %d, want 100", cfg.Tink.PageSize)
	}
	if cfg.Session.TTL != 15*time.Minute {
		t.Errorf("Session.TTL = %v, want 15m", cfg.Session.TTL)
	}
	if !cfg.Scheduler.Enabled {
		t.Error("Scheduler.Enabled = false, want true by default")
	}
}

func TestLoad_MissingEncryptionKey(t *testing.T) {
	t.Setenv("ENCRYPTION_KEY", "")
	t.Setenv("CONNECT_SESSION_SECRET", "secret")

	_, err := Load()
	if err == nil {
		t.Fatal("Load() expected error for missing ENCRYPTION_KEY")
	}
}

func TestLoad_ShortEncryptionKey(t *testing.T) {
	t.Setenv("ENCRYPTION_KEY", "too-short")
	t.Setenv("CONNECT_SESSION_SECRET", "secret")

	_, err := Load()
	if err == nil || !strings.Contains(err.Error(), "32 bytes") {
		t.Fatalf("Load() error = %v, want 32-byte key error", err)
	}
}

func TestLoad_ClientIDWithoutRedirectURL(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("TINK_CLIENT_ID", "client-123")
	t.Setenv("TINK_REDIRECT_URL", "")

	_, err := Load()
	if err == nil || !strings.Contains(err.Error(), "TINK_REDIRECT_URL") {
		t.Fatalf("Load() error = %v, want redirect URL error", err)
	}
}

func TestLoad_AllowedHostsParsing(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("ALLOWED_HOSTS", "app.example.nl, api.example.nl ,")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}

	if len(cfg.Server.AllowedHosts) != 2 {
		t.Fatalf("AllowedHosts = %v, want 2 entries", cfg.Server.AllowedHosts)
	}
	if cfg.Server.AllowedHosts[0] != "app.example.nl" || cfg.Server.AllowedHosts[1] != "api.example.nl" {
		t.Errorf("AllowedHosts = %v", cfg.Server.AllowedHosts)
	}
}

func TestConnectionString(t *testing.T) {
	db := DatabaseConfig{
		Host: "localhost", Port: 5433, User: "u", Password: "p", DBName: "d", SSLMode: "disable",
	}
	got := db.ConnectionString()
	want := "host=localhost port=5433 user=u password=p dbname=d sslmode=disable"
	if got != want {
		t.Errorf("ConnectionString() = %q, want %q", got, want)
	}
}

func TestGetBoolEnv(t *testing.T) {
	tests := []struct {
		value string
		def   bool
		want  bool
	}{
		{"true", false, true},
		{"1", false, true},
		{"yes", false, true},
		{"false", true, false},
		{"0", true, false},
		{"no", true, false},
		{"garbage", true, true},
		{"", false, false},
	}

	for _, tt := range tests {
		t.Run(tt.value, func(t *testing.T) {
			t.Setenv("TEST_BOOL", tt.value)
			if got := getBoolEnv("TEST_BOOL", tt.def); got != tt.want {
				t.Errorf("getBoolEnv(%q, %v) = %v, want %v", tt.value, tt.def, got, tt.want)
			}
		})
	}
}
