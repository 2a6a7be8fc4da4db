package config

import (
	"os"
	"testing"
	"time"
)

func TestLoad_Defaults(t *testing.T) {
	os.Setenv("JWT_SECRET", "test-secret-key")
	defer os.Unsetenv("JWT_SECRET")

	envVars := []string{
		"SERVER_ADDR", "SERVER_PORT", "DB_HOST", "DB_PORT", "DB_USER",
		"DB_PASSWORD", "DB_NAME", "DB_SSLMODE",
		"MAX_GUESTS_ALLOWED_IN_PROJECT", "GUEST_MODE_ENABLED",
		"LOBBY_STATE_TTL", "GUEST_CONTEXT_TTL",
	}
	for _, v := range envVars {
		os.Unsetenv(v)
	}

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.ServerAddr != "0.0.0.0" {
		t.Errorf("ServerAddr = %q, want %q", cfg.ServerAddr, "0.0.0.0")
	}
	if cfg.ServerPort != 8080 {
		t.Errorf("ServerPort = %d, want %d", cfg.ServerPort, 8080)
	}
	if cfg.DBHost != "localhost" {
		t.Errorf("DBHost = %q, want %q", cfg.DBHost, "localhost")
	}
	if cfg.MaxGuestsAllowedInProject != 10 {
		t.Errorf("MaxGuestsAllowedInProject = %d, want 10", cfg.MaxGuestsAllowedInProject)
	}
	if !cfg.GuestModeEnabled {
		t.Error("GuestModeEnabled = false, want true by default")
	}
	if cfg.LobbyStateTTL != 30*time.Second {
		t.Errorf("LobbyStateTTL = %v, want %v", cfg.LobbyStateTTL, 30*time.Second)
	}
	if cfg.GuestContextTTL != 30*time.Minute {
		t.Errorf("GuestContextTTL = %v, want %v", cfg.GuestContextTTL, 30*time.Minute)
	}
}

func TestLoad_RequiredJWTSecret(t *testing.T) {
	os.Unsetenv("JWT_SECRET")

	_, err := Load()
	if err == nil {
		t.Error("Load should fail when JWT_SECRET is not set")
	}
}

func TestLoad_RejectsZeroCapacity(t *testing.T) {
	os.Setenv("JWT_SECRET", "test-secret-key")
	os.Setenv("MAX_GUESTS_ALLOWED_IN_PROJECT", "0")
	defer func() {
		os.Unsetenv("JWT_SECRET")
		os.Unsetenv("MAX_GUESTS_ALLOWED_IN_PROJECT")
	}()

	_, err := Load()
	if err == nil {
		t.Error("Load should fail for a zero guest capacity")
	}
}

func TestLoad_CustomValues(t *testing.T) {
	os.Setenv("JWT_SECRET", "custom-secret")
	os.Setenv("SERVER_PORT", "9090")
	os.Setenv("MAX_GUESTS_ALLOWED_IN_PROJECT", "3")
	os.Setenv("LOBBY_STATE_TTL", "10s")
	os.Setenv("GUEST_MODE_ENABLED", "false")
	defer func() {
		os.Unsetenv("JWT_SECRET")
		os.Unsetenv("SERVER_PORT")
		os.Unsetenv("MAX_GUESTS_ALLOWED_IN_PROJECT")
		os.Unsetenv("LOBBY_STATE_TTL")
		os.Unsetenv("GUEST_MODE_ENABLED")
	}()

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.ServerPort != 9090 {
		t.Errorf("ServerPort = %d, want %d", cfg.ServerPort, 9090)
	}
	if cfg.MaxGuestsAllowedInProject != 3 {
		t.Errorf("MaxGuestsAllowedInProject = %d, want 3", cfg.MaxGuestsAllowedInProject)
	}
	if cfg.LobbyStateTTL != 10*time.Second {
		t.Errorf("LobbyStateTTL = %v, want %v", cfg.LobbyStateTTL, 10*time.Second)
	}
	if cfg.GuestModeEnabled {
		t.Error("GuestModeEnabled = true, want false")
	}
}

func TestHasSMTP(t *testing.T) {
	cfg := &Config{}
	if cfg.HasSMTP() {
		t.Error("HasSMTP = true without any SMTP settings")
	}
	cfg.SMTPHost = "smtp.example.com"
	if cfg.HasSMTP() {
		t.Error("HasSMTP = true without a From address")
	}
	cfg.SMTPFrom = "noreply@example.com"
	if !cfg.HasSMTP() {
		t.Error("HasSMTP = false with host and from set")
	}
}
