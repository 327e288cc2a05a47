package config

import (
	"testing"
)

func setRequiredEnv(t *testing.T) {
	t.Setenv("IDENTITY_ISSUER", "https://id.example.com/pool")
	t.Setenv("IDENTITY_CLIENT_ID", "client-123")
	t.Setenv("ENCRYPTION_KEY", "01234567890123456789012345678901")
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
	if cfg.Telemetry.Enabled {
		t.Error("Telemetry.Enabled = true, want false by default")
	}
}

func TestLoad_MissingEncryptionKey(t *testing.T) {
	t.Setenv("IDENTITY_ISSUER", "https://id.example.com/pool")
	t.Setenv("IDENTITY_CLIENT_ID", "client-123")
	t.Setenv("ENCRYPTION_KEY", "")

	if _, err := Load(); err == nil {
		t.Error("Load() expected error for missing ENCRYPTION_KEY")
	}
}

func TestLoad_ShortEncryptionKey(t *testing.T) {
	t.Setenv("IDENTITY_ISSUER", "https://id.example.com/pool")
	t.Setenv("IDENTITY_CLIENT_ID", "client-123")
	t.Setenv("ENCRYPTION_KEY", "too-short")

	if _, err := Load(); err == nil {
		t.Error("Load() expected error for short ENCRYPTION_KEY")
	}
}

func TestJWKSURL(t *testing.T) {
	tests := []struct {
		issuer string
		want   string
	}{
		{"https://id.example.com/pool", "https://id.example.com/pool/.well-known/jwks.json"},
		{"https://id.example.com/pool/", "https://id.example.com/pool/.well-known/jwks.json"},
	}

	for _, tt := range tests {
		c := IdentityConfig{Issuer: tt.issuer}
		if got := c.JWKSURL(); got != tt.want {
			t.Errorf("JWKSURL(%q) = %q, want %q", tt.issuer, got, tt.want)
		}
	}
}

func TestLoad_AllowedHosts(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("ALLOWED_HOSTS", "api.saverr.app, app.saverr.app ,")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}

	if len(cfg.Server.AllowedHosts) != 2 {
		t.Fatalf("AllowedHosts = %v, want 2 entries", cfg.Server.AllowedHosts)
	}
	if cfg.Server.AllowedHosts[0] != "api.saverr.app" {
		t.Errorf("AllowedHosts[0] = %q", cfg.Server.AllowedHosts[0])
	}
}
