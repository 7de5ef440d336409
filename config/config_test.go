package config

import (
	"os"
	"testing"
	"time"
)

func writeTempConfig(t *testing.T, content string) string {
	t.Helper()

	tmpFile, err := os.CreateTemp("", "config-*.yaml")
	if err != nil {
		t.Fatalf("Failed to create temp file: %v", err)
	}
	t.Cleanup(func() { os.Remove(tmpFile.Name()) })

	if _, err := tmpFile.WriteString(content); err != nil {
		t.Fatalf("Failed to write config: %v", err)
	}
	tmpFile.Close()
	return tmpFile.Name()
}

func TestLoad(t *testing.T) {
	configContent := `
server:
  port: 9090
backend:
  api_url: "http://receipto-api:8001"
  timeout_seconds: 30
upload:
  max_file_size_mb: 10
  cleanup_delay_seconds: 5
auth:
  jwt_secret: "test-secret"
  token_expire_hours: 48
log:
  level: "debug"
  format: "json"
users:
  - username: "testuser"
    password: "testpass"
`
	cfg, err := Load(writeTempConfig(t, configContent))
	if err != nil {
		t.Fatalf("Failed to load config: %v", err)
	}

	if cfg.Server.Port != 9090 {
		t.Errorf("Expected port 9090, got %d", cfg.Server.Port)
	}
	if cfg.Backend.APIURL != "http://receipto-api:8001" {
		t.Errorf("Expected backend url http://receipto-api:8001, got %s", cfg.Backend.APIURL)
	}
	if cfg.Backend.Timeout() != 30*time.Second {
		t.Errorf("Expected 30s backend timeout, got %v", cfg.Backend.Timeout())
	}
	if cfg.Upload.MaxFileSizeMB != 10 {
		t.Errorf("Expected max file size 10, got %d", cfg.Upload.MaxFileSizeMB)
	}
	if cfg.CleanupDelay() != 5*time.Second {
		t.Errorf("Expected 5s cleanup delay, got %v", cfg.CleanupDelay())
	}
	if cfg.Auth.JWTSecret != "test-secret" {
		t.Errorf("Expected jwt secret test-secret, got %s", cfg.Auth.JWTSecret)
	}
	if cfg.Log.Level != "debug" {
		t.Errorf("Expected log level debug, got %s", cfg.Log.Level)
	}
	if len(cfg.Users) != 1 || cfg.Users[0].Username != "testuser" {
		t.Errorf("Expected 1 user testuser, got %+v", cfg.Users)
	}
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load(writeTempConfig(t, "server: {}\n"))
	if err != nil {
		t.Fatalf("Failed to load config: %v", err)
	}

	if cfg.Server.Port != 8080 {
		t.Errorf("Expected default port 8080, got %d", cfg.Server.Port)
	}
	if cfg.Backend.APIURL != "http://localhost:8001" {
		t.Errorf("Expected default backend url, got %s", cfg.Backend.APIURL)
	}
	if cfg.Backend.TimeoutSeconds != 60 {
		t.Errorf("Expected default timeout 60, got %d", cfg.Backend.TimeoutSeconds)
	}
	if cfg.CleanupDelay() != 2*time.Second {
		t.Errorf("Expected default cleanup delay 2s, got %v", cfg.CleanupDelay())
	}
	if cfg.Auth.TokenExpireHours != 24 {
		t.Errorf("Expected default token expiry 24h, got %d", cfg.Auth.TokenExpireHours)
	}
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("RECEIPTO_API_URL", "http://override:9000")
	t.Setenv("RECEIPTO_JWT_SECRET", "env-secret")
	t.Setenv("RECEIPTO_PORT", "7070")

	cfg, err := Load(writeTempConfig(t, `
server:
  port: 9090
backend:
  api_url: "http://from-yaml:8001"
auth:
  jwt_secret: "yaml-secret"
`))
	if err != nil {
		t.Fatalf("Failed to load config: %v", err)
	}

	if cfg.Backend.APIURL != "http://override:9000" {
		t.Errorf("Expected env override for backend url, got %s", cfg.Backend.APIURL)
	}
	if cfg.Auth.JWTSecret != "env-secret" {
		t.Errorf("Expected env override for jwt secret, got %s", cfg.Auth.JWTSecret)
	}
	if cfg.Server.Port != 7070 {
		t.Errorf("Expected env override for port, got %d", cfg.Server.Port)
	}
}

func TestLoadInvalidPortOverride(t *testing.T) {
	t.Setenv("RECEIPTO_PORT", "not-a-number")

	cfg, err := Load(writeTempConfig(t, "server:\n  port: 9090\n"))
	if err != nil {
		t.Fatalf("Failed to load config: %v", err)
	}
	if cfg.Server.Port != 9090 {
		t.Errorf("Expected yaml port kept on bad override, got %d", cfg.Server.Port)
	}
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load("/nonexistent/config.yaml")
	if err == nil {
		t.Error("Expected error for missing file")
	}
}

func TestLoadInvalidYAML(t *testing.T) {
	_, err := Load(writeTempConfig(t, "server: [not: valid"))
	if err == nil {
		t.Error("Expected error for invalid yaml")
	}
}

func TestFindUser(t *testing.T) {
	cfg := &Config{
		Users: []User{
			{Username: "alice", Password: "secret1"},
			{Username: "bob", Password: "secret2"},
		},
	}

	user := cfg.FindUser("bob")
	if user == nil {
		t.Fatal("Expected to find bob")
	}
	if user.Password != "secret2" {
		t.Errorf("Expected bob's password, got %s", user.Password)
	}

	if cfg.FindUser("charlie") != nil {
		t.Error("Expected nil for unknown user")
	}
}
