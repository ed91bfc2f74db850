package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func isolate(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	for _, env := range []string{
		EnvConfigFile, EnvPort, EnvLogLevel, EnvAPIBaseURL, EnvAPIToken, EnvOffline,
		EnvPollInterval, EnvGenerationPollInterval, EnvRequestTimeout,
	} {
		t.Setenv(env, "")
	}
	t.Setenv(EnvDataDir, dir)
	return dir
}

func TestNew_Defaults(t *testing.T) {
	dir := isolate(t)

	cfg, err := New()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Port() != DefaultPort {
		t.Errorf("Port = %d, want %d", cfg.Port(), DefaultPort)
	}
	if cfg.DBPath() != filepath.Join(dir, DBFilename) {
		t.Errorf("DBPath = %q", cfg.DBPath())
	}
	if cfg.PollInterval() != DefaultPollIntervalS*time.Second {
		t.Errorf("PollInterval = %v", cfg.PollInterval())
	}
	if cfg.Source() != "" {
		t.Errorf("Source = %q, want empty without a config file", cfg.Source())
	}
}

func TestNew_FileThenEnv(t *testing.T) {
	dir := isolate(t)
	file := `
port = 9100
log_level = "debug"

[api]
base_url = "https://api.example.test/"
token = "file-token"

[polling]
storyboard_interval_seconds = 3
`
	if err := os.WriteFile(filepath.Join(dir, ConfigFilename), []byte(file), 0o644); err != nil {
		t.Fatal(err)
	}
	t.Setenv(EnvAPIToken, "env-token")

	cfg, err := New()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Port() != 9100 {
		t.Errorf("Port = %d, want 9100", cfg.Port())
	}
	if cfg.LogLevel() != "debug" {
		t.Errorf("LogLevel = %q", cfg.LogLevel())
	}
	if cfg.APIBaseURL() != "https://api.example.test" {
		t.Errorf("APIBaseURL = %q, want trailing slash trimmed", cfg.APIBaseURL())
	}
	if cfg.APIToken() != "env-token" {
		t.Errorf("APIToken = %q, env should win over file", cfg.APIToken())
	}
	if cfg.PollInterval() != 3*time.Second {
		t.Errorf("PollInterval = %v", cfg.PollInterval())
	}
}

func TestNew_InvalidPort(t *testing.T) {
	isolate(t)
	t.Setenv(EnvPort, "70000")

	if _, err := New(); err == nil {
		t.Fatal("expected error for out-of-range port")
	}
}

func TestNew_MissingExplicitFile(t *testing.T) {
	dir := isolate(t)
	t.Setenv(EnvConfigFile, filepath.Join(dir, "nope.toml"))

	if _, err := New(); err == nil {
		t.Fatal("expected error for missing explicit config file")
	}
}

func TestNew_OfflineFromEnv(t *testing.T) {
	isolate(t)
	t.Setenv(EnvOffline, "true")
	t.Setenv(EnvAPIBaseURL, "")

	cfg, err := New()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !cfg.Offline() {
		t.Error("Offline = false, want true")
	}
}
