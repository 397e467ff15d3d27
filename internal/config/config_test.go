package config

import (
	"os"
	"testing"
)

func TestLoadDefaults(t *testing.T) {
	chdir(t, t.TempDir())

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.Server.Addr != "0.0.0.0:8080" {
		t.Fatalf("server addr = %q", cfg.Server.Addr)
	}
	if cfg.Database.Path != "data/timeclock.db" {
		t.Fatalf("database path = %q", cfg.Database.Path)
	}
	if cfg.Users.DefaultHourlyRate != 15 {
		t.Fatalf("default hourly rate = %v, want 15", cfg.Users.DefaultHourlyRate)
	}
	if cfg.BackupsEnabled() {
		t.Fatalf("backups should be disabled without a bucket")
	}
}

func TestLoadFromEnvironmentAndDotEnv(t *testing.T) {
	dir := t.TempDir()
	chdir(t, dir)
	if err := os.WriteFile(".env", []byte("TIMECLOCK_STORAGE_BUCKET=from-dotenv\nTIMECLOCK_SERVER_ADDR=:1\n"), 0o600); err != nil {
		t.Fatalf("write .env: %v", err)
	}
	t.Setenv("TIMECLOCK_SERVER_ADDR", "127.0.0.1:9090")
	t.Setenv("TIMECLOCK_USERS_DEFAULTHOURLYRATE", "22.5")
	// godotenv sets variables directly; make sure they are cleaned up
	t.Setenv("TIMECLOCK_STORAGE_BUCKET", "")
	os.Unsetenv("TIMECLOCK_STORAGE_BUCKET")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.Server.Addr != "127.0.0.1:9090" {
		t.Fatalf("environment should override .env, got %q", cfg.Server.Addr)
	}
	if cfg.Storage.Bucket != "from-dotenv" || !cfg.BackupsEnabled() {
		t.Fatalf("expected bucket from .env, got %q", cfg.Storage.Bucket)
	}
	if cfg.Users.DefaultHourlyRate != 22.5 {
		t.Fatalf("default hourly rate = %v, want 22.5", cfg.Users.DefaultHourlyRate)
	}
}

func TestLoadRejectsNegativeRate(t *testing.T) {
	chdir(t, t.TempDir())
	t.Setenv("TIMECLOCK_USERS_DEFAULTHOURLYRATE", "-1")

	if _, err := Load(); err == nil {
		t.Fatalf("expected error for negative default rate")
	}
}

// chdir stands in for testing.T.Chdir (Go 1.24+): it changes the working
// directory and restores the previous one when the test finishes.
func chdir(t *testing.T, dir string) {
	t.Helper()
	prev, err := os.Getwd()
	if err != nil {
		t.Fatalf("getwd: %v", err)
	}
	if err := os.Chdir(dir); err != nil {
		t.Fatalf("chdir: %v", err)
	}
	t.Cleanup(func() { os.Chdir(prev) })
}
