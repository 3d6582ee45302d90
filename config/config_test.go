package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDefaultSettings(t *testing.T) {
	cfg := Default()
	if cfg.BaseURL == "" {
		t.Fatalf("expected default base URL")
	}
	if cfg.HTTPTimeout != 10*time.Second {
		t.Fatalf("expected 10s default timeout, got %s", cfg.HTTPTimeout)
	}
	if cfg.Cache.RefetchAttempts != 3 {
		t.Fatalf("expected 3 default refetch attempts, got %d", cfg.Cache.RefetchAttempts)
	}
	if cfg.Cache.CategoriesFreshFor <= cfg.Cache.FreshFor {
		t.Fatalf("expected categories freshness window to exceed the default")
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default settings must validate: %v", err)
	}
}

func TestLoadMissingFileFallsBackToDefaults(t *testing.T) {
	cfg, loaded, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if loaded {
		t.Fatalf("expected loaded=false for missing file")
	}
	if cfg.BaseURL != Default().BaseURL {
		t.Fatalf("expected default base URL, got %q", cfg.BaseURL)
	}
}

func TestLoadFileOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "client.yaml")
	raw := []byte("baseUrl: https://blog.example.com/api\nhttpTimeout: 3s\ncache:\n  refetchAttempts: 5\n")
	if err := os.WriteFile(path, raw, 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, loaded, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if !loaded {
		t.Fatalf("expected loaded=true")
	}
	if cfg.BaseURL != "https://blog.example.com/api" {
		t.Fatalf("expected file base URL, got %q", cfg.BaseURL)
	}
	if cfg.HTTPTimeout != 3*time.Second {
		t.Fatalf("expected file timeout, got %s", cfg.HTTPTimeout)
	}
	if cfg.Cache.RefetchAttempts != 5 {
		t.Fatalf("expected file refetch attempts, got %d", cfg.Cache.RefetchAttempts)
	}
	if cfg.Cache.FreshFor != Default().Cache.FreshFor {
		t.Fatalf("unset file fields keep defaults, got %s", cfg.Cache.FreshFor)
	}
}

func TestEnvironmentOverridesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "client.yaml")
	if err := os.WriteFile(path, []byte("baseUrl: https://file.example.com/api\n"), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	t.Setenv("BLOG_API_BASE_URL", "https://env.example.com/api")
	t.Setenv("BLOG_HTTP_TIMEOUT", "7s")

	cfg, _, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.BaseURL != "https://env.example.com/api" {
		t.Fatalf("expected env base URL to win, got %q", cfg.BaseURL)
	}
	if cfg.HTTPTimeout != 7*time.Second {
		t.Fatalf("expected env timeout, got %s", cfg.HTTPTimeout)
	}
}

func TestValidateRejectsBadSettings(t *testing.T) {
	cfg := Default()
	cfg.BaseURL = "   "
	if err := cfg.Validate(); err == nil {
		t.Fatalf("expected error for blank base URL")
	}

	cfg = Default()
	cfg.Cache.RefetchAttempts = 0
	if err := cfg.Validate(); err == nil {
		t.Fatalf("expected error for zero refetch attempts")
	}
}
