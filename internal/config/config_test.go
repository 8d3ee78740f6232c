package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/LEXUGE/tg-anti-spam/internal/config"
)

func TestLoadConfigFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := `
telegram:
  token: "123:abc"
gemini:
  api_key: "test-key"
  model: "gemini-2.5-flash"
moderation:
  check_threshold: 7
  context_messages: 3
  mute_duration: 12h
`
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}

	cfg, err := config.LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}

	if cfg.Telegram.Token != "123:abc" {
		t.Errorf("Telegram.Token = %q, want %q", cfg.Telegram.Token, "123:abc")
	}
	if cfg.Moderation.CheckThreshold != 7 {
		t.Errorf("Moderation.CheckThreshold = %d, want 7", cfg.Moderation.CheckThreshold)
	}
	if cfg.Moderation.ContextMessages != 3 {
		t.Errorf("Moderation.ContextMessages = %d, want 3", cfg.Moderation.ContextMessages)
	}
	if cfg.Moderation.MuteDuration != 12*time.Hour {
		t.Errorf("Moderation.MuteDuration = %v, want 12h", cfg.Moderation.MuteDuration)
	}
	if cfg.Logger.Level != "info" {
		t.Errorf("Logger.Level default = %q, want %q", cfg.Logger.Level, "info")
	}
	if _, ok := cfg.Scheduler.Tasks["state_snapshot"]; !ok {
		t.Error("default scheduler tasks missing state_snapshot")
	}
}

func TestLoadConfigFromEnvironment(t *testing.T) {
	t.Setenv("ANTISPAM_TELEGRAM_TOKEN", "456:def")
	t.Setenv("ANTISPAM_GEMINI_API_KEY", "env-key")

	cfg, err := config.LoadConfig(filepath.Join(t.TempDir(), "absent.yaml"))
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}

	if cfg.Telegram.Token != "456:def" {
		t.Errorf("Telegram.Token = %q, want %q", cfg.Telegram.Token, "456:def")
	}
	if cfg.Gemini.APIKey != "env-key" {
		t.Errorf("Gemini.APIKey = %q, want %q", cfg.Gemini.APIKey, "env-key")
	}
	if cfg.Moderation.CheckThreshold != 20 {
		t.Errorf("Moderation.CheckThreshold default = %d, want 20", cfg.Moderation.CheckThreshold)
	}
}

func TestLoadConfigRejectsMissingToken(t *testing.T) {
	if _, err := config.LoadConfig(filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
		t.Fatal("LoadConfig succeeded without required telegram token")
	}
}

func TestLoadConfigRejectsBadLogLevel(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := `
telegram:
  token: "123:abc"
gemini:
  api_key: "test-key"
logger:
  level: "verbose"
`
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}

	if _, err := config.LoadConfig(path); err == nil {
		t.Fatal("LoadConfig accepted invalid log level")
	}
}
