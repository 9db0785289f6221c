package config_test

import (
	"testing"
	"time"

	"github.com/echovoice/echovoice/internal/config"
)

// TestLoadConfigDefaults verifies defaults when no env vars are set.
func TestLoadConfigDefaults(t *testing.T) {
	cfg, err := config.LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}

	if cfg.Server.Port != 6464 {
		t.Errorf("expected default port 6464, got %d", cfg.Server.Port)
	}
	if cfg.LLM.Provider != "ollama" {
		t.Errorf("expected default LLM provider ollama, got %q", cfg.LLM.Provider)
	}
	if cfg.Detect.PresenceThreshold != 0.4 {
		t.Errorf("expected presence threshold 0.4, got %f", cfg.Detect.PresenceThreshold)
	}
	if cfg.Trigger.LongPressDuration != 5*time.Second {
		t.Errorf("expected long-press duration 5s, got %v", cfg.Trigger.LongPressDuration)
	}
	if cfg.Trigger.RapidTapCount != 3 {
		t.Errorf("expected rapid-tap count 3, got %d", cfg.Trigger.RapidTapCount)
	}
	if cfg.Trigger.ConfirmCountdown != 10*time.Second {
		t.Errorf("expected confirm countdown 10s, got %v", cfg.Trigger.ConfirmCountdown)
	}
	if !cfg.Detect.ContextDetection {
		t.Error("expected context detection enabled by default")
	}
	if cfg.User.ToneModifier != "balanced" {
		t.Errorf("expected default tone balanced, got %q", cfg.User.ToneModifier)
	}
}

// TestLoadConfigFromEnv verifies env var overrides.
func TestLoadConfigFromEnv(t *testing.T) {
	t.Setenv("ECHOVOICE_PORT", "7070")
	t.Setenv("ECHOVOICE_LLM_PROVIDER", "openai")
	t.Setenv("ECHOVOICE_EMOTION_INTERVAL", "250ms")
	t.Setenv("ECHOVOICE_SAVE_HISTORY", "false")
	t.Setenv("ECHOVOICE_PRESENCE_THRESHOLD", "0.6")

	cfg, err := config.LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}

	if cfg.Server.Port != 7070 {
		t.Errorf("expected port 7070, got %d", cfg.Server.Port)
	}
	if cfg.LLM.Provider != "openai" {
		t.Errorf("expected provider openai, got %q", cfg.LLM.Provider)
	}
	if cfg.Detect.EmotionInterval != 250*time.Millisecond {
		t.Errorf("expected emotion interval 250ms, got %v", cfg.Detect.EmotionInterval)
	}
	if cfg.User.SaveHistory {
		t.Error("expected save history disabled")
	}
	if cfg.Detect.PresenceThreshold != 0.6 {
		t.Errorf("expected presence threshold 0.6, got %f", cfg.Detect.PresenceThreshold)
	}
}

// TestLoadConfigBadValuesFallBack verifies unparseable values fall back to defaults.
func TestLoadConfigBadValuesFallBack(t *testing.T) {
	t.Setenv("ECHOVOICE_PORT", "not-a-number")
	t.Setenv("ECHOVOICE_CLOCK_INTERVAL", "soon")
	t.Setenv("ECHOVOICE_CONTEXT_DETECTION", "maybe")

	cfg, err := config.LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}

	if cfg.Server.Port != 6464 {
		t.Errorf("expected fallback port 6464, got %d", cfg.Server.Port)
	}
	if cfg.Detect.ClockInterval != 60*time.Second {
		t.Errorf("expected fallback clock interval 60s, got %v", cfg.Detect.ClockInterval)
	}
	if !cfg.Detect.ContextDetection {
		t.Error("expected fallback context detection true")
	}
}
