package config

import (
	"testing"
)

func TestLoad_Defaults(t *testing.T) {
	Reset()
	t.Cleanup(Reset)

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("failed to load config: %v", err)
	}

	if cfg.Server.Port != 8080 {
		t.Errorf("expected default port 8080, got %d", cfg.Server.Port)
	}
	if cfg.AI.Gemini.Model != "gemini-1.5-flash" {
		t.Errorf("unexpected default model %q", cfg.AI.Gemini.Model)
	}
	if cfg.AI.Gemini.Temperature != 0.95 {
		t.Errorf("unexpected default temperature %v", cfg.AI.Gemini.Temperature)
	}
	if cfg.AI.Gemini.MaxTokens != 8192 {
		t.Errorf("unexpected default max tokens %d", cfg.AI.Gemini.MaxTokens)
	}
	if cfg.Quota.MaxDeviceRequests != 10 {
		t.Errorf("expected default device quota 10, got %d", cfg.Quota.MaxDeviceRequests)
	}
}

func TestLoad_GeminiKeyFromEnvironment(t *testing.T) {
	Reset()
	t.Cleanup(Reset)
	t.Setenv("GEMINI_API_KEY", "test-key-from-env")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("failed to load config: %v", err)
	}
	if cfg.AI.Gemini.APIKey != "test-key-from-env" {
		t.Errorf("expected API key from environment, got %q", cfg.AI.Gemini.APIKey)
	}
}

func TestLoad_AlternateGeminiKeyNames(t *testing.T) {
	Reset()
	t.Cleanup(Reset)
	t.Setenv("GOOGLE_AI_API_KEY", "alternate-name-key")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("failed to load config: %v", err)
	}
	if cfg.AI.Gemini.APIKey != "alternate-name-key" {
		t.Errorf("expected API key from alternate env name, got %q", cfg.AI.Gemini.APIKey)
	}
}

func TestLoad_PortOverride(t *testing.T) {
	Reset()
	t.Cleanup(Reset)
	t.Setenv("PORT", "3000")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("failed to load config: %v", err)
	}
	if cfg.Server.Port != 3000 {
		t.Errorf("expected port from environment, got %d", cfg.Server.Port)
	}
}

func TestLoad_IsIdempotent(t *testing.T) {
	Reset()
	t.Cleanup(Reset)

	first, err := Load("")
	if err != nil {
		t.Fatalf("failed to load config: %v", err)
	}
	second, err := Load("")
	if err != nil {
		t.Fatalf("failed to reload config: %v", err)
	}
	if first != second {
		t.Error("repeated loads should return the same config")
	}
}
