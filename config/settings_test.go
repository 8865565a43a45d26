package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestNewValidProvider(t *testing.T) {
	settings, err := New("openai")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if settings.LLM.Provider != "openai" {
		t.Errorf("expected provider 'openai', got %q", settings.LLM.Provider)
	}
	if settings.LLM.Model == "" {
		t.Error("expected a default model")
	}
}

func TestNewWithAlias(t *testing.T) {
	settings, err := New("claude")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if settings.LLM.Provider != "anthropic" {
		t.Errorf("expected provider 'anthropic' (normalized from 'claude'), got %q", settings.LLM.Provider)
	}
}

func TestNewUnknownProvider(t *testing.T) {
	_, err := New("unknown_provider")
	if err == nil {
		t.Error("expected error for unknown provider")
	}
}

func TestDefaultsUseGemini(t *testing.T) {
	t.Setenv("DOTIVRA_PROVIDER", "")
	t.Setenv("GEMINI_MODEL", "")

	settings, err := Load("")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if settings.LLM.Provider != "gemini" || settings.LLM.Model != "gemini-2.5-flash" {
		t.Errorf("unexpected LLM defaults %+v", settings.LLM)
	}
	if settings.Agent.MaxParseRetries != 3 || !settings.Agent.StructuredOutput {
		t.Errorf("unexpected agent defaults %+v", settings.Agent)
	}
}

func TestAPIKeyForValidProvider(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "test-key")

	key, err := APIKeyFor("openai")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if key != "test-key" {
		t.Errorf("expected 'test-key', got %q", key)
	}
}

func TestAPIKeyForMissing(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "")

	_, err := APIKeyFor("openai")
	if err == nil {
		t.Error("expected error for missing API key")
	}
}

func TestAPIKeyForUnknownProvider(t *testing.T) {
	_, err := APIKeyFor("unknown")
	if err == nil {
		t.Error("expected error for unknown provider")
	}
}

func TestModelForPrefersEnvironment(t *testing.T) {
	t.Setenv("DEEPSEEK_MODEL", "deepseek-reasoner")

	model, err := ModelFor("deepseek")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if model != "deepseek-reasoner" {
		t.Errorf("expected env model, got %q", model)
	}
}

func TestNewWithInvalidEnvVar(t *testing.T) {
	t.Setenv("DOTIVRA_MAX_TOKENS", "not-a-number")

	_, err := New("openai")
	if err == nil || !strings.Contains(err.Error(), "DOTIVRA_MAX_TOKENS") {
		t.Errorf("expected error for invalid DOTIVRA_MAX_TOKENS, got %v", err)
	}
}

func TestMustNewPanics(t *testing.T) {
	defer func() {
		if r := recover(); r == nil {
			t.Error("expected panic for unknown provider")
		}
	}()
	MustNew("unknown_provider")
}

func TestSupportedProviders(t *testing.T) {
	providers := SupportedProviders()
	want := []string{"anthropic", "deepseek", "gemini", "openai"}
	if strings.Join(providers, ",") != strings.Join(want, ",") {
		t.Errorf("expected %v, got %v", want, providers)
	}
}

func TestLoadFileThenEnvironment(t *testing.T) {
	path := filepath.Join(t.TempDir(), "dotivra.yaml")
	data := `
llm:
  provider: claude
  temperature: 0.2
agent:
  max_tool_calls: 4
  retry_backoff: 2s
storage:
  driver: memory
repository:
  branch: develop
`
	if err := os.WriteFile(path, []byte(data), 0o600); err != nil {
		t.Fatal(err)
	}
	t.Setenv("DOTIVRA_PROVIDER", "")
	t.Setenv("DOTIVRA_MODEL", "")
	t.Setenv("ANTHROPIC_MODEL", "")
	t.Setenv("DOTIVRA_MAX_TOOL_CALLS", "7")

	settings, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if settings.LLM.Provider != "anthropic" || settings.LLM.Model != "claude-sonnet-4-20250514" {
		t.Errorf("unexpected LLM settings %+v", settings.LLM)
	}
	if settings.LLM.Temperature != 0.2 {
		t.Errorf("expected file temperature, got %v", settings.LLM.Temperature)
	}
	if settings.Agent.MaxToolCalls != 7 {
		t.Errorf("environment should override file, got %d", settings.Agent.MaxToolCalls)
	}
	if settings.Agent.RetryBackoff != 2*time.Second {
		t.Errorf("expected 2s backoff, got %v", settings.Agent.RetryBackoff)
	}
	if settings.Agent.MaxIterations != 30 {
		t.Errorf("unset values keep defaults, got %d", settings.Agent.MaxIterations)
	}
	if settings.Storage.Driver != DriverMemory || settings.Repository.DefaultBranch != "develop" {
		t.Errorf("unexpected storage/repository settings %+v %+v", settings.Storage, settings.Repository)
	}
}

func TestLoadProviderOverridesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "dotivra.yaml")
	data := "llm:\n  provider: anthropic\n  model: claude-opus-4-5-20251101\n"
	if err := os.WriteFile(path, []byte(data), 0o600); err != nil {
		t.Fatal(err)
	}
	t.Setenv("DOTIVRA_PROVIDER", "")
	t.Setenv("DOTIVRA_MODEL", "")
	t.Setenv("DEEPSEEK_MODEL", "")

	settings, err := LoadProvider(path, "deepseek")
	if err != nil {
		t.Fatalf("LoadProvider failed: %v", err)
	}
	if settings.LLM.Provider != "deepseek" || settings.LLM.Model != "deepseek-chat" {
		t.Errorf("expected deepseek defaults, got %+v", settings.LLM)
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Settings)
		wantErr string
	}{
		{name: "defaults", mutate: func(*Settings) {}},
		{name: "unknown driver", mutate: func(s *Settings) { s.Storage.Driver = "postgres" }, wantErr: "unknown storage driver"},
		{name: "sqlite without path", mutate: func(s *Settings) { s.Storage.Path = "" }, wantErr: "needs a path"},
		{name: "zero bounds", mutate: func(s *Settings) { s.Agent.MaxToolCalls = 0 }, wantErr: "at least 1"},
		{name: "hot temperature", mutate: func(s *Settings) { s.LLM.Temperature = 3 }, wantErr: "temperature"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := Defaults()
			tt.mutate(&s)
			err := s.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Errorf("unexpected error: %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("expected error containing %q, got %v", tt.wantErr, err)
			}
		})
	}
}
