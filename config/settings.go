// Package config provides application settings.
//
// Settings are created via Load() which handles:
// - Default value application
// - An optional YAML file
// - Environment variable overrides with validation
// - Provider-specific configuration lookup

package config

import (
	"errors"
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Settings holds all application configuration.
type Settings struct {
	LLM        LLMConfig        `yaml:"llm"`
	Agent      AgentConfig      `yaml:"agent"`
	Storage    StorageConfig    `yaml:"storage"`
	Repository RepositoryConfig `yaml:"repository"`
	Logging    LoggingConfig    `yaml:"logging"`
}

// LLMConfig holds LLM provider configuration.
type LLMConfig struct {
	Provider    string  `yaml:"provider"`
	Model       string  `yaml:"model"`
	BaseURL     string  `yaml:"base_url"`
	MaxTokens   uint32  `yaml:"max_tokens"`
	Temperature float64 `yaml:"temperature"`
}

// AgentConfig holds orchestrator bounds.
type AgentConfig struct {
	MaxIterations    int           `yaml:"max_iterations"`
	MaxToolCalls     int           `yaml:"max_tool_calls"`
	MaxParseRetries  int           `yaml:"max_parse_retries"`
	RetryBackoff     time.Duration `yaml:"retry_backoff"`
	StructuredOutput bool          `yaml:"structured_output"`
	SystemPrompt     string        `yaml:"system_prompt"`
}

// Storage drivers.
const (
	DriverMemory  = "memory"
	DriverSqlite3 = "sqlite3"
	DriverSqlite  = "sqlite"
)

// StorageConfig selects the document store.
type StorageConfig struct {
	Driver string `yaml:"driver"`
	Path   string `yaml:"path"`
}

// RepositoryConfig configures the code-hosting client.
type RepositoryConfig struct {
	BaseURL           string        `yaml:"base_url"`
	Token             string        `yaml:"token"`
	DefaultBranch     string        `yaml:"branch"`
	RequestsPerSecond float64       `yaml:"requests_per_second"`
	Timeout           time.Duration `yaml:"timeout"`
}

// LoggingConfig configures zap.
type LoggingConfig struct {
	Level string `yaml:"level"`
	JSON  bool   `yaml:"json"`
}

// providerInfo holds configuration for a specific LLM provider.
type providerInfo struct {
	modelEnv     string
	defaultModel string
	apiKeyEnv    string
}

// Supported providers and their configuration.
var providers = map[string]providerInfo{
	"openai":    {"OPENAI_MODEL", "gpt-5", "OPENAI_API_KEY"},
	"anthropic": {"ANTHROPIC_MODEL", "claude-sonnet-4-20250514", "ANTHROPIC_API_KEY"},
	"deepseek":  {"DEEPSEEK_MODEL", "deepseek-chat", "DEEPSEEK_API_KEY"},
	"gemini":    {"GEMINI_MODEL", "gemini-2.5-flash", "GEMINI_API_KEY"},
}

// Provider aliases map to canonical names.
var providerAliases = map[string]string{
	"claude": "anthropic",
	"google": "gemini",
	"gpt":    "openai",
}

// Defaults returns the built-in settings.
func Defaults() Settings {
	return Settings{
		LLM: LLMConfig{
			Provider:    "gemini",
			MaxTokens:   4096,
			Temperature: 0.7,
		},
		Agent: AgentConfig{
			MaxIterations:    30,
			MaxToolCalls:     15,
			MaxParseRetries:  3,
			RetryBackoff:     500 * time.Millisecond,
			StructuredOutput: true,
		},
		Storage: StorageConfig{
			Driver: DriverSqlite,
			Path:   "dotivra.db",
		},
		Repository: RepositoryConfig{
			RequestsPerSecond: 5,
			Timeout:           30 * time.Second,
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// Load builds settings from defaults, then the YAML file at path (skipped
// when path is empty), then environment variables.
func Load(path string) (Settings, error) {
	return load(path, "")
}

// LoadProvider is Load with the provider forced to provider when it is not
// empty. The provider's default model applies unless DOTIVRA_MODEL is set.
func LoadProvider(path, provider string) (Settings, error) {
	return load(path, provider)
}

func load(path, provider string) (Settings, error) {
	settings := Defaults()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Settings{}, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(data, &settings); err != nil {
			return Settings{}, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	if err := settings.applyEnv(); err != nil {
		return Settings{}, err
	}
	if provider != "" {
		settings.LLM.Provider = provider
		settings.LLM.Model = os.Getenv("DOTIVRA_MODEL")
	}

	settings.LLM.Provider = normalizeProvider(settings.LLM.Provider)
	if settings.LLM.Model == "" {
		model, err := ModelFor(settings.LLM.Provider)
		if err != nil {
			return Settings{}, err
		}
		settings.LLM.Model = model
	}

	if err := settings.Validate(); err != nil {
		return Settings{}, err
	}
	return settings, nil
}

// New creates settings for the specified provider from defaults and the
// environment. The provider's default model applies unless DOTIVRA_MODEL
// is set.
func New(provider string) (Settings, error) {
	return load("", provider)
}

// MustNew creates settings for the specified provider.
// Panics if the provider is unknown or environment variables are invalid.
// Use this only when configuration errors should be fatal.
func MustNew(provider string) Settings {
	settings, err := New(provider)
	if err != nil {
		panic(fmt.Sprintf("config: %v", err))
	}
	return settings
}

func (s *Settings) applyEnv() error {
	var errs []error
	setString(&s.LLM.Provider, "DOTIVRA_PROVIDER")
	setString(&s.LLM.Model, "DOTIVRA_MODEL")
	setString(&s.LLM.BaseURL, "DOTIVRA_LLM_BASE_URL")
	errs = append(errs,
		setUint32(&s.LLM.MaxTokens, "DOTIVRA_MAX_TOKENS"),
		setFloat64(&s.LLM.Temperature, "DOTIVRA_TEMPERATURE"),
		setInt(&s.Agent.MaxIterations, "DOTIVRA_MAX_ITERATIONS"),
		setInt(&s.Agent.MaxToolCalls, "DOTIVRA_MAX_TOOL_CALLS"),
		setInt(&s.Agent.MaxParseRetries, "DOTIVRA_MAX_PARSE_RETRIES"),
		setDuration(&s.Agent.RetryBackoff, "DOTIVRA_RETRY_BACKOFF"),
		setBool(&s.Agent.StructuredOutput, "DOTIVRA_STRUCTURED_OUTPUT"),
		setFloat64(&s.Repository.RequestsPerSecond, "DOTIVRA_GITHUB_RPS"),
		setDuration(&s.Repository.Timeout, "DOTIVRA_GITHUB_TIMEOUT"),
		setBool(&s.Logging.JSON, "DOTIVRA_LOG_JSON"),
	)
	setString(&s.Storage.Driver, "DOTIVRA_STORAGE_DRIVER")
	setString(&s.Storage.Path, "DOTIVRA_STORAGE_PATH")
	setString(&s.Repository.BaseURL, "DOTIVRA_GITHUB_URL")
	setString(&s.Repository.Token, "GITHUB_TOKEN")
	setString(&s.Repository.Token, "DOTIVRA_GITHUB_TOKEN")
	setString(&s.Repository.DefaultBranch, "DOTIVRA_BRANCH")
	setString(&s.Logging.Level, "DOTIVRA_LOG_LEVEL")
	return errors.Join(errs...)
}

// Validate checks the settings for values no component can run with.
func (s Settings) Validate() error {
	var errs []error
	if _, err := getProviderInfo(normalizeProvider(s.LLM.Provider)); err != nil {
		errs = append(errs, err)
	}
	if s.LLM.Temperature < 0 || s.LLM.Temperature > 2 {
		errs = append(errs, fmt.Errorf("temperature %v out of range [0, 2]", s.LLM.Temperature))
	}
	if s.Agent.MaxIterations < 1 || s.Agent.MaxToolCalls < 1 || s.Agent.MaxParseRetries < 1 {
		errs = append(errs, errors.New("agent bounds must be at least 1"))
	}
	switch s.Storage.Driver {
	case DriverMemory:
	case DriverSqlite3, DriverSqlite:
		if s.Storage.Path == "" {
			errs = append(errs, fmt.Errorf("storage driver %s needs a path", s.Storage.Driver))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown storage driver: %q", s.Storage.Driver))
	}
	return errors.Join(errs...)
}

// normalizeProvider converts provider aliases to canonical names.
func normalizeProvider(provider string) string {
	provider = strings.ToLower(strings.TrimSpace(provider))
	if canonical, ok := providerAliases[provider]; ok {
		return canonical
	}
	return provider
}

// getProviderInfo returns configuration for a provider.
func getProviderInfo(provider string) (providerInfo, error) {
	info, ok := providers[provider]
	if !ok {
		return providerInfo{}, fmt.Errorf("unknown provider: %q", provider)
	}
	return info, nil
}

// APIKeyFor returns the API key for a provider from environment variables.
func APIKeyFor(provider string) (string, error) {
	provider = normalizeProvider(provider)

	info, err := getProviderInfo(provider)
	if err != nil {
		return "", err
	}

	key := os.Getenv(info.apiKeyEnv)
	if key == "" {
		return "", fmt.Errorf("%s environment variable not set", info.apiKeyEnv)
	}
	return key, nil
}

// ModelFor returns the model for a provider, checking environment first.
func ModelFor(provider string) (string, error) {
	provider = normalizeProvider(provider)

	info, err := getProviderInfo(provider)
	if err != nil {
		return "", err
	}

	if val := os.Getenv(info.modelEnv); val != "" {
		return val, nil
	}
	return info.defaultModel, nil
}

// SupportedProviders returns the supported provider names, sorted.
func SupportedProviders() []string {
	result := make([]string, 0, len(providers))
	for name := range providers {
		result = append(result, name)
	}
	sort.Strings(result)
	return result
}

// Environment variable helpers with proper error handling

func setString(dst *string, key string) {
	if val := os.Getenv(key); val != "" {
		*dst = val
	}
}

func setInt(dst *int, key string) error {
	val := os.Getenv(key)
	if val == "" {
		return nil
	}
	i, err := strconv.Atoi(val)
	if err != nil {
		return fmt.Errorf("invalid value for %s: %q: %w", key, val, err)
	}
	*dst = i
	return nil
}

func setUint32(dst *uint32, key string) error {
	val := os.Getenv(key)
	if val == "" {
		return nil
	}
	i, err := strconv.ParseUint(val, 10, 32)
	if err != nil {
		return fmt.Errorf("invalid value for %s: %q: %w", key, val, err)
	}
	*dst = uint32(i)
	return nil
}

func setFloat64(dst *float64, key string) error {
	val := os.Getenv(key)
	if val == "" {
		return nil
	}
	f, err := strconv.ParseFloat(val, 64)
	if err != nil {
		return fmt.Errorf("invalid value for %s: %q: %w", key, val, err)
	}
	*dst = f
	return nil
}

func setBool(dst *bool, key string) error {
	val := os.Getenv(key)
	if val == "" {
		return nil
	}
	b, err := strconv.ParseBool(val)
	if err != nil {
		return fmt.Errorf("invalid value for %s: %q: %w", key, val, err)
	}
	*dst = b
	return nil
}

func setDuration(dst *time.Duration, key string) error {
	val := os.Getenv(key)
	if val == "" {
		return nil
	}
	d, err := time.ParseDuration(val)
	if err != nil {
		return fmt.Errorf("invalid value for %s: %q: %w", key, val, err)
	}
	*dst = d
	return nil
}
