package config

import (
	"errors"
	"fmt"
	"os"
	"slices"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/kalambet/persona/internal/profile"
	"github.com/kalambet/persona/internal/provider"
)

// DefaultRate is the per-client budget for POST /chat.
const DefaultRate = "10/minute"

// ErrMissingAPIKey is returned by Load when the selected provider has no key.
var ErrMissingAPIKey = errors.New("missing API key")

type Config struct {
	Server    ServerConfig
	LLM       LLMConfig
	CORS      CORSConfig
	RateLimit RateLimitConfig
	Profile   ProfileConfig
	Log       LogConfig
}

type ServerConfig struct {
	Host string
	Port int

	// TrustProxy takes the client address from X-Forwarded-For / X-Real-IP.
	// Enable only behind a reverse proxy that overwrites those headers.
	TrustProxy bool
}

// Addr is the listen address for the HTTP server.
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

type LLMConfig struct {
	Provider        string
	Model           string
	MaxTokens       int
	Temperature     float64
	Timeout         time.Duration
	BaseURL         string
	OpenAIAPIKey    string
	AnthropicAPIKey string
}

// APIKey returns the key for the selected provider.
func (c LLMConfig) APIKey() string {
	switch strings.ToLower(c.Provider) {
	case "openai":
		return c.OpenAIAPIKey
	case "anthropic":
		return c.AnthropicAPIKey
	}
	return ""
}

// keyEnv names the environment variable holding the selected provider's key.
func (c LLMConfig) keyEnv() string {
	return strings.ToUpper(c.Provider) + "_API_KEY"
}

// Settings converts the LLM section into provider settings.
func (c LLMConfig) Settings() provider.Settings {
	return provider.Settings{
		Name:        c.Provider,
		Model:       c.Model,
		APIKey:      c.APIKey(),
		BaseURL:     c.BaseURL,
		MaxTokens:   c.MaxTokens,
		Temperature: c.Temperature,
		Timeout:     c.Timeout,
	}
}

type CORSConfig struct {
	// Origins is a comma-separated list; "*" allows any origin.
	Origins string
}

// AllowedOrigins splits Origins into trimmed, non-empty entries.
func (c CORSConfig) AllowedOrigins() []string {
	var out []string
	for _, o := range strings.Split(c.Origins, ",") {
		if o = strings.TrimSpace(o); o != "" {
			out = append(out, o)
		}
	}
	return out
}

type RateLimitConfig struct {
	Rate string
}

type ProfileConfig struct {
	Path string
}

type LogConfig struct {
	Level string
}

func defaults() Config {
	return Config{
		Server: ServerConfig{
			Host: "0.0.0.0",
			Port: 8000,
		},
		LLM: LLMConfig{
			Provider:    "openai",
			Model:       "gpt-3.5-turbo",
			MaxTokens:   provider.DefaultMaxTokens,
			Temperature: provider.DefaultTemperature,
			Timeout:     provider.DefaultTimeout,
		},
		CORS:      CORSConfig{Origins: "*"},
		RateLimit: RateLimitConfig{Rate: DefaultRate},
		Profile:   ProfileConfig{Path: profile.ResolvePath("")},
		Log:       LogConfig{Level: "info"},
	}
}

// Load reads configuration in increasing precedence: built-in defaults, the
// JSON config file at $XDG_CONFIG_HOME/persona/config.json, a .env file in
// the working directory, then the process environment. Values in .env never
// override variables already set in the environment.
//
// The result is validated: the provider must be supported, its API key must
// be present and the rate limit must parse.
func Load() (Config, error) {
	return loadWith(newFileBackend(FilePath()), ".env")
}

func loadWith(b ConfigBackend, envFile string) (Config, error) {
	cfg := defaults()

	if err := applyBackend(&cfg, b); err != nil {
		return Config{}, err
	}

	if err := loadDotEnv(envFile); err != nil {
		return Config{}, err
	}
	applyEnvOverrides(&cfg)

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func loadDotEnv(path string) error {
	if path == "" {
		return nil
	}
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("loading %s: %w", path, err)
	}
	return nil
}

// Validate checks the settings the service cannot start without.
func (c Config) Validate() error {
	name := strings.ToLower(strings.TrimSpace(c.LLM.Provider))
	if !slices.Contains(provider.Supported(), name) {
		return fmt.Errorf("%w: %q (supported: %s)", provider.ErrUnsupportedProvider, c.LLM.Provider, strings.Join(provider.Supported(), ", "))
	}
	if c.LLM.APIKey() == "" {
		return fmt.Errorf("%w for provider %s: set %s in the environment or .env file", ErrMissingAPIKey, name, c.LLM.keyEnv())
	}
	if _, err := ParseRate(c.RateLimit.Rate); err != nil {
		return err
	}
	return nil
}
