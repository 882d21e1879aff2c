// Package config loads this service's configuration: environment
// variables with a getEnv fallback for deployment-scoped settings, and
// an optional YAML file overlay for the declarative thresholds the
// validation pipeline tunes.
package config

import (
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/wikisoft/rosterval/internal/retry"
)

// Config is the fully-resolved configuration for one process.
type Config struct {
	Port        string
	LogLevel    string
	LogPretty   bool
	DatabaseDSN string

	OpenAIAPIKey string
	OpenAIModel  string
	LLMEnabled   bool

	JWTSecret   string
	RequireAuth bool

	WebhookURL string

	Confidence ConfidenceThresholds
	Retry      RetryBounds
	Layer2     Layer2Config
	Parser     ParserConfig
	Agent      AgentConfig
}

// ConfidenceThresholds mirrors the Agent's confidence-gated decisions.
type ConfidenceThresholds struct {
	MatchRetry     float64 `yaml:"match_retry"`
	MatchHuman     float64 `yaml:"match_human"`
	EarlyTerminate float64 `yaml:"early_terminate"`
}

// RetryBounds tunes the Retry Strategy's backoff.
type RetryBounds struct {
	MaxRetries      int     `yaml:"max_retries"`
	BaseDelaySec    float64 `yaml:"base_delay_seconds"`
	MaxDelaySec     float64 `yaml:"max_delay_seconds"`
	ExponentialBase float64 `yaml:"exponential_base"`
}

// Policy converts the resolved config into the retry.Policy the LLM
// client's transient-error backoff consults.
func (r RetryBounds) Policy() retry.Policy {
	return retry.Policy{
		MaxRetries:      r.MaxRetries,
		BaseDelay:       time.Duration(r.BaseDelaySec * float64(time.Second)),
		MaxDelay:        time.Duration(r.MaxDelaySec * float64(time.Second)),
		ExponentialBase: r.ExponentialBase,
		Jitter:          true,
	}
}

// Layer2Config tunes the Layer-2 diagnostic/aggregate reconciliation.
type Layer2Config struct {
	TolerancePercent float64 `yaml:"tolerance_percent"`
}

// ParserConfig bounds the Parser (C2).
type ParserConfig struct {
	MaxRows int `yaml:"max_rows"`
}

// AgentConfig tunes the ReACT Agent loop itself.
type AgentConfig struct {
	MaxIterations int `yaml:"max_iterations"`
}

type fileOverlay struct {
	Confidence ConfidenceThresholds `yaml:"confidence"`
	Retry      RetryBounds          `yaml:"retry"`
	Layer2     Layer2Config         `yaml:"layer2"`
	Parser     ParserConfig         `yaml:"parser"`
	Agent      AgentConfig          `yaml:"agent"`
	LLMEnabled *bool                `yaml:"llm_enabled"`
}

func defaults() Config {
	return Config{
		Port:        "8080",
		LogLevel:    "info",
		DatabaseDSN: "",
		OpenAIModel: "gpt-4o",
		LLMEnabled:  true,
		RequireAuth: true,
		Confidence: ConfidenceThresholds{
			MatchRetry:     0.80,
			MatchHuman:     0.50,
			EarlyTerminate: 0.95,
		},
		Retry: RetryBounds{
			MaxRetries:      2,
			BaseDelaySec:    1,
			MaxDelaySec:     30,
			ExponentialBase: 2.0,
		},
		Layer2: Layer2Config{TolerancePercent: 1.0},
		Parser: ParserConfig{MaxRows: 50000},
		Agent:  AgentConfig{MaxIterations: 5},
	}
}

// Load reads environment variables, then applies a YAML file overlay
// if CONFIG_FILE (or ./config.yaml) resolves to a readable file.
func Load() *Config {
	cfg := defaults()

	cfg.Port = getEnv("PORT", cfg.Port)
	cfg.LogLevel = getEnv("LOG_LEVEL", cfg.LogLevel)
	cfg.LogPretty = getEnvBool("LOG_PRETTY", false)
	cfg.DatabaseDSN = getEnv("DATABASE_DSN", cfg.DatabaseDSN)
	cfg.OpenAIAPIKey = getEnv("OPENAI_API_KEY", "")
	cfg.OpenAIModel = getEnv("OPENAI_MODEL", cfg.OpenAIModel)
	cfg.LLMEnabled = getEnvBool("LLM_ENABLED", cfg.LLMEnabled)
	cfg.JWTSecret = getEnv("JWT_SECRET", "")
	cfg.RequireAuth = getEnvBool("REQUIRE_AUTH", cfg.RequireAuth)
	cfg.WebhookURL = getEnv("WEBHOOK_URL", "")

	if path := getEnv("CONFIG_FILE", "config.yaml"); path != "" {
		applyFileOverlay(&cfg, path)
	}

	return &cfg
}

func applyFileOverlay(cfg *Config, path string) {
	data, err := os.ReadFile(path)
	if err != nil {
		return
	}
	var overlay fileOverlay
	if err := yaml.Unmarshal(data, &overlay); err != nil {
		return
	}

	if overlay.Confidence.MatchRetry > 0 {
		cfg.Confidence.MatchRetry = overlay.Confidence.MatchRetry
	}
	if overlay.Confidence.MatchHuman > 0 {
		cfg.Confidence.MatchHuman = overlay.Confidence.MatchHuman
	}
	if overlay.Confidence.EarlyTerminate > 0 {
		cfg.Confidence.EarlyTerminate = overlay.Confidence.EarlyTerminate
	}
	if overlay.Retry.MaxRetries > 0 {
		cfg.Retry.MaxRetries = overlay.Retry.MaxRetries
	}
	if overlay.Retry.BaseDelaySec > 0 {
		cfg.Retry.BaseDelaySec = overlay.Retry.BaseDelaySec
	}
	if overlay.Retry.MaxDelaySec > 0 {
		cfg.Retry.MaxDelaySec = overlay.Retry.MaxDelaySec
	}
	if overlay.Retry.ExponentialBase > 0 {
		cfg.Retry.ExponentialBase = overlay.Retry.ExponentialBase
	}
	if overlay.Layer2.TolerancePercent > 0 {
		cfg.Layer2.TolerancePercent = overlay.Layer2.TolerancePercent
	}
	if overlay.Parser.MaxRows > 0 {
		cfg.Parser.MaxRows = overlay.Parser.MaxRows
	}
	if overlay.Agent.MaxIterations > 0 {
		cfg.Agent.MaxIterations = overlay.Agent.MaxIterations
	}
	if overlay.LLMEnabled != nil {
		cfg.LLMEnabled = *overlay.LLMEnabled
	}
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	parsed, err := strconv.ParseBool(value)
	if err != nil {
		return fallback
	}
	return parsed
}

// GetPortInt returns the port as an integer, or 0 if unparsable.
func (c *Config) GetPortInt() int {
	p, _ := strconv.Atoi(c.Port)
	return p
}
