// Package config reads process configuration from the environment. It is
// loaded once in cmd/ and passed down explicitly.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
)

// MaxContextItemsLimit is the largest accepted MAX_CONTEXT_ITEMS.
const MaxContextItemsLimit = 1000

// Config covers every entrypoint; each mode validates only what it needs.
type Config struct {
	// Chat endpoint (Lambda and local server).
	StateTable      string `env:"STATE_TABLE"`
	ParamPrefix     string `env:"PARAM_PREFIX" envDefault:"/chat-widget"`
	MaxContextItems int    `env:"MAX_CONTEXT_ITEMS" envDefault:"20"`
	MaxMessageLen   int    `env:"MAX_MESSAGE_LENGTH" envDefault:"2000"`

	OpenAIBaseURL     string   `env:"OPENAI_BASE_URL" envDefault:"https://api.openai.com/v1"`
	OpenAIAPIKey      string   `env:"OPENAI_API_KEY"`
	OpenAIModel       string   `env:"OPENAI_MODEL" envDefault:"gpt-4"`
	OpenAITemperature *float64 `env:"OPENAI_TEMPERATURE"`
	SystemPrompt      string   `env:"SYSTEM_PROMPT" envDefault:"You are a helpful assistant."`

	// Local server.
	ListenAddr      string        `env:"LISTEN_ADDR" envDefault:"127.0.0.1:5000"`
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"5s"`

	// Terminal widget.
	ChatEndpoint string        `env:"CHAT_ENDPOINT" envDefault:"http://127.0.0.1:5000"`
	ScrollDelay  time.Duration `env:"SCROLL_DELAY" envDefault:"50ms"`
	DiscardStale bool          `env:"DISCARD_STALE_REPLIES" envDefault:"false"`

	LogLevel  string `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat string `env:"LOG_FORMAT" envDefault:"text"`
}

// Load parses the environment into a Config.
func Load() (Config, error) {
	cfg, err := env.ParseAs[Config]()
	if err != nil {
		return Config{}, fmt.Errorf("config: parse environment: %w", err)
	}
	return cfg, nil
}

// ValidateLambda checks the settings the Lambda entrypoint cannot run without.
func (c Config) ValidateLambda() error {
	var errs []error
	if strings.TrimSpace(c.StateTable) == "" {
		errs = append(errs, errors.New("config: STATE_TABLE is required"))
	}
	if strings.Trim(strings.TrimSpace(c.ParamPrefix), "/") == "" {
		errs = append(errs, errors.New("config: PARAM_PREFIX is required"))
	}
	if c.MaxContextItems < 0 || c.MaxContextItems > MaxContextItemsLimit {
		errs = append(errs, fmt.Errorf("config: MAX_CONTEXT_ITEMS must be between 0 and %d", MaxContextItemsLimit))
	}
	return errors.Join(errs...)
}

// ValidateServer checks the settings the local server cannot run without.
func (c Config) ValidateServer() error {
	var errs []error
	if strings.TrimSpace(c.OpenAIAPIKey) == "" {
		errs = append(errs, errors.New("config: OPENAI_API_KEY is required"))
	}
	if strings.TrimSpace(c.OpenAIModel) == "" {
		errs = append(errs, errors.New("config: OPENAI_MODEL is required"))
	}
	if strings.TrimSpace(c.ListenAddr) == "" {
		errs = append(errs, errors.New("config: LISTEN_ADDR is required"))
	}
	return errors.Join(errs...)
}

// ValidateWidget checks the settings the terminal widget cannot run without.
func (c Config) ValidateWidget() error {
	if strings.TrimSpace(c.ChatEndpoint) == "" {
		return errors.New("config: CHAT_ENDPOINT is required")
	}
	if c.ScrollDelay < 0 {
		return errors.New("config: SCROLL_DELAY must not be negative")
	}
	return nil
}
