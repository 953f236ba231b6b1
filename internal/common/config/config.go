package config

import (
	"fmt"
	"time"
)

// Config is the main application configuration struct.
type Config struct {
	App     AppConfig     `mapstructure:"app"`
	API     APIConfig     `mapstructure:"api"`
	Store   StoreConfig   `mapstructure:"store"`
	Delays  DelayConfig   `mapstructure:"delays"`
	Logging LoggingConfig `mapstructure:"logging"`
	Metrics MetricsConfig `mapstructure:"metrics"`
}

type AppConfig struct {
	Name        string `mapstructure:"name"`
	Environment string `mapstructure:"environment"`
	// Channel is the tag sent on start-session; the backend accepts
	// "web" and "whatsapp".
	Channel string `mapstructure:"channel"`
}

type APIConfig struct {
	BaseURL string        `mapstructure:"base_url"`
	Timeout time.Duration `mapstructure:"timeout"`
}

type StoreConfig struct {
	Path string `mapstructure:"path"`
	// InMemory skips the on-disk badger files; used by tests.
	InMemory bool `mapstructure:"in_memory"`
}

// DelayConfig names every presentation-pacing pause in the flows. They
// exist so the pacing is explicit and tests can zero them.
type DelayConfig struct {
	ChatTransition   time.Duration `mapstructure:"chat_transition"`
	UploadNavigation time.Duration `mapstructure:"upload_navigation"`
	VerificationWait time.Duration `mapstructure:"verification_wait"`
	LoginRedirect    time.Duration `mapstructure:"login_redirect"`
}

type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Address string `mapstructure:"address"`
}

func applyDefaults(cfg *Config) {
	if cfg.App.Name == "" {
		cfg.App.Name = "loanflow"
	}
	if cfg.App.Environment == "" {
		cfg.App.Environment = "development"
	}
	if cfg.App.Channel == "" {
		cfg.App.Channel = "web"
	}
	if cfg.API.BaseURL == "" {
		cfg.API.BaseURL = "http://localhost:8000"
	}
	if cfg.API.Timeout == 0 {
		cfg.API.Timeout = 30 * time.Second
	}
	if cfg.Store.Path == "" {
		cfg.Store.Path = ".loanflow/state"
	}
	if cfg.Delays.ChatTransition == 0 {
		cfg.Delays.ChatTransition = 1500 * time.Millisecond
	}
	if cfg.Delays.UploadNavigation == 0 {
		cfg.Delays.UploadNavigation = 1500 * time.Millisecond
	}
	if cfg.Delays.VerificationWait == 0 {
		cfg.Delays.VerificationWait = 3 * time.Second
	}
	if cfg.Delays.LoginRedirect == 0 {
		cfg.Delays.LoginRedirect = 500 * time.Millisecond
	}
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "console"
	}
	if cfg.Metrics.Address == "" {
		cfg.Metrics.Address = ":9092"
	}
}

func validateConfig(cfg *Config) error {
	if cfg.API.BaseURL == "" {
		return fmt.Errorf("api.base_url must not be empty")
	}
	if cfg.API.Timeout < 0 {
		return fmt.Errorf("api.timeout must not be negative")
	}
	for name, d := range map[string]time.Duration{
		"delays.chat_transition":   cfg.Delays.ChatTransition,
		"delays.upload_navigation": cfg.Delays.UploadNavigation,
		"delays.verification_wait": cfg.Delays.VerificationWait,
		"delays.login_redirect":    cfg.Delays.LoginRedirect,
	} {
		if d < 0 {
			return fmt.Errorf("%s must not be negative", name)
		}
	}
	return nil
}
