package config

import (
	"fmt"
	"time"

	redisclient "github.com/vietddude/genflow/internal/infra/redis"
	"github.com/vietddude/genflow/internal/infra/storage/postgres"
	"github.com/vietddude/genflow/internal/retry"
)

// Duration wraps time.Duration so yaml can parse values like "500ms" or "2m".
// Bare integers are accepted as nanoseconds.
type Duration time.Duration

// UnmarshalYAML implements yaml.v2 unmarshalling.
func (d *Duration) UnmarshalYAML(unmarshal func(interface{}) error) error {
	var s string
	if err := unmarshal(&s); err == nil {
		parsed, perr := time.ParseDuration(s)
		if perr != nil {
			return fmt.Errorf("invalid duration %q: %w", s, perr)
		}
		*d = Duration(parsed)
		return nil
	}
	var n int64
	if err := unmarshal(&n); err != nil {
		return err
	}
	*d = Duration(n)
	return nil
}

// Std returns the wrapped time.Duration.
func (d Duration) Std() time.Duration {
	return time.Duration(d)
}

// AppConfig represents the top-level configuration.
type AppConfig struct {
	Server    ServerConfig       `yaml:"server"`
	Logging   LoggingConfig      `yaml:"logging"`
	Retry     RetryConfig        `yaml:"retry"`
	Media     MediaConfig        `yaml:"media"`
	Providers []ProviderConfig   `yaml:"providers"`
	Redis     redisclient.Config `yaml:"redis"`
	Database  postgres.Config    `yaml:"database"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port int `yaml:"port"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // json, text
}

// RetryConfig holds the generation retry tuning.
type RetryConfig struct {
	MaxAttempts       int      `yaml:"max_attempts"`
	InitialDelay      Duration `yaml:"initial_delay"`
	MaxDelay          Duration `yaml:"max_delay"`
	BackoffMultiplier float64  `yaml:"backoff_multiplier"`
	GlobalTimeout     Duration `yaml:"global_timeout"`
}

// Options converts the config into executor options.
func (r RetryConfig) Options(operationName string) retry.Options {
	return retry.Options{
		MaxAttempts:       r.MaxAttempts,
		InitialDelay:      r.InitialDelay.Std(),
		MaxDelay:          r.MaxDelay.Std(),
		BackoffMultiplier: r.BackoffMultiplier,
		GlobalTimeout:     r.GlobalTimeout.Std(),
		OperationName:     operationName,
	}
}

// MediaConfig holds media understanding endpoint settings.
type MediaConfig struct {
	ImageEndpoint string   `yaml:"image_endpoint"`
	AudioEndpoint string   `yaml:"audio_endpoint"`
	APIKey        string   `yaml:"api_key"`
	Timeout       Duration `yaml:"timeout"`
	MaxConcurrent int      `yaml:"max_concurrent"`
}

// ProviderConfig holds settings for one model provider.
type ProviderConfig struct {
	Name    string   `yaml:"name"`
	Kind    string   `yaml:"kind"` // http, grpc
	URL     string   `yaml:"url"`
	Model   string   `yaml:"model"`
	APIKey  string   `yaml:"api_key"`
	Timeout Duration `yaml:"timeout"`
}
