// Package config holds the havewant settings read by viper from the config
// file, the environment and flags.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

const EnvPrefix = "HAVEWANT"

// MaxCandidateLimit bounds how many candidates, and so AI calls, one match
// request may evaluate.
const MaxCandidateLimit = 50

type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Database DatabaseConfig `mapstructure:"database"`
	Auth     AuthConfig     `mapstructure:"auth"`
	Matching MatchingConfig `mapstructure:"matching"`
	AI       AIConfig       `mapstructure:"ai"`
	Log      LogConfig      `mapstructure:"log"`
}

type ServerConfig struct {
	Addr         string        `mapstructure:"addr"`
	Env          string        `mapstructure:"env"`
	ReadTimeout  time.Duration `mapstructure:"read-timeout"`
	WriteTimeout time.Duration `mapstructure:"write-timeout"`
}

// Release reports whether gin should run in release mode.
func (s ServerConfig) Release() bool {
	return strings.EqualFold(s.Env, "production")
}

type DatabaseConfig struct {
	Driver          string        `mapstructure:"driver"`
	DSN             string        `mapstructure:"dsn"`
	MaxOpenConns    int           `mapstructure:"max-open-conns"`
	MaxIdleConns    int           `mapstructure:"max-idle-conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn-max-lifetime"`
	Migrate         bool          `mapstructure:"migrate"`
}

type AuthConfig struct {
	JWTSecret     string `mapstructure:"jwt-secret"`
	JWTSecretFile string `mapstructure:"jwt-secret-file"`
}

type MatchingConfig struct {
	MinScore       float64 `mapstructure:"min-score"`
	CandidateLimit int     `mapstructure:"candidate-limit"`
	Parallelism    int     `mapstructure:"parallelism"`
}

type AIConfig struct {
	Enabled             bool          `mapstructure:"enabled"`
	Provider            string        `mapstructure:"provider"`
	Timeout             time.Duration `mapstructure:"timeout"`
	RationaleMaxTokens  int           `mapstructure:"rationale-max-tokens"`
	StructuresMaxTokens int           `mapstructure:"structures-max-tokens"`
	MaxLogLength        int           `mapstructure:"max-log-length"`
	Gemini              GeminiConfig  `mapstructure:"gemini"`
	OpenAI              OpenAIConfig  `mapstructure:"openai"`
}

type GeminiConfig struct {
	APIKey     string `mapstructure:"api-key"`
	APIKeyFile string `mapstructure:"api-key-file"`
	Model      string `mapstructure:"model"`
	MaxRetries int    `mapstructure:"max-retries"`
}

type OpenAIConfig struct {
	BaseURL    string `mapstructure:"base-url"`
	APIKey     string `mapstructure:"api-key"`
	APIKeyFile string `mapstructure:"api-key-file"`
	Model      string `mapstructure:"model"`
	MaxRetries int    `mapstructure:"max-retries"`
}

type LogConfig struct {
	File       string `mapstructure:"file"`
	MaxSize    int    `mapstructure:"max-size"`
	MaxBackups int    `mapstructure:"max-backups"`
	MaxAge     int    `mapstructure:"max-age"`
}

// SetDefaults registers every key so env overrides work without a config file.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("server.addr", ":8080")
	v.SetDefault("server.env", "development")
	v.SetDefault("server.read-timeout", 15*time.Second)
	v.SetDefault("server.write-timeout", 60*time.Second)

	v.SetDefault("database.driver", "postgres")
	v.SetDefault("database.dsn", "")
	v.SetDefault("database.max-open-conns", 10)
	v.SetDefault("database.max-idle-conns", 5)
	v.SetDefault("database.conn-max-lifetime", 30*time.Minute)
	v.SetDefault("database.migrate", true)

	v.SetDefault("auth.jwt-secret", "")
	v.SetDefault("auth.jwt-secret-file", "")

	v.SetDefault("matching.min-score", 0.4)
	v.SetDefault("matching.candidate-limit", 50)
	v.SetDefault("matching.parallelism", 4)

	v.SetDefault("ai.enabled", false)
	v.SetDefault("ai.provider", "gemini")
	v.SetDefault("ai.timeout", 20*time.Second)
	v.SetDefault("ai.rationale-max-tokens", 1024)
	v.SetDefault("ai.structures-max-tokens", 2048)
	v.SetDefault("ai.max-log-length", 200)
	v.SetDefault("ai.gemini.api-key", "")
	v.SetDefault("ai.gemini.api-key-file", "")
	v.SetDefault("ai.gemini.model", "gemini-2.5-flash")
	v.SetDefault("ai.gemini.max-retries", 3)
	v.SetDefault("ai.openai.base-url", "https://api.openai.com/v1")
	v.SetDefault("ai.openai.api-key", "")
	v.SetDefault("ai.openai.api-key-file", "")
	v.SetDefault("ai.openai.model", "gpt-4o-mini")
	v.SetDefault("ai.openai.max-retries", 3)

	v.SetDefault("log.file", "")
	v.SetDefault("log.max-size", 100)
	v.SetDefault("log.max-backups", 3)
	v.SetDefault("log.max-age", 28)
}

// BindEnv makes HAVEWANT_DATABASE_DSN override database.dsn and so on.
func BindEnv(v *viper.Viper) {
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()
}

func Load(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decoding config: %w", err)
	}
	return &cfg, nil
}

// Validate reports every problem at once. Secrets are checked where they are
// loaded since they may come from files.
func (c *Config) Validate() error {
	var errs []error

	switch strings.ToLower(strings.TrimSpace(c.Database.Driver)) {
	case "postgres", "sqlite":
	default:
		errs = append(errs, fmt.Errorf("database.driver: unsupported value %q", c.Database.Driver))
	}
	if strings.TrimSpace(c.Database.DSN) == "" {
		errs = append(errs, errors.New("database.dsn is required"))
	}

	if c.Matching.MinScore < 0 || c.Matching.MinScore > 1 {
		errs = append(errs, fmt.Errorf("matching.min-score must be within [0, 1], got %v", c.Matching.MinScore))
	}
	if c.Matching.CandidateLimit < 0 || c.Matching.CandidateLimit > MaxCandidateLimit {
		errs = append(errs, fmt.Errorf("matching.candidate-limit must be within [0, %d], got %d", MaxCandidateLimit, c.Matching.CandidateLimit))
	}
	if c.Matching.Parallelism < 0 {
		errs = append(errs, errors.New("matching.parallelism must not be negative"))
	}

	if c.AI.Enabled {
		switch c.AIProvider() {
		case "gemini", "openai":
		default:
			errs = append(errs, fmt.Errorf("ai.provider: unsupported value %q", c.AI.Provider))
		}
	}
	if c.AI.Timeout < 0 {
		errs = append(errs, errors.New("ai.timeout must not be negative"))
	}

	return errors.Join(errs...)
}

func (c *Config) AIProvider() string {
	return strings.ToLower(strings.TrimSpace(c.AI.Provider))
}
