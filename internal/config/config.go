package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"interview/internal/llm"
)

const (
	EnvPrefix  = "INTERVIEW"
	configName = "interview"
)

type Config struct {
	Debug    bool           `mapstructure:"debug"`
	JSON     bool           `mapstructure:"json"`
	Server   ServerConfig   `mapstructure:"server"`
	Auth     AuthConfig     `mapstructure:"auth"`
	Redis    RedisConfig    `mapstructure:"redis"`
	Database DatabaseConfig `mapstructure:"database"`
	AI       AIConfig       `mapstructure:"ai"`
	Session  SessionConfig  `mapstructure:"session"`
	Jobs     JobsConfig     `mapstructure:"jobs"`
}

type ServerConfig struct {
	Addr            string        `mapstructure:"addr"`
	WSPath          string        `mapstructure:"ws-path"`
	AllowedOrigins  []string      `mapstructure:"allowed-origins"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown-timeout"`
}

type AuthConfig struct {
	JWTSecret  string `mapstructure:"jwt-secret"`
	CookieName string `mapstructure:"cookie-name"`
}

type RedisConfig struct {
	Addr       string        `mapstructure:"addr"`
	Password   string        `mapstructure:"password"`
	DB         int           `mapstructure:"db"`
	SessionTTL time.Duration `mapstructure:"session-ttl"`
}

type DatabaseConfig struct {
	Host     string `mapstructure:"host"`
	Port     string `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	Name     string `mapstructure:"name"`
	SSLMode  string `mapstructure:"sslmode"`
}

// DSN renders the postgres connection string.
func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%s sslmode=%s",
		d.Host, d.User, d.Password, d.Name, d.Port, d.SSLMode)
}

type AIConfig struct {
	Provider string         `mapstructure:"provider"`
	Timeout  time.Duration  `mapstructure:"timeout"`
	Gemini   ProviderConfig `mapstructure:"gemini"`
	OpenAI   ProviderConfig `mapstructure:"openai"`
}

type ProviderConfig struct {
	APIKey  string `mapstructure:"api-key"`
	Model   string `mapstructure:"model"`
	BaseURL string `mapstructure:"base-url"`
}

// Settings returns the credentials of the selected provider.
func (a AIConfig) Settings() llm.Settings {
	p := a.Gemini
	if a.Provider == "openai" {
		p = a.OpenAI
	}
	return llm.Settings{APIKey: p.APIKey, Model: p.Model, BaseURL: p.BaseURL}
}

type SessionConfig struct {
	CompletionChannel string        `mapstructure:"completion-channel"`
	ClosedRetention   time.Duration `mapstructure:"closed-retention"`
}

type JobsConfig struct {
	HousekeepingSchedule string `mapstructure:"housekeeping-schedule"`
}

// SetDefaults registers every key so that environment overrides resolve
// even when no config file is present.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("debug", false)
	v.SetDefault("json", false)

	v.SetDefault("server.addr", ":8080")
	v.SetDefault("server.ws-path", "/ws/interview")
	v.SetDefault("server.allowed-origins", []string{"http://localhost:5173"})
	v.SetDefault("server.shutdown-timeout", 30*time.Second)

	v.SetDefault("auth.jwt-secret", "")
	v.SetDefault("auth.cookie-name", "token")

	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.session-ttl", 24*time.Hour)

	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", "5432")
	v.SetDefault("database.user", "postgres")
	v.SetDefault("database.password", "postgres")
	v.SetDefault("database.name", "postgres")
	v.SetDefault("database.sslmode", "disable")

	v.SetDefault("ai.provider", "gemini")
	v.SetDefault("ai.timeout", 30*time.Second)
	v.SetDefault("ai.gemini.api-key", "")
	v.SetDefault("ai.gemini.model", "")
	v.SetDefault("ai.gemini.base-url", "")
	v.SetDefault("ai.openai.api-key", "")
	v.SetDefault("ai.openai.model", "")
	v.SetDefault("ai.openai.base-url", "")

	v.SetDefault("session.completion-channel", "interview.completed")
	v.SetDefault("session.closed-retention", time.Hour)

	v.SetDefault("jobs.housekeeping-schedule", "@every 5m")
}

// New returns a viper instance with defaults and INTERVIEW_* env overrides,
// e.g. INTERVIEW_AI_GEMINI_API_KEY for ai.gemini.api-key.
func New() *viper.Viper {
	v := viper.New()
	SetDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()
	return v
}

// Load reads the optional config file and decodes the result. An explicit
// file must exist; the default interview.yaml in the working directory may not.
func Load(v *viper.Viper, file string) (*Config, error) {
	if file != "" {
		v.SetConfigFile(file)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("reading config %s: %w", file, err)
		}
	} else {
		v.AddConfigPath(".")
		v.SetConfigName(configName)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, fmt.Errorf("reading config: %w", err)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decoding config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) Validate() error {
	var errs []error
	if c.Auth.JWTSecret == "" {
		errs = append(errs, errors.New("auth.jwt-secret is required"))
	}
	switch c.AI.Provider {
	case "gemini", "openai":
		if c.AI.Settings().APIKey == "" {
			errs = append(errs, fmt.Errorf("ai.%s.api-key is required", c.AI.Provider))
		}
	default:
		errs = append(errs, fmt.Errorf("ai.provider %q is not supported", c.AI.Provider))
	}
	if c.AI.Timeout <= 0 {
		errs = append(errs, errors.New("ai.timeout must be positive"))
	}
	if c.Redis.SessionTTL <= 0 {
		errs = append(errs, errors.New("redis.session-ttl must be positive"))
	}
	if c.Server.Addr == "" {
		errs = append(errs, errors.New("server.addr is required"))
	}
	return errors.Join(errs...)
}
