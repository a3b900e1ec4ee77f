package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/rawbytes"
	"github.com/knadh/koanf/v2"
	"github.com/yukikurage/taskgenie-api/internal/constants"
)

type Config struct {
	Port            string
	GinMode         string
	ShutdownTimeout time.Duration

	DBDriver    string
	DBHost      string
	DBPort      string
	DBUser      string
	DBPassword  string
	DBName      string
	DatabaseURL string

	SessionStore  string
	RedisHost     string
	RedisPort     string
	SessionSecret string
	JWTSecret     string
	JWTTTL        time.Duration

	NLPProvider   string
	NLPServiceURL string
	NLPTimeout    time.Duration
	OpenAIAPIKey  string
	OpenAIModel   string

	LogLevel  string
	LogFormat string
}

// Load reads the optional YAML file named by CONFIG_FILE, then lets
// environment variables override it. Keys are the lowercased env names,
// so PORT and `port:` in YAML address the same setting.
func Load() (*Config, error) {
	k := koanf.New(".")

	if path := os.Getenv("CONFIG_FILE"); path != "" {
		content, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := k.Load(rawbytes.Provider(content), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
		}
	}

	if err := k.Load(env.Provider("", ".", strings.ToLower), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	return fromKoanf(k)
}

func fromKoanf(k *koanf.Koanf) (*Config, error) {
	shutdownTimeout, err := getDuration(k, "shutdown_timeout", 15*time.Second)
	if err != nil {
		return nil, err
	}
	jwtTTL, err := getDuration(k, "jwt_ttl", 24*time.Hour)
	if err != nil {
		return nil, err
	}
	nlpTimeout, err := getDuration(k, "nlp_timeout", constants.DefaultNLPTimeout)
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		Port:            getString(k, "port", "5000"),
		GinMode:         getString(k, "gin_mode", "debug"),
		ShutdownTimeout: shutdownTimeout,

		DBDriver:    getString(k, "db_driver", "mysql"),
		DBHost:      getString(k, "db_host", "localhost"),
		DBPort:      getString(k, "db_port", "3306"),
		DBUser:      getString(k, "db_user", "taskuser"),
		DBPassword:  getString(k, "db_password", "taskpassword"),
		DBName:      getString(k, "db_name", "taskgenie"),
		DatabaseURL: getString(k, "database_url", ""),

		SessionStore:  getString(k, "session_store", "redis"),
		RedisHost:     getString(k, "redis_host", "localhost"),
		RedisPort:     getString(k, "redis_port", "6379"),
		SessionSecret: getString(k, "session_secret", "default-secret-key-change-me"),
		JWTSecret:     getString(k, "jwt_secret", "default-jwt-secret-change-me"),
		JWTTTL:        jwtTTL,

		NLPProvider:   getString(k, "nlp_provider", "http"),
		NLPServiceURL: strings.TrimRight(getString(k, "nlp_service_url", "http://localhost:5001"), "/"),
		NLPTimeout:    nlpTimeout,
		OpenAIAPIKey:  getString(k, "openai_api_key", ""),
		OpenAIModel:   getString(k, "openai_model", "gpt-4o"),

		LogLevel:  getString(k, "log_level", "info"),
		LogFormat: getString(k, "log_format", "json"),
	}

	switch cfg.DBDriver {
	case "mysql", "postgres", "sqlite":
	default:
		return nil, fmt.Errorf("unsupported DB_DRIVER %q", cfg.DBDriver)
	}
	switch cfg.NLPProvider {
	case "http", "openai", "none":
	default:
		return nil, fmt.Errorf("unsupported NLP_PROVIDER %q", cfg.NLPProvider)
	}

	return cfg, nil
}

// IsProduction reports whether the server runs in gin release mode.
func (c *Config) IsProduction() bool {
	return c.GinMode == "release"
}

func getString(k *koanf.Koanf, key, defaultValue string) string {
	value := k.String(key)
	if value == "" {
		return defaultValue
	}
	return value
}

func getDuration(k *koanf.Koanf, key string, defaultValue time.Duration) (time.Duration, error) {
	raw := k.String(key)
	if raw == "" {
		return defaultValue, nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", strings.ToUpper(key), raw, err)
	}
	return d, nil
}
