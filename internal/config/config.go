package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const EnvDevelopment = "development"

// Config is the process configuration. Every field maps to an upper-case
// environment variable of the same name as its key.
type Config struct {
	Port int
	Env  string

	StoreBackend      string
	MongoURI          string
	SQLitePath        string
	DBConnectAttempts int
	DBRetryInterval   time.Duration
	SeedSamples       bool

	OllamaURL      string
	LLMModel       string
	LLMTimeout     time.Duration
	LLMPullModel   bool
	// bounds a model download at startup
	LLMPullTimeout time.Duration

	RedisAddr          string
	RedisPassword      string
	RedisDB            int
	CacheTTL           time.Duration
	CachePurgeInterval time.Duration

	LogLevel string
}

var defaults = map[string]interface{}{
	"PORT":                 3000,
	"APP_ENV":              "production",
	"STORE_BACKEND":        "mongo",
	"MONGODB_URI":          "mongodb://localhost:27017/recordsdb",
	"SQLITE_PATH":          "recordchat.db",
	"DB_CONNECT_ATTEMPTS":  5,
	"DB_RETRY_INTERVAL":    "5s",
	"SEED_SAMPLES":         true,
	"OLLAMA_URL":           "http://localhost:11434",
	"LLM_MODEL":            "mistral",
	"LLM_TIMEOUT":          "60s",
	"LLM_PULL_MODEL":       false,
	"LLM_PULL_TIMEOUT":     "30m",
	"REDIS_ADDR":           "",
	"REDIS_PASSWORD":       "",
	"REDIS_DB":             0,
	"CACHE_TTL":            "24h",
	"CACHE_PURGE_INTERVAL": "1m",
	"LOG_LEVEL":            "info",
}

// Load reads .env from the working directory when present, then the optional
// config file at path, then the environment. Environment values win over the
// file, and the file wins over defaults.
func Load(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}
	v := viper.New()
	for k, val := range defaults {
		v.SetDefault(k, val)
	}
	v.AutomaticEnv()
	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	}
	cfg := &Config{
		Port:               v.GetInt("PORT"),
		Env:                v.GetString("APP_ENV"),
		StoreBackend:       v.GetString("STORE_BACKEND"),
		MongoURI:           v.GetString("MONGODB_URI"),
		SQLitePath:         v.GetString("SQLITE_PATH"),
		DBConnectAttempts:  v.GetInt("DB_CONNECT_ATTEMPTS"),
		DBRetryInterval:    v.GetDuration("DB_RETRY_INTERVAL"),
		SeedSamples:        v.GetBool("SEED_SAMPLES"),
		OllamaURL:          v.GetString("OLLAMA_URL"),
		LLMModel:           v.GetString("LLM_MODEL"),
		LLMTimeout:         v.GetDuration("LLM_TIMEOUT"),
		LLMPullModel:       v.GetBool("LLM_PULL_MODEL"),
		LLMPullTimeout:     v.GetDuration("LLM_PULL_TIMEOUT"),
		RedisAddr:          v.GetString("REDIS_ADDR"),
		RedisPassword:      v.GetString("REDIS_PASSWORD"),
		RedisDB:            v.GetInt("REDIS_DB"),
		CacheTTL:           v.GetDuration("CACHE_TTL"),
		CachePurgeInterval: v.GetDuration("CACHE_PURGE_INTERVAL"),
		LogLevel:           v.GetString("LOG_LEVEL"),
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	switch c.StoreBackend {
	case "mongo", "sqlite", "memory":
	default:
		return fmt.Errorf("STORE_BACKEND must be mongo, sqlite or memory, got %q", c.StoreBackend)
	}
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("PORT out of range: %d", c.Port)
	}
	if c.DBConnectAttempts <= 0 {
		return fmt.Errorf("DB_CONNECT_ATTEMPTS must be positive, got %d", c.DBConnectAttempts)
	}
	if c.LLMPullModel && c.LLMPullTimeout <= 0 {
		return fmt.Errorf("LLM_PULL_TIMEOUT must be positive, got %s", c.LLMPullTimeout)
	}
	if c.OllamaURL == "" {
		return errors.New("OLLAMA_URL is required")
	}
	return nil
}

// IsDevelopment reports whether error details may be exposed to clients.
func (c *Config) IsDevelopment() bool { return c.Env == EnvDevelopment }

// Addr is the listen address for the HTTP server.
func (c *Config) Addr() string { return fmt.Sprintf(":%d", c.Port) }
