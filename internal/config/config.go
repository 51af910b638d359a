package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Server    ServerConfig
	Database  DatabaseConfig
	Redis     RedisConfig
	AI        AIConfig
	Suggest   SuggestConfig
	RateLimit RateLimitConfig
}

type ServerConfig struct {
	Host        string
	Port        int
	Secure      bool   // Send HSTS
	Environment string // "development", "production", "test"
	LogLevel    string
}

type DatabaseConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	DBName   string
	SSLMode  string

	MigrationsPath string // empty uses the migrations compiled into the binary
}

type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

// Provider names accepted in AI_PROVIDER.
const (
	ProviderGemini = "gemini"
	ProviderOpenAI = "openai"
	ProviderHTTP   = "http"
	ProviderStub   = "stub"
	ProviderNone   = "none"
)

type AIConfig struct {
	Provider string
	Stub     bool

	Temperature float64

	GeminiAPIKey string
	GeminiModel  string

	OpenAIAPIKey  string
	OpenAIModel   string
	OpenAIBaseURL string

	// Remote suggestion service used by the "http" provider.
	RemoteBaseURL string
	RemoteToken   string

	RequestTimeout time.Duration
}

type SuggestConfig struct {
	RemoteTimeout  time.Duration // zero leaves the bound to AI.RequestTimeout
	HistoryWindow  int
	RecordOutcomes bool
	LogRetention   time.Duration // zero keeps suggestion_logs forever
}

type RateLimitConfig struct {
	Limit  int64
	Window time.Duration
}

func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		d.User, d.Password, d.Host, d.Port, d.DBName, d.SSLMode,
	)
}

func (r RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", r.Host, r.Port)
}

// EffectiveProvider resolves AI_STUB and the provider name into the provider
// that will actually be built.
func (a AIConfig) EffectiveProvider() string {
	if a.Stub {
		return ProviderStub
	}
	return strings.ToLower(strings.TrimSpace(a.Provider))
}

// Load reads configuration from the environment. A .env file in the working
// directory is applied first when present; real environment variables win.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		Server: ServerConfig{
			Host:        getEnv("SERVER_HOST", "0.0.0.0"),
			Port:        getEnvInt("SERVER_PORT", 8080),
			Secure:      getEnvBool("SERVER_SECURE", false),
			Environment: getEnv("APP_ENV", "development"),
			LogLevel:    getEnv("LOG_LEVEL", "info"),
		},
		Database: DatabaseConfig{
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnvInt("DB_PORT", 5432),
			User:     getEnv("DB_USER", "medoshield"),
			Password: getEnv("DB_PASSWORD", "medoshield"),
			DBName:   getEnv("DB_NAME", "medoshield"),
			SSLMode:  getEnv("DB_SSLMODE", "disable"),

			MigrationsPath: getEnv("DB_MIGRATIONS_PATH", ""),
		},
		Redis: RedisConfig{
			Host:     getEnv("REDIS_HOST", "localhost"),
			Port:     getEnvInt("REDIS_PORT", 6379),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvInt("REDIS_DB", 0),
		},
		AI: AIConfig{
			Provider:       getEnv("AI_PROVIDER", ProviderGemini),
			Stub:           getEnvBool("AI_STUB", false),
			Temperature:    getEnvFloat("AI_TEMPERATURE", 0.7),
			GeminiAPIKey:   getEnv("GEMINI_API_KEY", ""),
			GeminiModel:    getEnv("GEMINI_MODEL", "gemini-2.5-flash-lite"),
			OpenAIAPIKey:   getEnv("OPENAI_API_KEY", ""),
			OpenAIModel:    getEnv("OPENAI_MODEL_CHAT", "gpt-4o-mini"),
			OpenAIBaseURL:  getEnv("OPENAI_BASE_URL", ""),
			RemoteBaseURL:  getEnv("SUGGESTION_API_URL", "http://localhost:8000/api"),
			RemoteToken:    getEnv("SUGGESTION_API_TOKEN", ""),
			RequestTimeout: getEnvDuration("AI_REQUEST_TIMEOUT", 30*time.Second),
		},
		Suggest: SuggestConfig{
			RemoteTimeout:  getEnvDuration("SUGGEST_REMOTE_TIMEOUT", 0),
			HistoryWindow:  getEnvInt("SUGGEST_HISTORY_WINDOW", 10),
			RecordOutcomes: getEnvBool("SUGGEST_RECORD_OUTCOMES", true),
			LogRetention:   getEnvDuration("SUGGEST_LOG_RETENTION", 30*24*time.Hour),
		},
		RateLimit: RateLimitConfig{
			Limit:  int64(getEnvInt("SUGGEST_RATE_LIMIT", 60)),
			Window: getEnvDuration("SUGGEST_RATE_WINDOW", time.Minute),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects settings the server cannot start with.
func (c *Config) Validate() error {
	switch c.AI.EffectiveProvider() {
	case ProviderGemini, ProviderOpenAI, ProviderHTTP, ProviderStub, ProviderNone:
	default:
		return fmt.Errorf("invalid AI_PROVIDER %q", c.AI.Provider)
	}
	if c.AI.EffectiveProvider() == ProviderHTTP && strings.TrimSpace(c.AI.RemoteBaseURL) == "" {
		return fmt.Errorf("SUGGESTION_API_URL is required when AI_PROVIDER=http")
	}
	if c.AI.RequestTimeout <= 0 {
		return fmt.Errorf("AI_REQUEST_TIMEOUT must be positive, got %s", c.AI.RequestTimeout)
	}
	if c.Suggest.RemoteTimeout < 0 {
		return fmt.Errorf("SUGGEST_REMOTE_TIMEOUT must not be negative, got %s", c.Suggest.RemoteTimeout)
	}
	if c.Suggest.HistoryWindow < 1 {
		return fmt.Errorf("SUGGEST_HISTORY_WINDOW must be positive, got %d", c.Suggest.HistoryWindow)
	}
	if c.RateLimit.Limit < 1 {
		return fmt.Errorf("SUGGEST_RATE_LIMIT must be positive, got %d", c.RateLimit.Limit)
	}
	if c.RateLimit.Window <= 0 {
		return fmt.Errorf("SUGGEST_RATE_WINDOW must be positive, got %s", c.RateLimit.Window)
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value, exists := os.LookupEnv(key); exists {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value, exists := os.LookupEnv(key); exists {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if value, exists := os.LookupEnv(key); exists {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value, exists := os.LookupEnv(key); exists {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
