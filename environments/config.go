package environments

import (
	"os"
	"strconv"
	"time"
)

type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Redis    RedisConfig
	Twilio   TwilioConfig
	LLM      LLMConfig
	Dialer   DialerConfig
	Alert    AlertConfig
	Auth     AuthConfig
	Backend  BackendConfig
}

type ServerConfig struct {
	Port string
	// Public base URL Twilio uses to reach the voice webhooks.
	PublicBaseURL string
}

type DatabaseConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	DBName   string
}

type RedisConfig struct {
	Host     string
	Port     string
	Password string
	DB       int
}

type TwilioConfig struct {
	AccountSID string
	AuthToken  string
	FromNumber string
	Voice      string
	Language   string
	Timeout    time.Duration
}

type LLMConfig struct {
	APIKey  string
	Model   string
	Timeout time.Duration
}

type DialerConfig struct {
	BatchSize    int
	DialInterval time.Duration
	MaxAttempts  int
	RetryBackoff time.Duration
}

type AlertConfig struct {
	WebhookURL     string
	IterationCount int
}

type AuthConfig struct {
	JWTSecret   string
	TokenTTL    time.Duration
	AdminAPIKey string
}

// BackendConfig keeps the mock-vs-real selection flags. Both default to the
// real backends; the flags only exist so the diagnostic endpoints can report
// what the process was built against.
type BackendConfig struct {
	ForceRealDB   bool
	MockTelephony bool
}

func Load() *Config {
	return &Config{
		Server: ServerConfig{
			Port:          GetEnv("SERVER_PORT", "8080"),
			PublicBaseURL: GetEnv("PUBLIC_BASE_URL", "http://localhost:8080"),
		},
		Database: DatabaseConfig{
			Host:     GetEnv("DB_HOST", "localhost"),
			Port:     GetEnv("DB_PORT", "3306"),
			User:     GetEnv("DB_USER", "voicepoll"),
			Password: GetEnv("DB_PASSWORD", "voicepoll123"),
			DBName:   GetEnv("DB_NAME", "voicepoll_surveys"),
		},
		Redis: RedisConfig{
			Host:     GetEnv("REDIS_HOST", "localhost"),
			Port:     GetEnv("REDIS_PORT", "6379"),
			Password: GetEnv("REDIS_PASSWORD", ""),
			DB:       GetEnvAsInt("REDIS_DB", 0),
		},
		Twilio: TwilioConfig{
			AccountSID: GetEnv("TWILIO_ACCOUNT_SID", ""),
			AuthToken:  GetEnv("TWILIO_AUTH_TOKEN", ""),
			FromNumber: GetEnv("TWILIO_FROM_NUMBER", ""),
			Voice:      GetEnv("TWILIO_VOICE", "Polly.Joanna"),
			Language:   GetEnv("TWILIO_LANGUAGE", "en-US"),
			Timeout:    time.Duration(GetEnvAsInt("TWILIO_TIMEOUT_SECONDS", 30)) * time.Second,
		},
		LLM: LLMConfig{
			APIKey:  GetEnv("GEMINI_API_KEY", ""),
			Model:   GetEnv("GEMINI_MODEL", "gemini-2.0-flash"),
			Timeout: time.Duration(GetEnvAsInt("GEMINI_TIMEOUT_SECONDS", 20)) * time.Second,
		},
		Dialer: DialerConfig{
			BatchSize:    GetEnvAsInt("DIALER_BATCH_SIZE", 5),
			DialInterval: time.Duration(GetEnvAsInt("DIALER_INTERVAL_MINUTES", 2)) * time.Minute,
			MaxAttempts:  GetEnvAsInt("DIALER_MAX_ATTEMPTS", 3),
			RetryBackoff: GetEnvAsDuration("DIALER_RETRY_BACKOFF", 30*time.Minute),
		},
		Alert: AlertConfig{
			WebhookURL:     GetEnv("ALERT_WEBHOOK_URL", ""),
			IterationCount: GetEnvAsInt("ALERT_ITERATION_COUNT", 0),
		},
		Auth: AuthConfig{
			JWTSecret:   GetEnv("JWT_SECRET", ""),
			TokenTTL:    GetEnvAsDuration("AUTH_TOKEN_TTL", 24*time.Hour),
			AdminAPIKey: GetEnv("ADMIN_API_KEY", ""),
		},
		Backend: BackendConfig{
			ForceRealDB:   GetEnvAsBool("FORCE_REAL_DB", true),
			MockTelephony: GetEnvAsBool("MOCK_TELEPHONY", false),
		},
	}
}

func GetEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

func GetEnvAsInt(key string, defaultValue int) int {
	if value, exists := os.LookupEnv(key); exists {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func GetEnvAsBool(key string, defaultValue bool) bool {
	if value, exists := os.LookupEnv(key); exists {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}

func GetEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value, exists := os.LookupEnv(key); exists {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}
