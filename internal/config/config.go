package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config holds application configuration.
type Config struct {
	// Server
	ServerAddr string
	ServerPort int

	// Database
	DBHost     string
	DBPort     int
	DBUser     string
	DBPassword string
	DBName     string
	DBSSLMode  string

	// Auth
	JWTSecret string
	JWTIssuer string

	// Guest admission
	MaxGuestsAllowedInProject int
	GuestModeEnabled          bool
	LobbyStateTTL             time.Duration
	GuestContextTTL           time.Duration
	LobbyStateCacheSize       int
	GuestContextCacheSize     int

	// Collaborator services
	ProjectDirectoryURL    string
	ParticipantRegistryURL string
	UserDirectoryURL       string

	// SMTP (host notifications)
	SMTPHost     string
	SMTPPort     int
	SMTPUser     string
	SMTPPassword string
	SMTPFrom     string
	SMTPFromName string

	// HTTP
	RateLimitEnabled        bool
	GuestRequestsPerMinute  int
	VerifyRequestsPerMinute int
	MetricsEnabled          bool
	MaxRequestBodySize      int64
}

// Load loads configuration from environment variables.
func Load() (*Config, error) {
	cfg := &Config{
		// Server defaults
		ServerAddr: getEnv("SERVER_ADDR", "0.0.0.0"),
		ServerPort: getEnvInt("SERVER_PORT", 8080),

		// Database defaults
		DBHost:     getEnv("DB_HOST", "localhost"),
		DBPort:     getEnvInt("DB_PORT", 5432),
		DBUser:     getEnv("DB_USER", "postgres"),
		DBPassword: getEnv("DB_PASSWORD", "postgres"),
		DBName:     getEnv("DB_NAME", "guest_lobby"),
		DBSSLMode:  getEnv("DB_SSLMODE", "disable"),

		// Auth
		JWTSecret: getEnv("JWT_SECRET", ""),
		JWTIssuer: getEnv("JWT_ISSUER", "guest-lobby"),

		// Guest admission
		MaxGuestsAllowedInProject: getEnvInt("MAX_GUESTS_ALLOWED_IN_PROJECT", 10),
		GuestModeEnabled:          getEnvBool("GUEST_MODE_ENABLED", true),
		LobbyStateTTL:             getEnvDuration("LOBBY_STATE_TTL", 30*time.Second),
		GuestContextTTL:           getEnvDuration("GUEST_CONTEXT_TTL", 30*time.Minute),
		LobbyStateCacheSize:       getEnvInt("LOBBY_STATE_CACHE_SIZE", 4096),
		GuestContextCacheSize:     getEnvInt("GUEST_CONTEXT_CACHE_SIZE", 16384),

		// Collaborator services
		ProjectDirectoryURL:    getEnv("PROJECT_DIRECTORY_URL", ""),
		ParticipantRegistryURL: getEnv("PARTICIPANT_REGISTRY_URL", ""),
		UserDirectoryURL:       getEnv("USER_DIRECTORY_URL", ""),

		// SMTP (optional)
		SMTPHost:     getEnv("SMTP_HOST", ""),
		SMTPPort:     getEnvInt("SMTP_PORT", 587),
		SMTPUser:     getEnv("SMTP_USER", ""),
		SMTPPassword: getEnv("SMTP_PASSWORD", ""),
		SMTPFrom:     getEnv("SMTP_FROM", ""),
		SMTPFromName: getEnv("SMTP_FROM_NAME", ""),

		// HTTP
		RateLimitEnabled:        getEnvBool("RATE_LIMIT_ENABLED", true),
		GuestRequestsPerMinute:  getEnvInt("GUEST_REQUESTS_PER_MINUTE", 30),
		VerifyRequestsPerMinute: getEnvInt("VERIFY_REQUESTS_PER_MINUTE", 10),
		MetricsEnabled:          getEnvBool("METRICS_ENABLED", true),
		MaxRequestBodySize:      int64(getEnvInt("MAX_REQUEST_BODY_SIZE", 1<<20)),
	}

	// Validate required fields
	if cfg.JWTSecret == "" {
		return nil, fmt.Errorf("JWT_SECRET is required")
	}
	if cfg.MaxGuestsAllowedInProject < 1 {
		return nil, fmt.Errorf("MAX_GUESTS_ALLOWED_IN_PROJECT must be at least 1")
	}

	return cfg, nil
}

// HasSMTP returns true if host notification email is configured.
func (c *Config) HasSMTP() bool {
	return c.SMTPHost != "" && c.SMTPFrom != ""
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
