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
	Database Database
	Server   Server
	Identity Identity
	Security Security
	Email    Email
}

type Database struct {
	Host              string
	Port              int
	User              string
	Password          string
	Name              string
	SSLMode           string
	MaxConns          int32
	MinConns          int32
	MaxConnLifetime   time.Duration
	MaxConnIdleTime   time.Duration
	HealthCheckPeriod time.Duration
}

type Server struct {
	Port           string
	Env            string
	LogLevel       string
	AllowedOrigins []string
	TrustedProxies []string
}

// Identity configures the hosted identity provider this service delegates
// credential verification to.
type Identity struct {
	BaseURL string
	APIKey  string
	Timeout time.Duration
}

type Security struct {
	JWTSecret string

	// In-memory rate limiter (soft throttle)
	RateLimitMaxAttempts int
	RateLimitWindow      time.Duration

	// Persistent progressive lockout
	LockoutMaxAttempts int
	LockoutSchedule    []time.Duration

	// Two-factor verification throttle
	TwoFactorMaxAttempts   int
	TwoFactorAttemptWindow time.Duration

	// Session lifetime
	SessionTokenExpiry   time.Duration
	SessionMaxAge        time.Duration // hard wall-clock ceiling from auth time
	ChallengeTokenExpiry time.Duration

	// Device sessions
	DeviceSessionTTL time.Duration

	CleanupInterval time.Duration

	TimingDelayBaseMs   int
	TimingDelayRandomMs int
}

type Email struct {
	Enabled     bool
	AWSRegion   string
	FromAddress string
}

// defaultLockoutSchedule is the progressive lockout ladder in minutes.
var defaultLockoutSchedule = []time.Duration{
	15 * time.Minute,
	30 * time.Minute,
	60 * time.Minute,
	120 * time.Minute,
	240 * time.Minute,
	480 * time.Minute,
	1440 * time.Minute,
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	jwtSecret := getEnv("JWT_SECRET", "")
	if jwtSecret == "" {
		return nil, fmt.Errorf("JWT_SECRET is required")
	}

	env := getEnv("ENV", "development")

	cfg := &Config{
		Database: Database{
			Host:              getEnv("DB_HOST", "localhost"),
			Port:              getEnvAsInt("DB_PORT", 5432),
			User:              getEnv("DB_USER", "postgres"),
			Password:          getEnv("DB_PASSWORD", ""),
			Name:              getEnv("DB_NAME", "drumline_auth"),
			SSLMode:           getEnv("DB_SSLMODE", "disable"),
			MaxConns:          int32(getEnvAsInt("DB_MAX_CONNS", 25)),
			MinConns:          int32(getEnvAsInt("DB_MIN_CONNS", 5)),
			MaxConnLifetime:   getEnvAsDuration("DB_MAX_CONN_LIFETIME", 5*time.Minute),
			MaxConnIdleTime:   getEnvAsDuration("DB_MAX_CONN_IDLE_TIME", 1*time.Minute),
			HealthCheckPeriod: getEnvAsDuration("DB_HEALTH_CHECK_PERIOD", 1*time.Minute),
		},
		Server: Server{
			Port:           getEnv("PORT", "8080"),
			Env:            env,
			LogLevel:       getEnv("LOG_LEVEL", "info"),
			AllowedOrigins: parseAllowedOrigins(env),
			TrustedProxies: getEnvAsSlice("TRUSTED_PROXIES"),
		},
		Identity: Identity{
			BaseURL: getEnv("IDENTITY_BASE_URL", ""),
			APIKey:  getEnv("IDENTITY_API_KEY", ""),
			Timeout: getEnvAsDuration("IDENTITY_TIMEOUT", 10*time.Second),
		},
		Security: Security{
			JWTSecret:              jwtSecret,
			RateLimitMaxAttempts:   getEnvAsInt("RATE_LIMIT_MAX_ATTEMPTS", 5),
			RateLimitWindow:        getEnvAsDuration("RATE_LIMIT_WINDOW", 15*time.Minute),
			LockoutMaxAttempts:     getEnvAsInt("LOCKOUT_MAX_ATTEMPTS", 5),
			LockoutSchedule:        defaultLockoutSchedule,
			TwoFactorMaxAttempts:   getEnvAsInt("TWO_FACTOR_MAX_ATTEMPTS", 10),
			TwoFactorAttemptWindow: getEnvAsDuration("TWO_FACTOR_ATTEMPT_WINDOW", 15*time.Minute),
			SessionTokenExpiry:     getEnvAsDuration("SESSION_TOKEN_EXPIRY", 1*time.Hour),
			SessionMaxAge:          getEnvAsDuration("SESSION_MAX_AGE", 24*time.Hour),
			ChallengeTokenExpiry:   getEnvAsDuration("CHALLENGE_TOKEN_EXPIRY", 5*time.Minute),
			DeviceSessionTTL:       getEnvAsDuration("DEVICE_SESSION_TTL", 90*24*time.Hour),
			CleanupInterval:        getEnvAsDuration("CLEANUP_INTERVAL", 1*time.Hour),
			TimingDelayBaseMs:      getEnvAsInt("TIMING_DELAY_BASE_MS", 100),
			TimingDelayRandomMs:    getEnvAsInt("TIMING_DELAY_RANDOM_MS", 100),
		},
		Email: Email{
			Enabled:     getEnv("EMAIL_ALERTS_ENABLED", "false") == "true",
			AWSRegion:   getEnv("AWS_REGION", "us-east-1"),
			FromAddress: getEnv("EMAIL_FROM_ADDRESS", ""),
		},
	}

	if cfg.Database.Password == "" {
		return nil, fmt.Errorf("DB_PASSWORD is required")
	}

	if cfg.Identity.BaseURL == "" {
		return nil, fmt.Errorf("IDENTITY_BASE_URL is required")
	}

	if err := validateJWTSecret(jwtSecret, env); err != nil {
		return nil, err
	}

	if cfg.Email.Enabled && cfg.Email.FromAddress == "" {
		return nil, fmt.Errorf("EMAIL_FROM_ADDRESS is required when email alerts are enabled")
	}

	return cfg, nil
}

// validateJWTSecret enforces minimum security standards for the JWT secret
func validateJWTSecret(secret, env string) error {
	minLength := 16
	if env == "production" {
		minLength = 32
	}

	if len(secret) < minLength {
		return fmt.Errorf("JWT_SECRET must be at least %d characters in %s environment (got %d)",
			minLength, env, len(secret))
	}

	weakSecrets := []string{
		"secret", "test", "password", "12345", "changeme",
		"admin", "root", "default", "example",
	}

	secretLower := strings.ToLower(secret)
	for _, weak := range weakSecrets {
		if secretLower == weak {
			return fmt.Errorf("JWT_SECRET cannot be a common weak value")
		}
	}

	return nil
}

func (c *Database) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Name, c.SSLMode,
	)
}

func getEnv(key, defaultVal string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultVal
}

func getEnvAsInt(key string, defaultVal int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultVal
}

func getEnvAsDuration(key string, defaultVal time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultVal
}

func getEnvAsSlice(key string) []string {
	value := os.Getenv(key)
	if value == "" {
		return nil
	}
	parts := strings.Split(value, ",")
	for i, p := range parts {
		parts[i] = strings.TrimSpace(p)
	}
	return parts
}

func parseAllowedOrigins(env string) []string {
	if env == "production" {
		originsStr := getEnv("ALLOWED_ORIGINS", "")
		if originsStr == "" {
			return []string{}
		}
		origins := strings.Split(originsStr, ",")
		for i, origin := range origins {
			origins[i] = strings.TrimSpace(origin)
		}
		return origins
	}

	// Development: allow localhost variants
	return []string{
		"http://localhost:3000",
		"http://localhost:8080",
		"http://localhost:5173",
		"http://127.0.0.1:3000",
		"http://127.0.0.1:8080",
		"http://127.0.0.1:5173",
	}
}
