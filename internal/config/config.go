package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	pkgauth "github.com/BradenHooton/portfolio-gate/pkg/auth"
)

// Store backends
const (
	StoreBackendPostgres = "postgres"
	StoreBackendRedis    = "redis"
	StoreBackendMemory   = "memory"
)

type Config struct {
	Database DatabaseConfig
	Redis    RedisConfig
	Server   ServerConfig
	Auth     AuthConfig
	Gate     GateConfig
	Alert    AlertConfig
}

type DatabaseConfig struct {
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

type RedisConfig struct {
	Addr      string
	Password  string
	DB        int
	KeyPrefix string
}

type ServerConfig struct {
	Port           string
	Env            string
	LogLevel       string
	AllowedOrigins []string
	TrustedProxies []string
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
	IdleTimeout    time.Duration
}

type AuthConfig struct {
	// PortfolioPassword is the reference secret. Empty means every attempt fails.
	PortfolioPassword    string
	SessionSigningSecret string
	SessionTokenTTL      time.Duration
	TimingDelayBaseMs    int
	TimingDelayRandomMs  int
}

type GateConfig struct {
	MaxAttempts       int
	AttemptWindow     time.Duration
	LockoutDuration   time.Duration
	RequestsPerMinute int
	StoreBackend      string
	// RecordTTL bounds how long the redis backend keeps an idle record
	RecordTTL time.Duration
}

type AlertConfig struct {
	ToAddress   string
	FromAddress string
	AWSRegion   string
}

// Enabled reports whether lockout alerts should be sent
func (a AlertConfig) Enabled() bool {
	return a.ToAddress != "" && a.FromAddress != ""
}

// fileValues holds keys read from the optional GATE_CONFIG_FILE
var fileValues map[string]string

func Load() (*Config, error) {
	_ = godotenv.Load()

	values, err := loadConfigFile(os.Getenv("GATE_CONFIG_FILE"))
	if err != nil {
		return nil, err
	}
	fileValues = values

	signingSecret := getEnv("SESSION_SIGNING_SECRET", "")
	if signingSecret == "" {
		return nil, fmt.Errorf("SESSION_SIGNING_SECRET is required")
	}

	env := getEnv("ENV", "development")

	cfg := &Config{
		Database: DatabaseConfig{
			Host:              getEnv("DB_HOST", "localhost"),
			Port:              getEnvAsInt("DB_PORT", 5432),
			User:              getEnv("DB_USER", "postgres"),
			Password:          getEnv("DB_PASSWORD", ""),
			Name:              getEnv("DB_NAME", "portfolio_gate"),
			SSLMode:           getEnv("DB_SSLMODE", "disable"),
			MaxConns:          int32(getEnvAsInt("DB_MAX_CONNS", 10)),
			MinConns:          int32(getEnvAsInt("DB_MIN_CONNS", 2)),
			MaxConnLifetime:   getEnvAsDuration("DB_MAX_CONN_LIFETIME", 5*time.Minute),
			MaxConnIdleTime:   getEnvAsDuration("DB_MAX_CONN_IDLE_TIME", 1*time.Minute),
			HealthCheckPeriod: getEnvAsDuration("DB_HEALTH_CHECK_PERIOD", 1*time.Minute),
		},
		Redis: RedisConfig{
			Addr:      getEnv("REDIS_ADDR", "localhost:6379"),
			Password:  getEnv("REDIS_PASSWORD", ""),
			DB:        getEnvAsInt("REDIS_DB", 0),
			KeyPrefix: getEnv("REDIS_KEY_PREFIX", "gate:attempts:"),
		},
		Server: ServerConfig{
			Port:           getEnv("PORT", "8080"),
			Env:            env,
			LogLevel:       getEnv("LOG_LEVEL", "info"),
			AllowedOrigins: parseList("ALLOWED_ORIGINS", "*"),
			TrustedProxies: parseList("TRUSTED_PROXIES", ""),
			ReadTimeout:    getEnvAsDuration("SERVER_READ_TIMEOUT", 15*time.Second),
			WriteTimeout:   getEnvAsDuration("SERVER_WRITE_TIMEOUT", 15*time.Second),
			IdleTimeout:    getEnvAsDuration("SERVER_IDLE_TIMEOUT", 60*time.Second),
		},
		Auth: AuthConfig{
			PortfolioPassword:    getEnv("PORTFOLIO_PASSWORD", ""),
			SessionSigningSecret: signingSecret,
			SessionTokenTTL:      getEnvAsDuration("SESSION_TOKEN_TTL", 24*time.Hour),
			TimingDelayBaseMs:    getEnvAsInt("TIMING_DELAY_BASE_MS", 200),
			TimingDelayRandomMs:  getEnvAsInt("TIMING_DELAY_RANDOM_MS", 100),
		},
		Gate: GateConfig{
			MaxAttempts:       getEnvAsInt("GATE_MAX_ATTEMPTS", 5),
			AttemptWindow:     getEnvAsDuration("GATE_ATTEMPT_WINDOW", 15*time.Minute),
			LockoutDuration:   getEnvAsDuration("GATE_LOCKOUT_DURATION", 15*time.Minute),
			RequestsPerMinute: getEnvAsInt("GATE_REQUESTS_PER_MINUTE", 30),
			StoreBackend:      strings.ToLower(getEnv("STORE_BACKEND", StoreBackendPostgres)),
			RecordTTL:         getEnvAsDuration("ATTEMPT_RECORD_TTL", 1*time.Hour),
		},
		Alert: AlertConfig{
			ToAddress:   getEnv("LOCKOUT_ALERT_EMAIL", ""),
			FromAddress: getEnv("LOCKOUT_ALERT_FROM", ""),
			AWSRegion:   getEnv("AWS_REGION", "us-east-1"),
		},
	}

	switch cfg.Gate.StoreBackend {
	case StoreBackendPostgres:
		if cfg.Database.Password == "" {
			return nil, fmt.Errorf("DB_PASSWORD is required for the postgres store")
		}
	case StoreBackendRedis:
		// an expiring key would forget failures before the window closes
		if cfg.Gate.RecordTTL < cfg.Gate.AttemptWindow {
			return nil, fmt.Errorf("ATTEMPT_RECORD_TTL (%s) must be at least GATE_ATTEMPT_WINDOW (%s)",
				cfg.Gate.RecordTTL, cfg.Gate.AttemptWindow)
		}
	case StoreBackendMemory:
	default:
		return nil, fmt.Errorf("STORE_BACKEND must be one of postgres, redis, memory (got %q)", cfg.Gate.StoreBackend)
	}

	if cfg.Gate.MaxAttempts < 1 {
		return nil, fmt.Errorf("GATE_MAX_ATTEMPTS must be at least 1")
	}

	if err := validateSigningSecret(signingSecret, env); err != nil {
		return nil, err
	}

	return cfg, nil
}

// validateSigningSecret enforces minimum strength for the session signing secret
func validateSigningSecret(secret, env string) error {
	minLength := 16
	if env == "production" {
		minLength = 32
	}

	if len(secret) < minLength {
		return fmt.Errorf("SESSION_SIGNING_SECRET must be at least %d characters in %s environment (got %d)",
			minLength, env, len(secret))
	}

	if pkgauth.IsWeakSecret(secret) {
		return fmt.Errorf("SESSION_SIGNING_SECRET cannot be a common weak value")
	}

	return nil
}

// loadConfigFile reads a flat YAML map of configuration keys
func loadConfigFile(path string) (map[string]string, error) {
	if path == "" {
		return nil, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	values := map[string]string{}
	if err := yaml.Unmarshal(data, &values); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	return values, nil
}

func (c *DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Name, c.SSLMode,
	)
}

// getEnv prefers the process environment, then the config file, then defaultVal
func getEnv(key, defaultVal string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	if value, ok := fileValues[key]; ok && value != "" {
		return value
	}
	return defaultVal
}

func getEnvAsInt(key string, defaultVal int) int {
	if value := getEnv(key, ""); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultVal
}

func getEnvAsDuration(key string, defaultVal time.Duration) time.Duration {
	if value := getEnv(key, ""); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultVal
}

// parseList splits a comma separated value, dropping empty entries.
// ALLOWED_ORIGINS defaults to "*" since the static site may be served from several hosts.
func parseList(key, defaultVal string) []string {
	var items []string
	for _, item := range strings.Split(getEnv(key, defaultVal), ",") {
		if item = strings.TrimSpace(item); item != "" {
			items = append(items, item)
		}
	}
	return items
}
