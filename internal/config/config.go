package config

import (
	"errors"
	"fmt"
	"net"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
)

// Config holds all application configuration loaded from environment variables.
type Config struct {
	Database   DatabaseConfig
	Redis      RedisConfig
	JWT        JWTConfig
	Server     ServerConfig
	Registrar  RegistrarConfig
	Domains    DomainsConfig
	Platform   PlatformConfig
	Slack      SlackConfig
	SelfHosted bool
}

// DatabaseConfig holds PostgreSQL connection settings.
type DatabaseConfig struct {
	Host     string
	Port     int
	User     string
	Password string //nolint:gosec // G117: DB connection config
	DBName   string
	SSLMode  string
	MaxConns int
}

// RedisConfig holds Redis connection settings.
type RedisConfig struct {
	Addr     string
	Password string //nolint:gosec // G117: Redis connection config
	DB       int
}

// JWTConfig holds JWT authentication settings.
type JWTConfig struct {
	Secret     string //nolint:gosec // G117: JWT signing secret config
	AccessTTL  time.Duration
	RefreshTTL time.Duration
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Addr         string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	CORSOrigins  []string
}

// RegistrarConfig holds settings for the edge provider's domain API.
type RegistrarConfig struct {
	BaseURL string
	Token   string //nolint:gosec // G117: registrar API token config
	TeamID  string
}

// DomainsConfig holds custom-domain lifecycle settings.
type DomainsConfig struct {
	EdgeIP            string
	CNAMETarget       string
	RecordTTL         int
	MaxVerifyAttempts int
	LockTTL           time.Duration
}

// PlatformConfig identifies which hosts belong to the platform itself
// rather than to tenant custom domains.
type PlatformConfig struct {
	Host     string
	DevHosts []string
}

// SlackConfig holds Slack notification settings.
type SlackConfig struct {
	BotToken string
	Channel  string
}

// Load reads configuration from environment variables.
// Defaults are safe for local development only. In production,
// sensitive values (JWT secret, DB password, registrar token)
// must be set explicitly.
func Load() (*Config, error) {
	dbPort, err := getEnvInt("COMPANION_DB_PORT", 5432)
	if err != nil {
		return nil, fmt.Errorf("config.Load: %w", err)
	}

	dbMaxConns, err := getEnvInt("COMPANION_DB_MAX_CONNS", 25)
	if err != nil {
		return nil, fmt.Errorf("config.Load: %w", err)
	}

	redisDB, err := getEnvInt("COMPANION_REDIS_DB", 0)
	if err != nil {
		return nil, fmt.Errorf("config.Load: %w", err)
	}

	accessTTL, err := getEnvDuration("COMPANION_JWT_ACCESS_TTL", 15*time.Minute)
	if err != nil {
		return nil, fmt.Errorf("config.Load: %w", err)
	}

	refreshTTL, err := getEnvDuration("COMPANION_JWT_REFRESH_TTL", 7*24*time.Hour)
	if err != nil {
		return nil, fmt.Errorf("config.Load: %w", err)
	}

	readTimeout, err := getEnvDuration("COMPANION_SERVER_READ_TIMEOUT", 10*time.Second)
	if err != nil {
		return nil, fmt.Errorf("config.Load: %w", err)
	}

	writeTimeout, err := getEnvDuration("COMPANION_SERVER_WRITE_TIMEOUT", 30*time.Second)
	if err != nil {
		return nil, fmt.Errorf("config.Load: %w", err)
	}

	recordTTL, err := getEnvInt("COMPANION_DOMAIN_RECORD_TTL", 3600)
	if err != nil {
		return nil, fmt.Errorf("config.Load: %w", err)
	}

	maxVerifyAttempts, err := getEnvInt("COMPANION_DOMAIN_MAX_VERIFY_ATTEMPTS", 0)
	if err != nil {
		return nil, fmt.Errorf("config.Load: %w", err)
	}

	lockTTL, err := getEnvDuration("COMPANION_DOMAIN_VERIFY_LOCK_TTL", 30*time.Second)
	if err != nil {
		return nil, fmt.Errorf("config.Load: %w", err)
	}

	selfHosted, err := getEnvBool("COMPANION_SELF_HOSTED", false)
	if err != nil {
		return nil, fmt.Errorf("config.Load: %w", err)
	}

	corsOrigins := getEnvList("COMPANION_CORS_ORIGINS", []string{"http://localhost:5173"})
	devHosts := getEnvList("COMPANION_PLATFORM_DEV_HOSTS", nil)

	cfg := &Config{
		Database: DatabaseConfig{
			Host:     getEnv("COMPANION_DB_HOST", "localhost"),
			Port:     dbPort,
			User:     getEnv("COMPANION_DB_USER", "companion"),
			Password: getEnv("COMPANION_DB_PASSWORD", ""),
			DBName:   getEnv("COMPANION_DB_NAME", "companion_dev"),
			SSLMode:  getEnv("COMPANION_DB_SSLMODE", "disable"),
			MaxConns: dbMaxConns,
		},
		Redis: RedisConfig{
			Addr:     getEnv("COMPANION_REDIS_ADDR", "localhost:6379"),
			Password: getEnv("COMPANION_REDIS_PASSWORD", ""),
			DB:       redisDB,
		},
		JWT: JWTConfig{
			Secret:     getEnv("COMPANION_JWT_SECRET", ""),
			AccessTTL:  accessTTL,
			RefreshTTL: refreshTTL,
		},
		Server: ServerConfig{
			Addr:         getEnv("COMPANION_SERVER_ADDR", ":8080"),
			ReadTimeout:  readTimeout,
			WriteTimeout: writeTimeout,
			CORSOrigins:  corsOrigins,
		},
		Registrar: RegistrarConfig{
			BaseURL: getEnv("COMPANION_REGISTRAR_BASE_URL", "https://api.vercel.com"),
			Token:   getEnv("COMPANION_REGISTRAR_TOKEN", ""),
			TeamID:  getEnv("COMPANION_REGISTRAR_TEAM_ID", ""),
		},
		Domains: DomainsConfig{
			EdgeIP:            getEnv("COMPANION_DOMAIN_EDGE_IP", "76.76.21.21"),
			CNAMETarget:       getEnv("COMPANION_DOMAIN_CNAME_TARGET", "edge.companion.app"),
			RecordTTL:         recordTTL,
			MaxVerifyAttempts: maxVerifyAttempts,
			LockTTL:           lockTTL,
		},
		Platform: PlatformConfig{
			Host:     getEnv("COMPANION_PLATFORM_HOST", "companion.app"),
			DevHosts: devHosts,
		},
		Slack: SlackConfig{
			BotToken: getEnv("COMPANION_SLACK_BOT_TOKEN", ""),
			Channel:  getEnv("COMPANION_SLACK_CHANNEL", "#domain-events"),
		},
		SelfHosted: selfHosted,
	}

	err = cfg.validate()
	if err != nil {
		return nil, fmt.Errorf("config.Load: %w", err)
	}

	return cfg, nil
}

// validate checks required fields and value bounds.
func (c *Config) validate() error {
	// JWT secret is required (no insecure default).
	if c.JWT.Secret == "" {
		return errors.New("COMPANION_JWT_SECRET is required")
	}
	if len(c.JWT.Secret) < 32 {
		return errors.New("COMPANION_JWT_SECRET must be at least 32 characters")
	}

	// DB SSL mode warning for non-self-hosted deployments.
	if c.Database.SSLMode == "disable" && !c.SelfHosted {
		log.Warn().Msg("COMPANION_DB_SSLMODE=disable is insecure for production; set to 'require' or 'verify-full'")
	}

	if c.Registrar.Token == "" {
		log.Warn().Msg("COMPANION_REGISTRAR_TOKEN is not set; domain provisioning will fail until it is configured")
	}

	// Bounds checks.
	if c.Database.Port < 1 || c.Database.Port > 65535 {
		return fmt.Errorf("COMPANION_DB_PORT must be 1-65535, got %d", c.Database.Port)
	}
	if c.Database.MaxConns < 1 {
		return fmt.Errorf("COMPANION_DB_MAX_CONNS must be >= 1, got %d", c.Database.MaxConns)
	}
	if c.JWT.AccessTTL <= 0 {
		return fmt.Errorf("COMPANION_JWT_ACCESS_TTL must be positive, got %s", c.JWT.AccessTTL)
	}
	if c.JWT.RefreshTTL <= 0 {
		return fmt.Errorf("COMPANION_JWT_REFRESH_TTL must be positive, got %s", c.JWT.RefreshTTL)
	}
	if c.Server.ReadTimeout <= 0 {
		return fmt.Errorf("COMPANION_SERVER_READ_TIMEOUT must be positive, got %s", c.Server.ReadTimeout)
	}
	if c.Server.WriteTimeout <= 0 {
		return fmt.Errorf("COMPANION_SERVER_WRITE_TIMEOUT must be positive, got %s", c.Server.WriteTimeout)
	}
	if net.ParseIP(c.Domains.EdgeIP) == nil {
		return fmt.Errorf("COMPANION_DOMAIN_EDGE_IP must be a valid IP address, got %q", c.Domains.EdgeIP)
	}
	if c.Domains.RecordTTL < 60 {
		return fmt.Errorf("COMPANION_DOMAIN_RECORD_TTL must be >= 60, got %d", c.Domains.RecordTTL)
	}
	if c.Domains.MaxVerifyAttempts < 0 {
		return fmt.Errorf("COMPANION_DOMAIN_MAX_VERIFY_ATTEMPTS must be >= 0, got %d", c.Domains.MaxVerifyAttempts)
	}
	if c.Domains.LockTTL <= 0 {
		return fmt.Errorf("COMPANION_DOMAIN_VERIFY_LOCK_TTL must be positive, got %s", c.Domains.LockTTL)
	}
	if c.Platform.Host == "" {
		return errors.New("COMPANION_PLATFORM_HOST is required")
	}

	return nil
}

// DSN returns the PostgreSQL connection string.
func (c *DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.DBName, c.SSLMode,
	)
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("parsing %s=%q as int: %w", key, v, err)
	}
	return n, nil
}

func getEnvBool(key string, fallback bool) (bool, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, fmt.Errorf("parsing %s=%q as bool: %w", key, v, err)
	}
	return b, nil
}

func getEnvDuration(key string, fallback time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("parsing %s=%q as duration: %w", key, v, err)
	}
	return d, nil
}

func getEnvList(key string, fallback []string) []string {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	parts := strings.Split(v, ",")
	result := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			result = append(result, p)
		}
	}
	return result
}
