package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"insureportal-backend/shared/logger"
)

const (
	// Insecure defaults, a deployment must override them.
	DefaultJWTSecret      = "supersecretkey"
	DefaultAdminAccessKey = "1924"
)

type Config struct {
	// Server
	Port            string
	GinMode         string
	FrontendURL     string
	FrontendDistDir string

	// Database
	DBHost     string
	DBPort     string
	DBUser     string
	DBPassword string
	DBName     string
	DBSSLMode  string

	// JWT
	JWTSecret      string
	JWTExpireHours string

	// Admin access
	AdminAccessKey     string
	AdminAccessKeyHash string
	DefaultOrgName     string

	// Uploads
	StorageDriver     string
	UploadDir         string
	UploadMaxFileSize string

	// MinIO Configuration
	MinIOServerURL    string
	MinIORootUser     string
	MinIORootPassword string
	MinIOUseSSL       bool
	MinIOBucketName   string

	// Redis
	RedisHost     string
	RedisPort     string
	RedisPassword string
	RedisDB       string
	EventsChannel string

	// Login Rate Limiting
	LoginRateLimitMaxAttempts   string
	LoginRateLimitWindowSeconds string
	LoginRateLimitBlockMinutes  string

	// Logging
	LogLevel  string
	LogFormat string
}

var cfg *Config

// LoadConfig loads configuration from environment variables
func LoadConfig() {
	envPaths := []string{
		".env",
		"../.env",
		"../../.env",
	}

	envLoaded := false
	for _, path := range envPaths {
		if err := godotenv.Load(path); err == nil {
			logger.Info().Str("path", path).Msg("✅ Environment loaded")
			envLoaded = true
			break
		}
	}

	if !envLoaded {
		logger.Warn().Msg(".env file not found, using system environment variables")
	}

	cfg = FromEnv()

	if cfg.JWTSecret == DefaultJWTSecret {
		logger.Warn().Msg("JWT_SECRET is not set, using the insecure default")
	}
	if cfg.AdminAccessKey == DefaultAdminAccessKey && cfg.AdminAccessKeyHash == "" {
		logger.Warn().Msg("ADMIN_ACCESS_KEY is not set, using the insecure default")
	}

	logger.Info().Msg("✅ Configuration loaded successfully")
}

// FromEnv builds a Config from the current process environment without touching .env files.
func FromEnv() *Config {
	return &Config{
		// Server
		Port:            getEnv("PORT", "3000"),
		GinMode:         getEnv("GIN_MODE", "debug"),
		FrontendURL:     getEnv("FRONTEND_URL", "http://localhost:5173"),
		FrontendDistDir: getEnv("FRONTEND_DIST_DIR", ""),

		// Database
		DBHost:     getEnv("DB_HOST", "localhost"),
		DBPort:     getEnv("DB_PORT", "5432"),
		DBUser:     getEnv("DB_USER", "postgres"),
		DBPassword: getEnv("DB_PASSWORD", ""),
		DBName:     getEnv("DB_NAME", "insureportal"),
		DBSSLMode:  getEnv("DB_SSLMODE", "disable"),

		// JWT
		JWTSecret:      getEnv("JWT_SECRET", DefaultJWTSecret),
		JWTExpireHours: getEnv("JWT_EXPIRE_HOURS", "24"),

		// Admin access
		AdminAccessKey:     getEnv("ADMIN_ACCESS_KEY", DefaultAdminAccessKey),
		AdminAccessKeyHash: getEnv("ADMIN_ACCESS_KEY_HASH", ""),
		DefaultOrgName:     getEnv("DEFAULT_ORG_NAME", "System Org"),

		// Uploads
		StorageDriver:     getEnv("STORAGE_DRIVER", "disk"),
		UploadDir:         getEnv("UPLOAD_DIR", "uploads"),
		UploadMaxFileSize: getEnv("UPLOAD_MAX_FILE_SIZE", "10MB"),

		// MinIO Configuration
		MinIOServerURL:    getEnv("MINIO_SERVER_URL", "http://localhost:9000"),
		MinIORootUser:     getEnv("MINIO_ROOT_USER", "minioadmin"),
		MinIORootPassword: getEnv("MINIO_ROOT_PASSWORD", "minioadmin"),
		MinIOUseSSL:       getEnvAsBool("MINIO_USE_SSL", false),
		MinIOBucketName:   getEnv("MINIO_BUCKET_NAME", "insureportal-uploads"),

		// Redis
		RedisHost:     getEnv("REDIS_HOST", ""),
		RedisPort:     getEnv("REDIS_PORT", "6379"),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisDB:       getEnv("REDIS_DB", "0"),
		EventsChannel: getEnv("EVENTS_CHANNEL", "insureportal:forms"),

		// Login Rate Limiting
		LoginRateLimitMaxAttempts:   getEnv("LOGIN_RATE_LIMIT_MAX_ATTEMPTS", "10"),
		LoginRateLimitWindowSeconds: getEnv("LOGIN_RATE_LIMIT_WINDOW_SECONDS", "300"),
		LoginRateLimitBlockMinutes:  getEnv("LOGIN_RATE_LIMIT_BLOCK_MINUTES", "15"),

		// Logging
		LogLevel:  getEnv("LOG_LEVEL", "info"),
		LogFormat: getEnv("LOG_FORMAT", "console"),
	}
}

// GetConfig returns the current configuration
func GetConfig() *Config {
	if cfg == nil {
		LoadConfig()
	}
	return cfg
}

// GetJWTExpireDuration returns the session token lifetime
func (c *Config) GetJWTExpireDuration() time.Duration {
	hours, err := strconv.Atoi(c.JWTExpireHours)
	if err != nil || hours <= 0 {
		return 24 * time.Hour
	}
	return time.Duration(hours) * time.Hour
}

// GetUploadMaxFileSize returns the upload limit in bytes, 0 meaning unlimited
func (c *Config) GetUploadMaxFileSize() int64 {
	size, err := ParseByteSize(c.UploadMaxFileSize)
	if err != nil {
		return 10 << 20
	}
	return size
}

// GetLoginRateLimitMaxAttempts returns the login attempt budget per window
func (c *Config) GetLoginRateLimitMaxAttempts() int {
	return atoiDefault(c.LoginRateLimitMaxAttempts, 10)
}

// GetLoginRateLimitWindow returns the login rate limit window
func (c *Config) GetLoginRateLimitWindow() time.Duration {
	return time.Duration(atoiDefault(c.LoginRateLimitWindowSeconds, 300)) * time.Second
}

// GetLoginRateLimitBlockDuration returns how long an IP stays blocked
func (c *Config) GetLoginRateLimitBlockDuration() time.Duration {
	return time.Duration(atoiDefault(c.LoginRateLimitBlockMinutes, 15)) * time.Minute
}

// GetRedisDB returns the redis database index
func (c *Config) GetRedisDB() int {
	return atoiDefault(c.RedisDB, 0)
}

// RedisEnabled reports whether a redis host is configured
func (c *Config) RedisEnabled() bool {
	return c.RedisHost != ""
}

// ParseByteSize parses sizes such as "10MB", "512KB", "1GB" or a plain byte count.
func ParseByteSize(s string) (int64, error) {
	s = strings.ToUpper(strings.TrimSpace(s))
	multiplier := int64(1)
	for _, unit := range []struct {
		suffix string
		factor int64
	}{
		{"GB", 1 << 30},
		{"MB", 1 << 20},
		{"KB", 1 << 10},
		{"B", 1},
	} {
		if strings.HasSuffix(s, unit.suffix) {
			multiplier = unit.factor
			s = strings.TrimSpace(strings.TrimSuffix(s, unit.suffix))
			break
		}
	}
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, err
	}
	return n * multiplier, nil
}

// getEnv gets environment variable with default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}

func atoiDefault(value string, defaultValue int) int {
	if n, err := strconv.Atoi(value); err == nil {
		return n
	}
	return defaultValue
}
