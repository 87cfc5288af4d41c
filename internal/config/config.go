// Package config loads the image library configuration from the environment
// and validates it before the server starts.
package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config represents the application configuration
type Config struct {
	Environment string
	Port        string
	Host        string
	DatabaseURL string
	Storage     StorageConfig
	Cache       CacheConfig
	Session     SessionConfig
	Logging     *LoggingConfig
	Server      *ServerConfig
}

// StorageConfig holds object storage configuration
type StorageConfig struct {
	Endpoint        string
	AccessKeyID     string
	SecretAccessKey string
	BucketName      string
	UseSSL          bool
	Region          string
	MaxUploadSize   int64
	AllowedTypes    []string
	ThumbnailSize   int
	URLExpiry       time.Duration
}

// CacheConfig holds Redis/Valkey configuration for folder and image list caching
type CacheConfig struct {
	Enabled         bool
	Address         string
	Password        string
	Database        int
	DefaultTTL      time.Duration
	MaxRetries      int
	MinRetryBackoff time.Duration
	MaxRetryBackoff time.Duration
	DialTimeout     time.Duration
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	PoolSize        int
	MinIdleConns    int
	PoolTimeout     time.Duration
}

// SessionConfig controls how owners are identified on incoming requests.
// Authenticated users arrive with UserHeader set by the auth proxy; anonymous
// visitors carry a session id in CookieName (or SessionHeader for API clients).
// UserHeader is only honoured when TrustUserHeader is set, which requires a
// proxy that strips the header from client requests.
type SessionConfig struct {
	CookieName      string
	UserHeader      string
	TrustUserHeader bool
	SessionHeader   string
	CookieMaxAge    time.Duration
	SecureCookie    bool
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level  string
	Format string
	Output string
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration
}

// Load creates a new configuration from environment variables with validation
func Load() (*Config, error) {
	useSSL, _ := strconv.ParseBool(getEnv("STORAGE_USE_SSL", "false"))
	maxUploadSize := parseSize(getEnv("MAX_UPLOAD_SIZE", "10MB"))
	allowedTypes := parseList(getEnv("ALLOWED_FILE_TYPES", "image/jpeg,image/png,image/gif,image/webp"))
	thumbnailSize, _ := strconv.Atoi(getEnv("THUMBNAIL_SIZE", "320"))
	urlExpiry, _ := time.ParseDuration(getEnv("STORAGE_URL_EXPIRY", "1h"))

	cacheEnabled, _ := strconv.ParseBool(getEnv("CACHE_ENABLED", "false"))
	cacheDB, _ := strconv.Atoi(getEnv("CACHE_DB", "0"))
	cacheTTL, _ := time.ParseDuration(getEnv("CACHE_TTL", "5m"))
	cachePoolSize, _ := strconv.Atoi(getEnv("CACHE_POOL_SIZE", "10"))

	secureCookie, _ := strconv.ParseBool(getEnv("SESSION_SECURE_COOKIE", "false"))
	trustUserHeader, _ := strconv.ParseBool(getEnv("SESSION_TRUST_USER_HEADER", "false"))
	cookieMaxAge, _ := time.ParseDuration(getEnv("SESSION_COOKIE_MAX_AGE", "8760h"))

	readTimeout, _ := time.ParseDuration(getEnv("READ_TIMEOUT", "10s"))
	writeTimeout, _ := time.ParseDuration(getEnv("WRITE_TIMEOUT", "10s"))
	idleTimeout, _ := time.ParseDuration(getEnv("SERVER_TIMEOUT", "30s"))
	shutdownTimeout, _ := time.ParseDuration(getEnv("SHUTDOWN_TIMEOUT", "30s"))

	config := &Config{
		Environment: getEnv("GO_ENV", "development"),
		Port:        getEnv("PORT", "8080"),
		Host:        getEnv("HOST", "localhost"),
		DatabaseURL: getEnv("DATABASE_URL", ""),
		Storage: StorageConfig{
			Endpoint:        getEnv("STORAGE_ENDPOINT", "localhost:9000"),
			AccessKeyID:     getEnv("STORAGE_ACCESS_KEY", "minioadmin"),
			SecretAccessKey: getEnv("STORAGE_SECRET_KEY", "minioadmin"),
			BucketName:      getEnv("STORAGE_BUCKET", "images"),
			UseSSL:          useSSL,
			Region:          getEnv("STORAGE_REGION", "us-east-1"),
			MaxUploadSize:   maxUploadSize,
			AllowedTypes:    allowedTypes,
			ThumbnailSize:   thumbnailSize,
			URLExpiry:       urlExpiry,
		},
		Cache: CacheConfig{
			Enabled:         cacheEnabled,
			Address:         getEnv("CACHE_ADDRESS", "localhost:6379"),
			Password:        getEnv("CACHE_PASSWORD", ""),
			Database:        cacheDB,
			DefaultTTL:      cacheTTL,
			MaxRetries:      3,
			MinRetryBackoff: 8 * time.Millisecond,
			MaxRetryBackoff: 512 * time.Millisecond,
			DialTimeout:     5 * time.Second,
			ReadTimeout:     3 * time.Second,
			WriteTimeout:    3 * time.Second,
			PoolSize:        cachePoolSize,
			MinIdleConns:    2,
			PoolTimeout:     4 * time.Second,
		},
		Session: SessionConfig{
			CookieName:      getEnv("SESSION_COOKIE_NAME", "gallery_session"),
			UserHeader:      getEnv("SESSION_USER_HEADER", "X-User-ID"),
			TrustUserHeader: trustUserHeader,
			SessionHeader:   getEnv("SESSION_HEADER", "X-Session-ID"),
			CookieMaxAge:    cookieMaxAge,
			SecureCookie:    secureCookie,
		},
		Logging: &LoggingConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: getEnv("LOG_FORMAT", "json"),
			Output: getEnv("LOG_OUTPUT", "stdout"),
		},
		Server: &ServerConfig{
			ReadTimeout:     readTimeout,
			WriteTimeout:    writeTimeout,
			IdleTimeout:     idleTimeout,
			ShutdownTimeout: shutdownTimeout,
		},
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return config, nil
}

// Addr returns the listen address for the HTTP server
func (c *Config) Addr() string {
	return ":" + c.Port
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// parseSize parses size strings like "10MB", "512KB" into bytes
func parseSize(sizeStr string) int64 {
	sizeStr = strings.ToUpper(strings.TrimSpace(sizeStr))

	if strings.HasSuffix(sizeStr, "MB") {
		numStr := strings.TrimSuffix(sizeStr, "MB")
		if num, err := strconv.ParseInt(numStr, 10, 64); err == nil {
			return num * 1024 * 1024
		}
	}

	if strings.HasSuffix(sizeStr, "KB") {
		numStr := strings.TrimSuffix(sizeStr, "KB")
		if num, err := strconv.ParseInt(numStr, 10, 64); err == nil {
			return num * 1024
		}
	}

	// Default to 10MB if parsing fails
	return 10 * 1024 * 1024
}

// parseList parses comma-separated strings into slices
func parseList(listStr string) []string {
	if listStr == "" {
		return []string{}
	}

	items := strings.Split(listStr, ",")
	result := make([]string, 0, len(items))

	for _, item := range items {
		if trimmed := strings.TrimSpace(item); trimmed != "" {
			result = append(result, trimmed)
		}
	}

	return result
}

// IsAllowedType reports whether uploads of contentType are accepted
func (s StorageConfig) IsAllowedType(contentType string) bool {
	for _, allowed := range s.AllowedTypes {
		if strings.EqualFold(allowed, contentType) {
			return true
		}
	}
	return false
}
