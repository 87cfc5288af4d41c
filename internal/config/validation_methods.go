package config

import (
	"fmt"
	"net/url"
	"slices"
	"strconv"
	"strings"
	"time"
)

// ValidationError represents a configuration validation error
type ValidationError struct {
	Field   string
	Value   interface{}
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("config validation failed for %s: %s (value: %v)", e.Field, e.Message, e.Value)
}

// ValidationErrors is a collection of validation errors
type ValidationErrors []ValidationError

func (ve ValidationErrors) Error() string {
	if len(ve) == 0 {
		return "no validation errors"
	}

	messages := make([]string, 0, len(ve))
	for _, err := range ve {
		messages = append(messages, err.Error())
	}

	return fmt.Sprintf("configuration validation failed: %s", strings.Join(messages, "; "))
}

// Has checks if ValidationErrors contains any errors
func (ve ValidationErrors) Has() bool {
	return len(ve) > 0
}

// Validate validates the entire configuration
func (c *Config) Validate() error {
	var validationErrors ValidationErrors

	validationErrors = append(validationErrors, c.validateServer()...)
	validationErrors = append(validationErrors, c.validateDatabase()...)
	validationErrors = append(validationErrors, c.validateStorage()...)
	validationErrors = append(validationErrors, c.validateCache()...)
	validationErrors = append(validationErrors, c.validateSession()...)

	if c.Logging != nil {
		validationErrors = append(validationErrors, c.validateLogging()...)
	}

	if c.Server != nil {
		validationErrors = append(validationErrors, c.validateServerTimeouts()...)
	}

	if validationErrors.Has() {
		return validationErrors
	}

	return nil
}

func (c *Config) validateServer() ValidationErrors {
	var errors ValidationErrors

	if c.Port == "" {
		errors = append(errors, ValidationError{
			Field:   "port",
			Value:   c.Port,
			Message: "port cannot be empty",
		})
	} else if port, err := strconv.Atoi(c.Port); err != nil {
		errors = append(errors, ValidationError{
			Field:   "port",
			Value:   c.Port,
			Message: "port must be a valid integer",
		})
	} else if port < 1 || port > 65535 {
		errors = append(errors, ValidationError{
			Field:   "port",
			Value:   c.Port,
			Message: "port must be between 1 and 65535",
		})
	}

	validEnvs := []string{"development", "production", "test", "staging"}
	if c.Environment != "" && !slices.Contains(validEnvs, c.Environment) {
		errors = append(errors, ValidationError{
			Field:   "environment",
			Value:   c.Environment,
			Message: "environment must be one of: development, production, test, staging",
		})
	}

	return errors
}

func (c *Config) validateDatabase() ValidationErrors {
	var errors ValidationErrors

	// Database URL is required outside of tests
	if c.Environment != "test" && c.DatabaseURL == "" {
		errors = append(errors, ValidationError{
			Field:   "database_url",
			Value:   c.DatabaseURL,
			Message: "database URL is required for non-test environments",
		})
		return errors
	}

	if c.DatabaseURL == "" {
		return errors
	}

	parsedURL, err := url.Parse(c.DatabaseURL)
	if err != nil {
		errors = append(errors, ValidationError{
			Field:   "database_url",
			Value:   c.DatabaseURL,
			Message: "database URL must be a valid URL",
		})
		return errors
	}

	if parsedURL.Scheme != "postgres" && parsedURL.Scheme != "postgresql" {
		errors = append(errors, ValidationError{
			Field:   "database_url",
			Value:   parsedURL.Scheme,
			Message: "database URL must use postgres or postgresql scheme",
		})
	}

	if parsedURL.Host == "" {
		errors = append(errors, ValidationError{
			Field:   "database_url",
			Value:   c.DatabaseURL,
			Message: "database URL must include host",
		})
	}

	if parsedURL.Path == "" || parsedURL.Path == "/" {
		errors = append(errors, ValidationError{
			Field:   "database_url",
			Value:   c.DatabaseURL,
			Message: "database URL must include database name",
		})
	}

	return errors
}

func (c *Config) validateStorage() ValidationErrors {
	var errors ValidationErrors

	if c.Storage.Endpoint == "" {
		errors = append(errors, ValidationError{
			Field:   "storage.endpoint",
			Value:   c.Storage.Endpoint,
			Message: "storage endpoint cannot be empty",
		})
	}

	if c.Storage.BucketName == "" {
		errors = append(errors, ValidationError{
			Field:   "storage.bucket_name",
			Value:   c.Storage.BucketName,
			Message: "storage bucket name cannot be empty",
		})
	} else if !isValidBucketName(c.Storage.BucketName) {
		errors = append(errors, ValidationError{
			Field:   "storage.bucket_name",
			Value:   c.Storage.BucketName,
			Message: "storage bucket name must be 3-63 characters, lowercase alphanumeric and hyphens only",
		})
	}

	if c.Environment == "production" {
		if c.Storage.AccessKeyID == "minioadmin" {
			errors = append(errors, ValidationError{
				Field:   "storage.access_key_id",
				Value:   c.Storage.AccessKeyID,
				Message: "default storage access key ID cannot be used in production",
			})
		}

		if c.Storage.SecretAccessKey == "minioadmin" {
			errors = append(errors, ValidationError{
				Field:   "storage.secret_access_key",
				Value:   "[REDACTED]",
				Message: "default storage secret access key cannot be used in production",
			})
		}
	}

	if c.Storage.MaxUploadSize > 0 {
		maxAllowed := int64(100 * 1024 * 1024)
		if c.Storage.MaxUploadSize > maxAllowed {
			errors = append(errors, ValidationError{
				Field:   "storage.max_upload_size",
				Value:   c.Storage.MaxUploadSize,
				Message: fmt.Sprintf("max upload size cannot exceed %d bytes (100MB)", maxAllowed),
			})
		}
	}

	if c.Storage.ThumbnailSize < 0 || c.Storage.ThumbnailSize > 2000 {
		errors = append(errors, ValidationError{
			Field:   "storage.thumbnail_size",
			Value:   c.Storage.ThumbnailSize,
			Message: "thumbnail size must be between 0 and 2000 pixels",
		})
	}

	return errors
}

func (c *Config) validateCache() ValidationErrors {
	var errors ValidationErrors

	if !c.Cache.Enabled {
		return errors
	}

	if c.Cache.Address == "" {
		errors = append(errors, ValidationError{
			Field:   "cache.address",
			Value:   c.Cache.Address,
			Message: "cache address is required when the cache is enabled",
		})
	}

	if c.Cache.Database < 0 || c.Cache.Database > 15 {
		errors = append(errors, ValidationError{
			Field:   "cache.database",
			Value:   c.Cache.Database,
			Message: "cache database must be between 0 and 15",
		})
	}

	if c.Cache.DefaultTTL <= 0 {
		errors = append(errors, ValidationError{
			Field:   "cache.default_ttl",
			Value:   c.Cache.DefaultTTL,
			Message: "cache TTL must be greater than 0",
		})
	}

	return errors
}

func (c *Config) validateSession() ValidationErrors {
	var errors ValidationErrors

	if c.Session.CookieName == "" {
		errors = append(errors, ValidationError{
			Field:   "session.cookie_name",
			Value:   c.Session.CookieName,
			Message: "session cookie name cannot be empty",
		})
	}

	if c.Session.TrustUserHeader && c.Session.UserHeader == "" {
		errors = append(errors, ValidationError{
			Field:   "session.user_header",
			Value:   c.Session.UserHeader,
			Message: "user header cannot be empty",
		})
	}

	if c.Environment == "production" && !c.Session.SecureCookie {
		errors = append(errors, ValidationError{
			Field:   "session.secure_cookie",
			Value:   c.Session.SecureCookie,
			Message: "session cookies must be secure in production",
		})
	}

	return errors
}

func (c *Config) validateLogging() ValidationErrors {
	var errors ValidationErrors

	validLevels := []string{"debug", "info", "warn", "error"}
	if !slices.Contains(validLevels, strings.ToLower(c.Logging.Level)) {
		errors = append(errors, ValidationError{
			Field:   "logging.level",
			Value:   c.Logging.Level,
			Message: "logging level must be one of: debug, info, warn, error",
		})
	}

	validFormats := []string{"json", "text", "console"}
	if !slices.Contains(validFormats, strings.ToLower(c.Logging.Format)) {
		errors = append(errors, ValidationError{
			Field:   "logging.format",
			Value:   c.Logging.Format,
			Message: "logging format must be one of: json, text, console",
		})
	}

	return errors
}

func (c *Config) validateServerTimeouts() ValidationErrors {
	var errors ValidationErrors

	check := func(field string, value time.Duration, limit time.Duration) {
		if value <= 0 {
			errors = append(errors, ValidationError{
				Field:   field,
				Value:   value,
				Message: "timeout must be greater than 0",
			})
		} else if limit > 0 && value > limit {
			errors = append(errors, ValidationError{
				Field:   field,
				Value:   value,
				Message: fmt.Sprintf("timeout should not exceed %s", limit),
			})
		}
	}

	check("server.read_timeout", c.Server.ReadTimeout, 5*time.Minute)
	check("server.write_timeout", c.Server.WriteTimeout, 5*time.Minute)
	check("server.idle_timeout", c.Server.IdleTimeout, 0)

	return errors
}

// isValidBucketName validates S3/MinIO bucket naming rules
func isValidBucketName(name string) bool {
	if len(name) < 3 || len(name) > 63 {
		return false
	}

	if !isLowerAlphaNum(name[0]) || !isLowerAlphaNum(name[len(name)-1]) {
		return false
	}

	for i := 0; i < len(name); i++ {
		b := name[i]
		if !isLowerAlphaNum(b) && b != '-' {
			return false
		}
		if i > 0 && b == '-' && name[i-1] == '-' {
			return false
		}
	}

	return true
}

func isLowerAlphaNum(b byte) bool {
	return (b >= 'a' && b <= 'z') || (b >= '0' && b <= '9')
}
