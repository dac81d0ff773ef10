package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Backend drivers
const (
	DriverSupabase = "supabase"
	DriverLocal    = "local"
)

// Config holds application configuration
type Config struct {
	App      AppConfig
	Backend  BackendConfig
	Database DatabaseConfig
	Auth     AuthConfig
	Upload   UploadConfig
	CORS     CORSConfig
	Email    EmailConfig
}

// AppConfig holds application-level configuration
type AppConfig struct {
	Name    string
	Version string
	Debug   bool
	Port    string
	Host    string
}

// BackendConfig selects and configures the backend-as-a-service
type BackendConfig struct {
	Driver        string // "supabase" or "local"
	URL           string
	AnonKey       string
	StorageBucket string
	PublicBaseURL string // base for local object URLs
	Timeout       time.Duration
}

// DatabaseConfig holds database configuration for the local driver
type DatabaseConfig struct {
	URL string
}

// AuthConfig holds admin session configuration
type AuthConfig struct {
	SecretKey          string
	TokenExpiryMinutes int
	CookieName         string
	SecureCookie       bool
}

// UploadConfig holds IoT brief upload limits
type UploadConfig struct {
	MaxBytes          int64
	AllowedExtensions []string
	Dir               string
}

// CORSConfig holds CORS configuration
type CORSConfig struct {
	AllowedOrigins []string
	AllowedMethods []string
	AllowedHeaders []string
	MaxAge         int
}

// EmailConfig holds admin notification email configuration
type EmailConfig struct {
	Enabled    bool
	SMTPHost   string
	SMTPPort   int
	Username   string
	Password   string
	FromEmail  string
	FromName   string
	AdminEmail string
}

// Load loads configuration from environment variables
func Load() (*Config, error) {
	// Try to load .env file (ignore error if it doesn't exist)
	_ = godotenv.Load()

	config := &Config{
		App: AppConfig{
			Name:    getEnv("APP_NAME", "OrlandIV Web Services"),
			Version: getEnv("APP_VERSION", "1.0.0"),
			Debug:   getEnvAsBool("DEBUG", false),
			Port:    getEnv("PORT", "8080"),
			Host:    getEnv("HOST", "0.0.0.0"),
		},
		Backend: BackendConfig{
			Driver:        strings.ToLower(getEnv("BACKEND_DRIVER", DriverSupabase)),
			URL:           strings.TrimRight(getEnv("SUPABASE_URL", ""), "/"),
			AnonKey:       getEnv("SUPABASE_ANON_KEY", ""),
			StorageBucket: getEnv("STORAGE_BUCKET", "iot-uploads"),
			PublicBaseURL: strings.TrimRight(getEnv("PUBLIC_BASE_URL", "http://localhost:8080"), "/"),
			Timeout:       time.Duration(getEnvAsInt("BACKEND_TIMEOUT_SECONDS", 15)) * time.Second,
		},
		Database: DatabaseConfig{
			URL: getEnv("DATABASE_URL", "sqlite:///./orlandiv.db"),
		},
		Auth: AuthConfig{
			SecretKey:          getEnv("SECRET_KEY", ""),
			TokenExpiryMinutes: getEnvAsInt("ACCESS_TOKEN_EXPIRE_MINUTES", 60),
			CookieName:         getEnv("SESSION_COOKIE", "sb_session"),
			SecureCookie:       getEnvAsBool("SECURE_COOKIE", false),
		},
		Upload: UploadConfig{
			MaxBytes:          int64(getEnvAsInt("UPLOAD_MAX_BYTES", 10<<20)),
			AllowedExtensions: getEnvAsSlice("UPLOAD_EXTENSIONS", []string{".pdf", ".doc", ".docx", ".txt"}),
			Dir:               getEnv("UPLOAD_DIR", "./uploads"),
		},
		CORS: CORSConfig{
			AllowedOrigins: getEnvAsSlice("ALLOWED_HOSTS", []string{"*"}),
			AllowedMethods: []string{"GET", "POST", "DELETE", "OPTIONS", "HEAD"},
			AllowedHeaders: []string{"Content-Type", "Authorization"},
			MaxAge:         86400,
		},
		Email: EmailConfig{
			Enabled:    getEnvAsBool("EMAIL_ENABLED", false),
			SMTPHost:   getEnv("SMTP_HOST", "smtp.gmail.com"),
			SMTPPort:   getEnvAsInt("SMTP_PORT", 587),
			Username:   getEnv("SMTP_USERNAME", ""),
			Password:   getEnv("SMTP_PASSWORD", ""),
			FromEmail:  getEnv("EMAIL_FROM", "noreply@orlandiv.dev"),
			FromName:   getEnv("EMAIL_FROM_NAME", "OrlandIV"),
			AdminEmail: getEnv("ADMIN_EMAIL", ""),
		},
	}

	// Validate configuration
	if err := validateConfig(config); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return config, nil
}

// validateConfig validates the configuration
func validateConfig(cfg *Config) error {
	if cfg.App.Port == "" {
		return fmt.Errorf("PORT must be set")
	}
	switch cfg.Backend.Driver {
	case DriverSupabase:
		if cfg.Backend.URL == "" || cfg.Backend.AnonKey == "" {
			return fmt.Errorf("SUPABASE_URL and SUPABASE_ANON_KEY must be set for the supabase driver")
		}
	case DriverLocal:
		if cfg.Database.URL == "" {
			return fmt.Errorf("DATABASE_URL must be set for the local driver")
		}
		if len(cfg.Auth.SecretKey) < 32 {
			return fmt.Errorf("SECRET_KEY must be at least 32 characters for the local driver")
		}
		if cfg.Auth.TokenExpiryMinutes <= 0 {
			return fmt.Errorf("ACCESS_TOKEN_EXPIRE_MINUTES must be greater than 0")
		}
	default:
		return fmt.Errorf("unknown BACKEND_DRIVER %q", cfg.Backend.Driver)
	}
	if cfg.Backend.StorageBucket == "" {
		return fmt.Errorf("STORAGE_BUCKET must be set")
	}
	if cfg.Upload.MaxBytes <= 0 {
		return fmt.Errorf("UPLOAD_MAX_BYTES must be greater than 0")
	}
	return nil
}

// TokenExpiry returns the session lifetime
func (c *AuthConfig) TokenExpiry() time.Duration {
	return time.Duration(c.TokenExpiryMinutes) * time.Minute
}

// Helper functions
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.ParseBool(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvAsSlice(key string, defaultValue []string) []string {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	parts := strings.Split(valueStr, ",")
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}
	return parts
}

// IsPostgres checks if the database URL is for PostgreSQL
func (c *DatabaseConfig) IsPostgres() bool {
	return strings.HasPrefix(c.URL, "postgres://") || strings.HasPrefix(c.URL, "postgresql://")
}

// GetPostgresDSN returns the URL in a form the pgx driver accepts.
// pgx parses both URL and key=value DSNs, so URLs pass through unchanged.
func (c *DatabaseConfig) GetPostgresDSN() string {
	return c.URL
}

// IsMySQL checks if the database URL is for MySQL
func (c *DatabaseConfig) IsMySQL() bool {
	return strings.HasPrefix(c.URL, "mysql://")
}

// GetMySQLDSN strips the scheme from a mysql:// URL, leaving a
// go-sql-driver DSN such as user:pass@tcp(host:3306)/site. parseTime is
// always on so created_at scans into time.Time.
func (c *DatabaseConfig) GetMySQLDSN() string {
	dsn := strings.TrimPrefix(c.URL, "mysql://")
	if strings.Contains(dsn, "parseTime=") {
		return dsn
	}
	if strings.Contains(dsn, "?") {
		return dsn + "&parseTime=true"
	}
	return dsn + "?parseTime=true"
}

// GetSQLitePath extracts SQLite database path from URL
func (c *DatabaseConfig) GetSQLitePath() string {
	if strings.HasPrefix(c.URL, "sqlite:///") {
		return strings.TrimPrefix(c.URL, "sqlite:///")
	}
	return c.URL
}
