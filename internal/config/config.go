// Package config provides application configuration loaded from environment variables.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

// Config holds all application configuration.
type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	App      AppConfig
	Storage  StorageConfig
	Auth     AuthConfig
	Blob     BlobConfig
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port         string
	ReadTimeout  int // seconds
	WriteTimeout int // seconds
	IdleTimeout  int // seconds
}

// DatabaseConfig selects and configures the SQL backend.
// Driver is "sqlite" (Path is used) or "postgres" (the remaining fields are used).
type DatabaseConfig struct {
	Driver   string
	Path     string
	Host     string
	Port     int
	User     string
	Password string
	DBName   string
	SSLMode  string
}

// AppConfig holds application-level settings.
type AppConfig struct {
	Dev        bool
	Migrations bool
	Debug      bool // verbose GORM logging
}

// StorageConfig selects where documents live: "sql" or "memory".
type StorageConfig struct {
	Driver string
}

// AuthConfig selects the identity provider: "local" or "supabase".
type AuthConfig struct {
	Provider        string
	SessionSecret   string
	SupabaseURL     string
	SupabaseAnonKey string
	ResetRedirect   string
}

// BlobConfig configures archiving of exports. Driver "" disables it.
type BlobConfig struct {
	Driver      string // "", "fs" or "s3"
	FSRoot      string
	S3Bucket    string
	S3Region    string
	S3Endpoint  string
	S3PathStyle bool
}

// DSN returns the PostgreSQL connection string in key=value format.
func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		d.Host, d.Port, d.User, d.Password, d.DBName, d.SSLMode,
	)
}

// URL returns the PostgreSQL connection string in URL format.
func (d DatabaseConfig) URL() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		d.User, d.Password, d.Host, d.Port, d.DBName, d.SSLMode,
	)
}

// Load reads configuration from environment variables.
// Defaults target a single-node SQLite setup for local development.
func Load() *Config {
	return &Config{
		Server: ServerConfig{
			Port:         getEnv("PORT", "8080"),
			ReadTimeout:  getEnvInt("SERVER_READ_TIMEOUT", 15),
			WriteTimeout: getEnvInt("SERVER_WRITE_TIMEOUT", 15),
			IdleTimeout:  getEnvInt("SERVER_IDLE_TIMEOUT", 60),
		},
		Database: DatabaseConfig{
			Driver:   strings.ToLower(getEnv("DB_DRIVER", "sqlite")),
			Path:     getEnv("DB_PATH", "quotes.db"),
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnvInt("DB_PORT", 5432),
			User:     getEnv("DB_USER", "quotes"),
			Password: getEnv("DB_PASSWORD", "quotes123"),
			DBName:   getEnv("DB_NAME", "quotes"),
			SSLMode:  getEnv("DB_SSLMODE", "disable"),
		},
		App: AppConfig{
			Dev:        getEnvBool("DEV", true),
			Migrations: getEnvBool("MIGRATIONS", false),
			Debug:      getEnvBool("DB_DEBUG", false),
		},
		Storage: StorageConfig{
			Driver: strings.ToLower(getEnv("STORAGE_DRIVER", "sql")),
		},
		Auth: AuthConfig{
			Provider:        strings.ToLower(getEnv("AUTH_PROVIDER", "local")),
			SessionSecret:   getEnv("SESSION_SECRET", ""),
			SupabaseURL:     getEnv("SUPABASE_URL", ""),
			SupabaseAnonKey: getEnv("SUPABASE_ANON_KEY", ""),
			ResetRedirect:   getEnv("RESET_REDIRECT_URL", ""),
		},
		Blob: BlobConfig{
			Driver:      strings.ToLower(getEnv("BLOB_DRIVER", "")),
			FSRoot:      getEnv("BLOB_FS_ROOT", "exports"),
			S3Bucket:    getEnv("BLOB_S3_BUCKET", ""),
			S3Region:    getEnv("BLOB_S3_REGION", "us-east-1"),
			S3Endpoint:  getEnv("BLOB_S3_ENDPOINT", ""),
			S3PathStyle: getEnvBool("BLOB_S3_PATH_STYLE", false),
		},
	}
}

// Validate reports configuration combinations that cannot work.
func (c *Config) Validate() error {
	switch c.Database.Driver {
	case "sqlite", "postgres":
	default:
		return fmt.Errorf("unsupported DB_DRIVER %q", c.Database.Driver)
	}
	switch c.Storage.Driver {
	case "sql", "memory":
	default:
		return fmt.Errorf("unsupported STORAGE_DRIVER %q", c.Storage.Driver)
	}
	switch c.Auth.Provider {
	case "local":
	case "supabase":
		if c.Auth.SupabaseURL == "" || c.Auth.SupabaseAnonKey == "" {
			return fmt.Errorf("AUTH_PROVIDER=supabase requires SUPABASE_URL and SUPABASE_ANON_KEY")
		}
	default:
		return fmt.Errorf("unsupported AUTH_PROVIDER %q", c.Auth.Provider)
	}
	switch c.Blob.Driver {
	case "", "fs":
	case "s3":
		if c.Blob.S3Bucket == "" {
			return fmt.Errorf("BLOB_DRIVER=s3 requires BLOB_S3_BUCKET")
		}
	default:
		return fmt.Errorf("unsupported BLOB_DRIVER %q", c.Blob.Driver)
	}
	if !c.App.Dev && c.Auth.SessionSecret == "" {
		return fmt.Errorf("SESSION_SECRET is required outside dev mode")
	}
	return nil
}

// getEnv returns the value of an environment variable or a default.
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvInt returns the integer value of an environment variable or a default.
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

// getEnvBool returns the boolean value of an environment variable or a default.
// Accepts "1", "true", "yes" as true; everything else is false.
func getEnvBool(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value == "1" || value == "true" || value == "yes"
}
