// Package config provides application configuration loading and management.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds application configuration values loaded from .env, a config
// file or environment variables.
type Config struct {
	Port           string        `mapstructure:"PORT"`
	Env            string        `mapstructure:"APP_ENV"`
	LogLevel       string        `mapstructure:"LOG_LEVEL"`
	DBHost         string        `mapstructure:"DB_HOST"`
	DBPort         string        `mapstructure:"DB_PORT"`
	DBUser         string        `mapstructure:"DB_USER"`
	DBPassword     string        `mapstructure:"DB_PASSWORD"`
	DBName         string        `mapstructure:"DB_NAME"`
	DBSSLMode      string        `mapstructure:"DB_SSLMODE"`
	DBMaxOpenConns int           `mapstructure:"DB_MAX_OPEN_CONNS"`
	DBMaxIdleConns int           `mapstructure:"DB_MAX_IDLE_CONNS"`
	JWTSecret      string        `mapstructure:"JWT_SECRET"`
	AllowedOrigins string        `mapstructure:"ALLOWED_ORIGINS"`
	RequestTimeout time.Duration `mapstructure:"REQUEST_TIMEOUT"`
	Storage        Storage       `mapstructure:",squash"`
}

// Storage configures the object store used for avatars, banners and post images.
type Storage struct {
	Endpoint        string `mapstructure:"OSS_ENDPOINT"`
	Region          string `mapstructure:"OSS_REGION"`
	Bucket          string `mapstructure:"OSS_BUCKET"`
	AccessKeyID     string `mapstructure:"OSS_ACCESS_KEY_ID"`
	AccessKeySecret string `mapstructure:"OSS_ACCESS_KEY_SECRET"`
	PublicBaseURL   string `mapstructure:"OSS_PUBLIC_BASE_URL"`
}

// Enabled reports whether enough is configured to reach a bucket.
func (s Storage) Enabled() bool {
	return s.Bucket != "" && s.Region != ""
}

var keys = []string{
	"PORT", "APP_ENV", "LOG_LEVEL",
	"DB_HOST", "DB_PORT", "DB_USER", "DB_PASSWORD", "DB_NAME", "DB_SSLMODE",
	"DB_MAX_OPEN_CONNS", "DB_MAX_IDLE_CONNS",
	"JWT_SECRET", "ALLOWED_ORIGINS", "REQUEST_TIMEOUT",
	"OSS_ENDPOINT", "OSS_REGION", "OSS_BUCKET", "OSS_ACCESS_KEY_ID",
	"OSS_ACCESS_KEY_SECRET", "OSS_PUBLIC_BASE_URL",
}

// Load reads an optional .env file, then config.yml, then the environment.
func Load() (*Config, error) {
	// A missing .env is normal outside local development.
	_ = godotenv.Load()

	v := viper.New()
	v.AddConfigPath(".")
	v.SetConfigName("config")
	v.SetConfigType("yml")
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
	}

	v.SetDefault("PORT", "8080")
	v.SetDefault("APP_ENV", "development")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", "5432")
	v.SetDefault("DB_USER", "postgres")
	v.SetDefault("DB_PASSWORD", "postgres")
	v.SetDefault("DB_NAME", "asksenior")
	v.SetDefault("DB_SSLMODE", "disable")
	v.SetDefault("DB_MAX_OPEN_CONNS", 100)
	v.SetDefault("DB_MAX_IDLE_CONNS", 10)
	v.SetDefault("JWT_SECRET", "")
	v.SetDefault("ALLOWED_ORIGINS", "http://localhost:5173,http://localhost:5174")
	v.SetDefault("REQUEST_TIMEOUT", "10s")
	v.SetDefault("OSS_ENDPOINT", "")
	v.SetDefault("OSS_REGION", "")
	v.SetDefault("OSS_BUCKET", "")
	v.SetDefault("OSS_ACCESS_KEY_ID", "")
	v.SetDefault("OSS_ACCESS_KEY_SECRET", "")
	v.SetDefault("OSS_PUBLIC_BASE_URL", "")

	// AutomaticEnv only applies to keys viper already knows about.
	for _, key := range keys {
		if err := v.BindEnv(key); err != nil {
			return nil, fmt.Errorf("binding %s: %w", key, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks the settings that have no safe default.
func (c *Config) Validate() error {
	if c.JWTSecret == "" && !c.IsDevelopment() {
		return errors.New("JWT_SECRET must be set outside development")
	}
	if c.RequestTimeout <= 0 {
		return fmt.Errorf("REQUEST_TIMEOUT must be positive, got %s", c.RequestTimeout)
	}
	return nil
}

func (c *Config) IsDevelopment() bool {
	return c.Env == "" || c.Env == "development" || c.Env == "test"
}

// Origins splits ALLOWED_ORIGINS into a list.
func (c *Config) Origins() []string {
	var out []string
	for _, o := range strings.Split(c.AllowedOrigins, ",") {
		if o = strings.TrimSpace(o); o != "" {
			out = append(out, o)
		}
	}
	return out
}

// DSN builds the Postgres connection string.
func (c *Config) DSN() string {
	return fmt.Sprintf(
		"host=%s user=%s password=%s dbname=%s port=%s sslmode=%s TimeZone=UTC",
		c.DBHost, c.DBUser, c.DBPassword, c.DBName, c.DBPort, c.DBSSLMode,
	)
}
