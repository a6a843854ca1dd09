package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/BurntSushi/toml"
)

type Config struct {
	Server   ServerConfig   `toml:"server"`
	Database DatabaseConfig `toml:"database"`
	JWT      JWTConfig      `toml:"jwt"`
	Storage  StorageConfig  `toml:"storage"`
	Redis    RedisConfig    `toml:"redis"`
	Booking  BookingConfig  `toml:"booking"`
	Log      LogConfig      `toml:"log"`
	Metrics  MetricsConfig  `toml:"metrics"`
}

type ServerConfig struct {
	Port            string   `toml:"port"`
	GinMode         string   `toml:"gin_mode"`
	ReadTimeout     int      `toml:"read_timeout"`
	WriteTimeout    int      `toml:"write_timeout"`
	ShutdownTimeout int      `toml:"shutdown_timeout"`
	AllowedOrigins  []string `toml:"allowed_origins"`
}

type DatabaseConfig struct {
	URL          string `toml:"url"`
	MaxOpenConns int    `toml:"max_open_conns"`
	MaxIdleConns int    `toml:"max_idle_conns"`
	Seed         bool   `toml:"seed"`
	AdminEmail   string `toml:"admin_email"`
	AdminPass    string `toml:"admin_password"`
}

type JWTConfig struct {
	Secret      string `toml:"secret"`
	ExpiryHours int    `toml:"expiry_hours"`
	RefreshDays int    `toml:"refresh_days"`
	CookieName  string `toml:"cookie_name"`
}

type StorageConfig struct {
	Driver              string `toml:"driver"` // local or cloudinary
	UploadDir           string `toml:"upload_dir"`
	PublicBaseURL       string `toml:"public_base_url"`
	CloudinaryCloudName string `toml:"cloudinary_cloud_name"`
	CloudinaryAPIKey    string `toml:"cloudinary_api_key"`
	CloudinaryAPISecret string `toml:"cloudinary_api_secret"`
	CloudinaryFolder    string `toml:"cloudinary_folder"`
}

type RedisConfig struct {
	Address         string `toml:"address"`
	Password        string `toml:"password"`
	DB              int    `toml:"db"`
	SlotCacheTTLSec int    `toml:"slot_cache_ttl"`
}

type BookingConfig struct {
	CancellationLimit int `toml:"cancellation_limit"`
}

type LogConfig struct {
	Level  string `toml:"level"`
	Pretty bool   `toml:"pretty"`
}

type MetricsConfig struct {
	Enabled bool   `toml:"enabled"`
	Path    string `toml:"path"`
}

var AppConfig *Config

// Load builds the configuration. A TOML file named by CONFIG_FILE is read
// first; environment variables win over it.
func Load() (*Config, error) {
	cfg := defaults()

	if path := os.Getenv("CONFIG_FILE"); path != "" {
		if _, err := toml.DecodeFile(path, cfg); err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}
	}

	applyEnv(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	AppConfig = cfg
	return cfg, nil
}

func defaults() *Config {
	return &Config{
		Server: ServerConfig{
			Port:            "8080",
			GinMode:         "debug",
			ReadTimeout:     15,
			WriteTimeout:    30,
			ShutdownTimeout: 10,
			AllowedOrigins:  []string{"http://localhost:3000", "http://localhost:5173"},
		},
		Database: DatabaseConfig{
			MaxOpenConns: 100,
			MaxIdleConns: 10,
		},
		JWT: JWTConfig{
			Secret:      "your-super-secret-jwt-key-change-this-in-production",
			ExpiryHours: 24,
			RefreshDays: 30,
			CookieName:  "token",
		},
		Storage: StorageConfig{
			Driver:           "local",
			UploadDir:        "uploads",
			PublicBaseURL:    "/uploads",
			CloudinaryFolder: "bookings/proofs",
		},
		Redis: RedisConfig{
			SlotCacheTTLSec: 60,
		},
		Booking: BookingConfig{
			CancellationLimit: 3,
		},
		Log: LogConfig{
			Level: "info",
		},
		Metrics: MetricsConfig{
			Enabled: true,
			Path:    "/metrics",
		},
	}
}

func applyEnv(cfg *Config) {
	cfg.Server.Port = getEnv("PORT", cfg.Server.Port)
	cfg.Server.GinMode = getEnv("GIN_MODE", cfg.Server.GinMode)
	cfg.Server.ReadTimeout = getEnvAsInt("SERVER_READ_TIMEOUT", cfg.Server.ReadTimeout)
	cfg.Server.WriteTimeout = getEnvAsInt("SERVER_WRITE_TIMEOUT", cfg.Server.WriteTimeout)
	cfg.Server.ShutdownTimeout = getEnvAsInt("SERVER_SHUTDOWN_TIMEOUT", cfg.Server.ShutdownTimeout)
	cfg.Server.AllowedOrigins = getEnvAsList("ALLOWED_ORIGINS", cfg.Server.AllowedOrigins)

	cfg.Database.URL = getEnv("DB_URL", cfg.Database.URL)
	cfg.Database.MaxOpenConns = getEnvAsInt("DB_MAX_OPEN_CONNS", cfg.Database.MaxOpenConns)
	cfg.Database.MaxIdleConns = getEnvAsInt("DB_MAX_IDLE_CONNS", cfg.Database.MaxIdleConns)
	cfg.Database.Seed = getEnvAsBool("DB_SEED", cfg.Database.Seed)
	cfg.Database.AdminEmail = getEnv("ADMIN_EMAIL", cfg.Database.AdminEmail)
	cfg.Database.AdminPass = getEnv("ADMIN_PASSWORD", cfg.Database.AdminPass)

	cfg.JWT.Secret = getEnv("JWT_SECRET", cfg.JWT.Secret)
	cfg.JWT.ExpiryHours = getEnvAsInt("JWT_EXPIRY_HOURS", cfg.JWT.ExpiryHours)
	cfg.JWT.RefreshDays = getEnvAsInt("JWT_REFRESH_DAYS", cfg.JWT.RefreshDays)
	cfg.JWT.CookieName = getEnv("JWT_COOKIE_NAME", cfg.JWT.CookieName)

	cfg.Storage.Driver = getEnv("STORAGE_DRIVER", cfg.Storage.Driver)
	cfg.Storage.UploadDir = getEnv("UPLOAD_DIR", cfg.Storage.UploadDir)
	cfg.Storage.PublicBaseURL = getEnv("UPLOAD_PUBLIC_BASE_URL", cfg.Storage.PublicBaseURL)
	cfg.Storage.CloudinaryCloudName = getEnv("CLOUDINARY_CLOUD_NAME", cfg.Storage.CloudinaryCloudName)
	cfg.Storage.CloudinaryAPIKey = getEnv("CLOUDINARY_API_KEY", cfg.Storage.CloudinaryAPIKey)
	cfg.Storage.CloudinaryAPISecret = getEnv("CLOUDINARY_API_SECRET", cfg.Storage.CloudinaryAPISecret)
	cfg.Storage.CloudinaryFolder = getEnv("CLOUDINARY_FOLDER", cfg.Storage.CloudinaryFolder)

	cfg.Redis.Address = getEnv("REDIS_ADDR", cfg.Redis.Address)
	cfg.Redis.Password = getEnv("REDIS_PASSWORD", cfg.Redis.Password)
	cfg.Redis.DB = getEnvAsInt("REDIS_DB", cfg.Redis.DB)
	cfg.Redis.SlotCacheTTLSec = getEnvAsInt("SLOT_CACHE_TTL", cfg.Redis.SlotCacheTTLSec)

	cfg.Booking.CancellationLimit = getEnvAsInt("CANCELLATION_LIMIT", cfg.Booking.CancellationLimit)

	cfg.Log.Level = getEnv("LOG_LEVEL", cfg.Log.Level)
	cfg.Log.Pretty = getEnvAsBool("LOG_PRETTY", cfg.Log.Pretty)

	cfg.Metrics.Enabled = getEnvAsBool("METRICS_ENABLED", cfg.Metrics.Enabled)
	cfg.Metrics.Path = getEnv("METRICS_PATH", cfg.Metrics.Path)
}

// Validate rejects configurations the server cannot start with.
func (c *Config) Validate() error {
	if c.Database.URL == "" {
		return fmt.Errorf("DB_URL is required. Set DB_URL to a valid Postgres URL")
	}
	if c.JWT.Secret == "" {
		return fmt.Errorf("JWT_SECRET must not be empty")
	}
	if c.Booking.CancellationLimit < 1 {
		return fmt.Errorf("cancellation limit must be positive, got %d", c.Booking.CancellationLimit)
	}
	switch c.Storage.Driver {
	case "local":
	case "cloudinary":
		if c.Storage.CloudinaryCloudName == "" || c.Storage.CloudinaryAPIKey == "" || c.Storage.CloudinaryAPISecret == "" {
			return fmt.Errorf("cloudinary storage needs CLOUDINARY_CLOUD_NAME, CLOUDINARY_API_KEY and CLOUDINARY_API_SECRET")
		}
	default:
		return fmt.Errorf("unknown storage driver %q", c.Storage.Driver)
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

func getEnvAsList(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
