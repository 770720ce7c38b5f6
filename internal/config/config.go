package config

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"time"

	"lost-found-backend/internal/models"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds all configuration for the application
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Database DatabaseConfig `yaml:"database"`
	AWS      AWSConfig      `yaml:"aws"`
	JWT      JWTConfig      `yaml:"jwt"`
	Log      LogConfig      `yaml:"log"`
	Report   ReportConfig   `yaml:"report"`
	Upload   UploadConfig   `yaml:"upload"`
}

// ServerConfig holds server configuration
type ServerConfig struct {
	Port          int    `yaml:"port"`
	Host          string `yaml:"host"`
	SecureCookies bool   `yaml:"secure_cookies"`
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	DBName   string `yaml:"dbname"`
	SSLMode  string `yaml:"sslmode"`
	Migrate  bool   `yaml:"migrate"`
}

// AWSConfig holds object storage configuration
type AWSConfig struct {
	Region        string `yaml:"region"`
	S3Bucket      string `yaml:"s3_bucket"`
	AccessKey     string `yaml:"access_key"`
	SecretKey     string `yaml:"secret_key"`
	Endpoint      string `yaml:"endpoint"`        // S3-compatible providers
	UsePathStyle  bool   `yaml:"use_path_style"`  // required by most S3-compatible providers
	PublicBaseURL string `yaml:"public_base_url"` // CDN or bucket website in front of the bucket
}

// JWTConfig holds JWT configuration
type JWTConfig struct {
	Secret string        `yaml:"secret"`
	Expiry time.Duration `yaml:"expiry"`
}

// LogConfig holds logging configuration
type LogConfig struct {
	Level string `yaml:"level"`
}

// ReportConfig holds item report policy
type ReportConfig struct {
	MaxPhotos     int  `yaml:"max_photos"`
	RequirePhotos bool `yaml:"require_photos"`
	RecentLimit   int  `yaml:"recent_limit"`
}

// UploadConfig bounds uploaded files
type UploadConfig struct {
	MaxPhotoBytes int64 `yaml:"max_photo_bytes"`
	Concurrency   int   `yaml:"concurrency"`
}

const (
	defaultPort          = 8080
	defaultRecentLimit   = 6
	defaultMaxPhotoBytes = 10 << 20
	defaultJWTExpiry     = 7 * 24 * time.Hour
)

// Load reads configuration from a YAML file. A .env file in the working
// directory is loaded first, if present, so secrets can stay out of YAML.
func Load(path string) (*Config, error) {
	_ = godotenv.Load()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg, err := Parse(data)
	if err != nil {
		return nil, err
	}
	cfg.applyEnv()
	return cfg, nil
}

// Parse decodes YAML and fills defaults
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}
	cfg.applyDefaults()
	return &cfg, nil
}

// Path returns the config file path, overridable with LOSTFOUND_CONFIG
func Path() string {
	if p := os.Getenv("LOSTFOUND_CONFIG"); p != "" {
		return p
	}
	return "config.yaml"
}

func (c *Config) applyDefaults() {
	if c.Server.Port == 0 {
		c.Server.Port = defaultPort
	}
	if c.Database.Port == 0 {
		c.Database.Port = 5432
	}
	if c.Database.SSLMode == "" {
		c.Database.SSLMode = "disable"
	}
	if c.JWT.Expiry <= 0 {
		c.JWT.Expiry = defaultJWTExpiry
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Report.MaxPhotos <= 0 || c.Report.MaxPhotos > models.MaxItemPhotos {
		c.Report.MaxPhotos = models.MaxItemPhotos
	}
	if c.Report.RecentLimit <= 0 {
		c.Report.RecentLimit = defaultRecentLimit
	}
	if c.Upload.MaxPhotoBytes <= 0 {
		c.Upload.MaxPhotoBytes = defaultMaxPhotoBytes
	}
	if c.Upload.Concurrency <= 0 {
		c.Upload.Concurrency = 1
	}
}

func (c *Config) applyEnv() {
	if v := os.Getenv("LOSTFOUND_DATABASE_PASSWORD"); v != "" {
		c.Database.Password = v
	}
	if v := os.Getenv("LOSTFOUND_JWT_SECRET"); v != "" {
		c.JWT.Secret = v
	}
	if v := os.Getenv("LOSTFOUND_AWS_ACCESS_KEY"); v != "" {
		c.AWS.AccessKey = v
	}
	if v := os.Getenv("LOSTFOUND_AWS_SECRET_KEY"); v != "" {
		c.AWS.SecretKey = v
	}
	if v := os.Getenv("LOSTFOUND_SERVER_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			c.Server.Port = port
		}
	}
}

// DSN returns the PostgreSQL connection string
func (c *DatabaseConfig) DSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.DBName, c.SSLMode)
}

// MigrateURL returns the connection URL understood by the pgx/v5 migrate driver
func (c *DatabaseConfig) MigrateURL() string {
	u := url.URL{
		Scheme:   "pgx5",
		User:     url.UserPassword(c.User, c.Password),
		Host:     fmt.Sprintf("%s:%d", c.Host, c.Port),
		Path:     "/" + c.DBName,
		RawQuery: "sslmode=" + url.QueryEscape(c.SSLMode),
	}
	return u.String()
}
