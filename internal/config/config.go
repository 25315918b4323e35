package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config represents the application configuration
type Config struct {
	Server        ServerConfig        `json:"server"`
	Database      DatabaseConfig      `json:"database"`
	SettingsStore SettingsStoreConfig `json:"settings_store"`
	Storage       StorageConfig       `json:"storage"`
	AWS           AWSConfig           `json:"aws"`
	Notifications NotificationsConfig `json:"notifications"`
	Security      SecurityConfig      `json:"security"`
	Logging       LoggingConfig       `json:"logging"`
	Certificate   CertificateConfig   `json:"certificate"`
}

// ServerConfig represents server configuration
type ServerConfig struct {
	Host            string        `json:"host"`
	Port            int           `json:"port"`
	ReadTimeout     time.Duration `json:"read_timeout"`
	WriteTimeout    time.Duration `json:"write_timeout"`
	IdleTimeout     time.Duration `json:"idle_timeout"`
	ShutdownTimeout time.Duration `json:"shutdown_timeout"`
}

// DatabaseConfig represents database configuration. An empty Host disables
// Postgres and the in-memory stores are used.
type DatabaseConfig struct {
	Host           string        `json:"host"`
	Port           int           `json:"port"`
	User           string        `json:"user"`
	Password       string        `json:"password"`
	DBName         string        `json:"db_name"`
	SSLMode        string        `json:"ssl_mode"`
	MaxConnections int           `json:"max_connections"`
	MaxIdleConns   int           `json:"max_idle_conns"`
	MaxLifetime    time.Duration `json:"max_lifetime"`
}

// Settings store backends.
const (
	BackendMemory   = "memory"
	BackendPostgres = "postgres"
	BackendDynamoDB = "dynamodb"
)

// SettingsStoreConfig selects where certificate settings live.
type SettingsStoreConfig struct {
	Backend string `json:"backend"`
	Table   string `json:"table"`
	Key     string `json:"key"`
}

// StorageConfig configures the S3 certificate archive. An empty bucket disables archiving.
type StorageConfig struct {
	ArchiveBucket string        `json:"archive_bucket"`
	PresignTTL    time.Duration `json:"presign_ttl"`
}

type AWSConfig struct {
	Region          string `json:"region"`
	Endpoint        string `json:"endpoint"`
	AccessKeyID     string `json:"access_key_id"`
	SecretAccessKey string `json:"secret_access_key"`
}

// NotificationsConfig enables SES e-mail when EmailFrom is set and SNS events
// when TopicARN is set.
type NotificationsConfig struct {
	EmailFrom     string `json:"email_from"`
	EmailFromName string `json:"email_from_name"`
	TopicARN      string `json:"topic_arn"`
}

type SecurityConfig struct {
	JWTSecret          string `json:"jwt_secret"`
	VerificationSecret string `json:"verification_secret"`
}

type LoggingConfig struct {
	Level string `json:"level"`
}

// CertificateConfig tunes rendering.
type CertificateConfig struct {
	HeadingFontFamily    string        `json:"heading_font_family"`
	HeadingFontFile      string        `json:"heading_font_file"`
	DecorativeFontFamily string        `json:"decorative_font_family"`
	DecorativeFontFile   string        `json:"decorative_font_file"`
	DefaultBackground    string        `json:"default_background"`
	SignatureWidthPx     float64       `json:"signature_width_px"`
	SignatureHeightPx    float64       `json:"signature_height_px"`
	LogoWidthPx          float64       `json:"logo_width_px"`
	AssetTimeout         time.Duration `json:"asset_timeout"`
	AssetCacheTTL        time.Duration `json:"asset_cache_ttl"`
	Author               string        `json:"author"`
}

// LoadConfig loads configuration from a .env file, the JSON file and
// environment variables, in that order of increasing precedence.
func LoadConfig(configPath string) (*Config, error) {
	// .env is optional
	_ = godotenv.Load()

	config := defaults()

	if configPath != "" {
		if data, err := os.ReadFile(configPath); err == nil {
			if err := json.Unmarshal(data, config); err != nil {
				return nil, fmt.Errorf("failed to parse config file: %w", err)
			}
		}
	}

	overrideWithEnv(config)

	if err := config.Validate(); err != nil {
		return nil, err
	}
	return config, nil
}

func defaults() *Config {
	return &Config{
		Server: ServerConfig{
			Host:            "0.0.0.0",
			Port:            8080,
			ReadTimeout:     15 * time.Second,
			WriteTimeout:    30 * time.Second,
			IdleTimeout:     60 * time.Second,
			ShutdownTimeout: 5 * time.Second,
		},
		Database: DatabaseConfig{
			Port:           5432,
			DBName:         "coursecert",
			SSLMode:        "disable",
			MaxConnections: 25,
			MaxIdleConns:   5,
			MaxLifetime:    5 * time.Minute,
		},
		SettingsStore: SettingsStoreConfig{
			Backend: BackendMemory,
			Table:   "certificate_settings",
			Key:     "default",
		},
		Storage: StorageConfig{
			PresignTTL: 15 * time.Minute,
		},
		AWS: AWSConfig{
			Region: "us-east-1",
		},
		Notifications: NotificationsConfig{
			EmailFromName: "Certificates",
		},
		Logging: LoggingConfig{
			Level: "info",
		},
		Certificate: CertificateConfig{
			SignatureWidthPx:  340,
			SignatureHeightPx: 80,
			LogoWidthPx:       200,
			AssetTimeout:      10 * time.Second,
			AssetCacheTTL:     10 * time.Minute,
			Author:            "Certificates",
		},
	}
}

func overrideWithEnv(config *Config) {
	setString(&config.Server.Host, "SERVER_HOST")
	setInt(&config.Server.Port, "SERVER_PORT")

	setString(&config.Database.Host, "DATABASE_HOST")
	setInt(&config.Database.Port, "DATABASE_PORT")
	setString(&config.Database.User, "DATABASE_USER")
	setString(&config.Database.Password, "DATABASE_PASSWORD")
	setString(&config.Database.DBName, "DATABASE_DBNAME")
	setString(&config.Database.SSLMode, "DATABASE_SSLMODE")

	setString(&config.SettingsStore.Backend, "SETTINGS_BACKEND")
	setString(&config.SettingsStore.Table, "SETTINGS_TABLE")
	setString(&config.SettingsStore.Key, "SETTINGS_KEY")

	setString(&config.Storage.ArchiveBucket, "ARCHIVE_BUCKET")
	setDuration(&config.Storage.PresignTTL, "ARCHIVE_PRESIGN_TTL")

	setString(&config.AWS.Region, "AWS_REGION")
	setString(&config.AWS.Endpoint, "AWS_ENDPOINT_URL")
	setString(&config.AWS.AccessKeyID, "AWS_ACCESS_KEY_ID")
	setString(&config.AWS.SecretAccessKey, "AWS_SECRET_ACCESS_KEY")

	setString(&config.Notifications.EmailFrom, "EMAIL_FROM")
	setString(&config.Notifications.EmailFromName, "EMAIL_FROM_NAME")
	setString(&config.Notifications.TopicARN, "CERTIFICATE_TOPIC_ARN")

	setString(&config.Security.JWTSecret, "JWT_SECRET")
	setString(&config.Security.VerificationSecret, "VERIFICATION_SECRET")

	setString(&config.Logging.Level, "LOG_LEVEL")

	setString(&config.Certificate.HeadingFontFamily, "CERT_HEADING_FONT_FAMILY")
	setString(&config.Certificate.HeadingFontFile, "CERT_HEADING_FONT_FILE")
	setString(&config.Certificate.DecorativeFontFamily, "CERT_FONT_FAMILY")
	setString(&config.Certificate.DecorativeFontFile, "CERT_FONT_FILE")
	setString(&config.Certificate.DefaultBackground, "CERT_DEFAULT_BACKGROUND")
	setDuration(&config.Certificate.AssetTimeout, "CERT_ASSET_TIMEOUT")
	setDuration(&config.Certificate.AssetCacheTTL, "CERT_ASSET_CACHE_TTL")
}

func setString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func setDuration(dst *time.Duration, key string) {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			*dst = d
		}
	}
}

// Validate checks the settings that would otherwise fail at request time.
func (c *Config) Validate() error {
	switch strings.ToLower(c.SettingsStore.Backend) {
	case BackendMemory:
	case BackendPostgres:
		if c.Database.Host == "" {
			return fmt.Errorf("settings backend %q requires database.host", c.SettingsStore.Backend)
		}
	case BackendDynamoDB:
		if c.SettingsStore.Table == "" {
			return fmt.Errorf("settings backend %q requires settings_store.table", c.SettingsStore.Backend)
		}
	default:
		return fmt.Errorf("unknown settings backend %q", c.SettingsStore.Backend)
	}

	if c.Security.JWTSecret == "" {
		return fmt.Errorf("security.jwt_secret is required")
	}

	if c.Certificate.DecorativeFontFile != "" && c.Certificate.DecorativeFontFamily == "" {
		return fmt.Errorf("certificate.decorative_font_file requires decorative_font_family")
	}
	if c.Certificate.HeadingFontFile != "" && c.Certificate.HeadingFontFamily == "" {
		return fmt.Errorf("certificate.heading_font_file requires heading_font_family")
	}
	return nil
}

// UsesAWS reports whether any AWS-backed collaborator is configured.
func (c *Config) UsesAWS() bool {
	return c.Storage.ArchiveBucket != "" ||
		c.Notifications.EmailFrom != "" ||
		c.Notifications.TopicARN != "" ||
		strings.EqualFold(c.SettingsStore.Backend, BackendDynamoDB) ||
		strings.HasPrefix(c.Certificate.DefaultBackground, "s3://")
}

// GetDatabaseURL returns the database connection string
func (c *DatabaseConfig) GetDatabaseURL() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.User, c.Password, c.Host, c.Port, c.DBName, c.SSLMode)
}

// GetServerAddr returns the server address
func (c *ServerConfig) GetServerAddr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}
