package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// Storage drivers.
const (
	StorageCSV      = "csv"
	StorageSQLite   = "sqlite"
	StoragePostgres = "postgres"
)

// Backup drivers.
const (
	BackupFS     = "fs"
	BackupS3     = "s3"
	BackupMemory = "memory"
)

type Config struct {
	Env               string `mapstructure:"ENV"`
	LogLevel          string `mapstructure:"LOG_LEVEL"`
	RecordsFile       string `mapstructure:"RECORDS_FILE"`
	StorageDriver     string `mapstructure:"STORAGE_DRIVER"`
	SQLitePath        string `mapstructure:"SQLITE_PATH"`
	DatabaseURL       string `mapstructure:"DATABASE_URL"`
	RoomCount         int    `mapstructure:"ROOM_COUNT"`
	MetricsFile       string `mapstructure:"METRICS_FILE"`
	BackupDriver      string `mapstructure:"BACKUP_DRIVER"`
	BackupFSRoot      string `mapstructure:"BACKUP_FS_ROOT"`
	BackupS3Bucket    string `mapstructure:"BACKUP_S3_BUCKET"`
	BackupS3Region    string `mapstructure:"BACKUP_S3_REGION"`
	BackupS3Endpoint  string `mapstructure:"BACKUP_S3_ENDPOINT"`
	BackupS3PathStyle bool   `mapstructure:"BACKUP_S3_PATH_STYLE"`
	AWSAccessKeyID    string `mapstructure:"AWS_ACCESS_KEY_ID"`
	AWSSecretKey      string `mapstructure:"AWS_SECRET_ACCESS_KEY"`
}

func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigFile(".env")
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("ENV", "development")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("RECORDS_FILE", "patients.csv")
	v.SetDefault("STORAGE_DRIVER", StorageCSV)
	v.SetDefault("SQLITE_PATH", "patients.db")
	v.SetDefault("ROOM_COUNT", 200)
	v.SetDefault("BACKUP_DRIVER", BackupFS)
	v.SetDefault("BACKUP_FS_ROOT", "./backups")
	v.SetDefault("BACKUP_S3_REGION", "us-east-1")
	v.SetDefault("BACKUP_S3_PATH_STYLE", false)

	// Bind env vars explicitly so Unmarshal picks them up
	for _, key := range []string{
		"ENV", "LOG_LEVEL", "RECORDS_FILE", "STORAGE_DRIVER", "SQLITE_PATH",
		"DATABASE_URL", "ROOM_COUNT", "METRICS_FILE", "BACKUP_DRIVER",
		"BACKUP_FS_ROOT", "BACKUP_S3_BUCKET", "BACKUP_S3_REGION",
		"BACKUP_S3_ENDPOINT", "BACKUP_S3_PATH_STYLE",
		"AWS_ACCESS_KEY_ID", "AWS_SECRET_ACCESS_KEY",
	} {
		_ = v.BindEnv(key)
	}

	// Try reading .env file, but don't fail if missing
	_ = v.ReadInConfig()

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	cfg.StorageDriver = strings.ToLower(strings.TrimSpace(cfg.StorageDriver))
	cfg.BackupDriver = strings.ToLower(strings.TrimSpace(cfg.BackupDriver))
	return cfg, nil
}

func (c *Config) IsDev() bool {
	return c.Env == "development"
}

// IsProduction returns true when the tool is configured for production mode.
func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

// StorageDSN returns the data source for the configured storage driver: a
// file path for csv and sqlite, a connection URL for postgres.
func (c *Config) StorageDSN() string {
	switch c.StorageDriver {
	case StorageSQLite:
		return c.SQLitePath
	case StoragePostgres:
		return c.DatabaseURL
	default:
		return c.RecordsFile
	}
}

// Validate checks that the configuration names known drivers and carries the
// settings each driver needs.
func (c *Config) Validate() error {
	switch c.StorageDriver {
	case StorageCSV:
		if c.RecordsFile == "" {
			return fmt.Errorf("RECORDS_FILE is required when STORAGE_DRIVER is %q", StorageCSV)
		}
	case StorageSQLite:
		if c.SQLitePath == "" {
			return fmt.Errorf("SQLITE_PATH is required when STORAGE_DRIVER is %q", StorageSQLite)
		}
	case StoragePostgres:
		if c.DatabaseURL == "" {
			return fmt.Errorf("DATABASE_URL is required when STORAGE_DRIVER is %q", StoragePostgres)
		}
	default:
		return fmt.Errorf("STORAGE_DRIVER must be %q, %q, or %q, got %q", StorageCSV, StorageSQLite, StoragePostgres, c.StorageDriver)
	}

	if c.RoomCount < 1 {
		return fmt.Errorf("ROOM_COUNT must be at least 1, got %d", c.RoomCount)
	}

	switch c.BackupDriver {
	case BackupFS, BackupMemory:
	case BackupS3:
		if c.BackupS3Bucket == "" {
			return fmt.Errorf("BACKUP_S3_BUCKET is required when BACKUP_DRIVER is %q", BackupS3)
		}
	default:
		return fmt.Errorf("BACKUP_DRIVER must be %q, %q, or %q, got %q", BackupFS, BackupS3, BackupMemory, c.BackupDriver)
	}
	return nil
}
