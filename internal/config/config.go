// Package config loads and validates the application configuration from a
// YAML file, with environment overrides for deployment settings.
package config

import (
	"os"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// StorageConfig selects and parameterizes the persistence backend.
type StorageConfig struct {
	Driver      string `yaml:"driver" validate:"omitempty,oneof=memory sqlite postgres"`
	SQLitePath  string `yaml:"sqlite_path"`
	PostgresDSN string `yaml:"postgres_dsn"`
}

// BlobConfig selects and parameterizes the blob store used for exports.
type BlobConfig struct {
	Driver   string `yaml:"driver" validate:"omitempty,oneof=fs s3 memory"`
	FSRoot   string `yaml:"fs_root"`
	S3Bucket string `yaml:"s3_bucket"`
	S3Region string `yaml:"s3_region"`
}

// ExportConfig parameterizes trajectory exports.
type ExportConfig struct {
	KeyPrefix string `yaml:"key_prefix"`
	PageLimit int    `yaml:"page_limit" validate:"omitempty,min=1,max=10000"`
}

// AppConfig is the top-level configuration document.
type AppConfig struct {
	Storage StorageConfig `yaml:"storage"`
	Blob    BlobConfig    `yaml:"blob"`
	Export  ExportConfig  `yaml:"export"`
}

// Load reads, validates, and defaults the configuration. An empty path tries
// config.yml in the working directory; a missing file yields pure defaults.
// Environment variables override file values:
//
//	MFCORE_STORAGE_DRIVER, MFCORE_SQLITE_PATH, MFCORE_POSTGRES_DSN
//	MFCORE_BLOB_DRIVER, MFCORE_BLOB_FS_ROOT, MFCORE_BLOB_S3_BUCKET
func Load(path string) (AppConfig, error) {
	var cfg AppConfig
	candidates := []string{path}
	if path == "" {
		candidates = []string{"config.yml", "config.yaml"}
	}
	for _, p := range candidates {
		data, err := os.ReadFile(p)
		if err != nil {
			continue
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return AppConfig{}, err
		}
		break
	}
	applyEnv(&cfg)
	applyDefaults(&cfg)
	v := validator.New()
	if err := v.Struct(cfg); err != nil {
		return AppConfig{}, err
	}
	return cfg, nil
}

func applyEnv(cfg *AppConfig) {
	if v := os.Getenv("MFCORE_STORAGE_DRIVER"); v != "" {
		cfg.Storage.Driver = v
	}
	if v := os.Getenv("MFCORE_SQLITE_PATH"); v != "" {
		cfg.Storage.SQLitePath = v
	}
	if v := os.Getenv("MFCORE_POSTGRES_DSN"); v != "" {
		cfg.Storage.PostgresDSN = v
	}
	if v := os.Getenv("MFCORE_BLOB_DRIVER"); v != "" {
		cfg.Blob.Driver = v
	}
	if v := os.Getenv("MFCORE_BLOB_FS_ROOT"); v != "" {
		cfg.Blob.FSRoot = v
	}
	if v := os.Getenv("MFCORE_BLOB_S3_BUCKET"); v != "" {
		cfg.Blob.S3Bucket = v
	}
}

func applyDefaults(cfg *AppConfig) {
	if cfg.Storage.Driver == "" {
		cfg.Storage.Driver = "sqlite"
	}
	if cfg.Storage.SQLitePath == "" {
		cfg.Storage.SQLitePath = "mfcore.db"
	}
	if cfg.Blob.Driver == "" {
		cfg.Blob.Driver = "fs"
	}
	if cfg.Blob.FSRoot == "" {
		cfg.Blob.FSRoot = "./blobdata"
	}
	if cfg.Export.KeyPrefix == "" {
		cfg.Export.KeyPrefix = "collections"
	}
	if cfg.Export.PageLimit == 0 {
		cfg.Export.PageLimit = 100
	}
}
