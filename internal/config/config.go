// Package config loads the ifcquery configuration from an optional YAML file
// followed by IFCQUERY_* environment overrides.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"ifcquery/internal/engine"
)

// EnvPrefix prefixes every environment override.
const EnvPrefix = "IFCQUERY_"

// Blob drivers.
const (
	BlobFilesystem = "fs"
	BlobS3         = "s3"
	BlobMemory     = "memory"
)

// Persistence drivers.
const (
	PersistenceNone     = "none"
	PersistenceMemory   = "memory"
	PersistenceSQLite   = "sqlite"
	PersistencePostgres = "postgres"
)

// Metrics drivers.
const (
	MetricsPrometheus = "prometheus"
	MetricsExpvar     = "expvar"
)

// Config is the complete service configuration.
type Config struct {
	Server      ServerConfig      `yaml:"server"`
	Log         LogConfig         `yaml:"log"`
	Query       QueryConfig       `yaml:"query"`
	Blob        BlobConfig        `yaml:"blob"`
	Persistence PersistenceConfig `yaml:"persistence"`
	Metrics     MetricsConfig     `yaml:"metrics"`
}

type ServerConfig struct {
	Addr            string        `yaml:"addr"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
	// ExportQueue bounds pending export jobs.
	ExportQueue int `yaml:"export_queue"`
}

type LogConfig struct {
	Mode  string `yaml:"mode"`
	Level string `yaml:"level"`
	// Audit logs one line per model load, unload and query.
	Audit bool `yaml:"audit"`
}

// QueryConfig tunes every session the service opens.
type QueryConfig struct {
	SpaceMatch string   `yaml:"space_match"`
	MEPTypes   []string `yaml:"mep_types"`
}

type BlobConfig struct {
	Driver string   `yaml:"driver"`
	FSRoot string   `yaml:"fs_root"`
	S3     S3Config `yaml:"s3"`
}

// S3Config addresses the bucket used for models and exports. Credentials
// fall back to the default AWS chain when empty.
type S3Config struct {
	Bucket          string `yaml:"bucket"`
	Region          string `yaml:"region"`
	Endpoint        string `yaml:"endpoint"`
	PathStyle       bool   `yaml:"path_style"`
	AccessKeyID     string `yaml:"access_key_id"`
	SecretAccessKey string `yaml:"secret_access_key"`
}

type PersistenceConfig struct {
	Driver      string `yaml:"driver"`
	SQLitePath  string `yaml:"sqlite_path"`
	PostgresDSN string `yaml:"postgres_dsn"`
}

type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"`
	Driver  string `yaml:"driver"`
	Path    string `yaml:"path"`
}

// Default returns the configuration used when nothing overrides it.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Addr:            ":8080",
			ShutdownTimeout: 10 * time.Second,
			ExportQueue:     16,
		},
		Log:         LogConfig{Mode: "dev", Level: "info"},
		Query:       QueryConfig{SpaceMatch: string(engine.SpaceMatchSubstring)},
		Blob:        BlobConfig{Driver: BlobFilesystem, FSRoot: "./data/blobs", S3: S3Config{Region: "us-east-1"}},
		Persistence: PersistenceConfig{Driver: PersistenceNone, SQLitePath: "./data/ifcquery.db"},
		Metrics:     MetricsConfig{Enabled: true, Driver: MetricsPrometheus, Path: "/metrics"},
	}
}

// Load layers defaults, the YAML file at path (skipped when path is empty)
// and environment overrides, then validates the result.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config file: %w", err)
		}
	}
	if err := cfg.ApplyEnv(os.LookupEnv); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// ApplyEnv overrides fields from IFCQUERY_* variables resolved by lookup.
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) error {
	strs := map[string]*string{
		"SERVER_ADDR":           &c.Server.Addr,
		"LOG_MODE":              &c.Log.Mode,
		"LOG_LEVEL":             &c.Log.Level,
		"QUERY_SPACE_MATCH":     &c.Query.SpaceMatch,
		"BLOB_DRIVER":           &c.Blob.Driver,
		"BLOB_FS_ROOT":          &c.Blob.FSRoot,
		"BLOB_S3_BUCKET":        &c.Blob.S3.Bucket,
		"BLOB_S3_REGION":        &c.Blob.S3.Region,
		"BLOB_S3_ENDPOINT":      &c.Blob.S3.Endpoint,
		"BLOB_S3_ACCESS_KEY_ID": &c.Blob.S3.AccessKeyID,
		"BLOB_S3_SECRET":        &c.Blob.S3.SecretAccessKey,
		"PERSISTENCE_DRIVER":    &c.Persistence.Driver,
		"PERSISTENCE_SQLITE":    &c.Persistence.SQLitePath,
		"PERSISTENCE_DSN":       &c.Persistence.PostgresDSN,
		"METRICS_DRIVER":        &c.Metrics.Driver,
		"METRICS_PATH":          &c.Metrics.Path,
	}
	for name, dst := range strs {
		if v, ok := lookup(EnvPrefix + name); ok {
			*dst = strings.TrimSpace(v)
		}
	}
	bools := map[string]*bool{
		"BLOB_S3_PATH_STYLE": &c.Blob.S3.PathStyle,
		"METRICS_ENABLED":    &c.Metrics.Enabled,
		"LOG_AUDIT":          &c.Log.Audit,
	}
	for name, dst := range bools {
		if v, ok := lookup(EnvPrefix + name); ok {
			b, err := strconv.ParseBool(strings.TrimSpace(v))
			if err != nil {
				return fmt.Errorf("%s%s: %w", EnvPrefix, name, err)
			}
			*dst = b
		}
	}
	if v, ok := lookup(EnvPrefix + "QUERY_MEP_TYPES"); ok {
		c.Query.MEPTypes = splitList(v)
	}
	if v, ok := lookup(EnvPrefix + "SERVER_EXPORT_QUEUE"); ok {
		n, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			return fmt.Errorf("%sSERVER_EXPORT_QUEUE: %w", EnvPrefix, err)
		}
		c.Server.ExportQueue = n
	}
	return nil
}

func splitList(v string) []string {
	var out []string
	for _, part := range strings.Split(v, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// Validate rejects unknown enum values and missing driver settings.
func (c *Config) Validate() error {
	if c.Server.Addr == "" {
		return fmt.Errorf("server.addr is required")
	}
	if c.Server.ExportQueue <= 0 {
		return fmt.Errorf("server.export_queue must be positive")
	}
	switch strings.ToLower(c.Log.Mode) {
	case "dev", "development", "prod", "production":
	default:
		return fmt.Errorf("log.mode %q must be dev or prod", c.Log.Mode)
	}
	if !engine.SpaceMatch(c.Query.SpaceMatch).Valid() {
		return fmt.Errorf("query.space_match %q must be substring, equal or exact", c.Query.SpaceMatch)
	}
	switch c.Blob.Driver {
	case BlobFilesystem:
		if c.Blob.FSRoot == "" {
			return fmt.Errorf("blob.fs_root is required for the fs driver")
		}
	case BlobS3:
		if c.Blob.S3.Bucket == "" {
			return fmt.Errorf("blob.s3.bucket is required for the s3 driver")
		}
	case BlobMemory:
	default:
		return fmt.Errorf("unknown blob driver %q", c.Blob.Driver)
	}
	switch c.Persistence.Driver {
	case PersistenceNone, PersistenceMemory:
	case PersistenceSQLite:
		if c.Persistence.SQLitePath == "" {
			return fmt.Errorf("persistence.sqlite_path is required for the sqlite driver")
		}
	case PersistencePostgres:
		if c.Persistence.PostgresDSN == "" {
			return fmt.Errorf("persistence.postgres_dsn is required for the postgres driver")
		}
	default:
		return fmt.Errorf("unknown persistence driver %q", c.Persistence.Driver)
	}
	if c.Metrics.Enabled {
		switch c.Metrics.Driver {
		case MetricsPrometheus, MetricsExpvar:
		default:
			return fmt.Errorf("unknown metrics driver %q", c.Metrics.Driver)
		}
		if !strings.HasPrefix(c.Metrics.Path, "/") {
			return fmt.Errorf("metrics.path must start with /")
		}
	}
	return nil
}

// SessionOptions converts the query settings for engine.NewSession.
func (c *Config) SessionOptions() engine.Options {
	return engine.Options{
		SpaceMatch: engine.SpaceMatch(c.Query.SpaceMatch),
		MEPTypes:   append([]string(nil), c.Query.MEPTypes...),
	}
}
