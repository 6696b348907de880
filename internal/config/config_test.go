package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ifcquery/internal/engine"
)

func envMap(m map[string]string) func(string) (string, bool) {
	return func(k string) (string, bool) {
		v, ok := m[k]
		return v, ok
	}
}

func TestDefaultIsValid(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, ":8080", cfg.Server.Addr)
	assert.Equal(t, BlobFilesystem, cfg.Blob.Driver)
	assert.Equal(t, PersistenceNone, cfg.Persistence.Driver)
	assert.Equal(t, engine.SpaceMatchSubstring, cfg.SessionOptions().SpaceMatch)
}

func TestLoadLayersFileThenEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ifcquery.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
server:
  addr: ":9090"
  shutdown_timeout: 3s
query:
  space_match: equal
  mep_types: [IfcPipeSegment]
blob:
  driver: memory
persistence:
  driver: sqlite
  sqlite_path: /tmp/x.db
`), 0o600))

	t.Setenv("IFCQUERY_SERVER_ADDR", ":7070")
	t.Setenv("IFCQUERY_METRICS_ENABLED", "false")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, ":7070", cfg.Server.Addr)
	assert.Equal(t, 3*time.Second, cfg.Server.ShutdownTimeout)
	assert.Equal(t, "equal", cfg.Query.SpaceMatch)
	assert.Equal(t, []string{"IfcPipeSegment"}, cfg.SessionOptions().MEPTypes)
	assert.Equal(t, BlobMemory, cfg.Blob.Driver)
	assert.Equal(t, "/tmp/x.db", cfg.Persistence.SQLitePath)
	assert.False(t, cfg.Metrics.Enabled)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.Error(t, err)
}

func TestApplyEnvParsesListsAndBools(t *testing.T) {
	cfg := Default()
	err := cfg.ApplyEnv(envMap(map[string]string{
		"IFCQUERY_QUERY_MEP_TYPES":     " IfcOutlet , ,IfcPump",
		"IFCQUERY_BLOB_S3_PATH_STYLE":  "true",
		"IFCQUERY_SERVER_EXPORT_QUEUE": "4",
		"IFCQUERY_LOG_AUDIT":           "1",
		"IFCQUERY_METRICS_DRIVER":      " expvar ",
	}))
	require.NoError(t, err)
	assert.True(t, cfg.Log.Audit)
	assert.Equal(t, MetricsExpvar, cfg.Metrics.Driver)
	assert.Equal(t, []string{"IfcOutlet", "IfcPump"}, cfg.Query.MEPTypes)
	assert.True(t, cfg.Blob.S3.PathStyle)
	assert.Equal(t, 4, cfg.Server.ExportQueue)

	err = Default().ApplyEnv(envMap(map[string]string{"IFCQUERY_METRICS_ENABLED": "maybe"}))
	require.Error(t, err)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		modify  func(*Config)
		wantErr bool
	}{
		{"defaults", func(*Config) {}, false},
		{"empty addr", func(c *Config) { c.Server.Addr = "" }, true},
		{"bad log mode", func(c *Config) { c.Log.Mode = "chatty" }, true},
		{"bad space match", func(c *Config) { c.Query.SpaceMatch = "fuzzy" }, true},
		{"exact space match", func(c *Config) { c.Query.SpaceMatch = "exact" }, false},
		{"unknown blob driver", func(c *Config) { c.Blob.Driver = "gcs" }, true},
		{"s3 without bucket", func(c *Config) { c.Blob.Driver = BlobS3 }, true},
		{"s3 with bucket", func(c *Config) { c.Blob.Driver = BlobS3; c.Blob.S3.Bucket = "models" }, false},
		{"postgres without dsn", func(c *Config) { c.Persistence.Driver = PersistencePostgres }, true},
		{"unknown persistence", func(c *Config) { c.Persistence.Driver = "mongo" }, true},
		{"relative metrics path", func(c *Config) { c.Metrics.Path = "metrics" }, true},
		{"metrics disabled ignores path", func(c *Config) { c.Metrics.Enabled = false; c.Metrics.Path = "" }, false},
		{"expvar metrics", func(c *Config) { c.Metrics.Driver = MetricsExpvar }, false},
		{"unknown metrics driver", func(c *Config) { c.Metrics.Driver = "statsd" }, true},
		{"metrics disabled ignores driver", func(c *Config) { c.Metrics.Enabled = false; c.Metrics.Driver = "" }, false},
		{"zero export queue", func(c *Config) { c.Server.ExportQueue = 0 }, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.modify(cfg)
			err := cfg.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
