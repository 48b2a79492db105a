// Package config loads the pipeline configuration.
//
// Configuration comes from a YAML or JSON file, with every key overridable from
// the environment using the GAMESTAR_ prefix and "_" for "." (for example
// GAMESTAR_STORAGE_DB_DSN). Secrets belong in the environment, not the file.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// EnvPrefix is the prefix for environment overrides.
const EnvPrefix = "GAMESTAR"

type Pipeline struct {
	Job     string        `mapstructure:"job"`
	Source  Source        `mapstructure:"source"`
	Storage Storage       `mapstructure:"storage"`
	Runtime RuntimeConfig `mapstructure:"runtime"`
	Metrics Metrics       `mapstructure:"metrics"`
}

type Source struct {
	// Kind is "file" or "s3".
	Kind string     `mapstructure:"kind"`
	File FileSource `mapstructure:"file"`
	S3   S3Source   `mapstructure:"s3"`
}

type FileSource struct {
	Path string `mapstructure:"path"`
}

type S3Source struct {
	Bucket string `mapstructure:"bucket"`
	Key    string `mapstructure:"key"`
	Region string `mapstructure:"region"`
}

type Storage struct {
	// Backend kind: "postgres" | "mssql" | "sqlite"
	Kind string `mapstructure:"kind"`
	DB   DB     `mapstructure:"db"`
}

type DB struct {
	// DSN may reference environment variables as ${VAR}.
	DSN string `mapstructure:"dsn"`

	// Schema optionally qualifies every destination table (e.g. "warehouse").
	Schema string `mapstructure:"schema"`

	// AutoCreateTables runs CREATE TABLE IF NOT EXISTS for the warehouse tables
	// before loading. When false the schema must already exist.
	AutoCreateTables bool `mapstructure:"auto_create_tables"`
}

// RuntimeConfig controls pipeline execution behavior.
type RuntimeConfig struct {
	// ProgressEvery logs a transform progress line every N records (0 disables).
	ProgressEvery int `mapstructure:"progress_every"`

	// DebugTimings logs per-table row counts and durations at debug level.
	DebugTimings bool `mapstructure:"debug_timings"`
}

type Metrics struct {
	// Backend: "none" | "datadog"
	Backend    string        `mapstructure:"backend"`
	Tags       []string      `mapstructure:"tags"`
	FlushEvery time.Duration `mapstructure:"flush_every"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("job", "gamestar")
	v.SetDefault("source.kind", "file")
	v.SetDefault("source.file.path", "games.json")
	v.SetDefault("source.s3.bucket", "")
	v.SetDefault("source.s3.key", "")
	v.SetDefault("source.s3.region", "")
	v.SetDefault("storage.kind", "postgres")
	v.SetDefault("storage.db.dsn", "")
	v.SetDefault("storage.db.schema", "")
	v.SetDefault("storage.db.auto_create_tables", false)
	v.SetDefault("runtime.progress_every", 0)
	v.SetDefault("runtime.debug_timings", false)
	v.SetDefault("metrics.backend", "none")
	v.SetDefault("metrics.tags", []string{})
	v.SetDefault("metrics.flush_every", 60*time.Second)
}

// Load reads the pipeline config at path. An empty path loads defaults plus
// environment overrides only.
func Load(path string) (Pipeline, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Pipeline{}, fmt.Errorf("read config %s: %w", path, err)
		}
	}

	var p Pipeline
	if err := v.Unmarshal(&p); err != nil {
		return Pipeline{}, fmt.Errorf("decode config: %w", err)
	}
	p.Storage.DB.DSN = os.ExpandEnv(p.Storage.DB.DSN)
	return p, nil
}
