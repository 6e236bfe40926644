package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/joho/godotenv"
)

const (
	defaultDuckDBPath     = "data/duckdb/mobility_analysis.duckdb"
	defaultSnapshotRoot   = "data"
	defaultRequestTimeout = 30 * time.Second
	defaultRedisAddr      = "localhost:6379"
	defaultCronSpec       = "0 3 * * *" // daily, 03:00
)

var (
	pipelineOnce   sync.Once
	pipelineConfig *PipelineConfig
	pipelineErr    error
)

// PipelineConfig holds runtime configuration for a pipeline run.
type PipelineConfig struct {
	DuckDBPath      string
	SnapshotBackend string // "local", "minio" or "s3"
	SnapshotRoot    string // base directory for the local backend
	SourcesFile     string // optional YAML endpoint overrides
	RequestTimeout  time.Duration
	RedisAddr       string
	RedisDB         int
	CronSpec        string
	RetentionDays   int // 0 keeps raw snapshots forever
	LogLevel        string
}

// GetPipelineConfig loads pipeline configuration from the environment
// (optionally a .env file) exactly once.
func GetPipelineConfig() (*PipelineConfig, error) {
	pipelineOnce.Do(func() {
		_ = godotenv.Load(".env")

		cfg := &PipelineConfig{
			DuckDBPath:      defaultDuckDBPath,
			SnapshotBackend: "local",
			SnapshotRoot:    defaultSnapshotRoot,
			RequestTimeout:  defaultRequestTimeout,
			RedisAddr:       defaultRedisAddr,
			CronSpec:        defaultCronSpec,
			LogLevel:        "info",
		}

		if v := strings.TrimSpace(os.Getenv("DUCKDB_PATH")); v != "" {
			cfg.DuckDBPath = v
		}
		if v := strings.TrimSpace(os.Getenv("SNAPSHOT_BACKEND")); v != "" {
			cfg.SnapshotBackend = v
		}
		if v := strings.TrimSpace(os.Getenv("SNAPSHOT_ROOT")); v != "" {
			cfg.SnapshotRoot = v
		}
		if v := strings.TrimSpace(os.Getenv("SOURCES_FILE")); v != "" {
			cfg.SourcesFile = v
		}
		if v := strings.TrimSpace(os.Getenv("REQUEST_TIMEOUT")); v != "" {
			d, err := time.ParseDuration(v)
			if err != nil {
				pipelineErr = fmt.Errorf("invalid REQUEST_TIMEOUT: %w", err)
				return
			}
			cfg.RequestTimeout = d
		}
		if v := strings.TrimSpace(os.Getenv("REDIS_ADDR")); v != "" {
			cfg.RedisAddr = v
		}
		if v := strings.TrimSpace(os.Getenv("REDIS_DB")); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil {
				pipelineErr = fmt.Errorf("invalid REDIS_DB: %w", err)
				return
			}
			cfg.RedisDB = n
		}
		if v := strings.TrimSpace(os.Getenv("PIPELINE_CRON")); v != "" {
			cfg.CronSpec = v
		}
		if v := strings.TrimSpace(os.Getenv("SNAPSHOT_RETENTION_DAYS")); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil || n < 0 {
				pipelineErr = fmt.Errorf("invalid SNAPSHOT_RETENTION_DAYS: %s", v)
				return
			}
			cfg.RetentionDays = n
		}
		if v := strings.TrimSpace(os.Getenv("LOG_LEVEL")); v != "" {
			cfg.LogLevel = v
		}

		switch cfg.SnapshotBackend {
		case "local", "minio", "s3":
		default:
			pipelineErr = fmt.Errorf("unsupported SNAPSHOT_BACKEND: %s", cfg.SnapshotBackend)
			return
		}

		pipelineConfig = cfg
	})

	return pipelineConfig, pipelineErr
}
