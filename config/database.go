package config

import (
	"strings"
)

// DBConfig contains PostgreSQL database configuration for run history.
type DBConfig struct {
	Enabled  bool   `env:"ENABLED"  envDefault:"false"`
	Host     string `env:"HOST"     envDefault:"localhost"`
	Port     int    `env:"PORT"     envDefault:"5432"`
	User     string `env:"USER"     envDefault:"gradesync"`
	Password string `env:"PASSWORD" envDefault:"gradesync"`
	Name     string `env:"NAME"     envDefault:"gradesync"`
	SSLMode  string `env:"SSL_MODE" envDefault:"disable"` // Use 'disable' for local dev, 'require' for production
	// RunMigrationsOnStart controls whether the application automatically applies migrations during startup.
	RunMigrationsOnStart bool `env:"RUN_MIGRATIONS_ON_START" envDefault:"true"`
}

// RedisConfig contains Redis configuration.
type RedisConfig struct {
	URI                string   `env:"URI"                  envDefault:"localhost:6379"`
	Password           string   `env:"PASSWORD"             envDefault:""`
	SentinelNodes      []string `env:"SENTINEL_NODES"       envDefault:"localhost:26379"`
	SentinelMasterName string   `env:"SENTINEL_MASTER_NAME" envDefault:"mymaster"`
	SentinelPassword   string   `env:"SENTINEL_PASSWORD"    envDefault:""`
	UseSentinel        bool     `env:"USE_SENTINEL"         envDefault:"false"`
	ClusterNodes       []string `env:"CLUSTER_NODES"        envDefault:""`
	UseCluster         bool     `env:"USE_CLUSTER"          envDefault:"false"`
}

// RunStoreBackend selects where RunState documents live.
type RunStoreBackend string

const (
	// RunStoreRedis keeps run state and leases in Redis.
	RunStoreRedis RunStoreBackend = "redis"
	// RunStoreSQLite keeps run state and leases in a local SQLite file.
	RunStoreSQLite RunStoreBackend = "sqlite"
)

// RunStoreConfig configures the persisted run store.
type RunStoreConfig struct {
	Backend    RunStoreBackend `env:"BACKEND"     envDefault:"redis"`
	SQLitePath string          `env:"SQLITE_PATH" envDefault:"gradesync.db"`
	KeyPrefix  string          `env:"KEY_PREFIX"  envDefault:"gradesync:"`
}

// Sanitize normalises the backend name and falls back to Redis on unknown values.
func (c *RunStoreConfig) Sanitize() {
	c.Backend = RunStoreBackend(strings.ToLower(strings.TrimSpace(string(c.Backend))))
	if c.Backend != RunStoreSQLite {
		c.Backend = RunStoreRedis
	}
	c.SQLitePath = strings.TrimSpace(c.SQLitePath)
	if c.SQLitePath == "" {
		c.SQLitePath = "gradesync.db"
	}
	if c.KeyPrefix != "" && !strings.HasSuffix(c.KeyPrefix, ":") {
		c.KeyPrefix += ":"
	}
}
