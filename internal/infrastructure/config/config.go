package config

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/sethvargo/go-envconfig"
)

type Config struct {
	Env       string `env:"ENV,        default=development"`
	LogLevel  string `env:"LOG_LEVEL,  default=info"`
	LogPretty bool   `env:"LOG_PRETTY, default=false"`

	API       APIConfig
	Store     StoreConfig
	DevServer DevServerConfig
}

// APIConfig locates the remote task service.
type APIConfig struct {
	BaseURL string        `env:"TASK_API_URL,     default=http://localhost:4000/api"`
	Timeout time.Duration `env:"TASK_API_TIMEOUT, default=10s"`
	// LogoutOn401 clears the session whenever the service answers 401.
	LogoutOn401 bool `env:"TASK_API_LOGOUT_ON_401, default=false"`
}

// Store backends.
const (
	BackendMemory = "memory"
	BackendSQLite = "sqlite"
	BackendRedis  = "redis"
)

type StoreConfig struct {
	Backend    string `env:"STORE_BACKEND,     default=sqlite"`
	Namespace  string `env:"STORE_NAMESPACE,   default=agadir"`
	SQLitePath string `env:"STORE_SQLITE_PATH, default=~/.taskctl/credentials.db"`

	Redis RedisConfig
}

type RedisConfig struct {
	Addr     string `env:"REDIS_ADDR,     default=localhost:6379"`
	DB       int    `env:"REDIS_DB,       default=0"`
	Password string `env:"REDIS_PASSWORD"`
}

// DevServerConfig is read only by the development API server.
type DevServerConfig struct {
	Port      string        `env:"PORT,       default=4000"`
	JWTSecret string        `env:"JWT_SECRET, default=dev-secret-change-me"`
	JWTTTL    time.Duration `env:"JWT_TTL,    default=24h"`

	Mongo MongoConfig
}

// MongoConfig selects MongoDB storage for the dev server. An empty URI keeps
// everything in memory.
type MongoConfig struct {
	URI      string `env:"MONGO_URI"`
	Database string `env:"MONGO_DB, default=task_manager"`
}

// Load reads an optional .env file, then the environment, using go-envconfig.
func Load() *Config {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		panic(fmt.Sprintf("config: failed to read .env: %v", err))
	}
	cfg, err := FromLookuper(context.Background(), envconfig.OsLookuper())
	if err != nil {
		panic(fmt.Sprintf("config: failed to load configuration: %v", err))
	}
	return cfg
}

// FromLookuper builds a Config from an arbitrary source and validates it.
func FromLookuper(ctx context.Context, l envconfig.Lookuper) (*Config, error) {
	var cfg Config
	if err := envconfig.ProcessWith(ctx, &envconfig.Config{Target: &cfg, Lookuper: l}); err != nil {
		return nil, err
	}

	cfg.Store.Backend = strings.ToLower(strings.TrimSpace(cfg.Store.Backend))
	switch cfg.Store.Backend {
	case BackendMemory, BackendSQLite, BackendRedis:
	default:
		return nil, fmt.Errorf("STORE_BACKEND: unknown backend %q", cfg.Store.Backend)
	}

	path, err := expandHome(cfg.Store.SQLitePath)
	if err != nil {
		return nil, fmt.Errorf("STORE_SQLITE_PATH: %w", err)
	}
	cfg.Store.SQLitePath = path
	cfg.API.BaseURL = strings.TrimRight(cfg.API.BaseURL, "/")
	return &cfg, nil
}

func expandHome(path string) (string, error) {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, strings.TrimPrefix(path, "~")), nil
}
