package factory

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/rumbify/rumbify/internal/dependencies/clock"
	"github.com/rumbify/rumbify/internal/dependencies/random"
	"github.com/rumbify/rumbify/internal/services/auth"
	"github.com/rumbify/rumbify/internal/services/codes"
	"github.com/rumbify/rumbify/internal/services/party"
	"github.com/rumbify/rumbify/internal/services/session"
	"github.com/rumbify/rumbify/internal/storage"
	"github.com/rumbify/rumbify/internal/storage/memory"
	redisstorage "github.com/rumbify/rumbify/internal/storage/redis"
	"github.com/rumbify/rumbify/internal/storage/sqlstore"
	"github.com/rumbify/rumbify/internal/web/sse"
)

// Storage type constants
const (
	StorageTypeMemory   = "memory"
	StorageTypeRedis    = "redis"
	StorageTypeSQLite   = "sqlite"
	StorageTypePostgres = "postgres"
)

// App contains all wired application components
type App struct {
	// Storage
	Storage storage.Storage

	// External dependencies
	Clock  clock.Clock
	Random random.Random

	// Services
	AuthService  *auth.Service
	PartyService *party.Service
	CodeService  *codes.Service
	Sessions     *session.Manager

	// Live updates
	HubManager  *sse.HubManager
	Broadcaster *sse.Broadcaster

	Logger *slog.Logger
}

// Config holds configuration for the application factory
type Config struct {
	// AuthConfig holds configuration for the auth service (optional)
	// If zero value, defaults to auth.DefaultConfig()
	AuthConfig auth.Config
	// SessionConfig holds the session lifetime (optional)
	// If zero value, defaults to session.DefaultConfig()
	SessionConfig session.Config
	// Logger is the application logger (optional)
	// If nil, a no-op logger is used
	Logger *slog.Logger
	// StorageType selects the storage backend
	// If empty, defaults to "memory"
	StorageType string
	// RedisConfig holds Redis connection settings (required if StorageType is "redis")
	RedisConfig *redisstorage.Config
	// SQLitePath is the database file (required if StorageType is "sqlite")
	SQLitePath string
	// DatabaseURL is the Postgres DSN (required if StorageType is "postgres")
	DatabaseURL string
}

// New creates a new application with all dependencies wired
func New(ctx context.Context, cfg Config) (*App, error) {
	// Use no-op logger if not provided
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}

	store, err := openStorage(ctx, cfg)
	if err != nil {
		return nil, err
	}

	// Create external dependencies
	clk := clock.New()
	rnd := random.New()

	authCfg := cfg.AuthConfig
	if authCfg.BcryptCost == 0 {
		authCfg = auth.DefaultConfig()
	}
	sessionCfg := cfg.SessionConfig
	if sessionCfg.TTL == 0 {
		sessionCfg = session.DefaultConfig()
	}

	return newWithDependencies(store, clk, rnd, authCfg, sessionCfg, logger), nil
}

func openStorage(ctx context.Context, cfg Config) (storage.Storage, error) {
	storageType := cfg.StorageType
	if storageType == "" {
		storageType = StorageTypeMemory
	}

	switch storageType {
	case StorageTypeMemory:
		return memory.New(), nil
	case StorageTypeRedis:
		if cfg.RedisConfig == nil {
			return nil, errors.New("RedisConfig required when StorageType is redis")
		}
		return redisstorage.New(*cfg.RedisConfig)
	case StorageTypeSQLite:
		if cfg.SQLitePath == "" {
			return nil, errors.New("SQLitePath required when StorageType is sqlite")
		}
		return sqlstore.Open(ctx, sqlstore.DialectSQLite, cfg.SQLitePath)
	case StorageTypePostgres:
		if cfg.DatabaseURL == "" {
			return nil, errors.New("DatabaseURL required when StorageType is postgres")
		}
		return sqlstore.Open(ctx, sqlstore.DialectPostgres, cfg.DatabaseURL)
	default:
		return nil, fmt.Errorf("invalid StorageType %q: must be one of memory, redis, sqlite, postgres", storageType)
	}
}

// newWithDependencies creates an App with the given dependencies (useful for testing)
func newWithDependencies(store storage.Storage, clk clock.Clock, rnd random.Random, authCfg auth.Config, sessionCfg session.Config, logger *slog.Logger) *App {
	authService := auth.New(store, clk, logger, authCfg)
	partyService := party.New(store, clk, logger)
	codeService := codes.New(store, clk, rnd, logger)
	sessions := session.NewManager(store, logger, sessionCfg)

	hubManager := sse.NewHubManager(logger)
	broadcaster := sse.NewBroadcaster(hubManager, logger)
	codeService.SetNotifier(broadcaster)

	return &App{
		Storage:      store,
		Clock:        clk,
		Random:       rnd,
		AuthService:  authService,
		PartyService: partyService,
		CodeService:  codeService,
		Sessions:     sessions,
		HubManager:   hubManager,
		Broadcaster:  broadcaster,
		Logger:       logger,
	}
}

// Close stops live update hubs and releases the storage backend
func (a *App) Close() error {
	a.HubManager.Close()
	if closer, ok := a.Storage.(io.Closer); ok {
		return closer.Close()
	}
	return nil
}
