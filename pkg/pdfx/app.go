package pdfx

import (
	"fmt"
	"os"
	"sync"
	"sync/atomic"

	"github.com/rs/zerolog"

	"github.com/abconlinecourses/pdfx-xblock/pkg/annotations"
	"github.com/abconlinecourses/pdfx-xblock/pkg/assets"
	"github.com/abconlinecourses/pdfx-xblock/pkg/logger"
	"github.com/abconlinecourses/pdfx-xblock/pkg/models"
	"github.com/abconlinecourses/pdfx-xblock/pkg/store"
	"github.com/abconlinecourses/pdfx-xblock/pkg/store/memory"
	"github.com/abconlinecourses/pdfx-xblock/pkg/store/postgres"
	"github.com/abconlinecourses/pdfx-xblock/pkg/store/surreal"
)

// Config holds application configuration.
type Config struct {
	// Backend selects the authoritative store: "memory", "postgres", or
	// "surrealdb". Exactly one backend serves a deployment; there is no
	// dual-write or fallback path.
	Backend string

	// Database configuration for the selected backend.
	PostgresDSN   string
	SurrealDBURL  string
	SurrealDBNS   string
	SurrealDBDB   string
	SurrealDBUser string
	SurrealDBPass string

	// Object storage for uploaded PDFs. An empty bucket keeps blobs in
	// process memory, which suits development and tests only.
	S3Region string
	S3Bucket string

	// ReadOnly starts the application in maintenance mode: reads keep
	// serving while every write is rejected at the store boundary.
	ReadOnly bool

	// Server configuration.
	ServerPort string

	// Logging configuration. An empty LogPath logs to stdout.
	LogPath   string
	LogLevel  string
	LogPretty bool
}

// App holds the application state shared by all handlers.
type App struct {
	store       store.Store
	assets      *assets.Service
	resolver    *assets.Resolver
	annotations *annotations.Service
	config      *Config
	log         zerolog.Logger
	logFile     *os.File

	// Bearer-token sessions. A stand-in for the course platform's own
	// session layer; tokens map to user IDs and identity is re-resolved
	// from the store on every request.
	sessions  map[string]models.UserID
	sessionMu sync.RWMutex

	readOnly atomic.Bool
}

// New creates a new application instance: logger, the selected store
// backend, blob storage, and the annotation service wired on top. The store
// is wrapped with maintenance-mode protection so read-only enforcement
// applies to every write regardless of backend.
func New(config *Config) (*App, error) {
	build := logger.New().FromPath(config.LogPath).WithLevel(config.LogLevel)
	if config.LogPretty {
		build = build.Pretty()
	}
	logData, err := build.Make()
	if err != nil {
		return nil, fmt.Errorf("failed to build logger: %w", err)
	}
	log := logData.Logger

	var appStore store.Store
	switch config.Backend {
	case "memory":
		appStore = memory.NewMemoryStore()
		log.Info().Msg("using in-memory store")
	case "postgres":
		appStore, err = postgres.NewPostgresStore(config.PostgresDSN)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to PostgreSQL: %w", err)
		}
		log.Info().Msg("connected to PostgreSQL")
	case "surrealdb":
		appStore, err = surreal.NewSurrealStore(
			config.SurrealDBURL,
			config.SurrealDBNS,
			config.SurrealDBDB,
			config.SurrealDBUser,
			config.SurrealDBPass,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to SurrealDB: %w", err)
		}
		log.Info().Msg("connected to SurrealDB")
	default:
		return nil, fmt.Errorf("unknown backend: %q (expected memory, postgres, or surrealdb)", config.Backend)
	}

	var blobs assets.BlobStore
	if config.S3Bucket != "" {
		blobs = assets.NewS3BlobStore(config.S3Region, config.S3Bucket)
		log.Info().Str("bucket", config.S3Bucket).Msg("storing uploads in S3")
	} else {
		blobs = assets.NewMemoryBlobStore()
		log.Warn().Msg("no S3 bucket configured, storing uploads in memory")
	}

	app := &App{
		config:   config,
		log:      log,
		logFile:  logData.LogFile,
		sessions: make(map[string]models.UserID),
	}
	app.readOnly.Store(config.ReadOnly)

	app.store = store.NewReadOnlyStore(appStore, app.IsReadOnly)
	app.assets = assets.NewService(blobs, log)
	app.resolver = assets.NewResolver(blobs)
	app.annotations = annotations.NewService(app.store, log)

	return app, nil
}

// Close closes the application and its resources.
func (a *App) Close() error {
	var err error
	if a.store != nil {
		err = a.store.Close()
	}
	if a.logFile != nil {
		if cerr := a.logFile.Close(); err == nil {
			err = cerr
		}
	}
	return err
}

// Store returns the underlying store (useful for testing).
func (a *App) Store() store.Store {
	return a.store
}

// SetReadOnly toggles maintenance mode at runtime. When enabled, every
// write operation is rejected at the store boundary while reads continue to
// serve, which keeps the viewer usable during database maintenance without
// risking half-applied saves.
func (a *App) SetReadOnly(readOnly bool) {
	a.readOnly.Store(readOnly)
	a.log.Info().Bool("read_only", readOnly).Msg("maintenance mode changed")
}

// IsReadOnly returns whether the application is currently in maintenance
// mode. The store wrapper calls this on every write, so it stays a plain
// atomic load.
func (a *App) IsReadOnly() bool {
	return a.readOnly.Load()
}

// getEnv retrieves an environment variable with a fallback default. Empty
// values are treated the same as unset, which is what container
// environments usually want.
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
