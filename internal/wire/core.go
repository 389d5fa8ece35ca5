package wire

import (
	"github.com/google/wire"

	"chainwatch/internal/config"
	"chainwatch/internal/core/attribution"
	"chainwatch/internal/core/chainadapter"
	"chainwatch/internal/core/db"
	"chainwatch/internal/core/persistence"
	"chainwatch/internal/logger"
)

// CoreSet combines the infrastructure dependencies shared across the
// pipeline: configuration, logging, the database connection, the chain
// adapter registry, the persistence store and the attribution client.
// Migrations are applied explicitly by main.go after the container is
// built, not as part of the graph.
var CoreSet = wire.NewSet(
	config.LoadConfig,
	NewLogger,
	NewPersistenceConfig,
	db.New,
	chainadapter.NewRegistry,
	persistence.New,
	NewAttributionClient,
	NewCore,
)

// NewLogger builds the shared logger from the configured level.
func NewLogger(cfg *config.Config) (logger.Logger, error) {
	return logger.NewLogger(logger.WithLevel(string(cfg.Log.Level)))
}

// NewPersistenceConfig extracts the persistence settings the database and
// store providers are constructed from.
func NewPersistenceConfig(cfg *config.Config) config.PersistenceConfig {
	return cfg.Persistence
}

// NewAttributionClient builds the shared attribution client from config.
func NewAttributionClient(cfg *config.Config, log logger.Logger) *attribution.Client {
	return attribution.New(cfg.Attribution, log)
}

// Core holds the infrastructure every pipeline component depends on.
type Core struct {
	Config   *config.Config
	Logger   logger.Logger
	DB       *db.DB
	Registry chainadapter.Registry
	Store    persistence.Store
	Attrib   *attribution.Client
}

// NewCore assembles Core from its dependencies.
func NewCore(
	cfg *config.Config,
	log logger.Logger,
	database *db.DB,
	registry chainadapter.Registry,
	store persistence.Store,
	attrib *attribution.Client,
) *Core {
	return &Core{
		Config:   cfg,
		Logger:   log,
		DB:       database,
		Registry: registry,
		Store:    store,
		Attrib:   attrib,
	}
}
