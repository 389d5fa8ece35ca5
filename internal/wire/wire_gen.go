// Code generated by Wire would normally live here. The wire binary is not
// part of this build pipeline, so this file hand-implements the injector
// wire.go declares, wiring the same providers in the same order.
//go:build !wireinject

package wire

import (
	"chainwatch/internal/config"
	"chainwatch/internal/core/chainadapter"
	"chainwatch/internal/core/db"
	"chainwatch/internal/core/persistence"
)

// BuildContainer constructs the full dependency graph: Core's shared
// infrastructure, then the Supervisor built on top of it.
func BuildContainer() (*Container, error) {
	cfg, err := config.LoadConfig()
	if err != nil {
		return nil, err
	}

	log, err := NewLogger(cfg)
	if err != nil {
		return nil, err
	}

	persistCfg := NewPersistenceConfig(cfg)

	database, err := db.New(persistCfg, log)
	if err != nil {
		return nil, err
	}

	registry := chainadapter.NewRegistry(log)
	store := persistence.New(database, persistCfg, log)
	attrib := NewAttributionClient(cfg, log)

	core := NewCore(cfg, log, database, registry, store, attrib)
	sup := NewSupervisor(core)

	return NewContainer(core, sup), nil
}
