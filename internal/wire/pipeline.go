package wire

import (
	"github.com/google/wire"

	"chainwatch/internal/supervisor"
)

// PipelineSet builds the Supervisor that runs the chain workers on top of
// Core's infrastructure, plus the Container that combines the two.
var PipelineSet = wire.NewSet(
	NewSupervisor,
	NewContainer,
)

// NewSupervisor builds the Supervisor from Core's shared dependencies.
func NewSupervisor(core *Core) *supervisor.Supervisor {
	return supervisor.New(core.Config, core.Registry, core.Store, core.Attrib, core.Logger)
}

// Container holds every dependency the process needs once started:
// Core's shared infrastructure plus the Supervisor built on top of it.
type Container struct {
	Core       *Core
	Supervisor *supervisor.Supervisor
}

// NewContainer assembles Container from Core and Supervisor.
func NewContainer(core *Core, sup *supervisor.Supervisor) *Container {
	return &Container{Core: core, Supervisor: sup}
}
