//go:build wireinject

package wire

import (
	"github.com/google/wire"
)

// ContainerSet combines all dependency sets.
var ContainerSet = wire.NewSet(
	CoreSet,
	PipelineSet,
)

// BuildContainer is a placeholder; wire replaces this body with the
// generated injector. Its real implementation lives in wire_gen.go.
func BuildContainer() (*Container, error) {
	wire.Build(ContainerSet)
	return nil, nil
}
