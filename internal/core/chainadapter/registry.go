package chainadapter

import (
	"sync"

	"chainwatch/internal/logger"
	"chainwatch/internal/types"
)

// Registry hands out one memoized Adapter per chain, constructing it
// lazily on first request.
type Registry interface {
	Get(chain types.Chain) (Adapter, error)
	CloseAll()
}

type registry struct {
	log logger.Logger

	mu      sync.RWMutex
	clients map[types.ChainType]Adapter
}

// NewRegistry creates an empty adapter registry.
func NewRegistry(log logger.Logger) Registry {
	return &registry{
		log:     log,
		clients: make(map[types.ChainType]Adapter),
	}
}

func (r *registry) Get(chain types.Chain) (Adapter, error) {
	r.mu.RLock()
	if client, ok := r.clients[chain.Type]; ok {
		r.mu.RUnlock()
		return client, nil
	}
	r.mu.RUnlock()

	r.mu.Lock()
	defer r.mu.Unlock()

	if client, ok := r.clients[chain.Type]; ok {
		return client, nil
	}

	client, err := NewEVMAdapter(chain, r.log)
	if err != nil {
		return nil, err
	}

	r.clients[chain.Type] = client
	return client, nil
}

func (r *registry) CloseAll() {
	r.mu.Lock()
	defer r.mu.Unlock()
	for chainType, client := range r.clients {
		client.Close()
		r.log.Info("closed chain adapter", logger.String("chain", string(chainType)))
	}
}
