package chainadapter

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"chainwatch/internal/logger"
	"chainwatch/internal/types"
)

func newTestLogger(t *testing.T) logger.Logger {
	t.Helper()
	log, err := logger.NewLogger(logger.WithLevel("error"))
	require.NoError(t, err)
	return log
}

func TestNewEVMAdapter_MissingRPCURLs(t *testing.T) {
	chain := types.Chain{Type: types.ChainType("ethereum")}

	adapter, err := NewEVMAdapter(chain, newTestLogger(t))

	assert.Nil(t, adapter)
	require.Error(t, err)
}

func TestNewEVMAdapter_LazyDial(t *testing.T) {
	chain := types.Chain{
		Type:    types.ChainType("ethereum"),
		RPCURLs: []string{"http://127.0.0.1:0"},
	}

	adapter, err := NewEVMAdapter(chain, newTestLogger(t))

	require.NoError(t, err)
	require.NotNil(t, adapter)
	assert.Equal(t, chain, adapter.Chain())
	adapter.Close()
}

func TestRegistry_MemoizesPerChain(t *testing.T) {
	reg := NewRegistry(newTestLogger(t))
	chain := types.Chain{
		Type:    types.ChainType("ethereum"),
		RPCURLs: []string{"http://127.0.0.1:0"},
	}

	first, err := reg.Get(chain)
	require.NoError(t, err)

	second, err := reg.Get(chain)
	require.NoError(t, err)

	assert.Same(t, first, second)
	reg.CloseAll()
}

func TestRegistry_DistinctChainsGetDistinctAdapters(t *testing.T) {
	reg := NewRegistry(newTestLogger(t))
	eth := types.Chain{Type: types.ChainType("ethereum"), RPCURLs: []string{"http://127.0.0.1:0"}}
	poly := types.Chain{Type: types.ChainType("polygon"), RPCURLs: []string{"http://127.0.0.1:0"}}

	a, err := reg.Get(eth)
	require.NoError(t, err)
	b, err := reg.Get(poly)
	require.NoError(t, err)

	assert.NotSame(t, a, b)
	reg.CloseAll()
}
