package worker

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"chainwatch/internal/config"
	"chainwatch/internal/core/attribution"
	"chainwatch/internal/core/chainadapter"
	"chainwatch/internal/logger"
	"chainwatch/internal/types"
)

// fakeAdapter is a minimal Adapter that always reports a fixed tip and
// empty blocks, enough to drive the worker's scan loop without a chain.
type fakeAdapter struct {
	chain  types.Chain
	mu     sync.Mutex
	tip    uint64
	blocks map[uint64]*types.Block
}

func (f *fakeAdapter) LatestHeight(ctx context.Context) (uint64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.tip, nil
}
func (f *fakeAdapter) GetBlockWithTransactions(ctx context.Context, height uint64) (*types.Block, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if b, ok := f.blocks[height]; ok {
		return b, nil
	}
	return &types.Block{Chain: f.chain.Type}, nil
}
func (f *fakeAdapter) GetTransactionReceipt(ctx context.Context, hash string) (*types.Receipt, error) {
	return &types.Receipt{TransactionHash: hash}, nil
}
func (f *fakeAdapter) GetCode(ctx context.Context, address string) ([]byte, error) { return nil, nil }
func (f *fakeAdapter) EthCall(ctx context.Context, address string, data []byte) ([]byte, error) {
	return nil, nil
}
func (f *fakeAdapter) Chain() types.Chain { return f.chain }
func (f *fakeAdapter) Close()             {}

type fakeRegistry struct {
	adapter chainadapter.Adapter
}

func (r *fakeRegistry) Get(chain types.Chain) (chainadapter.Adapter, error) { return r.adapter, nil }
func (r *fakeRegistry) CloseAll()                                          {}

type fakeStore struct {
	mu      sync.Mutex
	cursors map[types.ChainType]uint64
	rows    int
}

func (s *fakeStore) Enqueue(ctx context.Context, row types.ContractRow) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rows++
	return nil
}
func (s *fakeStore) AdvanceCursor(ctx context.Context, chain types.ChainType, height uint64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cursors == nil {
		s.cursors = map[types.ChainType]uint64{}
	}
	s.cursors[chain] = height
	return nil
}
func (s *fakeStore) ReadCursor(ctx context.Context, chain types.ChainType) (uint64, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	h, ok := s.cursors[chain]
	return h, ok, nil
}
func (s *fakeStore) Flush(ctx context.Context) (int, error) { return 0, nil }
func (s *fakeStore) Close(ctx context.Context) error         { return nil }
func (s *fakeStore) Fatal() <-chan error                     { return make(chan error) }

func testLogger(t *testing.T) logger.Logger {
	t.Helper()
	log, err := logger.NewLogger(logger.WithLevel("error"))
	require.NoError(t, err)
	return log
}

func testAttribClient(t *testing.T) *attribution.Client {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	t.Cleanup(server.Close)
	return attribution.New(config.AttributionConfig{BaseURL: server.URL, RequestsPerSecond: 100}, testLogger(t))
}

func TestWorker_InitializesCursorFromLatestHeightWhenNoneStored(t *testing.T) {
	chain := types.Chain{Type: "ethereum"}
	adapter := &fakeAdapter{chain: chain, tip: 100}
	store := &fakeStore{}

	w := New(chain, Config{BlockCheckInterval: 10 * time.Millisecond, BatchSize: 5}, &fakeRegistry{adapter: adapter}, store, testAttribClient(t), testLogger(t))

	require.NoError(t, w.initialize(context.Background()))
	require.Equal(t, uint64(100), w.cursor)
}

func TestWorker_InitializesCursorFromStoredCursor(t *testing.T) {
	chain := types.Chain{Type: "ethereum"}
	adapter := &fakeAdapter{chain: chain, tip: 100}
	store := &fakeStore{cursors: map[types.ChainType]uint64{"ethereum": 40}}

	w := New(chain, Config{BlockCheckInterval: 10 * time.Millisecond, BatchSize: 5}, &fakeRegistry{adapter: adapter}, store, testAttribClient(t), testLogger(t))

	require.NoError(t, w.initialize(context.Background()))
	require.Equal(t, uint64(41), w.cursor)
}

func TestWorker_ScanOnceAdvancesCursorToLatestWhenWithinBatch(t *testing.T) {
	chain := types.Chain{Type: "ethereum"}
	adapter := &fakeAdapter{chain: chain, tip: 3}
	store := &fakeStore{}

	w := New(chain, Config{BlockCheckInterval: 10 * time.Millisecond, BatchSize: 10}, &fakeRegistry{adapter: adapter}, store, testAttribClient(t), testLogger(t))
	require.NoError(t, w.initialize(context.Background()))
	w.cursor = 1

	require.NoError(t, w.scanOnce(context.Background()))
	require.Equal(t, uint64(4), w.cursor)
	require.Equal(t, uint64(3), store.cursors["ethereum"])
}

func TestWorker_RunStopsOnStopSignal(t *testing.T) {
	chain := types.Chain{Type: "ethereum"}
	adapter := &fakeAdapter{chain: chain, tip: 0}
	store := &fakeStore{}

	w := New(chain, Config{BlockCheckInterval: 5 * time.Millisecond, BatchSize: 5}, &fakeRegistry{adapter: adapter}, store, testAttribClient(t), testLogger(t))

	go w.Run(context.Background())
	time.Sleep(20 * time.Millisecond)
	w.Stop()

	select {
	case <-w.alive:
	case <-time.After(time.Second):
		t.Fatal("worker did not stop in time")
	}
}
