package supervisor

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"chainwatch/internal/config"
	"chainwatch/internal/core/attribution"
	"chainwatch/internal/core/chainadapter"
	"chainwatch/internal/logger"
	"chainwatch/internal/types"
)

type fakeStore struct {
	closed  bool
	fatalCh chan error
}

func (s *fakeStore) Enqueue(ctx context.Context, row types.ContractRow) error { return nil }
func (s *fakeStore) AdvanceCursor(ctx context.Context, chain types.ChainType, height uint64) error {
	return nil
}
func (s *fakeStore) ReadCursor(ctx context.Context, chain types.ChainType) (uint64, bool, error) {
	return 0, false, nil
}
func (s *fakeStore) Flush(ctx context.Context) (int, error) { return 0, nil }
func (s *fakeStore) Close(ctx context.Context) error         { s.closed = true; return nil }
func (s *fakeStore) Fatal() <-chan error {
	if s.fatalCh == nil {
		s.fatalCh = make(chan error)
	}
	return s.fatalCh
}

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

func TestSupervisor_SkipsNonEVMChains(t *testing.T) {
	cfg := &config.Config{
		Chains: map[string]config.ChainConfig{
			"ethereum": {Name: "ethereum", ChainID: 1, RPCURLs: []string{"http://127.0.0.1:0"}},
			"bitcoin":  {Name: "bitcoin", NonEVM: true},
		},
		DefaultChains:             []string{"ethereum", "bitcoin"},
		BlockCheckIntervalSeconds: 1,
		ScanBatchSize:             5,
	}

	store := &fakeStore{}
	sup := New(cfg, chainadapter.NewRegistry(testLogger(t)), store, testAttribClient(t), testLogger(t))

	require.NoError(t, sup.Start(context.Background(), nil))
	defer sup.Stop(context.Background())

	time.Sleep(10 * time.Millisecond)

	sup.mu.Lock()
	_, hasEthereum := sup.workers["ethereum"]
	_, hasBitcoin := sup.workers["bitcoin"]
	sup.mu.Unlock()

	require.True(t, hasEthereum)
	require.False(t, hasBitcoin)
}

func TestSupervisor_StopClosesStore(t *testing.T) {
	cfg := &config.Config{
		Chains: map[string]config.ChainConfig{
			"ethereum": {Name: "ethereum", ChainID: 1, RPCURLs: []string{"http://127.0.0.1:0"}},
		},
		DefaultChains:             []string{"ethereum"},
		BlockCheckIntervalSeconds: 1,
		ScanBatchSize:             5,
	}

	store := &fakeStore{}
	sup := New(cfg, chainadapter.NewRegistry(testLogger(t)), store, testAttribClient(t), testLogger(t))

	require.NoError(t, sup.Start(context.Background(), nil))
	require.NoError(t, sup.Stop(context.Background()))
	require.True(t, store.closed)
}

func TestSupervisor_FatalPersistenceErrorInitiatesShutdown(t *testing.T) {
	cfg := &config.Config{
		Chains: map[string]config.ChainConfig{
			"ethereum": {Name: "ethereum", ChainID: 1, RPCURLs: []string{"http://127.0.0.1:0"}},
		},
		DefaultChains:             []string{"ethereum"},
		BlockCheckIntervalSeconds: 1,
		ScanBatchSize:             5,
	}

	store := &fakeStore{fatalCh: make(chan error, 1)}
	sup := New(cfg, chainadapter.NewRegistry(testLogger(t)), store, testAttribClient(t), testLogger(t))

	require.NoError(t, sup.Start(context.Background(), nil))

	store.fatalCh <- assert.AnError

	select {
	case <-sup.Done():
	case <-time.After(time.Second):
		t.Fatal("supervisor did not observe the fatal persistence error")
	}
	require.ErrorIs(t, sup.FatalErr(), assert.AnError)

	require.NoError(t, sup.Stop(context.Background()))
	require.True(t, store.closed)
}
