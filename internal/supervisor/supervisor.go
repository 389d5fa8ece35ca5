// Package supervisor owns the set of per-chain workers: it starts them,
// restarts any that die unexpectedly, and coordinates graceful shutdown.
package supervisor

import (
	"context"
	"sync"
	"time"

	"chainwatch/internal/config"
	"chainwatch/internal/core/attribution"
	"chainwatch/internal/core/chainadapter"
	"chainwatch/internal/core/persistence"
	"chainwatch/internal/logger"
	"chainwatch/internal/types"
	"chainwatch/internal/worker"
)

const (
	livenessCheckInterval = 30 * time.Second
	workerJoinTimeout     = 5 * time.Second
)

// Supervisor runs one Worker per configured EVM chain plus a liveness
// monitor that restarts any worker that terminates unexpectedly.
type Supervisor struct {
	cfg      *config.Config
	registry chainadapter.Registry
	store    persistence.Store
	attrib   *attribution.Client
	log      logger.Logger

	mu      sync.Mutex
	workers map[types.ChainType]*worker.Worker

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	fatalMu     sync.Mutex
	fatalErr    error
	fatalSignal chan struct{}
}

// New builds a Supervisor. Call Start to spawn workers.
func New(cfg *config.Config, registry chainadapter.Registry, store persistence.Store, attrib *attribution.Client, log logger.Logger) *Supervisor {
	return &Supervisor{
		cfg:         cfg,
		registry:    registry,
		store:       store,
		attrib:      attrib,
		log:         log,
		workers:     make(map[types.ChainType]*worker.Worker),
		fatalSignal: make(chan struct{}),
	}
}

// Start selects the requested chains, skipping non-EVM ones with a
// warning, and spawns one worker per remaining chain plus the liveness
// monitor.
func (s *Supervisor) Start(ctx context.Context, selection []string) error {
	active, skipped, err := s.cfg.SelectedChains(selection)
	if err != nil {
		return err
	}

	for _, name := range skipped {
		s.log.Warn("skipping non-EVM chain", logger.String("chain", name))
	}

	s.ctx, s.cancel = context.WithCancel(ctx)

	for _, chainCfg := range active {
		s.spawn(types.Chain{Type: types.ChainType(chainCfg.Name), ID: chainCfg.ChainID, RPCURLs: chainCfg.RPCURLs})
	}

	s.wg.Add(1)
	go s.runLiveness()

	s.wg.Add(1)
	go s.watchFatal()

	return nil
}

// watchFatal initiates shutdown itself when the persistence layer
// reports a batch write that exhausted its retry budget, per the
// requirement that such a failure is surfaced as fatal and triggers
// graceful shutdown rather than silently dropping rows forever.
func (s *Supervisor) watchFatal() {
	defer s.wg.Done()

	select {
	case <-s.ctx.Done():
		return
	case err := <-s.store.Fatal():
		s.fatalMu.Lock()
		s.fatalErr = err
		s.fatalMu.Unlock()

		s.log.Error("persistence layer failed permanently, initiating shutdown", logger.Error(err))
		close(s.fatalSignal)
		s.cancel()
	}
}

// Done is closed when the supervisor has initiated shutdown on its own,
// because persistence reported a fatal error. Callers awaiting an
// external stop signal should also select on this channel.
func (s *Supervisor) Done() <-chan struct{} {
	return s.fatalSignal
}

// FatalErr returns the error that caused a self-initiated shutdown, or
// nil if shutdown was externally requested.
func (s *Supervisor) FatalErr() error {
	s.fatalMu.Lock()
	defer s.fatalMu.Unlock()
	return s.fatalErr
}

func (s *Supervisor) spawn(chain types.Chain) {
	w := worker.New(chain, worker.Config{
		BlockCheckInterval:     time.Duration(s.cfg.BlockCheckIntervalSeconds) * time.Second,
		BatchSize:              s.cfg.ScanBatchSize,
		ReorgConfirmationDepth: s.cfg.ReorgConfirmationDepth,
	}, s.registry, s.store, s.attrib, s.log)

	s.mu.Lock()
	s.workers[chain.Type] = w
	s.mu.Unlock()

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		w.Run(s.ctx)
	}()

	s.log.Info("started chain worker", logger.String("chain", string(chain.Type)))
}

// runLiveness wakes every livenessCheckInterval and restarts any worker
// whose run loop has exited while the supervisor is still active. The
// persisted cursor is authoritative, so a restarted worker loses no
// progress.
func (s *Supervisor) runLiveness() {
	defer s.wg.Done()

	ticker := time.NewTicker(livenessCheckInterval)
	defer ticker.Stop()

	for {
		select {
		case <-s.ctx.Done():
			return
		case <-ticker.C:
			s.restartDeadWorkers()
		}
	}
}

func (s *Supervisor) restartDeadWorkers() {
	s.mu.Lock()
	dead := make([]types.Chain, 0)
	for _, w := range s.workers {
		if !w.Alive() {
			dead = append(dead, w.Chain())
		}
	}
	s.mu.Unlock()

	for _, chain := range dead {
		s.log.Warn("worker terminated unexpectedly, restarting", logger.String("chain", string(chain.Type)))
		s.spawn(chain)
	}
}

// Stop signals every worker to finish its current iteration, joins them
// with a per-worker timeout, then flushes and closes the persistence
// layer.
func (s *Supervisor) Stop(ctx context.Context) error {
	if s.cancel != nil {
		s.cancel()
	}

	s.mu.Lock()
	workers := make([]*worker.Worker, 0, len(s.workers))
	for _, w := range s.workers {
		workers = append(workers, w)
	}
	s.mu.Unlock()

	for _, w := range workers {
		w.Stop()
	}

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(workerJoinTimeout):
		s.log.Warn("timed out waiting for workers to stop")
	}

	return s.store.Close(ctx)
}
