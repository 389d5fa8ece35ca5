// Package worker runs the per-chain pipeline: scan for new blocks,
// extract deployments, classify and attribute each one, and enqueue the
// result for durable persistence.
package worker

import (
	"context"
	"sync"
	"time"

	"chainwatch/internal/core/attribution"
	"chainwatch/internal/core/chainadapter"
	"chainwatch/internal/core/classifier"
	"chainwatch/internal/core/extractor"
	"chainwatch/internal/core/persistence"
	"chainwatch/internal/logger"
	"chainwatch/internal/types"
)

// State is a Chain Worker's lifecycle state.
type State string

const (
	StateInitializing State = "initializing"
	StateScanning      State = "scanning"
	StateBackoff       State = "backoff"
	StateReinit        State = "reinit"
	StateStopped       State = "stopped"
)

const (
	maxConcurrentEnrichment = 8
	reinitThreshold         = 5
	backoffCap              = 300 * time.Second
)

// Config holds the tunables a Worker needs beyond its chain and shared
// dependencies.
type Config struct {
	BlockCheckInterval     time.Duration
	BatchSize              uint64
	ReorgConfirmationDepth uint64
}

// Worker runs chain C's pipeline loop until Stop is signaled.
type Worker struct {
	chain  types.Chain
	cfg    Config
	log    logger.Logger
	store  persistence.Store
	attrib *attribution.Client

	registry chainadapter.Registry

	mu          sync.Mutex
	state       State
	adapter     chainadapter.Adapter
	classify    *classifier.Classifier
	cursor      uint64
	consecutive int

	alive chan struct{} // closed when the run loop exits
	stop  chan struct{}
}

// New builds a Worker for chain.
func New(chain types.Chain, cfg Config, registry chainadapter.Registry, store persistence.Store, attrib *attribution.Client, log logger.Logger) *Worker {
	return &Worker{
		chain:    chain,
		cfg:      cfg,
		registry: registry,
		store:    store,
		attrib:   attrib,
		log:      log.With(logger.String("chain", string(chain.Type))),
		state:    StateInitializing,
		alive:    make(chan struct{}),
		stop:     make(chan struct{}),
	}
}

// Chain returns the chain this worker processes.
func (w *Worker) Chain() types.Chain { return w.chain }

// Alive reports whether the worker's run loop is still executing.
func (w *Worker) Alive() bool {
	select {
	case <-w.alive:
		return false
	default:
		return true
	}
}

// Stop signals the worker to finish its current iteration and exit.
func (w *Worker) Stop() {
	select {
	case <-w.stop:
	default:
		close(w.stop)
	}
}

func (w *Worker) stopped() bool {
	select {
	case <-w.stop:
		return true
	default:
		return false
	}
}

// Run executes the state machine until stopped. It is meant to be called
// from its own goroutine by the Supervisor.
func (w *Worker) Run(ctx context.Context) {
	defer close(w.alive)

	if err := w.initialize(ctx); err != nil {
		w.log.Error("worker failed to initialize", logger.Error(err))
		return
	}

	w.setState(StateScanning)

	for !w.stopped() {
		select {
		case <-ctx.Done():
			return
		default:
		}

		if err := w.scanOnce(ctx); err != nil {
			w.onError(ctx, err)
			continue
		}

		w.consecutive = 0
		w.setState(StateScanning)
		w.sleep(ctx, w.cfg.BlockCheckInterval)
	}
}

func (w *Worker) setState(s State) {
	w.mu.Lock()
	w.state = s
	w.mu.Unlock()
}

// State returns the worker's current lifecycle state.
func (w *Worker) State() State {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.state
}

func (w *Worker) initialize(ctx context.Context) error {
	adapter, err := w.registry.Get(w.chain)
	if err != nil {
		return err
	}
	w.adapter = adapter
	w.classify = classifier.New(adapter, w.log)

	if height, found, err := w.store.ReadCursor(ctx, w.chain.Type); err == nil && found {
		w.cursor = height + 1
	} else {
		latest, err := adapter.LatestHeight(ctx)
		if err != nil {
			return err
		}
		w.cursor = latest
	}

	return nil
}

// scanOnce runs one Scanning-state iteration per the documented steps:
// fetch tip, compute batch end, extract, enrich, persist, advance cursor.
func (w *Worker) scanOnce(ctx context.Context) error {
	latest, err := w.adapter.LatestHeight(ctx)
	if err != nil {
		return err
	}
	if latest < w.cfg.ReorgConfirmationDepth {
		w.sleep(ctx, w.cfg.BlockCheckInterval)
		return nil
	}
	latest -= w.cfg.ReorgConfirmationDepth
	if latest < w.cursor {
		w.sleep(ctx, w.cfg.BlockCheckInterval)
		return nil
	}

	end := w.cursor + w.cfg.BatchSize - 1
	if end > latest {
		end = latest
	}

	ex := extractor.New(w.adapter, w.log, nil)
	deployments, failedBlocks, err := ex.ExtractRange(ctx, w.chain.Type, w.cursor, end)
	if err != nil {
		return err
	}
	if len(failedBlocks) > 0 {
		w.log.Warn("some blocks failed extraction and were skipped",
			logger.Int("count", len(failedBlocks)))
	}

	w.enrichAndPersist(ctx, deployments)

	if err := w.store.AdvanceCursor(ctx, w.chain.Type, end); err != nil {
		return err
	}
	w.cursor = end + 1
	return nil
}

// enrichAndPersist classifies, attributes and enqueues each deployment,
// bounded to maxConcurrentEnrichment concurrent deployments. A single
// deployment's failure is logged and skipped, never stalling the batch.
func (w *Worker) enrichAndPersist(ctx context.Context, deployments []types.Deployment) {
	if len(deployments) == 0 {
		return
	}

	sem := make(chan struct{}, maxConcurrentEnrichment)
	var wg sync.WaitGroup

	for _, d := range deployments {
		d := d
		wg.Add(1)
		sem <- struct{}{}
		go func() {
			defer wg.Done()
			defer func() { <-sem }()
			w.processOne(ctx, d)
		}()
	}

	wg.Wait()
}

func (w *Worker) processOne(ctx context.Context, d types.Deployment) {
	classified := w.classify.Classify(ctx, d)

	attributed := types.AttributedDeployment{ClassifiedDeployment: classified}
	if entity, err := w.attrib.Lookup(ctx, w.chain.Type, d.DeployerAddress); err != nil {
		w.log.Warn("attribution lookup failed, persisting without entity",
			logger.String("address", d.ContractAddress), logger.Error(err))
	} else if entity != nil {
		name, id := entity.EntityName, entity.EntityID
		attributed.EntityName = &name
		attributed.EntityID = &id
	}

	row, err := types.NewContractRow(attributed, time.Now().UTC())
	if err != nil {
		w.log.Warn("failed to build contract row, dropping deployment",
			logger.String("address", d.ContractAddress), logger.Error(err))
		return
	}

	if err := w.store.Enqueue(ctx, row); err != nil {
		w.log.Warn("failed to enqueue contract row",
			logger.String("address", d.ContractAddress), logger.Error(err))
	}
}

// onError applies the documented error-handling path: transport and
// other errors both back off exponentially; five consecutive failures
// trigger Reinit, which rebuilds the classifier and re-reads the cursor.
// Reinit takes the adapter from the registry again, and the registry
// returns the chain's memoized adapter, so the adapter is not replaced.
func (w *Worker) onError(ctx context.Context, err error) {
	w.consecutive++
	w.log.Warn("scan iteration failed", logger.Int("consecutive_errors", w.consecutive), logger.Error(err))

	if w.consecutive >= reinitThreshold {
		w.setState(StateReinit)
		if reinitErr := w.initialize(ctx); reinitErr != nil {
			w.log.Error("reinit failed, backing off", logger.Error(reinitErr))
			w.backoff(ctx)
			return
		}
		w.consecutive = 0
		w.setState(StateScanning)
		return
	}

	w.backoff(ctx)
}

func (w *Worker) backoff(ctx context.Context) {
	w.setState(StateBackoff)
	shift := w.consecutive - 1
	if shift > 5 {
		shift = 5
	}
	if shift < 0 {
		shift = 0
	}
	delay := w.cfg.BlockCheckInterval * time.Duration(1<<uint(shift))
	if delay > backoffCap {
		delay = backoffCap
	}
	w.sleep(ctx, delay)
}

func (w *Worker) sleep(ctx context.Context, d time.Duration) {
	select {
	case <-ctx.Done():
	case <-w.stop:
	case <-time.After(d):
	}
}
