// Package chainadapter connects to an ordered list of RPC endpoints for a
// single chain and exposes the narrow read surface the rest of the
// pipeline needs: tip height, blocks with full transaction bodies,
// receipts, code, and read-only calls. Every operation fails over across
// endpoints before giving up, so a dead or rate-limiting RPC provider
// degrades the pipeline instead of stalling it.
package chainadapter

import (
	"context"

	"chainwatch/internal/types"
)

// Adapter is the Chain Adapter component from the design: it abstracts
// one chain's RPC surface behind failover, retry and backoff.
type Adapter interface {
	// LatestHeight returns the chain's current tip.
	LatestHeight(ctx context.Context) (uint64, error)

	// GetBlockWithTransactions returns the block at height with full
	// transaction bodies.
	GetBlockWithTransactions(ctx context.Context, height uint64) (*types.Block, error)

	// GetTransactionReceipt returns the receipt for a transaction hash.
	GetTransactionReceipt(ctx context.Context, hash string) (*types.Receipt, error)

	// GetCode returns the deployed bytecode at an address (empty for a
	// non-contract or not-yet-mined address).
	GetCode(ctx context.Context, address string) ([]byte, error)

	// EthCall performs a read-only call against a contract address.
	EthCall(ctx context.Context, address string, data []byte) ([]byte, error)

	// Chain returns the chain this adapter is connected to.
	Chain() types.Chain

	// Close releases any open connections.
	Close()
}
