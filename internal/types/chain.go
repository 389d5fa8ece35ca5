// Package types holds the data model shared across the ingestion
// pipeline: chain/address primitives, the raw chain-adapter shapes
// (Block, Transaction, Receipt, Log), the in-flight deployment record and
// its enrichments, and the rows persisted to durable storage.
package types

// ChainType identifies a configured blockchain by name. Unlike the fixed
// three-chain enum a single-product teacher repo can get away with, this
// pipeline treats chain identity as open-ended: whatever the operator
// configures under internal/config.Config.Chains is a valid ChainType.
type ChainType string

// Chain describes one configured EVM-compatible network.
type Chain struct {
	// Type is the configured chain name (e.g. "ethereum", "polygon").
	Type ChainType
	// ID is the on-chain chain id, used to validate RPC responses and to
	// tag persisted rows.
	ID int64
	// RPCURLs is the ordered list of endpoints the Chain Adapter fails
	// over across.
	RPCURLs []string
}
