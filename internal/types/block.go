package types

import (
	"math/big"
	"time"
)

// Block is a chain-agnostic view of a mined block with full transaction
// bodies, as returned by ChainAdapter.GetBlockWithTransactions.
type Block struct {
	Chain        ChainType
	Hash         string
	Number       *big.Int
	ParentHash   string
	Timestamp    time.Time
	Transactions []*Transaction
}

// Transaction is a chain-agnostic view of a transaction within a block.
type Transaction struct {
	Chain ChainType
	Hash  string
	// From is the sender (transaction origin).
	From string
	// To is the recipient; empty for a direct contract-creation
	// transaction.
	To string
	// BlockNumber is the number of the block the transaction was mined
	// in.
	BlockNumber *big.Int
	// Index is the transaction's position within its block.
	Index uint
}

// Receipt is a chain-agnostic view of a transaction's execution result.
type Receipt struct {
	TransactionHash string
	BlockNumber     *big.Int
	Status          uint64
	// ContractAddress is the address of the contract created by this
	// transaction, set only for direct deployments.
	ContractAddress string
	Logs            []Log
}

// Log is a single event log entry emitted during transaction execution.
type Log struct {
	// Address is the contract address that emitted the log.
	Address string
	// Topics are the indexed log topics; Topics[0] is the event
	// signature hash for non-anonymous events.
	Topics []string
	Data   []byte

	BlockNumber     *big.Int
	TransactionHash string
	TransactionIndex uint
	LogIndex        uint
}
