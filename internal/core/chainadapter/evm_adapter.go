package chainadapter

import (
	"context"
	"math/big"
	"sync"
	"time"

	ethereum "github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	ethTypes "github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/ethclient"

	"chainwatch/internal/errors"
	"chainwatch/internal/logger"
	"chainwatch/internal/types"
)

const (
	// failoverMaxRotations bounds how many times we walk the full
	// endpoint list before surfacing a transport error.
	failoverMaxRotations = 3

	// backoff between rotations, exponential starting at this base and
	// capped at the ceiling below.
	failoverBackoffBase = 5 * time.Second
	failoverBackoffCap  = 300 * time.Second
)

// evmAdapter implements Adapter for EVM-compatible chains, dialing
// lazily and failing over across the chain's configured RPC URLs.
type evmAdapter struct {
	chain types.Chain
	log   logger.Logger

	mu        sync.Mutex
	clients   []*ethclient.Client // parallel to chain.RPCURLs, nil until dialed
	preferred int                 // index of the last known-good endpoint
}

// NewEVMAdapter constructs an Adapter for chain. Endpoints are dialed
// lazily on first use, not at construction time.
func NewEVMAdapter(chain types.Chain, log logger.Logger) (Adapter, error) {
	if len(chain.RPCURLs) == 0 {
		return nil, errors.NewMissingRPCURLError(string(chain.Type))
	}
	return &evmAdapter{
		chain:   chain,
		log:     log,
		clients: make([]*ethclient.Client, len(chain.RPCURLs)),
	}, nil
}

func (a *evmAdapter) Chain() types.Chain { return a.chain }

func (a *evmAdapter) Close() {
	a.mu.Lock()
	defer a.mu.Unlock()
	for _, c := range a.clients {
		if c != nil {
			c.Close()
		}
	}
}

// clientAt lazily dials the endpoint at idx, reusing an existing
// connection if already dialed.
func (a *evmAdapter) clientAt(idx int) (*ethclient.Client, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.clients[idx] != nil {
		return a.clients[idx], nil
	}
	client, err := ethclient.Dial(a.chain.RPCURLs[idx])
	if err != nil {
		return nil, err
	}
	a.clients[idx] = client
	return client, nil
}

// withFailover runs call against the chain's endpoints in round-robin
// order starting from the last known-good one. A rotation is one full
// pass over every endpoint; between rotations it backs off
// exponentially. After failoverMaxRotations exhausted rotations it
// returns a TransportError.
func withFailover[T any](ctx context.Context, a *evmAdapter, op string, call func(ctx context.Context, client *ethclient.Client) (T, error)) (T, error) {
	var zero T
	var lastErr error

	a.mu.Lock()
	start := a.preferred
	n := len(a.clients)
	a.mu.Unlock()

	backoff := failoverBackoffBase

	for rotation := 0; rotation < failoverMaxRotations; rotation++ {
		for i := 0; i < n; i++ {
			idx := (start + i) % n

			client, err := a.clientAt(idx)
			if err != nil {
				lastErr = err
				continue
			}

			result, err := call(ctx, client)
			if err != nil {
				lastErr = err
				continue
			}

			a.mu.Lock()
			a.preferred = idx
			a.mu.Unlock()
			return result, nil
		}

		if rotation == failoverMaxRotations-1 {
			break
		}

		select {
		case <-ctx.Done():
			return zero, errors.NewTransportError(string(a.chain.Type), op, ctx.Err())
		case <-time.After(backoff):
		}

		backoff *= 2
		if backoff > failoverBackoffCap {
			backoff = failoverBackoffCap
		}
	}

	return zero, errors.NewTransportError(string(a.chain.Type), op, lastErr)
}

func (a *evmAdapter) LatestHeight(ctx context.Context) (uint64, error) {
	return withFailover(ctx, a, "latest_height", func(ctx context.Context, client *ethclient.Client) (uint64, error) {
		return client.BlockNumber(ctx)
	})
}

func (a *evmAdapter) GetBlockWithTransactions(ctx context.Context, height uint64) (*types.Block, error) {
	return withFailover(ctx, a, "get_block", func(ctx context.Context, client *ethclient.Client) (*types.Block, error) {
		block, err := client.BlockByNumber(ctx, new(big.Int).SetUint64(height))
		if err != nil {
			return nil, err
		}

		chainID, err := client.ChainID(ctx)
		if err != nil {
			return nil, err
		}
		signer := ethTypes.LatestSignerForChainID(chainID)

		txs := make([]*types.Transaction, 0, len(block.Transactions()))
		for idx, tx := range block.Transactions() {
			var to string
			if tx.To() != nil {
				to = tx.To().Hex()
			}

			from, senderErr := ethTypes.Sender(signer, tx)
			var fromStr string
			if senderErr == nil {
				fromStr = from.Hex()
			}

			txs = append(txs, &types.Transaction{
				Chain:       a.chain.Type,
				Hash:        tx.Hash().Hex(),
				From:        fromStr,
				To:          to,
				BlockNumber: new(big.Int).SetUint64(height),
				Index:       uint(idx),
			})
		}

		return &types.Block{
			Chain:        a.chain.Type,
			Hash:         block.Hash().Hex(),
			Number:       new(big.Int).SetUint64(height),
			ParentHash:   block.ParentHash().Hex(),
			Timestamp:    time.Unix(int64(block.Time()), 0).UTC(),
			Transactions: txs,
		}, nil
	})
}

func (a *evmAdapter) GetTransactionReceipt(ctx context.Context, hash string) (*types.Receipt, error) {
	return withFailover(ctx, a, "get_receipt", func(ctx context.Context, client *ethclient.Client) (*types.Receipt, error) {
		receipt, err := client.TransactionReceipt(ctx, common.HexToHash(hash))
		if err != nil {
			return nil, err
		}

		var contractAddr string
		if receipt.ContractAddress != (common.Address{}) {
			contractAddr = receipt.ContractAddress.Hex()
		}

		logs := make([]types.Log, 0, len(receipt.Logs))
		for _, l := range receipt.Logs {
			topics := make([]string, 0, len(l.Topics))
			for _, t := range l.Topics {
				topics = append(topics, t.Hex())
			}
			logs = append(logs, types.Log{
				Address:          l.Address.Hex(),
				Topics:           topics,
				Data:             l.Data,
				BlockNumber:      new(big.Int).SetUint64(l.BlockNumber),
				TransactionHash:  l.TxHash.Hex(),
				TransactionIndex: l.TxIndex,
				LogIndex:         l.Index,
			})
		}

		return &types.Receipt{
			TransactionHash: hash,
			BlockNumber:     new(big.Int).SetUint64(receipt.BlockNumber.Uint64()),
			Status:          receipt.Status,
			ContractAddress: contractAddr,
			Logs:            logs,
		}, nil
	})
}

func (a *evmAdapter) GetCode(ctx context.Context, address string) ([]byte, error) {
	return withFailover(ctx, a, "get_code", func(ctx context.Context, client *ethclient.Client) ([]byte, error) {
		return client.CodeAt(ctx, common.HexToAddress(address), nil)
	})
}

func (a *evmAdapter) EthCall(ctx context.Context, address string, data []byte) ([]byte, error) {
	return withFailover(ctx, a, "eth_call", func(ctx context.Context, client *ethclient.Client) ([]byte, error) {
		addr := common.HexToAddress(address)
		msg := ethereum.CallMsg{To: &addr, Data: data}
		return client.CallContract(ctx, msg, nil)
	})
}
