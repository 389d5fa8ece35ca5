// Package extractor turns raw block ranges into an ordered sequence of
// contract deployment events, detecting both direct (EOA-initiated)
// deployments and factory-initiated ones.
package extractor

import (
	"context"
	"sort"
	"time"

	"chainwatch/internal/core/chainadapter"
	"chainwatch/internal/logger"
	"chainwatch/internal/types"
)

// Extractor produces deployment events from a block range on one chain.
type Extractor struct {
	adapter      chainadapter.Adapter
	log          logger.Logger
	factorySpecs []FactorySpec
}

// New builds an Extractor over adapter. specs may be nil, in which case
// DefaultFactorySpecs is used.
func New(adapter chainadapter.Adapter, log logger.Logger, specs []FactorySpec) *Extractor {
	if specs == nil {
		specs = DefaultFactorySpecs
	}
	return &Extractor{adapter: adapter, log: log, factorySpecs: specs}
}

// ExtractRange scans blocks [from, to] inclusive and returns every
// deployment found, in ascending (block, tx index, log index) order,
// along with the set of block heights that could not be scanned. A
// single block failure never aborts the rest of the range.
func (e *Extractor) ExtractRange(ctx context.Context, chain types.ChainType, from, to uint64) (deployments []types.Deployment, failedBlocks []uint64, err error) {
	if from > to {
		return nil, nil, nil
	}

	for height := from; height <= to; height++ {
		select {
		case <-ctx.Done():
			return deployments, failedBlocks, ctx.Err()
		default:
		}

		block, blockErr := e.adapter.GetBlockWithTransactions(ctx, height)
		if blockErr != nil {
			e.log.Warn("failed to fetch block, skipping",
				logger.String("chain", string(chain)),
				logger.Uint64("height", height),
				logger.Error(blockErr))
			failedBlocks = append(failedBlocks, height)
			continue
		}

		blockDeployments, blockErr := e.extractBlock(ctx, chain, block)
		if blockErr != nil {
			e.log.Warn("failed to extract deployments from block, skipping",
				logger.String("chain", string(chain)),
				logger.Uint64("height", height),
				logger.Error(blockErr))
			failedBlocks = append(failedBlocks, height)
			continue
		}

		deployments = append(deployments, blockDeployments...)
	}

	return deployments, failedBlocks, nil
}

// extractBlock walks every transaction in block in index order, emitting
// at most one direct deployment and any number of factory deployments per
// transaction, direct-before-factory within that transaction.
func (e *Extractor) extractBlock(ctx context.Context, chain types.ChainType, block *types.Block) ([]types.Deployment, error) {
	type indexed struct {
		txIndex int
		order   int // 0 = direct, 1 = factory; preserves direct-before-factory
		logIdx  uint
		d       types.Deployment
	}

	var found []indexed

	for _, tx := range block.Transactions {
		receipt, err := e.adapter.GetTransactionReceipt(ctx, tx.Hash)
		if err != nil {
			return nil, err
		}

		now := time.Now().UTC()

		if tx.To == "" && receipt.ContractAddress != "" {
			found = append(found, indexed{
				txIndex: int(tx.Index),
				order:   0,
				d: types.Deployment{
					ChainType:       chain,
					ContractAddress: receipt.ContractAddress,
					DeployerAddress: tx.From,
					BlockNumber:     block.Number.Uint64(),
					TransactionHash: tx.Hash,
					TransactionIndex: tx.Index,
					Kind:            types.DeploymentKindDirect,
					CreatedAt:       now,
				},
			})
		}

		for _, log := range receipt.Logs {
			child, deployerHint, matched := matchFactoryLog(e.factorySpecs, log)
			if !matched {
				continue
			}
			deployer := deployerHint
			if deployer == "" {
				deployer = tx.From
			}
			found = append(found, indexed{
				txIndex: int(tx.Index),
				order:   1,
				logIdx:  log.LogIndex,
				d: types.Deployment{
					ChainType:        chain,
					ContractAddress:  child,
					DeployerAddress:  deployer,
					BlockNumber:      block.Number.Uint64(),
					TransactionHash:  tx.Hash,
					TransactionIndex: tx.Index,
					LogIndex:         log.LogIndex,
					Kind:             types.DeploymentKindFactory,
					FactoryAddress:   log.Address,
					CreatedAt:        now,
				},
			})
		}
	}

	sort.SliceStable(found, func(i, j int) bool {
		if found[i].txIndex != found[j].txIndex {
			return found[i].txIndex < found[j].txIndex
		}
		if found[i].order != found[j].order {
			return found[i].order < found[j].order
		}
		return found[i].logIdx < found[j].logIdx
	})

	result := make([]types.Deployment, len(found))
	for i, f := range found {
		result[i] = f.d
	}
	return result, nil
}
