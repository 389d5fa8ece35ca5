package extractor

import (
	"context"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"chainwatch/internal/logger"
	"chainwatch/internal/types"
)

// fakeAdapter implements chainadapter.Adapter against canned blocks and
// receipts keyed by height / tx hash.
type fakeAdapter struct {
	chain        types.Chain
	blocks       map[uint64]*types.Block
	receipts     map[string]*types.Receipt
	failHeights  map[uint64]bool
	failReceipts map[string]bool
}

func newFakeAdapter(chain types.Chain) *fakeAdapter {
	return &fakeAdapter{
		chain:        chain,
		blocks:       map[uint64]*types.Block{},
		receipts:     map[string]*types.Receipt{},
		failHeights:  map[uint64]bool{},
		failReceipts: map[string]bool{},
	}
}

func (f *fakeAdapter) LatestHeight(ctx context.Context) (uint64, error) { return 0, nil }

func (f *fakeAdapter) GetBlockWithTransactions(ctx context.Context, height uint64) (*types.Block, error) {
	if f.failHeights[height] {
		return nil, assert.AnError
	}
	b, ok := f.blocks[height]
	if !ok {
		return &types.Block{Chain: f.chain.Type, Number: new(big.Int).SetUint64(height)}, nil
	}
	return b, nil
}

func (f *fakeAdapter) GetTransactionReceipt(ctx context.Context, hash string) (*types.Receipt, error) {
	if f.failReceipts[hash] {
		return nil, assert.AnError
	}
	r, ok := f.receipts[hash]
	if !ok {
		return &types.Receipt{TransactionHash: hash}, nil
	}
	return r, nil
}

func (f *fakeAdapter) GetCode(ctx context.Context, address string) ([]byte, error) { return nil, nil }
func (f *fakeAdapter) EthCall(ctx context.Context, address string, data []byte) ([]byte, error) {
	return nil, nil
}
func (f *fakeAdapter) Chain() types.Chain { return f.chain }
func (f *fakeAdapter) Close()             {}

func testLogger(t *testing.T) logger.Logger {
	t.Helper()
	log, err := logger.NewLogger(logger.WithLevel("error"))
	require.NoError(t, err)
	return log
}

func TestExtractRange_DirectDeployment(t *testing.T) {
	chain := types.Chain{Type: "ethereum"}
	adapter := newFakeAdapter(chain)

	adapter.blocks[10] = &types.Block{
		Chain:  "ethereum",
		Number: big.NewInt(10),
		Transactions: []*types.Transaction{
			{Chain: "ethereum", Hash: "0xabc", From: "0xdeployer", To: "", Index: 0},
		},
	}
	adapter.receipts["0xabc"] = &types.Receipt{
		TransactionHash: "0xabc",
		ContractAddress: "0xnewcontract",
	}

	ex := New(adapter, testLogger(t), nil)
	deployments, failed, err := ex.ExtractRange(context.Background(), "ethereum", 10, 10)

	require.NoError(t, err)
	assert.Empty(t, failed)
	require.Len(t, deployments, 1)
	assert.Equal(t, types.DeploymentKindDirect, deployments[0].Kind)
	assert.Equal(t, "0xnewcontract", deployments[0].ContractAddress)
	assert.Equal(t, "0xdeployer", deployments[0].DeployerAddress)
}

func TestExtractRange_FactoryDeployment(t *testing.T) {
	chain := types.Chain{Type: "ethereum"}
	adapter := newFakeAdapter(chain)

	topic0 := crypto.Keccak256Hash([]byte("PairCreated(address,address,address,uint256)")).Hex()

	// PairCreated(address indexed token0, address indexed token1, address pair, uint256)
	// has only 3 topics (sig, token0, token1); the non-indexed `pair` and
	// `uint256` fields are ABI-encoded into Data as two 32-byte words.
	data := make([]byte, 64)
	pair := common.HexToAddress("0x000000000000000000000000000000000000c0de")
	copy(data[12:32], pair.Bytes())

	adapter.blocks[11] = &types.Block{
		Chain:  "ethereum",
		Number: big.NewInt(11),
		Transactions: []*types.Transaction{
			{Chain: "ethereum", Hash: "0xfac", From: "0xcaller", To: "0xfactory", Index: 0},
		},
	}
	adapter.receipts["0xfac"] = &types.Receipt{
		TransactionHash: "0xfac",
		Logs: []types.Log{
			{
				Address:  "0xfactory",
				Topics:   []string{topic0, "0x0", "0x0"},
				Data:     data,
				LogIndex: 0,
			},
		},
	}

	ex := New(adapter, testLogger(t), nil)
	deployments, failed, err := ex.ExtractRange(context.Background(), "ethereum", 11, 11)

	require.NoError(t, err)
	assert.Empty(t, failed)
	require.Len(t, deployments, 1)
	assert.Equal(t, types.DeploymentKindFactory, deployments[0].Kind)
	assert.Equal(t, "0xfactory", deployments[0].FactoryAddress)
	assert.Equal(t, pair.Hex(), deployments[0].ContractAddress)
}

func TestExtractRange_FailedBlockIsSkippedNotAborted(t *testing.T) {
	chain := types.Chain{Type: "ethereum"}
	adapter := newFakeAdapter(chain)
	adapter.failHeights[5] = true

	adapter.blocks[6] = &types.Block{
		Chain:  "ethereum",
		Number: big.NewInt(6),
		Transactions: []*types.Transaction{
			{Chain: "ethereum", Hash: "0xok", From: "0xd", To: "", Index: 0},
		},
	}
	adapter.receipts["0xok"] = &types.Receipt{TransactionHash: "0xok", ContractAddress: "0xc1"}

	ex := New(adapter, testLogger(t), nil)
	deployments, failed, err := ex.ExtractRange(context.Background(), "ethereum", 5, 6)

	require.NoError(t, err)
	assert.Equal(t, []uint64{5}, failed)
	require.Len(t, deployments, 1)
	assert.Equal(t, "0xc1", deployments[0].ContractAddress)
}
