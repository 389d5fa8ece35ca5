package classifier

import (
	"context"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"chainwatch/internal/logger"
	"chainwatch/internal/types"
)

// fakeAdapter answers GetCode/EthCall from canned data, enough to drive
// the classifier without a real chain.
type fakeAdapter struct {
	chain    types.Chain
	code     []byte
	codeErr  error
	byMethod map[types.MethodSignature][]byte
}

func (f *fakeAdapter) LatestHeight(ctx context.Context) (uint64, error) { return 0, nil }
func (f *fakeAdapter) GetBlockWithTransactions(ctx context.Context, height uint64) (*types.Block, error) {
	return nil, nil
}
func (f *fakeAdapter) GetTransactionReceipt(ctx context.Context, hash string) (*types.Receipt, error) {
	return nil, nil
}
func (f *fakeAdapter) GetCode(ctx context.Context, address string) ([]byte, error) {
	return f.code, f.codeErr
}
func (f *fakeAdapter) EthCall(ctx context.Context, address string, data []byte) ([]byte, error) {
	for method, out := range f.byMethod {
		sel := selector(method)
		if len(data) >= 4 && [4]byte(data[:4]) == sel {
			return out, nil
		}
	}
	return nil, assert.AnError
}
func (f *fakeAdapter) Chain() types.Chain { return f.chain }
func (f *fakeAdapter) Close()             {}

func testLogger(t *testing.T) logger.Logger {
	t.Helper()
	log, err := logger.NewLogger(logger.WithLevel("error"))
	require.NoError(t, err)
	return log
}

// bytecodeWithSelectors builds synthetic runtime code containing a PUSH4
// dispatch entry for each given selector.
func bytecodeWithSelectors(sigs ...types.MethodSignature) []byte {
	var code []byte
	for _, sig := range sigs {
		sel := selector(sig)
		code = append(code, 0x63)
		code = append(code, sel[:]...)
		code = append(code, 0x14) // EQ, arbitrary filler
	}
	return code
}

func packString(t *testing.T, s string) []byte {
	t.Helper()
	strType, err := abi.NewType("string", "", nil)
	require.NoError(t, err)
	packed, err := abi.Arguments{{Type: strType}}.Pack(s)
	require.NoError(t, err)
	return packed
}

func TestClassify_EmptyBytecodeIsUnknown(t *testing.T) {
	adapter := &fakeAdapter{chain: types.Chain{Type: "ethereum"}}
	c := New(adapter, testLogger(t))

	result := c.Classify(context.Background(), types.Deployment{ContractAddress: "0xabc"})

	assert.Equal(t, types.ContractTypeUnknown, result.PrimaryType)
	assert.Zero(t, result.Confidence)
}

func TestClassify_BytecodeFetchFailureIsError(t *testing.T) {
	adapter := &fakeAdapter{chain: types.Chain{Type: "ethereum"}, codeErr: assert.AnError}
	c := New(adapter, testLogger(t))

	result := c.Classify(context.Background(), types.Deployment{ContractAddress: "0xabc"})

	assert.Equal(t, types.ContractTypeError, result.PrimaryType)
}

func TestClassify_ERC20WithMetadata(t *testing.T) {
	adapter := &fakeAdapter{
		chain: types.Chain{Type: "ethereum"},
		code: bytecodeWithSelectors(
			types.ERC20TotalSupplyMethod,
			types.ERC20BalanceOfMethod,
			types.ERC20TransferMethod,
			types.ERC20ApproveMethod,
			types.ERC20AllowanceMethod,
		),
		byMethod: map[types.MethodSignature][]byte{
			types.ERC20NameMethod:     packString(t, "Test Token"),
			types.ERC20SymbolMethod:   packString(t, "TST"),
			types.ERC20DecimalsMethod: common.LeftPadBytes([]byte{18}, 32),
			types.ERC20TotalSupplyMethod: common.LeftPadBytes(big.NewInt(1_000_000).Bytes(), 32),
		},
	}
	c := New(adapter, testLogger(t))

	result := c.Classify(context.Background(), types.Deployment{ContractAddress: "0xabc"})

	require.Equal(t, types.ContractTypeERC20, result.PrimaryType)
	assert.Equal(t, 1.0, result.Confidence)
	require.NotNil(t, result.ERC20)
	assert.Equal(t, "Test Token", *result.ERC20.Name)
	assert.Equal(t, "TST", *result.ERC20.Symbol)
	require.NotNil(t, result.ERC20.Decimals)
	assert.Equal(t, uint8(18), *result.ERC20.Decimals)
	require.NotNil(t, result.ERC20.TotalSupply)
	assert.Equal(t, "1000000", *result.ERC20.TotalSupply)
}

func TestClassify_BelowRequiredCountIsNotCandidate(t *testing.T) {
	adapter := &fakeAdapter{
		chain: types.Chain{Type: "ethereum"},
		code: bytecodeWithSelectors(
			types.ERC20TotalSupplyMethod,
			types.ERC20BalanceOfMethod,
		),
	}
	c := New(adapter, testLogger(t))

	result := c.Classify(context.Background(), types.Deployment{ContractAddress: "0xabc"})

	assert.Equal(t, types.ContractTypeUnknown, result.PrimaryType)
}

func TestClassify_FailedViewCallDoesNotAbort(t *testing.T) {
	adapter := &fakeAdapter{
		chain: types.Chain{Type: "ethereum"},
		code: bytecodeWithSelectors(
			types.ERC20TotalSupplyMethod,
			types.ERC20BalanceOfMethod,
			types.ERC20TransferMethod,
			types.ERC20ApproveMethod,
			types.ERC20AllowanceMethod,
		),
		byMethod: map[types.MethodSignature][]byte{
			types.ERC20NameMethod: packString(t, "Partial Token"),
		},
	}
	c := New(adapter, testLogger(t))

	result := c.Classify(context.Background(), types.Deployment{ContractAddress: "0xabc"})

	require.Equal(t, types.ContractTypeERC20, result.PrimaryType)
	require.NotNil(t, result.ERC20)
	assert.Equal(t, "Partial Token", *result.ERC20.Name)
	assert.Nil(t, result.ERC20.Symbol)
	assert.Nil(t, result.ERC20.Decimals)
}
