package classifier

import (
	"github.com/ethereum/go-ethereum/crypto"

	"chainwatch/internal/types"
)

// selector returns the 4-byte function selector for a canonical method
// signature.
func selector(sig types.MethodSignature) [4]byte {
	hash := crypto.Keccak256([]byte(sig))
	var sel [4]byte
	copy(sel[:], hash[:4])
	return sel
}

// interfaceSpec names an interface's required selector set and the
// minimum number of them that must be present in a contract's bytecode
// for it to be considered a candidate.
type interfaceSpec struct {
	contractType types.ContractType
	selectors    []types.MethodSignature
	required     int
}

var interfaceSpecs = []interfaceSpec{
	{
		contractType: types.ContractTypeERC20,
		selectors: []types.MethodSignature{
			types.ERC20TotalSupplyMethod,
			types.ERC20BalanceOfMethod,
			types.ERC20TransferMethod,
			types.ERC20ApproveMethod,
			types.ERC20AllowanceMethod,
			types.ERC20TransferFromMethod,
		},
		required: 5,
	},
	{
		contractType: types.ContractTypeERC721,
		selectors: []types.MethodSignature{
			types.ERC721BalanceOfMethod,
			types.ERC721OwnerOfMethod,
			types.ERC721SafeTransferFromMethod,
			types.ERC721TransferFromMethod,
			types.ERC721ApproveMethod,
			types.ERC721SetApprovalForAllMethod,
		},
		required: 4,
	},
	{
		contractType: types.ContractTypeRouter,
		selectors: []types.MethodSignature{
			types.RouterSwapExactTokensForTokensMethod,
			types.RouterSwapETHForExactTokensMethod,
			types.RouterSwapExactETHForTokensMethod,
			types.RouterAddLiquidityMethod,
			types.RouterRemoveLiquidityMethod,
		},
		required: 2,
	},
	{
		contractType: types.ContractTypePool,
		selectors: []types.MethodSignature{
			types.PoolToken0Method,
			types.PoolToken1Method,
		},
		required: 2,
	},
	{
		contractType: types.ContractTypeStaking,
		selectors: []types.MethodSignature{
			types.StakingStakeMethod,
			types.StakingUnstakeMethod,
			types.StakingWithdrawMethod,
			types.StakingEarnedMethod,
			types.StakingRewardMethod,
		},
		required: 3,
	},
	{
		contractType: types.ContractTypeMultisig,
		selectors: []types.MethodSignature{
			types.MultisigSubmitTransactionMethod,
			types.MultisigConfirmTransactionMethod,
			types.MultisigRevokeConfirmationMethod,
			types.MultisigGetOwnersMethod,
			types.MultisigRequiredMethod,
		},
		required: 3,
	},
	{
		contractType: types.ContractTypeTimelock,
		selectors: []types.MethodSignature{
			types.TimelockQueueTransactionMethod,
			types.TimelockExecuteTransactionMethod,
			types.TimelockCancelTransactionMethod,
			types.TimelockDelayMethod,
			types.TimelockGracePeriodMethod,
		},
		required: 3,
	},
}

// selectorIndex maps selector bytes back to the signature, built once.
var selectorIndex = buildSelectorIndex()

func buildSelectorIndex() map[[4]byte]types.MethodSignature {
	idx := map[[4]byte]types.MethodSignature{}
	for _, spec := range interfaceSpecs {
		for _, sig := range spec.selectors {
			idx[selector(sig)] = sig
		}
	}
	return idx
}

// scanSelectors walks bytecode for PUSH4 immediates (0x63) whose operand
// matches a known selector. This is the same lightweight heuristic used
// to spot embedded function selectors without a full opcode disassembly:
// contracts dispatch on selector via a PUSH4/DUP/EQ ladder, so scanning
// for PUSH4 byte sequences recovers the dispatch table cheaply.
func scanSelectors(bytecode []byte) map[types.MethodSignature]bool {
	const push4 = 0x63
	found := map[types.MethodSignature]bool{}

	for i := 0; i < len(bytecode); i++ {
		op := bytecode[i]
		switch {
		case op == push4 && i+4 < len(bytecode):
			var sel [4]byte
			copy(sel[:], bytecode[i+1:i+5])
			if sig, ok := selectorIndex[sel]; ok {
				found[sig] = true
			}
			i += 4
		case op >= 0x60 && op <= 0x7f:
			// Any other PUSH1..PUSH32: skip its immediate bytes so we
			// don't misread operand data as opcodes.
			i += int(op - 0x60 + 1)
		}
	}

	return found
}

// isProxyBytecode checks for the EIP-1967 implementation storage slot
// literal or a DELEGATECALL opcode near the start of the runtime code.
func isProxyBytecode(bytecode []byte) bool {
	const eip1967ImplSlot = "360894a13ba1a3210667c828492db98dca3e2076cc3735a920a3ca505d382bb"
	const delegatecall = 0xf4

	hex := make([]byte, 0, len(bytecode)*2)
	const hexDigits = "0123456789abcdef"
	for _, b := range bytecode {
		hex = append(hex, hexDigits[b>>4], hexDigits[b&0x0f])
	}
	if containsSubsequence(hex, []byte(eip1967ImplSlot)) {
		return true
	}

	scanLen := len(bytecode)
	if scanLen > 32 {
		scanLen = 32
	}
	for i := 0; i < scanLen; i++ {
		if bytecode[i] == delegatecall {
			return true
		}
	}
	return false
}

func containsSubsequence(haystack, needle []byte) bool {
	if len(needle) == 0 || len(needle) > len(haystack) {
		return false
	}
	for i := 0; i+len(needle) <= len(haystack); i++ {
		match := true
		for j := range needle {
			if haystack[i+j] != needle[j] {
				match = false
				break
			}
		}
		if match {
			return true
		}
	}
	return false
}
