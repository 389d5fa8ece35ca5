package types

// MethodSignature is a Solidity function signature in canonical form
// ("name(type,type,...)"), the preimage of a 4-byte selector.
type MethodSignature string

// EventSignature is a Solidity event signature in canonical form, the
// preimage of a log's topic-0.
type EventSignature string

// ERC20 method signatures (required selector set: totalSupply,
// balanceOf, transfer, approve, allowance, transferFrom — >= 5 matched is
// a candidate).
const (
	ERC20TotalSupplyMethod   MethodSignature = "totalSupply()"
	ERC20BalanceOfMethod     MethodSignature = "balanceOf(address)"
	ERC20TransferMethod      MethodSignature = "transfer(address,uint256)"
	ERC20ApproveMethod       MethodSignature = "approve(address,uint256)"
	ERC20AllowanceMethod     MethodSignature = "allowance(address,address)"
	ERC20TransferFromMethod  MethodSignature = "transferFrom(address,address,uint256)"
	ERC20NameMethod          MethodSignature = "name()"
	ERC20SymbolMethod        MethodSignature = "symbol()"
	ERC20DecimalsMethod      MethodSignature = "decimals()"
)

// ERC721 method signatures (required selector set: balanceOf, ownerOf,
// safeTransferFrom, transferFrom, approve, setApprovalForAll — >= 4
// matched is a candidate).
const (
	ERC721BalanceOfMethod         MethodSignature = "balanceOf(address)"
	ERC721OwnerOfMethod           MethodSignature = "ownerOf(uint256)"
	ERC721SafeTransferFromMethod  MethodSignature = "safeTransferFrom(address,address,uint256)"
	ERC721TransferFromMethod      MethodSignature = "transferFrom(address,address,uint256)"
	ERC721ApproveMethod           MethodSignature = "approve(address,uint256)"
	ERC721SetApprovalForAllMethod MethodSignature = "setApprovalForAll(address,bool)"
	ERC721NameMethod              MethodSignature = "name()"
	ERC721SymbolMethod            MethodSignature = "symbol()"
	ERC721TotalSupplyMethod       MethodSignature = "totalSupply()"
)

// Router method signatures (any two of these make it a candidate).
const (
	RouterSwapExactTokensForTokensMethod MethodSignature = "swapExactTokensForTokens(uint256,uint256,address[],address,uint256)"
	RouterSwapETHForExactTokensMethod    MethodSignature = "swapETHForExactTokens(uint256,address[],address,uint256)"
	RouterSwapExactETHForTokensMethod    MethodSignature = "swapExactETHForTokens(uint256,address[],address,uint256)"
	RouterAddLiquidityMethod             MethodSignature = "addLiquidity(address,address,uint256,uint256,uint256,uint256,address,uint256)"
	RouterRemoveLiquidityMethod          MethodSignature = "removeLiquidity(address,address,uint256,uint256,uint256,address,uint256)"
)

// Pool method signatures (both required).
const (
	PoolToken0Method MethodSignature = "token0()"
	PoolToken1Method MethodSignature = "token1()"
)

// Staking method signatures (candidate set; highest-priority match wins
// ties per classifierPriority, so an exact minimum count is less load
// bearing here than for ERC20/ERC721/Router).
const (
	StakingStakeMethod   MethodSignature = "stake(uint256)"
	StakingUnstakeMethod MethodSignature = "unstake(uint256)"
	StakingWithdrawMethod MethodSignature = "withdraw(uint256)"
	StakingEarnedMethod   MethodSignature = "earned(address)"
	StakingRewardMethod   MethodSignature = "getReward()"
)

// Multisig method signatures.
const (
	MultisigSubmitTransactionMethod MethodSignature = "submitTransaction(address,uint256,bytes)"
	MultisigConfirmTransactionMethod MethodSignature = "confirmTransaction(uint256)"
	MultisigRevokeConfirmationMethod MethodSignature = "revokeConfirmation(uint256)"
	MultisigGetOwnersMethod          MethodSignature = "getOwners()"
	MultisigRequiredMethod           MethodSignature = "required()"
)

// Timelock method signatures.
const (
	TimelockQueueTransactionMethod   MethodSignature = "queueTransaction(address,uint256,string,bytes,uint256)"
	TimelockExecuteTransactionMethod MethodSignature = "executeTransaction(address,uint256,string,bytes,uint256)"
	TimelockCancelTransactionMethod  MethodSignature = "cancelTransaction(address,uint256,string,bytes,uint256)"
	TimelockDelayMethod              MethodSignature = "delay()"
	TimelockGracePeriodMethod        MethodSignature = "GRACE_PERIOD()"
)

// ERC20TransferEventSignature is the canonical signature of the standard
// ERC20 Transfer event. The extractor does not match logs against it.
const ERC20TransferEventSignature EventSignature = "Transfer(address,address,uint256)"
