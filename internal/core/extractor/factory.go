package extractor

import (
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"

	"chainwatch/internal/types"
)

const wordSize = 32

// fieldLocation names where one address-valued event field lives: an
// indexed topic, or a 32-byte word within the non-indexed ABI-encoded
// log data.
type fieldLocation struct {
	InData bool
	Index  int
}

// FactorySpec describes one factory event signature and where within the
// log the child contract address and an optional deployer hint live.
// Standardized factory events vary across protocols, and indexed
// parameters land in Log.Topics while non-indexed ones are ABI-encoded
// into Log.Data, so the set of signatures the extractor recognizes,
// along with each field's location, is configuration, not a hardcoded
// single pattern.
type FactorySpec struct {
	Signature types.EventSignature

	// Child locates the created contract's address.
	Child fieldLocation

	// Deployer optionally locates a deployer hint address. Nil means no
	// deployer hint is carried by this event.
	Deployer *fieldLocation
}

// topicHash returns the keccak256 topic-0 for this spec's signature.
func (s FactorySpec) topicHash() common.Hash {
	return crypto.Keccak256Hash([]byte(s.Signature))
}

// DefaultFactorySpecs is the built-in signature set recognized out of the
// box: Uniswap-V2-style PairCreated, Uniswap-V3-style PoolCreated, and a
// generic ContractDeployed event.
var DefaultFactorySpecs = []FactorySpec{
	// PairCreated(address indexed token0, address indexed token1, address pair, uint256)
	// pair is the first non-indexed field, so it is the first data word.
	{
		Signature: "PairCreated(address,address,address,uint256)",
		Child:     fieldLocation{InData: true, Index: 0},
	},
	// PoolCreated(address indexed token0, address indexed token1, uint24 indexed fee, int24 tickSpacing, address pool)
	// tickSpacing then pool are the non-indexed fields, so pool is the second data word.
	{
		Signature: "PoolCreated(address,address,uint24,int24,address)",
		Child:     fieldLocation{InData: true, Index: 1},
	},
	// ContractDeployed(address indexed deployer, address contractAddress)
	// deployer is indexed (topic 1); contractAddress is the only data word.
	{
		Signature: "ContractDeployed(address,address)",
		Child:     fieldLocation{InData: true, Index: 0},
		Deployer:  &fieldLocation{InData: false, Index: 1},
	},
}

// addressAt reads an address out of the given location, returning false
// if the location falls outside the log's topics or data.
func addressAt(log types.Log, loc fieldLocation) (string, bool) {
	if loc.InData {
		start := loc.Index * wordSize
		end := start + wordSize
		if end > len(log.Data) {
			return "", false
		}
		return common.BytesToAddress(log.Data[start:end]).Hex(), true
	}
	if loc.Index <= 0 || loc.Index >= len(log.Topics) {
		return "", false
	}
	return common.HexToAddress(log.Topics[loc.Index]).Hex(), true
}

// matchFactoryLog returns the created contract address and, when
// available, a deployer hint for the first configured factory spec that
// matches log's topic-0.
func matchFactoryLog(specs []FactorySpec, log types.Log) (childAddress string, deployerHint string, matched bool) {
	if len(log.Topics) == 0 {
		return "", "", false
	}
	topic0 := log.Topics[0]

	for _, spec := range specs {
		if topic0 != spec.topicHash().Hex() {
			continue
		}
		child, ok := addressAt(log, spec.Child)
		if !ok {
			continue
		}
		var hint string
		if spec.Deployer != nil {
			hint, _ = addressAt(log, *spec.Deployer)
		}
		return child, hint, true
	}
	return "", "", false
}
