// Package classifier assigns an interface type and extracts
// type-specific metadata for a deployed contract by inspecting its
// bytecode and making a small number of read-only view calls.
package classifier

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"

	"chainwatch/internal/core/chainadapter"
	"chainwatch/internal/logger"
	"chainwatch/internal/types"
)

// Classifier assigns a ClassifiedDeployment to a raw Deployment.
type Classifier struct {
	adapter chainadapter.Adapter
	log     logger.Logger
}

// New builds a Classifier backed by adapter.
func New(adapter chainadapter.Adapter, log logger.Logger) *Classifier {
	return &Classifier{adapter: adapter, log: log}
}

// Classify fetches d's bytecode, scans it for known interface selectors,
// assigns a primary type and, for the primary type, attempts the
// associated metadata view calls. Per-field view-call failures never
// abort classification; only a bytecode-fetch failure yields
// ContractTypeError.
func (c *Classifier) Classify(ctx context.Context, d types.Deployment) types.ClassifiedDeployment {
	result := types.ClassifiedDeployment{Deployment: d}

	bytecode, err := c.adapter.GetCode(ctx, d.ContractAddress)
	if err != nil {
		c.log.Warn("bytecode fetch failed during classification",
			logger.String("address", d.ContractAddress), logger.Error(err))
		result.PrimaryType = types.ContractTypeError
		return result
	}

	result.BytecodeSize = len(bytecode)
	if len(bytecode) == 0 {
		result.PrimaryType = types.ContractTypeUnknown
		return result
	}

	found := scanSelectors(bytecode)

	type candidate struct {
		contractType types.ContractType
		confidence   float64
	}

	var candidates []candidate
	for _, spec := range interfaceSpecs {
		matched := 0
		for _, sig := range spec.selectors {
			if found[sig] {
				matched++
			}
		}
		if matched < spec.required {
			continue
		}
		confidence := float64(matched) / float64(spec.required)
		if confidence > 1.0 {
			confidence = 1.0
		}
		candidates = append(candidates, candidate{spec.contractType, confidence})
	}

	if isProxyBytecode(bytecode) {
		candidates = append(candidates, candidate{types.ContractTypeProxy, 1.0})
	}

	if len(candidates) == 0 {
		result.PrimaryType = types.ContractTypeUnknown
		return result
	}

	matchedTypes := make([]types.ContractType, 0, len(candidates))
	for _, cand := range candidates {
		matchedTypes = append(matchedTypes, cand.contractType)
	}
	result.MatchedTypes = matchedTypes

	best := candidates[0]
	for _, cand := range candidates[1:] {
		if cand.confidence > best.confidence ||
			(cand.confidence == best.confidence && types.ClassifierPriority(cand.contractType) < types.ClassifierPriority(best.contractType)) {
			best = cand
		}
	}
	result.PrimaryType = best.contractType
	result.Confidence = best.confidence

	switch best.contractType {
	case types.ContractTypeERC20:
		result.ERC20 = c.readERC20Metadata(ctx, d.ContractAddress)
	case types.ContractTypeERC721:
		result.ERC721 = c.readERC721Metadata(ctx, d.ContractAddress)
	case types.ContractTypePool:
		result.Pool = c.readPoolMetadata(ctx, d.ContractAddress)
	}

	return result
}

func (c *Classifier) readERC20Metadata(ctx context.Context, address string) *types.ERC20Metadata {
	m := &types.ERC20Metadata{}

	if s, ok := c.callString(ctx, address, types.ERC20NameMethod); ok {
		m.Name = &s
	}
	if s, ok := c.callString(ctx, address, types.ERC20SymbolMethod); ok {
		m.Symbol = &s
	}
	if u, ok := c.callUint8(ctx, address, types.ERC20DecimalsMethod); ok {
		m.Decimals = &u
	}
	if s, ok := c.callUint256String(ctx, address, types.ERC20TotalSupplyMethod); ok {
		m.TotalSupply = &s
	}
	return m
}

func (c *Classifier) readERC721Metadata(ctx context.Context, address string) *types.ERC721Metadata {
	m := &types.ERC721Metadata{}

	if s, ok := c.callString(ctx, address, types.ERC721NameMethod); ok {
		m.Name = &s
	}
	if s, ok := c.callString(ctx, address, types.ERC721SymbolMethod); ok {
		m.Symbol = &s
	}
	if s, ok := c.callUint256String(ctx, address, types.ERC721TotalSupplyMethod); ok {
		m.TotalSupply = &s
	}
	return m
}

func (c *Classifier) readPoolMetadata(ctx context.Context, address string) *types.PoolMetadata {
	token0, ok0 := c.callAddress(ctx, address, types.PoolToken0Method)
	token1, ok1 := c.callAddress(ctx, address, types.PoolToken1Method)
	if !ok0 && !ok1 {
		return nil
	}
	return &types.PoolMetadata{Token0: token0, Token1: token1}
}

func (c *Classifier) call(ctx context.Context, address string, method types.MethodSignature) ([]byte, bool) {
	sel := selector(method)
	out, err := c.adapter.EthCall(ctx, address, sel[:])
	if err != nil || len(out) == 0 {
		return nil, false
	}
	return out, true
}

func (c *Classifier) callString(ctx context.Context, address string, method types.MethodSignature) (string, bool) {
	out, ok := c.call(ctx, address, method)
	if !ok {
		return "", false
	}
	strType, err := abi.NewType("string", "", nil)
	if err != nil {
		return "", false
	}
	args := abi.Arguments{{Type: strType}}
	values, err := args.Unpack(out)
	if err != nil || len(values) == 0 {
		return "", false
	}
	s, ok := values[0].(string)
	return s, ok
}

func (c *Classifier) callUint8(ctx context.Context, address string, method types.MethodSignature) (uint8, bool) {
	out, ok := c.call(ctx, address, method)
	if !ok || len(out) < 32 {
		return 0, false
	}
	v := new(big.Int).SetBytes(out[:32])
	return uint8(v.Uint64()), true
}

func (c *Classifier) callUint256String(ctx context.Context, address string, method types.MethodSignature) (string, bool) {
	out, ok := c.call(ctx, address, method)
	if !ok || len(out) < 32 {
		return "", false
	}
	v := new(big.Int).SetBytes(out[:32])
	return v.String(), true
}

func (c *Classifier) callAddress(ctx context.Context, address string, method types.MethodSignature) (string, bool) {
	out, ok := c.call(ctx, address, method)
	if !ok || len(out) < 32 {
		return "", false
	}
	return common.BytesToAddress(out[:32]).Hex(), true
}
