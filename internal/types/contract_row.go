package types

import (
	"encoding/json"
	"strings"
	"time"
)

// ContractRow is the durable representation of an AttributedDeployment.
// Primary key is (Network, ContractAddress); re-insertion of the same key
// is defined to be a no-op upsert by the persistence layer.
type ContractRow struct {
	Network         ChainType
	ContractAddress string // lowercase hex, 0x-prefixed
	DeployerAddress string
	EntityName      *string
	EntityID        *string
	BlockNumber     uint64
	TransactionHash string
	ContractType    ContractType
	// ContractInfo is the type-specific metadata bag, JSON-encoded for
	// storage. It is built from the typed ERC20/ERC721/Pool metadata at
	// the persistence boundary; in memory the typed fields on
	// ClassifiedDeployment are what the rest of the pipeline reads and
	// writes.
	ContractInfo   json.RawMessage
	FactoryAddress *string
	DeploymentType DeploymentKind
	Timestamp      time.Time
}

// ChainCursor is the durable high-water mark for a chain: the last block
// height fully processed and made durable.
type ChainCursor struct {
	Network            ChainType
	LastProcessedBlock uint64
	UpdatedAt          time.Time
}

// contractInfoBag is the free-form fallback shape ContractInfo decodes
// into when nothing more specific applies, and the shape non-primary
// interfaces persist (an empty bag).
type contractInfoBag map[string]any

// NewContractRow builds the persisted row from an enriched, in-flight
// deployment. It is the one place the typed metadata bag on
// ClassifiedDeployment is flattened into the JSON blob the contracts
// table stores.
func NewContractRow(d AttributedDeployment, now time.Time) (ContractRow, error) {
	bag := contractInfoBag{}

	switch d.PrimaryType {
	case ContractTypeERC20:
		if m := d.ERC20; m != nil {
			if m.Name != nil {
				bag["name"] = *m.Name
			}
			if m.Symbol != nil {
				bag["symbol"] = *m.Symbol
			}
			if m.Decimals != nil {
				bag["decimals"] = *m.Decimals
			}
			if m.TotalSupply != nil {
				bag["total_supply"] = *m.TotalSupply
			}
		}
	case ContractTypeERC721:
		if m := d.ERC721; m != nil {
			if m.Name != nil {
				bag["name"] = *m.Name
			}
			if m.Symbol != nil {
				bag["symbol"] = *m.Symbol
			}
			if m.TotalSupply != nil {
				bag["total_supply"] = *m.TotalSupply
			}
		}
	case ContractTypePool:
		if m := d.Pool; m != nil {
			bag["pool_token0"] = m.Token0
			bag["pool_token1"] = m.Token1
		}
	}

	raw, err := json.Marshal(bag)
	if err != nil {
		return ContractRow{}, err
	}

	var factoryAddr *string
	if d.Kind == DeploymentKindFactory {
		addr := normalizeAddress(d.ChainType, d.FactoryAddress)
		factoryAddr = &addr
	}

	return ContractRow{
		Network:         d.ChainType,
		ContractAddress: normalizeAddress(d.ChainType, d.ContractAddress),
		DeployerAddress: normalizeAddress(d.ChainType, d.DeployerAddress),
		EntityName:      d.EntityName,
		EntityID:        d.EntityID,
		BlockNumber:     d.BlockNumber,
		TransactionHash: d.TransactionHash,
		ContractType:    d.PrimaryType,
		ContractInfo:    raw,
		FactoryAddress:  factoryAddr,
		DeploymentType:  d.Kind,
		Timestamp:       now,
	}, nil
}

// normalizeAddress stores addresses in the lowercase hex form the
// contracts table requires. Addresses arriving here have already been
// produced by go-ethereum's checksum Hex(), so Validate never fails in
// practice; the fallback keeps a malformed or empty value from aborting
// persistence of an otherwise-valid row.
func normalizeAddress(chain ChainType, addr string) string {
	a, err := NewAddress(chain, addr)
	if err != nil {
		return strings.ToLower(addr)
	}
	return a.Normalized()
}
