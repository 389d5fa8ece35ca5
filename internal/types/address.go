package types

import (
	"strings"

	"github.com/ethereum/go-ethereum/common"

	"chainwatch/internal/errors"
)

// ZeroAddress is the EVM native/no-entity sentinel address.
const ZeroAddress = "0x0000000000000000000000000000000000000000"

// Address is a 20-byte EVM account or contract address together with the
// chain it was observed on.
type Address struct {
	Chain   ChainType
	Address string
}

// NewAddress validates and normalizes addr to its EIP-55 checksum form.
func NewAddress(chain ChainType, addr string) (*Address, error) {
	a := &Address{Chain: chain, Address: addr}
	if err := a.Validate(); err != nil {
		return nil, err
	}
	a.Address = common.HexToAddress(a.Address).Hex()
	return a, nil
}

// Validate reports whether Address holds a well-formed hex address.
func (a *Address) Validate() error {
	if a.Address == "" || !common.IsHexAddress(a.Address) {
		return errors.NewInvalidAddressError(a.Address)
	}
	return nil
}

// Normalized returns the lowercase hex form stored in persisted rows.
func (a *Address) Normalized() string {
	return strings.ToLower(a.Address)
}

// ToChecksum returns the EIP-55 checksum form of the address.
func (a *Address) ToChecksum() string {
	return common.HexToAddress(a.Address).Hex()
}
