package types

// ContractType is the primary interface tag assigned by the classifier.
type ContractType string

const (
	ContractTypeERC20     ContractType = "ERC20"
	ContractTypeERC721    ContractType = "ERC721"
	ContractTypeERC1155   ContractType = "ERC1155"
	ContractTypeRouter    ContractType = "Router"
	ContractTypePool      ContractType = "Pool"
	ContractTypeProxy     ContractType = "Proxy"
	ContractTypeStaking   ContractType = "Staking"
	ContractTypeMultisig  ContractType = "Multisig"
	ContractTypeTimelock  ContractType = "Timelock"
	ContractTypeUnknown   ContractType = "Unknown"
	ContractTypeError     ContractType = "Error"
)

// classifierPriority orders interfaces for primary-type tie-breaking:
// ERC20 > ERC721 > ERC1155 > Router > Pool > Proxy > Staking > Multisig >
// Timelock, exactly as specified. Lower index wins.
var classifierPriority = []ContractType{
	ContractTypeERC20,
	ContractTypeERC721,
	ContractTypeERC1155,
	ContractTypeRouter,
	ContractTypePool,
	ContractTypeProxy,
	ContractTypeStaking,
	ContractTypeMultisig,
	ContractTypeTimelock,
}

// ClassifierPriority returns the tie-break rank of t (lower is preferred);
// types outside the table never win a tie.
func ClassifierPriority(t ContractType) int {
	for i, candidate := range classifierPriority {
		if candidate == t {
			return i
		}
	}
	return len(classifierPriority)
}

// ERC20Metadata holds the token fields read from a classified ERC20
// contract. A nil pointer field means the corresponding view call failed;
// classification is never aborted over it.
type ERC20Metadata struct {
	Name        *string
	Symbol      *string
	Decimals    *uint8
	TotalSupply *string // raw u256 as a decimal string
}

// ERC721Metadata holds the fields read from a classified ERC721 contract.
type ERC721Metadata struct {
	Name        *string
	Symbol      *string
	TotalSupply *string
}

// PoolMetadata holds the token pair read from a classified liquidity pool.
type PoolMetadata struct {
	Token0 string
	Token1 string
}

// ClassifiedDeployment is a Deployment enriched with interface
// classification. At most one of the ERC20/ERC721/Pool metadata fields is
// populated, the one matching PrimaryType; every other interface has no
// type-specific metadata per spec §3.
type ClassifiedDeployment struct {
	Deployment

	PrimaryType   ContractType
	MatchedTypes  []ContractType // all interfaces that matched, in match order
	Confidence    float64        // matched/required ratio for PrimaryType, clipped to 1.0
	BytecodeSize  int

	ERC20  *ERC20Metadata
	ERC721 *ERC721Metadata
	Pool   *PoolMetadata
}
