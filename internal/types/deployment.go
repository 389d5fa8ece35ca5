package types

import "time"

// DeploymentKind distinguishes a transaction-level contract creation from
// one performed by another contract via CREATE/CREATE2.
type DeploymentKind string

const (
	DeploymentKindDirect  DeploymentKind = "direct"
	DeploymentKindFactory DeploymentKind = "factory"
)

// Deployment is the in-flight record produced by the Deployment
// Extractor for a single newly created contract.
type Deployment struct {
	ChainType       ChainType
	ContractAddress string
	DeployerAddress string
	BlockNumber     uint64
	TransactionHash string
	// TransactionIndex and LogIndex establish the extractor's ascending
	// ordering guarantee within a block; LogIndex is zero for direct
	// deployments, which precede any factory deployment from the same
	// transaction.
	TransactionIndex uint
	LogIndex         uint
	Kind             DeploymentKind
	// FactoryAddress is set iff Kind == DeploymentKindFactory.
	FactoryAddress string
	CreatedAt      time.Time
}
