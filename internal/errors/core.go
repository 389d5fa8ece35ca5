package errors

import "fmt"

// Pipeline error codes. These back the taxonomy from the error handling
// design: TransportError, ProtocolError, ClassifierError, PersistenceError
// and FatalConfigError are not distinct Go types, they are named
// constructors over the single AppError shape, distinguished by Code the
// same way the teacher distinguishes blockchain/keystore/explorer failures.
const (
	ErrCodeTransport        = "transport_error"
	ErrCodeRPC              = "rpc_error"
	ErrCodeChainNotSupported = "chain_not_supported"
	ErrCodeProtocol         = "protocol_error"
	ErrCodeClassifier       = "classifier_error"
	ErrCodeAttribution      = "attribution_error"
	ErrCodeRateLimitWait    = "rate_limit_wait_aborted"
	ErrCodePersistence      = "persistence_error"
	ErrCodeFatalConfig      = "fatal_config_error"
	ErrCodeNotFound         = "not_found"
)

// NewTransportError wraps a network-level failure from a chain adapter
// call (RPC dial, request timeout, connection reset). Transport errors are
// what drive a Chain Worker into Backoff and, after five in a row, Reinit.
func NewTransportError(chain string, op string, err error) *AppError {
	return &AppError{
		Code:    ErrCodeTransport,
		Message: fmt.Sprintf("transport error during %s on %s", op, chain),
		Details: map[string]any{"chain": chain, "operation": op},
		Err:     err,
	}
}

// NewRPCError wraps a JSON-RPC call failure once all configured endpoints
// have been exhausted.
func NewRPCError(chain string, err error) *AppError {
	return &AppError{
		Code:    ErrCodeRPC,
		Message: fmt.Sprintf("rpc call failed on %s", chain),
		Details: map[string]any{"chain": chain},
		Err:     err,
	}
}

// NewChainNotSupportedError creates an error for a chain type with no
// registered adapter implementation.
func NewChainNotSupportedError(chainType string) *AppError {
	return &AppError{
		Code:    ErrCodeChainNotSupported,
		Message: fmt.Sprintf("chain not supported: %s", chainType),
		Details: map[string]any{"chain_type": chainType},
	}
}

// NewProtocolError wraps a malformed block or a decoding failure on a
// single item (transaction, receipt, log). The caller drops the offending
// item and continues; extraction never aborts a whole range over this.
func NewProtocolError(context string, err error) *AppError {
	return &AppError{
		Code:    ErrCodeProtocol,
		Message: "malformed chain data: " + context,
		Err:     err,
	}
}

// NewClassifierError wraps a failed view call made while classifying a
// contract. The affected metadata field is set to absent; this never
// aborts classification itself.
func NewClassifierError(address string, method string, err error) *AppError {
	return &AppError{
		Code:    ErrCodeClassifier,
		Message: fmt.Sprintf("classifier view call %s failed for %s", method, address),
		Details: map[string]any{"address": address, "method": method},
		Err:     err,
	}
}

// NewAttributionError wraps a failure from the external attribution
// service after retries are exhausted.
func NewAttributionError(chain string, address string, err error) *AppError {
	return &AppError{
		Code:    ErrCodeAttribution,
		Message: fmt.Sprintf("attribution lookup failed for %s on %s", address, chain),
		Details: map[string]any{"chain": chain, "address": address},
		Err:     err,
	}
}

// NewRateLimitWaitAbortedError creates an error for a rate limiter wait
// that was cancelled before a token became available.
func NewRateLimitWaitAbortedError(err error) *AppError {
	return &AppError{
		Code:    ErrCodeRateLimitWait,
		Message: "attribution rate limit wait aborted",
		Err:     err,
	}
}

// NewPersistenceError wraps a failed batch transaction. Retried locally
// with backoff; once exhausted, this is surfaced to the Supervisor as
// fatal and triggers graceful shutdown.
func NewPersistenceError(op string, err error) *AppError {
	return &AppError{
		Code:    ErrCodePersistence,
		Message: "persistence operation failed: " + op,
		Err:     err,
	}
}

// NewFatalConfigError creates an error for a configuration problem that
// prevents startup (missing credential, no usable chains, persistence
// init failure).
func NewFatalConfigError(reason string) *AppError {
	return &AppError{
		Code:    ErrCodeFatalConfig,
		Message: "fatal configuration error: " + reason,
	}
}

// NewNotFoundError creates an error for a lookup that found nothing.
func NewNotFoundError(entity string, key string) *AppError {
	return &AppError{
		Code:    ErrCodeNotFound,
		Message: entity + " not found",
		Details: map[string]any{"key": key},
	}
}
