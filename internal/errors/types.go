package errors

// Input validation error codes
const (
	ErrCodeInvalidInput   = "invalid_input"
	ErrCodeInvalidAddress = "invalid_address"
	ErrCodeMissingRPCURL  = "missing_rpc_url"
)

// NewInvalidInputError creates an error for a rejected argument. value is
// included in Details only when it is safe to log; callers pass nil for
// anything sensitive.
func NewInvalidInputError(message string, field string, value any) *AppError {
	details := map[string]any{"field": field}
	if value != nil {
		details["value"] = value
	}
	return &AppError{
		Code:    ErrCodeInvalidInput,
		Message: message,
		Details: details,
	}
}

// NewInvalidAddressError creates an error for a malformed blockchain address.
func NewInvalidAddressError(address string) *AppError {
	return &AppError{
		Code:    ErrCodeInvalidAddress,
		Message: "invalid address",
		Details: map[string]any{"address": address},
	}
}

// NewMissingRPCURLError creates an error for a chain configured without any
// RPC endpoint.
func NewMissingRPCURLError(chainName string) *AppError {
	return &AppError{
		Code:    ErrCodeMissingRPCURL,
		Message: "missing RPC URL",
		Details: map[string]any{"chain": chainName},
	}
}
