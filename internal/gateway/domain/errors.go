package domain

import (
	"errors"
	"fmt"
)

const (
	OperationGenerate = "gen_billkey"
	OperationCharge   = "payments_token"
	OperationCancel   = "cancel"
	OperationDelete   = "del_billkey"
)

var ErrProviderUnavailable = errors.New("gateway_unavailable")

// ValidationError rejects input before any network call.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// ProviderError is a non-success result code from the gateway. Message is
// the provider text, passed to clients verbatim.
type ProviderError struct {
	Operation string
	Code      string
	Message   string
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("%s failed (%s): %s", e.Operation, e.Code, e.Message)
}

func (e *ProviderError) ProviderCode() string {
	return e.Code
}
