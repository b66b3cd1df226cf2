package domain

import "errors"

var (
	ErrMissingToken         = errors.New("missing_token")
	ErrInvalidSession       = errors.New("invalid_session")
	ErrInvalidInternalToken = errors.New("invalid_internal_token")
	ErrInternalAuthDisabled = errors.New("internal_auth_disabled")
)
