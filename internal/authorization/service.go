package authorization

import (
	"context"
	"errors"
)

type Service interface {
	// Authorize checks actor ("user:<id>" or "internal:<issuer>") against
	// the route policy for object and action.
	Authorize(ctx context.Context, actor string, object string, action string) error
}

var (
	ErrForbidden     = errors.New("forbidden")
	ErrInvalidActor  = errors.New("invalid_actor")
	ErrInvalidObject = errors.New("invalid_object")
	ErrInvalidAction = errors.New("invalid_action")
)
