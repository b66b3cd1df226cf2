package domain

import (
	"context"

	coreservicedomain "github.com/smallbiznis/ridepay/internal/coreservice/domain"
)

type Service interface {
	// Authenticate resolves a rider session through the accounts service.
	Authenticate(ctx context.Context, sessionID string) (coreservicedomain.User, error)
	// Forget drops a cached session.
	Forget(sessionID string)
	VerifyInternal(ctx context.Context, token string) (Internal, error)
}
