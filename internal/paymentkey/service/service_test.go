package service

import (
	"context"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/ridepay/internal/paymentkey/domain"
	"github.com/smallbiznis/ridepay/internal/paymentkey/repository"
	"github.com/smallbiznis/ridepay/internal/testutil"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestService(t *testing.T) (domain.Service, domain.Repository, *snowflake.Node, func() context.Context) {
	t.Helper()
	conn := testutil.NewDB(t)
	repo := repository.Provide()
	svc := New(Params{DB: conn, Log: zap.NewNop(), Repo: repo})

	node := testutil.NewNode(t)
	insert := func(name string, primary bool, franchise *string) snowflake.ID {
		now := time.Now().UTC()
		key := &domain.PaymentKey{
			ID:          node.Generate(),
			Name:        name,
			Identity:    name + "-mid",
			SecretKey:   name + "-secret",
			Primary:     primary,
			FranchiseID: franchise,
			CreatedAt:   now,
			UpdatedAt:   now,
		}
		require.NoError(t, repo.Insert(context.Background(), conn, key))
		return key.ID
	}
	franchise := "fr-1"
	insert("main", true, nil)
	insert("franchise", false, &franchise)

	return svc, repo, node, context.Background
}

func TestResolveFallsBackToPrimary(t *testing.T) {
	svc, _, _, ctx := newTestService(t)

	key, err := svc.Resolve(ctx(), nil)
	require.NoError(t, err)
	require.True(t, key.Primary)
	require.Equal(t, "main-mid", key.Identity)

	got, err := svc.Get(ctx(), key.ID)
	require.NoError(t, err)
	require.Equal(t, "main-secret", got.SecretKey)
}

func TestResolveUnknownKey(t *testing.T) {
	svc, _, node, ctx := newTestService(t)

	id := node.Generate()
	_, err := svc.Resolve(ctx(), &id)
	require.ErrorIs(t, err, domain.ErrNotFound)
}

func TestByFranchise(t *testing.T) {
	svc, _, _, ctx := newTestService(t)

	key, err := svc.ByFranchise(ctx(), "fr-1")
	require.NoError(t, err)
	require.Equal(t, "franchise-mid", key.Identity)

	key, err = svc.ByFranchise(ctx(), "fr-unknown")
	require.NoError(t, err)
	require.Equal(t, "main-mid", key.Identity)

	key, err = svc.ByFranchise(ctx(), "")
	require.NoError(t, err)
	require.True(t, key.Primary)

	keys, err := svc.List(ctx())
	require.NoError(t, err)
	require.Len(t, keys, 2)
	require.True(t, keys[0].Primary)
}

func TestPrimaryMissing(t *testing.T) {
	conn := testutil.NewDB(t)
	svc := New(Params{DB: conn, Log: zap.NewNop(), Repo: repository.Provide()})

	_, err := svc.Primary(context.Background())
	require.ErrorIs(t, err, domain.ErrPrimaryNotFound)
}
