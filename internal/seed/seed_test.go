package seed

import (
	"testing"

	paymentkeydomain "github.com/smallbiznis/ridepay/internal/paymentkey/domain"
	"github.com/smallbiznis/ridepay/internal/testutil"
	"github.com/stretchr/testify/require"
)

func TestEnsurePrimaryPaymentKeyIsIdempotent(t *testing.T) {
	conn := testutil.NewDB(t)
	node := testutil.NewNode(t)

	key := PrimaryKey{Identity: "mid", SecretKey: "secret"}
	require.NoError(t, EnsurePrimaryPaymentKey(conn, node, key))
	require.NoError(t, EnsurePrimaryPaymentKey(conn, node, PrimaryKey{Identity: "other", SecretKey: "other"}))

	var keys []paymentkeydomain.PaymentKey
	require.NoError(t, conn.Find(&keys).Error)
	require.Len(t, keys, 1)
	require.Equal(t, "mid", keys[0].Identity)
	require.Equal(t, defaultPrimaryKeyName, keys[0].Name)
	require.True(t, keys[0].Primary)
}

func TestEnsurePrimaryPaymentKeySkipsWithoutCredentials(t *testing.T) {
	conn := testutil.NewDB(t)

	require.NoError(t, EnsurePrimaryPaymentKey(conn, testutil.NewNode(t), PrimaryKey{}))

	var count int64
	require.NoError(t, conn.Model(&paymentkeydomain.PaymentKey{}).Count(&count).Error)
	require.Zero(t, count)
}

func TestEnsurePrimaryPaymentKeyRequiresHandles(t *testing.T) {
	require.Error(t, EnsurePrimaryPaymentKey(nil, nil, PrimaryKey{}))
}
