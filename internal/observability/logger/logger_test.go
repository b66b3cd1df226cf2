package logger

import (
	"context"
	"testing"

	obscontext "github.com/smallbiznis/ridepay/internal/observability/context"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestWithContextAddsCorrelationFields(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	base := zap.New(core)

	ctx := obscontext.WithRequestID(context.Background(), "req-1")
	ctx = obscontext.WithUserID(ctx, "user-7")
	ctx = obscontext.WithActor(ctx, "user", "user-7")

	WithContext(ctx, base).Info("hello")

	entries := logs.All()
	require.Len(t, entries, 1)
	fields := entries[0].ContextMap()
	require.Equal(t, "req-1", fields["request_id"])
	require.Equal(t, "user-7", fields["user_id"])
	require.Equal(t, "user", fields["actor_type"])
	require.NotContains(t, fields, "trace_id")
}

func TestWithContextLeavesBareContextAlone(t *testing.T) {
	base := zap.NewNop()
	require.Same(t, base, WithContext(context.Background(), base))
}

func TestOperationAndTableFromSQL(t *testing.T) {
	cases := []struct {
		sql   string
		op    string
		table string
	}{
		{sql: "SELECT * FROM records WHERE id = ?", op: "SELECT", table: "records"},
		{sql: "insert into cards (id) values (?)", op: "INSERT", table: "cards"},
		{sql: `UPDATE "coupons" SET used_at = ?`, op: "UPDATE", table: "coupons"},
		{sql: "WITH x AS (SELECT 1) DELETE FROM dunnings", op: "SELECT", table: "dunnings"},
		{sql: "", op: "UNKNOWN", table: ""},
	}
	for _, tc := range cases {
		require.Equal(t, tc.op, operationFromSQL(tc.sql), tc.sql)
		require.Equal(t, tc.table, tableFromSQL(tc.sql), tc.sql)
	}
}

func TestNormalizeFormat(t *testing.T) {
	require.Equal(t, "console", normalizeFormat(" Console "))
	require.Equal(t, "json", normalizeFormat("text"))
}
