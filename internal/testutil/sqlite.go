// Package testutil opens throwaway sqlite databases carrying the ridepay schema.
package testutil

import (
	"fmt"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// schema mirrors the postgres migrations with sqlite column types.
var schema = []string{
	`CREATE TABLE payment_keys (
		id INTEGER PRIMARY KEY,
		name TEXT NOT NULL,
		identity TEXT NOT NULL,
		secret_key TEXT NOT NULL,
		is_primary BOOLEAN NOT NULL DEFAULT 0,
		franchise_id TEXT,
		created_at DATETIME NOT NULL,
		updated_at DATETIME NOT NULL
	)`,
	`CREATE TABLE cards (
		id INTEGER PRIMARY KEY,
		user_id TEXT NOT NULL,
		billing_key TEXT NOT NULL,
		card_name TEXT NOT NULL,
		order_by INTEGER NOT NULL DEFAULT 0,
		created_at DATETIME NOT NULL,
		updated_at DATETIME NOT NULL,
		deleted_at DATETIME
	)`,
	`CREATE UNIQUE INDEX ux_cards_user_card_name ON cards (user_id, card_name)`,
	`CREATE TABLE records (
		id INTEGER PRIMARY KEY,
		user_id TEXT NOT NULL,
		card_id INTEGER,
		payment_key_id INTEGER,
		amount INTEGER NOT NULL,
		initial_amount INTEGER NOT NULL,
		tid TEXT,
		name TEXT NOT NULL,
		display_name TEXT NOT NULL,
		description TEXT,
		properties TEXT NOT NULL DEFAULT '{}',
		processed_at DATETIME,
		refunded_at DATETIME,
		retired_at DATETIME,
		dunned_at DATETIME,
		reason TEXT,
		created_at DATETIME NOT NULL,
		updated_at DATETIME NOT NULL
	)`,
	`CREATE TABLE coupon_groups (
		id INTEGER PRIMARY KEY,
		code TEXT,
		name TEXT NOT NULL,
		type TEXT NOT NULL,
		validity INTEGER,
		usage_limit INTEGER,
		abbreviation TEXT,
		description TEXT NOT NULL DEFAULT '',
		properties TEXT NOT NULL DEFAULT '{}',
		created_at DATETIME NOT NULL,
		updated_at DATETIME NOT NULL
	)`,
	`CREATE UNIQUE INDEX ux_coupon_groups_name ON coupon_groups (name)`,
	`CREATE UNIQUE INDEX ux_coupon_groups_code ON coupon_groups (code)`,
	`CREATE TABLE coupons (
		id INTEGER PRIMARY KEY,
		user_id TEXT NOT NULL,
		coupon_group_id INTEGER NOT NULL,
		properties TEXT NOT NULL DEFAULT '{}',
		used_at DATETIME,
		expired_at DATETIME,
		created_at DATETIME NOT NULL,
		updated_at DATETIME NOT NULL,
		deleted_at DATETIME
	)`,
	`CREATE TABLE dunnings (
		id INTEGER PRIMARY KEY,
		record_retry_id INTEGER,
		record_call_id INTEGER,
		record_message_id INTEGER,
		created_at DATETIME NOT NULL
	)`,
}

// NewDB returns a fresh in-memory database with every table created.
func NewDB(t testing.TB) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:memdb_%d?mode=memory&cache=shared", time.Now().UnixNano())
	conn, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
		NowFunc:        func() time.Time { return time.Now().UTC() },
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}

	for _, stmt := range schema {
		if err := conn.Exec(stmt).Error; err != nil {
			t.Fatalf("apply schema: %v", err)
		}
	}

	sqlDB, err := conn.DB()
	if err != nil {
		t.Fatalf("sql db: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	return conn
}

// NewNode returns a snowflake node for tests.
func NewNode(t testing.TB) *snowflake.Node {
	t.Helper()
	node, err := snowflake.NewNode(1)
	if err != nil {
		t.Fatalf("snowflake node: %v", err)
	}
	return node
}
