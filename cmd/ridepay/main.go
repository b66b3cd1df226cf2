package main

import (
	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/ridepay/internal/auth"
	"github.com/smallbiznis/ridepay/internal/authorization"
	"github.com/smallbiznis/ridepay/internal/card"
	"github.com/smallbiznis/ridepay/internal/centercoin"
	"github.com/smallbiznis/ridepay/internal/clock"
	"github.com/smallbiznis/ridepay/internal/config"
	"github.com/smallbiznis/ridepay/internal/coreservice"
	"github.com/smallbiznis/ridepay/internal/coupon"
	"github.com/smallbiznis/ridepay/internal/coupongroup"
	"github.com/smallbiznis/ridepay/internal/dunning"
	"github.com/smallbiznis/ridepay/internal/errtrack"
	"github.com/smallbiznis/ridepay/internal/gateway"
	"github.com/smallbiznis/ridepay/internal/migration"
	"github.com/smallbiznis/ridepay/internal/notification"
	"github.com/smallbiznis/ridepay/internal/observability"
	"github.com/smallbiznis/ridepay/internal/paymentkey"
	"github.com/smallbiznis/ridepay/internal/ratelimit"
	"github.com/smallbiznis/ridepay/internal/record"
	"github.com/smallbiznis/ridepay/internal/scheduler"
	"github.com/smallbiznis/ridepay/internal/server"
	"github.com/smallbiznis/ridepay/internal/webhook"
	"github.com/smallbiznis/ridepay/pkg/db"
	"go.uber.org/fx"
)

// ridepay runs the API and the unpaid sweep in one process. APP_MODE=api
// keeps the sweep off.
func main() {
	app := fx.New(
		// Core Infrastructure
		config.Module,
		observability.Module,
		fx.Provide(RegisterSnowflake),
		db.Module,
		migration.Module,
		clock.Module,
		errtrack.Module,
		ratelimit.Module,

		// Upstreams
		coreservice.Module,
		paymentkey.Module,
		gateway.Module,
		notification.Module,

		// Functional Domains
		card.Module,
		record.Module,
		dunning.Module,
		coupongroup.Module,
		coupon.Module,
		centercoin.Module,
		webhook.Module,
		auth.Module,
		authorization.Module,

		scheduler.Module,
		server.Module,
	)
	app.Run()
}

func RegisterSnowflake() *snowflake.Node {
	node, err := snowflake.NewNode(1)
	if err != nil {
		panic(err)
	}
	return node
}
