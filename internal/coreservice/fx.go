package coreservice

import (
	"github.com/smallbiznis/ridepay/internal/coreservice/client"
	"github.com/smallbiznis/ridepay/internal/coreservice/domain"
	"go.uber.org/fx"
)

var Module = fx.Module("coreservice.client",
	fx.Provide(
		fx.Annotate(client.NewAccounts, fx.As(new(domain.Accounts))),
		fx.Annotate(client.NewRides, fx.As(new(domain.Rides))),
		fx.Annotate(client.NewPlatform, fx.As(new(domain.Platform))),
		fx.Annotate(client.NewMonitoring, fx.As(new(domain.Monitoring))),
	),
)
