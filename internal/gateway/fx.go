package gateway

import (
	"github.com/smallbiznis/ridepay/internal/gateway/domain"
	"github.com/smallbiznis/ridepay/internal/gateway/service"
	"github.com/smallbiznis/ridepay/internal/gateway/tpay"
	"go.uber.org/fx"
)

var Module = fx.Module("gateway.service",
	fx.Provide(tpay.New),
	fx.Provide(func(p *tpay.Provider) domain.Provider { return p }),
	fx.Provide(service.New),
)
