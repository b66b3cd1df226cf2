package coupon

import (
	"github.com/smallbiznis/ridepay/internal/coupon/repository"
	"github.com/smallbiznis/ridepay/internal/coupon/service"
	"go.uber.org/fx"
)

var Module = fx.Module("coupon.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
)
