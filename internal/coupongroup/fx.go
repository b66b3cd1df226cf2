package coupongroup

import (
	"github.com/smallbiznis/ridepay/internal/coupongroup/repository"
	"github.com/smallbiznis/ridepay/internal/coupongroup/service"
	"go.uber.org/fx"
)

var Module = fx.Module("coupongroup.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
)
