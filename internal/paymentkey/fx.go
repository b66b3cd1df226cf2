package paymentkey

import (
	"github.com/smallbiznis/ridepay/internal/paymentkey/repository"
	"github.com/smallbiznis/ridepay/internal/paymentkey/service"
	"go.uber.org/fx"
)

var Module = fx.Module("paymentkey.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
)
