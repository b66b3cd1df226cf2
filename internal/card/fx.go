package card

import (
	"github.com/smallbiznis/ridepay/internal/card/repository"
	"github.com/smallbiznis/ridepay/internal/card/service"
	"go.uber.org/fx"
)

var Module = fx.Module("card.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
)
