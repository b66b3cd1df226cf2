package record

import (
	"github.com/smallbiznis/ridepay/internal/record/repository"
	"github.com/smallbiznis/ridepay/internal/record/service"
	"go.uber.org/fx"
)

var Module = fx.Module("record.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
)
