package deduction

import (
	"github.com/bldragon101/worklog-sub001/internal/deduction/service"
	"go.uber.org/fx"
)

var Module = fx.Module("deduction.service",
	fx.Provide(service.NewService),
)
