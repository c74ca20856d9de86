package driver

import (
	"github.com/bldragon101/worklog-sub001/internal/driver/service"
	"go.uber.org/fx"
)

var Module = fx.Module("driver.service",
	fx.Provide(service.NewService),
)
