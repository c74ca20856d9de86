package rcti

import (
	"github.com/bldragon101/worklog-sub001/internal/rcti/service"
	"go.uber.org/fx"
)

var Module = fx.Module("rcti.service",
	fx.Provide(service.NewService),
)
