package job

import (
	"github.com/bldragon101/worklog-sub001/internal/job/service"
	"go.uber.org/fx"
)

var Module = fx.Module("job.service",
	fx.Provide(service.NewService),
)
