package subscriber

import (
	"github.com/ratecell/ratecell/internal/subscriber/service"
	"go.uber.org/fx"
)

var Module = fx.Module("subscriber.service",
	fx.Provide(service.New),
)
