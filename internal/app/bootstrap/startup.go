// internal/app/bootstrap/startup.go
package bootstrap

import (
	"context"

	"github.com/dalemusser/loanadmin/internal/app/resources"
	"github.com/dalemusser/loanadmin/internal/app/system/timeouts"
	"github.com/dalemusser/waffle/config"
	"go.uber.org/zap"
)

// Startup runs one-time application initialization after the backend
// client is built, but before the HTTP handler is built. It loads the
// shared templates, applies handler timeouts and starts the idle-board
// sweeper. An unreachable backend is logged, not fatal.
func Startup(ctx context.Context, coreCfg *config.CoreConfig, appCfg AppConfig, deps BackendDeps, logger *zap.Logger) error {
	resources.LoadSharedTemplates()

	timeouts.Configure(timeouts.Config{Lookup: appCfg.APITimeout})

	if deps.API != nil {
		pingCtx, cancel := context.WithTimeout(ctx, timeouts.Ping())
		defer cancel()
		if err := deps.API.Ping(pingCtx); err != nil {
			logger.Warn("backend not reachable at startup", zap.Error(err))
		}
	}

	if deps.Sweep != nil {
		deps.Sweep.Start()
	}
	return nil
}
