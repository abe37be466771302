// internal/app/bootstrap/shutdown.go
package bootstrap

import (
	"context"

	"github.com/dalemusser/waffle/config"
	"go.uber.org/zap"
)

// Shutdown stops the sweeper, closes every board (cancelling in-flight
// fetches and live connections) and disconnects Redis.
func Shutdown(ctx context.Context, coreCfg *config.CoreConfig, appCfg AppConfig, deps BackendDeps, logger *zap.Logger) error {
	if deps.Sweep != nil {
		deps.Sweep.Stop()
	}

	var firstErr error
	if deps.Boards != nil {
		logger.Info("closing dashboard boards", zap.Int("count", deps.Boards.Len()))
		if err := deps.Boards.Close(ctx); err != nil {
			logger.Error("closing boards failed", zap.Error(err))
			firstErr = err
		}
	}

	if deps.Redis != nil {
		logger.Info("disconnecting Redis client")
		if err := deps.Redis.Close(); err != nil {
			logger.Error("Redis disconnect failed", zap.Error(err))
			if firstErr == nil {
				firstErr = err
			}
		}
	}
	return firstErr
}
