// internal/app/bootstrap/dbdeps.go
package bootstrap

import (
	"context"
	"fmt"

	"github.com/dalemusser/loanadmin/internal/app/store/categorycache"
	"github.com/dalemusser/loanadmin/internal/app/system/apiclient"
	"github.com/dalemusser/loanadmin/internal/app/system/boards"
	"github.com/dalemusser/loanadmin/internal/app/system/metrics"
	"github.com/dalemusser/loanadmin/internal/app/system/timeouts"
	"github.com/dalemusser/loanadmin/internal/app/system/workers"
	"github.com/dalemusser/waffle/config"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// BackendDeps holds the back-end dependencies for the app: the REST API
// client, the optional Redis category cache, metrics and the per-session
// board registry with its sweeper.
type BackendDeps struct {
	API        *apiclient.Client
	Redis      *redis.Client // nil when redis_addr is blank
	Categories *categorycache.Store
	Metrics    *metrics.Metrics
	Boards     *boards.Registry
	Sweep      *workers.BoardSweep
}

// ConnectDB builds the backend client and connects to Redis when one is
// configured. The backend itself is not contacted here; it may come up
// after the dashboard does.
func ConnectDB(ctx context.Context, coreCfg *config.CoreConfig, appCfg AppConfig, logger *zap.Logger) (BackendDeps, error) {
	var deps BackendDeps
	deps.Metrics = metrics.New()

	if appCfg.RedisAddr != "" {
		rdb := redis.NewClient(&redis.Options{Addr: appCfg.RedisAddr})
		pingCtx, cancel := context.WithTimeout(ctx, timeouts.Ping())
		err := rdb.Ping(pingCtx).Err()
		cancel()
		if err != nil {
			_ = rdb.Close()
			return deps, fmt.Errorf("connect redis %s: %w", appCfg.RedisAddr, err)
		}
		deps.Redis = rdb
		deps.Categories = categorycache.New(rdb, appCfg.CategoryCacheTTL, logger.Named("categorycache"))
		logger.Info("category cache enabled", zap.String("redis_addr", appCfg.RedisAddr))
	}

	cfg := apiclient.Config{
		BaseURL:   appCfg.APIBaseURL,
		Timeout:   appCfg.APITimeout,
		LoginPath: appCfg.AuthLoginPath,
		Transport: deps.Metrics.Transport(nil),
		Logger:    logger.Named("apiclient"),
	}
	// A nil *Store must not become a non-nil interface.
	if deps.Categories != nil {
		cfg.Categories = deps.Categories
	}
	api, err := apiclient.New(cfg)
	if err != nil {
		if deps.Redis != nil {
			_ = deps.Redis.Close()
		}
		return deps, err
	}
	deps.API = api

	deps.Boards = boards.NewRegistry(boards.Options{
		Client:       api,
		Debounce:     appCfg.Debounce,
		PageSize:     appCfg.DefaultPageSize,
		FetchTimeout: appCfg.APITimeout,
		Metrics:      deps.Metrics,
		Logger:       logger.Named("boards"),
	}, appCfg.BoardIdleTTL)
	deps.Sweep = workers.NewBoardSweep(deps.Boards, logger.Named("boardsweep"), appCfg.BoardSweepInterval)

	logger.Info("backend client ready", zap.String("api_base_url", api.BaseURL()))
	return deps, nil
}
