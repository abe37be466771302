// internal/app/system/workers/boardsweep.go
package workers

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Sweeper removes idle state and reports how much it removed.
type Sweeper interface {
	Sweep(ctx context.Context) (int, error)
}

// BoardSweep is a background worker that closes idle session boards.
type BoardSweep struct {
	target   Sweeper
	log      *zap.Logger
	interval time.Duration
	stopCh   chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
}

// NewBoardSweep creates a sweep worker.
//
// Parameters:
//   - target: the board registry
//   - logger: zap logger for logging
//   - interval: how often to sweep (e.g., 1 minute)
func NewBoardSweep(target Sweeper, logger *zap.Logger, interval time.Duration) *BoardSweep {
	if interval <= 0 {
		interval = time.Minute
	}
	return &BoardSweep{
		target:   target,
		log:      logger,
		interval: interval,
		stopCh:   make(chan struct{}),
	}
}

// Start begins the background sweep loop.
func (w *BoardSweep) Start() {
	w.wg.Add(1)
	go w.run()
	w.log.Info("board sweep worker started", zap.Duration("interval", w.interval))
}

// Stop signals the worker to stop and waits for it to finish.
func (w *BoardSweep) Stop() {
	w.stopOnce.Do(func() { close(w.stopCh) })
	w.wg.Wait()
	w.log.Info("board sweep worker stopped")
}

func (w *BoardSweep) run() {
	defer w.wg.Done()

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-w.stopCh:
			return
		case <-ticker.C:
			w.sweep()
		}
	}
}

func (w *BoardSweep) sweep() {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	count, err := w.target.Sweep(ctx)
	if err != nil {
		w.log.Error("failed to close idle boards", zap.Error(err))
		return
	}

	if count > 0 {
		w.log.Info("closed idle boards", zap.Int("count", count))
	}
}
