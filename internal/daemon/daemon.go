package daemon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gofrs/flock"

	"clipforge/internal/config"
	"clipforge/internal/ledger"
	"clipforge/internal/logging"
	"clipforge/internal/pipeline"
	"clipforge/internal/storage"
)

// Daemon coordinates the background services and enforces single-instance
// execution via a lock file.
type Daemon struct {
	cfg       *config.Config
	logger    *slog.Logger
	store     *ledger.Store
	orch      *pipeline.Orchestrator
	sweeper   *pipeline.Sweeper
	retention *storage.Retention

	lockPath string
	lock     *flock.Flock

	running atomic.Bool
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

// New constructs a daemon with initialized dependencies.
func New(cfg *config.Config, store *ledger.Store, orch *pipeline.Orchestrator, sweeper *pipeline.Sweeper, retention *storage.Retention, logger *slog.Logger) (*Daemon, error) {
	if cfg == nil || store == nil || orch == nil || sweeper == nil {
		return nil, errors.New("daemon requires config, store, orchestrator, and sweeper")
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	lockPath := filepath.Join(cfg.Paths.DataDir, "clipforged.lock")
	return &Daemon{
		cfg:       cfg,
		logger:    logger.With(logging.String(logging.FieldComponent, "daemon")),
		store:     store,
		orch:      orch,
		sweeper:   sweeper,
		retention: retention,
		lockPath:  lockPath,
		lock:      flock.New(lockPath),
	}, nil
}

// Start acquires the instance lock and launches workers, the stuck-job
// sweeper, and the retention loop.
func (d *Daemon) Start(ctx context.Context) error {
	if d.running.Load() {
		return errors.New("daemon already running")
	}
	ok, err := d.lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return fmt.Errorf("another instance holds %s", d.lockPath)
	}

	runCtx, cancel := context.WithCancel(ctx)
	d.cancel = cancel
	d.running.Store(true)

	d.orch.Start(runCtx)
	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		d.sweeper.Run(runCtx)
	}()
	if d.retention != nil {
		d.wg.Add(1)
		go func() {
			defer d.wg.Done()
			d.retentionLoop(runCtx)
		}()
	}

	d.logger.Info("daemon started",
		logging.String("lock", d.lockPath),
		logging.String("ledger", d.store.Path()))
	return nil
}

// Stop cancels background work and waits for workers to drain.
func (d *Daemon) Stop() {
	if !d.running.Load() {
		return
	}
	d.cancel()
	d.orch.Wait()
	d.wg.Wait()
	d.running.Store(false)
	d.logger.Info("daemon stopped")
}

// Close releases the instance lock.
func (d *Daemon) Close() error {
	d.Stop()
	if err := d.lock.Unlock(); err != nil {
		return fmt.Errorf("release lock: %w", err)
	}
	return nil
}

// retentionLoop shares the sweeper's cadence; expired assets and stuck jobs
// age on the same clock.
func (d *Daemon) retentionLoop(ctx context.Context) {
	interval := time.Duration(d.cfg.Pipeline.SweepInterval) * time.Second
	if interval <= 0 {
		interval = 5 * time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			removed, err := d.retention.Sweep(ctx, time.Now())
			if err != nil && ctx.Err() == nil {
				d.logger.Error("retention sweep failed", logging.Error(err))
				continue
			}
			if removed > 0 {
				d.logger.Info("retention sweep finished",
					logging.Int("removed", removed))
			}
		}
	}
}
