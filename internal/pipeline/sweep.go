package pipeline

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"clipforge/internal/config"
	"clipforge/internal/ledger"
	"clipforge/internal/logging"
)

// staleHeartbeatFactor multiplies the heartbeat interval to decide when a
// worker is presumed dead.
const staleHeartbeatFactor = 3

// Sweeper recovers jobs whose workers died mid-run. A job is force-failed
// only when its runtime exceeds the per-job ceiling and its heartbeat has
// gone stale; a live worker is never preempted, however slow.
type Sweeper struct {
	store  *ledger.Store
	cfg    *config.Config
	logger *slog.Logger
}

// NewSweeper wires a sweeper against the ledger.
func NewSweeper(store *ledger.Store, cfg *config.Config, logger *slog.Logger) *Sweeper {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Sweeper{
		store:  store,
		cfg:    cfg,
		logger: logger.With(logging.String(logging.FieldComponent, "sweeper")),
	}
}

// Run sweeps immediately and then on every interval until ctx is canceled.
func (s *Sweeper) Run(ctx context.Context) {
	interval := time.Duration(s.cfg.Pipeline.SweepInterval) * time.Second
	if interval <= 0 {
		interval = 5 * time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		if _, err := s.SweepOnce(ctx, time.Now()); err != nil && ctx.Err() == nil {
			s.logger.Error("sweep failed", logging.Error(err))
		}
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

// SweepOnce performs a single pass: warn on jobs past the soft threshold and
// force-fail abandoned jobs past the hard ceiling. Returns how many jobs
// were failed.
func (s *Sweeper) SweepOnce(ctx context.Context, now time.Time) (int, error) {
	processing, err := s.store.List(ctx, ledger.StatusProcessing)
	if err != nil {
		return 0, err
	}
	for _, job := range processing {
		runtime := s.runtime(*job, now)
		ceiling := s.ceiling(*job)
		if runtime > ceiling*2/3 && runtime <= ceiling {
			s.logger.Warn("job approaching runtime ceiling",
				logging.String(logging.FieldJobID, job.ID),
				logging.Duration("runtime", runtime),
				logging.Duration("ceiling", ceiling))
		}
	}

	swept, err := s.store.SweepStuck(ctx, now, func(job ledger.Job) time.Duration {
		if !s.heartbeatStale(job, now) {
			// Worker is alive; leave it alone regardless of runtime.
			return time.Duration(1<<62 - 1)
		}
		return s.ceiling(job)
	})
	if err != nil {
		return 0, err
	}
	for _, job := range swept {
		s.logger.Error("stuck job failed",
			logging.String(logging.FieldJobID, job.ID),
			logging.String(logging.FieldErrorCode, job.ErrorCode))
	}
	return len(swept), nil
}

// ceiling scales the allowed runtime with the job's expected input length so
// long podcasts get more headroom than short uploads.
func (s *Sweeper) ceiling(job ledger.Job) time.Duration {
	base := time.Duration(s.cfg.Pipeline.StuckBaseMinutes) * time.Minute
	var params struct {
		ExpectedMinutes float64 `json:"expected_minutes"`
	}
	if err := json.Unmarshal([]byte(job.ParamsJSON), &params); err == nil && params.ExpectedMinutes > 0 {
		base += time.Duration(s.cfg.Pipeline.StuckMinutesFactor * params.ExpectedMinutes * float64(time.Minute))
	}
	return base
}

func (s *Sweeper) runtime(job ledger.Job, now time.Time) time.Duration {
	started := job.CreatedAt
	if job.StartedAt != nil {
		started = *job.StartedAt
	}
	return now.Sub(started)
}

func (s *Sweeper) heartbeatStale(job ledger.Job, now time.Time) bool {
	if job.LastHeartbeat == nil {
		return true
	}
	stale := time.Duration(s.cfg.Pipeline.HeartbeatInterval) * time.Second * staleHeartbeatFactor
	if stale <= 0 {
		stale = time.Minute
	}
	return now.Sub(*job.LastHeartbeat) > stale
}
