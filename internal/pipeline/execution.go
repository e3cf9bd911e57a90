package pipeline

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"

	"clipforge/internal/config"
	"clipforge/internal/ledger"
	"clipforge/internal/logging"
	"clipforge/internal/resources"
	"clipforge/internal/storage"
)

// Execution carries one running job's state through its stages.
type Execution struct {
	Job     *ledger.Job
	Store   *ledger.Store
	Assets  storage.Backend
	Guard   *resources.Guard
	Cfg     *config.Config
	Logger  *slog.Logger
	WorkDir string

	currentSpan progressSpan
	costCents   float64
}

func newExecution(job *ledger.Job, o *Orchestrator, guard *resources.Guard) (*Execution, error) {
	workDir := filepath.Join(o.cfg.Paths.WorkDir, job.ID)
	if err := os.MkdirAll(workDir, 0o755); err != nil {
		return nil, err
	}
	return &Execution{
		Job:    job,
		Store:  o.store,
		Assets: o.assets,
		Guard:  guard,
		Cfg:    o.cfg,
		Logger: o.logger.With(
			logging.String(logging.FieldJobID, job.ID),
			logging.String(logging.FieldJobKind, string(job.Kind))),
		WorkDir: workDir,
	}, nil
}

// EnterStage records the stage transition and pins progress to the span
// start.
func (e *Execution) EnterStage(ctx context.Context, stage string) error {
	span, ok := spanFor(e.Job.Kind, stage)
	if !ok {
		span = progressSpan{stage: stage}
	}
	e.currentSpan = span
	e.Logger.Info("stage started",
		logging.String(logging.FieldStage, stage))

	updated, err := e.Store.Update(ctx, e.Job.ID, ledger.Mutation{
		Stage:    ledger.StringPtr(stage),
		Progress: ledger.FloatPtr(span.from),
	})
	if err != nil {
		return err
	}
	e.Job = updated
	return nil
}

// Progress reports fractional completion of the current stage. The fraction
// maps onto the stage's progress span; the ledger keeps the result monotonic.
func (e *Execution) Progress(ctx context.Context, frac float64) error {
	if frac < 0 {
		frac = 0
	}
	if frac > 1 {
		frac = 1
	}
	pct := e.currentSpan.from + frac*(e.currentSpan.to-e.currentSpan.from)
	updated, err := e.Store.Update(ctx, e.Job.ID, ledger.Mutation{
		Progress: ledger.FloatPtr(pct),
	})
	if err != nil {
		return err
	}
	e.Job = updated
	return nil
}

// AddCost accumulates generative spend for the job; the total is persisted
// when the job reaches a terminal status.
func (e *Execution) AddCost(cents float64) {
	e.costCents += cents
}

// Acquire brings a named guarded resource live for the current stage.
func (e *Execution) Acquire(ctx context.Context, name string) error {
	_, err := e.Guard.Acquire(ctx, name)
	return err
}

// Cleanup removes the job's scratch directory and releases guarded
// resources.
func (e *Execution) Cleanup() {
	e.Guard.ReleaseAll()
	if err := os.RemoveAll(e.WorkDir); err != nil {
		e.Logger.Warn("work dir cleanup failed", logging.Error(err))
	}
}
