package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"sync"
	"time"

	"clipforge/internal/config"
	"clipforge/internal/ledger"
	"clipforge/internal/logging"
	"clipforge/internal/resources"
	"clipforge/internal/services"
	"clipforge/internal/storage"
)

// stageDef binds a stage name to its implementation.
type stageDef struct {
	name string
	run  func(ctx context.Context, exec *Execution) error
}

// GuardFactory builds one resource guard, with every factory the stage
// implementations acquire already registered.
type GuardFactory func() *resources.Guard

// Orchestrator drives the worker pool that executes jobs end to end.
type Orchestrator struct {
	cfg       *config.Config
	store     *ledger.Store
	assets    storage.Backend
	guards    GuardFactory
	contracts Contracts
	logger    *slog.Logger
	wg        sync.WaitGroup
}

// New wires an orchestrator. Each worker gets its own guard from the factory;
// model handles are never shared between workers.
func New(cfg *config.Config, store *ledger.Store, assets storage.Backend, guards GuardFactory, contracts Contracts, logger *slog.Logger) *Orchestrator {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Orchestrator{
		cfg:       cfg,
		store:     store,
		assets:    assets,
		guards:    guards,
		contracts: contracts,
		logger:    logger.With(logging.String(logging.FieldComponent, "pipeline")),
	}
}

// Start launches the configured number of workers. Workers exit when ctx is
// canceled; use Wait to block until they drain.
func (o *Orchestrator) Start(ctx context.Context) {
	workers := o.cfg.Pipeline.Workers
	if workers < 1 {
		workers = 1
	}
	for i := 0; i < workers; i++ {
		workerID := fmt.Sprintf("worker-%d", i+1)
		o.wg.Add(1)
		go func() {
			defer o.wg.Done()
			o.workerLoop(ctx, workerID)
		}()
	}
}

// Wait blocks until every worker has exited.
func (o *Orchestrator) Wait() {
	o.wg.Wait()
}

func (o *Orchestrator) workerLoop(ctx context.Context, workerID string) {
	logger := o.logger.With(logging.String(logging.FieldWorkerID, workerID))
	guard := o.guards()
	poll := time.Duration(o.cfg.Pipeline.QueuePollInterval) * time.Second
	if poll <= 0 {
		poll = time.Second
	}
	errRetry := time.Duration(o.cfg.Pipeline.ErrorRetryInterval) * time.Second
	if errRetry <= 0 {
		errRetry = poll
	}

	for {
		if ctx.Err() != nil {
			return
		}
		job, err := o.store.Claim(ctx, workerID)
		if err != nil {
			logger.Error("claim failed", logging.Error(err))
			if !sleepCtx(ctx, errRetry) {
				return
			}
			continue
		}
		if job == nil {
			if !sleepCtx(ctx, poll) {
				return
			}
			continue
		}
		o.runJob(ctx, job, guard, logger)
	}
}

func (o *Orchestrator) runJob(ctx context.Context, job *ledger.Job, guard *resources.Guard, logger *slog.Logger) {
	exec, err := newExecution(job, o, guard)
	if err != nil {
		logger.Error("job setup failed",
			logging.String(logging.FieldJobID, job.ID), logging.Error(err))
		o.failJob(ctx, &Execution{Job: job, Store: o.store, Logger: logger},
			services.Wrap(services.ErrTransient, "setup", "work dir", "creating scratch directory", err))
		return
	}
	defer exec.Cleanup()

	hbCtx, stopHeartbeat := context.WithCancel(ctx)
	defer stopHeartbeat()
	go o.heartbeatLoop(hbCtx, job.ID)

	stages, err := o.stagesFor(exec)
	if err != nil {
		o.failJob(ctx, exec, err)
		return
	}

	for _, stage := range stages {
		if ctx.Err() != nil {
			return
		}
		if err := exec.EnterStage(ctx, stage.name); err != nil {
			o.failJob(ctx, exec, err)
			return
		}
		if err := o.runStage(ctx, exec, stage); err != nil {
			o.failJob(ctx, exec, err)
			return
		}
	}
	o.completeJob(ctx, exec)
}

// runStage executes one stage, retrying transient failures from a cold
// resource state up to the configured retry budget.
func (o *Orchestrator) runStage(ctx context.Context, exec *Execution, stage stageDef) error {
	retries := o.cfg.Pipeline.TransientRetries
	if retries < 0 {
		retries = 0
	}
	var err error
	for attempt := 0; attempt <= retries; attempt++ {
		err = stage.run(ctx, exec)
		if err == nil || !services.Retryable(err) || ctx.Err() != nil {
			return err
		}
		if attempt == retries {
			break
		}
		exec.Logger.Warn("stage failed, retrying",
			logging.String(logging.FieldStage, stage.name),
			logging.Error(err))
		exec.Guard.ReleaseAll()
	}
	return err
}

func (o *Orchestrator) stagesFor(exec *Execution) ([]stageDef, error) {
	switch exec.Job.Kind {
	case ledger.KindClipExtraction:
		return o.clipStages(exec), nil
	case ledger.KindStoryVideo:
		return o.storyStages(exec), nil
	default:
		return nil, services.Wrap(services.ErrValidation, "setup", "stage plan",
			fmt.Sprintf("no stage plan for kind %q", exec.Job.Kind), nil)
	}
}

func (o *Orchestrator) completeJob(ctx context.Context, exec *Execution) {
	mutation := ledger.Mutation{
		Status:         ledger.StatusPtr(ledger.StatusCompleted),
		Progress:       ledger.FloatPtr(100),
		CostCentsDelta: int64(math.Round(exec.costCents)),
	}
	if exec.Job.StartedAt != nil {
		mutation.ProcessingSeconds = ledger.FloatPtr(time.Since(*exec.Job.StartedAt).Seconds())
	}
	if _, err := o.store.Update(ctx, exec.Job.ID, mutation); err != nil {
		exec.Logger.Error("completion update failed", logging.Error(err))
		return
	}
	exec.Logger.Info("job completed")
}

func (o *Orchestrator) failJob(ctx context.Context, exec *Execution, cause error) {
	code := services.Classify(cause)
	mutation := ledger.Mutation{
		Status:         ledger.StatusPtr(ledger.StatusFailed),
		ErrorCode:      ledger.StringPtr(string(code)),
		ErrorMessage:   ledger.StringPtr(services.UserMessage(cause)),
		CostCentsDelta: int64(math.Round(exec.costCents)),
	}
	if exec.Job.StartedAt != nil {
		mutation.ProcessingSeconds = ledger.FloatPtr(time.Since(*exec.Job.StartedAt).Seconds())
	}
	if _, err := o.store.Update(ctx, exec.Job.ID, mutation); err != nil {
		exec.Logger.Error("failure update failed", logging.Error(err))
	}
	exec.Logger.Error("job failed",
		logging.String(logging.FieldErrorCode, string(code)),
		logging.Error(cause))
}

func (o *Orchestrator) heartbeatLoop(ctx context.Context, jobID string) {
	interval := time.Duration(o.cfg.Pipeline.HeartbeatInterval) * time.Second
	if interval <= 0 {
		interval = 15 * time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := o.store.UpdateHeartbeat(ctx, jobID); err != nil && ctx.Err() == nil {
				o.logger.Warn("heartbeat update failed",
					logging.String(logging.FieldJobID, jobID), logging.Error(err))
			}
		}
	}
}

func sleepCtx(ctx context.Context, d time.Duration) bool {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}
