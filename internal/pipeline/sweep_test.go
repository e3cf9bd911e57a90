package pipeline

import (
	"context"
	"testing"
	"time"

	"clipforge/internal/ledger"
	"clipforge/internal/services"
	"clipforge/internal/testsupport"
)

func TestSweepSkipsJobsWithLiveHeartbeats(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenLedger(t, cfg)
	ctx := context.Background()

	// Zero ceiling makes every processing job exceed its runtime budget
	// immediately; only the fresh heartbeat protects it.
	cfg.Pipeline.StuckBaseMinutes = 0

	testsupport.NewJob(t, store, ledger.KindClipExtraction, "{}")
	job, err := store.Claim(ctx, "worker-1")
	if err != nil || job == nil {
		t.Fatalf("Claim: %v %#v", err, job)
	}

	sweeper := NewSweeper(store, cfg, nil)
	if err := store.UpdateHeartbeat(ctx, job.ID); err != nil {
		t.Fatalf("UpdateHeartbeat: %v", err)
	}
	failed, err := sweeper.SweepOnce(ctx, time.Now().Add(time.Second))
	if err != nil {
		t.Fatalf("SweepOnce: %v", err)
	}
	if failed != 0 {
		t.Fatalf("live job was swept")
	}
}

func TestSweepFailsAbandonedJobPastCeiling(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenLedger(t, cfg)
	ctx := context.Background()

	testsupport.NewJob(t, store, ledger.KindClipExtraction, "{}")
	job, err := store.Claim(ctx, "worker-1")
	if err != nil || job == nil {
		t.Fatalf("Claim: %v %#v", err, job)
	}

	sweeper := NewSweeper(store, cfg, nil)
	// From an hour in the future both the heartbeat is stale and the base
	// ceiling is exceeded.
	future := time.Now().Add(time.Hour)
	failed, err := sweeper.SweepOnce(ctx, future)
	if err != nil {
		t.Fatalf("SweepOnce: %v", err)
	}
	if failed != 1 {
		t.Fatalf("swept %d jobs, want 1", failed)
	}

	swept, err := store.Get(ctx, job.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if swept.Status != ledger.StatusFailed || swept.ErrorCode != string(services.CodeStuck) {
		t.Fatalf("job not marked stuck: %#v", swept)
	}
}

func TestCeilingScalesWithExpectedMinutes(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenLedger(t, cfg)
	sweeper := NewSweeper(store, cfg, nil)

	short := sweeper.ceiling(ledger.Job{ParamsJSON: "{}"})
	long := sweeper.ceiling(ledger.Job{ParamsJSON: `{"expected_minutes":120}`})

	base := time.Duration(cfg.Pipeline.StuckBaseMinutes) * time.Minute
	if short != base {
		t.Fatalf("base ceiling = %s, want %s", short, base)
	}
	wantExtra := time.Duration(cfg.Pipeline.StuckMinutesFactor * 120 * float64(time.Minute))
	if long != base+wantExtra {
		t.Fatalf("scaled ceiling = %s, want %s", long, base+wantExtra)
	}
}
