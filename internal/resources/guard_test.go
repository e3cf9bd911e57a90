package resources

import (
	"context"
	"errors"
	"testing"

	"clipforge/internal/services"
)

type countedHandle struct {
	closed *int
}

func (h countedHandle) Close() error {
	*h.closed++
	return nil
}

func TestAcquireIsLazyAndCached(t *testing.T) {
	guard := NewGuard(nil)
	builds := 0
	guard.Register("detector", func(context.Context) (Handle, error) {
		builds++
		return countedHandle{closed: new(int)}, nil
	})

	if builds != 0 {
		t.Fatal("factory ran before Acquire")
	}
	first, err := guard.Acquire(context.Background(), "detector")
	if err != nil {
		t.Fatalf("Acquire: %v", err)
	}
	second, err := guard.Acquire(context.Background(), "detector")
	if err != nil {
		t.Fatalf("Acquire: %v", err)
	}
	if builds != 1 || first != second {
		t.Fatalf("expected one cached build, got %d builds", builds)
	}
}

func TestAcquireEvictsOtherResources(t *testing.T) {
	guard := NewGuard(nil)
	detectorClosed := 0
	guard.Register("detector", func(context.Context) (Handle, error) {
		return countedHandle{closed: &detectorClosed}, nil
	})
	guard.Register("transcriber", func(context.Context) (Handle, error) {
		return countedHandle{closed: new(int)}, nil
	})

	if _, err := guard.Acquire(context.Background(), "detector"); err != nil {
		t.Fatalf("Acquire detector: %v", err)
	}
	if _, err := guard.Acquire(context.Background(), "transcriber"); err != nil {
		t.Fatalf("Acquire transcriber: %v", err)
	}
	if detectorClosed != 1 {
		t.Fatalf("detector should have been evicted, closed=%d", detectorClosed)
	}
	if live := guard.Live(); len(live) != 1 || live[0] != "transcriber" {
		t.Fatalf("live set wrong: %v", live)
	}
}

func TestAcquireAllKeepsEverythingLive(t *testing.T) {
	guard := NewGuard(nil)
	for _, name := range []string{"detector", "voice"} {
		guard.Register(name, func(context.Context) (Handle, error) {
			return countedHandle{closed: new(int)}, nil
		})
	}

	handles, err := guard.AcquireAll(context.Background(), "detector", "voice")
	if err != nil {
		t.Fatalf("AcquireAll: %v", err)
	}
	if len(handles) != 2 {
		t.Fatalf("expected 2 handles, got %d", len(handles))
	}
	if live := guard.Live(); len(live) != 2 {
		t.Fatalf("expected 2 live resources, got %v", live)
	}
}

func TestReleaseAllClosesEverything(t *testing.T) {
	guard := NewGuard(nil)
	closedA, closedB := 0, 0
	guard.Register("a", func(context.Context) (Handle, error) {
		return countedHandle{closed: &closedA}, nil
	})
	guard.Register("b", func(context.Context) (Handle, error) {
		return countedHandle{closed: &closedB}, nil
	})
	if _, err := guard.AcquireAll(context.Background(), "a", "b"); err != nil {
		t.Fatalf("AcquireAll: %v", err)
	}

	guard.ReleaseAll()
	if closedA != 1 || closedB != 1 {
		t.Fatalf("expected both closed once, got a=%d b=%d", closedA, closedB)
	}
	if live := guard.Live(); len(live) != 0 {
		t.Fatalf("expected empty live set, got %v", live)
	}
}

func TestAcquireErrors(t *testing.T) {
	guard := NewGuard(nil)
	guard.Register("flaky", func(context.Context) (Handle, error) {
		return nil, errors.New("out of memory")
	})

	if _, err := guard.Acquire(context.Background(), "missing"); !errors.Is(err, services.ErrFatal) {
		t.Fatalf("unregistered name should be fatal, got %v", err)
	}
	if _, err := guard.Acquire(context.Background(), "flaky"); !errors.Is(err, services.ErrTransient) {
		t.Fatalf("factory failure should be transient, got %v", err)
	}
}
