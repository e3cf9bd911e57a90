package resources

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"

	"clipforge/internal/logging"
	"clipforge/internal/services"
)

// Handle is a live heavyweight resource such as a loaded model or a pinned
// GPU context. Close releases whatever memory the resource holds.
type Handle interface {
	Close() error
}

// Factory constructs a resource on first use.
type Factory func(ctx context.Context) (Handle, error)

// Guard owns lazy construction and teardown of named heavyweight resources.
// Only one resource is kept live at a time unless acquired through
// AcquireAll; acquiring a new name evicts the others first so peak memory
// stays at a single resource.
type Guard struct {
	mu        sync.Mutex
	factories map[string]Factory
	live      map[string]Handle
	logger    *slog.Logger
}

// NewGuard returns an empty guard.
func NewGuard(logger *slog.Logger) *Guard {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Guard{
		factories: make(map[string]Factory),
		live:      make(map[string]Handle),
		logger:    logger.With(logging.String(logging.FieldComponent, "resources")),
	}
}

// Register installs the factory for a resource name. Registering a name twice
// replaces the factory but leaves any live handle untouched.
func (g *Guard) Register(name string, factory Factory) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.factories[name] = factory
}

// Acquire returns the named resource, constructing it on first use. All other
// live resources are released before construction so only one occupies memory
// at a time.
func (g *Guard) Acquire(ctx context.Context, name string) (Handle, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if h, ok := g.live[name]; ok {
		return h, nil
	}
	g.releaseOthersLocked(name)
	return g.acquireLocked(ctx, name)
}

// AcquireAll brings every named resource live at once, for stages that need
// several models resident together. Construction stops at the first failure;
// already-live handles stay live.
func (g *Guard) AcquireAll(ctx context.Context, names ...string) (map[string]Handle, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	out := make(map[string]Handle, len(names))
	for _, name := range names {
		if h, ok := g.live[name]; ok {
			out[name] = h
			continue
		}
		h, err := g.acquireLocked(ctx, name)
		if err != nil {
			return nil, err
		}
		out[name] = h
	}
	return out, nil
}

func (g *Guard) acquireLocked(ctx context.Context, name string) (Handle, error) {
	factory, ok := g.factories[name]
	if !ok {
		return nil, services.Wrap(services.ErrFatal, "resources", "acquire",
			fmt.Sprintf("no factory registered for %q", name), nil)
	}
	h, err := factory(ctx)
	if err != nil {
		return nil, services.Wrap(services.ErrTransient, "resources", "acquire",
			fmt.Sprintf("constructing %q", name), err)
	}
	g.live[name] = h
	g.logger.Info("resource acquired", logging.String("resource", name))
	return h, nil
}

// Release tears down one resource if it is live.
func (g *Guard) Release(name string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.releaseLocked(name)
}

// ReleaseAll tears down every live resource. Called between jobs and on
// transient failures so a retry starts from a cold state.
func (g *Guard) ReleaseAll() {
	g.mu.Lock()
	defer g.mu.Unlock()
	for name := range g.live {
		g.releaseLocked(name)
	}
}

// Live reports the names of currently held resources, sorted.
func (g *Guard) Live() []string {
	g.mu.Lock()
	defer g.mu.Unlock()
	names := make([]string, 0, len(g.live))
	for name := range g.live {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (g *Guard) releaseOthersLocked(keep string) {
	for name := range g.live {
		if name != keep {
			g.releaseLocked(name)
		}
	}
}

func (g *Guard) releaseLocked(name string) {
	h, ok := g.live[name]
	if !ok {
		return
	}
	delete(g.live, name)
	if err := h.Close(); err != nil {
		g.logger.Warn("resource release failed",
			logging.String("resource", name), logging.Error(err))
		return
	}
	g.logger.Info("resource released", logging.String("resource", name))
}
