package invitation

import (
	"context"
	"errors"
	"sync"

	"invitegen/internal/domain"
	"invitegen/internal/infra/logging"
)

// StateObserver is notified when a client key becomes busy or idle.
type StateObserver interface {
	GenerationStateChanged(key string, busy bool)
}

// StateObserverFunc adapts a function to StateObserver.
type StateObserverFunc func(key string, busy bool)

func (f StateObserverFunc) GenerationStateChanged(key string, busy bool) { f(key, busy) }

// Generator runs at most one generation per client key at a time.
type Generator struct {
	composer *Composer
	observer StateObserver

	mu   sync.Mutex
	busy map[string]struct{}
}

func NewGenerator(c *Composer, observer StateObserver) *Generator {
	return &Generator{composer: c, observer: observer, busy: make(map[string]struct{})}
}

func (g *Generator) Composer() *Composer { return g.composer }

// Busy reports whether key has a generation in flight.
func (g *Generator) Busy(key string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	_, ok := g.busy[key]
	return ok
}

// Generate validates req, marks key busy for the duration of the composition
// and returns the artifact. A second call for a busy key fails with
// domain.ErrBusy. Validation failures never mark the key busy.
func (g *Generator) Generate(ctx context.Context, key string, req Request) (*Artifact, error) {
	t, err := g.composer.Validate(req)
	if err != nil {
		return nil, err
	}
	if !g.acquire(key) {
		return nil, domain.ErrBusy
	}
	defer g.release(key)

	art, err := g.composer.Compose(ctx, req)
	if err != nil {
		stage := ""
		var ge *domain.GenerationError
		if errors.As(err, &ge) {
			stage = ge.Stage
		}
		logging.Error("invitation generation failed",
			"template", t.Name,
			"mode", string(t.Mode),
			"stage", stage,
			"error", err,
		)
		return nil, err
	}
	logging.Debug("invitation generated", "template", t.Name, "filename", art.Filename, "bytes", len(art.Data))
	return art, nil
}

func (g *Generator) acquire(key string) bool {
	g.mu.Lock()
	if _, ok := g.busy[key]; ok {
		g.mu.Unlock()
		return false
	}
	g.busy[key] = struct{}{}
	g.mu.Unlock()
	g.notify(key, true)
	return true
}

func (g *Generator) release(key string) {
	g.mu.Lock()
	delete(g.busy, key)
	g.mu.Unlock()
	g.notify(key, false)
}

func (g *Generator) notify(key string, busy bool) {
	if g.observer != nil {
		g.observer.GenerationStateChanged(key, busy)
	}
}
