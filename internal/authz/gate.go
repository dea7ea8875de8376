package authz

import (
	"sync"
	"sync/atomic"

	"storefront-state/internal/domain"
	"storefront-state/internal/observability"
)

// IdentitySource is a replay-latest identity stream. *session.Store implements it.
type IdentitySource interface {
	Subscribe(fn func(*domain.Identity)) (unsubscribe func())
}

// Gate keeps a subtree mounted exactly while the session identity holds
// one of the required roles.
type Gate struct {
	roles    []domain.Role
	producer func() (teardown func())

	mu          sync.Mutex
	teardown    func()
	closed      bool
	mounted     atomic.Bool
	unsubscribe func()
}

// NewGate subscribes to source. producer mounts the subtree and returns its
// teardown; it may be called again after an unmount.
func NewGate(source IdentitySource, roles []domain.Role, producer func() (teardown func())) *Gate {
	g := &Gate{
		roles:    roles,
		producer: producer,
	}
	g.unsubscribe = source.Subscribe(g.update)
	return g
}

func (g *Gate) update(identity *domain.Identity) {
	allowed := HasAnyRole(identity, g.roles...)

	g.mu.Lock()
	defer g.mu.Unlock()
	if g.closed {
		return
	}

	switch {
	case allowed && !g.mounted.Load():
		g.teardown = g.producer()
		g.mounted.Store(true)
		observability.RenderGateTransitionsTotal.WithLabelValues("mount").Inc()
	case !allowed && g.mounted.Load():
		g.unmountLocked()
	}
}

func (g *Gate) unmountLocked() {
	if g.teardown != nil {
		g.teardown()
		g.teardown = nil
	}
	g.mounted.Store(false)
	observability.RenderGateTransitionsTotal.WithLabelValues("unmount").Inc()
}

// Mounted reports whether the subtree is currently mounted
func (g *Gate) Mounted() bool {
	return g.mounted.Load()
}

// Close unmounts the subtree and stops following the identity stream
func (g *Gate) Close() {
	g.mu.Lock()
	if g.closed {
		g.mu.Unlock()
		return
	}
	g.closed = true
	if g.mounted.Load() {
		g.unmountLocked()
	}
	g.mu.Unlock()

	if g.unsubscribe != nil {
		g.unsubscribe()
	}
}
