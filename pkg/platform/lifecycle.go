package platform

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
)

type hook struct {
	name  string
	start func(context.Context) error
	stop  func(context.Context) error
}

// Lifecycle starts registered components in order and stops them in
// reverse. A failed start stops the components that already started.
type Lifecycle struct {
	mu      sync.Mutex
	hooks   []hook
	started int
}

// NewLifecycle creates an empty lifecycle.
func NewLifecycle() *Lifecycle {
	return &Lifecycle{}
}

// Register adds a component. Either function may be nil.
func (l *Lifecycle) Register(name string, start, stop func(context.Context) error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.hooks = append(l.hooks, hook{name: name, start: start, stop: stop})
}

// Adopt adds a component that is already running, such as storage opened
// during construction. It is stopped by the next Stop even if Start never
// runs, and it stops after every component registered before Start.
func (l *Lifecycle) Adopt(name string, stop func(context.Context) error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.hooks = append(l.hooks, hook{})
	copy(l.hooks[l.started+1:], l.hooks[l.started:])
	l.hooks[l.started] = hook{name: name, stop: stop}
	l.started++
}

// Start runs every start function not yet run.
func (l *Lifecycle) Start(ctx context.Context) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	for l.started < len(l.hooks) {
		h := l.hooks[l.started]
		if h.start != nil {
			if err := h.start(ctx); err != nil {
				l.stopLocked(ctx)
				return fmt.Errorf("starting %s: %w", h.name, err)
			}
		}
		l.started++
	}
	return nil
}

// Stop runs the stop functions of started components in reverse order and
// returns every failure joined.
func (l *Lifecycle) Stop(ctx context.Context) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.stopLocked(ctx)
}

func (l *Lifecycle) stopLocked(ctx context.Context) error {
	var errs []error
	for ; l.started > 0; l.started-- {
		h := l.hooks[l.started-1]
		if h.stop == nil {
			continue
		}
		if err := h.stop(ctx); err != nil {
			slog.Warn("stopping component failed", "component", h.name, slogKeyError, err)
			errs = append(errs, fmt.Errorf("stopping %s: %w", h.name, err))
		}
	}
	return errors.Join(errs...)
}
