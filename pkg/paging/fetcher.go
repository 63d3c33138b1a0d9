package paging

import (
	"context"
	"log/slog"
	"sync"
)

// slogKeyError is the slog attribute key for error values.
const slogKeyError = "error"

// State is the fetcher's view state.
type State int

// View states. Idle only precedes the first fetch.
const (
	StateIdle State = iota
	StateLoading
	StateError
	StateLoaded
)

// String returns the state name.
func (s State) String() string {
	switch s {
	case StateLoading:
		return "loading"
	case StateError:
		return "error"
	case StateLoaded:
		return "loaded"
	default:
		return "idle"
	}
}

// View is a snapshot of what a list should render. Page is meaningful only
// when State is StateLoaded, Err and Message only when it is StateError.
type View[T any] struct {
	State   State
	Page    Page[T]
	Err     error
	Message string
	Seq     uint64
}

// Empty reports a loaded view with zero items.
func (v View[T]) Empty() bool {
	return v.State == StateLoaded && v.Page.Empty()
}

type sequenceKey struct{}

func withSequence(ctx context.Context, seq uint64) context.Context {
	return context.WithValue(ctx, sequenceKey{}, seq)
}

// Sequence returns the sequence number of the fetch a FetchFunc is running
// for. Values a FetchFunc derives alongside its page can be keyed by it and
// applied once a View with the same Seq arrives.
func Sequence(ctx context.Context) (uint64, bool) {
	seq, ok := ctx.Value(sequenceKey{}).(uint64)
	return seq, ok
}

// FetchFunc loads one page for query q.
type FetchFunc[Q, T any] func(ctx context.Context, q Q) (Page[T], error)

// Option configures a Fetcher.
type Option func(*options)

type options struct {
	name    string
	message func(error) string
}

// WithName labels log lines for this fetcher.
func WithName(name string) Option {
	return func(o *options) {
		o.name = name
	}
}

// WithMessage sets how an error becomes the Message shown to the user.
func WithMessage(fn func(error) string) Option {
	return func(o *options) {
		o.message = fn
	}
}

// Fetcher applies only the result of the most recently initiated fetch.
// Superseded fetches run to completion but their results are discarded.
type Fetcher[Q, T any] struct {
	fetch FetchFunc[Q, T]
	opts  options

	mu       sync.Mutex
	seq      uint64
	view     View[T]
	onChange func(View[T])

	inflight sync.WaitGroup
}

// NewFetcher creates a fetcher around fn.
func NewFetcher[Q, T any](fn FetchFunc[Q, T], opts ...Option) *Fetcher[Q, T] {
	o := options{
		name:    "list",
		message: func(err error) string { return err.Error() },
	}
	for _, opt := range opts {
		opt(&o)
	}
	return &Fetcher[Q, T]{fetch: fn, opts: o}
}

// OnChange registers fn to receive every applied view. fn runs without the
// fetcher's lock held.
func (f *Fetcher[Q, T]) OnChange(fn func(View[T])) {
	f.mu.Lock()
	f.onChange = fn
	f.mu.Unlock()
}

// View returns the current view.
func (f *Fetcher[Q, T]) View() View[T] {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.view
}

// Latest returns the sequence number of the most recently initiated fetch.
func (f *Fetcher[Q, T]) Latest() uint64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.seq
}

// Fetch starts a fetch for q in the background and returns its sequence
// number. The view moves to Loading immediately.
func (f *Fetcher[Q, T]) Fetch(ctx context.Context, q Q) uint64 {
	seq := f.begin()
	f.inflight.Add(1)
	go func() {
		defer f.inflight.Done()
		f.complete(ctx, seq, q)
	}()
	return seq
}

// Load fetches q synchronously and returns the view afterwards. If a newer
// fetch was initiated meanwhile, the returned view reflects that one.
func (f *Fetcher[Q, T]) Load(ctx context.Context, q Q) View[T] {
	seq := f.begin()
	f.complete(ctx, seq, q)
	return f.View()
}

// Wait blocks until every background fetch has finished.
func (f *Fetcher[Q, T]) Wait() {
	f.inflight.Wait()
}

func (f *Fetcher[Q, T]) begin() uint64 {
	f.mu.Lock()
	f.seq++
	seq := f.seq
	f.view = View[T]{State: StateLoading, Page: f.view.Page, Seq: seq}
	v, notify := f.view, f.onChange
	f.mu.Unlock()

	if notify != nil {
		notify(v)
	}
	return seq
}

func (f *Fetcher[Q, T]) complete(ctx context.Context, seq uint64, q Q) {
	page, err := f.fetch(withSequence(ctx, seq), q)

	f.mu.Lock()
	if seq != f.seq {
		latest := f.seq
		f.mu.Unlock()
		slog.Debug("discarding stale response", "fetcher", f.opts.name, "seq", seq, "latest", latest)
		return
	}
	if err != nil {
		f.view = View[T]{State: StateError, Err: err, Message: f.opts.message(err), Seq: seq}
	} else {
		f.view = View[T]{State: StateLoaded, Page: page.normalize(), Seq: seq}
	}
	v, notify := f.view, f.onChange
	f.mu.Unlock()

	if err != nil {
		slog.Debug("fetch failed", "fetcher", f.opts.name, "seq", seq, slogKeyError, err)
	}
	if notify != nil {
		notify(v)
	}
}
