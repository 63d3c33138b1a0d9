package session

import "sync/atomic"

// Status is the observable state of the session manager.
type Status int32

// Status values. A Manager starts in StatusLoading and leaves it once
// Restore has finished.
const (
	StatusLoading Status = iota
	StatusAuthenticated
	StatusUnauthenticated
)

// String returns the status as a human-readable string.
func (s Status) String() string {
	switch s {
	case StatusAuthenticated:
		return "authenticated"
	case StatusUnauthenticated:
		return "unauthenticated"
	default:
		return "loading"
	}
}

// statusCell stores a Status. It is safe for concurrent use.
type statusCell struct {
	v atomic.Int32
}

func (c *statusCell) load() Status {
	return Status(c.v.Load())
}

func (c *statusCell) store(s Status) {
	c.v.Store(int32(s))
}
