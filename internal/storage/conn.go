package storage

import (
	"context"
	"errors"
	"fmt"
	"sync"

	apperrors "github.com/spec-kit/records-service/pkg/util"
)

// ErrClosed is returned by Conn.Get after Close.
var ErrClosed = errors.New("connection closed")

// DialFunc establishes a client to a backing engine.
type DialFunc[C any] func(ctx context.Context) (C, error)

// Conn owns one long-lived client. The client is dialed on first use and
// re-dialed after Invalidate, which adapters call when an operation fails
// with a connectivity error. Every dial starts a new generation; callers hand
// back the generation they used so a failure on a stale client never drops
// its replacement.
type Conn[C any] struct {
	mu      sync.Mutex
	dial    DialFunc[C]
	release func(C)
	client  C
	gen     uint64
	ready   bool
	closed  bool
}

// NewConn builds a handle. release may be nil.
func NewConn[C any](dial DialFunc[C], release func(C)) *Conn[C] {
	return &Conn[C]{dial: dial, release: release}
}

// Get returns the live client and its generation, dialing when none is held.
func (c *Conn[C]) Get(ctx context.Context) (C, uint64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	var zero C
	if c.closed {
		return zero, 0, apperrors.NewUnavailable(ErrClosed)
	}
	if c.ready {
		return c.client, c.gen, nil
	}
	client, err := c.dial(ctx)
	if err != nil {
		return zero, 0, apperrors.NewUnavailable(fmt.Errorf("dial: %w", err))
	}
	c.gen++
	c.client = client
	c.ready = true
	return client, c.gen, nil
}

// Invalidate drops the client of generation gen so the next Get re-dials.
// It is a no-op when that client was already replaced.
func (c *Conn[C]) Invalidate(gen uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if gen != c.gen {
		return
	}
	c.drop()
}

// Close releases the client; subsequent Get calls fail.
func (c *Conn[C]) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.drop()
	c.closed = true
	return nil
}

func (c *Conn[C]) drop() {
	if !c.ready {
		return
	}
	if c.release != nil {
		c.release(c.client)
	}
	var zero C
	c.client = zero
	c.ready = false
}

// Observe invalidates the client of generation gen when err is an
// Unavailable failure and returns err unchanged. A failure caused by the
// caller's own deadline or cancellation leaves the client in place.
func (c *Conn[C]) Observe(ctx context.Context, gen uint64, err error) error {
	if ctx.Err() != nil {
		return err
	}
	if apperrors.Is(err, apperrors.KindUnavailable) {
		c.Invalidate(gen)
	}
	return err
}
