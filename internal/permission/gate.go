package permission

import (
	"errors"
	"fmt"
	"sync"
)

var (
	// ErrNoPendingRequest is returned by Grant when nothing is awaiting consent.
	ErrNoPendingRequest = errors.New("no pending permission request")
	// ErrNotAcknowledged is returned by Grant for a high-risk level whose
	// acknowledgment box has not been checked.
	ErrNotAcknowledged = errors.New("high-risk permission requires acknowledgment")
)

// Request is a consent prompt awaiting the user's decision.
type Request struct {
	Descriptor
	Acknowledged bool
}

// CanGrant reports whether the grant action is enabled for this request.
func (r Request) CanGrant() bool {
	return !r.RequiresAcknowledgment() || r.Acknowledged
}

// GrantFunc records a granted level (typically the connection machine's Grant).
type GrantFunc func(Level) error

// Gate holds at most one pending consent request.
type Gate struct {
	mu        sync.Mutex
	pending   *Request
	grant     GrantFunc
	observers []func(*Request)
}

// NewGate creates a gate that calls grant when the user accepts a request.
func NewGate(grant GrantFunc) *Gate {
	return &Gate{grant: grant}
}

// Subscribe registers fn to be called with the pending request (nil when
// cleared) whenever it changes.
func (g *Gate) Subscribe(fn func(*Request)) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.observers = append(g.observers, fn)
}

// Request surfaces a consent prompt for level, replacing any pending one.
func (g *Gate) Request(level Level) (Request, error) {
	d, ok := Describe(level)
	if !ok {
		return Request{}, fmt.Errorf("unknown permission level %d", int(level))
	}
	req := Request{Descriptor: d}

	g.mu.Lock()
	g.pending = &req
	g.mu.Unlock()

	g.notify()
	return req, nil
}

// Pending returns a copy of the pending request, if any.
func (g *Gate) Pending() (Request, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.pending == nil {
		return Request{}, false
	}
	return *g.pending, true
}

// Acknowledge sets the acknowledgment checkbox of the pending request.
func (g *Gate) Acknowledge(ack bool) error {
	g.mu.Lock()
	if g.pending == nil {
		g.mu.Unlock()
		return ErrNoPendingRequest
	}
	g.pending.Acknowledged = ack
	g.mu.Unlock()

	g.notify()
	return nil
}

// Grant accepts the pending request. The request stays pending when the grant
// sink fails so the user can retry.
func (g *Gate) Grant() (Level, error) {
	g.mu.Lock()
	if g.pending == nil {
		g.mu.Unlock()
		return 0, ErrNoPendingRequest
	}
	req := *g.pending
	g.mu.Unlock()

	if !req.CanGrant() {
		return 0, ErrNotAcknowledged
	}

	if g.grant != nil {
		if err := g.grant(req.Level); err != nil {
			return 0, err
		}
	}

	g.mu.Lock()
	g.pending = nil
	g.mu.Unlock()

	g.notify()
	return req.Level, nil
}

// Deny discards the pending request without changing any grant.
func (g *Gate) Deny() {
	g.mu.Lock()
	had := g.pending != nil
	g.pending = nil
	g.mu.Unlock()

	if had {
		g.notify()
	}
}

func (g *Gate) notify() {
	g.mu.Lock()
	var current *Request
	if g.pending != nil {
		cp := *g.pending
		current = &cp
	}
	observers := append([]func(*Request){}, g.observers...)
	g.mu.Unlock()

	for _, fn := range observers {
		fn(current)
	}
}
