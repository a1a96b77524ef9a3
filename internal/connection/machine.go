package connection

import (
	"context"
	"errors"
	"sync"

	"github.com/rileyhilliard/diagterm/internal/backend"
	"github.com/rileyhilliard/diagterm/internal/logger"
	"github.com/rileyhilliard/diagterm/internal/permission"
)

// ErrSuperseded is returned by Connect when a later Connect or Disconnect
// started before this attempt finished. Its result was discarded.
var ErrSuperseded = errors.New("connection attempt superseded")

// ErrNotConnected is returned by Grant when no backend is connected.
var ErrNotConnected = errors.New("not connected to a backend")

// ClientFactory builds a backend client for a normalized base URL.
type ClientFactory func(baseURL string) backend.API

// Machine owns the connection state and drives its transitions:
//
//	disconnected -> connecting -> connected | error
//	connected    -> disconnected
//	error        -> connecting
type Machine struct {
	mu        sync.Mutex
	state     State
	client    backend.API
	gen       uint64
	store     Store
	newClient ClientFactory
	defURL    string
	log       logger.Logger

	// notifyMu serializes delivery so observers see transitions in order.
	notifyMu  sync.Mutex
	observers []func(State)
}

// MachineOption customizes a Machine.
type MachineOption func(*Machine)

// WithDefaultURL sets the endpoint used when Connect is given an empty URL.
func WithDefaultURL(u string) MachineOption {
	return func(m *Machine) {
		if n := backend.NormalizeURL(u); n != "" {
			m.defURL = n
		}
	}
}

// WithLogger sets the machine's logger.
func WithLogger(l logger.Logger) MachineOption {
	return func(m *Machine) {
		if l != nil {
			m.log = l
		}
	}
}

// NewMachine returns a disconnected machine. A nil factory builds plain
// backend.Clients.
func NewMachine(store Store, newClient ClientFactory, opts ...MachineOption) *Machine {
	if store == nil {
		store = NewMemoryStore()
	}
	if newClient == nil {
		newClient = func(u string) backend.API { return backend.New(u) }
	}
	m := &Machine{
		store:     store,
		newClient: newClient,
		defURL:    backend.DefaultBaseURL,
		log:       logger.Noop(),
	}
	for _, opt := range opts {
		opt(m)
	}
	m.state = State{Status: Disconnected, BackendURL: m.defURL}
	return m
}

// State returns a copy of the current state.
func (m *Machine) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state.Clone()
}

// Client returns the client bound to the connected backend, or nil when not
// connected.
func (m *Machine) Client() backend.API {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.state.Status != Connected {
		return nil
	}
	return m.client
}

// Subscribe registers fn to receive every new state after a transition.
// Observers must not call back into the machine's transitions synchronously.
func (m *Machine) Subscribe(fn func(State)) {
	m.notifyMu.Lock()
	defer m.notifyMu.Unlock()
	m.observers = append(m.observers, fn)
}

// Connect probes url and, on success, records perms as the granted set and
// persists the pair.
//
// The connecting state is published before the probe so observers can show
// progress. On failure the machine enters Error with the probe's message and
// the previous grants are left as they were. The returned error is the probe
// failure, ErrSuperseded, or nil.
func (m *Machine) Connect(ctx context.Context, url string, perms permission.Set) (State, error) {
	target := backend.NormalizeURL(url)
	if target == "" {
		target = m.defURL
	}
	client := m.newClient(target)

	m.mu.Lock()
	m.gen++
	gen := m.gen
	next := m.state.Clone()
	next.Status = Connecting
	next.BackendURL = target
	next.Capabilities = nil
	next.Err = ""
	m.commitLocked(next)

	m.log.Info("connecting to %s", target)
	caps, err := client.TestConnection(ctx)

	m.mu.Lock()
	if gen != m.gen {
		current := m.state.Clone()
		m.mu.Unlock()
		m.log.Debug("discarding result of superseded connect to %s", target)
		return current, ErrSuperseded
	}

	next = m.state.Clone()
	if err != nil {
		next.Status = Error
		next.Capabilities = nil
		next.Err = err.Error()
		m.log.Warn("connect to %s failed: %v", target, err)
		return m.commitLocked(next), err
	}

	next.Status = Connected
	next.Capabilities = caps
	next.Granted = perms
	next.Err = ""
	m.client = client
	if serr := m.store.Save(Record{BackendURL: target, Permissions: perms}); serr != nil {
		m.log.Warn("persist connection: %v", serr)
	}
	m.log.Info("connected to %s (backend %s, granted %s)", target, caps.Version, perms)
	return m.commitLocked(next), nil
}

// Disconnect forgets the persisted record and drops all grants. The endpoint
// is kept so the next Connect can default to it.
func (m *Machine) Disconnect() error {
	m.mu.Lock()
	m.gen++
	err := m.store.Clear()
	m.client = nil
	next := State{
		Status:     Disconnected,
		BackendURL: m.state.BackendURL,
	}
	m.commitLocked(next)

	if err != nil {
		m.log.Warn("clear persisted connection: %v", err)
	}
	m.log.Info("disconnected")
	return err
}

// Grant adds level to the granted set and persists it with the current
// endpoint. Granting an already-held level changes nothing but still persists.
// The in-memory grant stands even if persisting fails.
// Grants are only accepted while connected.
func (m *Machine) Grant(level permission.Level) error {
	if !level.Valid() {
		return errors.New("cannot grant an unknown permission level")
	}

	m.mu.Lock()
	if m.state.Status != Connected {
		status := m.state.Status
		m.mu.Unlock()
		m.log.Debug("refusing grant of %s while %s", level, status)
		return ErrNotConnected
	}
	next := m.state.Clone()
	next.Granted = next.Granted.Add(level)
	err := m.store.Save(Record{BackendURL: next.BackendURL, Permissions: next.Granted})
	m.commitLocked(next)

	m.log.Info("granted %s", level)
	if err != nil {
		m.log.Warn("persist grant: %v", err)
	}
	return err
}

// Restore reconnects to the persisted backend, if any. A malformed record is
// ignored and the machine stays disconnected.
func (m *Machine) Restore(ctx context.Context) (State, error) {
	rec, err := m.store.Load()
	if err != nil {
		if errors.Is(err, ErrMalformed) {
			m.log.Debug("ignoring persisted connection: %v", err)
			return m.State(), nil
		}
		return m.State(), err
	}
	if rec == nil {
		return m.State(), nil
	}
	return m.Connect(ctx, rec.BackendURL, rec.Permissions)
}

// commitLocked installs next, releases m.mu and notifies observers in order.
// It must be called with m.mu held.
func (m *Machine) commitLocked(next State) State {
	m.state = next
	published := next.Clone()

	m.notifyMu.Lock()
	m.mu.Unlock()
	defer m.notifyMu.Unlock()

	for _, fn := range m.observers {
		fn(published.Clone())
	}
	return published
}
