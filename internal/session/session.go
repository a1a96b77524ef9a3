// Package session wires the connection machine, the permission gate and the
// poller together. It is the single object the dashboard and the one-shot
// commands drive.
//
// After every connection transition the session reconciles the poller: it
// runs exactly while the backend is connected and read access is granted.
package session

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/rileyhilliard/diagterm/internal/backend"
	"github.com/rileyhilliard/diagterm/internal/connection"
	"github.com/rileyhilliard/diagterm/internal/logger"
	"github.com/rileyhilliard/diagterm/internal/permission"
	"github.com/rileyhilliard/diagterm/internal/poll"
)

// DefaultRunTimeout is passed to the backend when Run is given no timeout.
const DefaultRunTimeout = 120 * time.Second

var (
	// ErrNotConnected is returned by Run and RequestPermission when no
	// backend is connected.
	ErrNotConnected = connection.ErrNotConnected
	// ErrEmptyCommand is returned by Run for a blank command.
	ErrEmptyCommand = errors.New("command is empty")
)

// Options configures a Session. Zero values take defaults.
type Options struct {
	Store         connection.Store
	ClientFactory connection.ClientFactory
	DefaultURL    string
	Poll          poll.Config
	RunTimeout    time.Duration
	Logger        logger.Logger

	// NoPolling keeps the poller stopped whatever the connection state.
	// One-shot commands that never show metrics set it.
	NoPolling bool
}

// Session is one client's view of one backend at a time.
type Session struct {
	machine    *connection.Machine
	gate       *permission.Gate
	poller     *poll.Poller
	runTimeout time.Duration
	noPolling  bool
	log        logger.Logger
}

// New builds a disconnected session. Call Restore to pick up a persisted
// connection and Close when done.
func New(opts Options) *Session {
	log := opts.Logger
	if log == nil {
		log = logger.Noop()
	}
	runTimeout := opts.RunTimeout
	if runTimeout <= 0 {
		runTimeout = DefaultRunTimeout
	}

	machineOpts := []connection.MachineOption{connection.WithLogger(log)}
	if opts.DefaultURL != "" {
		machineOpts = append(machineOpts, connection.WithDefaultURL(opts.DefaultURL))
	}

	s := &Session{
		machine:    connection.NewMachine(opts.Store, opts.ClientFactory, machineOpts...),
		poller:     poll.New(opts.Poll, log),
		runTimeout: runTimeout,
		noPolling:  opts.NoPolling,
		log:        log,
	}
	s.gate = permission.NewGate(s.machine.Grant)
	s.machine.Subscribe(s.reconcile)
	return s
}

// reconcile starts or stops polling to match state. Leaving the connected
// state also drops any consent prompt raised for the previous connection.
func (s *Session) reconcile(state connection.State) {
	if state.Status != connection.Connected {
		s.gate.Deny()
	}
	if !s.noPolling && connection.CanPoll(state) {
		s.poller.Start(s.machine.Client())
		return
	}
	if s.poller.Running() {
		s.log.Debug("stopping poller: status=%s granted=%s", state.Status, state.Granted)
	}
	s.poller.Stop()
}

// State returns the current connection state.
func (s *Session) State() connection.State {
	return s.machine.State()
}

// Snapshot returns the latest polled data.
func (s *Session) Snapshot() poll.Snapshot {
	return s.poller.Snapshot()
}

// History returns the sparkline series for the connected backend.
func (s *Session) History() *poll.History {
	return s.poller.History()
}

// Polling reports whether the poller is running.
func (s *Session) Polling() bool {
	return s.poller.Running()
}

// RefreshInterval returns the time between scheduled poll cycles.
func (s *Session) RefreshInterval() time.Duration {
	return s.poller.Interval()
}

// OnState registers fn for every connection transition.
func (s *Session) OnState(fn func(connection.State)) {
	s.machine.Subscribe(fn)
}

// OnSnapshot registers fn for every completed poll cycle.
func (s *Session) OnSnapshot(fn func(poll.Snapshot)) {
	s.poller.OnUpdate(fn)
}

// OnRequest registers fn for changes to the pending consent request.
func (s *Session) OnRequest(fn func(*permission.Request)) {
	s.gate.Subscribe(fn)
}

// Connect connects to url and records perms as granted on success.
func (s *Session) Connect(ctx context.Context, url string, perms permission.Set) (connection.State, error) {
	return s.machine.Connect(ctx, url, perms)
}

// Disconnect drops the connection and all grants.
func (s *Session) Disconnect() error {
	return s.machine.Disconnect()
}

// Restore reconnects to the persisted backend, if any.
func (s *Session) Restore(ctx context.Context) (connection.State, error) {
	return s.machine.Restore(ctx)
}

// RequestPermission raises a consent prompt for level. Consent is tied to a
// connected backend, so nothing is raised otherwise.
func (s *Session) RequestPermission(level permission.Level) (permission.Request, error) {
	if s.machine.State().Status != connection.Connected {
		return permission.Request{}, ErrNotConnected
	}
	return s.gate.Request(level)
}

// PendingRequest returns the consent prompt awaiting a decision, if any.
func (s *Session) PendingRequest() (permission.Request, bool) {
	return s.gate.Pending()
}

// Acknowledge ticks or clears the acknowledgment box of the pending request.
func (s *Session) Acknowledge(ack bool) error {
	return s.gate.Acknowledge(ack)
}

// Grant accepts the pending request.
func (s *Session) Grant() (permission.Level, error) {
	return s.gate.Grant()
}

// Deny rejects the pending request.
func (s *Session) Deny() {
	s.gate.Deny()
}

// Refresh runs an immediate poll cycle. It returns false when not polling.
func (s *Session) Refresh() bool {
	return s.poller.Refresh()
}

// Run executes cmd on the backend.
//
// Without the execute grant nothing is sent: a consent request is raised and
// returned instead. The backend may still refuse the call on its own terms,
// for example when its runner is disabled; that error is returned as is.
func (s *Session) Run(ctx context.Context, cmd string, timeout time.Duration) (*backend.RunResult, *permission.Request, error) {
	if strings.TrimSpace(cmd) == "" {
		return nil, nil, ErrEmptyCommand
	}

	client := s.machine.Client()
	if client == nil {
		return nil, nil, ErrNotConnected
	}

	if !s.machine.State().Has(permission.Execute) {
		req, err := s.gate.Request(permission.Execute)
		if err != nil {
			return nil, nil, err
		}
		return nil, &req, nil
	}

	if timeout <= 0 {
		timeout = s.runTimeout
	}
	s.log.Info("run on %s (timeout %s): %s", client.BaseURL(), timeout, cmd)
	res, err := client.Run(ctx, cmd, timeout.Seconds())
	if err != nil {
		return nil, nil, err
	}
	return res, nil, nil
}

// Close stops polling.
func (s *Session) Close() {
	s.poller.Stop()
}
