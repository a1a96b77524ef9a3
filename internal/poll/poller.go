// Package poll keeps the read-only panels fresh by fetching the four read
// endpoints on a fixed interval.
//
// A Poller does not decide when it should run. Its owner calls Start when the
// backend is connected and read access is granted, and Stop as soon as that no
// longer holds.
package poll

import (
	"context"
	"sync"
	"time"

	"github.com/rileyhilliard/diagterm/internal/backend"
	"github.com/rileyhilliard/diagterm/internal/logger"
)

// DefaultInterval is the time between scheduled cycles.
const DefaultInterval = time.Second

// Config tunes a Poller. Zero values take defaults.
type Config struct {
	Interval         time.Duration
	ProcessLimit     int
	ServiceLimit     int
	DiagnosticsLimit int
	HistorySize      int
}

// Poller runs fetch cycles against one backend at a time.
type Poller struct {
	cfg     Config
	log     logger.Logger
	history *History

	// ctl serializes Start and Stop.
	ctl sync.Mutex

	mu       sync.Mutex
	api      backend.API
	ctx      context.Context
	cancel   context.CancelFunc
	loopDone chan struct{}
	inflight sync.WaitGroup
	snap     Snapshot

	obsMu     sync.RWMutex
	observers []func(Snapshot)
}

// New creates a stopped poller.
func New(cfg Config, log logger.Logger) *Poller {
	if cfg.Interval <= 0 {
		cfg.Interval = DefaultInterval
	}
	if log == nil {
		log = logger.Noop()
	}
	return &Poller{
		cfg:     cfg,
		log:     log,
		history: NewHistory(cfg.HistorySize),
	}
}

// Interval returns the time between scheduled cycles.
func (p *Poller) Interval() time.Duration {
	return p.cfg.Interval
}

// OnUpdate registers fn to receive every new snapshot. fn runs on the polling
// goroutine and must not call Stop.
func (p *Poller) OnUpdate(fn func(Snapshot)) {
	p.obsMu.Lock()
	defer p.obsMu.Unlock()
	p.observers = append(p.observers, fn)
}

// Start begins polling api: one cycle immediately, then one per interval.
// Starting again for the same endpoint is a no-op; a different endpoint
// replaces the running loop and discards the old data.
func (p *Poller) Start(api backend.API) {
	if api == nil {
		return
	}

	p.ctl.Lock()
	defer p.ctl.Unlock()

	p.mu.Lock()
	running := p.cancel != nil
	same := p.api != nil && p.api.BaseURL() == api.BaseURL()
	p.mu.Unlock()
	if running && same {
		return
	}

	p.stop()

	p.mu.Lock()
	defer p.mu.Unlock()
	if !same {
		p.snap = Snapshot{}
		p.history.Clear()
	}
	p.api = api
	p.ctx, p.cancel = context.WithCancel(context.Background())
	p.loopDone = make(chan struct{})
	p.snap.Cycles = 0

	p.log.Debug("polling %s every %s", api.BaseURL(), p.cfg.Interval)
	go p.loop(p.ctx, api, p.loopDone)
}

// Stop cancels the loop and waits for any cycle in progress. No cycle starts
// and no observer is called after Stop returns.
func (p *Poller) Stop() {
	p.ctl.Lock()
	defer p.ctl.Unlock()
	p.stop()
}

func (p *Poller) stop() {
	p.mu.Lock()
	if p.cancel == nil {
		p.mu.Unlock()
		return
	}
	p.cancel()
	p.cancel = nil
	done := p.loopDone
	p.mu.Unlock()

	<-done
	p.inflight.Wait()
	p.log.Debug("polling stopped")
}

// Running reports whether the loop is active.
func (p *Poller) Running() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.cancel != nil
}

// Refresh runs one cycle now, outside the schedule, and returns once it has
// been applied. The ticker keeps its phase. It returns false when the poller
// is stopped.
func (p *Poller) Refresh() bool {
	p.mu.Lock()
	if p.cancel == nil {
		p.mu.Unlock()
		return false
	}
	ctx, api := p.ctx, p.api
	p.inflight.Add(1)
	p.mu.Unlock()

	defer p.inflight.Done()
	p.cycle(ctx, api)
	return true
}

// Snapshot returns a copy of the latest data.
func (p *Poller) Snapshot() Snapshot {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.snap.Clone()
}

// History returns the sparkline series for the current backend.
func (p *Poller) History() *History {
	return p.history
}

func (p *Poller) loop(ctx context.Context, api backend.API, done chan struct{}) {
	defer close(done)

	p.cycle(ctx, api)

	ticker := time.NewTicker(p.cfg.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.cycle(ctx, api)
		}
	}
}

// cycleResult collects the outcome of one cycle's four calls.
type cycleResult struct {
	mu          sync.Mutex
	summary     *backend.SystemSummary
	processes   []backend.ProcRow
	services    []backend.ServiceRow
	diagnostics []string
	ok          map[Kind]bool
	errors      map[Kind]string
	lastErr     string
}

func (r *cycleResult) record(k Kind, err error, set func()) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err != nil {
		r.errors[k] = err.Error()
		r.lastErr = err.Error()
		return
	}
	set()
	r.ok[k] = true
}

// cycle issues the four reads concurrently and applies whatever succeeded.
func (p *Poller) cycle(ctx context.Context, api backend.API) {
	if ctx.Err() != nil {
		return
	}

	res := &cycleResult{
		ok:     make(map[Kind]bool, len(Kinds)),
		errors: make(map[Kind]string),
	}

	var wg sync.WaitGroup
	wg.Add(len(Kinds))

	go func() {
		defer wg.Done()
		s, err := api.Summary(ctx)
		res.record(KindSummary, err, func() { res.summary = s })
	}()
	go func() {
		defer wg.Done()
		procs, err := api.Processes(ctx, p.cfg.ProcessLimit)
		res.record(KindProcesses, err, func() { res.processes = procs })
	}()
	go func() {
		defer wg.Done()
		svcs, err := api.Services(ctx, p.cfg.ServiceLimit)
		res.record(KindServices, err, func() { res.services = svcs })
	}()
	go func() {
		defer wg.Done()
		lines, err := api.Diagnostics(ctx, p.cfg.DiagnosticsLimit)
		res.record(KindDiagnostics, err, func() { res.diagnostics = lines })
	}()

	wg.Wait()
	p.apply(ctx, res)
}

func (p *Poller) apply(ctx context.Context, res *cycleResult) {
	now := time.Now()

	p.mu.Lock()
	if ctx.Err() != nil {
		p.mu.Unlock()
		return
	}

	next := p.snap
	if res.ok[KindSummary] {
		next.Summary = res.summary
	}
	if res.ok[KindProcesses] {
		next.Processes = res.processes
	}
	if res.ok[KindServices] {
		next.Services = res.services
	}
	if res.ok[KindDiagnostics] {
		next.Diagnostics = res.diagnostics
	}
	next.Err = res.lastErr
	next.Errors = res.errors
	next.UpdatedAt = now
	next.Cycles++
	p.snap = next
	published := next.Clone()
	p.mu.Unlock()

	if res.ok[KindSummary] {
		p.history.Push(res.summary, now)
	}
	if res.lastErr != "" {
		p.log.Debug("poll cycle %d: %d of %d calls failed, last: %s", published.Cycles, len(res.errors), len(Kinds), res.lastErr)
	}

	p.obsMu.RLock()
	observers := append([]func(Snapshot){}, p.observers...)
	p.obsMu.RUnlock()
	for _, fn := range observers {
		fn(published.Clone())
	}
}
