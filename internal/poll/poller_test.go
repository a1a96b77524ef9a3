package poll

import (
	"net/http"
	"testing"
	"time"

	"github.com/rileyhilliard/diagterm/internal/backend"
	backendtesting "github.com/rileyhilliard/diagterm/internal/backend/testing"
	"github.com/rileyhilliard/diagterm/internal/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newTestPoller returns a poller that reports snapshots on the channel.
func newTestPoller(t *testing.T, cfg Config) (*Poller, <-chan Snapshot) {
	t.Helper()
	p := New(cfg, logger.NewBufferLogger())
	updates := make(chan Snapshot, 64)
	p.OnUpdate(func(s Snapshot) {
		select {
		case updates <- s:
		default:
		}
	})
	t.Cleanup(p.Stop)
	return p, updates
}

func waitUpdate(t *testing.T, updates <-chan Snapshot) Snapshot {
	t.Helper()
	select {
	case s := <-updates:
		return s
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for a poll cycle")
		return Snapshot{}
	}
}

func TestStartRunsImmediateCycle(t *testing.T) {
	fb := backendtesting.NewFakeBackend()
	t.Cleanup(fb.Close)

	p, updates := newTestPoller(t, Config{Interval: time.Hour})
	p.Start(backend.New(fb.URL()))

	s := waitUpdate(t, updates)
	assert.True(t, p.Running())
	assert.Equal(t, 1, s.Cycles)
	require.NotNil(t, s.Summary)
	assert.Equal(t, "testhost", s.Summary.Hostname)
	assert.Len(t, s.Processes, 2)
	assert.Len(t, s.Services, 1)
	assert.Len(t, s.Diagnostics, 1)
	assert.Empty(t, s.Err)
	assert.Empty(t, s.Errors)

	for _, path := range []string{backend.PathSummary, backend.PathProcesses, backend.PathServices, backend.PathDiagnostics} {
		assert.Equal(t, 1, fb.Calls(path), path)
	}
}

func TestPollerRepeatsOnInterval(t *testing.T) {
	fb := backendtesting.NewFakeBackend()
	t.Cleanup(fb.Close)

	p, _ := newTestPoller(t, Config{Interval: 20 * time.Millisecond})
	p.Start(backend.New(fb.URL()))

	assert.Eventually(t, func() bool {
		return p.Snapshot().Cycles >= 3
	}, 2*time.Second, 10*time.Millisecond)
}

func TestStopCancelsTimer(t *testing.T) {
	fb := backendtesting.NewFakeBackend()
	t.Cleanup(fb.Close)

	p, _ := newTestPoller(t, Config{Interval: 10 * time.Millisecond})
	p.Start(backend.New(fb.URL()))
	require.Eventually(t, func() bool { return p.Snapshot().Cycles >= 2 }, 2*time.Second, 5*time.Millisecond)

	p.Stop()
	assert.False(t, p.Running())

	calls := fb.TotalCalls()
	time.Sleep(60 * time.Millisecond)
	assert.Equal(t, calls, fb.TotalCalls(), "no calls after Stop returns")

	p.Stop() // idempotent
}

func TestPartialFailureKeepsOtherResults(t *testing.T) {
	fb := backendtesting.NewFakeBackend()
	t.Cleanup(fb.Close)
	fb.Fail(backend.PathProcesses, http.StatusInternalServerError, "")

	p, updates := newTestPoller(t, Config{Interval: time.Hour})
	p.Start(backend.New(fb.URL()))
	s := waitUpdate(t, updates)

	assert.NotNil(t, s.Summary)
	assert.NotNil(t, s.Services)
	assert.NotNil(t, s.Diagnostics)
	assert.Nil(t, s.Processes)
	assert.False(t, s.Has(KindProcesses))
	assert.Equal(t, "500 Internal Server Error", s.Err)
	assert.Equal(t, map[Kind]string{KindProcesses: "500 Internal Server Error"}, s.Errors)
}

func TestFailedKindKeepsPreviousData(t *testing.T) {
	fb := backendtesting.NewFakeBackend()
	t.Cleanup(fb.Close)

	p, updates := newTestPoller(t, Config{Interval: time.Hour})
	p.Start(backend.New(fb.URL()))
	first := waitUpdate(t, updates)
	require.Len(t, first.Services, 1)

	fb.Fail(backend.PathServices, http.StatusServiceUnavailable, "")
	fb.SetProcesses([]backend.ProcRow{{PID: 7, Name: "fresh", CPU: 1}})
	require.True(t, p.Refresh())

	s := p.Snapshot()
	assert.Equal(t, first.Services, s.Services, "failed kind keeps its last good value")
	require.Len(t, s.Processes, 1)
	assert.Equal(t, "fresh", s.Processes[0].Name, "successful kinds are replaced wholesale")
	assert.Equal(t, "503 Service Unavailable", s.Err)

	fb.Recover(backend.PathServices)
	require.True(t, p.Refresh())
	assert.Empty(t, p.Snapshot().Err, "error clears once every call succeeds")
}

func TestMostRecentFailureIsReported(t *testing.T) {
	fb := backendtesting.NewFakeBackend()
	t.Cleanup(fb.Close)
	fb.Fail(backend.PathSummary, http.StatusBadGateway, "")
	fb.Fail(backend.PathDiagnostics, http.StatusInternalServerError, "")
	fb.Delay(backend.PathDiagnostics, 100*time.Millisecond)

	p, updates := newTestPoller(t, Config{Interval: time.Hour})
	p.Start(backend.New(fb.URL()))
	s := waitUpdate(t, updates)

	assert.Equal(t, "500 Internal Server Error", s.Err)
	assert.Len(t, s.Errors, 2)
	assert.NotNil(t, s.Processes)
}

func TestCallsAreConcurrent(t *testing.T) {
	fb := backendtesting.NewFakeBackend()
	t.Cleanup(fb.Close)

	p, updates := newTestPoller(t, Config{Interval: time.Hour})
	p.Start(backend.New(fb.URL()))
	waitUpdate(t, updates)

	delay := 150 * time.Millisecond
	for _, path := range []string{backend.PathSummary, backend.PathProcesses, backend.PathServices, backend.PathDiagnostics} {
		fb.Delay(path, delay)
	}

	start := time.Now()
	require.True(t, p.Refresh())
	elapsed := time.Since(start)

	assert.Less(t, elapsed, 3*delay, "four delayed calls should overlap")
}

func TestRefreshWhenStopped(t *testing.T) {
	fb := backendtesting.NewFakeBackend()
	t.Cleanup(fb.Close)

	p, _ := newTestPoller(t, Config{})
	assert.False(t, p.Refresh())
	assert.Zero(t, fb.TotalCalls())
}

func TestRefreshRunsOneCycle(t *testing.T) {
	fb := backendtesting.NewFakeBackend()
	t.Cleanup(fb.Close)

	p, updates := newTestPoller(t, Config{Interval: time.Hour})
	p.Start(backend.New(fb.URL()))
	waitUpdate(t, updates)

	require.True(t, p.Refresh())
	assert.Equal(t, 2, fb.Calls(backend.PathSummary))
	assert.Equal(t, 2, p.Snapshot().Cycles)
}

func TestStartSameEndpointIsNoop(t *testing.T) {
	fb := backendtesting.NewFakeBackend()
	t.Cleanup(fb.Close)

	p, updates := newTestPoller(t, Config{Interval: time.Hour})
	p.Start(backend.New(fb.URL()))
	waitUpdate(t, updates)

	p.Start(backend.New(fb.URL() + "/"))
	time.Sleep(30 * time.Millisecond)
	assert.Equal(t, 1, fb.Calls(backend.PathSummary))
}

func TestStartDifferentEndpointRestarts(t *testing.T) {
	first := backendtesting.NewFakeBackend()
	t.Cleanup(first.Close)
	second := backendtesting.NewFakeBackend()
	t.Cleanup(second.Close)
	second.SetSummary(backend.SystemSummary{Hostname: "other"})
	second.Fail(backend.PathServices, http.StatusInternalServerError, "")

	p, updates := newTestPoller(t, Config{Interval: time.Hour})
	p.Start(backend.New(first.URL()))
	waitUpdate(t, updates)

	p.Start(backend.New(second.URL()))
	s := waitUpdate(t, updates)

	require.NotNil(t, s.Summary)
	assert.Equal(t, "other", s.Summary.Hostname)
	assert.Nil(t, s.Services, "data from the previous backend is discarded")
	assert.Equal(t, 1, s.Cycles)
}

func TestLimitsArePassed(t *testing.T) {
	fb := backendtesting.NewFakeBackend()
	t.Cleanup(fb.Close)

	p, updates := newTestPoller(t, Config{Interval: time.Hour, ProcessLimit: 5, ServiceLimit: 6, DiagnosticsLimit: 7})
	p.Start(backend.New(fb.URL()))
	waitUpdate(t, updates)

	assert.Equal(t, []int{5}, fb.Limits(backend.PathProcesses))
	assert.Equal(t, []int{6}, fb.Limits(backend.PathServices))
	assert.Equal(t, []int{7}, fb.Limits(backend.PathDiagnostics))
}

func TestStartNilIsIgnored(t *testing.T) {
	p, _ := newTestPoller(t, Config{})
	p.Start(nil)
	assert.False(t, p.Running())
}

func TestSnapshotIsACopy(t *testing.T) {
	fb := backendtesting.NewFakeBackend()
	t.Cleanup(fb.Close)

	p, updates := newTestPoller(t, Config{Interval: time.Hour})
	p.Start(backend.New(fb.URL()))
	waitUpdate(t, updates)

	s := p.Snapshot()
	s.Processes[0].Name = "mutated"
	s.Summary.Hostname = "mutated"

	fresh := p.Snapshot()
	assert.Equal(t, "init", fresh.Processes[0].Name)
	assert.Equal(t, "testhost", fresh.Summary.Hostname)
}
