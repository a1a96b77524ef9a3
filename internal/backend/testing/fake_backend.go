// Package testing provides a fake monitoring backend for tests.
package testing

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync"
	"time"

	"github.com/gorilla/mux"
	"github.com/rileyhilliard/diagterm/internal/backend"
)

// Failure overrides the response of one endpoint.
type Failure struct {
	Status int
	// Body is written verbatim; empty writes no body.
	Body string
}

// FakeBackend is an httptest server that speaks the backend API.
// Zero-configured, every endpoint answers 200 with canned data.
type FakeBackend struct {
	Server *httptest.Server

	mu           sync.Mutex
	capabilities backend.Capabilities
	summary      backend.SystemSummary
	processes    []backend.ProcRow
	services     []backend.ServiceRow
	diagnostics  []string
	runResult    backend.RunResult

	failures map[string]Failure
	delays   map[string]time.Duration
	calls    map[string]int
	limits   map[string][]int
	runs     []backend.RunRequest
}

// NewFakeBackend starts a fake backend. Call Close when done.
func NewFakeBackend() *FakeBackend {
	fb := &FakeBackend{
		capabilities: backend.Capabilities{
			Version:            "0.1.0",
			RunnerEnabled:      true,
			DiagnosticsEnabled: true,
			ServicesEnabled:    true,
		},
		summary: backend.SystemSummary{
			Hostname:   "testhost",
			Platform:   "Linux 6.1.0",
			Kernel:     "#1 SMP",
			UptimeS:    3725,
			CPUPercent: 12.5,
			MemTotal:   16 << 30,
			MemUsed:    4 << 30,
			DiskTotal:  512 << 30,
			DiskUsed:   128 << 30,
			DiskFree:   384 << 30,
		},
		processes: []backend.ProcRow{
			{PID: 1, Name: "init", CPU: 0.1, Mem: 0.2},
			{PID: 42, Name: "worker", CPU: 55.0, Mem: 3.1},
		},
		services: []backend.ServiceRow{
			{Name: "sshd.service", Description: "OpenSSH server daemon", Active: "active"},
		},
		diagnostics: []string{"kernel: usb 1-1: device descriptor read/64, error -71"},
		failures:    make(map[string]Failure),
		delays:      make(map[string]time.Duration),
		calls:       make(map[string]int),
		limits:      make(map[string][]int),
	}

	r := mux.NewRouter()
	r.HandleFunc(backend.PathCapabilities, fb.handle(backend.PathCapabilities, func() interface{} {
		return fb.capabilities
	})).Methods(http.MethodGet)
	r.HandleFunc(backend.PathSummary, fb.handle(backend.PathSummary, func() interface{} {
		return fb.summary
	})).Methods(http.MethodGet)
	r.HandleFunc(backend.PathProcesses, fb.handle(backend.PathProcesses, func() interface{} {
		return map[string]interface{}{"processes": fb.processes}
	})).Methods(http.MethodGet)
	r.HandleFunc(backend.PathServices, fb.handle(backend.PathServices, func() interface{} {
		return map[string]interface{}{"services": fb.services}
	})).Methods(http.MethodGet)
	r.HandleFunc(backend.PathDiagnostics, fb.handle(backend.PathDiagnostics, func() interface{} {
		return map[string]interface{}{"lines": fb.diagnostics}
	})).Methods(http.MethodGet)
	r.HandleFunc(backend.PathRun, fb.handleRun).Methods(http.MethodPost)

	fb.Server = httptest.NewServer(r)
	return fb
}

// URL returns the base URL of the fake backend.
func (fb *FakeBackend) URL() string {
	return fb.Server.URL
}

// Close shuts the server down.
func (fb *FakeBackend) Close() {
	fb.Server.Close()
}

// Fail makes path answer with the given status and body until Recover is called.
func (fb *FakeBackend) Fail(path string, status int, body string) {
	fb.mu.Lock()
	defer fb.mu.Unlock()
	fb.failures[path] = Failure{Status: status, Body: body}
}

// Recover removes a failure installed with Fail.
func (fb *FakeBackend) Recover(path string) {
	fb.mu.Lock()
	defer fb.mu.Unlock()
	delete(fb.failures, path)
}

// Delay makes path sleep before answering.
func (fb *FakeBackend) Delay(path string, d time.Duration) {
	fb.mu.Lock()
	defer fb.mu.Unlock()
	fb.delays[path] = d
}

// SetCapabilities replaces the advertised capabilities.
func (fb *FakeBackend) SetCapabilities(c backend.Capabilities) {
	fb.mu.Lock()
	defer fb.mu.Unlock()
	fb.capabilities = c
}

// SetSummary replaces the summary payload.
func (fb *FakeBackend) SetSummary(s backend.SystemSummary) {
	fb.mu.Lock()
	defer fb.mu.Unlock()
	fb.summary = s
}

// SetProcesses replaces the process table.
func (fb *FakeBackend) SetProcesses(p []backend.ProcRow) {
	fb.mu.Lock()
	defer fb.mu.Unlock()
	fb.processes = p
}

// SetRunResult replaces the result returned by /api/run.
func (fb *FakeBackend) SetRunResult(r backend.RunResult) {
	fb.mu.Lock()
	defer fb.mu.Unlock()
	fb.runResult = r
}

// Calls returns how many requests path has received.
func (fb *FakeBackend) Calls(path string) int {
	fb.mu.Lock()
	defer fb.mu.Unlock()
	return fb.calls[path]
}

// TotalCalls returns the number of requests across all paths.
func (fb *FakeBackend) TotalCalls() int {
	fb.mu.Lock()
	defer fb.mu.Unlock()
	total := 0
	for _, n := range fb.calls {
		total += n
	}
	return total
}

// Limits returns the limit query values path has received, in order.
func (fb *FakeBackend) Limits(path string) []int {
	fb.mu.Lock()
	defer fb.mu.Unlock()
	out := make([]int, len(fb.limits[path]))
	copy(out, fb.limits[path])
	return out
}

// RunRequests returns the decoded bodies of all /api/run calls.
func (fb *FakeBackend) RunRequests() []backend.RunRequest {
	fb.mu.Lock()
	defer fb.mu.Unlock()
	out := make([]backend.RunRequest, len(fb.runs))
	copy(out, fb.runs)
	return out
}

// record counts the call and returns any installed failure and delay.
func (fb *FakeBackend) record(path string, r *http.Request) (Failure, bool, time.Duration) {
	fb.mu.Lock()
	defer fb.mu.Unlock()
	fb.calls[path]++
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil {
			fb.limits[path] = append(fb.limits[path], n)
		}
	}
	f, failing := fb.failures[path]
	return f, failing, fb.delays[path]
}

func (fb *FakeBackend) handle(path string, payload func() interface{}) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		f, failing, delay := fb.record(path, r)
		if !sleep(r, delay) {
			return
		}
		if failing {
			writeFailure(w, f)
			return
		}

		fb.mu.Lock()
		body := payload()
		fb.mu.Unlock()
		writeJSON(w, http.StatusOK, body)
	}
}

func (fb *FakeBackend) handleRun(w http.ResponseWriter, r *http.Request) {
	f, failing, delay := fb.record(backend.PathRun, r)

	var req backend.RunRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err == nil {
		fb.mu.Lock()
		fb.runs = append(fb.runs, req)
		fb.mu.Unlock()
	}

	if !sleep(r, delay) {
		return
	}
	if failing {
		writeFailure(w, f)
		return
	}

	fb.mu.Lock()
	result := fb.runResult
	fb.mu.Unlock()
	if result.Cmd == "" {
		result.Cmd = req.Cmd
	}
	writeJSON(w, http.StatusOK, result)
}

// sleep waits for d or until the client goes away; false means the request was abandoned.
func sleep(r *http.Request, d time.Duration) bool {
	if d <= 0 {
		return true
	}
	select {
	case <-time.After(d):
		return true
	case <-r.Context().Done():
		return false
	}
}

func writeFailure(w http.ResponseWriter, f Failure) {
	if f.Body != "" {
		w.Header().Set("Content-Type", "application/json")
	}
	w.WriteHeader(f.Status)
	if f.Body != "" {
		_, _ = w.Write([]byte(f.Body))
	}
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
