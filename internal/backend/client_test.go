package backend_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rileyhilliard/diagterm/internal/backend"
	backendtesting "github.com/rileyhilliard/diagterm/internal/backend/testing"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeURL(t *testing.T) {
	tests := []struct {
		in     string
		expect string
	}{
		{"http://host:1", "http://host:1"},
		{"http://host:1/", "http://host:1"},
		{"http://host:1///", "http://host:1"},
		{"  http://host:1/  ", "http://host:1"},
		{"", ""},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.expect, backend.NormalizeURL(tt.in))
		})
	}
}

func TestParseBaseURL(t *testing.T) {
	tests := []struct {
		name    string
		in      string
		expect  string
		wantErr bool
	}{
		{name: "plain", in: "http://127.0.0.1:8765", expect: "http://127.0.0.1:8765"},
		{name: "trailing slash", in: "https://mon.local/", expect: "https://mon.local"},
		{name: "empty", in: "  ", wantErr: true},
		{name: "no scheme", in: "127.0.0.1:8765", wantErr: true},
		{name: "ftp scheme", in: "ftp://host", wantErr: true},
		{name: "no host", in: "http://", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := backend.ParseBaseURL(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.expect, got)
		})
	}
}

func TestNew_NormalizesBaseURL(t *testing.T) {
	c := backend.New("http://host:1/")
	assert.Equal(t, "http://host:1", c.BaseURL())
}

func TestTestConnection_ReturnsCapabilities(t *testing.T) {
	fb := backendtesting.NewFakeBackend()
	defer fb.Close()

	want := backend.Capabilities{Version: "9.9.9", RunnerEnabled: true, DiagnosticsEnabled: false, ServicesEnabled: true}
	fb.SetCapabilities(want)

	caps, err := backend.New(fb.URL()).TestConnection(context.Background())
	require.NoError(t, err)
	assert.Equal(t, want, *caps)
	assert.Equal(t, 0, fb.Calls(backend.PathSummary), "summary probe should not run when capabilities answer")
}

func TestTestConnection_FallsBackToSummary(t *testing.T) {
	fb := backendtesting.NewFakeBackend()
	defer fb.Close()
	fb.Fail(backend.PathCapabilities, http.StatusNotFound, `{"detail":"Not Found"}`)

	caps, err := backend.New(fb.URL()).TestConnection(context.Background())
	require.NoError(t, err)
	assert.Equal(t, backend.Capabilities{
		Version:            "unknown",
		RunnerEnabled:      false,
		DiagnosticsEnabled: true,
		ServicesEnabled:    true,
	}, *caps)
	assert.Equal(t, 1, fb.Calls(backend.PathSummary))
}

func TestTestConnection_FallsBackOnMalformedCapabilities(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == backend.PathCapabilities {
			_, _ = w.Write([]byte("not json"))
			return
		}
		_, _ = w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	caps, err := backend.New(srv.URL).TestConnection(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "unknown", caps.Version)
}

func TestTestConnection_BothFailHTTP(t *testing.T) {
	fb := backendtesting.NewFakeBackend()
	defer fb.Close()
	fb.Fail(backend.PathCapabilities, http.StatusNotFound, "")
	fb.Fail(backend.PathSummary, http.StatusInternalServerError, "")

	_, err := backend.New(fb.URL()).TestConnection(context.Background())
	require.Error(t, err)
	assert.False(t, errors.Is(err, backend.ErrConnectionTimeout))
	assert.Equal(t, "500 Internal Server Error", err.Error())
	assert.True(t, backend.IsStatus(err, http.StatusInternalServerError))
}

func TestTestConnection_Timeout(t *testing.T) {
	fb := backendtesting.NewFakeBackend()
	defer fb.Close()
	fb.Delay(backend.PathCapabilities, time.Second)
	fb.Delay(backend.PathSummary, time.Second)

	c := backend.New(fb.URL(), backend.WithProbeTimeout(50*time.Millisecond))

	start := time.Now()
	_, err := c.TestConnection(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, backend.ErrConnectionTimeout)
	assert.Equal(t, "connection timeout", err.Error())
	assert.Less(t, time.Since(start), 900*time.Millisecond)
}

func TestTestConnection_Unreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	_, err := backend.New(url, backend.WithProbeTimeout(time.Second)).TestConnection(context.Background())
	require.Error(t, err)
	assert.NotErrorIs(t, err, backend.ErrConnectionTimeout)
}

func TestTestConnection_ParentCancelled(t *testing.T) {
	fb := backendtesting.NewFakeBackend()
	defer fb.Close()
	fb.Delay(backend.PathCapabilities, time.Second)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := backend.New(fb.URL()).TestConnection(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestReadEndpoints(t *testing.T) {
	fb := backendtesting.NewFakeBackend()
	defer fb.Close()
	c := backend.New(fb.URL())
	ctx := context.Background()

	summary, err := c.Summary(ctx)
	require.NoError(t, err)
	assert.Equal(t, "testhost", summary.Hostname)
	assert.Nil(t, summary.LoadAvg)
	assert.Nil(t, summary.PackagePowerW)
	assert.InDelta(t, 25.0, summary.MemPercent(), 0.001)

	procs, err := c.Processes(ctx, 10)
	require.NoError(t, err)
	assert.Len(t, procs, 2)

	services, err := c.Services(ctx, 0)
	require.NoError(t, err)
	assert.Len(t, services, 1)

	lines, err := c.Diagnostics(ctx, 0)
	require.NoError(t, err)
	assert.Len(t, lines, 1)

	assert.Equal(t, []int{10}, fb.Limits(backend.PathProcesses))
	assert.Equal(t, []int{backend.DefaultServiceLimit}, fb.Limits(backend.PathServices))
	assert.Equal(t, []int{backend.DefaultDiagnosticsLimit}, fb.Limits(backend.PathDiagnostics))
}

func TestSummary_NullableFields(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"hostname":"h","loadavg":[0.5,1,1.5],"package_power_w":7.5,"cpu_freq_mhz":null}`))
	}))
	defer srv.Close()

	s, err := backend.New(srv.URL).Summary(context.Background())
	require.NoError(t, err)
	require.NotNil(t, s.LoadAvg)
	assert.Equal(t, [3]float64{0.5, 1, 1.5}, *s.LoadAvg)
	require.NotNil(t, s.PackagePowerW)
	assert.Equal(t, 7.5, *s.PackagePowerW)
	assert.Nil(t, s.CPUFreqMHz)
}

func TestReadEndpoint_HTTPError(t *testing.T) {
	fb := backendtesting.NewFakeBackend()
	defer fb.Close()
	fb.Fail(backend.PathServices, http.StatusServiceUnavailable, `{"detail":"systemd unavailable"}`)

	_, err := backend.New(fb.URL()).Services(context.Background(), 5)
	require.Error(t, err)

	var be *backend.BackendError
	require.ErrorAs(t, err, &be)
	assert.Equal(t, http.StatusServiceUnavailable, be.StatusCode)
	assert.Equal(t, "Service Unavailable", be.StatusText)
	assert.Equal(t, "503 Service Unavailable", err.Error())
}

func TestReadEndpoint_EmptyLists(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{}`))
	}))
	defer srv.Close()
	c := backend.New(srv.URL)

	procs, err := c.Processes(context.Background(), 1)
	require.NoError(t, err)
	assert.NotNil(t, procs)
	assert.Empty(t, procs)
}

func TestRun_Success(t *testing.T) {
	fb := backendtesting.NewFakeBackend()
	defer fb.Close()
	fb.SetRunResult(backend.RunResult{Cmd: "uptime", ReturnCode: 0, Stdout: "up 3 days\n"})

	res, err := backend.New(fb.URL()).Run(context.Background(), "uptime", 30)
	require.NoError(t, err)
	assert.Equal(t, "up 3 days\n", res.Stdout)
	assert.Equal(t, []backend.RunRequest{{Cmd: "uptime", TimeoutS: 30}}, fb.RunRequests())
}

func TestRun_Errors(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
		expect string
	}{
		{name: "detail string", status: http.StatusBadRequest, body: `{"detail":"no such command"}`, expect: "no such command"},
		{name: "runner disabled", status: http.StatusForbidden, body: `{"detail":"Command runner disabled"}`, expect: "Command runner disabled"},
		{name: "empty body", status: http.StatusBadRequest, body: "", expect: "400 Bad Request"},
		{name: "malformed json", status: http.StatusInternalServerError, body: `{"detail":`, expect: "500 Internal Server Error"},
		{name: "no detail field", status: http.StatusBadGateway, body: `{"error":"x"}`, expect: "502 Bad Gateway"},
		{name: "structured detail", status: http.StatusUnprocessableEntity, body: `{"detail":[{"msg":"field required"}]}`, expect: "422 Unprocessable Entity"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fb := backendtesting.NewFakeBackend()
			defer fb.Close()
			fb.Fail(backend.PathRun, tt.status, tt.body)

			_, err := backend.New(fb.URL()).Run(context.Background(), "boom", 5)
			require.Error(t, err)
			assert.Equal(t, tt.expect, err.Error())
			assert.True(t, backend.IsStatus(err, tt.status))
		})
	}
}

func TestBackendError_Error(t *testing.T) {
	assert.Equal(t, "404 Not Found", (&backend.BackendError{StatusCode: 404, StatusText: "Not Found"}).Error())
	assert.Equal(t, "599", (&backend.BackendError{StatusCode: 599}).Error())
	assert.Equal(t, "nope", (&backend.BackendError{StatusCode: 400, StatusText: "Bad Request", Detail: "nope"}).Error())
}

func TestClient_SendsHeaders(t *testing.T) {
	var got http.Header
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = r.Header.Clone()
		_, _ = w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	_, err := backend.New(srv.URL).Summary(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "application/json", got.Get("Accept"))
	assert.NotEmpty(t, got.Get("X-Request-ID"))
	assert.NotEmpty(t, got.Get("User-Agent"))
}
