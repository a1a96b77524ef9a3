package cli

import (
	"bytes"
	"encoding/json"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rileyhilliard/diagterm/internal/backend"
	backendtesting "github.com/rileyhilliard/diagterm/internal/backend/testing"
	dterrors "github.com/rileyhilliard/diagterm/internal/errors"
	"github.com/rileyhilliard/diagterm/internal/permission"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// testEnv isolates config and state in a temp dir and points the default
// backend at a fake.
func testEnv(t *testing.T) *backendtesting.FakeBackend {
	t.Helper()
	tmp := t.TempDir()
	t.Setenv("HOME", tmp)
	t.Setenv("XDG_STATE_HOME", filepath.Join(tmp, "state"))

	fb := backendtesting.NewFakeBackend()
	t.Cleanup(fb.Close)
	t.Setenv("DIAGTERM_BACKEND_URL", fb.URL())

	oldMode := machineMode
	t.Cleanup(func() { machineMode = oldMode })
	return fb
}

// execute runs a fresh command tree and returns what it wrote to stdout.
func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	root := newRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}

// decode parses a --json envelope whose data is an object.
func decode(t *testing.T, out string) (JSONEnvelope, map[string]interface{}) {
	t.Helper()
	var env JSONEnvelope
	require.NoError(t, json.Unmarshal([]byte(out), &env), out)
	data, _ := env.Data.(map[string]interface{})
	return env, data
}

func TestConnect_PersistsAndReportsState(t *testing.T) {
	fb := testEnv(t)

	out, err := execute(t, "connect", "--json")
	require.NoError(t, err)

	env, data := decode(t, out)
	assert.True(t, env.Success)
	assert.Equal(t, "connected", data["status"])
	assert.Equal(t, fb.URL(), data["backend_url"])
	assert.Equal(t, []interface{}{"readonly"}, data["granted"])

	stateFile, ok := data["state_file"].(string)
	require.True(t, ok)
	assert.FileExists(t, stateFile)
}

func TestConnect_ExplicitURLOverridesConfig(t *testing.T) {
	testEnv(t)
	other := backendtesting.NewFakeBackend()
	defer other.Close()

	out, err := execute(t, "connect", other.URL(), "--json")
	require.NoError(t, err)

	_, data := decode(t, out)
	assert.Equal(t, other.URL(), data["backend_url"])
	assert.Equal(t, 1, other.Calls(backend.PathCapabilities))
}

func TestConnect_ExecuteNeedsAcknowledge(t *testing.T) {
	testEnv(t)

	_, err := execute(t, "connect", "--permissions", "readonly,execute")
	require.Error(t, err)
	assert.True(t, dterrors.IsCode(err, dterrors.ErrPermission))

	out, err := execute(t, "connect", "--permissions", "readonly,execute", "--acknowledge", "--json")
	require.NoError(t, err)
	_, data := decode(t, out)
	assert.Equal(t, []interface{}{"readonly", "execute"}, data["granted"])
}

func TestConnect_BadPermissions(t *testing.T) {
	testEnv(t)

	_, err := execute(t, "connect", "--permissions", "root")
	require.Error(t, err)
	assert.True(t, dterrors.IsCode(err, dterrors.ErrUsage))
}

func TestConnect_UnreachableBackend(t *testing.T) {
	testEnv(t)

	_, err := execute(t, "connect", "http://127.0.0.1:1", "--json")
	require.Error(t, err)
	assert.True(t, dterrors.IsCode(err, dterrors.ErrBackend))
	assert.Equal(t, ErrCodeBackendUnreachable, ErrorToJSON(err).Code)
}

func TestConnect_NotABackend(t *testing.T) {
	fb := testEnv(t)
	fb.Fail(backend.PathCapabilities, http.StatusNotFound, "")
	fb.Fail(backend.PathSummary, http.StatusNotFound, "")

	_, err := execute(t, "connect")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not a diagterm backend")
}

func TestStatus_WithoutSavedBackend(t *testing.T) {
	fb := testEnv(t)

	out, err := execute(t, "status", "--json")
	require.NoError(t, err)

	_, data := decode(t, out)
	assert.Equal(t, "disconnected", data["status"])
	assert.Equal(t, fb.URL(), data["backend_url"])
	assert.Zero(t, fb.TotalCalls())
}

func TestStatus_ProbesSavedBackend(t *testing.T) {
	fb := testEnv(t)
	_, err := execute(t, "connect")
	require.NoError(t, err)
	probes := fb.Calls(backend.PathCapabilities)

	out, err := execute(t, "status", "--json")
	require.NoError(t, err)
	_, data := decode(t, out)
	assert.Equal(t, "connected", data["status"])
	assert.Greater(t, fb.Calls(backend.PathCapabilities), probes)
}

func TestStatus_Offline(t *testing.T) {
	fb := testEnv(t)
	_, err := execute(t, "connect")
	require.NoError(t, err)
	calls := fb.TotalCalls()

	out, err := execute(t, "status", "--offline", "--json")
	require.NoError(t, err)
	_, data := decode(t, out)
	assert.Equal(t, "disconnected", data["status"])
	assert.Equal(t, []interface{}{"readonly"}, data["granted"])
	assert.Equal(t, calls, fb.TotalCalls())
}

func TestStatus_UnreachableIsNotAnError(t *testing.T) {
	fb := testEnv(t)
	_, err := execute(t, "connect")
	require.NoError(t, err)
	fb.Close()

	out, err := execute(t, "status", "--json")
	require.NoError(t, err)
	_, data := decode(t, out)
	assert.Equal(t, "error", data["status"])
	assert.NotEmpty(t, data["error"])
}

func TestDisconnect_ClearsRecord(t *testing.T) {
	testEnv(t)
	out, err := execute(t, "connect", "--json")
	require.NoError(t, err)
	_, data := decode(t, out)
	stateFile := data["state_file"].(string)

	_, err = execute(t, "disconnect", "--json")
	require.NoError(t, err)
	_, statErr := os.Stat(stateFile)
	assert.True(t, os.IsNotExist(statErr))

	_, err = execute(t, "run", "uptime")
	require.Error(t, err)
	assert.Equal(t, ErrCodeNotConnected, ErrorToJSON(err).Code)
}

func TestGrant_RequiresSavedBackend(t *testing.T) {
	testEnv(t)

	_, err := execute(t, "grant", "readonly", "--yes")
	require.Error(t, err)
	assert.Equal(t, ErrCodeNotConnected, ErrorToJSON(err).Code)
}

func TestGrant_YesWithAcknowledge(t *testing.T) {
	testEnv(t)
	_, err := execute(t, "connect")
	require.NoError(t, err)

	_, err = execute(t, "grant", "execute", "--yes")
	require.Error(t, err)
	assert.True(t, dterrors.IsCode(err, dterrors.ErrPermission))

	out, err := execute(t, "grant", "execute", "--yes", "--acknowledge", "--json")
	require.NoError(t, err)
	_, data := decode(t, out)
	assert.Equal(t, []interface{}{"readonly", "execute"}, data["granted"])

	// The grant survives into the next process.
	out, err = execute(t, "status", "--offline", "--json")
	require.NoError(t, err)
	_, data = decode(t, out)
	assert.Equal(t, []interface{}{"readonly", "execute"}, data["granted"])
}

func TestGrant_NonInteractiveNeedsYes(t *testing.T) {
	testEnv(t)
	_, err := execute(t, "connect", "--permissions", "")
	require.NoError(t, err)

	oldTTY := stdinIsTerminal
	stdinIsTerminal = func() bool { return false }
	defer func() { stdinIsTerminal = oldTTY }()

	_, err = execute(t, "grant", "readonly")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "--yes")
}

func TestGrant_Prompt(t *testing.T) {
	tests := []struct {
		name        string
		level       string
		decision    consentDecision
		wantGranted bool
		wantErr     bool
	}{
		{"readonly granted", "readonly", consentDecision{Grant: true}, true, false},
		{"readonly denied", "readonly", consentDecision{Grant: false}, false, false},
		{"execute acknowledged", "execute", consentDecision{Grant: true, Acknowledged: true}, true, false},
		{"execute not acknowledged", "execute", consentDecision{Grant: true}, false, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			testEnv(t)
			_, err := execute(t, "connect", "--permissions", "")
			require.NoError(t, err)

			oldTTY, oldPrompt := stdinIsTerminal, promptConsent
			defer func() { stdinIsTerminal, promptConsent = oldTTY, oldPrompt }()
			stdinIsTerminal = func() bool { return true }

			var shown permission.Request
			promptConsent = func(req permission.Request) (consentDecision, error) {
				shown = req
				return tt.decision, nil
			}

			_, err = execute(t, "grant", tt.level)
			if tt.wantErr {
				require.Error(t, err)
			} else {
				require.NoError(t, err)
			}
			assert.NotEmpty(t, shown.Capabilities)

			out, err := execute(t, "status", "--offline", "--json")
			require.NoError(t, err)
			_, data := decode(t, out)
			granted, _ := data["granted"].([]interface{})
			assert.Equal(t, tt.wantGranted, len(granted) == 1, "granted=%v", granted)
		})
	}
}

func TestConsentText_ListsCapabilities(t *testing.T) {
	d, ok := permission.Describe(permission.Execute)
	require.True(t, ok)

	text := consentText(permission.Request{Descriptor: d})
	for _, c := range d.Capabilities {
		assert.Contains(t, text, c)
	}
	assert.Contains(t, text, "Risk: high")
}

func TestRun_RequiresExecuteGrant(t *testing.T) {
	fb := testEnv(t)
	_, err := execute(t, "connect")
	require.NoError(t, err)

	_, err = execute(t, "run", "uptime")
	require.Error(t, err)
	assert.True(t, dterrors.IsCode(err, dterrors.ErrPermission))
	assert.Contains(t, err.Error(), "diagterm grant execute")
	assert.Zero(t, fb.Calls(backend.PathRun))
}

func TestRun_PrintsOutputAndExitCode(t *testing.T) {
	fb := testEnv(t)
	fb.SetRunResult(backend.RunResult{ReturnCode: 3, Stdout: "hello", Stderr: "warn\n"})
	_, err := execute(t, "connect", "--permissions", "readonly,execute", "--acknowledge")
	require.NoError(t, err)

	out, err := execute(t, "run", "--timeout", "7s", "echo", "hello")
	code, ok := dterrors.GetExitCode(err)
	require.True(t, ok, "err=%v", err)
	assert.Equal(t, 3, code)
	assert.Contains(t, out, "hello\n")
	assert.Contains(t, out, "warn\n")

	reqs := fb.RunRequests()
	require.Len(t, reqs, 1)
	assert.Equal(t, "echo hello", reqs[0].Cmd)
	assert.InDelta(t, 7.0, reqs[0].TimeoutS, 0.001)
}

func TestRun_JSON(t *testing.T) {
	testEnv(t)
	_, err := execute(t, "connect", "--permissions", "readonly,execute", "--acknowledge")
	require.NoError(t, err)

	out, err := execute(t, "run", "--json", "uptime")
	require.NoError(t, err)
	_, data := decode(t, out)
	assert.Equal(t, "uptime", data["cmd"])
	assert.Equal(t, float64(0), data["returncode"])
}

func TestRun_BackendRefusal(t *testing.T) {
	fb := testEnv(t)
	fb.Fail(backend.PathRun, http.StatusForbidden, `{"detail":"runner disabled"}`)
	_, err := execute(t, "connect", "--permissions", "readonly,execute", "--acknowledge")
	require.NoError(t, err)

	_, err = execute(t, "run", "uptime")
	require.Error(t, err)
	assert.True(t, dterrors.IsCode(err, dterrors.ErrExec))
	assert.Contains(t, err.Error(), "runner disabled")
	assert.Contains(t, err.Error(), "Enable the runner")

	j := ErrorToJSON(err)
	assert.Equal(t, ErrCodeBackendHTTP, j.Code)
	assert.Equal(t, map[string]interface{}{"status": 403, "status_text": "Forbidden"}, j.Details)
}

func TestRun_InvalidTimeout(t *testing.T) {
	testEnv(t)

	_, err := execute(t, "run", "--timeout", "soon", "uptime")
	require.Error(t, err)
	assert.True(t, dterrors.IsCode(err, dterrors.ErrUsage))
}

func TestRun_Confirmation(t *testing.T) {
	tests := []struct {
		name       string
		args       []string
		answer     bool
		wantPrompt bool
		wantSent   int
		wantCode   int
	}{
		{"confirmed", []string{"run", "uptime"}, true, true, 1, 0},
		{"cancelled", []string{"run", "uptime"}, false, true, 0, 1},
		{"yes skips prompt", []string{"run", "--yes", "uptime"}, false, false, 1, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fb := testEnv(t)
			_, err := execute(t, "connect", "--permissions", "readonly,execute", "--acknowledge")
			require.NoError(t, err)

			oldTTY, oldConfirm := stdinIsTerminal, confirmRun
			defer func() { stdinIsTerminal, confirmRun = oldTTY, oldConfirm }()
			stdinIsTerminal = func() bool { return true }

			var shown string
			confirmRun = func(command, url string) (bool, error) {
				shown = command
				assert.Equal(t, fb.URL(), url)
				return tt.answer, nil
			}

			_, err = execute(t, tt.args...)
			if tt.wantCode == 0 {
				require.NoError(t, err)
			} else {
				code, ok := dterrors.GetExitCode(err)
				require.True(t, ok, "err=%v", err)
				assert.Equal(t, tt.wantCode, code)
			}

			if tt.wantPrompt {
				assert.Equal(t, "uptime", shown)
			} else {
				assert.Empty(t, shown)
			}
			assert.Len(t, fb.RunRequests(), tt.wantSent)
		})
	}
}

func TestRun_NoConfirmationWithoutExecute(t *testing.T) {
	testEnv(t)
	_, err := execute(t, "connect")
	require.NoError(t, err)

	oldTTY, oldConfirm := stdinIsTerminal, confirmRun
	defer func() { stdinIsTerminal, confirmRun = oldTTY, oldConfirm }()
	stdinIsTerminal = func() bool { return true }
	confirmRun = func(string, string) (bool, error) {
		t.Fatal("confirmation shown without execute")
		return false, nil
	}

	_, err = execute(t, "run", "uptime")
	assert.True(t, dterrors.IsCode(err, dterrors.ErrPermission))
}

func TestOneShotCommandsDoNotPoll(t *testing.T) {
	fb := testEnv(t)
	_, err := execute(t, "connect", "--permissions", "readonly,execute", "--acknowledge")
	require.NoError(t, err)

	_, err = execute(t, "status")
	require.NoError(t, err)
	_, err = execute(t, "grant", "readonly")
	require.NoError(t, err)
	_, err = execute(t, "run", "uptime")
	require.NoError(t, err)

	assert.Zero(t, fb.Calls(backend.PathProcesses))
	assert.Zero(t, fb.Calls(backend.PathServices))
	assert.Zero(t, fb.Calls(backend.PathDiagnostics))
	assert.Len(t, fb.RunRequests(), 1)
}

func TestSnapshot_JSON(t *testing.T) {
	fb := testEnv(t)
	_, err := execute(t, "connect")
	require.NoError(t, err)

	out, err := execute(t, "snapshot", "--json")
	require.NoError(t, err)

	_, data := decode(t, out)
	assert.Equal(t, fb.URL(), data["backend"])
	summary, ok := data["summary"].(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, "testhost", summary["hostname"])

	hot, ok := data["high_activity"].([]interface{})
	require.True(t, ok)
	require.Len(t, hot, 1)
	assert.Equal(t, "worker", hot[0].(map[string]interface{})["name"])
	assert.Nil(t, data["errors"])
}

func TestSnapshot_Text(t *testing.T) {
	fb := testEnv(t)
	fb.Fail(backend.PathServices, http.StatusInternalServerError, `{"detail":"systemd unavailable"}`)
	_, err := execute(t, "connect")
	require.NoError(t, err)

	out, err := execute(t, "snapshot", "--no-color")
	require.NoError(t, err)
	assert.Contains(t, out, "testhost")
	assert.Contains(t, out, "worker")
	assert.Contains(t, out, "High activity")
	assert.Contains(t, out, "500 Internal Server Error")
	assert.Contains(t, out, "device descriptor read")
}

func TestSnapshot_NeedsReadOnly(t *testing.T) {
	testEnv(t)
	_, err := execute(t, "connect", "--permissions", "")
	require.NoError(t, err)

	_, err = execute(t, "snapshot")
	require.Error(t, err)
	assert.True(t, dterrors.IsCode(err, dterrors.ErrPermission))
	assert.Contains(t, err.Error(), "grant readonly")
}

func TestMonitor_RequiresTerminal(t *testing.T) {
	testEnv(t)

	_, err := execute(t, "monitor")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "diagterm snapshot")
}

func TestParseInterval(t *testing.T) {
	d, err := parseInterval("")
	require.NoError(t, err)
	assert.Zero(t, d)

	d, err = parseInterval("2s")
	require.NoError(t, err)
	assert.Equal(t, "2s", d.String())

	_, err = parseInterval("100ms")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "too short")
}

func TestConfigInitAndShow(t *testing.T) {
	testEnv(t)
	path := filepath.Join(t.TempDir(), "diagterm.yaml")

	_, err := execute(t, "--config", path, "config", "init")
	require.NoError(t, err)
	assert.FileExists(t, path)

	_, err = execute(t, "--config", path, "config", "init")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "--force")

	_, err = execute(t, "--config", path, "config", "init", "--force")
	require.NoError(t, err)

	out, err := execute(t, "--config", path, "config", "show", "--no-color")
	require.NoError(t, err)
	assert.Contains(t, out, "# "+path)
	assert.Contains(t, out, "refresh_interval:")
}

func TestConfigShow_EnvOverride(t *testing.T) {
	fb := testEnv(t)

	out, err := execute(t, "config", "show", "--json")
	require.NoError(t, err)
	_, data := decode(t, out)
	assert.True(t, strings.Contains(data["yaml"].(string), fb.URL()))
}
