// Package monitor implements the live terminal dashboard for one backend.
//
// The dashboard is a Bubble Tea program (Model-Update-View) layered over a
// session.Session. The session owns every piece of state that matters: the
// connection, the granted permissions, the consent request and the polled
// snapshot. The model only mirrors it for rendering and turns key presses
// into session calls.
//
// # Message Flow
//
// Session observers fire on their own goroutines. Each one drops a token into
// a one-slot channel; waitForEvent turns the token into a sessionMsg and the
// model re-reads the session on receipt. Bursts of events therefore collapse
// into a single redraw and nothing blocks the poller.
//
// Blocking calls (connect, run) are issued from tea.Cmds and report back with
// connectDoneMsg and runDoneMsg.
//
// # Overlays
//
// At most one overlay is shown on top of the panels, in priority order:
//
//	help      - ? toggles it
//	consent   - whenever the session has a pending permission request
//	confirm   - shows a command before it is sent; enter runs, esc cancels
//	connect   - URL prompt, opened with c or when not connected
//	runner    - command prompt and a timestamped log, opened with x;
//	            ctrl+l clears the log
package monitor
