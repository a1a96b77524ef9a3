// Package cli implements the diagterm command-line interface.
//
// Every command is built by a newXxxCmd constructor that closes over one
// *app, so each call to newRootCmd yields an independent tree. The root's
// PersistentPreRunE fills the app with the loaded config, the state store
// and the log file; commands that must work without a valid config
// (version, completion, config init) override it with a no-op.
//
// # Command Structure
//
//	diagterm                    - Open the dashboard (same as monitor)
//	diagterm monitor            - Live dashboard
//	diagterm connect [url]      - Probe a backend and save it
//	diagterm disconnect         - Forget the saved backend and grants
//	diagterm status             - Show the saved backend
//	diagterm grant <level>      - Consent to readonly or execute
//	diagterm run <command>      - Run a command on the backend host
//	diagterm snapshot           - Print one poll cycle and exit
//	diagterm config [init|show] - Manage the config file
//
// # Sessions
//
// One-shot commands build a session.Session, restore the saved connection
// and act on it, then close it. Grants made here are persisted, so the
// dashboard picks them up on its next start.
//
// # Output
//
// With --json every command writes a single JSONEnvelope to stdout and
// errors are mapped to the ErrCode* constants. Human output goes to stdout;
// spinners and notices go to stderr.
package cli
