// Package cli provides the interactive busauth command-line client.
//
// It wires configuration and the gRPC client into a small REPL. Typical
// flow: log in, complete the first-access password change when the server
// asks for it, then inspect or end the session.
//
// Commands:
//   - register / login
//   - whoami / passwd / logout
//   - help / exit
//
// The REPL is started via App.Run(ctx), which blocks until the user exits
// or ctx is cancelled.
package cli
