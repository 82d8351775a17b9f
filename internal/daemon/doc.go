// Package daemon coordinates the long-running dripl process.
//
// It wires configuration, the credential store, the route pool, and the
// retrieval orchestrator behind a chi HTTP API, with flock-based locking to
// prevent multiple instances sharing one log directory. Handlers translate
// wire requests into retrieval requests and retrieval outcomes into mapped
// responses; panics escaping a handler surface as server_crash.
//
// Keep retrieval logic in the retrieval package: the daemon focuses on
// startup, shutdown, transport, and access control.
package daemon
