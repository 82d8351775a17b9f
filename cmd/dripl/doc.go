// Command dripl runs the media retrieval daemon and provides one-shot
// retrieval, health inspection and configuration helpers from the shell.
//
// `dripl serve` starts the HTTP API in the foreground; `start` and `stop`
// manage it as a background process. `dripl fetch` runs the same retrieval
// stack in-process (or against a running daemon with --remote), `dripl health`
// renders the daemon's credential, route and dependency report, `dripl logs`
// prints or follows the active daemon log, and the `config` subcommands write
// and validate the TOML configuration.
package main
