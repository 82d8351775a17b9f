// Package daemonctl starts and stops a background dripl daemon from the CLI.
//
// The daemon holds an exclusive flock on <log_dir>/dripl.lock and records
// its PID in <log_dir>/dripl.pid. Running probes the lock, Launch spawns a
// detached `dripl serve`, and Stop signals the recorded PID, escalating to
// SIGKILL after a grace period.
package daemonctl
