// Package ytdlp supervises the external yt-dlp downloader.
//
// Supervisor builds a fixed argument list for one attempt, spawns the binary
// in its own process group with stdin closed, captures bounded stdout/stderr
// tails, and enforces a hard wall-clock timeout: on expiry the group receives
// SIGTERM and, after a short grace, SIGKILL. Every Run produces exactly one
// terminal Result state (succeeded, exited, timed_out or spawn_failed).
//
// The Executor seam lets tests replace process execution, mirroring how other
// external tool clients in this repository are stubbed.
package ytdlp
