// Package config loads, normalizes, and validates Dripl configuration data.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, and honours environment fallbacks such as
// YTDLP_TIMEOUT_MS and DRIPL_ADMIN_TOKEN. The Config type centralizes every
// knob the daemon and CLI need: the shared output directory, the downloader
// subprocess settings, the credential and route pools, and the administrative
// token that gates raw diagnostics.
//
// Always obtain settings through this package so downstream code receives
// sanitized paths, canonical log formats, and clear validation errors.
package config
