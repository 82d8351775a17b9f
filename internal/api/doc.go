// Package api defines the JSON wire types shared by the daemon and the CLI,
// converters from retrieval outcomes to those types, and a small HTTP client
// for talking to a running daemon.
//
// # Key Types
//
// FetchRequest: body of POST /api/fetch.
//
// FetchResponse: success ({ok:true, file}) or failure ({ok:false, error,
// message, detail, raw?}). Raw diagnostics are only filled in for callers
// presenting the admin token.
//
// HealthResponse: credential bundle metadata, redacted routes with the pool
// cursor, and dependency availability.
//
// # Design Notes
//
// DTOs use camelCase JSON tags. Error keys are stable machine-readable strings;
// HTTP status codes travel out of band in the response status line.
package api
