// Package routes holds the egress proxy pool used by retrieval attempts.
//
// The pool is parsed once at startup. Its round-robin cursor is process-wide
// state shared by every request, so all cursor access goes through a mutex and
// rotation is exposed as a single advance-and-read operation.
package routes
