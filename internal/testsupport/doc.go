// Package testsupport builds isolated configurations and stub downloader
// executables for tests across the module.
package testsupport
