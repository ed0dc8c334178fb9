// Package app wires the application together: configuration, logging,
// metrics, the pipeline service and the HTTP router, plus lifecycle
// management (start, signal handling, graceful shutdown).
package app
