// Package http holds the HTTP transport layer: Chi handlers translating
// between the JSON API and the pipeline service, with RFC 7807 problem
// responses for every failure path.
package http
