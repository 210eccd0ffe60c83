// Package connection is the CLI's HTTP client for a running valtok server.
package connection
