// Package api provides the HTTP API server for training and querying the
// intent classifier.
package api

import "net/http"

// DefaultBodyLimit bounds request bodies. Train payloads carry whole
// question sets, so it sits well above fiber's 4MB default.
const DefaultBodyLimit = 32 * 1024 * 1024

// Config is the API server configuration.
type Config struct {
	// ListenAddr is the address to listen on (e.g., ":7000")
	ListenAddr string

	// BodyLimit is the maximum request body size in bytes.
	// Defaults to DefaultBodyLimit.
	BodyLimit int

	// MCPHandler, when set, is mounted at /mcp.
	MCPHandler http.Handler
}
