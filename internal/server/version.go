// internal/server/version.go
package server

// Version is overridden at build time with -ldflags "-X mcp-food-log/internal/server.Version=...".
var Version = "dev"
