// Package main runs the conduit HTTP server.
//
// The server boots the application, registering its routes, services and
// middleware, and hosts the dispatcher behind a gin engine that also serves
// static files and Prometheus metrics.
//
// Configuration:
//   - A dotenv file (default .env), then environment variables
//   - An optional YAML or TOML settings file named by CONDUIT_SETTINGS
//   - CLI flags, which override both
//
// Usage:
//
//	./server -port 9501
//
//	# Development mode (colored logs, debug level, detailed error pages)
//	./server -dev
//
// Signals:
//   - SIGINT, SIGTERM: Graceful shutdown
package main
