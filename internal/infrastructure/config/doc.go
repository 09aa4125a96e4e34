// Package config provides 12-factor configuration for the framework host.
//
// Values come from, in increasing priority: defaults, dotenv files, the
// process environment, and an optional YAML or TOML settings file named by
// CONDUIT_SETTINGS. The settings file only accepts host keys; an unknown
// key fails startup.
//
// Configuration Sections:
//   - Server: listen address, static files, compression, timeouts
//   - App: public URL, debug and strict assertion switches, views
//   - Logging: log level and output format
//   - RateLimit: defaults of the throttle middleware
//   - CORS: host level cross-origin handling
//   - Worker: job storage path and spool schedule
//
// Example Usage:
//
//	cfg := config.LoadOrDefault()
//	fmt.Printf("listening on %s\n", cfg.Server.Addr())
//
// Example settings.yaml:
//
//	port: 8080
//	document_root: public
//	enable_static_handler: true
//	read_timeout: 15s
package config
