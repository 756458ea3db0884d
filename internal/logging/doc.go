// Package logging provides structured logging with per-module log level configuration.
//
// # Overview
//
// The logging system uses Go's slog package with automatic output routing:
//   - Logs to systemd journal when available (Linux systems with journald)
//   - Logs to stdout when a terminal, pipe, or file is connected
//   - Keeps the last 1000 entries in memory for the window's log view
//
// # Usage
//
// Initialize the logging system once at startup:
//
//	logging.Initialize(logging.Config{
//		Level:  "info",      // Global log level: debug, info, warn, error
//		Format: "text",      // Output format: text or json
//		Modules: map[string]string{
//			"server":     "debug",  // Per-module overrides
//			"supervisor": "warn",
//		},
//	})
//
// Get a logger for your module:
//
//	logger := logging.GetLogger(logging.ModuleSupervisor)
//	logger.Info("Process started", "pid", pid)
//
// Lines printed by the backend are logged on the "server" module with the
// level taken from their Python logging prefix.
//
// Levels can be changed while running with [UpdateLevels]; the config
// watcher calls it when the [logging] table of the config file changes.
//
// # Viewing Logs
//
// On systems with journald:
//
//	journalctl -t btransfer              # All launcher logs
//	journalctl -t btransfer -f           # Follow live
//	journalctl -t btransfer MODULE=server
//
// # Configuration
//
// Example TOML configuration:
//
//	[logging]
//	level = "info"
//	format = "text"
//
//	[logging.modules]
//	server = "debug"
//	health = "warn"
package logging
