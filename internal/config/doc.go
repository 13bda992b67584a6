// Package config provides 12-factor configuration management for the
// session persistence engine.
//
// Configuration is loaded from environment variables with sensible defaults.
// CLI flags can override environment variables for development flexibility.
//
// Configuration Sections:
//   - Server: HTTP server settings (port, host)
//   - Store: durable store path and workspace scope
//   - Session: persistence toggle, scrollback target, storage limit, expiry
//   - Autosave: periodic and debounced trigger cadence
//   - Logging: log level and output format
//
// Example Usage:
//
//	cfg := config.LoadOrDefault()
//	fmt.Printf("Server running on %s:%s\n", cfg.Server.Host, cfg.Server.Port)
//
// Environment Variables:
//   - PORT, HOST, STORE_PATH, WORKSPACE_ID
//   - SESSION_ENABLED, SESSION_SCROLLBACK_LINES, SESSION_STORAGE_LIMIT_MB
//   - SESSION_EXPIRY_DAYS, SESSION_REVIVE_POLICY
//   - AUTOSAVE_INTERVAL, AUTOSAVE_DEBOUNCE
//   - LOG_LEVEL, LOG_DEV
package config
