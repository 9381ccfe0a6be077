// Package config loads and validates the gateway configuration from a
// file and ACTIONGATE_* environment variables. Validate fills defaults
// so callers can start from a zero Config.
package config
