// Package config loads, normalizes, and validates vidqueue configuration data.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, and honours the VIDQUEUE_NTFY_TOPIC
// environment fallback. The Config type centralizes every knob the daemon and
// CLI need, including the tool binaries job steps invoke and the timing of
// queue reconciliation and hard stops.
//
// Always obtain settings through this package so downstream code receives
// sanitized paths, canonical log formats, and clear validation errors.
package config
