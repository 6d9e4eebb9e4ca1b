// Package config loads, normalizes, and validates heicrop configuration data.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, and honours environment overrides such as
// HEICROP_EXPORT_DIR. The Config type centralizes every knob the session host
// and CLI need: export and log directories, the transcoder backend, crop widget
// defaults, and JPEG qualities.
//
// Always obtain settings through this package so downstream code receives
// sanitized paths, canonical log formats, and clear validation errors.
package config
