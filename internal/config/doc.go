// Package config loads, normalizes, and validates pipeline configuration data.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, and honours environment fallbacks such as
// POSTGRES_PASSWORD. The Config type centralizes every knob the unpack
// worker, GPU worker, and operator CLI need, allowing scratch directories
// and external service credentials to be discovered in one pass.
//
// Always obtain settings through this package so downstream code receives
// sanitized paths, canonical log formats, and clear validation errors.
package config
