// Package config loads, normalizes, and validates Atelier configuration data.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, and honours environment fallbacks such as
// OPENAI_API_KEY or PINTEREST_API_KEY. The Config type centralizes every knob
// the web daemon and the CLI need, so upload/data directories, LLM credentials
// and forge pipeline settings are discovered in one pass.
//
// Always obtain settings through this package so downstream code receives
// sanitized paths, canonical log formats, and clear validation errors.
package config
