// Package config loads, normalizes, and validates creditwatch configuration.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, and honours the CREDITWATCH_LOG_LEVEL
// environment override. Zero values in the [detector] section fall back to
// defaults; anything else out of range is rejected by Validate with an error
// naming the offending key.
package config
