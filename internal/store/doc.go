// Package store keeps the fingerprints of the episode being played and of
// earlier episodes of the same season.
//
// A Store answers windowed lookups around a capture time and persists itself
// as one JSON record per season identifier. Loading is soft: a missing,
// locked or malformed file leaves the store untouched and reports false so the
// detector simply starts without prior data.
package store
