// Package config loads, normalizes, and validates trackpull configuration data.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, overlays an optional .env file, and honours
// TRACKPULL_* environment overrides. The Config type centralizes every knob
// the pipeline, batch controller, CLI, and HTTP surface need, so scratch and
// output directories, tool binaries, strategy order, and retry budgets are
// discovered in one pass.
//
// Always obtain settings through this package so downstream code receives
// sanitized paths, canonical log formats, and clear validation errors.
package config
