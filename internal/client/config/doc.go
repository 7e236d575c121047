// Package config loads settings for the busauth CLI: defaults, an optional
// JSON file (-c/-config) and command-line flags, in that order.
package config
