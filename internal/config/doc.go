// Package config loads wrapsync configuration from defaults, an optional
// JSON or YAML file, and WRAPSYNC_* environment overlays, in that order.
package config
