// Package config loads and validates the application configuration from a
// YAML file with DEEPCELL_* environment variable overrides.
package config
