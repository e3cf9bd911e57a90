// Package config loads and validates clipforge configuration from TOML.
package config
