// Package config loads YAML configuration of the sot command and validates it.
package config
