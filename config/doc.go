// Package config provides Warden's configuration management.
//
// Configuration is assembled from defaults, an optional YAML file, and
// environment variables with the WARDEN_ prefix, in that order of
// precedence.
package config
