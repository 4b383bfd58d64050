// Package config provides the configuration for phishscan: defaults, the
// optional .phishscan YAML file and validation of the merged result.
package config
