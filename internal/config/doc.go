// Package config holds wsspider's runtime settings: crawl pacing, retry
// policy, collector endpoint, state backend, and per-host request
// settings loaded from the optional .wsspider YAML file.
package config
