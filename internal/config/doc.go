// Package config provides configuration structures and utilities for urlscan.
// It defines the options for scanning URLs, training and loading the
// classifier, running the HTTP API and generating reports.
//
// Values are resolved in this order, later sources winning:
//  1. NewConfig defaults
//  2. the YAML file (.urlscan in the current or home directory, or --config)
//  3. environment variables (PORT, URLSCAN_ADDR, URLSCAN_REDIS_ADDR, URLSCAN_MODEL)
//  4. command line flags
package config
