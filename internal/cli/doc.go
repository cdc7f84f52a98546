// Package cli defines the Cobra command tree for the innerself-app CLI. The
// root command creates a new app; each other file registers one subcommand
// (version, config, doctor) with the root command. Commands delegate to
// internal packages and only handle flags, logging setup and console output.
package cli
