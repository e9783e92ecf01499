// Package config loads the two things the emulator needs at boot: a small
// environment-driven RuntimeConfig (data directory, ports, log level) and a
// DeploymentModel describing the resources to emulate and how they relate.
// Everything about the deployment model's authoring format — what a
// resource YAML file looks like upstream, how it got there — is external to
// this package; it only parses the shape it is handed and turns it into
// the internal/dependency graph the orchestrator schedules from.
package config
