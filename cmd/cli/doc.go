// Package cli constructs the orgmigrate command-line interface, wiring the
// Cobra command hierarchy, configuration loader, and structured logging
// primitives. One subcommand exists per metadata class plus an aggregate
// command running every configured class against a shared session pair.
package cli
