// Package cli constructs the socialmigrate command-line interface, wiring the
// Cobra command hierarchy, the layered configuration loader, and structured
// logging. The groups and migrate subcommands live in the migrate subpackage.
package cli
