// Package environment manages the fleet of working copies that make up an
// observing environment.
//
// Orchestrator clones missing repositories, moves individual repositories to
// branches or versions, and resets the whole fleet to a published baseline.
// Fleet-wide operations keep going after a repository fails and report one
// outcome per repository in registry order.
package environment
