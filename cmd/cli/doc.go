// Package cli constructs the obsenv command-line interface, wiring the Cobra
// command hierarchy, the layered configuration loader and structured logging.
// Configuration is read from the embedded defaults, an optional config file,
// an optional .env file and OBSENV_* environment variables, in that order.
package cli
