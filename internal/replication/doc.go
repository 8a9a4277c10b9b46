// Package replication mirrors a remote environment by replaying its change
// events locally.
//
// Consumer reads events from a Source, decodes them, and hands each one to a
// Dispatcher. Malformed events and failed replays are logged and acknowledged
// so that one bad event never stalls the stream. The sidecar command wires the
// consumer to Redis Streams and the environment orchestrator, and optionally
// exposes Prometheus metrics over HTTP.
package replication
