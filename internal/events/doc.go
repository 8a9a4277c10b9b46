// Package events defines ChangeEvent, the audit record of one fleet operation,
// and moves it through Redis Streams.
//
// StreamPublisher appends events with XADD. StreamSource reads them through a
// consumer group so that every sidecar sees each event once, in order, and
// unacknowledged events are replayed after a restart.
package events
