// Package sidewire is a client SDK for shipping telemetry (events, metrics,
// progress, resource usage, and spans) to a local collector sidecar over TCP.
//
// The transport never blocks the caller on an unreachable collector: payloads
// are buffered in a bounded in-memory queue and flushed, oldest first, once
// the connection comes back. Reconnection is lazy and throttled by
// exponential backoff, so emitting telemetry stays cheap during an outage.
//
// Alternative delivery backends (rotating file, HTTP, in-memory channel) can
// be selected via Config.Backend; custom backends register through
// RegisterBackend.
package sidewire
