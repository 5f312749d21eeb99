// Package events implements an in-memory pub/sub broker for cluster
// notifications: node health transitions, replica repair lifecycle, Raft
// role changes, key rotation, and audit appends. Publish queues the event
// on a 100-slot channel and blocks while that queue is full, until the
// broker is stopped; when the queue is drained, subscribers with a full
// buffer silently miss the event rather than stall the broker. Delivery is
// best-effort, not a substitute for the
// authoritative state each event describes — a subscriber that needs a
// guarantee should poll the source (health.Cache, the metadata authority)
// rather than rely solely on the event stream.
package events
