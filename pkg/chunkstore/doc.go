// Package chunkstore is a content-addressed blob store keyed by CID. Writes
// are deduplicated automatically; reclamation of unreferenced chunks runs
// as an atomic, lockable garbage-collection pass.
package chunkstore
