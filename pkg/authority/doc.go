// Package authority implements the metadata authority: the single
// process-wide owner of the inode table and node registry. It serializes
// every mutation through one lock, places new files onto ALIVE nodes
// under a replication factor, tracks node liveness via heartbeats, and
// persists both tables to the pipe-delimited text files operators expect
// to find on disk between restarts.
//
// The authority satisfies the narrow InodeSource interfaces declared by
// pkg/verifier and pkg/repair, so either can be pointed at an *Authority
// without this package importing either of them.
package authority
