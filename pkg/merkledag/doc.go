// Package merkledag hashes ordered directory entries into content-addressed
// DAG nodes and builds/verifies inclusion proofs against a recorded index
// of each node's sorted children.
package merkledag
