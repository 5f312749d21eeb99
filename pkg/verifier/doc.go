// Package verifier implements the replica verifier: a background worker
// that periodically re-hashes every inode's live replicas through an
// injected fetcher, flags inodes whose replicas disagree (or have no
// healthy replica left) as partial, and exports per-file health as a
// Prometheus gauge for the repair worker and operators to consume.
package verifier
