// Package repair implements the repair worker: a background loop that
// scans partial inodes, asks the node health cache for healthy
// replacement candidates, and drives an injected replicator callback to
// bring each inode back up to its replication factor.
package repair
