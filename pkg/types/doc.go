/*
Package types defines the data model shared across every SimpliDFS
component: the wire record carried over the cluster's framed transport, the
node and inode records the metadata authority owns, and the POSIX-style
error codes every RPC response reports back.

# Wire protocol

Every message exchanged between nodes, and between simplidfsctl and a node,
is a Payload: a fixed 14-field record keyed by a MessageType opcode. Field
order is part of the on-wire contract and is never reordered once assigned.
A handful of fields are intentionally reused across opcodes that don't need
all fourteen:

  - Mode doubles as the access mask for Access and the open flags for Open.
  - Content carries the node ID for RegisterNode and Heartbeat, which have
    no dedicated ID field of their own.
  - Data carries a human-readable status string for AdminHealth and a raw
    CID string for AdminVerifyCID.
  - Offset carries the key-rotation window, in seconds, for AdminRotateKey.

MessageType constants below CreateFile through RaftInstallSnapshotResponse
are the baseline opcode set; AdminHealth through AdminVerifyCIDResponse
extend it for the operator surface simplidfsctl drives. Opcodes with no
live handler (the legacy WriteFile/ReadFile/FileCreated/... set that
duplicates Write/Read/CreateFile, and the FUSE-shaped Readdir/Mkdir/Rmdir/
Statx/Utimens/NodeReadFileChunk/NodeWriteFileChunk set) still exist in the
enum for wire compatibility; a node that receives one reports ENOSYS.

# Cluster and file records

  - NodeRegistration: a storage node's address and heartbeat bookkeeping,
    owned exclusively by the authority's node registry.
  - InodeEntry: a file's replica placement and POSIX attributes, owned
    exclusively by the authority's inode table. There is no directory
    entry type here — Filename is a flat string, and directory structure
    lives in the Merkle DAG, not in this package.
  - AuditEvent: one hash-chained entry in the tamper-evident audit log,
    linked to its predecessor by PrevHash.
  - HealthState: the three hysteretic liveness states (ALIVE, SUSPECT,
    DEAD) a node can be in, as string constants. The health cache does not
    use this type; it tracks its own health.State.

# Error codes

ErrorCode mirrors the POSIX errno values a filesystem client expects
(ENOENT, EACCES, EBUSY, ...); Success is zero so a zero-value Payload
reports no error by default.

# Consumers

  - pkg/authority: owns NodeRegistration and InodeEntry for the life of
    the cluster, persists them, and mutates them under Raft.
  - pkg/raftnode: carries RaftRequestVote/RaftAppendEntries/
    RaftInstallSnapshot payloads between nodes.
  - pkg/transport: frames and unframes Payload over TCP.
  - pkg/auditlog: produces and verifies the AuditEvent hash chain.
  - pkg/health: tracks its own health.State per node ID string.
  - cmd/simplidfsd: the only package that dispatches on every MessageType.
  - cmd/simplidfsctl: speaks a narrow slice of MessageType (the Admin*
    opcodes and AdminVerifyCID) as a client.
*/
package types
