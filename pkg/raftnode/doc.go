// Package raftnode implements the cluster's leader-election and log-
// replication layer: Follower/Candidate/Leader roles, randomized election
// timeouts, a heartbeat-driven leader, and full-log-broadcast replication
// (a follower replaces its entire log with the leader's on every
// heartbeat, rather than the index-matched AppendEntries protocol real
// Raft uses — see doc on Node for why).
//
// Log entries are held as LogEntry values and persisted as hashicorp/raft's
// raft.Log type through raft-boltdb's BoltStore, so a restarted node
// recovers its term, vote, and
// log from disk; the consensus algorithm itself — election, voting,
// commit, replication — is hand-rolled rather than delegated to
// hashicorp/raft's own Raft type.
package raftnode
