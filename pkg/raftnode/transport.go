package raftnode

// Transport is the peer-communication boundary a Node needs: send a vote
// request or a heartbeat/log-broadcast to one named peer. A daemon wires
// this against pkg/transport's client (RaftRequestVote/RaftAppendEntries
// wire opcodes); tests wire it against an in-memory fake.
type Transport interface {
	SendRequestVote(peer string, req RequestVoteArgs) (RequestVoteReply, error)
	SendAppendEntries(peer string, req AppendEntriesArgs) (AppendEntriesReply, error)
	SendInstallSnapshot(peer string, req InstallSnapshotArgs) (InstallSnapshotReply, error)
}

// RequestVoteArgs is sent by a Candidate to every peer.
type RequestVoteArgs struct {
	Term        uint64
	CandidateID string
}

// RequestVoteReply is a peer's response to a vote request.
type RequestVoteReply struct {
	Term    uint64
	Granted bool
}

// AppendEntriesArgs is sent by the Leader on every heartbeat tick. Log
// carries the leader's entire log, serialized as "term:command;" records
// per spec, already decoded into LogEntry values here.
type AppendEntriesArgs struct {
	Term     uint64
	LeaderID string
	Log      []LogEntry
}

// AppendEntriesReply is a follower's response to a heartbeat.
type AppendEntriesReply struct {
	Term uint64
}

// InstallSnapshotArgs carries a compacted snapshot a lagging follower must
// adopt wholesale.
type InstallSnapshotArgs struct {
	Term          uint64
	LeaderID      string
	SnapshotIndex uint64
	SnapshotTerm  uint64
	Bytes         []byte
}

// InstallSnapshotReply is a follower's response to a snapshot install.
type InstallSnapshotReply struct {
	Term uint64
}
