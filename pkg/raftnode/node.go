package raftnode

import (
	"errors"
	"math/rand"
	"sync"
	"time"

	"github.com/JacobBorden/SimpliDFS-sub000/pkg/events"
	"github.com/JacobBorden/SimpliDFS-sub000/pkg/log"
	"github.com/JacobBorden/SimpliDFS-sub000/pkg/metrics"
	"github.com/hashicorp/raft"
	"github.com/rs/zerolog"
)

// Role is one of the three states a Node can be in.
type Role int

const (
	Follower Role = iota
	Candidate
	Leader
)

func (r Role) String() string {
	switch r {
	case Follower:
		return "follower"
	case Candidate:
		return "candidate"
	case Leader:
		return "leader"
	default:
		return "unknown"
	}
}

// DefaultElectionTimeoutMin/Max bound the randomized election timer.
const (
	DefaultElectionTimeoutMin = 150 * time.Millisecond
	DefaultElectionTimeoutMax = 300 * time.Millisecond
	DefaultHeartbeatInterval  = 50 * time.Millisecond
)

// ErrNotLeader is returned by AppendCommand on a non-Leader node.
var ErrNotLeader = errors.New("raftnode: not the leader")

const (
	stableKeyCurrentTerm = "CurrentTerm"
	stableKeyVotedFor    = "VotedFor"
)

// Node is one member of the replicated group: it tracks its own role, term,
// vote, and log, and exchanges RequestVote/AppendEntries RPCs with its
// peers through an injected Transport.
//
// Replication here is full-log broadcast, not index-matched AppendEntries:
// every heartbeat carries the leader's entire log and a follower simply
// replaces its own log with it. That keeps the hand-rolled implementation
// small at the cost of redoing work on every heartbeat and assuming a
// trusted leader; a cluster that needs partial-log matching or byzantine
// tolerance would need the fuller protocol hashicorp/raft itself
// implements.
type Node struct {
	mu sync.Mutex

	id        string
	peers     []string
	transport Transport
	apply     func(command string) error
	logger    zerolog.Logger
	broker    *events.Broker

	role          Role
	currentTerm   uint64
	votedFor      string
	currentLeader string
	entries       []LogEntry
	commitIndex   uint64
	snapshotIndex uint64
	snapshotTerm  uint64

	stable   raft.StableStore
	logStore raft.LogStore

	electionMin, electionMax time.Duration
	heartbeatInterval        time.Duration
	rng                      *rand.Rand

	resetElection chan struct{}
	leaderStop    chan struct{}
	stopCh        chan struct{}
	wg            sync.WaitGroup
}

// New creates a Node with the default election/heartbeat timing, loading
// any persisted term/vote/log from stable and logStore.
func New(id string, peers []string, transport Transport, apply func(string) error, stable raft.StableStore, logStore raft.LogStore) *Node {
	return NewWithConfig(id, peers, transport, apply, stable, logStore, DefaultElectionTimeoutMin, DefaultElectionTimeoutMax, DefaultHeartbeatInterval, time.Now().UnixNano())
}

// NewWithConfig creates a Node with explicit timing and a seeded RNG, for
// deterministic election-timeout tests.
func NewWithConfig(id string, peers []string, transport Transport, apply func(string) error, stable raft.StableStore, logStore raft.LogStore, electionMin, electionMax, heartbeatInterval time.Duration, rngSeed int64) *Node {
	n := &Node{
		id:            id,
		peers:         peers,
		transport:     transport,
		apply:         apply,
		logger:        log.WithComponent("raftnode").With().Str("node_id", id).Logger(),
		role:          Follower,
		stable:        stable,
		logStore:      logStore,
		electionMin:   electionMin,
		electionMax:   electionMax,
		heartbeatInterval: heartbeatInterval,
		rng:           rand.New(rand.NewSource(rngSeed)),
		resetElection: make(chan struct{}, 1),
		stopCh:        make(chan struct{}),
	}
	n.loadPersisted()
	return n
}

// SetBroker attaches a broker that role-change notifications publish to.
func (n *Node) SetBroker(b *events.Broker) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.broker = b
}

func (n *Node) loadPersisted() {
	if term, err := n.stable.GetUint64([]byte(stableKeyCurrentTerm)); err == nil {
		n.currentTerm = term
	}
	if voted, err := n.stable.Get([]byte(stableKeyVotedFor)); err == nil {
		n.votedFor = string(voted)
	}

	first, err := n.logStore.FirstIndex()
	if err != nil {
		return
	}
	last, err := n.logStore.LastIndex()
	if err != nil {
		return
	}
	for idx := first; idx <= last && idx > 0; idx++ {
		var entry raft.Log
		if err := n.logStore.GetLog(idx, &entry); err != nil {
			continue
		}
		n.entries = append(n.entries, fromRaftLog(&entry))
	}
	n.commitIndex = uint64(len(n.entries))
}

// Start begins the election-timeout loop on its own goroutine.
func (n *Node) Start() {
	n.wg.Add(1)
	go n.run()
}

// Stop signals every owned goroutine to exit and joins them.
func (n *Node) Stop() {
	close(n.stopCh)
	n.wg.Wait()
}

func (n *Node) run() {
	defer n.wg.Done()

	for {
		timer := time.NewTimer(n.randomElectionTimeout())
		select {
		case <-timer.C:
			if n.currentRole() != Leader {
				n.startElection()
			}
		case <-n.resetElection:
			timer.Stop()
		case <-n.stopCh:
			timer.Stop()
			return
		}
	}
}

func (n *Node) randomElectionTimeout() time.Duration {
	n.mu.Lock()
	defer n.mu.Unlock()
	span := n.electionMax - n.electionMin
	if span <= 0 {
		return n.electionMin
	}
	return n.electionMin + time.Duration(n.rng.Int63n(int64(span)))
}

func (n *Node) notifyResetElection() {
	select {
	case n.resetElection <- struct{}{}:
	default:
	}
}

func (n *Node) currentRole() Role {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.role
}

// Role reports the node's current role.
func (n *Node) Role() Role {
	return n.currentRole()
}

// Term reports the node's current term.
func (n *Node) Term() uint64 {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.currentTerm
}

// IsLeader reports whether this node believes itself the leader.
func (n *Node) IsLeader() bool {
	return n.currentRole() == Leader
}

// CommitIndex reports the highest committed log index.
func (n *Node) CommitIndex() uint64 {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.commitIndex
}

// LeaderID reports the ID of the peer this node currently believes leads,
// or "" if unknown.
func (n *Node) LeaderID() string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.currentLeader
}

// StartElection begins a Candidate round: increments term, votes for self,
// and requests votes from every peer. Exported for tests that drive
// elections without the background timer loop.
func (n *Node) StartElection() {
	n.startElection()
}

func (n *Node) startElection() {
	n.mu.Lock()
	n.role = Candidate
	n.currentTerm++
	n.votedFor = n.id
	term := n.currentTerm
	peers := append([]string(nil), n.peers...)
	n.persistTermVoteLocked()
	n.mu.Unlock()

	metrics.RaftElectionsTotal.Inc()
	n.setRoleMetric(Candidate)
	n.logger.Info().Uint64("term", term).Msg("starting election")

	votes := 1 // vote for self
	var votesMu sync.Mutex
	var wg sync.WaitGroup
	for _, peer := range peers {
		wg.Add(1)
		go func(peer string) {
			defer wg.Done()
			reply, err := n.transport.SendRequestVote(peer, RequestVoteArgs{Term: term, CandidateID: n.id})
			if err != nil {
				return
			}
			if reply.Term > term {
				n.stepDown(reply.Term)
				return
			}
			if reply.Granted {
				votesMu.Lock()
				votes++
				votesMu.Unlock()
			}
		}(peer)
	}
	wg.Wait()

	majority := (len(peers)+1)/2 + 1
	n.mu.Lock()
	stillCandidate := n.role == Candidate && n.currentTerm == term
	n.mu.Unlock()

	if stillCandidate && votes >= majority {
		n.becomeLeader(term)
	}
}

func (n *Node) becomeLeader(term uint64) {
	n.mu.Lock()
	if n.role != Candidate || n.currentTerm != term {
		n.mu.Unlock()
		return
	}
	n.role = Leader
	n.currentLeader = n.id
	n.leaderStop = make(chan struct{})
	leaderStop := n.leaderStop
	n.mu.Unlock()

	n.logger.Info().Uint64("term", term).Msg("elected leader")
	n.setRoleMetric(Leader)
	n.publishRoleChange("leader")
	n.notifyResetElection()

	n.wg.Add(1)
	go n.heartbeatLoop(leaderStop)
}

func (n *Node) heartbeatLoop(stop chan struct{}) {
	defer n.wg.Done()

	ticker := time.NewTicker(n.heartbeatInterval)
	defer ticker.Stop()

	n.broadcastHeartbeat()
	for {
		select {
		case <-ticker.C:
			n.broadcastHeartbeat()
		case <-stop:
			return
		case <-n.stopCh:
			return
		}
	}
}

func (n *Node) broadcastHeartbeat() {
	n.mu.Lock()
	term := n.currentTerm
	leaderID := n.id
	entries := append([]LogEntry(nil), n.entries...)
	peers := append([]string(nil), n.peers...)
	n.mu.Unlock()

	timer := metrics.NewTimer()
	for _, peer := range peers {
		reply, err := n.transport.SendAppendEntries(peer, AppendEntriesArgs{Term: term, LeaderID: leaderID, Log: entries})
		if err != nil {
			continue
		}
		if reply.Term > term {
			n.stepDown(reply.Term)
			return
		}
	}
	timer.ObserveDuration(metrics.RaftAppendEntriesDuration)
}

// stepDown reverts to Follower at a higher observed term, stopping the
// heartbeat loop if this node was leading.
func (n *Node) stepDown(term uint64) {
	n.mu.Lock()
	wasLeader := n.role == Leader
	leaderStop := n.leaderStop
	n.becomeFollowerLocked(term)
	n.mu.Unlock()

	if wasLeader && leaderStop != nil {
		close(leaderStop)
	}
	n.setRoleMetric(Follower)
	n.publishRoleChange("follower")
	n.notifyResetElection()
}

// becomeFollowerLocked must be called with n.mu held.
func (n *Node) becomeFollowerLocked(term uint64) {
	if term > n.currentTerm {
		n.currentTerm = term
		n.votedFor = ""
		n.persistTermVoteLocked()
	}
	n.role = Follower
}

// AppendCommand appends cmd to the log under the current term and applies
// it immediately (single-node commit semantics: a real multi-node cluster
// would wait for majority ack before advancing commit_index). Valid only
// on the Leader.
func (n *Node) AppendCommand(cmd string) error {
	n.mu.Lock()
	if n.role != Leader {
		n.mu.Unlock()
		return ErrNotLeader
	}
	entry := LogEntry{Term: n.currentTerm, Command: cmd}
	n.entries = append(n.entries, entry)
	n.persistLogLocked()
	n.commitIndex = uint64(len(n.entries))
	commitIndex := n.commitIndex
	n.mu.Unlock()

	metrics.RaftCommitIndex.Set(float64(commitIndex))

	if n.apply != nil {
		if err := n.apply(cmd); err != nil {
			return err
		}
	}
	metrics.RaftAppliedIndex.Set(float64(commitIndex))
	return nil
}

// HandleRequestVote processes an incoming vote request from a candidate.
func (n *Node) HandleRequestVote(args RequestVoteArgs) RequestVoteReply {
	n.mu.Lock()

	if args.Term > n.currentTerm {
		n.becomeFollowerLocked(args.Term)
	}

	granted := false
	if args.Term == n.currentTerm && (n.votedFor == "" || n.votedFor == args.CandidateID) {
		n.votedFor = args.CandidateID
		n.persistTermVoteLocked()
		granted = true
	}
	term := n.currentTerm
	n.mu.Unlock()

	if granted {
		n.notifyResetElection()
	}
	return RequestVoteReply{Term: term, Granted: granted}
}

// HandleAppendEntries processes an incoming heartbeat/log-broadcast from a
// leader, replacing this node's entire log with the leader's.
func (n *Node) HandleAppendEntries(args AppendEntriesArgs) AppendEntriesReply {
	n.mu.Lock()
	if args.Term < n.currentTerm {
		term := n.currentTerm
		n.mu.Unlock()
		return AppendEntriesReply{Term: term}
	}

	wasLeader := n.role == Leader
	leaderStop := n.leaderStop
	n.becomeFollowerLocked(args.Term)
	n.currentLeader = args.LeaderID

	oldCommit := n.commitIndex
	n.entries = append([]LogEntry(nil), args.Log...)
	n.persistLogLocked()
	n.commitIndex = uint64(len(n.entries))

	var toApply []LogEntry
	if n.commitIndex > oldCommit && oldCommit <= uint64(len(n.entries)) {
		toApply = append(toApply, n.entries[oldCommit:n.commitIndex]...)
	}
	term := n.currentTerm
	commitIndex := n.commitIndex
	n.mu.Unlock()

	if wasLeader && leaderStop != nil {
		close(leaderStop)
	}
	n.notifyResetElection()

	for _, e := range toApply {
		if n.apply != nil {
			n.apply(e.Command)
		}
	}
	metrics.RaftCommitIndex.Set(float64(commitIndex))
	metrics.RaftAppliedIndex.Set(float64(commitIndex))

	return AppendEntriesReply{Term: term}
}

// HandleInstallSnapshot replaces this node's log wholesale with a leader's
// snapshot, used to bring a far-behind follower current after compaction.
func (n *Node) HandleInstallSnapshot(args InstallSnapshotArgs) InstallSnapshotReply {
	n.mu.Lock()
	if args.Term < n.currentTerm {
		term := n.currentTerm
		n.mu.Unlock()
		return InstallSnapshotReply{Term: term}
	}

	n.becomeFollowerLocked(args.Term)
	n.currentLeader = args.LeaderID
	n.entries = nil
	n.snapshotIndex = args.SnapshotIndex
	n.snapshotTerm = args.SnapshotTerm
	n.commitIndex = args.SnapshotIndex
	n.persistLogLocked()
	term := n.currentTerm
	n.mu.Unlock()

	n.notifyResetElection()
	metrics.RaftCommitIndex.Set(float64(args.SnapshotIndex))
	metrics.RaftAppliedIndex.Set(float64(args.SnapshotIndex))
	return InstallSnapshotReply{Term: term}
}

// Compact discards the first upToIndex retained log entries (1-based
// indexes 1 through upToIndex, i.e. 0-based positions < upToIndex),
// recording the discarded span in the snapshot index so followers too far
// behind can be told to install a snapshot instead of replaying from scratch.
func (n *Node) Compact(upToIndex uint64) {
	n.mu.Lock()
	defer n.mu.Unlock()

	if upToIndex == 0 || upToIndex > uint64(len(n.entries)) {
		return
	}
	n.snapshotIndex += upToIndex
	if len(n.entries) > 0 {
		n.snapshotTerm = n.entries[upToIndex-1].Term
	}
	n.entries = n.entries[upToIndex:]
	n.persistLogLocked()
}

func (n *Node) persistTermVoteLocked() {
	_ = n.stable.SetUint64([]byte(stableKeyCurrentTerm), n.currentTerm)
	_ = n.stable.Set([]byte(stableKeyVotedFor), []byte(n.votedFor))
}

func (n *Node) persistLogLocked() {
	if last, err := n.logStore.LastIndex(); err == nil && last > 0 {
		_ = n.logStore.DeleteRange(1, last)
	}
	if len(n.entries) == 0 {
		return
	}
	_ = n.logStore.StoreLogs(toRaftLogs(n.entries))
}

func (n *Node) setRoleMetric(r Role) {
	if r == Leader {
		metrics.RaftIsLeader.Set(1)
	} else {
		metrics.RaftIsLeader.Set(0)
	}
	metrics.RaftTerm.Set(float64(n.Term()))
}

func (n *Node) publishRoleChange(role string) {
	n.mu.Lock()
	broker := n.broker
	n.mu.Unlock()

	if broker == nil {
		return
	}
	broker.Publish(&events.Event{
		Type:     events.EventRaftRoleChange,
		Message:  n.id + " became " + role,
		Metadata: map[string]string{"node_id": n.id, "role": role},
	})
}
