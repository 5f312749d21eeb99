package raftnode

import (
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	raftboltdb "github.com/hashicorp/raft-boltdb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeNetwork routes a fakeTransport's RPCs directly to the target Node's
// handler methods, so election/replication tests don't need a real wire.
type fakeNetwork struct {
	mu    sync.Mutex
	nodes map[string]*Node
}

func newFakeNetwork() *fakeNetwork {
	return &fakeNetwork{nodes: make(map[string]*Node)}
}

func (f *fakeNetwork) register(id string, n *Node) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nodes[id] = n
}

func (f *fakeNetwork) get(id string) (*Node, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	n, ok := f.nodes[id]
	return n, ok
}

type fakeTransport struct {
	net *fakeNetwork
}

func (t *fakeTransport) SendRequestVote(peer string, req RequestVoteArgs) (RequestVoteReply, error) {
	target, ok := t.net.get(peer)
	if !ok {
		return RequestVoteReply{}, errors.New("no such peer: " + peer)
	}
	return target.HandleRequestVote(req), nil
}

func (t *fakeTransport) SendAppendEntries(peer string, req AppendEntriesArgs) (AppendEntriesReply, error) {
	target, ok := t.net.get(peer)
	if !ok {
		return AppendEntriesReply{}, errors.New("no such peer: " + peer)
	}
	return target.HandleAppendEntries(req), nil
}

func (t *fakeTransport) SendInstallSnapshot(peer string, req InstallSnapshotArgs) (InstallSnapshotReply, error) {
	target, ok := t.net.get(peer)
	if !ok {
		return InstallSnapshotReply{}, errors.New("no such peer: " + peer)
	}
	return target.HandleInstallSnapshot(req), nil
}

func newTestStores(t *testing.T, name string) (*raftboltdb.BoltStore, *raftboltdb.BoltStore) {
	t.Helper()
	dir := t.TempDir()
	stable, err := raftboltdb.NewBoltStore(filepath.Join(dir, name+"-stable.db"))
	require.NoError(t, err)
	logs, err := raftboltdb.NewBoltStore(filepath.Join(dir, name+"-log.db"))
	require.NoError(t, err)
	return stable, logs
}

func newTestNode(t *testing.T, net *fakeNetwork, id string, peers []string, apply func(string) error) *Node {
	t.Helper()
	stable, logs := newTestStores(t, id)
	n := NewWithConfig(id, peers, &fakeTransport{net: net}, apply, stable, logs, 150*time.Millisecond, 300*time.Millisecond, 50*time.Millisecond, int64(len(id)+1))
	net.register(id, n)
	return n
}

func TestNewNodeStartsAsFollowerAtTermZero(t *testing.T) {
	net := newFakeNetwork()
	n := newTestNode(t, net, "n1", nil, nil)

	assert.Equal(t, Follower, n.Role())
	assert.EqualValues(t, 0, n.Term())
}

func TestSingleNodeElectsItself(t *testing.T) {
	net := newFakeNetwork()
	n := newTestNode(t, net, "n1", nil, nil)

	n.StartElection()

	assert.Equal(t, Leader, n.Role())
	assert.EqualValues(t, 1, n.Term())
}

func TestThreeNodeClusterElectsExactlyOneLeader(t *testing.T) {
	net := newFakeNetwork()
	n1 := newTestNode(t, net, "n1", []string{"n2", "n3"}, nil)
	newTestNode(t, net, "n2", []string{"n1", "n3"}, nil)
	newTestNode(t, net, "n3", []string{"n1", "n2"}, nil)

	n1.StartElection()

	leaders := 0
	for _, id := range []string{"n1", "n2", "n3"} {
		node, _ := net.get(id)
		if node.Role() == Leader {
			leaders++
		}
	}
	assert.Equal(t, 1, leaders)
	assert.Equal(t, Leader, n1.Role())
}

func TestVoteIsGrantedOnceThenWithheldInSameTerm(t *testing.T) {
	net := newFakeNetwork()
	n1 := newTestNode(t, net, "n1", []string{"n2"}, nil)
	newTestNode(t, net, "n2", []string{"n1"}, nil)

	reply1 := n1.HandleRequestVote(RequestVoteArgs{Term: 1, CandidateID: "n2"})
	assert.True(t, reply1.Granted)

	// a different candidate in the same term must be refused
	reply2 := n1.HandleRequestVote(RequestVoteArgs{Term: 1, CandidateID: "n3"})
	assert.False(t, reply2.Granted)

	// the same candidate asking again in the same term is still granted
	reply3 := n1.HandleRequestVote(RequestVoteArgs{Term: 1, CandidateID: "n2"})
	assert.True(t, reply3.Granted)
}

func TestHigherTermVoteRequestRevertsLeaderToFollower(t *testing.T) {
	net := newFakeNetwork()
	n1 := newTestNode(t, net, "n1", nil, nil)
	n1.StartElection()
	require.Equal(t, Leader, n1.Role())

	reply := n1.HandleRequestVote(RequestVoteArgs{Term: 5, CandidateID: "n2"})

	assert.True(t, reply.Granted)
	assert.Equal(t, Follower, n1.Role())
	assert.EqualValues(t, 5, n1.Term())
}

func TestAppendEntriesFromHigherTermStepsDownLeader(t *testing.T) {
	net := newFakeNetwork()
	n1 := newTestNode(t, net, "n1", nil, nil)
	n1.StartElection()
	require.Equal(t, Leader, n1.Role())

	reply := n1.HandleAppendEntries(AppendEntriesArgs{Term: 9, LeaderID: "n2"})

	assert.EqualValues(t, 9, reply.Term)
	assert.Equal(t, Follower, n1.Role())
	assert.Equal(t, "n2", n1.LeaderID())
}

func TestAppendEntriesFromStaleTermIsRejected(t *testing.T) {
	net := newFakeNetwork()
	n1 := newTestNode(t, net, "n1", nil, nil)
	n1.StartElection() // term 1, leader

	reply := n1.HandleAppendEntries(AppendEntriesArgs{Term: 0, LeaderID: "intruder"})

	assert.EqualValues(t, 1, reply.Term)
	assert.Equal(t, Leader, n1.Role())
}

func TestAppendEntriesReplacesWholeLogAndAppliesNewSuffix(t *testing.T) {
	net := newFakeNetwork()
	var applied []string
	var mu sync.Mutex
	apply := func(cmd string) error {
		mu.Lock()
		applied = append(applied, cmd)
		mu.Unlock()
		return nil
	}
	n1 := newTestNode(t, net, "n1", nil, apply)

	n1.HandleAppendEntries(AppendEntriesArgs{
		Term:     1,
		LeaderID: "leader",
		Log:      []LogEntry{{Term: 1, Command: "a"}, {Term: 1, Command: "b"}},
	})

	mu.Lock()
	got := append([]string(nil), applied...)
	mu.Unlock()
	assert.Equal(t, []string{"a", "b"}, got)
	assert.EqualValues(t, 2, n1.CommitIndex())
}

func TestAppendCommandOnlyValidOnLeader(t *testing.T) {
	net := newFakeNetwork()
	n1 := newTestNode(t, net, "n1", nil, nil)

	err := n1.AppendCommand("create a.txt")
	assert.ErrorIs(t, err, ErrNotLeader)
}

func TestAppendCommandAsLeaderCommitsAndApplies(t *testing.T) {
	net := newFakeNetwork()
	var applied []string
	apply := func(cmd string) error {
		applied = append(applied, cmd)
		return nil
	}
	n1 := newTestNode(t, net, "n1", nil, apply)
	n1.StartElection()
	require.Equal(t, Leader, n1.Role())

	require.NoError(t, n1.AppendCommand("create a.txt"))

	assert.Equal(t, []string{"create a.txt"}, applied)
	assert.EqualValues(t, 1, n1.CommitIndex())
}

func TestCompactDiscardsEntriesBeforeIndex(t *testing.T) {
	net := newFakeNetwork()
	n1 := newTestNode(t, net, "n1", nil, func(string) error { return nil })
	n1.StartElection()
	require.NoError(t, n1.AppendCommand("a"))
	require.NoError(t, n1.AppendCommand("b"))
	require.NoError(t, n1.AppendCommand("c"))

	n1.Compact(2)

	n1.mu.Lock()
	remaining := append([]LogEntry(nil), n1.entries...)
	snapshotIndex := n1.snapshotIndex
	n1.mu.Unlock()

	require.Len(t, remaining, 1)
	assert.Equal(t, "c", remaining[0].Command)
	assert.EqualValues(t, 2, snapshotIndex)
}

func TestInstallSnapshotReplacesLogAndSetsCommitIndex(t *testing.T) {
	net := newFakeNetwork()
	n1 := newTestNode(t, net, "n1", nil, nil)

	reply := n1.HandleInstallSnapshot(InstallSnapshotArgs{
		Term:          3,
		LeaderID:      "leader",
		SnapshotIndex: 10,
		SnapshotTerm:  2,
		Bytes:         []byte("snapshot-bytes"),
	})

	assert.EqualValues(t, 3, reply.Term)
	assert.EqualValues(t, 10, n1.CommitIndex())
	assert.Equal(t, "leader", n1.LeaderID())
}

func TestSerializeLogAndParseLogRoundTrip(t *testing.T) {
	entries := []LogEntry{{Term: 1, Command: "create a.txt"}, {Term: 2, Command: "write a.txt 0 5"}}
	s := SerializeLog(entries)
	assert.Equal(t, entries, ParseLog(s))
}

func TestParseLogSkipsMalformedRecords(t *testing.T) {
	got := ParseLog("1:ok;garbage;3:also-ok;")
	assert.Equal(t, []LogEntry{{Term: 1, Command: "ok"}, {Term: 3, Command: "also-ok"}}, got)
}

func TestStartStopIdempotentJoin(t *testing.T) {
	net := newFakeNetwork()
	n1 := newTestNode(t, net, "n1", nil, nil)
	n1.Start()
	n1.Stop()
}
