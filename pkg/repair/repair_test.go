package repair

import (
	"testing"
	"time"

	"github.com/JacobBorden/SimpliDFS-sub000/pkg/authority"
	"github.com/JacobBorden/SimpliDFS-sub000/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeInodes struct {
	partial  []types.InodeEntry
	replicas map[string][]types.NodeID
}

func (f *fakeInodes) PartialInodes() []types.InodeEntry { return f.partial }

func (f *fakeInodes) AddReplica(filename string, node types.NodeID) error {
	if f.replicas == nil {
		f.replicas = make(map[string][]types.NodeID)
	}
	f.replicas[filename] = append(f.replicas[filename], node)
	return nil
}

type fakeHealth struct {
	healthy []string
}

func (f *fakeHealth) HealthyNodes() []string { return f.healthy }

func TestRunOnceRepairsUpToReplicationFactor(t *testing.T) {
	entry := types.InodeEntry{Filename: "a.txt", Replicas: []types.NodeID{"n1"}, Partial: true}
	inodes := &fakeInodes{partial: []types.InodeEntry{entry}}
	checker := &fakeHealth{healthy: []string{"n1", "n2", "n3", "n4"}}

	var calls [][3]string
	replicate := func(filename string, source, target types.NodeID) {
		calls = append(calls, [3]string{filename, string(source), string(target)})
	}

	w := NewWithConfig(inodes, checker, replicate, 0, 3)
	w.RunOnce()

	require.Len(t, calls, 2, "needs two more replicas to reach R=3")
	for _, c := range calls {
		assert.Equal(t, "a.txt", c[0])
		assert.Equal(t, "n1", c[1])
		assert.NotEqual(t, "n1", c[2])
	}
	assert.Len(t, inodes.replicas["a.txt"], 2)
}

func TestRunOnceSkipsFullyReplicatedInode(t *testing.T) {
	entry := types.InodeEntry{Filename: "a.txt", Replicas: []types.NodeID{"n1", "n2", "n3"}, Partial: false}
	inodes := &fakeInodes{partial: []types.InodeEntry{entry}}
	checker := &fakeHealth{healthy: []string{"n1", "n2", "n3", "n4"}}

	called := false
	w := NewWithConfig(inodes, checker, func(string, types.NodeID, types.NodeID) { called = true }, 0, 3)
	w.RunOnce()

	assert.False(t, called)
}

func TestRunOnceRepairsWhenOnlyExistingReplicaIsUnhealthy(t *testing.T) {
	// Only existing replica down, but healthy candidates exist: §4.8 drives
	// repair off healthy candidate targets, not a healthy existing replica,
	// so the pass must still proceed and reach full replication.
	entry := types.InodeEntry{Filename: "a.txt", Replicas: []types.NodeID{"n1"}, Partial: true}
	inodes := &fakeInodes{partial: []types.InodeEntry{entry}}
	checker := &fakeHealth{healthy: []string{"n2", "n3"}} // n1 (the only existing replica) is not healthy

	var targets []types.NodeID
	w := NewWithConfig(inodes, checker, func(_ string, _ types.NodeID, target types.NodeID) {
		targets = append(targets, target)
	}, 0, 3)
	w.RunOnce()

	assert.ElementsMatch(t, []types.NodeID{"n2", "n3"}, targets)
	assert.ElementsMatch(t, []types.NodeID{"n1", "n2", "n3"}, inodes.replicas["a.txt"])
}

func TestRunOnceOnlyReplicaUnhealthyClearsPartialViaAuthority(t *testing.T) {
	// End-to-end against the real authority (not the fake), matching §8(c):
	// the one existing replica is down, but repair still fills the file
	// back up to the replication factor and the authority clears partial
	// once it does.
	var now time.Time
	clock := func() time.Time { return now }
	now = time.Unix(1000, 0)

	auth := authority.NewWithConfig(3, 30*time.Second, clock)
	auth.RegisterNode("A", "10.0.0.1", 9000)
	require.Equal(t, types.Success, auth.AddFile("f.txt", []types.NodeID{"A"}, 0644))

	// A's heartbeat ages past the timeout while B and C register fresh at
	// the same later instant, so only A is the one that times out below.
	now = now.Add(31 * time.Second)
	auth.RegisterNode("B", "10.0.0.2", 9000)
	auth.RegisterNode("C", "10.0.0.3", 9000)

	redistributed := auth.TickLiveness()
	require.Equal(t, []string{"f.txt"}, redistributed)

	w := NewWithConfig(auth, auth, func(string, types.NodeID, types.NodeID) {}, 0, 3)
	w.RunOnce()

	entries := auth.Inodes()
	require.Len(t, entries, 1)
	assert.False(t, entries[0].Partial)
	assert.ElementsMatch(t, []types.NodeID{"A", "B", "C"}, entries[0].Replicas)
}

func TestRunOnceNoCandidatesSkipsRepair(t *testing.T) {
	entry := types.InodeEntry{Filename: "a.txt", Replicas: []types.NodeID{"n1"}, Partial: true}
	inodes := &fakeInodes{partial: []types.InodeEntry{entry}}
	checker := &fakeHealth{healthy: []string{"n1"}} // no other healthy node to repair onto

	called := false
	w := NewWithConfig(inodes, checker, func(string, types.NodeID, types.NodeID) { called = true }, 0, 3)
	w.RunOnce()

	assert.False(t, called)
}

func TestRunOnceExcludesExistingReplicasFromCandidates(t *testing.T) {
	entry := types.InodeEntry{Filename: "a.txt", Replicas: []types.NodeID{"n1", "n2"}, Partial: true}
	inodes := &fakeInodes{partial: []types.InodeEntry{entry}}
	checker := &fakeHealth{healthy: []string{"n1", "n2", "n3"}}

	var targets []types.NodeID
	w := NewWithConfig(inodes, checker, func(_ string, _ types.NodeID, target types.NodeID) {
		targets = append(targets, target)
	}, 0, 3)
	w.RunOnce()

	require.Len(t, targets, 1)
	assert.Equal(t, types.NodeID("n3"), targets[0])
}

func TestStartStopIdempotentJoin(t *testing.T) {
	inodes := &fakeInodes{}
	checker := &fakeHealth{}
	w := New(inodes, checker, func(string, types.NodeID, types.NodeID) {})
	w.Start()
	w.Start()
	w.Stop()
	w.Stop()
}
