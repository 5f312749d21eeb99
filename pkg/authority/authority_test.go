package authority

import (
	"testing"
	"time"

	"github.com/JacobBorden/SimpliDFS-sub000/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestAuthority(now time.Time) (*Authority, *time.Time) {
	clock := now
	a := NewWithConfig(3, 30*time.Second, func() time.Time { return clock })
	return a, &clock
}

func TestRegisterNodeThenHeartbeatSucceeds(t *testing.T) {
	a, _ := newTestAuthority(time.Unix(1000, 0))
	require.Equal(t, types.Success, a.RegisterNode("n1", "10.0.0.1", 9000))
	require.Equal(t, types.Success, a.Heartbeat("n1"))
}

func TestHeartbeatFromUnregisteredNodeReturnsENOENT(t *testing.T) {
	a, _ := newTestAuthority(time.Unix(1000, 0))
	assert.Equal(t, types.ENOENT, a.Heartbeat("ghost"))
}

func TestAddFilePlacesUpToReplicationFactor(t *testing.T) {
	a, _ := newTestAuthority(time.Unix(1000, 0))
	for _, id := range []types.NodeID{"n1", "n2", "n3", "n4"} {
		a.RegisterNode(id, "10.0.0.1", 9000)
	}

	require.Equal(t, types.Success, a.AddFile("a.txt", nil, 0644))
	entries := a.Inodes()
	require.Len(t, entries, 1)
	assert.Len(t, entries[0].Replicas, 3)
}

func TestAddFilePrefersHintedNodes(t *testing.T) {
	a, _ := newTestAuthority(time.Unix(1000, 0))
	for _, id := range []types.NodeID{"n1", "n2", "n3", "n4"} {
		a.RegisterNode(id, "10.0.0.1", 9000)
	}

	require.Equal(t, types.Success, a.AddFile("a.txt", []types.NodeID{"n4"}, 0644))
	entries := a.Inodes()
	require.Len(t, entries, 1)
	assert.Contains(t, entries[0].Replicas, types.NodeID("n4"))
}

func TestAddFileDuplicateReturnsEEXIST(t *testing.T) {
	a, _ := newTestAuthority(time.Unix(1000, 0))
	a.RegisterNode("n1", "10.0.0.1", 9000)
	require.Equal(t, types.Success, a.AddFile("a.txt", nil, 0644))
	assert.Equal(t, types.EEXIST, a.AddFile("a.txt", nil, 0644))
}

func TestAddFileNoLiveNodesReturnsENOSPC(t *testing.T) {
	a, _ := newTestAuthority(time.Unix(1000, 0))
	assert.Equal(t, types.ENOSPC, a.AddFile("a.txt", nil, 0644))
}

func TestAddFileFewerThanReplicationFactorStillSucceeds(t *testing.T) {
	a, _ := newTestAuthority(time.Unix(1000, 0))
	a.RegisterNode("n1", "10.0.0.1", 9000)

	require.Equal(t, types.Success, a.AddFile("a.txt", nil, 0644))
	entries := a.Inodes()
	require.Len(t, entries, 1)
	assert.Len(t, entries[0].Replicas, 1)
}

func TestRemoveFileDeletesEntry(t *testing.T) {
	a, _ := newTestAuthority(time.Unix(1000, 0))
	a.RegisterNode("n1", "10.0.0.1", 9000)
	a.AddFile("a.txt", nil, 0644)

	assert.True(t, a.RemoveFile("a.txt"))
	assert.False(t, a.RemoveFile("a.txt"))
}

func TestGetAttributesMissingReturnsENOENT(t *testing.T) {
	a, _ := newTestAuthority(time.Unix(1000, 0))
	_, _, _, _, errCode := a.GetAttributes("missing.txt")
	assert.Equal(t, types.ENOENT, errCode)
}

func TestWriteThenReadRoundTrips(t *testing.T) {
	a, _ := newTestAuthority(time.Unix(1000, 0))
	a.RegisterNode("n1", "10.0.0.1", 9000)
	require.Equal(t, types.Success, a.AddFile("a.txt", nil, 0644))

	written, errCode := a.WriteFileData("a.txt", 0, []byte("hello"))
	require.Equal(t, types.Success, errCode)
	assert.EqualValues(t, 5, written)

	data, read, errCode := a.ReadFileData("a.txt", 0, 5)
	require.Equal(t, types.Success, errCode)
	assert.EqualValues(t, 5, read)
	assert.Equal(t, "hello", string(data))

	_, _, _, size, _ := a.GetAttributes("a.txt")
	assert.EqualValues(t, 5, size)
}

func TestReadPastEndOfFileReturnsZeroBytesNotError(t *testing.T) {
	a, _ := newTestAuthority(time.Unix(1000, 0))
	a.RegisterNode("n1", "10.0.0.1", 9000)
	a.AddFile("a.txt", nil, 0644)
	a.WriteFileData("a.txt", 0, []byte("hi"))

	data, read, errCode := a.ReadFileData("a.txt", 10, 5)
	require.Equal(t, types.Success, errCode)
	assert.EqualValues(t, 0, read)
	assert.Empty(t, data)
}

func TestWriteFileDataNegativeOffsetIsEINVAL(t *testing.T) {
	a, _ := newTestAuthority(time.Unix(1000, 0))
	a.RegisterNode("n1", "10.0.0.1", 9000)
	a.AddFile("a.txt", nil, 0644)

	written, errCode := a.WriteFileData("a.txt", -1, []byte("hello"))
	assert.Equal(t, types.EINVAL, errCode)
	assert.EqualValues(t, 0, written)
}

func TestWriteExtendsSizeAtOffset(t *testing.T) {
	a, _ := newTestAuthority(time.Unix(1000, 0))
	a.RegisterNode("n1", "10.0.0.1", 9000)
	a.AddFile("a.txt", nil, 0644)

	a.WriteFileData("a.txt", 0, []byte("hello"))
	a.WriteFileData("a.txt", 10, []byte("world"))

	_, _, _, size, _ := a.GetAttributes("a.txt")
	assert.EqualValues(t, 15, size)
}

func TestRenameFileEntryMovesInodeAndContent(t *testing.T) {
	a, _ := newTestAuthority(time.Unix(1000, 0))
	a.RegisterNode("n1", "10.0.0.1", 9000)
	a.AddFile("old.txt", nil, 0644)
	a.WriteFileData("old.txt", 0, []byte("hi"))

	require.Equal(t, types.Success, a.RenameFileEntry("old.txt", "new.txt"))
	assert.Equal(t, types.ENOENT, a.CheckAccess("old.txt", 0))

	data, _, errCode := a.ReadFileData("new.txt", 0, 2)
	require.Equal(t, types.Success, errCode)
	assert.Equal(t, "hi", string(data))
}

func TestRenameFileEntryMissingOldReturnsENOENT(t *testing.T) {
	a, _ := newTestAuthority(time.Unix(1000, 0))
	assert.Equal(t, types.ENOENT, a.RenameFileEntry("missing.txt", "new.txt"))
}

func TestRenameFileEntryExistingNewReturnsEEXIST(t *testing.T) {
	a, _ := newTestAuthority(time.Unix(1000, 0))
	a.RegisterNode("n1", "10.0.0.1", 9000)
	a.AddFile("old.txt", nil, 0644)
	a.AddFile("new.txt", nil, 0644)

	assert.Equal(t, types.EEXIST, a.RenameFileEntry("old.txt", "new.txt"))
}

func TestTickLivenessMarksTimedOutNodeAndFlagsItsFiles(t *testing.T) {
	a, clock := newTestAuthority(time.Unix(1000, 0))
	a.RegisterNode("n1", "10.0.0.1", 9000)
	a.AddFile("a.txt", nil, 0644)

	*clock = clock.Add(31 * time.Second)
	redistributed := a.TickLiveness()

	assert.Equal(t, []string{"a.txt"}, redistributed)
	entries := a.PartialInodes()
	require.Len(t, entries, 1)
	assert.True(t, entries[0].Partial)
	assert.NotContains(t, a.HealthyNodes(), "n1")
}

func TestTickLivenessWithinTimeoutLeavesNodeAlive(t *testing.T) {
	a, clock := newTestAuthority(time.Unix(1000, 0))
	a.RegisterNode("n1", "10.0.0.1", 9000)

	*clock = clock.Add(10 * time.Second)
	a.TickLiveness()

	assert.Contains(t, a.HealthyNodes(), "n1")
}

func TestAddReplicaClearsPartialAtReplicationFactor(t *testing.T) {
	a, _ := newTestAuthority(time.Unix(1000, 0))
	a.RegisterNode("n1", "10.0.0.1", 9000)
	a.AddFile("a.txt", nil, 0644)
	a.MarkPartial("a.txt", true)

	require.NoError(t, a.AddReplica("a.txt", "n2"))
	require.NoError(t, a.AddReplica("a.txt", "n3"))

	entries := a.Inodes()
	require.Len(t, entries, 1)
	assert.False(t, entries[0].Partial)
	assert.Len(t, entries[0].Replicas, 3)
}

func TestAddReplicaIsIdempotent(t *testing.T) {
	a, _ := newTestAuthority(time.Unix(1000, 0))
	a.RegisterNode("n1", "10.0.0.1", 9000)
	a.AddFile("a.txt", nil, 0644)

	require.NoError(t, a.AddReplica("a.txt", "n1"))
	entries := a.Inodes()
	assert.Len(t, entries[0].Replicas, 1)
}
