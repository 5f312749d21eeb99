package authority

import (
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/JacobBorden/SimpliDFS-sub000/pkg/events"
	"github.com/JacobBorden/SimpliDFS-sub000/pkg/log"
	"github.com/JacobBorden/SimpliDFS-sub000/pkg/metrics"
	"github.com/JacobBorden/SimpliDFS-sub000/pkg/types"
	"github.com/rs/zerolog"
)

// DefaultReplicationFactor is R, the number of replicas add_file tries to
// place for a newly created file.
const DefaultReplicationFactor = 3

// DefaultNodeTimeout is how long a node may go without a heartbeat before
// tick_liveness marks it not-alive.
const DefaultNodeTimeout = 30 * time.Second

// Authority is the metadata authority: the process-wide owner of the node
// registry and inode table. All mutators are serialized through mu; readers
// take a consistent snapshot per call.
type Authority struct {
	mu sync.Mutex

	nodes  map[types.NodeID]*types.NodeRegistration
	inodes map[string]*types.InodeEntry
	data   map[string][]byte

	replFactor  int
	nodeTimeout time.Duration
	clock       func() time.Time

	logger  zerolog.Logger
	broker  *events.Broker
	dataDir string
}

// New creates an Authority with DefaultReplicationFactor and
// DefaultNodeTimeout.
func New() *Authority {
	return NewWithConfig(DefaultReplicationFactor, DefaultNodeTimeout, time.Now)
}

// NewWithConfig creates an Authority with an explicit replication factor,
// node heartbeat timeout, and clock (the clock hook exists for deterministic
// tick_liveness tests).
func NewWithConfig(replFactor int, nodeTimeout time.Duration, clock func() time.Time) *Authority {
	return &Authority{
		nodes:       make(map[types.NodeID]*types.NodeRegistration),
		inodes:      make(map[string]*types.InodeEntry),
		data:        make(map[string][]byte),
		replFactor:  replFactor,
		nodeTimeout: nodeTimeout,
		clock:       clock,
		logger:      log.WithComponent("authority"),
	}
}

// SetBroker attaches a broker that file.partial notifications publish to.
func (a *Authority) SetBroker(b *events.Broker) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.broker = b
}

// SetDataDir enables autosave: every mutating operation below persists the
// inode table and node registry to dir afterward. Leaving this unset (the
// default, and what every test in this package uses) keeps the authority
// purely in-memory.
func (a *Authority) SetDataDir(dir string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.dataDir = dir
}

// persistLocked saves to a.dataDir if one is configured. Callers must hold
// a.mu. Failures are logged, not returned: a save failure must not unwind a
// mutation that has already taken effect in memory.
func (a *Authority) persistLocked() {
	if a.dataDir == "" {
		return
	}
	if err := a.saveFileMetadata(filepath.Join(a.dataDir, FileMetadataName)); err != nil {
		a.logger.Error().Err(err).Msg("autosave: file metadata write failed")
		return
	}
	if err := a.saveNodeRegistry(filepath.Join(a.dataDir, NodeRegistryName)); err != nil {
		a.logger.Error().Err(err).Msg("autosave: node registry write failed")
	}
}

// RegisterNode inserts or updates a node's registry entry, stamping both
// timestamps and marking it alive.
func (a *Authority) RegisterNode(id types.NodeID, host string, port int) types.ErrorCode {
	a.mu.Lock()
	defer a.mu.Unlock()

	now := a.clock()
	a.nodes[id] = &types.NodeRegistration{
		ID:            id,
		Host:          host,
		Port:          port,
		RegisteredAt:  now,
		LastHeartbeat: now,
		Alive:         true,
	}
	a.logger.Info().Str("node_id", string(id)).Str("address", host).Msg("node registered")
	a.persistLocked()
	return types.Success
}

// Heartbeat refreshes a node's last-heartbeat timestamp and marks it alive.
// A heartbeat from an unregistered node is logged and otherwise ignored,
// matching the original metaserver's behavior.
func (a *Authority) Heartbeat(id types.NodeID) types.ErrorCode {
	a.mu.Lock()
	defer a.mu.Unlock()

	node, ok := a.nodes[id]
	if !ok {
		metrics.NodeHeartbeatsTotal.WithLabelValues(string(id), "unregistered").Inc()
		a.logger.Warn().Str("node_id", string(id)).Msg("heartbeat from unregistered node")
		return types.ENOENT
	}

	node.LastHeartbeat = a.clock()
	node.Alive = true
	metrics.NodeHeartbeatsTotal.WithLabelValues(string(id), "ok").Inc()
	a.persistLocked()
	return types.Success
}

// TickLiveness scans every registered node; any whose last heartbeat is
// older than nodeTimeout is marked not-alive and every file it hosts is
// flagged partial, so the repair worker picks it up on its next pass.
// It returns the filenames it flagged.
func (a *Authority) TickLiveness() []string {
	a.mu.Lock()
	defer a.mu.Unlock()

	now := a.clock()
	var redistributed []string
	timedOut := false

	for id, node := range a.nodes {
		if !node.Alive {
			continue
		}
		if now.Sub(node.LastHeartbeat) <= a.nodeTimeout {
			continue
		}
		node.Alive = false
		timedOut = true
		a.logger.Warn().Str("node_id", string(id)).Msg("node timed out, marked not alive")

		for filename, entry := range a.inodes {
			if entry.Partial || !entry.HasReplica(id) {
				continue
			}
			entry.Partial = true
			redistributed = append(redistributed, filename)
			a.publishPartial(filename)
		}
	}
	if timedOut {
		a.persistLocked()
	}
	return redistributed
}

// AddFile creates a new inode, placing up to replFactor replicas on ALIVE
// nodes (preferring preferredNodes in order, then any other ALIVE node). It
// fails with ENOSPC only if zero ALIVE nodes exist; fewer than replFactor
// ALIVE nodes is a logged warning, not a failure.
func (a *Authority) AddFile(filename string, preferredNodes []types.NodeID, mode uint32) types.ErrorCode {
	a.mu.Lock()
	defer a.mu.Unlock()

	if _, exists := a.inodes[filename]; exists {
		return types.EEXIST
	}

	replicas := a.placeReplicas(preferredNodes, a.replFactor)
	if len(replicas) == 0 {
		return types.ENOSPC
	}
	if len(replicas) < a.replFactor {
		a.logger.Warn().Str("file", filename).Int("got", len(replicas)).Int("want", a.replFactor).Msg("placed file with fewer than desired replicas")
	}

	a.inodes[filename] = &types.InodeEntry{
		Filename: filename,
		Replicas: replicas,
		Mode:     mode,
		Size:     0,
	}
	a.data[filename] = nil
	a.persistLocked()
	return types.Success
}

// placeReplicas picks up to count distinct ALIVE nodes, preferring the
// caller's hints (in order) before falling back to any other ALIVE node in
// ID order.
func (a *Authority) placeReplicas(preferred []types.NodeID, count int) []types.NodeID {
	chosen := make([]types.NodeID, 0, count)
	used := make(map[types.NodeID]bool, count)

	for _, id := range preferred {
		if len(chosen) >= count {
			break
		}
		node, ok := a.nodes[id]
		if !ok || !node.Alive || used[id] {
			continue
		}
		chosen = append(chosen, id)
		used[id] = true
	}

	if len(chosen) < count {
		var rest []types.NodeID
		for id, node := range a.nodes {
			if !node.Alive || used[id] {
				continue
			}
			rest = append(rest, id)
		}
		sort.Slice(rest, func(i, j int) bool { return rest[i] < rest[j] })
		for _, id := range rest {
			if len(chosen) >= count {
				break
			}
			chosen = append(chosen, id)
			used[id] = true
		}
	}

	return chosen
}

// RemoveFile deletes filename from the inode table and its in-memory
// content, returning false if it was absent.
func (a *Authority) RemoveFile(filename string) bool {
	a.mu.Lock()
	defer a.mu.Unlock()

	if _, ok := a.inodes[filename]; !ok {
		return false
	}
	delete(a.inodes, filename)
	delete(a.data, filename)
	a.persistLocked()
	return true
}

// GetAttributes returns a file's mode/uid/gid/size. uid and gid are
// design-placeholders (always zero); there is no ownership model yet.
func (a *Authority) GetAttributes(filename string) (mode, uid, gid uint32, size int64, errCode types.ErrorCode) {
	a.mu.Lock()
	defer a.mu.Unlock()

	entry, ok := a.inodes[filename]
	if !ok {
		return 0, 0, 0, 0, types.ENOENT
	}
	return entry.Mode, entry.UID, entry.GID, entry.Size, types.Success
}

// ListFiles returns every known filename, in unspecified order.
func (a *Authority) ListFiles() []string {
	a.mu.Lock()
	defer a.mu.Unlock()

	out := make([]string, 0, len(a.inodes))
	for filename := range a.inodes {
		out = append(out, filename)
	}
	return out
}

// CheckAccess reports whether filename exists; the access mask itself is a
// design-placeholder, granted unconditionally once the file exists.
func (a *Authority) CheckAccess(filename string, mask uint32) types.ErrorCode {
	a.mu.Lock()
	defer a.mu.Unlock()

	if _, ok := a.inodes[filename]; !ok {
		return types.ENOENT
	}
	return types.Success
}

// OpenFile reports whether filename exists; flags are accepted but not
// currently enforced.
func (a *Authority) OpenFile(filename string, flags uint32) types.ErrorCode {
	a.mu.Lock()
	defer a.mu.Unlock()

	if _, ok := a.inodes[filename]; !ok {
		return types.ENOENT
	}
	return types.Success
}

// ReadFileData reads up to size bytes starting at offset, clamped to the
// file's recorded size. Reading past end-of-file returns zero bytes, not an
// error.
func (a *Authority) ReadFileData(filename string, offset, size int64) (data []byte, bytesRead int64, errCode types.ErrorCode) {
	a.mu.Lock()
	defer a.mu.Unlock()

	entry, ok := a.inodes[filename]
	if !ok {
		return nil, 0, types.ENOENT
	}
	if offset < 0 || offset >= entry.Size {
		return []byte{}, 0, types.Success
	}

	end := offset + size
	if end > entry.Size {
		end = entry.Size
	}
	content := a.data[filename]
	if end > int64(len(content)) {
		end = int64(len(content))
	}
	if offset > end {
		return []byte{}, 0, types.Success
	}

	out := make([]byte, end-offset)
	copy(out, content[offset:end])
	return out, int64(len(out)), types.Success
}

// WriteFileData writes data at offset, extending the file's recorded size
// to max(old size, offset+len(data)).
func (a *Authority) WriteFileData(filename string, offset int64, data []byte) (bytesWritten int64, errCode types.ErrorCode) {
	a.mu.Lock()
	defer a.mu.Unlock()

	entry, ok := a.inodes[filename]
	if !ok {
		return 0, types.ENOENT
	}
	if offset < 0 {
		return 0, types.EINVAL
	}

	needed := offset + int64(len(data))
	content := a.data[filename]
	if needed > int64(len(content)) {
		grown := make([]byte, needed)
		copy(grown, content)
		content = grown
	}
	copy(content[offset:], data)
	a.data[filename] = content

	if needed > entry.Size {
		entry.Size = needed
	}
	return int64(len(data)), types.Success
}

// RenameFileEntry moves a filename to a new name, rekeying the inode table
// and file content together. ENOENT if old is absent, EEXIST if new is
// already taken.
func (a *Authority) RenameFileEntry(oldName, newName string) types.ErrorCode {
	a.mu.Lock()
	defer a.mu.Unlock()

	entry, ok := a.inodes[oldName]
	if !ok {
		return types.ENOENT
	}
	if _, exists := a.inodes[newName]; exists {
		return types.EEXIST
	}

	entry.Filename = newName
	a.inodes[newName] = entry
	delete(a.inodes, oldName)

	a.data[newName] = a.data[oldName]
	delete(a.data, oldName)
	a.persistLocked()
	return types.Success
}

func (a *Authority) publishPartial(filename string) {
	if a.broker == nil {
		return
	}
	a.broker.Publish(&events.Event{
		Type:     events.EventFilePartial,
		Message:  "file marked partial: " + filename,
		Metadata: map[string]string{"file": filename},
	})
}
