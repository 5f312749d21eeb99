package authority

import "github.com/JacobBorden/SimpliDFS-sub000/pkg/types"

// Inodes returns a snapshot of every known inode entry, satisfying
// verifier.InodeSource.
func (a *Authority) Inodes() []types.InodeEntry {
	a.mu.Lock()
	defer a.mu.Unlock()

	out := make([]types.InodeEntry, 0, len(a.inodes))
	for _, entry := range a.inodes {
		out = append(out, *entry)
	}
	return out
}

// MarkPartial flips an inode's partial flag, satisfying
// verifier.InodeSource. A filename that no longer exists is a no-op: the
// verifier may race a concurrent remove_file.
func (a *Authority) MarkPartial(filename string, partial bool) {
	a.mu.Lock()
	defer a.mu.Unlock()

	entry, ok := a.inodes[filename]
	if !ok {
		return
	}
	if entry.Partial == partial {
		return
	}
	entry.Partial = partial
	if partial {
		a.publishPartial(filename)
	}
}

// PartialInodes returns a snapshot of every inode currently flagged
// partial, satisfying repair.InodeSource.
func (a *Authority) PartialInodes() []types.InodeEntry {
	a.mu.Lock()
	defer a.mu.Unlock()

	var out []types.InodeEntry
	for _, entry := range a.inodes {
		if entry.Partial {
			out = append(out, *entry)
		}
	}
	return out
}

// AddReplica appends node to filename's replica list if it isn't already
// present, satisfying repair.InodeSource. Once the replica count reaches
// the authority's configured replication factor the partial flag clears.
func (a *Authority) AddReplica(filename string, node types.NodeID) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	entry, ok := a.inodes[filename]
	if !ok {
		return errFileNotFound(filename)
	}
	if entry.HasReplica(node) {
		return nil
	}
	entry.Replicas = append(entry.Replicas, node)
	if len(entry.Replicas) >= a.replFactor {
		entry.Partial = false
	}
	a.persistLocked()
	return nil
}

// HealthyNodes returns the IDs of every node currently marked alive in the
// registry, satisfying repair.HealthChecker for deployments that want
// repair to consult the authority's own heartbeat-driven liveness rather
// than a separately wired health.Cache.
func (a *Authority) HealthyNodes() []string {
	a.mu.Lock()
	defer a.mu.Unlock()

	var out []string
	for id, node := range a.nodes {
		if node.Alive {
			out = append(out, string(id))
		}
	}
	return out
}
