package chunkstore

import (
	"sync"

	"github.com/JacobBorden/SimpliDFS-sub000/pkg/digest"
	"github.com/JacobBorden/SimpliDFS-sub000/pkg/metrics"
)

// Stats summarizes the result of a GC pass.
type Stats struct {
	Total           int
	Reclaimable     int
	ReclaimableBytes int64
	Freed           int
	FreedBytes      int64
}

// Store is a content-addressed, in-memory chunk store. A single
// reader-writer mutex guards every operation, so GC is atomic with respect
// to concurrent Put/Get/Has.
type Store struct {
	mu     sync.RWMutex
	chunks map[string][]byte // CID -> bytes
}

// New creates an empty chunk store.
func New() *Store {
	return &Store{chunks: make(map[string][]byte)}
}

// Put hashes b, stores it if not already present, and returns its CID.
// Storing an existing CID is a no-op.
func (s *Store) Put(b []byte) string {
	d := digest.Hash(b)
	cid := digest.ToCID(d)

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.chunks[cid]; !ok {
		cp := make([]byte, len(b))
		copy(cp, b)
		s.chunks[cid] = cp
		metrics.ChunkStoreTotal.Set(float64(len(s.chunks)))
	}
	return cid
}

// Has reports whether cid is stored.
func (s *Store) Has(cid string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.chunks[cid]
	return ok
}

// Get returns the bytes stored under cid, if any.
func (s *Store) Get(cid string) ([]byte, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	b, ok := s.chunks[cid]
	if !ok {
		return nil, false
	}
	cp := make([]byte, len(b))
	copy(cp, b)
	return cp, true
}

// GC scans every stored chunk; those whose CID is absent from referenced
// are reclaimable. If dryRun is false, reclaimable chunks are deleted and
// Stats.Freed/FreedBytes report the deletion; otherwise only counted.
func (s *Store) GC(referenced map[string]struct{}, dryRun bool) Stats {
	s.mu.Lock()
	defer s.mu.Unlock()

	var stats Stats
	stats.Total = len(s.chunks)

	for cid, b := range s.chunks {
		if _, keep := referenced[cid]; keep {
			continue
		}
		stats.Reclaimable++
		stats.ReclaimableBytes += int64(len(b))
		if !dryRun {
			delete(s.chunks, cid)
			stats.Freed++
			stats.FreedBytes += int64(len(b))
		}
	}
	if !dryRun && stats.Freed > 0 {
		metrics.ChunkStoreReclaimedBytesTotal.Add(float64(stats.FreedBytes))
		metrics.ChunkStoreTotal.Set(float64(len(s.chunks)))
	}
	return stats
}
