package verifier

import (
	"sync"
	"time"

	"github.com/JacobBorden/SimpliDFS-sub000/pkg/digest"
	"github.com/JacobBorden/SimpliDFS-sub000/pkg/health"
	"github.com/JacobBorden/SimpliDFS-sub000/pkg/log"
	"github.com/JacobBorden/SimpliDFS-sub000/pkg/metrics"
	"github.com/JacobBorden/SimpliDFS-sub000/pkg/types"
	"github.com/rs/zerolog"
)

// DefaultInterval is how often the background loop re-verifies every inode.
const DefaultInterval = 30 * time.Second

// Fetcher retrieves the current per-file hash a given node reports for
// filename. Errors (unreachable node, missing file) are logged and the
// replica is left out of the comparison, the same as a non-ALIVE replica.
type Fetcher func(id types.NodeID, filename string) (digest.Digest, error)

// InodeSource is the slice of the metadata authority the verifier needs:
// enough to enumerate inodes and flag one as partial. The authority
// implements this; verifier never reaches into the inode table directly,
// since the authority exclusively owns it.
type InodeSource interface {
	Inodes() []types.InodeEntry
	MarkPartial(filename string, partial bool)
}

// HealthChecker reports a node's current liveness state.
type HealthChecker interface {
	State(id string) health.State
}

// Verifier periodically re-validates replica agreement across the
// cluster. VerifyAll returns the number of inodes left partial by a pass;
// that count is not stored or exported as a metric.
type Verifier struct {
	inodes  InodeSource
	checker HealthChecker
	fetch   Fetcher
	logger  zerolog.Logger

	interval time.Duration
	stopCh   chan struct{}
	wg       sync.WaitGroup
}

// New creates a Verifier using DefaultInterval.
func New(inodes InodeSource, checker HealthChecker, fetch Fetcher) *Verifier {
	return NewWithInterval(inodes, checker, fetch, DefaultInterval)
}

// NewWithInterval creates a Verifier with an explicit tick interval.
func NewWithInterval(inodes InodeSource, checker HealthChecker, fetch Fetcher, interval time.Duration) *Verifier {
	return &Verifier{
		inodes:   inodes,
		checker:  checker,
		fetch:    fetch,
		logger:   log.WithComponent("verifier"),
		interval: interval,
		stopCh:   make(chan struct{}),
	}
}

// Start begins the periodic verification loop on its own goroutine.
func (v *Verifier) Start() {
	v.wg.Add(1)
	go v.run()
}

// Stop signals the loop to exit and waits for it to join.
func (v *Verifier) Stop() {
	close(v.stopCh)
	v.wg.Wait()
}

func (v *Verifier) run() {
	defer v.wg.Done()

	ticker := time.NewTicker(v.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			v.VerifyAll()
		case <-v.stopCh:
			return
		}
	}
}

// VerifyOne re-hashes filename's replicas and updates its partial flag and
// metrics. It returns true if the file verified healthy (at least one
// ALIVE replica, all ALIVE replicas agreeing).
func (v *Verifier) VerifyOne(entry types.InodeEntry) bool {
	var healthyHashes []digest.Digest
	for _, id := range entry.Replicas {
		if v.checker.State(string(id)) != health.Alive {
			continue
		}
		d, err := v.fetch(id, entry.Filename)
		if err != nil {
			v.logger.Warn().Err(err).Str("file", entry.Filename).Str("node", string(id)).Msg("fetch failed during verification")
			continue
		}
		healthyHashes = append(healthyHashes, d)
	}

	healthy := true
	reason := ""
	switch {
	case len(healthyHashes) == 0:
		healthy = false
		reason = "no_healthy_replicas"
	default:
		first := healthyHashes[0]
		for _, d := range healthyHashes[1:] {
			if d != first {
				healthy = false
				reason = "hash_mismatch"
				break
			}
		}
	}

	v.inodes.MarkPartial(entry.Filename, !healthy)

	if healthy {
		metrics.ReplicaHealthy.WithLabelValues(entry.Filename).Set(1)
	} else {
		metrics.ReplicaHealthy.WithLabelValues(entry.Filename).Set(0)
		metrics.ReplicaVerifyFailuresTotal.WithLabelValues(reason).Inc()
	}
	return healthy
}

// VerifyAll verifies every known inode and returns the number left
// partial after the pass.
func (v *Verifier) VerifyAll() int {
	pending := 0
	for _, entry := range v.inodes.Inodes() {
		if !v.VerifyOne(entry) {
			pending++
		}
	}
	return pending
}
