package repair

import (
	"sync"
	"time"

	"github.com/JacobBorden/SimpliDFS-sub000/pkg/events"
	"github.com/JacobBorden/SimpliDFS-sub000/pkg/log"
	"github.com/JacobBorden/SimpliDFS-sub000/pkg/metrics"
	"github.com/JacobBorden/SimpliDFS-sub000/pkg/types"
	"github.com/rs/zerolog"
)

// DefaultInterval is the worker's tick period.
const DefaultInterval = 5 * time.Second

// DefaultReplicationFactor is R, the target number of replicas per file.
const DefaultReplicationFactor = 3

// InodeSource is the slice of the metadata authority the repair worker
// needs: enumerate partial inodes, and add a replica once a repair
// candidate has been chosen. The authority implements this.
type InodeSource interface {
	PartialInodes() []types.InodeEntry
	AddReplica(filename string, node types.NodeID) error
}

// HealthChecker supplies the set of currently-healthy nodes.
type HealthChecker interface {
	HealthyNodes() []string
}

// Replicator is invoked once per newly chosen replica, copying filename
// from source to target. It is free to be a no-op in tests.
type Replicator func(filename string, source, target types.NodeID)

// Worker drives replica repair: each tick (or each Run call) it brings
// every partial inode back up to ReplicationFactor where healthy
// candidates exist.
type Worker struct {
	inodes     InodeSource
	checker    HealthChecker
	replicate  Replicator
	logger     zerolog.Logger
	broker     *events.Broker
	interval   time.Duration
	replFactor int

	stopCh    chan struct{}
	wg        sync.WaitGroup
	startOnce sync.Once
	stopOnce  sync.Once
}

// New creates a Worker with DefaultInterval and DefaultReplicationFactor.
func New(inodes InodeSource, checker HealthChecker, replicate Replicator) *Worker {
	return NewWithConfig(inodes, checker, replicate, DefaultInterval, DefaultReplicationFactor)
}

// NewWithConfig creates a Worker with explicit tick interval and
// replication factor.
func NewWithConfig(inodes InodeSource, checker HealthChecker, replicate Replicator, interval time.Duration, replFactor int) *Worker {
	return &Worker{
		inodes:     inodes,
		checker:    checker,
		replicate:  replicate,
		logger:     log.WithComponent("repair"),
		interval:   interval,
		replFactor: replFactor,
		stopCh:     make(chan struct{}),
	}
}

// SetBroker attaches a broker that repair lifecycle events publish to.
func (w *Worker) SetBroker(b *events.Broker) { w.broker = b }

// Start begins the repair loop on its own goroutine. Further calls are
// no-ops.
func (w *Worker) Start() {
	w.startOnce.Do(func() {
		w.wg.Add(1)
		go w.run()
	})
}

// Stop signals the loop to exit and joins it. Further calls are no-ops.
func (w *Worker) Stop() {
	w.stopOnce.Do(func() { close(w.stopCh) })
	w.wg.Wait()
}

func (w *Worker) run() {
	defer w.wg.Done()

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			w.RunOnce()
		case <-w.stopCh:
			return
		}
	}
}

// RunOnce executes a single repair pass without starting the loop.
func (w *Worker) RunOnce() {
	for _, entry := range w.inodes.PartialInodes() {
		w.repairOne(entry)
	}
}

func (w *Worker) repairOne(entry types.InodeEntry) {
	if len(entry.Replicas) >= w.replFactor {
		return
	}

	if w.broker != nil {
		w.broker.Publish(&events.Event{
			Type:     events.EventRepairStarted,
			Message:  "repairing " + entry.Filename,
			Metadata: map[string]string{"file": entry.Filename},
		})
	}

	// source is only a label for the replicator callback: spec §4.8 drives
	// repair off healthy candidate targets, not a healthy existing replica,
	// so its absence must never abort the pass.
	source := w.healthySource(entry)
	if source == "" {
		w.logger.Warn().Str("file", entry.Filename).Msg("no healthy existing replica; repairing without a copy source label")
	}

	candidates := w.candidates(entry, 2*w.replFactor)
	if len(candidates) == 0 {
		metrics.RepairsFailedTotal.Inc()
		if w.broker != nil {
			w.broker.Publish(&events.Event{
				Type:     events.EventRepairFailed,
				Message:  "no healthy candidate nodes for " + entry.Filename,
				Metadata: map[string]string{"file": entry.Filename},
			})
		}
		return
	}

	need := w.replFactor - len(entry.Replicas)
	for _, candidate := range candidates {
		if need <= 0 {
			break
		}
		if err := w.inodes.AddReplica(entry.Filename, candidate); err != nil {
			w.logger.Error().Err(err).Str("file", entry.Filename).Str("node", string(candidate)).Msg("add replica failed")
			continue
		}
		w.replicate(entry.Filename, source, candidate)
		metrics.RepairsCompletedTotal.Inc()
		if w.broker != nil {
			w.broker.Publish(&events.Event{
				Type:     events.EventRepairComplete,
				Message:  "repaired " + entry.Filename + " onto " + string(candidate),
				Metadata: map[string]string{"file": entry.Filename, "node_id": string(candidate)},
			})
		}
		need--
	}
}

// healthySource picks the first existing replica currently reporting
// ALIVE, used as the copy source for the replicator callback.
func (w *Worker) healthySource(entry types.InodeEntry) types.NodeID {
	alive := make(map[string]struct{})
	for _, id := range w.checker.HealthyNodes() {
		alive[id] = struct{}{}
	}
	for _, id := range entry.Replicas {
		if _, ok := alive[string(id)]; ok {
			return id
		}
	}
	return ""
}

// candidates returns up to max healthy node IDs not already hosting
// entry, in the health cache's iteration order.
func (w *Worker) candidates(entry types.InodeEntry, max int) []types.NodeID {
	var out []types.NodeID
	for _, id := range w.checker.HealthyNodes() {
		if len(out) >= max {
			break
		}
		nid := types.NodeID(id)
		if entry.HasReplica(nid) {
			continue
		}
		out = append(out, nid)
	}
	return out
}
