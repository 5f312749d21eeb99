package health

import (
	"sync"
	"time"

	"github.com/JacobBorden/SimpliDFS-sub000/pkg/events"
	"github.com/JacobBorden/SimpliDFS-sub000/pkg/metrics"
)

// State is a node's position in the ALIVE/SUSPECT/DEAD hysteresis machine.
type State int

const (
	Alive State = iota
	Suspect
	Dead
)

func (s State) String() string {
	switch s {
	case Alive:
		return "alive"
	case Suspect:
		return "suspect"
	case Dead:
		return "dead"
	default:
		return "unknown"
	}
}

// Default thresholds, per the cluster health tracking defaults.
const (
	DefaultFailureThreshold = 2
	DefaultSuccessThreshold = 3
	DefaultRecoveryCooldown = 15 * time.Second
)

type nodeRecord struct {
	state       State
	failures    int
	successes   int
	lastChange  time.Time
	lastFailure time.Time
}

// Cache tracks every known node's health state. A node ID never seen
// before is reported as Alive with zeroed counters — the zero value of
// nodeRecord already encodes that, so lookups for unknown IDs never
// allocate an entry until the first event is recorded against them.
//
// Clock is injected rather than read from time.Now() directly so cooldown
// behavior is deterministic in tests.
type Cache struct {
	mu sync.Mutex

	failThreshold int
	successThresh int
	cooldown      time.Duration
	clock         func() time.Time
	broker        *events.Broker

	nodes map[string]*nodeRecord
}

// SetBroker attaches a broker that state transitions are published to. A
// nil broker (the default) disables publishing.
func (c *Cache) SetBroker(b *events.Broker) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.broker = b
}

// New creates a Cache using the default thresholds and the wall clock.
func New() *Cache {
	return NewWithConfig(DefaultFailureThreshold, DefaultSuccessThreshold, DefaultRecoveryCooldown, time.Now)
}

// NewWithConfig creates a Cache with explicit thresholds and clock, for
// tests or non-default deployments.
func NewWithConfig(failThreshold, successThreshold int, cooldown time.Duration, clock func() time.Time) *Cache {
	return &Cache{
		failThreshold: failThreshold,
		successThresh: successThreshold,
		cooldown:      cooldown,
		clock:         clock,
		nodes:         make(map[string]*nodeRecord),
	}
}

func (c *Cache) recordFor(id string) *nodeRecord {
	rec, ok := c.nodes[id]
	if !ok {
		now := c.clock()
		rec = &nodeRecord{state: Alive, lastChange: now}
		c.nodes[id] = rec
		metrics.NodesByState.WithLabelValues(Alive.String()).Inc()
	}
	return rec
}

func (c *Cache) setState(id string, rec *nodeRecord, s State, now time.Time) {
	if rec.state == s {
		return
	}
	metrics.NodesByState.WithLabelValues(rec.state.String()).Dec()
	rec.state = s
	rec.lastChange = now
	metrics.NodesByState.WithLabelValues(s.String()).Inc()

	if c.broker != nil {
		c.broker.Publish(&events.Event{
			Type:     stateEventType(s),
			Message:  "node " + id + " is now " + s.String(),
			Metadata: map[string]string{"node_id": id},
		})
	}
}

func stateEventType(s State) events.EventType {
	switch s {
	case Alive:
		return events.EventNodeAlive
	case Suspect:
		return events.EventNodeSuspect
	default:
		return events.EventNodeDead
	}
}

// RecordSuccess reports a successful heartbeat/probe for id and advances
// the state machine accordingly.
func (c *Cache) RecordSuccess(id string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	rec := c.recordFor(id)
	now := c.clock()
	rec.successes++
	rec.failures = 0

	switch rec.state {
	case Alive:
		// already healthy, nothing to do beyond the streak bookkeeping above
	case Suspect:
		if rec.successes >= c.successThresh {
			c.setState(id, rec, Alive, now)
			rec.successes = 0
		}
	case Dead:
		if now.Sub(rec.lastFailure) >= c.cooldown && rec.successes >= c.successThresh {
			c.setState(id, rec, Alive, now)
			rec.successes = 0
		}
	}
}

// RecordFailure reports a failed heartbeat/probe for id and advances the
// state machine accordingly.
func (c *Cache) RecordFailure(id string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	rec := c.recordFor(id)
	now := c.clock()
	rec.failures++
	rec.successes = 0
	rec.lastFailure = now

	if rec.failures >= c.failThreshold {
		c.setState(id, rec, Dead, now)
		rec.failures = 0
		return
	}

	if rec.state == Alive {
		c.setState(id, rec, Suspect, now)
	}
}

// State returns id's current health state. An ID never recorded against
// defaults to Alive.
func (c *Cache) State(id string) State {
	c.mu.Lock()
	defer c.mu.Unlock()

	rec, ok := c.nodes[id]
	if !ok {
		return Alive
	}
	return rec.state
}

// HealthyNodes returns the IDs of every node currently in the Alive state,
// in no particular order.
func (c *Cache) HealthyNodes() []string {
	c.mu.Lock()
	defer c.mu.Unlock()

	var out []string
	for id, rec := range c.nodes {
		if rec.state == Alive {
			out = append(out, id)
		}
	}
	return out
}

// Snapshot returns a copy of every known node's current state.
func (c *Cache) Snapshot() map[string]State {
	c.mu.Lock()
	defer c.mu.Unlock()

	out := make(map[string]State, len(c.nodes))
	for id, rec := range c.nodes {
		out[id] = rec.state
	}
	return out
}

var (
	globalOnce sync.Once
	global     *Cache
)

// Global returns the process-wide node health cache singleton.
func Global() *Cache {
	globalOnce.Do(func() {
		global = New()
	})
	return global
}
