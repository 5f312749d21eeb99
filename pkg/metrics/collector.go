package metrics

import (
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// LivenessSource is the slice of *authority.Authority a Collector needs: a
// periodic sweep for nodes that have gone quiet past their heartbeat
// timeout. Declared here rather than imported from pkg/authority so this
// package never depends on it — pkg/authority depends on pkg/metrics, not
// the other way around.
type LivenessSource interface {
	TickLiveness() []string
}

// Collector runs the periodic liveness sweep that nothing else in the
// daemon calls on a schedule: heartbeats update a node's last-seen time as
// they arrive, but only a ticking sweep notices a node that has simply
// stopped sending them. Every other gauge this package exposes (NodesByState,
// the Raft gauges, ChunkStoreTotal, ...) is already set inline at the point
// of the event that changes it, so this is the one metric-adjacent job that
// needs its own clock.
type Collector struct {
	source LivenessSource
	period time.Duration
	logger zerolog.Logger
	stopCh chan struct{}
	wg     sync.WaitGroup
}

// DefaultCollectInterval matches the liveness timeout's usual scale: no
// point sweeping much faster than nodes could plausibly time out.
const DefaultCollectInterval = 10 * time.Second

// NewCollector creates a Collector that sweeps source for expired nodes
// every period.
func NewCollector(source LivenessSource, period time.Duration, logger zerolog.Logger) *Collector {
	return &Collector{
		source: source,
		period: period,
		logger: logger.With().Str("component", "metrics-collector").Logger(),
		stopCh: make(chan struct{}),
	}
}

// Start begins the background sweep.
func (c *Collector) Start() {
	c.wg.Add(1)
	go c.run()
}

// Stop halts the background sweep and waits for it to exit.
func (c *Collector) Stop() {
	close(c.stopCh)
	c.wg.Wait()
}

func (c *Collector) run() {
	defer c.wg.Done()

	ticker := time.NewTicker(c.period)
	defer ticker.Stop()

	c.collect()
	for {
		select {
		case <-ticker.C:
			c.collect()
		case <-c.stopCh:
			return
		}
	}
}

func (c *Collector) collect() {
	redistributed := c.source.TickLiveness()
	if len(redistributed) > 0 {
		c.logger.Warn().
			Strs("files", redistributed).
			Int("count", len(redistributed)).
			Msg("node liveness sweep flagged files as partial")
	}
}
