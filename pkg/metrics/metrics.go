package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Cluster health metrics
	NodesByState = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "simplidfs_nodes_by_state",
			Help: "Total number of registered nodes by health state (alive/suspect/dead)",
		},
		[]string{"state"},
	)

	NodeHeartbeatsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "simplidfs_node_heartbeats_total",
			Help: "Total heartbeats received, by node and outcome",
		},
		[]string{"node_id", "outcome"},
	)

	// Raft metrics
	RaftIsLeader = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "simplidfs_raft_is_leader",
			Help: "Whether this node believes itself the Raft leader (1 = leader, 0 = not)",
		},
	)

	RaftTerm = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "simplidfs_raft_term",
			Help: "Current Raft term observed by this node",
		},
	)

	RaftCommitIndex = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "simplidfs_raft_commit_index",
			Help: "Highest Raft log index known committed",
		},
	)

	RaftAppliedIndex = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "simplidfs_raft_applied_index",
			Help: "Highest Raft log index applied to the metadata authority",
		},
	)

	RaftElectionsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "simplidfs_raft_elections_total",
			Help: "Total number of elections this node has started as a candidate",
		},
	)

	RaftAppendEntriesDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "simplidfs_raft_append_entries_duration_seconds",
			Help:    "Time to broadcast and commit one append_command round",
			Buckets: prometheus.DefBuckets,
		},
	)

	// Replica / chunk-store metrics
	ReplicaHealthy = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "simplidfs_replica_healthy",
			Help: "Whether a file's replica set currently verifies clean (1) or not (0)",
		},
		[]string{"file"},
	)

	ReplicaVerifyFailuresTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "simplidfs_replica_verify_failures_total",
			Help: "Total replica verification failures by reason",
		},
		[]string{"reason"},
	)

	RepairsCompletedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "simplidfs_repairs_completed_total",
			Help: "Total number of successful replica repairs",
		},
	)

	RepairsFailedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "simplidfs_repairs_failed_total",
			Help: "Total number of repair attempts that found no healthy candidate node",
		},
	)

	ChunkStoreTotal = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "simplidfs_chunkstore_chunks_total",
			Help: "Total number of chunks currently held by the local chunk store",
		},
	)

	ChunkStoreReclaimedBytesTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "simplidfs_chunkstore_reclaimed_bytes_total",
			Help: "Total bytes freed by chunk store garbage collection",
		},
	)

	// Audit log metrics
	AuditVerifyFailuresTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "simplidfs_audit_verify_failures_total",
			Help: "Total number of times the audit hash chain failed background verification",
		},
	)

	AuditEventsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "simplidfs_audit_events_total",
			Help: "Total audit events recorded, by type",
		},
		[]string{"type"},
	)

	// Transport metrics
	RequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "simplidfs_requests_total",
			Help: "Total requests handled by the framed transport server, by message type and error code",
		},
		[]string{"message_type", "error_code"},
	)

	RequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "simplidfs_request_duration_seconds",
			Help:    "Request handling duration in seconds, by message type",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"message_type"},
	)
)

func init() {
	prometheus.MustRegister(NodesByState)
	prometheus.MustRegister(NodeHeartbeatsTotal)
	prometheus.MustRegister(RaftIsLeader)
	prometheus.MustRegister(RaftTerm)
	prometheus.MustRegister(RaftCommitIndex)
	prometheus.MustRegister(RaftAppliedIndex)
	prometheus.MustRegister(RaftElectionsTotal)
	prometheus.MustRegister(RaftAppendEntriesDuration)
	prometheus.MustRegister(ReplicaHealthy)
	prometheus.MustRegister(ReplicaVerifyFailuresTotal)
	prometheus.MustRegister(RepairsCompletedTotal)
	prometheus.MustRegister(RepairsFailedTotal)
	prometheus.MustRegister(ChunkStoreTotal)
	prometheus.MustRegister(ChunkStoreReclaimedBytesTotal)
	prometheus.MustRegister(AuditVerifyFailuresTotal)
	prometheus.MustRegister(AuditEventsTotal)
	prometheus.MustRegister(RequestsTotal)
	prometheus.MustRegister(RequestDuration)
}

// Handler returns the Prometheus HTTP handler. SimpliDFS never starts an
// HTTP server itself; callers mount this on whatever mux they expose.
func Handler() http.Handler {
	return promhttp.Handler()
}

// Timer is a helper for timing operations.
type Timer struct {
	start time.Time
}

// NewTimer creates a new timer.
func NewTimer() *Timer {
	return &Timer{start: time.Now()}
}

// ObserveDuration records the duration to a histogram.
func (t *Timer) ObserveDuration(histogram prometheus.Histogram) {
	duration := time.Since(t.start).Seconds()
	histogram.Observe(duration)
}

// ObserveDurationVec records the duration to a histogram vec with labels.
func (t *Timer) ObserveDurationVec(histogram prometheus.ObserverVec, labels ...string) {
	duration := time.Since(t.start).Seconds()
	histogram.WithLabelValues(labels...).Observe(duration)
}

// Duration returns the elapsed time since the timer started.
func (t *Timer) Duration() time.Duration {
	return time.Since(t.start)
}
