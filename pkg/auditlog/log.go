package auditlog

import (
	"strconv"
	"sync"
	"time"

	"github.com/JacobBorden/SimpliDFS-sub000/pkg/digest"
	"github.com/JacobBorden/SimpliDFS-sub000/pkg/events"
	"github.com/JacobBorden/SimpliDFS-sub000/pkg/types"
)

// Log is an append-only, hash-chained event log. A single mutex serializes
// appends and reads; events() always returns an immutable snapshot, never a
// live reference into the internal slice.
//
// Clock is injected rather than read from time.Now() directly so that chain
// recomputation in tests is deterministic.
type Log struct {
	mu     sync.Mutex
	events []types.AuditEvent
	clock  func() time.Time
	broker *events.Broker
}

// SetBroker attaches a broker that append notifications publish to. A nil
// broker (the default) disables publishing.
func (l *Log) SetBroker(b *events.Broker) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.broker = b
}

// New creates an empty audit log using the wall clock.
func New() *Log {
	return &Log{clock: time.Now}
}

// NewWithClock creates an empty audit log using an injected clock, for
// deterministic tests.
func NewWithClock(clock func() time.Time) *Log {
	return &Log{clock: clock}
}

var (
	globalOnce sync.Once
	global     *Log
)

// Global returns the process-wide audit log singleton, initializing it on
// first use.
func Global() *Log {
	globalOnce.Do(func() {
		global = New()
	})
	return global
}

func (l *Log) record(eventType types.AuditEventType, file string) types.AuditEvent {
	l.mu.Lock()
	defer l.mu.Unlock()

	var prevHash string
	if n := len(l.events); n > 0 {
		prevHash = l.events[n-1].Hash
	}

	ts := l.clock().Unix()
	ev := types.AuditEvent{
		Type:      eventType,
		File:      file,
		Timestamp: ts,
		PrevHash:  prevHash,
	}
	ev.Hash = computeHash(prevHash, eventType, file, ts)
	l.events = append(l.events, ev)

	if l.broker != nil {
		l.broker.Publish(&events.Event{
			Type:     events.EventAuditAppended,
			Message:  string(eventType) + " " + file,
			Metadata: map[string]string{"file": file, "type": string(eventType)},
		})
	}
	return ev
}

// RecordCreate appends a CREATE event for file.
func (l *Log) RecordCreate(file string) types.AuditEvent { return l.record(types.AuditCreate, file) }

// RecordWrite appends a WRITE event for file.
func (l *Log) RecordWrite(file string) types.AuditEvent { return l.record(types.AuditWrite, file) }

// RecordDelete appends a DELETE event for file.
func (l *Log) RecordDelete(file string) types.AuditEvent { return l.record(types.AuditDelete, file) }

// Events returns an immutable snapshot of the log in append order.
func (l *Log) Events() []types.AuditEvent {
	l.mu.Lock()
	defer l.mu.Unlock()

	snap := make([]types.AuditEvent, len(l.events))
	copy(snap, l.events)
	return snap
}

// Verify recomputes every event's hash from its fields and prev_hash,
// returning false at the first mismatch (including a broken prev_hash
// chain).
func (l *Log) Verify() bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	var prevHash string
	for _, ev := range l.events {
		if ev.PrevHash != prevHash {
			return false
		}
		if computeHash(ev.PrevHash, ev.Type, ev.File, ev.Timestamp) != ev.Hash {
			return false
		}
		prevHash = ev.Hash
	}
	return true
}

// Clear discards all events. Test-only: production code paths must never
// call this, since the log is meant to be append-only and tamper-evident.
func (l *Log) Clear() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.events = nil
}

func computeHash(prevHash string, eventType types.AuditEventType, file string, ts int64) string {
	buf := prevHash + string(eventType) + file + strconv.FormatInt(ts, 10)
	return digest.ToCID(digest.Hash([]byte(buf)))
}
