package health

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestUnknownNodeDefaultsToAlive(t *testing.T) {
	c := New()
	assert.Equal(t, Alive, c.State("never-seen"))
	assert.Empty(t, c.Snapshot())
}

func TestAliveToSuspectOnSingleFailure(t *testing.T) {
	now := time.Unix(0, 0)
	c := NewWithConfig(2, 3, 15*time.Second, func() time.Time { return now })

	c.RecordFailure("n1")
	assert.Equal(t, Suspect, c.State("n1"))
}

func TestTwoFailuresGoDirectlyDead(t *testing.T) {
	now := time.Unix(0, 0)
	c := NewWithConfig(2, 3, 15*time.Second, func() time.Time { return now })

	c.RecordFailure("n1")
	c.RecordFailure("n1")
	assert.Equal(t, Dead, c.State("n1"))
}

// TestDeadToAliveRequiresCooldownAndSuccessStreak reproduces the canonical
// scenario: with defaults (F=2, S=3, cooldown=15s), fail/fail drives a node
// dead; waiting out the cooldown and then recording three successes brings
// it back to alive.
func TestDeadToAliveRequiresCooldownAndSuccessStreak(t *testing.T) {
	now := time.Unix(0, 0)
	c := NewWithConfig(DefaultFailureThreshold, DefaultSuccessThreshold, DefaultRecoveryCooldown, func() time.Time { return now })

	c.RecordFailure("n1")
	c.RecordFailure("n1")
	assert.Equal(t, Dead, c.State("n1"))

	now = now.Add(15 * time.Second)

	c.RecordSuccess("n1")
	c.RecordSuccess("n1")
	assert.Equal(t, Dead, c.State("n1"), "should not promote before the third success")

	c.RecordSuccess("n1")
	assert.Equal(t, Alive, c.State("n1"))
}

func TestDeadSuccessBeforeCooldownDoesNotPromote(t *testing.T) {
	now := time.Unix(0, 0)
	c := NewWithConfig(2, 3, 15*time.Second, func() time.Time { return now })

	c.RecordFailure("n1")
	c.RecordFailure("n1")
	assert.Equal(t, Dead, c.State("n1"))

	now = now.Add(5 * time.Second)
	c.RecordSuccess("n1")
	c.RecordSuccess("n1")
	c.RecordSuccess("n1")
	assert.Equal(t, Dead, c.State("n1"), "cooldown has not elapsed, so three successes must not promote")
}

func TestSuspectToAliveRequiresSuccessStreak(t *testing.T) {
	now := time.Unix(0, 0)
	c := NewWithConfig(3, 2, 15*time.Second, func() time.Time { return now })

	c.RecordFailure("n1")
	assert.Equal(t, Suspect, c.State("n1"))

	c.RecordSuccess("n1")
	assert.Equal(t, Suspect, c.State("n1"))

	c.RecordSuccess("n1")
	assert.Equal(t, Alive, c.State("n1"))
}

func TestFailureResetsSuccessStreak(t *testing.T) {
	now := time.Unix(0, 0)
	c := NewWithConfig(3, 3, 15*time.Second, func() time.Time { return now })

	c.RecordFailure("n1")
	c.RecordSuccess("n1")
	c.RecordSuccess("n1")
	c.RecordFailure("n1")
	c.RecordSuccess("n1")
	c.RecordSuccess("n1")
	// only two consecutive successes since the last failure: still suspect
	assert.Equal(t, Suspect, c.State("n1"))
}

func TestHealthyNodesOnlyListsAlive(t *testing.T) {
	now := time.Unix(0, 0)
	c := NewWithConfig(2, 3, 15*time.Second, func() time.Time { return now })

	c.RecordSuccess("alive-node")
	c.RecordFailure("dead-node")
	c.RecordFailure("dead-node")
	c.RecordFailure("suspect-node")

	healthy := c.HealthyNodes()
	assert.Contains(t, healthy, "alive-node")
	assert.NotContains(t, healthy, "dead-node")
	assert.NotContains(t, healthy, "suspect-node")
}

func TestSnapshotReflectsAllKnownNodes(t *testing.T) {
	now := time.Unix(0, 0)
	c := NewWithConfig(2, 3, 15*time.Second, func() time.Time { return now })

	c.RecordSuccess("n1")
	c.RecordFailure("n2")

	snap := c.Snapshot()
	assert.Equal(t, Alive, snap["n1"])
	assert.Equal(t, Suspect, snap["n2"])
}

func TestGlobalReturnsSingleton(t *testing.T) {
	assert.Same(t, Global(), Global())
}
