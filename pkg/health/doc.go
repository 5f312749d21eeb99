// Package health implements the cluster-wide node health cache: a
// hysteretic ALIVE/SUSPECT/DEAD state machine keyed by node ID, consulted
// by repair and verification to decide which nodes are safe targets.
// Replica placement in the metadata authority uses the node registry's own
// alive flag instead.
//
// Transitions follow a failure threshold F_th and success threshold S_th,
// with a cooldown before a DEAD node is eligible for recovery:
//
//	ALIVE   --failure (streak < F_th)-->        SUSPECT
//	ALIVE/SUSPECT --failure (streak >= F_th)--> DEAD (failure streak reset)
//	SUSPECT --success (streak >= S_th)-->       ALIVE (success streak reset)
//	DEAD    --success, cooldown not elapsed-->  DEAD (no promotion)
//	DEAD    --success, cooldown elapsed
//	          and success streak >= S_th-->     ALIVE (success streak reset)
//
// A node ID never seen before defaults to ALIVE with zeroed counters, so a
// newly joined node is immediately schedulable.
package health
