// Package auditlog implements the tamper-evident, hash-chained event log
// over filesystem mutations: every event's hash commits to its predecessor,
// so any alteration to history is detectable by recomputing the chain.
package auditlog
