package raftnode

import (
	"strconv"
	"strings"

	"github.com/hashicorp/raft"
)

// LogEntry is one committed-or-not command paired with the term it was
// appended under — the unit replicated by full-log broadcast.
type LogEntry struct {
	Term    uint64
	Command string
}

// SerializeLog encodes entries as "term:command;term:command;..." per
// spec.md §4.10, with no further framing: each heartbeat carries this
// string as the AppendEntries payload.
func SerializeLog(entries []LogEntry) string {
	var b strings.Builder
	for _, e := range entries {
		b.WriteString(strconv.FormatUint(e.Term, 10))
		b.WriteByte(':')
		b.WriteString(e.Command)
		b.WriteByte(';')
	}
	return b.String()
}

// ParseLog decodes a SerializeLog string back into entries. A malformed
// record is dropped rather than aborting the whole parse, so one corrupt
// record can't wedge replication of the rest of the log.
func ParseLog(s string) []LogEntry {
	var entries []LogEntry
	for _, rec := range strings.Split(s, ";") {
		if rec == "" {
			continue
		}
		termStr, cmd, ok := strings.Cut(rec, ":")
		if !ok {
			continue
		}
		term, err := strconv.ParseUint(termStr, 10, 64)
		if err != nil {
			continue
		}
		entries = append(entries, LogEntry{Term: term, Command: cmd})
	}
	return entries
}

// toRaftLogs converts entries to hashicorp/raft's Log type for persistence
// through raft-boltdb's BoltStore, indexing them 1-based by position.
func toRaftLogs(entries []LogEntry) []*raft.Log {
	logs := make([]*raft.Log, len(entries))
	for i, e := range entries {
		logs[i] = &raft.Log{
			Index: uint64(i + 1),
			Term:  e.Term,
			Type:  raft.LogCommand,
			Data:  []byte(e.Command),
		}
	}
	return logs
}

func fromRaftLog(l *raft.Log) LogEntry {
	return LogEntry{Term: l.Term, Command: string(l.Data)}
}
