package main

import (
	"encoding/base64"
	"fmt"
	"strconv"
	"strings"

	"github.com/JacobBorden/SimpliDFS-sub000/pkg/authority"
	"github.com/JacobBorden/SimpliDFS-sub000/pkg/types"
)

// The Raft log replicates opaque command strings; this file is the only
// place that gives them a grammar. Each command is a verb followed by
// pipe-delimited fields, the same delimiter style the wire payload already
// uses. A field that might itself contain arbitrary bytes (write's data) is
// base64-encoded so it can never collide with the '|' separator or the
// log's own "term:command;" framing — in particular a command must never
// contain a literal ';', since that's what separates log records.
const (
	cmdAddFile      = "ADDFILE"
	cmdRemoveFile   = "REMOVEFILE"
	cmdWrite        = "WRITE"
	cmdRename       = "RENAME"
	cmdRegisterNode = "REGISTER"
	cmdHeartbeat    = "HEARTBEAT"
)

func encodeAddFile(filename string, preferred []types.NodeID, mode uint32) string {
	ids := make([]string, len(preferred))
	for i, id := range preferred {
		ids[i] = string(id)
	}
	return strings.Join([]string{cmdAddFile, filename, strconv.FormatUint(uint64(mode), 10), strings.Join(ids, ",")}, "|")
}

func encodeRemoveFile(filename string) string {
	return strings.Join([]string{cmdRemoveFile, filename}, "|")
}

func encodeWrite(filename string, offset int64, data []byte) string {
	return strings.Join([]string{cmdWrite, filename, strconv.FormatInt(offset, 10), base64.StdEncoding.EncodeToString(data)}, "|")
}

func encodeRename(oldName, newName string) string {
	return strings.Join([]string{cmdRename, oldName, newName}, "|")
}

func encodeRegisterNode(id types.NodeID, host string, port int) string {
	return strings.Join([]string{cmdRegisterNode, string(id), host, strconv.Itoa(port)}, "|")
}

func encodeHeartbeat(id types.NodeID) string {
	return strings.Join([]string{cmdHeartbeat, string(id)}, "|")
}

// applyTo returns the apply callback a raftnode.Node commits entries
// through: it parses cmd's verb and dispatches to the one authority mutator
// that verb names. Every field has already gone through the encode* helpers
// above, so a malformed command here means local corruption, not a hostile
// peer. Such a command makes the callback return an error: on the leader,
// AppendCommand passes it back to the handler, which logs it and replies
// EIO; on a follower, HandleAppendEntries discards it.
func applyTo(auth *authority.Authority) func(string) error {
	return func(cmd string) error {
		fields := strings.Split(cmd, "|")
		if len(fields) == 0 {
			return fmt.Errorf("simplidfsd: empty command")
		}

		switch fields[0] {
		case cmdAddFile:
			if len(fields) != 4 {
				return fmt.Errorf("simplidfsd: malformed %s command", cmdAddFile)
			}
			mode, err := strconv.ParseUint(fields[2], 10, 32)
			if err != nil {
				return fmt.Errorf("simplidfsd: malformed %s mode: %w", cmdAddFile, err)
			}
			var preferred []types.NodeID
			if fields[3] != "" {
				for _, id := range strings.Split(fields[3], ",") {
					preferred = append(preferred, types.NodeID(id))
				}
			}
			auth.AddFile(fields[1], preferred, uint32(mode))
			return nil

		case cmdRemoveFile:
			if len(fields) != 2 {
				return fmt.Errorf("simplidfsd: malformed %s command", cmdRemoveFile)
			}
			auth.RemoveFile(fields[1])
			return nil

		case cmdWrite:
			if len(fields) != 4 {
				return fmt.Errorf("simplidfsd: malformed %s command", cmdWrite)
			}
			offset, err := strconv.ParseInt(fields[2], 10, 64)
			if err != nil {
				return fmt.Errorf("simplidfsd: malformed %s offset: %w", cmdWrite, err)
			}
			data, err := base64.StdEncoding.DecodeString(fields[3])
			if err != nil {
				return fmt.Errorf("simplidfsd: malformed %s data: %w", cmdWrite, err)
			}
			auth.WriteFileData(fields[1], offset, data)
			return nil

		case cmdRename:
			if len(fields) != 3 {
				return fmt.Errorf("simplidfsd: malformed %s command", cmdRename)
			}
			auth.RenameFileEntry(fields[1], fields[2])
			return nil

		case cmdRegisterNode:
			if len(fields) != 4 {
				return fmt.Errorf("simplidfsd: malformed %s command", cmdRegisterNode)
			}
			port, err := strconv.Atoi(fields[3])
			if err != nil {
				return fmt.Errorf("simplidfsd: malformed %s port: %w", cmdRegisterNode, err)
			}
			auth.RegisterNode(types.NodeID(fields[1]), fields[2], port)
			return nil

		case cmdHeartbeat:
			if len(fields) != 2 {
				return fmt.Errorf("simplidfsd: malformed %s command", cmdHeartbeat)
			}
			auth.Heartbeat(types.NodeID(fields[1]))
			return nil

		default:
			return fmt.Errorf("simplidfsd: unknown command verb %q", fields[0])
		}
	}
}
