package main

import (
	"strconv"
	"strings"
	"time"

	"github.com/JacobBorden/SimpliDFS-sub000/pkg/authority"
	"github.com/JacobBorden/SimpliDFS-sub000/pkg/auditlog"
	"github.com/JacobBorden/SimpliDFS-sub000/pkg/chunkstore"
	"github.com/JacobBorden/SimpliDFS-sub000/pkg/health"
	"github.com/JacobBorden/SimpliDFS-sub000/pkg/keymanager"
	"github.com/JacobBorden/SimpliDFS-sub000/pkg/metrics"
	"github.com/JacobBorden/SimpliDFS-sub000/pkg/raftnode"
	"github.com/JacobBorden/SimpliDFS-sub000/pkg/repair"
	"github.com/JacobBorden/SimpliDFS-sub000/pkg/transport"
	"github.com/JacobBorden/SimpliDFS-sub000/pkg/types"
	"github.com/rs/zerolog"
)

// daemon bundles every component the wire handler dispatches against. It
// exists purely to give newHandler's closures a short, named receiver
// instead of a dozen captured variables.
type daemon struct {
	auth    *authority.Authority
	raft    *raftnode.Node
	health  *health.Cache
	chunks  *chunkstore.Store
	repair  *repair.Worker
	keys    *keymanager.KeyManager
	audit   *auditlog.Log
	logger  zerolog.Logger
}

// newHandler returns the transport.Handler simplidfsd serves every inbound
// connection with. Mutating file/node operations are only accepted when
// this node believes itself the Raft leader — replication happens as a
// side effect of AppendCommand, not as a separate step the handler takes.
func newHandler(d *daemon) transport.Handler {
	return func(conn *transport.Conn, req types.Payload) types.Payload {
		switch req.Type {
		case types.CreateFile:
			return d.handleMutation(req, types.CreateFileResponse, encodeAddFile(req.Filename, nil, req.Mode))
		case types.Unlink, types.DeleteFile:
			return d.handleMutation(req, types.UnlinkResponse, encodeRemoveFile(req.Filename))
		case types.Write:
			return d.handleWrite(req)
		case types.Rename:
			return d.handleMutation(req, types.RenameResponse, encodeRename(req.Path, req.NewPath))
		case types.RegisterNode:
			return d.handleMutation(req, types.RegisterNode, encodeRegisterNode(types.NodeID(req.Content), req.NodeAddress, req.NodePort))
		case types.Heartbeat:
			return d.handleMutation(req, types.Heartbeat, encodeHeartbeat(types.NodeID(req.Content)))

		case types.GetAttr:
			mode, uid, gid, size, errCode := d.auth.GetAttributes(req.Filename)
			return types.Payload{Type: types.GetAttrResponse, Mode: mode, UID: uid, GID: gid, Size: size, ErrorCode: int(errCode)}
		case types.Access:
			return types.Payload{Type: types.AccessResponse, ErrorCode: int(d.auth.CheckAccess(req.Filename, req.Mode))}
		case types.Open:
			return types.Payload{Type: types.OpenResponse, ErrorCode: int(d.auth.OpenFile(req.Filename, req.Mode))}
		case types.Read:
			data, n, errCode := d.auth.ReadFileData(req.Filename, req.Offset, req.Size)
			return types.Payload{Type: types.ReadResponse, Data: string(data), Size: n, ErrorCode: int(errCode)}

		case types.RaftRequestVote:
			reply := d.raft.HandleRequestVote(raftnode.RequestVoteArgs{Term: uint64(req.Offset), CandidateID: req.NodeAddress})
			granted := 0
			if reply.Granted {
				granted = 1
			}
			return types.Payload{Type: types.RaftRequestVoteResponse, Offset: int64(reply.Term), ErrorCode: granted}
		case types.RaftAppendEntries:
			reply := d.raft.HandleAppendEntries(raftnode.AppendEntriesArgs{Term: uint64(req.Offset), LeaderID: req.NodeAddress, Log: raftnode.ParseLog(req.Data)})
			return types.Payload{Type: types.RaftAppendEntriesResponse, Offset: int64(reply.Term)}
		case types.RaftInstallSnapshot:
			reply := d.raft.HandleInstallSnapshot(raftnode.InstallSnapshotArgs{
				Term:          uint64(req.Offset),
				LeaderID:      req.NodeAddress,
				SnapshotIndex: uint64(req.Size),
				SnapshotTerm:  uint64(req.GID),
				Bytes:         []byte(req.Data),
			})
			return types.Payload{Type: types.RaftInstallSnapshotResponse, Offset: int64(reply.Term)}

		case types.AdminHealth:
			return d.handleAdminHealth()
		case types.AdminRepairRunOnce:
			d.repair.RunOnce()
			return types.Payload{Type: types.AdminRepairRunOnceResponse, ErrorCode: int(types.Success)}
		case types.AdminRotateKey:
			if err := d.keys.RotateKey(time.Duration(req.Offset) * time.Second); err != nil {
				d.logger.Error().Err(err).Msg("key rotation failed")
				return types.Payload{Type: types.AdminRotateKeyResponse, ErrorCode: int(types.EIO)}
			}
			return types.Payload{Type: types.AdminRotateKeyResponse, ErrorCode: int(types.Success), Data: d.keys.CurrentVersion()}
		case types.AdminVerifyCID:
			if d.chunks.Has(req.Data) {
				return types.Payload{Type: types.AdminVerifyCIDResponse, ErrorCode: int(types.Success)}
			}
			return types.Payload{Type: types.AdminVerifyCIDResponse, ErrorCode: int(types.ENOENT)}

		default:
			return types.Payload{Type: req.Type, ErrorCode: int(types.ENOSYS)}
		}
	}
}

// handleMutation submits cmd through Raft if this node leads, returning
// respType with the outcome. A non-Leader node refuses with EBUSY and
// points the caller at the peer it currently believes leads, so a
// well-behaved client can retry there instead of spinning against a
// follower.
func (d *daemon) handleMutation(req types.Payload, respType types.MessageType, cmd string) types.Payload {
	if !d.raft.IsLeader() {
		return types.Payload{Type: respType, ErrorCode: int(types.EBUSY), NodeAddress: d.raft.LeaderID()}
	}
	if err := d.raft.AppendCommand(cmd); err != nil {
		d.logger.Error().Err(err).Str("cmd", cmd).Msg("append command failed")
		return types.Payload{Type: respType, ErrorCode: int(types.EIO)}
	}
	return types.Payload{Type: respType, ErrorCode: int(types.Success)}
}

func (d *daemon) handleWrite(req types.Payload) types.Payload {
	resp := d.handleMutation(req, types.WriteResponse, encodeWrite(req.Filename, req.Offset, []byte(req.Data)))
	if resp.ErrorCode == int(types.Success) {
		resp.Size = int64(len(req.Data))
		d.audit.RecordWrite(req.Filename)
	}
	return resp
}

func (d *daemon) handleAdminHealth() types.Payload {
	var b strings.Builder
	b.WriteString("role=")
	b.WriteString(d.raft.Role().String())
	b.WriteString(" term=")
	b.WriteString(strconv.FormatUint(d.raft.Term(), 10))
	b.WriteString(" readiness=")
	b.WriteString(metrics.GetReadiness().Status)
	for id, state := range d.health.Snapshot() {
		b.WriteString(" ")
		b.WriteString(id)
		b.WriteString("=")
		b.WriteString(state.String())
	}
	return types.Payload{Type: types.AdminHealthResponse, Data: b.String(), ErrorCode: int(types.Success)}
}
