package raftnode

import (
	"fmt"
	"net"
	"strconv"

	"github.com/JacobBorden/SimpliDFS-sub000/pkg/transport"
	"github.com/JacobBorden/SimpliDFS-sub000/pkg/types"
)

// WireTransport implements Transport over the cluster's framed transport,
// dialing a fresh connection per RPC (one request, one response, then
// close) rather than holding a pool — elections and heartbeats are small
// and infrequent enough that connection setup cost is not the bottleneck
// this package needs to optimize.
//
// The three RPCs share the same Payload record transport.Call already
// moves for file operations; since Payload carries no Raft-specific
// fields, each RPC repurposes generic ones: NodeAddress for the sending
// peer's ID, Offset for the term, Data for the serialized log/snapshot
// bytes, Size/GID for a snapshot's index/term, and ErrorCode as the
// vote-granted boolean (1/0) on the RequestVote reply.
type WireTransport struct {
	addrs map[string]string // peer ID -> "host:port"
}

// NewWireTransport creates a WireTransport that resolves peer IDs against
// addrs.
func NewWireTransport(addrs map[string]string) *WireTransport {
	return &WireTransport{addrs: addrs}
}

func (t *WireTransport) dial(peer string) (*transport.Conn, error) {
	addr, ok := t.addrs[peer]
	if !ok {
		return nil, fmt.Errorf("raftnode: no address known for peer %q", peer)
	}
	host, portStr, err := net.SplitHostPort(addr)
	if err != nil {
		return nil, fmt.Errorf("raftnode: bad address %q for peer %q: %w", addr, peer, err)
	}
	port, err := strconv.Atoi(portStr)
	if err != nil {
		return nil, fmt.Errorf("raftnode: bad port in %q for peer %q: %w", addr, peer, err)
	}
	return transport.ConnectWithRetry(host, port)
}

func (t *WireTransport) SendRequestVote(peer string, req RequestVoteArgs) (RequestVoteReply, error) {
	conn, err := t.dial(peer)
	if err != nil {
		return RequestVoteReply{}, err
	}
	defer conn.Close()

	resp, err := transport.Call(conn, types.Payload{
		Type:        types.RaftRequestVote,
		NodeAddress: req.CandidateID,
		Offset:      int64(req.Term),
	})
	if err != nil {
		return RequestVoteReply{}, err
	}
	return RequestVoteReply{Term: uint64(resp.Offset), Granted: resp.ErrorCode == 1}, nil
}

func (t *WireTransport) SendAppendEntries(peer string, req AppendEntriesArgs) (AppendEntriesReply, error) {
	conn, err := t.dial(peer)
	if err != nil {
		return AppendEntriesReply{}, err
	}
	defer conn.Close()

	resp, err := transport.Call(conn, types.Payload{
		Type:        types.RaftAppendEntries,
		NodeAddress: req.LeaderID,
		Offset:      int64(req.Term),
		Data:        SerializeLog(req.Log),
	})
	if err != nil {
		return AppendEntriesReply{}, err
	}
	return AppendEntriesReply{Term: uint64(resp.Offset)}, nil
}

func (t *WireTransport) SendInstallSnapshot(peer string, req InstallSnapshotArgs) (InstallSnapshotReply, error) {
	conn, err := t.dial(peer)
	if err != nil {
		return InstallSnapshotReply{}, err
	}
	defer conn.Close()

	resp, err := transport.Call(conn, types.Payload{
		Type:        types.RaftInstallSnapshot,
		NodeAddress: req.LeaderID,
		Offset:      int64(req.Term),
		Size:        int64(req.SnapshotIndex),
		GID:         uint32(req.SnapshotTerm),
		Data:        string(req.Bytes),
	})
	if err != nil {
		return InstallSnapshotReply{}, err
	}
	return InstallSnapshotReply{Term: uint64(resp.Offset)}, nil
}
