package transport

import (
	"fmt"
	"net"
	"time"

	"github.com/JacobBorden/SimpliDFS-sub000/pkg/types"
)

// MaxConnectAttempts bounds ConnectWithRetry's dial attempts.
const MaxConnectAttempts = 5

// connectBackoff is the base of the exponential backoff between attempts:
// attempt i (0-indexed) waits connectBackoff * 2^i before dialing again.
const connectBackoff = 200 * time.Millisecond

// ConnectWithRetry dials host:port up to MaxConnectAttempts times, waiting
// connectBackoff*2^attempt between tries. It returns the first successful
// connection and never panics on exhaustion — callers get a plain error.
func ConnectWithRetry(host string, port int) (*Conn, error) {
	addr := net.JoinHostPort(host, fmt.Sprintf("%d", port))

	var lastErr error
	for attempt := 0; attempt < MaxConnectAttempts; attempt++ {
		if attempt > 0 {
			time.Sleep(connectBackoff * time.Duration(1<<uint(attempt-1)))
		}
		nc, err := net.Dial("tcp", addr)
		if err == nil {
			return NewConn(nc), nil
		}
		lastErr = err
	}
	return nil, fmt.Errorf("transport: connect to %s failed after %d attempts: %w", addr, MaxConnectAttempts, lastErr)
}

// Call sends req over conn and waits for the single response frame. It does
// not retry: per the recovery policy, RPC-level retries are a client
// decision, not the transport's.
func Call(conn *Conn, req types.Payload) (types.Payload, error) {
	if err := conn.SendPayload(req); err != nil {
		return types.Payload{}, err
	}
	resp, ok, err := conn.ReceivePayload()
	if err != nil {
		return types.Payload{}, err
	}
	if !ok {
		return types.Payload{}, fmt.Errorf("transport: connection closed before response")
	}
	return resp, nil
}
