package transport

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"net"

	"github.com/JacobBorden/SimpliDFS-sub000/pkg/types"
)

// MaxPayloadSize is the largest payload ReceiveFrame will allocate for. A
// header claiming more fails fast, before any read against the body.
const MaxPayloadSize = 10 * 1024 * 1024

// ErrPayloadTooLarge is returned when a frame header declares a payload
// larger than MaxPayloadSize.
var ErrPayloadTooLarge = errors.New("transport: payload exceeds maximum frame size")

// Conn wraps a net.Conn with the SimpliDFS length-framed protocol: each
// frame is a 4-byte big-endian length followed by that many payload bytes.
type Conn struct {
	nc net.Conn
}

// NewConn wraps an established connection.
func NewConn(nc net.Conn) *Conn {
	return &Conn{nc: nc}
}

// Close closes the underlying connection.
func (c *Conn) Close() error { return c.nc.Close() }

// RemoteAddr returns the address of the peer.
func (c *Conn) RemoteAddr() net.Addr { return c.nc.RemoteAddr() }

// SendFrame writes a length-prefixed frame. A nil or empty body sends a
// legal zero-length frame.
func (c *Conn) SendFrame(body []byte) error {
	var header [4]byte
	binary.BigEndian.PutUint32(header[:], uint32(len(body)))
	if _, err := c.nc.Write(header[:]); err != nil {
		return fmt.Errorf("transport: write header: %w", err)
	}
	if len(body) == 0 {
		return nil
	}
	if _, err := c.nc.Write(body); err != nil {
		return fmt.Errorf("transport: write body: %w", err)
	}
	return nil
}

// ReceiveFrame reads exactly one frame. It returns (nil, nil) when the peer
// closed cleanly before sending any header byte — distinct from a legal
// zero-length frame, which returns a non-nil empty slice. A close mid-frame
// is reported as an error.
func (c *Conn) ReceiveFrame() ([]byte, error) {
	var header [4]byte
	if _, err := io.ReadFull(c.nc, header[:]); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, nil
		}
		return nil, fmt.Errorf("transport: read header: %w", err)
	}

	length := binary.BigEndian.Uint32(header[:])
	if length > MaxPayloadSize {
		return nil, ErrPayloadTooLarge
	}
	if length == 0 {
		return []byte{}, nil
	}

	body := make([]byte, length)
	if _, err := io.ReadFull(c.nc, body); err != nil {
		return nil, fmt.Errorf("transport: read body: %w", err)
	}
	return body, nil
}

// SendPayload marshals and sends p as a single frame.
func (c *Conn) SendPayload(p types.Payload) error {
	return c.SendFrame(Marshal(p))
}

// ReceivePayload reads one frame and unmarshals it. It returns
// (types.Payload{}, false, nil) on a clean peer close (ReceiveFrame's
// nil-slice case).
func (c *Conn) ReceivePayload() (types.Payload, bool, error) {
	body, err := c.ReceiveFrame()
	if err != nil {
		return types.Payload{}, false, err
	}
	if body == nil {
		return types.Payload{}, false, nil
	}
	p, err := Unmarshal(body)
	if err != nil {
		return types.Payload{}, false, err
	}
	return p, true, nil
}
