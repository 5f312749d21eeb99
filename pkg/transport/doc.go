// Package transport implements the length-framed binary protocol SimpliDFS
// nodes use to talk to each other and to the metadata authority: every
// message is a 4-byte big-endian length prefix followed by a pipe-delimited
// positional encoding of types.Payload. A zero-length frame is a valid
// message distinct from a closed connection.
package transport
