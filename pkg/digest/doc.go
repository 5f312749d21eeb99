// Package digest implements SimpliDFS's content hash and its textual CID
// encoding: a fixed 256-bit digest plus a multiformats-style prefix, base32
// encoded (RFC 4648, no padding, lowercase).
package digest
