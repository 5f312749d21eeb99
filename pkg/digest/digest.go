package digest

import (
	"crypto/sha256"
	"encoding/base32"
	"fmt"
	"strings"
)

// Size is the digest length in bytes (256 bits).
const Size = sha256.Size

// Digest is a fixed 256-bit content hash. Two digests compare bytewise.
type Digest [Size]byte

// Hash returns the digest of b.
func Hash(b []byte) Digest {
	return Digest(sha256.Sum256(b))
}

// cidVersion/cidCodec/cidHashAlgo/cidHashLength make up the 4-byte prefix
// identifying {CIDv1, codec=raw, hash-algo=sha2-256, hash-length=32}.
const (
	cidVersion   byte = 0x01
	cidCodec     byte = 0x55 // raw binary, multicodec 0x55
	cidHashAlgo  byte = 0x12 // sha2-256, multihash 0x12
	cidHashLen   byte = 0x20 // 32 bytes
	prefixLength      = 4
)

var cidPrefix = [prefixLength]byte{cidVersion, cidCodec, cidHashAlgo, cidHashLen}

var b32 = base32.StdEncoding.WithPadding(base32.NoPadding)

// ToCID renders d as its textual CID: the fixed prefix followed by the
// digest, base32 encoded without padding, lowercased.
func ToCID(d Digest) string {
	return strings.ToLower(b32.EncodeToString(ToBytes(d)))
}

// ToBytes returns the prefix-plus-digest byte form used for on-wire CID
// fields, without the base32 text encoding.
func ToBytes(d Digest) []byte {
	buf := make([]byte, prefixLength+Size)
	copy(buf, cidPrefix[:])
	copy(buf[prefixLength:], d[:])
	return buf
}

// FromCID parses a textual CID back into a Digest. It fails on empty input,
// non-base32 characters, a decoded length other than prefixLength+Size, or
// a prefix that does not match {CIDv1, raw, sha2-256, 32}.
func FromCID(cid string) (Digest, error) {
	if cid == "" {
		return Digest{}, fmt.Errorf("digest: empty cid")
	}
	raw, err := b32.DecodeString(strings.ToUpper(cid))
	if err != nil {
		return Digest{}, fmt.Errorf("digest: invalid base32 cid: %w", err)
	}
	return FromBytes(raw)
}

// FromBytes parses the prefix-plus-digest byte form produced by ToBytes.
func FromBytes(raw []byte) (Digest, error) {
	if len(raw) != prefixLength+Size {
		return Digest{}, fmt.Errorf("digest: decoded length %d, want %d", len(raw), prefixLength+Size)
	}
	var prefix [prefixLength]byte
	copy(prefix[:], raw[:prefixLength])
	if prefix != cidPrefix {
		return Digest{}, fmt.Errorf("digest: prefix mismatch: got %x, want %x", prefix, cidPrefix)
	}
	var d Digest
	copy(d[:], raw[prefixLength:])
	return d, nil
}

// String implements fmt.Stringer as the textual CID.
func (d Digest) String() string {
	return ToCID(d)
}
