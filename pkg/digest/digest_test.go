package digest

import (
	"crypto/rand"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHashAndCIDRoundTrip(t *testing.T) {
	d := Hash([]byte("hello"))
	cid := ToCID(d)
	got, err := FromCID(cid)
	require.NoError(t, err)
	assert.Equal(t, d, got)
}

func TestToCIDIsLowercase(t *testing.T) {
	cid := ToCID(Hash([]byte("hello")))
	assert.Equal(t, strings.ToLower(cid), cid)
}

func TestFromCIDAcceptsUppercase(t *testing.T) {
	d := Hash([]byte("hello"))
	cid := ToCID(d)
	got, err := FromCID(strings.ToUpper(cid))
	require.NoError(t, err)
	assert.Equal(t, d, got)
}

func TestCIDRoundTripFuzz(t *testing.T) {
	for i := 0; i < 10000; i++ {
		var d Digest
		_, err := rand.Read(d[:])
		require.NoError(t, err)

		cid := ToCID(d)
		got, err := FromCID(cid)
		require.NoError(t, err)
		assert.Equal(t, d, got)
	}
}

func TestFromCIDErrors(t *testing.T) {
	tests := []struct {
		name string
		cid  string
	}{
		{"empty", ""},
		{"not base32", "!!!not-base32!!!"},
		{"too short", ToCID(Hash([]byte("x")))[:10]},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := FromCID(tt.cid)
			assert.Error(t, err)
		})
	}
}

func TestFromBytesPrefixMismatch(t *testing.T) {
	raw := ToBytes(Hash([]byte("x")))
	raw[0] = 0xFF
	_, err := FromBytes(raw)
	assert.Error(t, err)
}

func TestHashDeterministic(t *testing.T) {
	assert.Equal(t, Hash([]byte("a")), Hash([]byte("a")))
	assert.NotEqual(t, Hash([]byte("a")), Hash([]byte("b")))
}
