package plumbing

import (
	"bytes"
	"encoding/hex"

	"github.com/go-pack/packrewrite/plumbing/hash"
)

// Hash is a 20-byte digest, used for pack trailers and ref-delta base
// references.
type Hash [hash.Size]byte

// ZeroHash is a Hash with value zero.
var ZeroHash Hash

// NewHash returns a new Hash from a hexadecimal hash representation.
// Malformed input yields ZeroHash.
func NewHash(s string) Hash {
	b, err := hex.DecodeString(s)
	if err != nil || len(b) != hash.Size {
		return ZeroHash
	}

	var h Hash
	copy(h[:], b)
	return h
}

// FromBytes creates a Hash from its raw byte representation. It reports
// whether in had the expected length.
func FromBytes(in []byte) (Hash, bool) {
	if len(in) != hash.Size {
		return ZeroHash, false
	}

	var h Hash
	copy(h[:], in)
	return h, true
}

func (h Hash) String() string {
	return hex.EncodeToString(h[:])
}

// Bytes returns the raw byte representation of the Hash.
func (h Hash) Bytes() []byte {
	return h[:]
}

// IsZero reports whether the Hash has the zero value.
func (h Hash) IsZero() bool {
	return h == ZeroHash
}

// Compare compares h to the raw hash in, lexicographically.
func (h Hash) Compare(in []byte) int {
	return bytes.Compare(h[:], in)
}
