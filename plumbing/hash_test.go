package plumbing

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewHash(t *testing.T) {
	t.Parallel()

	hex := "a3fed42da1e8189a077c0e6846c040dcf73fc9dd"
	h := NewHash(hex)

	assert.Equal(t, hex, h.String())
	assert.False(t, h.IsZero())
	assert.Len(t, h.Bytes(), 20)
}

func TestNewHashMalformed(t *testing.T) {
	t.Parallel()

	for _, in := range []string{"", "zz", "a3fed4", "not hex at all!"} {
		assert.True(t, NewHash(in).IsZero(), "input %q", in)
	}
}

func TestFromBytes(t *testing.T) {
	t.Parallel()

	raw := make([]byte, 20)
	raw[0] = 0xAB

	h, ok := FromBytes(raw)
	require.True(t, ok)
	assert.Equal(t, raw, h.Bytes())

	_, ok = FromBytes(raw[:19])
	assert.False(t, ok)
}

func TestHashCompare(t *testing.T) {
	t.Parallel()

	a := NewHash("0000000000000000000000000000000000000001")
	b := NewHash("0000000000000000000000000000000000000002")

	assert.Equal(t, -1, a.Compare(b.Bytes()))
	assert.Equal(t, 0, a.Compare(a.Bytes()))
	assert.Equal(t, 1, b.Compare(a.Bytes()))
}
