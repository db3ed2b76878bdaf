package packfile

import (
	"bytes"
	"compress/zlib"
	"crypto/sha1"
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/go-pack/packrewrite/plumbing"
)

// testObject is the input to buildPack: a type, a payload and, for delta
// objects, a base reference.
type testObject struct {
	typ     plumbing.ObjectType
	payload []byte
	// ofsBase is the index within the object list of the base object, for
	// ofs-delta entries.
	ofsBase int
	// refBase is the base hash for ref-delta entries.
	refBase plumbing.Hash
}

// buildPack assembles a syntactically valid packfile by hand, independently
// of the Encoder, so that decode tests do not depend on the encode path.
func buildPack(t *testing.T, version uint32, objs []testObject) []byte {
	t.Helper()

	var buf bytes.Buffer
	buf.WriteString("PACK")
	require.NoError(t, binary.Write(&buf, binary.BigEndian, version))
	require.NoError(t, binary.Write(&buf, binary.BigEndian, uint32(len(objs))))

	offsets := make([]int64, len(objs))
	for i, o := range objs {
		offsets[i] = int64(buf.Len())
		writeEntryHeader(&buf, o.typ, len(o.payload))

		switch o.typ {
		case plumbing.OFSDeltaObject:
			writeOfsBase(&buf, offsets[i]-offsets[o.ofsBase])
		case plumbing.REFDeltaObject:
			buf.Write(o.refBase.Bytes())
		}

		zw := zlib.NewWriter(&buf)
		_, err := zw.Write(o.payload)
		require.NoError(t, err)
		require.NoError(t, zw.Close())
	}

	sum := sha1.Sum(buf.Bytes())
	buf.Write(sum[:])

	return buf.Bytes()
}

// writeEntryHeader emits the varint type+size object header.
func writeEntryHeader(buf *bytes.Buffer, typ plumbing.ObjectType, size int) {
	b := byte(typ)<<4 | byte(size&0xF)
	size >>= 4
	for size > 0 {
		buf.WriteByte(b | 0x80)
		b = byte(size & 0x7F)
		size >>= 7
	}
	buf.WriteByte(b)
}

// writeOfsBase emits the git VLQ back-offset used by ofs-delta headers.
func writeOfsBase(buf *bytes.Buffer, n int64) {
	out := []byte{byte(n & 0x7F)}
	n >>= 7
	for n != 0 {
		n--
		out = append([]byte{0x80 | byte(n&0x7F)}, out...)
		n >>= 7
	}
	buf.Write(out)
}

// rehash recomputes the trailer checksum after a test mutated the pack
// body, so that only the mutation under test can fail the decode.
func rehash(data []byte) []byte {
	body := data[:len(data)-20]
	sum := sha1.Sum(body)
	return append(append([]byte{}, body...), sum[:]...)
}

// commitPayload is a minimal commit object body carrying the GitHub commit
// field in its message.
var commitPayload = []byte("tree 4b825dc642cb6eb9a060e54bf8d69288fbee4904\n" +
	"author Alice <alice@example.com> 1700000000 +0000\n" +
	"committer Alice <alice@example.com> 1700000000 +0000\n" +
	"\n" +
	"Commit: GitHub <noreply@github.com>\n\nmsg")
