package packrewrite

import (
	"bytes"
	"crypto/sha1"
	"encoding/base64"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/go-pack/packrewrite/plumbing"
	"github.com/go-pack/packrewrite/plumbing/format/packfile"
)

// metadata mimics the ref-update section of a push request: a pkt-line
// with old/new hashes, ref name and capabilities. Its content is opaque to
// the transform and only has to survive the round trip untouched.
const metadata = "00a558b1123e43c629542ccf12ea496794e485b63e8b " +
	"6ce099da3e5b15a5f882d604f523ff720c274a82 refs/heads/main\x00 " +
	"report-status-v2 side-band-64k object-format=sha1 agent=git/2.45.1"

const commitText = "tree 4b825dc642cb6eb9a060e54bf8d69288fbee4904\n" +
	"author Alice <alice@example.com> 1700000000 +0000\n" +
	"committer Alice <alice@example.com> 1700000000 +0000\n" +
	"\n" +
	"Commit: GitHub <noreply@github.com>\n\nmsg"

// buildRequest assembles a push request from records and returns it base64
// encoded, the way it arrives on the wire.
func buildRequest(t *testing.T, meta string, objects ...*packfile.ObjectRecord) string {
	t.Helper()

	var buf bytes.Buffer
	buf.WriteString(meta)

	_, err := packfile.NewEncoder(&buf).Encode(&packfile.Packfile{
		Header:  packfile.Header{Version: packfile.V2, ObjectsQty: uint32(len(objects))},
		Objects: objects,
	})
	require.NoError(t, err)

	return base64.StdEncoding.EncodeToString(buf.Bytes())
}

func record(typ plumbing.ObjectType, payload []byte) *packfile.ObjectRecord {
	return &packfile.ObjectRecord{
		ObjectHeader: packfile.ObjectHeader{Type: typ, Size: int64(len(payload))},
		Payload:      payload,
	}
}

func TestTransform(t *testing.T) {
	t.Parallel()

	request := buildRequest(t, metadata, record(plumbing.CommitObject, []byte(commitText)))

	res, err := Transform(request, "Bob <bob@example.com>")
	require.NoError(t, err)
	assert.Equal(t, uint32(1), res.Objects)
	assert.Equal(t, 1, res.Rewritten)

	raw, err := base64.StdEncoding.DecodeString(res.Request)
	require.NoError(t, err)

	// Metadata passes through untouched.
	require.True(t, bytes.HasPrefix(raw, []byte(metadata)))

	pack := raw[len(metadata):]
	p, err := packfile.NewScanner(bytes.NewReader(pack)).Decode()
	require.NoError(t, err)
	require.Len(t, p.Objects, 1)
	assert.Equal(t, uint32(1), p.Header.ObjectsQty)

	got := string(p.Objects[0].Payload)
	assert.Contains(t, got, "Commit: Bob <bob@example.com>")
	assert.NotContains(t, got, "noreply@github.com")

	// No other line was altered.
	want := strings.Replace(commitText,
		"Commit: GitHub <noreply@github.com>", "Commit: Bob <bob@example.com>", 1)
	assert.Equal(t, want, got)

	// The emitted trailer is the digest of every preceding container byte.
	sum := sha1.Sum(pack[:len(pack)-20])
	assert.Equal(t, sum[:], pack[len(pack)-20:])
	assert.Equal(t, sum[:], res.Checksum.Bytes())
}

func TestTransformLeavesOtherObjectsAlone(t *testing.T) {
	t.Parallel()

	tree := bytes.Repeat([]byte{0x01}, 50)
	blob := []byte("Commit: GitHub <noreply@github.com>") // not a commit, must stay

	request := buildRequest(t, metadata,
		record(plumbing.CommitObject, []byte(commitText)),
		record(plumbing.TreeObject, tree),
		record(plumbing.BlobObject, blob),
	)

	res, err := Transform(request, "Bob <bob@example.com>")
	require.NoError(t, err)
	assert.Equal(t, 1, res.Rewritten)

	raw, err := base64.StdEncoding.DecodeString(res.Request)
	require.NoError(t, err)

	p, err := packfile.NewScanner(bytes.NewReader(raw[len(metadata):])).Decode()
	require.NoError(t, err)
	require.Len(t, p.Objects, 3)
	assert.Equal(t, tree, p.Objects[1].Payload)
	assert.Equal(t, blob, p.Objects[2].Payload)
}

// A request whose commits carry no GitHub field is re-encoded as-is, and
// the no-op is visible in the result.
func TestTransformNoOp(t *testing.T) {
	t.Parallel()

	plain := "tree 4b825dc6\n\nplain commit"
	request := buildRequest(t, metadata, record(plumbing.CommitObject, []byte(plain)))

	res, err := Transform(request, "Bob <bob@example.com>")
	require.NoError(t, err)
	assert.Equal(t, 0, res.Rewritten)

	raw, err := base64.StdEncoding.DecodeString(res.Request)
	require.NoError(t, err)

	p, err := packfile.NewScanner(bytes.NewReader(raw[len(metadata):])).Decode()
	require.NoError(t, err)
	assert.Equal(t, plain, string(p.Objects[0].Payload))
}

func TestTransformPackNotFound(t *testing.T) {
	t.Parallel()

	request := base64.StdEncoding.EncodeToString([]byte("no packfile in here"))

	_, err := Transform(request, "Bob <bob@example.com>")
	assert.ErrorIs(t, err, ErrPackNotFound)
}

func TestTransformBadBase64(t *testing.T) {
	t.Parallel()

	_, err := Transform("%%% not base64 %%%", "Bob <bob@example.com>")
	assert.Error(t, err)
}

func TestTransformMalformedPack(t *testing.T) {
	t.Parallel()

	// The signature is present but the container behind it is truncated.
	raw := []byte(metadata + "PACK\x00\x00\x00")
	request := base64.StdEncoding.EncodeToString(raw)

	_, err := Transform(request, "Bob <bob@example.com>")
	assert.ErrorIs(t, err, packfile.ErrMalformedPackfile)
}

func TestTransformInvalidCommitEncoding(t *testing.T) {
	t.Parallel()

	request := buildRequest(t, metadata,
		record(plumbing.CommitObject, []byte{0xff, 0xfe, 0xfd}))

	_, err := Transform(request, "Bob <bob@example.com>")
	assert.ErrorIs(t, err, packfile.ErrInvalidEncoding)
}

func TestParseRequest(t *testing.T) {
	t.Parallel()

	data := []byte("meta-bytes-PACKrest-of-pack")

	req, err := ParseRequest(data)
	require.NoError(t, err)
	assert.Equal(t, []byte("meta-bytes-"), req.Meta)
	assert.Equal(t, []byte("PACKrest-of-pack"), req.Pack)
}

func TestParseRequestNoMeta(t *testing.T) {
	t.Parallel()

	request := buildRequest(t, "", record(plumbing.BlobObject, []byte("x")))
	raw, err := base64.StdEncoding.DecodeString(request)
	require.NoError(t, err)

	req, err := ParseRequest(raw)
	require.NoError(t, err)
	assert.Empty(t, req.Meta)
	assert.Equal(t, raw, req.Pack)
}
