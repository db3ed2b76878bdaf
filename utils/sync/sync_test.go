package sync

import (
	"bytes"
	"compress/zlib"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetAndPutByteSlice(t *testing.T) {
	slice := GetByteSlice()
	require.NotNil(t, slice)

	assert.Len(t, *slice, 16*1024)

	PutByteSlice(slice)
}

func TestGetAndPutBytesBuffer(t *testing.T) {
	buf := GetBytesBuffer()
	require.NotNil(t, buf)
	assert.Zero(t, buf.Len())

	buf.WriteString("dirty")
	PutBytesBuffer(buf)

	reused := GetBytesBuffer()
	assert.Zero(t, reused.Len())
	PutBytesBuffer(reused)
}

func TestZlibReaderWriterRoundTrip(t *testing.T) {
	payload := bytes.Repeat([]byte("zlib round trip "), 100)

	var compressed bytes.Buffer
	zw := GetZlibWriter(&compressed)
	_, err := zw.Write(payload)
	require.NoError(t, err)
	require.NoError(t, zw.Close())
	PutZlibWriter(zw)

	zr, err := GetZlibReader(bytes.NewReader(compressed.Bytes()))
	require.NoError(t, err)
	defer PutZlibReader(zr)

	out, err := io.ReadAll(zr)
	require.NoError(t, err)
	assert.Equal(t, payload, out)
}

// A pooled reader must decompress output produced by a plain zlib.Writer,
// and vice versa.
func TestZlibPoolInterop(t *testing.T) {
	payload := []byte("interop")

	var compressed bytes.Buffer
	zw := zlib.NewWriter(&compressed)
	_, err := zw.Write(payload)
	require.NoError(t, err)
	require.NoError(t, zw.Close())

	zr, err := GetZlibReader(bytes.NewReader(compressed.Bytes()))
	require.NoError(t, err)
	defer PutZlibReader(zr)

	out, err := io.ReadAll(zr)
	require.NoError(t, err)
	assert.Equal(t, payload, out)
}

func TestGetZlibReaderCorrupt(t *testing.T) {
	_, err := GetZlibReader(bytes.NewReader([]byte{0x00, 0x00, 0x00}))
	assert.Error(t, err)
}
