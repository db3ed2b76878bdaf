package packfile

import (
	"io"

	"github.com/go-pack/packrewrite/plumbing"
	ghash "github.com/go-pack/packrewrite/plumbing/hash"
	"github.com/go-pack/packrewrite/utils/binary"
	"github.com/go-pack/packrewrite/utils/ioutil"
	gsync "github.com/go-pack/packrewrite/utils/sync"
	"github.com/go-pack/packrewrite/utils/trace"
)

// Encoder writes a Packfile into a writer in PACK format: header, one
// varint-headed zlib-compressed entry per object, and the trailer checksum
// computed over every byte the Encoder itself emitted.
//
// Object bodies are recompressed from their payloads, so the emitted bytes
// are not guaranteed to match the original compressed bytes, only to
// inflate back to the same payload.
type Encoder struct {
	w      *offsetWriter
	hasher ghash.Hash
	// offsets maps the offset each object had on the decode side to the
	// offset it was emitted at, so that ofs-delta base references can be
	// rewritten when recompression moves objects around.
	offsets map[int64]int64
}

// NewEncoder creates a new packfile encoder writing to w.
func NewEncoder(w io.Writer) *Encoder {
	h := ghash.New(ghash.CryptoType)
	mw := io.MultiWriter(w, h)
	return &Encoder{
		w:       newOffsetWriter(mw),
		hasher:  h,
		offsets: make(map[int64]int64),
	}
}

// Encode writes p to the underlying writer and returns the trailer
// checksum. The object count written is the length of p.Objects, and
// each entry's size header is derived from its payload, not from the
// sizes recorded at decode time.
func (e *Encoder) Encode(p *Packfile) (plumbing.Hash, error) {
	if err := e.head(p.Header.Version, len(p.Objects)); err != nil {
		return plumbing.ZeroHash, err
	}

	for _, o := range p.Objects {
		if err := e.entry(o); err != nil {
			return plumbing.ZeroHash, err
		}
	}

	return e.footer()
}

func (e *Encoder) head(version Version, numEntries int) error {
	return binary.Write(
		e.w,
		signature,
		uint32(version),
		uint32(numEntries),
	)
}

func (e *Encoder) entry(o *ObjectRecord) (err error) {
	offset := e.w.Offset()

	if err := e.entryHead(o.Type, int64(len(o.Payload))); err != nil {
		return err
	}

	// Save the position using the decode-side offset, a later ofs-delta
	// may need it to locate its base.
	e.offsets[o.Offset] = offset

	if err := e.writeDeltaHeaderIfAny(o, offset); err != nil {
		return err
	}

	zw := gsync.GetZlibWriter(e.w)
	defer gsync.PutZlibWriter(zw)
	defer ioutil.CheckClose(zw, &err)

	_, err = zw.Write(o.Payload)
	return err
}

func (e *Encoder) writeDeltaHeaderIfAny(o *ObjectRecord, offset int64) error {
	switch o.Type {
	case plumbing.OFSDeltaObject:
		return e.writeOfsDeltaHeader(o, offset)
	case plumbing.REFDeltaObject:
		return e.writeRefDeltaHeader(o.Reference)
	default:
		return nil
	}
}

func (e *Encoder) writeRefDeltaHeader(base plumbing.Hash) error {
	return binary.Write(e.w, base.Bytes())
}

func (e *Encoder) writeOfsDeltaHeader(o *ObjectRecord, offset int64) error {
	// The base was emitted earlier in this same pack; relocate the
	// back-reference to the offset it was emitted at. The encoded value is
	// the distance from this entry's header start back to the base.
	base, ok := e.offsets[o.OffsetReference]
	if !ok {
		return ErrDeltaBaseNotFound.AddDetails(
			"ofs-delta at offset %d references offset %d", o.Offset, o.OffsetReference)
	}

	return binary.WriteVariableWidthInt(e.w, offset-base)
}

func (e *Encoder) entryHead(typeNum plumbing.ObjectType, size int64) error {
	t := int64(typeNum)
	header := []byte{}
	c := (t << firstLengthBits) | (size & maskFirstLength)
	size >>= firstLengthBits
	for {
		if size == 0 {
			break
		}
		header = append(header, byte(c|maskContinue))
		c = size & int64(maskLength)
		size >>= lengthBits
	}

	header = append(header, byte(c))
	_, err := e.w.Write(header)

	return err
}

func (e *Encoder) footer() (plumbing.Hash, error) {
	sum, ok := plumbing.FromBytes(e.hasher.Sum(nil))
	if !ok {
		return plumbing.ZeroHash, ErrMalformedPackfile.AddDetails("unexpected checksum size")
	}

	trace.Pack.Printf("packfile: emitted %d bytes, checksum %s", e.w.Offset(), sum)

	return sum, binary.Write(e.w, sum.Bytes())
}

type offsetWriter struct {
	w      io.Writer
	offset int64
}

func newOffsetWriter(w io.Writer) *offsetWriter {
	return &offsetWriter{w: w}
}

func (ow *offsetWriter) Write(p []byte) (n int, err error) {
	n, err = ow.w.Write(p)
	ow.offset += int64(n)
	return n, err
}

func (ow *offsetWriter) Offset() int64 {
	return ow.offset
}
