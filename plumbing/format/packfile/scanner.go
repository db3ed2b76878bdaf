package packfile

import (
	"bytes"
	"encoding/hex"
	"errors"
	"fmt"
	"io"

	"github.com/go-pack/packrewrite/plumbing"
	ghash "github.com/go-pack/packrewrite/plumbing/hash"
	"github.com/go-pack/packrewrite/utils/binary"
	gsync "github.com/go-pack/packrewrite/utils/sync"
	"github.com/go-pack/packrewrite/utils/trace"
)

// Scanner provides sequential access to the data stored in a Git packfile.
//
// A Git packfile is a compressed binary format that stores multiple Git
// objects, such as commits, trees, delta objects and blobs.
//
// A Git packfile is structured as follows:
//
//	+----------------------------------------------------+
//	|                 PACK File Header                   |
//	+----------------------------------------------------+
//	| "PACK"  | Version Number | Number of Objects       |
//	| (4 bytes)  |  (4 bytes)   |    (4 bytes)           |
//	+----------------------------------------------------+
//	|                  Object Entry #1                   |
//	+----------------------------------------------------+
//	|  Object Header  |  Compressed Object Data / Delta  |
//	| (type + size)   |  (var-length, zlib compressed)   |
//	+----------------------------------------------------+
//	|                         ...                        |
//	+----------------------------------------------------+
//	|                  PACK File Footer                  |
//	+----------------------------------------------------+
//	|                SHA-1 Checksum (20 bytes)           |
//	+----------------------------------------------------+
//
// For upstream docs, refer to https://git-scm.com/docs/gitformat-pack.
//
// The packfile format does not record the compressed length of an object:
// the boundary between one object's body and the next object's header can
// only be found by driving the decompressor and observing how many input
// bytes it actually consumed. The Scanner relies on the zlib reader pulling
// its input byte by byte (see scannerReader), which guarantees it never
// reads past the end of the current stream.
type Scanner struct {
	// version holds the packfile version.
	version Version
	// objects holds the quantity of objects within the packfile.
	objects uint32
	// objIndex is the current index when going through the packfile objects.
	objIndex int
	// packhash hashes the pack contents so that at the end it is able to
	// validate the packfile's footer checksum against the calculated hash.
	packhash ghash.Hash
	// pack accumulates the decoded records.
	pack *Packfile

	// nextFn holds what state function should be executed on the next step.
	nextFn stateFn

	*scannerReader
}

// NewScanner creates a new instance of Scanner reading from rs.
func NewScanner(rs io.Reader) *Scanner {
	packhash := ghash.New(ghash.CryptoType)

	return &Scanner{
		scannerReader: newScannerReader(rs, packhash),
		objIndex:      -1,
		packhash:      packhash,
		pack:          &Packfile{},
		nextFn:        packHeaderSignature,
	}
}

// Decode reads the whole packfile and returns it fully materialised. The
// footer checksum is validated against the hash of every preceding input
// byte. Decode is single-shot: a Scanner cannot be reused.
func (r *Scanner) Decode() (*Packfile, error) {
	var err error
	for state := r.nextFn; state != nil; {
		state, err = state(r)
		if err != nil {
			return nil, err
		}
	}

	return r.pack, nil
}

// stateFn defines each individual state within the state machine that
// represents a packfile.
type stateFn func(*Scanner) (stateFn, error)

// packHeaderSignature validates the packfile's header signature and
// returns [ErrBadSignature] if the value provided is invalid.
//
// This is always the first state of a packfile and starts the chain
// that handles the entire packfile header.
func packHeaderSignature(r *Scanner) (stateFn, error) {
	start := make([]byte, 4)
	if _, err := io.ReadFull(r, start); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrBadSignature, err)
	}

	if bytes.Equal(start, signature) {
		return packVersion, nil
	}

	return nil, ErrBadSignature
}

// packVersion parses the packfile version. It returns [ErrMalformedPackfile]
// when the version cannot be parsed. If a valid version is parsed, but it is
// not currently supported, it returns [ErrUnsupportedVersion] instead.
func packVersion(r *Scanner) (stateFn, error) {
	version, err := binary.ReadUint32(r.scannerReader)
	if err != nil {
		return nil, fmt.Errorf("%w: cannot read version", ErrMalformedPackfile)
	}

	v := Version(version)
	if !v.Supported() {
		return nil, ErrUnsupportedVersion.AddDetails("version %d", version)
	}

	r.version = v
	return packObjectsQty, nil
}

// packObjectsQty parses the quantity of objects that the packfile contains.
// If the value cannot be parsed, [ErrMalformedPackfile] is returned.
//
// This state ends the packfile header chain.
func packObjectsQty(r *Scanner) (stateFn, error) {
	qty, err := binary.ReadUint32(r.scannerReader)
	if err != nil {
		return nil, fmt.Errorf("%w: cannot read number of objects", ErrMalformedPackfile)
	}

	r.objects = qty
	r.pack.Header = Header{Version: r.version, ObjectsQty: qty}
	r.pack.Objects = make([]*ObjectRecord, 0, qty)

	trace.Pack.Printf("packfile: version %d, %d objects", r.version, qty)

	if qty == 0 {
		return packFooter, nil
	}

	return objectEntry, nil
}

// objectEntry handles the object entries within a packfile: the varint
// object header, the delta base reference when the type calls for one, and
// the compressed body, which is inflated in full so that the byte consumed
// count for the entry is exact.
func objectEntry(r *Scanner) (stateFn, error) {
	if r.objIndex+1 >= int(r.objects) {
		return packFooter, nil
	}
	r.objIndex++

	offset := r.scannerReader.offset

	b, err := r.ReadByte()
	if err != nil {
		return nil, ErrTruncatedPackfile.AddDetails(
			"object %d of %d at offset %d", r.objIndex+1, r.objects, offset)
	}

	typ := parseType(b)
	if !typ.Valid() {
		return nil, ErrMalformedPackfile.AddDetails(
			"invalid object type %d at offset %d", (b&maskType)>>firstLengthBits, offset)
	}

	size, err := readVariableLengthSize(b, r)
	if err != nil {
		return nil, ErrTruncatedHeader.AddDetails("at offset %d", offset)
	}

	oh := ObjectHeader{
		Offset: offset,
		Type:   typ,
		Size:   int64(size),
	}

	switch oh.Type {
	case plumbing.OFSDeltaObject:
		no, err := binary.ReadVariableWidthInt(r.scannerReader)
		if err != nil {
			return nil, ErrTruncatedHeader.AddDetails("ofs-delta base at offset %d", offset)
		}
		oh.OffsetReference = oh.Offset - no
	case plumbing.REFDeltaObject:
		ref, err := binary.ReadHash(r.scannerReader)
		if err != nil {
			return nil, ErrTruncatedHeader.AddDetails("ref-delta base at offset %d", offset)
		}
		oh.Reference = ref
	}

	oh.ContentOffset = r.scannerReader.offset

	payload, err := r.inflate(&oh)
	if err != nil {
		return nil, err
	}
	oh.CompressedSize = r.scannerReader.offset - oh.ContentOffset

	r.pack.Objects = append(r.pack.Objects, &ObjectRecord{
		ObjectHeader: oh,
		Payload:      payload,
	})

	return objectEntry, nil
}

// inflate decompresses exactly one object body, leaving the read position
// on the first byte after the compressed stream. The inflated length must
// match the size declared in the object header.
func (r *Scanner) inflate(oh *ObjectHeader) ([]byte, error) {
	zr, err := gsync.GetZlibReader(r.scannerReader)
	if err != nil {
		return nil, ErrZLib.AddDetails("object at offset %d: %s", oh.Offset, err)
	}
	defer gsync.PutZlibReader(zr)

	buf := gsync.GetBytesBuffer()
	defer gsync.PutBytesBuffer(buf)

	if _, err := buf.ReadFrom(zr); err != nil {
		if errors.Is(err, io.ErrUnexpectedEOF) {
			return nil, ErrTruncatedPackfile.AddDetails("object at offset %d", oh.Offset)
		}
		return nil, ErrZLib.AddDetails("object at offset %d: %s", oh.Offset, err)
	}

	if int64(buf.Len()) != oh.Size {
		return nil, ErrSizeMismatch.AddDetails(
			"object at offset %d: header declares %d bytes, inflated %d",
			oh.Offset, oh.Size, buf.Len())
	}

	payload := make([]byte, buf.Len())
	copy(payload, buf.Bytes())

	return payload, nil
}

// packFooter parses the packfile checksum.
// If the checksum cannot be parsed, or it does not match the checksum
// calculated during the scanning process, an [ErrMalformedPackfile] is
// returned.
func packFooter(r *Scanner) (stateFn, error) {
	r.scannerReader.Flush()
	actual := r.packhash.Sum(nil)

	checksum, err := binary.ReadHash(r.scannerReader)
	if err != nil {
		return nil, ErrTruncatedPackfile.AddDetails("cannot read checksum")
	}

	if !bytes.Equal(actual, checksum.Bytes()) {
		return nil, ErrMalformedPackfile.AddDetails(
			"checksum mismatch expected %q but found %q",
			hex.EncodeToString(actual), checksum)
	}

	trace.Pack.Printf("packfile: checksum %s", checksum)

	r.pack.Checksum = checksum
	return nil, nil
}

func readVariableLengthSize(first byte, reader io.ByteReader) (uint64, error) {
	// Extract the first part of the size (last 4 bits of the first byte).
	size := uint64(first & maskFirstLength)

	// |  0xxx1111 | 1xxxxxxx | 0xxxxxxx | ...
	//
	//	  ^^^ ^^^^    ^^^^^^^    ^^^^^^^
	//	 Type  Size   Size        Size
	//	       Part 1 Part 2      Part 3
	//
	// Check if more bytes are needed to fully determine the size.
	if first&maskContinue != 0 {
		shift := uint(firstLengthBits)

		for {
			b, err := reader.ReadByte()
			if err != nil {
				return 0, err
			}

			// Add the next 7 bits to the size.
			size |= uint64(b&maskLength) << shift

			// Check if the continuation bit is set.
			if b&maskContinue == 0 {
				break
			}

			// Prepare for the next byte.
			shift += uint(lengthBits)
		}
	}
	return size, nil
}

func parseType(b byte) plumbing.ObjectType {
	return plumbing.ObjectType((b & maskType) >> firstLengthBits)
}
