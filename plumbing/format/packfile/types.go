package packfile

import (
	"github.com/go-pack/packrewrite/plumbing"
)

// Version represents the packfile version.
type Version uint32

// Packfile versions.
const (
	V2 Version = 2
	V3 Version = 3
)

// Supported returns true if the version is supported.
func (v Version) Supported() bool {
	switch v {
	case V2, V3:
		return true
	default:
		return false
	}
}

// Header represents the packfile header: the 4-byte signature is implicit,
// followed by the version and the quantity of objects, both big-endian.
type Header struct {
	Version    Version
	ObjectsQty uint32
}

// ObjectHeader contains the information related to the object, this
// information is collected from the previous bytes to the content of the
// object.
type ObjectHeader struct {
	Type plumbing.ObjectType
	// Offset is the position of the object header within the packfile,
	// relative to the packfile start.
	Offset int64
	// ContentOffset is the position of the first byte of the compressed
	// object body.
	ContentOffset int64
	// Size is the inflated size declared by the object header.
	Size int64
	// CompressedSize is the exact number of compressed bytes the object
	// body occupies, so that the next object header begins at
	// ContentOffset+CompressedSize.
	CompressedSize int64
	// Reference is the base object hash, for ref-delta objects.
	Reference plumbing.Hash
	// OffsetReference is the absolute offset of the base object within the
	// packfile, for ofs-delta objects.
	OffsetReference int64
}

// ObjectRecord pairs an object header with its inflated payload. For delta
// objects the payload holds the raw delta instructions, not a resolved
// object.
type ObjectRecord struct {
	ObjectHeader
	Payload []byte
}

// Packfile is a fully materialised PACK container: header, the ordered
// object sequence and the trailer checksum. A Packfile holds no state
// besides its own data; it is built once per decode and discarded.
type Packfile struct {
	Header   Header
	Objects  []*ObjectRecord
	Checksum plumbing.Hash
}
