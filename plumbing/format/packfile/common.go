// Package packfile implements a codec for the Git PACK container format:
// decoding a packfile into its sequence of objects, rewriting commit object
// payloads, and re-encoding the result with a recomputed trailer checksum.
package packfile

var signature = []byte{'P', 'A', 'C', 'K'}

// Signature returns the 4-byte marker that starts every packfile.
func Signature() []byte {
	return signature
}

const (
	firstLengthBits = uint8(4)   // the first byte into object header has 4 bits to store the length
	lengthBits      = uint8(7)   // subsequent bytes has 7 bits to store the length
	maskFirstLength = 15         // 0000 1111
	maskContinue    = 0x80       // 1000 0000
	maskLength      = uint8(127) // 0111 1111
	maskType        = uint8(112) // 0111 0000
)
