// Package packrewrite rewrites the commit field of commit objects carried
// inside a base64-encoded Git push request, re-emitting a structurally
// valid request with a recomputed packfile trailer checksum.
//
// The push request is treated as an opaque metadata section (ref-update
// pkt-lines and capabilities) followed by a PACK container. Only the
// container is decoded; the metadata is passed through untouched.
package packrewrite

import (
	"bytes"
	"encoding/base64"
	"fmt"

	"github.com/go-pack/packrewrite/plumbing"
	"github.com/go-pack/packrewrite/plumbing/format/packfile"
	"github.com/go-pack/packrewrite/utils/trace"
)

// ErrPackNotFound is returned when the push request carries no PACK
// signature.
var ErrPackNotFound = packfile.NewError("PACK signature not found in push request")

// Request is a decoded push request, split at the PACK signature.
type Request struct {
	// Meta holds the bytes preceding the packfile: ref-update lines and
	// capability negotiation. It is never interpreted.
	Meta []byte
	// Pack holds the packfile, starting at the PACK signature.
	Pack []byte
}

// ParseRequest splits raw push-request bytes into metadata and packfile.
// It returns ErrPackNotFound when no PACK signature is present.
func ParseRequest(data []byte) (*Request, error) {
	idx := bytes.Index(data, packfile.Signature())
	if idx == -1 {
		return nil, ErrPackNotFound
	}

	return &Request{
		Meta: data[:idx],
		Pack: data[idx:],
	}, nil
}

// Result describes a completed transform.
type Result struct {
	// Request is the transformed push request, base64 encoded.
	Request string
	// Objects is the object count declared by the packfile header.
	Objects uint32
	// Rewritten is the number of commit objects whose payload was
	// actually modified. Zero means every commit passed through as-is.
	Rewritten int
	// Checksum is the new trailer checksum of the emitted packfile.
	Checksum plumbing.Hash
}

// Transform decodes a base64 push request, replaces the GitHub commit
// field of every commit object with commitField, and returns the rewritten
// request re-encoded as base64.
//
// Transform is a pure function of its inputs: it keeps no state between
// calls and may be invoked concurrently.
func Transform(request, commitField string) (*Result, error) {
	raw, err := base64.StdEncoding.DecodeString(request)
	if err != nil {
		return nil, fmt.Errorf("cannot decode push request: %w", err)
	}

	out, res, err := TransformRequest(raw, commitField)
	if err != nil {
		return nil, err
	}

	res.Request = base64.StdEncoding.EncodeToString(out)
	return res, nil
}

// TransformRequest is the binary-level counterpart of Transform: it takes
// and returns raw push-request bytes instead of base64 text. The returned
// Result has an empty Request field.
func TransformRequest(data []byte, commitField string) ([]byte, *Result, error) {
	req, err := ParseRequest(data)
	if err != nil {
		return nil, nil, err
	}

	p, err := packfile.NewScanner(bytes.NewReader(req.Pack)).Decode()
	if err != nil {
		return nil, nil, err
	}

	rw := packfile.NewCommitRewriter(commitField)
	rewritten := 0
	for _, o := range p.Objects {
		if o.Type != plumbing.CommitObject {
			continue
		}

		payload, replaced, err := rw.Rewrite(o.Payload)
		if err != nil {
			return nil, nil, fmt.Errorf("commit at offset %d: %w", o.Offset, err)
		}
		if replaced {
			o.Payload = payload
			o.Size = int64(len(payload))
			rewritten++
		}
	}

	trace.General.Printf("transform: %d of %d objects rewritten",
		rewritten, p.Header.ObjectsQty)

	var buf bytes.Buffer
	buf.Grow(len(req.Meta) + len(req.Pack))
	buf.Write(req.Meta)

	checksum, err := packfile.NewEncoder(&buf).Encode(p)
	if err != nil {
		return nil, nil, err
	}

	return buf.Bytes(), &Result{
		Objects:   p.Header.ObjectsQty,
		Rewritten: rewritten,
		Checksum:  checksum,
	}, nil
}
