package packfile

import (
	"bytes"
	"unicode/utf8"
)

// GitHubCommitField is the commit message field value set by GitHub's web
// flow, and the only literal CommitRewriter looks for.
const GitHubCommitField = "Commit: GitHub <noreply@github.com>"

const commitFieldPrefix = "Commit: "

// CommitRewriter replaces the GitHub commit field inside commit object
// payloads with a caller-provided value. It holds no mutable state and is
// safe for concurrent use.
type CommitRewriter struct {
	field []byte
}

// NewCommitRewriter returns a CommitRewriter that substitutes field for the
// GitHub value, e.g. "Alice <alice@example.com>".
func NewCommitRewriter(field string) *CommitRewriter {
	return &CommitRewriter{
		field: []byte(commitFieldPrefix + field),
	}
}

// Rewrite returns the payload with the first occurrence of
// [GitHubCommitField] replaced, and reports whether a replacement took
// place. A payload without the literal is returned unchanged with replaced
// set to false; that outcome is deliberate, callers that require a mutation
// must check the flag.
//
// The payload must be valid UTF-8 text. Commit objects in arbitrary Git
// history are not guaranteed to be, which is a documented limitation of
// this rewriter, not of the container codec.
func (rw *CommitRewriter) Rewrite(payload []byte) (out []byte, replaced bool, err error) {
	if !utf8.Valid(payload) {
		return nil, false, ErrInvalidEncoding
	}

	if !bytes.Contains(payload, []byte(GitHubCommitField)) {
		return payload, false, nil
	}

	return bytes.Replace(payload, []byte(GitHubCommitField), rw.field, 1), true, nil
}
