// Package digest computes content addresses and resolves bucket keys.
//
// Digests are lowercase hex SHA-256. A category label that already looks
// like a digest is used verbatim so that links can point at an existing
// bucket by hash.
package digest

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"strings"
)

// Size is the length of a hex-encoded digest.
const Size = 64

// ErrMalformed is returned by Parse for strings that are not digests.
var ErrMalformed = errors.New("malformed digest")

// Digest is a 64 character lowercase hex SHA-256.
type Digest string

// String returns the hex form.
func (d Digest) String() string { return string(d) }

// Short returns a truncated form for logs and CLI output.
func (d Digest) Short() string {
	if len(d) > 16 {
		return string(d[:8]) + "..." + string(d[len(d)-8:])
	}
	return string(d)
}

// IsZero reports whether d is the empty digest.
func (d Digest) IsZero() bool { return d == "" }

// Sum computes the digest of data.
func Sum(data []byte) Digest {
	sum := sha256.Sum256(data)
	return Digest(hex.EncodeToString(sum[:]))
}

// SumString computes the digest of s.
func SumString(s string) Digest {
	h := sha256.New()
	_, _ = io.WriteString(h, s)
	return Digest(hex.EncodeToString(h.Sum(nil)))
}

// SumReader streams r through the hash and returns the digest and the
// number of bytes read.
func SumReader(r io.Reader) (Digest, int64, error) {
	h := sha256.New()
	n, err := io.Copy(h, r)
	if err != nil {
		return "", n, fmt.Errorf("hash read: %w", err)
	}
	return Digest(hex.EncodeToString(h.Sum(nil))), n, nil
}

// IsDigest reports whether s is exactly 64 hex characters, either case.
func IsDigest(s string) bool {
	if len(s) != Size {
		return false
	}
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case c >= '0' && c <= '9':
		case c >= 'a' && c <= 'f':
		case c >= 'A' && c <= 'F':
		default:
			return false
		}
	}
	return true
}

// Parse accepts only strings that already are digests.
func Parse(s string) (Digest, error) {
	if !IsDigest(s) {
		return "", fmt.Errorf("%w: %q", ErrMalformed, s)
	}
	return Digest(strings.ToLower(s)), nil
}

// NormalizeOrHash returns label lower-cased when it is a digest and the
// digest of label otherwise.
func NormalizeOrHash(label string) Digest {
	if IsDigest(label) {
		return Digest(strings.ToLower(label))
	}
	return SumString(label)
}
