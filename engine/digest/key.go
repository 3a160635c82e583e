package digest

import "strings"

type keyKind uint8

const (
	kindNone keyKind = iota
	kindHash
	kindLabel
)

// BucketKey names a bucket either by digest or by a free-form label that
// is hashed on Resolve. The zero value names no bucket.
type BucketKey struct {
	kind  keyKind
	value string
}

// HashKey names the bucket d.
func HashKey(d Digest) BucketKey {
	return BucketKey{kind: kindHash, value: strings.ToLower(string(d))}
}

// LabelKey names the bucket of SumString(label), even when label happens
// to look like a digest.
func LabelKey(label string) BucketKey {
	return BucketKey{kind: kindLabel, value: label}
}

// ParseKey converts caller input at the boundary: 64 hex characters
// become a HashKey, anything else a LabelKey. Empty input is the zero key.
func ParseKey(s string) BucketKey {
	switch {
	case s == "":
		return BucketKey{}
	case IsDigest(s):
		d, _ := Parse(s)
		return HashKey(d)
	default:
		return LabelKey(s)
	}
}

// IsZero reports whether the key names no bucket.
func (k BucketKey) IsZero() bool { return k.kind == kindNone }

// IsHash reports whether the key was given as a digest.
func (k BucketKey) IsHash() bool { return k.kind == kindHash }

// Label returns the raw label for label keys and "" otherwise.
func (k BucketKey) Label() string {
	if k.kind == kindLabel {
		return k.value
	}
	return ""
}

// Resolve returns the bucket digest.
func (k BucketKey) Resolve() Digest {
	switch k.kind {
	case kindHash:
		return Digest(k.value)
	case kindLabel:
		return SumString(k.value)
	}
	return ""
}

func (k BucketKey) String() string {
	switch k.kind {
	case kindHash:
		return "hash:" + k.value
	case kindLabel:
		return "label:" + k.value
	}
	return "<none>"
}
