// Package models holds the types shared between the storage engine
// packages and their callers.
package models

import (
	"fmt"
	"strings"
	"time"

	"github.com/Kush-Singh-26/hashdrop/engine/digest"
)

// DuplicatePolicy selects what a store call does when the destination
// already exists.
type DuplicatePolicy int

const (
	// DuplicateIgnore reports IsFirst=false and succeeds.
	DuplicateIgnore DuplicatePolicy = iota
	// DuplicateError fails with ErrDuplicateContent.
	DuplicateError
)

func (p DuplicatePolicy) String() string {
	if p == DuplicateError {
		return "error"
	}
	return "ignore"
}

// ParseDuplicatePolicy accepts "ignore" or "error" (case-insensitive).
func ParseDuplicatePolicy(s string) (DuplicatePolicy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "ignore":
		return DuplicateIgnore, nil
	case "error":
		return DuplicateError, nil
	}
	return DuplicateIgnore, fmt.Errorf("%w: unknown duplicate policy %q", ErrInvalidInput, s)
}

// StoreResult describes the outcome of an Object Store write.
type StoreResult struct {
	Digest  digest.Digest
	Path    string
	IsFirst bool
}

// AppendResult describes the outcome of an index append.
type AppendResult struct {
	File       string // index file that was (or would have been) written
	Appended   bool
	Created    bool // file did not exist before this append
	RolledOver bool // File is not the bucket's primary index.html
}

// Meta is the optional submitter metadata kept alongside an object.
type Meta struct {
	User        string `msgpack:"user" json:"user"`
	Title       string `msgpack:"title" json:"title"`
	Description string `msgpack:"description" json:"description"`
	URL         string `msgpack:"url" json:"url"`
}

// IsZero reports whether no metadata field is set.
func (m Meta) IsZero() bool {
	return m.User == "" && m.Title == "" && m.Description == "" && m.URL == ""
}

// AssociateRequest is the input to the Category/Link Graph.
type AssociateRequest struct {
	Content     []byte
	Extension   string
	Category    digest.BucketKey
	ReplyTo     digest.BucketKey
	DisplayName string
	TargetURL   string // external-link entry; Content must be empty
	Policy      DuplicatePolicy
}

// IsLink reports whether the request indexes an external URL instead of
// stored bytes.
func (r *AssociateRequest) IsLink() bool {
	return r.TargetURL != "" && len(r.Content) == 0
}

// BucketLink records one index append performed for an association.
type BucketLink struct {
	Bucket digest.Digest
	Kind   BucketKind
	AppendResult
}

// BucketKind is tracked by callers because directories are kind-agnostic.
type BucketKind string

const (
	KindContent  BucketKind = "content"
	KindCategory BucketKind = "category"
	KindReply    BucketKind = "reply"
	KindPage     BucketKind = "page"
)

// AssociateResult is returned by a successful association.
type AssociateResult struct {
	Digest      digest.Digest
	Extension   string
	DisplayName string
	IsFirst     bool
	ObjectPath  string // empty for external-link entries
	Links       []BucketLink
	StoredAt    time.Time
}

// Link returns the first link of the given kind, if any.
func (r *AssociateResult) Link(kind BucketKind) (BucketLink, bool) {
	for _, l := range r.Links {
		if l.Kind == kind {
			return l, true
		}
	}
	return BucketLink{}, false
}
