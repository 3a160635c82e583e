// Package paths maps digests to on-disk locations. Nothing here touches
// the filesystem; directories are created lazily by the store.
package paths

import (
	"fmt"
	"path"
	"path/filepath"
	"strings"
	"time"
	"unicode"

	"github.com/Kush-Singh-26/hashdrop/engine/digest"
	"github.com/Kush-Singh-26/hashdrop/engine/models"
)

const (
	// IndexName is the primary listing file of every bucket.
	IndexName = "index.html"

	indexPrefix = "index_"
	indexSuffix = ".html"
	dateLayout  = "20060102"
)

// forbiddenExtensions are never persisted under a served directory.
var forbiddenExtensions = map[string]bool{
	"php": true,
}

// NormalizeExtension strips one leading dot and lower-cases ext. It
// rejects server-side script extensions and anything that could escape
// the bucket directory.
func NormalizeExtension(ext string) (string, error) {
	ext = strings.ToLower(strings.TrimPrefix(ext, "."))
	if forbiddenExtensions[ext] {
		return "", fmt.Errorf("%w: extension %q is not allowed", models.ErrInvalidInput, ext)
	}
	for _, r := range ext {
		if r == '/' || r == '\\' || r == '.' || r == 0 || unicode.IsSpace(r) {
			return "", fmt.Errorf("%w: malformed extension %q", models.ErrInvalidInput, ext)
		}
	}
	return ext, nil
}

// BucketDir returns base/d.
func BucketDir(base string, d digest.Digest) string {
	return filepath.Join(base, string(d))
}

// ObjectName returns "d.ext", or "d" when ext is empty. ext must already
// be normalized.
func ObjectName(d digest.Digest, ext string) string {
	if ext == "" {
		return string(d)
	}
	return string(d) + "." + ext
}

// ObjectPath returns bucketDir/d.ext after validating ext.
func ObjectPath(bucketDir string, d digest.Digest, ext string) (string, error) {
	ext, err := NormalizeExtension(ext)
	if err != nil {
		return "", err
	}
	return filepath.Join(bucketDir, ObjectName(d, ext)), nil
}

// RolloverName returns index_YYYYMMDD.html for n == 0 and
// index_YYYYMMDD_n.html otherwise.
func RolloverName(t time.Time, n int) string {
	if n <= 0 {
		return indexPrefix + t.Format(dateLayout) + indexSuffix
	}
	return fmt.Sprintf("%s%s_%d%s", indexPrefix, t.Format(dateLayout), n, indexSuffix)
}

// IsIndexName reports whether name is index.html or a rollover file.
func IsIndexName(name string) bool {
	if name == IndexName {
		return true
	}
	return strings.HasPrefix(name, indexPrefix) && strings.HasSuffix(name, indexSuffix)
}

// ObjectHref is the link to an object from inside its own bucket.
func ObjectHref(d digest.Digest, ext string) string {
	return ObjectName(d, ext)
}

// CategoryHref is the link to an object from a sibling bucket.
func CategoryHref(d digest.Digest, ext string) string {
	return path.Join("..", string(d), ObjectName(d, ext))
}

// IndexHref is the link to a bucket's primary index from a sibling bucket.
func IndexHref(d digest.Digest) string {
	return path.Join("..", string(d), IndexName)
}

// ParseObjectName is the inverse of ObjectName. It accepts only names
// the store itself would produce.
func ParseObjectName(name string) (digest.Digest, string, bool) {
	base, ext, _ := strings.Cut(name, ".")
	if !digest.IsDigest(base) || strings.ToLower(base) != base {
		return "", "", false
	}
	if norm, err := NormalizeExtension(ext); err != nil || norm != ext {
		return "", "", false
	}
	return digest.Digest(base), ext, true
}
