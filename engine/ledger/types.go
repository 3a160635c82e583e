package ledger

import (
	"encoding/hex"
	"io"

	"github.com/vmihailenco/msgpack/v5"
	"github.com/zeebo/blake3"

	"github.com/Kush-Singh-26/hashdrop/engine/models"
)

// ObjectRecord describes a stored object or external link.
type ObjectRecord struct {
	Digest      string `msgpack:"digest"`
	Extension   string `msgpack:"ext"`
	Size        int64  `msgpack:"size"`
	DisplayName string `msgpack:"display_name"`
	TargetURL   string `msgpack:"target_url,omitempty"`
	CreatedAt   int64  `msgpack:"created_at"`
}

// Membership is one bucket an object has been linked into.
type Membership struct {
	Bucket string            `msgpack:"bucket"`
	Digest string            `msgpack:"digest"`
	Kind   models.BucketKind `msgpack:"kind"`
}

// Stats summarizes the ledger contents.
type Stats struct {
	Objects       int
	Links         int
	Members       int
	SeenEntries   int
	WithMeta      int
	SchemaVersion int
}

// Fingerprint keys an entry inside a file's seen set.
func Fingerprint(entry string) string {
	h := blake3.New()
	_, _ = io.WriteString(h, entry)
	return hex.EncodeToString(h.Sum(nil))
}

// Encode serializes a value to msgpack bytes
func Encode(v interface{}) ([]byte, error) {
	return msgpack.Marshal(v)
}

// Decode deserializes msgpack bytes to a value
func Decode(data []byte, v interface{}) error {
	return msgpack.Unmarshal(data, v)
}
