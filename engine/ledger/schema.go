package ledger

// BoltDB bucket names
const (
	BucketObjects = "objects" // {digest} -> ObjectRecord
	BucketMeta    = "meta"    // {digest} -> models.Meta, first write wins

	// Set-based, value is empty
	BucketMembers = "members" // {bucket}/{digest} -> empty
	BucketSeen    = "seen"    // {absolute index file} -> {blake3(entry)} -> empty

	BucketInfo = "info" // schema_version

	KeySchemaVersion = "schema_version"

	SchemaVersion = 2
)

// AllBuckets returns all bucket names for initialization
func AllBuckets() []string {
	return []string{
		BucketObjects,
		BucketMeta,
		BucketMembers,
		BucketSeen,
		BucketInfo,
	}
}
