package idhash

import "fmt"

// ComputeSnapshotID computes a deterministic snapshot_id using SHA256.
// Formula: SHA256(class_id|taken_at), base58-encoded.
func ComputeSnapshotID(classID string, takenAt int64) string {
	return encode(fmt.Sprintf("%s|%d", classID, takenAt))
}
