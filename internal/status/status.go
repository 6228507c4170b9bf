// Package status tracks which jobs a candidate has applied to, across
// devices that mutate their local copy independently. Conflicts resolve by
// a timestamp-keyed last-write-wins merge with no central coordinator.
package status

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/jobradar/jobradar/internal/snapshot"
)

// Record maps job_id to the time it was marked applied. Absence means not
// applied.
type Record map[string]time.Time

// Merge joins two records last-write-wins: the union of all keys, keeping
// the later timestamp where both sides have an entry. Merge is commutative
// and idempotent, so devices can merge in any order, repeatedly, and
// converge. A stale merge can never un-apply a job (absence never beats
// presence).
func Merge(a, b Record) Record {
	merged := make(Record, len(a)+len(b))
	for id, t := range a {
		merged[id] = t
	}
	for id, t := range b {
		if existing, ok := merged[id]; !ok || t.After(existing) {
			merged[id] = t
		}
	}
	return merged
}

// fileFormat is the on-disk shape of a status record. Timestamps are
// RFC3339 via encoding/json's time.Time handling.
type fileFormat struct {
	Applied map[string]time.Time `json:"applied"`
}

// Load reads a status record. A missing file is an empty record, not an
// error — a fresh device starts with nothing applied.
func Load(path string) (Record, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return Record{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read status record: %w", err)
	}

	var f fileFormat
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse status record %s: %w", path, err)
	}
	if f.Applied == nil {
		return Record{}, nil
	}
	return Record(f.Applied), nil
}

// Save writes the record atomically.
func Save(path string, rec Record) error {
	if err := snapshot.WriteJSONAtomic(path, fileFormat{Applied: rec}); err != nil {
		return fmt.Errorf("save status record: %w", err)
	}
	return nil
}

// Reconcile merges the device-local record into the remote record-of-record
// and writes both sides, so the device also observes any applied markings
// it had not seen yet. Returns the merged record.
func Reconcile(localPath, remotePath string) (Record, error) {
	local, err := Load(localPath)
	if err != nil {
		return nil, err
	}
	remote, err := Load(remotePath)
	if err != nil {
		return nil, err
	}

	merged := Merge(local, remote)

	if err := Save(remotePath, merged); err != nil {
		return nil, err
	}
	if err := Save(localPath, merged); err != nil {
		return nil, err
	}
	return merged, nil
}
