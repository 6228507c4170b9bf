package status

import (
	"path/filepath"
	"testing"
	"time"
)

func ts(unix int64) time.Time {
	return time.Unix(unix, 0).UTC()
}

func TestMergeUnionsDisjointRecords(t *testing.T) {
	a := Record{"job_42": ts(100)}
	b := Record{"job_7": ts(50)}

	merged := Merge(a, b)
	if len(merged) != 2 {
		t.Fatalf("merged = %v", merged)
	}
	if !merged["job_42"].Equal(ts(100)) || !merged["job_7"].Equal(ts(50)) {
		t.Errorf("merged = %v", merged)
	}
}

func TestMergeLaterTimestampWins(t *testing.T) {
	a := Record{"job_1": ts(100)}
	b := Record{"job_1": ts(200)}

	if got := Merge(a, b)["job_1"]; !got.Equal(ts(200)) {
		t.Errorf("merged timestamp = %v, want later one", got)
	}
	if got := Merge(b, a)["job_1"]; !got.Equal(ts(200)) {
		t.Errorf("reverse merge timestamp = %v, want later one", got)
	}
}

func TestMergeCommutative(t *testing.T) {
	a := Record{"j1": ts(10), "j2": ts(300)}
	b := Record{"j2": ts(20), "j3": ts(5)}

	ab := Merge(a, b)
	ba := Merge(b, a)
	if len(ab) != len(ba) {
		t.Fatalf("sizes differ: %v vs %v", ab, ba)
	}
	for k, v := range ab {
		if !ba[k].Equal(v) {
			t.Errorf("key %s: %v vs %v", k, v, ba[k])
		}
	}
}

func TestMergeIdempotent(t *testing.T) {
	a := Record{"j1": ts(10)}
	b := Record{"j1": ts(20), "j2": ts(5)}

	once := Merge(a, b)
	twice := Merge(once, b)
	if len(once) != len(twice) {
		t.Fatalf("sizes differ: %v vs %v", once, twice)
	}
	for k, v := range once {
		if !twice[k].Equal(v) {
			t.Errorf("key %s changed on re-merge", k)
		}
	}
}

func TestMergeAbsenceNeverUnapplies(t *testing.T) {
	applied := Record{"j1": ts(100)}
	stale := Record{}

	if _, ok := Merge(applied, stale)["j1"]; !ok {
		t.Error("merging with an empty record must not drop applied jobs")
	}
}

func TestLoadMissingFileIsEmptyRecord(t *testing.T) {
	rec, err := Load(filepath.Join(t.TempDir(), "nope.json"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(rec) != 0 {
		t.Errorf("record = %v, want empty", rec)
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "status.json")
	rec := Record{"j1": ts(100), "j2": ts(200)}

	if err := Save(path, rec); err != nil {
		t.Fatalf("Save: %v", err)
	}
	got, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(got) != 2 || !got["j1"].Equal(ts(100)) {
		t.Errorf("got = %v", got)
	}
}

func TestReconcileConvergesBothSides(t *testing.T) {
	dir := t.TempDir()
	localPath := filepath.Join(dir, "local.json")
	remotePath := filepath.Join(dir, "remote.json")

	if err := Save(localPath, Record{"j1": ts(100), "shared": ts(50)}); err != nil {
		t.Fatalf("Save local: %v", err)
	}
	if err := Save(remotePath, Record{"j2": ts(70), "shared": ts(90)}); err != nil {
		t.Fatalf("Save remote: %v", err)
	}

	merged, err := Reconcile(localPath, remotePath)
	if err != nil {
		t.Fatalf("Reconcile: %v", err)
	}
	if len(merged) != 3 || !merged["shared"].Equal(ts(90)) {
		t.Errorf("merged = %v", merged)
	}

	for _, path := range []string{localPath, remotePath} {
		got, err := Load(path)
		if err != nil {
			t.Fatalf("Load %s: %v", path, err)
		}
		if len(got) != 3 || !got["shared"].Equal(ts(90)) {
			t.Errorf("%s = %v, both sides must converge", filepath.Base(path), got)
		}
	}
}

func TestReconcileRepeatIsStable(t *testing.T) {
	dir := t.TempDir()
	localPath := filepath.Join(dir, "local.json")
	remotePath := filepath.Join(dir, "remote.json")
	Save(localPath, Record{"j1": ts(100)})
	Save(remotePath, Record{"j2": ts(70)})

	first, err := Reconcile(localPath, remotePath)
	if err != nil {
		t.Fatalf("first Reconcile: %v", err)
	}
	second, err := Reconcile(localPath, remotePath)
	if err != nil {
		t.Fatalf("second Reconcile: %v", err)
	}
	if len(first) != len(second) {
		t.Errorf("repeat reconcile changed the record: %v vs %v", first, second)
	}
}
