package storage

import (
	"errors"
	"testing"

	"github.com/koroeder/lstore/config"
	"github.com/koroeder/lstore/errs"
)

func newBaseRow(numColumns int, data ...int64) []int64 {
	row := make([]int64, config.BaseMeta+numColumns)
	for i := range row[:config.BaseMeta] {
		row[i] = config.Null
	}
	copy(row[config.BaseMeta:], data)
	return row
}

func newTailRow(numColumns int, data []int64) []int64 {
	row := make([]int64, config.TailMeta+numColumns)
	for i := range row[:config.TailMeta] {
		row[i] = config.Null
	}
	copy(row[config.TailMeta:], data)
	return row
}

func TestAddRecordAndGetRecord(t *testing.T) {
	d := NewPageDirectory(3)
	rid, err := d.AddRecord(newBaseRow(3, 1, 2, 3), false, 0)
	if err != nil {
		t.Fatalf("add_record: %v", err)
	}
	row, err := d.GetRecord(rid)
	if err != nil {
		t.Fatalf("get_record: %v", err)
	}
	if row[config.BaseMeta] != 1 || row[config.BaseMeta+1] != 2 || row[config.BaseMeta+2] != 3 {
		t.Errorf("unexpected data columns: %v", row[config.BaseMeta:])
	}
}

// Scenario: insert a base row, update two of its columns with a single
// tail, and confirm cumulative reconstruction resolves the new values
// while leaving the untouched column at its original value.
func TestCumulativeReconstructionSingleTail(t *testing.T) {
	d := NewPageDirectory(3)
	baseRID, err := d.AddRecord(newBaseRow(3, 10, 20, 30), false, 0)
	if err != nil {
		t.Fatalf("add base: %v", err)
	}

	tail := newTailRow(3, []int64{config.Null, 200, config.Null})
	if _, err := d.AddRecord(tail, true, baseRID); err != nil {
		t.Fatalf("add tail: %v", err)
	}

	got, err := d.GetCumulativeUpdatedRecord(baseRID)
	if err != nil {
		t.Fatalf("cumulative: %v", err)
	}
	want := []int64{10, 200, 30}
	for i, w := range want {
		if got[config.TailMeta+i] != w {
			t.Errorf("column %d: expected %d, got %d", i, w, got[config.TailMeta+i])
		}
	}
}

// Multiple tails updating disjoint columns must all be resolved, and the
// walk must stop once every bit in the base's cumulative schema_encoding
// has been cleared (it should not need to reach the base itself to find
// column 0's value if a tail already supplied it).
func TestCumulativeReconstructionMultipleTailsShortCircuits(t *testing.T) {
	d := NewPageDirectory(2)
	baseRID, _ := d.AddRecord(newBaseRow(2, 1, 1), false, 0)

	d.AddRecord(newTailRow(2, []int64{2, config.Null}), true, baseRID)
	d.AddRecord(newTailRow(2, []int64{config.Null, 2}), true, baseRID)
	d.AddRecord(newTailRow(2, []int64{3, config.Null}), true, baseRID)

	got, err := d.GetCumulativeUpdatedRecord(baseRID)
	if err != nil {
		t.Fatalf("cumulative: %v", err)
	}
	if got[config.TailMeta] != 3 {
		t.Errorf("column 0: expected most recent write 3, got %d", got[config.TailMeta])
	}
	if got[config.TailMeta+1] != 2 {
		t.Errorf("column 1: expected 2, got %d", got[config.TailMeta+1])
	}
}

// Relative-version reconstruction applies tails oldest-first up to a
// prefix, overwriting rather than stopping at the first resolved bit.
func TestRelativeVersionReconstruction(t *testing.T) {
	d := NewPageDirectory(1)
	baseRID, _ := d.AddRecord(newBaseRow(1, 100), false, 0)
	d.AddRecord(newTailRow(1, []int64{200}), true, baseRID) // version 1
	d.AddRecord(newTailRow(1, []int64{300}), true, baseRID) // version 2

	v0, err := d.GetRelativeVersionOfRecord(baseRID, 0)
	if err != nil {
		t.Fatalf("version 0: %v", err)
	}
	if v0[config.TailMeta] != 100 {
		t.Errorf("version 0: expected base value 100, got %d", v0[config.TailMeta])
	}

	v1, err := d.GetRelativeVersionOfRecord(baseRID, 1)
	if err != nil {
		t.Fatalf("version 1: %v", err)
	}
	if v1[config.TailMeta] != 200 {
		t.Errorf("version 1: expected 200, got %d", v1[config.TailMeta])
	}

	latest, err := d.GetRelativeVersionOfRecord(baseRID, -1)
	if err != nil {
		t.Fatalf("version -1 (latest): %v", err)
	}
	if latest[config.TailMeta] != 300 {
		t.Errorf("latest: expected 300, got %d", latest[config.TailMeta])
	}

	oneBack, err := d.GetRelativeVersionOfRecord(baseRID, -2)
	if err != nil {
		t.Fatalf("version -2: %v", err)
	}
	if oneBack[config.TailMeta] != 200 {
		t.Errorf("one back from latest: expected 200, got %d", oneBack[config.TailMeta])
	}
}

func TestDeleteRecordTombstonesAndIsIdempotent(t *testing.T) {
	d := NewPageDirectory(1)
	rid, _ := d.AddRecord(newBaseRow(1, 5), false, 0)

	if !d.DeleteRecord(rid) {
		t.Fatalf("expected delete to succeed")
	}
	if !d.DeleteRecord(rid) {
		t.Fatalf("expected idempotent delete to still report success")
	}
	if _, err := d.GetRecord(rid); !errors.Is(err, errs.ErrRecordDeleted) {
		t.Fatalf("expected ErrRecordDeleted, got %v", err)
	}
}

func TestDeleteRecordUnallocatedRangeReturnsFalse(t *testing.T) {
	d := NewPageDirectory(1)
	if d.DeleteRecord(EncodeRID(99, config.SegmentBase, 0)) {
		t.Fatalf("expected delete of unallocated rid to report false")
	}
}

func TestAddTailSchemaMismatchWidth(t *testing.T) {
	d := NewPageDirectory(2)
	baseRID, _ := d.AddRecord(newBaseRow(2, 1, 2), false, 0)
	if _, err := d.AddRecord([]int64{1}, true, baseRID); !errors.Is(err, errs.ErrSchemaMismatch) {
		t.Fatalf("expected ErrSchemaMismatch, got %v", err)
	}
}

func TestTailRangeFullOnceRecordsPerRangeTailsWritten(t *testing.T) {
	d := NewPageDirectory(1)
	baseRID, _ := d.AddRecord(newBaseRow(1, 1), false, 0)
	for i := 0; i < config.RecordsPerRange; i++ {
		if _, err := d.AddRecord(newTailRow(1, []int64{int64(i)}), true, baseRID); err != nil {
			t.Fatalf("tail %d: unexpected error %v", i, err)
		}
	}
	if _, err := d.AddRecord(newTailRow(1, []int64{0}), true, baseRID); !errors.Is(err, errs.ErrTailRangeFull) {
		t.Fatalf("expected ErrTailRangeFull, got %v", err)
	}
}

func TestAllBaseRIDsSpansMultipleRanges(t *testing.T) {
	d := NewPageDirectory(1)
	n := config.RecordsPerRange + 5
	for i := 0; i < n; i++ {
		if _, err := d.AddRecord(newBaseRow(1, int64(i)), false, 0); err != nil {
			t.Fatalf("add %d: %v", i, err)
		}
	}
	rids := d.AllBaseRIDs()
	if len(rids) != n {
		t.Fatalf("expected %d rids, got %d", n, len(rids))
	}
}
