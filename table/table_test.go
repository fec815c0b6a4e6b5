package table

import (
	"errors"
	"testing"

	"github.com/koroeder/lstore/config"
	"github.com/koroeder/lstore/errs"
)

func TestNewTableHasPrimaryKeyIndex(t *testing.T) {
	tb, err := New("accounts", 3, 0)
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	if !tb.Index.HasIndex(0) {
		t.Fatalf("expected primary key index on column 0")
	}
}

func TestInsertRecordSyncsIndex(t *testing.T) {
	tb, _ := New("accounts", 2, 0)
	rid, err := tb.InsertRecord([]int64{1, 100})
	if err != nil {
		t.Fatalf("insert: %v", err)
	}
	if got := tb.Locate(0, 1); len(got) != 1 || got[0] != rid {
		t.Fatalf("expected [%d], got %v", rid, got)
	}
}

func TestInsertTailDoesNotTouchIndex(t *testing.T) {
	tb, _ := New("accounts", 2, 0)
	tb.CreateIndex(1)
	rid, _ := tb.InsertRecord([]int64{1, 100})

	if _, err := tb.InsertTail(rid, []int64{config.Null, 200}); err != nil {
		t.Fatalf("insert tail: %v", err)
	}
	// InsertTail leaves the index unreconciled; the stale value is still
	// findable, since package table is not responsible for update sync.
	if got := tb.Locate(1, 100); len(got) != 1 {
		t.Fatalf("expected stale index entry to remain, got %v", got)
	}

	row, err := tb.GetCumulativeUpdatedRecord(rid)
	if err != nil {
		t.Fatalf("get cumulative: %v", err)
	}
	if row[config.TailMeta+1] != 200 {
		t.Fatalf("expected updated value 200, got %d", row[config.TailMeta+1])
	}
}

func TestDeleteRecordRemovesFromIndexAndTombstones(t *testing.T) {
	tb, _ := New("accounts", 2, 0)
	tb.CreateIndex(1)
	rid, _ := tb.InsertRecord([]int64{1, 100})

	if !tb.DeleteRecord(rid) {
		t.Fatalf("expected delete to succeed")
	}
	if got := tb.Locate(0, 1); got != nil {
		t.Fatalf("expected primary key index entry removed, got %v", got)
	}
	if got := tb.Locate(1, 100); got != nil {
		t.Fatalf("expected secondary index entry removed, got %v", got)
	}
	if _, err := tb.GetRecord(rid); !errors.Is(err, errs.ErrRecordDeleted) {
		t.Fatalf("expected ErrRecordDeleted, got %v", err)
	}
}

func TestCreateIndexBulkLoadsExistingRows(t *testing.T) {
	tb, _ := New("accounts", 2, 0)
	tb.InsertRecord([]int64{1, 100})
	tb.InsertRecord([]int64{2, 200})

	ok, err := tb.CreateIndex(1)
	if err != nil || !ok {
		t.Fatalf("create_index: ok=%v err=%v", ok, err)
	}
	if got := tb.Locate(1, 200); len(got) != 1 {
		t.Fatalf("expected bulk-loaded entry for 200, got %v", got)
	}
}

func TestRowsSkipsDeletedAndNull(t *testing.T) {
	tb, _ := New("accounts", 1, 0)
	rid1, _ := tb.InsertRecord([]int64{1})
	tb.InsertRecord([]int64{config.Null})
	tb.DeleteRecord(rid1)

	rows, err := tb.Rows(0)
	if err != nil {
		t.Fatalf("rows: %v", err)
	}
	if len(rows) != 0 {
		t.Fatalf("expected no rows (one deleted, one null), got %v", rows)
	}
}
