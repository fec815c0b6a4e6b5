// Package table holds the Table facade: the name, column count and key
// column of one table, composing a PageDirectory and an Index Manager and
// routing the base-record operations between them.
package table

import (
	"errors"

	"github.com/koroeder/lstore/config"
	"github.com/koroeder/lstore/errs"
	"github.com/koroeder/lstore/index"
	"github.com/koroeder/lstore/storage"
)

// Table composes a PageDirectory and an Index Manager for one table. It
// owns no logic beyond routing between them: insert/delete keep the
// primary identity (the base RID) synchronized with every live index;
// building an update's tail record and reconciling old-vs-new index
// entries is the query engine's job (see package query), since only the
// caller knows which columns actually changed.
type Table struct {
	Name       string
	NumColumns int
	KeyColumn  int

	Dir   *storage.PageDirectory
	Index *index.Manager
}

// New constructs an empty table with numColumns data columns and a
// permanent primary-key index on keyColumn.
func New(name string, numColumns, keyColumn int) (*Table, error) {
	dir := storage.NewPageDirectory(numColumns)
	mgr := index.NewManager(numColumns, keyColumn)

	t := &Table{
		Name:       name,
		NumColumns: numColumns,
		KeyColumn:  keyColumn,
		Dir:        dir,
		Index:      mgr,
	}
	mgr.SetSource(t)
	if _, err := mgr.CreateIndex(keyColumn); err != nil {
		return nil, err
	}
	return t, nil
}

// InsertRecord writes a new base record and adds it to every live index.
// dataColumns has length NumColumns; NULL entries are simply not indexed.
func (t *Table) InsertRecord(dataColumns []int64) (int64, error) {
	row := make([]int64, config.BaseMeta+t.NumColumns)
	for i := range row[:config.BaseMeta] {
		row[i] = config.Null
	}
	copy(row[config.BaseMeta:], dataColumns)

	rid, err := t.Dir.AddRecord(row, false, 0)
	if err != nil {
		return 0, err
	}
	t.Index.Add(rid, dataColumns)
	return rid, nil
}

// InsertTail writes a new tail record onto baseRID's chain. dataColumns
// has length NumColumns; an entry equal to config.Null leaves that column
// unchanged. InsertTail does not touch any index: the caller (package
// query) reconciles old-vs-new values once it knows what actually changed.
func (t *Table) InsertTail(baseRID int64, dataColumns []int64) (int64, error) {
	row := make([]int64, config.TailMeta+t.NumColumns)
	for i := range row[:config.TailMeta] {
		row[i] = config.Null
	}
	copy(row[config.TailMeta:], dataColumns)
	return t.Dir.AddRecord(row, true, baseRID)
}

// GetRecord returns the raw stored row at rid.
func (t *Table) GetRecord(rid int64) ([]int64, error) {
	return t.Dir.GetRecord(rid)
}

// GetCumulativeUpdatedRecord reconstructs the current logical row for
// baseRID.
func (t *Table) GetCumulativeUpdatedRecord(baseRID int64) ([]int64, error) {
	return t.Dir.GetCumulativeUpdatedRecord(baseRID)
}

// GetRelativeVersionOfRecord reconstructs baseRID's row as of exactly a
// prefix of its tails. version follows the internal convention of
// storage.PageDirectory.GetRelativeVersionOfRecord.
func (t *Table) GetRelativeVersionOfRecord(baseRID int64, version int) ([]int64, error) {
	return t.Dir.GetRelativeVersionOfRecord(baseRID, version)
}

// DeleteRecord tombstones the base record at rid and removes it from
// every live index, keyed on the row's current (pre-tombstone) values.
// Idempotent: deleting an already-deleted row still returns true.
func (t *Table) DeleteRecord(rid int64) bool {
	if _, err := t.Dir.GetRecord(rid); errors.Is(err, errs.ErrRecordDeleted) {
		return true
	}
	current, err := t.Dir.GetCumulativeUpdatedRecord(rid)
	if err != nil {
		return false
	}
	if !t.Dir.DeleteRecord(rid) {
		return false
	}
	t.Index.Remove(rid, current[config.TailMeta:])
	return true
}

// CreateIndex delegates to the Index Manager.
func (t *Table) CreateIndex(col int) (bool, error) { return t.Index.CreateIndex(col) }

// DropIndex delegates to the Index Manager.
func (t *Table) DropIndex(col int) bool { return t.Index.DropIndex(col) }

// Locate delegates to the Index Manager.
func (t *Table) Locate(col int, value int64) []int64 { return t.Index.Locate(col, value) }

// LocateRange delegates to the Index Manager.
func (t *Table) LocateRange(col int, lo, hi int64) []int64 { return t.Index.LocateRange(col, lo, hi) }

// Rows implements index.RowSource: it yields (RID, value) for every live
// base row's current value of column, skipping tombstoned rows and NULL
// values, for Index Manager bulk load.
func (t *Table) Rows(column int) ([]index.Row, error) {
	var out []index.Row
	for _, rid := range t.Dir.AllBaseRIDs() {
		if _, err := t.Dir.GetRecord(rid); err != nil {
			if errors.Is(err, errs.ErrRecordDeleted) {
				continue
			}
			return nil, err
		}
		row, err := t.Dir.GetCumulativeUpdatedRecord(rid)
		if err != nil {
			return nil, err
		}
		v := row[config.TailMeta+column]
		if v == config.Null {
			continue
		}
		out = append(out, index.Row{RID: rid, Value: v})
	}
	return out, nil
}
