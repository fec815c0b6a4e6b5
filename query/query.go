// Package query is the thin external-collaborator layer spec.md describes
// in §6: it owns primary-key uniqueness, keeps every index synchronized on
// update and delete, translates its own user-facing relative-version
// numbers into the storage layer's internal convention, and collapses
// every structured failure from lower layers into the boolean/empty-slice
// contract callers expect. It carries no storage semantics of its own.
package query

import (
	"github.com/koroeder/lstore/config"
	"github.com/koroeder/lstore/table"
)

// Record is one projected row returned by Select/SelectVersion: RID is the
// base RID the row lives at, Columns holds only the values whose mask bit
// was set, in ascending column order.
type Record struct {
	RID     int64
	Columns []int64
}

// Engine wraps one table.Table and is the only component that enforces
// primary-key uniqueness and performs index reconciliation on update.
type Engine struct {
	Table *table.Table
}

// NewEngine constructs a table with numColumns data columns and a
// permanent primary-key index on keyColumn, wrapped in a query engine.
func NewEngine(name string, numColumns, keyColumn int) (*Engine, error) {
	t, err := table.New(name, numColumns, keyColumn)
	if err != nil {
		return nil, err
	}
	return &Engine{Table: t}, nil
}

// translateVersion converts the public convention (0 = latest, -1 = one
// version back, -2 = two back, ...) into storage's internal convention
// (latest -> -1, otherwise subtract 1).
func translateVersion(userVersion int) int {
	if userVersion == 0 {
		return -1
	}
	return userVersion - 1
}

func project(rid int64, data []int64, mask []int) Record {
	var cols []int64
	for i, m := range mask {
		if i >= len(data) {
			break
		}
		if m != 0 {
			cols = append(cols, data[i])
		}
	}
	return Record{RID: rid, Columns: cols}
}

// Insert adds a new row if values[keyColumn] is not already present.
// Returns false without writing anything on a duplicate key.
func (e *Engine) Insert(values []int64) bool {
	key := values[e.Table.KeyColumn]
	if len(e.Table.Locate(e.Table.KeyColumn, key)) > 0 {
		return false
	}
	_, err := e.Table.InsertRecord(values)
	return err == nil
}

// Select returns every live row whose searchColumn equals key, projected
// through mask (mask[i] != 0 keeps column i).
func (e *Engine) Select(key int64, searchColumn int, mask []int) []Record {
	rids := e.Table.Locate(searchColumn, key)
	var out []Record
	for _, rid := range rids {
		row, err := e.Table.GetCumulativeUpdatedRecord(rid)
		if err != nil {
			continue
		}
		out = append(out, project(rid, row[config.TailMeta:], mask))
	}
	return out
}

// SelectVersion is Select sourced from the row as of the given
// user-facing relative version instead of the latest value.
func (e *Engine) SelectVersion(key int64, searchColumn int, mask []int, version int) []Record {
	internal := translateVersion(version)
	rids := e.Table.Locate(searchColumn, key)
	var out []Record
	for _, rid := range rids {
		row, err := e.Table.GetRelativeVersionOfRecord(rid, internal)
		if err != nil {
			continue
		}
		out = append(out, project(rid, row[config.TailMeta:], mask))
	}
	return out
}

// Update writes a tail record onto key's row. newValues[i] == nil leaves
// column i unchanged. Returns false if key is not found (or its row is
// tombstoned) without writing anything.
func (e *Engine) Update(key int64, newValues []*int64) bool {
	rids := e.Table.Locate(e.Table.KeyColumn, key)
	if len(rids) == 0 {
		return false
	}
	rid := rids[0]

	old, err := e.Table.GetCumulativeUpdatedRecord(rid)
	if err != nil {
		return false
	}

	tailCols := make([]int64, e.Table.NumColumns)
	newFull := make([]int64, e.Table.NumColumns)
	for i := 0; i < e.Table.NumColumns; i++ {
		if newValues[i] != nil {
			tailCols[i] = *newValues[i]
			newFull[i] = *newValues[i]
		} else {
			tailCols[i] = config.Null
			newFull[i] = old[config.TailMeta+i]
		}
	}

	if _, err := e.Table.InsertTail(rid, tailCols); err != nil {
		return false
	}
	e.Table.Index.Update(rid, old[config.TailMeta:], newFull)
	return true
}

// Delete tombstones key's row and removes it from every live index.
// Returns false if key is not found.
func (e *Engine) Delete(key int64) bool {
	rids := e.Table.Locate(e.Table.KeyColumn, key)
	if len(rids) == 0 {
		return false
	}
	return e.Table.DeleteRecord(rids[0])
}

// Sum accumulates column over every live row whose key column falls in
// [lo, hi]. ok is false only if the key column currently has no index.
func (e *Engine) Sum(lo, hi int64, column int) (sum int64, ok bool) {
	return e.sumInternal(lo, hi, column, -1)
}

// SumVersion is Sum sourced from each row's value as of the given
// user-facing relative version.
func (e *Engine) SumVersion(lo, hi int64, column int, version int) (sum int64, ok bool) {
	return e.sumInternal(lo, hi, column, translateVersion(version))
}

func (e *Engine) sumInternal(lo, hi int64, column int, internalVersion int) (int64, bool) {
	if !e.Table.Index.HasIndex(e.Table.KeyColumn) {
		return 0, false
	}
	rids := e.Table.LocateRange(e.Table.KeyColumn, lo, hi)
	var total int64
	for _, rid := range rids {
		row, err := e.Table.GetRelativeVersionOfRecord(rid, internalVersion)
		if err != nil {
			continue
		}
		total += row[config.TailMeta+column]
	}
	return total, true
}

// CreateIndex delegates to the table's Index Manager.
func (e *Engine) CreateIndex(col int) bool {
	ok, _ := e.Table.CreateIndex(col)
	return ok
}

// DropIndex delegates to the table's Index Manager.
func (e *Engine) DropIndex(col int) bool {
	return e.Table.DropIndex(col)
}
