package index

import (
	"fmt"

	"github.com/koroeder/lstore/config"
	"github.com/koroeder/lstore/errs"
)

// Row is one (RID, value) pair of a data column, as seen by bulk load.
type Row struct {
	RID   int64
	Value int64
}

// RowSource lets the Index Manager bulk-load a freshly created index
// without importing package table (which in turn composes PageDirectory
// and Manager). Table is the only production implementation.
type RowSource interface {
	// Rows returns one entry per live (non-tombstoned) base row whose
	// current value for column is not the NULL sentinel.
	Rows(column int) ([]Row, error)
}

// Manager owns one B+ tree per indexed column. The primary-key index is
// created by the owning table's constructor and can never be dropped.
type Manager struct {
	numColumns int
	keyColumn  int
	trees      []*BTree // nil entry: no index on that column
	source     RowSource
}

// NewManager constructs a manager with no indexes. The caller must call
// SetSource before CreateIndex, and is expected to immediately
// CreateIndex(keyColumn) to stand up the permanent primary-key index.
func NewManager(numColumns, keyColumn int) *Manager {
	return &Manager{
		numColumns: numColumns,
		keyColumn:  keyColumn,
		trees:      make([]*BTree, numColumns),
	}
}

// SetSource wires the bulk-load collaborator. Called once, by the Table
// constructor, to break the import cycle between table and index.
func (m *Manager) SetSource(src RowSource) {
	m.source = src
}

// KeyColumn returns the permanent primary-key column.
func (m *Manager) KeyColumn() int { return m.keyColumn }

func (m *Manager) inRange(col int) bool {
	return col >= 0 && col < m.numColumns
}

// CreateIndex allocates a B+ tree over column and bulk-loads it from every
// live base row. Returns (false, nil) if an index already exists on that
// column; fails with errs.ErrInvalidColumn if col is out of range.
func (m *Manager) CreateIndex(col int) (bool, error) {
	if !m.inRange(col) {
		return false, fmt.Errorf("create_index: column %d: %w", col, errs.ErrInvalidColumn)
	}
	if m.trees[col] != nil {
		return false, nil
	}
	bt := NewBTree(config.BTreeOrder)
	if m.source != nil {
		rows, err := m.source.Rows(col)
		if err != nil {
			return false, err
		}
		for _, r := range rows {
			bt.Insert(r.Value, r.RID)
		}
	}
	m.trees[col] = bt
	return true, nil
}

// DropIndex releases the tree over col. Returns false without effect if
// col is the primary-key column, out of range, or has no index.
func (m *Manager) DropIndex(col int) bool {
	if col == m.keyColumn || !m.inRange(col) || m.trees[col] == nil {
		return false
	}
	m.trees[col] = nil
	return true
}

// Locate returns the RIDs indexed under value in col, or nil if col has no
// index.
func (m *Manager) Locate(col int, value int64) []int64 {
	if !m.inRange(col) || m.trees[col] == nil {
		return nil
	}
	return m.trees[col].Find(value)
}

// LocateRange returns the RIDs indexed under [lo, hi] in col, or nil if
// col has no index.
func (m *Manager) LocateRange(col int, lo, hi int64) []int64 {
	if !m.inRange(col) || m.trees[col] == nil {
		return nil
	}
	return m.trees[col].FindRange(lo, hi)
}

// Add inserts (value, rid) into every indexed column whose value is not
// the NULL sentinel.
func (m *Manager) Add(rid int64, dataColumns []int64) {
	for col, v := range dataColumns {
		if col < len(m.trees) && m.trees[col] != nil && v != config.Null {
			m.trees[col].Insert(v, rid)
		}
	}
}

// Remove removes rid from every indexed column's bucket for its current
// value.
func (m *Manager) Remove(rid int64, dataColumns []int64) {
	for col, v := range dataColumns {
		if col < len(m.trees) && m.trees[col] != nil && v != config.Null {
			m.trees[col].Remove(v, &rid)
		}
	}
}

// Update moves rid from old[col] to new[col] in every indexed column where
// the value actually changed and neither side is the NULL sentinel.
func (m *Manager) Update(rid int64, oldColumns, newColumns []int64) {
	for col := 0; col < len(m.trees) && col < len(oldColumns) && col < len(newColumns); col++ {
		if m.trees[col] == nil {
			continue
		}
		oldV, newV := oldColumns[col], newColumns[col]
		if oldV == newV || oldV == config.Null || newV == config.Null {
			continue
		}
		m.trees[col].Remove(oldV, &rid)
		m.trees[col].Insert(newV, rid)
	}
}

// HasIndex reports whether col currently has a live index.
func (m *Manager) HasIndex(col int) bool {
	return m.inRange(col) && m.trees[col] != nil
}
