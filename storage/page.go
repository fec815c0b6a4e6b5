// Package storage implements the columnar page abstraction and the page
// directory that owns base/tail segments, the RID codec, and the lineage
// chain walk (schema-encoding-guided and relative-version reconstruction).
package storage

import (
	"encoding/binary"
	"fmt"

	"github.com/koroeder/lstore/config"
	"github.com/koroeder/lstore/errs"
)

// Page is a fixed byte buffer holding up to config.SlotsPerPage signed
// int64 values, little-endian, packed left to right. num_records is a
// monotonically increasing append cursor; write_slot never advances it.
type Page struct {
	data       [config.PageSize]byte
	numRecords int
}

// NewPage returns an empty page with cursor at zero.
func NewPage() *Page {
	return &Page{}
}

// NumRecords returns the current append cursor.
func (p *Page) NumRecords() int {
	return p.numRecords
}

// Append writes v into the next free slot and advances the cursor.
// Returns errs.ErrPageFull once the page holds SlotsPerPage values.
func (p *Page) Append(v int64) (int, error) {
	if p.numRecords >= config.SlotsPerPage {
		return 0, errs.ErrPageFull
	}
	slot := p.numRecords
	binary.LittleEndian.PutUint64(p.data[slot*config.IntSize:], uint64(v))
	p.numRecords++
	return slot, nil
}

// Read returns the value at slot. slot must be in [0, NumRecords()).
func (p *Page) Read(slot int) (int64, error) {
	if slot < 0 || slot >= p.numRecords {
		return 0, fmt.Errorf("page: read slot %d: %w", slot, errs.ErrOutOfBounds)
	}
	return p.readRaw(slot), nil
}

// WriteSlot overwrites the value at slot in place. The cursor is unchanged.
// slot must be in [0, NumRecords()).
func (p *Page) WriteSlot(slot int, v int64) error {
	if slot < 0 || slot >= p.numRecords {
		return fmt.Errorf("page: write_slot %d: %w", slot, errs.ErrOutOfBounds)
	}
	binary.LittleEndian.PutUint64(p.data[slot*config.IntSize:], uint64(v))
	return nil
}

// ReadRange returns a copy of slots [start, end). Requires
// 0 <= start <= end <= NumRecords().
func (p *Page) ReadRange(start, end int) ([]int64, error) {
	if start < 0 || end < start || end > p.numRecords {
		return nil, fmt.Errorf("page: read_range [%d,%d): %w", start, end, errs.ErrOutOfBounds)
	}
	out := make([]int64, end-start)
	for i := start; i < end; i++ {
		out[i-start] = p.readRaw(i)
	}
	return out, nil
}

func (p *Page) readRaw(slot int) int64 {
	return int64(binary.LittleEndian.Uint64(p.data[slot*config.IntSize:]))
}
