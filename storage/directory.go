package storage

import (
	"fmt"
	"time"

	"github.com/koroeder/lstore/config"
	"github.com/koroeder/lstore/errs"
)

// logicalPage is an ordered sequence of column pages sharing one cursor:
// writing a record writes one slot into each column page at the same index.
type logicalPage struct {
	columns []*Page
}

func newLogicalPage(width int) *logicalPage {
	cols := make([]*Page, width)
	for i := range cols {
		cols[i] = NewPage()
	}
	return &logicalPage{columns: cols}
}

func (lp *logicalPage) numRecords() int {
	return lp.columns[0].NumRecords()
}

func (lp *logicalPage) append(row []int64) (int, error) {
	slot := -1
	for i, v := range row {
		s, err := lp.columns[i].Append(v)
		if err != nil {
			return 0, err
		}
		slot = s
	}
	return slot, nil
}

func (lp *logicalPage) read(slot int) ([]int64, error) {
	out := make([]int64, len(lp.columns))
	for i, c := range lp.columns {
		v, err := c.Read(slot)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

func (lp *logicalPage) writeSlot(col int, slot int, v int64) error {
	return lp.columns[col].WriteSlot(slot, v)
}

// segment is an ordered sequence of logical pages, one range's base or tail.
type segment struct {
	pages []*logicalPage
	width int
}

func newSegment(width int) *segment {
	return &segment{width: width}
}

func (s *segment) ensurePage(pageIndex int) *logicalPage {
	for pageIndex >= len(s.pages) {
		s.pages = append(s.pages, newLogicalPage(s.width))
	}
	return s.pages[pageIndex]
}

type rangeSegments struct {
	base *segment
	tail *segment
}

// PageDirectory owns every range's base and tail segments, allocates and
// decodes RIDs, and walks the lineage chain to reconstruct logical rows.
type PageDirectory struct {
	numColumns int // C, the number of data columns

	ranges map[int]*rangeSegments

	baseOffsets map[int]int
	tailOffsets map[int]int

	numBaseRecords int
	numTailRecords int

	nowSeconds func() int64 // overridable in tests
}

// NewPageDirectory constructs a directory for a table with numColumns data
// columns.
func NewPageDirectory(numColumns int) *PageDirectory {
	return &PageDirectory{
		numColumns:  numColumns,
		ranges:      make(map[int]*rangeSegments),
		baseOffsets: make(map[int]int),
		tailOffsets: make(map[int]int),
		nowSeconds:  func() int64 { return time.Now().Unix() },
	}
}

func (d *PageDirectory) baseWidth() int { return config.BaseMeta + d.numColumns }
func (d *PageDirectory) tailWidth() int { return config.TailMeta + d.numColumns }

func (d *PageDirectory) rangeFor(rangeID int) *rangeSegments {
	r, ok := d.ranges[rangeID]
	if !ok {
		r = &rangeSegments{
			base: newSegment(d.baseWidth()),
			tail: newSegment(d.tailWidth()),
		}
		d.ranges[rangeID] = r
	}
	return r
}

// schemaBit returns the bit position of data column i within a C-bit field,
// where bit ordering is MSB = column 0.
func schemaBit(i, numCols int) uint {
	return uint(numCols - 1 - i)
}

func bitmapOfNonNull(data []int64) int64 {
	var bm int64
	for i, v := range data {
		if v != config.Null {
			bm |= 1 << schemaBit(i, len(data))
		}
	}
	return bm
}

// AddRecord writes a base or tail record and returns its RID.
//
// For a base record, columns has length BaseMeta+C with meta slots left as
// config.Null; AddRecord normalizes indirection and schema_encoding. For a
// tail record, columns has length TailMeta+C; AddRecord computes
// schema_encoding from the non-null data columns and links the tail onto
// the head of baseRID's chain.
func (d *PageDirectory) AddRecord(columns []int64, isTail bool, baseRID RID) (RID, error) {
	wantWidth := d.baseWidth()
	if isTail {
		wantWidth = d.tailWidth()
	}
	if len(columns) != wantWidth {
		return 0, fmt.Errorf("add_record: got %d columns, want %d: %w", len(columns), wantWidth, errs.ErrSchemaMismatch)
	}

	row := append([]int64(nil), columns...)

	var rangeID, segmentTag, offset int
	if !isTail {
		rangeID = d.numBaseRecords / config.RecordsPerRange
		offset = d.baseOffsets[rangeID]
		segmentTag = config.SegmentBase
	} else {
		rangeID, _, _ = DecodeRID(baseRID)
		offset = d.tailOffsets[rangeID]
		if offset >= config.RecordsPerRange {
			return 0, errs.ErrTailRangeFull
		}
		segmentTag = config.SegmentTail
	}

	rid := EncodeRID(rangeID, segmentTag, offset)
	r := d.rangeFor(rangeID)

	if !isTail {
		row[config.ColIndirection] = config.Null
		row[config.ColSchemaEncoding] = 0
	} else {
		data := row[config.TailMeta:]
		row[config.ColSchemaEncoding] = bitmapOfNonNull(data)

		baseIndirection, err := d.readMetaRaw(config.SegmentBase, baseRID, config.ColIndirection)
		if err != nil {
			return 0, err
		}
		if baseIndirection == config.Null {
			row[config.ColIndirection] = baseRID
		} else {
			row[config.ColIndirection] = baseIndirection
		}
		row[config.ColBaseRID] = baseRID
	}
	row[config.ColTimestamp] = d.nowSeconds()
	row[config.ColRID] = rid

	pageIndex, _ := PageOffset(offset)
	seg := r.base
	if isTail {
		seg = r.tail
	}
	seg.ensurePage(pageIndex)
	if _, err := seg.pages[pageIndex].append(row); err != nil {
		return 0, err
	}

	if !isTail {
		d.baseOffsets[rangeID] = offset + 1
		d.numBaseRecords++
	} else {
		d.tailOffsets[rangeID] = offset + 1
		d.numTailRecords++
		if err := d.updateBaseRecord(baseRID, rid, row[config.ColSchemaEncoding]); err != nil {
			return 0, err
		}
	}
	return rid, nil
}

// updateBaseRecord points base_rid's indirection at the new tail and ORs
// the tail's schema_encoding into the base's cumulative bitmap. Never
// clears a bit.
func (d *PageDirectory) updateBaseRecord(baseRID RID, tailRID RID, tailSchema int64) error {
	rangeID, segmentTag, offset := DecodeRID(baseRID)
	if segmentTag != config.SegmentBase {
		return fmt.Errorf("update_base_record: rid %d is not a base rid: %w", baseRID, errs.ErrOutOfBounds)
	}
	r := d.rangeFor(rangeID)
	pageIndex, slotIndex := PageOffset(offset)
	page := r.base.pages[pageIndex]

	existing, err := page.columns[config.ColSchemaEncoding].Read(slotIndex)
	if err != nil {
		return err
	}
	if err := page.writeSlot(config.ColIndirection, slotIndex, tailRID); err != nil {
		return err
	}
	return page.writeSlot(config.ColSchemaEncoding, slotIndex, existing|tailSchema)
}

// readMetaRaw reads a single meta column of the record at rid without the
// tombstone check GetRecord applies.
func (d *PageDirectory) readMetaRaw(expectSegment int, rid RID, metaCol int) (int64, error) {
	rangeID, segmentTag, offset := DecodeRID(rid)
	if segmentTag != expectSegment {
		return 0, fmt.Errorf("read_meta: rid %d is not segment %d: %w", rid, expectSegment, errs.ErrOutOfBounds)
	}
	r, ok := d.ranges[rangeID]
	if !ok {
		return 0, fmt.Errorf("read_meta: range %d unallocated: %w", rangeID, errs.ErrOutOfBounds)
	}
	seg := r.base
	if expectSegment == config.SegmentTail {
		seg = r.tail
	}
	pageIndex, slotIndex := PageOffset(offset)
	if pageIndex >= len(seg.pages) {
		return 0, fmt.Errorf("read_meta: page %d unallocated: %w", pageIndex, errs.ErrOutOfBounds)
	}
	return seg.pages[pageIndex].columns[metaCol].Read(slotIndex)
}

// readRowRaw reads the full row at rid without the tombstone check.
func (d *PageDirectory) readRowRaw(rid RID) ([]int64, error) {
	rangeID, segmentTag, offset := DecodeRID(rid)
	r, ok := d.ranges[rangeID]
	if !ok {
		return nil, fmt.Errorf("get_record: range %d unallocated: %w", rangeID, errs.ErrOutOfBounds)
	}
	seg := r.base
	if segmentTag == config.SegmentTail {
		seg = r.tail
	}
	pageIndex, slotIndex := PageOffset(offset)
	if pageIndex >= len(seg.pages) {
		return nil, fmt.Errorf("get_record: page %d unallocated: %w", pageIndex, errs.ErrOutOfBounds)
	}
	return seg.pages[pageIndex].read(slotIndex)
}

// GetRecord returns the raw stored row at rid. Fails with ErrRecordDeleted
// if rid is a base record whose indirection slot holds the DELETED
// sentinel.
func (d *PageDirectory) GetRecord(rid RID) ([]int64, error) {
	row, err := d.readRowRaw(rid)
	if err != nil {
		return nil, err
	}
	_, segmentTag, _ := DecodeRID(rid)
	if segmentTag == config.SegmentBase && row[config.ColIndirection] == config.Deleted {
		return nil, errs.ErrRecordDeleted
	}
	return row, nil
}

// shapeBase reshapes a raw base row (BaseMeta+C) into the tail-shaped
// output (TailMeta+C), echoing the base's own RID in the base_rid slot.
func shapeBase(base []int64, numColumns int) []int64 {
	out := make([]int64, config.TailMeta+numColumns)
	out[config.ColIndirection] = base[config.ColIndirection]
	out[config.ColRID] = base[config.ColRID]
	out[config.ColTimestamp] = base[config.ColTimestamp]
	out[config.ColSchemaEncoding] = base[config.ColSchemaEncoding]
	out[config.ColBaseRID] = base[config.ColRID]
	copy(out[config.TailMeta:], base[config.BaseMeta:])
	return out
}

// GetCumulativeUpdatedRecord reconstructs the current logical row by
// walking the indirection chain newest-to-oldest, resolving each data
// column at most once, guided by the base's cumulative schema_encoding.
func (d *PageDirectory) GetCumulativeUpdatedRecord(baseRID RID) ([]int64, error) {
	base, err := d.readRowRaw(baseRID)
	if err != nil {
		return nil, err
	}
	result := shapeBase(base, d.numColumns)
	if base[config.ColIndirection] == config.Null {
		return result, nil
	}

	pending := base[config.ColSchemaEncoding]
	cursor := base[config.ColIndirection]
	for pending != 0 && cursor != baseRID {
		tail, err := d.readRowRaw(cursor)
		if err != nil {
			return nil, err
		}
		for i := 0; i < d.numColumns && pending != 0; i++ {
			bit := schemaBit(i, d.numColumns)
			if pending&(1<<bit) == 0 {
				continue
			}
			v := tail[config.TailMeta+i]
			if v != config.Null {
				result[config.TailMeta+i] = v
				pending &^= 1 << bit
			}
		}
		cursor = tail[config.ColIndirection]
	}
	return result, nil
}

// collectTailsOldestFirst walks base_rid's chain newest-to-oldest and
// returns the tail rows oldest-first.
func (d *PageDirectory) collectTailsOldestFirst(baseRID RID, baseIndirection int64) ([][]int64, error) {
	var newestFirst [][]int64
	cursor := baseIndirection
	for cursor != baseRID {
		tail, err := d.readRowRaw(cursor)
		if err != nil {
			return nil, err
		}
		newestFirst = append(newestFirst, tail)
		cursor = tail[config.ColIndirection]
	}
	oldestFirst := make([][]int64, len(newestFirst))
	for i, t := range newestFirst {
		oldestFirst[len(newestFirst)-1-i] = t
	}
	return oldestFirst, nil
}

// GetRelativeVersionOfRecord reconstructs the row as of exactly a prefix of
// its tails, applied oldest-first. version follows the internal
// convention: 0 = base only, -1 = latest (delegates to
// GetCumulativeUpdatedRecord), version < -1 = "latest minus k" for
// k = -1-version, version > 0 = apply the first min(version, len) tails.
func (d *PageDirectory) GetRelativeVersionOfRecord(baseRID RID, version int) ([]int64, error) {
	base, err := d.readRowRaw(baseRID)
	if err != nil {
		return nil, err
	}
	result := shapeBase(base, d.numColumns)

	if version == 0 {
		return result, nil
	}
	if version == -1 {
		return d.GetCumulativeUpdatedRecord(baseRID)
	}
	if base[config.ColIndirection] == config.Null {
		return result, nil
	}

	tails, err := d.collectTailsOldestFirst(baseRID, base[config.ColIndirection])
	if err != nil {
		return nil, err
	}

	var apply int
	if version < -1 {
		k := -1 - version
		apply = len(tails) - k
		if apply < 0 {
			apply = 0
		}
	} else {
		apply = version
		if apply > len(tails) {
			apply = len(tails)
		}
	}

	for _, tail := range tails[:apply] {
		for i := 0; i < d.numColumns; i++ {
			v := tail[config.TailMeta+i]
			if v != config.Null {
				result[config.TailMeta+i] = v
			}
		}
	}
	return result, nil
}

// DeleteRecord tombstones the base record at rid by writing the DELETED
// sentinel into its indirection slot. Idempotent; returns false (not an
// error) if rid falls outside allocated storage.
func (d *PageDirectory) DeleteRecord(rid RID) bool {
	rangeID, segmentTag, offset := DecodeRID(rid)
	r, ok := d.ranges[rangeID]
	if !ok {
		return false
	}
	seg := r.base
	if segmentTag == config.SegmentTail {
		seg = r.tail
	}
	pageIndex, slotIndex := PageOffset(offset)
	if pageIndex >= len(seg.pages) || slotIndex >= seg.pages[pageIndex].numRecords() {
		return false
	}
	page := seg.pages[pageIndex]
	current, err := page.columns[config.ColIndirection].Read(slotIndex)
	if err != nil {
		return false
	}
	if current == config.Deleted {
		return true
	}
	if err := page.writeSlot(config.ColIndirection, slotIndex, config.Deleted); err != nil {
		return false
	}
	return true
}

// NumColumns returns C, the number of data columns.
func (d *PageDirectory) NumColumns() int { return d.numColumns }

// AllBaseRIDs returns every base RID currently allocated, in insertion
// order. Used by Index Manager bulk-load.
func (d *PageDirectory) AllBaseRIDs() []RID {
	var out []RID
	maxRange := d.numBaseRecords / config.RecordsPerRange
	for rangeID := 0; rangeID <= maxRange; rangeID++ {
		count := d.baseOffsets[rangeID]
		for offset := 0; offset < count; offset++ {
			out = append(out, EncodeRID(rangeID, config.SegmentBase, offset))
		}
	}
	return out
}
