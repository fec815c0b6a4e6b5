package storage

import "github.com/koroeder/lstore/config"

// RID is a non-negative 63-bit integer encoding (range_id, segment, offset).
type RID = int64

// EncodeRID packs a (range, segment, offset) triple into a RID. Pure
// arithmetic, no allocation.
func EncodeRID(rangeID int, segment int, offset int) RID {
	return RID(rangeID)*config.RangeCap + RID(segment)*config.RecordsPerRange + RID(offset)
}

// DecodeRID is the inverse of EncodeRID.
func DecodeRID(rid RID) (rangeID int, segment int, offset int) {
	rangeID = int(rid / config.RangeCap)
	rem := rid % config.RangeCap
	segment = int(rem / config.RecordsPerRange)
	offset = int(rem % config.RecordsPerRange)
	return
}

// PageOffset splits a within-range offset into (page_index, slot_index).
func PageOffset(offset int) (pageIndex int, slotIndex int) {
	return offset / config.SlotsPerPage, offset % config.SlotsPerPage
}
